package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"runsettings/internal/diff"
	"runsettings/internal/jsonx"
	"runsettings/internal/session"
	"runsettings/internal/settings"
)

func newModelsCommand(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the picker catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			current, err := c.statePersister().Load(cmd.Context())
			if err != nil {
				return err
			}
			options := settings.PickerOptions(c.catalog, current)
			out := cmd.OutOrStdout()
			if asJSON {
				data, err := jsonx.MarshalIndent(options, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			return printModels(out, options)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func printModels(out io.Writer, options []settings.PickerOption) error {
	for _, option := range options {
		marker := "  "
		id := option.ID
		if option.Selected {
			marker = green("* ")
			id = bold(id)
		}
		line := marker + id
		if option.Label != option.ID {
			line += " " + gray(option.Label)
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func newDefaultsCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "defaults",
		Short: "Print the per-model tool defaults as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(c.defaults); err != nil {
				return fmt.Errorf("encode defaults: %w", err)
			}
			return enc.Close()
		},
	}
}

func newPreviewCommand(c *cli) *cobra.Command {
	var (
		model  string
		from   string
		effort string
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show how selecting a model changes the run settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(model) == "" {
				return fmt.Errorf("--model is required")
			}
			before, after, err := c.preview(from, model, effort)
			if err != nil {
				return err
			}
			result, err := diff.NewRenderer(!color.NoColor).States(before, after)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s -> %s\n", cyan("preview"), before.SelectedModel, after.SelectedModel)
			if !result.Changed() {
				_, err = fmt.Fprintln(out, gray(result.Summary()))
				return err
			}
			fmt.Fprint(out, result.Text)
			_, err = fmt.Fprintln(out, gray(result.Summary()))
			return err
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "model to switch to")
	cmd.Flags().StringVar(&from, "from", "", "starting model (default: first catalog entry)")
	cmd.Flags().StringVar(&effort, "effort", "", "reasoning effort set before switching (standard or high)")
	return cmd
}

// preview runs the switch in a throwaway session and returns the states
// before and after reconciliation.
func (c *cli) preview(from, model, effort string) (settings.State, settings.State, error) {
	sess := session.New("preview", from, c.sessionConfig())
	defer sess.Close()

	if effort != "" {
		level, err := settings.ParseEffort(effort)
		if err != nil {
			return settings.State{}, settings.State{}, err
		}
		if _, err := sess.SetEffort(level); err != nil {
			return settings.State{}, settings.State{}, err
		}
	}
	before := sess.State()
	if _, err := sess.SelectModel(model); err != nil {
		return settings.State{}, settings.State{}, err
	}
	// The reconciler runs before SelectModel returns.
	return before, sess.State(), nil
}
