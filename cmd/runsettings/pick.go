package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"runsettings/internal/session"
	"runsettings/internal/settings"
	"runsettings/internal/tui"
)

func newPickCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "pick [model]",
		Short: "Choose the model and persist it for the next run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.openPersistedSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			var model string
			if len(args) == 1 {
				model = args[0]
			} else {
				if !isTTY() {
					return fmt.Errorf("no model given; use `runsettings pick <model>` or run in an interactive terminal")
				}
				if model, err = promptModel(sess); err != nil {
					return err
				}
			}

			if _, err := sess.SelectModel(model); err != nil {
				return err
			}
			return printSelection(cmd.OutOrStdout(), sess.State())
		},
	}
}

// openPersistedSession seeds a session from the state file and writes every
// selection back to it.
func (c *cli) openPersistedSession(ctx context.Context) (*session.Session, error) {
	persister := c.statePersister()
	persisted, err := persister.Load(ctx)
	if err != nil {
		return nil, err
	}
	cfg := c.sessionConfig()
	cfg.Persister = persister
	return session.New("cli", persisted, cfg), nil
}

func promptModel(sess *session.Session) (string, error) {
	view := sess.View()
	items := make([]string, 0, len(view.Models))
	cursor := 0
	for i, option := range view.Models {
		items = append(items, option.ID)
		if option.Selected {
			cursor = i
		}
	}

	prompt := promptui.Select{
		Label:     "Model",
		Items:     items,
		Size:      12,
		CursorPos: cursor,
		Searcher: func(input string, index int) bool {
			return strings.Contains(strings.ToLower(items[index]), strings.ToLower(strings.TrimSpace(input)))
		},
	}
	_, model, err := prompt.Run()
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return "", fmt.Errorf("selection cancelled")
	}
	if err != nil {
		return "", fmt.Errorf("model prompt: %w", err)
	}
	return model, nil
}

func printSelection(out io.Writer, state settings.State) error {
	fmt.Fprintf(out, "%s %s\n", green("✓ selected"), bold(state.SelectedModel))
	for _, tool := range settings.Tools {
		mark := gray("off")
		if state.ToolSettings.Enabled(tool) {
			mark = green("on ")
		}
		fmt.Fprintf(out, "  [%s] %s\n", mark, tool.Label())
	}
	if settings.IsReasoningCapable(state.SelectedModel) {
		fmt.Fprintf(out, "  %s %s (%d tokens)\n", yellow("reasoning effort"),
			settings.EffortOf(state.ToolSettings.ThinkingTokens), state.ToolSettings.ThinkingTokens)
	}
	return nil
}

func newDrawerCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "drawer",
		Short: "Open the interactive run-settings drawer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTTY() {
				return fmt.Errorf("the drawer needs an interactive terminal")
			}
			sess, err := c.openPersistedSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()
			return tui.Run(sess, tea.WithAltScreen())
		},
	}
}
