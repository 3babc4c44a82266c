package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"runsettings/internal/config"
	"runsettings/internal/session"
	"runsettings/internal/settings"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// cli carries the resolved configuration into subcommands.
type cli struct {
	configPath string
	envFiles   []string
	noColor    bool

	cfg      config.Config
	catalog  *settings.Catalog
	defaults *settings.DefaultTable
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "runsettings",
		Short: "Run settings for the chat agent: model picker, tool toggles and defaults",
		Long: fmt.Sprintf(`%s

Serves the run-settings drawer over HTTP and websocket, and offers the same
controls from the terminal.

%s
  runsettings serve                        # HTTP + websocket API
  runsettings models                       # list the picker catalog
  runsettings preview --model openai/o3    # show what a switch changes
  runsettings pick                         # choose and persist a model
  runsettings drawer                       # interactive drawer`,
			bold("runsettings "+version),
			bold("EXAMPLES:")),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if c.noColor {
				color.NoColor = true
			}
			if cmd.Name() == "version" {
				return nil
			}
			return c.load()
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default: ./runsettings.yaml or ~/.runsettings/runsettings.yaml)")
	root.PersistentFlags().StringSliceVar(&c.envFiles, "env-file", []string{".env"}, ".env files loaded before the environment")
	root.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newServeCommand(c),
		newModelsCommand(c),
		newDefaultsCommand(c),
		newPreviewCommand(c),
		newPickCommand(c),
		newDrawerCommand(c),
		newVersionCommand(),
	)
	return root
}

func (c *cli) load() error {
	opts := []config.Option{config.WithEnvFiles(c.envFiles...)}
	if strings.TrimSpace(c.configPath) != "" {
		opts = append(opts, config.WithConfigPath(c.configPath))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}
	defaults, err := cfg.DefaultTable()
	if err != nil {
		return err
	}
	c.cfg, c.catalog, c.defaults = cfg, catalog, defaults
	return nil
}

func (c *cli) sessionConfig() session.Config {
	return session.Config{
		Catalog:     c.catalog,
		Defaults:    c.defaults,
		AllowCustom: c.cfg.Picker.AllowCustom,
	}
}

// statePersister is where terminal commands keep the selected model.
func (c *cli) statePersister() *session.FilePersister {
	path := strings.TrimSpace(c.cfg.StateFile)
	if path == "" {
		path = session.ResolveStatePath(nil, nil)
	}
	return session.NewFilePersister(path)
}
