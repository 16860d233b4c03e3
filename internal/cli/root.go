package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"print-dispatcher/internal/common/config"
	"print-dispatcher/internal/common/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string

	// Out receives command output; tests replace it.
	Out io.Writer
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "print-dispatcher",
		Short:         "Receipt print dispatcher",
		Long:          "Turns new orders into kitchen and cashier tickets on the counter's receipt printers.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.Out = cmd.OutOrStdout()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default: config.yaml, then deploy/config.example.yaml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log level (debug|info|warn|error)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewPrintersCommand(opts))
	cmd.AddCommand(NewTestPrintCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewSubmitCommand(opts))

	return cmd
}

// loadConfig reads the config file and applies the log level.
func loadConfig(opts *RootOptions) (config.App, error) {
	path := opts.ConfigPath
	if path == "" {
		p, err := config.FindConfig()
		if err != nil {
			return config.App{}, fmt.Errorf("no config file found: pass --config")
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.App{}, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}
