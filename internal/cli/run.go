package cli

import (
	"github.com/spf13/cobra"

	"print-dispatcher/internal/common/logger"
	"print-dispatcher/internal/microservices/dispatcher"
)

func NewRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the dispatcher until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			lg := logger.New("bootstrap")
			lg.Info("service_started", map[string]any{
				"service": "print-dispatcher",
				"driver":  cfg.Database.Driver,
				"feed":    cfg.Feed.Source,
				"http":    cfg.HTTP.Addr,
			})
			if err := dispatcher.Run(cmd.Context(), cfg); err != nil {
				lg.Error("fatal", err, nil)
				return err
			}
			lg.Info("service_stopped", nil)
			return nil
		},
	}
}
