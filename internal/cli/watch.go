package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"print-dispatcher/internal/connections/rabbitmq"
	"print-dispatcher/internal/microservices/notificator"
)

func NewWatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Log print events published by running dispatchers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if !cfg.Rabbit.Enabled {
				return errors.New("watch needs rabbitmq.enabled")
			}
			client, err := rabbitmq.Dial(cfg.Rabbit)
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.DeclareTopology(""); err != nil {
				return err
			}
			return notificator.Start(cmd.Context(), client)
		},
	}
}
