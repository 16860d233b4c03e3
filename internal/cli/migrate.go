package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"print-dispatcher/internal/connections/database"
)

func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the orders schema and insert trigger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			cfg.Database.Migrate = false
			db, err := database.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db, cfg.Database.Driver); err != nil {
				return err
			}
			fmt.Fprintf(opts.Out, "schema applied (%s)\n", cfg.Database.Driver)
			return nil
		},
	}
}
