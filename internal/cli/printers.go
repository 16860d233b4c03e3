package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"print-dispatcher/internal/microservices/dispatcher"
)

func NewPrintersCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "printers",
		Short: "List visible printers and the resolved role bindings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			res := dispatcher.NewResolver(cfg.Printers)
			b, rep := res.Refresh(cmd.Context())
			_, _, devices := res.Snapshot()

			w := opts.Out
			fmt.Fprintf(w, "Printers (%d):\n", len(devices))
			if len(devices) == 0 {
				fmt.Fprintln(w, "  (none)")
			}
			for _, d := range devices {
				status := d.Status
				if status == "" {
					status = "unknown"
				}
				fmt.Fprintf(w, "  %-32s port=%-12s status=%s\n", d.Name, d.Port, status)
			}
			fmt.Fprintf(w, "kitchen: %s (%s)\n", orNone(b.Kitchen), rep.Kitchen)
			fmt.Fprintf(w, "cashier: %s (%s)\n", orNone(b.Cashier), rep.Cashier)
			if rep.Discovered != nil {
				fmt.Fprintf(w, "discovered: %s on %s by %s\n", rep.Discovered.Name, rep.Discovered.Port, rep.Match)
			}
			return nil
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
