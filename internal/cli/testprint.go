package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"print-dispatcher/internal/microservices/dispatcher"
	"print-dispatcher/internal/printing/sink"
	"print-dispatcher/internal/printing/ticket"
)

func NewTestPrintCommand(opts *RootOptions) *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:   "test-print",
		Short: "Send the test ticket to the bound printers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			b, _ := dispatcher.NewResolver(cfg.Printers).Refresh(cmd.Context())
			if device != "" {
				b.Kitchen, b.Cashier = device, device
			}
			if b.Empty() {
				return errors.New("no printer bound: set printers.target or pass --device")
			}

			s := sink.NewDefault(cfg.Dispatcher.DeliveryTimeout)
			r := ticket.NewRenderer(dispatcher.TicketOptions(cfg.Ticket), nil)
			failed := 0
			for _, res := range dispatcher.SelfTest(cmd.Context(), s, r, b, cfg.Dispatcher.DeliveryTimeout) {
				if res.Err != nil {
					failed++
					fmt.Fprintf(opts.Out, "%s -> %s: FAILED (%v)\n", res.Role, res.Printer, res.Err)
					continue
				}
				fmt.Fprintf(opts.Out, "%s -> %s: ok\n", res.Role, res.Printer)
			}
			if failed > 0 {
				return fmt.Errorf("%d test print(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", "", "print to this device instead of the resolved bindings")
	return cmd
}
