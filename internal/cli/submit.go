package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"print-dispatcher/internal/microservices/order"
	dto "print-dispatcher/internal/microservices/order/domain/dto"
)

func NewSubmitCommand(opts *RootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Store a new order as pending_print",
		Long:  "Reads an order as JSON from --file (or stdin) and inserts it for the dispatcher to print.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			var r io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			var req dto.CreateOrderRequest
			if err := json.NewDecoder(r).Decode(&req); err != nil {
				return fmt.Errorf("decode order: %w", err)
			}
			resp, err := order.Submit(cmd.Context(), cfg, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.Out, "order %s stored (id %d, total %s, %s)\n",
				resp.OrderNumber, resp.ID, resp.TotalPrice.StringFixed(2), resp.PrintStatus)
			if resp.Warning != "" {
				fmt.Fprintf(opts.Out, "warning: %s\n", resp.Warning)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "order JSON file (default: stdin)")
	return cmd
}
