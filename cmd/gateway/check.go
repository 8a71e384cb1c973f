package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/DanielPopoola/paytoday-gateway/internal/api"
	"github.com/DanielPopoola/paytoday-gateway/internal/app"
	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	var orderID int64

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one status check for an order and print the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			if orderID <= 0 {
				return fmt.Errorf("--order must be a positive order id")
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			gw, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer gw.Close()

			decision, err := gw.Reconciler.Check(cmd.Context(), orderID, domain.DriverManual)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(api.CheckResult{
				OrderID:           decision.OrderID,
				Outcome:           string(decision.Outcome),
				OrderStatus:       string(decision.OrderStatus),
				TransactionStatus: string(decision.Status),
				RawStatus:         decision.RawStatus,
				Applied:           decision.Applied,
			})
		},
	}

	cmd.Flags().Int64Var(&orderID, "order", 0, "order id to check")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}
