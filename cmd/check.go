package cmd

import (
	"encoding/json"
	"fmt"

	"commerce-reconciler/feature/orders"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	checkOrderID string
	checkJSON    bool
)

// checkCmd reports the violations of one order without repairing anything.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report the fulfillment violations of an order (read-only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if checkOrderID == "" {
			return fmt.Errorf("--order-id is required")
		}

		a, err := loadApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		violations, err := orders.NewChecker(a.target).Check(cmd.Context(), checkOrderID)
		if err != nil {
			return err
		}

		if checkJSON {
			data, err := json.MarshalIndent(violations, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal violations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		}

		if len(violations) == 0 {
			a.log.Info("Order is clean", zap.String("order_id", checkOrderID))
			return nil
		}
		a.log.Warn("Order violates fulfillment invariants",
			zap.String("order_id", checkOrderID),
			zap.Strings("violations", orders.Strings(violations)),
		)
		return &exitError{code: 1}
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkOrderID, "order-id", "", "Order to check")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the violations as JSON on stdout")
	RootCmd.AddCommand(checkCmd)
}
