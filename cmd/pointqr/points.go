package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) pointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "points",
		Short: "Show a customer's point balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := a.client.Points(cmd.Context(), a.customer)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "customer %d has %d points\n", a.customer, points)
			return nil
		},
	}
	cmd.Flags().Int64Var(&a.customer, "customer", a.customer, "customer id (env POINTQR_CUSTOMER_ID)")
	return cmd
}
