package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/pointqr/internal/capture"
	"github.com/dukerupert/pointqr/internal/redeem"
)

func (a *app) redeemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redeem <image>...",
		Short: "Scan images for a code and redeem it for the customer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			device := capture.NewDevice(capture.NewStills(args...), a.logger, func(p capture.Permission) {
				a.logger.Debug("camera permission changed", "permission", p)
			})
			coord := redeem.NewCoordinator(device, a.client, redeem.Config{
				CustomerID: a.customer,
				Timeout:    a.timeout,
				OnState: func(o redeem.Outcome) {
					a.logger.Debug("redemption state", "state", o.State)
				},
			}, a.logger)
			defer coord.Close()

			if err := coord.Open(ctx); err != nil {
				var ae *capture.AccessError
				if errors.As(err, &ae) {
					return errors.New(ae.Message())
				}
				return err
			}

			o, err := coord.Wait(ctx)
			if err != nil {
				return err
			}
			if o.State != redeem.StateSuccess {
				return errors.New(o.Message)
			}
			fmt.Fprintln(out, o.Message)
			return nil
		},
	}

	cmd.Flags().Int64Var(&a.customer, "customer", a.customer, "customer id (env POINTQR_CUSTOMER_ID)")
	return cmd
}
