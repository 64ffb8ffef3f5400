package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/pointqr/internal/grant"
	"github.com/dukerupert/pointqr/internal/ledger"
	"github.com/dukerupert/pointqr/internal/model"
	"github.com/dukerupert/pointqr/internal/websocket"
)

func (a *app) issueCmd() *cobra.Command {
	var points int
	var pngPath string

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a one-time code and wait until it is redeemed or expires",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			out := cmd.OutOrStdout()

			display := newTerminalDisplay(out, pngPath)
			redeemed := make(chan struct{}, 1)
			issuer := grant.NewIssuer(a.client, display, a.logger)
			defer issuer.Close()

			// Redemptions arrive over the ledger's event stream; without it the
			// countdown still clears the code.
			go func() {
				err := a.client.Watch(ctx, a.shopID, func(ev ledger.Event) {
					if ev.Action != websocket.ActionRedeemed || ev.CodeID == "" {
						return
					}
					err := issuer.MarkRedeemed(ev.CodeID)
					switch {
					case err == nil:
						select {
						case redeemed <- struct{}{}:
						default:
						}
					case !errors.Is(err, grant.ErrUnknownGrant):
						a.logger.Debug("ignoring redemption event", "error", err)
					}
				})
				if err != nil {
					a.logger.Warn("ledger events unavailable", "error", err)
				}
			}()

			g, err := issuer.Issue(ctx, a.shopID, points)
			if err != nil {
				return err
			}

			select {
			case <-display.done(g.TokenID):
			case <-ctx.Done():
				fmt.Fprintln(out, "cancelled; the code stays valid until it expires")
				return nil
			}

			// A scan accepted just before the window closed can be reported after the
			// countdown fired; give the event one request timeout to arrive.
			if final, _ := issuer.Grant(g.TokenID); final.Status == model.GrantExpired {
				select {
				case <-redeemed:
				case <-time.After(a.timeout):
				case <-ctx.Done():
				}
			}

			final, _ := issuer.Grant(g.TokenID)
			switch final.Status {
			case model.GrantRedeemed:
				fmt.Fprintf(out, "redeemed: %d points granted\n", final.Points)
			default:
				fmt.Fprintln(out, "expired without being redeemed")
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&a.shopID, "shop", a.shopID, "shop id (env POINTQR_SHOP_ID)")
	cmd.Flags().IntVar(&points, "points", 0, "points to grant")
	cmd.Flags().StringVar(&pngPath, "out", "", "also write the code as a PNG file")
	cmd.MarkFlagRequired("points")
	return cmd
}
