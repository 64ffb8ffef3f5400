package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/pointqr/internal/config"
	"github.com/dukerupert/pointqr/internal/ledger"
	"github.com/dukerupert/pointqr/internal/logging"
)

type app struct {
	ledgerURL string
	timeout   time.Duration
	logLevel  string
	shopID    int64
	customer  int64

	logger *slog.Logger
	client *ledger.Client
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	a := &app{
		ledgerURL: cfg.LedgerURL,
		timeout:   cfg.Timeout(),
		logLevel:  cfg.LogLevel,
		shopID:    cfg.ShopID,
		customer:  cfg.CustomerID,
	}

	root := &cobra.Command{
		Use:          "pointqr",
		Short:        "Issue and redeem loyalty points with one-time QR codes",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.timeout <= 0 {
				return fmt.Errorf("--timeout must be positive")
			}
			a.logger = logging.New(cmd.ErrOrStderr(), a.logLevel, cfg.LogFormat)
			a.client = ledger.NewClient(ledger.Config{BaseURL: a.ledgerURL, Timeout: a.timeout}, a.logger)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.ledgerURL, "ledger-url", a.ledgerURL, "ledger base URL (env POINTQR_LEDGER_URL)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", a.timeout, "per-request ledger timeout (env POINTQR_LEDGER_TIMEOUT)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", a.logLevel, "log level: debug|info|warn|error")

	root.AddCommand(a.issueCmd(), a.redeemCmd(), a.pointsCmd())
	return root
}
