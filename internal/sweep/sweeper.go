// Package sweep expires pending transactions whose window has closed.
package sweep

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/pointqr/internal/metrics"
	"github.com/dukerupert/pointqr/internal/model"
	"github.com/dukerupert/pointqr/internal/websocket"
)

// Expirer marks overdue pending transactions expired. *store.TransactionStore satisfies it.
type Expirer interface {
	ExpirePending(now time.Time) ([]model.Transaction, error)
}

// Sweeper periodically expires overdue transactions and announces them.
type Sweeper struct {
	mu       sync.Mutex
	store    Expirer
	hub      *websocket.Hub
	metrics  *metrics.Metrics
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(store Expirer, hub *websocket.Hub, m *metrics.Metrics, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		store:    store,
		hub:      hub,
		metrics:  m,
		interval: interval,
		logger:   logger.With("component", "sweep"),
		now:      time.Now,
	}
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("expiry sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Start runs the sweeper in the background until Stop.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.Run(ctx)
	}()
}

// Stop cancels a sweeper started with Start and waits for it to exit.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Sweep runs one pass and returns how many transactions expired.
func (s *Sweeper) Sweep() int {
	expired, err := s.store.ExpirePending(s.now())
	if err != nil {
		s.logger.Error("expire pending transactions", "error", err)
		return 0
	}
	for _, txn := range expired {
		if s.hub != nil {
			s.hub.Broadcast(websocket.NewTransactionMessage(websocket.ActionExpired, txn.ID, txn.ShopID, txn.Points, ""))
		}
	}
	if n := len(expired); n > 0 {
		if s.metrics != nil {
			s.metrics.TransactionsExpired.Add(float64(n))
		}
		s.logger.Info("expired pending transactions", "count", n)
	}
	return len(expired)
}
