package sweep

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dukerupert/pointqr/internal/database"
	"github.com/dukerupert/pointqr/internal/metrics"
	"github.com/dukerupert/pointqr/internal/model"
	"github.com/dukerupert/pointqr/internal/store"
)

func TestSweepExpiresOverdue(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	defer db.Close()

	shop, err := store.NewShopStore(db).Create("Star Coffee", "star@example.com")
	if err != nil {
		t.Fatalf("create shop: %v", err)
	}
	ts := store.NewTransactionStore(db)
	now := time.Now().UTC()
	ts.Create(shop.ID, "old", 10, now.Add(-10*time.Minute), model.GrantTTL)
	ts.Create(shop.ID, "new", 10, now, model.GrantTTL)

	m, _ := metrics.New(prometheus.NewRegistry())
	s := New(ts, nil, m, time.Minute, slog.Default())
	s.now = func() time.Time { return now }

	if n := s.Sweep(); n != 1 {
		t.Errorf("expired = %d, want 1", n)
	}
	if n := s.Sweep(); n != 0 {
		t.Errorf("second sweep expired = %d, want 0", n)
	}
	if got := testutil.ToFloat64(m.TransactionsExpired); got != 1 {
		t.Errorf("expired metric = %v, want 1", got)
	}

	txn, _ := ts.GetByCode("old")
	if txn.Status != model.GrantExpired {
		t.Errorf("status = %q, want expired", txn.Status)
	}
}

type countingExpirer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingExpirer) ExpirePending(now time.Time) ([]model.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil, c.err
}

func (c *countingExpirer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestStartStop(t *testing.T) {
	e := &countingExpirer{}
	s := New(e, nil, nil, 5*time.Millisecond, slog.Default())
	s.Start(context.Background())

	deadline := time.After(time.Second)
	for e.count() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not tick")
		case <-time.After(5 * time.Millisecond):
		}
	}
	s.Stop()

	after := e.count()
	time.Sleep(20 * time.Millisecond)
	if e.count() != after {
		t.Error("sweeper kept running after Stop")
	}
}

func TestSweepStoreError(t *testing.T) {
	s := New(&countingExpirer{err: errors.New("disk full")}, nil, nil, time.Minute, slog.Default())
	if n := s.Sweep(); n != 0 {
		t.Errorf("expired = %d, want 0 on error", n)
	}
}
