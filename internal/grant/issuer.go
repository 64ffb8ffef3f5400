package grant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/pointqr/internal/ledger"
	"github.com/dukerupert/pointqr/internal/model"
)

var (
	ErrInvalidShop   = errors.New("shop id must be positive")
	ErrInvalidPoints = errors.New("points must be positive")
	ErrUnknownGrant  = errors.New("unknown grant")
	ErrClosed        = errors.New("issuer closed")
)

// Display presents an issued grant to the merchant, typically as a QR code.
type Display interface {
	Show(g model.PointGrant)
	Clear(tokenID string)
}

// Ledger is the backend that records issued grants.
type Ledger interface {
	Issue(ctx context.Context, req ledger.IssueRequest) error
}

type entry struct {
	grant   model.PointGrant
	timer   *time.Timer
	cleared bool
}

// Issuer creates point grants for a merchant and owns their local expiry countdown.
// The ledger stays authoritative for expiry; the countdown only takes the grant off display.
type Issuer struct {
	mu      sync.Mutex
	ledger  Ledger
	display Display
	logger  *slog.Logger
	grants  map[string]*entry
	closed  bool

	ttl     time.Duration
	now     func() time.Time
	tokenID func() (string, error)
}

func NewIssuer(l Ledger, d Display, logger *slog.Logger) *Issuer {
	return &Issuer{
		ledger:  l,
		display: d,
		logger:  logger.With("component", "issuer"),
		grants:  make(map[string]*entry),
		ttl:     model.GrantTTL,
		now:     time.Now,
		tokenID: NewTokenID,
	}
}

// Issue creates a grant, records it with the ledger and, only once the ledger accepts it,
// starts the countdown and shows it. Ledger failures are returned as-is and nothing is shown.
func (i *Issuer) Issue(ctx context.Context, shopID int64, points int) (*model.PointGrant, error) {
	if shopID <= 0 {
		return nil, ErrInvalidShop
	}
	if points <= 0 {
		return nil, ErrInvalidPoints
	}

	i.mu.Lock()
	closed := i.closed
	i.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	tokenID, err := i.tokenID()
	if err != nil {
		return nil, err
	}

	if err := i.ledger.Issue(ctx, ledger.IssueRequest{ShopID: shopID, Points: points, CodeID: tokenID}); err != nil {
		i.logger.Warn("issue rejected", "shop_id", shopID, "points", points, "error", err)
		return nil, fmt.Errorf("issue grant: %w", err)
	}

	g := model.NewPointGrant(tokenID, shopID, points, i.now())
	e := &entry{grant: g}

	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil, ErrClosed
	}
	i.grants[tokenID] = e
	i.mu.Unlock()

	i.display.Show(g)

	i.mu.Lock()
	if !e.cleared && !e.grant.Status.Final() {
		e.timer = time.AfterFunc(i.ttl, func() { i.expire(tokenID) })
	}
	i.mu.Unlock()

	i.logger.Info("grant issued", "shop_id", shopID, "points", points, "expires_at", g.ExpiresAt)
	return &g, nil
}

func (i *Issuer) expire(tokenID string) {
	i.mu.Lock()
	e, ok := i.grants[tokenID]
	if !ok || e.grant.Status.Final() {
		i.mu.Unlock()
		return
	}
	e.grant.Status = model.GrantExpired
	i.mu.Unlock()

	i.logger.Info("grant expired", "shop_id", e.grant.ShopID)
	i.Clear(tokenID)
}

// Clear stops the grant's countdown and takes it off display. Safe to call repeatedly.
func (i *Issuer) Clear(tokenID string) {
	i.mu.Lock()
	e, ok := i.grants[tokenID]
	if !ok || e.cleared {
		i.mu.Unlock()
		return
	}
	e.cleared = true
	if e.timer != nil {
		e.timer.Stop()
	}
	i.mu.Unlock()

	i.display.Clear(tokenID)
}

// MarkRedeemed mirrors a redemption reported by the ledger and clears the display.
// The ledger decides expiry, so a grant the local countdown already expired is still
// moved to Redeemed; a grant already Redeemed returns ErrGrantFinal.
func (i *Issuer) MarkRedeemed(tokenID string) error {
	i.mu.Lock()
	e, ok := i.grants[tokenID]
	if !ok {
		i.mu.Unlock()
		return ErrUnknownGrant
	}
	if e.grant.Status == model.GrantExpired {
		e.grant.Status = model.GrantRedeemed
	} else if err := e.grant.Transition(model.GrantRedeemed); err != nil {
		i.mu.Unlock()
		return fmt.Errorf("mark redeemed: %w", err)
	}
	i.mu.Unlock()

	i.logger.Info("grant redeemed", "shop_id", e.grant.ShopID, "points", e.grant.Points)
	i.Clear(tokenID)
	return nil
}

// Grant returns a snapshot of the grant for tokenID.
func (i *Issuer) Grant(tokenID string) (model.PointGrant, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	e, ok := i.grants[tokenID]
	if !ok {
		return model.PointGrant{}, false
	}
	return e.grant, true
}

// Active returns the grants still pending and on display.
func (i *Issuer) Active() []model.PointGrant {
	i.mu.Lock()
	defer i.mu.Unlock()
	var out []model.PointGrant
	for _, e := range i.grants {
		if !e.cleared && e.grant.Status == model.GrantPending {
			out = append(out, e.grant)
		}
	}
	return out
}

// Close stops every countdown. Grants keep their current status.
func (i *Issuer) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	for _, e := range i.grants {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
}
