// Package redeem drives a customer's redemption: scan frames until a code decodes,
// validate it once with the ledger, and report the result.
package redeem

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/pointqr/internal/capture"
	"github.com/dukerupert/pointqr/internal/detect"
	"github.com/dukerupert/pointqr/internal/ledger"
)

var (
	ErrNotIdle    = errors.New("redemption already in progress")
	ErrNotSettled = errors.New("redemption has not finished")
	ErrClosed     = errors.New("redemption closed")
	ErrNoSession  = errors.New("no redemption in progress")
)

// Camera hands out capture leases. *capture.Device satisfies it.
type Camera interface {
	RequestAccess(ctx context.Context) (*capture.Lease, error)
}

// Validator redeems a decoded code. *ledger.Client satisfies it.
type Validator interface {
	Validate(ctx context.Context, req ledger.ValidateRequest) error
}

type StateCallback func(Outcome)

type Config struct {
	CustomerID int64
	// Timeout bounds the validate call. Zero uses ledger.DefaultTimeout.
	Timeout time.Duration
	// Detect finds a code in a frame. Nil uses detect.Detect.
	Detect func(image.Image) (string, bool)
	// Redeemed is called with the token id when the current session succeeds.
	Redeemed func(tokenID string)
	OnState  StateCallback
}

// Coordinator runs one redemption session at a time. Sessions are numbered; results
// that arrive for a session other than the current one are dropped.
type Coordinator struct {
	mu        sync.Mutex
	camera    Camera
	validator Validator
	cfg       Config
	logger    *slog.Logger

	state   State
	outcome Outcome
	session uint64
	lease   *capture.Lease
	cancel  context.CancelFunc
	settled chan struct{}
	settle  func()
}

func NewCoordinator(camera Camera, validator Validator, cfg Config, logger *slog.Logger) *Coordinator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = ledger.DefaultTimeout
	}
	if cfg.Detect == nil {
		cfg.Detect = detect.Detect
	}
	return &Coordinator{
		camera:    camera,
		validator: validator,
		cfg:       cfg,
		logger:    logger.With("component", "redeem"),
		state:     StateIdle,
		outcome:   Outcome{State: StateIdle},
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Open acquires the camera and starts scanning. On an access error the coordinator
// stays Idle and the error is returned.
func (c *Coordinator) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle || c.cancel != nil {
		c.mu.Unlock()
		return ErrNotIdle
	}
	c.session++
	id := c.session
	scanCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.mu.Unlock()

	lease, err := c.camera.RequestAccess(ctx)

	c.mu.Lock()
	if c.session != id {
		c.mu.Unlock()
		cancel()
		if lease != nil {
			lease.Release()
		}
		return ErrClosed
	}
	if err != nil {
		c.cancel = nil
		c.mu.Unlock()
		cancel()
		c.logger.Warn("camera access failed", "error", err)
		return err
	}
	c.lease = lease
	settled := make(chan struct{})
	c.settled = settled
	c.settle = sync.OnceFunc(func() { close(settled) })
	o := c.setLocked(Outcome{State: StateScanning})
	c.mu.Unlock()

	c.notify(o)
	go c.scan(scanCtx, id, lease)
	return nil
}

func (c *Coordinator) scan(ctx context.Context, id uint64, lease *capture.Lease) {
	for frame := range lease.Frames(ctx) {
		if token, ok := c.cfg.Detect(frame); ok {
			c.decoded(ctx, id, token)
			return
		}
	}
	lease.Release()
	if ctx.Err() != nil {
		return
	}
	c.logger.Info("frames ended without a code", "error", lease.Err())
	c.finish(id, captureFailure(lease.Err()))
}

func (c *Coordinator) decoded(ctx context.Context, id uint64, token string) {
	c.mu.Lock()
	if c.session != id || c.state != StateScanning {
		c.mu.Unlock()
		return
	}
	lease := c.lease
	c.lease = nil
	o := c.setLocked(Outcome{State: StateDecoded, TokenID: token})
	c.mu.Unlock()

	lease.Release()
	c.notify(o)

	c.mu.Lock()
	if c.session != id {
		c.mu.Unlock()
		return
	}
	o = c.setLocked(Outcome{State: StateValidating, TokenID: token})
	c.mu.Unlock()
	c.notify(o)

	// Detached from Close: an abandoned call runs to its own deadline and its result is dropped.
	vctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
	err := c.validator.Validate(vctx, ledger.ValidateRequest{CustomerID: c.cfg.CustomerID, CodeID: token})
	cancel()

	c.finish(id, validationOutcome(token, err))
}

func (c *Coordinator) finish(id uint64, o Outcome) {
	c.mu.Lock()
	if c.session != id {
		c.mu.Unlock()
		c.logger.Debug("dropping result for closed session", "state", o.State, "reason", o.Reason)
		return
	}
	o = c.setLocked(o)
	settle := c.settle
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	if o.State == StateSuccess {
		c.logger.Info("redemption succeeded", "customer_id", c.cfg.CustomerID)
		if c.cfg.Redeemed != nil {
			c.cfg.Redeemed(o.TokenID)
		}
	} else {
		c.logger.Warn("redemption failed", "reason", o.Reason, "error", o.Err)
	}
	c.notify(o)
	if settle != nil {
		settle()
	}
}

// Wait blocks until the most recent session settles or is closed, or ctx is done.
// It returns ErrNoSession when nothing was opened since construction or the last Reset.
func (c *Coordinator) Wait(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	ch := c.settled
	c.mu.Unlock()
	if ch == nil {
		return c.Outcome(), ErrNoSession
	}

	select {
	case <-ch:
		return c.Outcome(), nil
	case <-ctx.Done():
		return c.Outcome(), ctx.Err()
	}
}

// Reset returns a settled coordinator to Idle. Nothing is retried.
func (c *Coordinator) Reset() error {
	c.mu.Lock()
	if !c.state.Settled() {
		c.mu.Unlock()
		return ErrNotSettled
	}
	c.settled = nil
	c.settle = nil
	o := c.setLocked(Outcome{State: StateIdle})
	c.mu.Unlock()

	c.notify(o)
	return nil
}

// Close ends the current session: the camera is released and any in-flight validate
// is abandoned without waiting. The coordinator is Idle afterwards.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.session++
	lease := c.lease
	c.lease = nil
	cancel := c.cancel
	c.cancel = nil
	settle := c.settle
	changed := c.state != StateIdle
	o := c.setLocked(Outcome{State: StateIdle})
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if lease != nil {
		lease.Release()
	}
	if changed {
		c.notify(o)
	}
	if settle != nil {
		settle()
	}
}

func (c *Coordinator) setLocked(o Outcome) Outcome {
	c.state = o.State
	c.outcome = o
	return o
}

func (c *Coordinator) notify(o Outcome) {
	if c.cfg.OnState != nil {
		c.cfg.OnState(o)
	}
}
