package capture

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
)

// Platform is the camera backend a Device drives.
type Platform interface {
	// CaptureSupported reports whether video capture exists at all.
	CaptureSupported() bool
	// QueryPermission probes the permission without prompting. Platforms that cannot
	// introspect return ErrNoIntrospection.
	QueryPermission(ctx context.Context) (Permission, error)
	// Open prompts for consent if needed and starts a stream.
	Open(ctx context.Context) (Stream, error)
}

// Stream yields frames from an open camera.
type Stream interface {
	// NextFrame blocks for the next frame. ErrFrameNotReady is skipped by callers;
	// io.EOF ends the stream.
	NextFrame(ctx context.Context) (image.Image, error)
	Stop() error
}

// StateCallback is invoked after every permission change.
type StateCallback func(Permission)

// Device owns the permission state machine for one camera and hands out at most one
// live Lease at a time.
type Device struct {
	mu       sync.Mutex
	acquire  sync.Mutex
	platform Platform
	logger   *slog.Logger
	onState  StateCallback
	state    Permission
	checked  bool
	lease    *Lease
	// blind is set when the platform cannot report its permission. Until access is
	// decided the device then reports Unsupported, without making it absorbing.
	blind bool
}

func NewDevice(p Platform, logger *slog.Logger, onState StateCallback) *Device {
	return &Device{
		platform: p,
		logger:   logger.With("component", "capture"),
		onState:  onState,
		state:    PermissionPrompt,
	}
}

// State returns the current permission as reported to callers.
func (d *Device) State() Permission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reportedLocked()
}

// Introspectable reports whether the last permission query could read the platform's
// permission. When false, RequestAccess is still allowed.
func (d *Device) Introspectable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.blind
}

func (d *Device) reportedLocked() Permission {
	if d.blind && d.state == PermissionPrompt {
		return PermissionUnsupported
	}
	return d.state
}

// CheckSupport probes the platform once and moves to Unsupported if capture is impossible.
func (d *Device) CheckSupport() bool {
	d.mu.Lock()
	if d.checked {
		ok := d.state != PermissionUnsupported
		d.mu.Unlock()
		return ok
	}
	d.checked = true
	d.mu.Unlock()

	if d.platform.CaptureSupported() {
		return true
	}
	d.logger.Warn("camera capture unsupported")
	d.apply(EventUnsupported)
	return false
}

// QueryPermission refreshes the permission from the platform without prompting. When the
// platform cannot report it, or the query fails, the device reports Unsupported until a
// later query succeeds or access is granted or denied. RequestAccess stays available.
func (d *Device) QueryPermission(ctx context.Context) Permission {
	if !d.CheckSupport() {
		return PermissionUnsupported
	}
	p, err := d.platform.QueryPermission(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoIntrospection) {
			d.logger.Warn("permission query failed", "error", err)
		}
		return d.update(func() { d.blind = true }, "no_introspection")
	}
	ev := eventFor(p)
	return d.update(func() {
		d.blind = false
		d.state = Transition(d.state, ev)
	}, ev)
}

// RequestAccess opens the camera, blocking on the consent prompt. Any lease still held
// from an earlier call is released first. Failures are returned as *AccessError, except
// ErrUnsupported and context cancellation.
func (d *Device) RequestAccess(ctx context.Context) (*Lease, error) {
	if !d.CheckSupport() {
		return nil, ErrUnsupported
	}

	d.acquire.Lock()
	defer d.acquire.Unlock()

	d.mu.Lock()
	prev := d.lease
	d.mu.Unlock()
	if prev != nil {
		prev.Release()
	}

	stream, err := d.platform.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		reason := classify(err)
		if reason == ReasonPermissionDenied {
			d.apply(EventDenied)
		} else {
			d.apply(EventDeviceError)
		}
		d.logger.Warn("camera access failed", "reason", reason, "error", err)
		return nil, &AccessError{Reason: reason, Err: err}
	}

	d.apply(EventGranted)
	l := newLease(d, stream)

	d.mu.Lock()
	d.lease = l
	d.mu.Unlock()

	d.logger.Debug("camera lease acquired", "lease", l.ID())
	return l, nil
}

func (d *Device) apply(ev Event) Permission {
	return d.update(func() { d.state = Transition(d.state, ev) }, ev)
}

// update runs fn under the lock and notifies onState when the reported permission changed.
func (d *Device) update(fn func(), cause any) Permission {
	d.mu.Lock()
	from := d.reportedLocked()
	fn()
	to := d.reportedLocked()
	d.mu.Unlock()

	if to != from {
		d.logger.Debug("permission changed", "from", from, "to", to, "cause", cause)
		if d.onState != nil {
			d.onState(to)
		}
	}
	return to
}

func (d *Device) forget(l *Lease) {
	d.mu.Lock()
	if d.lease == l {
		d.lease = nil
	}
	d.mu.Unlock()
}
