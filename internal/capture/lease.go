package capture

import (
	"context"
	"errors"
	"image"
	"io"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
)

const frameRetryDelay = 10 * time.Millisecond

// Lease is an acquired camera stream. Release must be called on every exit path;
// it is safe to call more than once.
type Lease struct {
	id     string
	device *Device
	stream Stream
	once   sync.Once
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func newLease(d *Device, s Stream) *Lease {
	return &Lease{
		id:     uuid.NewString(),
		device: d,
		stream: s,
		done:   make(chan struct{}),
	}
}

func (l *Lease) ID() string {
	return l.id
}

// Release stops the stream exactly once.
func (l *Lease) Release() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		err = l.stream.Stop()
		l.device.forget(l)
		l.device.logger.Debug("camera lease released", "lease", l.id)
	})
	return err
}

// Released reports whether Release has been called.
func (l *Lease) Released() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Err returns the error that ended the frame sequence, if it ended abnormally.
func (l *Lease) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Frames returns a lazy sequence of frames. It ends when ctx is done, the lease is
// released, or the stream ends. Frames that are not ready yet are skipped.
func (l *Lease) Frames(ctx context.Context) iter.Seq[image.Image] {
	return func(yield func(image.Image) bool) {
		for {
			select {
			case <-ctx.Done():
				return
			case <-l.done:
				return
			default:
			}

			frame, err := l.stream.NextFrame(ctx)
			if errors.Is(err, ErrFrameNotReady) {
				select {
				case <-ctx.Done():
					return
				case <-l.done:
					return
				case <-time.After(frameRetryDelay):
				}
				continue
			}
			if err != nil {
				if !errors.Is(err, io.EOF) && ctx.Err() == nil && !l.Released() {
					l.mu.Lock()
					l.err = err
					l.mu.Unlock()
				}
				return
			}
			if !yield(frame) {
				return
			}
		}
	}
}
