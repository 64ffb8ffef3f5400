package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"sync"
)

// Stills is a Platform backed by image files, one frame per file. Permission is always
// granted. It stands in for a camera in the CLI and in tests.
type Stills struct {
	paths []string
}

func NewStills(paths ...string) *Stills {
	return &Stills{paths: paths}
}

func (s *Stills) CaptureSupported() bool { return true }

func (s *Stills) QueryPermission(ctx context.Context) (Permission, error) {
	return PermissionGranted, nil
}

func (s *Stills) Open(ctx context.Context) (Stream, error) {
	if len(s.paths) == 0 {
		return nil, ErrNoDevice
	}
	return &stillStream{paths: s.paths}, nil
}

type stillStream struct {
	mu      sync.Mutex
	paths   []string
	next    int
	stopped bool
}

func (s *stillStream) NextFrame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.next >= len(s.paths) {
		return nil, io.EOF
	}
	path := s.paths[s.next]
	s.next++

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrFrameNotReady, path, err)
	}
	return img, nil
}

func (s *stillStream) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return nil
}
