package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dukerupert/pointqr/internal/model"
	"github.com/dukerupert/pointqr/internal/render"
)

// terminalDisplay prints issued codes as terminal QR art and optionally writes a PNG.
type terminalDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	pngPath string
	cleared map[string]chan struct{}
}

func newTerminalDisplay(out io.Writer, pngPath string) *terminalDisplay {
	return &terminalDisplay{out: out, pngPath: pngPath, cleared: make(map[string]chan struct{})}
}

func (d *terminalDisplay) done(tokenID string) <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.cleared[tokenID]
	if !ok {
		ch = make(chan struct{})
		d.cleared[tokenID] = ch
	}
	return ch
}

func (d *terminalDisplay) Show(g model.PointGrant) {
	art, err := render.Terminal(g.TokenID)
	if err != nil {
		fmt.Fprintf(d.out, "cannot render code: %v\n", err)
		return
	}
	fmt.Fprint(d.out, art)
	fmt.Fprintf(d.out, "%d points for shop %d, valid until %s\n", g.Points, g.ShopID, g.ExpiresAt.Local().Format(time.TimeOnly))

	if d.pngPath == "" {
		return
	}
	png, err := render.PNG(g.TokenID, render.DefaultSize)
	if err == nil {
		err = os.WriteFile(d.pngPath, png, 0o644)
	}
	if err != nil {
		fmt.Fprintf(d.out, "cannot write %s: %v\n", d.pngPath, err)
		return
	}
	fmt.Fprintf(d.out, "code written to %s\n", d.pngPath)
}

func (d *terminalDisplay) Clear(tokenID string) {
	d.done(tokenID)

	d.mu.Lock()
	defer d.mu.Unlock()
	ch := d.cleared[tokenID]
	select {
	case <-ch:
	default:
		close(ch)
	}
}
