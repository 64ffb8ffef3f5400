package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/pointqr/internal/config"
	"github.com/dukerupert/pointqr/internal/model"
)

func testConfig(url string) *config.Config {
	return &config.Config{LedgerURL: url, LedgerTimeout: "2s", LogLevel: "error", LogFormat: "text"}
}

func TestPointsCommand(t *testing.T) {
	var got map[string]int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/getpoints" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "customer_id": 7, "points": 120})
	}))
	defer srv.Close()

	var out bytes.Buffer
	cmd := newRootCmd(testConfig(srv.URL))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"points", "--customer", "7"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if got["customer_id"] != 7 {
		t.Errorf("request customer_id = %d, want 7", got["customer_id"])
	}
	if !strings.Contains(out.String(), "customer 7 has 120 points") {
		t.Errorf("output = %q", out.String())
	}
}

func TestIssueRequiresPoints(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(testConfig("http://127.0.0.1:1"))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"issue", "--shop", "1"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error when --points is missing")
	}
}

func TestRedeemRequiresImages(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(testConfig("http://127.0.0.1:1"))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"redeem", "--customer", "1"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without image arguments")
	}
}

func TestTerminalDisplay(t *testing.T) {
	pngPath := filepath.Join(t.TempDir(), "code.png")
	var out bytes.Buffer
	d := newTerminalDisplay(&out, pngPath)

	g := model.NewPointGrant("AbC123xyZ789", 3, 25, time.Now())
	d.Show(g)

	if !strings.Contains(out.String(), "25 points for shop 3") {
		t.Errorf("output = %q", out.String())
	}
	data, err := os.ReadFile(pngPath)
	if err != nil {
		t.Fatalf("read png: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("written file is not a PNG")
	}

	done := d.done(g.TokenID)
	d.Clear(g.TokenID)
	d.Clear(g.TokenID)
	select {
	case <-done:
	default:
		t.Error("done channel not closed after Clear")
	}
}
