package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const DefaultTimeout = 10 * time.Second

// Config holds ledger client configuration.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type IssueRequest struct {
	ShopID int64  `json:"shop_id"`
	Points int    `json:"points"`
	CodeID string `json:"code_id"`
}

type ValidateRequest struct {
	CustomerID int64  `json:"customer_id"`
	CodeID     string `json:"code_id"`
}

type pointsRequest struct {
	CustomerID int64 `json:"customer_id"`
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type pointsResponse struct {
	envelope
	CustomerID int64 `json:"customer_id"`
	Points     int   `json:"points"`
}

// Client speaks the ledger's JSON-over-HTTP contract. Calls are never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:5001"
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: hc,
		timeout:    cfg.Timeout,
		logger:     logger.With("component", "ledger"),
	}
}

// Timeout returns the per-call deadline applied to every request.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Issue registers a new pending transaction. It returns nil only on success=true.
func (c *Client) Issue(ctx context.Context, req IssueRequest) error {
	var resp envelope
	if err := c.post(ctx, "/api/newtransaction", req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &RejectedError{Message: resp.Error}
	}
	c.logger.Debug("transaction issued", "shop_id", req.ShopID, "points", req.Points)
	return nil
}

// Validate redeems a code for a customer. It returns nil only on success=true.
func (c *Client) Validate(ctx context.Context, req ValidateRequest) error {
	var resp envelope
	if err := c.post(ctx, "/api/validatetransaction", req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &RejectedError{Message: resp.Error}
	}
	c.logger.Debug("transaction validated", "customer_id", req.CustomerID)
	return nil
}

// Points returns a customer's current balance.
func (c *Client) Points(ctx context.Context, customerID int64) (int, error) {
	var resp pointsResponse
	if err := c.post(ctx, "/api/getpoints", pointsRequest{CustomerID: customerID}, &resp); err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, &RejectedError{Message: resp.Error}
	}
	return resp.Points, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "post " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &TransportError{Op: "read " + path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelope
		_ = json.Unmarshal(data, &env)
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		c.logger.Warn("ledger returned error status", "path", path, "status", resp.StatusCode, "error", msg)
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: "decode " + path, Err: err}
	}
	return nil
}
