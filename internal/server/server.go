package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dukerupert/pointqr/internal/handler"
	"github.com/dukerupert/pointqr/internal/metrics"
	"github.com/dukerupert/pointqr/internal/middleware"
	"github.com/dukerupert/pointqr/internal/store"
	"github.com/dukerupert/pointqr/internal/sweep"
	ws "github.com/dukerupert/pointqr/internal/websocket"
)

// Config carries the HTTP-facing settings of the ledger service.
type Config struct {
	// RateLimit is POST requests per client IP per minute; 0 disables limiting.
	RateLimit     int
	CORSOrigins   []string
	GrantTTL      time.Duration
	SweepInterval time.Duration
}

type Server struct {
	db          *sql.DB
	cfg         Config
	hub         *ws.Hub
	metrics     *metrics.Metrics
	txH         *handler.TransactionHandler
	accountH    *handler.AccountHandler
	rateLimiter *middleware.RateLimiter
	sweeper     *sweep.Sweeper
	logger      *slog.Logger
}

// New wires stores, handlers and background helpers around db. Metrics are registered on reg.
func New(db *sql.DB, cfg Config, reg *prometheus.Registry, logger *slog.Logger) (*Server, error) {
	m, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}

	hub := ws.NewHub(logger.With("component", "websocket"))

	shopStore := store.NewShopStore(db)
	customerStore := store.NewCustomerStore(db)
	txStore := store.NewTransactionStore(db)

	return &Server{
		db:          db,
		cfg:         cfg,
		hub:         hub,
		metrics:     m,
		txH:         handler.NewTransactionHandler(txStore, hub, m, cfg.GrantTTL, logger.With("component", "transaction")),
		accountH:    handler.NewAccountHandler(shopStore, customerStore, txStore, logger.With("component", "account")),
		rateLimiter: middleware.NewRateLimiter(),
		sweeper:     sweep.New(txStore, hub, m, cfg.SweepInterval, logger),
		logger:      logger,
	}, nil
}

// Hub returns the websocket hub transaction events are broadcast on.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Sweeper returns the expiry sweeper. The caller runs it.
func (s *Server) Sweeper() *sweep.Sweeper {
	return s.sweeper
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	// Ledger API
	mux.HandleFunc("POST /api/newtransaction", s.txH.Create)
	mux.HandleFunc("POST /api/validatetransaction", s.txH.Validate)
	mux.HandleFunc("POST /api/getpoints", s.accountH.Points)

	// Accounts
	mux.HandleFunc("POST /api/shop/add", s.accountH.AddShop)
	mux.HandleFunc("POST /api/customer/add", s.accountH.AddCustomer)
	mux.HandleFunc("GET /api/shops", s.accountH.ListShops)
	mux.HandleFunc("GET /api/customers", s.accountH.ListCustomers)
	mux.HandleFunc("GET /api/customers/{id}/transactions", s.accountH.CustomerTransactions)

	// The metrics middleware sits directly on the mux so r.Pattern is set when it records.
	var h http.Handler = s.metrics.Middleware(mux)
	h = middleware.RateLimit(s.rateLimiter, s.cfg.RateLimit, time.Minute)(h)
	h = middleware.CORS(s.cfg.CORSOrigins)(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	h = middleware.RequestID(h)
	return middleware.Recover(s.logger.With("component", "http"))(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
