package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/pointqr/internal/metrics"
	"github.com/dukerupert/pointqr/internal/model"
	"github.com/dukerupert/pointqr/internal/store"
	"github.com/dukerupert/pointqr/internal/websocket"
)

const maxCodeLength = 128

type TransactionHandler struct {
	transactions *store.TransactionStore
	hub          *websocket.Hub
	metrics      *metrics.Metrics
	logger       *slog.Logger
	ttl          time.Duration
	now          func() time.Time
}

func NewTransactionHandler(ts *store.TransactionStore, hub *websocket.Hub, m *metrics.Metrics, ttl time.Duration, logger *slog.Logger) *TransactionHandler {
	if ttl <= 0 {
		ttl = model.GrantTTL
	}
	return &TransactionHandler{
		transactions: ts,
		hub:          hub,
		metrics:      m,
		logger:       logger,
		ttl:          ttl,
		now:          time.Now,
	}
}

func (h *TransactionHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type newTransactionRequest struct {
	ShopID *int64  `json:"shop_id"`
	Points *int    `json:"points"`
	CodeID *string `json:"code_id"`
}

// Create handles POST /api/newtransaction.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req newTransactionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch {
	case req.ShopID == nil:
		writeError(w, http.StatusBadRequest, missingField("shop_id"))
		return
	case req.Points == nil:
		writeError(w, http.StatusBadRequest, missingField("points"))
		return
	case req.CodeID == nil:
		writeError(w, http.StatusBadRequest, missingField("code_id"))
		return
	}

	code := strings.TrimSpace(*req.CodeID)
	if code == "" || len(code) > maxCodeLength {
		writeError(w, http.StatusBadRequest, "code_id must be 1-128 characters")
		return
	}
	if *req.ShopID <= 0 {
		writeError(w, http.StatusBadRequest, "shop_id must be positive")
		return
	}
	if *req.Points <= 0 {
		writeError(w, http.StatusBadRequest, "points must be positive")
		return
	}

	txn, err := h.transactions.Create(*req.ShopID, code, *req.Points, h.now(), h.ttl)
	switch {
	case errors.Is(err, store.ErrShopNotFound):
		writeError(w, http.StatusNotFound, "Shop not found")
		return
	case errors.Is(err, store.ErrCodeExists):
		writeError(w, http.StatusConflict, "code id already exists")
		return
	case err != nil:
		h.logger.Error("create transaction", "shop_id", *req.ShopID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create transaction")
		return
	}

	h.metrics.TransactionsIssued.Inc()
	h.broadcast(websocket.NewTransactionMessage(websocket.ActionCreated, txn.ID, txn.ShopID, txn.Points, ""))
	h.logger.Info("transaction created", "id", txn.ID, "shop_id", txn.ShopID, "points", txn.Points)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Transaction added successfully",
		"data":    txn,
	})
}

type validateRequest struct {
	CustomerID *int64  `json:"customer_id"`
	CodeID     *string `json:"code_id"`
}

// Validate handles POST /api/validatetransaction. Business rejections (expired, already
// redeemed) are 200 with success=false; unknown codes and customers are 404.
func (h *TransactionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CustomerID == nil {
		writeError(w, http.StatusBadRequest, missingField("customer_id"))
		return
	}
	if req.CodeID == nil {
		writeError(w, http.StatusBadRequest, missingField("code_id"))
		return
	}
	code := strings.TrimSpace(*req.CodeID)
	if code == "" {
		writeError(w, http.StatusBadRequest, "code_id must not be empty")
		return
	}

	txn, customer, err := h.transactions.Redeem(code, *req.CustomerID, h.now())
	switch {
	case errors.Is(err, store.ErrTransactionAbsent):
		h.metrics.Rejected("not_found")
		writeError(w, http.StatusNotFound, "Invalid QR code or transaction not found")
		return
	case errors.Is(err, store.ErrCustomerNotFound):
		h.metrics.Rejected("unknown_customer")
		writeError(w, http.StatusNotFound, "Customer not found")
		return
	case errors.Is(err, store.ErrExpired):
		h.metrics.Rejected("expired")
		writeError(w, http.StatusOK, store.ErrExpired.Error())
		return
	case errors.Is(err, store.ErrAlreadyRedeemed):
		h.metrics.Rejected("already_redeemed")
		writeError(w, http.StatusOK, store.ErrAlreadyRedeemed.Error())
		return
	case err != nil:
		h.logger.Error("redeem transaction", "customer_id", *req.CustomerID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to validate transaction")
		return
	}

	h.metrics.TransactionsRedeemed.Inc()
	h.broadcast(websocket.NewTransactionMessage(websocket.ActionRedeemed, txn.ID, txn.ShopID, txn.Points, code))
	h.logger.Info("transaction redeemed", "id", txn.ID, "customer_id", customer.ID, "points", txn.Points)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Transaction validated successfully",
		"data": map[string]any{
			"transaction": txn,
			"customer":    customer,
		},
	})
}
