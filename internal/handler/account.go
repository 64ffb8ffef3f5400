package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/dukerupert/pointqr/internal/model"
	"github.com/dukerupert/pointqr/internal/store"
)

type AccountHandler struct {
	shops        *store.ShopStore
	customers    *store.CustomerStore
	transactions *store.TransactionStore
	logger       *slog.Logger
}

func NewAccountHandler(ss *store.ShopStore, cs *store.CustomerStore, ts *store.TransactionStore, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{shops: ss, customers: cs, transactions: ts, logger: logger}
}

type shopRequest struct {
	Name  *string `json:"shop_name"`
	Email *string `json:"shop_email"`
}

type customerRequest struct {
	Name  *string `json:"customer_name"`
	Email *string `json:"customer_email"`
}

func validNameEmail(w http.ResponseWriter, name, email *string, nameField, emailField string) (string, string, bool) {
	if name == nil {
		writeError(w, http.StatusBadRequest, missingField(nameField))
		return "", "", false
	}
	if email == nil {
		writeError(w, http.StatusBadRequest, missingField(emailField))
		return "", "", false
	}
	n := strings.TrimSpace(*name)
	e := strings.ToLower(strings.TrimSpace(*email))
	if n == "" {
		writeError(w, http.StatusBadRequest, nameField+" must not be empty")
		return "", "", false
	}
	if _, err := mail.ParseAddress(e); err != nil {
		writeError(w, http.StatusBadRequest, emailField+" is not a valid email address")
		return "", "", false
	}
	return n, e, true
}

// AddShop handles POST /api/shop/add.
func (h *AccountHandler) AddShop(w http.ResponseWriter, r *http.Request) {
	var req shopRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name, email, ok := validNameEmail(w, req.Name, req.Email, "shop_name", "shop_email")
	if !ok {
		return
	}

	shop, err := h.shops.Create(name, email)
	if errors.Is(err, store.ErrEmailExists) {
		writeError(w, http.StatusConflict, "shop_email already registered")
		return
	}
	if err != nil {
		h.logger.Error("create shop", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add shop")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Shop added successfully",
		"shop_id": shop.ID,
		"data":    shop,
	})
}

// AddCustomer handles POST /api/customer/add.
func (h *AccountHandler) AddCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name, email, ok := validNameEmail(w, req.Name, req.Email, "customer_name", "customer_email")
	if !ok {
		return
	}

	customer, err := h.customers.Create(name, email)
	if errors.Is(err, store.ErrEmailExists) {
		writeError(w, http.StatusConflict, "customer_email already registered")
		return
	}
	if err != nil {
		h.logger.Error("create customer", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add customer")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Customer added successfully",
		"customer_id": customer.ID,
		"data":        customer,
	})
}

// ListShops handles GET /api/shops?email=&search=.
func (h *AccountHandler) ListShops(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	shops, err := h.shops.List(q.Get("email"), q.Get("search"))
	if err != nil {
		h.logger.Error("list shops", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list shops")
		return
	}
	if shops == nil {
		shops = []model.Shop{}
	}
	writeJSON(w, http.StatusOK, shops)
}

// ListCustomers handles GET /api/customers?email=&search=.
func (h *AccountHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	customers, err := h.customers.List(q.Get("email"), q.Get("search"))
	if err != nil {
		h.logger.Error("list customers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list customers")
		return
	}
	if customers == nil {
		customers = []model.Customer{}
	}
	writeJSON(w, http.StatusOK, customers)
}

type pointsRequest struct {
	CustomerID *int64 `json:"customer_id"`
}

// Points handles POST /api/getpoints.
func (h *AccountHandler) Points(w http.ResponseWriter, r *http.Request) {
	var req pointsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CustomerID == nil {
		writeError(w, http.StatusBadRequest, missingField("customer_id"))
		return
	}

	customer, err := h.customers.GetByID(*req.CustomerID)
	if err != nil {
		h.logger.Error("get customer points", "customer_id", *req.CustomerID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get points")
		return
	}
	if customer == nil {
		writeError(w, http.StatusNotFound, "Customer not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"customer_id": customer.ID,
		"points":      customer.Points,
	})
}

// CustomerTransactions handles GET /api/customers/{id}/transactions.
func (h *AccountHandler) CustomerTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	customer, err := h.customers.GetByID(id)
	if err != nil {
		h.logger.Error("get customer", "customer_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get customer")
		return
	}
	if customer == nil {
		writeError(w, http.StatusNotFound, "Customer not found")
		return
	}

	txns, err := h.transactions.ListByCustomer(id)
	if err != nil {
		h.logger.Error("list customer transactions", "customer_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}
