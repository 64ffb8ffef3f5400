package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/pointqr/internal/model"
)

type TransactionStore struct {
	db *sql.DB
}

func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func scanTransaction(scanner interface{ Scan(...any) error }) (*model.Transaction, error) {
	var t model.Transaction
	var customerID sql.NullInt64
	var redeemedAt sql.NullTime
	var status string

	err := scanner.Scan(
		&t.ID, &t.ShopID, &customerID, &t.CodeHash, &t.Points, &status,
		&t.CreatedAt, &t.ExpiresAt, &redeemedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = model.GrantStatus(status)
	if customerID.Valid {
		t.CustomerID = &customerID.Int64
	}
	if redeemedAt.Valid {
		t.RedeemedAt = &redeemedAt.Time
	}
	return &t, nil
}

const transactionCols = `id, shop_id, customer_id, code_hash, points, status, created_at, expires_at, redeemed_at`

// Create records a pending transaction for code. The code is stored hashed; a code that was
// ever recorded before, whatever its status, is rejected with ErrCodeExists.
func (s *TransactionStore) Create(shopID int64, code string, points int, createdAt time.Time, ttl time.Duration) (*model.Transaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(`SELECT 1 FROM shops WHERE id = ?`, shopID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, ErrShopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check shop: %w", err)
	}

	createdAt = createdAt.UTC()
	result, err := tx.Exec(
		`INSERT INTO transactions (shop_id, code_hash, points, status, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`,
		shopID, HashCode(code), points, string(model.GrantPending), createdAt, createdAt.Add(ttl),
	)
	if isUniqueViolation(err) {
		return nil, ErrCodeExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := tx.QueryRow(`SELECT `+transactionCols+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("read transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}

func (s *TransactionStore) GetByCode(code string) (*model.Transaction, error) {
	row := s.db.QueryRow(`SELECT `+transactionCols+` FROM transactions WHERE code_hash = ?`, HashCode(code))
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction by code: %w", err)
	}
	return t, nil
}

// Redeem binds code to customerID and credits the transaction's points, all in one database
// transaction. Exactly one caller can win: the status update only matches a pending row.
// A pending row past its expiry is marked expired and ErrExpired is returned.
func (s *TransactionStore) Redeem(code string, customerID int64, now time.Time) (*model.Transaction, *model.Customer, error) {
	now = now.UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+transactionCols+` FROM transactions WHERE code_hash = ?`, HashCode(code))
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil, ErrTransactionAbsent
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get transaction: %w", err)
	}

	c, err := scanCustomer(tx.QueryRow(`SELECT `+customerCols+` FROM customers WHERE id = ?`, customerID))
	if err == sql.ErrNoRows {
		return nil, nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get customer: %w", err)
	}

	switch t.Status {
	case model.GrantRedeemed:
		return nil, nil, ErrAlreadyRedeemed
	case model.GrantExpired:
		return nil, nil, ErrExpired
	}

	if !now.Before(t.ExpiresAt) {
		if _, err := tx.Exec(`UPDATE transactions SET status = ? WHERE id = ? AND status = ?`,
			string(model.GrantExpired), t.ID, string(model.GrantPending)); err != nil {
			return nil, nil, fmt.Errorf("mark expired: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, nil, fmt.Errorf("commit: %w", err)
		}
		return nil, nil, ErrExpired
	}

	result, err := tx.Exec(
		`UPDATE transactions SET status = ?, customer_id = ?, redeemed_at = ? WHERE id = ? AND status = ?`,
		string(model.GrantRedeemed), customerID, now, t.ID, string(model.GrantPending),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redeem transaction: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, nil, fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return nil, nil, ErrAlreadyRedeemed
	}

	if _, err := tx.Exec(`UPDATE customers SET points = points + ? WHERE id = ?`, t.Points, customerID); err != nil {
		return nil, nil, fmt.Errorf("credit points: %w", err)
	}

	t, err = scanTransaction(tx.QueryRow(`SELECT `+transactionCols+` FROM transactions WHERE id = ?`, t.ID))
	if err != nil {
		return nil, nil, fmt.Errorf("read transaction: %w", err)
	}
	c, err = scanCustomer(tx.QueryRow(`SELECT `+customerCols+` FROM customers WHERE id = ?`, customerID))
	if err != nil {
		return nil, nil, fmt.Errorf("read customer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return t, c, nil
}

// ExpirePending marks every pending transaction whose window closed at or before now as
// expired and returns the rows it changed.
func (s *TransactionStore) ExpirePending(now time.Time) ([]model.Transaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`SELECT `+transactionCols+` FROM transactions WHERE status = ? AND expires_at <= ? ORDER BY id ASC`,
		string(model.GrantPending), now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list expiring: %w", err)
	}
	var expired []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		expired = append(expired, *t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate expiring: %w", err)
	}
	rows.Close()

	for i := range expired {
		if _, err := tx.Exec(`UPDATE transactions SET status = ? WHERE id = ?`, string(model.GrantExpired), expired[i].ID); err != nil {
			return nil, fmt.Errorf("expire transaction %d: %w", expired[i].ID, err)
		}
		expired[i].Status = model.GrantExpired
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return expired, nil
}

// ListByCustomer returns the transactions redeemed by a customer, newest first.
func (s *TransactionStore) ListByCustomer(customerID int64) ([]model.Transaction, error) {
	rows, err := s.db.Query(
		`SELECT `+transactionCols+` FROM transactions WHERE customer_id = ? ORDER BY redeemed_at DESC, id DESC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions by customer: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}
