package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/pointqr/internal/model"
)

type CustomerStore struct {
	db *sql.DB
}

func NewCustomerStore(db *sql.DB) *CustomerStore {
	return &CustomerStore{db: db}
}

func scanCustomer(scanner interface{ Scan(...any) error }) (*model.Customer, error) {
	var c model.Customer
	if err := scanner.Scan(&c.ID, &c.Name, &c.Email, &c.Points, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

const customerCols = `id, customer_name, customer_email, points, created_at`

func (s *CustomerStore) Create(name, email string) (*model.Customer, error) {
	result, err := s.db.Exec(`INSERT INTO customers (customer_name, customer_email) VALUES (?, ?)`, name, email)
	if isUniqueViolation(err) {
		return nil, ErrEmailExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *CustomerStore) GetByID(id int64) (*model.Customer, error) {
	row := s.db.QueryRow(`SELECT `+customerCols+` FROM customers WHERE id = ?`, id)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

// List returns customers ordered by name, filtered the same way as ShopStore.List.
func (s *CustomerStore) List(email, search string) ([]model.Customer, error) {
	q := `SELECT ` + customerCols + ` FROM customers WHERE 1 = 1`
	var args []any
	if email != "" {
		q += ` AND customer_email = ?`
		args = append(args, email)
	}
	if search != "" {
		q += ` AND customer_name LIKE ?`
		args = append(args, "%"+search+"%")
	}
	q += ` ORDER BY customer_name ASC, id ASC`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}
