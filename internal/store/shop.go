package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/pointqr/internal/model"
)

type ShopStore struct {
	db *sql.DB
}

func NewShopStore(db *sql.DB) *ShopStore {
	return &ShopStore{db: db}
}

func scanShop(scanner interface{ Scan(...any) error }) (*model.Shop, error) {
	var s model.Shop
	if err := scanner.Scan(&s.ID, &s.Name, &s.Email, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

const shopCols = `id, shop_name, shop_email, created_at`

func (s *ShopStore) Create(name, email string) (*model.Shop, error) {
	result, err := s.db.Exec(`INSERT INTO shops (shop_name, shop_email) VALUES (?, ?)`, name, email)
	if isUniqueViolation(err) {
		return nil, ErrEmailExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert shop: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ShopStore) GetByID(id int64) (*model.Shop, error) {
	row := s.db.QueryRow(`SELECT `+shopCols+` FROM shops WHERE id = ?`, id)
	shop, err := scanShop(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}
	return shop, nil
}

// List returns shops ordered by name. A non-empty email matches exactly; search matches
// the name case-insensitively.
func (s *ShopStore) List(email, search string) ([]model.Shop, error) {
	q := `SELECT ` + shopCols + ` FROM shops WHERE 1 = 1`
	var args []any
	if email != "" {
		q += ` AND shop_email = ?`
		args = append(args, email)
	}
	if search != "" {
		q += ` AND shop_name LIKE ?`
		args = append(args, "%"+search+"%")
	}
	q += ` ORDER BY shop_name ASC, id ASC`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	defer rows.Close()

	var shops []model.Shop
	for rows.Next() {
		shop, err := scanShop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		shops = append(shops, *shop)
	}
	return shops, rows.Err()
}
