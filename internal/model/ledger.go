package model

import "time"

type Shop struct {
	ID        int64     `json:"id"`
	Name      string    `json:"shop_name"`
	Email     string    `json:"shop_email"`
	CreatedAt time.Time `json:"created_at"`
}

type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"customer_name"`
	Email     string    `json:"customer_email"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// Transaction is the ledger's record of one issued grant. The code id itself is never stored.
type Transaction struct {
	ID         int64       `json:"id"`
	ShopID     int64       `json:"shop_id"`
	CustomerID *int64      `json:"customer_id"`
	CodeHash   string      `json:"-"`
	Points     int         `json:"points_earned"`
	Status     GrantStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
	RedeemedAt *time.Time  `json:"redeemed_at"`
}
