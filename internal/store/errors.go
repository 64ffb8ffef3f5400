package store

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrCodeExists        = errors.New("code already exists")
	ErrEmailExists       = errors.New("email already registered")
	ErrShopNotFound      = errors.New("shop not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrTransactionAbsent = errors.New("transaction not found")
	ErrExpired           = errors.New("expired")
	ErrAlreadyRedeemed   = errors.New("already redeemed")
)

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
