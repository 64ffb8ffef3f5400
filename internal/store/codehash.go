package store

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// HashCode returns the hex BLAKE2b-256 digest under which a code id is stored.
func HashCode(code string) string {
	sum := blake2b.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
