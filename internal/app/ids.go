package app

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

const orderIDLen = 32

// newOrderID returns 128 random bits as lowercase hex.
func newOrderID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate order id: %w", err)
	}
	return hex.EncodeToString(id[:]), nil
}

// ValidOrderID reports whether id has the shape of an id issued by newOrderID.
func ValidOrderID(id string) bool {
	if len(id) != orderIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
