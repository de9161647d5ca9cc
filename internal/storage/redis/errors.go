// Package redis implements the shared key pool and order records on Redis.
package redis

import (
	"fmt"

	"github.com/shadowcc/keyshop/internal/domain"
)

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}

func joinKey(prefix string, parts ...string) string {
	key := prefix
	for _, p := range parts {
		if key == "" {
			key = p
			continue
		}
		key += ":" + p
	}
	return key
}
