package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shadowcc/keyshop/internal/domain"
)

const fingerprintName = "seed_hash"

// KeyStore keeps unclaimed keys as rows ordered by insertion id.
type KeyStore struct {
	querier
}

func NewKeyStore(pool *pgxpool.Pool) *KeyStore {
	return &KeyStore{querier{pool: pool}}
}

func (s *KeyStore) QueueLen(ctx context.Context, product domain.ProductID) (int, error) {
	const query = `SELECT COUNT(*) FROM inventory_keys WHERE product_id = $1`

	var n int
	if err := s.queryRow(ctx, query, string(product)).Scan(&n); err != nil {
		return 0, storeErr("count keys", err)
	}
	return n, nil
}

// PopKey deletes the oldest row for product. Rows locked by a concurrent
// claim are skipped, so two callers never receive the same key.
func (s *KeyStore) PopKey(ctx context.Context, product domain.ProductID) (string, bool, error) {
	const stmt = `
DELETE FROM inventory_keys
WHERE id = (
	SELECT id FROM inventory_keys
	WHERE product_id = $1
	ORDER BY id
	FOR UPDATE SKIP LOCKED
	LIMIT 1
)
RETURNING key`

	var key string
	err := s.queryRow(ctx, stmt, string(product)).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeErr("claim key", err)
	}
	return key, true, nil
}

func (s *KeyStore) PushKeys(ctx context.Context, product domain.ProductID, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	rows := make([][]any, len(keys))
	for i, k := range keys {
		rows[i] = []any{string(product), k}
	}
	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"inventory_keys"},
		[]string{"product_id", "key"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return storeErr("insert keys", err)
	}
	return nil
}

func (s *KeyStore) ClearQueue(ctx context.Context, product domain.ProductID) error {
	const stmt = `DELETE FROM inventory_keys WHERE product_id = $1`

	if _, err := s.exec(ctx, stmt, string(product)); err != nil {
		return storeErr("clear keys", err)
	}
	return nil
}

func (s *KeyStore) Fingerprint(ctx context.Context) (string, bool, error) {
	const query = `SELECT value FROM inventory_meta WHERE name = $1`

	var fp string
	err := s.queryRow(ctx, query, fingerprintName).Scan(&fp)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeErr("get fingerprint", err)
	}
	return fp, true, nil
}

func (s *KeyStore) SetFingerprint(ctx context.Context, fp string) error {
	const stmt = `
INSERT INTO inventory_meta (name, value)
VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`

	if _, err := s.exec(ctx, stmt, fingerprintName, fp); err != nil {
		return storeErr("set fingerprint", err)
	}
	return nil
}

func (s *KeyStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}
