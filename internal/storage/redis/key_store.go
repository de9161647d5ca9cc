package redis

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"github.com/shadowcc/keyshop/internal/domain"
)

// KeyStore keeps one Redis list per product. Keys are appended with RPUSH and
// claimed with LPOP, so claim order is file order and every pop is atomic.
type KeyStore struct {
	client goredis.UniversalClient
	prefix string
}

func NewKeyStore(client goredis.UniversalClient, prefix string) *KeyStore {
	return &KeyStore{client: client, prefix: prefix}
}

func (s *KeyStore) queueKey(product domain.ProductID) string {
	return joinKey(s.prefix, "keys", string(product))
}

func (s *KeyStore) fingerprintKey() string {
	return joinKey(s.prefix, "keys", "seed_hash")
}

func (s *KeyStore) QueueLen(ctx context.Context, product domain.ProductID) (int, error) {
	n, err := s.client.LLen(ctx, s.queueKey(product)).Result()
	if err != nil {
		return 0, storeErr("llen", err)
	}
	return int(n), nil
}

func (s *KeyStore) PopKey(ctx context.Context, product domain.ProductID) (string, bool, error) {
	key, err := s.client.LPop(ctx, s.queueKey(product)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeErr("lpop", err)
	}
	return key, true, nil
}

func (s *KeyStore) PushKeys(ctx context.Context, product domain.ProductID, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	values := make([]interface{}, len(keys))
	for i, k := range keys {
		values[i] = k
	}
	if err := s.client.RPush(ctx, s.queueKey(product), values...).Err(); err != nil {
		return storeErr("rpush", err)
	}
	return nil
}

func (s *KeyStore) ClearQueue(ctx context.Context, product domain.ProductID) error {
	if err := s.client.Del(ctx, s.queueKey(product)).Err(); err != nil {
		return storeErr("del", err)
	}
	return nil
}

func (s *KeyStore) Fingerprint(ctx context.Context) (string, bool, error) {
	fp, err := s.client.Get(ctx, s.fingerprintKey()).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeErr("get fingerprint", err)
	}
	return fp, true, nil
}

func (s *KeyStore) SetFingerprint(ctx context.Context, fp string) error {
	if err := s.client.Set(ctx, s.fingerprintKey(), fp, 0).Err(); err != nil {
		return storeErr("set fingerprint", err)
	}
	return nil
}

func (s *KeyStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return storeErr("ping", err)
	}
	return nil
}
