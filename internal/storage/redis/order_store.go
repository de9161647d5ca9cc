package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/shadowcc/keyshop/internal/domain"
)

const maxConfirmAttempts = 3

// OrderStore keeps each order as a JSON string under order:{id} with a TTL.
type OrderStore struct {
	client goredis.UniversalClient
	prefix string
}

func NewOrderStore(client goredis.UniversalClient, prefix string) *OrderStore {
	return &OrderStore{client: client, prefix: prefix}
}

func (s *OrderStore) orderKey(id string) string {
	return joinKey(s.prefix, "order", id)
}

func (s *OrderStore) CreateOrder(ctx context.Context, order domain.Order, ttl time.Duration) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	created, err := s.client.SetNX(ctx, s.orderKey(order.ID), payload, ttl).Result()
	if err != nil {
		return storeErr("set order", err)
	}
	if !created {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	return nil
}

func (s *OrderStore) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	raw, err := s.client.Get(ctx, s.orderKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, storeErr("get order", err)
	}
	return decodeOrder(id, raw)
}

// ConfirmOrder runs the pending->confirmed transition as an optimistic
// transaction: the record is WATCHed, so a concurrent writer makes EXEC fail
// and the next attempt sees the confirmed record.
func (s *OrderStore) ConfirmOrder(ctx context.Context, id string, confirmedAt time.Time, ttl time.Duration) (domain.Order, error) {
	key := s.orderKey(id)
	var result domain.Order

	txf := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return domain.ErrOrderNotFound
		}
		if err != nil {
			return storeErr("get order", err)
		}
		order, err := decodeOrder(id, raw)
		if err != nil {
			return err
		}
		if order.Status == domain.OrderStatusConfirmed {
			result = order
			return domain.ErrOrderAlreadyConfirmed
		}

		at := confirmedAt.UTC()
		order.Status = domain.OrderStatusConfirmed
		order.ConfirmedAt = &at
		payload, err := json.Marshal(order)
		if err != nil {
			return fmt.Errorf("encode order: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = order
		return nil
	}

	for attempt := 0; attempt < maxConfirmAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return result, nil
		case errors.Is(err, goredis.TxFailedErr):
			continue
		case errors.Is(err, domain.ErrOrderNotFound),
			errors.Is(err, domain.ErrOrderAlreadyConfirmed),
			errors.Is(err, domain.ErrStoreUnavailable):
			return result, err
		default:
			return domain.Order{}, storeErr("confirm order", err)
		}
	}
	return domain.Order{}, storeErr("confirm order", errors.New("write conflict persisted"))
}

func decodeOrder(id string, raw []byte) (domain.Order, error) {
	var order domain.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return domain.Order{}, fmt.Errorf("decode order %s: %w", id, err)
	}
	order.ID = id
	return order, nil
}
