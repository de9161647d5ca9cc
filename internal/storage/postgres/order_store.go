package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shadowcc/keyshop/internal/clock"
	"github.com/shadowcc/keyshop/internal/domain"
)

const orderColumns = `id, name, email, discord, details, service_name, tier_name, tier_price, status, created_at, confirmed_at`

// OrderStore keeps orders as rows with an expires_at column. Rows past their
// expiry are invisible and removed by PurgeExpired.
type OrderStore struct {
	querier
	clock clock.Clock
}

func NewOrderStore(pool *pgxpool.Pool, clk clock.Clock) *OrderStore {
	return &OrderStore{querier: querier{pool: pool}, clock: clk}
}

func (s *OrderStore) CreateOrder(ctx context.Context, o domain.Order, ttl time.Duration) error {
	const stmt = `
INSERT INTO orders (id, name, email, discord, details, service_name, tier_name, tier_price, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.exec(ctx, stmt,
		o.ID, o.Name, o.Email, o.Discord, o.Details, o.ServiceName, o.TierName, o.TierPrice,
		string(o.Status), o.CreatedAt, s.clock.Now().Add(ttl),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("order %s already exists", o.ID)
		}
		return storeErr("create order", err)
	}
	return nil
}

func (s *OrderStore) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND expires_at > $2`

	o, err := scanOrder(s.queryRow(ctx, query, id, s.clock.Now()))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, storeErr("get order", err)
	}
	return o, nil
}

// ConfirmOrder applies the transition with a conditional UPDATE, so only one
// caller can move a given order out of pending.
func (s *OrderStore) ConfirmOrder(ctx context.Context, id string, confirmedAt time.Time, ttl time.Duration) (domain.Order, error) {
	stmt := `
UPDATE orders
SET status = $2, confirmed_at = $3, expires_at = $4
WHERE id = $1 AND status = $5 AND expires_at > $6
RETURNING ` + orderColumns

	now := s.clock.Now()
	var result domain.Order
	err := withTx(ctx, s.pool, func(txCtx context.Context) error {
		o, err := scanOrder(s.queryRow(txCtx, stmt,
			id, string(domain.OrderStatusConfirmed), confirmedAt.UTC(), now.Add(ttl),
			string(domain.OrderStatusPending), now,
		))
		if err == nil {
			result = o
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return storeErr("confirm order", err)
		}

		existing, err := s.GetOrder(txCtx, id)
		if err != nil {
			return err
		}
		if existing.Status == domain.OrderStatusConfirmed {
			result = existing
			return domain.ErrOrderAlreadyConfirmed
		}
		return domain.ErrOrderNotFound
	})
	if errors.Is(err, domain.ErrOrderAlreadyConfirmed) {
		return result, err
	}
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

// PurgeExpired deletes rows whose expiry has passed.
func (s *OrderStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.exec(ctx, `DELETE FROM orders WHERE expires_at <= $1`, s.clock.Now())
	if err != nil {
		return 0, storeErr("purge orders", err)
	}
	return tag.RowsAffected(), nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o           domain.Order
		status      string
		confirmedAt *time.Time
	)
	err := row.Scan(&o.ID, &o.Name, &o.Email, &o.Discord, &o.Details, &o.ServiceName, &o.TierName, &o.TierPrice,
		&status, &o.CreatedAt, &confirmedAt)
	if err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	o.CreatedAt = o.CreatedAt.UTC()
	if confirmedAt != nil {
		t := confirmedAt.UTC()
		o.ConfirmedAt = &t
	}
	return o, nil
}
