package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shadowcc/keyshop/internal/clock"
	"github.com/shadowcc/keyshop/internal/domain"
	"github.com/shadowcc/keyshop/internal/testutil"
)

func TestOrderStore(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)

	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	newOrder := func(id string) domain.Order {
		return domain.Order{
			ID:          id,
			Name:        "Jamie",
			Email:       "jamie@example.com",
			Details:     "details",
			ServiceName: "Config Setup",
			TierName:    "Basic",
			TierPrice:   "$15",
			Status:      domain.OrderStatusPending,
			CreatedAt:   now,
		}
	}

	t.Run("create get confirm", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		clk := clock.NewManual(now)
		store := NewOrderStore(pool, clk)
		id := strings.Repeat("d", 32)

		if err := store.CreateOrder(ctx, newOrder(id), domain.PendingOrderTTL); err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := store.GetOrder(ctx, id)
		if err != nil || got.Status != domain.OrderStatusPending || got.Email != "jamie@example.com" {
			t.Fatalf("unexpected get: %+v (%v)", got, err)
		}

		clk.Advance(time.Hour)
		confirmed, err := store.ConfirmOrder(ctx, id, clk.Now(), domain.ConfirmedOrderTTL)
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if confirmed.Status != domain.OrderStatusConfirmed || confirmed.ConfirmedAt == nil {
			t.Fatalf("unexpected confirmed order %+v", confirmed)
		}

		if _, err := store.ConfirmOrder(ctx, id, clk.Now(), domain.ConfirmedOrderTTL); !errors.Is(err, domain.ErrOrderAlreadyConfirmed) {
			t.Fatalf("expected ErrOrderAlreadyConfirmed, got %v", err)
		}

		// Confirmation extended the lifetime beyond the pending window.
		clk.Advance(domain.PendingOrderTTL)
		if _, err := store.GetOrder(ctx, id); err != nil {
			t.Fatalf("expected confirmed order to outlive pending ttl, got %v", err)
		}
	})

	t.Run("expired pending order cannot be confirmed", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		clk := clock.NewManual(now)
		store := NewOrderStore(pool, clk)
		id := strings.Repeat("e", 32)

		if err := store.CreateOrder(ctx, newOrder(id), domain.PendingOrderTTL); err != nil {
			t.Fatalf("create: %v", err)
		}
		clk.Advance(domain.PendingOrderTTL + time.Second)
		if _, err := store.ConfirmOrder(ctx, id, clk.Now(), domain.ConfirmedOrderTTL); !errors.Is(err, domain.ErrOrderNotFound) {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}

		purged, err := store.PurgeExpired(ctx)
		if err != nil || purged != 1 {
			t.Fatalf("expected 1 purged row, got %d (%v)", purged, err)
		}
	})
}
