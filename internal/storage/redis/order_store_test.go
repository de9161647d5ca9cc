package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shadowcc/keyshop/internal/domain"
	"github.com/shadowcc/keyshop/internal/testutil"
)

func pendingOrder(id string) domain.Order {
	return domain.Order{
		ID:          id,
		Name:        "Jamie",
		Email:       "jamie@example.com",
		Details:     "details",
		ServiceName: "Config Setup",
		TierName:    "Basic",
		TierPrice:   "$15",
		Status:      domain.OrderStatusPending,
		CreatedAt:   time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestOrderStore_CreateAndGet(t *testing.T) {
	m, client := testutil.NewRedis(t)
	store := NewOrderStore(client, "")
	ctx := context.Background()
	id := strings.Repeat("a", 32)

	if err := store.CreateOrder(ctx, pendingOrder(id), domain.PendingOrderTTL); err != nil {
		t.Fatalf("create: %v", err)
	}
	if ttl := m.TTL("order:" + id); ttl != domain.PendingOrderTTL {
		t.Fatalf("expected 7 day ttl, got %v", ttl)
	}

	raw, err := m.Get("order:" + id)
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	var stored map[string]any
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("stored record is not json: %v", err)
	}
	if stored["status"] != "pending" || stored["serviceName"] != "Config Setup" {
		t.Fatalf("unexpected stored record %v", stored)
	}

	got, err := store.GetOrder(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != id || got.Email != "jamie@example.com" || got.Status != domain.OrderStatusPending {
		t.Fatalf("unexpected order %+v", got)
	}

	if err := store.CreateOrder(ctx, pendingOrder(id), time.Hour); err == nil {
		t.Fatalf("expected duplicate id to be rejected")
	}

	m.FastForward(domain.PendingOrderTTL)
	if _, err := store.GetOrder(ctx, id); err != domain.ErrOrderNotFound {
		t.Fatalf("expected ErrOrderNotFound after expiry, got %v", err)
	}
}

func TestOrderStore_ConfirmOrder(t *testing.T) {
	m, client := testutil.NewRedis(t)
	store := NewOrderStore(client, "")
	ctx := context.Background()
	id := strings.Repeat("b", 32)
	confirmedAt := time.Date(2025, 1, 3, 9, 30, 0, 0, time.UTC)

	if _, err := store.ConfirmOrder(ctx, id, confirmedAt, domain.ConfirmedOrderTTL); err != domain.ErrOrderNotFound {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	if err := store.CreateOrder(ctx, pendingOrder(id), domain.PendingOrderTTL); err != nil {
		t.Fatalf("create: %v", err)
	}
	order, err := store.ConfirmOrder(ctx, id, confirmedAt, domain.ConfirmedOrderTTL)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if order.Status != domain.OrderStatusConfirmed || order.ConfirmedAt == nil || !order.ConfirmedAt.Equal(confirmedAt) {
		t.Fatalf("unexpected confirmed order %+v", order)
	}
	if ttl := m.TTL("order:" + id); ttl != domain.ConfirmedOrderTTL {
		t.Fatalf("expected 30 day ttl, got %v", ttl)
	}

	again, err := store.ConfirmOrder(ctx, id, confirmedAt.Add(time.Hour), domain.ConfirmedOrderTTL)
	if err != domain.ErrOrderAlreadyConfirmed {
		t.Fatalf("expected ErrOrderAlreadyConfirmed, got %v", err)
	}
	if again.ConfirmedAt == nil || !again.ConfirmedAt.Equal(confirmedAt) {
		t.Fatalf("expected first confirmed_at kept, got %v", again.ConfirmedAt)
	}
}

func TestOrderStore_ConcurrentConfirmSingleWinner(t *testing.T) {
	_, client := testutil.NewRedis(t)
	store := NewOrderStore(client, "")
	ctx := context.Background()
	id := strings.Repeat("c", 32)

	if err := store.CreateOrder(ctx, pendingOrder(id), domain.PendingOrderTTL); err != nil {
		t.Fatalf("create: %v", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		already int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ConfirmOrder(ctx, id, time.Now().UTC(), domain.ConfirmedOrderTTL)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrOrderAlreadyConfirmed):
				already++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d (already=%d)", wins, already)
	}
}
