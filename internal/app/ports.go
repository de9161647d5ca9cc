package app

import (
	"context"
	"time"

	"github.com/shadowcc/keyshop/internal/domain"
	"github.com/shadowcc/keyshop/internal/keysource"
)

// KeyStore is the durable, shared key pool: one FIFO queue per product plus
// the fingerprint of the last synced key file. Every method is a single
// atomic operation against the backing store.
type KeyStore interface {
	QueueLen(ctx context.Context, product domain.ProductID) (int, error)
	// PopKey removes and returns the head of the queue; ok is false when empty.
	PopKey(ctx context.Context, product domain.ProductID) (key string, ok bool, err error)
	PushKeys(ctx context.Context, product domain.ProductID, keys []string) error
	ClearQueue(ctx context.Context, product domain.ProductID) error
	Fingerprint(ctx context.Context) (fp string, ok bool, err error)
	SetFingerprint(ctx context.Context, fp string) error
}

// KeySource provides the authoritative key list.
type KeySource interface {
	Load(ctx context.Context) (keysource.Snapshot, error)
}

// OrderStore persists order records with expiry.
type OrderStore interface {
	CreateOrder(ctx context.Context, order domain.Order, ttl time.Duration) error
	// GetOrder returns domain.ErrOrderNotFound for absent or expired orders.
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	// ConfirmOrder moves a pending order to confirmed in one conditional write
	// and refreshes its expiry. It returns domain.ErrOrderNotFound or
	// domain.ErrOrderAlreadyConfirmed when the transition does not apply.
	ConfirmOrder(ctx context.Context, id string, confirmedAt time.Time, ttl time.Duration) (domain.Order, error)
}

// Notifier delivers customer and operator messages. Delivery is best effort;
// callers only see whether the send was accepted.
type Notifier interface {
	SendConfirmationRequest(ctx context.Context, req domain.ConfirmationRequest) error
	SendNewOrderAlert(ctx context.Context, order domain.Order) error
}
