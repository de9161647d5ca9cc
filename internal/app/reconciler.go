package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/shadowcc/keyshop/internal/clock"
	"github.com/shadowcc/keyshop/internal/domain"
)

// InventoryReconciler brings the shared key store in line with the key file.
//
// Reconciliation is a full reseed keyed off the file fingerprint: when the
// file changes, every product queue is cleared and refilled from the file.
// Keys claimed since the previous seed come back into the pool, because the
// file is never rewritten with claims. Operators replace the file only with a
// list of keys that are still unsold.
type InventoryReconciler struct {
	store          KeyStore
	source         KeySource
	clock          clock.Clock
	logger         *zap.Logger
	resyncInterval time.Duration

	group    singleflight.Group
	mu       sync.Mutex
	synced   bool
	syncedAt time.Time
}

type ReconcilerOption func(*InventoryReconciler)

// WithResyncInterval makes a successful sync expire after d, so a long-lived
// process notices a new key file. Zero keeps the result for the process lifetime.
func WithResyncInterval(d time.Duration) ReconcilerOption {
	return func(r *InventoryReconciler) {
		if d >= 0 {
			r.resyncInterval = d
		}
	}
}

func WithReconcilerLogger(logger *zap.Logger) ReconcilerOption {
	return func(r *InventoryReconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewInventoryReconciler(store KeyStore, source KeySource, clk clock.Clock, opts ...ReconcilerOption) *InventoryReconciler {
	r := &InventoryReconciler{
		store:  store,
		source: source,
		clock:  clk,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureSynced is safe to call on every request. Concurrent callers in one
// process share a single reconciliation, which runs detached from any one
// caller's cancellation. A caller whose context ends stops waiting and gets
// its own context error; the shared run carries on for the others.
func (r *InventoryReconciler) EnsureSynced(ctx context.Context) error {
	if r.fresh() {
		return nil
	}
	syncCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan("sync", func() (any, error) {
		if r.fresh() {
			return nil, nil
		}
		return nil, r.sync(syncCtx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh drops the cached sync state and checks the fingerprint again.
func (r *InventoryReconciler) Refresh(ctx context.Context) error {
	r.mu.Lock()
	r.synced = false
	r.mu.Unlock()
	return r.EnsureSynced(ctx)
}

func (r *InventoryReconciler) fresh() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.synced {
		return false
	}
	if r.resyncInterval == 0 {
		return true
	}
	return r.clock.Now().Sub(r.syncedAt) < r.resyncInterval
}

func (r *InventoryReconciler) markSynced() {
	r.mu.Lock()
	r.synced = true
	r.syncedAt = r.clock.Now()
	r.mu.Unlock()
}

func (r *InventoryReconciler) sync(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "inventory.reconcile")
	defer span.End()

	snap, err := r.source.Load(ctx)
	if err != nil {
		return spanError(span, fmt.Errorf("load key source: %w", err))
	}
	span.SetAttributes(attribute.String("inventory.fingerprint", snap.Fingerprint))

	stored, ok, err := r.store.Fingerprint(ctx)
	if err != nil {
		return spanError(span, fmt.Errorf("read fingerprint: %w", err))
	}
	if ok && stored == snap.Fingerprint {
		r.markSynced()
		r.logger.Debug("inventory already synced", zap.String("fingerprint", stored))
		return nil
	}

	grouped := make(map[domain.ProductID][]string, len(domain.KnownProducts))
	skipped := 0
	for _, e := range snap.Entries {
		if !e.ProductID.IsKnown() {
			skipped++
			continue
		}
		grouped[e.ProductID] = append(grouped[e.ProductID], e.Key)
	}

	// Not atomic as a whole: a crash here leaves a partial seed and the old
	// fingerprint, so the next call reseeds again.
	for _, product := range domain.KnownProducts {
		if err := r.store.ClearQueue(ctx, product); err != nil {
			return spanError(span, fmt.Errorf("clear %s: %w", product, err))
		}
	}
	for _, product := range domain.KnownProducts {
		keys := grouped[product]
		if len(keys) == 0 {
			continue
		}
		if err := r.store.PushKeys(ctx, product, keys); err != nil {
			return spanError(span, fmt.Errorf("seed %s: %w", product, err))
		}
	}
	if err := r.store.SetFingerprint(ctx, snap.Fingerprint); err != nil {
		return spanError(span, fmt.Errorf("store fingerprint: %w", err))
	}
	r.markSynced()

	fields := []zap.Field{
		zap.String("previous_fingerprint", stored),
		zap.String("fingerprint", snap.Fingerprint),
		zap.Int("keys", len(snap.Entries)-skipped),
	}
	if skipped > 0 {
		fields = append(fields, zap.Int("skipped_unknown_product", skipped))
	}
	r.logger.Warn("inventory reseeded from key source", fields...)
	return nil
}
