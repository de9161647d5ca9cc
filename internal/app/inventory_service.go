package app

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/shadowcc/keyshop/internal/domain"
)

// Syncer makes sure the key store reflects the key file before it is read.
type Syncer interface {
	EnsureSynced(ctx context.Context) error
}

type InventoryService struct {
	store  KeyStore
	syncer Syncer
	logger *zap.Logger
}

func NewInventoryService(store KeyStore, syncer Syncer, logger *zap.Logger) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{
		store:  store,
		syncer: syncer,
		logger: logger,
	}
}

// GetStock returns the number of unclaimed keys; unknown products have none.
func (s *InventoryService) GetStock(ctx context.Context, product domain.ProductID) (int, error) {
	if !product.IsKnown() {
		return 0, nil
	}
	if err := s.syncer.EnsureSynced(ctx); err != nil {
		return 0, err
	}
	return s.store.QueueLen(ctx, product)
}

func (s *InventoryService) GetAllStock(ctx context.Context) (map[domain.ProductID]int, error) {
	if err := s.syncer.EnsureSynced(ctx); err != nil {
		return nil, err
	}
	stock := make(map[domain.ProductID]int, len(domain.KnownProducts))
	for _, product := range domain.KnownProducts {
		n, err := s.store.QueueLen(ctx, product)
		if err != nil {
			return nil, err
		}
		stock[product] = n
	}
	return stock, nil
}

// ClaimKey hands out the oldest unclaimed key for product. ok is false when
// the product is sold out or unknown.
func (s *InventoryService) ClaimKey(ctx context.Context, product domain.ProductID) (string, bool, error) {
	ctx, span := tracer.Start(ctx, "inventory.claim_key")
	defer span.End()
	span.SetAttributes(attribute.String("inventory.product_id", string(product)))

	if !product.IsKnown() {
		span.SetAttributes(attribute.Bool("inventory.claimed", false))
		return "", false, nil
	}
	if err := s.syncer.EnsureSynced(ctx); err != nil {
		return "", false, spanError(span, err)
	}
	key, ok, err := s.store.PopKey(ctx, product)
	if err != nil {
		return "", false, spanError(span, fmt.Errorf("claim %s: %w", product, err))
	}
	span.SetAttributes(attribute.Bool("inventory.claimed", ok))
	if !ok {
		s.logger.Debug("no stock to claim", zap.String("product_id", string(product)))
		return "", false, nil
	}
	s.logger.Info("key claimed", zap.String("product_id", string(product)))
	return key, true, nil
}

// AddKeys appends keys to the tail of their product queues. It leaves the
// fingerprint alone, so a later change to the key file reseeds over them.
func (s *InventoryService) AddKeys(ctx context.Context, entries []domain.KeyEntry) error {
	if len(entries) == 0 {
		return nil
	}
	var order []domain.ProductID
	grouped := make(map[domain.ProductID][]string)
	for _, e := range entries {
		key := strings.TrimSpace(e.Key)
		if key == "" || strings.ContainsAny(key, "|\r\n") {
			return domain.ErrInvalidKeyEntry
		}
		if !e.ProductID.IsKnown() {
			return domain.ErrUnknownProduct
		}
		if _, seen := grouped[e.ProductID]; !seen {
			order = append(order, e.ProductID)
		}
		grouped[e.ProductID] = append(grouped[e.ProductID], key)
	}

	if err := s.syncer.EnsureSynced(ctx); err != nil {
		return err
	}
	for _, product := range order {
		if err := s.store.PushKeys(ctx, product, grouped[product]); err != nil {
			return fmt.Errorf("add keys to %s: %w", product, err)
		}
		s.logger.Info("keys added", zap.String("product_id", string(product)), zap.Int("count", len(grouped[product])))
	}
	return nil
}
