package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/shadowcc/keyshop/internal/clock"
	"github.com/shadowcc/keyshop/internal/domain"
)

// ConfirmStatus is the user-visible outcome of a confirmation attempt.
type ConfirmStatus string

const (
	ConfirmStatusConfirmed ConfirmStatus = "confirmed"
	ConfirmStatusAlready   ConfirmStatus = "already"
	ConfirmStatusExpired   ConfirmStatus = "expired"
	ConfirmStatusInvalid   ConfirmStatus = "invalid"
	ConfirmStatusError     ConfirmStatus = "error"
)

type OrderService struct {
	repo         OrderStore
	notifier     Notifier
	clock        clock.Clock
	logger       *zap.Logger
	confirmURL   string
	pendingTTL   time.Duration
	confirmedTTL time.Duration
}

type OrderServiceOption func(*OrderService)

// WithConfirmURL sets the link customers follow to confirm; the order id is
// appended as the "id" query parameter.
func WithConfirmURL(u string) OrderServiceOption {
	return func(s *OrderService) {
		s.confirmURL = u
	}
}

func WithOrderLogger(logger *zap.Logger) OrderServiceOption {
	return func(s *OrderService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOrderTTLs overrides the pending and confirmed record lifetimes.
func WithOrderTTLs(pending, confirmed time.Duration) OrderServiceOption {
	return func(s *OrderService) {
		if pending > 0 {
			s.pendingTTL = pending
		}
		if confirmed > 0 {
			s.confirmedTTL = confirmed
		}
	}
}

func NewOrderService(repo OrderStore, notifier Notifier, clk clock.Clock, opts ...OrderServiceOption) *OrderService {
	svc := &OrderService{
		repo:         repo,
		notifier:     notifier,
		clock:        clk,
		logger:       zap.NewNop(),
		confirmURL:   "http://localhost:8080/confirm-order",
		pendingTTL:   domain.PendingOrderTTL,
		confirmedTTL: domain.ConfirmedOrderTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type SubmitOrderInput struct {
	Name        string
	Email       string
	Discord     string
	Details     string
	ServiceName string
	TierName    string
	TierPrice   string
}

func (in SubmitOrderInput) validate() error {
	required := []string{in.Name, in.Email, in.Details, in.ServiceName, in.TierName, in.TierPrice}
	for _, v := range required {
		if strings.TrimSpace(v) == "" {
			return domain.ErrMissingRequiredField
		}
	}
	return nil
}

// SubmitOrder stores a pending order and asks the customer to confirm it.
// The operator is not told about the order until it is confirmed.
func (s *OrderService) SubmitOrder(ctx context.Context, in SubmitOrderInput) (domain.Order, error) {
	if err := in.validate(); err != nil {
		return domain.Order{}, err
	}

	ctx, span := tracer.Start(ctx, "orders.submit")
	defer span.End()

	id, err := newOrderID()
	if err != nil {
		return domain.Order{}, spanError(span, err)
	}
	span.SetAttributes(attribute.String("order.id", id))

	order := domain.Order{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.TrimSpace(in.Email),
		Discord:     strings.TrimSpace(in.Discord),
		Details:     strings.TrimSpace(in.Details),
		ServiceName: strings.TrimSpace(in.ServiceName),
		TierName:    strings.TrimSpace(in.TierName),
		TierPrice:   strings.TrimSpace(in.TierPrice),
		Status:      domain.OrderStatusPending,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.CreateOrder(ctx, order, s.pendingTTL); err != nil {
		return domain.Order{}, spanError(span, fmt.Errorf("create order: %w", err))
	}

	req := domain.ConfirmationRequest{Order: order, ConfirmURL: s.confirmLink(id)}
	if err := s.notifier.SendConfirmationRequest(ctx, req); err != nil {
		s.logger.Error("confirmation request not sent", zap.String("order_id", id), zap.Error(err))
		return domain.Order{}, spanError(span, fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err))
	}

	s.logger.Info("order submitted", zap.String("order_id", id), zap.String("service", order.ServiceName))
	return order, nil
}

type ConfirmResult struct {
	Status ConfirmStatus
	Order  domain.Order
}

// ConfirmOrder moves a pending order to confirmed and alerts the operator.
// The alert is sent once, by the call that performed the transition, and
// only after the transition is stored. A failed alert is logged for manual
// follow-up; it is never retried here.
//
// A non-nil error is returned only with ConfirmStatusError.
func (s *OrderService) ConfirmOrder(ctx context.Context, id string) (ConfirmResult, error) {
	if !ValidOrderID(id) {
		return ConfirmResult{Status: ConfirmStatusInvalid}, nil
	}

	ctx, span := tracer.Start(ctx, "orders.confirm")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id))

	order, err := s.repo.ConfirmOrder(ctx, id, s.clock.Now(), s.confirmedTTL)
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		s.logger.Debug("confirm on missing order", zap.String("order_id", id))
		span.SetAttributes(attribute.String("order.confirm_status", string(ConfirmStatusExpired)))
		return ConfirmResult{Status: ConfirmStatusExpired}, nil
	case errors.Is(err, domain.ErrOrderAlreadyConfirmed):
		s.logger.Debug("order already confirmed", zap.String("order_id", id))
		span.SetAttributes(attribute.String("order.confirm_status", string(ConfirmStatusAlready)))
		return ConfirmResult{Status: ConfirmStatusAlready, Order: order}, nil
	case err != nil:
		s.logger.Error("confirm order failed", zap.String("order_id", id), zap.Error(err))
		return ConfirmResult{Status: ConfirmStatusError}, spanError(span, fmt.Errorf("confirm order: %w", err))
	}

	span.SetAttributes(attribute.String("order.confirm_status", string(ConfirmStatusConfirmed)))
	// The transition is already stored; the alert must not die with the request.
	if err := s.notifier.SendNewOrderAlert(context.WithoutCancel(ctx), order); err != nil {
		s.logger.Error("operator alert not sent; order is confirmed and needs manual follow-up",
			zap.String("order_id", id),
			zap.Error(err),
		)
	} else {
		s.logger.Info("order confirmed", zap.String("order_id", id), zap.String("service", order.ServiceName))
	}
	return ConfirmResult{Status: ConfirmStatusConfirmed, Order: order}, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	if !ValidOrderID(id) {
		return domain.Order{}, domain.ErrInvalidOrderID
	}
	return s.repo.GetOrder(ctx, id)
}

func (s *OrderService) confirmLink(id string) string {
	u, err := url.Parse(s.confirmURL)
	if err != nil {
		return s.confirmURL + "?id=" + url.QueryEscape(id)
	}
	q := u.Query()
	q.Set("id", id)
	u.RawQuery = q.Encode()
	return u.String()
}
