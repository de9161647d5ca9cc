// Package notify delivers order e-mails on behalf of the order service.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/shadowcc/keyshop/internal/domain"
)

// LogNotifier writes notifications to the log instead of sending them.
// Used for local development.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendConfirmationRequest(ctx context.Context, req domain.ConfirmationRequest) error {
	n.logger.Info("order confirmation requested",
		zap.String("order_id", req.Order.ID),
		zap.String("email", req.Order.Email),
		zap.String("service", req.Order.ServiceName),
		zap.String("tier", req.Order.TierName),
		zap.String("confirm_url", req.ConfirmURL),
	)
	return nil
}

func (n *LogNotifier) SendNewOrderAlert(ctx context.Context, order domain.Order) error {
	fields := []zap.Field{
		zap.String("order_id", order.ID),
		zap.String("name", order.Name),
		zap.String("email", order.Email),
		zap.String("service", order.ServiceName),
		zap.String("tier", order.TierName),
		zap.String("price", order.TierPrice),
	}
	if order.Discord != "" {
		fields = append(fields, zap.String("discord", order.Discord))
	}
	n.logger.Info("new confirmed order", fields...)
	return nil
}
