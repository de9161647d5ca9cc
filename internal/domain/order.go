package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
)

const (
	PendingOrderTTL   = 7 * 24 * time.Hour
	ConfirmedOrderTTL = 30 * 24 * time.Hour
)

// Order is a customer request awaiting (or past) e-mail confirmation.
// The JSON layout is the stored record format shared with the storefront.
type Order struct {
	ID          string      `json:"-"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Discord     string      `json:"discord"`
	Details     string      `json:"details"`
	ServiceName string      `json:"serviceName"`
	TierName    string      `json:"tierName"`
	TierPrice   string      `json:"tierPrice"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	ConfirmedAt *time.Time  `json:"confirmedAt,omitempty"`
}
