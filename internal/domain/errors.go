package domain

import "errors"

var (
	ErrSourceUnavailable     = errors.New("key source unavailable")
	ErrStoreUnavailable      = errors.New("store unavailable")
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderAlreadyConfirmed = errors.New("order already confirmed")
	ErrInvalidOrderID        = errors.New("invalid order id")
	ErrMissingRequiredField  = errors.New("missing required field")
	ErrUnknownProduct        = errors.New("unknown product")
	ErrInvalidKeyEntry       = errors.New("invalid key entry")
	ErrNotificationFailed    = errors.New("notification failed")
)
