package domain

// ConfirmationRequest is the customer-facing "please confirm your order" message.
type ConfirmationRequest struct {
	Order      Order
	ConfirmURL string
}
