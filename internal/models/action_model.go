package models

// Action types produced by the webhook processor. Applying the same action to
// the same entry twice must be a no-op at the repository layer.
const (
	ActionRefundPayment           = "refund_payment"
	ActionVoidAuthorization       = "void_authorization"
	ActionCancelSubscription      = "cancel_subscription"
	ActionAddSubscriptionPayment  = "add_subscription_payment"
	ActionFailSubscriptionPayment = "fail_subscription_payment"
)

// EntryAction is the normalized outcome of one webhook event, applied to a
// persisted entry. EventID is the id of the Stripe event that produced it.
type EntryAction struct {
	EventID        string  `json:"event_id"`
	Type           string  `json:"type"`
	EntryID        int64   `json:"entry_id"`
	TransactionID  string  `json:"transaction_id,omitempty"`
	SubscriptionID string  `json:"subscription_id,omitempty"`
	Amount         float64 `json:"amount,omitempty"`
	Note           string  `json:"note,omitempty"`
}

// Authorization is the result of processing a submission against Stripe.
// Exactly one of TransactionID (single payments) or Subscription is set when
// IsAuthorized is true.
type Authorization struct {
	IsAuthorized  bool                       `json:"is_authorized"`
	TransactionID string                     `json:"transaction_id,omitempty"`
	Subscription  *SubscriptionAuthorization `json:"subscription,omitempty"`
	ErrorMessage  string                     `json:"error_message,omitempty"`
}

type SubscriptionAuthorization struct {
	SubscriptionID string `json:"subscription_id"`
	CustomerID     string `json:"customer_id"`
	Amount         int64  `json:"amount"`
}

// Payment is the result of capturing a previously authorized charge. Amount is
// in major currency units, converted back from the smallest unit.
type Payment struct {
	IsSuccess     bool    `json:"is_success"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
	PaymentMethod string  `json:"payment_method,omitempty"`
	ErrorMessage  string  `json:"error_message,omitempty"`
}
