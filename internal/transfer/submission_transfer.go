package transfer

// SubmissionRequest is the payload posted when a form submission with a
// payment feed is processed. Amounts are in the smallest currency unit.
type SubmissionRequest struct {
	FormID         int64             `json:"form_id"`
	Currency       string            `json:"currency"`
	Fields         map[string]string `json:"fields"`
	PaymentAmount  int64             `json:"payment_amount"`
	SetupFee       int64             `json:"setup_fee"`
	Trial          int64             `json:"trial"`
	LineItems      []LineItemRequest `json:"line_items"`
	StripeResponse string            `json:"stripe_response"`
	CardType       string            `json:"stripe_credit_card_type"`
}

type LineItemRequest struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Amount   int64  `json:"amount"`
}

// SubmissionResponse reports the outcome of processing a submission.
type SubmissionResponse struct {
	EntryID        int64   `json:"entry_id"`
	IsAuthorized   bool    `json:"is_authorized"`
	TransactionID  string  `json:"transaction_id,omitempty"`
	SubscriptionID string  `json:"subscription_id,omitempty"`
	CustomerID     string  `json:"customer_id,omitempty"`
	Amount         float64 `json:"amount,omitempty"`
	PaymentStatus  string  `json:"payment_status"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}
