package models

import "time"

// Payment statuses stored on an entry.
const (
	PaymentStatusAuthorized = "Authorized"
	PaymentStatusPaid       = "Paid"
	PaymentStatusFailed     = "Failed"
	PaymentStatusRefunded   = "Refunded"
	PaymentStatusVoided     = "Voided"
	PaymentStatusActive     = "Active"
	PaymentStatusCancelled  = "Cancelled"
)

type Entry struct {
	ID            int64             `db:"id" json:"id"`
	FormID        int64             `db:"form_id" json:"form_id"`
	Currency      string            `db:"currency" json:"currency"`
	TransactionID string            `db:"transaction_id" json:"transaction_id"`
	PaymentStatus string            `db:"payment_status" json:"payment_status"`
	PaymentAmount float64           `db:"payment_amount" json:"payment_amount"`
	PaymentMethod string            `db:"payment_method" json:"payment_method"`
	Fields        map[string]string `db:"fields" json:"fields"`
	Meta          map[string]string `db:"meta" json:"meta"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// SubmissionData carries the resolved order totals for one submission.
// Monetary amounts are in the smallest currency unit.
type SubmissionData struct {
	PaymentAmount int64      `json:"payment_amount"`
	SetupFee      int64      `json:"setup_fee"`
	Trial         int64      `json:"trial"`
	LineItems     []LineItem `json:"line_items"`
}

type LineItem struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Amount   int64  `json:"amount"`
}
