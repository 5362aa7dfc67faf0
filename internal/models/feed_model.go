package models

import "time"

// Transaction types a feed can be configured for.
const (
	TransactionTypeSingle       = "single"
	TransactionTypeSubscription = "subscription"
)

type Feed struct {
	ID        int64     `db:"id" json:"id"`
	FormID    int64     `db:"form_id" json:"form_id"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	Meta      FeedMeta  `db:"meta" json:"meta"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FeedMeta is the feed configuration stored as JSONB. Field mappings hold the
// id of the form field whose submitted value should be sent to Stripe.
type FeedMeta struct {
	FeedName            string       `json:"feed_name"`
	TransactionType     string       `json:"transaction_type"`
	BillingCycleUnit    string       `json:"billing_cycle_unit"`
	BillingCycleLength  int64        `json:"billing_cycle_length"`
	TrialEnabled        bool         `json:"trial_enabled"`
	SetupFeeEnabled     bool         `json:"setup_fee_enabled"`
	CustomerEmail       string       `json:"customer_email_field"`
	CustomerDescription string       `json:"customer_description_field"`
	CustomerCoupon      string       `json:"customer_coupon_field"`
	ReceiptField        string       `json:"receipt_field"`
	CustomMeta          []CustomMeta `json:"custom_meta"`
}

type CustomMeta struct {
	CustomKey string `json:"custom_key"`
	Value     string `json:"value"`
}
