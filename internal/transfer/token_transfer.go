package transfer

import "encoding/json"

// missingTokenMessage mirrors the client-side library's silence: a parsed
// response with no token id means the card was never tokenized.
const missingTokenMessage = "Unable to authorize card. No response from Stripe.js."

// PaymentToken is the client-side token object posted with a submission.
// The legacy nested shape {"token":{"id":...}} is normalized to the flat one.
type PaymentToken struct {
	ID    string             `json:"id"`
	Error *PaymentTokenError `json:"error,omitempty"`
}

type PaymentTokenError struct {
	Message string `json:"message"`
}

type legacyToken struct {
	Token *struct {
		ID string `json:"id"`
	} `json:"token"`
}

// ParsePaymentToken decodes the posted token JSON, flattening the legacy
// nested shape. A nil token is returned for an empty payload.
func ParsePaymentToken(raw string) (*PaymentToken, error) {
	if raw == "" {
		return nil, nil
	}

	var token PaymentToken
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, err
	}

	if token.ID == "" {
		var legacy legacyToken
		if err := json.Unmarshal([]byte(raw), &legacy); err == nil && legacy.Token != nil {
			token.ID = legacy.Token.ID
		}
	}

	return &token, nil
}

// ErrorMessage returns the reason the token cannot be charged, or "" when the
// token is usable.
func (t *PaymentToken) ErrorMessage() string {
	if t == nil {
		return missingTokenMessage
	}
	if t.Error != nil {
		return t.Error.Message
	}
	if t.ID == "" {
		return missingTokenMessage
	}
	return ""
}
