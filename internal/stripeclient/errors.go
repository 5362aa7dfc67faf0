package stripeclient

import (
	"errors"
	"net/http"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

type ErrorKind string

const (
	KindAuthentication ErrorKind = "authentication"
	KindInvalidRequest ErrorKind = "invalid_request"
	KindNotFound       ErrorKind = "not_found"
	KindCard           ErrorKind = "card"
	KindSignature      ErrorKind = "signature_verification"
	KindTransient      ErrorKind = "transient"
)

// RemoteError normalizes every Stripe failure into a structured kind so
// callers never branch on message text.
type RemoteError struct {
	Kind    ErrorKind
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// IsNotFound reports whether err is a remote not-found. Used by the
// subscription engine to treat a missing plan as "create it" instead of a
// failure.
func IsNotFound(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr) && remoteErr.Kind == KindNotFound
}

// IsSignature reports whether err is a webhook signature or payload
// verification failure.
func IsSignature(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr) && remoteErr.Kind == KindSignature
}

// wrapError classifies a stripe-go error by its structured type, code and
// status. resource_missing is the most specific not-found signal the API
// offers; a bare invalid_request without it stays an invalid-request error.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return &RemoteError{Kind: KindTransient, Message: err.Error()}
	}

	kind := KindTransient
	switch {
	case stripeErr.HTTPStatusCode == http.StatusUnauthorized:
		kind = KindAuthentication
	case stripeErr.Type == stripe.ErrorTypeCard:
		kind = KindCard
	case stripeErr.Type == stripe.ErrorTypeInvalidRequest && stripeErr.Code == stripe.ErrorCodeResourceMissing:
		kind = KindNotFound
	case stripeErr.Type == stripe.ErrorTypeInvalidRequest:
		kind = KindInvalidRequest
	}

	return &RemoteError{Kind: kind, Message: stripeErr.Msg}
}

// wrapWebhookError classifies event construction failures: a bad signature
// header is a signature error, anything else is a malformed payload.
func wrapWebhookError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrTooOld) {
		return &RemoteError{Kind: KindSignature, Message: err.Error()}
	}
	return &RemoteError{Kind: KindInvalidRequest, Message: err.Error()}
}
