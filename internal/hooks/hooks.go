package hooks

import (
	"fmt"
	"sync"
)

// Extension point names resolved at call sites.
const (
	APIMode                       = "api_mode"
	ChargePreCreate               = "charge_pre_create"
	ChargeAuthorizationOnly       = "charge_authorization_only"
	ChargeDescription             = "charge_description"
	CustomerID                    = "customer_id"
	CustomerAfterCreate           = "customer_after_create"
	SubscriptionParams            = "subscription_params"
	SubscriptionCancelAtPeriodEnd = "subscription_cancel_at_period_end"
	Webhook                       = "webhook"
	WebhookSigningSecret          = "webhook_signing_secret"
	EntryNotFoundStatusCode       = "entry_not_found_status_code"
	FieldValue                    = "field_value"
)

// FormFieldValue returns the per-form field value extension point name.
func FormFieldValue(formID int64) string {
	return fmt.Sprintf("%s_%d", FieldValue, formID)
}

// FormFieldValueForField returns the per-form per-field extension point name.
func FormFieldValueForField(formID int64, fieldID string) string {
	return fmt.Sprintf("%s_%d_%s", FieldValue, formID, fieldID)
}

// Registry maps extension point names to ordered callback lists. Filters are
// invoked in registration order, each free to transform the value passed to
// the next. Actions are fire-and-forget side effects.
type Registry struct {
	mu      sync.RWMutex
	filters map[string][]func(any) any
	actions map[string][]func(any)
}

func NewRegistry() *Registry {
	return &Registry{
		filters: make(map[string][]func(any) any),
		actions: make(map[string][]func(any)),
	}
}

// RegisterFilter appends fn to the filter list for name. The value type must
// match the type the call site applies; mismatched callbacks are skipped.
func RegisterFilter[T any](r *Registry, name string, fn func(T) T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[name] = append(r.filters[name], func(v any) any {
		tv, ok := v.(T)
		if !ok {
			return v
		}
		return fn(tv)
	})
}

// Apply runs the ordered filter list for name against v.
func Apply[T any](r *Registry, name string, v T) T {
	r.mu.RLock()
	fns := r.filters[name]
	r.mu.RUnlock()

	out := any(v)
	for _, fn := range fns {
		out = fn(out)
	}
	tv, ok := out.(T)
	if !ok {
		return v
	}
	return tv
}

// RegisterAction appends fn to the action list for name.
func RegisterAction[T any](r *Registry, name string, fn func(T)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = append(r.actions[name], func(v any) {
		if tv, ok := v.(T); ok {
			fn(tv)
		}
	})
}

// Run fires the ordered action list for name.
func Run[T any](r *Registry, name string, v T) {
	r.mu.RLock()
	fns := r.actions[name]
	r.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

// HasFilter reports whether any filter is registered for name.
func (r *Registry) HasFilter(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.filters[name]) > 0
}
