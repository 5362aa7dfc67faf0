package stripeclient

import (
	"context"
	"net/http"
	"time"

	stripe "github.com/stripe/stripe-go/v74"
	sc "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// requestTimeout bounds every remote call to a synchronous web request
// budget. Webhook deliveries and submissions both block on these calls.
const requestTimeout = 30 * time.Second

// Client is the facade over the payment processor. Every operation returns a
// *RemoteError on failure so callers can branch on the structured kind.
type Client interface {
	CreateCharge(ctx context.Context, params *stripe.ChargeParams) (*stripe.Charge, error)
	GetCharge(ctx context.Context, id string) (*stripe.Charge, error)
	UpdateCharge(ctx context.Context, id string, params *stripe.ChargeParams) (*stripe.Charge, error)
	CaptureCharge(ctx context.Context, id string) (*stripe.Charge, error)

	CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error)
	GetCustomer(ctx context.Context, id string) (*stripe.Customer, error)
	UpdateCustomer(ctx context.Context, id string, params *stripe.CustomerParams) (*stripe.Customer, error)
	AddInvoiceItem(ctx context.Context, params *stripe.InvoiceItemParams) (*stripe.InvoiceItem, error)

	GetPlan(ctx context.Context, id string) (*stripe.Plan, error)
	CreatePlan(ctx context.Context, params *stripe.PlanParams) (*stripe.Plan, error)

	CreateSubscription(ctx context.Context, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	UpdateSubscription(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	CancelSubscription(ctx context.Context, id string) (*stripe.Subscription, error)

	GetEvent(ctx context.Context, id string) (*stripe.Event, error)
	ConstructEvent(payload []byte, sigHeader, secret string) (stripe.Event, error)

	ValidateKey(ctx context.Context) error
}

type client struct {
	api *sc.API
}

// New builds a Client bound to one secret key. App identification is advisory
// telemetry, not required for correctness.
func New(secretKey string, appInfo *stripe.AppInfo) Client {
	if appInfo != nil {
		stripe.SetAppInfo(appInfo)
	}

	backends := stripe.NewBackends(&http.Client{Timeout: requestTimeout})
	api := &sc.API{}
	api.Init(secretKey, backends)

	return &client{api: api}
}

// ModeSet holds one client per API mode.
type ModeSet struct {
	Live Client
	Test Client
}

func (m ModeSet) ForMode(mode string) Client {
	if mode == "test" {
		return m.Test
	}
	return m.Live
}

func (c *client) CreateCharge(ctx context.Context, params *stripe.ChargeParams) (*stripe.Charge, error) {
	params.Context = ctx
	charge, err := c.api.Charges.New(params)
	if err != nil {
		return nil, wrapError(err)
	}
	return charge, nil
}

func (c *client) GetCharge(ctx context.Context, id string) (*stripe.Charge, error) {
	charge, err := c.api.Charges.Get(id, &stripe.ChargeParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, wrapError(err)
	}
	return charge, nil
}

func (c *client) UpdateCharge(ctx context.Context, id string, params *stripe.ChargeParams) (*stripe.Charge, error) {
	params.Context = ctx
	charge, err := c.api.Charges.Update(id, params)
	if err != nil {
		return nil, wrapError(err)
	}
	return charge, nil
}

func (c *client) CaptureCharge(ctx context.Context, id string) (*stripe.Charge, error) {
	charge, err := c.api.Charges.Capture(id, &stripe.ChargeCaptureParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, wrapError(err)
	}
	return charge, nil
}

func (c *client) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	params.Context = ctx
	customer, err := c.api.Customers.New(params)
	if err != nil {
		return nil, wrapError(err)
	}
	return customer, nil
}

func (c *client) GetCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	customer, err := c.api.Customers.Get(id, &stripe.CustomerParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, wrapError(err)
	}
	return customer, nil
}

func (c *client) UpdateCustomer(ctx context.Context, id string, params *stripe.CustomerParams) (*stripe.Customer, error) {
	params.Context = ctx
	customer, err := c.api.Customers.Update(id, params)
	if err != nil {
		return nil, wrapError(err)
	}
	return customer, nil
}

func (c *client) AddInvoiceItem(ctx context.Context, params *stripe.InvoiceItemParams) (*stripe.InvoiceItem, error) {
	params.Context = ctx
	item, err := c.api.InvoiceItems.New(params)
	if err != nil {
		return nil, wrapError(err)
	}
	return item, nil
}

func (c *client) GetPlan(ctx context.Context, id string) (*stripe.Plan, error) {
	plan, err := c.api.Plans.Get(id, &stripe.PlanParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, wrapError(err)
	}
	return plan, nil
}

func (c *client) CreatePlan(ctx context.Context, params *stripe.PlanParams) (*stripe.Plan, error) {
	params.Context = ctx
	plan, err := c.api.Plans.New(params)
	if err != nil {
		return nil, wrapError(err)
	}
	return plan, nil
}

func (c *client) CreateSubscription(ctx context.Context, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	params.Context = ctx
	subscription, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, wrapError(err)
	}
	return subscription, nil
}

func (c *client) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	subscription, err := c.api.Subscriptions.Get(id, &stripe.SubscriptionParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, wrapError(err)
	}
	return subscription, nil
}

func (c *client) UpdateSubscription(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	params.Context = ctx
	subscription, err := c.api.Subscriptions.Update(id, params)
	if err != nil {
		return nil, wrapError(err)
	}
	return subscription, nil
}

func (c *client) CancelSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	subscription, err := c.api.Subscriptions.Cancel(id, &stripe.SubscriptionCancelParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, wrapError(err)
	}
	return subscription, nil
}

func (c *client) GetEvent(ctx context.Context, id string) (*stripe.Event, error) {
	event, err := c.api.Events.Get(id, &stripe.EventParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, wrapError(err)
	}
	return event, nil
}

func (c *client) ConstructEvent(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, secret)
	if err != nil {
		return stripe.Event{}, wrapWebhookError(err)
	}
	return event, nil
}

// ValidateKey makes the cheapest authenticated call to prove the configured
// secret key works.
func (c *client) ValidateKey(ctx context.Context) error {
	_, err := c.api.Balance.Get(&stripe.BalanceParams{Params: stripe.Params{Context: ctx}})
	return wrapError(err)
}
