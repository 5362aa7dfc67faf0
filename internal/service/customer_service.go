package service

import (
	"context"
	"log/slog"

	stripe "github.com/stripe/stripe-go/v74"

	"github.com/maheshrc27/formpay/internal/hooks"
	"github.com/maheshrc27/formpay/internal/models"
	"github.com/maheshrc27/formpay/internal/stripeclient"
)

// CustomerIDArgs is the context handed to the customer id extension point,
// which lets another system supply an existing customer for reuse.
type CustomerIDArgs struct {
	CustomerID string
	Feed       *models.Feed
	Entry      *models.Entry
}

// CustomerAfterCreateArgs is handed to side-effect callbacks fired between
// customer creation and subscription attachment.
type CustomerAfterCreateArgs struct {
	Customer *stripe.Customer
	Feed     *models.Feed
	Entry    *models.Entry
}

// CustomerResolver finds an existing remote customer for a submission.
type CustomerResolver struct {
	sc    stripeclient.Client
	hooks *hooks.Registry
}

func NewCustomerResolver(sc stripeclient.Client, registry *hooks.Registry) *CustomerResolver {
	return &CustomerResolver{sc: sc, hooks: registry}
}

// GetCustomer retrieves the customer by id, consulting the customer id
// extension point when none was supplied. found=false with a nil error means
// the caller should create a new customer. Remote errors propagate
// unmodified; the caller decides recoverability.
func (r *CustomerResolver) GetCustomer(ctx context.Context, customerID string, feed *models.Feed, entry *models.Entry) (*stripe.Customer, bool, error) {
	if customerID == "" {
		args := hooks.Apply(r.hooks, hooks.CustomerID, &CustomerIDArgs{Feed: feed, Entry: entry})
		customerID = args.CustomerID
	}

	if customerID == "" {
		return nil, false, nil
	}

	slog.Info("retrieving customer", "customer_id", customerID)
	customer, err := r.sc.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, false, err
	}
	return customer, true, nil
}
