// Package stripebilling implements billing.Client on Stripe subscriptions.
package stripebilling

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/price"
	"github.com/stripe/stripe-go/v79/subscription"
	"golang.org/x/time/rate"

	"github.com/julianstephens/dytgt/internal/billing"
	"github.com/julianstephens/dytgt/internal/constants"
	"github.com/julianstephens/dytgt/internal/logger"
	"github.com/julianstephens/dytgt/internal/metrics"
)

const (
	metaEntitlement = "entitlement"
	metaAppUserID   = "app_user_id"

	defaultOffering = "default"
)

// Store persists the Stripe customer id
type Store interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
}

type Options struct {
	// APIURL overrides the Stripe API base URL
	APIURL     string
	HTTPClient *http.Client
	// MaxNetworkRetries is passed to the Stripe backend; 0 disables retries
	MaxNetworkRetries int64
	// RateLimit caps API calls per second
	RateLimit float64

	EntitlementID string
	// ProductIDs are the price lookup keys on offer
	ProductIDs []string
	// ProductEntitlements maps a lookup key to the entitlement it grants;
	// unmapped products grant EntitlementID
	ProductEntitlements map[string]string
	TrialDays           int

	Confirm   billing.Confirmer
	AppUserID func(ctx context.Context) (string, error)
}

type Client struct {
	store   Store
	opts    Options
	limiter *rate.Limiter

	mu            sync.Mutex
	customers     *customer.Client
	prices        *price.Client
	subscriptions *subscription.Client
}

func New(store Store, opts Options) *Client {
	if opts.RateLimit <= 0 {
		opts.RateLimit = constants.DefaultBillingRateLimit
	}
	if opts.EntitlementID == "" {
		opts.EntitlementID = constants.DefaultEntitlementID
	}
	return &Client{
		store:   store,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
	}
}

// Configure binds the Stripe API clients to apiKey. No request is made.
func (c *Client) Configure(ctx context.Context, apiKey string) error {
	if billing.IsPlaceholderKey(apiKey) {
		return errors.New("stripe API key is not set")
	}

	cfg := &stripe.BackendConfig{
		HTTPClient:        c.opts.HTTPClient,
		MaxNetworkRetries: stripe.Int64(c.opts.MaxNetworkRetries),
		LeveledLogger:     logger.With("component", "stripe"),
	}
	if c.opts.APIURL != "" {
		cfg.URL = stripe.String(strings.TrimRight(c.opts.APIURL, "/"))
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)

	c.mu.Lock()
	c.customers = &customer.Client{B: backend, Key: apiKey}
	c.prices = &price.Client{B: backend, Key: apiKey}
	c.subscriptions = &subscription.Client{B: backend, Key: apiKey}
	c.mu.Unlock()

	logger.Debug("Stripe client configured", "component", "stripe", "url", c.opts.APIURL)
	return nil
}

// GetOfferings lists active recurring prices for the configured lookup keys
// as a single default offering.
func (c *Client) GetOfferings(ctx context.Context) (*billing.Offerings, error) {
	_, prices, _, err := c.clients()
	if err != nil {
		return nil, err
	}

	params := &stripe.PriceListParams{
		Active:     stripe.Bool(true),
		Type:       stripe.String(string(stripe.PriceTypeRecurring)),
		LookupKeys: stripe.StringSlice(c.opts.ProductIDs),
	}
	params.Context = ctx

	var pkgs []billing.Package
	err = c.call(ctx, "get_offerings", func() error {
		it := prices.List(params)
		for it.Next() {
			pkgs = append(pkgs, packageFor(it.Price()))
		}
		return it.Err()
	})
	if err != nil {
		return nil, err
	}

	offering := billing.Offering{Identifier: defaultOffering, Packages: pkgs}
	return &billing.Offerings{
		Current: &offering,
		All:     map[string]billing.Offering{defaultOffering: offering},
	}, nil
}

// GetCustomerInfo derives entitlements from the stored customer's active
// and trialing subscriptions. Without a stored customer it is empty.
func (c *Client) GetCustomerInfo(ctx context.Context) (*billing.CustomerInfo, error) {
	if _, _, _, err := c.clients(); err != nil {
		return nil, err
	}

	appUserID, err := c.appUserID(ctx)
	if err != nil {
		return nil, err
	}
	info := &billing.CustomerInfo{AppUserID: appUserID, Entitlements: map[string]billing.EntitlementInfo{}}

	customerID, err := c.storedCustomerID(ctx)
	if err != nil {
		return nil, err
	}
	if customerID == "" {
		return info, nil
	}

	subs, err := c.listSubscriptions(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for _, sub := range subs {
		e, ok := c.entitlementFor(sub)
		if !ok {
			continue
		}
		// An active entitlement wins over a later inactive one
		if existing, seen := info.Entitlements[e.Identifier]; seen && existing.Active {
			continue
		}
		info.Entitlements[e.Identifier] = e
	}
	return info, nil
}

// PurchasePackage confirms with the user, then subscribes the customer to
// the package's price.
func (c *Client) PurchasePackage(ctx context.Context, pkg billing.Package) (billing.PurchaseOutcome, error) {
	_, _, subs, err := c.clients()
	if err != nil {
		return billing.PurchaseOutcome{}, err
	}
	if pkg.PriceID == "" {
		return billing.PurchaseOutcome{}, fmt.Errorf("package %s has no price", pkg.Identifier)
	}

	ok, err := billing.Confirm(ctx, c.opts.Confirm, pkg)
	if err != nil {
		return billing.PurchaseOutcome{}, fmt.Errorf("purchase confirmation failed: %w", err)
	}
	if !ok {
		return billing.Cancelled(), nil
	}

	appUserID, err := c.appUserID(ctx)
	if err != nil {
		return billing.PurchaseOutcome{}, err
	}
	customerID, err := c.ensureCustomer(ctx, appUserID)
	if err != nil {
		return billing.PurchaseOutcome{}, err
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items:    []*stripe.SubscriptionItemsParams{{Price: stripe.String(pkg.PriceID)}},
	}
	if c.opts.TrialDays > 0 {
		params.TrialPeriodDays = stripe.Int64(int64(c.opts.TrialDays))
	}
	params.Context = ctx
	// Each attempt gets its own key; Stripe replays a key's first response
	params.IdempotencyKey = stripe.String(appUserID + ":" + uuid.NewString())
	params.AddMetadata(metaEntitlement, c.entitlementForProduct(pkg.ProductIdentifier))
	params.AddMetadata(metaAppUserID, appUserID)

	var created *stripe.Subscription
	err = c.call(ctx, "create_subscription", func() error {
		var err error
		created, err = subs.New(params)
		return err
	})
	if err != nil {
		return billing.PurchaseOutcome{}, err
	}
	logger.Info("Subscription created", "component", "stripe", "subscription", created.ID, "status", created.Status)

	info, err := c.GetCustomerInfo(ctx)
	if err != nil {
		return billing.PurchaseOutcome{}, err
	}
	return billing.Completed(info), nil
}

// RestorePurchases finds the customer created for this app user id and
// stores it again, then returns fresh customer info.
func (c *Client) RestorePurchases(ctx context.Context) (*billing.CustomerInfo, error) {
	if _, _, _, err := c.clients(); err != nil {
		return nil, err
	}
	appUserID, err := c.appUserID(ctx)
	if err != nil {
		return nil, err
	}

	customerID, err := c.findCustomer(ctx, appUserID)
	if err != nil {
		return nil, err
	}
	if customerID == "" {
		if customerID, err = c.storedCustomerID(ctx); err != nil {
			return nil, err
		}
	}
	if customerID != "" {
		if err := c.store.SetItem(ctx, constants.KeyBillingCustomer, customerID); err != nil {
			return nil, fmt.Errorf("failed to store customer id: %w", err)
		}
	}

	return c.GetCustomerInfo(ctx)
}

func (c *Client) clients() (*customer.Client, *price.Client, *subscription.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.customers == nil {
		return nil, nil, nil, billing.ErrNotConfigured
	}
	return c.customers, c.prices, c.subscriptions, nil
}

// call waits for the rate limiter, runs fn, and classifies its error
func (c *Client) call(ctx context.Context, op string, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("billing %s: %w", op, err)
	}
	start := time.Now()
	err := fn()
	metrics.RecordBillingCall(op, time.Since(start), err)
	if err != nil {
		return classify(op, err)
	}
	return nil
}

func (c *Client) appUserID(ctx context.Context) (string, error) {
	if c.opts.AppUserID == nil {
		return "", errors.New("app user id source not set")
	}
	return c.opts.AppUserID(ctx)
}

func (c *Client) storedCustomerID(ctx context.Context) (string, error) {
	id, _, err := c.store.GetItem(ctx, constants.KeyBillingCustomer)
	if err != nil {
		return "", fmt.Errorf("failed to read customer id: %w", err)
	}
	return strings.TrimSpace(id), nil
}

func (c *Client) ensureCustomer(ctx context.Context, appUserID string) (string, error) {
	id, err := c.storedCustomerID(ctx)
	if err != nil || id != "" {
		return id, err
	}
	if id, err = c.findCustomer(ctx, appUserID); err != nil {
		return "", err
	}

	if id == "" {
		customers, _, _, err := c.clients()
		if err != nil {
			return "", err
		}
		params := &stripe.CustomerParams{}
		params.Context = ctx
		params.IdempotencyKey = stripe.String(appUserID)
		params.AddMetadata(metaAppUserID, appUserID)

		err = c.call(ctx, "create_customer", func() error {
			cust, err := customers.New(params)
			if err == nil {
				id = cust.ID
			}
			return err
		})
		if err != nil {
			return "", err
		}
		logger.Info("Stripe customer created", "component", "stripe", "customer", id)
	}

	if err := c.store.SetItem(ctx, constants.KeyBillingCustomer, id); err != nil {
		return "", fmt.Errorf("failed to store customer id: %w", err)
	}
	return id, nil
}

// findCustomer searches for the live customer tagged with appUserID
func (c *Client) findCustomer(ctx context.Context, appUserID string) (string, error) {
	customers, _, _, err := c.clients()
	if err != nil {
		return "", err
	}
	params := &stripe.CustomerSearchParams{
		SearchParams: stripe.SearchParams{
			Query: customerQuery(appUserID),
			Limit: stripe.Int64(1),
		},
	}
	params.Context = ctx

	var found string
	err = c.call(ctx, "search_customers", func() error {
		it := customers.Search(params)
		if it.Next() {
			found = it.Customer().ID
		}
		return it.Err()
	})
	return found, err
}

func customerQuery(appUserID string) string {
	escaped := strings.ReplaceAll(appUserID, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "'", `\'`)
	return fmt.Sprintf("metadata['%s']:'%s'", metaAppUserID, escaped)
}

func (c *Client) listSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error) {
	_, _, subs, err := c.clients()
	if err != nil {
		return nil, err
	}
	params := &stripe.SubscriptionListParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	params.AddExpand("data.items.data.price")

	var out []*stripe.Subscription
	err = c.call(ctx, "list_subscriptions", func() error {
		it := subs.List(params)
		for it.Next() {
			out = append(out, it.Subscription())
		}
		return it.Err()
	})
	return out, err
}

// entitlementFor maps a subscription to the entitlement it grants
func (c *Client) entitlementFor(sub *stripe.Subscription) (billing.EntitlementInfo, bool) {
	if sub == nil {
		return billing.EntitlementInfo{}, false
	}

	var product string
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item != nil && item.Price != nil {
				product = item.Price.LookupKey
				break
			}
		}
	}

	id := sub.Metadata[metaEntitlement]
	if id == "" {
		id = c.entitlementForProduct(product)
	}

	active := sub.Status == stripe.SubscriptionStatusActive || sub.Status == stripe.SubscriptionStatusTrialing
	e := billing.EntitlementInfo{
		Identifier:        id,
		Active:            active,
		ProductIdentifier: product,
		PeriodType:        billing.PeriodNormal,
		WillRenew:         active && !sub.CancelAtPeriodEnd,
	}

	end := sub.CurrentPeriodEnd
	if sub.Status == stripe.SubscriptionStatusTrialing {
		e.PeriodType = billing.PeriodTrial
		if sub.TrialEnd > 0 {
			end = sub.TrialEnd
		}
	}
	if end > 0 {
		t := time.Unix(end, 0).UTC()
		e.ExpiresAt = &t
	}
	return e, true
}

func (c *Client) entitlementForProduct(product string) string {
	if id, ok := c.opts.ProductEntitlements[product]; ok && id != "" {
		return id
	}
	return c.opts.EntitlementID
}

func packageFor(p *stripe.Price) billing.Package {
	pkg := billing.Package{
		Identifier:        p.LookupKey,
		ProductIdentifier: p.LookupKey,
		PriceID:           p.ID,
		PriceString:       formatPrice(p),
	}
	if p.Recurring != nil {
		switch p.Recurring.Interval {
		case stripe.PriceRecurringIntervalMonth:
			pkg.Identifier, pkg.Period = billing.PeriodMonthly, billing.PeriodMonthly
		case stripe.PriceRecurringIntervalYear:
			pkg.Identifier, pkg.Period = billing.PeriodAnnual, billing.PeriodAnnual
		default:
			pkg.Period = string(p.Recurring.Interval)
		}
	}
	return pkg
}

func formatPrice(p *stripe.Price) string {
	amount := fmt.Sprintf("%d.%02d", p.UnitAmount/100, p.UnitAmount%100)
	if p.Currency == "" {
		return amount
	}
	return amount + " " + strings.ToUpper(string(p.Currency))
}

// classify marks transport failures and Stripe 5xx responses as network errors
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("billing %s: %w", op, err)
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode == 0 || stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
			return &billing.NetworkError{Op: op, Err: err}
		}
		return fmt.Errorf("billing %s: %w", op, err)
	}
	return &billing.NetworkError{Op: op, Err: err}
}
