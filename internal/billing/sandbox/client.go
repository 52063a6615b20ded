// Package sandbox is an offline billing.Client that keeps purchases in the
// local key/value store.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/julianstephens/dytgt/internal/billing"
	"github.com/julianstephens/dytgt/internal/constants"
	"github.com/julianstephens/dytgt/internal/logger"
)

type Store interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItems(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

type Options struct {
	EntitlementID    string
	MonthlyProductID string
	YearlyProductID  string
	TrialDays        int
	Confirm          billing.Confirmer
	AppUserID        func(ctx context.Context) (string, error)
	Now              func() time.Time
}

type Client struct {
	store Store
	opts  Options

	mu         sync.Mutex
	configured bool
}

// record is the stored form of a simulated purchase
type record struct {
	Product   string    `json:"product"`
	Period    string    `json:"period"`
	Purchased time.Time `json:"purchased"`
	ExpiresAt time.Time `json:"expires_at"`
	Trial     bool      `json:"trial"`
}

func New(store Store, opts Options) *Client {
	if opts.EntitlementID == "" {
		opts.EntitlementID = constants.DefaultEntitlementID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{store: store, opts: opts}
}

// Configure accepts any key that is not a placeholder
func (c *Client) Configure(ctx context.Context, apiKey string) error {
	if billing.IsPlaceholderKey(apiKey) {
		return fmt.Errorf("sandbox API key is not set")
	}
	c.mu.Lock()
	c.configured = true
	c.mu.Unlock()
	logger.Debug("Sandbox billing configured", "component", "sandbox")
	return nil
}

func (c *Client) GetOfferings(ctx context.Context) (*billing.Offerings, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	offering := billing.Offering{Identifier: "default", Packages: []billing.Package{
		{
			Identifier:        billing.PeriodMonthly,
			ProductIdentifier: c.opts.MonthlyProductID,
			PriceID:           "sandbox_" + c.opts.MonthlyProductID,
			PriceString:       "4.99 USD",
			Period:            billing.PeriodMonthly,
		},
		{
			Identifier:        billing.PeriodAnnual,
			ProductIdentifier: c.opts.YearlyProductID,
			PriceID:           "sandbox_" + c.opts.YearlyProductID,
			PriceString:       "9.99 USD",
			Period:            billing.PeriodAnnual,
		},
	}}
	return &billing.Offerings{
		Current: &offering,
		All:     map[string]billing.Offering{offering.Identifier: offering},
	}, nil
}

func (c *Client) GetCustomerInfo(ctx context.Context) (*billing.CustomerInfo, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	appUserID, err := c.appUserID(ctx)
	if err != nil {
		return nil, err
	}

	info := &billing.CustomerInfo{AppUserID: appUserID, Entitlements: map[string]billing.EntitlementInfo{}}
	keys, err := c.store.Keys(ctx, constants.SandboxKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list sandbox purchases: %w", err)
	}

	now := c.opts.Now()
	for _, key := range keys {
		raw, ok, err := c.store.GetItem(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read sandbox purchase: %w", err)
		}
		if !ok {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			logger.Warn("Ignoring corrupt sandbox purchase", "component", "sandbox", "key", key, "error", err)
			continue
		}

		id := strings.TrimPrefix(key, constants.SandboxKeyPrefix)
		expires := rec.ExpiresAt
		e := billing.EntitlementInfo{
			Identifier:        id,
			Active:            now.Before(expires),
			ProductIdentifier: rec.Product,
			PeriodType:        billing.PeriodNormal,
			ExpiresAt:         &expires,
		}
		e.WillRenew = e.Active
		if rec.Trial {
			e.PeriodType = billing.PeriodTrial
		}
		info.Entitlements[id] = e
	}
	return info, nil
}

// PurchasePackage grants the entitlement for one period, starting with a
// trial when trial days are configured and none was used before.
func (c *Client) PurchasePackage(ctx context.Context, pkg billing.Package) (billing.PurchaseOutcome, error) {
	if err := c.ready(); err != nil {
		return billing.PurchaseOutcome{}, err
	}

	ok, err := billing.Confirm(ctx, c.opts.Confirm, pkg)
	if err != nil {
		return billing.PurchaseOutcome{}, fmt.Errorf("purchase confirmation failed: %w", err)
	}
	if !ok {
		return billing.Cancelled(), nil
	}

	key := constants.SandboxKeyPrefix + c.opts.EntitlementID
	_, hadPurchase, err := c.store.GetItem(ctx, key)
	if err != nil {
		return billing.PurchaseOutcome{}, fmt.Errorf("failed to read sandbox purchase: %w", err)
	}

	now := c.opts.Now().UTC()
	rec := record{Product: pkg.ProductIdentifier, Period: pkg.Period, Purchased: now}
	switch {
	case c.opts.TrialDays > 0 && !hadPurchase:
		rec.Trial = true
		rec.ExpiresAt = now.AddDate(0, 0, c.opts.TrialDays)
	case pkg.Period == billing.PeriodAnnual:
		rec.ExpiresAt = now.AddDate(1, 0, 0)
	default:
		rec.ExpiresAt = now.AddDate(0, 1, 0)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return billing.PurchaseOutcome{}, err
	}
	if err := c.store.SetItem(ctx, key, string(data)); err != nil {
		return billing.PurchaseOutcome{}, fmt.Errorf("failed to store sandbox purchase: %w", err)
	}
	logger.Info("Sandbox purchase recorded", "component", "sandbox", "product", pkg.ProductIdentifier, "expires", rec.ExpiresAt)

	info, err := c.GetCustomerInfo(ctx)
	if err != nil {
		return billing.PurchaseOutcome{}, err
	}
	return billing.Completed(info), nil
}

// RestorePurchases re-reads the stored purchases
func (c *Client) RestorePurchases(ctx context.Context) (*billing.CustomerInfo, error) {
	return c.GetCustomerInfo(ctx)
}

// Clear removes every simulated purchase
func (c *Client) Clear(ctx context.Context) error {
	keys, err := c.store.Keys(ctx, constants.SandboxKeyPrefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.store.RemoveItems(ctx, keys...)
}

func (c *Client) ready() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return billing.ErrNotConfigured
	}
	return nil
}

func (c *Client) appUserID(ctx context.Context) (string, error) {
	if c.opts.AppUserID == nil {
		return "", nil
	}
	return c.opts.AppUserID(ctx)
}
