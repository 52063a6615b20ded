// Package billing defines the boundary to the subscription service and the
// value types that cross it.
package billing

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/dytgt/internal/constants"
)

// Client is the subscription service as seen by the entitlement cache
type Client interface {
	Configure(ctx context.Context, apiKey string) error
	GetCustomerInfo(ctx context.Context) (*CustomerInfo, error)
	GetOfferings(ctx context.Context) (*Offerings, error)
	PurchasePackage(ctx context.Context, pkg Package) (PurchaseOutcome, error)
	RestorePurchases(ctx context.Context) (*CustomerInfo, error)
}

// IsPlaceholderKey reports whether an API key was left unset
func IsPlaceholderKey(key string) bool {
	key = strings.TrimSpace(key)
	return key == "" || strings.HasPrefix(key, constants.PlaceholderKeyPrefix)
}

// Confirmer stands in for a purchase sheet. Returning false cancels the purchase.
type Confirmer func(ctx context.Context, pkg Package) (bool, error)

// Period types reported on an entitlement
const (
	PeriodNormal = "normal"
	PeriodTrial  = "trial"
)

// Package period names
const (
	PeriodMonthly = "monthly"
	PeriodAnnual  = "annual"
)

type EntitlementInfo struct {
	Identifier        string     `json:"identifier"`
	Active            bool       `json:"active"`
	ProductIdentifier string     `json:"product_identifier"`
	PeriodType        string     `json:"period_type"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	WillRenew         bool       `json:"will_renew"`
}

// CustomerInfo is a snapshot of the customer's entitlements
type CustomerInfo struct {
	AppUserID    string                     `json:"app_user_id"`
	Entitlements map[string]EntitlementInfo `json:"entitlements"`
}

// HasActiveEntitlement reports whether the snapshot holds id in its active set
func (c *CustomerInfo) HasActiveEntitlement(id string) bool {
	if c == nil {
		return false
	}
	e, ok := c.Entitlements[id]
	return ok && e.Active
}

// ActiveEntitlements returns the sorted identifiers of active entitlements
func (c *CustomerInfo) ActiveEntitlements() []string {
	if c == nil {
		return nil
	}
	var ids []string
	for id, e := range c.Entitlements {
		if e.Active {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Package is a purchasable product reference inside an offering
type Package struct {
	Identifier        string `json:"identifier"`
	ProductIdentifier string `json:"product_identifier"`
	PriceID           string `json:"price_id,omitempty"`
	PriceString       string `json:"price_string,omitempty"`
	Period            string `json:"period,omitempty"`
}

type Offering struct {
	Identifier string    `json:"identifier"`
	Packages   []Package `json:"packages"`
}

// Offerings groups packages; Current is the offering shown by default
type Offerings struct {
	Current *Offering           `json:"current,omitempty"`
	All     map[string]Offering `json:"all"`
}

// FindPackage looks up a package by product identifier, searching the
// current offering first and then every offering in identifier order.
func (o *Offerings) FindPackage(productID string) (Package, bool) {
	if o == nil || productID == "" {
		return Package{}, false
	}
	if o.Current != nil {
		if pkg, ok := findIn(o.Current.Packages, productID); ok {
			return pkg, true
		}
	}

	ids := make([]string, 0, len(o.All))
	for id := range o.All {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if pkg, ok := findIn(o.All[id].Packages, productID); ok {
			return pkg, true
		}
	}
	return Package{}, false
}

func findIn(pkgs []Package, productID string) (Package, bool) {
	for _, p := range pkgs {
		if p.ProductIdentifier == productID {
			return p, true
		}
	}
	return Package{}, false
}

// OutcomeStatus tags a purchase outcome
type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeCancelled OutcomeStatus = "cancelled"
)

// PurchaseOutcome is the result of a purchase that did not fail.
// CustomerInfo is set only for completed purchases.
type PurchaseOutcome struct {
	Status       OutcomeStatus
	CustomerInfo *CustomerInfo
}

func Completed(info *CustomerInfo) PurchaseOutcome {
	return PurchaseOutcome{Status: OutcomeCompleted, CustomerInfo: info}
}

func Cancelled() PurchaseOutcome {
	return PurchaseOutcome{Status: OutcomeCancelled}
}
