// Package entitlement caches whether the user may enter the app and drives
// purchases and restores through the billing client.
package entitlement

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/julianstephens/dytgt/internal/billing"
	"github.com/julianstephens/dytgt/internal/constants"
	"github.com/julianstephens/dytgt/internal/errors"
	"github.com/julianstephens/dytgt/internal/logger"
	"github.com/julianstephens/dytgt/internal/metrics"
	"github.com/julianstephens/dytgt/internal/models"
)

// Store is the subset of the key/value store the cache needs
type Store interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItems(ctx context.Context, keys ...string) error
}

// Settings configures the billing client and the products on offer
type Settings struct {
	APIKey           string
	EntitlementID    string
	MonthlyProductID string
	YearlyProductID  string
}

// Cache holds the entitlement state. Operations are not serialized against
// each other; the mutex only guards the state fields.
type Cache struct {
	store    Store
	client   billing.Client
	settings Settings
	now      func() time.Time

	mu            sync.Mutex
	state         models.EntitlementState
	started       bool
	lastRefreshed time.Time
}

func New(store Store, client billing.Client, settings Settings) *Cache {
	if settings.EntitlementID == "" {
		settings.EntitlementID = constants.DefaultEntitlementID
	}
	return &Cache{
		store:    store,
		client:   client,
		settings: settings,
		now:      time.Now,
		state:    models.EntitlementState{IsBootstrapping: true},
	}
}

// Bootstrap loads the onboarding flag, configures billing and refreshes the
// entitlement. It never fails; problems are logged and leave the user
// unentitled. Only the first call does any work.
func (c *Cache) Bootstrap(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state.IsBootstrapping = false
		c.mu.Unlock()
	}()

	onboarded := c.readOnboarded(ctx)
	c.mu.Lock()
	c.state.IsOnboarded = onboarded
	c.mu.Unlock()

	if billing.IsPlaceholderKey(c.settings.APIKey) {
		logger.Info("Billing API key not set, skipping billing configuration", "component", "entitlement")
	} else if err := c.client.Configure(ctx, c.settings.APIKey); err != nil {
		appErr := errors.NewSubscriptionError(errors.CodeSubscriptionConfigFailed, "failed to configure billing", err)
		logger.Error("Billing configuration failed", "component", "entitlement", "code", appErr.Code, "error", err)
		return
	}

	c.RefreshEntitlement(ctx)
}

// RefreshEntitlement asks the billing client for the customer's entitlements
// and caches the result. Any failure caches false.
func (c *Cache) RefreshEntitlement(ctx context.Context) bool {
	info, err := c.client.GetCustomerInfo(ctx)

	entitled := false
	result := "failed"
	switch {
	case stderrors.Is(err, billing.ErrNotConfigured):
		logger.Debug("Billing not configured, treating user as unentitled", "component", "entitlement")
	case err != nil:
		logger.Warn("Failed to refresh entitlement", "component", "entitlement", "error", err)
	default:
		entitled = info.HasActiveEntitlement(c.settings.EntitlementID)
		result = "unentitled"
		if entitled {
			result = "entitled"
		}
	}

	c.mu.Lock()
	c.state.IsEntitled = entitled
	c.lastRefreshed = c.now()
	c.mu.Unlock()

	metrics.RecordEntitlementRefresh(result)
	return entitled
}

// MarkOnboarded sets the onboarding flag. The in-memory flag stays set even
// when the write fails.
func (c *Cache) MarkOnboarded(ctx context.Context) error {
	c.mu.Lock()
	c.state.IsOnboarded = true
	c.mu.Unlock()

	if err := c.store.SetItem(ctx, constants.KeyOnboarded, constants.OnboardedTrueValue); err != nil {
		logger.Warn("Failed to persist onboarding flag", "component", "entitlement", "error", err)
		return errors.NewStorageError("failed to save onboarding", err)
	}
	return nil
}

// ClearOnboarding removes the onboarding flag
func (c *Cache) ClearOnboarding(ctx context.Context) error {
	c.mu.Lock()
	c.state.IsOnboarded = false
	c.mu.Unlock()

	if err := c.store.RemoveItems(ctx, constants.KeyOnboarded); err != nil {
		logger.Warn("Failed to remove onboarding flag", "component", "entitlement", "error", err)
		return errors.NewStorageError("failed to clear onboarding", err)
	}
	return nil
}

func (c *Cache) PurchaseMonthly(ctx context.Context) (models.PurchaseResult, error) {
	return c.Purchase(ctx, models.PlanMonthly)
}

func (c *Cache) PurchaseYearly(ctx context.Context) (models.PurchaseResult, error) {
	return c.Purchase(ctx, models.PlanYearly)
}

// Purchase buys the package configured for plan. A user cancellation is a
// normal result. The cached entitlement is not changed; callers refresh.
func (c *Cache) Purchase(ctx context.Context, plan models.Plan) (models.PurchaseResult, error) {
	productID, ok := c.productFor(plan)
	if !ok {
		metrics.RecordPurchaseAttempt(string(plan), "failed")
		return models.PurchaseResult{}, errors.NewSubscriptionError(errors.CodePurchaseFailed, "unknown plan "+string(plan), nil)
	}

	offerings, err := c.client.GetOfferings(ctx)
	if err != nil {
		metrics.RecordPurchaseAttempt(string(plan), "failed")
		return models.PurchaseResult{}, classify(errors.CodePurchaseFailed, "failed to load offerings", err)
	}

	pkg, found := offerings.FindPackage(productID)
	if !found {
		logger.Warn("No package for product", "component", "entitlement", "product", productID)
		metrics.RecordPurchaseAttempt(string(plan), "failed")
		return models.PurchaseResult{}, errors.NewSubscriptionError(errors.CodePurchaseFailed, "package not found", nil)
	}

	outcome, err := c.client.PurchasePackage(ctx, pkg)
	if err != nil {
		metrics.RecordPurchaseAttempt(string(plan), "failed")
		return models.PurchaseResult{}, classify(errors.CodePurchaseFailed, "purchase failed", err)
	}

	switch outcome.Status {
	case billing.OutcomeCancelled:
		logger.Info("Purchase cancelled by user", "component", "entitlement", "plan", plan)
		metrics.RecordPurchaseAttempt(string(plan), "cancelled")
		return models.PurchaseResult{WasCancelledByUser: true}, nil
	case billing.OutcomeCompleted:
		succeeded := outcome.CustomerInfo.HasActiveEntitlement(c.settings.EntitlementID)
		metrics.RecordPurchaseAttempt(string(plan), outcomeLabel(succeeded))
		logger.Info("Purchase completed", "component", "entitlement", "plan", plan, "entitled", succeeded)
		return models.PurchaseResult{Succeeded: succeeded}, nil
	default:
		metrics.RecordPurchaseAttempt(string(plan), "failed")
		return models.PurchaseResult{}, errors.NewSubscriptionError(errors.CodePurchaseFailed, "unknown purchase outcome "+string(outcome.Status), nil)
	}
}

// RestorePurchases re-reads the customer's purchases. The cached entitlement
// is not changed; callers refresh.
func (c *Cache) RestorePurchases(ctx context.Context) (models.PurchaseResult, error) {
	info, err := c.client.RestorePurchases(ctx)
	if err != nil {
		metrics.RecordPurchaseAttempt("restore", "failed")
		return models.PurchaseResult{}, classify(errors.CodeRestoreFailed, "restore failed", err)
	}

	succeeded := info.HasActiveEntitlement(c.settings.EntitlementID)
	metrics.RecordPurchaseAttempt("restore", outcomeLabel(succeeded))
	return models.PurchaseResult{Succeeded: succeeded}, nil
}

// State returns a snapshot of the entitlement state
func (c *Cache) State() models.EntitlementState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Route returns where the user lands given the current state
func (c *Cache) Route() models.Route {
	return models.RouteFor(c.State())
}

// LastRefreshed returns when the entitlement was last checked, or the zero time
func (c *Cache) LastRefreshed() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRefreshed
}

func (c *Cache) Settings() Settings {
	return c.settings
}

func (c *Cache) readOnboarded(ctx context.Context) bool {
	v, ok, err := c.store.GetItem(ctx, constants.KeyOnboarded)
	if err != nil {
		logger.Warn("Failed to read onboarding flag", "component", "entitlement", "error", err)
		return false
	}
	return ok && v == constants.OnboardedTrueValue
}

func (c *Cache) productFor(plan models.Plan) (string, bool) {
	switch plan {
	case models.PlanMonthly:
		return c.settings.MonthlyProductID, true
	case models.PlanYearly:
		return c.settings.YearlyProductID, true
	default:
		return "", false
	}
}

func classify(code errors.ErrorCode, msg string, err error) *errors.AppError {
	if billing.IsNetworkError(err) {
		return errors.NewSubscriptionError(errors.CodeNetworkError, msg, err)
	}
	return errors.NewSubscriptionError(code, msg, err)
}

func outcomeLabel(succeeded bool) string {
	if succeeded {
		return "succeeded"
	}
	return "not_entitled"
}
