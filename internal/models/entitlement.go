package models

// EntitlementState is the cached access state owned by the entitlement cache
type EntitlementState struct {
	IsBootstrapping bool `json:"is_bootstrapping"`
	IsOnboarded     bool `json:"is_onboarded"`
	IsEntitled      bool `json:"is_entitled"`
}

// PurchaseResult describes a single purchase or restore attempt.
// It is never persisted.
type PurchaseResult struct {
	Succeeded          bool `json:"succeeded"`
	WasCancelledByUser bool `json:"was_cancelled_by_user"`
}

// Plan selects which subscription product to purchase
type Plan string

const (
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
)

// Route is the screen a user lands on given their entitlement state
type Route string

const (
	RouteLoading    Route = "loading"
	RouteOnboarding Route = "onboarding"
	RoutePaywall    Route = "paywall"
	RouteHome       Route = "home"
)

// RouteFor derives the landing route from an entitlement snapshot
func RouteFor(s EntitlementState) Route {
	switch {
	case s.IsBootstrapping:
		return RouteLoading
	case !s.IsOnboarded:
		return RouteOnboarding
	case !s.IsEntitled:
		return RoutePaywall
	default:
		return RouteHome
	}
}
