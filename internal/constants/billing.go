package constants

// Platform identifies which store key is used to configure billing
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"

	// PlaceholderKeyPrefix marks an API key that was never filled in
	PlaceholderKeyPrefix = "REPLACE_"

	DefaultAPIKeyIOS        = "REPLACE_WITH_IOS_API_KEY"
	DefaultAPIKeyAndroid    = "REPLACE_WITH_ANDROID_API_KEY"
	DefaultEntitlementID    = "pro"
	DefaultMonthlyProductID = "dytgt_monthly"
	DefaultYearlyProductID  = "dytgt_yearly"
	DefaultTrialDays        = 7
	DefaultBillingRateLimit = 5.0

	// Keyring users for billing API keys, one per platform
	KeyringUserBillingPrefix = "billing-api-key-"

	// Billing modes selectable from the command line
	BillingModeStripe  = "stripe"
	BillingModeSandbox = "sandbox"

	// SandboxAPIKey configures the offline billing client
	SandboxAPIKey = "sandbox"

	// StripeMaxNetworkRetries bounds retries of idempotent Stripe requests
	StripeMaxNetworkRetries = 2
)
