package constants

const (
	// Durable storage keys
	KeyStreak          = "dytgt:streak"
	KeyLastThankedDate = "dytgt:lastThankedDate"
	KeyOnboarded       = "dytgt:onboarded"
	KeyAppUserID       = "dytgt:appUserId"
	KeyBillingCustomer = "dytgt:billing:customerId"
	SandboxKeyPrefix   = "dytgt-sandbox:"
	OnboardedTrueValue = "true"
	StreakKeyNamespace = "dytgt:"

	DefaultTimezone  = "Local" // Use system local timezone by default
	DefaultLogFormat = "text"
)
