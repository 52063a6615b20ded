package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/julianstephens/dytgt/internal/constants"
	"github.com/julianstephens/dytgt/internal/keyring"
)

var envNames = []string{
	"DYTGT_BILLING_API_KEY_IOS",
	"DYTGT_BILLING_API_KEY_ANDROID",
	"DYTGT_PLATFORM",
	"DYTGT_ENTITLEMENT_ID",
	"DYTGT_MONTHLY_PRODUCT_ID",
	"DYTGT_YEARLY_PRODUCT_ID",
	"DYTGT_TRIAL_DAYS",
	"DYTGT_BILLING_RATE_LIMIT",
	"DYTGT_BILLING_API_URL",
	"DYTGT_TIMEZONE",
	"DYTGT_DEBUG",
	"DYTGT_LOG_FORMAT",
}

// clearEnv blanks every DYTGT_ variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envNames {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"APIKeyIOS", cfg.APIKeyIOS, constants.DefaultAPIKeyIOS},
		{"APIKeyAndroid", cfg.APIKeyAndroid, constants.DefaultAPIKeyAndroid},
		{"PlatformKind", cfg.PlatformKind(), constants.PlatformAndroid},
		{"EntitlementID", cfg.EntitlementID, "pro"},
		{"MonthlyProductID", cfg.MonthlyProductID, "dytgt_monthly"},
		{"YearlyProductID", cfg.YearlyProductID, "dytgt_yearly"},
		{"TrialDays", cfg.TrialDays, 7},
		{"BillingRateLimit", cfg.BillingRateLimit, 5.0},
		{"BillingAPIURL", cfg.BillingAPIURL, ""},
		{"Timezone", cfg.Timezone, "Local"},
		{"Debug", cfg.Debug, false},
		{"LogFormat", cfg.LogFormat, "text"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DYTGT_PLATFORM", " IOS ")
	t.Setenv("DYTGT_BILLING_API_KEY_IOS", "sk_test_ios")
	t.Setenv("DYTGT_TRIAL_DAYS", "0")
	t.Setenv("DYTGT_BILLING_RATE_LIMIT", "2.5")
	t.Setenv("DYTGT_TIMEZONE", "Europe/London")
	t.Setenv("DYTGT_DEBUG", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := cfg.PlatformKind(); got != constants.PlatformIOS {
		t.Errorf("PlatformKind() = %v, want %v", got, constants.PlatformIOS)
	}
	if got := cfg.APIKey(); got != "sk_test_ios" {
		t.Errorf("APIKey() = %q, want sk_test_ios", got)
	}
	if cfg.TrialDays != 0 {
		t.Errorf("TrialDays = %d, want 0", cfg.TrialDays)
	}
	if cfg.BillingRateLimit != 2.5 {
		t.Errorf("BillingRateLimit = %v, want 2.5", cfg.BillingRateLimit)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}

	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location failed: %v", err)
	}
	if loc.String() != "Europe/London" {
		t.Errorf("Location() = %s, want Europe/London", loc)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "DYTGT_MONTHLY_PRODUCT_ID=monthly_v2\nDYTGT_BILLING_API_URL=http://localhost:12111\n"
	if err := os.WriteFile(envFile, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("DYTGT_MONTHLY_PRODUCT_ID")
		os.Unsetenv("DYTGT_BILLING_API_URL")
	})

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MonthlyProductID != "monthly_v2" {
		t.Errorf("MonthlyProductID = %q, want monthly_v2", cfg.MonthlyProductID)
	}
	if cfg.BillingAPIURL != "http://localhost:12111" {
		t.Errorf("BillingAPIURL = %q, want http://localhost:12111", cfg.BillingAPIURL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{"unknown platform", "DYTGT_PLATFORM", "windows"},
		{"zero rate limit", "DYTGT_BILLING_RATE_LIMIT", "0"},
		{"negative trial", "DYTGT_TRIAL_DAYS", "-1"},
		{"unknown timezone", "DYTGT_TIMEZONE", "Mars/Olympus_Mons"},
		{"non-numeric trial", "DYTGT_TRIAL_DAYS", "seven"},
		{"unknown log format", "DYTGT_LOG_FORMAT", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.env, tt.value)

			if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Errorf("Load accepted %s=%q", tt.env, tt.value)
			}
		})
	}
}

func TestAPIKeyKeyringFallback(t *testing.T) {
	gokeyring.MockInit()
	if err := keyring.SetBillingAPIKey(constants.PlatformAndroid, "goog_from_keyring"); err != nil {
		t.Fatalf("SetBillingAPIKey failed: %v", err)
	}
	t.Cleanup(func() { _ = keyring.DeleteBillingAPIKey(constants.PlatformAndroid) })

	cfg := Default()
	if got := cfg.APIKey(); got != "goog_from_keyring" {
		t.Errorf("APIKey() = %q, want goog_from_keyring", got)
	}

	cfg.APIKeyAndroid = "goog_from_env"
	if got := cfg.APIKey(); got != "goog_from_env" {
		t.Errorf("APIKey() = %q, want the environment value over the keyring", got)
	}
}

func TestAPIKeyLookupFailureKeepsPlaceholder(t *testing.T) {
	cfg := Default().WithKeyLookup(func(constants.Platform) (string, error) {
		return "", errors.New("dbus unavailable")
	})
	if got := cfg.APIKey(); got != constants.DefaultAPIKeyAndroid {
		t.Errorf("APIKey() = %q, want the placeholder", got)
	}
	if !IsPlaceholderKey(cfg.APIKey()) {
		t.Error("APIKey() is not a placeholder")
	}
}

func TestAPIKeySelectsPlatform(t *testing.T) {
	cfg := Default().WithKeyLookup(nil)
	cfg.APIKeyIOS = "appl_1"
	cfg.APIKeyAndroid = "goog_1"

	if got := cfg.APIKey(); got != "goog_1" {
		t.Errorf("android APIKey() = %q, want goog_1", got)
	}
	cfg.Platform = "ios"
	if got := cfg.APIKey(); got != "appl_1" {
		t.Errorf("ios APIKey() = %q, want appl_1", got)
	}
}

func TestLocation(t *testing.T) {
	cfg := Default()
	for _, tz := range []string{cfg.Timezone, ""} {
		cfg.Timezone = tz
		loc, err := cfg.Location()
		if err != nil {
			t.Fatalf("Location(%q) failed: %v", tz, err)
		}
		if loc != time.Local {
			t.Errorf("Location(%q) = %v, want Local", tz, loc)
		}
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}
