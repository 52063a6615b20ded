// Package config loads runtime settings from the environment and optional .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/julianstephens/dytgt/internal/billing"
	"github.com/julianstephens/dytgt/internal/constants"
	"github.com/julianstephens/dytgt/internal/keyring"
	"github.com/julianstephens/dytgt/internal/logger"
)

type Config struct {
	APIKeyIOS     string `env:"DYTGT_BILLING_API_KEY_IOS,default=REPLACE_WITH_IOS_API_KEY"`
	APIKeyAndroid string `env:"DYTGT_BILLING_API_KEY_ANDROID,default=REPLACE_WITH_ANDROID_API_KEY"`
	Platform      string `env:"DYTGT_PLATFORM,default=android"`

	EntitlementID    string `env:"DYTGT_ENTITLEMENT_ID,default=pro"`
	MonthlyProductID string `env:"DYTGT_MONTHLY_PRODUCT_ID,default=dytgt_monthly"`
	YearlyProductID  string `env:"DYTGT_YEARLY_PRODUCT_ID,default=dytgt_yearly"`
	TrialDays        int    `env:"DYTGT_TRIAL_DAYS,default=7"`

	BillingRateLimit float64 `env:"DYTGT_BILLING_RATE_LIMIT,default=5"`
	BillingAPIURL    string  `env:"DYTGT_BILLING_API_URL"`

	Timezone string `env:"DYTGT_TIMEZONE,default=Local"`
	Debug    bool   `env:"DYTGT_DEBUG,default=false"`
	// LogFormat is text, logfmt or json
	LogFormat string `env:"DYTGT_LOG_FORMAT,default=text"`

	// lookupKey reads a platform key from the OS keyring
	lookupKey func(constants.Platform) (string, error)
}

// Load reads .env files (".env" when none are given) and decodes the
// environment. Missing .env files are skipped; variables already set in the
// environment win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
		logger.Debug("Loaded env file", "component", "config", "path", f)
	}

	cfg := &Config{lookupKey: keyring.GetBillingAPIKey}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}
	cfg.Platform = strings.ToLower(strings.TrimSpace(cfg.Platform))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when the environment is empty
func Default() *Config {
	return &Config{
		APIKeyIOS:        constants.DefaultAPIKeyIOS,
		APIKeyAndroid:    constants.DefaultAPIKeyAndroid,
		Platform:         string(constants.PlatformAndroid),
		EntitlementID:    constants.DefaultEntitlementID,
		MonthlyProductID: constants.DefaultMonthlyProductID,
		YearlyProductID:  constants.DefaultYearlyProductID,
		TrialDays:        constants.DefaultTrialDays,
		BillingRateLimit: constants.DefaultBillingRateLimit,
		Timezone:         constants.DefaultTimezone,
		LogFormat:        constants.DefaultLogFormat,
		lookupKey:        keyring.GetBillingAPIKey,
	}
}

// WithKeyLookup replaces the keyring lookup used by APIKey
func (c *Config) WithKeyLookup(fn func(constants.Platform) (string, error)) *Config {
	c.lookupKey = fn
	return c
}

// Validate checks values that cannot be expressed as struct tags
func (c *Config) Validate() error {
	switch constants.Platform(c.Platform) {
	case constants.PlatformIOS, constants.PlatformAndroid:
	default:
		return fmt.Errorf("invalid platform %q: must be %q or %q", c.Platform, constants.PlatformIOS, constants.PlatformAndroid)
	}
	if c.BillingRateLimit <= 0 {
		return fmt.Errorf("billing rate limit must be positive, got %v", c.BillingRateLimit)
	}
	if c.TrialDays < 0 {
		return fmt.Errorf("trial days cannot be negative, got %d", c.TrialDays)
	}
	if strings.TrimSpace(c.EntitlementID) == "" {
		return errors.New("entitlement id cannot be empty")
	}
	switch c.LogFormat {
	case "text", "logfmt", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be text, logfmt or json", c.LogFormat)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// PlatformKind returns the configured platform
func (c *Config) PlatformKind() constants.Platform {
	return constants.Platform(c.Platform)
}

// APIKey returns the billing key for the configured platform. A placeholder
// falls back to the key stored in the OS keyring, if any.
func (c *Config) APIKey() string {
	key := c.APIKeyAndroid
	if c.PlatformKind() == constants.PlatformIOS {
		key = c.APIKeyIOS
	}
	if !IsPlaceholderKey(key) || c.lookupKey == nil {
		return key
	}

	stored, err := c.lookupKey(c.PlatformKind())
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			logger.Debug("Keyring lookup failed", "component", "config", "error", err)
		}
		return key
	}
	return stored
}

// Location resolves the configured time zone. "Local" and "" mean the system zone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" || tz == constants.DefaultTimezone {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// IsPlaceholderKey reports whether an API key was left unset
func IsPlaceholderKey(key string) bool {
	return billing.IsPlaceholderKey(key)
}
