package keyring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/dytgt/internal/constants"
)

var (
	// ErrNotFound is returned when no secret is stored for the requested entry
	ErrNotFound = errors.New("secret not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// GetConnectionString retrieves the Postgres connection string from the OS keyring.
// Returns ErrNotFound if nothing is stored.
func GetConnectionString() (string, error) {
	return get(constants.DefaultKeyringUser)
}

// SetConnectionString stores the Postgres connection string in the OS keyring.
func SetConnectionString(connStr string) error {
	if connStr == "" {
		return errors.New("connection string cannot be empty")
	}
	return set(constants.DefaultKeyringUser, connStr)
}

// DeleteConnectionString removes the Postgres connection string from the OS keyring.
func DeleteConnectionString() error {
	return del(constants.DefaultKeyringUser)
}

// BillingUser returns the keyring user holding the billing API key for a platform
func BillingUser(platform constants.Platform) string {
	return constants.KeyringUserBillingPrefix + strings.ToLower(string(platform))
}

// GetBillingAPIKey retrieves the billing API key stored for a platform
func GetBillingAPIKey(platform constants.Platform) (string, error) {
	return get(BillingUser(platform))
}

// SetBillingAPIKey stores the billing API key for a platform
func SetBillingAPIKey(platform constants.Platform, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key cannot be empty")
	}
	if strings.HasPrefix(key, constants.PlaceholderKeyPrefix) {
		return fmt.Errorf("API key %q is a placeholder", key)
	}
	return set(BillingUser(platform), key)
}

func DeleteBillingAPIKey(platform constants.Platform) error {
	return del(BillingUser(platform))
}

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	// A missing entry still means the keyring answered
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || err == keyring.ErrNotFound
}

func get(user string) (string, error) {
	secret, err := keyring.Get(constants.AppName, user)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return secret, nil
}

func set(user, secret string) error {
	if err := keyring.Set(constants.AppName, user, secret); err != nil {
		return fmt.Errorf("failed to store secret in keyring: %w", err)
	}
	return nil
}

func del(user string) error {
	err := keyring.Delete(constants.AppName, user)
	if err != nil {
		if err == keyring.ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete secret from keyring: %w", err)
	}
	return nil
}
