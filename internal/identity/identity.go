// Package identity manages the anonymous app user id shared with the billing service.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/dytgt/internal/constants"
	"github.com/julianstephens/dytgt/internal/logger"
)

type Store interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
}

// AppUserID returns the stored app user id, generating and storing a new
// one on first use.
func AppUserID(ctx context.Context, store Store) (string, error) {
	id, ok, err := store.GetItem(ctx, constants.KeyAppUserID)
	if err != nil {
		return "", fmt.Errorf("failed to read app user id: %w", err)
	}
	if ok && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id), nil
	}

	id = uuid.New().String()
	if err := store.SetItem(ctx, constants.KeyAppUserID, id); err != nil {
		return "", fmt.Errorf("failed to store app user id: %w", err)
	}
	logger.Info("Generated app user id", "component", "identity", "id", id)
	return id, nil
}
