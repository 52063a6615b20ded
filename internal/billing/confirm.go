package billing

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"
)

// Confirm asks confirm about pkg. A nil confirmer approves. Declining or
// aborting the prompt reports false without an error.
func Confirm(ctx context.Context, confirm Confirmer, pkg Package) (bool, error) {
	if confirm == nil {
		return true, nil
	}
	ok, err := confirm(ctx, pkg)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}
