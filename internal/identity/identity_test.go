package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/julianstephens/dytgt/internal/constants"
	"github.com/julianstephens/dytgt/internal/storage/memory"
)

func TestAppUserIDGeneratesOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	first, err := AppUserID(ctx, store)
	if err != nil {
		t.Fatalf("AppUserID failed: %v", err)
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Errorf("AppUserID() = %q is not a UUID: %v", first, err)
	}

	second, err := AppUserID(ctx, store)
	if err != nil {
		t.Fatalf("AppUserID failed: %v", err)
	}
	if second != first {
		t.Errorf("second AppUserID() = %q, want %q", second, first)
	}
	if store.Writes != 1 {
		t.Errorf("store writes = %d, want 1", store.Writes)
	}
}

func TestAppUserIDUsesStoredValue(t *testing.T) {
	store := memory.NewWithItems(map[string]string{constants.KeyAppUserID: "existing-id"})

	id, err := AppUserID(context.Background(), store)
	if err != nil {
		t.Fatalf("AppUserID failed: %v", err)
	}
	if id != "existing-id" {
		t.Errorf("AppUserID() = %q, want existing-id", id)
	}
}

func TestAppUserIDErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *memory.Store)
	}{
		{"read fails", func(s *memory.Store) { s.FailGet = errors.New("read failed") }},
		{"write fails", func(s *memory.Store) { s.FailSet = errors.New("write failed") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			tt.setup(store)
			if _, err := AppUserID(context.Background(), store); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
