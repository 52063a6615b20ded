package keyring

import (
	"errors"
	"testing"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/julianstephens/dytgt/internal/constants"
)

// slot adapts one stored secret to a common get/set/delete surface
type slot struct {
	name  string
	value string
	get   func() (string, error)
	set   func(string) error
	del   func() error
}

func slots() []slot {
	billing := func(p constants.Platform, value string) slot {
		return slot{
			name:  "billing " + string(p),
			value: value,
			get:   func() (string, error) { return GetBillingAPIKey(p) },
			set:   func(v string) error { return SetBillingAPIKey(p, v) },
			del:   func() error { return DeleteBillingAPIKey(p) },
		}
	}
	return []slot{
		{
			name:  "connection string",
			value: "postgres://dytgt@localhost:5432/dytgt?sslmode=disable",
			get:   GetConnectionString,
			set:   SetConnectionString,
			del:   DeleteConnectionString,
		},
		billing(constants.PlatformIOS, "appl_live_key"),
		billing(constants.PlatformAndroid, "goog_live_key"),
	}
}

func TestSecretLifecycle(t *testing.T) {
	for _, s := range slots() {
		t.Run(s.name, func(t *testing.T) {
			gokeyring.MockInit()

			if _, err := s.get(); !errors.Is(err, ErrNotFound) {
				t.Errorf("get before set: error = %v, want ErrNotFound", err)
			}
			if err := s.del(); !errors.Is(err, ErrNotFound) {
				t.Errorf("delete before set: error = %v, want ErrNotFound", err)
			}

			if err := s.set(s.value); err != nil {
				t.Fatalf("set failed: %v", err)
			}
			got, err := s.get()
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if got != s.value {
				t.Errorf("get() = %q, want %q", got, s.value)
			}

			if err := s.del(); err != nil {
				t.Fatalf("delete failed: %v", err)
			}
			if _, err := s.get(); !errors.Is(err, ErrNotFound) {
				t.Errorf("get after delete: error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestSecretsAreIndependent(t *testing.T) {
	gokeyring.MockInit()

	all := slots()
	for _, s := range all {
		if err := s.set(s.value); err != nil {
			t.Fatalf("%s: set failed: %v", s.name, err)
		}
	}
	if err := all[1].del(); err != nil {
		t.Fatalf("%s: delete failed: %v", all[1].name, err)
	}

	if _, err := all[1].get(); !errors.Is(err, ErrNotFound) {
		t.Errorf("%s: error = %v, want ErrNotFound", all[1].name, err)
	}
	for _, s := range []slot{all[0], all[2]} {
		got, err := s.get()
		if err != nil {
			t.Errorf("%s: get failed: %v", s.name, err)
			continue
		}
		if got != s.value {
			t.Errorf("%s: get() = %q, want %q", s.name, got, s.value)
		}
	}
}

func TestSetRejectsEmptyValues(t *testing.T) {
	gokeyring.MockInit()

	if err := SetConnectionString(""); err == nil {
		t.Error("SetConnectionString accepted an empty value")
	}
	for _, key := range []string{"", "   ", constants.DefaultAPIKeyIOS, constants.DefaultAPIKeyAndroid} {
		if err := SetBillingAPIKey(constants.PlatformIOS, key); err == nil {
			t.Errorf("SetBillingAPIKey accepted %q", key)
		}
	}
}

func TestBillingAPIKeyIsTrimmed(t *testing.T) {
	gokeyring.MockInit()

	if err := SetBillingAPIKey(constants.PlatformAndroid, " goog_key "); err != nil {
		t.Fatalf("SetBillingAPIKey failed: %v", err)
	}
	got, err := GetBillingAPIKey(constants.PlatformAndroid)
	if err != nil {
		t.Fatalf("GetBillingAPIKey failed: %v", err)
	}
	if got != "goog_key" {
		t.Errorf("GetBillingAPIKey() = %q, want goog_key", got)
	}
}

func TestBillingUser(t *testing.T) {
	tests := []struct {
		platform constants.Platform
		want     string
	}{
		{constants.PlatformIOS, "billing-api-key-ios"},
		{constants.PlatformAndroid, "billing-api-key-android"},
	}
	for _, tt := range tests {
		if got := BillingUser(tt.platform); got != tt.want {
			t.Errorf("BillingUser(%s) = %q, want %q", tt.platform, got, tt.want)
		}
	}
}

func TestIsAvailable(t *testing.T) {
	gokeyring.MockInit()
	if !IsAvailable() {
		t.Error("IsAvailable() = false with the mock keyring")
	}
}
