package billing

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/huh"
)

func TestHasActiveEntitlement(t *testing.T) {
	info := &CustomerInfo{Entitlements: map[string]EntitlementInfo{
		"pro":    {Identifier: "pro", Active: true},
		"legacy": {Identifier: "legacy", Active: false},
	}}

	tests := []struct {
		id   string
		want bool
	}{
		{"pro", true},
		{"legacy", false},
		{"missing", false},
	}
	for _, tt := range tests {
		if got := info.HasActiveEntitlement(tt.id); got != tt.want {
			t.Errorf("HasActiveEntitlement(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}

	var nilInfo *CustomerInfo
	if nilInfo.HasActiveEntitlement("pro") {
		t.Error("nil info reported an active entitlement")
	}
	if got := info.ActiveEntitlements(); !reflect.DeepEqual(got, []string{"pro"}) {
		t.Errorf("ActiveEntitlements() = %v, want [pro]", got)
	}
}

func TestFindPackage(t *testing.T) {
	current := Offering{Identifier: "default", Packages: []Package{
		{Identifier: "monthly", ProductIdentifier: "dytgt_monthly"},
	}}
	offerings := &Offerings{
		Current: &current,
		All: map[string]Offering{
			"default": current,
			"promo": {Identifier: "promo", Packages: []Package{
				{Identifier: "annual", ProductIdentifier: "dytgt_yearly"},
			}},
		},
	}

	tests := []struct {
		name      string
		productID string
		wantID    string
		wantFound bool
	}{
		{"found in current", "dytgt_monthly", "monthly", true},
		{"found in other offering", "dytgt_yearly", "annual", true},
		{"missing", "dytgt_weekly", "", false},
		{"empty id", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg, ok := offerings.FindPackage(tt.productID)
			if ok != tt.wantFound || pkg.Identifier != tt.wantID {
				t.Errorf("FindPackage(%q) = %q, %v; want %q, %v", tt.productID, pkg.Identifier, ok, tt.wantID, tt.wantFound)
			}
		})
	}

	var nilOfferings *Offerings
	if _, ok := nilOfferings.FindPackage("dytgt_monthly"); ok {
		t.Error("nil offerings found a package")
	}
}

func TestFindPackagePrefersCurrent(t *testing.T) {
	current := Offering{Identifier: "b", Packages: []Package{{Identifier: "from-current", ProductIdentifier: "p"}}}
	offerings := &Offerings{
		Current: &current,
		All: map[string]Offering{
			"a": {Identifier: "a", Packages: []Package{{Identifier: "from-a", ProductIdentifier: "p"}}},
			"b": current,
		},
	}

	pkg, ok := offerings.FindPackage("p")
	if !ok || pkg.Identifier != "from-current" {
		t.Errorf("FindPackage(p) = %q, %v; want from-current, true", pkg.Identifier, ok)
	}
}

func TestNetworkError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("refresh: %w", &NetworkError{Op: "get_customer_info", Err: cause})

	if !IsNetworkError(err) {
		t.Error("wrapped NetworkError not detected")
	}
	if !errors.Is(err, cause) {
		t.Error("NetworkError does not unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "get_customer_info") {
		t.Errorf("error %q does not name the operation", err)
	}
	if IsNetworkError(ErrNotConfigured) {
		t.Error("ErrNotConfigured reported as a network error")
	}
}

func TestMockClientFIFO(t *testing.T) {
	ctx := context.Background()
	first := &CustomerInfo{AppUserID: "first"}
	m := NewMockClient().
		QueueCustomerInfo(first, nil).
		QueueCustomerInfo(nil, ErrNotConfigured)

	info, err := m.GetCustomerInfo(ctx)
	if err != nil || info.AppUserID != "first" {
		t.Fatalf("call 1 = %+v, %v; want first response", info, err)
	}
	if _, err := m.GetCustomerInfo(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("call 2 error = %v, want ErrNotConfigured", err)
	}
	if _, err := m.GetCustomerInfo(ctx); !errors.Is(err, ErrNoMockResponse) {
		t.Errorf("call 3 error = %v, want ErrNoMockResponse", err)
	}
	if n := m.CallCount("GetCustomerInfo"); n != 3 {
		t.Errorf("CallCount = %d, want 3", n)
	}
}

func TestMockClientConfigure(t *testing.T) {
	ctx := context.Background()
	m := NewMockClient().QueueConfigure(errors.New("bad key"))

	if err := m.Configure(ctx, "k1"); err == nil {
		t.Error("expected queued configure error")
	}
	if m.ConfiguredKey != "" {
		t.Errorf("ConfiguredKey = %q after failure, want empty", m.ConfiguredKey)
	}

	if err := m.Configure(ctx, "k2"); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if m.ConfiguredKey != "k2" {
		t.Errorf("ConfiguredKey = %q, want k2", m.ConfiguredKey)
	}
}

func TestMockClientRecordsPurchases(t *testing.T) {
	m := NewMockClient().QueuePurchase(Cancelled(), nil)
	pkg := Package{Identifier: "monthly", ProductIdentifier: "dytgt_monthly"}

	outcome, err := m.PurchasePackage(context.Background(), pkg)
	if err != nil {
		t.Fatalf("PurchasePackage failed: %v", err)
	}
	if outcome.Status != OutcomeCancelled || outcome.CustomerInfo != nil {
		t.Errorf("outcome = %+v, want cancelled without customer info", outcome)
	}
	if !reflect.DeepEqual(m.Purchased, []Package{pkg}) {
		t.Errorf("Purchased = %v, want [%v]", m.Purchased, pkg)
	}
}

func TestIsPlaceholderKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"REPLACE_WITH_IOS_API_KEY", true},
		{"sk_test_123", false},
		{"replace_lowercase_is_a_real_key", false},
	}
	for _, tt := range tests {
		if got := IsPlaceholderKey(tt.key); got != tt.want {
			t.Errorf("IsPlaceholderKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()
	pkg := Package{Identifier: "monthly"}

	tests := []struct {
		name    string
		confirm Confirmer
		want    bool
		wantErr bool
	}{
		{"nil approves", nil, true, false},
		{"accepted", func(context.Context, Package) (bool, error) { return true, nil }, true, false},
		{"declined", func(context.Context, Package) (bool, error) { return false, nil }, false, false},
		{"aborted", func(context.Context, Package) (bool, error) { return false, huh.ErrUserAborted }, false, false},
		{"failed", func(context.Context, Package) (bool, error) { return false, errors.New("no tty") }, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Confirm(ctx, tt.confirm, pkg)
			if got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("Confirm() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
