package verses

import (
	"reflect"
	"testing"
	"time"
)

func TestAllEmbedded(t *testing.T) {
	list, err := All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(All()) = %d, want 3", len(list))
	}

	refs := []string{list[0].Reference, list[1].Reference, list[2].Reference}
	if want := []string{"1 Thessalonians 5:18", "Psalm 118:24", "James 1:17"}; !reflect.DeepEqual(refs, want) {
		t.Errorf("references = %v, want %v", refs, want)
	}
	for _, v := range list {
		if v.Reflection == "" {
			t.Errorf("%s has no reflection", v.Reference)
		}
	}
}

func TestForDateUsesDayOfMonth(t *testing.T) {
	tests := []struct {
		day     int
		wantRef string
	}{
		{1, "Psalm 118:24"},
		{2, "James 1:17"},
		{3, "1 Thessalonians 5:18"},
		{30, "1 Thessalonians 5:18"},
		{31, "Psalm 118:24"},
	}

	for _, tt := range tests {
		v, err := ForDate(time.Date(2025, 1, tt.day, 9, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("ForDate(day %d) failed: %v", tt.day, err)
		}
		if v.Reference != tt.wantRef {
			t.Errorf("day %d: Reference = %q, want %q", tt.day, v.Reference, tt.wantRef)
		}
	}
}

func TestParse(t *testing.T) {
	invalid := []struct {
		name string
		data string
	}{
		{"empty list", "[]"},
		{"missing text", "- id: 1\n  reference: Psalm 1:1\n"},
		{"malformed yaml", "not: [valid"},
	}
	for _, tt := range invalid {
		if _, err := Parse([]byte(tt.data)); err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}

	list, err := Parse([]byte("- reference: Psalm 1:1\n  text: Blessed is the man\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if list[0].Text != "Blessed is the man" {
		t.Errorf("Text = %q", list[0].Text)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	list, err := All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	list[0].Text = "changed"

	again, err := All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if again[0].Text == "changed" {
		t.Error("All returned the shared slice")
	}
}
