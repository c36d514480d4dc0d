package permission

import (
	"strings"
	"testing"
)

func TestParsePattern(t *testing.T) {
	cases := []struct {
		in      string
		want    Pattern
		wantErr bool
	}{
		{"users:delete", Pattern{"users", "delete"}, false},
		{"users:*", Pattern{"users", "*"}, false},
		{"*:*", Pattern{"*", "*"}, false},
		{" users : delete ", Pattern{"users", "delete"}, false},
		{"users", Pattern{}, true},
		{":delete", Pattern{}, true},
		{"users:", Pattern{}, true},
		{"*:delete", Pattern{}, true},
	}
	for _, tc := range cases {
		got, err := ParsePattern(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParsePattern(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePattern(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParsePattern(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPatternMatches(t *testing.T) {
	concrete := MustParsePattern("users:delete")
	moduleWide := MustParsePattern("users:*")
	global := MustParsePattern("*:*")

	if !concrete.Matches("users", "delete") {
		t.Error("concrete pattern should match its own pair")
	}
	if concrete.Matches("users", "view") || concrete.Matches("shops", "delete") {
		t.Error("concrete pattern matched a different pair")
	}
	if !moduleWide.Matches("users", "view") || !moduleWide.Matches("users", "delete") {
		t.Error("module wildcard should match any action in the module")
	}
	if moduleWide.Matches("shops", "view") {
		t.Error("module wildcard matched a different module")
	}
	if !global.Matches("shops", "suspend") {
		t.Error("global wildcard should match everything")
	}
	if global.Matches("", "delete") || global.Matches("users", "") {
		t.Error("empty module or action must never match")
	}
}

func TestCatalogValidate(t *testing.T) {
	c := DefaultCatalog()

	valid := []Pattern{
		MustParsePattern("users:delete"),
		MustParsePattern("vouchers:*"),
		MustParsePattern("*:*"),
	}
	if err := c.Validate(valid); err != nil {
		t.Fatalf("expected valid patterns, got %v", err)
	}

	if err := c.Validate([]Pattern{MustParsePattern("users:frobnicate")}); err == nil {
		t.Fatal("expected unknown action to fail validation")
	}
	if err := c.Validate([]Pattern{MustParsePattern("invoices:*")}); err == nil {
		t.Fatal("expected unknown module wildcard to fail validation")
	}
	if err := c.Validate([]Pattern{{Module: "*", Action: "delete"}}); err == nil {
		t.Fatal("expected wildcard-module concrete-action to fail validation")
	}
}

func TestNewCatalogRejectsDuplicatesAndWildcards(t *testing.T) {
	_, err := NewCatalog([]Entry{
		{"users", "view", ""},
		{"users", "view", "again"},
	})
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate entry error, got %v", err)
	}

	if _, err := NewCatalog([]Entry{{"users", "*", ""}}); err == nil {
		t.Fatal("expected wildcard catalog entry to be rejected")
	}
	if _, err := NewCatalog(nil); err == nil {
		t.Fatal("expected empty catalog to be rejected")
	}
}

func TestSetHasWithWildcards(t *testing.T) {
	s := NewSet(
		MustParsePattern("users:delete"),
		MustParsePattern("vouchers:*"),
	)

	if !s.Has("users", "delete") {
		t.Error("expected concrete grant to match")
	}
	if s.Has("users", "view") {
		t.Error("ungranted action matched")
	}
	if !s.Has("vouchers", "approve") || !s.Has("vouchers", "delete") {
		t.Error("module wildcard grant should cover all module actions")
	}
	if s.Has("shops", "view") {
		t.Error("ungranted module matched")
	}

	all := s.Union(MustParsePattern("*:*"))
	if !all.Has("shops", "view") || !all.Has("settings", "update") {
		t.Error("global wildcard should cover everything")
	}
	if s.Has("shops", "view") {
		t.Error("Union must not mutate the receiver")
	}
}

func TestSetAnyOfAllOf(t *testing.T) {
	s := NewSet(
		MustParsePattern("vouchers:approve"),
		MustParsePattern("vouchers:approve_high_value"),
	)

	approve := Permission{ModuleVouchers, ActionApprove}
	high := Permission{ModuleVouchers, ActionApproveHighValue}
	del := Permission{ModuleVouchers, ActionDelete}

	if !s.AnyOf(del, approve) {
		t.Error("AnyOf should pass when one pair matches")
	}
	if s.AnyOf(del) {
		t.Error("AnyOf should fail when nothing matches")
	}
	if !s.AllOf(approve, high) {
		t.Error("AllOf should pass when all pairs match")
	}
	if s.AllOf(approve, del) {
		t.Error("AllOf should fail when any pair is missing")
	}
	if !s.AllOf() {
		t.Error("empty AllOf is vacuously granted")
	}
}

func TestEmptySetMatchesNothing(t *testing.T) {
	var s Set
	if s.Has("users", "view") {
		t.Error("zero-value set matched")
	}
	if s.AnyOf(Permission{"users", "view"}) {
		t.Error("zero-value set AnyOf matched")
	}
}
