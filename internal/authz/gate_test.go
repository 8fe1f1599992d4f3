package authz

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name          string
		authenticated bool
		role          string
		required      []string
		want          Decision
	}{
		{"open route anonymous", false, "", nil, Allow},
		{"open route authenticated", true, "admin", nil, Allow},
		{"guest route anonymous", false, "", []string{RoleGuest}, Allow},
		{"guest route authenticated", true, "admin", []string{RoleGuest}, Deny},
		{"role route matching", true, "admin", []string{"admin"}, Allow},
		{"role route mismatched", true, "viewer", []string{"admin"}, Deny},
		{"role route anonymous", false, "", []string{"admin"}, Deny},
		{"multiple roles second matches", true, "editor", []string{"admin", "editor"}, Allow},
		{"guest plus role anonymous", false, "", []string{RoleGuest, "admin"}, Allow},
		{"guest plus role wrong role", true, "viewer", []string{RoleGuest, "admin"}, Deny},
		{"empty list denies everyone", true, "admin", []string{}, Deny},
		{"empty list denies anonymous", false, "", []string{}, Deny},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.authenticated, tt.role, tt.required)
			if got != tt.want {
				t.Errorf("Decide(%v, %q, %v) = %v, want %v", tt.authenticated, tt.role, tt.required, got, tt.want)
			}
		})
	}
}

func testGate() *Gate {
	return NewGate(RuleSet{
		DefaultRedirect: "/login",
		Rules: []Rule{
			{Path: "/admin", Roles: []string{"admin"}},
			{Path: "/admin/audit", Roles: []string{"auditor"}, Redirect: "/admin"},
			{Path: "/login", Roles: []string{RoleGuest}, Redirect: "/"},
			{Path: "/public"},
		},
	})
}

func TestGateCheck(t *testing.T) {
	gate := testGate()

	tests := []struct {
		name          string
		path          string
		authenticated bool
		role          string
		want          Decision
		redirect      string
	}{
		{"unruled path is open", "/dashboard", false, "", Allow, ""},
		{"admin route allowed", "/admin/users", true, "admin", Allow, ""},
		{"admin route anonymous", "/admin/users", false, "", Deny, "/login"},
		{"longest prefix wins", "/admin/audit/log", true, "admin", Deny, "/admin"},
		{"audit role on audit route", "/admin/audit/log", true, "auditor", Allow, ""},
		{"login page anonymous", "/login", false, "", Allow, ""},
		{"login page while signed in", "/login", true, "admin", Deny, "/"},
		{"explicit open rule", "/public/docs", false, "", Allow, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gate.Check(tt.path, tt.authenticated, tt.role)
			if got.Decision != tt.want {
				t.Errorf("Check(%q) decision = %v, want %v", tt.path, got.Decision, tt.want)
			}
			if got.RedirectTo != tt.redirect {
				t.Errorf("Check(%q) redirect = %q, want %q", tt.path, got.RedirectTo, tt.redirect)
			}
		})
	}
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	content := `defaultRedirect: /login
rules:
  - path: /admin
    roles: [admin]
  - path: /login
    roles: [guest]
    redirect: /
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}

	rs, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules() error: %v", err)
	}
	if rs.DefaultRedirect != "/login" {
		t.Errorf("default redirect = %q", rs.DefaultRedirect)
	}
	if len(rs.Rules) != 2 {
		t.Fatalf("loaded %d rules, want 2", len(rs.Rules))
	}

	gate := NewGate(rs)
	if result := gate.Check("/admin/x", false, ""); result.Decision != Deny || result.RedirectTo != "/login" {
		t.Errorf("Check(/admin/x) = %+v, want deny with default redirect", result)
	}
}

func TestLoadRules_MissingFile(t *testing.T) {
	if _, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing rules file")
	}
}
