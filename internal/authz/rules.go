package authz

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule gates one route prefix. A nil Roles list leaves the route open;
// see Decide for the full semantics.
type Rule struct {
	Path     string   `yaml:"path"`
	Roles    []string `yaml:"roles"`
	Redirect string   `yaml:"redirect,omitempty"`
}

// RuleSet is the declarative route table loaded from YAML.
type RuleSet struct {
	// DefaultRedirect is used when a denying rule has no redirect of
	// its own.
	DefaultRedirect string `yaml:"defaultRedirect"`
	Rules           []Rule `yaml:"rules"`
}

// Gate checks navigation requests against a rule set.
type Gate struct {
	rules RuleSet
}

// NewGate builds a gate. Rules are matched longest-prefix-first so a
// specific rule overrides a broader one.
func NewGate(rules RuleSet) *Gate {
	sorted := make([]Rule, len(rules.Rules))
	copy(sorted, rules.Rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Path) > len(sorted[j].Path)
	})
	rules.Rules = sorted
	return &Gate{rules: rules}
}

// LoadRules reads a YAML rule set from disk.
func LoadRules(path string) (RuleSet, error) {
	var rs RuleSet
	data, err := os.ReadFile(path)
	if err != nil {
		return rs, fmt.Errorf("failed to read route rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return rs, fmt.Errorf("failed to parse route rules: %w", err)
	}
	return rs, nil
}

// CheckResult carries the gate's verdict for one navigation.
type CheckResult struct {
	Decision Decision
	// RedirectTo is set when Decision is Deny.
	RedirectTo string
}

// Check finds the most specific rule covering path and applies Decide.
// Paths with no covering rule are open.
func (g *Gate) Check(path string, isAuthenticated bool, userRole string) CheckResult {
	for _, rule := range g.rules.Rules {
		if !strings.HasPrefix(path, rule.Path) {
			continue
		}
		if Decide(isAuthenticated, userRole, rule.Roles) == Allow {
			return CheckResult{Decision: Allow}
		}
		redirect := rule.Redirect
		if redirect == "" {
			redirect = g.rules.DefaultRedirect
		}
		return CheckResult{Decision: Deny, RedirectTo: redirect}
	}
	return CheckResult{Decision: Allow}
}
