package permission

import (
	"errors"
	"fmt"
	"strings"
)

// Wildcard matches any module or action when used in a [Pattern] side.
const Wildcard = "*"

// Permission is one concrete (module, action) capability pair.
type Permission struct {
	Module string
	Action string
}

// String renders the canonical "module:action" form.
func (p Permission) String() string {
	return p.Module + ":" + p.Action
}

// Pattern is a grant expression: a concrete pair, "module:*", or "*:*".
// The zero value matches nothing.
type Pattern struct {
	Module string
	Action string
}

// ParsePattern parses the "module:action" wire form, accepting wildcards on
// either side. It validates shape only; catalog membership is checked by
// [Catalog.Validate].
func ParsePattern(s string) (Pattern, error) {
	module, action, ok := strings.Cut(s, ":")
	if !ok {
		return Pattern{}, fmt.Errorf("pattern %q: missing ':' separator", s)
	}
	module = strings.TrimSpace(module)
	action = strings.TrimSpace(action)
	if module == "" || action == "" {
		return Pattern{}, fmt.Errorf("pattern %q: empty module or action", s)
	}
	if module == Wildcard && action != Wildcard {
		return Pattern{}, fmt.Errorf("pattern %q: wildcard module requires wildcard action", s)
	}
	return Pattern{Module: module, Action: action}, nil
}

// MustParsePattern is ParsePattern for static role definitions; it panics on
// malformed input.
func MustParsePattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Matches reports whether the pattern grants the concrete pair.
func (p Pattern) Matches(module, action string) bool {
	if module == "" || action == "" {
		return false
	}
	if p.Module == Wildcard && p.Action == Wildcard {
		return true
	}
	if p.Module != module {
		return false
	}
	return p.Action == Wildcard || p.Action == action
}

// IsWildcard reports whether either side of the pattern is a wildcard.
func (p Pattern) IsWildcard() bool {
	return p.Module == Wildcard || p.Action == Wildcard
}

// String renders the canonical "module:action" form.
func (p Pattern) String() string {
	return p.Module + ":" + p.Action
}

// Entry declares one catalog member with its human description.
type Entry struct {
	Module      string
	Action      string
	Description string
}

// Catalog is the closed registry of valid permission pairs. Immutable after
// construction; build it once at startup and validate every role against it.
type Catalog struct {
	descriptions map[Permission]string
	modules      map[string]struct{}
}

// NewCatalog builds a catalog from entries. Duplicate pairs and wildcard
// members are rejected: the catalog enumerates concrete capabilities only.
func NewCatalog(entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, errors.New("catalog cannot be empty")
	}

	c := &Catalog{
		descriptions: make(map[Permission]string, len(entries)),
		modules:      make(map[string]struct{}),
	}
	for _, e := range entries {
		if e.Module == "" || e.Action == "" {
			return nil, fmt.Errorf("catalog entry %q:%q: empty module or action", e.Module, e.Action)
		}
		if e.Module == Wildcard || e.Action == Wildcard {
			return nil, fmt.Errorf("catalog entry %s:%s: wildcards are patterns, not catalog members", e.Module, e.Action)
		}
		key := Permission{Module: e.Module, Action: e.Action}
		if _, exists := c.descriptions[key]; exists {
			return nil, fmt.Errorf("duplicate catalog entry %s", key)
		}
		c.descriptions[key] = e.Description
		c.modules[e.Module] = struct{}{}
	}
	return c, nil
}

// Contains reports whether the concrete pair is a catalog member.
func (c *Catalog) Contains(module, action string) bool {
	_, ok := c.descriptions[Permission{Module: module, Action: action}]
	return ok
}

// Describe returns the description for a catalog member.
func (c *Catalog) Describe(module, action string) (string, bool) {
	desc, ok := c.descriptions[Permission{Module: module, Action: action}]
	return desc, ok
}

// Len returns the number of concrete pairs in the catalog.
func (c *Catalog) Len() int {
	return len(c.descriptions)
}

// Validate checks every pattern against the catalog: concrete pairs must be
// members, "module:*" requires a known module, "*:*" is always valid. A typo
// in a role definition therefore fails at load time.
func (c *Catalog) Validate(patterns []Pattern) error {
	for _, p := range patterns {
		switch {
		case p.Module == Wildcard && p.Action == Wildcard:
			continue
		case p.Module == Wildcard:
			return fmt.Errorf("pattern %s: wildcard module requires wildcard action", p)
		case p.Action == Wildcard:
			if _, ok := c.modules[p.Module]; !ok {
				return fmt.Errorf("pattern %s: unknown module %q", p, p.Module)
			}
		default:
			if !c.Contains(p.Module, p.Action) {
				return fmt.Errorf("pattern %s: not in catalog", p)
			}
		}
	}
	return nil
}

// Set is a union of grant patterns, typically aggregated across all roles
// held by one principal.
type Set struct {
	patterns map[Pattern]struct{}
}

// NewSet builds a set from the given patterns.
func NewSet(patterns ...Pattern) Set {
	s := Set{patterns: make(map[Pattern]struct{}, len(patterns))}
	for _, p := range patterns {
		s.patterns[p] = struct{}{}
	}
	return s
}

// Union merges additional patterns into a copy of s.
func (s Set) Union(patterns ...Pattern) Set {
	merged := Set{patterns: make(map[Pattern]struct{}, len(s.patterns)+len(patterns))}
	for p := range s.patterns {
		merged.patterns[p] = struct{}{}
	}
	for _, p := range patterns {
		merged.patterns[p] = struct{}{}
	}
	return merged
}

// Has reports whether the set grants the concrete pair, honoring wildcards.
func (s Set) Has(module, action string) bool {
	if len(s.patterns) == 0 {
		return false
	}
	if _, ok := s.patterns[Pattern{Module: module, Action: action}]; ok {
		return true
	}
	if _, ok := s.patterns[Pattern{Module: module, Action: Wildcard}]; ok {
		return true
	}
	_, ok := s.patterns[Pattern{Module: Wildcard, Action: Wildcard}]
	return ok
}

// AnyOf reports whether at least one pair is granted.
func (s Set) AnyOf(pairs ...Permission) bool {
	for _, p := range pairs {
		if s.Has(p.Module, p.Action) {
			return true
		}
	}
	return false
}

// AllOf reports whether every pair is granted. An empty pair list is granted.
func (s Set) AllOf(pairs ...Permission) bool {
	for _, p := range pairs {
		if !s.Has(p.Module, p.Action) {
			return false
		}
	}
	return true
}

// Len returns the number of distinct patterns in the set.
func (s Set) Len() int {
	return len(s.patterns)
}
