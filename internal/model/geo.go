package model

import (
	"sort"
	"strings"
)

// Wildcard selects every instance of a geography level
const Wildcard = "*"

// CodePlaceholder marks a position in a clause where the caller supplies an explicit code
const CodePlaceholder = "CODE"

// GeoDomain is a geography level plus a code or wildcard (e.g. "state:01", "county:*")
type GeoDomain struct {
	Name string `json:"name" yaml:"name"`
	Code string `json:"code" yaml:"code"`
}

// NewGeoDomain creates a GeoDomain, defaulting to the wildcard when no code is given
func NewGeoDomain(name string, code ...string) GeoDomain {
	c := Wildcard
	if len(code) > 0 && code[0] != "" {
		c = code[0]
	}
	return GeoDomain{Name: name, Code: c}
}

// ParseGeoDomain parses "name:code". A missing code means wildcard.
func ParseGeoDomain(s string) GeoDomain {
	s = strings.TrimSpace(s)
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return NewGeoDomain(s)
	}
	return NewGeoDomain(strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+1:]))
}

// String renders the domain the way the API expects it in for=/in= clauses
func (d GeoDomain) String() string {
	code := d.Code
	if code == "" {
		code = Wildcard
	}
	return d.Name + ":" + code
}

// IsWildcard reports whether the domain selects every instance of its level
func (d GeoDomain) IsWildcard() bool {
	return d.Code == "" || d.Code == Wildcard
}

// GeographyRequirement is the raw per-level metadata from geography.json
type GeographyRequirement struct {
	Name                    string   `json:"name"`
	DisplayHierarchy        string   `json:"geoLevelDisplay"`
	RequiredParentNames     []string `json:"requires,omitempty"`
	WildcardableParentNames []string `json:"wildcard,omitempty"`
}

// GeographyClauseSet is one legal for=/in= combination for a geography level
type GeographyClauseSet struct {
	For string   `json:"for"`
	In  []string `json:"in"`
}

// NewGeographyClauseSet builds a clause set with duplicate in-clauses collapsed.
// In-clauses keep their first-occurrence order.
func NewGeographyClauseSet(forClause string, inClauses ...string) GeographyClauseSet {
	seen := make(map[string]bool, len(inClauses))
	in := make([]string, 0, len(inClauses))
	for _, c := range inClauses {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		in = append(in, c)
	}
	return GeographyClauseSet{For: forClause, In: in}
}

// Key identifies the clause set independent of in-clause order
func (c GeographyClauseSet) Key() string {
	in := append([]string(nil), c.In...)
	sort.Strings(in)
	return c.For + "|" + strings.Join(in, "|")
}

// Equal reports whether both sets select the same combination
func (c GeographyClauseSet) Equal(other GeographyClauseSet) bool {
	return c.Key() == other.Key()
}

// SupportedGeography is one geography level with its legal clause sets
type SupportedGeography struct {
	Name      string               `json:"name"`
	Hierarchy string               `json:"hierarchy"`
	Clauses   []GeographyClauseSet `json:"clauses"`
}
