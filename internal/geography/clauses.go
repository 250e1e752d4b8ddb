// Package geography derives legal for=/in= clauses from the API's supported
// geography metadata and serves geography code listings.
package geography

import (
	"github.com/ppiankov/uscensus/internal/model"
)

// DeriveClauses returns the distinct legal clause sets for one geography level:
//
//  1. for={name}:CODE, every required parent pinned to a code
//  2. for={name}:*,    non-wildcardable parents pinned
//  3. for={name}:*,    non-wildcardable parents pinned, wildcardable parents "*"
//
// Only parents that are both required and wildcardable are ever wildcarded.
func DeriveClauses(req model.GeographyRequirement) []model.GeographyClauseSet {
	required := req.RequiredParentNames

	wildcardable := make(map[string]bool, len(req.WildcardableParentNames))
	for _, p := range req.WildcardableParentNames {
		wildcardable[p] = true
	}

	var allCodes, pinned, wildcarded []string
	for _, p := range required {
		allCodes = append(allCodes, clause(p, model.CodePlaceholder))
		if !wildcardable[p] {
			pinned = append(pinned, clause(p, model.CodePlaceholder))
		}
	}
	for _, p := range required {
		if wildcardable[p] {
			wildcarded = append(wildcarded, clause(p, model.Wildcard))
		}
	}

	candidates := []model.GeographyClauseSet{
		model.NewGeographyClauseSet(clause(req.Name, model.CodePlaceholder), allCodes...),
		model.NewGeographyClauseSet(clause(req.Name, model.Wildcard), pinned...),
		model.NewGeographyClauseSet(clause(req.Name, model.Wildcard), append(append([]string(nil), pinned...), wildcarded...)...),
	}

	seen := make(map[string]bool, len(candidates))
	out := make([]model.GeographyClauseSet, 0, len(candidates))
	for _, c := range candidates {
		if seen[c.Key()] {
			continue
		}
		seen[c.Key()] = true
		out = append(out, c)
	}
	return out
}

func clause(name, code string) string {
	return model.GeoDomain{Name: name, Code: code}.String()
}
