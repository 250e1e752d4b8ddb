package variables

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ppiankov/uscensus/internal/model"
	"github.com/ppiankov/uscensus/internal/names"
)

// groupsResponse is the wire shape of groups.json
type groupsResponse struct {
	Groups []groupItem `json:"groups"`
}

type groupItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Variables   string `json:"variables"`
}

// variablesResponse is the wire shape of variables.json and groups/{code}.json
type variablesResponse struct {
	Variables map[string]variableItem `json:"variables"`
}

type variableItem struct {
	Label         string `json:"label"`
	Concept       string `json:"concept"`
	PredicateType string `json:"predicateType"`
	Group         string `json:"group"`
	Limit         int    `json:"limit"`
	PredicateOnly bool   `json:"predicateOnly"`
	Attributes    string `json:"attributes"`
}

// notAGroup marks pseudo variables such as "for", "in" and "ucgid"
const notAGroup = "N/A"

// ParseGroups decodes groups.json
func ParseGroups(raw json.RawMessage) ([]model.Group, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var resp groupsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode groups: %w", err)
	}
	if resp.Groups == nil {
		return nil, fmt.Errorf("decode groups: missing \"groups\" list")
	}

	groups := make([]model.Group, 0, len(resp.Groups))
	for i, g := range resp.Groups {
		if g.Name == "" {
			return nil, fmt.Errorf("decode groups: entry %d has no name", i)
		}
		groups = append(groups, model.Group{
			Code:        g.Name,
			Description: g.Description,
			CleanedName: names.Clean(g.Description),
		})
	}
	return groups, nil
}

// ParseVariables decodes a variables listing, sorted by code.
// Pseudo variables that belong to no group are skipped.
func ParseVariables(raw json.RawMessage) ([]model.GroupVariable, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var resp variablesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode variables: %w", err)
	}
	if resp.Variables == nil {
		return nil, fmt.Errorf("decode variables: missing \"variables\" object")
	}

	codes := make([]string, 0, len(resp.Variables))
	for code := range resp.Variables {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	vars := make([]model.GroupVariable, 0, len(codes))
	for _, code := range codes {
		v := resp.Variables[code]
		if v.Group == "" || v.Group == notAGroup {
			continue
		}
		if v.Label == "" {
			return nil, fmt.Errorf("decode variables: %s has no label", code)
		}
		vars = append(vars, model.GroupVariable{
			Code:          code,
			GroupCode:     v.Group,
			GroupConcept:  v.Concept,
			Name:          v.Label,
			CleanedName:   names.Clean(v.Label),
			Limit:         v.Limit,
			PredicateOnly: v.PredicateOnly,
			PredicateType: model.ParsePredicateType(v.PredicateType),
		})
	}
	return vars, nil
}
