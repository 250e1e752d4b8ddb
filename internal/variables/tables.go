package variables

import (
	"fmt"
	"strconv"

	"github.com/ppiankov/uscensus/internal/model"
	"github.com/ppiankov/uscensus/internal/table"
)

// GroupColumns is the layout of the groups table
var GroupColumns = []string{"code", "description", "cleanedName"}

// VariableColumns is the layout of the variables tables
var VariableColumns = []string{"code", "groupCode", "groupConcept", "name", "cleanedName", "limit", "predicateOnly", "predicateType"}

func groupsTable(groups []model.Group) *table.Table {
	t := table.New(GroupColumns...)
	for _, g := range groups {
		t.Append(g.Code, g.Description, g.CleanedName)
	}
	return t
}

func variablesTable(vars []model.GroupVariable) *table.Table {
	t := table.New(VariableColumns...)
	for _, v := range vars {
		t.Append(v.Code, v.GroupCode, v.GroupConcept, v.Name, v.CleanedName, v.Limit, v.PredicateOnly, string(v.PredicateType))
	}
	return t
}

func requireColumns(t *table.Table, cols []string) error {
	for _, c := range cols {
		if !t.HasColumn(c) {
			return fmt.Errorf("table missing column %q", c)
		}
	}
	return nil
}

func groupsFromTable(t *table.Table) ([]model.Group, error) {
	if err := requireColumns(t, GroupColumns); err != nil {
		return nil, err
	}
	out := make([]model.Group, t.Len())
	for i := range out {
		out[i] = model.Group{
			Code:        t.String(i, "code"),
			Description: t.String(i, "description"),
			CleanedName: t.String(i, "cleanedName"),
		}
	}
	return out, nil
}

// variablesFromTable reads both freshly built and CSV-restored tables
func variablesFromTable(t *table.Table) ([]model.GroupVariable, error) {
	if err := requireColumns(t, VariableColumns); err != nil {
		return nil, err
	}
	out := make([]model.GroupVariable, t.Len())
	for i := range out {
		limit := 0
		if s := t.String(i, "limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad limit %q: %w", i, s, err)
			}
			limit = n
		}
		predicateOnly, _ := strconv.ParseBool(t.String(i, "predicateOnly"))
		out[i] = model.GroupVariable{
			Code:          t.String(i, "code"),
			GroupCode:     t.String(i, "groupCode"),
			GroupConcept:  t.String(i, "groupConcept"),
			Name:          t.String(i, "name"),
			CleanedName:   t.String(i, "cleanedName"),
			Limit:         limit,
			PredicateOnly: predicateOnly,
			PredicateType: model.ParsePredicateType(t.String(i, "predicateType")),
		}
	}
	return out, nil
}
