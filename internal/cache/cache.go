package cache

import (
	"github.com/ppiankov/uscensus/internal/table"
)

// Store defines persistence of named tables (e.g. "groups.csv", "variables/B17015.csv")
type Store interface {
	// Put writes the table once. It reports false when caching is disabled
	// or the resource already exists.
	Put(resource string, t *table.Table) (bool, error)

	// Get returns the stored table, or an empty table when the cache is
	// disabled, not trusted for reads, or has no such resource.
	Get(resource string) (*table.Table, error)
}

// Resource names used by the repositories
const (
	GroupsResource               = "groups.csv"
	SupportedGeographiesResource = "supportedGeographies.csv"
)

// VariablesResource is the per-group variables resource
func VariablesResource(groupCode string) string {
	return "variables/" + groupCode + ".csv"
}
