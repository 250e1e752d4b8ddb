// Package variables fetches and caches the group and variable catalogs and
// keeps the name lookups used for discovery and stats column naming.
package variables

import (
	"context"
	"fmt"
	"io"
	"log"
	"regexp"
	"sync"

	"github.com/ppiankov/uscensus/internal/api"
	"github.com/ppiankov/uscensus/internal/cache"
	"github.com/ppiankov/uscensus/internal/model"
	"github.com/ppiankov/uscensus/internal/table"
)

const (
	groupsRoute       = "/groups.json"
	allVariablesRoute = "/variables.json"
)

func groupRoute(code string) string {
	return "/groups/" + code + ".json"
}

// Repository is the fetch-or-cache orchestrator for groups and variables
type Repository struct {
	fetcher api.Fetcher
	store   cache.Store
	memo    *cache.Memo
	logger  *log.Logger

	mu        sync.RWMutex
	groups    map[string]model.Group         // cleaned name -> group
	variables map[string]model.GroupVariable // cleaned name + "_" + group -> variable
	byCode    map[string]model.GroupVariable
}

// NewRepository creates a variable repository. logger may be nil.
func NewRepository(fetcher api.Fetcher, store cache.Store, logger *log.Logger) *Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Repository{
		fetcher:   fetcher,
		store:     store,
		memo:      cache.NewMemo(),
		logger:    logger,
		groups:    make(map[string]model.Group),
		variables: make(map[string]model.GroupVariable),
		byCode:    make(map[string]model.GroupVariable),
	}
}

// GetGroups returns the group catalog
func (r *Repository) GetGroups(ctx context.Context) (*table.Table, error) {
	key := cache.MemoKey("groups")
	if t, ok := r.memo.Get(key); ok {
		return t, nil
	}

	t, err := r.store.Get(cache.GroupsResource)
	if err != nil {
		return nil, fmt.Errorf("read groups cache: %w", err)
	}

	if t.IsEmpty() {
		raw, err := r.fetcher.Get(ctx, groupsRoute, nil)
		if err != nil {
			return nil, fmt.Errorf("fetch groups: %w", err)
		}
		groups, err := ParseGroups(raw)
		if err != nil {
			return nil, err
		}
		t = groupsTable(groups)
		if _, err := r.store.Put(cache.GroupsResource, t); err != nil {
			return nil, fmt.Errorf("write groups cache: %w", err)
		}
	}

	groups, err := groupsFromTable(t)
	if err != nil {
		return nil, fmt.Errorf("groups: %w", err)
	}
	r.mergeGroups(groups)

	r.memo.Set(key, t)
	return t, nil
}

// GetVariablesByGroup returns the variables of the given groups, one combined
// table in first-occurrence order of the deduplicated codes
func (r *Repository) GetVariablesByGroup(ctx context.Context, groupCodes ...string) (*table.Table, error) {
	codes := dedupe(groupCodes)

	key := cache.MemoKey("variablesByGroup", codes...)
	if t, ok := r.memo.Get(key); ok {
		return t, nil
	}

	combined := table.New(VariableColumns...)
	for _, code := range codes {
		t, err := r.variablesForGroup(ctx, code)
		if err != nil {
			return nil, err
		}
		sel, err := t.Select(VariableColumns...)
		if err != nil {
			return nil, fmt.Errorf("variables for %s: %w", code, err)
		}
		if err := combined.Concat(sel); err != nil {
			return nil, fmt.Errorf("variables for %s: %w", code, err)
		}
	}

	vars, err := variablesFromTable(combined)
	if err != nil {
		return nil, err
	}
	r.mergeVariables(vars)

	r.memo.Set(key, combined)
	return combined, nil
}

// variablesForGroup is the cache-aside read for one group
func (r *Repository) variablesForGroup(ctx context.Context, code string) (*table.Table, error) {
	key := cache.MemoKey("variables", code)
	if t, ok := r.memo.Get(key); ok {
		return t, nil
	}

	resource := cache.VariablesResource(code)
	t, err := r.store.Get(resource)
	if err != nil {
		return nil, fmt.Errorf("read variables cache for %s: %w", code, err)
	}

	if t.IsEmpty() {
		raw, err := r.fetcher.Get(ctx, groupRoute(code), nil)
		if err != nil {
			return nil, fmt.Errorf("fetch variables for %s: %w", code, err)
		}
		vars, err := ParseVariables(raw)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", code, err)
		}
		t = variablesTable(vars)
		if _, err := r.store.Put(resource, t); err != nil {
			return nil, fmt.Errorf("write variables cache for %s: %w", code, err)
		}
	}

	r.memo.Set(key, t)
	return t, nil
}

// GetAllVariables fetches the full variable catalog in one call and writes
// each group to the cache where it is not cached yet
func (r *Repository) GetAllVariables(ctx context.Context) (*table.Table, error) {
	key := cache.MemoKey("allVariables")
	if t, ok := r.memo.Get(key); ok {
		return t, nil
	}

	raw, err := r.fetcher.Get(ctx, allVariablesRoute, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch all variables: %w", err)
	}
	vars, err := ParseVariables(raw)
	if err != nil {
		return nil, err
	}

	var order []string
	byGroup := make(map[string][]model.GroupVariable)
	for _, v := range vars {
		if _, ok := byGroup[v.GroupCode]; !ok {
			order = append(order, v.GroupCode)
		}
		byGroup[v.GroupCode] = append(byGroup[v.GroupCode], v)
	}

	written := 0
	for _, code := range order {
		gt := variablesTable(byGroup[code])
		ok, err := r.store.Put(cache.VariablesResource(code), gt)
		if err != nil {
			return nil, fmt.Errorf("write variables cache for %s: %w", code, err)
		}
		if ok {
			written++
		}
		r.memo.Set(cache.MemoKey("variables", code), gt)
	}
	r.logger.Printf("[variables] %d groups, %d newly cached", len(order), written)

	// the lookup is populated whether or not a group was already cached
	r.mergeVariables(vars)

	t := variablesTable(vars)
	r.memo.Set(key, t)
	return t, nil
}

// SearchGroups returns groups whose description or cleaned name matches the
// case-insensitive pattern
func (r *Repository) SearchGroups(ctx context.Context, pattern string) (*table.Table, error) {
	re, err := compile(pattern)
	if err != nil {
		return nil, err
	}

	t, err := r.GetGroups(ctx)
	if err != nil {
		return nil, err
	}
	return t.Filter(func(i int) bool {
		return re.MatchString(t.String(i, "description")) || re.MatchString(t.String(i, "cleanedName"))
	}), nil
}

// SearchVariables returns variables whose label or cleaned name matches the
// case-insensitive pattern, within the given groups or the whole catalog
func (r *Repository) SearchVariables(ctx context.Context, pattern string, groupCodes ...string) (*table.Table, error) {
	re, err := compile(pattern)
	if err != nil {
		return nil, err
	}

	var t *table.Table
	if len(groupCodes) > 0 {
		t, err = r.GetVariablesByGroup(ctx, groupCodes...)
	} else {
		t, err = r.GetAllVariables(ctx)
	}
	if err != nil {
		return nil, err
	}
	return t.Filter(func(i int) bool {
		return re.MatchString(t.String(i, "name")) || re.MatchString(t.String(i, "cleanedName"))
	}), nil
}

func compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern %q: %w", pattern, err)
	}
	return re, nil
}

// mergeGroups adds groups to the GroupSet. The first group to claim a
// cleaned name keeps it; a different group cleaning to the same name is
// stored under "{cleanedName}_{code}".
func (r *Repository) mergeGroups(groups []model.Group) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, g := range groups {
		key := g.CleanedName
		if existing, ok := r.groups[key]; ok && existing.Code != g.Code {
			key = g.CleanedName + "_" + g.Code
			if _, seen := r.groups[key]; !seen {
				r.logger.Printf("[variables] group name %q already used by %s, storing %s as %q",
					g.CleanedName, existing.Code, g.Code, key)
			}
		}
		r.groups[key] = g
	}
}

func (r *Repository) mergeVariables(vars []model.GroupVariable) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range vars {
		r.variables[v.LookupKey()] = v
		r.byCode[v.Code] = v
	}
}

// Groups returns a snapshot of the GroupSet
func (r *Repository) Groups() map[string]model.Group {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]model.Group, len(r.groups))
	for k, v := range r.groups {
		out[k] = v
	}
	return out
}

// Variables returns a snapshot of the VariableSet
func (r *Repository) Variables() map[string]model.GroupVariable {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]model.GroupVariable, len(r.variables))
	for k, v := range r.variables {
		out[k] = v
	}
	return out
}

// Variable looks up a loaded variable by its code
func (r *Repository) Variable(code string) (model.GroupVariable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.byCode[code]
	return v, ok
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
