package geography

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/ppiankov/uscensus/internal/api"
	"github.com/ppiankov/uscensus/internal/cache"
	"github.com/ppiankov/uscensus/internal/model"
	"github.com/ppiankov/uscensus/internal/table"
)

const geographyRoute = "/geography.json"

// inSeparator joins in-clauses in the cached supported-geographies table
const inSeparator = ";"

// Supported geographies table columns
var supportedColumns = []string{"name", "hierarchy", "for", "in"}

// Repository serves supported-geography metadata (cache-aside) and live
// geography code listings
type Repository struct {
	fetcher api.Fetcher
	store   cache.Store
	memo    *cache.Memo

	mu        sync.RWMutex
	supported map[string]model.SupportedGeography
}

// NewRepository creates a geography repository
func NewRepository(fetcher api.Fetcher, store cache.Store) *Repository {
	return &Repository{
		fetcher:   fetcher,
		store:     store,
		memo:      cache.NewMemo(),
		supported: make(map[string]model.SupportedGeography),
	}
}

// geographyResponse is the wire shape of geography.json
type geographyResponse struct {
	Fips []geographyItem `json:"fips"`
}

type geographyItem struct {
	Name              string   `json:"name"`
	GeoLevelDisplay   string   `json:"geoLevelDisplay"`
	ReferenceDate     string   `json:"referenceDate"`
	Requires          []string `json:"requires"`
	Wildcard          []string `json:"wildcard"`
	OptionalWithWCFor string   `json:"optionalWithWCFor"`
}

// ParseRequirements decodes geography.json into requirements, failing on
// missing fields
func ParseRequirements(raw json.RawMessage) ([]model.GeographyRequirement, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var resp geographyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode geography: %w", err)
	}
	if resp.Fips == nil {
		return nil, fmt.Errorf("decode geography: missing \"fips\" list")
	}

	reqs := make([]model.GeographyRequirement, 0, len(resp.Fips))
	for i, item := range resp.Fips {
		if item.Name == "" {
			return nil, fmt.Errorf("decode geography: entry %d has no name", i)
		}
		reqs = append(reqs, model.GeographyRequirement{
			Name:                    item.Name,
			DisplayHierarchy:        item.GeoLevelDisplay,
			RequiredParentNames:     item.Requires,
			WildcardableParentNames: item.Wildcard,
		})
	}
	return reqs, nil
}

// BuildSupportedTable runs every requirement through the clause deriver and
// lays out one row per clause set, sorted by display hierarchy
func BuildSupportedTable(reqs []model.GeographyRequirement) *table.Table {
	sorted := append([]model.GeographyRequirement(nil), reqs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DisplayHierarchy < sorted[j].DisplayHierarchy
	})

	t := table.New(supportedColumns...)
	for _, req := range sorted {
		for _, c := range DeriveClauses(req) {
			t.Append(req.Name, req.DisplayHierarchy, c.For, strings.Join(c.In, inSeparator))
		}
	}
	return t
}

// SupportedGeographies returns the supported geographies table, reading the
// cache first and fetching geography.json on a miss
func (r *Repository) SupportedGeographies(ctx context.Context) (*table.Table, error) {
	key := cache.MemoKey("supportedGeographies")
	if t, ok := r.memo.Get(key); ok {
		return t, nil
	}

	t, err := r.store.Get(cache.SupportedGeographiesResource)
	if err != nil {
		return nil, fmt.Errorf("read supported geographies cache: %w", err)
	}

	if t.IsEmpty() {
		raw, err := r.fetcher.Get(ctx, geographyRoute, nil)
		if err != nil {
			return nil, fmt.Errorf("fetch supported geographies: %w", err)
		}
		reqs, err := ParseRequirements(raw)
		if err != nil {
			return nil, err
		}
		t = BuildSupportedTable(reqs)
		if _, err := r.store.Put(cache.SupportedGeographiesResource, t); err != nil {
			return nil, fmt.Errorf("write supported geographies cache: %w", err)
		}
	}

	if err := r.merge(t); err != nil {
		return nil, err
	}
	r.memo.Set(key, t)
	return t, nil
}

// merge folds the table rows into the SupportedGeoSet
func (r *Repository) merge(t *table.Table) error {
	for _, c := range supportedColumns {
		if !t.HasColumn(c) {
			return fmt.Errorf("supported geographies table missing column %q", c)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fresh := make(map[string]model.SupportedGeography)
	for i := 0; i < t.Len(); i++ {
		name := t.String(i, "name")
		g, ok := fresh[name]
		if !ok {
			g = model.SupportedGeography{Name: name, Hierarchy: t.String(i, "hierarchy")}
		}
		var in []string
		if s := t.String(i, "in"); s != "" {
			in = strings.Split(s, inSeparator)
		}
		g.Clauses = append(g.Clauses, model.NewGeographyClauseSet(t.String(i, "for"), in...))
		fresh[name] = g
	}
	for name, g := range fresh {
		r.supported[name] = g
	}
	return nil
}

// SupportedGeoSet returns a snapshot of the levels loaded so far, keyed by name
func (r *Repository) SupportedGeoSet() map[string]model.SupportedGeography {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]model.SupportedGeography, len(r.supported))
	for k, v := range r.supported {
		out[k] = v
	}
	return out
}

// GeographyCodes lists the codes of forDomain within inDomains. Listings are
// always fetched live.
func (r *Repository) GeographyCodes(ctx context.Context, forDomain model.GeoDomain, inDomains ...model.GeoDomain) (*table.Table, error) {
	params := url.Values{}
	params.Set("get", "NAME")
	params.Set("for", forDomain.String())
	if in := InClause(inDomains); in != "" {
		params.Set("in", in)
	}

	raw, err := r.fetcher.Get(ctx, "", params)
	if err != nil {
		return nil, fmt.Errorf("fetch geography codes for %s: %w", forDomain, err)
	}

	t, err := api.DecodeRecords(raw)
	if err != nil {
		return nil, err
	}

	var geoCols []string
	for _, c := range t.Columns() {
		if c != "NAME" {
			geoCols = append(geoCols, c)
		}
	}
	t.SortBy(geoCols...)
	return t, nil
}

// InClause renders deduplicated in-domains as a single in= value
func InClause(inDomains []model.GeoDomain) string {
	seen := make(map[model.GeoDomain]bool, len(inDomains))
	var parts []string
	for _, d := range inDomains {
		if seen[d] {
			continue
		}
		seen[d] = true
		parts = append(parts, d.String())
	}
	return strings.Join(parts, " ")
}

// SortByHierarchy orders domains from broadest to narrowest using the
// supported geographies' display hierarchy. Unknown levels keep their
// relative order after the known ones.
func (r *Repository) SortByHierarchy(ctx context.Context, domains []model.GeoDomain) ([]model.GeoDomain, error) {
	names := make([]string, len(domains))
	for i, d := range domains {
		names[i] = d.Name
	}
	rank, err := r.hierarchyRank(ctx, names)
	if err != nil {
		return nil, err
	}

	out := append([]model.GeoDomain(nil), domains...)
	sort.SliceStable(out, func(i, j int) bool {
		return lessRank(rank, out[i].Name, out[j].Name)
	})
	return out, nil
}

// SortNamesByHierarchy orders geography column names from broadest to narrowest
func (r *Repository) SortNamesByHierarchy(ctx context.Context, names []string) ([]string, error) {
	rank, err := r.hierarchyRank(ctx, names)
	if err != nil {
		return nil, err
	}

	out := append([]string(nil), names...)
	sort.SliceStable(out, func(i, j int) bool {
		return lessRank(rank, out[i], out[j])
	})
	return out, nil
}

func (r *Repository) hierarchyRank(ctx context.Context, names []string) (map[string]string, error) {
	if _, err := r.SupportedGeographies(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rank := make(map[string]string, len(names))
	for _, n := range names {
		if g, ok := r.supported[n]; ok {
			rank[n] = g.Hierarchy
		}
	}
	return rank, nil
}

func lessRank(rank map[string]string, a, b string) bool {
	ra, okA := rank[a]
	rb, okB := rank[b]
	switch {
	case okA && okB:
		return ra < rb
	case okA:
		return true
	default:
		return false
	}
}
