package variables

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/ppiankov/uscensus/internal/api"
	"github.com/ppiankov/uscensus/internal/cache"
	"github.com/ppiankov/uscensus/internal/model"
)

// fakeFetcher serves canned JSON per route and records every call
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []string
}

func (f *fakeFetcher) Get(ctx context.Context, route string, params url.Values) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, route)
	body, ok := f.responses[route]
	if !ok {
		return nil, &api.StatusError{Provider: "census", Route: route, StatusCode: 404}
	}
	return json.RawMessage(body), nil
}

func (f *fakeFetcher) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == route {
			n++
		}
	}
	return n
}

const groupsJSON = `{"groups":[
 {"name":"B17015","description":"POVERTY STATUS IN THE PAST 12 MONTHS OF FAMILIES BY FAMILY TYPE BY SOCIAL SECURITY INCOME BY SUPPLEMENTAL SECURITY INCOME (SSI) AND CASH PUBLIC ASSISTANCE INCOME","variables":"https://api.census.gov/data/2019/acs/acs1/groups/B17015.json"},
 {"name":"B18104","description":"SEX BY AGE BY COGNITIVE DIFFICULTY","variables":"https://api.census.gov/data/2019/acs/acs1/groups/B18104.json"}
]}`

const b17015JSON = `{"variables":{
 "B17015_001E":{"label":"Estimate!!Total:","concept":"POVERTY STATUS","predicateType":"int","group":"B17015","limit":0,"predicateOnly":true},
 "B17015_002E":{"label":"Estimate!!Total:!!Income in the past 12 months below poverty level:","concept":"POVERTY STATUS","predicateType":"int","group":"B17015","limit":0,"predicateOnly":true}
}}`

const b18104JSON = `{"variables":{
 "B18104_001E":{"label":"Estimate!!Total:","concept":"SEX BY AGE BY COGNITIVE DIFFICULTY","predicateType":"int","group":"B18104","limit":0,"predicateOnly":true},
 "B18104_001EA":{"label":"Annotation of Estimate!!Total:","concept":"SEX BY AGE BY COGNITIVE DIFFICULTY","predicateType":"string","group":"B18104","limit":0,"predicateOnly":true}
}}`

const allVariablesJSON = `{"variables":{
 "for":{"label":"Census API FIPS 'for' clause","concept":"Census API Geography Specification","predicateType":"fips-for","group":"N/A","limit":0,"predicateOnly":true},
 "B17015_001E":{"label":"Estimate!!Total:","concept":"POVERTY STATUS","predicateType":"int","group":"B17015","limit":0,"predicateOnly":true},
 "B18104_001E":{"label":"Estimate!!Total:","concept":"SEX BY AGE BY COGNITIVE DIFFICULTY","predicateType":"int","group":"B18104","limit":0,"predicateOnly":true}
}}`

func newFetcher() *fakeFetcher {
	return &fakeFetcher{responses: map[string]string{
		groupsRoute:          groupsJSON,
		groupRoute("B17015"): b17015JSON,
		groupRoute("B18104"): b18104JSON,
		allVariablesRoute:    allVariablesJSON,
	}}
}

func newStore(t *testing.T, cfg model.CacheConfig) *cache.DiskCache {
	t.Helper()
	store, err := cache.NewDiskCache(cfg, model.Dataset{Year: 2019, DatasetType: "acs", SurveyType: "acs1"})
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	return store
}

func TestGetGroups(t *testing.T) {
	f := newFetcher()
	repo := NewRepository(f, newStore(t, model.CacheConfig{Dir: t.TempDir(), OnDisk: true, LoadExisting: true}), nil)

	tb, err := repo.GetGroups(context.Background())
	if err != nil {
		t.Fatalf("GetGroups failed: %v", err)
	}
	if tb.Len() != 2 {
		t.Fatalf("expected 2 groups, got %d", tb.Len())
	}

	groups := repo.Groups()
	var poverty string
	for k, g := range groups {
		if strings.HasPrefix(k, "PovertyStatus") {
			poverty = g.Code
		}
	}
	if poverty != "B17015" {
		t.Errorf("expected PovertyStatus... -> B17015, got %q (%v)", poverty, groups)
	}
	if g := groups["SexByAgeByCognitiveDifficulty"]; g.Code != "B18104" {
		t.Errorf("expected SexByAgeByCognitiveDifficulty -> B18104, got %+v", g)
	}
}

func TestGetGroups_CacheAside(t *testing.T) {
	cfg := model.CacheConfig{Dir: t.TempDir(), OnDisk: true, LoadExisting: true}

	first := newFetcher()
	if _, err := NewRepository(first, newStore(t, cfg), nil).GetGroups(context.Background()); err != nil {
		t.Fatalf("GetGroups failed: %v", err)
	}
	if n := first.count(groupsRoute); n != 1 {
		t.Fatalf("expected 1 fetch, got %d", n)
	}

	second := newFetcher()
	repo := NewRepository(second, newStore(t, cfg), nil)
	tb, err := repo.GetGroups(context.Background())
	if err != nil {
		t.Fatalf("GetGroups failed: %v", err)
	}
	if len(second.calls) != 0 {
		t.Errorf("expected cache hit, got calls %v", second.calls)
	}
	if tb.Len() != 2 || len(repo.Groups()) != 2 {
		t.Errorf("expected cached groups to populate lookup, got %d rows, %d keys", tb.Len(), len(repo.Groups()))
	}
}

func TestGetGroups_NameCollision(t *testing.T) {
	f := &fakeFetcher{responses: map[string]string{groupsRoute: `{"groups":[
		{"name":"B01001","description":"SEX BY AGE"},
		{"name":"B01001A","description":"Sex by age"}
	]}`}}

	var buf bytes.Buffer
	repo := NewRepository(f, newStore(t, model.CacheConfig{OnDisk: false}), log.New(&buf, "", 0))

	if _, err := repo.GetGroups(context.Background()); err != nil {
		t.Fatalf("GetGroups failed: %v", err)
	}

	groups := repo.Groups()
	if groups["SexByAge"].Code != "B01001" {
		t.Errorf("expected first group to keep the bare name, got %+v", groups["SexByAge"])
	}
	if groups["SexByAge_B01001A"].Code != "B01001A" {
		t.Errorf("expected colliding group to be suffixed, got %v", groups)
	}
	if !strings.Contains(buf.String(), "already used") {
		t.Errorf("expected collision warning, got %q", buf.String())
	}
}

func TestGetVariablesByGroup_Dedup(t *testing.T) {
	f := newFetcher()
	repo := NewRepository(f, newStore(t, model.CacheConfig{OnDisk: false}), nil)

	tb, err := repo.GetVariablesByGroup(context.Background(), "B17015", "B17015", "B18104")
	if err != nil {
		t.Fatalf("GetVariablesByGroup failed: %v", err)
	}

	if n := f.count(groupRoute("B17015")); n != 1 {
		t.Errorf("expected 1 fetch for B17015, got %d", n)
	}
	if n := f.count(groupRoute("B18104")); n != 1 {
		t.Errorf("expected 1 fetch for B18104, got %d", n)
	}
	if tb.Len() != 4 {
		t.Errorf("expected 4 variables, got %d", tb.Len())
	}
	if tb.String(0, "groupCode") != "B17015" || tb.String(3, "groupCode") != "B18104" {
		t.Errorf("expected first-occurrence group order, got %v", tb.ColumnValues("groupCode"))
	}

	vars := repo.Variables()
	if vars["Estimate_Total_B17015"].Code != "B17015_001E" {
		t.Errorf("expected Estimate_Total_B17015 lookup, got %+v", vars["Estimate_Total_B17015"])
	}
	if vars["Estimate_Total_B18104"].Code != "B18104_001E" {
		t.Errorf("expected Estimate_Total_B18104 lookup, got %+v", vars["Estimate_Total_B18104"])
	}

	// memoized per group across different argument tuples
	if _, err := repo.GetVariablesByGroup(context.Background(), "B18104"); err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if n := f.count(groupRoute("B18104")); n != 1 {
		t.Errorf("expected memoized B18104, got %d fetches", n)
	}
}

func TestGetVariablesByGroup_FromCache(t *testing.T) {
	cfg := model.CacheConfig{Dir: t.TempDir(), OnDisk: true, LoadExisting: true}

	if _, err := NewRepository(newFetcher(), newStore(t, cfg), nil).GetVariablesByGroup(context.Background(), "B17015"); err != nil {
		t.Fatalf("warm-up failed: %v", err)
	}

	f := newFetcher()
	repo := NewRepository(f, newStore(t, cfg), nil)
	if _, err := repo.GetVariablesByGroup(context.Background(), "B17015"); err != nil {
		t.Fatalf("GetVariablesByGroup failed: %v", err)
	}
	if len(f.calls) != 0 {
		t.Errorf("expected cache hit, got calls %v", f.calls)
	}

	v, ok := repo.Variable("B17015_001E")
	if !ok {
		t.Fatal("expected cached variable in lookup")
	}
	if v.PredicateType != model.PredicateInt || !v.PredicateOnly {
		t.Errorf("types not restored from cache: %+v", v)
	}
}

func TestGetVariablesByGroup_NotFound(t *testing.T) {
	repo := NewRepository(newFetcher(), newStore(t, model.CacheConfig{OnDisk: false}), nil)

	_, err := repo.GetVariablesByGroup(context.Background(), "B99999")
	if !errors.Is(err, api.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetAllVariables(t *testing.T) {
	cfg := model.CacheConfig{Dir: t.TempDir(), OnDisk: true, LoadExisting: true}
	store := newStore(t, cfg)

	// B17015 already cached by an earlier run
	if _, err := NewRepository(newFetcher(), store, nil).GetVariablesByGroup(context.Background(), "B17015"); err != nil {
		t.Fatalf("warm-up failed: %v", err)
	}

	f := newFetcher()
	repo := NewRepository(f, store, nil)
	tb, err := repo.GetAllVariables(context.Background())
	if err != nil {
		t.Fatalf("GetAllVariables failed: %v", err)
	}

	if tb.Len() != 2 {
		t.Errorf("expected 2 variables (pseudo variables skipped), got %d", tb.Len())
	}
	if n := f.count(allVariablesRoute); n != 1 {
		t.Errorf("expected a single catalog fetch, got %d", n)
	}

	// lookup is complete even for the group that was already cached
	if _, ok := repo.Variable("B17015_001E"); !ok {
		t.Error("expected B17015_001E in lookup")
	}
	if _, ok := repo.Variable("B18104_001E"); !ok {
		t.Error("expected B18104_001E in lookup")
	}

	// the already cached group was not overwritten
	cached, err := store.Get(cache.VariablesResource("B17015"))
	if err != nil {
		t.Fatalf("cache read failed: %v", err)
	}
	if cached.Len() != 2 {
		t.Errorf("expected original 2-row cache for B17015, got %d rows", cached.Len())
	}

	// per-group reads are served from the memo
	if _, err := repo.GetVariablesByGroup(context.Background(), "B18104"); err != nil {
		t.Fatalf("GetVariablesByGroup failed: %v", err)
	}
	if n := f.count(groupRoute("B18104")); n != 0 {
		t.Errorf("expected no per-group fetch after GetAllVariables, got %d", n)
	}
}

func TestSearch(t *testing.T) {
	repo := NewRepository(newFetcher(), newStore(t, model.CacheConfig{OnDisk: false}), nil)

	groups, err := repo.SearchGroups(context.Background(), "cognitive")
	if err != nil {
		t.Fatalf("SearchGroups failed: %v", err)
	}
	if groups.Len() != 1 || groups.String(0, "code") != "B18104" {
		t.Errorf("unexpected search result %v", groups.ColumnValues("code"))
	}

	vars, err := repo.SearchVariables(context.Background(), "below poverty", "B17015")
	if err != nil {
		t.Fatalf("SearchVariables failed: %v", err)
	}
	if vars.Len() != 1 || vars.String(0, "code") != "B17015_002E" {
		t.Errorf("unexpected search result %v", vars.ColumnValues("code"))
	}

	all, err := repo.SearchVariables(context.Background(), "^Estimate_Total$")
	if err != nil {
		t.Fatalf("SearchVariables failed: %v", err)
	}
	if all.Len() != 2 {
		t.Errorf("expected 2 matches across the catalog, got %d", all.Len())
	}

	if _, err := repo.SearchGroups(context.Background(), "("); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestParseVariables_Invalid(t *testing.T) {
	cases := []string{
		`{"groups":[]}`,
		`{"variables":{"B1_001E":{"group":"B1"}}}`,
		`[]`,
	}
	for _, c := range cases {
		if _, err := ParseVariables(json.RawMessage(c)); err == nil {
			t.Errorf("expected error for %s", c)
		}
	}
}
