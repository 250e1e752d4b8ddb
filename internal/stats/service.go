// Package stats turns variable codes and geography domains into batched API
// calls and assembles one result table.
package stats

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ppiankov/uscensus/internal/api"
	"github.com/ppiankov/uscensus/internal/geography"
	"github.com/ppiankov/uscensus/internal/model"
	"github.com/ppiankov/uscensus/internal/table"
	"github.com/ppiankov/uscensus/internal/worker"
)

// NameColumn is always requested alongside the variables
const NameColumn = "NAME"

// MaxFields is the most fields the API accepts in one get=
const MaxFields = 50

// VariableLookup resolves variable codes loaded by the variable repository
type VariableLookup interface {
	Variable(code string) (model.GroupVariable, bool)
}

// HierarchySorter orders geography column names from broadest to narrowest
type HierarchySorter interface {
	SortNamesByHierarchy(ctx context.Context, names []string) ([]string, error)
}

// Request describes one stats query
type Request struct {
	VariableCodes []string
	For           model.GeoDomain
	In            []model.GeoDomain
	RenameColumns bool // use display names instead of variable codes
}

// Service fetches and assembles statistics
type Service struct {
	fetcher   api.Fetcher
	variables VariableLookup
	geography HierarchySorter
	workers   int
	batchSize int
}

// NewService creates a stats service fanning batches out to workers
func NewService(fetcher api.Fetcher, variables VariableLookup, geo HierarchySorter, workers int) *Service {
	return &Service{
		fetcher:   fetcher,
		variables: variables,
		geography: geo,
		workers:   workers,
		batchSize: MaxFields - 1,
	}
}

// GetStats fetches the requested variables for the geography and returns
// NAME, the geography columns (broadest first) and the variables in query order
func (s *Service) GetStats(ctx context.Context, req Request) (*table.Table, error) {
	codes := dedupe(req.VariableCodes)
	if len(codes) == 0 {
		return nil, errors.New("no variable codes requested")
	}

	vars, err := s.resolve(codes)
	if err != nil {
		return nil, err
	}

	batches := worker.Partition(codes, s.batchSize)
	processor := worker.NewBatchProcessor(&batchFetcher{service: s, forDomain: req.For, inDomains: req.In}, s.workers)
	results := processor.Process(ctx, batches)

	tables := make([]*table.Table, len(results))
	for i, res := range results {
		if res.Error != nil {
			return nil, fmt.Errorf("stats batch %d: %w", i+1, res.Error)
		}
		if res.Table.IsEmpty() {
			return table.New(), nil
		}
		tables[i] = res.Table
	}

	merged, geoCols, err := merge(tables, codes)
	if err != nil {
		return nil, err
	}

	sortedGeo, err := s.geography.SortNamesByHierarchy(ctx, geoCols)
	if err != nil {
		return nil, fmt.Errorf("sort geography columns: %w", err)
	}

	columns := append(append([]string{NameColumn}, sortedGeo...), codes...)
	out, err := merged.Select(columns...)
	if err != nil {
		return nil, fmt.Errorf("reorder columns: %w", err)
	}

	for _, v := range vars {
		if v.PredicateType.IsNumeric() {
			out.Apply(v.Code, toFloat)
		}
	}

	if req.RenameColumns {
		out = out.Rename(DisplayNames(vars))
	}
	return out, nil
}

// resolve looks every code up in the repository; any miss is an error
func (s *Service) resolve(codes []string) ([]model.GroupVariable, error) {
	vars := make([]model.GroupVariable, 0, len(codes))
	var missing []string
	for _, code := range codes {
		v, ok := s.variables.Variable(code)
		if !ok {
			missing = append(missing, code)
			continue
		}
		vars = append(vars, v)
	}
	if len(missing) > 0 {
		return nil, &RepositoryError{Requested: len(codes), Found: len(vars), Missing: missing}
	}
	return vars, nil
}

// batchFetcher requests one batch of codes for a fixed geography
type batchFetcher struct {
	service   *Service
	forDomain model.GeoDomain
	inDomains []model.GeoDomain
}

func (b *batchFetcher) FetchBatch(ctx context.Context, codes []string) (*table.Table, error) {
	params := url.Values{}
	params.Set("get", strings.Join(append([]string{NameColumn}, codes...), ","))
	params.Set("for", b.forDomain.String())
	if in := geography.InClause(b.inDomains); in != "" {
		params.Set("in", in)
	}

	raw, err := b.service.fetcher.Get(ctx, "", params)
	if err != nil {
		return nil, err
	}
	return api.DecodeRecords(raw)
}

// merge inner-joins the batch tables on their shared geography columns
func merge(tables []*table.Table, codes []string) (*table.Table, []string, error) {
	isCode := make(map[string]bool, len(codes))
	for _, c := range codes {
		isCode[c] = true
	}

	var geoCols []string
	for _, c := range tables[0].Columns() {
		if c != NameColumn && !isCode[c] {
			geoCols = append(geoCols, c)
		}
	}

	merged := tables[0]
	for i, t := range tables[1:] {
		joined, err := merged.InnerJoin(t, geoCols...)
		if err != nil {
			return nil, nil, fmt.Errorf("merge batch %d: %w", i+2, err)
		}
		merged = joined
	}
	return merged, geoCols, nil
}

// DisplayNames maps codes to cleaned variable names. Once any two names
// collide, every name is suffixed with its group code.
func DisplayNames(vars []model.GroupVariable) map[string]string {
	counts := make(map[string]int, len(vars))
	for _, v := range vars {
		counts[v.CleanedName]++
	}

	collision := false
	for _, n := range counts {
		if n > 1 {
			collision = true
			break
		}
	}

	out := make(map[string]string, len(vars))
	for _, v := range vars {
		if collision {
			out[v.Code] = v.CleanedName + "_" + v.GroupCode
		} else {
			out[v.Code] = v.CleanedName
		}
	}

	// same name within one group still collides
	seen := make(map[string]int, len(out))
	for _, n := range out {
		seen[n]++
	}
	for _, v := range vars {
		if seen[out[v.Code]] > 1 {
			out[v.Code] = out[v.Code] + "_" + v.Code
		}
	}
	return out
}

// toFloat parses numeric cells; missing or unparsable cells become nil
func toFloat(v any) any {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		return f
	default:
		return nil
	}
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
