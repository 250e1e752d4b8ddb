// Package census is the entry point of the library. Client composes the
// variable and geography repositories, the statistics service and the
// Congress client for one dataset.
package census

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/ppiankov/uscensus/internal/api"
	"github.com/ppiankov/uscensus/internal/cache"
	"github.com/ppiankov/uscensus/internal/congress"
	"github.com/ppiankov/uscensus/internal/geography"
	"github.com/ppiankov/uscensus/internal/model"
	"github.com/ppiankov/uscensus/internal/stats"
	"github.com/ppiankov/uscensus/internal/table"
	"github.com/ppiankov/uscensus/internal/variables"
	"github.com/ppiankov/uscensus/internal/worker"
)

// Client answers discovery and statistics queries for one dataset
type Client struct {
	cfg       *model.Config
	store     *cache.DiskCache
	variables *variables.Repository
	geography *geography.Repository
	stats     *stats.Service
	congress  *congress.Client
	logger    *log.Logger
}

// Option customizes a Client
type Option func(*options)

type options struct {
	fetcher api.Fetcher
	logger  *log.Logger
}

// WithFetcher replaces the HTTP fetcher, mainly for tests
func WithFetcher(f api.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithLogger sets the logger for requests and repository warnings
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New validates the configuration and wires a client.
// It fails with model.ErrMissingAPIKey before anything is fetched.
func New(cfg *model.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = api.NewLogger(cfg.Verbose)
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	// ProPublica allows 5000 requests a day; stay well under a burst
	if u, err := url.Parse(cfg.HTTP.CongressBaseURL); err == nil && u.Host != "" {
		limiter.SetHostRate(u.Host, 2, 1)
	}

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = api.NewClient(cfg, limiter, o.logger)
	}

	store, err := cache.NewDiskCache(cfg.Cache, cfg.Dataset)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	geo := geography.NewRepository(fetcher, store)
	vars := variables.NewRepository(fetcher, store, o.logger)

	workers := cfg.Concurrency.Workers
	if workers < 1 {
		workers = 1
	}

	return &Client{
		cfg:       cfg,
		store:     store,
		variables: vars,
		geography: geo,
		stats:     stats.NewService(fetcher, vars, geo, workers),
		congress:  congress.NewClient(cfg, limiter, o.logger),
		logger:    o.logger,
	}, nil
}

// Dataset returns the dataset the client is scoped to
func (c *Client) Dataset() model.Dataset {
	return c.cfg.Dataset
}

// CacheDir returns the dataset-scoped cache directory
func (c *Client) CacheDir() string {
	return c.store.Dir()
}

// GetGroups lists every group of the dataset
func (c *Client) GetGroups(ctx context.Context) (*table.Table, error) {
	return c.variables.GetGroups(ctx)
}

// GetVariablesByGroup lists the variables of the given groups
func (c *Client) GetVariablesByGroup(ctx context.Context, groupCodes ...string) (*table.Table, error) {
	return c.variables.GetVariablesByGroup(ctx, groupCodes...)
}

// GetAllVariables lists every variable of the dataset
func (c *Client) GetAllVariables(ctx context.Context) (*table.Table, error) {
	return c.variables.GetAllVariables(ctx)
}

// GetSupportedGeographies lists the legal for/in clause sets per geography level
func (c *Client) GetSupportedGeographies(ctx context.Context) (*table.Table, error) {
	return c.geography.SupportedGeographies(ctx)
}

// GetGeographyCodes lists the codes and names of a geography level
func (c *Client) GetGeographyCodes(ctx context.Context, forDomain model.GeoDomain, inDomains ...model.GeoDomain) (*table.Table, error) {
	return c.geography.GeographyCodes(ctx, forDomain, inDomains...)
}

// GetStats fetches variables for a geography. The variables' groups must
// have been loaded with GetVariablesByGroup or GetAllVariables.
func (c *Client) GetStats(ctx context.Context, variableCodes []string, forDomain model.GeoDomain, inDomains []model.GeoDomain, renameColumns bool) (*table.Table, error) {
	return c.stats.GetStats(ctx, stats.Request{
		VariableCodes: variableCodes,
		For:           forDomain,
		In:            inDomains,
		RenameColumns: renameColumns,
	})
}

// SearchGroups filters groups by a case-insensitive regular expression
func (c *Client) SearchGroups(ctx context.Context, pattern string) (*table.Table, error) {
	return c.variables.SearchGroups(ctx, pattern)
}

// SearchVariables filters variables by a case-insensitive regular expression.
// With no groups the whole dataset is searched.
func (c *Client) SearchVariables(ctx context.Context, pattern string, groupCodes ...string) (*table.Table, error) {
	return c.variables.SearchVariables(ctx, pattern, groupCodes...)
}

// Groups returns the cleaned-name to group lookup
func (c *Client) Groups() map[string]model.Group {
	return c.variables.Groups()
}

// Variables returns the cleaned-name to variable lookup
func (c *Client) Variables() map[string]model.GroupVariable {
	return c.variables.Variables()
}

// SupportedGeographies returns the supported geography lookup
func (c *Client) SupportedGeographies() map[string]model.SupportedGeography {
	return c.geography.SupportedGeoSet()
}

// CongressMembers lists members of a chamber, either for a whole congress or,
// when state is set, the current members for that state
func (c *Client) CongressMembers(ctx context.Context, congressNumber int, chamber congress.Chamber, state string) (*table.Table, error) {
	if state != "" {
		return c.congress.CurrentMembersByState(ctx, chamber, state)
	}
	return c.congress.Members(ctx, congressNumber, chamber)
}
