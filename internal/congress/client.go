// Package congress is a small client for the ProPublica Congress API.
package congress

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/ppiankov/uscensus/internal/api"
	"github.com/ppiankov/uscensus/internal/model"
	"github.com/ppiankov/uscensus/internal/table"
	"github.com/ppiankov/uscensus/internal/worker"
)

const provider = "congress"

// MemberColumns is the column order of every members table
var MemberColumns = []string{"id", "first_name", "last_name", "party", "state", "district", "in_office"}

// Chamber is "house" or "senate"
type Chamber string

const (
	House  Chamber = "house"
	Senate Chamber = "senate"
)

// ParseChamber normalizes a chamber name
func ParseChamber(s string) (Chamber, error) {
	switch Chamber(strings.ToLower(strings.TrimSpace(s))) {
	case House:
		return House, nil
	case Senate:
		return Senate, nil
	default:
		return "", fmt.Errorf("unknown chamber %q (want house or senate)", s)
	}
}

// earliest congress the members endpoint serves per chamber
func minCongress(c Chamber) int {
	if c == Senate {
		return 80
	}
	return 102
}

// Client queries ProPublica's Congress API
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
	logger     *log.Logger
}

// NewClient creates a Congress client. limiter and logger may be nil.
func NewClient(cfg *model.Config, limiter *worker.Limiter, logger *log.Logger) *Client {
	if logger == nil {
		logger = api.NewLogger(false)
	}
	return &Client{
		httpClient: api.NewHTTPClient(cfg.HTTP),
		baseURL:    strings.TrimRight(cfg.HTTP.CongressBaseURL, "/"),
		apiKey:     cfg.CongressAPIKey,
		userAgent:  cfg.HTTP.UserAgent,
		maxBytes:   cfg.HTTP.MaxBodyBytes,
		limiter:    limiter,
		logger:     logger,
	}
}

type member struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Party     string `json:"party"`
	State     string `json:"state"`
	District  string `json:"district"`
	InOffice  *bool  `json:"in_office"`
}

type envelope struct {
	Status  string            `json:"status"`
	Errors  []json.RawMessage `json:"errors"`
	Results json.RawMessage   `json:"results"`
}

// Members lists every member of one chamber in the given congress
func (c *Client) Members(ctx context.Context, congress int, chamber Chamber) (*table.Table, error) {
	if congress < minCongress(chamber) {
		return nil, fmt.Errorf("congress %d is not available for the %s (minimum %d)", congress, chamber, minCongress(chamber))
	}

	route := fmt.Sprintf("/%d/%s/members.json", congress, chamber)
	results, err := c.get(ctx, route)
	if err != nil {
		return nil, err
	}

	var listings []struct {
		Members []member `json:"members"`
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &listings); err != nil {
			return nil, fmt.Errorf("decode members: %w", err)
		}
	}

	var members []member
	for _, l := range listings {
		members = append(members, l.Members...)
	}
	return membersTable(members, ""), nil
}

// CurrentMembersByState lists the sitting members of one chamber for a state
func (c *Client) CurrentMembersByState(ctx context.Context, chamber Chamber, state string) (*table.Table, error) {
	state = strings.ToUpper(strings.TrimSpace(state))
	if len(state) != 2 {
		return nil, fmt.Errorf("state must be a two-letter postal code, got %q", state)
	}

	route := fmt.Sprintf("/members/%s/%s/current.json", chamber, state)
	results, err := c.get(ctx, route)
	if err != nil {
		return nil, err
	}

	var members []member
	if len(results) > 0 {
		if err := json.Unmarshal(results, &members); err != nil {
			return nil, fmt.Errorf("decode members: %w", err)
		}
	}

	// this endpoint omits state and in_office
	inOffice := true
	for i := range members {
		if members[i].InOffice == nil {
			members[i].InOffice = &inOffice
		}
	}
	return membersTable(members, state), nil
}

// get fetches a route and unwraps the results of an OK envelope
func (c *Client) get(ctx context.Context, route string) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, model.ErrMissingCongressAPIKey
	}

	api.LogRequest(c.logger, provider, http.MethodGet, route, nil)

	header := http.Header{}
	header.Set("X-API-Key", c.apiKey)
	raw, err := api.Do(ctx, c.httpClient, c.limiter, c.logger, provider, route, c.baseURL+route, c.userAgent, c.maxBytes, header)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", route, err)
	}
	if env.Status != "" && !strings.EqualFold(env.Status, "OK") {
		return nil, fmt.Errorf("%s %s: status %s: %s", provider, route, env.Status, joinRaw(env.Errors))
	}
	return env.Results, nil
}

func membersTable(members []member, state string) *table.Table {
	t := table.New(MemberColumns...)
	for _, m := range members {
		st := m.State
		if st == "" {
			st = state
		}
		var inOffice any
		if m.InOffice != nil {
			inOffice = *m.InOffice
		}
		var district any
		if m.District != "" {
			district = m.District
		}
		t.Append(m.ID, m.FirstName, m.LastName, m.Party, st, district, inOffice)
	}
	return t
}

func joinRaw(msgs []json.RawMessage) string {
	parts := make([]string, len(msgs))
	for i, m := range msgs {
		parts[i] = string(m)
	}
	return strings.Join(parts, "; ")
}
