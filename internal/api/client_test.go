package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ppiankov/uscensus/internal/model"
	"github.com/ppiankov/uscensus/internal/worker"
)

func newTestClient(serverURL string) *Client {
	cfg := model.DefaultConfig()
	cfg.HTTP.BaseURL = serverURL
	cfg.APIKey = "test-key"
	return NewClient(cfg, nil, nil)
}

func TestClient_Get_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2019/acs/acs1/groups.json" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("Expected key test-key, got %s", r.URL.Query().Get("key"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"groups":[]}`)
	}))
	defer server.Close()

	body, err := newTestClient(server.URL).Get(context.Background(), "/groups.json", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(body) != `{"groups":[]}` {
		t.Errorf("Unexpected body: %s", body)
	}
}

func TestClient_Get_Params(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("get") != "NAME" {
			t.Errorf("Expected get=NAME, got %s", q.Get("get"))
		}
		if q.Get("for") != "congressional district:*" {
			t.Errorf("Unexpected for clause: %s", q.Get("for"))
		}
		if got := q["in"]; len(got) != 1 || got[0] != "state:01" {
			t.Errorf("Unexpected in clauses: %v", got)
		}
		_, _ = fmt.Fprint(w, `[["NAME","state","congressional district"]]`)
	}))
	defer server.Close()

	params := url.Values{}
	params.Set("get", "NAME")
	params.Set("for", "congressional district:*")
	params.Add("in", "state:01")

	if _, err := newTestClient(server.URL).Get(context.Background(), "", params); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestClient_Get_NoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	body, err := newTestClient(server.URL).Get(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("Expected 204 to be an empty result, got %v", err)
	}
	if body != nil {
		t.Errorf("Expected nil body, got %s", body)
	}
}

func TestClient_Get_NotFound(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusBadRequest} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Get(context.Background(), "/groups/NOPE.json", nil)
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("Expected ErrNotFound, got %v", err)
			}
			var se *StatusError
			if !errors.As(err, &se) || se.Route != "/groups/NOPE.json" {
				t.Errorf("Expected StatusError naming the route, got %v", err)
			}
		})
	}
}

func TestClient_Get_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Get(context.Background(), "", nil)
	if err == nil {
		t.Fatal("Expected error for 500")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("500 must not be reported as not found")
	}
}

func TestClient_Get_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "error: unknown variable 'B99999_001E'")
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).Get(context.Background(), "", nil); err == nil {
		t.Fatal("Expected error for non-JSON body")
	}
}

func TestClient_Get_LogsThrottling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"groups":[]}`)
	}))
	defer server.Close()

	var buf bytes.Buffer
	cfg := model.DefaultConfig()
	cfg.HTTP.BaseURL = server.URL
	cfg.APIKey = "test-key"
	client := NewClient(cfg, worker.NewLimiter(20, 1), log.New(&buf, "", 0))

	ctx := context.Background()
	if _, err := client.Get(ctx, "/groups.json", nil); err != nil {
		t.Fatalf("first Get failed: %v", err)
	}
	if strings.Contains(buf.String(), "rate limited") {
		t.Errorf("Expected first request within burst, got log %q", buf.String())
	}

	if _, err := client.Get(ctx, "/groups.json", nil); err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if !strings.Contains(buf.String(), "[census] rate limited, waiting /groups.json") {
		t.Errorf("Expected throttle log line, got %q", buf.String())
	}
}
