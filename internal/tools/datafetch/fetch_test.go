package datafetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/laxjovial/assistant-core/internal/config"
)

func testRegistry(endpoint string) map[string][]config.APIEntry {
	return map[string][]config.APIEntry{
		"news": {
			{
				Name:          "NewsAPI",
				Endpoint:      endpoint,
				KeyName:       "apiKey",
				KeyValue:      "load_from_secrets.news_api_key",
				DefaultParams: map[string]string{"language": "en"},
				Functions: map[string]config.APIentryFunction{
					"top_headlines": {
						Path:    "/top-headlines",
						ListKey: "articles",
					},
					"everything_search": {
						Path:     "/everything",
						Required: []string{"query"},
						ListKey:  "articles",
					},
				},
			},
		},
	}
}

func resolveTestKey(raw string) (string, bool) {
	if raw == "load_from_secrets.news_api_key" {
		return "sk-news", true
	}
	return raw, raw != ""
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/top-headlines" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("apiKey"); got != "sk-news" {
			t.Errorf("apiKey = %q, want resolved secret", got)
		}
		if got := r.URL.Query().Get("language"); got != "en" {
			t.Errorf("default param language = %q", got)
		}
		if got := r.URL.Query().Get("country"); got != "us" {
			t.Errorf("caller param country = %q", got)
		}
		w.Write([]byte(`{"status": "ok", "articles": [{"title": "one"}, {"title": "two"}, {"title": "three"}]}`))
	}))
	defer srv.Close()

	f := NewFetcher(testRegistry(srv.URL), resolveTestKey)
	got, err := f.Fetch(context.Background(), Request{
		Domain:   "news",
		APIName:  "NewsAPI",
		DataType: "top_headlines",
		Params:   map[string]string{"country": "us"},
		Limit:    2,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	var parsed struct {
		Status   string              `json:"status"`
		Articles []map[string]string `json:"articles"`
	}
	if err := json.Unmarshal([]byte(got), &parsed); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if len(parsed.Articles) != 2 {
		t.Errorf("limit not applied: %d articles", len(parsed.Articles))
	}
	if parsed.Status != "ok" {
		t.Errorf("non-list fields should survive, status = %q", parsed.Status)
	}
}

func TestValidationBeforeNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	f := NewFetcher(testRegistry(srv.URL), resolveTestKey)
	ctx := context.Background()

	_, err := f.Fetch(ctx, Request{Domain: "astrology", APIName: "NewsAPI", DataType: "top_headlines"})
	if !errors.Is(err, ErrUnknownDomain) {
		t.Errorf("unknown domain: got %v", err)
	}

	_, err = f.Fetch(ctx, Request{Domain: "news", APIName: "Nope", DataType: "top_headlines"})
	if !errors.Is(err, ErrUnknownAPI) {
		t.Errorf("unknown API: got %v", err)
	}

	_, err = f.Fetch(ctx, Request{Domain: "news", APIName: "NewsAPI", DataType: "weather_forecast"})
	if !errors.Is(err, ErrUnsupportedDataType) {
		t.Errorf("unsupported data type: got %v", err)
	}

	_, err = f.Fetch(ctx, Request{Domain: "news", APIName: "NewsAPI", DataType: "everything_search"})
	if !errors.Is(err, ErrMissingParameter) {
		t.Errorf("missing parameter: got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "'query'") {
		t.Errorf("missing-parameter error should name the parameter: %v", err)
	}

	if called {
		t.Error("validation failures must not reach the network")
	}
}

func TestUpstreamErrorReturnsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message": "rate limited"}`))
	}))
	defer srv.Close()

	f := NewFetcher(testRegistry(srv.URL), resolveTestKey)
	got, err := f.Fetch(context.Background(), Request{Domain: "news", APIName: "NewsAPI", DataType: "top_headlines"})
	if err != nil {
		t.Fatalf("upstream failures must not be errors: %v", err)
	}
	if !strings.Contains(got, "API request failed for NewsAPI") || !strings.Contains(got, "rate limited") {
		t.Errorf("got %q", got)
	}
}

func TestUnreachableUpstreamReturnsText(t *testing.T) {
	f := NewFetcher(testRegistry("http://127.0.0.1:1"), resolveTestKey)
	got, err := f.Fetch(context.Background(), Request{Domain: "news", APIName: "NewsAPI", DataType: "top_headlines"})
	if err != nil {
		t.Fatalf("transport failures must not be errors: %v", err)
	}
	if !strings.Contains(got, "API request failed for NewsAPI") {
		t.Errorf("got %q", got)
	}
}

func TestUnresolvableCredential(t *testing.T) {
	registry := testRegistry("http://example.invalid")
	registry["news"][0].KeyValue = "load_from_secrets.unknown_key"

	f := NewFetcher(registry, func(raw string) (string, bool) { return "", false })
	_, err := f.Fetch(context.Background(), Request{Domain: "news", APIName: "NewsAPI", DataType: "top_headlines"})
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("got %v", err)
	}
}

func TestApplyLimit(t *testing.T) {
	payload := map[string]any{
		"meta":    "x",
		"results": []any{1, 2, 3, 4},
	}
	out := applyLimit(payload, "", 2).(map[string]any)
	if got := len(out["results"].([]any)); got != 2 {
		t.Errorf("results len = %d", got)
	}

	// Configured list key wins over well-known names.
	payload = map[string]any{
		"results": []any{1, 2, 3},
		"rows":    []any{1, 2, 3},
	}
	out = applyLimit(payload, "rows", 1).(map[string]any)
	if got := len(out["rows"].([]any)); got != 1 {
		t.Errorf("rows len = %d", got)
	}
	if got := len(out["results"].([]any)); got != 3 {
		t.Errorf("results should be untouched when list key matches, len = %d", got)
	}

	// Bare list payloads.
	if got := len(applyLimit([]any{1, 2, 3}, "", 2).([]any)); got != 2 {
		t.Errorf("bare list len = %d", got)
	}

	// No limit means no change.
	if got := len(applyLimit([]any{1, 2, 3}, "", 0).([]any)); got != 3 {
		t.Errorf("unlimited len = %d", got)
	}
}
