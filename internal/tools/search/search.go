package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/internal/metrics"
	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

const (
	NothingFound = "Nothing found via Search APIs, Wikipedia, or scraping."

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	defaultMaxChars = 1000
	maxAPISnippets  = 5
	maxScrapeLines  = 10
	minSpanLength   = 41
)

// Searcher runs the web-search fallback cascade.
type Searcher interface {
	Search(ctx context.Context, query string, maxChars int) string
}

type searcher struct {
	apis         []config.SearchAPIEntry
	resolveKey   func(string) (string, bool)
	client       *http.Client
	wikipediaURL string
	googleURL    string
	logger       *logger_i.Logger
}

// NewSearcher builds the cascade over the configured search API list.
// resolveKey maps a raw credential value to its usable form; entries
// whose credential cannot be resolved are skipped without a request.
func NewSearcher(apis []config.SearchAPIEntry, resolveKey func(string) (string, bool)) Searcher {
	if resolveKey == nil {
		resolveKey = func(raw string) (string, bool) { return raw, true }
	}
	return &searcher{
		apis:         apis,
		resolveKey:   resolveKey,
		client:       &http.Client{Timeout: config.HTTPCallTimeout},
		wikipediaURL: "https://en.wikipedia.org/wiki",
		googleURL:    "https://www.google.com/search",
		logger:       logger_i.NewLogger("SearchCascade"),
	}
}

// Search tries each configured API in order, then Wikipedia, then a raw
// search-engine scrape. The first stage producing text wins; every
// stage failure is swallowed and the cascade continues. Output carries
// a provenance prefix and is bounded by maxChars.
func (s *searcher) Search(ctx context.Context, query string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}

	for _, api := range s.apis {
		result, ok := s.trySearchAPI(ctx, api, query, maxChars)
		metrics.CaptureSearchStage("api", ok)
		if ok {
			return result
		}
	}

	result, ok := s.tryWikipedia(ctx, query, maxChars)
	metrics.CaptureSearchStage("wikipedia", ok)
	if ok {
		return result
	}

	result, ok = s.tryScrape(ctx, query, maxChars)
	metrics.CaptureSearchStage("scrape", ok)
	if ok {
		return result
	}

	return NothingFound
}

func (s *searcher) trySearchAPI(ctx context.Context, api config.SearchAPIEntry, query string, maxChars int) (string, bool) {
	keyValue := api.KeyValue
	if api.KeyName != "" {
		resolved, ok := s.resolveKey(api.KeyValue)
		if !ok || resolved == "" {
			s.logger.Debug("skipping search API without credential", "api", api.Name)
			return "", false
		}
		keyValue = resolved
	}

	queryParam := api.QueryParam
	if queryParam == "" {
		queryParam = "q"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api.Endpoint, nil)
	if err != nil {
		s.logger.Warn("bad search API endpoint", "api", api.Name, "error", err)
		return "", false
	}

	params := req.URL.Query()
	params.Set(queryParam, query)
	for k, v := range api.Headers {
		req.Header.Set(k, v)
	}
	if api.KeyName != "" {
		if api.InHeader {
			req.Header.Set(api.KeyName, keyValue)
		} else {
			params.Set(api.KeyName, keyValue)
		}
	}
	req.URL.RawQuery = params.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug("search API unreachable", "api", api.Name, "error", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", false
	}

	snippets := extractSnippets(data)
	if len(snippets) == 0 {
		return "", false
	}
	if len(snippets) > maxAPISnippets {
		snippets = snippets[:maxAPISnippets]
	}
	return fmt.Sprintf("[From %s]\n%s", api.Name, truncate(strings.Join(snippets, "\n"), maxChars)), true
}

// extractSnippets pulls text snippets out of the known search API
// response shapes: SerpAPI-style organic_results and
// ContextualWeb-style value lists.
func extractSnippets(data map[string]any) []string {
	if organic, ok := data["organic_results"].([]any); ok {
		return collectField(organic, "snippet")
	}
	if value, ok := data["value"].([]any); ok {
		return collectField(value, "description")
	}
	return nil
}

func collectField(items []any, field string) []string {
	var out []string
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := m[field].(string); ok && text != "" {
			out = append(out, text)
		}
	}
	return out
}

func (s *searcher) tryWikipedia(ctx context.Context, query string, maxChars int) (string, bool) {
	title := strings.ReplaceAll(strings.TrimSpace(query), " ", "_")
	pageURL := s.wikipediaURL + "/" + url.PathEscape(title)

	doc, ok := s.fetchHTML(ctx, pageURL)
	if !ok {
		return "", false
	}

	var paragraphs []string
	walkElements(doc, "p", func(n *html.Node) {
		if text := strings.TrimSpace(nodeText(n)); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	content := strings.Join(paragraphs, "\n")
	if content == "" {
		return "", false
	}
	return fmt.Sprintf("[From Wikipedia]\n%s...", truncate(content, maxChars)), true
}

func (s *searcher) tryScrape(ctx context.Context, query string, maxChars int) (string, bool) {
	searchURL := s.googleURL + "?q=" + url.QueryEscape(strings.TrimSpace(query))

	doc, ok := s.fetchHTML(ctx, searchURL)
	if !ok {
		return "", false
	}

	var results []string
	seen := make(map[string]bool)
	total := 0
	walkElements(doc, "span", func(n *html.Node) {
		if total >= maxChars {
			return
		}
		text := strings.TrimSpace(nodeText(n))
		if len(text) < minSpanLength || seen[text] {
			return
		}
		seen[text] = true
		results = append(results, text)
		total += len(text) + 1
	})

	if len(results) == 0 {
		return "", false
	}
	if len(results) > maxScrapeLines {
		results = results[:maxScrapeLines]
	}
	return "[From Google Results]\n" + strings.Join(results, "\n"), true
}

func (s *searcher) fetchHTML(ctx context.Context, rawURL string) (*html.Node, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := s.client.Do(req)
	metrics.CaptureExecutionMetrics("html_fetch", time.Since(start))
	if err != nil {
		s.logger.Debug("page fetch failed", "url", rawURL, "error", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, false
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, false
	}
	return doc, true
}

// walkElements visits every element node named tag in document order.
func walkElements(n *html.Node, tag string, visit func(*html.Node)) {
	if n.Type == html.ElementNode && n.Data == tag {
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkElements(c, tag, visit)
	}
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
