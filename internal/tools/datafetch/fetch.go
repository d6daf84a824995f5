package datafetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/internal/metrics"
	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

// Caller/config errors. Upstream HTTP failures are never surfaced as
// errors; they come back as descriptive text so agent callers can relay
// them verbatim.
var (
	ErrUnknownDomain       = errors.New("unknown domain")
	ErrUnknownAPI          = errors.New("unknown API")
	ErrUnsupportedDataType = errors.New("unsupported data type")
	ErrMissingParameter    = errors.New("missing required parameter")
	ErrMissingCredential   = errors.New("missing API credential")
)

// listKeys are the response fields a limit is applied to, checked in
// order after the function's own configured list key.
var listKeys = []string{"results", "data", "articles", "response", "value", "items", "events"}

// Request identifies one registry operation plus its caller-supplied
// parameters.
type Request struct {
	Domain   string
	APIName  string
	DataType string
	Params   map[string]string
	Limit    int
}

// Fetcher executes registry-driven upstream API calls for every domain.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (string, error)
}

type fetcher struct {
	registries map[string][]config.APIEntry
	resolveKey func(string) (string, bool)
	client     *http.Client
	logger     *logger_i.Logger
}

func NewFetcher(registries map[string][]config.APIEntry, resolveKey func(string) (string, bool)) Fetcher {
	if resolveKey == nil {
		resolveKey = func(raw string) (string, bool) { return raw, true }
	}
	return &fetcher{
		registries: registries,
		resolveKey: resolveKey,
		client:     &http.Client{Timeout: config.HTTPCallTimeout},
		logger:     logger_i.NewLogger("DataFetcher"),
	}
}

// Fetch validates the request against the domain registry, then issues
// the upstream call. Validation failures return an error before any
// network I/O; upstream failures return text.
func (f *fetcher) Fetch(ctx context.Context, req Request) (string, error) {
	entries, ok := f.registries[req.Domain]
	if !ok {
		return "", fmt.Errorf("%w: no registry configured for domain '%s'", ErrUnknownDomain, req.Domain)
	}

	var entry *config.APIEntry
	for i := range entries {
		if entries[i].Name == req.APIName {
			entry = &entries[i]
			break
		}
	}
	if entry == nil {
		return "", fmt.Errorf("%w: '%s' is not in the %s registry", ErrUnknownAPI, req.APIName, req.Domain)
	}

	fn, ok := entry.Functions[req.DataType]
	if !ok {
		return "", fmt.Errorf("%w: '%s' for %s", ErrUnsupportedDataType, req.DataType, entry.Name)
	}

	for _, name := range fn.Required {
		if req.Params[name] == "" {
			return "", fmt.Errorf("%w: '%s' is required for %s %s", ErrMissingParameter, name, entry.Name, req.DataType)
		}
	}

	httpReq, err := f.buildRequest(ctx, entry, fn, req.Params)
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := f.client.Do(httpReq)
	metrics.CaptureExecutionMetrics("data_fetch", time.Since(start))
	if err != nil {
		f.logger.Warn("upstream request failed", "api", entry.Name, "dataType", req.DataType, "error", err)
		return fmt.Sprintf("API request failed for %s: %v", entry.Name, err), nil
	}
	defer resp.Body.Close()

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Sprintf("API request failed for %s: unreadable response (%v)", entry.Name, err), nil
	}

	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("upstream error status", "api", entry.Name, "status", resp.StatusCode)
		body, _ := json.Marshal(payload)
		return fmt.Sprintf("API request failed for %s: status %d: %s", entry.Name, resp.StatusCode, body), nil
	}

	payload = applyLimit(payload, fn.ListKey, req.Limit)

	out, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding %s response: %w", entry.Name, err)
	}
	return string(out), nil
}

func (f *fetcher) buildRequest(ctx context.Context, entry *config.APIEntry, fn config.APIentryFunction, callerParams map[string]string) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.Endpoint+fn.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", entry.Name, err)
	}

	params := httpReq.URL.Query()
	for k, v := range entry.DefaultParams {
		params.Set(k, v)
	}
	for k, v := range fn.Params {
		params.Set(k, v)
	}
	for k, v := range callerParams {
		params.Set(k, v)
	}
	for k, v := range entry.Headers {
		httpReq.Header.Set(k, v)
	}

	if entry.KeyName != "" {
		keyValue, ok := f.resolveKey(entry.KeyValue)
		if !ok || keyValue == "" {
			return nil, fmt.Errorf("%w: key for '%s' could not be resolved", ErrMissingCredential, entry.Name)
		}
		if entry.InHeader {
			httpReq.Header.Set(entry.KeyName, keyValue)
		} else {
			params.Set(entry.KeyName, keyValue)
		}
	}

	httpReq.URL.RawQuery = params.Encode()
	return httpReq, nil
}

// applyLimit truncates the first list-valued field found in the
// payload. The function's configured list key takes precedence over the
// well-known names.
func applyLimit(payload any, listKey string, limit int) any {
	if limit <= 0 {
		return payload
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		if list, ok := payload.([]any); ok && len(list) > limit {
			return list[:limit]
		}
		return payload
	}

	keys := listKeys
	if listKey != "" {
		keys = append([]string{listKey}, listKeys...)
	}
	for _, key := range keys {
		if list, ok := obj[key].([]any); ok {
			if len(list) > limit {
				obj[key] = list[:limit]
			}
			return obj
		}
	}
	return obj
}
