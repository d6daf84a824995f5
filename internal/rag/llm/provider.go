package llm

import "context"

// Provider answers a query grounded on the supplied context passages.
type Provider interface {
	Generate(ctx context.Context, query string, passages []string) (string, error)
}
