package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/laxjovial/assistant-core/internal/tools/datafetch"
)

// QueryInput is the input schema for the query_documents tool.
type QueryInput struct {
	UserToken string `json:"user_token" jsonschema:"the caller's API token, used for data isolation"`
	Section   string `json:"section" jsonschema:"the content section to query (e.g. sports, finance)"`
	Question  string `json:"question" jsonschema:"the question to answer from uploaded documents"`
	K         int    `json:"k,omitempty" jsonschema:"maximum number of chunks to retrieve (default 5)"`
}

// QueryOutput is the output schema for the query_documents tool.
type QueryOutput struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
}

// SearchInput is the input schema for the web_search tool.
type SearchInput struct {
	Query    string `json:"query" jsonschema:"the web search query"`
	MaxChars int    `json:"max_chars,omitempty" jsonschema:"maximum characters in the result (default 1000)"`
}

// TextOutput carries a single text result.
type TextOutput struct {
	Result string `json:"result"`
}

// FetchInput is the input schema for the fetch_data tool.
type FetchInput struct {
	Domain   string            `json:"domain" jsonschema:"the data domain (sports, finance, news, weather, ...)"`
	APIName  string            `json:"api_name" jsonschema:"the registry name of the upstream API"`
	DataType string            `json:"data_type" jsonschema:"the operation the API exposes (e.g. top_headlines)"`
	Params   map[string]string `json:"params,omitempty" jsonschema:"operation parameters"`
	Limit    int               `json:"limit,omitempty" jsonschema:"maximum list entries in the response"`
}

// ExecInput is the input schema for the run_code tool.
type ExecInput struct {
	UserToken string `json:"user_token" jsonschema:"the caller's API token, used for tier gating"`
	Code      string `json:"code" jsonschema:"the code to run in the sandbox"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_documents",
		Description: "Answer a question from the caller's uploaded documents for one section",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "web_search",
		Description: "Search the web via configured search APIs with encyclopedia and scraping fallbacks",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "fetch_data",
		Description: "Fetch structured data from a configured domain API registry",
	}, s.handleFetch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_code",
		Description: "Run code in the sandboxed interpreter, subject to the caller's tier",
	}, s.handleExec)
}

func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	result, answer, err := s.ragService.Query(ctx, input.UserToken, input.Section, input.Question, input.K)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{Answer: answer}
	seen := make(map[string]bool)
	for _, chunk := range result.Chunks {
		name := chunk.Doc.SourceName
		if name != "" && !seen[name] {
			seen[name] = true
			output.Sources = append(output.Sources, name)
		}
	}
	return nil, output, nil
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, TextOutput, error) {
	return nil, TextOutput{Result: s.searcher.Search(ctx, input.Query, input.MaxChars)}, nil
}

func (s *Server) handleFetch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FetchInput,
) (*mcp.CallToolResult, TextOutput, error) {
	result, err := s.fetcher.Fetch(ctx, datafetch.Request{
		Domain:   input.Domain,
		APIName:  input.APIName,
		DataType: input.DataType,
		Params:   input.Params,
		Limit:    input.Limit,
	})
	if err != nil {
		return nil, TextOutput{}, err
	}
	return nil, TextOutput{Result: result}, nil
}

func (s *Server) handleExec(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ExecInput,
) (*mcp.CallToolResult, TextOutput, error) {
	return nil, TextOutput{Result: s.interpreter.Run(ctx, input.UserToken, input.Code)}, nil
}
