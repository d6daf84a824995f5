package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/laxjovial/assistant-core/internal/rag"
	"github.com/laxjovial/assistant-core/internal/tools/datafetch"
	"github.com/laxjovial/assistant-core/internal/tools/exec"
	"github.com/laxjovial/assistant-core/internal/tools/search"
	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

const Version = "0.1.0"

// Server exposes the assistant tool surface to MCP agent hosts.
type Server struct {
	ragService  rag.Service
	searcher    search.Searcher
	fetcher     datafetch.Fetcher
	interpreter exec.Interpreter
	server      *mcp.Server
	logger      *logger_i.Logger
}

type Ports struct {
	RagService  rag.Service
	Searcher    search.Searcher
	Fetcher     datafetch.Fetcher
	Interpreter exec.Interpreter
}

func NewServer(ports Ports) *Server {
	impl := &mcp.Implementation{
		Name:    "assistant-core",
		Version: Version,
	}

	s := &Server{
		ragService:  ports.RagService,
		searcher:    ports.Searcher,
		fetcher:     ports.Fetcher,
		interpreter: ports.Interpreter,
		server:      mcp.NewServer(impl, nil),
		logger:      logger_i.NewLogger("MCPServer"),
	}

	s.registerTools()

	return s
}

// Run serves MCP over stdio until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server starting on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
