package exec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/internal/metrics"
	"github.com/laxjovial/assistant-core/internal/rbac"
	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

const AccessDenied = "Access Denied: Data analysis capabilities (Python interpreter) are not enabled for your current tier. Please upgrade your plan."

// CapabilityGate is the slice of the RBAC gate the interpreter needs.
type CapabilityGate interface {
	Bool(userToken, capability string, def bool) bool
}

// Interpreter proxies code to a sandboxed execution service, gated per
// user tier. Denials and execution failures are results, not errors.
type Interpreter interface {
	Run(ctx context.Context, userToken, code string) string
}

type interpreter struct {
	gate     CapabilityGate
	endpoint string
	client   *http.Client
	logger   *logger_i.Logger
}

// NewInterpreter points the proxy at the sandbox service. An empty
// endpoint disables execution entirely.
func NewInterpreter(gate CapabilityGate, endpoint string) Interpreter {
	return &interpreter{
		gate:     gate,
		endpoint: endpoint,
		client:   &http.Client{Timeout: config.SandboxExecTimeout},
		logger:   logger_i.NewLogger("Interpreter"),
	}
}

type execRequest struct {
	Code string `json:"code"`
}

type execResponse struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

func (i *interpreter) Run(ctx context.Context, userToken, code string) string {
	if !i.gate.Bool(userToken, rbac.CapDataAnalysis, false) {
		i.logger.Info("execution denied by tier", "user", userToken)
		return AccessDenied
	}
	if i.endpoint == "" {
		return "Code execution is not configured on this deployment."
	}

	body, err := json.Marshal(execRequest{Code: code})
	if err != nil {
		return fmt.Sprintf("An error occurred during code execution: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Sprintf("An error occurred during code execution: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := i.client.Do(req)
	metrics.CaptureExecutionMetrics("sandbox_exec", time.Since(start))
	if err != nil {
		i.logger.Error("sandbox unreachable", "error", err)
		return fmt.Sprintf("An error occurred during code execution: %v", err)
	}
	defer resp.Body.Close()

	var result execResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Sprintf("An error occurred during code execution: unreadable sandbox response (%v)", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("An error occurred during code execution: sandbox status %d: %s", resp.StatusCode, result.Stderr)
	}

	if result.Stderr != "" {
		return result.Stdout + result.Stderr
	}
	return result.Stdout
}
