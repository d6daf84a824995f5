package exec

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stubGate struct {
	allowed map[string]bool
}

func (g *stubGate) Bool(userToken, capability string, def bool) bool {
	return g.allowed[userToken]
}

func TestDeniedTierGetsFixedMessage(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	interp := NewInterpreter(&stubGate{allowed: map[string]bool{}}, srv.URL)
	got := interp.Run(context.Background(), "usr_free", "print(1)")
	if got != AccessDenied {
		t.Errorf("got %q", got)
	}
	if called {
		t.Error("denied requests must never reach the sandbox")
	}
}

func TestAllowedTierRuns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req execRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding sandbox request: %v", err)
		}
		if req.Code != "print(40 + 2)" {
			t.Errorf("code = %q", req.Code)
		}
		json.NewEncoder(w).Encode(execResponse{Stdout: "42\n"})
	}))
	defer srv.Close()

	interp := NewInterpreter(&stubGate{allowed: map[string]bool{"usr_pro": true}}, srv.URL)
	if got := interp.Run(context.Background(), "usr_pro", "print(40 + 2)"); got != "42\n" {
		t.Errorf("got %q", got)
	}
}

func TestSandboxFailureIsResultText(t *testing.T) {
	interp := NewInterpreter(&stubGate{allowed: map[string]bool{"usr_pro": true}}, "http://127.0.0.1:1")
	got := interp.Run(context.Background(), "usr_pro", "print(1)")
	if !strings.HasPrefix(got, "An error occurred during code execution:") {
		t.Errorf("got %q", got)
	}
}

func TestUnconfiguredEndpoint(t *testing.T) {
	interp := NewInterpreter(&stubGate{allowed: map[string]bool{"usr_pro": true}}, "")
	got := interp.Run(context.Background(), "usr_pro", "print(1)")
	if !strings.Contains(got, "not configured") {
		t.Errorf("got %q", got)
	}
}
