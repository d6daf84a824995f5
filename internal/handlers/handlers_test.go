package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/laxjovial/assistant-core/internal/api"
	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/internal/data/store"
	"github.com/laxjovial/assistant-core/internal/domain/docmodel"
	"github.com/laxjovial/assistant-core/internal/domain/jobmodel"
	"github.com/laxjovial/assistant-core/internal/export"
	"github.com/laxjovial/assistant-core/internal/job"
	"github.com/laxjovial/assistant-core/internal/rbac"
	"github.com/laxjovial/assistant-core/internal/users"
)

type stubRagService struct {
	lastSummarized string
}

func (s *stubRagService) SaveUpload(userID, section, filename string, r io.Reader) (docmodel.Document, error) {
	return docmodel.Document{SourceName: filename, StoredName: "stored.txt", Path: "/tmp/stored.txt"}, nil
}

func (s *stubRagService) IngestDocument(ctx context.Context, j jobmodel.Job) jobmodel.Job {
	return j
}

func (s *stubRagService) ProcessQuery(ctx context.Context, j jobmodel.Job) jobmodel.Job {
	return j
}

func (s *stubRagService) Query(ctx context.Context, userID, section, query string, k int) (docmodel.QueryResult, string, error) {
	return docmodel.QueryResult{}, "stub answer", nil
}

func (s *stubRagService) Clear(ctx context.Context, userID, section string) (string, error) {
	return "Cleared all indexed data for section 'sports'.", nil
}

func (s *stubRagService) SummarizeDocument(ctx context.Context, userID, section, storedName string) (string, error) {
	s.lastSummarized = storedName
	return "a short summary", nil
}

var (
	testJobChannel chan jobmodel.Job
	testUserSvc    *users.Service
	testRag        *stubRagService
)

func setupHandlers(t *testing.T) {
	t.Helper()
	if handlerInstance != nil {
		return
	}

	repo, err := users.NewRepository(t.TempDir())
	if err != nil {
		t.Fatalf("user repository: %v", err)
	}
	testUserSvc = users.NewService(repo,
		users.NewMemoryTokenStore(), users.NewMemoryTokenStore(), users.NewMemoryTokenStore())

	testJobChannel = make(chan jobmodel.Job, 10)
	jobSvc := job.InitJobService(job.ServiceConfig{
		JobChannel:        testJobChannel,
		DispatcherChannel: make(chan bool, 10),
		JobStore:          store.InitInMemoryJobStore(),
	})

	testRag = &stubRagService{}
	InitHandlers(Deps{
		JobService:  jobSvc,
		RagService:  testRag,
		UserService: testUserSvc,
		Gate:        rbac.NewGate(repo, nil),
		Exporter:    export.NewWriter(t.TempDir()),
	})
}

func authedRequest(method, target, userTokenValue string, body any) *http.Request {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	r := httptest.NewRequest(method, target, reader)
	ctx := context.WithValue(r.Context(), config.TRACE_ID_KEY, "trace-test")
	ctx = context.WithValue(ctx, config.USER_ID_KEY, userTokenValue)
	return r.WithContext(ctx)
}

func TestRegisterAndLogin(t *testing.T) {
	setupHandlers(t)

	w := httptest.NewRecorder()
	PostRegisterHandler(w, authedRequest(http.MethodPost, "/auth/register", "", api.RegisterRequest{
		Username: "jordan",
		Email:    "jordan@example.com",
		Password: "hunter2hunter2",
	}))
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	PostLoginHandler(w, authedRequest(http.MethodPost, "/auth/login", "", api.LoginRequest{
		Email:    "jordan@example.com",
		Password: "hunter2hunter2",
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	var resp api.AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	if resp.SessionID == "" {
		t.Error("login should return a session ID")
	}
	if resp.Tier != "free" {
		t.Errorf("default tier = %q", resp.Tier)
	}

	w = httptest.NewRecorder()
	PostLoginHandler(w, authedRequest(http.MethodPost, "/auth/login", "", api.LoginRequest{
		Email:    "jordan@example.com",
		Password: "wrong",
	}))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d", w.Code)
	}
}

func TestQueryEnqueuesJob(t *testing.T) {
	setupHandlers(t)

	w := httptest.NewRecorder()
	PostQueryHandler(w, authedRequest(http.MethodPost, "/query", "usr_abc", api.QueryRequest{
		Section:  "sports",
		Question: "who won the cup",
		K:        3,
	}))
	if w.Code != http.StatusAccepted {
		t.Fatalf("query status = %d, body %s", w.Code, w.Body.String())
	}

	var resp api.InitJobResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding init response: %v", err)
	}
	if resp.Id == "" || resp.StatusURL != "status/"+resp.Id {
		t.Errorf("init response = %+v", resp)
	}

	select {
	case queued := <-testJobChannel:
		if queued.JobType != jobmodel.JobTypeQuery {
			t.Errorf("job type = %q", queued.JobType)
		}
		if queued.JobPayload.UserID != "usr_abc" || queued.JobPayload.Question != "who won the cup" {
			t.Errorf("payload = %+v", queued.JobPayload)
		}
		if queued.Status != jobmodel.JobStatusQueued {
			t.Errorf("status = %q", queued.Status)
		}
	default:
		t.Fatal("no job was enqueued")
	}
}

func TestQueryRejectsMissingFields(t *testing.T) {
	setupHandlers(t)

	w := httptest.NewRecorder()
	PostQueryHandler(w, authedRequest(http.MethodPost, "/query", "usr_abc", api.QueryRequest{Section: "sports"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing question", w.Code)
	}
	if len(testJobChannel) != 0 {
		t.Error("invalid request must not enqueue a job")
	}
}

func TestStatusUnknownJob(t *testing.T) {
	setupHandlers(t)

	w := httptest.NewRecorder()
	GetStatusHandler(w, authedRequest(http.MethodGet, "/status/ghost", "usr_abc", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSummarizeTierGate(t *testing.T) {
	setupHandlers(t)

	// Register a free-tier user; free tier has summarization disabled.
	user, err := testUserSvc.Register("casey", "casey@example.com", "hunter2hunter2", "", "", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	w := httptest.NewRecorder()
	PostSummarizeHandler(w, authedRequest(http.MethodPost, "/summarize", user.Token, api.SummarizeRequest{
		Section:  "sports",
		Document: "stored.txt",
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp api.TextResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Result != summarizationDenied {
		t.Errorf("free tier should be denied, got %q", resp.Result)
	}
	if testRag.lastSummarized != "" {
		t.Error("denied request must not reach the summarizer")
	}

	// Pro tier passes the gate.
	pro, err := testUserSvc.Register("drew", "drew@example.com", "hunter2hunter2", "pro", "", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	w = httptest.NewRecorder()
	PostSummarizeHandler(w, authedRequest(http.MethodPost, "/summarize", pro.Token, api.SummarizeRequest{
		Section:  "sports",
		Document: "stored.txt",
	}))
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Result != "a short summary" {
		t.Errorf("pro tier result = %q", resp.Result)
	}
	if testRag.lastSummarized != "stored.txt" {
		t.Errorf("summarizer called with %q", testRag.lastSummarized)
	}
}
