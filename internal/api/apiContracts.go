package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type RAGResponse struct {
	Question   string   `json:"question,omitempty"`
	Answer     string   `json:"answer,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	ExportPath string   `json:"export_path,omitempty"`
	Message    string   `json:"message,omitempty"`
}

type Result struct {
	Status              string       `json:"status"`
	RAGExternalResponse *RAGResponse `json:"rag_response,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

// TextResponse carries single-string tool results (search, exec,
// summaries, clear confirmations).
type TextResponse struct {
	Result string `json:"result"`
}

// requests---------------------

type QueryRequest struct {
	Section  string `json:"section" validate:"required"`
	Question string `json:"question" validate:"required"`
	K        int    `json:"k,omitempty"`
	Export   bool   `json:"export,omitempty"`
}

type JobStatusRequest struct {
	JobId string `json:"job_id" validate:"required"`
}

type ClearRequest struct {
	Section string `json:"section" validate:"required"`
}

type SummarizeRequest struct {
	Section  string `json:"section" validate:"required"`
	Document string `json:"document" validate:"required"`
}

type SearchRequest struct {
	Query    string `json:"query" validate:"required"`
	MaxChars int    `json:"max_chars,omitempty"`
}

type FetchRequest struct {
	Domain   string            `json:"domain" validate:"required"`
	APIName  string            `json:"api_name" validate:"required"`
	DataType string            `json:"data_type" validate:"required"`
	Params   map[string]string `json:"params,omitempty"`
	Limit    int               `json:"limit,omitempty"`
}

type ExecRequest struct {
	Code string `json:"code" validate:"required"`
}

type ExportRequest struct {
	Section  string `json:"section" validate:"required"`
	Content  string `json:"content" validate:"required"`
	Format   string `json:"format" validate:"required"`
	Filename string `json:"filename,omitempty"`
}

type ExportResponse struct {
	Path string `json:"path"`
}

// auth ------------------------

type RegisterRequest struct {
	Username         string `json:"username" validate:"required"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8"`
	Tier             string `json:"tier,omitempty"`
	SecurityQuestion string `json:"security_question,omitempty"`
	SecurityAnswer   string `json:"security_answer,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type OTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type OTPVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

type ResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type AuthResponse struct {
	SessionID string `json:"session_id,omitempty"`
	Username  string `json:"username,omitempty"`
	Tier      string `json:"tier,omitempty"`
	Message   string `json:"message,omitempty"`
}
