package handlers

import (
	"context"
	"sync"

	"github.com/laxjovial/assistant-core/internal/domain/jobmodel"
	"github.com/laxjovial/assistant-core/internal/export"
	"github.com/laxjovial/assistant-core/internal/job"
	"github.com/laxjovial/assistant-core/internal/rag"
	"github.com/laxjovial/assistant-core/internal/rbac"
	"github.com/laxjovial/assistant-core/internal/tools/datafetch"
	"github.com/laxjovial/assistant-core/internal/tools/exec"
	"github.com/laxjovial/assistant-core/internal/tools/search"
	"github.com/laxjovial/assistant-core/internal/users"
	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

var (
	handlerInstance *serviceHolder //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
	logRH           *logger_i.Logger
)

// serviceHolder bundles every service the handler funcs reach for.
type serviceHolder struct {
	jobService  *job.Service
	ragService  rag.Service
	userService *users.Service
	gate        *rbac.Gate
	searcher    search.Searcher
	fetcher     datafetch.Fetcher
	interpreter exec.Interpreter
	exporter    *export.Writer
}

type Deps struct {
	JobService  *job.Service
	RagService  rag.Service
	UserService *users.Service
	Gate        *rbac.Gate
	Searcher    search.Searcher
	Fetcher     datafetch.Fetcher
	Interpreter exec.Interpreter
	Exporter    *export.Writer
}

func InitHandlers(deps Deps) {
	once.Do(func() {
		handlerInstance = &serviceHolder{
			jobService:  deps.JobService,
			ragService:  deps.RagService,
			userService: deps.UserService,
			gate:        deps.Gate,
			searcher:    deps.Searcher,
			fetcher:     deps.Fetcher,
			interpreter: deps.Interpreter,
			exporter:    deps.Exporter,
		}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting request handlers")
	})
}

// SessionValidator exposes the session check the middleware needs
// without importing the users package there.
func SessionValidator() func(ctx context.Context, sessionID string) (string, bool) {
	return func(ctx context.Context, sessionID string) (string, bool) {
		if handlerInstance == nil {
			return "", false
		}
		user, ok := handlerInstance.userService.ValidateSession(ctx, sessionID)
		if !ok {
			return "", false
		}
		return user.Token, true
	}
}

func CreateNewJob(newJob jobmodel.Job) {
	logJH.With("traceId", newJob.TraceId, "job id", newJob.Id)
	logJH.Info("To create new job")
	handlerInstance.jobService.Enqueue(newJob)
}

func GetJobStatus(id string, traceId string) (result jobmodel.Job, isFound bool) {
	if handlerInstance != nil {
		return handlerInstance.jobService.Status(id, traceId)
	}
	return result, false
}
