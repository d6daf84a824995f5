package job

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/internal/domain/jobmodel"
	"github.com/laxjovial/assistant-core/internal/metrics"
	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

type Service struct {
	JobChannel        chan jobmodel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobmodel.JobStore
	logger            *logger_i.Logger
}

type ServiceConfig struct {
	JobChannel        chan jobmodel.Job
	DispatcherChannel chan bool
	JobStore          jobmodel.JobStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		logger:            logger_i.NewLogger("JobService"),
	}
}

// Enqueue stamps the job queued and hands it to the worker pool. The
// channel send blocks on a full buffer so the system backpressures
// instead of being overwhelmed. Every tenth request, and every ingest
// job, signals the dispatcher to consider a new worker; ingestion
// involves batch external calls that would otherwise hold the queue.
func (s *Service) Enqueue(j jobmodel.Job) {
	j.CreatedTime = time.Now()
	j.Status = jobmodel.JobStatusQueued

	metrics.IncrementJobsInQueue()
	s.JobChannel <- j
	s.logger.Info("Created new job", "jobId", j.Id, "jobType", j.JobType)

	accurateCount := atomic.AddInt64(&s.RequestCount, 1)
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || j.JobType == jobmodel.JobTypeIngest {
		metrics.StartDispatcherSignalCount()
		s.DispatcherChannel <- true
	}
}

func (s *Service) Status(jobId string, traceId string) (jobmodel.Job, bool) {
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	return s.JobStore.GetJob(ctx, jobId)
}
