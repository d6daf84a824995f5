package store

import (
	"context"
	"encoding/json"

	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/internal/data/redisstore"
	"github.com/laxjovial/assistant-core/internal/domain/jobmodel"
	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

type RedisJobStore struct {
	store  *redisstore.Store
	logger *logger_i.Logger
}

// GetRedisJobStore returns nil when redis is unavailable; the caller
// falls back to the in-memory store.
func GetRedisJobStore(ctx context.Context) *RedisJobStore {
	redisBacking := redisstore.GetRedisStore(ctx, config.RedisJobStore)
	if redisBacking == nil {
		return nil
	}
	return &RedisJobStore{
		store:  redisBacking,
		logger: logger_i.NewLogger("JobStore"),
	}
}

func (s *RedisJobStore) SaveJob(ctx context.Context, job jobmodel.Job) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "job Id", job.Id)
	log.Debug("saving job")
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	err = s.store.Set(ctx, job.Id, data, config.RedisJobStoreTTL)
	if err == nil {
		log.Debug("Saved job to Redis")
	}
	return err
}

func (s *RedisJobStore) GetJob(ctx context.Context, jobId string) (jobmodel.Job, bool) {
	var job jobmodel.Job
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "job Id", jobId)

	val, err := s.store.Get(ctx, jobId)
	if s.store.IsNil(err) {
		return job, false
	} else if err != nil {
		return job, false
	}

	err = json.Unmarshal([]byte(val), &job)
	if err != nil {
		return job, false
	}

	log.Debug("Job found in Redis")
	return job, true
}

func (s *RedisJobStore) DeleteJob(ctx context.Context, jobID string) {
	err := s.store.Del(ctx, jobID)
	if err != nil {
		s.logger.Error("Error deleting job from Redis", "jobId", jobID)
		return
	}
	s.logger.Debug("Job deleted from Redis", "jobId:", jobID)
}

func TestJobStore(store *redisstore.Store) *RedisJobStore {
	return &RedisJobStore{
		store:  store,
		logger: logger_i.NewLogger("test redis"),
	}
}
