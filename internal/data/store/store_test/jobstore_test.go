package store_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/internal/data/redisstore"
	"github.com/laxjovial/assistant-core/internal/data/store"
	"github.com/laxjovial/assistant-core/internal/domain/jobmodel"
)

func TestRedisJobStore_Lifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	internalStore := redisstore.NewTestStore(client)
	jobStore := store.TestJobStore(internalStore)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	jobID := "job_abc_123"

	testJob := jobmodel.Job{
		Id:      jobID,
		JobType: jobmodel.JobTypeIngest,
		Status:  jobmodel.JobStatusRunning,
		JobPayload: jobmodel.JobPayload{
			UserID:         "u1",
			Section:        "sports",
			IngestFileName: "scores.txt",
		},
	}

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		err := jobStore.SaveJob(ctx, testJob)
		if err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}

		retrievedJob, found := jobStore.GetJob(ctx, jobID)
		if !found {
			t.Fatal("Job was saved but not found in Redis")
		}

		if retrievedJob.JobPayload.IngestFileName != testJob.JobPayload.IngestFileName {
			t.Errorf("Data mismatch! Got %s, want %s",
				retrievedJob.JobPayload.IngestFileName, testJob.JobPayload.IngestFileName)
		}
		if retrievedJob.JobType != jobmodel.JobTypeIngest {
			t.Errorf("Job type lost in roundtrip: %s", retrievedJob.JobType)
		}
	})

	t.Run("Get Non-Existent Job", func(t *testing.T) {
		_, found := jobStore.GetJob(ctx, "ghost-id")
		if found {
			t.Error("Expected found=false for non-existent key")
		}
	})

	t.Run("Delete Job", func(t *testing.T) {
		jobStore.DeleteJob(ctx, jobID)

		if mr.Exists(jobID) {
			t.Error("Job still exists in Redis after DeleteJob call")
		}
	})
}

func TestInMemoryJobStore(t *testing.T) {
	jobStore := store.InitInMemoryJobStore()
	ctx := context.Background()

	job := jobmodel.Job{Id: "mem-1", Status: jobmodel.JobStatusQueued}
	if err := jobStore.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	got, found := jobStore.GetJob(ctx, "mem-1")
	if !found || got.Status != jobmodel.JobStatusQueued {
		t.Errorf("GetJob mismatch: found=%v job=%+v", found, got)
	}

	jobStore.DeleteJob(ctx, "mem-1")
	if _, found := jobStore.GetJob(ctx, "mem-1"); found {
		t.Error("Job still present after delete")
	}
}

func TestRedisJobStore_Race(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	jobStore := store.TestJobStore(redisstore.NewTestStore(client))

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "race-trace")
	job := jobmodel.Job{Id: "race-job"}

	const workers = 50
	for i := 0; i < workers; i++ {
		go func() {
			_ = jobStore.SaveJob(ctx, job)
			_, _ = jobStore.GetJob(ctx, "race-job")
		}()
	}
}
