package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefixes for jobs
	jobKeyPrefix    = "job:"
	jobIndexKey     = "jobs:index"
	jobQueuePrefix  = "job:queue:"
	jobStatusPrefix = "job:status:"
)

// RedisJobRepository implements JobRepository using Redis
type RedisJobRepository struct {
	client *redis.Client
}

// NewRedisJobRepository creates a new Redis-based job repository
func NewRedisJobRepository(client *redis.Client) *RedisJobRepository {
	return &RedisJobRepository{
		client: client,
	}
}

// CreateJob creates a new job in the repository
func (r *RedisJobRepository) CreateJob(ctx context.Context, job *Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	exists, err := r.jobExists(ctx, job.ID)
	if err != nil {
		return NewJobRepositoryError("create_job", job.ID, err, "")
	}
	if exists {
		return JobAlreadyExistsError(job.ID)
	}

	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = JobStatusPending
	}

	jobJSON, err := json.Marshal(job)
	if err != nil {
		return NewJobRepositoryError("create_job", job.ID, err, "failed to marshal job")
	}

	// Transaction keeps the record and its indexes consistent
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, jobKeyPrefix+job.ID, jobJSON, 0)
	pipe.SAdd(ctx, jobIndexKey, job.ID)
	pipe.SAdd(ctx, jobStatusPrefix+string(job.Status), job.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return NewJobRepositoryError("create_job", job.ID, err, "")
	}

	return nil
}

// GetJob retrieves a job by ID
func (r *RedisJobRepository) GetJob(ctx context.Context, jobID string) (*Job, error) {
	data, err := r.client.Get(ctx, jobKeyPrefix+jobID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, JobNotFoundError(jobID)
	}
	if err != nil {
		return nil, NewJobRepositoryError("get_job", jobID, err, "")
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, NewJobRepositoryError("get_job", jobID, err, "failed to unmarshal job")
	}

	return &job, nil
}

// UpdateJob persists the given job, moving status indexes when the
// status changed
func (r *RedisJobRepository) UpdateJob(ctx context.Context, job *Job) error {
	existing, err := r.GetJob(ctx, job.ID)
	if err != nil {
		return err
	}

	job.UpdatedAt = time.Now()

	jobJSON, err := json.Marshal(job)
	if err != nil {
		return NewJobRepositoryError("update_job", job.ID, err, "failed to marshal job")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, jobKeyPrefix+job.ID, jobJSON, 0)
	if existing.Status != job.Status {
		pipe.SRem(ctx, jobStatusPrefix+string(existing.Status), job.ID)
		pipe.SAdd(ctx, jobStatusPrefix+string(job.Status), job.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return NewJobRepositoryError("update_job", job.ID, err, "")
	}

	return nil
}

// UpdateJobStatus updates a job's status, progress, and message.
// Terminal statuses record the completion timestamp.
func (r *RedisJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, progress int, message string) error {
	job, err := r.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = status
	job.Progress = progress
	job.Message = message

	now := time.Now()
	if status == JobStatusProcessing && job.StartedAt == nil {
		job.StartedAt = &now
	}
	if job.IsTerminal() {
		job.CompletedAt = &now
	}

	return r.UpdateJob(ctx, job)
}

// UpdateJobResult stores the job's output data
func (r *RedisJobRepository) UpdateJobResult(ctx context.Context, jobID string, result map[string]interface{}) error {
	job, err := r.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Result = result
	return r.UpdateJob(ctx, job)
}

// EnqueueJob pushes a job onto its type queue and marks it queued
func (r *RedisJobRepository) EnqueueJob(ctx context.Context, job *Job) error {
	if err := r.UpdateJobStatus(ctx, job.ID, JobStatusQueued, job.Progress, "queued for processing"); err != nil {
		return err
	}

	if err := r.client.LPush(ctx, jobQueuePrefix+string(job.Type), job.ID).Err(); err != nil {
		return NewJobRepositoryError("enqueue_job", job.ID, err, "")
	}

	return nil
}

// DequeueJob pops the oldest queued job of the given type and marks it
// processing. Returns (nil, nil) when the queue is empty.
func (r *RedisJobRepository) DequeueJob(ctx context.Context, jobType JobType) (*Job, error) {
	jobID, err := r.client.RPop(ctx, jobQueuePrefix+string(jobType)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, NewJobRepositoryError("dequeue_job", "", err, "")
	}

	if err := r.UpdateJobStatus(ctx, jobID, JobStatusProcessing, 0, "processing started"); err != nil {
		return nil, err
	}

	return r.GetJob(ctx, jobID)
}

// ListJobsByStatus returns all jobs currently in the given status
func (r *RedisJobRepository) ListJobsByStatus(ctx context.Context, status JobStatus) ([]*Job, error) {
	ids, err := r.client.SMembers(ctx, jobStatusPrefix+string(status)).Result()
	if err != nil {
		return nil, NewJobRepositoryError("list_jobs_by_status", "", err, "")
	}

	jobs := make([]*Job, 0, len(ids))
	for _, id := range ids {
		job, err := r.GetJob(ctx, id)
		if err != nil {
			// Index may lag behind deletions; skip dangling ids
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// Ping checks Redis connectivity
func (r *RedisJobRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying Redis client
func (r *RedisJobRepository) Close() error {
	return r.client.Close()
}

// jobExists checks whether a job record is present
func (r *RedisJobRepository) jobExists(ctx context.Context, jobID string) (bool, error) {
	n, err := r.client.Exists(ctx, jobKeyPrefix+jobID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
