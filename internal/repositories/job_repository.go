package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// JobRepository defines the interface for ingestion job queue operations
type JobRepository interface {
	// Job management
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, jobID string) (*Job, error)
	UpdateJob(ctx context.Context, job *Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, progress int, message string) error
	UpdateJobResult(ctx context.Context, jobID string, result map[string]interface{}) error

	// Queue operations
	EnqueueJob(ctx context.Context, job *Job) error
	DequeueJob(ctx context.Context, jobType JobType) (*Job, error)

	// Queries
	ListJobsByStatus(ctx context.Context, status JobStatus) ([]*Job, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// Job represents a background ingestion job in the queue
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Progress    int                    `json:"progress"` // 0-100
	Message     string                 `json:"message"`
	Payload     map[string]interface{} `json:"payload"` // Input data
	Result      map[string]interface{} `json:"result"`  // Output data
	Error       string                 `json:"error,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at"`
	WorkerID    string                 `json:"worker_id,omitempty"`
}

// JobType represents the type of job
type JobType string

const (
	JobTypeKnowledgeIngest JobType = "knowledge_ingest"
)

// JobStatus represents the current status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Validate checks that a job is well formed before persisting it
func (j *Job) Validate() error {
	if j.ID == "" {
		return InvalidJobError("", "job ID is required")
	}
	if j.Type == "" {
		return InvalidJobError(j.ID, "job type is required")
	}
	if j.Progress < 0 || j.Progress > 100 {
		return InvalidJobError(j.ID, fmt.Sprintf("invalid progress: %d", j.Progress))
	}
	return nil
}

// IsTerminal reports whether the job is in a final state
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// JobDTO represents the API view of a job
type JobDTO struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Status      string                 `json:"status"`
	Progress    int                    `json:"progress"`
	Message     string                 `json:"message"`
	Result      map[string]interface{} `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   string                 `json:"created_at"`
	StartedAt   string                 `json:"started_at,omitempty"`
	CompletedAt string                 `json:"completed_at,omitempty"`
	Duration    string                 `json:"duration,omitempty"`
}

// ToDTO converts a Job to its API representation
func (j *Job) ToDTO() JobDTO {
	dto := JobDTO{
		ID:        j.ID,
		Type:      string(j.Type),
		Status:    string(j.Status),
		Progress:  j.Progress,
		Message:   j.Message,
		Result:    j.Result,
		Error:     j.Error,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
	}
	if j.StartedAt != nil {
		dto.StartedAt = j.StartedAt.Format(time.RFC3339)
	}
	if j.CompletedAt != nil {
		dto.CompletedAt = j.CompletedAt.Format(time.RFC3339)
		if j.StartedAt != nil {
			dto.Duration = j.CompletedAt.Sub(*j.StartedAt).String()
		}
	}
	return dto
}

// JobRepositoryError represents errors from the job repository
type JobRepositoryError struct {
	Operation string
	JobID     string
	Err       error
	Message   string
}

func (e *JobRepositoryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	prefix := e.Operation
	if e.JobID != "" {
		prefix += " (job: " + e.JobID + ")"
	}
	if e.Err != nil {
		return prefix + ": " + e.Err.Error()
	}
	return prefix + ": unknown error"
}

func (e *JobRepositoryError) Unwrap() error {
	return e.Err
}

// NewJobRepositoryError creates a new job repository error
func NewJobRepositoryError(operation string, jobID string, err error, message string) *JobRepositoryError {
	return &JobRepositoryError{
		Operation: operation,
		JobID:     jobID,
		Err:       err,
		Message:   message,
	}
}

// ErrJobNotFound marks lookups of jobs that do not exist
var ErrJobNotFound = errors.New("job not found")

// Common error constructors
func JobNotFoundError(jobID string) error {
	return NewJobRepositoryError("get_job", jobID, ErrJobNotFound, "job not found: "+jobID)
}

func JobAlreadyExistsError(jobID string) error {
	return NewJobRepositoryError("create_job", jobID, nil, "job already exists: "+jobID)
}

func InvalidJobError(jobID string, reason string) error {
	return NewJobRepositoryError("validate_job", jobID, nil, "invalid job: "+reason)
}
