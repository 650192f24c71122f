package workers

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"aven-support/internal/models"
	"aven-support/internal/repositories"
	"aven-support/internal/services"
)

// IngestPipeline runs the chunk-embed-upsert pipeline for a document batch
type IngestPipeline interface {
	ProcessDocuments(ctx context.Context, documents []models.IngestDocument) (int, error)
}

// IngestWorker drains knowledge ingestion jobs from the queue and feeds
// them through the ingest pipeline
type IngestWorker struct {
	*BaseWorker
	jobRepo  repositories.JobRepository
	pipeline IngestPipeline
	logger   *log.Logger
	wg       sync.WaitGroup
}

// NewIngestWorker creates a new ingest worker
func NewIngestWorker(config WorkerConfig, jobRepo repositories.JobRepository, pipeline IngestPipeline, logger *log.Logger) *IngestWorker {
	return &IngestWorker{
		BaseWorker: NewBaseWorker(config),
		jobRepo:    jobRepo,
		pipeline:   pipeline,
		logger:     logger,
	}
}

// Start begins processing ingest jobs
func (w *IngestWorker) Start(ctx context.Context) error {
	if w.IsRunning() {
		return NewWorkerError(w.Name(), "start", nil, "worker already running")
	}

	w.setRunning(true)
	w.logger.Printf("Starting ingest worker: %s (concurrency: %d)", w.Name(), w.config.Concurrency)

	for i := 0; i < w.config.Concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i)
	}

	return nil
}

// Stop shuts the worker down, waiting for in-flight jobs up to the
// shutdown timeout
func (w *IngestWorker) Stop(ctx context.Context) error {
	if !w.IsRunning() {
		return nil
	}

	w.logger.Printf("Stopping ingest worker: %s", w.Name())
	w.setRunning(false)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	shutdownCtx, cancel := context.WithTimeout(ctx, w.config.ShutdownTimeout)
	defer cancel()

	select {
	case <-done:
		w.logger.Printf("Ingest worker stopped: %s", w.Name())
		return nil
	case <-shutdownCtx.Done():
		return NewWorkerError(w.Name(), "stop", shutdownCtx.Err(), "")
	}
}

// processJobs polls the queue until the worker stops
func (w *IngestWorker) processJobs(ctx context.Context, goroutineID int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-goroutine-%d", w.Name(), goroutineID)
	w.logger.Printf("Worker goroutine started: %s", workerName)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Printf("Worker goroutine stopping: %s", workerName)
			return

		case <-ticker.C:
			if !w.IsRunning() {
				return
			}

			job, err := w.jobRepo.DequeueJob(ctx, repositories.JobTypeKnowledgeIngest)
			if err != nil {
				w.logger.Printf("Failed to dequeue job: %v", err)
				continue
			}
			if job == nil {
				continue
			}

			w.processJob(ctx, job)
		}
	}
}

// processJob processes a single ingest job
func (w *IngestWorker) processJob(ctx context.Context, job *repositories.Job) {
	startTime := w.recordJobStart()
	w.logger.Printf("Processing job: %s (type: %s)", job.ID, job.Type)

	job.WorkerID = w.Name()

	var err error
	if w.config.EnableRecovery {
		err = w.processJobWithRecovery(ctx, job)
	} else {
		err = w.processJobInternal(ctx, job)
	}

	if err != nil {
		w.handleJobFailure(ctx, job, err, startTime)
	} else {
		w.handleJobSuccess(ctx, job, startTime)
	}
}

// processJobWithRecovery wraps job processing with panic recovery
func (w *IngestWorker) processJobWithRecovery(ctx context.Context, job *repositories.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &WorkerPanicError{Panic: r}
			w.logger.Printf("Panic in job processing: %v", r)
		}
	}()
	return w.processJobInternal(ctx, job)
}

// processJobInternal performs the actual ingestion
func (w *IngestWorker) processJobInternal(ctx context.Context, job *repositories.Job) error {
	documents, err := services.DecodeIngestPayload(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid job payload: %w", err)
	}
	if len(documents) == 0 {
		return fmt.Errorf("job has no documents")
	}

	w.updateProgress(ctx, job.ID, 10, fmt.Sprintf("Ingesting %d documents...", len(documents)))

	chunkCount, err := w.pipeline.ProcessDocuments(ctx, documents)
	if err != nil {
		return err
	}

	w.updateProgress(ctx, job.ID, 90, fmt.Sprintf("Stored %d chunks", chunkCount))

	result := map[string]interface{}{
		"document_count": len(documents),
		"chunk_count":    chunkCount,
		"success":        true,
	}
	if err := w.jobRepo.UpdateJobResult(ctx, job.ID, result); err != nil {
		w.logger.Printf("Failed to update job result: %v", err)
	}

	return nil
}

// handleJobSuccess marks a job completed
func (w *IngestWorker) handleJobSuccess(ctx context.Context, job *repositories.Job, startTime time.Time) {
	w.recordJobSuccess(startTime)

	err := w.jobRepo.UpdateJobStatus(ctx, job.ID, repositories.JobStatusCompleted, 100, "Ingestion completed successfully")
	if err != nil {
		w.logger.Printf("Failed to update job status to completed: %v", err)
	}

	w.logger.Printf("Job completed successfully: %s (duration: %v)", job.ID, time.Since(startTime))
}

// handleJobFailure re-queues a failed job until its retries run out
func (w *IngestWorker) handleJobFailure(ctx context.Context, job *repositories.Job, jobErr error, startTime time.Time) {
	w.recordJobFailure(startTime)

	// Re-read for the current retry count; another goroutine may have
	// touched the job
	freshJob, err := w.jobRepo.GetJob(ctx, job.ID)
	if err != nil {
		w.logger.Printf("Failed to get job for retry check: %v", err)
		return
	}

	freshJob.RetryCount++
	freshJob.Error = jobErr.Error()

	if err := w.jobRepo.UpdateJob(ctx, freshJob); err != nil {
		w.logger.Printf("Failed to update job with retry count: %v", err)
		return
	}

	if freshJob.RetryCount <= freshJob.MaxRetries {
		w.logger.Printf("Job failed, will retry (%d/%d): %s - %v", freshJob.RetryCount, freshJob.MaxRetries, freshJob.ID, jobErr)

		freshJob.Message = fmt.Sprintf("Failed: %v. Retry %d/%d", jobErr, freshJob.RetryCount, freshJob.MaxRetries)

		time.Sleep(w.config.RetryDelay)
		if err := w.jobRepo.EnqueueJob(ctx, freshJob); err != nil {
			w.logger.Printf("Failed to re-enqueue job: %v", err)
		}
	} else {
		w.logger.Printf("Job failed permanently after %d retries: %s - %v", freshJob.MaxRetries, freshJob.ID, jobErr)

		message := fmt.Sprintf("Failed permanently after %d retries: %v", freshJob.MaxRetries, jobErr)
		if err := w.jobRepo.UpdateJobStatus(ctx, freshJob.ID, repositories.JobStatusFailed, freshJob.Progress, message); err != nil {
			w.logger.Printf("Failed to update job to failed status: %v", err)
		}
	}
}

// updateProgress updates job progress, keeping the job in processing state
func (w *IngestWorker) updateProgress(ctx context.Context, jobID string, progress int, message string) {
	err := w.jobRepo.UpdateJobStatus(ctx, jobID, repositories.JobStatusProcessing, progress, message)
	if err != nil {
		w.logger.Printf("Failed to update job progress: %v", err)
	}
}
