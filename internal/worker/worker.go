package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lumina-lms/backend/internal/lessons"
	"github.com/lumina-lms/backend/internal/models"
	"github.com/lumina-lms/backend/pkg/queue"
	"github.com/lumina-lms/backend/pkg/storage"
)

// VideoProcessor processes lesson video jobs: download from the encoding
// provider URL, upload to S3, mark the lesson video ready.
type VideoProcessor struct {
	lessonRepo *lessons.Repository
	s3         *storage.S3
	queue      *queue.Queue
	logger     *zap.Logger
}

// NewVideoProcessor creates a lesson video processor.
func NewVideoProcessor(lessonRepo *lessons.Repository, s3 *storage.S3, q *queue.Queue, logger *zap.Logger) *VideoProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VideoProcessor{lessonRepo: lessonRepo, s3: s3, queue: q, logger: logger}
}

// Process executes one video upload job.
func (p *VideoProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeVideoUpload {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.VideoUploadPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	lesson, err := p.lessonRepo.GetByID(ctx, payload.LessonID)
	if err != nil || lesson == nil {
		return fmt.Errorf("lesson not found: %d", payload.LessonID)
	}
	if lesson.VideoStatus == models.VideoStatusReady {
		p.logger.Info("lesson video already ready", zap.Int64("lesson_id", lesson.ID))
		return nil
	}

	// Download from provider (streaming)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, payload.SourceURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download status: %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	key := storage.VideoKey(payload.CourseID, payload.LessonID)

	// Stream upload to S3 (no full buffer)
	if _, err := p.s3.Upload(ctx, key, contentType, resp.Body, resp.ContentLength); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}

	if err := p.lessonRepo.SetVideoReady(ctx, payload.LessonID, key, payload.DurationSec); err != nil {
		p.logger.Error("mark video ready failed", zap.Error(err), zap.Int64("lesson_id", payload.LessonID))
		return fmt.Errorf("update db: %w", err)
	}

	p.logger.Info("lesson video processed", zap.Int64("lesson_id", payload.LessonID), zap.String("s3_key", key))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error. Jobs that
// exhaust their retries are marked failed so the lesson is not stuck in
// processing forever.
func (p *VideoProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("video worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if job.Attempt+1 >= queue.MaxRetries {
				p.markFailed(ctx, job)
			}
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}

func (p *VideoProcessor) markFailed(ctx context.Context, job *queue.Job) {
	var payload queue.VideoUploadPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return
	}
	if err := p.lessonRepo.SetVideoFailed(ctx, payload.LessonID); err != nil {
		p.logger.Error("mark video failed errored", zap.Error(err), zap.Int64("lesson_id", payload.LessonID))
	}
}
