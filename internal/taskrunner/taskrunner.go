package taskrunner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"magic-mirror/internal/dto"
	"magic-mirror/internal/service"
	"magic-mirror/internal/storage"
	"magic-mirror/internal/types"
	"magic-mirror/log"
)

const (
	defaultQueueSize   = 128
	defaultConcurrency = 2
)

var (
	ErrRunnerStopped = errors.New("task runner stopped")
	ErrQueueFull     = errors.New("task queue is full")
)

// Config controls in-process task runner behavior.
type Config struct {
	QueueSize   int
	Concurrency int
}

// DefaultConfig returns a single-host-friendly default config.
func DefaultConfig() Config {
	return Config{
		QueueSize:   defaultQueueSize,
		Concurrency: defaultConcurrency,
	}
}

// TransformTaskPayload contains transform task enqueue data. Images are
// referenced by their uploaded paths so payloads stay small.
type TransformTaskPayload struct {
	TaskID        string            `json:"task_id"`
	Feature       string            `json:"feature"`
	Prompt        string            `json:"prompt,omitempty"`
	EnhancePrompt bool              `json:"enhance_prompt,omitempty"`
	ImagePaths    map[string]string `json:"image_paths"`
}

// Runner executes queued tasks with in-memory workers.
type Runner struct {
	service *service.Service
	config  Config

	queue  chan TransformTaskPayload
	ctx    context.Context
	cancel context.CancelFunc

	workerWg sync.WaitGroup
	closed   atomic.Bool
}

// New creates and starts a task runner.
func New(svc *service.Service, cfg Config) *Runner {
	if svc == nil {
		svc = service.NewService()
	}

	cfg = normalizeConfig(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	runner := &Runner{
		service: svc,
		config:  cfg,
		queue:   make(chan TransformTaskPayload, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < cfg.Concurrency; i++ {
		runner.workerWg.Add(1)
		go runner.worker(i + 1)
	}

	return runner
}

func normalizeConfig(cfg Config) Config {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return cfg
}

// SubmitTransformTask queues a transformation job.
func (r *Runner) SubmitTransformTask(payload TransformTaskPayload) error {
	if payload.TaskID == "" {
		return errors.New("transform task id is required")
	}
	if r.closed.Load() {
		return ErrRunnerStopped
	}

	select {
	case <-r.ctx.Done():
		return ErrRunnerStopped
	case r.queue <- payload:
		log.GetLogger().Info("[TaskRunner] task submitted",
			zap.String("task_id", payload.TaskID),
			zap.String("feature", payload.Feature))
		return nil
	default:
		return ErrQueueFull
	}
}

func (r *Runner) worker(workerID int) {
	defer r.workerWg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		select {
		case <-r.ctx.Done():
			return
		case payload := <-r.queue:
			r.processTask(workerID, payload)
		}
	}
}

func (r *Runner) processTask(workerID int, payload TransformTaskPayload) {
	err := r.runTransformTask(payload)
	if err != nil {
		log.GetLogger().Error("[TaskRunner] task failed",
			zap.Int("worker_id", workerID),
			zap.String("task_id", payload.TaskID),
			zap.String("feature", payload.Feature),
			zap.Error(err))
		return
	}

	log.GetLogger().Info("[TaskRunner] task completed",
		zap.Int("worker_id", workerID),
		zap.String("task_id", payload.TaskID),
		zap.String("feature", payload.Feature))
}

func (r *Runner) runTransformTask(payload TransformTaskPayload) error {
	if r.service == nil {
		return errors.New("service not initialized")
	}

	req := dto.StartTransformTaskReq{
		Feature:       payload.Feature,
		Prompt:        payload.Prompt,
		EnhancePrompt: payload.EnhancePrompt,
		ReuseTaskId:   payload.TaskID,
	}

	if _, err := r.service.StartTransformTask(req, payload.ImagePaths); err != nil {
		r.markTransformTaskFailed(payload.TaskID, err)
		return err
	}

	// Occupy the worker until the workflow finishes, so Concurrency caps
	// the number of in-flight remote jobs.
	return r.service.AwaitTask(r.ctx, payload.TaskID)
}

func (r *Runner) markTransformTaskFailed(taskID string, taskErr error) {
	if taskID == "" {
		return
	}

	task, err := storage.GetTask(taskID)
	if err != nil || task == nil {
		return
	}

	task.Status = types.TransformTaskStatusFailed
	task.FailReason = taskErr.Error()
	task.StatusMsg = "failed"
	_ = storage.SaveTask(task)
}

// Close stops workers and rejects new tasks.
func (r *Runner) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	r.cancel()
	r.workerWg.Wait()
}

// Pending returns the number of queued tasks waiting for workers.
func (r *Runner) Pending() int {
	return len(r.queue)
}
