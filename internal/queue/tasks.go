package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"magic-mirror/internal/dto"
	"magic-mirror/internal/service"
	"magic-mirror/internal/storage"
	"magic-mirror/internal/types"
	"magic-mirror/log"
)

// TaskHandlers provides handlers for different task types
type TaskHandlers struct {
	service *service.Service
}

// NewTaskHandlers creates a new TaskHandlers instance
func NewTaskHandlers(svc *service.Service) *TaskHandlers {
	return &TaskHandlers{service: svc}
}

// HandleTransformTask processes one queued transformation end to end and
// only returns once the workflow has finished, so Asynq's retry policy
// reacts to the real outcome.
func (h *TaskHandlers) HandleTransformTask(ctx context.Context, t *asynq.Task) error {
	var payload TransformTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	log.GetLogger().Info("[Queue] Processing transform task",
		zap.String("task_id", payload.TaskID),
		zap.String("feature", payload.Feature))

	req := dto.StartTransformTaskReq{
		Feature:       payload.Feature,
		Prompt:        payload.Prompt,
		EnhancePrompt: payload.EnhancePrompt,
		ReuseTaskId:   payload.TaskID,
	}

	if _, err := h.service.StartTransformTask(req, payload.ImagePaths); err != nil {
		h.markFailed(payload.TaskID, err)
		return err
	}

	if err := h.service.AwaitTask(ctx, payload.TaskID); err != nil {
		return err
	}

	log.GetLogger().Info("[Queue] Transform task completed",
		zap.String("task_id", payload.TaskID))

	return nil
}

func (h *TaskHandlers) markFailed(taskID string, taskErr error) {
	task, err := storage.GetTask(taskID)
	if err != nil || task == nil {
		return
	}
	task.Status = types.TransformTaskStatusFailed
	task.FailReason = taskErr.Error()
	task.StatusMsg = "failed"
	_ = storage.SaveTask(task)
}

// RegisterHandlers registers all task handlers with the Asynq server mux
func (h *TaskHandlers) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeTransformTask, h.HandleTransformTask)
}

// StartWorker starts the Asynq worker with registered handlers
func StartWorker(q *Queue, svc *service.Service) error {
	handlers := NewTaskHandlers(svc)

	mux := asynq.NewServeMux()
	handlers.RegisterHandlers(mux)

	log.GetLogger().Info("[Queue] Starting worker",
		zap.String("redis_addr", q.config.RedisAddr),
		zap.Int("concurrency", q.config.Concurrency))

	return q.server.Run(mux)
}
