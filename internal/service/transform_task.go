package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"magic-mirror/internal/dto"
	"magic-mirror/internal/gallery"
	"magic-mirror/internal/storage"
	"magic-mirror/internal/types"
	"magic-mirror/internal/workflow"
	"magic-mirror/log"
	apperrors "magic-mirror/pkg/errors"
)

// StartTransformTask validates the request, records it in history and
// launches the workflow in the background. The returned task id can be
// polled with GetTaskStatus, streamed with SubscribeTask, or awaited with
// AwaitTask.
func (s *Service) StartTransformTask(req dto.StartTransformTaskReq, imagePaths map[string]string) (*dto.StartTransformTaskResData, error) {
	feature := types.Feature(req.Feature)
	if !feature.Valid() {
		return nil, apperrors.New(apperrors.CodeInvalidParams, fmt.Sprintf("unsupported feature %q", req.Feature))
	}

	images, err := readImages(imagePaths)
	if err != nil {
		return nil, err
	}

	wfReq := workflow.Request{
		Feature: feature,
		Images:  images,
		Prompt:  strings.TrimSpace(req.Prompt),
	}
	if err := wfReq.Validate(); err != nil {
		return nil, err
	}

	taskId := req.ReuseTaskId
	if taskId == "" {
		taskId = strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	}

	spec, _ := feature.Spec()
	if req.EnhancePrompt && spec.PromptRequired && s.Enhancer != nil {
		polished, err := s.Enhancer.EnhancePrompt(context.Background(), feature, wfReq.Prompt)
		if err != nil {
			// A failed polish is not fatal; generation proceeds with the
			// raw prompt.
			log.GetLogger().Warn("StartTransformTask prompt enhancement failed",
				zap.String("taskId", taskId), zap.Error(err))
		} else {
			wfReq.Prompt = polished
		}
	}

	taskPtr := &types.TransformTask{
		TaskId:    taskId,
		Feature:   string(feature),
		Prompt:    wfReq.Prompt,
		Status:    types.TransformTaskStatusProcessing,
		StatusMsg: "queued",
	}
	if err := storage.SaveTask(taskPtr); err != nil {
		log.GetLogger().Error("StartTransformTask SaveTask err", zap.Error(err))
		return nil, apperrors.Wrap(apperrors.CodeDBError, "Failed to save task", err)
	}

	handle, err := s.launch(taskId, wfReq)
	if err != nil {
		taskPtr.Status = types.TransformTaskStatusFailed
		taskPtr.FailReason = apperrors.GetMessage(err)
		taskPtr.StatusMsg = "failed"
		_ = storage.SaveTask(taskPtr)
		return nil, err
	}

	go s.track(taskId, taskPtr, handle)

	return &dto.StartTransformTaskResData{TaskId: taskId}, nil
}

// launch starts a workflow instance for the task, superseding any
// previous run of the same task id.
func (s *Service) launch(taskId string, req workflow.Request) (*taskHandle, error) {
	s.mu.Lock()
	handle, ok := s.handles[taskId]
	if !ok {
		handle = &taskHandle{controller: workflow.NewController(s.Backend, s.Opts)}
		s.handles[taskId] = handle
	}
	controller := handle.controller
	s.mu.Unlock()

	inst, err := controller.Start(context.Background(), req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	handle.instance = inst
	s.mu.Unlock()
	return handle, nil
}

// track consumes the instance's transitions and mirrors them into the
// history record.
func (s *Service) track(taskId string, taskPtr *types.TransformTask, handle *taskHandle) {
	defer func() {
		if r := recover(); r != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			log.GetLogger().Error("transform task track panic", zap.Any("panic", r), zap.ByteString("stack", buf))
			taskPtr.Status = types.TransformTaskStatusFailed
			taskPtr.FailReason = fmt.Sprintf("internal error: %v", r)
			_ = storage.SaveTask(taskPtr)
		}
	}()

	for ev := range handle.instance.Events() {
		switch ev.State {
		case workflow.StateSubmitting:
			taskPtr.StatusMsg = "submitting"
		case workflow.StatePolling:
			taskPtr.StatusMsg = "processing"
			if ev.Message != "" {
				taskPtr.StatusMsg = ev.Message
			}
			taskPtr.RemoteTaskId = ev.TaskID
		case workflow.StateFetching:
			taskPtr.StatusMsg = "downloading result"
		case workflow.StateSucceeded:
			result := handle.controller.Result()
			if result == nil {
				taskPtr.Status = types.TransformTaskStatusFailed
				taskPtr.FailReason = "result missing after success"
				break
			}
			path, err := gallery.Save(taskId, taskPtr.Feature, result.Format, result.Data)
			if err != nil {
				log.GetLogger().Error("transform task gallery save failed",
					zap.String("taskId", taskId), zap.Error(err))
				taskPtr.Status = types.TransformTaskStatusFailed
				taskPtr.FailReason = apperrors.GetMessage(err)
				break
			}
			taskPtr.Status = types.TransformTaskStatusSucceeded
			taskPtr.StatusMsg = "done"
			taskPtr.FailReason = ""
			taskPtr.ResultPath = path
		case workflow.StateFailed:
			taskPtr.Status = types.TransformTaskStatusFailed
			taskPtr.StatusMsg = "failed"
			taskPtr.FailReason = ev.Message
		}
		if err := storage.SaveTask(taskPtr); err != nil {
			log.GetLogger().Error("transform task status save failed",
				zap.String("taskId", taskId), zap.Error(err))
		}
	}
}

// GetTaskStatus reads the recorded state of a task, overlaying the live
// workflow state when the task is still running in this process.
func (s *Service) GetTaskStatus(req dto.GetTransformTaskReq) (*dto.GetTransformTaskResData, error) {
	taskPtr, err := storage.GetTask(req.TaskId)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeNotFound, "Task not found", err)
	}

	data := &dto.GetTransformTaskResData{
		TaskId:     taskPtr.TaskId,
		Feature:    taskPtr.Feature,
		Status:     taskPtr.Status,
		StatusMsg:  taskPtr.StatusMsg,
		FailReason: taskPtr.FailReason,
		Prompt:     taskPtr.Prompt,
		CreateTime: taskPtr.CreateTime,
	}
	if taskPtr.ResultPath != "" {
		data.ResultUrl = resultDownloadUrl(taskPtr.ResultPath)
	}

	s.mu.Lock()
	handle := s.handles[req.TaskId]
	s.mu.Unlock()
	if handle != nil {
		state, _ := handle.controller.State()
		data.State = state.String()
	} else {
		data.State = stateFromStatus(taskPtr.Status)
	}
	return data, nil
}

// SubscribeTask streams the live state transitions of a running task.
func (s *Service) SubscribeTask(taskId string) (<-chan workflow.Event, func(), error) {
	s.mu.Lock()
	handle := s.handles[taskId]
	s.mu.Unlock()
	if handle == nil {
		return nil, nil, apperrors.New(apperrors.CodeNotFound, "Task is not running")
	}
	ch, stop := handle.controller.Subscribe()
	return ch, stop, nil
}

// AwaitTask blocks until the task's current workflow instance finishes,
// returning an error when it failed. Used by queue workers so retry
// policies see the real outcome.
func (s *Service) AwaitTask(ctx context.Context, taskId string) error {
	s.mu.Lock()
	handle := s.handles[taskId]
	s.mu.Unlock()
	if handle == nil || handle.instance == nil {
		return apperrors.New(apperrors.CodeNotFound, "Task is not running")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-handle.instance.Done():
	}

	state, message := handle.controller.State()
	if state == workflow.StateFailed {
		return apperrors.New(apperrors.CodeJobFailed, message)
	}
	return nil
}

// CancelTask stops the task's in-flight workflow, if any.
func (s *Service) CancelTask(taskId string) {
	s.mu.Lock()
	handle := s.handles[taskId]
	s.mu.Unlock()
	if handle != nil {
		handle.controller.Cancel()
	}
}

// DeleteTaskArtifacts removes a task's stored result and upload files
// along with its history record.
func (s *Service) DeleteTaskArtifacts(taskId string) error {
	s.CancelTask(taskId)

	if taskPtr, err := storage.GetTask(taskId); err == nil && taskPtr.ResultPath != "" {
		if err := os.Remove(taskPtr.ResultPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.GetLogger().Warn("DeleteTaskArtifacts result remove failed",
				zap.String("path", taskPtr.ResultPath), zap.Error(err))
		}
	}
	if uploadDir, err := resolveUploadDir(taskId); err == nil {
		if err := os.RemoveAll(uploadDir); err != nil {
			log.GetLogger().Warn("DeleteTaskArtifacts upload remove failed",
				zap.String("dir", uploadDir), zap.Error(err))
		}
	}

	if err := storage.DeleteTask(taskId); err != nil {
		return apperrors.Wrap(apperrors.CodeDBError, "Failed to delete task", err)
	}

	s.mu.Lock()
	delete(s.handles, taskId)
	s.mu.Unlock()
	return nil
}

func readImages(imagePaths map[string]string) (map[string][]byte, error) {
	images := make(map[string][]byte, len(imagePaths))
	for field, path := range imagePaths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeFileNotFound, fmt.Sprintf("failed to read uploaded image %q", field), err)
		}
		images[field] = data
	}
	return images, nil
}

func stateFromStatus(status uint8) string {
	switch status {
	case types.TransformTaskStatusSucceeded:
		return workflow.StateSucceeded.String()
	case types.TransformTaskStatusFailed:
		return workflow.StateFailed.String()
	default:
		return workflow.StatePolling.String()
	}
}
