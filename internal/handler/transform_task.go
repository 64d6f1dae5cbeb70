package handler

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"magic-mirror/internal/appdirs"
	"magic-mirror/internal/dto"
	"magic-mirror/internal/gallery"
	"magic-mirror/internal/queue"
	"magic-mirror/internal/response"
	"magic-mirror/internal/storage"
	"magic-mirror/internal/styles"
	"magic-mirror/internal/taskrunner"
	"magic-mirror/internal/types"
	"magic-mirror/log"
	apperrors "magic-mirror/pkg/errors"
)

var appDirsResolver = appdirs.Resolve

// StartTransformTask accepts a multipart request with the feature's image
// parts plus feature/prompt fields, stores the uploads and dispatches the
// job. The response carries the task id to poll or stream.
func (h *Handler) StartTransformTask(c *gin.Context) {
	var req dto.StartTransformTaskReq
	if err := c.ShouldBind(&req); err != nil {
		log.GetLogger().Error("StartTransformTask ShouldBind err", zap.Error(err))
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, "Invalid parameters", err))
		return
	}

	feature := types.Feature(req.Feature)
	spec, ok := feature.Spec()
	if !ok {
		response.ErrorResponse(c, apperrors.New(apperrors.CodeInvalidParams, fmt.Sprintf("unsupported feature %q", req.Feature)))
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, "Invalid multipart form", err))
		return
	}

	// Reject incomplete selections before anything is written to disk.
	for _, field := range spec.ImageFields {
		if len(form.File[field]) == 0 {
			response.ErrorResponse(c, apperrors.New(apperrors.CodeMissingImage, spec.MissingImageMsg))
			return
		}
	}
	if spec.PromptRequired && strings.TrimSpace(req.Prompt) == "" {
		response.ErrorResponse(c, apperrors.New(apperrors.CodeMissingPrompt, "please describe the style you want"))
		return
	}

	h.refreshService()

	taskId := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	imagePaths, err := h.saveUploads(c, taskId, spec.ImageFields, form)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}

	// Record the task as queued so status polls work before a worker
	// picks it up.
	if err := storage.SaveTask(&types.TransformTask{
		TaskId:    taskId,
		Feature:   string(feature),
		Prompt:    strings.TrimSpace(req.Prompt),
		Status:    types.TransformTaskStatusProcessing,
		StatusMsg: "queued",
	}); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeDBError, "Failed to save task", err))
		return
	}

	if err := h.dispatch(taskId, req, imagePaths); err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, dto.StartTransformTaskResData{TaskId: taskId})
}

func (h *Handler) saveUploads(c *gin.Context, taskId string, fields []string, form *multipart.Form) (map[string]string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeFileWriteError, "failed to resolve upload directory", err)
	}
	uploadDir := appdirs.UploadDirFor(dirs, taskId)
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeFileWriteError, "failed to create upload directory", err)
	}

	paths := make(map[string]string, len(fields))
	for _, field := range fields {
		// Parts are stored under their field name: retries re-read them
		// without needing the original file names.
		dst := filepath.Join(uploadDir, field+".jpg")
		if err := c.SaveUploadedFile(form.File[field][0], dst); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeFileWriteError, "failed to store uploaded image", err)
		}
		paths[field] = dst
	}
	return paths, nil
}

func (h *Handler) dispatch(taskId string, req dto.StartTransformTaskReq, imagePaths map[string]string) error {
	switch {
	case h.Queue != nil:
		return h.enqueue(queue.TransformTaskPayload{
			TaskID:        taskId,
			Feature:       req.Feature,
			Prompt:        req.Prompt,
			EnhancePrompt: req.EnhancePrompt,
			ImagePaths:    imagePaths,
		})
	case h.Runner != nil:
		return h.Runner.SubmitTransformTask(taskrunner.TransformTaskPayload{
			TaskID:        taskId,
			Feature:       req.Feature,
			Prompt:        req.Prompt,
			EnhancePrompt: req.EnhancePrompt,
			ImagePaths:    imagePaths,
		})
	default:
		req.ReuseTaskId = taskId
		_, err := h.Service.StartTransformTask(req, imagePaths)
		return err
	}
}

func (h *Handler) enqueue(payload queue.TransformTaskPayload) error {
	if err := h.Queue.EnqueueTransformTask(payload); err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, "Failed to enqueue task", err)
	}
	return nil
}

func (h *Handler) GetTransformTask(c *gin.Context) {
	var req dto.GetTransformTaskReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, "Invalid parameters", err))
		return
	}

	data, err := h.Service.GetTaskStatus(req)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, data)
}

func (h *Handler) GetTaskHistory(c *gin.Context) {
	tasks, err := storage.GetTaskHistory(200)
	if err != nil {
		response.Error(c, -1, "failed to load history: "+err.Error())
		return
	}
	response.Success(c, tasks)
}

func (h *Handler) DeleteTask(c *gin.Context) {
	taskId := c.Param("taskId")
	if taskId == "" {
		response.Error(c, -1, "taskId is required")
		return
	}

	if err := h.Service.DeleteTaskArtifacts(taskId); err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, nil)
}

// RetryTask re-runs a finished task against its stored inputs.
func (h *Handler) RetryTask(c *gin.Context) {
	taskId := c.Param("taskId")
	if taskId == "" {
		response.Error(c, -1, "taskId is required")
		return
	}

	task, err := storage.GetTask(taskId)
	if err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeNotFound, "Task not found", err))
		return
	}
	if task.Status == types.TransformTaskStatusProcessing {
		response.Error(c, -1, "task is still running")
		return
	}

	imagePaths, err := storedUploadPaths(taskId, types.Feature(task.Feature))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}

	h.refreshService()

	req := dto.StartTransformTaskReq{
		Feature: task.Feature,
		Prompt:  task.Prompt,
	}
	if err := h.dispatch(taskId, req, imagePaths); err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, dto.StartTransformTaskResData{TaskId: taskId})
}

// GetStylePresets lists prompt suggestions for a feature, optionally
// matching a partial input.
func (h *Handler) GetStylePresets(c *gin.Context) {
	feature := types.Feature(c.Query("feature"))
	if !feature.Valid() {
		response.ErrorResponse(c, apperrors.New(apperrors.CodeInvalidParams, "unsupported feature"))
		return
	}

	data := dto.StylePresetsResData{
		Feature: string(feature),
		Presets: styles.Presets(feature),
	}
	if input := c.Query("input"); input != "" {
		if suggestion, ok := styles.Nearest(feature, input); ok {
			data.Presets = append([]string{suggestion}, data.Presets...)
		}
	}
	response.Success(c, data)
}

func (h *Handler) GetGallery(c *gin.Context) {
	entries, err := gallery.List()
	if err != nil {
		response.Error(c, -1, "failed to list gallery: "+err.Error())
		return
	}
	response.Success(c, entries)
}

// DownloadFile serves stored artifacts by their download path, e.g.
// gallery/try-on_abc.png or uploads/<taskId>/person_image.jpg.
func (h *Handler) DownloadFile(c *gin.Context) {
	requested := strings.TrimPrefix(c.Param("filepath"), "/")
	if requested == "" || hasParentTraversal(requested) {
		c.JSON(404, response.Response{Error: -1, Msg: "file not found"})
		return
	}
	requested = filepath.ToSlash(filepath.Clean(requested))

	dirs, err := appDirsResolver()
	if err != nil {
		c.JSON(404, response.Response{Error: -1, Msg: "file not found"})
		return
	}

	var localPath string
	switch {
	case strings.HasPrefix(requested, appdirs.GalleryRootName+"/"):
		localPath = filepath.Join(appdirs.GalleryRootFor(dirs), strings.TrimPrefix(requested, appdirs.GalleryRootName+"/"))
	case strings.HasPrefix(requested, appdirs.UploadRootName+"/"):
		localPath = filepath.Join(appdirs.UploadRootFor(dirs), strings.TrimPrefix(requested, appdirs.UploadRootName+"/"))
	default:
		c.JSON(404, response.Response{Error: -1, Msg: "file not found"})
		return
	}

	if _, err := os.Stat(localPath); err != nil {
		c.JSON(404, response.Response{Error: -1, Msg: "file not found"})
		return
	}
	c.FileAttachment(localPath, filepath.Base(localPath))
}

func hasParentTraversal(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

func storedUploadPaths(taskId string, feature types.Feature) (map[string]string, error) {
	spec, ok := feature.Spec()
	if !ok {
		return nil, apperrors.New(apperrors.CodeInvalidParams, "unsupported feature")
	}

	dirs, err := appDirsResolver()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeFileNotFound, "failed to resolve upload directory", err)
	}
	uploadDir := appdirs.UploadDirFor(dirs, taskId)

	paths := make(map[string]string, len(spec.ImageFields))
	for _, field := range spec.ImageFields {
		path := filepath.Join(uploadDir, field+".jpg")
		if _, err := os.Stat(path); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeFileNotFound, "original uploads are no longer available", err)
		}
		paths[field] = path
	}
	return paths, nil
}
