package handler

import (
	"magic-mirror/config"
	"magic-mirror/internal/queue"
	"magic-mirror/internal/response"
	"magic-mirror/internal/service"
	"magic-mirror/internal/taskrunner"
	"magic-mirror/log"
	"magic-mirror/pkg/genapi"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// configUpdated is set by UpdateConfig so the next task request rebuilds
// the service with the new settings.
var configUpdated bool

type Handler struct {
	Service *service.Service
	Runner  *taskrunner.Runner
	Queue   *queue.Queue
}

func NewHandler(svc *service.Service, runner *taskrunner.Runner, q *queue.Queue) *Handler {
	return &Handler{
		Service: svc,
		Runner:  runner,
		Queue:   q,
	}
}

// refreshService rebuilds the service after a config update.
func (h *Handler) refreshService() {
	if !configUpdated {
		return
	}
	log.GetLogger().Info("config updated, reinitializing service")
	h.Service = service.NewService()
	configUpdated = false
}

// Health reports process liveness and, when possible, remote service
// reachability.
func (h *Handler) Health(c *gin.Context) {
	data := gin.H{"status": "ok"}
	if h.Service != nil {
		if client, ok := h.Service.Backend.(*genapi.Client); ok {
			if info, err := client.Health(c.Request.Context()); err != nil {
				data["remote"] = "unreachable"
			} else {
				data["remote"] = "ok"
				if len(info) > 0 {
					data["remote_info"] = info
				}
			}
		}
	}
	response.Success(c, data)
}

func (h *Handler) GetConfig(c *gin.Context) {
	response.Success(c, config.Conf)
}

func (h *Handler) UpdateConfig(c *gin.Context) {
	var newConf config.Config
	if err := c.ShouldBindJSON(&newConf); err != nil {
		response.Error(c, -1, "invalid config payload")
		return
	}

	config.Conf = newConf
	if err := config.CheckConfig(); err != nil {
		response.Error(c, -1, "config validation failed: "+err.Error())
		return
	}
	if err := config.SaveConfig(); err != nil {
		log.GetLogger().Error("UpdateConfig SaveConfig err", zap.Error(err))
		response.Error(c, -1, "failed to persist config")
		return
	}

	configUpdated = true
	response.Success(c, nil)
}
