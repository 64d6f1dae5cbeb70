package router

import (
	"magic-mirror/config"
	"magic-mirror/internal/handler"
	"magic-mirror/internal/queue"
	"magic-mirror/internal/service"
	"magic-mirror/internal/taskrunner"
	"magic-mirror/log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func SetupRouter(r *gin.Engine) {
	svc := service.NewService()

	var q *queue.Queue
	var runner *taskrunner.Runner
	if config.Conf.Queue.Enabled {
		q = queue.NewQueue(queue.QueueConfig{
			RedisAddr:     config.Conf.Queue.RedisAddr,
			RedisPassword: config.Conf.Queue.RedisPassword,
			RedisDB:       config.Conf.Queue.RedisDB,
			Concurrency:   config.Conf.Queue.Concurrency,
		})
		go func() {
			if err := queue.StartWorker(q, svc); err != nil {
				log.GetLogger().Error("queue worker exited", zap.Error(err))
			}
		}()
	} else {
		runner = taskrunner.New(svc, taskrunner.DefaultConfig())
	}

	hdl := handler.NewHandler(svc, runner, q)

	api := r.Group("/api")
	{
		api.POST("/capability/transformTask", hdl.StartTransformTask)
		api.GET("/capability/transformTask", hdl.GetTransformTask)
		api.GET("/capability/history", hdl.GetTaskHistory)
		api.DELETE("/capability/task/:taskId", hdl.DeleteTask)
		api.POST("/capability/task/:taskId/retry", hdl.RetryTask)
		api.GET("/capability/task/:taskId/progress", hdl.TaskProgress)
		api.GET("/styles", hdl.GetStylePresets)
		api.GET("/gallery", hdl.GetGallery)
		api.GET("/file/*filepath", hdl.DownloadFile)
		api.HEAD("/file/*filepath", hdl.DownloadFile)
		api.GET("/health", hdl.Health)
		api.GET("/config", hdl.GetConfig)
		api.POST("/config", hdl.UpdateConfig)
	}

	r.GET("/", hdl.Health)
}
