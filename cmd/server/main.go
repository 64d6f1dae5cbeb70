package main

import (
	"os"

	"go.uber.org/zap"

	"magic-mirror/config"
	"magic-mirror/internal/server"
	"magic-mirror/internal/storage"
	"magic-mirror/log"
)

func main() {
	log.InitLogger()
	defer log.GetLogger().Sync()

	var err error
	if !config.LoadConfig() {
		return
	}

	if err = config.CheckConfig(); err != nil {
		log.GetLogger().Error("invalid configuration", zap.Error(err))
		return
	}

	storage.InitDB()

	// Jobs orphaned by the previous run would otherwise stay "processing"
	// forever.
	if count, err := storage.MarkStaleTasks(); err != nil {
		log.GetLogger().Warn("failed to mark stale tasks", zap.Error(err))
	} else if count > 0 {
		log.GetLogger().Info("marked stale tasks as failed", zap.Int64("count", count))
	}

	if err = server.StartBackend(); err != nil {
		log.GetLogger().Error("API server failed", zap.Error(err))
		os.Exit(1)
	}
}
