package app

import (
	"time"

	"github.com/yungbote/docproc-backend/internal/logger"
	"github.com/yungbote/docproc-backend/internal/utils"
)

type Config struct {
	Port             string
	HeartbeatTimeout time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	port := utils.GetEnv("PORT", "8000", log)
	heartbeatTimeoutSeconds := utils.GetEnvAsInt("HEARTBEAT_TIMEOUT", 30, log)
	return Config{
		Port:             port,
		HeartbeatTimeout: time.Duration(heartbeatTimeoutSeconds) * time.Second,
	}
}
