//go:build debug

package zbx

import (
	"time"

	"zte.szuro.net/internal/logger"
)

const DEFAULT_DELAY = 60 * time.Second

func GetFailoverDelay(input string) time.Duration {
	return DEFAULT_DELAY
}

func ExtractNameAndStatus(input string) (string, string) {
	return "test", "active"
}

// GetHaStatus treats a debug build as a standalone active node.
func GetHaStatus(config ZabbixConf) (delay time.Duration, nodeIsActive bool) {
	logger.Debug("Debug server is always active", "node", config.NodeName)
	return GetFailoverDelay(""), true
}
