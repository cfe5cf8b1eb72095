//go:build !debug

package zbx

import (
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"zte.szuro.net/internal/logger"
)

const (
	HEADER_LEN    = 3
	INITIAL_SYNC  = "Cannot perform specified runtime control command during initial configuration cache sync"
	NON_ACTIVE    = "Runtime commands can be executed only in active mode"
	DEFAULT_DELAY = 60 * time.Second
)

var (
	delayRegex  = regexp.MustCompile(`Failover delay: (\d+) seconds`)
	statusRegex = regexp.MustCompile(`\d+\.\s+\S+\s+(\S+)\s+\S+\s+(\S+)`)
)

// GetFailoverDelay returns the failover delay from ha_status output, or
// DEFAULT_DELAY when the output does not carry one.
func GetFailoverDelay(input string) time.Duration {
	match := delayRegex.FindStringSubmatch(input)
	if match == nil {
		return DEFAULT_DELAY
	}
	delay, err := strconv.Atoi(match[1])
	if err != nil {
		return DEFAULT_DELAY
	}
	return time.Duration(delay) * time.Second
}

// Extracts NodeName and node status from a single line of ha_status output
func ExtractNameAndStatus(input string) (string, string) {
	match := statusRegex.FindStringSubmatch(input)
	if len(match) > 2 {
		return strings.TrimSpace(match[1]), strings.TrimSpace(match[2])
	}
	return "", ""
}

// GetHaStatus asks zabbix_server whether this node is active. Evaluating
// triggers from history exports only makes sense on the active node.
func GetHaStatus(config ZabbixConf) (delay time.Duration, nodeIsActive bool) {
	out, err := exec.Command("zabbix_server", "-c", config.configPath, "-R", "ha_status").Output()
	if err != nil {
		logger.Error("Failed to get HA status", slog.Any("error", err))
		return DEFAULT_DELAY, false
	}
	return parseHaStatus(strings.TrimRight(string(out), "\n"), config.NodeName)
}

func parseHaStatus(output, nodeName string) (delay time.Duration, nodeIsActive bool) {
	if output == INITIAL_SYNC {
		logger.Info("Waiting for initial sync to end...")
		return DEFAULT_DELAY, false
	}

	lines := strings.Split(output, "\n")
	if lines[0] == NON_ACTIVE {
		logger.Info("Node in non-active mode, waiting", slog.Duration("delay", DEFAULT_DELAY))
		return DEFAULT_DELAY, false
	}

	delay = GetFailoverDelay(lines[0])
	if len(lines) <= HEADER_LEN {
		logger.Info("Node running in standalone mode")
		return delay, true
	}

	for _, line := range lines[HEADER_LEN:] {
		name, status := ExtractNameAndStatus(line)
		if name == nodeName && status == "active" {
			nodeIsActive = true
		}
	}
	return
}
