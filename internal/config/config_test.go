package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestSetBuffer(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"Zero", 0, 10},
		{"Negative", -3, 10},
		{"Non-Zero", 1337, 1337},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := ZTEConf{BufferSize: tt.input}
			config.setBuffer()
			require.Equal(t, tt.expected, config.BufferSize)
		})
	}
}

func TestSetMode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Valid Mode - FILE_MODE", FILE_MODE, FILE_MODE},
		{"Valid Mode - HTTP_MODE", HTTP_MODE, HTTP_MODE},
		{"Empty Mode", "", HTTP_MODE},
		{"Random Mode", "FNORD", HTTP_MODE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := ZTEConf{Mode: tt.input}
			config.setMode()
			require.Equal(t, tt.expected, config.Mode)
		})
	}
}

func TestSetPort(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"Zero Port", 0, 2021},
		{"Non-Zero Port", 8080, 8080},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := ZTEConf{Http: HTTPConf{ListenPort: tt.input}}
			config.setPort()
			require.Equal(t, tt.expected, config.Http.ListenPort)
		})
	}
}

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			config := ZTEConf{LogLevel: tt.input}
			config.setLogLevel()
			require.Equal(t, tt.expected, config.GetLogLevel())
		})
	}
}

func TestZTEConf_setOfflineBuffers(t *testing.T) {
	tests := []struct {
		name     string
		targets  []Target
		expected []int64
	}{
		{"All positive values", []Target{{OfflineBufferTime: 10}, {OfflineBufferTime: 5}}, []int64{10, 5}},
		{"Mixed values", []Target{{OfflineBufferTime: -5}, {OfflineBufferTime: 0}, {OfflineBufferTime: 7}}, []int64{0, 0, 7}},
		{"Empty targets", []Target{}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := &ZTEConf{Targets: tt.targets}
			conf.setOfflineBuffers()
			for i, target := range conf.Targets {
				require.Equal(t, tt.expected[i], target.OfflineBufferTime)
			}
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zted.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseZTEConfig(t *testing.T) {
	path := writeConfig(t, `
mode: file
inventory:
  path: /etc/zted/inventory.yaml
history:
  retain: 20
  ttl: 2h
macros:
  "{$LIMIT}": "5"
triggers:
  - name: load
    expression: "{web01:system.cpu.load.last()}>{$LIMIT}"
    severity: 4
targets:
  - name: stdout
    type: print
    filter:
      min_severity: 3
      rejected:
        - tag: env
          value: dev
`)

	conf, err := ParseZTEConfig(path)
	require.NoError(t, err)
	require.Equal(t, FILE_MODE, conf.Mode)
	require.Equal(t, INVENTORY_FILE, conf.Inventory.Type)
	require.Equal(t, 20, conf.History.Retain)
	require.Equal(t, 2*time.Hour, conf.History.TTL)
	require.Equal(t, "5", conf.Macros["{$LIMIT}"])
	require.Len(t, conf.Triggers, 1)
	require.Equal(t, 4, conf.Triggers[0].Severity)
	require.Equal(t, "/etc/zabbix/zabbix_server.conf", conf.ServerConfig)
	require.Equal(t, int64(10000), conf.Cache.MaxEntries)
	require.Equal(t, 3, conf.Targets[0].Filter.MinSeverity)
	require.Equal(t, "dev", conf.Targets[0].Filter.Rejected[0].Value)
}

func TestParseZTEConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"No triggers", "inventory:\n  path: x\n"},
		{"Duplicate trigger", "inventory:\n  path: x\ntriggers:\n  - {name: a, expression: '1=1'}\n  - {name: a, expression: '1=0'}\n"},
		{"Missing expression", "inventory:\n  path: x\ntriggers:\n  - {name: a}\n"},
		{"Missing inventory path", "triggers:\n  - {name: a, expression: '1=1'}\n"},
		{"PSQL without connection", "inventory:\n  type: psql\ntriggers:\n  - {name: a, expression: '1=1'}\n"},
		{"Broken yaml", "triggers: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseZTEConfig(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}

	_, err := ParseZTEConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestApplyDBOptions(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ApplyDBOptions(db, map[string]string{
		"max_conn": "7",
		"max_idle": "bogus",
		"unknown":  "1",
	})
	require.Equal(t, 7, db.Stats().MaxOpenConnections)
}
