package config

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"zte.szuro.net/internal/filter"
)

const FILE_MODE = "file"
const HTTP_MODE = "http"

const (
	INVENTORY_FILE = "file"
	INVENTORY_PSQL = "psql"
)

type ZTEConf struct {
	ServerConfig string `yaml:"server_config"`
	Mode         string
	DataDir      string `yaml:"data_dir"`
	BufferSize   int    `yaml:"buffer_size"`
	Http         HTTPConf
	History      HistoryConf
	Cache        CacheConf
	Inventory    InventoryConf
	Macros       map[string]string
	Triggers     []TriggerConf
	Targets      []Target
	LogLevel     string     `yaml:"log_level"`
	slogLevel    slog.Level `yaml:"omitempty"`
}

type HTTPConf struct {
	ListenPort    int    `yaml:"listen_port"`
	ListenAddress string `yaml:"listen_address"`
}

type HistoryConf struct {
	// Retain is the number of values kept per item.
	Retain int
	TTL    time.Duration `yaml:"ttl"`
}

type CacheConf struct {
	Enabled    bool
	MaxEntries int64 `yaml:"max_entries"`
}

type InventoryConf struct {
	Type       string
	Path       string
	Connection string
	Options    map[string]string
}

type TriggerConf struct {
	Name               string
	Expression         string
	RecoveryExpression string `yaml:"recovery_expression"`
	Severity           int
	Tags               map[string]string
}

type Target struct {
	Name       string
	Type       string
	Connection string
	// Hours to keep events that could not be shipped.
	OfflineBufferTime int64 `yaml:"offline_buffer_time"`
	Filter            filter.EventFilter
	Options           map[string]string
}

func (zc *ZTEConf) setLogLevel() {
	switch zc.LogLevel {
	case "DEBUG":
		zc.slogLevel = slog.LevelDebug
	case "INFO":
		zc.slogLevel = slog.LevelInfo
	case "WARN":
		zc.slogLevel = slog.LevelWarn
	case "ERROR":
		zc.slogLevel = slog.LevelError
	default:
		zc.slogLevel = slog.LevelInfo
	}
}

func (zc *ZTEConf) GetLogLevel() slog.Level {
	return zc.slogLevel
}

func ParseZTEConfig(path string) (conf ZTEConf, err error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return conf, fmt.Errorf("cannot read zted config file: %w", err)
	}

	if err = yaml.Unmarshal(file, &conf); err != nil {
		return conf, fmt.Errorf("cannot parse zted config: %w", err)
	}

	conf.applyDefaults()
	return conf, conf.validate()
}

func (zc *ZTEConf) applyDefaults() {
	zc.setMode()
	zc.setBuffer()
	zc.setPort()
	zc.setHistory()
	zc.setCache()
	zc.setInventory()
	zc.setOfflineBuffers()
	zc.setLogLevel()

	if zc.ServerConfig == "" {
		zc.ServerConfig = "/etc/zabbix/zabbix_server.conf"
	}
	if zc.DataDir == "" {
		zc.DataDir = "/var/lib/zted"
	}
}

func (zc *ZTEConf) validate() error {
	if len(zc.Triggers) == 0 {
		return fmt.Errorf("no triggers configured")
	}
	names := make(map[string]struct{}, len(zc.Triggers))
	for i, t := range zc.Triggers {
		if t.Name == "" {
			return fmt.Errorf("trigger %d has no name", i)
		}
		if _, ok := names[t.Name]; ok {
			return fmt.Errorf("duplicate trigger name %q", t.Name)
		}
		names[t.Name] = struct{}{}
		if t.Expression == "" {
			return fmt.Errorf("trigger %q has no expression", t.Name)
		}
	}

	switch zc.Inventory.Type {
	case INVENTORY_FILE:
		if zc.Inventory.Path == "" {
			return fmt.Errorf("file inventory needs a path")
		}
	case INVENTORY_PSQL:
		if zc.Inventory.Connection == "" {
			return fmt.Errorf("psql inventory needs a connection")
		}
	}
	return nil
}

func (zc *ZTEConf) setBuffer() {
	if zc.BufferSize <= 0 {
		zc.BufferSize = 10
	}
}

func (zc *ZTEConf) setMode() {
	switch zc.Mode {
	case FILE_MODE:
		zc.Mode = FILE_MODE
	case HTTP_MODE:
		zc.Mode = HTTP_MODE
	default:
		zc.Mode = HTTP_MODE
	}
}

func (zc *ZTEConf) setPort() {
	if zc.Http.ListenPort == 0 {
		zc.Http.ListenPort = 2021
	}
}

func (zc *ZTEConf) setHistory() {
	if zc.History.Retain <= 0 {
		zc.History.Retain = 100
	}
	if zc.History.TTL <= 0 {
		zc.History.TTL = 24 * time.Hour
	}
}

func (zc *ZTEConf) setCache() {
	if zc.Cache.MaxEntries <= 0 {
		zc.Cache.MaxEntries = 10000
	}
}

func (zc *ZTEConf) setInventory() {
	if zc.Inventory.Type != INVENTORY_PSQL {
		zc.Inventory.Type = INVENTORY_FILE
	}
}

func (zc *ZTEConf) setOfflineBuffers() {
	for i := range zc.Targets {
		if zc.Targets[i].OfflineBufferTime < 0 {
			zc.Targets[i].OfflineBufferTime = 0
		}
	}
}

// ApplyDBOptions sets connection pool limits from target or inventory options.
// Unknown keys and unparsable values are ignored.
func ApplyDBOptions(db *sql.DB, opts map[string]string) {
	for opt, val := range opts {
		switch opt {
		case "max_conn":
			if n, err := strconv.Atoi(val); err == nil {
				db.SetMaxOpenConns(n)
			}
		case "max_idle":
			if n, err := strconv.Atoi(val); err == nil {
				db.SetMaxIdleConns(n)
			}
		case "max_conn_time":
			if d, err := time.ParseDuration(val); err == nil {
				db.SetConnMaxLifetime(d)
			}
		case "max_idle_time":
			if d, err := time.ParseDuration(val); err == nil {
				db.SetConnMaxIdleTime(d)
			}
		}
	}
}
