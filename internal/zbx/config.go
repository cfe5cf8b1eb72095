package zbx

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"zte.szuro.net/internal/logger"
)

var ZbxRegex = regexp.MustCompile(`^(StartDBSyncers|ExportDir|ExportType|HANodeName)=(.*)$`)

type ZabbixConf struct {
	configPath  string
	ExportDir   string
	ExportTypes []string
	DBSyncers   int
	NodeName    string
}

// ExportsHistory reports whether the server writes history exports.
func (zc ZabbixConf) ExportsHistory() bool {
	for _, t := range zc.ExportTypes {
		if strings.TrimSpace(t) == "history" {
			return true
		}
	}
	return false
}

func ParseZabbixConfig(path string) (conf ZabbixConf, err error) {
	conf.configPath = path
	// zabbix_server.conf defaults
	conf.DBSyncers = 4
	conf.ExportTypes = []string{"history", "trends", "events"}

	file, err := os.Open(path)
	if err != nil {
		return conf, fmt.Errorf("could not open zabbix server config: %w", err)
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := ZbxRegex.FindStringSubmatch(scanner.Text())
		if line == nil {
			continue
		}
		value := line[2]
		switch line[1] {
		case "ExportDir":
			conf.ExportDir = value
		case "ExportType":
			conf.ExportTypes = strings.Split(value, ",")
		case "StartDBSyncers":
			if conf.DBSyncers, err = strconv.Atoi(value); err != nil {
				return conf, fmt.Errorf("invalid StartDBSyncers %q: %w", value, err)
			}
		case "HANodeName":
			conf.NodeName = value
		}
	}
	if err = scanner.Err(); err != nil {
		return conf, err
	}

	logger.Info("Detected zabbix configuration",
		slog.String("export_dir", conf.ExportDir),
		slog.Int("syncers", conf.DBSyncers),
		slog.String("node", conf.NodeName),
	)
	syncerGauge.Set(float64(conf.DBSyncers))
	return conf, nil
}
