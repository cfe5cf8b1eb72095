package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"zte.szuro.net/internal/logger"
	"zte.szuro.net/pkg/zbx"
)

type fileHost struct {
	zbx.Host `yaml:",inline"`
	Items    []zbx.Item `yaml:"items"`
}

type inventoryFile struct {
	Hosts []fileHost `yaml:"hosts"`
}

// FileInventory serves lookups from a static YAML document loaded once.
type FileInventory struct {
	hosts map[string]map[string]zbx.Item
}

func NewFileInventory(path string) (*FileInventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read inventory: %w", err)
	}
	inv, err := parseInventory(data)
	if err != nil {
		return nil, fmt.Errorf("cannot parse inventory %s: %w", path, err)
	}
	logger.Info("Loaded inventory", slog.String("path", path), slog.Int("hosts", len(inv.hosts)))
	return inv, nil
}

func parseInventory(data []byte) (*FileInventory, error) {
	var doc inventoryFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	inv := &FileInventory{hosts: make(map[string]map[string]zbx.Item, len(doc.Hosts))}
	for _, h := range doc.Hosts {
		if h.Host.Host == "" {
			return nil, fmt.Errorf("host entry without name")
		}
		items, ok := inv.hosts[h.Host.Host]
		if !ok {
			items = make(map[string]zbx.Item, len(h.Items))
			inv.hosts[h.Host.Host] = items
		}
		for _, item := range h.Items {
			if _, dup := items[item.Key]; dup {
				return nil, fmt.Errorf("duplicate key %q on host %q", item.Key, h.Host.Host)
			}
			item.Host = h.Host.Host
			items[item.Key] = item
		}
	}
	return inv, nil
}

func (f *FileInventory) Lookup(_ context.Context, host, key string) (zbx.Item, error) {
	items, ok := f.hosts[host]
	if !ok {
		return zbx.Item{}, &zbx.ResolveError{Code: zbx.HostUnknown}
	}
	item, ok := items[key]
	if !ok {
		return zbx.Item{}, &zbx.ResolveError{Code: zbx.HostItemUnknown}
	}
	return item, nil
}

func (f *FileInventory) Close() error {
	return nil
}
