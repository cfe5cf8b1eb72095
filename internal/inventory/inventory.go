// Package inventory maps host and item key pairs to Zabbix items.
package inventory

import (
	"context"
	"fmt"

	"zte.szuro.net/internal/config"
	"zte.szuro.net/pkg/zbx"
)

// Inventory finds the item a function macro refers to. Unknown hosts and
// items are reported as *zbx.ResolveError.
type Inventory interface {
	Lookup(ctx context.Context, host, key string) (zbx.Item, error)
	Close() error
}

func FromConfig(conf config.InventoryConf) (Inventory, error) {
	switch conf.Type {
	case config.INVENTORY_FILE:
		return NewFileInventory(conf.Path)
	case config.INVENTORY_PSQL:
		return NewPSQLInventory(conf.Connection, conf.Options)
	default:
		return nil, fmt.Errorf("unknown inventory type %q", conf.Type)
	}
}
