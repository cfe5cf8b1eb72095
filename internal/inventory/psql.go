package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"zte.szuro.net/internal/config"
	"zte.szuro.net/pkg/zbx"
)

const (
	hostQuery = "SELECT hostid FROM hosts WHERE host = $1"
	itemQuery = "SELECT itemid, value_type FROM items WHERE hostid = $1 AND key_ = $2"
)

// PSQLInventory reads hosts and items straight from a Zabbix PostgreSQL database.
type PSQLInventory struct {
	db *sql.DB
}

func NewPSQLInventory(connStr string, opts map[string]string) (*PSQLInventory, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping inventory database: %w", err)
	}
	config.ApplyDBOptions(db, opts)
	return newPSQLInventory(db), nil
}

func newPSQLInventory(db *sql.DB) *PSQLInventory {
	return &PSQLInventory{db: db}
}

func (p *PSQLInventory) Lookup(ctx context.Context, host, key string) (zbx.Item, error) {
	var hostID int
	err := p.db.QueryRowContext(ctx, hostQuery, host).Scan(&hostID)
	if errors.Is(err, sql.ErrNoRows) {
		return zbx.Item{}, &zbx.ResolveError{Code: zbx.HostUnknown}
	}
	if err != nil {
		return zbx.Item{}, fmt.Errorf("host lookup failed: %w", err)
	}

	item := zbx.Item{Host: host, Key: key}
	err = p.db.QueryRowContext(ctx, itemQuery, hostID, key).Scan(&item.ItemID, &item.ValueType)
	if errors.Is(err, sql.ErrNoRows) {
		return zbx.Item{}, &zbx.ResolveError{Code: zbx.HostItemUnknown}
	}
	if err != nil {
		return zbx.Item{}, fmt.Errorf("item lookup failed: %w", err)
	}
	return item, nil
}

func (p *PSQLInventory) Close() error {
	return p.db.Close()
}
