package observer

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"zte.szuro.net/internal/config"
	"zte.szuro.net/internal/logger"
	zbxpkg "zte.szuro.net/pkg/zbx"
)

const insertEvent = "INSERT INTO zte_events (eventid, p_eventid, name, value, severity, clock, ns) VALUES ($1, $2, $3, $4, $5, $6, $7)"

var connectionStats = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "zte_psql_connection_stats",
	Help: "Connection stats related to PostgreSQL database",
}, []string{"target_name", "conn"})

type PSQL struct {
	baseObserver
	dbConn          *sql.DB
	idleConnections prometheus.Gauge
	maxConnections  prometheus.Gauge
	usedConnections prometheus.Gauge
}

func NewPSQL(name, connStr string, opts map[string]string) (*PSQL, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", slog.String("name", name), slog.Any("error", err))
		db.Close()
		return nil, err
	}
	config.ApplyDBOptions(db, opts)
	return newPSQL(name, db), nil
}

func newPSQL(name string, db *sql.DB) *PSQL {
	p := &PSQL{
		baseObserver:    newBaseObserver(name, PSQL_TARGET),
		dbConn:          db,
		idleConnections: connectionStats.WithLabelValues(name, "idle"),
		maxConnections:  connectionStats.WithLabelValues(name, "max"),
		usedConnections: connectionStats.WithLabelValues(name, "used"),
	}
	p.updateStats()
	return p
}

func (p *PSQL) Cleanup() {
	p.dbConn.Close()
	p.baseObserver.Cleanup()
}

func (p *PSQL) SaveEvents(e []zbxpkg.Event) bool {
	return p.saveEvents(e, p.eventFunction)
}

// eventFunction inserts all events in one transaction, so either every
// event is stored or all of them are reported as failed.
func (p *PSQL) eventFunction(e []zbxpkg.Event) (failed []zbxpkg.Event, err error) {
	defer p.updateStats()

	txn, err := p.dbConn.Begin()
	if err != nil {
		return e, fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := txn.Prepare(insertEvent)
	if err != nil {
		txn.Rollback()
		return e, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, E := range e {
		var pEventID sql.NullInt64
		if E.PEventID != 0 {
			pEventID = sql.NullInt64{Int64: int64(E.PEventID), Valid: true}
		}
		if _, err := stmt.Exec(E.EventID, pEventID, E.Name, E.Value, E.Severity, E.Clock, E.NS); err != nil {
			txn.Rollback()
			return e, fmt.Errorf("failed to insert event %d: %w", E.EventID, err)
		}
	}

	if err = txn.Commit(); err != nil {
		return e, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil, nil
}

func (p *PSQL) updateStats() {
	stats := p.dbConn.Stats()
	p.idleConnections.Set(float64(stats.Idle))
	p.usedConnections.Set(float64(stats.InUse))
	p.maxConnections.Set(float64(stats.MaxOpenConnections))
}
