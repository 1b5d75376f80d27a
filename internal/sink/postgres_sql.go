package sink

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // registers the "postgres" database/sql driver

	"github.com/doublegate/ProRT-IP-sub009/internal/result"
)

// PostgresSQL is an alternate relational sink built on database/sql with
// lib/pq, for consumers that standardize on the database/sql interface
// (connection pooling via a sql.DB, migrations tooling, ORMs) rather than
// pgx's native pool. It targets the same port_records schema as Postgres.
type PostgresSQL struct {
	db *sql.DB
}

// NewPostgresSQL opens conn via the lib/pq driver and verifies it with a
// ping.
func NewPostgresSQL(ctx context.Context, connString string) (*PostgresSQL, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("sink: sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sink: ping: %w", err)
	}
	return &PostgresSQL{db: db}, nil
}

// WritePortResult upserts one port_records row via database/sql.
func (p *PostgresSQL) WritePortResult(ctx context.Context, r result.PortResult) error {
	var serviceName, product, version string
	if r.Service != nil {
		serviceName, product, version = r.Service.Name, r.Service.Product, r.Service.Version
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO port_records (address, port, protocol, state, service_name, product, version, response_time_ns, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (address, port, protocol) DO UPDATE SET
			state = EXCLUDED.state,
			service_name = EXCLUDED.service_name,
			product = EXCLUDED.product,
			version = EXCLUDED.version,
			response_time_ns = EXCLUDED.response_time_ns,
			observed_at = EXCLUDED.observed_at
	`, r.Address.String(), r.Port, r.Protocol.String(), r.State.String(), serviceName, product, version,
		r.ResponseTime.Nanoseconds(), r.ObservedAt)
	if err != nil {
		return fmt.Errorf("sink: upsert port_record: %w", err)
	}
	return nil
}

// Close releases the underlying *sql.DB.
func (p *PostgresSQL) Close() error { return p.db.Close() }
