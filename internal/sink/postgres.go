package sink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doublegate/ProRT-IP-sub009/internal/result"
)

// Postgres is the reference relational sink of spec.md §6's persistence
// contract: a ports table with foreign keys the caller provisions (the
// engine does not mandate a schema beyond the fields named in §6).
// jackc/pgx/v5 is the primary driver, used via a connection pool the way
// a long-running scan amortizes connection setup across many writes.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pgxpool.Pool to connString and verifies it with
// a ping.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("sink: pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("sink: ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// WritePortResult upserts one port_record row keyed by (address, port,
// protocol), matching spec.md §6's relational sink contract.
func (p *Postgres) WritePortResult(ctx context.Context, r result.PortResult) error {
	var serviceName, product, version string
	if r.Service != nil {
		serviceName, product, version = r.Service.Name, r.Service.Product, r.Service.Version
	}
	_, err := p.pool.Exec(ctx, `
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

// Close releases the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
