// Package sink implements spec.md §6's persistence sink contract: a
// typed record stream the engine writes finalized PortResults to,
// sink-agnostic beyond the interface itself. This package provides the
// contract plus four concrete sinks so the engine is testable end to
// end without an external driver: an in-memory sink for tests, a
// streaming-compressed JSONL file sink, and two Postgres reference sinks
// (one on pgx, one on database/sql with lib/pq).
package sink

import (
	"context"

	"github.com/doublegate/ProRT-IP-sub009/internal/result"
)

// Sink receives finalized PortResults. It satisfies
// internal/aggregator.Sink; kept as its own interface here so this
// package doesn't need to import aggregator just to name the contract.
type Sink interface {
	WritePortResult(ctx context.Context, r result.PortResult) error
}

// Closer is implemented by sinks that hold an open resource (file
// handle, connection pool) that must be released at scan end.
type Closer interface {
	Close() error
}
