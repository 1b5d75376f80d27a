//go:build !linux

package transport

import (
	"context"
	"log/slog"
)

// NewTransport is unsupported on non-Linux platforms in this engine core;
// callers must degrade to the Connect strategy (spec.md §4.2), matching the
// build-tag split tools/uping/pkg/uping uses between its Linux raw-socket
// implementation and other platforms.
func NewTransport(log *slog.Logger, iface string) (Transport, error) {
	return nil, ErrInsufficientPrivilege
}

type unsupportedTransport struct{}

func (unsupportedTransport) SendFrame(iface string, frame []byte) error {
	return ErrInsufficientPrivilege
}

func (unsupportedTransport) RecvLoop(ctx context.Context, filter Filter) (<-chan Frame, <-chan error) {
	out := make(chan Frame)
	errCh := make(chan error, 1)
	errCh <- ErrInsufficientPrivilege
	close(out)
	return out, errCh
}

func (unsupportedTransport) Close() error { return nil }
