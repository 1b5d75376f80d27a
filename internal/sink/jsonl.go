package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/doublegate/ProRT-IP-sub009/internal/result"
)

// jsonlRecord is the on-disk shape of one line: result.PortResult plus a
// denormalized address/protocol string pair so the file is greppable
// without decoding netip.Addr.
type jsonlRecord struct {
	Address      string  `json:"address"`
	Port         uint16  `json:"port"`
	Protocol     string  `json:"protocol"`
	State        string  `json:"state"`
	Service      *svcDoc `json:"service,omitempty"`
	ResponseMS   float64 `json:"response_time_ms,omitempty"`
	ObservedAt   string  `json:"observed_at"`
}

type svcDoc struct {
	Name      string   `json:"name,omitempty"`
	Product   string   `json:"product,omitempty"`
	Version   string   `json:"version,omitempty"`
	ExtraInfo string   `json:"extra_info,omitempty"`
	OSHint    string   `json:"os_hint,omitempty"`
	CPE       []string `json:"cpe,omitempty"`
}

// JSONL streams finalized results as zstd-compressed newline-delimited
// JSON, one record per line, so a long scan's sink never buffers its
// whole output in memory (spec.md §4.11 "stream... as soon as they
// finalize"). klauspost/compress's zstd encoder is used here as a
// streaming compressor over a file, the same library the teacher reaches
// for (gzhttp) to compress a data stream, generalized from HTTP transport
// bodies to an on-disk record stream.
type JSONL struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
}

// NewJSONL opens (creating if absent) path and wraps it in a zstd
// encoder. The returned sink owns the file and encoder; call Close to
// flush the final zstd frame and release the handle.
func NewJSONL(path string) (*JSONL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sink: open %s: %w", path, err)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("sink: new zstd writer: %w", err)
	}
	return &JSONL{f: f, enc: enc}, nil
}

// WritePortResult marshals r as one JSON line and writes it through the
// zstd encoder.
func (j *JSONL) WritePortResult(_ context.Context, r result.PortResult) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	rec := jsonlRecord{
		Address:    r.Address.String(),
		Port:       r.Port,
		Protocol:   r.Protocol.String(),
		State:      r.State.String(),
		ResponseMS: float64(r.ResponseTime.Microseconds()) / 1000,
		ObservedAt: r.ObservedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	if r.Service != nil {
		rec.Service = &svcDoc{
			Name: r.Service.Name, Product: r.Service.Product, Version: r.Service.Version,
			ExtraInfo: r.Service.ExtraInfo, OSHint: r.Service.OSHint, CPE: r.Service.CPE,
		}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sink: marshal record: %w", err)
	}
	data = append(data, '\n')
	if _, err := j.enc.Write(data); err != nil {
		return fmt.Errorf("sink: write record: %w", err)
	}
	return nil
}

// Close flushes the zstd encoder's final frame and closes the file.
func (j *JSONL) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Close(); err != nil {
		_ = j.f.Close()
		return fmt.Errorf("sink: close zstd encoder: %w", err)
	}
	return j.f.Close()
}

var _ io.Closer = (*JSONL)(nil)
