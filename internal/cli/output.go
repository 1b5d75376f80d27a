package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/doublegate/ProRT-IP-sub009/internal/result"
)

// writeText renders results as a human-readable table, grouped by address
// then port, following the teacher's tablewriter usage
// (controlplane/telemetry/internal/data/cli/internet.go's renderStatsTable).
func writeText(w io.Writer, summary summaryView) {
	fmt.Fprintf(w, "Scan %s: %d hosts, %d results", summary.ScanID, len(summary.hosts()), len(summary.Results))
	if summary.Canceled {
		fmt.Fprint(w, " (canceled)")
	}
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetRowLine(false)
	table.SetHeader([]string{"Address", "Port", "Protocol", "State", "Service", "Response"})

	rows := append([]result.PortResult(nil), summary.Results...)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Address != rows[j].Address {
			return rows[i].Address.String() < rows[j].Address.String()
		}
		return rows[i].Port < rows[j].Port
	})

	for _, r := range rows {
		svc := ""
		if r.Service != nil {
			svc = r.Service.Name
			if r.Service.Product != "" {
				svc += " (" + r.Service.Product + " " + r.Service.Version + ")"
			}
		}
		table.Append([]string{
			r.Address.String(),
			fmt.Sprintf("%d", r.Port),
			r.Protocol.String(),
			r.State.String(),
			svc,
			r.ResponseTime.String(),
		})
	}
	table.Render()
}

// summaryView is the subset of orchestrator.Summary output rendering
// needs, kept separate so output.go doesn't import orchestrator just for
// its Summary type's unexported internals.
type summaryView struct {
	ScanID   string
	Results  []result.PortResult
	Canceled bool
}

func (s summaryView) hosts() map[string]struct{} {
	out := make(map[string]struct{})
	for _, r := range s.Results {
		out[r.Address.String()] = struct{}{}
	}
	return out
}

// jsonRecord is output.go's minimal JSON rendering (SPEC_FULL.md's
// Non-goals: "output formatters beyond a minimal text summary... remain
// external collaborators" -- XML/greppable are out of scope, but a plain
// stdlib-JSON dump is not).
type jsonRecord struct {
	ScanID   string       `json:"scan_id"`
	Canceled bool         `json:"canceled"`
	Results  []jsonResult `json:"results"`
}

type jsonResult struct {
	Address      string  `json:"address"`
	Port         uint16  `json:"port"`
	Protocol     string  `json:"protocol"`
	State        string  `json:"state"`
	Service      string  `json:"service,omitempty"`
	ResponseMS   float64 `json:"response_time_ms,omitempty"`
}

func writeJSON(w io.Writer, summary summaryView) error {
	rec := jsonRecord{ScanID: summary.ScanID, Canceled: summary.Canceled}
	for _, r := range summary.Results {
		svc := ""
		if r.Service != nil {
			svc = r.Service.Name
		}
		rec.Results = append(rec.Results, jsonResult{
			Address:    r.Address.String(),
			Port:       r.Port,
			Protocol:   r.Protocol.String(),
			State:      r.State.String(),
			Service:    svc,
			ResponseMS: float64(r.ResponseTime.Microseconds()) / 1000,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
