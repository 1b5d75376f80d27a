package osfp

import "math"

// IDGen classifies how an ID-like counter (TCP IP-ID, ICMP IP-ID) evolves
// across a probe sequence (spec.md §4.10 SEQ: "TI/CI/II").
type IDGen uint8

const (
	IDUnknown IDGen = iota
	IDIncremental
	IDRandomIncremental
	IDZero
	IDBroken
)

func (g IDGen) String() string {
	switch g {
	case IDIncremental:
		return "incremental"
	case IDRandomIncremental:
		return "random-incremental"
	case IDZero:
		return "zero"
	case IDBroken:
		return "broken"
	default:
		return "unknown"
	}
}

// SEQAttrs is the ISN/IP-ID analysis bundle from the six SEQ probes plus
// the ICMP probes' IP IDs (spec.md §4.10 SEQ).
type SEQAttrs struct {
	GCD   uint32
	ISR   float64 // ISN counter rate, log2(avg delta / elapsed time)
	SP    float64 // sequence predictability (stddev of deltas after GCD division)
	TI    IDGen   // TCP IP-ID generation on the open port
	CI    IDGen   // TCP IP-ID generation on the closed port
	II    IDGen   // ICMP IP-ID generation
	SS    bool    // TCP and ICMP share one IP-ID counter
	TSGen bool    // timestamp option present and advancing
}

// OPSAttrs records the TCP option order/values seen on each SEQ probe
// response, encoded the way nmap's "OPS" line does (kind letters in
// order, e.g. "M5B4NW7NNT" for MSS/NOP/WS/NOP/NOP/Timestamp).
type OPSAttrs struct {
	PerProbe [6]string
}

// WINAttrs records the window size advertised in each SEQ probe's
// response.
type WINAttrs struct {
	PerProbe [6]uint16
}

// ECNAttrs captures the ECN-probe response characteristics.
type ECNAttrs struct {
	Responded bool
	Flags     TCPFlags
	DF        bool
	TTL       uint8
	Window    uint16
	Options   string
}

// TAttrs captures one T-series probe's response characteristics.
type TAttrs struct {
	Responded bool
	DF        bool
	TTL       uint8
	SeqAckSemantics string // coarse classification: "zero", "echo", "other"
	Flags     TCPFlags
}

// IEAttrs captures the ICMP-echo probes' characteristics.
type IEAttrs struct {
	Responded bool
	DFEcho    bool // DF bit echoed from probe
	TTL       uint8
	CodeEcho  bool // code field echoed rather than zeroed
}

// U1Attrs captures the closed-port UDP probe's ICMP-unreachable integrity
// fields.
type U1Attrs struct {
	Responded              bool
	EchoedIPTotalLenCorrect bool
	EchoedIPIDCorrect      bool
	EchoedUDPChecksumCorrect bool
	EchoedUDPLenCorrect    bool
}

// Bundle is the full 16-probe attribute record matched against the
// signature database.
type Bundle struct {
	SEQ SEQAttrs
	OPS OPSAttrs
	WIN WINAttrs
	ECN ECNAttrs
	T   map[ProbeID]TAttrs // keys T2..T7
	IE  IEAttrs
	U1  U1Attrs
}

// Extract builds a Bundle from the 16 observed responses (or absences).
// obs must be indexed by ProbeID (as returned alongside Sequence).
func Extract(obs map[ProbeID]Observation) Bundle {
	var b Bundle
	b.T = make(map[ProbeID]TAttrs, 6)

	b.SEQ = extractSEQ(obs)
	b.OPS = extractOPS(obs)
	b.WIN = extractWIN(obs)
	b.ECN = extractECN(obs[ProbeECN])
	for _, id := range []ProbeID{ProbeT2, ProbeT3, ProbeT4, ProbeT5, ProbeT6, ProbeT7} {
		b.T[id] = extractT(obs[id])
	}
	b.IE = extractIE(obs[ProbeIE1], obs[ProbeIE2])
	b.U1 = extractU1(obs[ProbeU1])

	b.SEQ.CI = classifyIPIDSeries(ipidSeries(obs, []ProbeID{ProbeT5, ProbeT6, ProbeT7}))
	b.SEQ.II = classifyIPIDSeries(ipidSeries(obs, []ProbeID{ProbeIE1, ProbeIE2}))
	b.SEQ.SS = b.SEQ.TI != IDUnknown && b.SEQ.II != IDUnknown && b.SEQ.TI == b.SEQ.II
	for _, id := range seqProbeIDs() {
		if o, ok := obs[id]; ok && o.Responded && hasOptionKind(o.Options, 8) {
			b.SEQ.TSGen = true
			break
		}
	}
	return b
}

func hasOptionKind(opts []TCPOption, kind uint8) bool {
	for _, o := range opts {
		if o.Kind == kind {
			return true
		}
	}
	return false
}

func seqProbeIDs() []ProbeID {
	return []ProbeID{ProbeSEQ1, ProbeSEQ2, ProbeSEQ3, ProbeSEQ4, ProbeSEQ5, ProbeSEQ6}
}

func extractSEQ(obs map[ProbeID]Observation) SEQAttrs {
	ids := seqProbeIDs()
	var isns []uint32
	var times []float64
	for _, id := range ids {
		o, ok := obs[id]
		if !ok || !o.Responded {
			continue
		}
		isns = append(isns, o.ISN)
		times = append(times, o.RecvAt.Sub(o.SentAt).Seconds())
	}
	if len(isns) < 2 {
		return SEQAttrs{TI: IDUnknown, CI: IDUnknown, II: IDUnknown}
	}

	deltas := make([]uint32, 0, len(isns)-1)
	for i := 1; i < len(isns); i++ {
		deltas = append(deltas, isns[i]-isns[i-1]) // wraps naturally for uint32
	}

	g := deltas[0]
	for _, d := range deltas[1:] {
		g = gcd(g, d)
	}
	if g == 0 {
		g = 1
	}

	elapsed := obs[ids[len(ids)-1]].RecvAt.Sub(obs[ids[0]].SentAt).Seconds()
	var isr float64
	if elapsed > 0 {
		avgDelta := float64(isns[len(isns)-1]-isns[0]) / elapsed
		isr = log2(avgDelta)
	}

	reduced := make([]float64, len(deltas))
	var mean float64
	for i, d := range deltas {
		reduced[i] = float64(d) / float64(g)
		mean += reduced[i]
	}
	mean /= float64(len(reduced))
	var variance float64
	for _, r := range reduced {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(reduced))
	sp := sqrtApprox(variance)

	ti := classifyIPIDSeries(ipidSeries(obs, ids))
	return SEQAttrs{
		GCD: g,
		ISR: isr,
		SP:  sp,
		TI:  ti,
		CI:  IDUnknown, // filled by caller that also has T5/T6/T7 observations
		II:  IDUnknown, // filled alongside IE extraction
	}
}

func ipidSeries(obs map[ProbeID]Observation, ids []ProbeID) []uint16 {
	var out []uint16
	for _, id := range ids {
		if o, ok := obs[id]; ok && o.Responded {
			out = append(out, o.IPID)
		}
	}
	return out
}

// classifyIPIDSeries implements the TI/CI/II classification of spec.md
// §4.10: zero throughout -> Zero; strictly increasing by small steps ->
// Incremental; increasing but with larger gaps (consistent with a shared
// global counter incremented by other traffic) -> RandomIncremental;
// anything else -> Broken.
func classifyIPIDSeries(series []uint16) IDGen {
	if len(series) < 2 {
		return IDUnknown
	}
	allZero := true
	for _, v := range series {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return IDZero
	}

	increasing := true
	var maxGap int
	for i := 1; i < len(series); i++ {
		gap := int(series[i]) - int(series[i-1])
		if gap < 0 {
			gap += 1 << 16
		}
		if gap < 0 {
			increasing = false
			break
		}
		if gap > maxGap {
			maxGap = gap
		}
	}
	if !increasing {
		return IDBroken
	}
	if maxGap <= len(series)*2 {
		return IDIncremental
	}
	if maxGap <= 20000 {
		return IDRandomIncremental
	}
	return IDBroken
}

func extractOPS(obs map[ProbeID]Observation) OPSAttrs {
	var ops OPSAttrs
	for i, id := range seqProbeIDs() {
		o, ok := obs[id]
		if !ok || !o.Responded {
			continue
		}
		ops.PerProbe[i] = encodeOptions(o.Options)
	}
	return ops
}

// encodeOptions renders a TCP option list the way nmap's OPS line does:
// one letter per option kind, with MSS/window-scale values appended
// (spec.md §4.10 example "M5B4NW7NNT").
func encodeOptions(opts []TCPOption) string {
	var out []byte
	for _, o := range opts {
		switch o.Kind {
		case 2:
			out = append(out, 'M')
			out = appendUint(out, uint64(o.MSS))
		case 3:
			out = append(out, 'W')
			out = appendUint(out, uint64(o.Wscale))
		case 4:
			out = append(out, 'S')
		case 8:
			out = append(out, 'T')
		case 1:
			out = append(out, 'N')
		case 0:
			out = append(out, 'L')
		}
	}
	return string(out)
}

func appendUint(b []byte, v uint64) []byte {
	if v == 0 {
		return append(b, '0')
	}
	var digits []byte
	for v > 0 {
		digits = append(digits, byte('0'+v%10))
		v /= 10
	}
	for i := len(digits) - 1; i >= 0; i-- {
		b = append(b, digits[i])
	}
	return b
}

func extractWIN(obs map[ProbeID]Observation) WINAttrs {
	var w WINAttrs
	for i, id := range seqProbeIDs() {
		if o, ok := obs[id]; ok && o.Responded {
			w.PerProbe[i] = o.Window
		}
	}
	return w
}

func extractECN(o Observation) ECNAttrs {
	return ECNAttrs{
		Responded: o.Responded,
		Flags:     o.TCPFlags,
		DF:        o.DF,
		TTL:       o.TTL,
		Window:    o.Window,
		Options:   encodeOptions(o.Options),
	}
}

func extractT(o Observation) TAttrs {
	if !o.Responded {
		return TAttrs{Responded: false}
	}
	semantics := "other"
	switch {
	case o.AckNum == 0 && o.ISN == 0:
		semantics = "zero"
	case o.AckNum == o.ISN+1:
		semantics = "echo"
	}
	return TAttrs{
		Responded:       true,
		DF:              o.DF,
		TTL:             o.TTL,
		SeqAckSemantics: semantics,
		Flags:           o.TCPFlags,
	}
}

func extractIE(ie1, ie2 Observation) IEAttrs {
	if !ie1.Responded && !ie2.Responded {
		return IEAttrs{Responded: false}
	}
	return IEAttrs{
		Responded: ie1.Responded || ie2.Responded,
		DFEcho:    ie1.ICMPDF || ie2.ICMPDF,
		TTL:       ie1.ICMPTTL,
		CodeEcho:  ie2.Responded && ie2.ICMPCode != 0,
	}
}

func extractU1(o Observation) U1Attrs {
	return U1Attrs{
		Responded:                o.ICMPUnreachable,
		EchoedIPTotalLenCorrect:  o.EchoedIPTotalLenOK,
		EchoedIPIDCorrect:        o.EchoedIPIDEcho,
		EchoedUDPChecksumCorrect: o.EchoedUDPChecksumOK,
		EchoedUDPLenCorrect:      o.EchoedUDPLenOK,
	}
}

func gcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func log2(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Log2(x)
}

func sqrtApprox(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Sqrt(x)
}
