package osfp

// DefaultCorpus is the engine's built-in OS signature corpus (spec.md
// §4.10: "the database is loaded at startup from an embedded corpus").
// This is a small, representative subset (one signature per major OS
// family) rather than a translation of nmap's multi-thousand-entry
// nmap-os-db: full-corpus scoring needs every signature compared against
// every fingerprint (spec.md §4.10's weighted sum over the whole
// candidate set), which is an access pattern a single-key lookup format
// like MMDB cannot serve, so the corpus is compiled in directly as Go
// data rather than loaded from an indexed external format (see
// DESIGN.md).
var DefaultCorpus = []Signature{
	{
		Name:  "Linux 5.x",
		Class: "Linux",
		CPE:   []string{"cpe:/o:linux:linux_kernel:5"},
		GCDRange: r(1, 1),
		ISRRange: r(20, 23),
		SPRange:  r(0, 5),
		TI:       IDIncremental,
		CI:       IDIncremental,
		II:       IDIncremental,
		SS:       boolPtr(false),
		TSGen:    boolPtr(true),
		WindowRange:    r(5792, 29200),
		OptionsHint:    "M5B4NW7NNT",
		ECNWindowRange: r(5792, 5792),
		ECNDF:          boolPtr(true),
	},
	{
		Name:  "Windows 10/11",
		Class: "Windows",
		CPE:   []string{"cpe:/o:microsoft:windows_10"},
		GCDRange: r(1, 1),
		ISRRange: r(18, 21),
		SPRange:  r(0, 5),
		TI:       IDIncremental,
		CI:       IDIncremental,
		II:       IDIncremental,
		SS:       boolPtr(true),
		TSGen:    boolPtr(false),
		WindowRange:    r(8192, 65535),
		OptionsHint:    "M5B0NW8NNS",
		ECNWindowRange: r(8192, 8192),
		ECNDF:          boolPtr(true),
	},
	{
		Name:  "FreeBSD 13/14",
		Class: "BSD",
		CPE:   []string{"cpe:/o:freebsd:freebsd"},
		GCDRange: r(1, 1),
		ISRRange: r(19, 22),
		SPRange:  r(0, 6),
		TI:       IDRandomIncremental,
		CI:       IDRandomIncremental,
		II:       IDIncremental,
		TSGen:    boolPtr(true),
		WindowRange:    r(65535, 65535),
		OptionsHint:    "M5B4NW6NNT",
		ECNWindowRange: r(65535, 65535),
		ECNDF:          boolPtr(true),
	},
	{
		Name:  "macOS 13/14",
		Class: "macOS",
		CPE:   []string{"cpe:/o:apple:macos"},
		GCDRange: r(1, 1),
		ISRRange: r(19, 22),
		SPRange:  r(0, 6),
		TI:       IDIncremental,
		CI:       IDIncremental,
		II:       IDIncremental,
		TSGen:    boolPtr(true),
		WindowRange:    r(65535, 65535),
		OptionsHint:    "M5B4NW6NNT",
		ECNWindowRange: r(65535, 65535),
		ECNDF:          boolPtr(true),
	},
	{
		Name:  "Embedded network device (generic)",
		Class: "embedded",
		CPE:   []string{"cpe:/h:generic:router"},
		GCDRange: r(1, 2),
		ISRRange: r(0, 10),
		SPRange:  r(0, 10),
		TI:       IDZero,
		CI:       IDZero,
		II:       IDZero,
		TSGen:    boolPtr(false),
		WindowRange: r(512, 8192),
	},
}

func boolPtr(b bool) *bool { return &b }
