package cli

// topPortsTable is a small compiled frequency table backing --top-ports
// (spec.md §6: "selects the first N from a compiled frequency table"),
// ordered by approximate real-world prevalence. It is a deliberately
// short illustrative table, not nmap's multi-thousand-entry
// nmap-services corpus.
var topPortsTable = []uint16{
	80, 23, 443, 21, 22, 25, 3389, 110, 445, 139,
	143, 53, 135, 3306, 8080, 1723, 111, 995, 993, 5900,
	1025, 587, 8888, 199, 1720, 465, 548, 113, 81, 6001,
	10000, 514, 5060, 179, 1026, 2000, 8443, 8000, 32768, 554,
	26, 1433, 49152, 2001, 515, 8008, 49154, 1027, 5666, 646,
}

// topPorts returns the first n ports from the compiled table, clamped to
// the table's size.
func topPorts(n int) []uint16 {
	if n > len(topPortsTable) {
		n = len(topPortsTable)
	}
	out := make([]uint16, n)
	copy(out, topPortsTable[:n])
	return out
}
