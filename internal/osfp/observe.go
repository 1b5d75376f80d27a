package osfp

import "time"

// Observation is what the dispatcher hands back for one sent ProbeSpec:
// either a parsed response or its absence (silence is itself a
// fingerprintable attribute for several probes, e.g. T2's "no response"
// case under some stacks).
type Observation struct {
	ID ProbeID

	Responded bool
	SentAt    time.Time
	RecvAt    time.Time

	// TCP response fields
	TCPFlags TCPFlags
	ISN      uint32
	AckNum   uint32
	Window   uint16
	Options  []TCPOption

	// Shared IP fields
	DF  bool // don't-fragment set
	TTL uint8
	IPID uint16

	// ICMP response fields (IE1/IE2)
	ICMPReplied bool
	ICMPCode    uint8
	ICMPTTL     uint8
	ICMPDF      bool

	// U1 (closed-port UDP -> ICMP port-unreachable) integrity fields
	ICMPUnreachable        bool
	EchoedIPTotalLenOK     bool
	EchoedIPIDEcho         bool // echoed IP ID equals what was sent
	EchoedUDPChecksumOK    bool
	EchoedUDPLenOK         bool
	ICMPResponseTotalLen   int
}
