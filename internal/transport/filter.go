package transport

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/net/bpf"
)

const (
	etherTypeOffset = 12
	etherTypeIPv4   = 0x0800
	etherTypeIPv6   = 0x86DD

	ipv4ProtoOffset = 14 + 9  // IPv4 header protocol field, after a 14-byte Ethernet header
	ipv4DstOffset   = 14 + 16 // IPv4 header destination address
	ipv6NextHdrOff  = 14 + 6  // IPv6 header next-header field
)

// IANA protocol numbers used by the assembled filter program.
const (
	protoICMP   = 1
	protoTCP    = 6
	protoUDP    = 17
	protoICMPv6 = 58
)

// acceptConst is returned by a matching BPF program to request the full
// frame (snaplen 0x40000 is larger than any frame this engine builds).
const acceptConst = 0x40000

// Assemble builds a raw BPF program from f, restricting capture to
// TCP/UDP/ICMP(v6) frames addressed to f.LocalIP, per spec.md §4.2. The
// program is installed via SO_ATTACH_FILTER on Linux (transport_linux.go).
func Assemble(f Filter) ([]bpf.RawInstruction, error) {
	v4Block := ipv4Block(f)
	v6Block := ipv6Block(f)

	var instrs []bpf.Instruction
	instrs = append(instrs, bpf.LoadAbsolute{Off: etherTypeOffset, Size: 2})
	instrs = append(instrs, bpf.JumpIf{Cond: bpf.JumpEqual, Val: etherTypeIPv4, SkipFalse: uint8(len(v4Block))})
	instrs = append(instrs, v4Block...)
	instrs = append(instrs, bpf.JumpIf{Cond: bpf.JumpEqual, Val: etherTypeIPv6, SkipFalse: uint8(len(v6Block))})
	instrs = append(instrs, v6Block...)
	instrs = append(instrs, bpf.RetConstant{Val: 0})

	raw, err := bpf.Assemble(instrs)
	if err != nil {
		return nil, fmt.Errorf("transport: assemble bpf filter: %w", err)
	}
	return raw, nil
}

// ipv4Block returns the instructions run once EtherType==IPv4 has matched.
// It accepts frames whose IP protocol is one of the requested TCP/UDP/ICMP
// and, when LocalIP is a v4 address, whose destination matches it.
func ipv4Block(f Filter) []bpf.Instruction {
	var protos []uint32
	if f.TCP {
		protos = append(protos, protoTCP)
	}
	if f.UDP {
		protos = append(protos, protoUDP)
	}
	if f.ICMP {
		protos = append(protos, protoICMP)
	}
	if len(protos) == 0 {
		return []bpf.Instruction{bpf.RetConstant{Val: 0}}
	}

	var dstCheck []bpf.Instruction
	if ip4 := f.LocalIP.To4(); f.LocalIP != nil && ip4 != nil {
		want := binary.BigEndian.Uint32(ip4)
		dstCheck = []bpf.Instruction{
			bpf.LoadAbsolute{Off: ipv4DstOffset, Size: 4},
			bpf.JumpIf{Cond: bpf.JumpEqual, Val: want, SkipFalse: 1},
			bpf.RetConstant{Val: acceptConst},
			bpf.RetConstant{Val: 0},
		}
	} else {
		dstCheck = []bpf.Instruction{bpf.RetConstant{Val: acceptConst}}
	}

	var block []bpf.Instruction
	block = append(block, bpf.LoadAbsolute{Off: ipv4ProtoOffset, Size: 1})
	for i, p := range protos {
		// On match, skip over the remaining protocol tests straight into
		// dstCheck; on mismatch, fall through to the next test.
		remaining := (len(protos) - i - 1)
		block = append(block, bpf.JumpIf{Cond: bpf.JumpEqual, Val: p, SkipTrue: uint8(remaining + 1)})
	}
	block = append(block, bpf.RetConstant{Val: 0}) // no protocol matched
	// The SkipTrue above lands instructions here, past the "no match"
	// return, straight into dstCheck.
	block = append(block, dstCheck...)
	return block
}

// ipv6Block mirrors ipv4Block for the IPv6 next-header field. Matching the
// destination address would require a 16-byte, four-word comparison; the
// engine instead relies on dst filtering at the socket/interface level for
// v6 and accepts by protocol alone here.
func ipv6Block(f Filter) []bpf.Instruction {
	var protos []uint32
	if f.TCP {
		protos = append(protos, protoTCP)
	}
	if f.UDP {
		protos = append(protos, protoUDP)
	}
	if f.ICMPv6 {
		protos = append(protos, protoICMPv6)
	}
	if len(protos) == 0 {
		return []bpf.Instruction{bpf.RetConstant{Val: 0}}
	}

	var block []bpf.Instruction
	block = append(block, bpf.LoadAbsolute{Off: ipv6NextHdrOff, Size: 1})
	for i, p := range protos {
		remaining := len(protos) - i - 1
		block = append(block, bpf.JumpIf{Cond: bpf.JumpEqual, Val: p, SkipTrue: uint8(remaining + 1)})
	}
	block = append(block, bpf.RetConstant{Val: 0})
	block = append(block, bpf.RetConstant{Val: acceptConst})
	return block
}
