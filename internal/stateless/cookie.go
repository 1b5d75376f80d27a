// Package stateless implements the stateless probe core (spec.md §4.5):
// SipHash-keyed cookies carried in the TCP initial sequence number (SYN
// scans) or IP ID (idle-scan baselines), letting the SYN strategy validate
// responses without retaining any per-probe state.
package stateless

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
)

// Key is a process-lifetime 128-bit SipHash key. Regenerated once per
// process (NewKey), never persisted: a fresh key each run means cookies
// from a prior run can never be replayed as valid.
type Key struct {
	k0, k1 uint64
}

// NewKey generates a random 128-bit key from the system CSPRNG.
func NewKey() (Key, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return Key{}, fmt.Errorf("stateless: generate key: %w", err)
	}
	return Key{
		k0: binary.LittleEndian.Uint64(buf[0:8]),
		k1: binary.LittleEndian.Uint64(buf[8:16]),
	}, nil
}

// KeyFromBytes builds a Key from exactly 16 caller-supplied bytes, for
// tests that need deterministic cookies.
func KeyFromBytes(b [16]byte) Key {
	return Key{
		k0: binary.LittleEndian.Uint64(b[0:8]),
		k1: binary.LittleEndian.Uint64(b[8:16]),
	}
}

// Cookie is the 32-bit value embedded in a probe's ISN or IP ID.
type Cookie uint32

// Encode derives a cookie for (target, port) under a scan-lifetime nonce.
// The nonce distinguishes concurrent scans (or retries within one scan)
// sharing the same process key, per spec.md §4.5/§3 Cookie.
func Encode(key Key, target addr.Address, port uint16, nonce uint32) Cookie {
	digest := siphash24(key.k0, key.k1, cookieInput(target, port, nonce))
	return Cookie(uint32(digest))
}

// Validate recomputes the expected cookie for (target, port, nonce) and
// reports whether it matches the candidate extracted from a response
// (typically response.Ack - 1 for a SYN/ACK, or the echoed IP ID for an
// idle-scan baseline probe).
func Validate(key Key, target addr.Address, port uint16, nonce uint32, candidate Cookie) bool {
	return Encode(key, target, port, nonce) == candidate
}

// cookieInput serializes (target_address, port, nonce) into the byte
// string SipHash is computed over. IPv4 and IPv6 addresses serialize to
// their natural byte width (addr.Address.Bytes), so the same function
// handles both families without a discriminant byte: the address length
// itself disambiguates since port+nonce are fixed-width trailers.
func cookieInput(target addr.Address, port uint16, nonce uint32) []byte {
	raw := target.Bytes()
	buf := make([]byte, len(raw)+2+4)
	copy(buf, raw)
	binary.LittleEndian.PutUint16(buf[len(raw):], port)
	binary.LittleEndian.PutUint32(buf[len(raw)+2:], nonce)
	return buf
}
