package servicedetect

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"

	"github.com/doublegate/ProRT-IP-sub009/internal/result"
)

// ClientConfig builds a tls.Config for a probe handshake with SNI set to
// hostname when known (spec.md §4.9: "SNI set to the original hostname
// when one is known"). InsecureSkipVerify is intentional: the detector
// inspects whatever certificate is presented rather than validating a
// trust chain, since the target's true identity is what's being probed
// for, not authenticated.
func ClientConfig(hostname string) *tls.Config {
	return &tls.Config{
		ServerName:         hostname,
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS10,
	}
}

// ExtractCert converts a leaf certificate from a completed handshake into
// the detector's TLSCertInfo, along with the chain length presented.
func ExtractCert(leaf *x509.Certificate, chainLen int) result.TLSCertInfo {
	sans := append([]string(nil), leaf.DNSNames...)
	for _, ip := range leaf.IPAddresses {
		sans = append(sans, ip.String())
	}

	return result.TLSCertInfo{
		Subject:     leaf.Subject.String(),
		Issuer:      leaf.Issuer.String(),
		NotBefore:   leaf.NotBefore,
		NotAfter:    leaf.NotAfter,
		SANs:        sans,
		SHA256:      sha256.Sum256(leaf.Raw),
		ChainLength: chainLen,
	}
}

// FromConnectionState extracts TLSCertInfo from a completed
// tls.ConnectionState's leaf certificate, or reports ok=false if no
// certificate was presented.
func FromConnectionState(state tls.ConnectionState) (result.TLSCertInfo, bool) {
	if len(state.PeerCertificates) == 0 {
		return result.TLSCertInfo{}, false
	}
	return ExtractCert(state.PeerCertificates[0], len(state.PeerCertificates)), true
}
