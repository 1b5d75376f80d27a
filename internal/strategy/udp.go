package strategy

import "github.com/doublegate/ProRT-IP-sub009/internal/result"

// UDP emits a datagram -- a protocol-specific payload when the destination
// port has a known profile, otherwise empty -- and classifies the reply
// (spec.md §4.7): a UDP response -> Open; ICMP port-unreachable -> Closed;
// any other ICMP unreachable -> Filtered; silence -> OpenFiltered (UDP
// gives no negative signal on its own, so silence is ambiguous by design).
type UDP struct{}

func (UDP) Kind() Kind                { return KindUDP }
func (UDP) Protocol() result.Protocol { return result.UDP }

func (UDP) Classify(r Response) result.PortState {
	switch r.Kind {
	case RespUDP:
		return result.Open
	case RespICMPUnreachablePortClosed:
		return result.Closed
	case RespICMPUnreachableFiltered, RespICMPUnreachableOther:
		return result.Filtered
	case RespNone:
		return result.OpenFiltered
	default:
		return result.Unknown
	}
}

// Payload returns the protocol-specific probe payload for a well-known UDP
// port, or nil when the port has no registered profile and an empty
// datagram should be sent instead.
func Payload(port uint16) []byte {
	switch port {
	case 53:
		return dnsQueryPayload
	case 123:
		return ntpV3Payload
	case 137:
		return nbnsQueryPayload
	case 111:
		return rpcNullPayload
	case 161:
		return snmpGetRequestPayload
	case 500:
		return ikeSAInitPayload
	case 1900:
		return ssdpMSearchPayload
	case 5353:
		return mdnsQueryPayload
	default:
		return nil
	}
}

var (
	// dnsQueryPayload is a minimal A-record query for "." with one
	// question, recursion desired.
	dnsQueryPayload = []byte{
		0x00, 0x00, // transaction ID (caller may rewrite)
		0x01, 0x00, // flags: standard query, recursion desired
		0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // 1 question, 0/0/0
		0x00,       // root name
		0x00, 0x01, // QTYPE A
		0x00, 0x01, // QCLASS IN
	}

	// ntpV3Payload is an NTPv3 client request with all timestamps zero.
	ntpV3Payload = func() []byte {
		b := make([]byte, 48)
		b[0] = 0x1b // LI=0, VN=3, Mode=3 (client)
		return b
	}()

	// nbnsQueryPayload is a NetBIOS Name Service status query for "*".
	nbnsQueryPayload = []byte{
		0x82, 0x28, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x20, 0x43, 0x4b, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41,
		0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41,
		0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x00, 0x00,
		0x21, 0x00, 0x01,
	}

	// rpcNullPayload is an ONC RPC NULL call (program 100000, proc 0).
	rpcNullPayload = []byte{
		0x00, 0x00, 0x00, 0x00, // XID (caller may rewrite)
		0x00, 0x00, 0x00, 0x00, // call
		0x00, 0x00, 0x00, 0x02, // RPC version 2
		0x00, 0x01, 0x86, 0xa0, // program 100000 (portmapper)
		0x00, 0x00, 0x00, 0x02, // program version 2
		0x00, 0x00, 0x00, 0x00, // procedure 0 (NULL)
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // auth null
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // verifier null
	}

	// snmpGetRequestPayload is an SNMPv1 GetRequest for sysDescr.0 with
	// community "public".
	snmpGetRequestPayload = []byte{
		0x30, 0x29, 0x02, 0x01, 0x00, 0x04, 0x06, 0x70, 0x75, 0x62, 0x6c, 0x69,
		0x63, 0xa0, 0x1c, 0x02, 0x04, 0x00, 0x00, 0x00, 0x01, 0x02, 0x01, 0x00,
		0x02, 0x01, 0x00, 0x30, 0x0e, 0x30, 0x0c, 0x06, 0x08, 0x2b, 0x06, 0x01,
		0x02, 0x01, 0x01, 0x01, 0x00, 0x05, 0x00,
	}

	// ikeSAInitPayload is a minimal IKEv2 SA_INIT header (header only; real
	// implementations append SA/KE/Nonce payloads, omitted here since the
	// bare header is sufficient to elicit a discriminating response).
	ikeSAInitPayload = []byte{
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // initiator SPI
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // responder SPI
		0x21, 0x20, 0x22, 0x08, // next payload SA, version 2.0, exchange SA_INIT, flags (initiator)
		0x00, 0x00, 0x00, 0x00, // message ID
		0x00, 0x00, 0x00, 0x1c, // length
	}

	// ssdpMSearchPayload is an SSDP M-SEARCH discovery request.
	ssdpMSearchPayload = []byte("M-SEARCH * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 1\r\n" +
		"ST: ssdp:all\r\n\r\n")

	// mdnsQueryPayload is a PTR mDNS query (QU unicast-response bit clear) for "_services._dns-sd._udp.local".
	mdnsQueryPayload = []byte{
		0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x09, '_', 's', 'e', 'r', 'v', 'i', 'c', 'e', 's',
		0x07, '_', 'd', 'n', 's', '-', 's', 'd',
		0x04, '_', 'u', 'd', 'p',
		0x05, 'l', 'o', 'c', 'a', 'l',
		0x00,
		0x00, 0x0c, 0x00, 0x01,
	}
)
