//go:build linux

package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

// rawTransport opens an AF_PACKET raw socket bound to a single interface,
// the link-layer analogue of tools/uping/pkg/uping's AF_INET raw ICMP
// socket: one FD, a mutex serializing Send against Close, and a dedicated
// receive loop.
type rawTransport struct {
	log *slog.Logger

	mu  sync.Mutex
	fd  int
	ifi *net.Interface
}

// NewTransport opens an AF_PACKET/SOCK_RAW socket on iface. Returns
// ErrInsufficientPrivilege if the socket cannot be created (missing
// CAP_NET_RAW).
func NewTransport(log *slog.Logger, iface string) (Transport, error) {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, fmt.Errorf("transport: lookup interface %q: %w", iface, err)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientPrivilege, err)
	}

	sa := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  ifi.Index,
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("transport: bind to %q: %w", iface, err)
	}

	return &rawTransport{log: log, fd: fd, ifi: ifi}, nil
}

func htons(v uint16) uint16 { return (v<<8)&0xff00 | v>>8 }

// SendFrame writes a fully-built link-layer frame to the bound interface.
func (t *rawTransport) SendFrame(iface string, frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if iface != "" && iface != t.ifi.Name {
		return fmt.Errorf("transport: socket bound to %q, not %q", t.ifi.Name, iface)
	}
	sa := &unix.SockaddrLinklayer{Ifindex: t.ifi.Index}
	return unix.Sendto(t.fd, frame, 0, sa)
}

// RecvLoop installs filter via SO_ATTACH_FILTER and streams frames until
// ctx is done or a fatal IO error occurs (spec.md §4.12: capture loop IO
// errors are fatal).
func (t *rawTransport) RecvLoop(ctx context.Context, filter Filter) (<-chan Frame, <-chan error) {
	out := make(chan Frame, 256)
	errCh := make(chan error, 1)

	raw, err := Assemble(filter)
	if err != nil {
		errCh <- err
		close(out)
		return out, errCh
	}
	if err := attachFilter(t.fd, raw); err != nil {
		errCh <- fmt.Errorf("transport: attach bpf filter: %w", err)
		close(out)
		return out, errCh
	}

	go func() {
		defer close(out)
		buf := make([]byte, 65536)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			tv := unix.Timeval{Sec: 0, Usec: 200_000}
			_ = unix.SetsockoptTimeval(t.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)

			n, _, err := unix.Recvfrom(t.fd, buf, 0)
			if err != nil {
				if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
					continue
				}
				select {
				case errCh <- fmt.Errorf("transport: recv: %w", err):
				default:
				}
				return
			}
			frame := make([]byte, n)
			copy(frame, buf[:n])
			select {
			case out <- Frame{Data: frame, Received: time.Now(), Interface: t.ifi.Name}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, errCh
}

func (t *rawTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return unix.Close(t.fd)
}

// attachFilter installs a classic BPF program on fd via SO_ATTACH_FILTER.
// bpf.RawInstruction and unix.SockFilter share the same wire layout
// ({Op/Code uint16; Jt, Jf uint8; K uint32}); each instruction is copied
// across explicitly rather than reinterpreting the slice, to keep the
// filter package free of unix-specific types.
func attachFilter(fd int, raw []bpf.RawInstruction) error {
	filters := make([]unix.SockFilter, len(raw))
	for i, r := range raw {
		filters[i] = unix.SockFilter{Code: r.Op, Jt: r.Jt, Jf: r.Jf, K: r.K}
	}
	prog := unix.SockFprog{
		Len:    uint16(len(filters)),
		Filter: &filters[0],
	}
	_, _, errno := unix.Syscall6(unix.SYS_SETSOCKOPT, uintptr(fd), unix.SOL_SOCKET, unix.SO_ATTACH_FILTER,
		uintptr(unsafe.Pointer(&prog)), unsafe.Sizeof(prog), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// ipToUint32 returns ip's four IPv4 bytes read as a little-endian uint32.
// Nothing in this package calls it.
func ipToUint32(ip net.IP) uint32 {
	ip4 := ip.To4()
	return binary.LittleEndian.Uint32(ip4)
}
