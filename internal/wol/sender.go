package wol

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/net/ipv4"
)

// Sender transmits magic packets over UDP. It holds no socket between sends.
type Sender struct {
	iface *net.Interface
	ttl   int
}

// SenderOption configures a Sender
type SenderOption func(*Sender)

// WithInterface pins outgoing datagrams to the given interface
func WithInterface(iface *net.Interface) SenderOption {
	return func(s *Sender) {
		s.iface = iface
	}
}

// WithTTL sets the IP TTL of outgoing datagrams (0 keeps the OS default)
func WithTTL(ttl int) SenderOption {
	return func(s *Sender) {
		s.ttl = ttl
	}
}

// NewSender creates a new Sender
func NewSender(opts ...SenderOption) *Sender {
	s := &Sender{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send transmits payload once to host:port and returns when the local write
// completed. There is no reply to wait for. The socket is always closed.
func (s *Sender) Send(payload []byte, host string, port uint16) error {
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))

	raddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return &SendError{Op: "resolve", Addr: addr, Err: err}
	}

	// Unconnected socket; Go enables SO_BROADCAST on datagram sockets
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return &SendError{Op: "listen", Addr: addr, Err: err}
	}
	defer conn.Close()

	pc := ipv4.NewPacketConn(conn)
	if s.ttl > 0 {
		if err := pc.SetTTL(s.ttl); err != nil {
			return &SendError{Op: "listen", Addr: addr, Err: err}
		}
	}

	var cm *ipv4.ControlMessage
	if s.iface != nil {
		cm = &ipv4.ControlMessage{IfIndex: s.iface.Index}
	}

	n, err := pc.WriteTo(payload, cm, raddr)
	if err != nil {
		return &SendError{Op: "write", Addr: addr, Err: err}
	}
	if n != len(payload) {
		return &SendError{Op: "write", Addr: addr, Err: fmt.Errorf("short write: %d of %d bytes", n, len(payload))}
	}

	return nil
}

// SendAsync runs Send on its own goroutine. The returned channel receives
// exactly one result and is then closed.
func (s *Sender) SendAsync(payload []byte, host string, port uint16) <-chan error {
	done := make(chan error, 1)

	// Callers may reuse their buffer once we return
	buf := make([]byte, len(payload))
	copy(buf, payload)

	go func() {
		defer close(done)
		done <- s.Send(buf, host, port)
	}()

	return done
}
