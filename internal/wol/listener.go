package wol

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/net/ipv4"
)

// Listener receives magic packets on a UDP port and reports their targets
type Listener struct {
	port    int
	events  chan Event
	conn    *ipv4.PacketConn
	rawConn net.PacketConn
	mu      sync.Mutex
	started bool
}

// NewListener creates a new Listener for the given UDP port (0 picks a free port)
func NewListener(port int) *Listener {
	return &Listener{
		port:   port,
		events: make(chan Event, 100),
	}
}

// Events returns the channel of observed magic packets.
// It is closed once the listener stops.
func (l *Listener) Events() <-chan Event {
	return l.events
}

// Addr returns the bound local address, or nil before Start
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rawConn == nil {
		return nil
	}
	return l.rawConn.LocalAddr()
}

// Start binds the port and begins reading in the background until ctx is done
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return fmt.Errorf("listener already started")
	}

	conn, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", l.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", l.port, err)
	}
	l.rawConn = conn
	l.conn = ipv4.NewPacketConn(conn)
	l.started = true

	// Lets us tell broadcast from unicast; non-fatal where unsupported
	_ = l.conn.SetControlMessage(ipv4.FlagDst, true)

	go func() {
		<-ctx.Done()
		l.Stop()
	}()
	go l.readPackets(l.conn)

	return nil
}

// readPackets reads datagrams until the socket is closed
func (l *Listener) readPackets(conn *ipv4.PacketConn) {
	defer close(l.events)

	buf := make([]byte, maxUDPBuffer)
	for {
		n, cm, src, err := conn.ReadFrom(buf)
		if err != nil {
			if l.isStopped() {
				return
			}
			continue
		}

		target, err := Parse(buf[:n])
		if err != nil {
			// Not a magic packet
			continue
		}

		evt := Event{
			Target:     target,
			Source:     src,
			ReceivedAt: time.Now(),
		}
		if cm != nil {
			evt.Destination = cm.Dst
		}

		// Drop if nobody keeps up
		select {
		case l.events <- evt:
		default:
		}
	}
}

func (l *Listener) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rawConn == nil
}

// Stop closes the socket; pending reads return and Events is closed
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rawConn != nil {
		l.rawConn.Close()
		l.rawConn = nil
	}
}
