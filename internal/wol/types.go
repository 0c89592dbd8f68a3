package wol

import (
	"errors"
	"fmt"
	"net"
	"time"

	"wakeonlan/internal/netaddr"
)

// Magic packet constants
const (
	SyncSize     = 6
	SyncByte     = 0xFF
	Repetitions  = 16
	PacketSize   = SyncSize + Repetitions*6 // 102
	DefaultPort  = 9
	maxUDPBuffer = 1500
)

// ErrSendFailed is matched by every SendError
var ErrSendFailed = errors.New("wol: send failed")

// ParseError represents an error while validating a received magic packet
type ParseError struct {
	Message string
	Offset  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("wol: %s at offset %d", e.Message, e.Offset)
}

// NewParseError creates a new ParseError
func NewParseError(message string, offset int) *ParseError {
	return &ParseError{Message: message, Offset: offset}
}

// SendError describes a failed transmit attempt. Op is "resolve", "listen" or "write".
type SendError struct {
	Op   string
	Addr string
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("wol: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrSendFailed) match any SendError
func (e *SendError) Is(target error) bool {
	return target == ErrSendFailed
}

// Event is a magic packet observed by the Listener
type Event struct {
	Target      netaddr.MAC
	Source      net.Addr
	Destination net.IP // nil when the platform does not report it
	ReceivedAt  time.Time
}
