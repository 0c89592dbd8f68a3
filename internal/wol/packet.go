package wol

import (
	"bytes"

	"wakeonlan/internal/netaddr"
)

var syncStream = bytes.Repeat([]byte{SyncByte}, SyncSize)

// Build returns the 102-byte magic packet for mac: six 0xFF bytes followed by
// the address repeated sixteen times
func Build(mac netaddr.MAC) [PacketSize]byte {
	var packet [PacketSize]byte

	copy(packet[:SyncSize], syncStream)
	for i := 0; i < Repetitions; i++ {
		copy(packet[SyncSize+i*len(mac):], mac[:])
	}

	return packet
}

// Parse validates a received magic packet and returns the target address.
// Trailing bytes after the 16th repetition (e.g. a SecureOn password) are ignored.
func Parse(data []byte) (netaddr.MAC, error) {
	var mac netaddr.MAC

	if len(data) < PacketSize {
		return mac, NewParseError("packet too short", len(data))
	}

	// Sync stream (offset 0-5)
	if !bytes.Equal(data[:SyncSize], syncStream) {
		return mac, NewParseError("invalid sync stream", 0)
	}

	// First repetition is the target (offset 6-11)
	copy(mac[:], data[SyncSize:SyncSize+len(mac)])

	// Remaining repetitions must match it
	for i := 1; i < Repetitions; i++ {
		offset := SyncSize + i*len(mac)
		if !bytes.Equal(data[offset:offset+len(mac)], mac[:]) {
			return netaddr.MAC{}, NewParseError("target address repetition mismatch", offset)
		}
	}

	return mac, nil
}
