package netaddr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidAddress is returned when a string is not a dotted-quad IPv4 address
	ErrInvalidAddress = errors.New("netaddr: invalid IPv4 address")

	// ErrInvalidMAC is returned when a string is not in XX:XX:XX:XX:XX:XX form
	ErrInvalidMAC = errors.New("netaddr: invalid MAC address")
)

// IPv4 is a four-octet IPv4 address or subnet mask
type IPv4 [4]byte

// MAC is a six-byte hardware address
type MAC [6]byte

// String returns the dotted-quad form
func (ip IPv4) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], ip[2], ip[3])
}

// String returns the canonical lower-case colon-separated form
func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// ParseIPv4 parses exactly four dot-separated decimal octets in the range 0-255.
// Nothing else is accepted: no surrounding whitespace, no signs, no empty octets.
func ParseIPv4(s string) (IPv4, error) {
	var ip IPv4

	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return IPv4{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	for i, part := range parts {
		// 1-3 digits; zero padding is only tolerated in three-digit form ("010", not "05")
		if len(part) == 0 || len(part) > 3 || (len(part) == 2 && part[0] == '0') {
			return IPv4{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}

		value := 0
		for j := 0; j < len(part); j++ {
			c := part[j]
			if c < '0' || c > '9' {
				return IPv4{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
			}
			value = value*10 + int(c-'0')
		}
		if value > 255 {
			return IPv4{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		ip[i] = byte(value)
	}

	return ip, nil
}

// ParseMAC parses the canonical XX:XX:XX:XX:XX:XX form (hex, case-insensitive).
// Other delimiters or groupings accepted by net.ParseMAC are rejected.
func ParseMAC(s string) (MAC, error) {
	var mac MAC

	// 6 groups of 2 hex digits plus 5 colons
	if len(s) != 17 {
		return MAC{}, fmt.Errorf("%w: %q", ErrInvalidMAC, s)
	}

	for i := 0; i < 6; i++ {
		offset := i * 3
		if i > 0 && s[offset-1] != ':' {
			return MAC{}, fmt.Errorf("%w: %q", ErrInvalidMAC, s)
		}

		hi, ok := fromHex(s[offset])
		if !ok {
			return MAC{}, fmt.Errorf("%w: %q", ErrInvalidMAC, s)
		}
		lo, ok := fromHex(s[offset+1])
		if !ok {
			return MAC{}, fmt.Errorf("%w: %q", ErrInvalidMAC, s)
		}
		mac[i] = hi<<4 | lo
	}

	return mac, nil
}

// BroadcastAddress returns ip OR'd with the complement of mask, octet by octet.
// The mask is not checked for being a contiguous prefix.
func BroadcastAddress(ip, mask IPv4) IPv4 {
	var bcast IPv4
	for i := range bcast {
		bcast[i] = ip[i] | ^mask[i]
	}
	return bcast
}

func fromHex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
