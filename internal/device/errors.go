package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // refresh the list
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidName is returned when the name is empty.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrInvalidMAC is returned when the MAC is not XX:XX:XX:XX:XX:XX.
	ErrInvalidMAC = errors.New("device: invalid MAC address")

	// ErrInvalidIP is returned when the IP is not a dotted-quad IPv4 address.
	ErrInvalidIP = errors.New("device: invalid IP address")

	// ErrInvalidSubnet is returned when the subnet mask is not a dotted-quad.
	ErrInvalidSubnet = errors.New("device: invalid subnet mask")

	// ErrInvalidPort is returned when the port is not an unsigned 16-bit integer.
	ErrInvalidPort = errors.New("device: invalid port")

	// ErrCorruptSnapshot is reported when the persisted device list cannot be decoded.
	ErrCorruptSnapshot = errors.New("device: corrupt snapshot")
)
