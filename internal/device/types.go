package device

import (
	"fmt"

	"wakeonlan/internal/netaddr"
)

// Device is a registered wake target
type Device struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IP     string `json:"ip"`
	MAC    string `json:"mac"`
	Subnet string `json:"subnet"`
	Port   uint16 `json:"port"`
}

// Fields is the raw user input for creating or editing a Device.
// Port is text because it is validated as part of admission.
type Fields struct {
	Name   string
	MAC    string
	IP     string
	Subnet string
	Port   string
}

// FieldsOf returns the editable fields of d, e.g. to pre-fill an edit form
func FieldsOf(d Device) Fields {
	return Fields{
		Name:   d.Name,
		MAC:    d.MAC,
		IP:     d.IP,
		Subnet: d.Subnet,
		Port:   fmt.Sprintf("%d", d.Port),
	}
}

// HardwareAddr parses the device MAC
func (d Device) HardwareAddr() (netaddr.MAC, error) {
	return netaddr.ParseMAC(d.MAC)
}

// BroadcastAddress returns the subnet broadcast address the magic packet is sent to
func (d Device) BroadcastAddress() (netaddr.IPv4, error) {
	ip, err := netaddr.ParseIPv4(d.IP)
	if err != nil {
		return netaddr.IPv4{}, err
	}
	mask, err := netaddr.ParseIPv4(d.Subnet)
	if err != nil {
		return netaddr.IPv4{}, err
	}
	return netaddr.BroadcastAddress(ip, mask), nil
}

// Logger defines the logging interface used by this package
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
