package device

import (
	"errors"
	"fmt"
	"strconv"

	"wakeonlan/internal/netaddr"
)

// ValidationKind identifies which field rejected the input
type ValidationKind int

const (
	Valid ValidationKind = iota
	InvalidName
	InvalidMAC
	InvalidIP
	InvalidSubnet
	InvalidPort
)

func (k ValidationKind) String() string {
	switch k {
	case Valid:
		return "valid"
	case InvalidName:
		return "invalid name"
	case InvalidMAC:
		return "invalid mac"
	case InvalidIP:
		return "invalid ip"
	case InvalidSubnet:
		return "invalid subnet"
	case InvalidPort:
		return "invalid port"
	default:
		return "unknown"
	}
}

func (k ValidationKind) sentinel() error {
	switch k {
	case InvalidName:
		return ErrInvalidName
	case InvalidMAC:
		return ErrInvalidMAC
	case InvalidIP:
		return ErrInvalidIP
	case InvalidSubnet:
		return ErrInvalidSubnet
	case InvalidPort:
		return ErrInvalidPort
	default:
		return nil
	}
}

// ValidationError reports the first field that failed validation
type ValidationError struct {
	Kind  ValidationKind
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %q", e.Kind.sentinel(), e.Value)
}

// Is matches the sentinel for the failing field, e.g. ErrInvalidMAC
func (e *ValidationError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// Kind returns the validation kind carried by err, or Valid for nil and
// errors that are not validation failures
func Kind(err error) ValidationKind {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Kind
	}
	return Valid
}

// Validate checks f in a fixed order and stops at the first failure:
// name, MAC, IP, subnet, port. The subnet is only checked for being a
// dotted-quad, not for being a contiguous mask.
func Validate(f Fields) error {
	if f.Name == "" {
		return &ValidationError{Kind: InvalidName, Field: "name", Value: f.Name}
	}
	if _, err := netaddr.ParseMAC(f.MAC); err != nil {
		return &ValidationError{Kind: InvalidMAC, Field: "mac", Value: f.MAC}
	}
	if _, err := netaddr.ParseIPv4(f.IP); err != nil {
		return &ValidationError{Kind: InvalidIP, Field: "ip", Value: f.IP}
	}
	if _, err := netaddr.ParseIPv4(f.Subnet); err != nil {
		return &ValidationError{Kind: InvalidSubnet, Field: "subnet", Value: f.Subnet}
	}
	if _, err := parsePort(f.Port); err != nil {
		return &ValidationError{Kind: InvalidPort, Field: "port", Value: f.Port}
	}
	return nil
}

// parsePort accepts plain decimal digits only; a sign is rejected
func parsePort(s string) (uint16, error) {
	port, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(port), nil
}
