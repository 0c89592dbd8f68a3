package device

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schema.json
var rawSchema []byte

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	return compiler.Compile(rawSchema)
})

// validateSnapshot checks data against the embedded device list schema
func validateSnapshot(data []byte) []error {
	schema, err := compileSchema()
	if err != nil {
		return []error{err}
	}

	var errs []error
	result := schema.Validate(data)
	if !result.IsValid() {
		for _, err = range result.Errors {
			errs = append(errs, err)
		}
	}
	return errs
}

// encodeSnapshot serializes devices in order. An empty list encodes as [].
func encodeSnapshot(devices []Device) ([]byte, error) {
	if devices == nil {
		devices = []Device{}
	}
	data, err := json.Marshal(devices)
	if err != nil {
		return nil, fmt.Errorf("encoding devices: %w", err)
	}
	return data, nil
}

// decodeSnapshot parses a persisted device list. Any failure wraps
// ErrCorruptSnapshot.
func decodeSnapshot(data []byte) ([]Device, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrCorruptSnapshot)
	}
	if errs := validateSnapshot(data); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, errors.Join(errs...))
	}

	var devices []Device
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}

	seen := make(map[string]struct{}, len(devices))
	for i, d := range devices {
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q at index %d", ErrCorruptSnapshot, d.ID, i)
		}
		seen[d.ID] = struct{}{}

		if err := Validate(FieldsOf(d)); err != nil {
			return nil, fmt.Errorf("%w: device %q: %w", ErrCorruptSnapshot, d.ID, err)
		}
	}
	return devices, nil
}
