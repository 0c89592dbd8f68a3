package device

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"wakeonlan/internal/wol"
)

// DefaultPort is the port pre-filled for new devices
const DefaultPort = wol.DefaultPort

// Sender delivers a payload over UDP without blocking the caller.
// The channel yields exactly one result and is then closed.
type Sender interface {
	SendAsync(payload []byte, host string, port uint16) <-chan error
}

// Recorder observes the outcome of every wake attempt. Forget is called
// once a device has been removed.
type Recorder interface {
	RecordWake(deviceID string, err error)
	Forget(deviceID string)
}

// Service is the front door used by the UI and the MQTT bridge.
// It validates input, assigns identifiers and dispatches wake packets.
type Service struct {
	store    *Store
	sender   Sender
	recorder Recorder
	logger   Logger
	newID    func() string
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithRecorder sets the wake attempt recorder
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithLogger sets the logger
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIDGenerator overrides how new device IDs are minted
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService creates a Service over store that sends through sender
func NewService(store *Store, sender Sender, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		sender: sender,
		logger: noopLogger{},
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddOrUpdate validates f and stores the device. With an empty
// existingID a new device with a fresh ID is appended; otherwise the
// device with existingID is replaced and keeps its ID. Nothing is
// stored when validation fails.
func (s *Service) AddOrUpdate(ctx context.Context, f Fields, existingID string) (Device, error) {
	if err := Validate(f); err != nil {
		s.logger.Debug("device rejected", "error", err)
		return Device{}, err
	}
	port, _ := parsePort(f.Port)

	d := Device{
		ID:     existingID,
		Name:   f.Name,
		IP:     f.IP,
		MAC:    f.MAC,
		Subnet: f.Subnet,
		Port:   port,
	}

	if existingID == "" {
		d.ID = s.newID()
		if err := s.store.Add(ctx, d); err != nil {
			return Device{}, err
		}
		s.logger.Info("device added", "id", d.ID, "name", d.Name)
		return d, nil
	}

	if err := s.store.Replace(ctx, existingID, d); err != nil {
		return Device{}, err
	}
	s.logger.Info("device updated", "id", d.ID, "name", d.Name)
	return d, nil
}

// Wake sends a magic packet for the device with id to its subnet
// broadcast address. The returned channel yields one result (nil on
// success) and is then closed.
func (s *Service) Wake(id string) <-chan error {
	result := make(chan error, 1)

	d, ok := s.store.Get(id)
	if !ok {
		s.finish(result, id, fmt.Errorf("waking %q: %w", id, ErrDeviceNotFound))
		return result
	}

	mac, err := d.HardwareAddr()
	if err != nil {
		s.finish(result, id, fmt.Errorf("waking %q: %w", d.Name, err))
		return result
	}
	broadcast, err := d.BroadcastAddress()
	if err != nil {
		s.finish(result, id, fmt.Errorf("waking %q: %w", d.Name, err))
		return result
	}

	packet := wol.Build(mac)
	s.logger.Debug("sending magic packet", "id", id, "mac", mac.String(), "to", broadcast.String(), "port", d.Port)
	sent := s.sender.SendAsync(packet[:], broadcast.String(), d.Port)

	go func() {
		err := <-sent
		if err != nil {
			err = fmt.Errorf("waking %q: %w", d.Name, err)
		}
		s.finish(result, id, err)
	}()
	return result
}

func (s *Service) finish(result chan<- error, id string, err error) {
	if err != nil {
		s.logger.Warn("wake failed", "id", id, "error", err)
	} else {
		s.logger.Info("wake packet sent", "id", id)
	}
	if s.recorder != nil {
		s.recorder.RecordWake(id, err)
	}
	result <- err
	close(result)
}

// Remove deletes the device with id. Removing an unknown id is not an error.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.store.Remove(ctx, id); err != nil {
		return err
	}
	if s.recorder != nil {
		s.recorder.Forget(id)
	}
	s.logger.Info("device removed", "id", id)
	return nil
}

// List returns all devices in insertion order
func (s *Service) List() []Device {
	return s.store.List()
}

// Get returns the device with id
func (s *Service) Get(id string) (Device, bool) {
	return s.store.Get(id)
}

// Subscribe registers fn for list changes, see Store.Subscribe
func (s *Service) Subscribe(fn func([]Device)) func() {
	return s.store.Subscribe(fn)
}

// Filter returns the devices whose name, IP or MAC contain keyword,
// ignoring case. An empty keyword matches everything.
func Filter(devices []Device, keyword string) []Device {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return devices
	}

	matched := make([]Device, 0, len(devices))
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), keyword) ||
			strings.Contains(d.IP, keyword) ||
			strings.Contains(strings.ToLower(d.MAC), keyword) {
			matched = append(matched, d)
		}
	}
	return matched
}
