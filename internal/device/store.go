package device

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"wakeonlan/internal/kv"
)

// DefaultKey is the storage key the device list is persisted under
const DefaultKey = "devices"

// Store is the ordered, persisted collection of devices.
//
// Every mutation rewrites the full list under Key. The in-memory list
// only changes once the write succeeded, so a failed save leaves both
// copies as they were.
type Store struct {
	backend kv.Store
	key     string
	logger  Logger

	devices []Device
	mu      sync.RWMutex

	subscribers map[int]func([]Device)
	nextSub     int
	subMu       sync.Mutex
	notifyMu    sync.Mutex
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithKey sets the storage key
func WithKey(key string) StoreOption {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithStoreLogger sets the logger
func WithStoreLogger(logger Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates an empty store on top of backend. Call Load to read
// the persisted list.
func NewStore(backend kv.Store, opts ...StoreOption) *Store {
	s := &Store{
		backend:     backend,
		key:         DefaultKey,
		logger:      noopLogger{},
		subscribers: make(map[int]func([]Device)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted list, replacing the in-memory one.
//
// A missing entry yields an empty list. A corrupt entry is deleted and
// logged, and the store starts empty; only backend failures are returned.
func (s *Store) Load(ctx context.Context) ([]Device, error) {
	s.mu.Lock()

	data, err := s.backend.Get(ctx, s.key)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		s.devices = nil
	case err != nil:
		s.mu.Unlock()
		return nil, fmt.Errorf("loading devices: %w", err)
	default:
		devices, decodeErr := decodeSnapshot(data)
		if decodeErr != nil {
			s.logger.Error("discarding corrupt device list", "key", s.key, "error", decodeErr)
			if err := s.backend.Delete(ctx, s.key); err != nil {
				s.logger.Warn("failed to delete corrupt device list", "key", s.key, "error", err)
			}
			devices = nil
		}
		s.devices = devices
	}

	s.logger.Info("devices loaded", "count", len(s.devices))
	return s.publish()
}

// SaveAll writes the current list to the backend
func (s *Store) SaveAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx, s.devices)
}

// Add appends d
func (s *Store) Add(ctx context.Context, d Device) error {
	return s.mutate(ctx, func(devices []Device) []Device {
		return append(devices, d)
	})
}

// Replace removes every device with oldID and appends d. The
// replacement goes to the end of the list, and d.ID need not equal oldID.
func (s *Store) Replace(ctx context.Context, oldID string, d Device) error {
	return s.mutate(ctx, func(devices []Device) []Device {
		devices = removeID(devices, oldID)
		return append(devices, d)
	})
}

// Remove deletes every device with id. Removing an absent id is not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	return s.mutate(ctx, func(devices []Device) []Device {
		return removeID(devices, id)
	})
}

// Get returns the device with the given ID
func (s *Store) Get(id string) (Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.devices {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}

// List returns a copy of all devices in insertion order
func (s *Store) List() []Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.devices)
}

// Count returns the number of devices
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.devices)
}

// Subscribe registers fn to receive the full list after every change.
// fn runs on the mutating goroutine and must not mutate the store.
// The returned function unregisters it.
func (s *Store) Subscribe(fn func([]Device)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

// mutate applies fn to a copy of the list, persists the result and only
// then makes it current
func (s *Store) mutate(ctx context.Context, fn func([]Device) []Device) error {
	s.mu.Lock()

	next := fn(slices.Clone(s.devices))
	if err := s.persist(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.devices = next

	_, err := s.publish()
	return err
}

// publish must be called with mu held; it releases mu and notifies
// subscribers in the order changes were applied
func (s *Store) publish() ([]Device, error) {
	snapshot := slices.Clone(s.devices)
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.subMu.Lock()
	subs := make([]func([]Device), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(slices.Clone(snapshot))
	}
	return snapshot, nil
}

func (s *Store) persist(ctx context.Context, devices []Device) error {
	data, err := encodeSnapshot(devices)
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, s.key, data); err != nil {
		s.logger.Error("failed to persist devices", "key", s.key, "error", err)
		return fmt.Errorf("saving devices: %w", err)
	}
	s.logger.Debug("devices persisted", "count", len(devices))
	return nil
}

func removeID(devices []Device, id string) []Device {
	return slices.DeleteFunc(devices, func(d Device) bool {
		return d.ID == id
	})
}
