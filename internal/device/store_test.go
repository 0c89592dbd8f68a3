package device

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"wakeonlan/internal/kv"
)

// flakyBackend fails Set while failSet is true
type flakyBackend struct {
	*kv.Memory
	mu      sync.Mutex
	failSet bool
}

var errDiskFull = errors.New("disk full")

func (f *flakyBackend) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	fail := f.failSet
	f.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return f.Memory.Set(ctx, key, value)
}

func (f *flakyBackend) setFail(v bool) {
	f.mu.Lock()
	f.failSet = v
	f.mu.Unlock()
}

func testDevice(id, name string) Device {
	return Device{
		ID:     id,
		Name:   name,
		IP:     "192.168.1.10",
		MAC:    "00:11:22:33:44:55",
		Subnet: "255.255.255.0",
		Port:   9,
	}
}

func ids(devices []Device) []string {
	out := make([]string, 0, len(devices))
	for _, d := range devices {
		out = append(out, d.ID)
	}
	return out
}

func TestStore_LoadEmpty(t *testing.T) {
	s := NewStore(kv.NewMemory())

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Load() = %v, want empty", got)
	}
}

func TestStore_AddReplaceRemove(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemory())

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Add(ctx, testDevice(id, id)); err != nil {
			t.Fatalf("Add(%s) error = %v", id, err)
		}
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids(s.List())); diff != "" {
		t.Errorf("after Add mismatch (-want +got):\n%s", diff)
	}

	// Replacement moves to the end and may carry a different ID
	if err := s.Replace(ctx, "a", testDevice("z", "renamed")); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if diff := cmp.Diff([]string{"b", "c", "z"}, ids(s.List())); diff != "" {
		t.Errorf("after Replace mismatch (-want +got):\n%s", diff)
	}
	if _, ok := s.Get("a"); ok {
		t.Error("Get(a) found replaced device")
	}

	if err := s.Remove(ctx, "c"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := s.Remove(ctx, "c"); err != nil {
		t.Errorf("Remove(absent) error = %v, want nil", err)
	}
	if diff := cmp.Diff([]string{"b", "z"}, ids(s.List())); diff != "" {
		t.Errorf("after Remove mismatch (-want +got):\n%s", diff)
	}
	if s.Count() != 2 {
		t.Errorf("Count() = %d, want 2", s.Count())
	}
}

func TestStore_ReplaceAbsentAppends(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemory())

	if err := s.Replace(ctx, "missing", testDevice("n", "new")); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if diff := cmp.Diff([]string{"n"}, ids(s.List())); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_PersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()

	s := NewStore(backend, WithKey("wol-devices"))
	want := []Device{testDevice("1", "one"), testDevice("2", "two")}
	want[1].Port = 7
	want[1].MAC = "AA:BB:CC:DD:EE:FF"
	for _, d := range want {
		if err := s.Add(ctx, d); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	reopened := NewStore(backend, WithKey("wol-devices"))
	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, reopened.List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_CorruptSnapshotIsDiscarded(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"wrong shape", `{"devices": []}`},
		{"missing fields", `[{"id":"a"}]`},
		{"port out of range", `[{"id":"a","name":"x","ip":"10.0.0.1","mac":"00:11:22:33:44:55","subnet":"255.0.0.0","port":70000}]`},
		{"bad mac", `[{"id":"a","name":"x","ip":"10.0.0.1","mac":"zz","subnet":"255.0.0.0","port":9}]`},
		{"octet over 255", `[{"id":"a","name":"x","ip":"10.0.0.300","mac":"00:11:22:33:44:55","subnet":"255.0.0.0","port":9}]`},
		{"duplicate id", `[{"id":"a","name":"x","ip":"10.0.0.1","mac":"00:11:22:33:44:55","subnet":"255.0.0.0","port":9},` +
			`{"id":"a","name":"y","ip":"10.0.0.2","mac":"00:11:22:33:44:56","subnet":"255.0.0.0","port":9}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			backend := kv.NewMemory()
			if err := backend.Set(ctx, DefaultKey, []byte(tt.data)); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			s := NewStore(backend)
			got, err := s.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v, want nil", err)
			}
			if len(got) != 0 {
				t.Errorf("Load() = %v, want empty", got)
			}
			if _, err := backend.Get(ctx, DefaultKey); !errors.Is(err, kv.ErrNotFound) {
				t.Errorf("corrupt entry still present, Get() error = %v", err)
			}
		})
	}
}

func TestDecodeSnapshot_WrapsSentinel(t *testing.T) {
	_, err := decodeSnapshot([]byte(`[1, 2]`))
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("decodeSnapshot() error = %v, want ErrCorruptSnapshot", err)
	}
}

func TestEncodeSnapshot_Empty(t *testing.T) {
	data, err := encodeSnapshot(nil)
	if err != nil {
		t.Fatalf("encodeSnapshot() error = %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("encodeSnapshot(nil) = %s, want []", data)
	}
	if _, err := decodeSnapshot(data); err != nil {
		t.Errorf("decodeSnapshot([]) error = %v", err)
	}
}

func TestStore_FailedPersistLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{Memory: kv.NewMemory()}
	s := NewStore(backend)

	if err := s.Add(ctx, testDevice("a", "a")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	backend.setFail(true)
	if err := s.Add(ctx, testDevice("b", "b")); !errors.Is(err, errDiskFull) {
		t.Errorf("Add() error = %v, want errDiskFull", err)
	}
	if err := s.Remove(ctx, "a"); !errors.Is(err, errDiskFull) {
		t.Errorf("Remove() error = %v, want errDiskFull", err)
	}
	if diff := cmp.Diff([]string{"a"}, ids(s.List())); diff != "" {
		t.Errorf("List() after failed writes mismatch (-want +got):\n%s", diff)
	}

	backend.setFail(false)
	reopened := NewStore(backend)
	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff([]string{"a"}, ids(got)); diff != "" {
		t.Errorf("persisted list mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemory())

	var got [][]string
	unsubscribe := s.Subscribe(func(devices []Device) {
		got = append(got, ids(devices))
	})

	s.Add(ctx, testDevice("a", "a"))
	s.Add(ctx, testDevice("b", "b"))
	s.Remove(ctx, "a")
	unsubscribe()
	s.Add(ctx, testDevice("c", "c"))

	want := [][]string{{"a"}, {"a", "b"}, {"b"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_SubscriberCanRead(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemory())

	var count int
	s.Subscribe(func([]Device) {
		count = s.Count()
	})
	s.Add(ctx, testDevice("a", "a"))

	if count != 1 {
		t.Errorf("Count() inside subscriber = %d, want 1", count)
	}
}

func TestStore_ListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemory())
	s.Add(ctx, testDevice("a", "a"))

	list := s.List()
	list[0].Name = "mutated"

	if d, _ := s.Get("a"); d.Name != "a" {
		t.Errorf("Get(a).Name = %q, want %q", d.Name, "a")
	}
}
