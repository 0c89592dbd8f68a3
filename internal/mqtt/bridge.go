package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"wakeonlan/internal/device"
	"wakeonlan/internal/wol"
)

// Messenger is the subset of Client the bridge needs
type Messenger interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Unsubscribe(topic string) error
}

// Waker is the subset of device.Service the bridge needs
type Waker interface {
	Wake(id string) <-chan error
	List() []device.Device
	Subscribe(fn func([]device.Device)) func()
}

// BridgeLogger is the logging interface used by the bridge
type BridgeLogger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// WakeEvent is published on the events topic after every wake command
type WakeEvent struct {
	ID        string    `json:"id"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ObservedPacket is published on the observed topic in listen mode
type ObservedPacket struct {
	MAC         string    `json:"mac"`
	Source      string    `json:"source"`
	Destination string    `json:"destination,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Bridge exposes the device registry over MQTT: the device list is
// published retained, "<prefix>/wake/<id>" triggers a wake and every
// outcome is reported on "<prefix>/events".
type Bridge struct {
	messenger Messenger
	waker     Waker
	topics    Topics
	qos       byte
	logger    BridgeLogger
	now       func() time.Time

	unsubscribe func()
	pending     sync.WaitGroup
	mu          sync.Mutex
	stopped     bool
}

// NewBridge creates a bridge publishing under prefix
func NewBridge(messenger Messenger, waker Waker, prefix string, qos byte, logger BridgeLogger) *Bridge {
	return &Bridge{
		messenger: messenger,
		waker:     waker,
		topics:    Topics{Prefix: prefix},
		qos:       qos,
		logger:    logger,
		now:       time.Now,
	}
}

// Start publishes the current device list, follows later changes and
// subscribes to wake commands
func (b *Bridge) Start() error {
	if err := b.publishDevices(b.waker.List()); err != nil {
		return err
	}

	b.unsubscribe = b.waker.Subscribe(func(devices []device.Device) {
		if err := b.publishDevices(devices); err != nil {
			b.logger.Warn("failed to publish device list", "error", err)
		}
	})

	if err := b.messenger.Subscribe(b.topics.AllWake(), b.qos, b.handleWake); err != nil {
		b.unsubscribe()
		b.unsubscribe = nil
		return err
	}

	b.logger.Info("MQTT bridge started", "prefix", b.topics.Prefix)
	return nil
}

// Stop stops following device changes, drops the wake subscription and
// waits for in-flight wake results to be reported. Wake commands that
// still arrive afterwards are rejected.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	b.mu.Unlock()

	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
	if err := b.messenger.Unsubscribe(b.topics.AllWake()); err != nil {
		b.logger.Warn("failed to unsubscribe from wake topic", "error", err)
	}
	b.pending.Wait()
}

func (b *Bridge) publishDevices(devices []device.Device) error {
	if devices == nil {
		devices = []device.Device{}
	}
	payload, err := json.Marshal(devices)
	if err != nil {
		return fmt.Errorf("encoding device list: %w", err)
	}
	return b.messenger.Publish(b.topics.Devices(), payload, b.qos, true)
}

func (b *Bridge) handleWake(topic string, _ []byte) error {
	id, err := b.topics.DeviceIDFromWake(topic)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return ErrBridgeStopped
	}
	b.pending.Add(1)
	b.mu.Unlock()

	result := b.waker.Wake(id)
	go func() {
		defer b.pending.Done()

		evt := WakeEvent{ID: id, OK: true}
		if err := <-result; err != nil {
			evt.OK = false
			evt.Error = err.Error()
		}
		evt.Timestamp = b.now().UTC()

		if err := b.publishJSON(b.topics.Events(), evt); err != nil {
			b.logger.Warn("failed to publish wake event", "id", id, "error", err)
		}
	}()
	return nil
}

// PublishObserved reports a magic packet seen by the listener
func (b *Bridge) PublishObserved(evt wol.Event) error {
	obs := ObservedPacket{
		MAC:       evt.Target.String(),
		Timestamp: evt.ReceivedAt.UTC(),
	}
	if evt.Source != nil {
		obs.Source = evt.Source.String()
	}
	if evt.Destination != nil {
		obs.Destination = evt.Destination.String()
	}
	return b.publishJSON(b.topics.Observed(), obs)
}

func (b *Bridge) publishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", topic, err)
	}
	return b.messenger.Publish(topic, payload, b.qos, false)
}
