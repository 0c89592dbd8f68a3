package history

import (
	"sync"
	"time"
)

// recentWindowDuration is the time window for recent failure calculation
const recentWindowDuration = time.Minute

// WakeEvent records a wake attempt for sliding window tracking
type WakeEvent struct {
	DeviceID  string
	Timestamp time.Time
	Failed    bool
}

// DeviceStats holds the wake history of a single device
type DeviceStats struct {
	DeviceID    string
	Attempts    uint64
	Failures    uint64
	LastAttempt time.Time
	LastSuccess time.Time
	LastError   string // empty when the last attempt succeeded
}

// Tracker tracks wake attempts for all devices
type Tracker struct {
	devices map[string]*DeviceStats
	window  []WakeEvent
	now     func() time.Time
	mu      sync.RWMutex
}

// NewTracker creates a new wake history tracker
func NewTracker() *Tracker {
	return &Tracker{
		devices: make(map[string]*DeviceStats),
		now:     time.Now,
	}
}

// RecordWake records the outcome of a wake attempt; err is nil on success
func (t *Tracker) RecordWake(deviceID string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()

	stats, exists := t.devices[deviceID]
	if !exists {
		stats = &DeviceStats{DeviceID: deviceID}
		t.devices[deviceID] = stats
	}

	stats.Attempts++
	stats.LastAttempt = now
	if err != nil {
		stats.Failures++
		stats.LastError = err.Error()
	} else {
		stats.LastSuccess = now
		stats.LastError = ""
	}

	t.window = append(t.window, WakeEvent{
		DeviceID:  deviceID,
		Timestamp: now,
		Failed:    err != nil,
	})
	t.prune(now)
}

// prune drops events older than the recent window. Caller holds mu.
func (t *Tracker) prune(now time.Time) {
	cutoff := now.Add(-recentWindowDuration)
	kept := t.window[:0]
	for _, evt := range t.window {
		if evt.Timestamp.After(cutoff) {
			kept = append(kept, evt)
		}
	}
	t.window = kept
}

// Stats returns a copy of the history for a device
func (t *Tracker) Stats(deviceID string) (DeviceStats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats, exists := t.devices[deviceID]
	if !exists {
		return DeviceStats{}, false
	}
	return *stats, true
}

// RecentAttempts returns the number of wake attempts in the last minute
func (t *Tracker) RecentAttempts() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cutoff := t.now().Add(-recentWindowDuration)
	count := 0
	for _, evt := range t.window {
		if evt.Timestamp.After(cutoff) {
			count++
		}
	}
	return count
}

// RecentFailurePercentage returns the failure percentage for the last minute
func (t *Tracker) RecentFailurePercentage() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cutoff := t.now().Add(-recentWindowDuration)
	var total, failed int
	for _, evt := range t.window {
		if evt.Timestamp.After(cutoff) {
			total++
			if evt.Failed {
				failed++
			}
		}
	}

	if total == 0 {
		return 0
	}
	return float64(failed) / float64(total) * 100
}

// Forget drops the history of a device, e.g. after it was removed
func (t *Tracker) Forget(deviceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.devices, deviceID)
	kept := t.window[:0]
	for _, evt := range t.window {
		if evt.DeviceID != deviceID {
			kept = append(kept, evt)
		}
	}
	t.window = kept
}
