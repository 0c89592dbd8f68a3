package mqtt

import (
	"fmt"
	"strings"
)

// Topics builds the bridge's topic names under a common prefix.
//
//	topics := mqtt.Topics{Prefix: "wakeonlan"}
//	topics.Wake("3f2a...") // "wakeonlan/wake/3f2a..."
type Topics struct {
	Prefix string
}

// Devices is the retained topic carrying the full device list
func (t Topics) Devices() string {
	return t.Prefix + "/devices"
}

// Wake returns the command topic that wakes a single device
func (t Topics) Wake(deviceID string) string {
	return fmt.Sprintf("%s/wake/%s", t.Prefix, deviceID)
}

// AllWake matches every wake command topic
func (t Topics) AllWake() string {
	return t.Prefix + "/wake/+"
}

// Events carries the outcome of each wake attempt
func (t Topics) Events() string {
	return t.Prefix + "/events"
}

// Observed carries magic packets seen on the wire in listen mode
func (t Topics) Observed() string {
	return t.Prefix + "/observed"
}

// Status is the retained online/offline topic, also used for the LWT
func (t Topics) Status() string {
	return t.Prefix + "/status"
}

// DeviceIDFromWake extracts the device ID from a wake command topic
func (t Topics) DeviceIDFromWake(topic string) (string, error) {
	prefix := t.Prefix + "/wake/"
	id, ok := strings.CutPrefix(topic, prefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("%w: %q is not a wake topic", ErrInvalidTopic, topic)
	}
	return id, nil
}
