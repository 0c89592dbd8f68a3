package mqtt

import (
	"errors"
	"testing"
)

func TestTopicBuilders(t *testing.T) {
	topics := Topics{Prefix: "home/wol"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"devices", topics.Devices(), "home/wol/devices"},
		{"wake", topics.Wake("abc"), "home/wol/wake/abc"},
		{"all wake", topics.AllWake(), "home/wol/wake/+"},
		{"events", topics.Events(), "home/wol/events"},
		{"observed", topics.Observed(), "home/wol/observed"},
		{"status", topics.Status(), "home/wol/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestTopics_DeviceIDFromWake(t *testing.T) {
	topics := Topics{Prefix: "wol"}

	tests := []struct {
		topic   string
		want    string
		wantErr bool
	}{
		{"wol/wake/abc-123", "abc-123", false},
		{topics.Wake("x"), "x", false},
		{"wol/wake/", "", true},
		{"wol/wake/a/b", "", true},
		{"other/wake/abc", "", true},
		{"wol/devices", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, err := topics.DeviceIDFromWake(tt.topic)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTopic) {
					t.Errorf("DeviceIDFromWake(%q) error = %v, want ErrInvalidTopic", tt.topic, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("DeviceIDFromWake(%q) = %q, %v, want %q", tt.topic, got, err, tt.want)
			}
		})
	}
}
