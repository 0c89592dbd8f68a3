package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"wakeonlan/internal/device"
	"wakeonlan/internal/history"
	"wakeonlan/internal/kv"
)

type stubSender struct {
	err error
}

func (s stubSender) SendAsync([]byte, string, uint16) <-chan error {
	ch := make(chan error, 1)
	ch <- s.err
	close(ch)
	return ch
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	escKey   = tea.KeyMsg{Type: tea.KeyEsc}
	saveKey  = tea.KeyMsg{Type: tea.KeyCtrlS}
)

func newTestModel(t *testing.T, sendErr error, names ...string) (Model, *device.Service, *history.Tracker) {
	t.Helper()
	tracker := history.NewTracker()
	svc := device.NewService(device.NewStore(kv.NewMemory()), stubSender{err: sendErr}, device.WithRecorder(tracker))
	for i, name := range names {
		_, err := svc.AddOrUpdate(context.Background(), device.Fields{
			Name:   name,
			MAC:    "00:11:22:33:44:5" + string(rune('0'+i)),
			IP:     "192.168.1.1" + string(rune('0'+i)),
			Subnet: "255.255.255.0",
			Port:   "9",
		}, "")
		if err != nil {
			t.Fatalf("AddOrUpdate(%s) error = %v", name, err)
		}
	}
	return NewModel(svc, tracker, "1.2.3", 9), svc, tracker
}

// update applies msg and returns the new model
func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// run executes cmd and feeds its message back into the model
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command, got nil")
	}
	m, _ = update(t, m, cmd())
	return m
}

func TestModel_Navigation(t *testing.T) {
	m, _, _ := newTestModel(t, nil, "a", "b", "c")

	m, _ = update(t, m, runes("j"))
	m, _ = update(t, m, runes("j"))
	m, _ = update(t, m, runes("j"))
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want 2", m.cursor)
	}

	m, _ = update(t, m, runes("k"))
	if d, _ := m.selected(); d.Name != "b" {
		t.Errorf("selected = %q, want %q", d.Name, "b")
	}
}

func TestModel_AddDevice(t *testing.T) {
	m, svc, _ := newTestModel(t, nil)

	m, _ = update(t, m, runes("a"))
	if m.mode != modeForm {
		t.Fatalf("mode = %v, want form", m.mode)
	}
	if got := m.form.inputs[fieldPort].Value(); got != "9" {
		t.Errorf("default port = %q, want %q", got, "9")
	}

	// Typing goes into the focused field
	for _, r := range "NAS" {
		m, _ = update(t, m, runes(string(r)))
	}
	m.form.inputs[fieldMAC].SetValue("aa:bb:cc:dd:ee:ff")
	m.form.inputs[fieldIP].SetValue("10.0.0.2")
	m.form.inputs[fieldSubnet].SetValue("255.0.0.0")

	m, cmd := update(t, m, saveKey)
	m = run(t, m, cmd)

	if m.mode != modeList {
		t.Errorf("mode = %v, want list", m.mode)
	}
	list := svc.List()
	if len(list) != 1 || list[0].Name != "NAS" || list[0].Port != 9 {
		t.Fatalf("List() = %+v, want one NAS device on port 9", list)
	}
	if d, _ := m.selected(); d.ID != list[0].ID {
		t.Errorf("selected = %q, want new device", d.ID)
	}
}

func TestModel_FormValidationAlerts(t *testing.T) {
	tests := []struct {
		name      string
		field     int
		value     string
		wantTitle string
	}{
		{"empty name", fieldName, "", "Invalid Name"},
		{"short mac", fieldMAC, "00:11:22:33:44", "Invalid MAC Address"},
		{"bad ip", fieldIP, "192.168.1", "Invalid IP Address"},
		{"bad subnet", fieldSubnet, "255.255", "Invalid Subnet"},
		{"port too large", fieldPort, "70000", "Invalid Port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, svc, _ := newTestModel(t, nil)
			m, _ = update(t, m, runes("a"))
			m.form.inputs[fieldName].SetValue("Desktop")
			m.form.inputs[fieldMAC].SetValue("00:11:22:33:44:55")
			m.form.inputs[fieldIP].SetValue("192.168.1.10")
			m.form.inputs[fieldSubnet].SetValue("255.255.255.0")
			m.form.inputs[tt.field].SetValue(tt.value)

			m, cmd := update(t, m, saveKey)
			if cmd != nil {
				t.Error("save command issued for invalid input")
			}
			if m.form.alertTitle != tt.wantTitle {
				t.Errorf("alertTitle = %q, want %q", m.form.alertTitle, tt.wantTitle)
			}
			if !strings.Contains(m.View(), tt.wantTitle) {
				t.Errorf("View() does not show %q", tt.wantTitle)
			}
			if len(svc.List()) != 0 {
				t.Errorf("List() = %v, want empty", svc.List())
			}

			// Any key dismisses the alert and keeps the form open
			m, _ = update(t, m, runes("x"))
			if m.form.alertText != "" || m.mode != modeForm {
				t.Errorf("after dismiss: alert %q mode %v", m.form.alertText, m.mode)
			}
		})
	}
}

func TestModel_EditDevice(t *testing.T) {
	m, svc, _ := newTestModel(t, nil, "first", "second")
	original := svc.List()[0]

	m, _ = update(t, m, runes("e"))
	if m.form.editingID != original.ID {
		t.Fatalf("editingID = %q, want %q", m.form.editingID, original.ID)
	}
	if got := m.form.inputs[fieldName].Value(); got != "first" {
		t.Errorf("name pre-fill = %q, want %q", got, "first")
	}

	m.form.inputs[fieldName].SetValue("renamed")
	m.form.focus = fieldPort
	m, cmd := update(t, m, enterKey)
	m = run(t, m, cmd)

	got, ok := svc.Get(original.ID)
	if !ok || got.Name != "renamed" {
		t.Errorf("Get() = %+v, %v, want renamed", got, ok)
	}
	if n := len(svc.List()); n != 2 {
		t.Errorf("len(List()) = %d, want 2", n)
	}
}

func TestModel_EditClosedWhenDeviceRemoved(t *testing.T) {
	m, svc, _ := newTestModel(t, nil, "first")
	m, _ = update(t, m, runes("e"))

	id := m.form.editingID
	if err := svc.Remove(context.Background(), id); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	m, _ = update(t, m, DevicesMsg(svc.List()))

	if m.mode != modeList {
		t.Errorf("mode = %v, want list", m.mode)
	}
	if !m.statusErr {
		t.Errorf("status = %q, want error status", m.status)
	}
}

func TestModel_RemoveDevice(t *testing.T) {
	m, svc, _ := newTestModel(t, nil, "first", "second")

	// Cancel keeps the device
	m, _ = update(t, m, runes("d"))
	if !strings.Contains(m.View(), "Are you sure") {
		t.Error("View() missing remove confirmation")
	}
	m, _ = update(t, m, escKey)
	if m.mode != modeList || len(svc.List()) != 2 {
		t.Fatalf("after cancel: mode %v, %d devices", m.mode, len(svc.List()))
	}

	m, _ = update(t, m, runes("d"))
	m, cmd := update(t, m, runes("y"))
	m = run(t, m, cmd)

	list := svc.List()
	if len(list) != 1 || list[0].Name != "second" {
		t.Errorf("List() = %+v, want only second", list)
	}
	if m.status != "Removed first" {
		t.Errorf("status = %q, want %q", m.status, "Removed first")
	}
}

func TestModel_Wake(t *testing.T) {
	m, svc, tracker := newTestModel(t, nil, "NAS")

	m, cmd := update(t, m, enterKey)
	if !strings.HasPrefix(m.status, "Waking NAS") {
		t.Errorf("status = %q, want Waking NAS...", m.status)
	}
	m = run(t, m, cmd)

	if m.status != "Magic packet sent to NAS" || m.statusErr {
		t.Errorf("status = %q (err %v), want success", m.status, m.statusErr)
	}
	stats, ok := tracker.Stats(svc.List()[0].ID)
	if !ok || stats.Attempts != 1 {
		t.Errorf("history = %+v, %v, want one attempt", stats, ok)
	}
	if !strings.Contains(m.View(), "sent ") {
		t.Error("View() missing last wake column")
	}
}

func TestModel_WakeFailure(t *testing.T) {
	m, _, _ := newTestModel(t, errors.New("network is unreachable"), "NAS")

	m, cmd := update(t, m, enterKey)
	m = run(t, m, cmd)

	if !m.statusErr || !strings.Contains(m.status, "network is unreachable") {
		t.Errorf("status = %q (err %v), want failure", m.status, m.statusErr)
	}
}

func TestModel_Search(t *testing.T) {
	m, _, _ := newTestModel(t, nil, "Office PC", "NAS", "Laptop")

	m, _ = update(t, m, runes("/"))
	if m.mode != modeSearch {
		t.Fatalf("mode = %v, want search", m.mode)
	}
	for _, r := range "nas" {
		m, _ = update(t, m, runes(string(r)))
	}
	if len(m.visible) != 1 || m.visible[0].Name != "NAS" {
		t.Errorf("visible = %+v, want only NAS", m.visible)
	}

	// Enter keeps the filter, esc in the list clears it
	m, _ = update(t, m, enterKey)
	if m.mode != modeList || len(m.visible) != 1 {
		t.Errorf("after enter: mode %v, %d visible", m.mode, len(m.visible))
	}
	m, _ = update(t, m, escKey)
	if len(m.visible) != 3 {
		t.Errorf("after esc: %d visible, want 3", len(m.visible))
	}
}

func TestModel_SearchNoMatch(t *testing.T) {
	m, _, _ := newTestModel(t, nil, "NAS")

	m, _ = update(t, m, runes("/"))
	m, _ = update(t, m, runes("z"))

	if !strings.Contains(m.View(), "No devices match") {
		t.Error("View() missing no-match message")
	}
	if _, ok := m.selected(); ok {
		t.Error("selected() ok with empty result")
	}
	// Wake does nothing without a selection
	m, _ = update(t, m, enterKey)
	if _, cmd := update(t, m, enterKey); cmd != nil {
		t.Error("wake command issued without selection")
	}
}

func TestModel_About(t *testing.T) {
	m, _, _ := newTestModel(t, nil)

	m, _ = update(t, m, runes("?"))
	if !strings.Contains(m.View(), "WakeOnLan 1.2.3") {
		t.Errorf("About view missing version:\n%s", m.View())
	}
	m, _ = update(t, m, runes("x"))
	if m.mode != modeList {
		t.Errorf("mode = %v, want list", m.mode)
	}
}

func TestModel_AboutShowsWakeRate(t *testing.T) {
	m, _, _ := newTestModel(t, errors.New("network is unreachable"), "NAS")

	m, cmd := update(t, m, enterKey)
	m = run(t, m, cmd)

	m, _ = update(t, m, runes("?"))
	if !strings.Contains(m.View(), "last minute: 1 (100% failed)") {
		t.Errorf("About view missing wake rate:\n%s", m.View())
	}
}

func TestModel_RemoveClearsWakeHistory(t *testing.T) {
	m, svc, tracker := newTestModel(t, nil, "NAS")
	id := svc.List()[0].ID

	m, cmd := update(t, m, enterKey)
	m = run(t, m, cmd)
	if _, ok := tracker.Stats(id); !ok {
		t.Fatal("no history recorded for wake")
	}

	m, _ = update(t, m, runes("d"))
	_, cmd = update(t, m, runes("y"))
	run(t, m, cmd)

	if _, ok := tracker.Stats(id); ok {
		t.Error("history kept after device was removed")
	}
	if got := tracker.RecentAttempts(); got != 0 {
		t.Errorf("RecentAttempts() = %d, want 0", got)
	}
}

func TestModel_Quit(t *testing.T) {
	m, _, _ := newTestModel(t, nil)

	_, cmd := update(t, m, runes("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 20); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("a very long device name", 10); got != "a very lo…" {
		t.Errorf("truncate(long) = %q, want %q", got, "a very lo…")
	}
}
