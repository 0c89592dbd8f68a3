package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wakeonlan/internal/device"
	"wakeonlan/internal/history"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	cyanColor = lipgloss.Color("#00FFFF")
	grayColor = lipgloss.Color("#666666")

	whiteColor = lipgloss.Color("#FFFFFF")
	greenColor = lipgloss.Color("#66FF66")
	redColor   = lipgloss.Color("#FF6666")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(whiteColor).
			Background(lipgloss.Color("#1a1a2e")).
			Padding(0, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(cyanColor)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(cyanColor)

	rowStyle = lipgloss.NewStyle().
			Foreground(whiteColor)

	okStyle  = lipgloss.NewStyle().Foreground(greenColor)
	errStyle = lipgloss.NewStyle().Foreground(redColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cyanColor).
			Padding(0, 1)

	alertStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(redColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(grayColor)
)

// KeyMap defines keybindings
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Wake    key.Binding
	Add     key.Binding
	Edit    key.Binding
	Remove  key.Binding
	Search  key.Binding
	About   key.Binding
	Confirm key.Binding
	Cancel  key.Binding
	Next    key.Binding
	Prev    key.Binding
	Save    key.Binding
	Quit    key.Binding
}

var keys = KeyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k")),
	Down:    key.NewBinding(key.WithKeys("down", "j")),
	Wake:    key.NewBinding(key.WithKeys("enter", "w")),
	Add:     key.NewBinding(key.WithKeys("a")),
	Edit:    key.NewBinding(key.WithKeys("e")),
	Remove:  key.NewBinding(key.WithKeys("d", "delete")),
	Search:  key.NewBinding(key.WithKeys("/")),
	About:   key.NewBinding(key.WithKeys("?")),
	Confirm: key.NewBinding(key.WithKeys("y", "enter")),
	Cancel:  key.NewBinding(key.WithKeys("esc", "n")),
	Next:    key.NewBinding(key.WithKeys("tab", "down", "enter")),
	Prev:    key.NewBinding(key.WithKeys("shift+tab", "up")),
	Save:    key.NewBinding(key.WithKeys("ctrl+s")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

// Service is the device registry the UI drives
type Service interface {
	AddOrUpdate(ctx context.Context, f device.Fields, existingID string) (device.Device, error)
	Remove(ctx context.Context, id string) error
	Wake(id string) <-chan error
	List() []device.Device
	Get(id string) (device.Device, bool)
}

type mode int

const (
	modeList mode = iota
	modeSearch
	modeForm
	modeConfirmRemove
	modeAbout
)

// Model is the main TUI model
type Model struct {
	service     Service
	history     *history.Tracker
	version     string
	defaultPort int

	devices  []device.Device
	visible  []device.Device
	cursor   int
	search   textinput.Model
	form     form
	removeID string
	mode     mode

	status    string
	statusErr bool
	width     int
	height    int
}

// NewModel creates a new TUI model. tracker may be nil.
func NewModel(svc Service, tracker *history.Tracker, version string, defaultPort int) Model {
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "Search name, IP or MAC"
	search.CharLimit = 64

	m := Model{
		service:     svc,
		history:     tracker,
		version:     version,
		defaultPort: defaultPort,
		search:      search,
	}
	m.setDevices(svc.List())
	return m
}

// DevicesMsg carries the device list after a store change
type DevicesMsg []device.Device

// Notifier returns a store subscriber that forwards changes to p.
// Sends are asynchronous so that mutations issued from commands never
// wait on the event loop.
func Notifier(p *tea.Program) func([]device.Device) {
	return func(devices []device.Device) {
		go p.Send(DevicesMsg(devices))
	}
}

// TickMsg is a message for periodic updates
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

type wakeResultMsg struct {
	name string
	err  error
}

type savedMsg struct {
	device device.Device
	err    error
}

type removedMsg struct {
	name string
	err  error
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		// Redraw wake history timestamps
		return m, tickCmd()

	case DevicesMsg:
		m.setDevices(msg)
		if m.mode == modeForm && m.form.editingID != "" {
			if _, ok := m.service.Get(m.form.editingID); !ok {
				m.mode = modeList
				m.setStatus("The device being edited was removed", true)
			}
		}
		return m, nil

	case wakeResultMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Failed to wake %s: %v", msg.name, msg.err), true)
		} else {
			m.setStatus(fmt.Sprintf("Magic packet sent to %s", msg.name), false)
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.form.setAlert(msg.err)
			return m, nil
		}
		m.mode = modeList
		m.setDevices(m.service.List())
		m.selectID(msg.device.ID)
		m.setStatus(fmt.Sprintf("Saved %s", msg.device.Name), false)
		return m, nil

	case removedMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Failed to remove %s: %v", msg.name, msg.err), true)
		} else {
			m.setStatus(fmt.Sprintf("Removed %s", msg.name), false)
		}
		m.setDevices(m.service.List())
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeForm:
			return m.updateForm(msg)
		case modeConfirmRemove:
			return m.updateConfirm(msg)
		case modeAbout:
			m.mode = modeList
			return m, nil
		default:
			return m.updateList(msg)
		}
	}

	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Search):
		m.mode = modeSearch
		cmd := m.search.Focus()
		return m, cmd
	case key.Matches(msg, keys.Cancel):
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.applyFilter()
		}
	case key.Matches(msg, keys.About):
		m.mode = modeAbout
	case key.Matches(msg, keys.Add):
		m.form = newForm(m.defaultPort)
		m.mode = modeForm
	case key.Matches(msg, keys.Edit):
		if d, ok := m.selected(); ok {
			m.form = editForm(d)
			m.mode = modeForm
		}
	case key.Matches(msg, keys.Remove):
		if d, ok := m.selected(); ok {
			m.removeID = d.ID
			m.mode = modeConfirmRemove
		}
	case key.Matches(msg, keys.Wake):
		if d, ok := m.selected(); ok {
			m.setStatus(fmt.Sprintf("Waking %s...", d.Name), false)
			return m, wakeCmd(m.service, d)
		}
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.search.Blur()
		m.mode = modeList
		return m, nil
	case "esc":
		m.search.Blur()
		m.search.SetValue("")
		m.applyFilter()
		m.mode = modeList
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form.alertText != "" {
		// Any key dismisses the alert
		m.form.clearAlert()
		return m, nil
	}

	switch {
	case msg.String() == "esc":
		m.mode = modeList
		return m, nil
	case key.Matches(msg, keys.Save),
		msg.String() == "enter" && m.form.focus == fieldPort:
		return m.submitForm()
	case key.Matches(msg, keys.Next):
		cmd := m.form.setFocus(m.form.focus + 1)
		return m, cmd
	case key.Matches(msg, keys.Prev):
		cmd := m.form.setFocus(m.form.focus - 1)
		return m, cmd
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	fields := m.form.fields()
	if err := device.Validate(fields); err != nil {
		m.form.setAlert(err)
		return m, nil
	}
	return m, saveCmd(m.service, fields, m.form.editingID)
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Confirm):
		m.mode = modeList
		d, ok := m.service.Get(m.removeID)
		if !ok {
			return m, nil
		}
		return m, removeCmd(m.service, d)
	case key.Matches(msg, keys.Cancel):
		m.mode = modeList
	}
	return m, nil
}

func wakeCmd(svc Service, d device.Device) tea.Cmd {
	return func() tea.Msg {
		return wakeResultMsg{name: d.Name, err: <-svc.Wake(d.ID)}
	}
}

func saveCmd(svc Service, f device.Fields, existingID string) tea.Cmd {
	return func() tea.Msg {
		d, err := svc.AddOrUpdate(context.Background(), f, existingID)
		return savedMsg{device: d, err: err}
	}
}

func removeCmd(svc Service, d device.Device) tea.Cmd {
	return func() tea.Msg {
		return removedMsg{name: d.Name, err: svc.Remove(context.Background(), d.ID)}
	}
}

func (m *Model) setDevices(devices []device.Device) {
	m.devices = devices
	m.applyFilter()
}

func (m *Model) applyFilter() {
	var current string
	if d, ok := m.selected(); ok {
		current = d.ID
	}
	m.visible = device.Filter(m.devices, m.search.Value())
	m.selectID(current)
}

func (m *Model) selectID(id string) {
	for i, d := range m.visible {
		if d.ID == id {
			m.cursor = i
			return
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = max(0, len(m.visible)-1)
	}
}

func (m Model) selected() (device.Device, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return device.Device{}, false
	}
	return m.visible[m.cursor], true
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("WakeOnLan") + "\n\n")

	switch m.mode {
	case modeAbout:
		b.WriteString(m.renderAbout())
		b.WriteString("\n" + helpStyle.Render("any key: close"))
		return b.String()
	case modeForm:
		b.WriteString(m.renderForm())
		b.WriteString("\n" + helpStyle.Render("tab/↑↓: move | ctrl+s: save | esc: cancel"))
		return b.String()
	}

	if m.mode == modeSearch || m.search.Value() != "" {
		b.WriteString(m.search.View() + "\n\n")
	}

	b.WriteString(m.renderDevices() + "\n")

	if m.mode == modeConfirmRemove {
		if d, ok := m.service.Get(m.removeID); ok {
			b.WriteString("\n" + alertStyle.Render(
				fmt.Sprintf("Remove Device\nAre you sure you want to remove %s? (y/n)", d.Name)) + "\n")
		}
	}

	if m.status != "" {
		style := okStyle
		if m.statusErr {
			style = errStyle
		}
		b.WriteString("\n" + style.Render(m.status) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("enter: wake | a: add | e: edit | d: remove | /: search | ?: about | q: quit"))
	return b.String()
}

func (m Model) renderDevices() string {
	if len(m.devices) == 0 {
		return helpStyle.Render("No devices yet. Press a to add one.")
	}
	if len(m.visible) == 0 {
		return helpStyle.Render(fmt.Sprintf("No devices match %q.", m.search.Value()))
	}

	lines := []string{headerStyle.Render(fmt.Sprintf("  %-20s %-15s %-17s %5s  %s", "NAME", "IP", "MAC", "PORT", "LAST WAKE"))}
	for i, d := range m.visible {
		line := fmt.Sprintf("%-20s %-15s %-17s %5d  ", truncate(d.Name, 20), d.IP, d.MAC, d.Port)
		if i == m.cursor {
			line = selectedStyle.Render("> "+line) + m.renderLastWake(d.ID)
		} else {
			line = rowStyle.Render("  "+line) + m.renderLastWake(d.ID)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLastWake(id string) string {
	if m.history == nil {
		return ""
	}
	stats, ok := m.history.Stats(id)
	if !ok {
		return helpStyle.Render("-")
	}
	at := stats.LastAttempt.Format("15:04:05")
	if stats.LastError != "" {
		return errStyle.Render("failed " + at)
	}
	return okStyle.Render("sent " + at)
}

func (m Model) renderForm() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(m.form.title()) + "\n\n")
	for i, in := range m.form.inputs {
		label := fieldLabels[i]
		if i == m.form.focus {
			label = selectedStyle.Render("> " + label)
		} else {
			label = rowStyle.Render("  " + label)
		}
		b.WriteString(label + "\n    " + in.View() + "\n")
	}
	b.WriteString("\n" + helpStyle.Render(portHint) + "\n")

	if m.form.alertText != "" {
		b.WriteString("\n" + alertStyle.Render(m.form.alertTitle+"\n"+m.form.alertText) + "\n")
	}
	return boxStyle.Render(b.String())
}

func (m Model) renderAbout() string {
	text := fmt.Sprintf("WakeOnLan %s\n\nWake devices on your local network with magic packets.", m.version)
	if m.history != nil {
		text += fmt.Sprintf("\n\nWake attempts in the last minute: %d (%.0f%% failed)",
			m.history.RecentAttempts(), m.history.RecentFailurePercentage())
	}
	return boxStyle.Render(text) + "\n"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

