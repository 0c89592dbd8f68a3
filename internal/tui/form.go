package tui

import (
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"wakeonlan/internal/device"
)

// Form field indexes
const (
	fieldName = iota
	fieldMAC
	fieldIP
	fieldSubnet
	fieldPort
	fieldCount
)

var fieldLabels = [fieldCount]string{"Name", "Mac Address", "IP Address", "Subnet Mask", "Port"}

const portHint = "Enter the Wake-on-LAN port. 9 is usually supported by Ethernet cards, otherwise you can try 7 or 0."

// form edits the fields of a new or existing device
type form struct {
	inputs     [fieldCount]textinput.Model
	focus      int
	editingID  string // empty when adding
	alertTitle string
	alertText  string
}

func newForm(defaultPort int) form {
	var f form
	placeholders := [fieldCount]string{"Desktop", "00:11:22:33:44:55", "192.168.1.10", "255.255.255.0", "9"}
	limits := [fieldCount]int{64, 17, 15, 15, 5}
	for i := range f.inputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = limits[i]
		in.Prompt = ""
		f.inputs[i] = in
	}
	f.inputs[fieldPort].SetValue(strconv.Itoa(defaultPort))
	f.inputs[fieldName].Focus()
	return f
}

// editForm returns a form pre-filled with d
func editForm(d device.Device) form {
	f := newForm(int(d.Port))
	fields := device.FieldsOf(d)
	f.inputs[fieldName].SetValue(fields.Name)
	f.inputs[fieldMAC].SetValue(fields.MAC)
	f.inputs[fieldIP].SetValue(fields.IP)
	f.inputs[fieldSubnet].SetValue(fields.Subnet)
	f.inputs[fieldPort].SetValue(fields.Port)
	f.editingID = d.ID
	return f
}

func (f form) title() string {
	if f.editingID != "" {
		return "Edit Device"
	}
	return "Add Device"
}

func (f form) fields() device.Fields {
	return device.Fields{
		Name:   strings.TrimSpace(f.inputs[fieldName].Value()),
		MAC:    strings.TrimSpace(f.inputs[fieldMAC].Value()),
		IP:     strings.TrimSpace(f.inputs[fieldIP].Value()),
		Subnet: strings.TrimSpace(f.inputs[fieldSubnet].Value()),
		Port:   strings.TrimSpace(f.inputs[fieldPort].Value()),
	}
}

func (f *form) setFocus(i int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (i + fieldCount) % fieldCount
	return f.inputs[f.focus].Focus()
}

func (f *form) setAlert(err error) {
	f.alertTitle, f.alertText = alertFor(err)
}

func (f *form) clearAlert() {
	f.alertTitle, f.alertText = "", ""
}

func (f form) update(msg tea.Msg) (form, tea.Cmd) {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

// alertFor maps a save error to an alert title and message
func alertFor(err error) (string, string) {
	switch device.Kind(err) {
	case device.InvalidName:
		return "Invalid Name", "Name cannot be empty."
	case device.InvalidMAC:
		return "Invalid MAC Address", "Please enter a valid MAC address in the format XX:XX:XX:XX:XX:XX."
	case device.InvalidIP:
		return "Invalid IP Address", "Please enter a valid IP address."
	case device.InvalidSubnet:
		return "Invalid Subnet", "Please enter a valid subnet mask."
	case device.InvalidPort:
		return "Invalid Port", "Please enter a valid port number between 0 and 65535."
	}
	if errors.Is(err, device.ErrDeviceNotFound) {
		return "Device Removed", "This device no longer exists."
	}
	return "Save Failed", err.Error()
}
