package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"bm-camera-control/internal/camera"
	"bm-camera-control/internal/preset"
)

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logViewport.Width = msg.Width

	case tickMsg:
		m.currentTime = time.Time(msg)
		cmds := []tea.Cmd{tickCmd(m.refresh)}
		if m.view.Slots[m.view.Current].Connected {
			cmds = append(cmds, m.run(func(ctx context.Context) (string, error) {
				return "", m.session.Refresh(ctx)
			}))
		}
		return m, tea.Batch(cmds...)

	case viewMsg:
		m.applyView(camera.View(msg))
		return m, m.projector.wait()

	case resultMsg:
		switch {
		case msg.err != nil:
			m.status = "Error: " + msg.err.Error()
			m.addLog(m.status)
		case msg.text != "":
			m.status = msg.text
			m.addLog(msg.text)
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if n, ok := slotKey(key); ok {
		return m, m.run(func(ctx context.Context) (string, error) {
			if err := m.session.SwitchCurrent(ctx, n); err != nil {
				return "", err
			}
			return fmt.Sprintf("Camera %d selected", n+1), nil
		})
	}

	switch key {
	case "ctrl+c":
		return m, tea.Quit

	case "tab", "down":
		m.focus(m.focused + 1)

	case "shift+tab", "up":
		m.focus(m.focused - 1)

	case "ctrl+a":
		secure := m.secure
		m.status = "Connecting camera1.local .. camera8.local ..."
		return m, m.run(func(ctx context.Context) (string, error) {
			return m.session.BulkConnect(ctx, secure).String(), nil
		})

	case "ctrl+t":
		m.secure = !m.secure
		m.status = fmt.Sprintf("HTTPS %s for the next connect", onOff(m.secure))

	case "ctrl+r":
		return m, m.run(func(ctx context.Context) (string, error) {
			if err := m.session.Refresh(ctx); err != nil {
				return "", err
			}
			return "Refreshed", nil
		})

	case "ctrl+y":
		return m, m.run(func(ctx context.Context) (string, error) {
			doc, err := m.presets.Copy(ctx)
			if err != nil {
				return "", err
			}
			return "Copied " + strings.Join(doc.Keys(), ", "), nil
		})

	case "ctrl+v":
		return m, m.run(func(ctx context.Context) (string, error) {
			if err := m.presets.Paste(ctx); err != nil {
				return "", err
			}
			return "Preset pasted", nil
		})

	case "ctrl+e":
		return m, m.exportPreset()

	case "enter":
		return m, m.commitFocused()

	case "esc":
		m.revertFocused()

	default:
		return m.editFocused(msg)
	}
	return m, nil
}

// slotKey maps alt+1 .. alt+8 to a slot index
func slotKey(key string) (int, bool) {
	if len(key) == len("alt+1") && strings.HasPrefix(key, "alt+") {
		n := int(key[4] - '1')
		if n >= 0 && n < camera.Slots {
			return n, true
		}
	}
	return 0, false
}

func (m *Model) focus(i int) {
	n := len(m.inputs)
	i = ((i % n) + n) % n
	m.inputs[m.focused].Blur()
	m.focused = i
	m.inputs[i].Focus()
}

func (m Model) editFocused(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.fields[m.focused]
	before := m.inputs[m.focused].Value()

	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)

	if v := m.inputs[m.focused].Value(); v != before {
		m.session.BeginEdit(f)
		m.display.Set(f, v)
	}
	return m, cmd
}

func (m Model) commitFocused() tea.Cmd {
	f := m.fields[m.focused]
	value := strings.TrimSpace(m.inputs[m.focused].Value())

	if f == camera.FieldHostname {
		secure := m.secure
		return m.run(func(ctx context.Context) (string, error) {
			// Connect clears the hostname lock itself, and only on success
			idx := m.session.Current()
			if err := m.session.Connect(ctx, idx, value, secure); err != nil {
				return "", err
			}
			return fmt.Sprintf("Camera %d connected to %s", idx+1, value), nil
		})
	}

	return m.run(func(ctx context.Context) (string, error) {
		if err := m.session.CommitValue(ctx, f, value); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s set to %s", f, value), nil
	})
}

// revertFocused abandons the edit and shows the cached value again
func (m *Model) revertFocused() {
	f := m.fields[m.focused]
	m.session.Release(f)

	v := m.view
	v.Locked = make(map[camera.Field]bool, len(m.view.Locked))
	for k, locked := range m.view.Locked {
		v.Locked[k] = locked && k != f
	}
	m.applyView(v)
}

func (m Model) exportPreset() tea.Cmd {
	dir := m.presetDir
	return m.run(func(ctx context.Context) (string, error) {
		name := fmt.Sprintf("camera%d-%s", m.session.Current()+1, time.Now().Format("20060102-150405"))
		path := filepath.Join(dir, preset.FileName(name))

		f, err := os.Create(path)
		if err != nil {
			return "", err
		}
		if err := m.presets.Export(ctx, f, name); err != nil {
			f.Close()
			os.Remove(path)
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		return "Preset saved to " + path, nil
	})
}

// applyView reconciles the inputs with a projected View. Fields the session
// currently has locked are treated as locked even if the View predates the
// edit.
func (m *Model) applyView(v camera.View) {
	locked := make(map[camera.Field]bool, len(m.fields))
	for _, f := range m.fields {
		locked[f] = v.Locked[f] || m.session.IsLocked(f)
	}
	v.Locked = locked
	m.view = v

	m.display.Apply(v)
	for i, f := range m.fields {
		if locked[f] {
			continue
		}
		if val := m.display.Value(f); m.inputs[i].Value() != val {
			m.inputs[i].SetValue(val)
		}
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
