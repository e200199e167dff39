package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"bm-camera-control/internal/camera"
)

// Style definitions
var (
	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("250")).
			Padding(0, 1)

	slotStyle = lipgloss.NewStyle().
			Padding(0, 1)

	currentSlotStyle = slotStyle.
				Background(lipgloss.Color("62")).
				Foreground(lipgloss.Color("0"))

	connectedSlotStyle = slotStyle.
				Foreground(lipgloss.Color("42"))

	labelStyle = lipgloss.NewStyle().
			Width(14).
			Foreground(lipgloss.Color("245"))

	focusedLabelStyle = labelStyle.
				Foreground(lipgloss.Color("212")).
				Bold(true)

	editingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// View renders the UI
func (m Model) View() string {
	timeStr := m.currentTime.Format("Mon Jan 2 15:04:05 2006")

	title := "Camera Control"
	header := headerStyle.Width(m.width).Render(lipgloss.JoinHorizontal(
		lipgloss.Center,
		title,
		lipgloss.NewStyle().
			Width(max(m.width-len(title)-4, 0)).
			Align(lipgloss.Right).
			Render(timeStr),
	))

	statusBar := statusBarStyle.Width(m.width).Render(
		fmt.Sprintf("Status: %s | HTTPS: %s", m.status, onOff(m.secure)),
	)

	help := helpStyle.Render("alt+1-8 camera · tab field · enter apply · esc revert · ctrl+a connect all · ctrl+t https\n" +
		"ctrl+y copy preset · ctrl+v paste preset · ctrl+e save preset · ctrl+r refresh · ctrl+c quit")

	return strings.Join([]string{
		header,
		m.renderSlots(),
		"",
		m.renderFields(),
		"",
		m.logViewport.View(),
		help,
		statusBar,
	}, "\n")
}

func (m Model) renderSlots() string {
	var rendered []string
	for _, s := range m.view.Slots {
		label := fmt.Sprintf("%d", s.Index+1)
		if s.Hostname != "" {
			label += " " + s.Hostname
		}

		style := slotStyle
		switch {
		case s.Index == m.view.Current:
			style = currentSlotStyle
		case s.Connected:
			style = connectedSlotStyle
		}
		rendered = append(rendered, style.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderFields() string {
	var rows []string
	for i, f := range m.fields {
		label := labelStyle
		if i == m.focused {
			label = focusedLabelStyle
		}

		value := m.inputs[i].View()
		if m.view.Locked[f] {
			value = editingStyle.Render(value + "  (editing)")
		}
		rows = append(rows, label.Render(fieldLabel(f))+value)
	}
	return strings.Join(rows, "\n")
}

func fieldLabel(f camera.Field) string {
	switch f {
	case camera.FieldWhiteBalance:
		return "White Balance"
	case camera.FieldNDFilter:
		return "ND Filter"
	}
	return f.String()
}
