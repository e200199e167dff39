// Package tui is the terminal control panel: one row of inputs per camera
// field, kept in step with the polled camera values except while being edited.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"bm-camera-control/internal/camera"
	"bm-camera-control/internal/preset"
)

// Projector hands Views from the session to the bubbletea loop. Only the
// newest pending View matters; older ones are dropped.
type Projector struct {
	views chan camera.View
}

func NewProjector() *Projector {
	return &Projector{views: make(chan camera.View, 1)}
}

func (p *Projector) Project(v camera.View) {
	for {
		select {
		case p.views <- v:
			return
		default:
		}
		// a reset must not be lost behind a later plain view
		select {
		case old := <-p.views:
			v.Reset = v.Reset || old.Reset
		default:
		}
	}
}

func (p *Projector) wait() tea.Cmd {
	return func() tea.Msg {
		return viewMsg(<-p.views)
	}
}

// Msg types
type (
	tickMsg   time.Time
	viewMsg   camera.View
	resultMsg struct {
		text string
		err  error
	}
)

// Model holds the panel state
type Model struct {
	session   *camera.Session
	presets   *preset.Engine
	projector *Projector
	display   *camera.Display
	presetDir string

	fields  []camera.Field
	inputs  []textinput.Model
	focused int

	view        camera.View
	secure      bool
	refresh     time.Duration
	timeout     time.Duration
	width       int
	height      int
	status      string
	currentTime time.Time
	logViewport viewport.Model
	logs        []string
}

type Options struct {
	Session         *camera.Session
	Presets         *preset.Engine
	Projector       *Projector
	RefreshInterval time.Duration
	RequestTimeout  time.Duration
	// PresetDir is where exported preset files are written
	PresetDir string
}

// New returns a Model wired to the session. The projector must already be
// installed on the session.
func New(opts Options) Model {
	fields := camera.Fields()
	inputs := make([]textinput.Model, len(fields))
	for i, f := range fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 64
		ti.Width = 24
		ti.Placeholder = "n/a"
		if f == camera.FieldHostname {
			ti.Placeholder = "camera hostname"
		}
		inputs[i] = ti
	}
	inputs[0].Focus()

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dir := opts.PresetDir
	if dir == "" {
		dir = "."
	}

	return Model{
		session:     opts.Session,
		presets:     opts.Presets,
		projector:   opts.Projector,
		display:     camera.NewDisplay(),
		presetDir:   dir,
		fields:      fields,
		inputs:      inputs,
		refresh:     opts.RefreshInterval,
		timeout:     timeout,
		status:      "Ready",
		currentTime: time.Now(),
		logViewport: viewport.New(0, 6),
	}
}

// Init runs any initial IO
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.projector.wait(),
		m.run(func(ctx context.Context) (string, error) {
			res := m.session.ConnectRemembered(ctx)
			return fmt.Sprintf("Remembered cameras: %s", res), nil
		}),
		tickCmd(m.refresh),
	)
}

func (m *Model) addLog(text string) {
	m.logs = append(m.logs, fmt.Sprintf("%s %s", time.Now().Format("15:04:05"), text))
	if len(m.logs) > 200 {
		m.logs = m.logs[1:]
	}
	m.logViewport.SetContent(strings.Join(m.logs, "\n"))
	m.logViewport.GotoBottom()
}

// run executes op off the UI loop with a bounded context and reports back
// as a resultMsg
func (m Model) run(op func(ctx context.Context) (string, error)) tea.Cmd {
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		text, err := op(ctx)
		return resultMsg{text: text, err: err}
	}
}

func tickCmd(d time.Duration) tea.Cmd {
	if d <= 0 {
		return nil
	}
	return tea.Every(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
