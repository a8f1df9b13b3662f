package stopmotion

import (
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teranos/stopmotion/camera"
)

const (
	defaultWidth  = 80
	defaultHeight = 24

	// status bar, message and help lines
	chromeLines = 3

	renderCacheSize = 64
)

// playTickMsg advances playback. Ticks from an older chain carry a stale
// generation and are dropped.
type playTickMsg struct {
	gen int
}

// Model is the BubbleTea model of the capture station. It translates key
// presses into session operations and renders the frame area, status bar,
// message line and key help.
type Model struct {
	session *Session
	keys    KeyMap
	help    help.Model
	frames  *FrameRenderer
	log     *slog.Logger

	width  int
	height int

	// playback tick chain
	gen     int
	ticking bool

	quitting bool
}

// NewModel creates the model over an open session.
func NewModel(session *Session, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{
		session: session,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		frames:  NewFrameRenderer(renderCacheSize),
		log:     logger,
		width:   defaultWidth,
		height:  defaultHeight,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.schedule()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case playTickMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.ticking = false
		m.session.Tick()
		return m, m.schedule()

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	s := m.session
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.log.Info("model: quit requested", "key", msg.String())
		return tea.Quit

	case key.Matches(msg, m.keys.Prev):
		s.Navigate(-1)
	case key.Matches(msg, m.keys.Next):
		s.Navigate(+1)
	case key.Matches(msg, m.keys.Faster):
		s.AdjustRate(+1)
		return m.restart()
	case key.Matches(msg, m.keys.Slower):
		s.AdjustRate(-1)
		return m.restart()
	case key.Matches(msg, m.keys.Play):
		s.TogglePlayback()
		return m.restart()
	case key.Matches(msg, m.keys.Capture):
		s.Capture()
	case key.Matches(msg, m.keys.Live):
		s.ResumeLive()
	case key.Matches(msg, m.keys.Delete):
		s.Delete()
	case key.Matches(msg, m.keys.Undo):
		s.Undo()
	case key.Matches(msg, m.keys.Export):
		s.Export()
	case key.Matches(msg, m.keys.Reset):
		s.Reset()
		m.frames.Forget()
	case key.Matches(msg, m.keys.Reload):
		s.Reload()
		m.frames.Forget()
	case key.Matches(msg, m.keys.Overlay):
		s.ToggleOverlay()
	}
	return m.schedule()
}

// schedule starts a playback tick chain when playback is on and none is
// running. A rate of zero never advances.
func (m *Model) schedule() tea.Cmd {
	seq := m.session.Sequence()
	if !seq.Playing() || seq.Rate() <= 0 {
		if m.ticking {
			m.gen++
			m.ticking = false
		}
		return nil
	}
	if m.ticking {
		return nil
	}
	m.ticking = true
	gen := m.gen
	return tea.Tick(time.Second/time.Duration(seq.Rate()), func(time.Time) tea.Msg {
		return playTickMsg{gen: gen}
	})
}

// restart drops the running tick chain so a new rate takes effect at once.
func (m *Model) restart() tea.Cmd {
	m.gen++
	m.ticking = false
	return m.schedule()
}

// Ticking reports whether a playback tick is pending.
func (m *Model) Ticking() bool { return m.ticking }

// Session returns the session driven by the model.
func (m *Model) Session() *Session { return m.session }

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	frameH := m.height - chromeLines
	if frameH < 1 {
		frameH = 1
	}

	var b strings.Builder
	b.WriteString(m.frameArea(m.width, frameH))
	b.WriteString("\n")
	b.WriteString(StatusBar(m.session.Sequence(), m.width))
	b.WriteString("\n")
	b.WriteString(MessageLine(m.session.Message(), m.width))
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) frameArea(width, height int) string {
	seq := m.session.Sequence()

	if seq.Mode() == Live {
		if p, ok := m.session.Camera().(camera.Previewer); ok {
			if img, ok := p.PreviewFrame(); ok {
				return RenderImage(img, width, height)
			}
		}
		return placeholder(width, height, "● live preview on the camera display")
	}

	cur, ok := seq.Current()
	if !ok {
		return placeholder(width, height, NoFrames)
	}
	out, err := m.frames.Render(cur.Path, width, height)
	if err != nil {
		m.log.Warn("model: cannot show frame", "frame", cur.Name, "error", err)
		return placeholder(width, height, "cannot show "+cur.Name)
	}
	return out
}

func placeholder(width, height int, text string) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, text)
}

// CurrentMode returns the controller state name.
func (m *Model) CurrentMode() string {
	return m.session.Sequence().State().String()
}

// CheckCondition evaluates a named condition on the session state.
func (m *Model) CheckCondition(condition string) bool {
	seq := m.session.Sequence()
	switch condition {
	case "empty":
		return seq.Empty()
	case "has_frames":
		return !seq.Empty()
	case "live":
		return seq.Mode() == Live
	case "review":
		return seq.Mode() == Review
	case "playing":
		return seq.Playing()
	case "overlay":
		return seq.Overlay()
	case "can_undo":
		return seq.CanUndo()
	case "ticking":
		return m.ticking
	default:
		return false
	}
}
