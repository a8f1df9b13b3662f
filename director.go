package stopmotion

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"github.com/teranos/stopmotion/trip"
)

// Action records a single step performed by the director.
type Action struct {
	Timestamp time.Time
	Type      string // "keypress", "tick", "expect", "view", "shot"
	Details   string
	Result    string
}

// Snapshot captures the rendered view and state after a step.
type Snapshot struct {
	Timestamp time.Time
	View      string
	Mode      string
}

// ShotRecord describes a view shot written during a run.
type ShotRecord struct {
	Name     string
	Path     string
	Step     int
	Diff     float64 // Share of pixels differing from the baseline
	Baseline bool    // The shot became a new baseline
}

// Result contains everything a directed run produced.
type Result struct {
	Actions      []Action
	Snapshots    []Snapshot
	Shots        []ShotRecord
	Success      bool
	Quit         bool // The model asked to quit
	Started      time.Time
	Duration     time.Duration
	ErrorMessage string
	TripReport   string
	FinalView    string
}

// DirectorConfig configures a Director.
type DirectorConfig struct {
	Width        int    // Terminal width given to the model
	Height       int    // Terminal height given to the model
	CaptureViews bool    // Keep a snapshot after every step
	ShotsDir     string  // Where "shot" steps write PNGs; "" disables them
	BaselineDir  string  // Compare shots against baselines here; "" disables it
	Tolerance    float64 // Share of pixels a shot may differ from its baseline
}

// DefaultDirectorConfig returns an 80x24 terminal with snapshots on.
func DefaultDirectorConfig() DirectorConfig {
	return DirectorConfig{
		Width:        defaultWidth,
		Height:       defaultHeight,
		CaptureViews: true,
	}
}

// Director drives a Model without a terminal.
//
// Keys go straight into Update and playback ticks are delivered on request
// instead of by a timer, so a run is deterministic. Failed expectations are
// collected as trips and reported in the Result rather than stopping the run.
//
//	result := NewDirector(model, DefaultDirectorConfig()).
//		Start().
//		Press("enter").
//		Expect("live").
//		Press("space").
//		Tick(3).
//		Stop()
type Director struct {
	model   *Model
	config  DirectorConfig
	shot    ViewShot
	checker *ShotChecker
	log     *slog.Logger
	handler *trip.Handler

	actions   []Action
	snapshots []Snapshot
	shots     []ShotRecord
	started   time.Time
	quit      bool
}

// NewDirector creates a director for model.
func NewDirector(model *Model, config DirectorConfig) *Director {
	if config.Width <= 0 {
		config.Width = defaultWidth
	}
	if config.Height <= 0 {
		config.Height = defaultHeight
	}
	shot := DefaultViewShot()
	shot.Width, shot.Height = config.Width, config.Height

	d := &Director{
		model:   model,
		config:  config,
		shot:    shot,
		log:     model.log,
		handler: trip.NewHandler("director", nil),
	}
	if config.BaselineDir != "" {
		d.checker = NewShotChecker(config.BaselineDir, config.Tolerance)
	}
	return d
}

// Start sizes the model and takes the first snapshot.
func (d *Director) Start() *Director {
	d.started = time.Now()
	d.model.Init()
	d.model.Update(tea.WindowSizeMsg{Width: d.config.Width, Height: d.config.Height})
	d.snapshot()
	return d
}

// Press sends the named key, e.g. "enter", "left", "space", "ctrl+z" or "o".
func (d *Director) Press(name string) *Director {
	if d.quit {
		d.fail("press", fmt.Sprintf("key %q after quit", name))
		return d
	}
	msg, err := KeyMsg(name)
	if err != nil {
		d.fail("press", err.Error())
		return d
	}

	d.model.Update(msg)
	if d.model.quitting {
		d.quit = true
	}
	d.record("keypress", name, d.model.CurrentMode())
	d.snapshot()
	return d
}

// Tick delivers n playback ticks. A tick with no pending timer, because
// playback is off or the rate is zero, is recorded as ignored.
func (d *Director) Tick(n int) *Director {
	for i := 0; i < n; i++ {
		if !d.model.Ticking() {
			d.record("tick", "", "ignored")
			continue
		}
		d.model.Update(playTickMsg{gen: d.model.gen})
		d.record("tick", "", fmt.Sprintf("cursor %d", d.model.Session().Sequence().Cursor()))
	}
	d.snapshot()
	return d
}

// Expect checks the controller state ("empty", "live", "reviewing",
// "playing") or a named condition such as "overlay" or "can_undo". A leading
// "!" negates a condition.
func (d *Director) Expect(what string) *Director {
	ok := d.model.CurrentMode() == what
	if !ok {
		if cond, negated := strings.CutPrefix(what, "!"); negated {
			ok = !d.model.CheckCondition(cond)
		} else {
			ok = d.model.CheckCondition(what)
		}
	}
	if !ok {
		d.fail("expect", fmt.Sprintf("expected %q, state is %q", what, d.model.CurrentMode()))
		return d
	}
	d.record("expect", what, "ok")
	return d
}

// ExpectView checks that the rendered view contains text.
func (d *Director) ExpectView(text string) *Director {
	if !strings.Contains(d.model.View(), text) {
		d.fail("view", fmt.Sprintf("view does not contain %q", text))
		return d
	}
	d.record("view", text, "ok")
	return d
}

// Shot saves the current view as <ShotsDir>/<name>.png. With a baseline
// directory configured the shot is also compared against its baseline, and
// becomes the baseline when there is none yet.
func (d *Director) Shot(name string) *Director {
	if d.config.ShotsDir == "" {
		d.record("shot", name, "disabled")
		return d
	}
	if err := os.MkdirAll(d.config.ShotsDir, 0755); err != nil {
		d.fail("shot", err.Error())
		return d
	}
	path := filepath.Join(d.config.ShotsDir, name+".png")
	if err := d.shot.Save(d.model.View(), path); err != nil {
		d.fail("shot", err.Error())
		return d
	}

	rec := ShotRecord{Name: name, Path: path, Step: len(d.actions) + 1}
	if d.checker != nil {
		diff, created, err := d.checker.Check(name, path)
		rec.Diff, rec.Baseline = diff, created
		if err != nil {
			d.shots = append(d.shots, rec)
			d.fail("shot", err.Error())
			return d
		}
	}
	d.shots = append(d.shots, rec)

	result := path
	if rec.Baseline {
		result = "new baseline"
	}
	d.record("shot", name, result)
	return d
}

// Run performs every step of a script in order.
func (d *Director) Run(script *Script) *Director {
	for i, step := range script.Steps {
		if err := step.Validate(); err != nil {
			d.fail("script", fmt.Sprintf("step %d: %v", i+1, err))
			continue
		}
		repeat := step.Repeat
		if repeat < 1 {
			repeat = 1
		}
		for r := 0; r < repeat; r++ {
			switch {
			case step.Press != "":
				d.Press(step.Press)
			case step.Tick > 0:
				d.Tick(step.Tick)
			case step.Expect != "":
				d.Expect(step.Expect)
			case step.View != "":
				d.ExpectView(step.View)
			case step.Shot != "":
				d.Shot(step.Shot)
			}
		}
	}
	return d
}

// Stop ends the run and returns its results.
func (d *Director) Stop() *Result {
	result := &Result{
		Actions:    d.actions,
		Snapshots:  d.snapshots,
		Shots:      d.shots,
		Success:    !d.handler.HasTrips(),
		Quit:       d.quit,
		Started:    d.started,
		Duration:   time.Since(d.started),
		TripReport: d.handler.DetailedReport(),
		FinalView:  d.model.View(),
	}
	if last := d.handler.Last(); last != nil && !result.Success {
		result.ErrorMessage = last.Message
	}
	d.log.Info("director: run finished",
		"actions", len(d.actions),
		"success", result.Success,
		"summary", d.handler.Summary(),
	)
	return result
}

func (d *Director) record(kind, details, result string) {
	d.actions = append(d.actions, Action{
		Timestamp: time.Now(),
		Type:      kind,
		Details:   details,
		Result:    result,
	})
}

func (d *Director) snapshot() {
	if !d.config.CaptureViews {
		return
	}
	d.snapshots = append(d.snapshots, Snapshot{
		Timestamp: time.Now(),
		View:      d.model.View(),
		Mode:      d.model.CurrentMode(),
	})
}

func (d *Director) fail(op, message string) {
	t := trip.StateError(op, message)
	t.Context["step"] = len(d.actions) + 1
	d.handler.Record(t)
	d.record(op, message, "failed")
	d.log.Warn("director: step failed", "op", op, "message", message)
}

var namedKeys = map[string]tea.KeyType{
	"left":      tea.KeyLeft,
	"right":     tea.KeyRight,
	"up":        tea.KeyUp,
	"down":      tea.KeyDown,
	"space":     tea.KeySpace,
	" ":         tea.KeySpace,
	"enter":     tea.KeyEnter,
	"f12":       tea.KeyF12,
	"backspace": tea.KeyBackspace,
	"esc":       tea.KeyEsc,
	"ctrl+c":    tea.KeyCtrlC,
	"ctrl+e":    tea.KeyCtrlE,
	"ctrl+l":    tea.KeyCtrlL,
	"ctrl+q":    tea.KeyCtrlQ,
	"ctrl+r":    tea.KeyCtrlR,
	"ctrl+z":    tea.KeyCtrlZ,
}

// KeyMsg converts a key name into the message BubbleTea would deliver.
func KeyMsg(name string) (tea.KeyMsg, error) {
	if t, ok := namedKeys[strings.ToLower(name)]; ok {
		msg := tea.KeyMsg{Type: t}
		if t == tea.KeySpace {
			msg.Runes = []rune{' '}
		}
		return msg, nil
	}
	if r := []rune(name); len(r) == 1 {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: r}, nil
	}
	return tea.KeyMsg{}, fmt.Errorf("unknown key %q", name)
}

// Script is a recorded sequence of director steps.
type Script struct {
	Name  string `yaml:"name,omitempty"`
	Steps []Step `yaml:"steps"`
}

// Step is one script entry. Exactly one of Press, Tick, Expect, View or Shot
// is set.
type Step struct {
	Press  string `yaml:"press,omitempty"`  // Key name
	Tick   int    `yaml:"tick,omitempty"`   // Playback ticks to deliver
	Expect string `yaml:"expect,omitempty"` // State or condition
	View   string `yaml:"view,omitempty"`   // Text the view must contain
	Shot   string `yaml:"shot,omitempty"`   // View shot name
	Repeat int    `yaml:"repeat,omitempty"` // Times to perform the step
}

// Validate checks that the step does exactly one thing.
func (s Step) Validate() error {
	set := 0
	for _, ok := range []bool{s.Press != "", s.Tick > 0, s.Expect != "", s.View != "", s.Shot != ""} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return errors.New("step must set exactly one of press, tick, expect, view, shot")
	}
	if s.Press != "" {
		if _, err := KeyMsg(s.Press); err != nil {
			return err
		}
	}
	return nil
}

// ParseScript decodes a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	var errs []error
	for i, step := range script.Steps {
		if err := step.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("step %d: %w", i+1, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &script, nil
}

// ReadScript reads a script from a YAML file.
func ReadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

// WriteScript writes a script to a YAML file.
func WriteScript(script *Script, path string) error {
	data, err := yaml.Marshal(script)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
