package stopmotion

import (
	"github.com/teranos/stopmotion/trip"
)

// Frame identifies one animation frame: a working still and its archive
// counterpart with the same basename. Its position is its index in the
// Sequence.
type Frame struct {
	Name        string // Basename shared by both stills
	Path        string // Working (low resolution) still
	ArchivePath string // Full resolution still
}

// DisplayMode selects what the frame area shows.
type DisplayMode int

const (
	// Live shows the camera feed, optionally with the last frame overlaid.
	Live DisplayMode = iota
	// Review shows the frame at the cursor.
	Review
)

func (m DisplayMode) String() string {
	if m == Review {
		return "review"
	}
	return "live"
}

// State is the controller state derived from mode, playback and content.
type State int

const (
	StateEmpty State = iota
	StateLive
	StateReviewing
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLive:
		return "live"
	case StateReviewing:
		return "reviewing"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// PreviewEffect is what a transition asks of the camera preview. Every
// operation yields exactly one.
type PreviewEffect int

const (
	PreviewNone PreviewEffect = iota
	PreviewStart
	PreviewStop
)

func (e PreviewEffect) String() string {
	switch e {
	case PreviewStart:
		return "start"
	case PreviewStop:
		return "stop"
	default:
		return "none"
	}
}

// Rejections returned by guarded operations. The sequence is left unchanged.
var (
	ErrNoFrames      = trip.StateError("sequence", "no frames").WithSeverity(trip.Stumble)
	ErrNothingToUndo = trip.StateError("undo", "nothing to undo").WithSeverity(trip.Stumble)
	ErrNotLive       = trip.StateError("overlay", "overlay only toggles in live mode").WithSeverity(trip.Stumble)
)

type undoSlot struct {
	pos   int
	frame Frame
}

// Sequence is the frame-sequence state machine.
//
// It owns the ordered frame list, the cursor, the display mode, playback and
// overlay flags, the target frame rate and a single-level undo slot. It does
// no I/O: each operation returns the PreviewEffect the caller must apply to
// the camera.
type Sequence struct {
	frames  []Frame
	cursor  int
	mode    DisplayMode
	playing bool
	overlay bool
	rate    int
	undo    *undoSlot
}

// NewSequence starts in Live mode. With frames present the cursor sits on the
// last frame and the overlay is on.
func NewSequence(frames []Frame, rate int) *Sequence {
	if rate < 0 {
		rate = 0
	}
	s := &Sequence{
		frames: append([]Frame(nil), frames...),
		mode:   Live,
		rate:   rate,
	}
	if len(s.frames) > 0 {
		s.cursor = len(s.frames) - 1
		s.overlay = true
	}
	return s
}

// Len returns the number of frames.
func (s *Sequence) Len() int { return len(s.frames) }

// Empty reports whether the sequence has no frames.
func (s *Sequence) Empty() bool { return len(s.frames) == 0 }

// Cursor returns the selected position.
func (s *Sequence) Cursor() int { return s.cursor }

// Mode returns the display mode.
func (s *Sequence) Mode() DisplayMode { return s.mode }

// Playing reports whether playback is on.
func (s *Sequence) Playing() bool { return s.playing }

// Overlay reports whether the live preview shows the last frame on top.
func (s *Sequence) Overlay() bool { return s.overlay }

// Rate returns the target playback frame rate.
func (s *Sequence) Rate() int { return s.rate }

// CanUndo reports whether the undo slot holds a frame.
func (s *Sequence) CanUndo() bool { return s.undo != nil }

// Frames returns a copy of the frame list.
func (s *Sequence) Frames() []Frame {
	return append([]Frame(nil), s.frames...)
}

// Current returns the frame at the cursor.
func (s *Sequence) Current() (Frame, bool) {
	if s.Empty() {
		return Frame{}, false
	}
	return s.frames[s.cursor], true
}

// Last returns the most recent frame.
func (s *Sequence) Last() (Frame, bool) {
	if s.Empty() {
		return Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// State derives the controller state.
func (s *Sequence) State() State {
	switch {
	case s.Empty():
		return StateEmpty
	case s.mode == Live:
		return StateLive
	case s.playing:
		return StatePlaying
	default:
		return StateReviewing
	}
}

// toReview leaves Live mode, stopping the preview if it was running.
func (s *Sequence) toReview() PreviewEffect {
	if s.mode == Review {
		return PreviewNone
	}
	s.mode = Review
	return PreviewStop
}

// toLive enters Live mode and (re)starts the preview.
func (s *Sequence) toLive(overlay bool) PreviewEffect {
	s.mode = Live
	s.playing = false
	s.overlay = overlay
	return PreviewStart
}

func (s *Sequence) clamp() {
	if s.cursor > len(s.frames)-1 {
		s.cursor = len(s.frames) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// Capture appends f and moves the cursor onto it. Capturing into an empty
// sequence switches to Live with the overlay on, so the new frame becomes the
// alignment reference. The undo slot is kept.
func (s *Sequence) Capture(f Frame) PreviewEffect {
	wasEmpty := s.Empty()
	s.frames = append(s.frames, f)
	s.cursor = len(s.frames) - 1
	if wasEmpty {
		return s.toLive(true)
	}
	return PreviewNone
}

// Delete drops the frame at the cursor from the sequence and remembers it in
// the undo slot. The file on disk is left alone.
func (s *Sequence) Delete() (PreviewEffect, error) {
	if s.Empty() {
		return PreviewNone, ErrNoFrames
	}

	effect := s.toReview()
	removed := s.frames[s.cursor]
	s.undo = &undoSlot{pos: s.cursor, frame: removed}
	s.frames = append(s.frames[:s.cursor], s.frames[s.cursor+1:]...)
	s.clamp()

	if s.Empty() {
		s.cursor = 0
		// stop and immediate restart collapse to a single restart
		return s.toLive(false), nil
	}
	return effect, nil
}

// Undo puts the last deleted frame back at its old position. Cursor and
// display mode stay where they are.
func (s *Sequence) Undo() error {
	if s.undo == nil {
		return ErrNothingToUndo
	}

	pos := s.undo.pos
	if pos > len(s.frames) {
		pos = len(s.frames)
	}
	s.frames = append(s.frames, Frame{})
	copy(s.frames[pos+1:], s.frames[pos:])
	s.frames[pos] = s.undo.frame
	s.undo = nil
	s.clamp()
	return nil
}

// Navigate moves the cursor by delta without wrapping and leaves Live mode.
func (s *Sequence) Navigate(delta int) (PreviewEffect, error) {
	if s.Empty() {
		return PreviewNone, ErrNoFrames
	}

	effect := s.toReview()
	s.cursor += delta
	s.clamp()
	return effect, nil
}

// TogglePlayback starts or stops playback. Starting leaves Live mode.
func (s *Sequence) TogglePlayback() (PreviewEffect, error) {
	if s.Empty() {
		return PreviewNone, ErrNoFrames
	}

	if s.playing {
		s.playing = false
		return PreviewNone, nil
	}
	s.playing = true
	return s.toReview(), nil
}

// Tick advances the cursor by one frame during playback, wrapping from the
// last frame to the first. It reports whether the cursor moved.
func (s *Sequence) Tick() bool {
	if !s.playing || s.mode != Review || s.Empty() {
		return false
	}
	if s.cursor >= len(s.frames)-1 {
		s.cursor = 0
	} else {
		s.cursor++
	}
	return true
}

// ToggleOverlay flips the overlay while the live preview is showing.
func (s *Sequence) ToggleOverlay() (PreviewEffect, error) {
	if s.mode != Live {
		return PreviewNone, ErrNotLive
	}
	s.overlay = !s.overlay
	return PreviewStart, nil
}

// ResumeLive returns to capture-ready state: Live, overlay on, playback off,
// cursor on the last frame.
func (s *Sequence) ResumeLive() PreviewEffect {
	s.cursor = len(s.frames) - 1
	s.clamp()
	return s.toLive(true)
}

// EnsureLive switches to Live without touching the cursor or overlay.
// Used after a failed capture.
func (s *Sequence) EnsureLive() PreviewEffect {
	if s.mode == Live {
		return PreviewNone
	}
	return s.toLive(s.overlay)
}

// AdjustRate changes the target frame rate, never below zero.
func (s *Sequence) AdjustRate(delta int) {
	s.rate += delta
	if s.rate < 0 {
		s.rate = 0
	}
}

// Reload replaces the frame list with frames re-read from disk and clears the
// undo slot. An empty result falls back to Live without overlay.
func (s *Sequence) Reload(frames []Frame) PreviewEffect {
	s.frames = append([]Frame(nil), frames...)
	s.undo = nil
	s.clamp()
	if s.Empty() {
		s.cursor = 0
		if s.mode != Live || s.overlay {
			return s.toLive(false)
		}
		s.playing = false
	}
	return PreviewNone
}

// Reset clears everything and returns to Live without overlay.
func (s *Sequence) Reset() PreviewEffect {
	s.frames = nil
	s.cursor = 0
	s.undo = nil
	return s.toLive(false)
}
