package stopmotion

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/teranos/stopmotion/camera"
	"github.com/teranos/stopmotion/framestore"
	"github.com/teranos/stopmotion/trip"
)

// Session owns the state of one capture run: the frame store, the camera and
// the sequence. It turns every sequence transition into the matching camera
// preview change and keeps a message for the status bar.
//
// A Session is not safe for concurrent use; the event loop owns it.
type Session struct {
	cfg   Config
	store *framestore.Store
	cam   camera.Camera
	seq   *Sequence
	log   *slog.Logger
	trips *trip.Handler

	message string
}

// Open scans the working directory, builds the sequence and starts the
// preview.
func Open(cfg Config, store *framestore.Store, cam camera.Camera, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := store.EnsureDirs(); err != nil {
		return nil, err
	}

	frames, err := scan(store)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:   cfg,
		store: store,
		cam:   cam,
		seq:   NewSequence(frames, cfg.InitialFrameRate),
		log:   logger,
		trips: trip.NewHandler("session", nil),
	}
	s.log.Info("session: opened",
		"frames", s.seq.Len(),
		"working", store.WorkingDir(),
		"rate", s.seq.Rate(),
	)

	if err := s.apply(PreviewStart); err != nil {
		return s, err
	}
	return s, nil
}

func scan(store *framestore.Store) ([]Frame, error) {
	paths, err := store.Frames()
	if err != nil {
		return nil, err
	}
	frames := make([]Frame, len(paths))
	for i, p := range paths {
		frames[i] = Frame{
			Name:        filepath.Base(p),
			Path:        p,
			ArchivePath: store.ArchivePath(p),
		}
	}
	return frames, nil
}

// Sequence exposes the sequence for rendering. Callers must not mutate it.
func (s *Session) Sequence() *Sequence { return s.seq }

// Camera returns the capture device.
func (s *Session) Camera() camera.Camera { return s.cam }

// Store returns the frame store.
func (s *Session) Store() *framestore.Store { return s.store }

// Trips returns the session's trip handler.
func (s *Session) Trips() *trip.Handler { return s.trips }

// Message returns the latest status message.
func (s *Session) Message() string { return s.message }

func (s *Session) say(format string, args ...interface{}) {
	s.message = fmt.Sprintf(format, args...)
}

// apply carries out a preview effect on the camera. The overlay is the last
// frame of the sequence.
func (s *Session) apply(effect PreviewEffect) error {
	switch effect {
	case PreviewStart:
		opts := camera.PreviewOptions{Alpha: s.cfg.OverlayAlpha}
		if s.seq.Overlay() {
			if last, ok := s.seq.Last(); ok {
				opts.Overlay = last.Path
			}
		}
		if err := s.cam.StartPreview(opts); err != nil {
			t := trip.DeviceError("preview", err)
			s.trips.Record(t)
			s.log.Error("session: preview failed", "error", err)
			s.say("preview failed: %v", err)
			return t
		}
	case PreviewStop:
		if err := s.cam.StopPreview(); err != nil {
			s.log.Warn("session: stopping preview", "error", err)
		}
	}
	return nil
}

// reject records a refused operation. The status line is left as it is.
func (s *Session) reject(op string, err error) error {
	s.trips.RecordErr(trip.State, op, err)
	s.log.Debug("session: rejected", "op", op, "error", err)
	return err
}

// Capture takes a still and appends it to the sequence.
//
// A camera failure is reported in the status line and the session returns to
// the live preview; the sequence is unchanged.
func (s *Session) Capture() error {
	traceID := uuid.New().String()
	log := s.log.With("trace_id", traceID)

	lo, hi, err := s.store.NextCapture()
	if err != nil {
		s.trips.RecordErr(trip.Storage, "capture", err)
		log.Error("session: capture name allocation failed", "error", err)
		s.say("capture failed: %v", err)
		return err
	}

	if err := s.store.Capture(s.cam, lo, hi); err != nil {
		s.trips.RecordErr(trip.Device, "capture", err)
		log.Error("session: capture failed", "error", err)
		s.say("capture failed, back to live")
		s.apply(s.seq.EnsureLive())
		return err
	}

	f := Frame{Name: filepath.Base(lo), Path: lo, ArchivePath: hi}
	effect := s.seq.Capture(f)
	if effect == PreviewNone && s.seq.Mode() == Live && s.seq.Overlay() {
		// the overlay follows the newest frame
		effect = PreviewStart
	}
	log.Info("session: captured", "frame", f.Name, "position", s.seq.Cursor())
	s.say("captured %s", f.Name)
	return s.apply(effect)
}

// Delete drops the frame at the cursor from the sequence. The file stays on
// disk so Undo can bring it back.
func (s *Session) Delete() error {
	cur, _ := s.seq.Current()
	effect, err := s.seq.Delete()
	if err != nil {
		return s.reject("delete", err)
	}
	s.log.Info("session: dropped frame", "frame", cur.Name, "remaining", s.seq.Len())
	s.say("dropped %s (ctrl+z to undo)", cur.Name)
	return s.apply(effect)
}

// Undo restores the last dropped frame.
func (s *Session) Undo() error {
	if err := s.seq.Undo(); err != nil {
		return s.reject("undo", err)
	}
	s.log.Info("session: restored frame", "frames", s.seq.Len())
	s.say("restored frame")
	return nil
}

// Navigate moves the cursor by delta frames.
func (s *Session) Navigate(delta int) error {
	effect, err := s.seq.Navigate(delta)
	if err != nil {
		return s.reject("navigate", err)
	}
	s.message = ""
	return s.apply(effect)
}

// TogglePlayback starts or stops playback.
func (s *Session) TogglePlayback() error {
	effect, err := s.seq.TogglePlayback()
	if err != nil {
		return s.reject("playback", err)
	}
	s.message = ""
	return s.apply(effect)
}

// Tick advances playback by one frame.
func (s *Session) Tick() bool {
	return s.seq.Tick()
}

// ToggleOverlay shows or hides the alignment overlay on the live preview.
func (s *Session) ToggleOverlay() error {
	effect, err := s.seq.ToggleOverlay()
	if err != nil {
		return s.reject("overlay", err)
	}
	return s.apply(effect)
}

// ResumeLive returns to the capture-ready live preview.
func (s *Session) ResumeLive() error {
	s.message = ""
	return s.apply(s.seq.ResumeLive())
}

// AdjustRate changes the playback rate.
func (s *Session) AdjustRate(delta int) {
	s.seq.AdjustRate(delta)
	s.log.Debug("session: rate changed", "rate", s.seq.Rate())
}

// Export writes the sequence to the export directory.
func (s *Session) Export() (ExportReport, error) {
	report, err := Export(s.store, s.seq.Frames(), s.log)
	for _, t := range report.Failed {
		s.trips.Record(t)
	}
	switch {
	case s.seq.Empty():
		s.say("nothing to export")
	case err != nil:
		s.say("exported %d frames, %d failed", len(report.Written), len(report.Failed))
	default:
		s.say("exported %d frames", len(report.Written))
	}
	return report, err
}

// Reset deletes every file in the working, archive and export directories and
// starts over with an empty sequence.
func (s *Session) Reset() error {
	err := s.store.Wipe(s.store.WorkingDir(), s.store.ArchiveDir(), s.store.ExportDir())
	if err != nil {
		recordAll(s.trips, err)
		s.log.Warn("session: reset left files behind", "error", err)
		s.say("reset incomplete: %v", err)
	} else {
		s.say("all frames deleted")
	}
	s.log.Info("session: reset")
	if perr := s.apply(s.seq.Reset()); perr != nil {
		return errors.Join(err, perr)
	}
	return err
}

// Reload rebuilds the sequence from the working directory.
func (s *Session) Reload() error {
	frames, err := scan(s.store)
	if err != nil {
		s.trips.RecordErr(trip.Storage, "reload", err)
		s.say("reload failed: %v", err)
		return err
	}
	effect := s.seq.Reload(frames)
	s.log.Info("session: reloaded", "frames", s.seq.Len())
	s.say("reloaded %d frames", s.seq.Len())
	return s.apply(effect)
}

// Close stops the preview and releases the camera.
func (s *Session) Close() error {
	s.cam.StopPreview()
	err := s.cam.Close()
	s.log.Info("session: closed", "summary", s.trips.Summary())
	return err
}

// recordAll records every trip joined into err.
func recordAll(h *trip.Handler, err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			recordAll(h, e)
		}
		return
	}
	h.RecordErr(trip.Storage, "wipe", err)
}
