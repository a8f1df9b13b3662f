package stopmotion

import (
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/teranos/stopmotion/framestore"
	"github.com/teranos/stopmotion/trip"
)

// ExportReport lists what an export wrote and what it had to skip.
type ExportReport struct {
	Written []string     // Export files in sequence order
	Failed  []*trip.Trip // One stumble per frame that could not be copied
}

// OK reports whether every frame was exported.
func (r ExportReport) OK() bool { return len(r.Failed) == 0 }

// Export copies the archive still of every frame, in sequence order, to the
// export directory as frame_000.png, frame_001.png and so on. Numbering
// follows the sequence position, so gaps in the capture numbers are closed.
//
// A frame whose archive still cannot be copied is reported and skipped; the
// files already written stay in place.
func Export(store *framestore.Store, frames []Frame, logger *slog.Logger) (ExportReport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var report ExportReport
	if len(frames) == 0 {
		logger.Info("export: nothing to export")
		return report, nil
	}

	if err := store.ClearExports(); err != nil {
		logger.Warn("export: could not clear previous export", "error", err)
	}

	var errs []error
	for i, f := range frames {
		dst := store.ExportPath(i)
		if err := framestore.Copy(f.ArchivePath, dst); err != nil {
			t, ok := trip.As(err)
			if !ok {
				t = trip.StorageError("export", f.ArchivePath, err)
			}
			t.WithSeverity(trip.Stumble)
			t.Context["frame"] = f.Name
			t.Context["position"] = i
			report.Failed = append(report.Failed, t)
			errs = append(errs, t)
			logger.Warn("export: skipped frame", "frame", f.Name, "position", i, "error", err)
			continue
		}
		report.Written = append(report.Written, dst)
		logger.Debug("export: wrote " + filepath.Base(dst))
	}

	logger.Info("export: finished",
		"written", len(report.Written),
		"failed", len(report.Failed),
		"dir", store.ExportDir(),
	)
	return report, errors.Join(errs...)
}
