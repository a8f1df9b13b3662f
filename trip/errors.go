// Package trip provides error handling for stop-motion capture sessions.
//
// When an operation stumbles (one file out of a batch could not be copied) or
// trips (the camera refused a capture) the failure is recorded as a Trip with
// a kind and a severity, so the session can report it to the operator and
// keep running instead of terminating.
package trip

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind classifies where a failure came from.
//
//   - Device: camera unavailable, preview or capture failed
//   - Storage: enumerate, copy or delete of a frame file failed
//   - State: an operation was requested whose precondition does not hold
type Kind string

const (
	Device  Kind = "device"
	Storage Kind = "storage"
	State   Kind = "state"
)

// Trip represents a failure during a session operation with context.
//
// Example usage:
//
//	err := trip.New(trip.Storage, "export", "copy failed", cause,
//	    trip.Context{"src": src, "dst": dst})
//
//	if err.CanRecover() {
//	    // keep going with the next item
//	}
type Trip struct {
	Kind      Kind      // Where the failure came from
	Op        string    // Operation that failed ("capture", "export", ...)
	Message   string    // Human-readable description
	Err       error     // Underlying cause, may be nil
	Context   Context   // Additional debugging information
	Timestamp time.Time // When the failure occurred
	Severity  Severity  // How serious this failure is
}

// Context provides structured debugging information for trips.
type Context map[string]interface{}

// Severity indicates how serious a trip is and how it should be handled.
type Severity int

const (
	// Stumble is a per-item failure inside a batch; the batch continues.
	// Examples: one missing archive file during export
	Stumble Severity = iota

	// Error means the requested operation failed as a whole.
	// Examples: capture failed, working directory unreadable
	Error

	// Fall means the session cannot continue.
	// Examples: camera backend could not be opened at startup
	Fall
)

func (s Severity) String() string {
	switch s {
	case Stumble:
		return "stumble"
	case Error:
		return "error"
	case Fall:
		return "fall"
	default:
		return "unknown"
	}
}

// New creates a trip with Error severity and the current timestamp.
func New(kind Kind, op, message string, cause error, context Context) *Trip {
	if context == nil {
		context = make(Context)
	}
	return &Trip{
		Kind:      kind,
		Op:        op,
		Message:   message,
		Err:       cause,
		Context:   context,
		Timestamp: time.Now(),
		Severity:  Error,
	}
}

// NewStumble creates a trip with Stumble severity.
func NewStumble(kind Kind, op, message string, cause error, context Context) *Trip {
	return New(kind, op, message, cause, context).WithSeverity(Stumble)
}

// NewFall creates a trip with Fall severity.
func NewFall(kind Kind, op, message string, cause error, context Context) *Trip {
	return New(kind, op, message, cause, context).WithSeverity(Fall)
}

// DeviceError wraps a camera failure.
func DeviceError(op string, cause error) *Trip {
	return New(Device, op, "camera "+op+" failed", cause, nil)
}

// StorageError wraps a filesystem failure on path.
func StorageError(op, path string, cause error) *Trip {
	return New(Storage, op, op+" "+path, cause, Context{"path": path})
}

// StateError reports a rejected operation.
func StateError(op, message string) *Trip {
	return New(State, op, message, nil, nil)
}

// WithSeverity sets the severity level for this trip.
func (t *Trip) WithSeverity(severity Severity) *Trip {
	t.Severity = severity
	return t
}

// Error implements the error interface.
func (t *Trip) Error() string {
	if t.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", t.Kind, t.Severity, t.Message, t.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", t.Kind, t.Severity, t.Message)
}

// Unwrap returns the underlying cause.
func (t *Trip) Unwrap() error {
	return t.Err
}

// CanRecover returns true if the surrounding batch can continue.
func (t *Trip) CanRecover() bool {
	return t.Severity == Stumble
}

// IsFall returns true if the session should stop.
func (t *Trip) IsFall() bool {
	return t.Severity == Fall
}

// DetailedString returns a description including timestamp and context.
func (t *Trip) DetailedString() string {
	var details strings.Builder

	details.WriteString(t.Error())
	details.WriteString(fmt.Sprintf("\n  Time: %s", t.Timestamp.Format("15:04:05.000")))
	if t.Op != "" {
		details.WriteString(fmt.Sprintf("\n  Op: %s", t.Op))
	}

	if len(t.Context) > 0 {
		keys := make([]string, 0, len(t.Context))
		for key := range t.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		details.WriteString("\n  Context:")
		for _, key := range keys {
			details.WriteString(fmt.Sprintf("\n    %s: %v", key, t.Context[key]))
		}
	}

	return details.String()
}

// As extracts the first Trip in err's chain.
func As(err error) (*Trip, bool) {
	var t *Trip
	if errors.As(err, &t) {
		return t, true
	}
	return nil, false
}

// IsKind reports whether err carries a Trip of the given kind.
func IsKind(err error, kind Kind) bool {
	t, ok := As(err)
	return ok && t.Kind == kind
}
