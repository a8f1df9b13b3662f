package trip

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTrip_Core tests core Trip functionality
func TestTrip_Core(t *testing.T) {
	context := Context{
		"src": "img_hires/capture_003.png",
		"dst": "export/frame_002.png",
	}

	cause := fs.ErrNotExist
	tr := New(Storage, "export", "copy failed", cause, context)

	assert.Equal(t, Storage, tr.Kind)
	assert.Equal(t, "export", tr.Op)
	assert.Equal(t, "copy failed", tr.Message)
	assert.Equal(t, context, tr.Context)
	assert.Equal(t, Error, tr.Severity)
	assert.WithinDuration(t, time.Now(), tr.Timestamp, time.Second)

	assert.Contains(t, tr.Error(), "copy failed")
	assert.Contains(t, tr.Error(), "storage")
	assert.Contains(t, tr.Error(), "error")
	assert.True(t, errors.Is(tr, fs.ErrNotExist))
}

// TestTrip_Severities tests different severity levels
func TestTrip_Severities(t *testing.T) {
	stumble := NewStumble(Storage, "wipe", "could not remove file", nil, nil)
	err := New(Device, "capture", "capture failed", nil, nil)
	fall := NewFall(Device, "open", "no camera", nil, nil)

	assert.Equal(t, Stumble, stumble.Severity)
	assert.Equal(t, Error, err.Severity)
	assert.Equal(t, Fall, fall.Severity)

	assert.True(t, stumble.CanRecover())
	assert.False(t, err.CanRecover())
	assert.False(t, fall.CanRecover())

	assert.False(t, stumble.IsFall())
	assert.False(t, err.IsFall())
	assert.True(t, fall.IsFall())
}

func TestTrip_Constructors(t *testing.T) {
	dev := DeviceError("capture", errors.New("timeout"))
	assert.Equal(t, Device, dev.Kind)
	assert.Contains(t, dev.Error(), "camera capture failed")
	assert.Contains(t, dev.Error(), "timeout")

	st := StorageError("remove", "img/capture_000.png", fs.ErrPermission)
	assert.Equal(t, Storage, st.Kind)
	assert.Equal(t, "img/capture_000.png", st.Context["path"])

	state := StateError("navigate", "no frames")
	assert.Equal(t, State, state.Kind)
	assert.Nil(t, state.Unwrap())
}

func TestTrip_AsAndIsKind(t *testing.T) {
	wrapped := fmt.Errorf("session: %w", DeviceError("preview", nil))

	tr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "preview", tr.Op)
	assert.True(t, IsKind(wrapped, Device))
	assert.False(t, IsKind(wrapped, Storage))
	assert.False(t, IsKind(errors.New("plain"), Device))
}

func TestTrip_DetailedString(t *testing.T) {
	tr := New(Storage, "copy", "Test message", nil, Context{"b": 2, "a": 1})

	detailed := tr.DetailedString()
	assert.Contains(t, detailed, "Test message")
	assert.Contains(t, detailed, "Op: copy")
	assert.Contains(t, detailed, "a: 1")
	assert.Less(t, strings.Index(detailed, "a: 1"), strings.Index(detailed, "b: 2"))
}

// TestHandler_Basic tests basic Handler functionality
func TestHandler_Basic(t *testing.T) {
	handler := NewHandler("session", DefaultPolicy())

	assert.True(t, handler.ShouldContinue())
	assert.Nil(t, handler.Last())

	stumble := NewStumble(Storage, "export", "missing archive file", nil, nil)
	handler.Record(stumble)
	assert.True(t, handler.ShouldContinue())
	assert.False(t, handler.HasTrips())
	assert.Same(t, stumble, handler.Last())

	fall := NewFall(Device, "open", "camera gone", nil, nil)
	handler.Record(fall)
	assert.False(t, handler.ShouldContinue())
	assert.True(t, handler.HasTrips())
	assert.Same(t, fall, handler.Last())

	assert.Equal(t, "[session] 1 trips, 1 stumbles", handler.Summary())
	report := handler.DetailedReport()
	assert.Contains(t, report, "Trips:")
	assert.Contains(t, report, "Stumbles:")
}

func TestHandler_RecordErr(t *testing.T) {
	handler := NewHandler("session", nil)

	assert.Nil(t, handler.RecordErr(Storage, "reload", nil))

	tr := handler.RecordErr(Storage, "reload", errors.New("permission denied"))
	require.NotNil(t, tr)
	assert.Equal(t, Storage, tr.Kind)
	assert.Equal(t, "reload", tr.Op)

	dev := DeviceError("capture", nil)
	got := handler.RecordErr(Storage, "capture", fmt.Errorf("wrap: %w", dev))
	assert.Same(t, dev, got)
	assert.Len(t, handler.Trips(), 2)
}

func TestHandler_MaxStumbles(t *testing.T) {
	handler := NewHandler("session", &Policy{MaxStumbles: 2})
	for i := 0; i < 5; i++ {
		handler.Record(NewStumble(Storage, "wipe", fmt.Sprintf("file %d", i), nil, nil))
	}

	stumbles := handler.Stumbles()
	require.Len(t, stumbles, 2)
	assert.Equal(t, "file 3", stumbles[0].Message)
	assert.Equal(t, "file 4", stumbles[1].Message)
	assert.Equal(t, "[session] no issues", NewHandler("session", nil).Summary())
}

// TestSeverity_String tests severity string representation
func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "stumble", Stumble.String())
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "fall", Fall.String())
	assert.Equal(t, "unknown", Severity(9).String())
}
