package domain

import "fmt"

// RecordingState models the clip recording lifecycle.
type RecordingState string

const (
	RecordingStateNone      RecordingState = "none"
	RecordingStateRecording RecordingState = "recording"
	RecordingStateFinished  RecordingState = "finished"
)

// StateReason provides a structured reason for state transitions.
type StateReason string

const (
	ReasonCaptureReady       StateReason = "capture_ready"
	ReasonRecordingStarted   StateReason = "recording_started"
	ReasonStoppedByUser      StateReason = "stopped_by_user"
	ReasonCountdownElapsed   StateReason = "countdown_elapsed"
	ReasonRecordingAborted   StateReason = "recording_aborted"
	ReasonRecordingSubmit    StateReason = "recording_submitted"
	ReasonRecordingDeleted   StateReason = "recording_deleted"
	ReasonSessionReset       StateReason = "session_reset"
	ReasonSessionTornDown    StateReason = "session_torn_down"
	ReasonFinalizeIncomplete StateReason = "finalize_incomplete"
)

// ErrorCode identifies errors surfaced to the user.
type ErrorCode string

const (
	ErrorCodeCapture    ErrorCode = "capture"
	ErrorCodeEncoder    ErrorCode = "encoder"
	ErrorCodeFinalize   ErrorCode = "finalize"
	ErrorCodeTransition ErrorCode = "invalid_transition"
	ErrorCodePlayback   ErrorCode = "playback"
	ErrorCodeStartup    ErrorCode = "startup"
)

// Severity is the countdown color band.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

const (
	WarningThreshold  = 30
	CriticalThreshold = 10
)

// SeverityFor bands the remaining seconds. Boundary values belong to the
// lower-severity band's upper edge: 30 is warning, 10 is critical.
func SeverityFor(remaining int) Severity {
	switch {
	case remaining <= CriticalThreshold:
		return SeverityCritical
	case remaining <= WarningThreshold:
		return SeverityWarning
	default:
		return SeverityNormal
	}
}

// FormatCountdown renders seconds as mm:ss.
func FormatCountdown(remaining int) string {
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("%02d:%02d", remaining/60, remaining%60)
}

// Countdown is one published tick of the recording timer.
type Countdown struct {
	Remaining int      `json:"remaining"`
	Display   string   `json:"display"`
	Severity  Severity `json:"severity"`
}

// NewCountdown builds the presentation values for remaining seconds.
func NewCountdown(remaining int) Countdown {
	return Countdown{
		Remaining: remaining,
		Display:   FormatCountdown(remaining),
		Severity:  SeverityFor(remaining),
	}
}

// AssetRef is an opaque handle that plays a finalized recording.
type AssetRef string

// Asset is the concatenated result of all chunks once recording stops.
type Asset struct {
	MIMEType string
	Data     []byte
}

// Size returns the asset length in bytes.
func (a Asset) Size() int64 {
	return int64(len(a.Data))
}

// SubmitResult is reported when a finished recording is submitted.
type SubmitResult struct {
	MIMEType  string `json:"mimeType"`
	Bytes     int64  `json:"bytes"`
	Megabytes string `json:"megabytes"`
}

// NewSubmitResult computes the size report for a recording.
func NewSubmitResult(mimeType string, bytes int64) SubmitResult {
	return SubmitResult{
		MIMEType:  mimeType,
		Bytes:     bytes,
		Megabytes: fmt.Sprintf("%.2f", float64(bytes)/(1024*1024)),
	}
}

// Message is the user-facing size notice.
func (r SubmitResult) Message() string {
	return "size of the video is " + r.Megabytes + " MB"
}

// SurfaceKind identifies what a display surface is bound to.
type SurfaceKind string

const (
	SurfaceKindLive      SurfaceKind = "live"
	SurfaceKindRecording SurfaceKind = "recording"
)

const (
	SurfacePreview  = "preview"
	SurfacePlayback = "playback"
)

// SurfaceView describes how one display surface should render.
type SurfaceView struct {
	Surface  string      `json:"surface"`
	Kind     SurfaceKind `json:"kind"`
	Source   string      `json:"source"`
	Muted    bool        `json:"muted"`
	Controls bool        `json:"controls"`
	Autoplay bool        `json:"autoplay"`
}

// Status summarizes the current session.
type Status struct {
	State     RecordingState `json:"state"`
	Countdown Countdown      `json:"countdown"`
	Chunks    int            `json:"chunks"`
	Bytes     int64          `json:"bytes"`
	MIMEType  string         `json:"mimeType,omitempty"`
	AssetRef  AssetRef       `json:"assetRef,omitempty"`
	Ready     bool           `json:"ready"`
	Message   string         `json:"message,omitempty"`
}
