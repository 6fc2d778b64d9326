package ports

import (
	"context"
	"time"

	"camclip/internal/domain"
)

// CaptureConstraints describes the audio/video stream to request.
type CaptureConstraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
	Width            int
	FrameRate        int
}

// CaptureStream is a live audio/video source shared by the preview and every encoder.
type CaptureStream interface {
	ID() string
	Close() error
}

// Capture acquires live capture streams from the host.
type Capture interface {
	Acquire(ctx context.Context, constraints CaptureConstraints) (CaptureStream, error)
}

// EncoderOptions configures one recording attempt.
type EncoderOptions struct {
	MIMEType           string
	AudioBitsPerSecond int
	VideoBitsPerSecond int
}

// Encoder is a streaming encoder bound to a capture stream.
//
// Data delivers encoded chunks in order and is closed after the last chunk of
// the recording, once Stop has been called or the encoder failed. Err reports
// the terminal error and is only meaningful after Data is closed.
type Encoder interface {
	Start() error
	Stop() error
	Data() <-chan []byte
	Err() error
}

// EncoderFactory constructs encoders for a capture stream.
type EncoderFactory interface {
	NewEncoder(stream CaptureStream, opts EncoderOptions) (Encoder, error)
}

// AssetStore allocates playable references for finalized recordings.
type AssetStore interface {
	Publish(asset domain.Asset) (domain.AssetRef, error)
	Revoke(ref domain.AssetRef)
}

// Surface renders live streams and finalized recordings.
type Surface interface {
	Show(view domain.SurfaceView)
	Play(view domain.SurfaceView) error
}

// Clock schedules repeating ticks. The returned stop func is idempotent.
type Clock interface {
	Every(interval time.Duration, fn func()) (stop func())
}

// EventSink emits session state/events to the user.
type EventSink interface {
	SessionStateChanged(state domain.RecordingState, reason domain.StateReason)
	CountdownTick(countdown domain.Countdown)
	RecordingSubmitted(result domain.SubmitResult)
	SessionError(code domain.ErrorCode, detail string)
	// Notify shows an alert-style notice to the user.
	Notify(message string)
}
