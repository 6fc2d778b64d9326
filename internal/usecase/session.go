package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"camclip/internal/domain"
	"camclip/internal/ports"
	"camclip/internal/profile"
)

var (
	ErrInvalidTransition   = errors.New("operation is not valid in the current recording state")
	ErrCaptureUnavailable  = errors.New("capture stream is not available")
	ErrEncoderConstruction = errors.New("recorder could not be created")
	ErrNothingToPlay       = errors.New("nothing recorded to play")
	ErrSessionClosed       = errors.New("recording session is closed")
	ErrCaptureBusy         = errors.New("capture acquisition already in progress")
)

const (
	MaxCountdownSeconds       = 60
	DefaultAudioBitsPerSecond = 32000
	DefaultVideoBitsPerSecond = 500000
	DefaultFinalizeTimeout    = 5 * time.Second
)

// Config controls recording behavior.
type Config struct {
	Profile            profile.Profile
	CountdownSeconds   int
	TickInterval       time.Duration
	AudioBitsPerSecond int
	VideoBitsPerSecond int
	FinalizeTimeout    time.Duration
}

// Session is the recording state machine. It owns the capture stream from
// Init until Teardown and at most one recorder at a time.
type Session struct {
	capture  ports.Capture
	encoders ports.EncoderFactory
	surface  ports.Surface
	events   ports.EventSink
	logger   *zap.Logger
	cfg      Config

	countdown *countdown

	mu         sync.Mutex
	state      domain.RecordingState
	stream     ports.CaptureStream
	userAgent  string
	remaining  int
	generation uint64
	recorder   *recorder
	mimeType   string
	recorded   recordedAsset
	acquiring  bool
	starting   bool
	stopping   bool
	closed     bool
	assets     *assetPublisher
}

// recordedAsset is what the last finalized recording holds.
type recordedAsset struct {
	chunks int
	bytes  int64
}

func NewSession(
	capture ports.Capture,
	encoders ports.EncoderFactory,
	assets ports.AssetStore,
	surface ports.Surface,
	events ports.EventSink,
	clock ports.Clock,
	logger *zap.Logger,
	cfg Config,
) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if cfg.Profile.Name == "" {
		cfg.Profile, _ = profile.Lookup(profile.Standard)
	}
	if cfg.CountdownSeconds <= 0 || cfg.CountdownSeconds > MaxCountdownSeconds {
		cfg.CountdownSeconds = MaxCountdownSeconds
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.AudioBitsPerSecond <= 0 {
		cfg.AudioBitsPerSecond = DefaultAudioBitsPerSecond
	}
	if cfg.VideoBitsPerSecond <= 0 {
		cfg.VideoBitsPerSecond = DefaultVideoBitsPerSecond
	}
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = DefaultFinalizeTimeout
	}

	return &Session{
		capture:   capture,
		encoders:  encoders,
		surface:   surface,
		events:    events,
		logger:    logger,
		cfg:       cfg,
		countdown: newCountdown(clock, cfg.TickInterval),
		state:     domain.RecordingStateNone,
		remaining: cfg.CountdownSeconds,
		assets:    newAssetPublisher(assets, logger),
	}
}

// Init acquires the capture stream once and binds it to the preview surface.
// userAgent selects the container recordings are encoded with.
func (s *Session) Init(ctx context.Context, userAgent string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.stream != nil {
		s.mu.Unlock()
		s.logger.Debug("capture stream already acquired")
		return nil
	}
	if s.acquiring {
		s.mu.Unlock()
		return ErrCaptureBusy
	}
	s.acquiring = true
	constraints := s.cfg.Profile.Constraints
	s.mu.Unlock()

	stream, err := s.capture.Acquire(ctx, constraints)

	s.mu.Lock()
	s.acquiring = false
	if err != nil {
		s.mu.Unlock()
		err = fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
		s.reportFailure(domain.ErrorCodeCapture, err)
		return err
	}
	if s.closed {
		s.mu.Unlock()
		if closeErr := stream.Close(); closeErr != nil {
			s.logger.Warn("capture stream close failed", zap.Error(closeErr))
		}
		return ErrSessionClosed
	}
	s.stream = stream
	s.userAgent = userAgent
	views := s.liveViewsLocked()
	s.mu.Unlock()

	s.show(views)
	s.logger.Info("capture stream acquired",
		zap.String("stream", stream.ID()),
		zap.String("profile", s.cfg.Profile.Name),
	)
	s.events.SessionStateChanged(domain.RecordingStateNone, domain.ReasonCaptureReady)
	return nil
}

// Start begins a new recording from None or Finished.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state == domain.RecordingStateRecording || s.starting {
		state := s.state
		s.mu.Unlock()
		return s.invalid("start", state)
	}
	if s.stream == nil {
		s.mu.Unlock()
		err := fmt.Errorf("start: %w", ErrCaptureUnavailable)
		s.reportFailure(domain.ErrorCodeCapture, err)
		return err
	}
	s.starting = true
	stream := s.stream
	mimeType := s.cfg.Profile.MIME.Resolve(s.userAgent)
	s.mu.Unlock()

	rec, err := startRecorder(s.encoders, stream, ports.EncoderOptions{
		MIMEType:           mimeType,
		AudioBitsPerSecond: s.cfg.AudioBitsPerSecond,
		VideoBitsPerSecond: s.cfg.VideoBitsPerSecond,
	})

	s.mu.Lock()
	s.starting = false
	if err != nil {
		s.mu.Unlock()
		s.reportFailure(domain.ErrorCodeEncoder, err)
		return err
	}
	if s.closed {
		s.mu.Unlock()
		rec.discard()
		return ErrSessionClosed
	}

	var views []domain.SurfaceView
	if s.state == domain.RecordingStateFinished {
		s.assets.Release()
		s.recorded = recordedAsset{}
		views = s.disposalViewsLocked()
	}
	s.generation++
	generation := s.generation
	s.recorder = rec
	s.mimeType = mimeType
	s.remaining = s.cfg.CountdownSeconds
	s.state = domain.RecordingStateRecording
	remaining := s.remaining
	s.countdown.start(func() { s.tick(generation) })

	// Published before unlocking so a racing stop cannot be followed by the
	// initial countdown value.
	s.show(views)
	s.logger.Info("recording started",
		zap.String("mime_type", mimeType),
		zap.Int("countdown", remaining),
	)
	s.events.SessionStateChanged(domain.RecordingStateRecording, domain.ReasonRecordingStarted)
	s.events.CountdownTick(domain.NewCountdown(remaining))
	s.mu.Unlock()
	return nil
}

// Stop finalizes the active recording. The session is Finished once Stop
// returns, even when finalization reported an error.
func (s *Session) Stop(ctx context.Context) error {
	return s.stop(ctx, domain.ReasonStoppedByUser)
}

func (s *Session) stop(ctx context.Context, reason domain.StateReason) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != domain.RecordingStateRecording || s.stopping {
		state := s.state
		s.mu.Unlock()
		return s.invalid("stop", state)
	}
	s.stopping = true
	s.countdown.cancel()
	rec := s.recorder
	s.mu.Unlock()

	finalizeCtx, cancel := context.WithTimeout(ctx, s.cfg.FinalizeTimeout)
	asset, finalizeErr := rec.stop(finalizeCtx)
	cancel()
	if finalizeErr != nil {
		reason = domain.ReasonFinalizeIncomplete
		s.logger.Error("recording finalized with error", zap.Error(finalizeErr))
		s.events.SessionError(domain.ErrorCodeFinalize, finalizeErr.Error())
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	ref, publishErr := s.assets.Publish(asset)
	chunks, _ := rec.stats()
	size := asset.Size()
	s.recorded = recordedAsset{chunks: chunks, bytes: size}
	s.recorder = nil
	s.stopping = false
	s.state = domain.RecordingStateFinished
	var views []domain.SurfaceView
	if publishErr == nil {
		views = []domain.SurfaceView{s.recordingViewLocked(ref)}
	}

	if publishErr != nil {
		publishErr = fmt.Errorf("publish recording: %w", publishErr)
		s.logger.Error("recording could not be published", zap.Error(publishErr))
		s.events.SessionError(domain.ErrorCodeFinalize, publishErr.Error())
	}
	s.show(views)
	s.logger.Info("recording finished",
		zap.String("reason", string(reason)),
		zap.Int("chunks", chunks),
		zap.Int64("bytes", size),
		zap.String("ref", string(ref)),
	)
	s.events.SessionStateChanged(domain.RecordingStateFinished, reason)
	s.mu.Unlock()
	return errors.Join(finalizeErr, publishErr)
}

// tick publishes under the lock so no update can follow a stop.
func (s *Session) tick(generation uint64) {
	s.mu.Lock()
	if s.closed || generation != s.generation || s.state != domain.RecordingStateRecording || s.stopping {
		s.mu.Unlock()
		return
	}
	if s.remaining > 0 {
		s.remaining--
	}
	remaining := s.remaining
	if remaining > 0 {
		s.events.CountdownTick(domain.NewCountdown(remaining))
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.logger.Info("countdown elapsed")
	if err := s.stop(context.Background(), domain.ReasonCountdownElapsed); err != nil && !errors.Is(err, ErrInvalidTransition) {
		s.logger.Warn("automatic stop failed", zap.Error(err))
	}
}

// Play shows the finished recording with controls and starts playback.
func (s *Session) Play() error {
	s.mu.Lock()
	if s.state != domain.RecordingStateFinished {
		state := s.state
		s.mu.Unlock()
		return s.invalid("play", state)
	}
	ref := s.assets.Current()
	if s.recorded.chunks == 0 || ref == "" {
		s.mu.Unlock()
		s.logger.Info("cannot play: nothing recorded")
		return ErrNothingToPlay
	}
	view := s.recordingViewLocked(ref)
	s.mu.Unlock()

	if err := s.surface.Play(view); err != nil {
		err = fmt.Errorf("play recording: %w", err)
		s.logger.Warn("playback failed", zap.Error(err))
		s.events.SessionError(domain.ErrorCodePlayback, err.Error())
		return err
	}
	return nil
}

// Submit reports the size of the finished recording and resets the session.
func (s *Session) Submit() (domain.SubmitResult, error) {
	s.mu.Lock()
	if s.state != domain.RecordingStateFinished {
		state := s.state
		s.mu.Unlock()
		return domain.SubmitResult{}, s.invalid("submit", state)
	}
	result := domain.NewSubmitResult(s.mimeType, s.recorded.bytes)
	views := s.resetLocked()
	s.show(views)
	s.logger.Info("recording submitted",
		zap.Int64("bytes", result.Bytes),
		zap.String("megabytes", result.Megabytes),
	)
	s.events.RecordingSubmitted(result)
	s.events.Notify(result.Message())
	s.events.SessionStateChanged(domain.RecordingStateNone, domain.ReasonRecordingSubmit)
	s.mu.Unlock()
	return result, nil
}

// Delete discards the finished recording and resets the session.
func (s *Session) Delete() error {
	s.mu.Lock()
	if s.state != domain.RecordingStateFinished {
		state := s.state
		s.mu.Unlock()
		return s.invalid("delete", state)
	}
	views := s.resetLocked()
	s.show(views)
	s.logger.Info("recording deleted")
	s.events.SessionStateChanged(domain.RecordingStateNone, domain.ReasonRecordingDeleted)
	s.mu.Unlock()
	return nil
}

// Abort cancels and discards an in-progress recording.
func (s *Session) Abort() error {
	return s.abort(domain.ReasonRecordingAborted)
}

func (s *Session) abort(reason domain.StateReason) error {
	s.mu.Lock()
	if s.state != domain.RecordingStateRecording || s.stopping {
		state := s.state
		s.mu.Unlock()
		return s.invalid("abort", state)
	}
	s.countdown.cancel()
	rec := s.recorder
	s.generation++
	views := s.resetLocked()
	s.show(views)
	s.logger.Info("recording discarded", zap.String("reason", string(reason)))
	s.events.SessionStateChanged(domain.RecordingStateNone, reason)
	s.mu.Unlock()

	rec.discard()
	return nil
}

// Reset returns the session to None from any state.
func (s *Session) Reset() error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	switch state {
	case domain.RecordingStateRecording:
		return s.abort(domain.ReasonSessionReset)
	case domain.RecordingStateFinished:
		s.mu.Lock()
		if s.state != domain.RecordingStateFinished {
			s.mu.Unlock()
			return s.Reset()
		}
		views := s.resetLocked()
		s.show(views)
		s.events.SessionStateChanged(domain.RecordingStateNone, domain.ReasonSessionReset)
		s.mu.Unlock()
	}
	return nil
}

// Teardown stops the countdown, drops any recording and releases the capture
// stream. It is safe to call more than once.
func (s *Session) Teardown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.countdown.cancel()
	var rec *recorder
	if s.state == domain.RecordingStateRecording && !s.stopping {
		rec = s.recorder
	}
	s.generation++
	s.assets.Release()
	s.recorder = nil
	s.recorded = recordedAsset{}
	s.mimeType = ""
	s.state = domain.RecordingStateNone
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if rec != nil {
		rec.discard()
	}
	var err error
	if stream != nil {
		if err = stream.Close(); err != nil {
			s.logger.Warn("capture stream close failed", zap.Error(err))
		}
	}
	s.logger.Info("session torn down")
	s.events.SessionStateChanged(domain.RecordingStateNone, domain.ReasonSessionTornDown)
	return err
}

// Status returns a snapshot of the session.
func (s *Session) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := domain.Status{
		State:     s.state,
		Countdown: domain.NewCountdown(s.remaining),
		MIMEType:  s.mimeType,
		AssetRef:  s.assets.Current(),
		Ready:     s.stream != nil,
	}
	switch {
	case s.recorder != nil:
		status.Chunks, status.Bytes = s.recorder.stats()
	case s.state == domain.RecordingStateFinished:
		status.Chunks, status.Bytes = s.recorded.chunks, s.recorded.bytes
	}
	return status
}

// resetLocked clears every Finished-state artifact and returns the views that
// put the live stream back on screen.
func (s *Session) resetLocked() []domain.SurfaceView {
	s.assets.Release()
	s.recorder = nil
	s.recorded = recordedAsset{}
	s.mimeType = ""
	s.remaining = s.cfg.CountdownSeconds
	s.state = domain.RecordingStateNone
	return s.disposalViewsLocked()
}

func (s *Session) liveViewsLocked() []domain.SurfaceView {
	if s.stream == nil {
		return nil
	}
	return []domain.SurfaceView{{
		Surface:  s.cfg.Profile.PreviewSurface(),
		Kind:     domain.SurfaceKindLive,
		Source:   s.stream.ID(),
		Muted:    true,
		Autoplay: true,
	}}
}

func (s *Session) disposalViewsLocked() []domain.SurfaceView {
	views := s.liveViewsLocked()
	if s.cfg.Profile.SplitSurface {
		views = append(views, domain.SurfaceView{
			Surface: s.cfg.Profile.PlaybackSurface(),
			Kind:    domain.SurfaceKindRecording,
			Muted:   true,
		})
	}
	return views
}

func (s *Session) recordingViewLocked(ref domain.AssetRef) domain.SurfaceView {
	return domain.SurfaceView{
		Surface:  s.cfg.Profile.PlaybackSurface(),
		Kind:     domain.SurfaceKindRecording,
		Source:   string(ref),
		Controls: true,
	}
}

func (s *Session) show(views []domain.SurfaceView) {
	for _, view := range views {
		s.surface.Show(view)
	}
}

func (s *Session) invalid(op string, state domain.RecordingState) error {
	s.logger.Warn("ignoring invalid session operation",
		zap.String("operation", op),
		zap.String("state", string(state)),
	)
	return fmt.Errorf("%s while %s: %w", op, state, ErrInvalidTransition)
}

func (s *Session) reportFailure(code domain.ErrorCode, err error) {
	s.logger.Error("session operation failed", zap.String("code", string(code)), zap.Error(err))
	s.events.SessionError(code, err.Error())
	s.events.Notify(err.Error())
}
