package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"camclip/internal/assets"
	"camclip/internal/bootstrap"
	"camclip/internal/config"
	"camclip/internal/domain"
	"camclip/internal/profile"
	"camclip/internal/usecase"
)

const (
	eventSession   = "camclip:session"
	eventCountdown = "camclip:countdown"
	eventSubmitted = "camclip:submitted"
	eventNotice    = "camclip:notice"
	eventSurface   = "camclip:surface"
	eventPlay      = "camclip:play"
	eventError     = "camclip:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	session *usecase.Session
	assets  *assets.Store
	profile profile.Profile
	cfg     config.Config
	logger  *zap.Logger
	bootErr error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, a, os.Stderr)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.session = services.Session
	a.assets = services.Assets
	a.profile = services.Profile
	a.logger = services.Logger
}

func (a *App) shutdown(_ context.Context) {
	if a.session == nil {
		return
	}
	if err := a.session.Teardown(); err != nil {
		a.logger.Warn("teardown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// serveRecording serves published recordings to the webview.
func (a *App) serveRecording(w http.ResponseWriter, r *http.Request) {
	if a.assets == nil {
		http.NotFound(w, r)
		return
	}
	a.assets.ServeHTTP(w, r)
}

// InitSession acquires the camera and microphone. userAgent is the webview's
// navigator.userAgent and selects the recording container.
func (a *App) InitSession(userAgent string) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.session.Init(a.ctx, userAgent); err != nil {
		return domain.Status{}, err
	}
	return a.session.Status(), nil
}

// StartRecording begins a new clip, discarding any finished one.
func (a *App) StartRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.session.Start(); err != nil {
		return domain.Status{}, a.transitionError(err)
	}
	return a.session.Status(), nil
}

// StopRecording finalizes the current clip for review.
func (a *App) StopRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.session.Stop(a.ctx); err != nil {
		return a.session.Status(), a.transitionError(err)
	}
	return a.session.Status(), nil
}

// PlayRecording replays the finished clip.
func (a *App) PlayRecording() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.transitionError(a.session.Play())
}

// SubmitRecording reports the clip size and clears the session.
func (a *App) SubmitRecording() (domain.SubmitResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.SubmitResult{}, err
	}
	result, err := a.session.Submit()
	if err != nil {
		return domain.SubmitResult{}, a.transitionError(err)
	}
	return result, nil
}

// DeleteRecording discards the finished clip.
func (a *App) DeleteRecording() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.transitionError(a.session.Delete())
}

// AbortRecording discards an in-progress recording.
func (a *App) AbortRecording() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.transitionError(a.session.Abort())
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.session == nil {
		status := domain.Status{State: domain.RecordingStateNone, Countdown: domain.NewCountdown(usecase.MaxCountdownSeconds)}
		if a.bootErr != nil {
			status.Message = a.bootErr.Error()
		}
		return status
	}
	return a.session.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"profile":     a.profile.Name,
		"countdown":   domain.FormatCountdown(a.cfg.Recorder.CountdownSeconds),
		"videoInput":  a.cfg.Capture.VideoFormat + ":" + a.cfg.Capture.VideoDevice,
		"audioInput":  a.cfg.Capture.AudioFormat + ":" + a.cfg.Capture.AudioDevice,
		"splitLayout": fmt.Sprintf("%t", a.profile.SplitSurface),
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.session == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// transitionError surfaces rejected operations to the UI. Other failures are
// reported by the session itself.
func (a *App) transitionError(err error) error {
	if err != nil && errors.Is(err, usecase.ErrInvalidTransition) {
		a.SessionError(domain.ErrorCodeTransition, err.Error())
	}
	return err
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.RecordingState, reason domain.StateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": stateReasonMessage(reason),
	})
}

// CountdownTick emits the remaining recording time.
func (a *App) CountdownTick(countdown domain.Countdown) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventCountdown, countdown)
}

// RecordingSubmitted emits the size report of a submitted clip.
func (a *App) RecordingSubmitted(result domain.SubmitResult) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSubmitted, result)
}

// Notify emits a user-facing notice.
func (a *App) Notify(message string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventNotice, map[string]string{"message": message})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

// Show binds a display surface.
func (a *App) Show(view domain.SurfaceView) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSurface, webviewSurface(view))
}

// Play asks the frontend to replay a surface.
func (a *App) Play(view domain.SurfaceView) error {
	if a.ctx == nil {
		return errors.New("application is not running")
	}
	runtime.EventsEmit(a.ctx, eventPlay, webviewSurface(view))
	return nil
}

// webviewSurface rewrites recording sources to URLs served by serveRecording.
func webviewSurface(view domain.SurfaceView) domain.SurfaceView {
	if view.Kind == domain.SurfaceKindRecording && view.Source != "" {
		view.Source = assets.URL(domain.AssetRef(view.Source))
	}
	return view
}

func stateReasonMessage(reason domain.StateReason) string {
	switch reason {
	case domain.ReasonCaptureReady:
		return "Camera ready"
	case domain.ReasonRecordingStarted:
		return "Recording"
	case domain.ReasonStoppedByUser:
		return "Recording stopped"
	case domain.ReasonCountdownElapsed:
		return "Time is up"
	case domain.ReasonRecordingAborted:
		return "Recording discarded"
	case domain.ReasonRecordingSubmit:
		return "Recording submitted"
	case domain.ReasonRecordingDeleted:
		return "Recording deleted"
	case domain.ReasonSessionReset:
		return "Recorder reset"
	case domain.ReasonSessionTornDown:
		return "Camera released"
	case domain.ReasonFinalizeIncomplete:
		return "Recording stopped (may be incomplete)"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeCapture:
		return "Camera or microphone unavailable"
	case domain.ErrorCodeEncoder:
		return "Recorder could not start"
	case domain.ErrorCodeFinalize:
		return "Recording may be incomplete"
	case domain.ErrorCodeTransition:
		return "Not available right now"
	case domain.ErrorCodePlayback:
		return "Playback failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
