package bootstrap

import (
	"io"

	"go.uber.org/zap"

	"camclip/internal/assets"
	"camclip/internal/config"
	"camclip/internal/logging"
	"camclip/internal/media"
	"camclip/internal/ports"
	"camclip/internal/profile"
	"camclip/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Session *usecase.Session
	Assets  *assets.Store
	Profile profile.Profile
	Config  config.Config
	Logger  *zap.Logger
}

// Build wires all backend dependencies for the current runtime. Logs go to
// logOutput and, when configured, to the rotated log file.
func Build(eventSink ports.EventSink, surface ports.Surface, logOutput io.Writer) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	logger, err := logging.NewFromConfig(cfg.Log, logOutput)
	if err != nil {
		return Services{}, err
	}

	recorderProfile, err := profile.Lookup(cfg.Recorder.Profile)
	if err != nil {
		return Services{}, err
	}

	store := assets.NewStore()
	session := usecase.NewSession(
		media.NewFFMPEGCapture(media.DeviceConfig{
			Command:     cfg.Capture.FFMPEGCommand,
			VideoFormat: cfg.Capture.VideoFormat,
			VideoDevice: cfg.Capture.VideoDevice,
			AudioFormat: cfg.Capture.AudioFormat,
			AudioDevice: cfg.Capture.AudioDevice,
		}, logger.Named("capture")),
		media.NewFFMPEGEncoderFactory(cfg.Capture.ChunkSize, logger.Named("encoder")),
		store,
		surface,
		eventSink,
		usecase.SystemClock{},
		logger.Named("session"),
		usecase.Config{
			Profile:            recorderProfile,
			CountdownSeconds:   cfg.Recorder.CountdownSeconds,
			AudioBitsPerSecond: cfg.Recorder.AudioBitsPerSecond,
			VideoBitsPerSecond: cfg.Recorder.VideoBitsPerSecond,
			FinalizeTimeout:    cfg.Recorder.FinalizeTimeout(),
		},
	)

	logger.Debug("services assembled",
		zap.String("profile", recorderProfile.Name),
		zap.Int("countdown_seconds", cfg.Recorder.CountdownSeconds),
	)
	return Services{
		Session: session,
		Assets:  store,
		Profile: recorderProfile,
		Config:  cfg,
		Logger:  logger,
	}, nil
}
