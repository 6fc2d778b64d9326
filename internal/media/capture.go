package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"camclip/internal/ports"
)

var ErrStreamClosed = errors.New("capture stream is closed")

// DeviceConfig names the local devices ffmpeg reads from.
type DeviceConfig struct {
	Command     string
	VideoFormat string
	VideoDevice string
	AudioFormat string
	AudioDevice string
}

func (c DeviceConfig) withDefaults() DeviceConfig {
	if c.Command == "" {
		c.Command = "ffmpeg"
	}
	if c.VideoFormat == "" {
		c.VideoFormat = "v4l2"
	}
	if c.VideoDevice == "" {
		c.VideoDevice = "/dev/video0"
	}
	if c.AudioFormat == "" {
		c.AudioFormat = "pulse"
	}
	if c.AudioDevice == "" {
		c.AudioDevice = "default"
	}
	return c
}

// FFMPEGCapture acquires camera and microphone input for ffmpeg encoders.
type FFMPEGCapture struct {
	cfg    DeviceConfig
	logger *zap.Logger
}

func NewFFMPEGCapture(cfg DeviceConfig, logger *zap.Logger) *FFMPEGCapture {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFMPEGCapture{cfg: cfg.withDefaults(), logger: logger}
}

func (c *FFMPEGCapture) Acquire(ctx context.Context, constraints ports.CaptureConstraints) (ports.CaptureStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	command, err := exec.LookPath(c.cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg is not available: %w", err)
	}
	if strings.HasPrefix(c.cfg.VideoDevice, "/dev/") {
		if _, err := os.Stat(c.cfg.VideoDevice); err != nil {
			return nil, fmt.Errorf("video device %s is unavailable: %w", c.cfg.VideoDevice, err)
		}
	}
	if constraints.EchoCancellation {
		c.logger.Debug("echo cancellation is left to the audio server for ffmpeg capture")
	}

	stream := &deviceStream{
		id:          "capture-" + uuid.NewString(),
		command:     command,
		devices:     c.cfg,
		constraints: constraints,
	}
	c.logger.Info("capture devices ready",
		zap.String("stream", stream.id),
		zap.String("video", c.cfg.VideoFormat+":"+c.cfg.VideoDevice),
		zap.String("audio", c.cfg.AudioFormat+":"+c.cfg.AudioDevice),
	)
	return stream, nil
}

// deviceStream is the shared capture source. Every encoder opens the devices
// with the same input and filter arguments.
type deviceStream struct {
	id          string
	command     string
	devices     DeviceConfig
	constraints ports.CaptureConstraints

	mu     sync.Mutex
	closed bool
}

func (s *deviceStream) ID() string { return s.id }

func (s *deviceStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *deviceStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *deviceStream) inputArgs() []string {
	args := []string{"-f", s.devices.VideoFormat}
	if s.constraints.FrameRate > 0 {
		args = append(args, "-framerate", strconv.Itoa(s.constraints.FrameRate))
	}
	args = append(args,
		"-i", s.devices.VideoDevice,
		"-f", s.devices.AudioFormat,
		"-i", s.devices.AudioDevice,
	)

	if s.constraints.Width > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:-2", s.constraints.Width))
	}
	var audioFilters []string
	if s.constraints.NoiseSuppression {
		audioFilters = append(audioFilters, "afftdn")
	}
	if s.constraints.AutoGainControl {
		audioFilters = append(audioFilters, "dynaudnorm")
	}
	if len(audioFilters) > 0 {
		args = append(args, "-af", strings.Join(audioFilters, ","))
	}
	return args
}
