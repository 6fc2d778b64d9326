package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"camclip/internal/ports"
)

const (
	defaultChunkSize = 32 * 1024
	startGrace       = 250 * time.Millisecond
	stopGrace        = 1200 * time.Millisecond
)

var ErrUnsupportedMIMEType = errors.New("unsupported recording mime type")

var containerArgs = map[string][]string{
	"video/webm": {
		"-c:v", "libvpx", "-deadline", "realtime",
		"-c:a", "libopus",
		"-f", "webm",
	},
	"video/mp4": {
		"-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-movflags", "frag_keyframe+empty_moov+default_base_moof",
		"-f", "mp4",
	},
}

// FFMPEGEncoderFactory encodes capture streams from FFMPEGCapture by piping
// ffmpeg's muxed output.
type FFMPEGEncoderFactory struct {
	chunkSize int
	logger    *zap.Logger
}

func NewFFMPEGEncoderFactory(chunkSize int, logger *zap.Logger) *FFMPEGEncoderFactory {
	if chunkSize < 256 {
		chunkSize = defaultChunkSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFMPEGEncoderFactory{chunkSize: chunkSize, logger: logger}
}

func (f *FFMPEGEncoderFactory) NewEncoder(stream ports.CaptureStream, opts ports.EncoderOptions) (ports.Encoder, error) {
	source, ok := stream.(*deviceStream)
	if !ok || source == nil {
		return nil, fmt.Errorf("ffmpeg encoder needs an ffmpeg capture stream, got %T", stream)
	}
	if source.isClosed() {
		return nil, ErrStreamClosed
	}
	args, err := encoderArgs(source, opts)
	if err != nil {
		return nil, err
	}
	return &ffmpegEncoder{
		command:   source.command,
		args:      args,
		chunkSize: f.chunkSize,
		logger:    f.logger.With(zap.String("stream", source.id), zap.String("mime_type", opts.MIMEType)),
		data:      make(chan []byte, 16),
		done:      make(chan struct{}),
		killed:    make(chan struct{}),
	}, nil
}

func encoderArgs(source *deviceStream, opts ports.EncoderOptions) ([]string, error) {
	container, ok := containerArgs[opts.MIMEType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMIMEType, opts.MIMEType)
	}

	args := []string{"-nostdin", "-hide_banner", "-loglevel", "warning"}
	args = append(args, source.inputArgs()...)
	args = append(args, container...)
	if opts.VideoBitsPerSecond > 0 {
		args = append(args, "-b:v", strconv.Itoa(opts.VideoBitsPerSecond))
	}
	if opts.AudioBitsPerSecond > 0 {
		args = append(args, "-b:a", strconv.Itoa(opts.AudioBitsPerSecond))
	}
	return append(args, "-"), nil
}

type ffmpegEncoder struct {
	command   string
	args      []string
	chunkSize int
	logger    *zap.Logger

	cmd    *exec.Cmd
	stderr bytes.Buffer
	data   chan []byte
	done   chan struct{}
	// killed is closed once Stop gives up on ffmpeg; pending output is dropped.
	killed chan struct{}

	errMu sync.Mutex
	err   error

	stopRequested atomic.Bool
	stopOnce      sync.Once
	stopErr       error
}

func (e *ffmpegEncoder) Start() error {
	cmd := exec.Command(e.command, e.args...)
	cmd.Stderr = &e.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	e.cmd = cmd

	go e.readLoop(stdout)

	select {
	case <-e.done:
		if err := e.Err(); err != nil {
			return fmt.Errorf("ffmpeg exited before recording started: %w", err)
		}
		return errors.New("ffmpeg exited before recording started")
	case <-time.After(startGrace):
	}

	e.logger.Debug("ffmpeg encoder started", zap.Int("pid", cmd.Process.Pid))
	return nil
}

// readLoop forwards stdout in order and closes Data once ffmpeg has exited.
func (e *ffmpegEncoder) readLoop(stdout io.Reader) {
	defer close(e.done)
	defer close(e.data)

	var readErr error
	buf := make([]byte, e.chunkSize)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case e.data <- chunk:
			case <-e.killed:
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				readErr = err
			}
			break
		}
	}

	waitErr := e.cmd.Wait()
	if readErr != nil {
		e.setErr(readErr)
		return
	}
	// ffmpeg exits non-zero after an interrupt even when the trailer was written.
	if waitErr != nil && !e.stopRequested.Load() {
		e.setErr(fmt.Errorf("%w: %s", waitErr, stringsTrimSpaceSafe(e.stderr.String())))
	}
}

// Stop asks ffmpeg to write its trailer and exit, killing it after a grace
// period.
func (e *ffmpegEncoder) Stop() error {
	e.stopRequested.Store(true)
	e.stopOnce.Do(func() {
		if e.cmd == nil || e.cmd.Process == nil {
			return
		}
		_ = e.cmd.Process.Signal(os.Interrupt)

		select {
		case <-e.done:
		case <-time.After(stopGrace):
			e.logger.Warn("ffmpeg did not exit after interrupt, killing")
			if err := e.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				e.stopErr = err
			}
			close(e.killed)
		}
	})
	return e.stopErr
}

func (e *ffmpegEncoder) Data() <-chan []byte { return e.data }

func (e *ffmpegEncoder) Err() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

func (e *ffmpegEncoder) setErr(err error) {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	e.err = err
}

func stringsTrimSpaceSafe(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}
