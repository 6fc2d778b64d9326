package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"camclip/internal/ports"
)

func TestFFMPEGCaptureAcquire(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "ffmpeg", "#!/usr/bin/env bash\nexit 0\n")
	capture := NewFFMPEGCapture(DeviceConfig{Command: script, VideoFormat: "lavfi", VideoDevice: "testsrc"}, nil)

	stream, err := capture.Acquire(context.Background(), ports.CaptureConstraints{})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if !strings.HasPrefix(stream.ID(), "capture-") {
		t.Fatalf("unexpected stream id %q", stream.ID())
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !stream.(*deviceStream).isClosed() {
		t.Fatalf("expected stream to be closed")
	}
}

func TestFFMPEGCaptureMissingCommand(t *testing.T) {
	t.Parallel()

	capture := NewFFMPEGCapture(DeviceConfig{Command: filepath.Join(t.TempDir(), "missing-ffmpeg")}, nil)
	_, err := capture.Acquire(context.Background(), ports.CaptureConstraints{})
	if err == nil || !strings.Contains(err.Error(), "ffmpeg is not available") {
		t.Fatalf("expected missing ffmpeg error, got %v", err)
	}
}

func TestFFMPEGCaptureMissingVideoDevice(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "ffmpeg", "#!/usr/bin/env bash\nexit 0\n")
	capture := NewFFMPEGCapture(DeviceConfig{Command: script, VideoDevice: "/dev/camclip-missing-video"}, nil)
	_, err := capture.Acquire(context.Background(), ports.CaptureConstraints{})
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected missing device error, got %v", err)
	}
}

func TestFFMPEGCaptureCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFFMPEGCapture(DeviceConfig{}, nil).Acquire(ctx, ports.CaptureConstraints{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestDeviceStreamInputArgs(t *testing.T) {
	t.Parallel()

	stream := &deviceStream{
		devices: DeviceConfig{}.withDefaults(),
		constraints: ports.CaptureConstraints{
			EchoCancellation: true,
			NoiseSuppression: true,
			AutoGainControl:  true,
			Width:            200,
			FrameRate:        30,
		},
	}

	got := strings.Join(stream.inputArgs(), " ")
	want := "-f v4l2 -framerate 30 -i /dev/video0 -f pulse -i default -vf scale=200:-2 -af afftdn,dynaudnorm"
	if got != want {
		t.Fatalf("unexpected input args:\n got: %s\nwant: %s", got, want)
	}

	plain := &deviceStream{devices: DeviceConfig{}.withDefaults()}
	if got := strings.Join(plain.inputArgs(), " "); got != "-f v4l2 -i /dev/video0 -f pulse -i default" {
		t.Fatalf("unexpected plain input args: %s", got)
	}
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}
