package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"

	"camclip/internal/assets"
	"camclip/internal/domain"
)

func TestTerminalRendersEvents(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	term := newTerminal(&out, false)

	term.SessionStateChanged(domain.RecordingStateRecording, domain.ReasonRecordingStarted)
	term.CountdownTick(domain.NewCountdown(9))
	term.RecordingSubmitted(domain.NewSubmitResult("video/mp4", 3*512*1024))
	term.Notify("size of the video is 1.50 MB")
	term.SessionError(domain.ErrorCodeCapture, "permission denied")
	term.Show(domain.SurfaceView{Surface: domain.SurfacePreview, Kind: domain.SurfaceKindLive, Source: "capture-1"})
	term.Show(domain.SurfaceView{Surface: domain.SurfacePlayback, Kind: domain.SurfaceKindRecording})
	term.Show(domain.SurfaceView{Surface: domain.SurfacePreview, Kind: domain.SurfaceKindRecording, Source: "blob:1"})

	want := []string{
		"state: recording (recording_started)",
		"  00:09",
		"submitted 1.5 MiB video/mp4",
		"size of the video is 1.50 MB",
		"error (capture): permission denied",
		"[preview] live camera",
		"[playback] cleared",
		"[preview] recording ready, p to play",
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != len(want) {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: got %q want %q", i, lines[i], want[i])
		}
	}
}

func TestTerminalColorizesCountdownBySeverity(t *testing.T) {
	t.Parallel()

	if (text.Colors{text.FgRed}).Sprint("x") == "x" {
		t.Skip("ansi colors disabled in this environment")
	}

	var out bytes.Buffer
	term := newTerminal(&out, true)
	term.CountdownTick(domain.NewCountdown(5))

	if !strings.Contains(out.String(), "\x1b[") || !strings.Contains(out.String(), "00:05") {
		t.Fatalf("expected colored countdown, got %q", out.String())
	}
	if severityColors(domain.SeverityCritical).Sprint("x") == severityColors(domain.SeverityNormal).Sprint("x") {
		t.Fatalf("expected distinct severity colors")
	}
}

func TestTerminalPlayRequiresPublishedRecording(t *testing.T) {
	t.Parallel()

	term := newTerminal(&bytes.Buffer{}, false)
	if err := term.Play(domain.SurfaceView{Source: "blob:1"}); err == nil {
		t.Fatalf("expected error without a player")
	}

	term.attach(assets.NewStore(), "ffplay", nil)
	if err := term.Play(domain.SurfaceView{Source: "blob:missing"}); err == nil {
		t.Fatalf("expected error for revoked recording")
	}
}

func TestTerminalPlayLaunchesPlayer(t *testing.T) {
	t.Parallel()

	store := assets.NewStore()
	ref, err := store.Publish(domain.Asset{MIMEType: "video/mp4", Data: []byte("clip")})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	term := newTerminal(&bytes.Buffer{}, false)
	term.attach(store, "true", nil)
	if err := term.Play(domain.SurfaceView{Source: string(ref), Controls: true}); err != nil {
		t.Fatalf("play failed: %v", err)
	}
}

func TestExtensionFor(t *testing.T) {
	t.Parallel()

	if extensionFor("video/mp4") != ".mp4" || extensionFor("video/webm") != ".webm" {
		t.Fatalf("unexpected extensions")
	}
}
