package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"camclip/internal/assets"
	"camclip/internal/domain"
	"camclip/internal/profile"
)

// terminal renders session events as lines of text and plays finished clips
// with ffplay.
type terminal struct {
	out      io.Writer
	colorize bool

	mu     sync.Mutex
	store  *assets.Store
	player string
	logger *zap.Logger
}

func newTerminal(out io.Writer, colorize bool) *terminal {
	return &terminal{out: out, colorize: colorize, logger: zap.NewNop()}
}

func (t *terminal) attach(store *assets.Store, player string, logger *zap.Logger) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.store = store
	t.player = player
	if logger != nil {
		t.logger = logger.Named("terminal")
	}
}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func (t *terminal) paint(colors text.Colors, s string) string {
	if !t.colorize {
		return s
	}
	return colors.Sprint(s)
}

func (t *terminal) SessionStateChanged(state domain.RecordingState, reason domain.StateReason) {
	t.printf("%s %s (%s)\n", t.paint(text.Colors{text.Bold}, "state:"), state, reason)
}

func (t *terminal) CountdownTick(countdown domain.Countdown) {
	t.printf("  %s\n", t.paint(severityColors(countdown.Severity), countdown.Display))
}

func (t *terminal) RecordingSubmitted(result domain.SubmitResult) {
	t.printf("submitted %s %s\n", humanize.IBytes(uint64(result.Bytes)), result.MIMEType)
}

func (t *terminal) SessionError(code domain.ErrorCode, detail string) {
	t.printf("%s %s\n", t.paint(text.Colors{text.FgRed}, "error ("+string(code)+"):"), detail)
}

func (t *terminal) Notify(message string) {
	t.printf("%s\n", t.paint(text.Colors{text.Bold}, message))
}

func (t *terminal) Show(view domain.SurfaceView) {
	switch {
	case view.Kind == domain.SurfaceKindLive:
		t.printf("[%s] live camera\n", view.Surface)
	case view.Source == "":
		t.printf("[%s] cleared\n", view.Surface)
	default:
		t.printf("[%s] recording ready, p to play\n", view.Surface)
	}
}

// Play writes the recording to a temporary file and opens it in ffplay.
func (t *terminal) Play(view domain.SurfaceView) error {
	t.mu.Lock()
	store, player, logger := t.store, t.player, t.logger
	t.mu.Unlock()
	if store == nil || player == "" {
		return errors.New("no player configured")
	}

	asset, ok := store.Lookup(domain.AssetRef(view.Source))
	if !ok {
		return fmt.Errorf("recording %s is no longer available", view.Source)
	}

	file, err := os.CreateTemp("", "camclip-*"+extensionFor(asset.MIMEType))
	if err != nil {
		return err
	}
	if _, err := file.Write(asset.Data); err != nil {
		file.Close()
		os.Remove(file.Name())
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return err
	}

	args := []string{"-autoexit", "-loglevel", "error", "-window_title", "camclip"}
	if view.Muted {
		args = append(args, "-an")
	}
	cmd := exec.Command(player, append(args, file.Name())...)
	if err := cmd.Start(); err != nil {
		os.Remove(file.Name())
		return fmt.Errorf("start %s: %w", player, err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Debug("player exited", zap.Error(err))
		}
		os.Remove(file.Name())
	}()
	return nil
}

func (t *terminal) printStatus(status domain.Status) {
	rows := [][]string{
		{"State", string(status.State)},
		{"Countdown", t.paint(severityColors(status.Countdown.Severity), status.Countdown.Display)},
		{"Chunks", fmt.Sprintf("%d", status.Chunks)},
		{"Size", humanize.IBytes(uint64(status.Bytes))},
		{"Container", valueOrDash(status.MIMEType)},
		{"Recording", valueOrDash(string(status.AssetRef))},
		{"Camera", fmt.Sprintf("%t", status.Ready)},
	}
	t.printf("%s\n", renderTable([]string{"Field", "Value"}, rows, nil))
}

func (t *terminal) printHelp() {
	t.printf("commands: r record, s stop, p play, u submit, d delete, a abort, i status, q quit\n")
}

func severityColors(severity domain.Severity) text.Colors {
	switch severity {
	case domain.SeverityCritical:
		return text.Colors{text.FgRed, text.Bold}
	case domain.SeverityWarning:
		return text.Colors{text.FgYellow}
	default:
		return text.Colors{text.FgGreen}
	}
}

func extensionFor(mimeType string) string {
	if mimeType == profile.MIMETypeMP4 {
		return ".mp4"
	}
	return ".webm"
}

func valueOrDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
