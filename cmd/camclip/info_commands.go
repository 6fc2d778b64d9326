package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"camclip/internal/config"
	"camclip/internal/profile"
)

func newProfilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List recorder profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(profile.Names()))
			for _, name := range profile.Names() {
				p, err := profile.Lookup(name)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					p.Name,
					dimension(p.Constraints.Width),
					dimension(p.Constraints.FrameRate),
					p.PreviewSurface(),
					p.PlaybackSurface(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Profile", "Width", "FPS", "Preview", "Playback"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			rows := [][]string{
				{"recorder.profile", cfg.Recorder.Profile},
				{"recorder.countdown_seconds", strconv.Itoa(cfg.Recorder.CountdownSeconds)},
				{"recorder.audio_bits_per_second", humanize.Comma(int64(cfg.Recorder.AudioBitsPerSecond))},
				{"recorder.video_bits_per_second", humanize.Comma(int64(cfg.Recorder.VideoBitsPerSecond))},
				{"recorder.finalize_timeout", cfg.Recorder.FinalizeTimeout().String()},
				{"capture.ffmpeg_command", cfg.Capture.FFMPEGCommand},
				{"capture.video", cfg.Capture.VideoFormat + ":" + cfg.Capture.VideoDevice},
				{"capture.audio", cfg.Capture.AudioFormat + ":" + cfg.Capture.AudioDevice},
				{"capture.chunk_size", humanize.IBytes(uint64(cfg.Capture.ChunkSize))},
				{"log.level", cfg.Log.Level},
				{"log.dir", valueOrDash(cfg.Log.Dir)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Value"}, rows, nil))
			return nil
		},
	}
}

func dimension(value int) string {
	if value <= 0 {
		return "auto"
	}
	return strconv.Itoa(value)
}
