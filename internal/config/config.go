package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config stores runtime configuration for the recorder.
type Config struct {
	Recorder RecorderConfig `toml:"recorder"`
	Capture  CaptureConfig  `toml:"capture"`
	Log      LogConfig      `toml:"log"`
}

type RecorderConfig struct {
	Profile            string `toml:"profile"`
	CountdownSeconds   int    `toml:"countdown_seconds"`
	AudioBitsPerSecond int    `toml:"audio_bits_per_second"`
	VideoBitsPerSecond int    `toml:"video_bits_per_second"`
	FinalizeTimeoutMS  int    `toml:"finalize_timeout_ms"`
	UserAgent          string `toml:"user_agent"`
}

type CaptureConfig struct {
	FFMPEGCommand string `toml:"ffmpeg_command"`
	FFPlayCommand string `toml:"ffplay_command"`
	VideoFormat   string `toml:"video_format"`
	VideoDevice   string `toml:"video_device"`
	AudioFormat   string `toml:"audio_format"`
	AudioDevice   string `toml:"audio_device"`
	ChunkSize     int    `toml:"chunk_size"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	Dir        string `toml:"dir"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// FinalizeTimeout is how long a stop waits for the encoder to flush.
func (c RecorderConfig) FinalizeTimeout() time.Duration {
	return time.Duration(c.FinalizeTimeoutMS) * time.Millisecond
}

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() Config {
	return Config{
		Recorder: RecorderConfig{
			Profile:            "standard",
			CountdownSeconds:   60,
			AudioBitsPerSecond: 32000,
			VideoBitsPerSecond: 500000,
			FinalizeTimeoutMS:  5000,
		},
		Capture: CaptureConfig{
			FFMPEGCommand: "ffmpeg",
			FFPlayCommand: "ffplay",
			VideoFormat:   "v4l2",
			VideoDevice:   "/dev/video0",
			AudioFormat:   "pulse",
			AudioDevice:   "default",
			ChunkSize:     32 * 1024,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// DefaultPath is where Load looks when CAMCLIP_CONFIG is unset.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("could not determine home directory")
	}
	return filepath.Join(home, ".config", "camclip", "config.toml"), nil
}

// Load resolves configuration from the config file, environment variables and
// sensible defaults, in increasing order of precedence.
func Load() (Config, error) {
	path := strings.TrimSpace(os.Getenv("CAMCLIP_CONFIG"))
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit config path. A missing file is not an
// error.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case err == nil:
			defer file.Close()
			if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("open config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Recorder.Profile = envOrDefault("CAMCLIP_PROFILE", c.Recorder.Profile)
	c.Recorder.CountdownSeconds = envOrDefaultInt("CAMCLIP_COUNTDOWN_SECONDS", c.Recorder.CountdownSeconds)
	c.Recorder.AudioBitsPerSecond = envOrDefaultInt("CAMCLIP_AUDIO_BITS_PER_SECOND", c.Recorder.AudioBitsPerSecond)
	c.Recorder.VideoBitsPerSecond = envOrDefaultInt("CAMCLIP_VIDEO_BITS_PER_SECOND", c.Recorder.VideoBitsPerSecond)
	c.Recorder.FinalizeTimeoutMS = firstNonNegativeInt("CAMCLIP_FINALIZE_TIMEOUT_MS", c.Recorder.FinalizeTimeoutMS)
	c.Recorder.UserAgent = envOrDefault("CAMCLIP_USER_AGENT", c.Recorder.UserAgent)

	c.Capture.FFMPEGCommand = envOrDefault("CAMCLIP_FFMPEG_COMMAND", c.Capture.FFMPEGCommand)
	c.Capture.FFPlayCommand = envOrDefault("CAMCLIP_FFPLAY_COMMAND", c.Capture.FFPlayCommand)
	c.Capture.VideoFormat = envOrDefault("CAMCLIP_VIDEO_INPUT_FORMAT", c.Capture.VideoFormat)
	c.Capture.VideoDevice = envOrDefault("CAMCLIP_VIDEO_INPUT_DEVICE", c.Capture.VideoDevice)
	c.Capture.AudioFormat = envOrDefault("CAMCLIP_AUDIO_INPUT_FORMAT", c.Capture.AudioFormat)
	c.Capture.AudioDevice = firstNonEmpty(
		os.Getenv("CAMCLIP_AUDIO_INPUT_DEVICE"),
		os.Getenv("PULSE_SOURCE"),
		c.Capture.AudioDevice,
	)
	c.Capture.ChunkSize = envOrDefaultInt("CAMCLIP_CHUNK_SIZE", c.Capture.ChunkSize)

	c.Log.Level = envOrDefault("CAMCLIP_LOG_LEVEL", c.Log.Level)
	c.Log.Dir = envOrDefault("CAMCLIP_LOG_DIR", c.Log.Dir)
}

func (c *Config) normalize() {
	defaults := Default()

	c.Recorder.Profile = strings.ToLower(strings.TrimSpace(c.Recorder.Profile))
	if c.Recorder.Profile == "" {
		c.Recorder.Profile = defaults.Recorder.Profile
	}
	if c.Recorder.CountdownSeconds <= 0 || c.Recorder.CountdownSeconds > defaults.Recorder.CountdownSeconds {
		c.Recorder.CountdownSeconds = defaults.Recorder.CountdownSeconds
	}
	if c.Recorder.AudioBitsPerSecond <= 0 {
		c.Recorder.AudioBitsPerSecond = defaults.Recorder.AudioBitsPerSecond
	}
	if c.Recorder.VideoBitsPerSecond <= 0 {
		c.Recorder.VideoBitsPerSecond = defaults.Recorder.VideoBitsPerSecond
	}
	if c.Recorder.FinalizeTimeoutMS <= 0 {
		c.Recorder.FinalizeTimeoutMS = defaults.Recorder.FinalizeTimeoutMS
	}
	if c.Capture.ChunkSize < 256 {
		c.Capture.ChunkSize = defaults.Capture.ChunkSize
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = defaults.Log.MaxSizeMB
	}
	if c.Log.MaxBackups < 0 {
		c.Log.MaxBackups = defaults.Log.MaxBackups
	}
	if strings.HasPrefix(c.Log.Dir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			c.Log.Dir = filepath.Join(home, c.Log.Dir[2:])
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func firstNonNegativeInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
