// Package config loads focusd configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the root configuration for the focusd daemon.
type Config struct {
	LogLevel   string           `koanf:"log_level"`
	Camera     CameraConfig     `koanf:"camera"`
	Detector   DetectorConfig   `koanf:"detector"`
	Focus      FocusConfig      `koanf:"focus"`
	Screen     ScreenConfig     `koanf:"screen"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Storage    StorageConfig    `koanf:"storage"`
	Server     ServerConfig     `koanf:"server"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// CameraConfig controls webcam capture.
type CameraConfig struct {
	// Devices are the capture device indices tried in order at startup.
	Devices []int `koanf:"devices"`
	// FlipHorizontal mirrors the frame so yaw reads like a mirror.
	FlipHorizontal bool `koanf:"flip_horizontal"`
	// MaxReadFailures is how many consecutive failed frame reads are
	// tolerated before the camera is declared lost.
	MaxReadFailures int `koanf:"max_read_failures"`
}

// DetectorConfig controls the facial landmark detector models.
type DetectorConfig struct {
	FaceModelPath string  `koanf:"face_model_path"`
	MeshModelPath string  `koanf:"mesh_model_path"`
	MinConfidence float64 `koanf:"min_confidence"`
}

// FocusConfig holds the focus state machine thresholds. These are
// empirically tuned defaults, not derived values; treat them as
// calibration candidates.
type FocusConfig struct {
	YawThreshold        float64 `koanf:"yaw_threshold"`
	PitchThreshold      float64 `koanf:"pitch_threshold"`
	ExtremeYawThreshold float64 `koanf:"extreme_yaw_threshold"`
	ExtremePitchThresh  float64 `koanf:"extreme_pitch_threshold"`
	EARThreshNormal     float64 `koanf:"ear_threshold_normal"`
	EARThreshTilted     float64 `koanf:"ear_threshold_tilted"`
	EARConsecFrames     int     `koanf:"ear_consec_frames"`
	HistorySize         int     `koanf:"history_size"`
}

// ScreenConfig controls the window/OCR context producer.
type ScreenConfig struct {
	// Interval is the context sampling period and the end-to-end
	// analysis cadence.
	Interval   time.Duration `koanf:"interval"`
	OCREnabled bool          `koanf:"ocr_enabled"`
	OCRTimeout time.Duration `koanf:"ocr_timeout"`
}

// ClassifierConfig points at the external model server. With an empty
// BaseURL the static fallback classifiers are used instead.
type ClassifierConfig struct {
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// StorageConfig controls the sqlite activity store.
type StorageConfig struct {
	Path string `koanf:"path"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port int `koanf:"port"`
}

// SupervisorConfig controls worker process lifecycle bounds.
type SupervisorConfig struct {
	ReadyTimeout time.Duration `koanf:"ready_timeout"`
	StopTimeout  time.Duration `koanf:"stop_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Camera: CameraConfig{
			Devices:         []int{0, 1},
			FlipHorizontal:  true,
			MaxReadFailures: 100,
		},
		Detector: DetectorConfig{
			FaceModelPath: "models/face_detection_yunet.onnx",
			MeshModelPath: "models/face_mesh.onnx",
			MinConfidence: 0.5,
		},
		Focus: FocusConfig{
			YawThreshold:        30,
			PitchThreshold:      30,
			ExtremeYawThreshold: 160,
			ExtremePitchThresh:  70,
			EARThreshNormal:     0.18,
			EARThreshTilted:     0.26,
			EARConsecFrames:     3,
			HistorySize:         30,
		},
		Screen: ScreenConfig{
			Interval:   5 * time.Second,
			OCREnabled: true,
			OCRTimeout: 2500 * time.Millisecond,
		},
		Classifier: ClassifierConfig{
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Path: "focusd.db",
		},
		Server: ServerConfig{
			Port: 5000,
		},
		Supervisor: SupervisorConfig{
			ReadyTimeout: 90 * time.Second,
			StopTimeout:  5 * time.Second,
		},
	}
}

// Load reads configuration from the given yaml file (optional) with
// FOCUSD_* environment variables taking precedence. A missing file is
// not an error; defaults fill everything else.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("FOCUSD_", ".", envKeyToPath), nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Screen.Interval <= 0 {
		return fmt.Errorf("screen.interval must be positive, got %v", c.Screen.Interval)
	}
	if c.Focus.HistorySize <= 0 {
		return fmt.Errorf("focus.history_size must be positive, got %d", c.Focus.HistorySize)
	}
	if c.Focus.EARConsecFrames <= 0 {
		return fmt.Errorf("focus.ear_consec_frames must be positive, got %d", c.Focus.EARConsecFrames)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}
