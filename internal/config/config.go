// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FueledByRedBull/audio-spectrum-live/pkg/bitint"
)

// Engine constants. These define the fixed contract between the capture
// callback, the processing goroutine and the DSP stages.
const (
	// RequiredSampleRate is the only sample rate the engine accepts.
	// Start is rejected when the input device reports anything else.
	RequiredSampleRate = 48000.0

	// DefaultFFTSize is the fixed analysis size of the spectrum analyzer.
	DefaultFFTSize = 2048

	// DefaultRingCapacity is the capture ring buffer capacity in samples
	// (~680ms at 48kHz), sized so a stalled display frame never starves
	// the producer.
	DefaultRingCapacity = 32768

	// MaxBlockSize caps the samples drained from the ring per processing
	// cycle and the waveform length published in a snapshot.
	MaxBlockSize = 4096

	// DefaultFramesPerBuffer keeps callback latency under 3ms at 48kHz.
	DefaultFramesPerBuffer = 128

	// MinDeviceID (-1) selects the system default input device.
	MinDeviceID = -1
)

// Config is the main application configuration, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Verbose logging and debug features.
	LogLevel  string          `yaml:"log_level"` // "debug", "info", "warn", "error".
	Audio     AudioConfig     `yaml:"audio"`     // Capture and processing settings.
	Transport TransportConfig `yaml:"transport"` // Snapshot publishing settings.
}

// AudioConfig holds capture and DSP settings.
type AudioConfig struct {
	InputDevice     int    `yaml:"input_device"`      // PortAudio device index (-1 for default).
	FramesPerBuffer int    `yaml:"frames_per_buffer"` // Capture callback block size.
	LowLatency      bool   `yaml:"low_latency"`       // Request the device's low-latency setting.
	RingCapacity    int    `yaml:"ring_capacity"`     // Capture ring buffer capacity in samples.
	FFTSize         int    `yaml:"fft_size"`          // Spectrum analysis size (power of 2).
	AnalysisWindow  string `yaml:"analysis_window"`   // Window for spectrum analysis (e.g. "Hamming").
	Monitoring      bool   `yaml:"monitoring"`        // Play the filtered signal on the output device.

	// Noise gate (applied ahead of the user filter when enabled).
	GateEnabled     bool    `yaml:"gate_enabled"`
	GateThresholdDB float64 `yaml:"gate_threshold_db"`
	GateAttackMS    float64 `yaml:"gate_attack_ms"`
	GateReleaseMS   float64 `yaml:"gate_release_ms"`
}

// TransportConfig holds settings for publishing snapshots to external
// visualization clients.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"` // Serve spectrum frames over WebSocket.
	WebSocketAddr    string        `yaml:"websocket_addr"`    // Listen address, e.g. ":8080".
	UDPEnabled       bool          `yaml:"udp_enabled"`       // Send binary spectrum packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"`
	PublishInterval  time.Duration `yaml:"publish_interval"` // Snapshot poll period (~60Hz default).
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     MinDeviceID,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      true,
			RingCapacity:    DefaultRingCapacity,
			FFTSize:         DefaultFFTSize,
			AnalysisWindow:  "Hamming",
			Monitoring:      false,
			GateEnabled:     false,
			GateThresholdDB: -40.0,
			GateAttackMS:    10.0,
			GateReleaseMS:   100.0,
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddr:    ":8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			PublishInterval:  16 * time.Millisecond, // ~60Hz display rate.
		},
	}
}

// Load reads configuration from the YAML file at path. An empty path
// falls back to "config.yaml" in the working directory, or to the
// built-in defaults when no file exists. Environment overrides are
// applied after loading, then the result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		} else {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if !bitint.IsPowerOfTwo(c.Audio.FFTSize) {
		return fmt.Errorf("audio.fft_size must be a power of 2, got %d", c.Audio.FFTSize)
	}
	if c.Audio.FramesPerBuffer <= 0 || c.Audio.FramesPerBuffer > MaxBlockSize {
		return fmt.Errorf("audio.frames_per_buffer must be in (0, %d], got %d", MaxBlockSize, c.Audio.FramesPerBuffer)
	}
	if c.Audio.RingCapacity < c.Audio.FramesPerBuffer {
		return fmt.Errorf("audio.ring_capacity %d is smaller than frames_per_buffer %d", c.Audio.RingCapacity, c.Audio.FramesPerBuffer)
	}
	if c.Transport.PublishInterval <= 0 {
		return fmt.Errorf("transport.publish_interval must be positive, got %s", c.Transport.PublishInterval)
	}
	if c.Transport.UDPEnabled && c.Transport.UDPTargetAddress == "" {
		return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
	}
	return nil
}

// applyEnvOverrides lets SPECTRUM_* environment variables override the
// loaded configuration, mirroring how container deployments tune the
// transport without editing the file.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("SPECTRUM_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
		}
	}
	if val, ok := os.LookupEnv("SPECTRUM_WS_ADDR"); ok {
		c.Transport.WebSocketEnabled = true
		c.Transport.WebSocketAddr = val
	}
	if val, ok := os.LookupEnv("SPECTRUM_UDP_TARGET"); ok {
		c.Transport.UDPEnabled = true
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("SPECTRUM_PUBLISH_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.PublishInterval = dur
		}
	}
}
