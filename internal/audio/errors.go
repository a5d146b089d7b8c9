// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"

	"github.com/FueledByRedBull/audio-spectrum-live/internal/config"
)

// ErrSampleRateMismatch reports a device that cannot run at the
// required capture rate. The engine refuses to open such devices rather
// than resample.
var ErrSampleRateMismatch = errors.New("audio: device does not support the required sample rate")

// ConfigError wraps a rejected configuration value with the operation
// that rejected it. Matchable with errors.Is against the sentinel it
// wraps.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("audio: %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DeviceError wraps a failure from the audio host layer (open, start,
// stop) with the device name for diagnostics.
type DeviceError struct {
	Device string
	Op     string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio: device %q: %s: %v", e.Device, e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// verifyDeviceRate checks a device's default rate against the engine's
// required rate. Kept as a pure function so the policy is testable
// without PortAudio.
func verifyDeviceRate(deviceRate float64) error {
	if deviceRate != config.RequiredSampleRate {
		return &ConfigError{
			Op: "verify sample rate",
			Err: fmt.Errorf("%w: device default %.0f Hz, need %.0f Hz",
				ErrSampleRateMismatch, deviceRate, config.RequiredSampleRate),
		}
	}
	return nil
}
