// SPDX-License-Identifier: MIT
package audio

import (
	"github.com/gordonklaus/portaudio"

	"github.com/FueledByRedBull/audio-spectrum-live/internal/config"
)

// openCaptureStream opens a mono float32 input stream at the required
// rate. The callback runs on the audio thread; it must not allocate,
// lock or block.
func openCaptureStream(device *portaudio.DeviceInfo, cfg *config.Config, callback func([]float32)) (*portaudio.Stream, error) {
	latency := device.DefaultHighInputLatency
	if cfg.Audio.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   device,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // capture only
			Device:   nil,
		},
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		SampleRate:      config.RequiredSampleRate,
	}

	return portaudio.OpenStream(params, callback)
}
