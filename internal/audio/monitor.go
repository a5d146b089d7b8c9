// SPDX-License-Identifier: MIT
package audio

import (
	"errors"

	"github.com/gordonklaus/portaudio"

	"github.com/FueledByRedBull/audio-spectrum-live/internal/buffer"
	"github.com/FueledByRedBull/audio-spectrum-live/internal/config"
	"github.com/FueledByRedBull/audio-spectrum-live/internal/log"
)

// Monitor plays the filtered signal on the default output device. It
// receives blocks from the processing goroutine through its own ring
// and paces playback with blocking writes, padding with silence when
// the processor falls behind so the output never stalls.
type Monitor struct {
	ring *buffer.Ring[float64]
	out  []float32 // blocking-write buffer registered with PortAudio

	stream  *portaudio.Stream
	onFatal func(error) // invoked when the output stream dies

	stop chan struct{}
	done chan struct{}
}

// NewMonitor builds a stopped monitor sized to the capture config.
func NewMonitor(cfg *config.Config) (*Monitor, error) {
	ring, err := buffer.New[float64](cfg.Audio.RingCapacity)
	if err != nil {
		return nil, &ConfigError{Op: "create monitor ring", Err: err}
	}
	return &Monitor{
		ring: ring,
		out:  make([]float32, cfg.Audio.FramesPerBuffer),
	}, nil
}

// Push hands a filtered block to the playback goroutine. Never blocks;
// overruns drop the oldest queued audio.
func (m *Monitor) Push(block []float64) {
	m.ring.Write(block)
}

// Start opens the default output device and spawns the playback
// goroutine.
func (m *Monitor) Start() error {
	stream, err := portaudio.OpenDefaultStream(0, 1, config.RequiredSampleRate, len(m.out), &m.out)
	if err != nil {
		return &DeviceError{Device: "default output", Op: "open", Err: err}
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return &DeviceError{Device: "default output", Op: "start", Err: err}
	}
	m.stream = stream
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.writeLoop()

	log.Infof("monitoring on default output, %d frames/buffer", len(m.out))
	return nil
}

// writeLoop drains the monitor ring into the output stream. The
// blocking Write paces the loop at the device rate.
func (m *Monitor) writeLoop() {
	defer close(m.done)
	block := make([]float64, len(m.out))
	for {
		select {
		case <-m.stop:
			return
		default:
		}

		n := m.ring.Read(block)
		for i := range m.out {
			if i < n {
				m.out[i] = float32(block[i])
			} else {
				m.out[i] = 0
			}
		}

		if err := m.stream.Write(); err != nil {
			if errors.Is(err, portaudio.OutputUnderflowed) {
				continue
			}
			if m.onFatal != nil {
				m.onFatal(&DeviceError{Device: "default output", Op: "write", Err: err})
			}
			return
		}
	}
}

// Stop tears the playback goroutine and stream down. Safe when the
// loop already exited on a fatal write error.
func (m *Monitor) Stop() error {
	if m.stream == nil {
		return nil
	}
	close(m.stop)
	<-m.done

	var firstErr error
	if err := m.stream.Stop(); err != nil {
		firstErr = &DeviceError{Device: "default output", Op: "stop", Err: err}
	}
	if err := m.stream.Close(); err != nil && firstErr == nil {
		firstErr = &DeviceError{Device: "default output", Op: "close", Err: err}
	}
	m.stream = nil
	return firstErr
}
