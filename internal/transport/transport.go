// SPDX-License-Identifier: MIT
//
// Package transport publishes processing snapshots to external
// visualization clients. A single Publisher goroutine polls the latest
// snapshot at the display rate and fans a Frame out to every configured
// sink; sinks never touch the audio hot path.
package transport

import (
	"github.com/FueledByRedBull/audio-spectrum-live/internal/audio"
)

// Transport is a sink for published frames.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// SnapshotSource yields the most recent processing result without
// blocking. *audio.Processor satisfies this.
type SnapshotSource interface {
	Snapshot() *audio.Snapshot
}

// Frame is the wire view of a snapshot. Waveforms are omitted; clients
// visualize spectra and engine status.
type Frame struct {
	Sequence    uint64 `json:"seq"`
	TimestampNS int64  `json:"ts"`

	BinWidth   float64 `json:"bin_width"`
	SampleRate float64 `json:"sample_rate"`

	FilterLength int  `json:"filter_length"`
	GroupDelay   int  `json:"group_delay"`
	Bypassed     bool `json:"bypassed"`
	GateOpen     bool `json:"gate_open"`

	Dropped uint64 `json:"dropped"`

	InputSpectrum    []float64 `json:"input_spectrum"`
	FilteredSpectrum []float64 `json:"filtered_spectrum"`

	Error string `json:"error,omitempty"`
}

// NewFrame converts a snapshot into its wire view. The spectra slices
// are shared with the snapshot, which is safe because snapshots are
// immutable once published.
func NewFrame(s *audio.Snapshot) *Frame {
	f := &Frame{
		Sequence:         s.Sequence,
		TimestampNS:      s.Time.UnixNano(),
		BinWidth:         s.BinWidth,
		SampleRate:       s.SampleRate,
		FilterLength:     s.FilterLength,
		GroupDelay:       s.GroupDelay,
		Bypassed:         s.Bypassed,
		GateOpen:         s.GateOpen,
		Dropped:          s.Dropped,
		InputSpectrum:    s.InputSpectrum,
		FilteredSpectrum: s.FilteredSpectrum,
	}
	if s.Err != nil {
		f.Error = s.Err.Error()
	}
	return f
}
