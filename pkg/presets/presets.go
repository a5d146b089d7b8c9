// SPDX-License-Identifier: MIT
//
// Package presets holds a static table of named filter designs for the
// CLI and external callers. Frequencies are normalized to Nyquist at
// the engine's 48 kHz rate (1.0 = 24 kHz).
package presets

import (
	"sort"
	"strings"

	"github.com/FueledByRedBull/audio-spectrum-live/internal/dsp/filter"
	"github.com/FueledByRedBull/audio-spectrum-live/internal/dsp/window"
)

// Preset is a named, documented filter design.
type Preset struct {
	Name        string
	Description string
	Spec        filter.Spec
}

var table = []Preset{
	{
		Name:        "reference",
		Description: "Mid-band reference bandpass (9-15 kHz), the classic design exercise",
		Spec: filter.Spec{
			Type:            filter.Bandpass,
			LowCutoff:       0.375,
			HighCutoff:      0.625,
			TransitionWidth: 0.05,
			Window:          window.Hamming,
		},
	},
	{
		Name:        "voice-band",
		Description: "Telephony voice band, 300-3400 Hz with a sharp 50 Hz transition",
		Spec: filter.Spec{
			Type:            filter.Bandpass,
			LowCutoff:       0.0125,
			HighCutoff:      0.1417,
			TransitionWidth: 0.0021,
			Window:          window.Hamming,
		},
	},
	{
		Name:        "bass",
		Description: "Lowpass keeping everything under 250 Hz",
		Spec: filter.Spec{
			Type:            filter.Lowpass,
			HighCutoff:      0.0104,
			TransitionWidth: 0.005,
			Window:          window.Hamming,
		},
	},
	{
		Name:        "treble",
		Description: "Highpass keeping everything above 4 kHz",
		Spec: filter.Spec{
			Type:            filter.Highpass,
			LowCutoff:       0.1667,
			TransitionWidth: 0.01,
			Window:          window.Hamming,
		},
	},
	{
		Name:        "notch-probe",
		Description: "Narrow 900-1100 Hz bandpass for isolating a test tone",
		Spec: filter.Spec{
			Type:            filter.Bandpass,
			LowCutoff:       0.0375,
			HighCutoff:      0.0458,
			TransitionWidth: 0.0042,
			Window:          window.Blackman,
		},
	},
	{
		Name:        "wideband",
		Description: "Gentle 200 Hz - 20 kHz bandpass removing rumble and ultrasonics",
		Spec: filter.Spec{
			Type:            filter.Bandpass,
			LowCutoff:       0.0083,
			HighCutoff:      0.8333,
			TransitionWidth: 0.02,
			Window:          window.Hann,
		},
	},
	{
		Name:        "voice-clarity",
		Description: "Speech intelligibility band, 300 Hz - 5 kHz",
		Spec: filter.Spec{
			Type:            filter.Bandpass,
			LowCutoff:       0.0125,
			HighCutoff:      0.2083,
			TransitionWidth: 0.005,
			Window:          window.Hamming,
		},
	},
	{
		Name:        "voice-clarity-deep",
		Description: "Speech band with a Blackman window for deeper stopband rejection",
		Spec: filter.Spec{
			Type:            filter.Bandpass,
			LowCutoff:       0.0125,
			HighCutoff:      0.2083,
			TransitionWidth: 0.0083,
			Window:          window.Blackman,
		},
	},
}

// All returns the preset table in declaration order. Callers get a
// copy; the table itself is immutable.
func All() []Preset {
	out := make([]Preset, len(table))
	copy(out, table)
	return out
}

// Lookup finds a preset by name, case-insensitively.
func Lookup(name string) (Preset, bool) {
	for _, p := range table {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}

// Names returns all preset names sorted alphabetically.
func Names() []string {
	names := make([]string, len(table))
	for i, p := range table {
		names[i] = p.Name
	}
	sort.Strings(names)
	return names
}
