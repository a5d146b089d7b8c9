// SPDX-License-Identifier: MIT
//
// Package window generates window coefficient sequences used both by the
// FIR filter designer (impulse-response truncation) and the spectrum
// analyzer (leakage reduction). Keeping one implementation guarantees the
// two stages agree on the exact coefficients.
package window

import (
	"fmt"
	"math"
	"strings"
)

// Type identifies a window function.
type Type int

const (
	Rectangular Type = iota
	Hann
	Hamming
	Blackman
)

func (t Type) String() string {
	switch t {
	case Rectangular:
		return "Rectangular"
	case Hann:
		return "Hann"
	case Hamming:
		return "Hamming"
	case Blackman:
		return "Blackman"
	default:
		return "Unknown"
	}
}

// Parse converts a window name (case-insensitive) to its Type.
func Parse(name string) (Type, error) {
	switch strings.ToLower(name) {
	case "rectangular", "rect", "boxcar":
		return Rectangular, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	default:
		return Rectangular, fmt.Errorf("window: unknown window type %q", name)
	}
}

// LengthFactor returns the mainlobe width factor K such that a filter
// designed with transition width Δω needs M = ceil(K/Δω) taps
// (Oppenheim & Schafer, table 7.1). K is in radians: 4π for
// Rectangular, 8π for Hann/Hamming, 12π for Blackman.
func (t Type) LengthFactor() float64 {
	switch t {
	case Rectangular:
		return 4 * math.Pi
	case Blackman:
		return 12 * math.Pi
	default: // Hann, Hamming
		return 8 * math.Pi
	}
}

// StopbandDB returns the approximate stopband attenuation the window
// achieves in a windowed-sinc design, in dB (negative).
func (t Type) StopbandDB() float64 {
	switch t {
	case Rectangular:
		return -21
	case Hann:
		return -44
	case Hamming:
		return -53
	case Blackman:
		return -74
	default:
		return 0
	}
}

// Coefficients fills dst with the symmetric window of length len(dst).
// A length-1 window degenerates to w[0] = 1 for every type. The fill is
// allocation-free so hot paths can reuse a workspace slice.
func Coefficients(dst []float64, t Type) {
	m := len(dst)
	if m == 0 {
		return
	}
	if m == 1 {
		dst[0] = 1
		return
	}

	den := float64(m - 1)
	switch t {
	case Hann:
		for n := range dst {
			dst[n] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(n)/den)
		}
	case Hamming:
		for n := range dst {
			dst[n] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(n)/den)
		}
	case Blackman:
		for n := range dst {
			angle := 2 * math.Pi * float64(n) / den
			dst[n] = 0.42 - 0.5*math.Cos(angle) + 0.08*math.Cos(2*angle)
		}
	default: // Rectangular
		for n := range dst {
			dst[n] = 1
		}
	}
}

// Make returns a freshly allocated window of length m.
func Make(t Type, m int) []float64 {
	w := make([]float64, m)
	Coefficients(w, t)
	return w
}
