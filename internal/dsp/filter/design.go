// SPDX-License-Identifier: MIT
//
// Package filter designs linear-phase FIR filters with the windowing
// method: an ideal sinc impulse response truncated and shaped by a
// window function. Designs are deterministic, so applying the same Spec
// twice yields bit-identical coefficients.
package filter

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/FueledByRedBull/audio-spectrum-live/internal/dsp/window"
)

// Type identifies the filter passband shape.
type Type int

const (
	Bandpass Type = iota
	Lowpass
	Highpass
)

func (t Type) String() string {
	switch t {
	case Bandpass:
		return "Bandpass"
	case Lowpass:
		return "Lowpass"
	case Highpass:
		return "Highpass"
	default:
		return "Unknown"
	}
}

// ParseType converts a filter type name (case-insensitive) to its Type.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(name) {
	case "bandpass", "bp":
		return Bandpass, nil
	case "lowpass", "lp":
		return Lowpass, nil
	case "highpass", "hp":
		return Highpass, nil
	default:
		return Bandpass, fmt.Errorf("filter: unknown filter type %q", name)
	}
}

// Validation errors. Callers can match these with errors.Is after the
// contextual wrapping applied by Validate.
var (
	ErrCutoffRange     = errors.New("filter: cutoff must be in (0, 1)")
	ErrCutoffOrder     = errors.New("filter: lower cutoff must be below upper cutoff")
	ErrTransitionWidth = errors.New("filter: transition width must be positive")
)

// Spec describes a filter design request. Frequencies are normalized to
// Nyquist: 1.0 corresponds to π rad/sample. The passband is
// (LowCutoff, HighCutoff) for Bandpass, (0, HighCutoff) for Lowpass and
// (LowCutoff, 1) for Highpass; the unused edge is ignored.
type Spec struct {
	Type            Type
	LowCutoff       float64 // ω_c1, used by Bandpass and Highpass.
	HighCutoff      float64 // ω_c2, used by Bandpass and Lowpass.
	TransitionWidth float64 // Δω, same normalized units as the cutoffs.
	Window          window.Type
}

// Validate rejects specs the designer cannot honor. No coefficients are
// produced for an invalid spec.
func (s Spec) Validate() error {
	if s.TransitionWidth <= 0 {
		return fmt.Errorf("%w, got %g", ErrTransitionWidth, s.TransitionWidth)
	}
	switch s.Type {
	case Bandpass:
		if s.LowCutoff <= 0 || s.LowCutoff >= 1 {
			return fmt.Errorf("%w: lower cutoff %g", ErrCutoffRange, s.LowCutoff)
		}
		if s.HighCutoff <= 0 || s.HighCutoff >= 1 {
			return fmt.Errorf("%w: upper cutoff %g", ErrCutoffRange, s.HighCutoff)
		}
		if s.LowCutoff >= s.HighCutoff {
			return fmt.Errorf("%w: %g >= %g", ErrCutoffOrder, s.LowCutoff, s.HighCutoff)
		}
	case Lowpass:
		if s.HighCutoff <= 0 || s.HighCutoff >= 1 {
			return fmt.Errorf("%w: cutoff %g", ErrCutoffRange, s.HighCutoff)
		}
	case Highpass:
		if s.LowCutoff <= 0 || s.LowCutoff >= 1 {
			return fmt.Errorf("%w: cutoff %g", ErrCutoffRange, s.LowCutoff)
		}
	default:
		return fmt.Errorf("filter: unknown filter type %d", s.Type)
	}
	return nil
}

// Length returns the tap count M the spec designs to: ceil(K/Δω)
// rounded up to the next odd integer, where K is the window's mainlobe
// factor. Odd M gives a symmetric type-I filter with an integer center.
func (s Spec) Length() int {
	m := int(math.Ceil(s.Window.LengthFactor() / s.TransitionWidth))
	if m%2 == 0 {
		m++
	}
	if m < 3 {
		m = 3
	}
	return m
}

// GroupDelay returns the filter's constant delay in samples, (M-1)/2.
func GroupDelay(m int) int {
	return (m - 1) / 2
}

// Design computes the windowed-sinc coefficients for the spec. The
// ideal response is evaluated symmetrically around the center tap with
// the n = 0 singularity replaced by its limit, then multiplied by the
// window.
func Design(s Spec) ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	m := s.Length()
	w := window.Make(s.Window, m)
	center := float64(m-1) / 2

	// Convert normalized cutoffs to rad/sample.
	wc1 := s.LowCutoff * math.Pi
	wc2 := s.HighCutoff * math.Pi

	h := make([]float64, m)
	for n := range h {
		k := float64(n) - center

		var ideal float64
		switch s.Type {
		case Bandpass:
			if k == 0 {
				ideal = (wc2 - wc1) / math.Pi
			} else {
				ideal = (math.Sin(wc2*k) - math.Sin(wc1*k)) / (math.Pi * k)
			}
		case Lowpass:
			if k == 0 {
				ideal = wc2 / math.Pi
			} else {
				ideal = math.Sin(wc2*k) / (math.Pi * k)
			}
		case Highpass:
			// δ[n] minus the complementary lowpass.
			if k == 0 {
				ideal = 1 - wc1/math.Pi
			} else {
				ideal = -math.Sin(wc1*k) / (math.Pi * k)
			}
		}

		h[n] = ideal * w[n]
	}

	return h, nil
}

// Response evaluates the complex frequency response H(e^{jω}) at the
// normalized frequency omega (1.0 = Nyquist).
func Response(h []float64, omega float64) complex128 {
	w := omega * math.Pi
	var sum complex128
	for n, c := range h {
		sum += complex(c, 0) * cmplx.Exp(complex(0, -w*float64(n)))
	}
	return sum
}

// MagnitudeDB returns the magnitude response in dB at the normalized
// frequency omega.
func MagnitudeDB(h []float64, omega float64) float64 {
	return 20 * math.Log10(cmplx.Abs(Response(h, omega)))
}
