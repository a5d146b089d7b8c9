// SPDX-License-Identifier: MIT
//
// Package spectrum computes fixed-size magnitude spectra from a sample
// stream. The analyzer buffers the most recent fftSize samples, so the
// output shape never depends on how large the processed blocks happen
// to be: every Analyze call yields exactly fftSize/2+1 dB bins with a
// constant bin spacing of sampleRate/fftSize.
package spectrum

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/FueledByRedBull/audio-spectrum-live/internal/dsp/window"
	"github.com/FueledByRedBull/audio-spectrum-live/pkg/bitint"
)

// magnitudeFloor keeps silent bins at a finite dB value instead of -Inf.
const magnitudeFloor = 1e-10

// Analyzer holds the FFT state and pre-allocated workspaces.
// Write and Analyze are not safe for concurrent use; the processing
// goroutine owns the analyzer exclusively.
type Analyzer struct {
	fftSize    int
	sampleRate float64

	fft *fourier.FFT
	win []float64

	history []float64 // circular most-recent-window buffer
	histPos int

	input  []float64    // windowed frame handed to the FFT
	coeffs []complex128 // complex FFT output, fftSize/2+1 bins
}

// New creates an analyzer with a fixed power-of-two FFT size.
func New(fftSize int, sampleRate float64, windowType window.Type) (*Analyzer, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("spectrum: fft size must be a power of 2, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("spectrum: sample rate must be positive, got %g", sampleRate)
	}

	return &Analyzer{
		fftSize:    fftSize,
		sampleRate: sampleRate,
		fft:        fourier.NewFFT(fftSize),
		win:        window.Make(windowType, fftSize),
		history:    make([]float64, fftSize),
		input:      make([]float64, fftSize),
		coeffs:     make([]complex128, fftSize/2+1),
	}, nil
}

// Write appends a block to the analysis window. Older samples beyond
// fftSize fall out; a history shorter than fftSize stays zero-padded.
// Allocation-free.
func (a *Analyzer) Write(block []float64) {
	if len(block) >= a.fftSize {
		// Only the most recent fftSize samples can matter.
		copy(a.history, block[len(block)-a.fftSize:])
		a.histPos = 0
		return
	}
	for _, s := range block {
		a.history[a.histPos] = s
		a.histPos++
		if a.histPos == a.fftSize {
			a.histPos = 0
		}
	}
}

// Analyze windows the buffered frame, runs the real FFT and fills dst
// with magnitudes in dB: 20*log10(max(|X[k]|, floor)). len(dst) must be
// NumBins(). Allocation-free.
func (a *Analyzer) Analyze(dst []float64) {
	if len(dst) != a.NumBins() {
		panic(fmt.Sprintf("spectrum: dst length %d, need %d bins", len(dst), a.NumBins()))
	}

	// Unroll the circular history into chronological order and window it.
	n := a.fftSize - a.histPos
	for i := 0; i < n; i++ {
		a.input[i] = a.history[a.histPos+i] * a.win[i]
	}
	for i := 0; i < a.histPos; i++ {
		a.input[n+i] = a.history[i] * a.win[n+i]
	}

	a.fft.Coefficients(a.coeffs, a.input)
	for i, c := range a.coeffs {
		mag := cmplx.Abs(c)
		if mag < magnitudeFloor {
			mag = magnitudeFloor
		}
		dst[i] = 20 * math.Log10(mag)
	}
}

// NumBins returns the constant output length, fftSize/2 + 1.
func (a *Analyzer) NumBins() int {
	return a.fftSize/2 + 1
}

// BinWidth returns the constant frequency spacing in Hz between bins.
func (a *Analyzer) BinWidth() float64 {
	return a.sampleRate / float64(a.fftSize)
}

// FrequencyForBin returns the center frequency in Hz of bin i, or 0 for
// an out-of-range index.
func (a *Analyzer) FrequencyForBin(i int) float64 {
	if i < 0 || i >= a.NumBins() {
		return 0
	}
	return float64(i) * a.BinWidth()
}

// FFTSize returns the fixed analysis size.
func (a *Analyzer) FFTSize() int {
	return a.fftSize
}

// Reset zeroes the buffered history.
func (a *Analyzer) Reset() {
	for i := range a.history {
		a.history[i] = 0
	}
	a.histPos = 0
}
