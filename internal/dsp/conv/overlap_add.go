// SPDX-License-Identifier: MIT
package conv

import (
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/FueledByRedBull/audio-spectrum-live/pkg/bitint"
)

// OverlapAdd implements streaming FFT convolution with the overlap-add
// method. The kernel spectrum is computed once at construction; each
// block is zero-padded, multiplied in the frequency domain and
// inverse-transformed, and the tail beyond the block length is carried
// into the next block. Blocks of any length up to maxBlock are
// accepted, so variable-size drains from the ring buffer work without
// re-buffering.
//
// All buffers are pre-allocated; ProcessBlock does not allocate.
type OverlapAdd struct {
	kernelLen int
	maxBlock  int
	fftSize   int
	scale     float64 // inverse-FFT normalization, 1/fftSize

	fft       *fourier.FFT
	kernelFFT []complex128

	input  []float64    // zero-padded block, fftSize reals
	spec   []complex128 // block spectrum, fftSize/2+1 bins
	result []float64    // circular-convolution result, fftSize reals
	tail   []float64    // pending overlap, kernelLen-1 samples
}

// NewOverlapAdd creates an overlap-add convolver for the kernel. The
// FFT size is the next power of two covering maxBlock + len(kernel) - 1
// so every block's linear convolution fits without wrap-around.
func NewOverlapAdd(kernel []float64, maxBlock int) *OverlapAdd {
	kernelLen := len(kernel)
	fftSize := bitint.NextPowerOfTwo(maxBlock + kernelLen - 1)
	fft := fourier.NewFFT(fftSize)

	padded := make([]float64, fftSize)
	copy(padded, kernel)
	kernelFFT := fft.Coefficients(nil, padded)

	return &OverlapAdd{
		kernelLen: kernelLen,
		maxBlock:  maxBlock,
		fftSize:   fftSize,
		scale:     1 / float64(fftSize),
		fft:       fft,
		kernelFFT: kernelFFT,
		input:     make([]float64, fftSize),
		spec:      make([]complex128, fftSize/2+1),
		result:    make([]float64, fftSize),
		tail:      make([]float64, kernelLen-1),
	}
}

// ProcessBlock filters src into dst. See Convolver for the contract.
func (oa *OverlapAdd) ProcessBlock(dst, src []float64) {
	n := len(src)
	if n == 0 {
		return
	}
	_ = dst[n-1] // bounds check hint

	// Zero-pad the block to the FFT size.
	copy(oa.input, src)
	for i := n; i < oa.fftSize; i++ {
		oa.input[i] = 0
	}

	// Multiply block and kernel spectra; the inverse real FFT in gonum
	// is unnormalized, so fold 1/fftSize into the output.
	oa.fft.Coefficients(oa.spec, oa.input)
	for i := range oa.spec {
		oa.spec[i] *= oa.kernelFFT[i]
	}
	oa.fft.Sequence(oa.result, oa.spec)

	// First n samples: convolution head plus the previous block's tail.
	for i := 0; i < n; i++ {
		y := oa.result[i] * oa.scale
		if i < len(oa.tail) {
			y += oa.tail[i]
		}
		dst[i] = y
	}

	// Carry the remaining kernelLen-1 samples into the next block.
	// Ascending order: tail[i] reads tail[n+i] before it is overwritten.
	for i := 0; i < len(oa.tail); i++ {
		t := oa.result[n+i] * oa.scale
		if n+i < len(oa.tail) {
			t += oa.tail[n+i]
		}
		oa.tail[i] = t
	}
}

// Reset clears the overlap tail.
func (oa *OverlapAdd) Reset() {
	for i := range oa.tail {
		oa.tail[i] = 0
	}
}

// KernelLen returns the FIR kernel length.
func (oa *OverlapAdd) KernelLen() int {
	return oa.kernelLen
}

// FFTSize returns the internal transform size.
func (oa *OverlapAdd) FFTSize() int {
	return oa.fftSize
}
