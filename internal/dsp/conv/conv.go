// SPDX-License-Identifier: MIT
//
// Package conv applies FIR coefficients to a sample stream block by
// block, preserving continuity across block boundaries so the output
// equals one continuous convolution of the whole signal. Two
// implementations exist: direct convolution for short kernels and
// FFT-based overlap-add for long ones. Both produce numerically
// equivalent output.
package conv

// DirectMaxTaps is the kernel length above which New switches from
// direct convolution (O(N*M)) to overlap-add (O(N log N)).
const DirectMaxTaps = 128

// Convolver is a streaming block convolver. ProcessBlock writes the
// filtered src into dst; dst and src must have equal length, must not
// overlap, and len(src) must not exceed the maxBlock the convolver was
// built with. Implementations keep state between calls and are not safe
// for concurrent use.
type Convolver interface {
	ProcessBlock(dst, src []float64)

	// Reset clears streaming state for a fresh signal. A filter change
	// must instead construct a new Convolver so no stale state leaks
	// into the new filter's output.
	Reset()

	// KernelLen returns the FIR kernel length.
	KernelLen() int
}

// New picks the convolution strategy for the kernel length: direct up
// to DirectMaxTaps, overlap-add beyond.
func New(kernel []float64, maxBlock int) Convolver {
	if len(kernel) <= DirectMaxTaps {
		return NewDirect(kernel)
	}
	return NewOverlapAdd(kernel, maxBlock)
}
