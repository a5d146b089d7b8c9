// SPDX-License-Identifier: MIT
package conv

// Direct implements time-domain FIR convolution with a circular delay
// line:
//
//	y[n] = sum_{k=0}^{M-1} h[k] * x[n-k]
//
// The delay line carries the last M-1 inputs across block boundaries.
type Direct struct {
	coeffs []float64
	delay  []float64
	pos    int
}

// NewDirect creates a direct convolver. The kernel is copied.
func NewDirect(kernel []float64) *Direct {
	c := make([]float64, len(kernel))
	copy(c, kernel)
	return &Direct{
		coeffs: c,
		delay:  make([]float64, len(kernel)),
	}
}

// processSample filters one input sample.
func (d *Direct) processSample(x float64) float64 {
	d.delay[d.pos] = x
	var y float64
	n := len(d.coeffs)
	p := d.pos
	for k := 0; k < n; k++ {
		y += d.coeffs[k] * d.delay[p]
		p--
		if p < 0 {
			p = n - 1
		}
	}
	d.pos++
	if d.pos >= n {
		d.pos = 0
	}
	return y
}

// ProcessBlock filters src into dst. See Convolver for the contract.
func (d *Direct) ProcessBlock(dst, src []float64) {
	if len(src) == 0 {
		return
	}
	_ = dst[len(src)-1] // bounds check hint
	for i, x := range src {
		dst[i] = d.processSample(x)
	}
}

// Reset clears the delay line.
func (d *Direct) Reset() {
	for i := range d.delay {
		d.delay[i] = 0
	}
	d.pos = 0
}

// KernelLen returns the FIR kernel length.
func (d *Direct) KernelLen() int {
	return len(d.coeffs)
}
