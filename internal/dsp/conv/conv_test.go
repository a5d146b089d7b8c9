// SPDX-License-Identifier: MIT
package conv

import (
	"math"
	"math/rand"
	"testing"

	"github.com/FueledByRedBull/audio-spectrum-live/internal/dsp/filter"
	"github.com/FueledByRedBull/audio-spectrum-live/internal/dsp/window"
	"github.com/FueledByRedBull/audio-spectrum-live/pkg/utils"
)

const equivTol = 1e-9

// naiveConvolve computes the full linear convolution head (len(x)
// samples) as a reference, assuming zero initial history.
func naiveConvolve(h, x []float64) []float64 {
	y := make([]float64, len(x))
	for i := range y {
		var acc float64
		for k, c := range h {
			if j := i - k; j >= 0 {
				acc += c * x[j]
			}
		}
		y[i] = acc
	}
	return y
}

func TestNew_StrategySelection(t *testing.T) {
	short := New(make([]float64, DirectMaxTaps), 512)
	if _, ok := short.(*Direct); !ok {
		t.Errorf("expected Direct for %d taps, got %T", DirectMaxTaps, short)
	}
	long := New(make([]float64, DirectMaxTaps+1), 512)
	if _, ok := long.(*OverlapAdd); !ok {
		t.Errorf("expected OverlapAdd for %d taps, got %T", DirectMaxTaps+1, long)
	}
}

func TestDirect_Impulse(t *testing.T) {
	h := []float64{0.1, 0.2, 0.4, 0.2, 0.1}
	d := NewDirect(h)

	in := make([]float64, 32)
	in[0] = 1
	out := make([]float64, 32)
	d.ProcessBlock(out, in)

	for i, want := range h {
		if math.Abs(out[i]-want) > 1e-12 {
			t.Errorf("impulse response at %d = %g, expected %g", i, out[i], want)
		}
	}
	for i := len(h); i < len(out); i++ {
		if out[i] != 0 {
			t.Errorf("expected zero past the kernel, got %g at %d", out[i], i)
		}
	}
}

func TestOverlapAdd_Impulse(t *testing.T) {
	h := make([]float64, 200) // Above the direct threshold.
	for i := range h {
		h[i] = math.Sin(float64(i)) / 200
	}
	oa := NewOverlapAdd(h, 64)

	in := make([]float64, 64)
	in[0] = 1
	out := make([]float64, 64)
	oa.ProcessBlock(out, in)

	for i := range out {
		if math.Abs(out[i]-h[i]) > equivTol {
			t.Fatalf("impulse response at %d = %g, expected %g", i, out[i], h[i])
		}
	}
}

func TestDirectAndOverlapAdd_Equivalent(t *testing.T) {
	// The same kernel run through both engines over a stream of blocks
	// must match within floating-point tolerance.
	h, err := filter.Design(filter.Spec{
		Type:            filter.Bandpass,
		LowCutoff:       0.375,
		HighCutoff:      0.625,
		TransitionWidth: 0.25,
		Window:          window.Hamming,
	})
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(42))
	const blockSize = 480
	direct := NewDirect(h)
	fast := NewOverlapAdd(h, blockSize)

	in := make([]float64, blockSize)
	outDirect := make([]float64, blockSize)
	outFast := make([]float64, blockSize)

	for block := 0; block < 8; block++ {
		for i := range in {
			in[i] = rng.Float64()*2 - 1
		}
		direct.ProcessBlock(outDirect, in)
		fast.ProcessBlock(outFast, in)

		for i := range in {
			if math.Abs(outDirect[i]-outFast[i]) > equivTol {
				t.Fatalf("block %d sample %d: direct %g vs overlap-add %g", block, i, outDirect[i], outFast[i])
			}
		}
	}
}

func TestOverlapAdd_VariableBlockLengths(t *testing.T) {
	// Continuity must hold when block lengths vary, including blocks
	// shorter than the kernel.
	h := make([]float64, 150)
	for i := range h {
		h[i] = math.Cos(float64(i) * 0.1)
	}
	const maxBlock = 256

	signal := utils.GenerateComplexWave(1000, 48000)
	want := naiveConvolve(h, signal)

	oa := NewOverlapAdd(h, maxBlock)
	got := make([]float64, 0, len(signal))
	out := make([]float64, maxBlock)

	for pos, step := 0, 0; pos < len(signal); pos += step {
		// Cycle through uneven block sizes.
		sizes := []int{maxBlock, 37, 150, 1, 99}
		step = sizes[len(got)%len(sizes)]
		if pos+step > len(signal) {
			step = len(signal) - pos
		}
		oa.ProcessBlock(out[:step], signal[pos:pos+step])
		got = append(got, out[:step]...)
	}

	for i := range want {
		if math.Abs(got[i]-want[i]) > equivTol {
			t.Fatalf("sample %d: got %g, expected %g", i, got[i], want[i])
		}
	}
}

func TestConvolvers_ContinuityAcrossBlocks(t *testing.T) {
	// Feeding one long block or two halves must give identical output.
	h := []float64{0.25, 0.5, 0.25, -0.1, 0.05}
	signal := utils.GenerateSineWave(512, 48000, 440)

	whole := NewDirect(h)
	split := NewDirect(h)

	outWhole := make([]float64, 512)
	whole.ProcessBlock(outWhole, signal)

	outSplit := make([]float64, 512)
	split.ProcessBlock(outSplit[:200], signal[:200])
	split.ProcessBlock(outSplit[200:], signal[200:])

	for i := range outWhole {
		if outWhole[i] != outSplit[i] {
			t.Fatalf("sample %d: whole %g vs split %g", i, outWhole[i], outSplit[i])
		}
	}
}

func TestReset_DiscardsState(t *testing.T) {
	h := make([]float64, 160)
	h[0] = 1 // Identity kernel with a long tail of zeros.
	for _, c := range []Convolver{NewDirect(h[:64]), NewOverlapAdd(h, 64)} {
		in := make([]float64, 64)
		for i := range in {
			in[i] = 1
		}
		out := make([]float64, 64)
		c.ProcessBlock(out, in)

		c.Reset()

		// After a reset an impulse must see no residue from the
		// previous stream.
		in2 := make([]float64, 64)
		in2[0] = 1
		c.ProcessBlock(out, in2)
		if math.Abs(out[0]-1) > equivTol {
			t.Errorf("%T: post-reset impulse = %g, expected 1", c, out[0])
		}
		for i := 1; i < len(out); i++ {
			if math.Abs(out[i]) > equivTol {
				t.Errorf("%T: residue %g at %d after reset", c, out[i], i)
				break
			}
		}
	}
}

func TestProcessBlock_ZeroAlloc(t *testing.T) {
	h := make([]float64, 300)
	for i := range h {
		h[i] = 1 / float64(len(h))
	}
	oa := NewOverlapAdd(h, 512)
	d := NewDirect(h[:100])

	in := utils.GenerateSineWave(512, 48000, 1000)
	out := make([]float64, 512)

	// Warm-up.
	oa.ProcessBlock(out, in)
	d.ProcessBlock(out, in)

	if allocs := testing.AllocsPerRun(50, func() { oa.ProcessBlock(out, in) }); allocs > 0 {
		t.Errorf("OverlapAdd.ProcessBlock allocated %.1f times", allocs)
	}
	if allocs := testing.AllocsPerRun(50, func() { d.ProcessBlock(out, in) }); allocs > 0 {
		t.Errorf("Direct.ProcessBlock allocated %.1f times", allocs)
	}
}

func BenchmarkDirect(b *testing.B) {
	h := make([]float64, 128)
	for i := range h {
		h[i] = 1 / 128.0
	}
	d := NewDirect(h)
	in := utils.GenerateSineWave(512, 48000, 1000)
	out := make([]float64, 512)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		d.ProcessBlock(out, in)
	}
}

func BenchmarkOverlapAdd(b *testing.B) {
	h := make([]float64, 4001)
	for i := range h {
		h[i] = 1 / 4001.0
	}
	oa := NewOverlapAdd(h, 512)
	in := utils.GenerateSineWave(512, 48000, 1000)
	out := make([]float64, 512)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		oa.ProcessBlock(out, in)
	}
}
