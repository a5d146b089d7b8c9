// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"testing"

	"github.com/FueledByRedBull/audio-spectrum-live/internal/config"
	"github.com/FueledByRedBull/audio-spectrum-live/pkg/utils"
)

func TestGate_OpensForLoudSignal(t *testing.T) {
	g := NewNoiseGate(-40, 1, 50, config.RequiredSampleRate)

	// 0.9 amplitude sine sits around -1 dBFS, far above -40 dB.
	loud := utils.GenerateSineWave(9600, config.RequiredSampleRate, 1000)
	g.ProcessBlock(loud)

	if !g.Open() {
		t.Fatal("gate stayed closed for a -1 dBFS signal over a -40 dB threshold")
	}
	// After the attack settles the signal passes essentially unchanged.
	tail := loud[len(loud)-4800:]
	if rms := utils.RMS(tail); rms < 0.5 {
		t.Errorf("settled RMS = %.3f, want the loud signal passed through", rms)
	}
}

func TestGate_StaysClosedForQuietSignal(t *testing.T) {
	g := NewNoiseGate(-40, 1, 50, config.RequiredSampleRate)

	quiet := utils.GenerateSineWave(9600, config.RequiredSampleRate, 1000)
	for i := range quiet {
		quiet[i] *= 0.001 // about -61 dBFS
	}
	g.ProcessBlock(quiet)

	if g.Open() {
		t.Fatal("gate opened for a -61 dBFS signal over a -40 dB threshold")
	}
	tail := quiet[len(quiet)-4800:]
	if rms := utils.RMS(tail); rms > 1e-4 {
		t.Errorf("settled RMS = %.6f, want the quiet signal attenuated", rms)
	}
}

// The close threshold sits 3 dB under the open threshold, so a level
// between the two must not toggle the gate once it is open.
func TestGate_HysteresisPreventsChatter(t *testing.T) {
	g := NewNoiseGate(-20, 1, 10, config.RequiredSampleRate)

	loud := utils.GenerateSineWave(9600, config.RequiredSampleRate, 1000)
	g.ProcessBlock(loud)
	if !g.Open() {
		t.Fatal("gate did not open on the loud lead-in")
	}

	// RMS of -21.5 dBFS: below the open threshold, above the close
	// threshold. The sine peak is RMS times sqrt(2).
	between := utils.GenerateSineWave(9600, config.RequiredSampleRate, 1000)
	amp := math.Pow(10, -21.5/20) * math.Sqrt2 / 0.9
	for i := range between {
		between[i] *= amp
	}
	g.ProcessBlock(between)

	if !g.Open() {
		t.Error("gate closed inside the hysteresis band")
	}
}

func TestGate_ReleaseIsGradual(t *testing.T) {
	g := NewNoiseGate(-40, 1, 100, config.RequiredSampleRate)

	loud := utils.GenerateSineWave(9600, config.RequiredSampleRate, 1000)
	g.ProcessBlock(loud)
	pre := g.gain

	// The level estimator takes a few hundred ms of silence to fall
	// below the close threshold; after that the gain must ramp down,
	// not cut to zero.
	g.ProcessBlock(make([]float64, 24000)) // 500 ms
	if g.Open() {
		t.Fatal("gate still open after 500 ms of silence")
	}
	mid := g.gain
	if mid >= pre {
		t.Errorf("gain did not decay after close: %.4f -> %.4f", pre, mid)
	}
	if mid <= 0 {
		t.Errorf("gain cut hard to %.4f, want a gradual release", mid)
	}

	g.ProcessBlock(make([]float64, 24000))
	if g.gain >= mid {
		t.Errorf("gain stopped releasing: %.4f -> %.4f", mid, g.gain)
	}
}

func TestGate_Reset(t *testing.T) {
	g := NewNoiseGate(-40, 1, 50, config.RequiredSampleRate)

	g.ProcessBlock(utils.GenerateSineWave(4800, config.RequiredSampleRate, 1000))
	g.Reset()

	if g.Open() {
		t.Error("gate still open after Reset")
	}
	if g.meanSquare != 0 || g.gain != 0 {
		t.Errorf("state not cleared: meanSquare=%g gain=%g", g.meanSquare, g.gain)
	}
}

func TestGate_ZeroAlloc(t *testing.T) {
	g := NewNoiseGate(-40, 1, 50, config.RequiredSampleRate)
	block := utils.GenerateSineWave(512, config.RequiredSampleRate, 1000)

	allocs := testing.AllocsPerRun(100, func() {
		g.ProcessBlock(block)
	})
	if allocs != 0 {
		t.Errorf("ProcessBlock allocated %.1f times per run, want 0", allocs)
	}
}

func BenchmarkGateProcessBlock(b *testing.B) {
	g := NewNoiseGate(-40, 1, 50, config.RequiredSampleRate)
	block := utils.GenerateSineWave(512, config.RequiredSampleRate, 1000)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		g.ProcessBlock(block)
	}
}
