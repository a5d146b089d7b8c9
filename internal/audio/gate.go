// SPDX-License-Identifier: MIT
package audio

import "math"

// rmsWindowSeconds sets the time constant of the level estimator.
const rmsWindowSeconds = 0.050

// hysteresisDB keeps the gate from chattering around the threshold: it
// opens at the threshold but only closes once the level has fallen a
// further 3 dB.
const hysteresisDB = 3.0

// NoiseGate attenuates blocks whose RMS level sits below a threshold.
// The level estimate is a one-pole IIR mean-square follower and the
// applied gain is smoothed with separate attack and release constants,
// so opening is fast and closing does not clip word endings.
//
// Not safe for concurrent use; the processing goroutine owns it.
type NoiseGate struct {
	thresholdDB  float64
	openLevel    float64 // linear mean-square threshold
	closeLevel   float64 // openLevel minus the hysteresis band
	rmsCoeff     float64
	attackCoeff  float64
	releaseCoeff float64

	meanSquare float64
	gain       float64
	open       bool
}

// NewNoiseGate builds a gate for the given rate. thresholdDB is dBFS
// (0 dB = full scale); attackMS and releaseMS shape the gain ramps.
func NewNoiseGate(thresholdDB, attackMS, releaseMS, sampleRate float64) *NoiseGate {
	openAmp := math.Pow(10, thresholdDB/20)
	closeAmp := math.Pow(10, (thresholdDB-hysteresisDB)/20)

	return &NoiseGate{
		thresholdDB:  thresholdDB,
		openLevel:    openAmp * openAmp,
		closeLevel:   closeAmp * closeAmp,
		rmsCoeff:     math.Exp(-1 / (rmsWindowSeconds * sampleRate)),
		attackCoeff:  smoothingCoeff(attackMS, sampleRate),
		releaseCoeff: smoothingCoeff(releaseMS, sampleRate),
	}
}

func smoothingCoeff(ms, sampleRate float64) float64 {
	if ms <= 0 {
		return 0
	}
	return math.Exp(-1 / (ms / 1000 * sampleRate))
}

// ProcessBlock gates the block in place.
// Performance Critical (Hot Path): no allocations.
func (g *NoiseGate) ProcessBlock(block []float64) {
	for i, s := range block {
		g.meanSquare = g.rmsCoeff*g.meanSquare + (1-g.rmsCoeff)*s*s

		if g.open {
			if g.meanSquare < g.closeLevel {
				g.open = false
			}
		} else {
			if g.meanSquare > g.openLevel {
				g.open = true
			}
		}

		target := 0.0
		coeff := g.releaseCoeff
		if g.open {
			target = 1.0
			coeff = g.attackCoeff
		}
		g.gain = coeff*g.gain + (1-coeff)*target

		block[i] = s * g.gain
	}
}

// Open reports whether the detector currently sits above the threshold.
func (g *NoiseGate) Open() bool {
	return g.open
}

// ThresholdDB returns the configured open threshold.
func (g *NoiseGate) ThresholdDB() float64 {
	return g.thresholdDB
}

// Reset clears the level estimate and closes the gate.
func (g *NoiseGate) Reset() {
	g.meanSquare = 0
	g.gain = 0
	g.open = false
}
