// SPDX-License-Identifier: MIT
/*
Package audio implements the real-time filtering engine:
- Lock-free capture from PortAudio into an SPSC ring buffer
- A processing goroutine applying a windowed-sinc FIR filter
- Twin spectrum analyzers over the raw and filtered signals
- Immutable result snapshots published by atomic pointer swap

Thread Safety:
- The capture callback only converts samples and writes the ring
- Filter changes are staged through an atomic pointer and picked up
  at a block boundary by the processing goroutine
- Readers poll Snapshot() without ever blocking the hot path
*/
package audio

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/FueledByRedBull/audio-spectrum-live/internal/buffer"
	"github.com/FueledByRedBull/audio-spectrum-live/internal/config"
	"github.com/FueledByRedBull/audio-spectrum-live/internal/dsp/conv"
	"github.com/FueledByRedBull/audio-spectrum-live/internal/dsp/filter"
	"github.com/FueledByRedBull/audio-spectrum-live/internal/dsp/spectrum"
	"github.com/FueledByRedBull/audio-spectrum-live/internal/dsp/window"
	"github.com/FueledByRedBull/audio-spectrum-live/internal/log"
)

// State is the processor lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateRunning:
		return "Running"
	default:
		return "Unknown"
	}
}

// Snapshot is one immutable processing result. A new snapshot replaces
// the old one wholesale on every processed block; nothing mutates a
// published snapshot, so readers may hold one for as long as they like.
type Snapshot struct {
	Input    []float64 // raw block, most recent
	Filtered []float64 // same block after the filter (or bypass)

	InputSpectrum    []float64 // magnitude dB, NumBins entries
	FilteredSpectrum []float64 // magnitude dB, NumBins entries

	BinWidth   float64
	SampleRate float64

	FilterLength int
	GroupDelay   int
	Bypassed     bool
	GateOpen     bool

	Dropped  uint64 // total samples discarded by overruns so far
	Sequence uint64
	Time     time.Time

	// Err carries a terminal DeviceError when the stream died; the
	// processor is Stopped once a snapshot with Err is published.
	Err error
}

// pendingFilter stages a designed filter for pickup at a block
// boundary. The convolver is freshly constructed so no streaming state
// from the previous filter leaks into the new output.
type pendingFilter struct {
	spec   filter.Spec
	kernel []float64
	engine conv.Convolver
}

// Processor owns the capture stream, the ring buffer and the processing
// goroutine. Create with NewProcessor, drive with Start/Stop, observe
// through Snapshot.
type Processor struct {
	cfg *config.Config

	ring *buffer.Ring[float64]

	inAnalyzer  *spectrum.Analyzer
	outAnalyzer *spectrum.Analyzer
	gate        *NoiseGate

	// Owned by the processing goroutine after pickup.
	engine     conv.Convolver
	kernelLen  int
	groupDelay int

	pending  atomic.Pointer[pendingFilter]
	monitor  atomic.Pointer[Monitor] // nil unless monitoring is enabled
	bypass   atomic.Bool
	failed   atomic.Bool // latches on async device failure
	state    atomic.Int32
	snapshot atomic.Pointer[Snapshot]
	seq      atomic.Uint64

	device *portaudio.DeviceInfo
	stream *portaudio.Stream

	// Pre-allocated hot-path buffers.
	staging  []float64
	readBuf  []float64
	filtered []float64

	mu   sync.Mutex    // serializes Start/Stop/monitoring changes
	stop chan struct{} // nil whenever no processing goroutine is alive
	done chan struct{}
}

// NewProcessor builds a stopped processor with the initial filter
// already designed. Returns a ConfigError for an unusable config or
// filter spec.
func NewProcessor(cfg *config.Config, initial filter.Spec) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Op: "validate config", Err: err}
	}

	ring, err := buffer.New[float64](cfg.Audio.RingCapacity)
	if err != nil {
		return nil, &ConfigError{Op: "create ring", Err: err}
	}

	analysisWindow, err := window.Parse(cfg.Audio.AnalysisWindow)
	if err != nil {
		return nil, &ConfigError{Op: "parse analysis window", Err: err}
	}
	inAnalyzer, err := spectrum.New(cfg.Audio.FFTSize, config.RequiredSampleRate, analysisWindow)
	if err != nil {
		return nil, &ConfigError{Op: "create analyzer", Err: err}
	}
	outAnalyzer, err := spectrum.New(cfg.Audio.FFTSize, config.RequiredSampleRate, analysisWindow)
	if err != nil {
		return nil, &ConfigError{Op: "create analyzer", Err: err}
	}

	p := &Processor{
		cfg:         cfg,
		ring:        ring,
		inAnalyzer:  inAnalyzer,
		outAnalyzer: outAnalyzer,
		staging:     make([]float64, config.MaxBlockSize),
		readBuf:     make([]float64, config.MaxBlockSize),
		filtered:    make([]float64, config.MaxBlockSize),
	}

	if cfg.Audio.GateEnabled {
		p.gate = NewNoiseGate(
			cfg.Audio.GateThresholdDB,
			cfg.Audio.GateAttackMS,
			cfg.Audio.GateReleaseMS,
			config.RequiredSampleRate,
		)
	}

	if err := p.ApplyFilter(initial); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyFilter designs the spec and stages the resulting convolver for
// pickup at the next block boundary. The running filter is untouched
// until then; a ConfigError is returned for an invalid spec and the
// previous filter stays in place.
func (p *Processor) ApplyFilter(s filter.Spec) error {
	kernel, err := filter.Design(s)
	if err != nil {
		return &ConfigError{Op: "design filter", Err: err}
	}

	pf := &pendingFilter{
		spec:   s,
		kernel: kernel,
		engine: conv.New(kernel, config.MaxBlockSize),
	}
	p.pending.Store(pf)

	log.Debugf("staged %v filter, %d taps, group delay %d samples",
		s.Type, len(kernel), filter.GroupDelay(len(kernel)))
	return nil
}

// SetBypass toggles filtering. Bypassed output is the input
// sample-for-sample with no added delay; the filter keeps its state.
func (p *Processor) SetBypass(b bool) {
	p.bypass.Store(b)
}

// Bypassed reports the current bypass flag.
func (p *Processor) Bypassed() bool {
	return p.bypass.Load()
}

// State returns the lifecycle state.
func (p *Processor) State() State {
	return State(p.state.Load())
}

// Snapshot returns the most recent result, or nil before the first
// processed block. Never blocks.
func (p *Processor) Snapshot() *Snapshot {
	return p.snapshot.Load()
}

// Dropped returns the total samples discarded by ring overruns.
func (p *Processor) Dropped() uint64 {
	return p.ring.Dropped()
}

// EnableMonitoring routes the filtered signal to the default output
// device. When the processor is already running the playback stream
// starts immediately; otherwise it starts with the next Start.
func (p *Processor) EnableMonitoring() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.monitor.Load() != nil {
		return &ConfigError{Op: "enable monitoring", Err: errors.New("monitoring already enabled")}
	}
	m, err := NewMonitor(p.cfg)
	if err != nil {
		return err
	}
	m.onFatal = p.fail
	if State(p.state.Load()) == StateRunning {
		if err := m.Start(); err != nil {
			return err
		}
	}
	p.monitor.Store(m)
	return nil
}

// DisableMonitoring detaches the monitor and stops its playback
// stream. Filtering and snapshot publishing continue unaffected; calling
// it when monitoring is off is a no-op.
func (p *Processor) DisableMonitoring() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	m := p.monitor.Swap(nil)
	if m == nil {
		return nil
	}
	return m.Stop()
}

// Start verifies the input device, opens the capture stream and spawns
// the processing goroutine. Returns a ConfigError when the device
// cannot run at the required rate, a DeviceError when the stream fails
// to open.
func (p *Processor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if State(p.state.Load()) == StateRunning {
		return &ConfigError{Op: "start", Err: errors.New("already running")}
	}
	// An async failure tears down in the background; finish that first
	// so this session never shares resources with the dying one.
	if err := p.shutdown(); err != nil {
		return err
	}

	device, err := InputDevice(p.cfg.Audio.InputDevice)
	if err != nil {
		return &DeviceError{Device: "input", Op: "lookup", Err: err}
	}
	if err := verifyDeviceRate(device.DefaultSampleRate); err != nil {
		return err
	}
	p.device = device

	stream, err := openCaptureStream(device, p.cfg, p.pushCapture)
	if err != nil {
		return &DeviceError{Device: device.Name, Op: "open", Err: err}
	}
	p.stream = stream

	monitor := p.monitor.Load()
	if monitor != nil {
		if err := monitor.Start(); err != nil {
			p.stream.Close()
			p.stream = nil
			return err
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	p.stop, p.done = stop, done
	p.failed.Store(false)
	p.state.Store(int32(StateRunning))
	go p.run(stop, done)

	if err := stream.Start(); err != nil {
		p.state.Store(int32(StateStopped))
		close(stop)
		<-done
		p.stop, p.done = nil, nil
		stream.Close()
		p.stream = nil
		if monitor != nil {
			monitor.Stop()
		}
		return &DeviceError{Device: device.Name, Op: "start", Err: err}
	}

	log.Infof("capture started on %q at %.0f Hz, %d frames/buffer",
		device.Name, config.RequiredSampleRate, p.cfg.Audio.FramesPerBuffer)
	return nil
}

// Stop signals the processing goroutine, waits for it to drain and
// closes the stream. Safe to call when already stopped; a stopped
// processor can Start again.
func (p *Processor) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown()
}

// shutdown releases the processing goroutine, the capture stream and
// the monitor. The caller holds mu. Keyed on p.stop rather than the
// state flag, so a fail() that already flipped the state to Stopped
// still gets its resources released, exactly once.
func (p *Processor) shutdown() error {
	if p.stop == nil {
		return nil
	}
	p.state.Store(int32(StateStopped))
	close(p.stop)
	<-p.done
	p.stop, p.done = nil, nil

	var firstErr error
	if p.stream != nil {
		if err := p.stream.Stop(); err != nil {
			firstErr = &DeviceError{Device: p.device.Name, Op: "stop", Err: err}
		}
		if err := p.stream.Close(); err != nil && firstErr == nil {
			firstErr = &DeviceError{Device: p.device.Name, Op: "close", Err: err}
		}
		p.stream = nil
	}
	if m := p.monitor.Load(); m != nil {
		if err := m.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	log.Infof("capture stopped, %d samples dropped in total", p.ring.Dropped())
	return firstErr
}

// pushCapture is the PortAudio input callback.
// Performance Critical (Hot Path):
// - Runs on the audio thread
// - Converts into a pre-allocated staging buffer, then one ring write
// - No allocations, no locks, never blocks
func (p *Processor) pushCapture(in []float32) {
	n := len(in)
	if n > len(p.staging) {
		n = len(p.staging)
	}
	for i := 0; i < n; i++ {
		p.staging[i] = float64(in[i])
	}
	p.ring.Write(p.staging[:n])
}

// run parks on the ring's wake channel and drains it block by block
// until stopped. One final drain bounds shutdown to data already
// captured. The channels are passed in so a later Start can never hand
// this goroutine a fresh pair.
func (p *Processor) run(stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			p.drain()
			return
		case <-p.ring.Wake():
			p.drain()
		}
	}
}

func (p *Processor) drain() {
	for {
		n := p.ring.Read(p.readBuf)
		if n == 0 {
			return
		}
		p.processBlock(p.readBuf[:n])
	}
}

// processBlock runs one processing cycle: pick up a staged filter,
// gate, filter (or bypass), analyze both signals and publish a fresh
// snapshot. Allocation here is confined to the snapshot itself; the
// capture callback stays allocation-free.
func (p *Processor) processBlock(block []float64) {
	// A failed processor is done publishing; the terminal snapshot
	// stays visible until the next successful Start.
	if p.failed.Load() {
		return
	}

	if pf := p.pending.Swap(nil); pf != nil {
		p.engine = pf.engine
		p.kernelLen = len(pf.kernel)
		p.groupDelay = filter.GroupDelay(len(pf.kernel))
		log.Debugf("switched to %v filter, %d taps", pf.spec.Type, p.kernelLen)
	}

	if p.gate != nil {
		p.gate.ProcessBlock(block)
	}

	out := p.filtered[:len(block)]
	bypassed := p.bypass.Load()
	if bypassed {
		copy(out, block)
	} else {
		p.engine.ProcessBlock(out, block)
	}

	p.inAnalyzer.Write(block)
	p.outAnalyzer.Write(out)

	if m := p.monitor.Load(); m != nil {
		m.Push(out)
	}

	snap := &Snapshot{
		Input:            append([]float64(nil), block...),
		Filtered:         append([]float64(nil), out...),
		InputSpectrum:    make([]float64, p.inAnalyzer.NumBins()),
		FilteredSpectrum: make([]float64, p.outAnalyzer.NumBins()),
		BinWidth:         p.inAnalyzer.BinWidth(),
		SampleRate:       config.RequiredSampleRate,
		FilterLength:     p.kernelLen,
		GroupDelay:       p.groupDelay,
		Bypassed:         bypassed,
		Dropped:          p.ring.Dropped(),
		Sequence:         p.seq.Add(1),
		Time:             time.Now(),
	}
	if p.gate != nil {
		snap.GateOpen = p.gate.Open()
	}
	p.inAnalyzer.Analyze(snap.InputSpectrum)
	p.outAnalyzer.Analyze(snap.FilteredSpectrum)

	p.snapshot.Store(snap)
}

// fail handles an asynchronous device failure: latch the failed flag so
// no later block overwrites the terminal snapshot, publish the error,
// and release the stream, monitor and processing goroutine. It runs on
// the goroutine that detected the failure, so the teardown (which must
// wait on those goroutines) happens on a goroutine of its own.
func (p *Processor) fail(err error) {
	if !p.failed.CompareAndSwap(false, true) {
		return
	}
	p.snapshot.Store(&Snapshot{
		Sequence: p.seq.Add(1),
		Time:     time.Now(),
		Dropped:  p.ring.Dropped(),
		Err:      err,
	})
	p.state.Store(int32(StateStopped))
	log.Errorf("processor stopped: %v", err)

	go func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if err := p.shutdown(); err != nil {
			log.Errorf("cleanup after device failure: %v", err)
		}
	}()
}
