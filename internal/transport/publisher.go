// SPDX-License-Identifier: MIT
package transport

import (
	"sync"
	"time"

	applog "github.com/FueledByRedBull/audio-spectrum-live/internal/log"
)

// Publisher periodically polls a SnapshotSource and fans the latest
// frame out to its sinks. It runs in its own goroutine managed by Start
// and Stop; a snapshot already published is not sent twice.
type Publisher struct {
	source   SnapshotSource
	sinks    []Transport
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	lastSeq uint64
}

// NewPublisher wires a source to its sinks. An interval <= 0 defaults
// to 16ms (~60Hz).
func NewPublisher(interval time.Duration, source SnapshotSource, sinks ...Transport) *Publisher {
	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("publisher: invalid interval, defaulting to %s", interval)
	}
	return &Publisher{
		source:   source,
		sinks:    sinks,
		interval: interval,
	}
}

// Start launches the polling goroutine. Safe to call on a running
// publisher; the second call is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("publisher: Start called but already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("publisher: started, interval %s, %d sink(s)", p.interval, len(p.sinks))
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// publish sends the latest unseen snapshot to every sink. Sink errors
// are logged, not propagated; one slow or broken sink must not stop
// the others.
func (p *Publisher) publish() {
	snap := p.source.Snapshot()
	if snap == nil || snap.Sequence == p.lastSeq {
		return
	}
	p.lastSeq = snap.Sequence

	frame := NewFrame(snap)
	for _, sink := range p.sinks {
		if err := sink.Send(frame); err != nil {
			applog.Errorf("publisher: sink send failed: %v", err)
		}
	}
}

// Stop signals the goroutine, waits for it and closes every sink.
// Safe to call more than once.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()

	var firstErr error
	for _, sink := range p.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	applog.Infof("publisher: stopped")
	return firstErr
}
