// SPDX-License-Identifier: MIT
package audio

import (
	"testing"

	"github.com/FueledByRedBull/audio-spectrum-live/internal/config"
)

func TestMonitor_StopBeforeStart(t *testing.T) {
	m, err := NewMonitor(config.Default())
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}

	// Start cleanup paths stop a monitor that never opened its stream;
	// that must be a harmless no-op, even twice.
	if err := m.Stop(); err != nil {
		t.Errorf("Stop before Start: %v", err)
	}
	if err := m.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestMonitor_PushQueuesBlocks(t *testing.T) {
	m, err := NewMonitor(config.Default())
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}

	block := make([]float64, 256)
	m.Push(block)
	if got := m.ring.Len(); got != 256 {
		t.Errorf("queued %d samples, want 256", got)
	}
}
