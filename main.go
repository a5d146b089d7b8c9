// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/FueledByRedBull/audio-spectrum-live/cmd"
	"github.com/FueledByRedBull/audio-spectrum-live/internal/audio"
	"github.com/FueledByRedBull/audio-spectrum-live/internal/dsp/filter"
	applog "github.com/FueledByRedBull/audio-spectrum-live/internal/log"
	"github.com/FueledByRedBull/audio-spectrum-live/internal/transport"
	"github.com/FueledByRedBull/audio-spectrum-live/internal/transport/udp"
	"github.com/FueledByRedBull/audio-spectrum-live/internal/wavio"
	"github.com/FueledByRedBull/audio-spectrum-live/pkg/build"
	"github.com/FueledByRedBull/audio-spectrum-live/pkg/presets"
)

// main is the entry point of the live filtering engine.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Execute one-off commands if requested
//   - Initialize PortAudio and design the initial filter
//
// 2. Concurrent Phase (Hot Path):
//   - Start the capture stream and processing goroutine
//   - Start the snapshot publisher and its transports
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop the publisher, then the processor
//   - Clean up PortAudio
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}

	opts, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if opts.Command == "" {
		// Help or version output already handled.
		return
	}

	if level, ok := applog.ParseLevel(opts.Config.LogLevel); ok {
		applog.SetLevel(level)
	}
	if opts.Config.Debug {
		applog.SetLevel(applog.LevelDebug)
	}

	switch opts.Command {
	case "list":
		if err := audio.Initialize(); err != nil {
			applog.Fatalf("%v", err)
		}
		defer audio.Terminate()
		if err := audio.ListDevices(); err != nil {
			applog.Fatalf("%v", err)
		}
		return

	case "presets":
		printPresets()
		return

	case "process":
		spec, err := opts.FilterSpec()
		if err != nil {
			applog.Fatalf("%v", err)
		}
		kernel, err := filter.Design(spec)
		if err != nil {
			applog.Fatalf("%v", err)
		}
		if err := wavio.ProcessFile(opts.InputFile, opts.OutputFile, kernel); err != nil {
			applog.Fatalf("%v", err)
		}
		fmt.Printf("Filtered %s -> %s (%d taps)\n", opts.InputFile, opts.OutputFile, len(kernel))
		return
	}

	runEngine(opts)
}

func runEngine(opts *cmd.Options) {
	cfg := opts.Config

	// One thread stays dedicated to the audio callback, one covers the
	// processing goroutine and I/O.
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}
	defer audio.Terminate()

	spec, err := opts.FilterSpec()
	if err != nil {
		applog.Fatalf("%v", err)
	}

	processor, err := audio.NewProcessor(cfg, spec)
	if err != nil {
		applog.Fatalf("%v", err)
	}
	processor.SetBypass(opts.Bypass)

	if cfg.Audio.Monitoring {
		if err := processor.EnableMonitoring(); err != nil {
			applog.Fatalf("%v", err)
		}
	}

	var sinks []transport.Transport
	if cfg.Transport.WebSocketEnabled {
		sinks = append(sinks, transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr))
	}
	if cfg.Transport.UDPEnabled {
		udpTransport, err := udp.NewTransport(cfg.Transport.UDPTargetAddress)
		if err != nil {
			applog.Fatalf("%v", err)
		}
		sinks = append(sinks, udpTransport)
	}
	if cfg.Debug {
		sinks = append(sinks, transport.NewLoggingTransport())
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	// CRITICAL: Start opens the capture stream; from here PortAudio
	// invokes the callback and the hot path is live.
	if err := processor.Start(); err != nil {
		applog.Fatalf("%v", err)
	}

	var publisher *transport.Publisher
	if len(sinks) > 0 {
		publisher = transport.NewPublisher(cfg.Transport.PublishInterval, processor, sinks...)
		publisher.Start()
	}

	fmt.Printf("%s running, Ctrl+C to stop. '%s --help' for usage information.\n",
		build.GetBuildFlags().Name, build.GetBuildFlags().Name)

	<-done

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if publisher != nil {
		if err := publisher.Stop(); err != nil {
			applog.Errorf("stopping publisher: %v", err)
		}
	}
	if err := processor.Stop(); err != nil {
		applog.Errorf("stopping processor: %v", err)
	}

	if snap := processor.Snapshot(); snap != nil && snap.Dropped > 0 {
		applog.Warnf("%d samples were dropped by ring overruns during this run", snap.Dropped)
	}
}

func printPresets() {
	fmt.Printf("\nBuilt-in filter presets\n\n")
	for _, p := range presets.All() {
		s := p.Spec
		fmt.Printf("%-20s %s\n", p.Name, p.Description)
		switch s.Type {
		case filter.Lowpass:
			fmt.Printf("%-20s %v, cutoff %.4f, transition %.4f, %v window, %d taps\n",
				"", s.Type, s.HighCutoff, s.TransitionWidth, s.Window, s.Length())
		case filter.Highpass:
			fmt.Printf("%-20s %v, cutoff %.4f, transition %.4f, %v window, %d taps\n",
				"", s.Type, s.LowCutoff, s.TransitionWidth, s.Window, s.Length())
		default:
			fmt.Printf("%-20s %v, band %.4f-%.4f, transition %.4f, %v window, %d taps\n",
				"", s.Type, s.LowCutoff, s.HighCutoff, s.TransitionWidth, s.Window, s.Length())
		}
		fmt.Println()
	}
	fmt.Println("Frequencies are normalized to Nyquist (1.0 = 24 kHz at the 48 kHz engine rate).")
}
