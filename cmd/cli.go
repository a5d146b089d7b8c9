// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/FueledByRedBull/audio-spectrum-live/internal/config"
	"github.com/FueledByRedBull/audio-spectrum-live/internal/dsp/filter"
	"github.com/FueledByRedBull/audio-spectrum-live/internal/dsp/window"
	"github.com/FueledByRedBull/audio-spectrum-live/pkg/build"
	"github.com/FueledByRedBull/audio-spectrum-live/pkg/presets"
)

// Options is everything main needs to act on: the resolved config, the
// selected command and the filter selection.
type Options struct {
	Config  *config.Config
	Command string // "run", "list", "presets" or "process"

	// Filter selection: a preset name, overridden entirely when a
	// custom --type is given.
	Preset          string
	FilterType      string
	LowCutoff       float64
	HighCutoff      float64
	TransitionWidth float64
	WindowName      string

	Bypass bool

	// process command arguments.
	InputFile  string
	OutputFile string
}

// FilterSpec resolves the filter selection into a designable spec.
func (o *Options) FilterSpec() (filter.Spec, error) {
	if o.FilterType != "" {
		ft, err := filter.ParseType(o.FilterType)
		if err != nil {
			return filter.Spec{}, err
		}
		w, err := window.Parse(o.WindowName)
		if err != nil {
			return filter.Spec{}, err
		}
		return filter.Spec{
			Type:            ft,
			LowCutoff:       o.LowCutoff,
			HighCutoff:      o.HighCutoff,
			TransitionWidth: o.TransitionWidth,
			Window:          w,
		}, nil
	}

	p, ok := presets.Lookup(o.Preset)
	if !ok {
		return filter.Spec{}, fmt.Errorf("unknown preset %q, run 'presets' to see the table", o.Preset)
	}
	return p.Spec, nil
}

// ParseArgs parses the command line into Options. The YAML config is
// loaded first; flags the user set override it.
func ParseArgs() (*Options, error) {
	// Command stays empty on help/version paths, where cobra handles
	// the output and main has nothing left to do.
	buildInfo := build.GetBuildFlags()
	opts := &Options{}

	var (
		configPath      string
		deviceID        int
		framesPerBuffer int
		lowLatency      bool
		monitor         bool
		gate            bool
		wsAddr          string
		udpTarget       string
		verbose         bool
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time FIR filtering and spectrum analysis for a live microphone signal",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// Only flags the user actually set override the file.
			flags := cmd.Flags()
			if flags.Changed("device") {
				cfg.Audio.InputDevice = deviceID
			}
			if flags.Changed("frames-per-buffer") {
				cfg.Audio.FramesPerBuffer = framesPerBuffer
			}
			if flags.Changed("low-latency") {
				cfg.Audio.LowLatency = lowLatency
			}
			if flags.Changed("monitor") {
				cfg.Audio.Monitoring = monitor
			}
			if flags.Changed("gate") {
				cfg.Audio.GateEnabled = gate
			}
			if flags.Changed("ws") {
				cfg.Transport.WebSocketEnabled = true
				cfg.Transport.WebSocketAddr = wsAddr
			}
			if flags.Changed("udp") {
				cfg.Transport.UDPEnabled = true
				cfg.Transport.UDPTargetAddress = udpTarget
			}
			if verbose {
				cfg.Debug = true
				cfg.LogLevel = "debug"
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			opts.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = "run"
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "Show the built-in filter presets",
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = "presets"
		},
	}
	rootCmd.AddCommand(presetsCmd)

	processCmd := &cobra.Command{
		Use:   "process <input.wav> <output.wav>",
		Short: "Filter a WAV file offline with the selected filter",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = "process"
			opts.InputFile = args[0]
			opts.OutputFile = args[1]
		},
	}
	rootCmd.AddCommand(processCmd)

	// Audio device configuration.
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default config.yaml when present)")
	rootCmd.PersistentFlags().IntVarP(&deviceID, "device", "d", config.MinDeviceID,
		"Input device ID. Use 'list' to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&lowLatency, "low-latency", "l", true,
		"Use low latency mode for real-time processing")
	rootCmd.PersistentFlags().BoolVarP(&monitor, "monitor", "m", false,
		"Play the filtered signal on the default output device")
	rootCmd.PersistentFlags().BoolVarP(&gate, "gate", "g", false,
		"Enable the noise gate ahead of the filter")

	// Filter selection.
	rootCmd.PersistentFlags().StringVarP(&opts.Preset, "preset", "p", "voice-band",
		"Filter preset name. Use 'presets' to see the table.")
	rootCmd.PersistentFlags().StringVarP(&opts.FilterType, "type", "t", "",
		"Custom filter type (bandpass, lowpass, highpass); overrides --preset")
	rootCmd.PersistentFlags().Float64Var(&opts.LowCutoff, "low", 0.0125,
		"Lower cutoff, normalized to Nyquist (1.0 = 24 kHz)")
	rootCmd.PersistentFlags().Float64Var(&opts.HighCutoff, "high", 0.1417,
		"Upper cutoff, normalized to Nyquist")
	rootCmd.PersistentFlags().Float64Var(&opts.TransitionWidth, "transition", 0.0021,
		"Transition width, normalized to Nyquist")
	rootCmd.PersistentFlags().StringVar(&opts.WindowName, "window", "Hamming",
		"Design window (Rectangular, Hann, Hamming, Blackman)")
	rootCmd.PersistentFlags().BoolVar(&opts.Bypass, "bypass", false,
		"Start with the filter bypassed")

	// Transport configuration.
	rootCmd.PersistentFlags().StringVar(&wsAddr, "ws", ":8080",
		"Serve spectrum frames over WebSocket on this address")
	rootCmd.PersistentFlags().StringVar(&udpTarget, "udp", "127.0.0.1:9090",
		"Send binary spectrum packets to this UDP address")

	// Debug configuration.
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return opts, nil
}
