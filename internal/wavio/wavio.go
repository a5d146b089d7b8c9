// SPDX-License-Identifier: MIT
//
// Package wavio runs WAV files through the same convolution engine the
// live path uses: decode, filter block by block, encode. Output length
// matches the input; the filter's group delay shifts the content as it
// would in a real-time stream.
package wavio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/FueledByRedBull/audio-spectrum-live/internal/dsp/conv"
	applog "github.com/FueledByRedBull/audio-spectrum-live/internal/log"
)

// blockFrames is the number of frames filtered per chunk.
const blockFrames = 4096

// ErrInvalidWAV reports a source file the decoder does not recognize.
var ErrInvalidWAV = errors.New("wavio: not a valid WAV file")

// ProcessFile filters srcPath through the kernel and writes dstPath.
// Each channel of a multi-channel file runs through its own convolver
// so channel state never mixes. Sample rate, channel count and bit
// depth are preserved.
func ProcessFile(srcPath, dstPath string, kernel []float64) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("wavio: open source: %w", err)
	}
	defer src.Close()

	decoder := wav.NewDecoder(src)
	if !decoder.IsValidFile() {
		return fmt.Errorf("%w: %s", ErrInvalidWAV, srcPath)
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("wavio: create destination: %w", err)
	}
	defer dst.Close()

	format := decoder.Format()
	bitDepth := int(decoder.BitDepth)
	encoder := wav.NewEncoder(dst, format.SampleRate, bitDepth, format.NumChannels, int(decoder.WavAudioFormat))

	applog.Infof("processing %s: %d Hz, %d channel(s), %d-bit, %d-tap filter",
		srcPath, format.SampleRate, format.NumChannels, bitDepth, len(kernel))

	if err := filterStream(decoder, encoder, format, bitDepth, kernel); err != nil {
		encoder.Close()
		return err
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("wavio: finalize output: %w", err)
	}
	return nil
}

// filterStream pumps PCM chunks through per-channel convolvers.
func filterStream(decoder *wav.Decoder, encoder *wav.Encoder, format *audio.Format, bitDepth int, kernel []float64) error {
	channels := format.NumChannels
	if channels < 1 {
		return fmt.Errorf("wavio: invalid channel count %d", channels)
	}

	engines := make([]conv.Convolver, channels)
	for ch := range engines {
		engines[ch] = conv.New(kernel, blockFrames)
	}

	// Full scale for the source bit depth; 1.0 maps to the most
	// negative representable value's magnitude. 8-bit WAV is unsigned
	// (0..255 around a 128 midpoint), so its bias is removed before
	// filtering and restored on encode; wider depths are signed.
	scale := float64(int(1) << (bitDepth - 1))
	var offset float64
	if bitDepth == 8 {
		offset = 128
	}
	lo := offset - scale
	hi := offset + scale - 1

	buf := &audio.IntBuffer{
		Data:   make([]int, blockFrames*channels),
		Format: format,
	}
	in := make([]float64, blockFrames)
	out := make([]float64, blockFrames)

	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return fmt.Errorf("wavio: decode: %w", err)
		}
		if n == 0 {
			return nil
		}

		frames := n / channels
		for ch := 0; ch < channels; ch++ {
			for i := 0; i < frames; i++ {
				in[i] = (float64(buf.Data[i*channels+ch]) - offset) / scale
			}
			engines[ch].ProcessBlock(out[:frames], in[:frames])
			for i := 0; i < frames; i++ {
				buf.Data[i*channels+ch] = clampToDepth(out[i]*scale+offset, lo, hi)
			}
		}

		buf.Data = buf.Data[:n]
		if err := encoder.Write(buf); err != nil {
			return fmt.Errorf("wavio: encode: %w", err)
		}
		buf.Data = buf.Data[:cap(buf.Data)]
	}
}

// clampToDepth rounds and clips a scaled sample to [lo, hi], the
// encodable range for the source bit depth.
func clampToDepth(v, lo, hi float64) int {
	if v >= hi {
		return int(hi)
	}
	if v <= lo {
		return int(lo)
	}
	if v >= 0 {
		return int(v + 0.5)
	}
	return int(v - 0.5)
}
