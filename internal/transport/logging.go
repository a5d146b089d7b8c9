// SPDX-License-Identifier: MIT
package transport

import (
	applog "github.com/FueledByRedBull/audio-spectrum-live/internal/log"
)

// LoggingTransport is a debug sink that summarizes each frame to the
// log instead of sending it anywhere. Wired in when debug mode is on.
type LoggingTransport struct{}

func NewLoggingTransport() *LoggingTransport {
	return &LoggingTransport{}
}

func (lt *LoggingTransport) Send(data any) error {
	frame, ok := data.(*Frame)
	if !ok {
		applog.Debugf("frame: %+v", data)
		return nil
	}
	applog.Debugf("frame seq=%d taps=%d bypassed=%v dropped=%d bins=%d",
		frame.Sequence, frame.FilterLength, frame.Bypassed, frame.Dropped,
		len(frame.FilteredSpectrum))
	return nil
}

func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
