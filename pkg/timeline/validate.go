// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package timeline

import (
	"fmt"
	"strings"
)

// Canvas limits.
const (
	MinCanvasSize   = 64
	MaxCanvasWidth  = 7680
	MaxCanvasHeight = 4320
)

// Resolution multiplier limits.
const (
	MinScale = 0.25
	MaxScale = 4.0
)

// FPS limits.
const (
	MinFPS = 1
	MaxFPS = 120
)

// Channel limits.
const (
	MinChannels = 1
	MaxChannels = 8
)

var supportedSampleRates = []int{8000, 16000, 22050, 44100, 48000}

// SampleRateSupported reports whether the audio encoder
// accepts the sample rate.
func SampleRateSupported(rate int) bool {
	for _, r := range supportedSampleRates {
		if r == rate {
			return true
		}
	}
	return false
}

// ValidationError describes a single structural problem in
// the timeline or settings.
type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Msg
}

// ValidationErrors is the full offense list of a validation run.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "invalid timeline: " + strings.Join(msgs, ", ")
}

// Validate checks the model and settings, returning every offense
// found. It never mutates, a nil return means the run may start.
func Validate(m *Model, s Settings) ValidationErrors { //nolint:funlen
	var errs ValidationErrors
	add := func(field, format string, v ...interface{}) {
		errs = append(errs, ValidationError{field, fmt.Sprintf(format, v...)})
	}

	if len(m.Tracks) == 0 {
		add("tracks", "empty tracks")
	}
	if m.Duration <= 0 {
		add("duration", "total duration %v <= 0", m.Duration)
	}

	for i, track := range m.Tracks {
		for j, element := range track.Elements {
			field := fmt.Sprintf("track[%d].element[%d]", i, j)
			base := element.Base()

			if base.StartTime < 0 || base.Duration < 0 ||
				base.TrimStart < 0 || base.TrimEnd < 0 {
				add(field, "negative time")
			}
			if base.TrimStart+base.TrimEnd >= base.Duration {
				add(field, "trim sum %v >= duration %v",
					base.TrimStart+base.TrimEnd, base.Duration)
			}

			if media, ok := element.(*MediaElement); ok {
				if media.MediaID == "" {
					add(field, "missing media id")
				} else if media.Source.IsZero() {
					add(field, "media id %q does not resolve to a byte source", media.MediaID)
				}
			}
		}
	}

	if s.Width < MinCanvasSize || s.Width > MaxCanvasWidth ||
		s.Height < MinCanvasSize || s.Height > MaxCanvasHeight {
		add("canvas", "size %dx%d outside %d..%dx%d..%d",
			s.Width, s.Height,
			MinCanvasSize, MaxCanvasWidth,
			MinCanvasSize, MaxCanvasHeight)
	}
	if s.Scale < MinScale || s.Scale > MaxScale {
		add("scale", "resolution multiplier %v outside %v..%v", s.Scale, MinScale, MaxScale)
	}
	if s.FPS < MinFPS || s.FPS > MaxFPS {
		add("fps", "frame rate %d outside %d..%d", s.FPS, MinFPS, MaxFPS)
	}
	if !SampleRateSupported(s.SampleRate) {
		add("sampleRate", "unsupported sample rate %d", s.SampleRate)
	}
	if s.Channels < MinChannels || s.Channels > MaxChannels {
		add("channels", "channel count %d outside %d..%d", s.Channels, MinChannels, MaxChannels)
	}

	return errs
}
