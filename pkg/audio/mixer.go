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

package audio

import (
	"math"
)

// Mixer accumulates every audio-bearing element into a single
// planar buffer covering the full timeline span. Clipping is a hard
// clamp to [-1, 1] after each addition, chosen for determinism.
type Mixer struct {
	out *Buffer
}

// NewMixer returns a mixer whose output covers duration seconds,
// length ceil(duration * sampleRate).
func NewMixer(duration float64, sampleRate int, channels int) *Mixer {
	length := int(math.Ceil(duration * float64(sampleRate)))
	return &Mixer{out: NewBuffer(sampleRate, channels, length)}
}

// Add mixes one source into the output. The source is resampled to
// the output rate if needed, then summed at the element's offset
// with its trims applied.
func (m *Mixer) Add(src *Buffer, startTime, trimStart, trimEnd float64) {
	src = src.Resample(m.out.SampleRate)

	outRate := float64(m.out.SampleRate)
	offset := int(math.Floor(startTime * outRate))
	trimStartS := int(math.Floor(trimStart * outRate))
	trimEndS := int(math.Floor(trimEnd * outRate))

	effectiveLength := src.Len() - trimStartS - trimEndS
	if effectiveLength <= 0 {
		return
	}

	outLen := m.out.Len()
	channels := src.Channels()
	if outCh := m.out.Channels(); channels > outCh {
		channels = outCh
	}

	for c := 0; c < channels; c++ {
		srcData := src.Data[c]
		outData := m.out.Data[c]
		for i := 0; i < effectiveLength && offset+i < outLen; i++ {
			v := outData[offset+i] + srcData[trimStartS+i]
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			outData[offset+i] = v
		}
	}
}

// Output returns the mixed buffer.
func (m *Mixer) Output() *Buffer {
	return m.out
}
