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

import "math"

// Buffer is planar float32 PCM.
type Buffer struct {
	SampleRate int
	Data       [][]float32
}

// NewBuffer returns a zeroed buffer with the given layout.
func NewBuffer(sampleRate int, channels int, length int) *Buffer {
	data := make([][]float32, channels)
	for c := range data {
		data[c] = make([]float32, length)
	}
	return &Buffer{SampleRate: sampleRate, Data: data}
}

// Channels returns the channel count.
func (b *Buffer) Channels() int { return len(b.Data) }

// Len returns the per-channel sample count.
func (b *Buffer) Len() int {
	if len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Duration returns the buffer duration in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(b.Len()) / float64(b.SampleRate)
}

// Resample converts the buffer to outRate by linear interpolation.
// The result length is ceil(duration * outRate). The receiver is
// returned unchanged if it is already at outRate.
func (b *Buffer) Resample(outRate int) *Buffer {
	if b.SampleRate == outRate {
		return b
	}

	srcLen := b.Len()
	outLen := int(math.Ceil(b.Duration() * float64(outRate)))
	out := NewBuffer(outRate, b.Channels(), outLen)

	ratio := float64(b.SampleRate) / float64(outRate)
	for c := range b.Data {
		src := b.Data[c]
		dst := out.Data[c]
		for i := range dst {
			pos := float64(i) * ratio
			left := int(pos)
			if left >= srcLen-1 {
				dst[i] = src[srcLen-1]
				continue
			}
			frac := float32(pos - float64(left))
			dst[i] = src[left]*(1-frac) + src[left+1]*frac
		}
	}
	return out
}
