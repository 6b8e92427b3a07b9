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
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strings"

	"vexport/pkg/media"
)

// ErrNoAudioStream is returned when a source has no audio.
var ErrNoAudioStream = errors.New("no audio stream")

// DecodeFunc is used for mocking.
type DecodeFunc func(context.Context, string) (*Buffer, error)

// Decoder decodes a media file's audio fully into memory at the
// source's native sample rate and channel count.
type Decoder struct {
	ffmpegBin string
	prober    media.ProbeFunc
}

// NewDecoder returns an audio decoder.
func NewDecoder(ffmpegBin string, prober media.ProbeFunc) *Decoder {
	return &Decoder{ffmpegBin: ffmpegBin, prober: prober}
}

// Decode decodes the whole file.
func (d *Decoder) Decode(ctx context.Context, path string) (*Buffer, error) {
	info, err := d.prober(ctx, path)
	if err != nil {
		return nil, err
	}
	if !info.HasAudio || info.Channels == 0 || info.SampleRate == 0 {
		return nil, ErrNoAudioStream
	}

	cmd := exec.CommandContext(ctx, d.ffmpegBin,
		"-loglevel", "error",
		"-i", path,
		"-vn",
		"-acodec", "pcm_f32le",
		"-f", "f32le",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("decode audio: %v: %w", strings.TrimSpace(stderr.String()), err)
	}

	return deinterleave(stdout.Bytes(), info.SampleRate, info.Channels), nil
}

// deinterleave converts interleaved little-endian f32 PCM into a
// planar buffer.
func deinterleave(raw []byte, sampleRate int, channels int) *Buffer {
	frames := len(raw) / (4 * channels)
	out := NewBuffer(sampleRate, channels, frames)

	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			bits := binary.LittleEndian.Uint32(raw[(i*channels+c)*4:])
			out.Data[c][i] = math.Float32frombits(bits)
		}
	}
	return out
}

// Interleave converts a planar buffer into interleaved
// little-endian f32 PCM, the shape the encoder consumes.
func Interleave(b *Buffer) []byte {
	channels := b.Channels()
	frames := b.Len()
	raw := make([]byte, frames*channels*4)

	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			bits := math.Float32bits(b.Data[c][i])
			binary.LittleEndian.PutUint32(raw[(i*channels+c)*4:], bits)
		}
	}
	return raw
}
