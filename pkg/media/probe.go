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

package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Info describes a probed media file.
type Info struct {
	Duration float64 `json:"duration"`

	HasVideo bool    `json:"hasVideo"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	FPS      float64 `json:"fps"`

	HasAudio   bool `json:"hasAudio"`
	SampleRate int  `json:"sampleRate"`
	Channels   int  `json:"channels"`
}

// ffprobe JSON output shapes.
type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	SampleRate   string `json:"sample_rate"`
	Channels     int    `json:"channels"`
	Duration     string `json:"duration"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// ProbeFunc is used for mocking.
type ProbeFunc func(context.Context, string) (*Info, error)

// Prober runs ffprobe against media files.
type Prober struct {
	bin string
}

// NewProber returns a prober using the given ffprobe binary.
func NewProber(bin string) *Prober {
	return &Prober{bin: bin}
}

// Probe inspects a media file.
func (p *Prober) Probe(ctx context.Context, path string) (*Info, error) {
	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe: %v: %w", strings.TrimSpace(stderr.String()), err)
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("could not unmarshal ffprobe output: %w", err)
	}

	return parseProbeOutput(&out)
}

func parseProbeOutput(out *probeOutput) (*Info, error) {
	info := &Info{}

	info.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)

	for _, stream := range out.Streams {
		switch stream.CodecType {
		case "video":
			info.HasVideo = true
			info.Width = stream.Width
			info.Height = stream.Height
			info.FPS = parseFrameRate(stream.AvgFrameRate)

		case "audio":
			info.HasAudio = true
			info.SampleRate, _ = strconv.Atoi(stream.SampleRate)
			info.Channels = stream.Channels
		}

		// Some containers only report duration per stream.
		if info.Duration == 0 {
			if d, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
				info.Duration = d
			}
		}
	}

	if !info.HasVideo && !info.HasAudio {
		return nil, fmt.Errorf("no media streams found")
	}

	return info, nil
}

// parseFrameRate parses a ffprobe rational like "30000/1001".
func parseFrameRate(rate string) float64 {
	num, den, found := strings.Cut(rate, "/")
	if !found {
		f, _ := strconv.ParseFloat(rate, 64)
		return f
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
