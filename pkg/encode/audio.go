package encode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"vexport/pkg/audio"
	"vexport/pkg/timeline"
	"vexport/pkg/video/aac"
)

// EncodeAudio encodes the mixed PCM bed to AAC-LC in one
// encode-and-flush sequence, returning the access units and the
// stream configuration for the muxer.
func EncodeAudio(
	ctx context.Context,
	ffmpegBin string,
	mixed *audio.Buffer,
	settings timeline.Settings,
) ([][]byte, *aac.MPEG4AudioConfig, error) {
	if mixed.Len() == 0 {
		return nil, nil, nil
	}

	cmd := exec.CommandContext(ctx, ffmpegBin,
		"-loglevel", "error",
		"-f", "f32le",
		"-ar", strconv.Itoa(mixed.SampleRate),
		"-ac", strconv.Itoa(mixed.Channels()),
		"-i", "-",
		"-c:a", "aac",
		"-b:a", strconv.Itoa(settings.AudioBitrate),
		"-f", "adts",
		"-",
	)

	cmd.Stdin = bytes.NewReader(audio.Interleave(mixed))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, nil, fmt.Errorf("encode audio: %v: %w", strings.TrimSpace(stderr.String()), err)
	}

	packets, err := aac.DecodeADTS(stdout.Bytes())
	if err != nil {
		return nil, nil, fmt.Errorf("parse encoder output: %w", err)
	}
	if len(packets) == 0 {
		return nil, nil, fmt.Errorf("encoder produced no packets")
	}

	config := &aac.MPEG4AudioConfig{
		Type:         aac.MPEG4AudioType(packets[0].Type),
		SampleRate:   packets[0].SampleRate,
		ChannelCount: packets[0].ChannelCount,
	}

	aus := make([][]byte, 0, len(packets))
	for _, packet := range packets {
		aus = append(aus, packet.AU)
	}
	return aus, config, nil
}
