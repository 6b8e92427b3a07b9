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
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"vexport/pkg/timeline"

	"github.com/stretchr/testify/require"
)

func TestParseProbeOutput(t *testing.T) {
	out := &probeOutput{
		Streams: []probeStream{
			{
				CodecType:    "video",
				Width:        1920,
				Height:       1080,
				AvgFrameRate: "30000/1001",
			},
			{
				CodecType:  "audio",
				SampleRate: "48000",
				Channels:   2,
			},
		},
		Format: probeFormat{Duration: "10.500000"},
	}

	info, err := parseProbeOutput(out)
	require.NoError(t, err)

	require.True(t, info.HasVideo)
	require.Equal(t, 1920, info.Width)
	require.Equal(t, 1080, info.Height)
	require.InDelta(t, 29.97, info.FPS, 0.01)

	require.True(t, info.HasAudio)
	require.Equal(t, 48000, info.SampleRate)
	require.Equal(t, 2, info.Channels)

	require.Equal(t, 10.5, info.Duration)
}

func TestParseProbeOutputNoStreams(t *testing.T) {
	_, err := parseProbeOutput(&probeOutput{})
	require.Error(t, err)
}

func TestParseFrameRate(t *testing.T) {
	require.Equal(t, 30.0, parseFrameRate("30/1"))
	require.Equal(t, 30.0, parseFrameRate("30"))
	require.InDelta(t, 29.97, parseFrameRate("30000/1001"), 0.01)
	require.Equal(t, 0.0, parseFrameRate("0/0"))
	require.Equal(t, 0.0, parseFrameRate("bad"))
}

func TestProbeCache(t *testing.T) {
	mediaPath := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(mediaPath, []byte("x"), 0o600))

	probeCount := 0
	probe := func(ctx context.Context, path string) (*Info, error) {
		probeCount++
		return &Info{Duration: 5, HasVideo: true, Width: 640, Height: 360}, nil
	}

	cache, err := NewProbeCache(filepath.Join(t.TempDir(), "probe.db"), probe)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	info, err := cache.Probe(ctx, mediaPath)
	require.NoError(t, err)
	require.Equal(t, 5.0, info.Duration)
	require.Equal(t, 1, probeCount)

	// Second probe hits the cache.
	info, err = cache.Probe(ctx, mediaPath)
	require.NoError(t, err)
	require.Equal(t, 640, info.Width)
	require.Equal(t, 1, probeCount)

	// Touching the file invalidates the entry.
	require.NoError(t, os.WriteFile(mediaPath, []byte("xy"), 0o600))
	_, err = cache.Probe(ctx, mediaPath)
	require.NoError(t, err)
	require.Equal(t, 2, probeCount)
}

func writeTestPNG(t *testing.T, dir string) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for i := 0; i < 4*2; i++ {
		img.Set(i%4, i/4, color.RGBA{R: 255, A: 255})
	}

	path := filepath.Join(dir, "img.png")
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, img))
	require.NoError(t, file.Close())
	return path
}

func TestCacheImage(t *testing.T) {
	path := writeTestPNG(t, t.TempDir())

	cache := NewCache("", nil, nil, nil, "job1")
	ctx := context.Background()

	img, err := cache.Image(ctx, "img1", timeline.Source{Path: path})
	require.NoError(t, err)
	require.Equal(t, 4, img.Bounds().Dx())
	require.Equal(t, 2, img.Bounds().Dy())

	// Second load comes from the cache even if the file is gone.
	require.NoError(t, os.Remove(path))
	img2, err := cache.Image(ctx, "img1", timeline.Source{Path: path})
	require.NoError(t, err)
	require.Equal(t, img, img2)
}

func TestCacheFailedAsset(t *testing.T) {
	cache := NewCache("", nil, nil, nil, "job1")
	ctx := context.Background()

	_, err := cache.Image(ctx, "broken", timeline.Source{Path: "/does/not/exist.png"})
	require.ErrorIs(t, err, ErrAssetFailed)

	// The id stays excluded for the whole run.
	_, err = cache.Image(ctx, "broken", timeline.Source{Path: "/does/not/exist.png"})
	require.ErrorIs(t, err, ErrAssetFailed)
}

func TestFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("media bytes")) //nolint:errcheck
		}))
	defer server.Close()

	fetcher := NewFetcher(t.TempDir())

	path, err := fetcher.Fetch(context.Background(), "clip1", server.URL+"/clip.mp4")
	require.NoError(t, err)

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("media bytes"), buf)
}

func TestFetcherStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
	defer server.Close()

	fetcher := NewFetcher(t.TempDir())

	_, err := fetcher.Fetch(context.Background(), "clip1", server.URL)
	require.Error(t, err)
}

func TestLoadImageTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadImage(ctx, "/does/not/matter.png")
	require.Error(t, err)
}
