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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActiveInterval(t *testing.T) {
	element := ElementBase{
		StartTime: 1,
		Duration:  3,
		TrimStart: 0.5,
		TrimEnd:   0.5,
	}

	require.Equal(t, 3.0, element.End())

	cases := []struct {
		name   string
		time   float64
		active bool
	}{
		{"before", 0.999, false},
		{"start", 1, true},
		{"middle", 2, true},
		{"lastFrame", 2.999, true},
		{"end", 3, false},
		{"after", 4, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.active, element.ActiveAt(tc.time))
		})
	}
}

func TestZeroTrim(t *testing.T) {
	element := ElementBase{StartTime: 0, Duration: 5}
	require.Equal(t, 5.0, element.End())
	require.True(t, element.ActiveAt(4.999))
	require.False(t, element.ActiveAt(5))
}

func TestLocalTime(t *testing.T) {
	element := ElementBase{StartTime: 1, Duration: 3, TrimStart: 2}
	require.Equal(t, 2.0, element.LocalTime(1))
	require.InDelta(t, 4.999, element.LocalTime(3.999), 1e-9)
}

func TestCalculateDuration(t *testing.T) {
	tracks := []Track{
		{Elements: []Element{
			&MediaElement{ElementBase: ElementBase{StartTime: 0, Duration: 2}},
			&MediaElement{ElementBase: ElementBase{StartTime: 1, Duration: 4, TrimEnd: 1}},
		}},
		{Elements: []Element{
			&TextElement{ElementBase: ElementBase{StartTime: 3, Duration: 0.5}},
		}},
	}
	require.Equal(t, 4.0, CalculateDuration(tracks))
	require.Equal(t, 0.0, CalculateDuration(nil))
}

func TestEffectiveSize(t *testing.T) {
	cases := []struct {
		width, height int
		scale         float64
		expectW       int
		expectH       int
	}{
		{1920, 1080, 1, 1920, 1080},
		{1920, 1080, 0.5, 960, 540},
		{640, 360, 0.25, 160, 90},
		{1279, 719, 0.5, 640, 360}, // round(639.5), round(359.5).
	}
	for _, tc := range cases {
		s := Settings{Width: tc.width, Height: tc.height, Scale: tc.scale}
		w, h := s.EffectiveSize()
		require.Equal(t, tc.expectW, w)
		require.Equal(t, tc.expectH, h)
	}
}

func TestFrameMath(t *testing.T) {
	s := Settings{FPS: 30}

	require.Equal(t, 60, s.TotalFrames(2))
	require.Equal(t, 30, s.TotalFrames(1))
	require.Equal(t, 1, s.TotalFrames(0.01)) // Single frame export.

	require.Equal(t, int64(0), s.FramePTS(0))
	require.Equal(t, int64(33333), s.FramePTS(1))
	require.Equal(t, int64(66666), s.FramePTS(2))
	require.Equal(t, int64(33333), s.FrameDuration())

	// PTS is strictly monotonic.
	prev := int64(-1)
	for k := 0; k <= 61; k++ {
		pts := s.FramePTS(k)
		require.Greater(t, pts, prev)
		prev = pts
	}
}

func TestValidate(t *testing.T) {
	validModel := func() *Model {
		return &Model{
			Duration: 2,
			Tracks: []Track{{
				Kind: TrackMedia,
				Elements: []Element{&MediaElement{
					ElementBase: ElementBase{StartTime: 0, Duration: 2},
					MediaID:     "clip1",
					Kind:        MediaVideo,
					Source:      Source{Path: "/tmp/clip1.mp4"},
				}},
			}},
		}
	}
	validSettings := Settings{
		Width: 1920, Height: 1080, Scale: 1, FPS: 30,
		SampleRate: 48000, Channels: 2,
	}

	t.Run("ok", func(t *testing.T) {
		require.Empty(t, Validate(validModel(), validSettings))
	})
	t.Run("emptyTracks", func(t *testing.T) {
		errs := Validate(&Model{Duration: 1}, validSettings)
		require.Len(t, errs, 1)
		require.Equal(t, "tracks", errs[0].Field)
	})
	t.Run("zeroDuration", func(t *testing.T) {
		m := validModel()
		m.Duration = 0
		require.Len(t, Validate(m, validSettings), 1)
	})
	t.Run("negativeTime", func(t *testing.T) {
		m := validModel()
		m.Tracks[0].Elements[0].Base().StartTime = -1
		require.NotEmpty(t, Validate(m, validSettings))
	})
	t.Run("trimSum", func(t *testing.T) {
		m := validModel()
		m.Tracks[0].Elements[0].Base().TrimStart = 1
		m.Tracks[0].Elements[0].Base().TrimEnd = 1
		require.NotEmpty(t, Validate(m, validSettings))
	})
	t.Run("unresolvedMedia", func(t *testing.T) {
		m := validModel()
		m.Tracks[0].Elements[0].(*MediaElement).Source = Source{}
		require.NotEmpty(t, Validate(m, validSettings))
	})
	t.Run("canvas", func(t *testing.T) {
		s := validSettings
		s.Width = 63
		require.NotEmpty(t, Validate(validModel(), s))

		s = validSettings
		s.Height = 4321
		require.NotEmpty(t, Validate(validModel(), s))
	})
	t.Run("sampleRate", func(t *testing.T) {
		s := validSettings
		s.SampleRate = 44000
		require.NotEmpty(t, Validate(validModel(), s))
	})
	t.Run("allOffensesListed", func(t *testing.T) {
		s := validSettings
		s.Width = 0
		s.SampleRate = 123
		s.FPS = 0
		errs := Validate(&Model{}, s)
		require.GreaterOrEqual(t, len(errs), 5)
	})
}

func TestAdapt(t *testing.T) {
	library := MediaLibrary{
		"clip1": {Kind: "video", Path: "/media/clip1.mp4"},
		"img1":  {Kind: "image", URL: "https://example.com/img1.png", Width: 200, Height: 100},
	}
	canvas := ProjectCanvas{Width: 640, Height: 360, FPS: 30}

	tracks := []EditorTrack{
		{
			ID:   "t1",
			Kind: "media",
			Items: []EditorElement{
				{ID: "e1", Type: "media", MediaID: "clip1", Duration: 2},
				{ID: "e2", Type: "media", MediaID: "missing", Duration: 9},
				{ID: "e3", Type: "media", MediaID: "img1", StartTime: 1, Duration: 3, TrimEnd: 1},
			},
		},
		{
			ID:   "t2",
			Kind: "text",
			Items: []EditorElement{
				{ID: "e4", Type: "text", Content: "HELLO", FontSize: 40, Duration: 1},
			},
		},
	}

	model := Adapt(tracks, library, canvas)

	require.Len(t, model.Tracks, 2)

	// The unresolvable element was filtered.
	require.Len(t, model.Tracks[0].Elements, 2)

	// Duration ignores the filtered element.
	require.Equal(t, 3.0, model.Duration)

	media := model.Tracks[0].Elements[1].(*MediaElement)
	require.Equal(t, MediaImage, media.Kind)
	require.Equal(t, "https://example.com/img1.png", media.Source.URL)
	require.Equal(t, 200, media.Width)

	// Defaults.
	require.Equal(t, 1.0, media.Opacity)
	require.Equal(t, BlendSourceOver, media.Blend)
	require.Equal(t, 1.0, model.Tracks[0].Opacity)

	text := model.Tracks[1].Elements[0].(*TextElement)
	require.Equal(t, "HELLO", text.Content)
}

func TestParseProject(t *testing.T) {
	projectYAML := []byte(`
canvas:
  width: 640
  height: 360
  fps: 30
media:
  clip1:
    kind: video
    path: /media/clip1.mp4
tracks:
  - id: t1
    kind: media
    items:
      - id: e1
        type: media
        mediaId: clip1
        duration: 2
export:
  scale: 0.5
  background: "#ffffff"
  hwaccel: false
`)

	model, settings, err := ParseProject(projectYAML)
	require.NoError(t, err)

	require.Equal(t, 2.0, model.Duration)
	require.Equal(t, 640, settings.Width)
	require.Equal(t, 0.5, settings.Scale)
	require.Equal(t, "#ffffff", settings.Background)
	require.False(t, settings.HWAccel)

	// Untouched defaults survive.
	require.Equal(t, 48000, settings.SampleRate)

	_, _, err = ParseProject([]byte("\t:bad"))
	require.Error(t, err)
}
