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

package effect

import (
	"errors"
	"image/color"
	"testing"

	"vexport/pkg/render"
	"vexport/pkg/timeline"

	"github.com/stretchr/testify/require"
)

func testSurface(c color.RGBA) *render.Surface {
	s := render.NewSurface(16, 16)
	s.Clear(c)
	return s
}

var testExportSettings = timeline.DefaultSettings()

// identity is a processor that does nothing.
type identity struct{}

func (*identity) ID() string { return "identity" }
func (*identity) Kind() Kind { return KindEffect }
func (*identity) Process(*render.Surface, timeline.Settings, float64) error {
	return nil
}

// failing always errors.
type failing struct{}

func (*failing) ID() string { return "failing" }
func (*failing) Kind() Kind { return KindEffect }
func (*failing) Process(*render.Surface, timeline.Settings, float64) error {
	return errors.New("mock")
}

// panicking panics.
type panicking struct{}

func (*panicking) ID() string { return "panicking" }
func (*panicking) Kind() Kind { return KindEffect }
func (*panicking) Process(*render.Surface, timeline.Settings, float64) error {
	panic("mock")
}

func TestPipelineOps(t *testing.T) {
	p := NewPipeline(nil, "")

	p.Add(&Brightness{Name: "b1", Amount: 1})
	p.Add(&Blur{Name: "blur1", Radius: 1})
	p.Add(&identity{})

	require.Equal(t, []string{"b1", "blur1", "identity"}, p.List())

	p.Reorder([]string{"identity", "b1"})
	require.Equal(t, []string{"identity", "b1", "blur1"}, p.List())

	require.True(t, p.Remove("blur1"))
	require.False(t, p.Remove("missing"))
	require.Equal(t, 2, p.Len())
}

// An empty pipeline or one of only identity processors leaves the
// surface untouched.
func TestPipelineIdentity(t *testing.T) {
	base := testSurface(color.RGBA{10, 20, 30, 255})
	want := make([]byte, len(base.Image().Pix))
	copy(want, base.Image().Pix)

	empty := NewPipeline(nil, "")
	empty.Run(base, testExportSettings, 0)
	require.Equal(t, want, base.Image().Pix)

	ident := NewPipeline(nil, "")
	ident.Add(&identity{})
	ident.Run(base, testExportSettings, 0)
	require.Equal(t, want, base.Image().Pix)
}

// A failing or panicking processor is skipped, the surface and the
// rest of the pipeline proceed.
func TestPipelineFailurePolicy(t *testing.T) {
	s := testSurface(color.RGBA{100, 100, 100, 255})

	p := NewPipeline(nil, "")
	p.Add(&failing{})
	p.Add(&panicking{})
	p.Add(&Brightness{Name: "half", Amount: 0.5})

	p.Run(s, testExportSettings, 0)

	px := s.Image().RGBAAt(8, 8)
	require.Equal(t, uint8(50), px.R)
}

func TestBrightness(t *testing.T) {
	s := testSurface(color.RGBA{100, 100, 100, 255})

	e := &Brightness{Name: "b", Amount: 2}
	require.NoError(t, e.Process(s, testExportSettings, 0))
	require.Equal(t, uint8(200), s.Image().RGBAAt(4, 4).R)

	// Clamps at white.
	require.NoError(t, e.Process(s, testExportSettings, 0))
	require.Equal(t, uint8(255), s.Image().RGBAAt(4, 4).R)
}

func TestBlurPreservesFlatColor(t *testing.T) {
	s := testSurface(color.RGBA{77, 88, 99, 255})

	e := &Blur{Name: "blur", Radius: 3}
	require.NoError(t, e.Process(s, testExportSettings, 0))

	require.Equal(t, color.RGBA{77, 88, 99, 255}, s.Image().RGBAAt(8, 8))
	require.Equal(t, color.RGBA{77, 88, 99, 255}, s.Image().RGBAAt(0, 0))
}

func TestBlurSmooths(t *testing.T) {
	s := testSurface(color.RGBA{0, 0, 0, 255})
	s.Image().SetRGBA(8, 8, color.RGBA{255, 255, 255, 255})

	e := &Blur{Name: "blur", Radius: 1}
	require.NoError(t, e.Process(s, testExportSettings, 0))

	center := s.Image().RGBAAt(8, 8)
	require.Less(t, center.R, uint8(255))
	require.Greater(t, center.R, uint8(0))

	neighbor := s.Image().RGBAAt(7, 8)
	require.Greater(t, neighbor.R, uint8(0))
}

func TestColorFilterIdentity(t *testing.T) {
	s := testSurface(color.RGBA{120, 60, 30, 255})

	e := &ColorFilter{Name: "cf", Hue: 0, Saturation: 1, Brightness: 1}
	require.NoError(t, e.Process(s, testExportSettings, 0))

	px := s.Image().RGBAAt(4, 4)
	require.InDelta(t, 120, int(px.R), 2)
	require.InDelta(t, 60, int(px.G), 2)
	require.InDelta(t, 30, int(px.B), 2)
}

func TestColorFilterDesaturate(t *testing.T) {
	s := testSurface(color.RGBA{200, 50, 50, 255})

	e := &ColorFilter{Name: "cf", Saturation: 0, Brightness: 1}
	require.NoError(t, e.Process(s, testExportSettings, 0))

	px := s.Image().RGBAAt(4, 4)
	require.Equal(t, px.R, px.G)
	require.Equal(t, px.G, px.B)
}

func TestFade(t *testing.T) {
	e := &Fade{Name: "fade", Mode: FadeIn, Start: 0, Duration: 2}

	t.Run("start", func(t *testing.T) {
		s := testSurface(color.RGBA{200, 200, 200, 255})
		require.NoError(t, e.Process(s, testExportSettings, 0))
		require.Equal(t, uint8(0), s.Image().RGBAAt(4, 4).R)
	})
	t.Run("middle", func(t *testing.T) {
		s := testSurface(color.RGBA{200, 200, 200, 255})
		require.NoError(t, e.Process(s, testExportSettings, 1))
		require.Equal(t, uint8(100), s.Image().RGBAAt(4, 4).R)
	})
	t.Run("end", func(t *testing.T) {
		s := testSurface(color.RGBA{200, 200, 200, 255})
		require.NoError(t, e.Process(s, testExportSettings, 2))
		require.Equal(t, uint8(200), s.Image().RGBAAt(4, 4).R)
	})
	t.Run("out", func(t *testing.T) {
		s := testSurface(color.RGBA{200, 200, 200, 255})
		out := &Fade{Name: "fade", Mode: FadeOut, Start: 0, Duration: 2}
		require.NoError(t, out.Process(s, testExportSettings, 2))
		require.Equal(t, uint8(0), s.Image().RGBAAt(4, 4).R)
	})
}

func TestSlide(t *testing.T) {
	s := testSurface(color.RGBA{255, 0, 0, 255})

	// Half way through a slide from the right, the left half is empty.
	e := &Slide{Name: "slide", Direction: SlideRight, Start: 0, Duration: 2}
	require.NoError(t, e.Process(s, testExportSettings, 1))

	require.Equal(t, uint8(0), s.Image().RGBAAt(2, 8).A)
	require.Equal(t, uint8(255), s.Image().RGBAAt(12, 8).R)
}

func TestWipe(t *testing.T) {
	t.Run("horizontal", func(t *testing.T) {
		s := testSurface(color.RGBA{255, 0, 0, 255})
		e := &Wipe{Name: "wipe", Axis: WipeHorizontal, Start: 0, Duration: 2}
		require.NoError(t, e.Process(s, testExportSettings, 1))

		require.Equal(t, uint8(255), s.Image().RGBAAt(2, 8).R)
		require.Equal(t, uint8(0), s.Image().RGBAAt(12, 8).R)
	})
	t.Run("vertical", func(t *testing.T) {
		s := testSurface(color.RGBA{255, 0, 0, 255})
		e := &Wipe{Name: "wipe", Axis: WipeVertical, Start: 0, Duration: 2}
		require.NoError(t, e.Process(s, testExportSettings, 1))

		require.Equal(t, uint8(255), s.Image().RGBAAt(8, 2).R)
		require.Equal(t, uint8(0), s.Image().RGBAAt(8, 12).R)
	})
	t.Run("complete", func(t *testing.T) {
		s := testSurface(color.RGBA{255, 0, 0, 255})
		e := &Wipe{Name: "wipe", Axis: WipeHorizontal, Start: 0, Duration: 2}
		require.NoError(t, e.Process(s, testExportSettings, 5))
		require.Equal(t, uint8(255), s.Image().RGBAAt(15, 15).R)
	})
}

func TestProgressClamped(t *testing.T) {
	require.Equal(t, 0.0, progress(-1, 0, 2))
	require.Equal(t, 0.5, progress(1, 0, 2))
	require.Equal(t, 1.0, progress(5, 0, 2))
	require.Equal(t, 1.0, progress(0, 0, 0))
}
