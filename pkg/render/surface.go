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

package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"vexport/pkg/timeline"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// state is one entry of the save/restore stack.
type state struct {
	transform f64.Aff3
	alpha     float64
	blend     timeline.BlendMode
}

func identity() f64.Aff3 {
	return f64.Aff3{1, 0, 0, 0, 1, 0}
}

// mul returns a*b, apply b first then a.
func mul(a, b f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		a[0]*b[0] + a[1]*b[3],
		a[0]*b[1] + a[1]*b[4],
		a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3],
		a[3]*b[1] + a[4]*b[4],
		a[3]*b[2] + a[4]*b[5] + a[5],
	}
}

// Surface is the shared raster the frame is composited onto. It is
// owned by a single goroutine, renderers receive it by exclusive
// reference for the duration of their call. Transform, alpha and
// blend mode are process-local state guarded by Save and Restore.
type Surface struct {
	img   *image.RGBA
	layer *image.RGBA // Scratch layer, reused between draws.
	stack []state
}

// NewSurface allocates a surface of the given size. The raster is
// allocated once and reused across frames.
func NewSurface(width, height int) *Surface {
	return &Surface{
		img:   image.NewRGBA(image.Rect(0, 0, width, height)),
		layer: image.NewRGBA(image.Rect(0, 0, width, height)),
		stack: []state{{
			transform: identity(),
			alpha:     1,
			blend:     timeline.BlendSourceOver,
		}},
	}
}

// Image returns the underlying raster.
func (s *Surface) Image() *image.RGBA { return s.img }

// Width returns the surface width in pixels.
func (s *Surface) Width() int { return s.img.Bounds().Dx() }

// Height returns the surface height in pixels.
func (s *Surface) Height() int { return s.img.Bounds().Dy() }

func (s *Surface) cur() *state {
	return &s.stack[len(s.stack)-1]
}

// Save pushes the current state.
func (s *Surface) Save() {
	s.stack = append(s.stack, *s.cur())
}

// Restore pops to the previously saved state. The base state can
// not be popped.
func (s *Surface) Restore() {
	if len(s.stack) > 1 {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

// SetAlpha multiplies the global alpha.
func (s *Surface) SetAlpha(alpha float64) {
	if alpha < 0 {
		alpha = 0
	} else if alpha > 1 {
		alpha = 1
	}
	s.cur().alpha *= alpha
}

// SetBlend sets the blend mode.
func (s *Surface) SetBlend(mode timeline.BlendMode) {
	s.cur().blend = mode
}

// Translate moves the origin.
func (s *Surface) Translate(x, y float64) {
	s.cur().transform = mul(s.cur().transform, f64.Aff3{1, 0, x, 0, 1, y})
}

// Scale scales subsequent draws.
func (s *Surface) Scale(x, y float64) {
	s.cur().transform = mul(s.cur().transform, f64.Aff3{x, 0, 0, 0, y, 0})
}

// Rotate rotates subsequent draws clockwise, in degrees.
func (s *Surface) Rotate(degrees float64) {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	s.cur().transform = mul(s.cur().transform, f64.Aff3{cos, -sin, 0, sin, cos, 0})
}

// Clear fills the whole raster, resetting any previous content.
func (s *Surface) Clear(c color.Color) {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// FillRect fills an axis-aligned rectangle in the current
// transform with a solid color.
func (s *Surface) FillRect(x, y, w, h float64, c color.Color) {
	solid := image.NewRGBA(image.Rect(0, 0, 1, 1))
	solid.Set(0, 0, c)
	s.drawTransformed(solid, x, y, w, h, xdraw.NearestNeighbor)
}

// DrawImage draws img with its top-left corner at (x, y), scaled to
// w by h, honoring the current transform, alpha and blend mode.
func (s *Surface) DrawImage(img image.Image, x, y, w, h float64) {
	s.drawTransformed(img, x, y, w, h, xdraw.ApproxBiLinear)
}

func (s *Surface) drawTransformed(img image.Image, x, y, w, h float64, interp xdraw.Interpolator) {
	bounds := img.Bounds()
	iw, ih := bounds.Dx(), bounds.Dy()
	if iw == 0 || ih == 0 || w <= 0 || h <= 0 {
		return
	}

	m := mul(s.cur().transform, f64.Aff3{1, 0, x, 0, 1, y})
	m = mul(m, f64.Aff3{w / float64(iw), 0, 0, 0, h / float64(ih), 0})

	st := s.cur()
	if st.blend == timeline.BlendSourceOver && st.alpha >= 1 {
		// Fast path straight onto the raster.
		interp.Transform(s.img, m, img, bounds, xdraw.Over, nil)
		return
	}

	// Render onto a clean scratch layer, then composite it with the
	// requested alpha and blend mode.
	clearRGBA(s.layer)
	interp.Transform(s.layer, m, img, bounds, xdraw.Over, nil)
	s.compositeLayer(st.alpha, st.blend)
}

func clearRGBA(img *image.RGBA) {
	pix := img.Pix
	for i := range pix {
		pix[i] = 0
	}
}

// compositeLayer merges the scratch layer onto the raster.
// Layer and raster hold premultiplied values.
func (s *Surface) compositeLayer(alpha float64, mode timeline.BlendMode) {
	src := s.layer.Pix
	dst := s.img.Pix

	for i := 0; i < len(src); i += 4 {
		sa := float64(src[i+3]) / 255 * alpha
		if sa == 0 {
			continue
		}

		// Unpremultiply the source.
		div := float64(src[i+3]) / 255
		sr := float64(src[i]) / 255 / div
		sg := float64(src[i+1]) / 255 / div
		sb := float64(src[i+2]) / 255 / div

		da := float64(dst[i+3]) / 255
		var dr, dg, db float64
		if da > 0 {
			dr = float64(dst[i]) / 255 / da
			dg = float64(dst[i+1]) / 255 / da
			db = float64(dst[i+2]) / 255 / da
		}

		br := blendChannel(mode, dr, sr)
		bg := blendChannel(mode, dg, sg)
		bb := blendChannel(mode, db, sb)

		// W3C compositing: mix the blended color where the backdrop
		// is opaque, the raw source where it is not, then source-over.
		cr := (1-da)*sr + da*br
		cg := (1-da)*sg + da*bg
		cb := (1-da)*sb + da*bb

		oa := sa + da*(1-sa)
		or := cr*sa + dr*da*(1-sa)
		og := cg*sa + dg*da*(1-sa)
		ob := cb*sa + db*da*(1-sa)

		dst[i] = clamp8(or * 255)
		dst[i+1] = clamp8(og * 255)
		dst[i+2] = clamp8(ob * 255)
		dst[i+3] = clamp8(oa * 255)
	}
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func blendChannel(mode timeline.BlendMode, backdrop, source float64) float64 {
	switch mode {
	case timeline.BlendMultiply:
		return backdrop * source
	case timeline.BlendScreen:
		return backdrop + source - backdrop*source
	case timeline.BlendDarken:
		return math.Min(backdrop, source)
	case timeline.BlendLighten:
		return math.Max(backdrop, source)
	case timeline.BlendAdd:
		return math.Min(1, backdrop+source)
	}
	return source
}
