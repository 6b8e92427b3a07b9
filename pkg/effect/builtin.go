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
	"image"
	"math"

	"vexport/pkg/render"
	"vexport/pkg/timeline"
)

// progress maps t onto [0, 1] over a transition's span.
func progress(t, start, duration float64) float64 {
	if duration <= 0 {
		return 1
	}
	p := (t - start) / duration
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

/*************************** blur ****************************/

// Blur is a box blur of the whole surface.
type Blur struct {
	Name   string
	Radius int
}

// ID implements Processor.
func (e *Blur) ID() string { return e.Name }

// Kind implements Processor.
func (*Blur) Kind() Kind { return KindEffect }

// Process implements Processor.
func (e *Blur) Process(s *render.Surface, _ timeline.Settings, _ float64) error {
	radius := e.Radius
	if radius < 1 {
		return nil
	}

	img := s.Image()
	boxBlurPass(img, radius, true)
	boxBlurPass(img, radius, false)
	return nil
}

// boxBlurPass runs one separable box blur pass, horizontal or
// vertical, using a sliding window sum.
func boxBlurPass(img *image.RGBA, radius int, horizontal bool) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	outer, inner := h, w
	if !horizontal {
		outer, inner = w, h
	}

	line := make([][4]int, inner)
	window := 2*radius + 1

	at := func(o, i int) int {
		if horizontal {
			return img.PixOffset(i, o)
		}
		return img.PixOffset(o, i)
	}

	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			off := at(o, i)
			line[i] = [4]int{
				int(img.Pix[off]),
				int(img.Pix[off+1]),
				int(img.Pix[off+2]),
				int(img.Pix[off+3]),
			}
		}

		var sum [4]int
		for i := -radius; i <= radius; i++ {
			sum = add4(sum, line[clampIndex(i, inner)])
		}

		for i := 0; i < inner; i++ {
			off := at(o, i)
			img.Pix[off] = uint8(sum[0] / window)
			img.Pix[off+1] = uint8(sum[1] / window)
			img.Pix[off+2] = uint8(sum[2] / window)
			img.Pix[off+3] = uint8(sum[3] / window)

			sum = sub4(sum, line[clampIndex(i-radius, inner)])
			sum = add4(sum, line[clampIndex(i+radius+1, inner)])
		}
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func add4(a, b [4]int) [4]int {
	return [4]int{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

func sub4(a, b [4]int) [4]int {
	return [4]int{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

/************************ brightness *************************/

// Brightness scales the surface brightness, 1 is identity.
type Brightness struct {
	Name   string
	Amount float64
}

// ID implements Processor.
func (e *Brightness) ID() string { return e.Name }

// Kind implements Processor.
func (*Brightness) Kind() Kind { return KindEffect }

// Process implements Processor.
func (e *Brightness) Process(s *render.Surface, _ timeline.Settings, _ float64) error {
	scaleRGB(s.Image(), e.Amount)
	return nil
}

func scaleRGB(img *image.RGBA, amount float64) {
	if amount == 1 {
		return
	}
	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i] = clamp8(float64(pix[i]) * amount)
		pix[i+1] = clamp8(float64(pix[i+1]) * amount)
		pix[i+2] = clamp8(float64(pix[i+2]) * amount)
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

/*********************** color filter ************************/

// ColorFilter adjusts hue, saturation and brightness.
type ColorFilter struct {
	Name       string
	Hue        float64 // Degrees.
	Saturation float64 // 1 is identity.
	Brightness float64 // 1 is identity.
}

// ID implements Processor.
func (e *ColorFilter) ID() string { return e.Name }

// Kind implements Processor.
func (*ColorFilter) Kind() Kind { return KindEffect }

// Process implements Processor.
func (e *ColorFilter) Process(s *render.Surface, _ timeline.Settings, _ float64) error {
	img := s.Image()
	pix := img.Pix

	for i := 0; i < len(pix); i += 4 {
		h, sat, l := rgbToHSL(pix[i], pix[i+1], pix[i+2])

		h = math.Mod(h+e.Hue, 360)
		if h < 0 {
			h += 360
		}
		sat = clamp01(sat * e.Saturation)
		l = clamp01(l * e.Brightness)

		pix[i], pix[i+1], pix[i+2] = hslToRGB(h, sat, l)
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func rgbToHSL(r8, g8, b8 uint8) (float64, float64, float64) {
	r := float64(r8) / 255
	g := float64(g8) / 255
	b := float64(b8) / 255

	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	l := (max + min) / 2

	if max == min {
		return 0, 0, l
	}

	d := max - min
	var s float64
	if l > 0.5 {
		s = d / (2 - max - min)
	} else {
		s = d / (max + min)
	}

	var h float64
	switch max {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	return h * 60, s, l
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	if s == 0 {
		v := clamp8(l * 255)
		return v, v, v
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	hk := h / 360
	r := hueToRGB(p, q, hk+1.0/3)
	g := hueToRGB(p, q, hk)
	b := hueToRGB(p, q, hk-1.0/3)
	return clamp8(r * 255), clamp8(g * 255), clamp8(b * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}

/*************************** fade ****************************/

// Fade modes.
const (
	FadeIn    = "in"
	FadeOut   = "out"
	FadeCross = "cross"
)

// Fade scales the frame toward black over the transition span.
type Fade struct {
	Name     string
	Mode     string
	Start    float64 // Seconds.
	Duration float64 // Seconds.
}

// ID implements Processor.
func (e *Fade) ID() string { return e.Name }

// Kind implements Processor.
func (*Fade) Kind() Kind { return KindTransition }

// Process implements Processor.
func (e *Fade) Process(s *render.Surface, _ timeline.Settings, t float64) error {
	p := progress(t, e.Start, e.Duration)

	var amount float64
	switch e.Mode {
	case FadeOut:
		amount = 1 - p
	case FadeCross:
		// Symmetric dip, out then in.
		amount = math.Abs(2*p - 1)
	default: // in
		amount = p
	}

	scaleRGB(s.Image(), amount)
	return nil
}

/*************************** slide ***************************/

// Slide directions.
const (
	SlideLeft  = "left"
	SlideRight = "right"
	SlideUp    = "up"
	SlideDown  = "down"
)

// Slide moves the frame in from one edge over the transition span.
type Slide struct {
	Name      string
	Direction string
	Start     float64
	Duration  float64
}

// ID implements Processor.
func (e *Slide) ID() string { return e.Name }

// Kind implements Processor.
func (*Slide) Kind() Kind { return KindTransition }

// Process implements Processor.
func (e *Slide) Process(s *render.Surface, _ timeline.Settings, t float64) error {
	p := progress(t, e.Start, e.Duration)
	if p >= 1 {
		return nil
	}

	img := s.Image()
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	var dx, dy int
	switch e.Direction {
	case SlideLeft:
		dx = -int(float64(w) * (1 - p))
	case SlideRight:
		dx = int(float64(w) * (1 - p))
	case SlideUp:
		dy = -int(float64(h) * (1 - p))
	case SlideDown:
		dy = int(float64(h) * (1 - p))
	}

	shifted := image.NewRGBA(img.Bounds())
	for y := 0; y < h; y++ {
		sy := y - dy
		if sy < 0 || sy >= h {
			continue
		}
		for x := 0; x < w; x++ {
			sx := x - dx
			if sx < 0 || sx >= w {
				continue
			}
			copy(shifted.Pix[shifted.PixOffset(x, y):shifted.PixOffset(x, y)+4],
				img.Pix[img.PixOffset(sx, sy):img.PixOffset(sx, sy)+4])
		}
	}
	copy(img.Pix, shifted.Pix)
	return nil
}

/*************************** wipe ****************************/

// Wipe axes.
const (
	WipeHorizontal = "horizontal"
	WipeVertical   = "vertical"
)

// Wipe reveals the frame along an axis over the transition span.
type Wipe struct {
	Name     string
	Axis     string
	Start    float64
	Duration float64
}

// ID implements Processor.
func (e *Wipe) ID() string { return e.Name }

// Kind implements Processor.
func (*Wipe) Kind() Kind { return KindTransition }

// Process implements Processor.
func (e *Wipe) Process(s *render.Surface, _ timeline.Settings, t float64) error {
	p := progress(t, e.Start, e.Duration)
	if p >= 1 {
		return nil
	}

	img := s.Image()
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	if e.Axis == WipeVertical {
		limit := int(float64(h) * p)
		for y := limit; y < h; y++ {
			row := img.PixOffset(0, y)
			for i := row; i < row+w*4; i++ {
				img.Pix[i] = 0
			}
		}
		return nil
	}

	limit := int(float64(w) * p)
	for y := 0; y < h; y++ {
		off := img.PixOffset(limit, y)
		end := img.PixOffset(0, y) + w*4
		for i := off; i < end; i++ {
			img.Pix[i] = 0
		}
	}
	return nil
}
