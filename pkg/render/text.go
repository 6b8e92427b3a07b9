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

	"vexport/pkg/timeline"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// TextRenderer draws text elements. The coordinate origin is the
// canvas center.
type TextRenderer struct {
	fonts *fontCache
}

// NewTextRenderer returns a text renderer with its own font cache.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{fonts: newFontCache()}
}

// rasterLine renders one line of text into a tight raster,
// optionally with a background box and extra padding around it.
func (r *TextRenderer) rasterLine(
	content string,
	face font.Face,
	textColor color.Color,
	background string,
	padding int,
) *image.RGBA {
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()

	textWidth := font.MeasureString(face, content).Ceil()
	if textWidth < 1 {
		textWidth = 1
	}

	width := textWidth + 2*padding
	height := ascent + descent + 2*padding

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	if !Transparent(background) {
		draw.Draw(img, img.Bounds(),
			image.NewUniform(ParseColor(background)), image.Point{}, draw.Src)
	}

	drawer := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: face,
		Dot:  fixed.P(padding, padding+ascent),
	}
	drawer.DrawString(content)

	return img
}

// decorationThickness scales the line width with the font size.
func decorationThickness(fontSize float64) int {
	thickness := int(fontSize / 20)
	if thickness < 1 {
		thickness = 1
	}
	return thickness
}

func drawDecoration(img *image.RGBA, decoration string, face font.Face, fontSize float64, textColor color.Color, padding int) {
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()

	var y int
	switch decoration {
	case "underline":
		y = padding + ascent + 1
	case "line-through":
		y = padding + ascent - ascent/3
	default:
		return
	}

	thickness := decorationThickness(fontSize)
	line := image.Rect(padding, y, img.Bounds().Dx()-padding, y+thickness)
	draw.Draw(img, line, image.NewUniform(textColor), image.Point{}, draw.Over)
}

// Render draws the element onto the surface. Position (X, Y) is an
// offset from the canvas center, the baseline is set to middle.
func (r *TextRenderer) Render(s *Surface, e *timeline.TextElement, canvasW, canvasH int) error {
	face, err := r.fonts.face(e.Weight, e.Style, e.FontSize)
	if err != nil {
		return err
	}

	textColor := ParseColor(e.Color)
	img := r.rasterLine(e.Content, face, textColor, e.Background, 0)
	drawDecoration(img, e.Decoration, face, e.FontSize, textColor, 0)

	w := float64(img.Bounds().Dx())
	h := float64(img.Bounds().Dy())

	// Horizontal anchor, justified by text-align.
	var anchorX float64
	switch e.Align {
	case "left":
		anchorX = 0
	case "right":
		anchorX = -w
	default: // center
		anchorX = -w / 2
	}

	cx := float64(canvasW)/2 + e.X
	cy := float64(canvasH)/2 + e.Y

	s.Save()
	defer s.Restore()

	s.Translate(cx, cy)
	if e.Rotation != 0 {
		s.Rotate(e.Rotation)
	}
	s.DrawImage(img, anchorX, -h/2, w, h)
	return nil
}
