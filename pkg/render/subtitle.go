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
	"vexport/pkg/timeline"
)

// subtitlePadding is drawn around the text box when a background
// is present.
const subtitlePadding = 8

// SubtitleRenderer draws subtitle elements. Unlike text elements the
// position is resolved from a preset or custom coordinates in
// canvas-top-left space.
type SubtitleRenderer struct {
	fonts *fontCache
}

// NewSubtitleRenderer returns a subtitle renderer with its own
// font cache.
func NewSubtitleRenderer() *SubtitleRenderer {
	return &SubtitleRenderer{fonts: newFontCache()}
}

// resolvePosition returns the subtitle center point.
func resolvePosition(e *timeline.SubtitleElement, canvasW, canvasH int) (float64, float64) {
	switch e.Position {
	case timeline.SubtitleTop:
		return float64(canvasW) / 2, 2 * e.FontSize
	case timeline.SubtitleCenter:
		return float64(canvasW) / 2, float64(canvasH) / 2
	case timeline.SubtitleCustom:
		return e.X, e.Y
	default: // bottom
		return float64(canvasW) / 2, float64(canvasH) - 2*e.FontSize
	}
}

// Render draws the element onto the surface.
func (r *SubtitleRenderer) Render(s *Surface, e *timeline.SubtitleElement, canvasW, canvasH int) error {
	face, err := r.fonts.face(0, "", e.FontSize)
	if err != nil {
		return err
	}

	padding := 0
	if !Transparent(e.Background) {
		padding = subtitlePadding
	}

	text := TextRenderer{fonts: r.fonts}
	img := text.rasterLine(e.Content, face, ParseColor(e.Color), e.Background, padding)

	w := float64(img.Bounds().Dx())
	h := float64(img.Bounds().Dy())

	var anchorX float64
	switch e.Align {
	case "left":
		anchorX = 0
	case "right":
		anchorX = -w
	default: // center
		anchorX = -w / 2
	}

	cx, cy := resolvePosition(e, canvasW, canvasH)

	s.Save()
	defer s.Restore()

	s.Translate(cx, cy)
	s.DrawImage(img, anchorX, -h/2, w, h)
	return nil
}
