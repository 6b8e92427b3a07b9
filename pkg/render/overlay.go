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
	"context"
	"image"
	"image/color"

	"vexport/pkg/media"
	"vexport/pkg/timeline"
)

// Image overlays that fail to load fall back to a neutral grey so
// the frame stays structurally consistent.
var overlayFallback = color.RGBA{0x80, 0x80, 0x80, 0xff}

// OverlayRenderer draws overlay elements, centered on (X, Y) in
// canvas-top-left pixel coordinates.
type OverlayRenderer struct {
	cache *media.Cache
}

// NewOverlayRenderer returns an overlay renderer backed by the
// media cache.
func NewOverlayRenderer(cache *media.Cache) *OverlayRenderer {
	return &OverlayRenderer{cache: cache}
}

// Render draws the element onto the surface.
func (r *OverlayRenderer) Render(ctx context.Context, s *Surface, e *timeline.OverlayElement) error {
	w, h := e.Width, e.Height
	if w <= 0 || h <= 0 {
		return nil
	}

	s.Save()
	defer s.Restore()

	s.Translate(e.X, e.Y)
	if e.Rotation != 0 {
		s.Rotate(e.Rotation)
	}

	switch e.Kind {
	case timeline.OverlayShape:
		s.FillRect(-w/2, -h/2, w, h, ParseColor(e.Source))

	case timeline.OverlayImage:
		img := r.loadOverlayImage(ctx, e)
		s.DrawImage(img, -w/2, -h/2, w, h)

	case timeline.OverlayPattern:
		img := Pattern(timeline.PatternKind(e.Source), int(w), int(h))
		s.DrawImage(img, -w/2, -h/2, w, h)
	}
	return nil
}

func (r *OverlayRenderer) loadOverlayImage(ctx context.Context, e *timeline.OverlayElement) image.Image {
	// The overlay source doubles as the cache key.
	img, err := r.cache.Image(ctx, e.Source, timeline.Source{URL: e.Source})
	if err != nil {
		fallback := image.NewRGBA(image.Rect(0, 0, 1, 1))
		fallback.SetRGBA(0, 0, overlayFallback)
		return fallback
	}
	return img
}
