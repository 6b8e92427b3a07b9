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

	"vexport/pkg/media"
	"vexport/pkg/timeline"
)

// MediaRenderer draws media elements. Video fills the canvas, images
// with a known intrinsic size are centered at it, audio contributes
// nothing to the raster.
type MediaRenderer struct {
	cache  *media.Cache
	outFPS int
}

// NewMediaRenderer returns a media renderer backed by the media cache.
func NewMediaRenderer(cache *media.Cache, outFPS int) *MediaRenderer {
	return &MediaRenderer{cache: cache, outFPS: outFPS}
}

// Render draws the element onto the surface at timeline time t.
func (r *MediaRenderer) Render(
	ctx context.Context,
	s *Surface,
	e *timeline.MediaElement,
	t float64,
	canvasW, canvasH int,
) error {
	switch e.Kind {
	case timeline.MediaImage:
		return r.renderImage(ctx, s, e, canvasW, canvasH)

	case timeline.MediaVideo:
		return r.renderVideo(ctx, s, e, t, canvasW, canvasH)
	}

	// Audio-kind media contributes only to the mixer.
	return nil
}

func (r *MediaRenderer) renderImage(
	ctx context.Context,
	s *Surface,
	e *timeline.MediaElement,
	canvasW, canvasH int,
) error {
	img, err := r.cache.Image(ctx, e.MediaID, e.Source)
	if err != nil {
		return err
	}

	// An image with a known intrinsic size is placed at it, centered
	// on the canvas. Without one it fills the canvas like video.
	w, h := e.Width, e.Height
	if w <= 0 || h <= 0 {
		s.DrawImage(img, 0, 0, float64(canvasW), float64(canvasH))
		return nil
	}

	x := float64(canvasW-w) / 2
	y := float64(canvasH-h) / 2
	s.DrawImage(img, x, y, float64(w), float64(h))
	return nil
}

func (r *MediaRenderer) renderVideo(
	ctx context.Context,
	s *Surface,
	e *timeline.MediaElement,
	t float64,
	canvasW, canvasH int,
) error {
	decoder, err := r.cache.VideoDecoder(ctx, e.MediaID, e.Source)
	if err != nil {
		return err
	}

	frame, err := decoder.FrameAt(ctx, e.LocalTime(t), 1.0/float64(r.outFPS))
	if err != nil {
		return err
	}

	s.DrawImage(frame, 0, 0, float64(canvasW), float64(canvasH))
	return nil
}
