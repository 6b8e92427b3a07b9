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
	"fmt"
	"image"
	"image/color"
	"sort"

	"vexport/pkg/log"
	"vexport/pkg/media"
	"vexport/pkg/timeline"
)

// ActiveElement is one element of the active set, annotated with
// its position in the timeline for deterministic ordering.
type ActiveElement struct {
	TrackIndex   int
	ElementIndex int
	Track        *timeline.Track
	Element      timeline.Element
}

// ActiveAt collects every element contributing to output at t,
// skipping muted tracks.
func ActiveAt(model *timeline.Model, t float64) []ActiveElement {
	var active []ActiveElement
	for i := range model.Tracks {
		track := &model.Tracks[i]
		if track.Muted {
			continue
		}
		for j, element := range track.Elements {
			if element.Base().ActiveAt(t) {
				active = append(active, ActiveElement{
					TrackIndex:   i,
					ElementIndex: j,
					Track:        track,
					Element:      element,
				})
			}
		}
	}
	return active
}

// SortRenderOrder sorts the active set into render order. Text-track
// elements render strictly above non-text elements, then track index,
// then element position within the track. The order is fully
// determined by the timeline, never by decode timing.
func SortRenderOrder(active []ActiveElement) {
	sort.SliceStable(active, func(i, j int) bool {
		iText := active[i].Track.Kind == timeline.TrackText
		jText := active[j].Track.Kind == timeline.TrackText
		if iText != jText {
			return jText // Non-text first, text on top.
		}
		if active[i].TrackIndex != active[j].TrackIndex {
			return active[i].TrackIndex < active[j].TrackIndex
		}
		return active[i].ElementIndex < active[j].ElementIndex
	})
}

// FrameRenderer composites one fully rendered surface per timestamp.
type FrameRenderer struct {
	model    *timeline.Model
	settings timeline.Settings

	surface    *Surface
	background color.RGBA

	mediaRenderer    *MediaRenderer
	textRenderer     *TextRenderer
	overlayRenderer  *OverlayRenderer
	subtitleRenderer *SubtitleRenderer

	logger *log.Logger
	jobID  string
}

// NewFrameRenderer allocates the raster surface at the effective
// size and wires the element renderers to the media cache.
func NewFrameRenderer(
	model *timeline.Model,
	settings timeline.Settings,
	cache *media.Cache,
	logger *log.Logger,
	jobID string,
) *FrameRenderer {
	width, height := settings.EffectiveSize()
	return &FrameRenderer{
		model:      model,
		settings:   settings,
		surface:    NewSurface(width, height),
		background: ParseColor(settings.Background),

		mediaRenderer:    NewMediaRenderer(cache, settings.FPS),
		textRenderer:     NewTextRenderer(),
		overlayRenderer:  NewOverlayRenderer(cache),
		subtitleRenderer: NewSubtitleRenderer(),

		logger: logger,
		jobID:  jobID,
	}
}

// Surface exposes the shared raster, the effect pipeline runs over
// it after composition.
func (r *FrameRenderer) Surface() *Surface {
	return r.surface
}

// RenderFrame composites the frame at t. Individual element failures
// are logged and skipped, the frame is still produced. A panic
// during composition yields the background-filled fallback so every
// frame index is emitted.
func (r *FrameRenderer) RenderFrame(ctx context.Context, t float64) (frame *image.RGBA, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.warnf("frame at %.3f panicked: %v", t, p)
			frame = r.FallbackFrame()
		}
	}()

	r.surface.Clear(r.background)

	active := ActiveAt(r.model, t)
	SortRenderOrder(active)

	for _, ae := range active {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.renderElement(ctx, ae, t); err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			r.warnf("element %q at %.3f skipped: %v", ae.Element.Base().ID, t, err)
		}
	}

	return r.surface.Image(), nil
}

func (r *FrameRenderer) renderElement(ctx context.Context, ae ActiveElement, t float64) error {
	base := ae.Element.Base()

	s := r.surface
	s.Save()
	defer s.Restore()

	s.SetAlpha(base.Opacity * ae.Track.Opacity)

	blend := base.Blend
	if blend == timeline.BlendSourceOver && ae.Track.Blend != "" {
		blend = ae.Track.Blend
	}
	s.SetBlend(blend)

	// Uniform scale by the resolution multiplier, renderers work in
	// nominal canvas coordinates.
	s.Scale(r.settings.Scale, r.settings.Scale)

	canvasW, canvasH := r.settings.Width, r.settings.Height

	switch e := ae.Element.(type) {
	case *timeline.MediaElement:
		return r.mediaRenderer.Render(ctx, s, e, t, canvasW, canvasH)
	case *timeline.TextElement:
		return r.textRenderer.Render(s, e, canvasW, canvasH)
	case *timeline.OverlayElement:
		return r.overlayRenderer.Render(ctx, s, e)
	case *timeline.SubtitleElement:
		return r.subtitleRenderer.Render(s, e, canvasW, canvasH)
	}
	return fmt.Errorf("unknown element kind %T", ae.Element)
}

// FallbackFrame returns a background-filled surface, used when a
// frame's composition fails entirely.
func (r *FrameRenderer) FallbackFrame() *image.RGBA {
	r.surface.Clear(r.background)
	return r.surface.Image()
}

func (r *FrameRenderer) warnf(format string, v ...interface{}) {
	if r.logger == nil {
		return
	}
	r.logger.Warn().Src("render").Job(r.jobID).Msgf(format, v...)
}
