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
	"math"
)

// TrackKind defines what a track may contain.
type TrackKind string

// Track kinds.
const (
	TrackMedia    TrackKind = "media"
	TrackText     TrackKind = "text"
	TrackAudio    TrackKind = "audio"
	TrackEffect   TrackKind = "effect"
	TrackOverlay  TrackKind = "overlay"
	TrackSubtitle TrackKind = "subtitle"
)

// MediaKind defines the kind of a media asset.
type MediaKind string

// Media kinds.
const (
	MediaVideo MediaKind = "video"
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
)

// BlendMode defines how an element is composited onto the surface.
type BlendMode string

// Blend modes.
const (
	BlendSourceOver BlendMode = "source-over"
	BlendMultiply   BlendMode = "multiply"
	BlendScreen     BlendMode = "screen"
	BlendDarken     BlendMode = "darken"
	BlendLighten    BlendMode = "lighten"
	BlendAdd        BlendMode = "add"
)

// Model is an immutable description of a multi-track editing timeline.
// It must not be mutated once an export run has started.
type Model struct {
	Tracks   []Track
	Duration float64 // Seconds.

	// Project nominal size and frame rate.
	CanvasWidth  int
	CanvasHeight int
	FPS          float64
}

// Track is an ordered sequence of elements. Track order in
// Model.Tracks is the z-order base, later tracks render above
// earlier ones. Text tracks are promoted above non-text tracks.
type Track struct {
	ID      string
	Name    string
	Kind    TrackKind
	Muted   bool
	Opacity float64
	Blend   BlendMode

	Elements  []Element
	EffectIDs []string
}

// Element is a tagged variant over the four element kinds.
type Element interface {
	// Base returns the shared element fields.
	Base() *ElementBase
}

// ElementBase holds the fields shared by every element kind.
type ElementBase struct {
	ID        string
	StartTime float64 // Seconds.
	Duration  float64 // Seconds, before trimming.
	TrimStart float64 // Seconds.
	TrimEnd   float64 // Seconds.
	Opacity   float64
	Blend     BlendMode
}

// Base implements Element.
func (e *ElementBase) Base() *ElementBase { return e }

// End returns the exclusive end of the active interval.
func (e *ElementBase) End() float64 {
	return e.StartTime + e.Duration - e.TrimStart - e.TrimEnd
}

// ActiveAt reports whether the element contributes to output at t.
// The interval is half-open, t == StartTime is active, t == End is not.
func (e *ElementBase) ActiveAt(t float64) bool {
	return t >= e.StartTime && t < e.End()
}

// LocalTime translates timeline time into the source asset's own
// time base, accounting for StartTime and TrimStart.
func (e *ElementBase) LocalTime(t float64) float64 {
	return t - e.StartTime + e.TrimStart
}

// Source is a concrete byte source for a media asset,
// either a local file path or a URL.
type Source struct {
	Path string
	URL  string
}

// IsZero reports whether the source is unresolved.
func (s Source) IsZero() bool { return s.Path == "" && s.URL == "" }

// MediaElement is a video, image or audio clip. Audio-kind media
// contributes only to the mixer, video contributes to both.
type MediaElement struct {
	ElementBase
	MediaID string
	Kind    MediaKind
	Source  Source

	// Intrinsic size, zero if unknown.
	Width  int
	Height int
}

// TextElement is a styled text overlay. The coordinate origin is the
// canvas center.
type TextElement struct {
	ElementBase
	Content    string
	FontFamily string
	FontSize   float64
	Weight     int    // CSS-style, 400 regular, 700 bold.
	Style      string // "normal" or "italic".
	Decoration string // "none", "underline" or "line-through".
	Color      string
	Background string // Color or "transparent".
	Align      string // "left", "center" or "right".
	X, Y       float64
	Rotation   float64 // Degrees.
}

// OverlayKind defines the kind of an overlay element.
type OverlayKind string

// Overlay kinds.
const (
	OverlayShape   OverlayKind = "shape"
	OverlayImage   OverlayKind = "image"
	OverlayPattern OverlayKind = "pattern"
)

// PatternKind is the closed set of procedural patterns.
type PatternKind string

// Pattern kinds.
const (
	PatternDots         PatternKind = "dots"
	PatternStripes      PatternKind = "stripes"
	PatternCheckerboard PatternKind = "checkerboard"
	PatternSolid        PatternKind = "solid"
)

// OverlayElement is a shape, image or procedural pattern drawn
// centered on (X, Y) in canvas-top-left pixel coordinates.
type OverlayElement struct {
	ElementBase
	Kind     OverlayKind
	Source   string // Color, url or pattern name depending on kind.
	X, Y     float64
	Width    float64
	Height   float64
	Rotation float64 // Degrees.
}

// SubtitlePosition defines where a subtitle is placed.
type SubtitlePosition string

// Subtitle positions.
const (
	SubtitleTop    SubtitlePosition = "top"
	SubtitleCenter SubtitlePosition = "center"
	SubtitleBottom SubtitlePosition = "bottom"
	SubtitleCustom SubtitlePosition = "custom"
)

// SubtitleElement is like text but positioned from a preset
// or custom coordinates.
type SubtitleElement struct {
	ElementBase
	Content    string
	FontFamily string
	FontSize   float64
	Color      string
	Background string // Color or "transparent".
	Position   SubtitlePosition
	X, Y       float64 // Used when Position is "custom".
	Align      string
}

// CalculateDuration returns the timeline duration, the max over all
// elements of startTime plus trimmed duration.
func CalculateDuration(tracks []Track) float64 {
	var max float64
	for _, track := range tracks {
		for _, element := range track.Elements {
			if end := element.Base().End(); end > max {
				max = end
			}
		}
	}
	return max
}

// Settings is a fully resolved export settings record.
type Settings struct {
	Width  int // Canvas width in pixels.
	Height int // Canvas height in pixels.
	Scale  float64
	FPS    int

	VideoBitrate int // Bits per second.

	SampleRate   int
	Channels     int
	AudioBitrate int // Bits per second.

	Background string // sRGB hex color.
	HWAccel    bool
	FileName   string
}

// DefaultSettings matches the editor defaults,
// 1080p at 30 fps, 48 kHz stereo, black background.
func DefaultSettings() Settings {
	return Settings{
		Width:        1920,
		Height:       1080,
		Scale:        1,
		FPS:          30,
		VideoBitrate: 8_000_000,
		SampleRate:   48000,
		Channels:     2,
		AudioBitrate: 192_000,
		Background:   "#000000",
		HWAccel:      true,
		FileName:     "export.mp4",
	}
}

// EffectiveSize returns the raster surface size, canvas size scaled
// by the resolution multiplier.
func (s Settings) EffectiveSize() (int, int) {
	w := int(math.Round(float64(s.Width) * s.Scale))
	h := int(math.Round(float64(s.Height) * s.Scale))
	return w, h
}

// TotalFrames returns the index of the last frame, frames are
// emitted for every index in [0, TotalFrames].
func (s Settings) TotalFrames(duration float64) int {
	return int(math.Ceil(duration * float64(s.FPS)))
}

// FrameTime maps frame index k to its exact global time.
func (s Settings) FrameTime(k int) float64 {
	return float64(k) / float64(s.FPS)
}

// FramePTS returns the encoded presentation timestamp of frame k
// in microseconds.
func (s Settings) FramePTS(k int) int64 {
	return int64(k) * 1e6 / int64(s.FPS)
}

// FrameDuration returns the duration of a single frame in microseconds.
func (s Settings) FrameDuration() int64 {
	return 1e6 / int64(s.FPS)
}
