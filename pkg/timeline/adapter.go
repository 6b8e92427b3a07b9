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
	"fmt"

	"gopkg.in/yaml.v2"
)

// The editor stores tracks and elements in its own shapes. The adapter
// translates them into the timeline model, filtering elements whose
// media id does not resolve against the media library.

// ProjectCanvas is the editor's nominal canvas.
type ProjectCanvas struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	FPS    float64 `yaml:"fps"`
}

// EditorMedia is a media library entry.
type EditorMedia struct {
	Kind   string `yaml:"kind"`
	Path   string `yaml:"path"`
	URL    string `yaml:"url"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// MediaLibrary maps media id to its library entry.
type MediaLibrary map[string]EditorMedia

// EditorTrack is the editor's track shape.
type EditorTrack struct {
	ID      string          `yaml:"id"`
	Name    string          `yaml:"name"`
	Kind    string          `yaml:"kind"`
	Muted   bool            `yaml:"muted"`
	Opacity *float64        `yaml:"opacity"`
	Blend   string          `yaml:"blend"`
	Effects []string        `yaml:"effects"`
	Items   []EditorElement `yaml:"items"`
}

// EditorElement is the editor's element shape, a union over all
// element kinds discriminated by Type.
type EditorElement struct {
	ID        string  `yaml:"id"`
	Type      string  `yaml:"type"` // "media", "text", "overlay" or "subtitle".
	StartTime float64 `yaml:"startTime"`
	Duration  float64 `yaml:"duration"`
	TrimStart float64 `yaml:"trimStart"`
	TrimEnd   float64 `yaml:"trimEnd"`
	Opacity   *float64 `yaml:"opacity"`
	Blend     string   `yaml:"blend"`

	MediaID string `yaml:"mediaId"`

	Content    string  `yaml:"content"`
	FontFamily string  `yaml:"fontFamily"`
	FontSize   float64 `yaml:"fontSize"`
	FontWeight int     `yaml:"fontWeight"`
	FontStyle  string  `yaml:"fontStyle"`
	Decoration string  `yaml:"decoration"`
	Color      string  `yaml:"color"`
	Background string  `yaml:"background"`
	Align      string  `yaml:"align"`

	OverlayKind string  `yaml:"overlayKind"`
	Source      string  `yaml:"source"`
	Position    string  `yaml:"position"`
	X           float64 `yaml:"x"`
	Y           float64 `yaml:"y"`
	Width       float64 `yaml:"width"`
	Height      float64 `yaml:"height"`
	Rotation    float64 `yaml:"rotation"`
}

// Adapt translates editor tracks into the timeline model. Media
// elements whose id does not resolve in the library are dropped.
func Adapt(tracks []EditorTrack, library MediaLibrary, canvas ProjectCanvas) *Model {
	model := &Model{
		CanvasWidth:  canvas.Width,
		CanvasHeight: canvas.Height,
		FPS:          canvas.FPS,
	}

	for _, t := range tracks {
		track := Track{
			ID:        t.ID,
			Name:      t.Name,
			Kind:      TrackKind(t.Kind),
			Muted:     t.Muted,
			Opacity:   1,
			Blend:     blendMode(t.Blend),
			EffectIDs: t.Effects,
		}
		if t.Opacity != nil {
			track.Opacity = *t.Opacity
		}

		for _, item := range t.Items {
			element := adaptElement(item, library)
			if element == nil {
				continue
			}
			track.Elements = append(track.Elements, element)
		}
		model.Tracks = append(model.Tracks, track)
	}

	model.Duration = CalculateDuration(model.Tracks)
	return model
}

func adaptElement(item EditorElement, library MediaLibrary) Element {
	base := ElementBase{
		ID:        item.ID,
		StartTime: item.StartTime,
		Duration:  item.Duration,
		TrimStart: item.TrimStart,
		TrimEnd:   item.TrimEnd,
		Opacity:   1,
		Blend:     blendMode(item.Blend),
	}
	if item.Opacity != nil {
		base.Opacity = *item.Opacity
	}

	switch item.Type {
	case "media":
		entry, exist := library[item.MediaID]
		if !exist {
			return nil
		}
		source := Source{Path: entry.Path, URL: entry.URL}
		if source.IsZero() {
			return nil
		}
		return &MediaElement{
			ElementBase: base,
			MediaID:     item.MediaID,
			Kind:        MediaKind(entry.Kind),
			Source:      source,
			Width:       entry.Width,
			Height:      entry.Height,
		}

	case "text":
		return &TextElement{
			ElementBase: base,
			Content:     item.Content,
			FontFamily:  item.FontFamily,
			FontSize:    item.FontSize,
			Weight:      item.FontWeight,
			Style:       item.FontStyle,
			Decoration:  item.Decoration,
			Color:       item.Color,
			Background:  item.Background,
			Align:       item.Align,
			X:           item.X,
			Y:           item.Y,
			Rotation:    item.Rotation,
		}

	case "overlay":
		return &OverlayElement{
			ElementBase: base,
			Kind:        OverlayKind(item.OverlayKind),
			Source:      item.Source,
			X:           item.X,
			Y:           item.Y,
			Width:       item.Width,
			Height:      item.Height,
			Rotation:    item.Rotation,
		}

	case "subtitle":
		position := SubtitlePosition(item.Position)
		if position == "" {
			position = SubtitleBottom
		}
		return &SubtitleElement{
			ElementBase: base,
			Content:     item.Content,
			FontFamily:  item.FontFamily,
			FontSize:    item.FontSize,
			Color:       item.Color,
			Background:  item.Background,
			Position:    position,
			X:           item.X,
			Y:           item.Y,
			Align:       item.Align,
		}
	}
	return nil
}

func blendMode(mode string) BlendMode {
	switch BlendMode(mode) {
	case BlendMultiply, BlendScreen, BlendDarken, BlendLighten, BlendAdd:
		return BlendMode(mode)
	}
	return BlendSourceOver
}

// ProjectFile is a complete export project, canvas, media library,
// tracks and optional settings overrides.
type ProjectFile struct {
	Canvas ProjectCanvas `yaml:"canvas"`
	Media  MediaLibrary  `yaml:"media"`
	Tracks []EditorTrack `yaml:"tracks"`

	Export *ProjectExport `yaml:"export"`
}

// ProjectExport overrides the default export settings.
type ProjectExport struct {
	Scale        *float64 `yaml:"scale"`
	FPS          *int     `yaml:"fps"`
	VideoBitrate *int     `yaml:"videoBitrate"`
	SampleRate   *int     `yaml:"sampleRate"`
	Channels     *int     `yaml:"channels"`
	AudioBitrate *int     `yaml:"audioBitrate"`
	Background   string   `yaml:"background"`
	HWAccel      *bool    `yaml:"hwaccel"`
	FileName     string   `yaml:"fileName"`
}

// ParseProject decodes a project file and resolves its settings.
func ParseProject(projectYAML []byte) (*Model, Settings, error) {
	var project ProjectFile
	if err := yaml.Unmarshal(projectYAML, &project); err != nil {
		return nil, Settings{}, fmt.Errorf("could not unmarshal project: %w", err)
	}

	model := Adapt(project.Tracks, project.Media, project.Canvas)

	settings := DefaultSettings()
	settings.Width = project.Canvas.Width
	settings.Height = project.Canvas.Height
	if project.Canvas.FPS != 0 {
		settings.FPS = int(project.Canvas.FPS)
	}

	if e := project.Export; e != nil {
		if e.Scale != nil {
			settings.Scale = *e.Scale
		}
		if e.FPS != nil {
			settings.FPS = *e.FPS
		}
		if e.VideoBitrate != nil {
			settings.VideoBitrate = *e.VideoBitrate
		}
		if e.SampleRate != nil {
			settings.SampleRate = *e.SampleRate
		}
		if e.Channels != nil {
			settings.Channels = *e.Channels
		}
		if e.AudioBitrate != nil {
			settings.AudioBitrate = *e.AudioBitrate
		}
		if e.Background != "" {
			settings.Background = e.Background
		}
		if e.HWAccel != nil {
			settings.HWAccel = *e.HWAccel
		}
		if e.FileName != "" {
			settings.FileName = e.FileName
		}
	}

	return model, settings, nil
}
