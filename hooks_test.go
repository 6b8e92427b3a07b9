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

package vexport

import (
	"testing"

	"vexport/pkg/effect"
	"vexport/pkg/render"
	"vexport/pkg/timeline"

	"github.com/stretchr/testify/require"
)

func TestBuiltinProcessor(t *testing.T) {
	blur, ok := builtinProcessor("blur:3").(*effect.Blur)
	require.True(t, ok)
	require.Equal(t, 3, blur.Radius)
	require.Equal(t, "blur:3", blur.ID())

	brightness, ok := builtinProcessor("brightness:1.5").(*effect.Brightness)
	require.True(t, ok)
	require.Equal(t, 1.5, brightness.Amount)

	fade, ok := builtinProcessor("fade:out:2:3").(*effect.Fade)
	require.True(t, ok)
	require.Equal(t, effect.FadeOut, fade.Mode)
	require.Equal(t, 2.0, fade.Start)
	require.Equal(t, 3.0, fade.Duration)

	// Defaults.
	slide, ok := builtinProcessor("slide").(*effect.Slide)
	require.True(t, ok)
	require.Equal(t, effect.SlideLeft, slide.Direction)

	require.Nil(t, builtinProcessor("nonsense"))
}

func TestBuildPipeline(t *testing.T) {
	model := &timeline.Model{
		Tracks: []timeline.Track{
			{EffectIDs: []string{"blur:2", "unknown"}},
			{EffectIDs: []string{"fade:in:0:1"}},
		},
	}

	pipeline := buildPipeline(model, nil)
	require.Equal(t, []string{"blur:2", "fade:in:0:1"}, pipeline.List())
}

type customProcessor struct{}

func (*customProcessor) ID() string        { return "custom" }
func (*customProcessor) Kind() effect.Kind { return effect.KindEffect }
func (*customProcessor) Process(*render.Surface, timeline.Settings, float64) error {
	return nil
}

func TestRegisterProcessorHook(t *testing.T) {
	RegisterProcessorHook(func(id string) effect.Processor {
		if id == "custom" {
			return &customProcessor{}
		}
		return nil
	})
	defer func() { hooks.processorFactories = nil }()

	model := &timeline.Model{
		Tracks: []timeline.Track{{EffectIDs: []string{"custom", "blur"}}},
	}

	pipeline := buildPipeline(model, nil)
	require.Equal(t, []string{"custom", "blur"}, pipeline.List())
}
