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
	"strconv"
	"strings"

	"vexport/pkg/effect"
	"vexport/pkg/log"
	"vexport/pkg/timeline"
)

// ProcessorFactory builds a processor from a track effect id, nil
// if the id is not recognized. External processors register through
// the same hook as the built-ins.
type ProcessorFactory func(id string) effect.Processor

type hookList struct {
	processorFactories []ProcessorFactory
}

var hooks = &hookList{}

// RegisterProcessorHook registers a processor factory. Factories
// are consulted in registration order, the built-ins last.
func RegisterProcessorHook(factory ProcessorFactory) {
	hooks.processorFactories = append(hooks.processorFactories, factory)
}

func (h *hookList) processor(id string) effect.Processor {
	for _, factory := range h.processorFactories {
		if processor := factory(id); processor != nil {
			return processor
		}
	}
	return builtinProcessor(id)
}

// buildPipeline resolves every track's effect ids into the frame
// pipeline, in track order.
func buildPipeline(model *timeline.Model, logger *log.Logger) *effect.Pipeline {
	pipeline := effect.NewPipeline(logger, "")
	for _, track := range model.Tracks {
		for _, id := range track.EffectIDs {
			if processor := hooks.processor(id); processor != nil {
				pipeline.Add(processor)
			} else if logger != nil {
				logger.Warn().Src("effect").Msgf("unknown effect id %q", id)
			}
		}
	}
	return pipeline
}

// builtinProcessor parses ids like "blur", "blur:4",
// "brightness:1.5", "fade:in:0:2", "slide:left:0:1" and
// "wipe:horizontal:0:1".
func builtinProcessor(id string) effect.Processor { //nolint:funlen
	parts := strings.Split(id, ":")

	number := func(i int, fallback float64) float64 {
		if len(parts) <= i {
			return fallback
		}
		if v, err := strconv.ParseFloat(parts[i], 64); err == nil {
			return v
		}
		return fallback
	}
	word := func(i int, fallback string) string {
		if len(parts) <= i || parts[i] == "" {
			return fallback
		}
		return parts[i]
	}

	switch parts[0] {
	case "blur":
		return &effect.Blur{
			Name:   id,
			Radius: int(number(1, 4)),
		}

	case "brightness":
		return &effect.Brightness{
			Name:   id,
			Amount: number(1, 1),
		}

	case "colorfilter":
		return &effect.ColorFilter{
			Name:       id,
			Hue:        number(1, 0),
			Saturation: number(2, 1),
			Brightness: number(3, 1),
		}

	case "fade":
		return &effect.Fade{
			Name:     id,
			Mode:     word(1, effect.FadeIn),
			Start:    number(2, 0),
			Duration: number(3, 1),
		}

	case "slide":
		return &effect.Slide{
			Name:      id,
			Direction: word(1, effect.SlideLeft),
			Start:     number(2, 0),
			Duration:  number(3, 1),
		}

	case "wipe":
		return &effect.Wipe{
			Name:     id,
			Axis:     word(1, effect.WipeHorizontal),
			Start:    number(2, 0),
			Duration: number(3, 1),
		}
	}
	return nil
}
