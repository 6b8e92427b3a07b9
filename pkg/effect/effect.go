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
	"fmt"

	"vexport/pkg/log"
	"vexport/pkg/render"
	"vexport/pkg/timeline"
)

// Kind separates static effects from progress-driven transitions.
type Kind string

// Processor kinds.
const (
	KindEffect     Kind = "effect"
	KindTransition Kind = "transition"
)

// Processor is a frame-surface post-processor. Internal and user
// processors share the same contract. A processor must preserve the
// surface dimensions and may mutate in place.
type Processor interface {
	ID() string
	Kind() Kind
	Process(s *render.Surface, settings timeline.Settings, t float64) error
}

// Disposer is implemented by processors holding resources.
type Disposer interface {
	Dispose()
}

// Pipeline is an ordered list of processors run over the surface
// after composition. Mutating operations are not thread-safe,
// callers must quiesce the driver first.
type Pipeline struct {
	processors []Processor

	logger *log.Logger
	jobID  string
}

// NewPipeline returns an empty pipeline.
func NewPipeline(logger *log.Logger, jobID string) *Pipeline {
	return &Pipeline{logger: logger, jobID: jobID}
}

// Add appends a processor.
func (p *Pipeline) Add(processor Processor) {
	p.processors = append(p.processors, processor)
}

// Remove deletes the processor with the given id, disposing it if
// it holds resources.
func (p *Pipeline) Remove(id string) bool {
	for i, processor := range p.processors {
		if processor.ID() != id {
			continue
		}
		if disposer, ok := processor.(Disposer); ok {
			disposer.Dispose()
		}
		p.processors = append(p.processors[:i], p.processors[i+1:]...)
		return true
	}
	return false
}

// Reorder rearranges the pipeline to the given id order. Unknown
// ids are ignored, unlisted processors keep their relative order at
// the end.
func (p *Pipeline) Reorder(ids []string) {
	var reordered []Processor
	used := make(map[string]struct{})

	for _, id := range ids {
		for _, processor := range p.processors {
			if processor.ID() == id {
				reordered = append(reordered, processor)
				used[id] = struct{}{}
				break
			}
		}
	}
	for _, processor := range p.processors {
		if _, exist := used[processor.ID()]; !exist {
			reordered = append(reordered, processor)
		}
	}
	p.processors = reordered
}

// List returns the processor ids in run order.
func (p *Pipeline) List() []string {
	ids := make([]string, 0, len(p.processors))
	for _, processor := range p.processors {
		ids = append(ids, processor.ID())
	}
	return ids
}

// Len returns the processor count.
func (p *Pipeline) Len() int {
	return len(p.processors)
}

// Run executes each processor in order. A processor that fails is
// skipped and its error recorded, the surface proceeds unchanged.
func (p *Pipeline) Run(s *render.Surface, settings timeline.Settings, t float64) {
	for _, processor := range p.processors {
		if err := p.runOne(processor, s, settings, t); err != nil {
			if p.logger != nil {
				p.logger.Warn().
					Src("effect").
					Job(p.jobID).
					Msgf("processor %q at %.3f skipped: %v", processor.ID(), t, err)
			}
		}
	}
}

func (p *Pipeline) runOne(processor Processor, s *render.Surface, settings timeline.Settings, t float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return processor.Process(s, settings, t)
}

// Dispose releases every processor.
func (p *Pipeline) Dispose() {
	for _, processor := range p.processors {
		if disposer, ok := processor.(Disposer); ok {
			disposer.Dispose()
		}
	}
	p.processors = nil
}
