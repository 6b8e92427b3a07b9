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

package progress

import (
	"sync"
)

// Stage is the export state machine. Transitions only move forward,
// initializing, processing, finalizing, then one terminal stage.
type Stage string

// Stages.
const (
	StageInitializing Stage = "initializing"
	StageProcessing   Stage = "processing"
	StageFinalizing   Stage = "finalizing"
	StageComplete     Stage = "complete"
	StageError        Stage = "error"
	StageCancelled    Stage = "cancelled"
)

// Event is one progress report.
type Event struct {
	JobID        string  `json:"jobId"`
	Stage        Stage   `json:"stage"`
	CurrentFrame int     `json:"currentFrame"`
	TotalFrames  int     `json:"totalFrames"`
	Percentage   float64 `json:"percentage"`

	EstimatedTimeRemaining float64 `json:"estimatedTimeRemaining,omitempty"` // Seconds.
	RenderSpeed            float64 `json:"renderSpeed,omitempty"`            // Frames per second.
	Error                  string  `json:"error,omitempty"`
}

// Bus fans progress events out to subscribers. Delivery is
// fire-and-forget, a slow consumer drops events instead of blocking
// the driver.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		select {
		case sub <- event:
		default:
			// Drop rather than block the driver.
		}
	}
}

// Subscribe returns a buffered event feed and a cancel function.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 16
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	sub := make(chan Event, buffer)
	b.subs[id] = sub

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, exist := b.subs[id]; exist {
			delete(b.subs, id)
			close(sub)
		}
	}
	return sub, cancel
}
