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

package system

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Status stores system status.
type Status struct {
	CPUUsage int `json:"cpuUsage"`
	RAMUsage int `json:"ramUsage"`
}

type (
	cpuFunc func(context.Context, time.Duration, bool) ([]float64, error)
	ramFunc func() (*mem.VirtualMemoryStat, error)
)

// System samples CPU and RAM usage, the CLI annotates export
// progress with it.
type System struct {
	cpu cpuFunc
	ram ramFunc

	status   Status
	interval time.Duration

	mu sync.Mutex
}

// New returns a new System.
func New() *System {
	return &System{
		cpu:      cpu.PercentWithContext,
		ram:      mem.VirtualMemory,
		interval: time.Second,
	}
}

func (s *System) update(ctx context.Context) error {
	cpuUsage, err := s.cpu(ctx, s.interval, false)
	if err != nil {
		return fmt.Errorf("could not get cpu usage %w", err)
	}
	ramUsage, err := s.ram()
	if err != nil {
		return fmt.Errorf("could not get ram usage %w", err)
	}

	s.mu.Lock()
	s.status = Status{
		CPUUsage: int(cpuUsage[0]),
		RAMUsage: int(ramUsage.UsedPercent),
	}
	s.mu.Unlock()

	return nil
}

// StatusLoop updates the status until the context is canceled.
func (s *System) StatusLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		s.update(ctx) //nolint:errcheck
	}
}

// Status returns the latest sample.
func (s *System) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
