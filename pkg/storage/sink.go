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

package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// ByteSink receives a finished MP4 file and commits it somewhere.
type ByteSink interface {
	// FastStartInMemory reports whether the muxer should hold the
	// output in memory to produce a fast-start file.
	FastStartInMemory() bool

	// SaveBuffer commits the file and returns a human readable
	// location string.
	SaveBuffer(name string, buf []byte) (string, error)
}

// FileSaver is a ByteSink that writes finished exports into a
// directory on disk.
type FileSaver struct {
	Dir       string
	FastStart bool
}

// FastStartInMemory implements ByteSink.
func (s *FileSaver) FastStartInMemory() bool { return s.FastStart }

// SaveBuffer implements ByteSink.
func (s *FileSaver) SaveBuffer(name string, buf []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil && !os.IsExist(err) {
		return "", fmt.Errorf("could not create output directory: %w", err)
	}

	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		return "", fmt.Errorf("could not write output file: %w", err)
	}
	return path, nil
}
