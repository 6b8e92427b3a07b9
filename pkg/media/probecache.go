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

package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

var probeBucket = []byte("probe")

// ProbeCache memoizes probe results across export runs, keyed by
// path, size and modification time, so repeated exports of the same
// library skip ffprobe.
type ProbeCache struct {
	db    *bolt.DB
	probe ProbeFunc
}

// NewProbeCache opens or creates the cache database at dbPath.
func NewProbeCache(dbPath string, probe ProbeFunc) (*ProbeCache, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open probe cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(probeBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create probe bucket: %w", err)
	}

	return &ProbeCache{db: db, probe: probe}, nil
}

// Close closes the cache database.
func (c *ProbeCache) Close() error {
	return c.db.Close()
}

func probeKey(path string) (string, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s|%d|%d", path, stat.Size(), stat.ModTime().UnixNano()), nil
}

// Probe returns the cached probe result for path, probing and
// storing on a miss.
func (c *ProbeCache) Probe(ctx context.Context, path string) (*Info, error) {
	key, err := probeKey(path)
	if err != nil {
		return nil, err
	}

	var cached []byte
	c.db.View(func(tx *bolt.Tx) error { //nolint:errcheck
		if v := tx.Bucket(probeBucket).Get([]byte(key)); v != nil {
			cached = make([]byte, len(v))
			copy(cached, v)
		}
		return nil
	})

	if cached != nil {
		info := &Info{}
		if err := json.Unmarshal(cached, info); err == nil {
			return info, nil
		}
		// A corrupt entry falls through to a fresh probe.
	}

	info, err := c.probe(ctx, path)
	if err != nil {
		return nil, err
	}

	buf, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}

	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(probeBucket).Put([]byte(key), buf)
	})
	if err != nil {
		return nil, fmt.Errorf("could not store probe result: %w", err)
	}

	return info, nil
}
