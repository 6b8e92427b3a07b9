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
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"vexport/pkg/log"
	"vexport/pkg/timeline"
)

// Asset timeouts.
const (
	AssetLoadTimeout = 15 * time.Second
	ImageLoadTimeout = 5 * time.Second
)

// ErrAssetFailed marks a media id whose asset could not be loaded.
// The element is excluded for the whole run.
var ErrAssetFailed = errors.New("asset failed to load")

// Cache owns decoded image assets and open video decoders, keyed by
// media id. Entries are created on first demand and live for the
// whole export run.
type Cache struct {
	ffmpegBin string
	prober    ProbeFunc
	fetcher   *Fetcher
	logger    *log.Logger
	jobID     string

	mu     sync.Mutex
	images map[string]image.Image
	videos map[string]*VideoDecoder
	infos  map[string]*Info
	paths  map[string]string
	failed map[string]struct{}
}

// NewCache returns an empty media cache.
func NewCache(
	ffmpegBin string,
	prober ProbeFunc,
	fetcher *Fetcher,
	logger *log.Logger,
	jobID string,
) *Cache {
	return &Cache{
		ffmpegBin: ffmpegBin,
		prober:    prober,
		fetcher:   fetcher,
		logger:    logger,
		jobID:     jobID,

		images: make(map[string]image.Image),
		videos: make(map[string]*VideoDecoder),
		infos:  make(map[string]*Info),
		paths:  make(map[string]string),
		failed: make(map[string]struct{}),
	}
}

// resolvePath returns a local file path for the source, fetching
// URL sources once into the temp directory.
func (c *Cache) resolvePath(ctx context.Context, mediaID string, source timeline.Source) (string, error) {
	if path, exist := c.paths[mediaID]; exist {
		return path, nil
	}

	var path string
	if source.Path != "" {
		path = source.Path
	} else {
		if c.fetcher == nil {
			return "", fmt.Errorf("no fetcher for url source %q", source.URL)
		}
		fetchCtx, cancel := context.WithTimeout(ctx, AssetLoadTimeout)
		defer cancel()

		var err error
		path, err = c.fetcher.Fetch(fetchCtx, mediaID, source.URL)
		if err != nil {
			return "", err
		}
	}

	c.paths[mediaID] = path
	return path, nil
}

func (c *Cache) markFailed(mediaID string, err error) error {
	c.failed[mediaID] = struct{}{}
	if c.logger != nil {
		c.logger.Warn().
			Src("media").
			Job(c.jobID).
			Msgf("excluding media %q for this run: %v", mediaID, err)
	}
	return fmt.Errorf("%w: %v", ErrAssetFailed, err)
}

// Image returns the decoded image for the media id, loading it on
// first demand. A failed load excludes the id for the whole run.
func (c *Cache) Image(ctx context.Context, mediaID string, source timeline.Source) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if img, exist := c.images[mediaID]; exist {
		return img, nil
	}
	if _, exist := c.failed[mediaID]; exist {
		return nil, ErrAssetFailed
	}

	path, err := c.resolvePath(ctx, mediaID, source)
	if err != nil {
		return nil, c.markFailed(mediaID, err)
	}

	loadCtx, cancel := context.WithTimeout(ctx, ImageLoadTimeout)
	defer cancel()

	img, err := LoadImage(loadCtx, path)
	if err != nil {
		return nil, c.markFailed(mediaID, err)
	}

	c.images[mediaID] = img
	return img, nil
}

// VideoDecoder returns the long-lived decoder for the media id,
// opening and probing the file on first demand.
func (c *Cache) VideoDecoder(ctx context.Context, mediaID string, source timeline.Source) (*VideoDecoder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if decoder, exist := c.videos[mediaID]; exist {
		return decoder, nil
	}
	if _, exist := c.failed[mediaID]; exist {
		return nil, ErrAssetFailed
	}

	path, err := c.resolvePath(ctx, mediaID, source)
	if err != nil {
		return nil, c.markFailed(mediaID, err)
	}

	info, err := c.probe(ctx, mediaID, path)
	if err != nil {
		return nil, err
	}
	if !info.HasVideo {
		return nil, c.markFailed(mediaID, errors.New("no video stream"))
	}

	decoder := NewVideoDecoder(c.ffmpegBin, path, info)
	c.videos[mediaID] = decoder
	return decoder, nil
}

// Info returns the probe result for the media id.
func (c *Cache) Info(ctx context.Context, mediaID string, source timeline.Source) (*Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exist := c.failed[mediaID]; exist {
		return nil, ErrAssetFailed
	}

	path, err := c.resolvePath(ctx, mediaID, source)
	if err != nil {
		return nil, c.markFailed(mediaID, err)
	}
	return c.probe(ctx, mediaID, path)
}

// Path returns the local file path of the media id, resolving it
// on first demand.
func (c *Cache) Path(ctx context.Context, mediaID string, source timeline.Source) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exist := c.failed[mediaID]; exist {
		return "", ErrAssetFailed
	}

	path, err := c.resolvePath(ctx, mediaID, source)
	if err != nil {
		return "", c.markFailed(mediaID, err)
	}
	return path, nil
}

func (c *Cache) probe(ctx context.Context, mediaID string, path string) (*Info, error) {
	if info, exist := c.infos[mediaID]; exist {
		return info, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, AssetLoadTimeout)
	defer cancel()

	info, err := c.prober(probeCtx, path)
	if err != nil {
		return nil, c.markFailed(mediaID, err)
	}

	c.infos[mediaID] = info
	return info, nil
}

// Close releases every cache entry, images are dropped and video
// decoders closed.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, decoder := range c.videos {
		decoder.Close()
	}
	c.videos = make(map[string]*VideoDecoder)
	c.images = make(map[string]image.Image)
	c.infos = make(map[string]*Info)
	c.paths = make(map[string]string)
}
