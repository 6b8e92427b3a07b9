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
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// Fetcher downloads cross-origin byte sources into the temp
// directory so decoders can use a local file handle.
type Fetcher struct {
	tempDir string
	client  *http.Client
}

// NewFetcher returns a fetcher writing into tempDir.
func NewFetcher(tempDir string) *Fetcher {
	return &Fetcher{
		tempDir: tempDir,
		client:  &http.Client{},
	}
}

// Fetch downloads url once and returns the local file path.
// The context bounds the whole download.
func (f *Fetcher) Fetch(ctx context.Context, mediaID string, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	res, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %v: %w", url, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %v: unexpected status %v", url, res.StatusCode)
	}

	if err := os.MkdirAll(f.tempDir, 0o700); err != nil && !os.IsExist(err) {
		return "", err
	}

	path := filepath.Join(f.tempDir, "fetch-"+mediaID+filepath.Ext(url))
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(file, res.Body); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("fetch %v: %w", url, err)
	}

	if err := file.Close(); err != nil {
		return "", err
	}
	return path, nil
}
