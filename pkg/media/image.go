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
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // gif decoder.
	_ "image/jpeg" // jpeg decoder.
	_ "image/png"  // png decoder.
	"os"

	"github.com/chai2010/webp"
)

// LoadImage reads and decodes an image file. Decode is one-shot,
// the caller caches the result. The context bounds the whole load.
func LoadImage(ctx context.Context, path string) (image.Image, error) {
	type result struct {
		img image.Image
		err error
	}
	done := make(chan result, 1)

	go func() {
		buf, err := os.ReadFile(path)
		if err != nil {
			done <- result{nil, err}
			return
		}
		img, err := decodeImage(buf)
		done <- result{img, err}
	}()

	select {
	case r := <-done:
		return r.img, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func decodeImage(buf []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(buf))
	if err == nil {
		return img, nil
	}

	// The standard decoders don't know webp.
	if webpImg, webpErr := webp.Decode(bytes.NewReader(buf)); webpErr == nil {
		return webpImg, nil
	}

	return nil, fmt.Errorf("decode image: %w", err)
}
