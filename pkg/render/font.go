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

package render

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// The exporter renders with the bundled Go fonts. Family names from
// the editor are not used; weight and style select between the four
// bundled variants.

type fontVariant struct {
	bold   bool
	italic bool
}

type faceKey struct {
	variant fontVariant
	size    float64
}

// fontCache parses each font variant once and caches faces per size.
type fontCache struct {
	mu    sync.Mutex
	fonts map[fontVariant]*opentype.Font
	faces map[faceKey]font.Face
}

func newFontCache() *fontCache {
	return &fontCache{
		fonts: make(map[fontVariant]*opentype.Font),
		faces: make(map[faceKey]font.Face),
	}
}

func variantTTF(v fontVariant) []byte {
	switch {
	case v.bold && v.italic:
		return gobolditalic.TTF
	case v.bold:
		return gobold.TTF
	case v.italic:
		return goitalic.TTF
	}
	return goregular.TTF
}

// face returns a cached font face. CSS-style weights of 600 and up
// select the bold variant.
func (c *fontCache) face(weight int, style string, size float64) (font.Face, error) {
	if size <= 0 {
		size = 16
	}

	variant := fontVariant{
		bold:   weight >= 600,
		italic: style == "italic",
	}
	key := faceKey{variant: variant, size: size}

	c.mu.Lock()
	defer c.mu.Unlock()

	if face, exist := c.faces[key]; exist {
		return face, nil
	}

	parsed, exist := c.fonts[variant]
	if !exist {
		var err error
		parsed, err = opentype.Parse(variantTTF(variant))
		if err != nil {
			return nil, fmt.Errorf("parse font: %w", err)
		}
		c.fonts[variant] = parsed
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}

	c.faces[key] = face
	return face, nil
}
