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
	"image"
	"image/color"
	"image/draw"

	"vexport/pkg/timeline"
)

var (
	patternDark  = color.RGBA{0x40, 0x40, 0x40, 0xff}
	patternLight = color.RGBA{0xc0, 0xc0, 0xc0, 0xff}
)

// Pattern rasterizes a procedural pattern. The output is fully
// deterministic given width, height and kind.
func Pattern(kind timeline.PatternKind, width, height int) *image.RGBA {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	switch kind {
	case timeline.PatternDots:
		drawDots(img, width, height)
	case timeline.PatternStripes:
		drawStripes(img, width, height)
	case timeline.PatternCheckerboard:
		drawCheckerboard(img, width, height)
	default: // solid
		draw.Draw(img, img.Bounds(), image.NewUniform(patternLight), image.Point{}, draw.Src)
	}

	return img
}

func drawDots(img *image.RGBA, width, height int) {
	draw.Draw(img, img.Bounds(), image.NewUniform(patternLight), image.Point{}, draw.Src)

	radius := min(width, height) / 20
	if radius < 2 {
		radius = 2
	}
	spacing := radius * 4

	for cy := spacing / 2; cy < height; cy += spacing {
		for cx := spacing / 2; cx < width; cx += spacing {
			for y := cy - radius; y <= cy+radius; y++ {
				for x := cx - radius; x <= cx+radius; x++ {
					dx, dy := x-cx, y-cy
					if dx*dx+dy*dy <= radius*radius {
						img.SetRGBA(x, y, patternDark)
					}
				}
			}
		}
	}
}

func drawStripes(img *image.RGBA, width, height int) {
	stripe := width / 10
	if stripe < 4 {
		stripe = 4
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x/stripe)%2 == 0 {
				img.SetRGBA(x, y, patternDark)
			} else {
				img.SetRGBA(x, y, patternLight)
			}
		}
	}
}

func drawCheckerboard(img *image.RGBA, width, height int) {
	cell := min(width, height) / 8
	if cell < 4 {
		cell = 4
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetRGBA(x, y, patternDark)
			} else {
				img.SetRGBA(x, y, patternLight)
			}
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
