/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package pixelate produces the blocky cover art used to hide a track's
// identity until it is guessed.
package pixelate

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

var placeholderGrey = color.RGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff}

// Revealed is the factor that renders a cover at full resolution.
const Revealed = 1

// Dimensions returns the low-resolution raster size for a w×h source.
// Factors below 1 are treated as 1.
func Dimensions(w, h, factor int) (int, int) {
	if factor < 1 {
		factor = 1
	}

	return max(1, w/factor), max(1, h/factor)
}

// Downsample shrinks src by factor with nearest-neighbour sampling.
func Downsample(src image.Image, factor int) *image.RGBA {
	b := src.Bounds()
	w, h := Dimensions(b.Dx(), b.Dy(), factor)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	return dst
}

// Stretch scales src to w×h without smoothing, keeping blocks visible.
func Stretch(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, max(1, w), max(1, h)))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	return dst
}

// Render downsamples src by factor and stretches the result to w×h.
func Render(src image.Image, factor, w, h int) *image.RGBA {
	return Stretch(Downsample(src, factor), w, h)
}

// Placeholder is a flat grey cover for tracks whose art cannot be fetched.
func Placeholder(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, max(1, size), max(1, size)))
	draw.Draw(img, img.Bounds(), image.NewUniform(placeholderGrey), image.Point{}, draw.Src)

	return img
}
