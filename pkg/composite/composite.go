// Package composite builds the side-by-side display buffer.
package composite

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// SideBySide places left and right next to each other. The result is as
// wide as both inputs together and as tall as the taller one; the shorter
// input is scaled up to that height, keeping its aspect ratio, first.
func SideBySide(left, right image.Image) *image.NRGBA {
	h := max(left.Bounds().Dy(), right.Bounds().Dy())
	left = matchHeight(left, h)
	right = matchHeight(right, h)

	lw := left.Bounds().Dx()
	dst := imaging.New(lw+right.Bounds().Dx(), h, color.Black)
	dst = imaging.Paste(dst, left, image.Pt(0, 0))
	dst = imaging.Paste(dst, right, image.Pt(lw, 0))
	return dst
}

func matchHeight(img image.Image, h int) image.Image {
	if img.Bounds().Dy() == h {
		return img
	}
	return imaging.Resize(img, 0, h, imaging.Linear)
}
