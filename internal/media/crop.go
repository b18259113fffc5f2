package media

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// CoverCrop scales src so that it fully covers a w×h box, keeping its aspect
// ratio, then crops the overflow evenly from both sides of the longer axis.
// Transparent areas are flattened onto white. The result is always exactly
// w×h.
func CoverCrop(src image.Image, w, h int) *image.NRGBA {
	bg := imaging.New(w, h, color.White)

	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw == 0 || sh == 0 || w <= 0 || h <= 0 {
		return bg
	}

	// sw/sh > w/h, compared without floating point.
	var rw, rh int
	if sw*h > sh*w {
		rh = h
		rw = max(sw*h/sh, w)
	} else {
		rw = w
		rh = max(sh*w/sw, h)
	}

	resized := imaging.Resize(src, rw, rh, imaging.Lanczos)
	cropped := imaging.CropCenter(resized, w, h)
	return imaging.Overlay(bg, cropped, image.Pt(0, 0), 1.0)
}

// Placeholder returns a solid dark-grey w×h image shown for products without
// a picture.
func Placeholder(w, h int) *image.NRGBA {
	return imaging.New(w, h, color.NRGBA{R: 30, G: 30, B: 30, A: 255})
}
