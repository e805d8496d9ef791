// Package aseimg adapts asefile's rendered RGBAImage results to the
// standard library's image.Image, for callers that want to hand a frame
// to image/png or image/draw. PNG encoding and any other asset-pipeline
// step belong to the caller, so this conversion lives outside the core
// package rather than making RGBAImage itself satisfy image.Image.
package aseimg

import (
	"image"

	"github.com/alpine-alpaca/asefile"
)

// AsNRGBA copies img's pixels into a stdlib image.NRGBA so the result can
// be handed to image/png, image/draw, or anything else expecting
// image.Image, without the caller holding a reference into img's buffer.
func AsNRGBA(img *asefile.RGBAImage) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	copy(out.Pix, img.Pix)
	return out
}
