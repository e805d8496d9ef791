package asefile

import (
	"image/color"

	"github.com/alpine-alpaca/asefile/internal/blend"
	"go.uber.org/zap"
)

// RGBAImage is a synthesized frame or cel raster: straight (non-
// premultiplied) RGBA, 4 bytes per pixel, row-major. It is deliberately
// not an image.Image: callers that want to hand a result to image/png or
// image/draw use AsNRGBA in the aseimg sub-package.
type RGBAImage struct {
	Width, Height int
	Pix           []byte
}

func newRGBAImage(w, h int) *RGBAImage {
	return &RGBAImage{Width: w, Height: h, Pix: make([]byte, w*h*4)}
}

func (img *RGBAImage) at(x, y int) color.NRGBA {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return color.NRGBA{}
	}
	i := (y*img.Width + x) * 4
	return color.NRGBA{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2], A: img.Pix[i+3]}
}

func (img *RGBAImage) set(x, y int, c color.NRGBA) {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return
	}
	i := (y*img.Width + x) * 4
	img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
}

func toBlendRGBA(c color.NRGBA) blend.RGBA { return blend.RGBA{c.R, c.G, c.B, c.A} }

func fromBlendRGBA(c blend.RGBA) color.NRGBA {
	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}

// RenderFrame synthesizes frame's RGBA raster by compositing every visible,
// non-group, non-reference layer in ascending index order.
// Rendering never fails after a successful Decode: an unknown blend mode
// falls back to Normal (and is logged, if a logger was configured), and an
// out-of-range palette index is treated as transparent.
func (d *Document) RenderFrame(frame int) (*RGBAImage, error) {
	if frame < 0 || frame >= len(d.Frames) {
		return nil, errInconsistentModel("frame %d out of range for %d frames", frame, len(d.Frames))
	}

	canvas := newRGBAImage(d.Width, d.Height)

	for li := range d.Layers {
		layer := &d.Layers[li]
		if layer.Kind == LayerGroup {
			continue
		}
		if !layer.Flags.Has(LayerVisible) || layer.Flags.Has(LayerReference) {
			continue
		}

		cel, err := d.resolveCel(li, frame)
		if err != nil {
			return nil, err
		}
		if cel == nil {
			continue
		}

		if err := d.compositeCel(canvas, layer, cel); err != nil {
			return nil, err
		}
	}

	return canvas, nil
}

// CelImage returns cel (layer, frame)'s own raster, resolving linked cels
// and expanding tilemap cels the same way RenderFrame does, but without
// compositing it against a canvas or applying layer/cel opacity. Unlike
// RenderFrame, a reference layer's cel is returned untouched: this
// accessor is for callers building their own pipeline.
func (d *Document) CelImage(layer, frame int) (*RGBAImage, bool, error) {
	if layer < 0 || layer >= len(d.Layers) || frame < 0 || frame >= len(d.Frames) {
		return nil, false, errInconsistentModel("CelImage: layer %d / frame %d out of range", layer, frame)
	}

	cel, err := d.resolveCel(layer, frame)
	if err != nil {
		return nil, false, err
	}
	if cel == nil {
		return nil, false, nil
	}

	img, err := d.rasterizeCel(&d.Layers[layer], cel)
	if err != nil {
		return nil, false, err
	}
	return img, true, nil
}

// resolveCel follows a cel's linked-cel chain (if any) to its raw or
// tilemap source. Decode already rejected cycles, so the visited set here
// only guards against a future caller constructing a Document by hand.
func (d *Document) resolveCel(layerIndex, frameIndex int) (*Cel, error) {
	cel := d.Frames[frameIndex].Cels[layerIndex]
	if cel == nil {
		return nil, nil
	}
	if cel.Kind != CelLinked {
		return cel, nil
	}
	return resolveLinkedCel(d, layerIndex, cel.LinkedFrame, map[int]bool{frameIndex: true})
}

// compositeCel blits cel onto canvas using layer's blend mode and the
// saturating product of layer and cel opacity.
func (d *Document) compositeCel(canvas *RGBAImage, layer *Layer, cel *Cel) error {
	raster, err := d.rasterizeCel(layer, cel)
	if err != nil {
		return err
	}
	if raster == nil {
		return nil
	}

	layerOpacity := uint8(255)
	if d.LayerOpacityValid {
		layerOpacity = layer.Opacity
	}
	opacity := blend.MulUn8(layerOpacity, cel.Opacity)

	mode := layer.BlendMode
	if !mode.Valid() {
		if d.logger != nil {
			d.logger.Warn("unknown blend mode treated as Normal",
				zap.String("layer", layer.Name), zap.Int("mode", int(mode)))
		}
		mode = blend.Normal
	}

	backgroundOpaque := layer.Flags.Has(LayerBackground)

	for y := 0; y < raster.Height; y++ {
		cy := cel.Y + y
		if cy < 0 || cy >= canvas.Height {
			continue
		}
		for x := 0; x < raster.Width; x++ {
			cx := cel.X + x
			if cx < 0 || cx >= canvas.Width {
				continue
			}
			src := raster.at(x, y)
			if backgroundOpaque {
				src.A = 255
			}
			backdrop := canvas.at(cx, cy)
			if backgroundOpaque {
				backdrop.A = 255
			}

			var result blend.RGBA
			if mode == blend.Normal {
				result = blend.Over(toBlendRGBA(backdrop), toBlendRGBA(src), opacity)
			} else {
				result = blend.BlendN(mode, toBlendRGBA(backdrop), toBlendRGBA(src), opacity)
			}
			canvas.set(cx, cy, fromBlendRGBA(result))
		}
	}

	return nil
}

// rasterizeCel converts cel's own storage into a straight RGBA raster
// positioned at the origin (0,0), i.e. without applying cel.X/cel.Y: a raw
// image cel converts pixel-by-pixel through the document's palette (for
// Indexed) or value/alpha pair (for Grayscale); a tilemap cel expands each
// tile id through its tileset, applying flip/rotation bits.
func (d *Document) rasterizeCel(layer *Layer, cel *Cel) (*RGBAImage, error) {
	backgroundOpaque := layer.Flags.Has(LayerBackground)

	switch cel.Kind {
	case CelRaw:
		img := newRGBAImage(cel.Width, cel.Height)
		bpp := d.PixelFormat.BytesPerPixel()
		for y := 0; y < cel.Height; y++ {
			for x := 0; x < cel.Width; x++ {
				off := (y*cel.Width + x) * bpp
				px := cel.Pixels[off : off+bpp]
				c := pixelToRGBA(d.PixelFormat, px, &d.Palette, d.TransparentIndex, backgroundOpaque)
				img.set(x, y, c)
			}
		}
		return img, nil

	case CelTilemap:
		if layer.Kind != LayerTilemap || layer.TilesetID < 0 || layer.TilesetID >= len(d.Tilesets) {
			return nil, errInconsistentModel("tilemap cel on layer %q has no matching tileset", layer.Name)
		}
		ts := &d.Tilesets[layer.TilesetID]
		return d.expandTilemap(cel, ts, backgroundOpaque), nil

	default:
		return nil, errInconsistentModel("cannot rasterize a cel of kind %d directly", cel.Kind)
	}
}

// expandTilemap blits each tile in cel's grid into a scratch raster sized
// cel.Width*ts.TileWidth x cel.Height*ts.TileHeight. Tile id 0 is the
// empty tile and contributes nothing, regardless of its flip bits.
func (d *Document) expandTilemap(cel *Cel, ts *Tileset, backgroundOpaque bool) *RGBAImage {
	out := newRGBAImage(cel.Width*ts.TileWidth, cel.Height*ts.TileHeight)

	for ty := 0; ty < cel.Height; ty++ {
		for tx := 0; tx < cel.Width; tx++ {
			id, xFlip, yFlip, diagonal := cel.TileAt(tx, ty)
			if id == 0 {
				continue
			}
			tile := d.rasterizeTile(ts, int(id), backgroundOpaque)
			if tile == nil {
				continue
			}
			blitTile(out, tile, tx*ts.TileWidth, ty*ts.TileHeight, xFlip, yFlip, diagonal)
		}
	}

	return out
}

// rasterizeTile decodes tile id's raw bytes from ts.Pixels into a straight
// RGBA raster. Returns nil if the tileset carries no embedded pixel buffer
// (an external-file tileset the caller must resolve itself) or the id is
// out of range.
func (d *Document) rasterizeTile(ts *Tileset, id int, backgroundOpaque bool) *RGBAImage {
	raw := ts.TileBytes(id)
	if raw == nil {
		return nil
	}
	bpp := d.PixelFormat.BytesPerPixel()
	img := newRGBAImage(ts.TileWidth, ts.TileHeight)
	for y := 0; y < ts.TileHeight; y++ {
		for x := 0; x < ts.TileWidth; x++ {
			off := (y*ts.TileWidth + x) * bpp
			px := raw[off : off+bpp]
			c := pixelToRGBA(d.PixelFormat, px, &d.Palette, d.TransparentIndex, backgroundOpaque)
			img.set(x, y, c)
		}
	}
	return img
}

// blitTile copies tile into dst at (ox, oy), applying x/y flip and a
// diagonal flip (a 90-degree rotation composed with an axis swap, matching
// Aseprite's own tile-flip bit semantics) before the copy.
func blitTile(dst, tile *RGBAImage, ox, oy int, xFlip, yFlip, diagonal bool) {
	w, h := tile.Width, tile.Height
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := x, y
			if diagonal {
				sx, sy = sy, sx
			}
			if xFlip {
				sx = w - 1 - sx
			}
			if yFlip {
				sy = h - 1 - sy
			}
			dst.set(ox+x, oy+y, tile.at(sx, sy))
		}
	}
}

