package asefile

import "encoding/binary"

const (
	celTypeRaw         = 0
	celTypeLinked      = 1
	celTypeCompressed  = 2
	celTypeCompTilemap = 3
)

// decodeCelChunk parses a 0x2005 Cel chunk. pixelFormat is the document's
// fixed pixel format (needed to size the raw/compressed raster); offset is
// only used for error messages.
func decodeCelChunk(c *cursor, pixelFormat PixelFormat, offset int64) (*Cel, error) {
	layerIndex, err := c.u16()
	if err != nil {
		return nil, errBadChunk(0x2005, offset, "layer index: %v", err)
	}
	x, err := c.i16()
	if err != nil {
		return nil, errBadChunk(0x2005, offset, "x: %v", err)
	}
	y, err := c.i16()
	if err != nil {
		return nil, errBadChunk(0x2005, offset, "y: %v", err)
	}
	opacity, err := c.u8()
	if err != nil {
		return nil, errBadChunk(0x2005, offset, "opacity: %v", err)
	}
	celType, err := c.u16()
	if err != nil {
		return nil, errBadChunk(0x2005, offset, "cel type: %v", err)
	}
	zIndex, err := c.i16()
	if err != nil {
		return nil, errBadChunk(0x2005, offset, "z-index: %v", err)
	}
	if err := c.skip(5); err != nil {
		return nil, errBadChunk(0x2005, offset, "reserved: %v", err)
	}

	cel := &Cel{
		LayerIndex: int(layerIndex),
		X:          int(x),
		Y:          int(y),
		Opacity:    opacity,
		ZIndex:     zIndex,
	}

	switch celType {
	case celTypeLinked:
		frame, err := c.u16()
		if err != nil {
			return nil, errBadChunk(0x2005, offset, "linked frame: %v", err)
		}
		cel.Kind = CelLinked
		cel.LinkedFrame = int(frame)
		return cel, nil

	case celTypeRaw, celTypeCompressed:
		w, err := c.u16()
		if err != nil {
			return nil, errBadChunk(0x2005, offset, "width: %v", err)
		}
		h, err := c.u16()
		if err != nil {
			return nil, errBadChunk(0x2005, offset, "height: %v", err)
		}
		bpp := pixelFormat.BytesPerPixel()
		wantLen := int(w) * int(h) * bpp

		var pix []byte
		if celType == celTypeRaw {
			raw, err := c.bytes(c.remaining())
			if err != nil {
				return nil, errBadChunk(0x2005, offset, "raw pixels: %v", err)
			}
			pix, err = rawDecode(raw, wantLen)
			if err != nil {
				return nil, err
			}
		} else {
			raw := c.rest()
			pix, err = zlibDecode(raw, 0x2005, offset, wantLen)
			if err != nil {
				return nil, err
			}
		}

		cel.Kind = CelRaw
		cel.Width = int(w)
		cel.Height = int(h)
		cel.Pixels = append([]byte(nil), pix...)
		return cel, nil

	case celTypeCompTilemap:
		w, err := c.u16()
		if err != nil {
			return nil, errBadChunk(0x2005, offset, "tile width: %v", err)
		}
		h, err := c.u16()
		if err != nil {
			return nil, errBadChunk(0x2005, offset, "tile height: %v", err)
		}
		bitsPerTile, err := c.u16()
		if err != nil {
			return nil, errBadChunk(0x2005, offset, "bits per tile: %v", err)
		}
		maskTileID, err := c.u32()
		if err != nil {
			return nil, errBadChunk(0x2005, offset, "tile id mask: %v", err)
		}
		maskXFlip, err := c.u32()
		if err != nil {
			return nil, errBadChunk(0x2005, offset, "x-flip mask: %v", err)
		}
		maskYFlip, err := c.u32()
		if err != nil {
			return nil, errBadChunk(0x2005, offset, "y-flip mask: %v", err)
		}
		maskDiagonal, err := c.u32()
		if err != nil {
			return nil, errBadChunk(0x2005, offset, "diagonal-flip mask: %v", err)
		}
		if err := c.skip(10); err != nil {
			return nil, errBadChunk(0x2005, offset, "reserved: %v", err)
		}

		if bitsPerTile != 8 && bitsPerTile != 16 && bitsPerTile != 32 {
			return nil, errBadChunk(0x2005, offset, "unsupported bits-per-tile %d", bitsPerTile)
		}
		tileBytes := int(bitsPerTile) / 8
		wantLen := int(w) * int(h) * tileBytes

		raw := c.rest()
		decoded, err := zlibDecode(raw, 0x2005, offset, wantLen)
		if err != nil {
			return nil, err
		}

		tiles := make([]uint32, int(w)*int(h))
		for i := range tiles {
			switch tileBytes {
			case 1:
				tiles[i] = uint32(decoded[i])
			case 2:
				tiles[i] = uint32(binary.LittleEndian.Uint16(decoded[i*2:]))
			case 4:
				tiles[i] = binary.LittleEndian.Uint32(decoded[i*4:])
			}
		}

		cel.Kind = CelTilemap
		cel.Width = int(w)
		cel.Height = int(h)
		cel.BitsPerTile = int(bitsPerTile)
		cel.MaskTileID = maskTileID
		cel.MaskXFlip = maskXFlip
		cel.MaskYFlip = maskYFlip
		cel.MaskDiagonal = maskDiagonal
		cel.Tiles = tiles
		return cel, nil

	default:
		return nil, errBadChunk(0x2005, offset, "unsupported cel type %d", celType)
	}
}

// CelExtraBounds is the sub-pixel precise rectangle Aseprite keeps for a
// cel that was produced by a free transform; it refines but never replaces
// the cel's own integer (X, Y, Width, Height). Presence is optional and
// purely informational: RenderFrame never consults it.
type CelExtraBounds struct {
	PreciseX, PreciseY float64
	PreciseW, PreciseH float64
}

// decodeCelExtraChunk parses a 0x2006 Cel-extra chunk, which always
// refines the most recently decoded cel in the same frame's chunk stream.
func decodeCelExtraChunk(c *cursor, offset int64) (CelExtraBounds, error) {
	if err := c.skip(4); err != nil { // flags
		return CelExtraBounds{}, errBadChunk(0x2006, offset, "flags: %v", err)
	}
	x, err := c.fixed()
	if err != nil {
		return CelExtraBounds{}, errBadChunk(0x2006, offset, "precise x: %v", err)
	}
	y, err := c.fixed()
	if err != nil {
		return CelExtraBounds{}, errBadChunk(0x2006, offset, "precise y: %v", err)
	}
	w, err := c.fixed()
	if err != nil {
		return CelExtraBounds{}, errBadChunk(0x2006, offset, "precise w: %v", err)
	}
	h, err := c.fixed()
	if err != nil {
		return CelExtraBounds{}, errBadChunk(0x2006, offset, "precise h: %v", err)
	}
	return CelExtraBounds{PreciseX: x, PreciseY: y, PreciseW: w, PreciseH: h}, nil
}
