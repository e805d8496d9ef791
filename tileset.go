package asefile

const (
	tilesetFlagExternalFile = 1 << 0
	tilesetFlagEmbedded     = 1 << 1
)

// decodeTilesetChunk parses a 0x2023 Tileset chunk. pixelFormat sizes the
// embedded pixel buffer, when present; a tileset may instead (or also)
// reference an external file, in which case Pixels is left nil for the
// caller to resolve via External.
func decodeTilesetChunk(c *cursor, pixelFormat PixelFormat, offset int64) (Tileset, error) {
	id, err := c.u32()
	if err != nil {
		return Tileset{}, errBadChunk(0x2023, offset, "tileset id: %v", err)
	}
	flags, err := c.u32()
	if err != nil {
		return Tileset{}, errBadChunk(0x2023, offset, "flags: %v", err)
	}
	tileCount, err := c.u32()
	if err != nil {
		return Tileset{}, errBadChunk(0x2023, offset, "tile count: %v", err)
	}
	tileW, err := c.u16()
	if err != nil {
		return Tileset{}, errBadChunk(0x2023, offset, "tile width: %v", err)
	}
	tileH, err := c.u16()
	if err != nil {
		return Tileset{}, errBadChunk(0x2023, offset, "tile height: %v", err)
	}
	if _, err := c.i16(); err != nil { // base index, editor-only
		return Tileset{}, errBadChunk(0x2023, offset, "base index: %v", err)
	}
	if err := c.skip(14); err != nil {
		return Tileset{}, errBadChunk(0x2023, offset, "reserved: %v", err)
	}
	name, err := c.str()
	if err != nil {
		return Tileset{}, errBadChunk(0x2023, offset, "name: %v", err)
	}

	ts := Tileset{
		ID:         int(id),
		Name:       name,
		TileCount:  int(tileCount),
		TileWidth:  int(tileW),
		TileHeight: int(tileH),
		bpp:        pixelFormat.BytesPerPixel(),
	}

	if flags&tilesetFlagExternalFile != 0 {
		fileID, err := c.u32()
		if err != nil {
			return Tileset{}, errBadChunk(0x2023, offset, "external file id: %v", err)
		}
		tilesetIDInFile, err := c.u32()
		if err != nil {
			return Tileset{}, errBadChunk(0x2023, offset, "external tileset id: %v", err)
		}
		ts.External = &TilesetExternalRef{
			FileID:    int(fileID),
			TilesetID: int(tilesetIDInFile),
		}
	}

	if flags&tilesetFlagEmbedded != 0 {
		dataLen, err := c.u32()
		if err != nil {
			return Tileset{}, errBadChunk(0x2023, offset, "compressed data length: %v", err)
		}
		raw, err := c.bytes(int(dataLen))
		if err != nil {
			return Tileset{}, errBadChunk(0x2023, offset, "compressed data: %v", err)
		}
		wantLen := ts.TileCount * ts.TileWidth * ts.TileHeight * ts.bpp
		pix, err := zlibDecode(raw, 0x2023, offset, wantLen)
		if err != nil {
			return Tileset{}, err
		}
		ts.Pixels = append([]byte(nil), pix...)
	}

	return ts, nil
}
