package asefile

// decodeLayerChunk parses a 0x2004 Layer chunk. The blend mode field is
// trusted verbatim; an out-of-range value is left for the compositor's
// "unknown mode falls back to Normal" rule rather than rejected here, since
// an unrecognized mode is not itself a malformed file.
func decodeLayerChunk(c *cursor, offset int64) (Layer, error) {
	flags, err := c.u16()
	if err != nil {
		return Layer{}, errBadChunk(0x2004, offset, "flags: %v", err)
	}
	kind, err := c.u16()
	if err != nil {
		return Layer{}, errBadChunk(0x2004, offset, "kind: %v", err)
	}
	childLevel, err := c.u16()
	if err != nil {
		return Layer{}, errBadChunk(0x2004, offset, "child level: %v", err)
	}
	if err := c.skip(4); err != nil { // default width/height, deprecated
		return Layer{}, errBadChunk(0x2004, offset, "reserved dims: %v", err)
	}
	blendMode, err := c.u16()
	if err != nil {
		return Layer{}, errBadChunk(0x2004, offset, "blend mode: %v", err)
	}
	opacity, err := c.u8()
	if err != nil {
		return Layer{}, errBadChunk(0x2004, offset, "opacity: %v", err)
	}
	if err := c.skip(3); err != nil {
		return Layer{}, errBadChunk(0x2004, offset, "reserved: %v", err)
	}
	name, err := c.str()
	if err != nil {
		return Layer{}, errBadChunk(0x2004, offset, "name: %v", err)
	}

	l := Layer{
		Name:       name,
		ChildLevel: int(childLevel),
		BlendMode:  BlendMode(blendMode),
		Opacity:    opacity,
		Flags:      LayerFlags(flags),
	}

	switch kind {
	case 0:
		l.Kind = LayerImage
	case 1:
		l.Kind = LayerGroup
	case 2:
		l.Kind = LayerTilemap
		tilesetID, err := c.u32()
		if err != nil {
			return Layer{}, errBadChunk(0x2004, offset, "tileset index: %v", err)
		}
		l.TilesetID = int(tilesetID)
	default:
		return Layer{}, errBadChunk(0x2004, offset, "unknown layer kind %d", kind)
	}

	return l, nil
}
