package asefile

// decodeExternalFilesChunk parses a 0x2008 External-files chunk, which
// lists files (tileset sources or extension-owned data) other chunks
// reference by id.
func decodeExternalFilesChunk(c *cursor, offset int64) (map[int]ExternalFileRef, error) {
	count, err := c.u32()
	if err != nil {
		return nil, errBadChunk(0x2008, offset, "entry count: %v", err)
	}
	if err := c.skip(8); err != nil {
		return nil, errBadChunk(0x2008, offset, "reserved: %v", err)
	}

	out := make(map[int]ExternalFileRef, count)
	for i := uint32(0); i < count; i++ {
		id, err := c.u32()
		if err != nil {
			return nil, errBadChunk(0x2008, offset, "entry id: %v", err)
		}
		if err := c.skip(8); err != nil {
			return nil, errBadChunk(0x2008, offset, "reserved: %v", err)
		}
		name, err := c.str()
		if err != nil {
			return nil, errBadChunk(0x2008, offset, "entry name: %v", err)
		}
		out[int(id)] = ExternalFileRef{ID: int(id), Filename: name}
	}

	return out, nil
}

// decodeColorProfileChunk parses a 0x2007 Color-profile chunk. ICC bytes
// are retained verbatim but never interpreted; a caller with its own
// color-management stack can hand ICCData to it directly.
func decodeColorProfileChunk(c *cursor, offset int64) (ColorProfile, error) {
	kind, err := c.u16()
	if err != nil {
		return ColorProfile{}, errBadChunk(0x2007, offset, "kind: %v", err)
	}
	flags, err := c.u16()
	if err != nil {
		return ColorProfile{}, errBadChunk(0x2007, offset, "flags: %v", err)
	}
	gamma, err := c.fixed()
	if err != nil {
		return ColorProfile{}, errBadChunk(0x2007, offset, "gamma: %v", err)
	}
	if err := c.skip(8); err != nil {
		return ColorProfile{}, errBadChunk(0x2007, offset, "reserved: %v", err)
	}

	cp := ColorProfile{Flags: flags, Gamma: gamma}

	switch kind {
	case 0:
		cp.Kind = ColorProfileNone
	case 1:
		cp.Kind = ColorProfileSRGB
	case 2:
		cp.Kind = ColorProfileICC
		n, err := c.u32()
		if err != nil {
			return ColorProfile{}, errBadChunk(0x2007, offset, "icc length: %v", err)
		}
		data, err := c.bytes(int(n))
		if err != nil {
			return ColorProfile{}, errBadChunk(0x2007, offset, "icc data: %v", err)
		}
		cp.ICCData = append([]byte(nil), data...)
	default:
		return ColorProfile{}, errUnsupportedFeature("unknown color profile kind %d", kind)
	}

	return cp, nil
}
