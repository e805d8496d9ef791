package asefile

import "image/color"

// decodePaletteChunk parses a 0x2019 (new) Palette chunk into entries
// indexed absolutely by palette slot, growing dst as needed.
func decodePaletteChunk(c *cursor, dst []PaletteEntry, offset int64) ([]PaletteEntry, error) {
	count, err := c.u32()
	if err != nil {
		return nil, errBadChunk(0x2019, offset, "entry count: %v", err)
	}
	first, err := c.u32()
	if err != nil {
		return nil, errBadChunk(0x2019, offset, "first index: %v", err)
	}
	if _, err := c.u32(); err != nil { // last index, redundant with count
		return nil, errBadChunk(0x2019, offset, "last index: %v", err)
	}
	if err := c.skip(8); err != nil {
		return nil, errBadChunk(0x2019, offset, "reserved: %v", err)
	}

	need := int(first) + int(count)
	if need > len(dst) {
		grown := make([]PaletteEntry, need)
		copy(grown, dst)
		dst = grown
	}

	for i := uint32(0); i < count; i++ {
		flags, err := c.u16()
		if err != nil {
			return nil, errBadChunk(0x2019, offset, "entry flags: %v", err)
		}
		col, err := c.bytes(4)
		if err != nil {
			return nil, errBadChunk(0x2019, offset, "entry color: %v", err)
		}
		entry := PaletteEntry{Color: color.NRGBA{R: col[0], G: col[1], B: col[2], A: col[3]}}
		if flags&1 != 0 {
			name, err := c.str()
			if err != nil {
				return nil, errBadChunk(0x2019, offset, "entry name: %v", err)
			}
			entry.Name = name
		}
		dst[int(first)+int(i)] = entry
	}

	return dst, nil
}

// decodeOldPaletteChunk parses a 0x0004 or 0x0011 Old-palette chunk: a
// sequence of packets, each skipping N entries then writing M 6-bit RGB
// triples (0..63) left-shifted to the full 8-bit range. Used only when a
// document carries no modern Palette chunk.
func decodeOldPaletteChunk(c *cursor, dst []PaletteEntry, chunkType int, offset int64) ([]PaletteEntry, error) {
	packets, err := c.u16()
	if err != nil {
		return nil, errBadChunk(chunkType, offset, "packet count: %v", err)
	}

	idx := 0
	for i := uint16(0); i < packets; i++ {
		skip, err := c.u8()
		if err != nil {
			return nil, errBadChunk(chunkType, offset, "skip count: %v", err)
		}
		n, err := c.u8()
		if err != nil {
			return nil, errBadChunk(chunkType, offset, "color count: %v", err)
		}
		count := int(n)
		if count == 0 {
			count = 256
		}
		idx += int(skip)

		for j := 0; j < count; j++ {
			rgb, err := c.bytes(3)
			if err != nil {
				return nil, errBadChunk(chunkType, offset, "rgb triple: %v", err)
			}
			if idx >= len(dst) {
				grown := make([]PaletteEntry, idx+1)
				copy(grown, dst)
				dst = grown
			}
			dst[idx] = PaletteEntry{Color: color.NRGBA{
				R: sixBitTo8(rgb[0]),
				G: sixBitTo8(rgb[1]),
				B: sixBitTo8(rgb[2]),
				A: 255,
			}}
			idx++
		}
	}

	return dst, nil
}

func sixBitTo8(v byte) byte {
	v &= 0x3f
	return v<<2 | v>>4
}
