package asefile

import "image/color"

func rgba8(r, g, b byte) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// decodeUserDataChunk parses a 0x2020 User-data chunk. Property maps
// (flag bit 2) are kept as their still-encoded bytes; see UserData.
func decodeUserDataChunk(c *cursor, offset int64) (UserData, error) {
	flags, err := c.u32()
	if err != nil {
		return UserData{}, errBadChunk(0x2020, offset, "flags: %v", err)
	}

	var ud UserData

	if flags&1 != 0 {
		text, err := c.str()
		if err != nil {
			return UserData{}, errBadChunk(0x2020, offset, "text: %v", err)
		}
		ud.HasText = true
		ud.Text = text
	}

	if flags&2 != 0 {
		rgba, err := c.bytes(4)
		if err != nil {
			return UserData{}, errBadChunk(0x2020, offset, "color: %v", err)
		}
		ud.HasColor = true
		ud.Color = color.NRGBA{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]}
	}

	if flags&4 != 0 {
		ud.HasProperties = true
		ud.PropertiesRaw = append([]byte(nil), c.rest()...)
	}

	return ud, nil
}
