package asefile

// decodeTagsChunk parses a single 0x2018 Tags chunk into the tag list. Only
// one such chunk is expected per document; a second is appended to rather
// than rejected, matching the container's general forward-compatible
// posture.
func decodeTagsChunk(c *cursor, offset int64) ([]Tag, error) {
	count, err := c.u16()
	if err != nil {
		return nil, errBadChunk(0x2018, offset, "tag count: %v", err)
	}
	if err := c.skip(8); err != nil {
		return nil, errBadChunk(0x2018, offset, "reserved: %v", err)
	}

	tags := make([]Tag, count)
	for i := range tags {
		from, err := c.u16()
		if err != nil {
			return nil, errBadChunk(0x2018, offset, "from frame: %v", err)
		}
		to, err := c.u16()
		if err != nil {
			return nil, errBadChunk(0x2018, offset, "to frame: %v", err)
		}
		direction, err := c.u8()
		if err != nil {
			return nil, errBadChunk(0x2018, offset, "direction: %v", err)
		}
		repeat, err := c.u16()
		if err != nil {
			return nil, errBadChunk(0x2018, offset, "repeat: %v", err)
		}
		if err := c.skip(6); err != nil {
			return nil, errBadChunk(0x2018, offset, "reserved: %v", err)
		}
		rgb, err := c.bytes(3)
		if err != nil {
			return nil, errBadChunk(0x2018, offset, "color: %v", err)
		}
		if err := c.skip(1); err != nil {
			return nil, errBadChunk(0x2018, offset, "reserved: %v", err)
		}
		name, err := c.str()
		if err != nil {
			return nil, errBadChunk(0x2018, offset, "name: %v", err)
		}

		dir := TagDirection(direction)
		if dir > TagPingPongReverse {
			dir = TagForward
		}

		tags[i] = Tag{
			Name:      name,
			FromFrame: int(from),
			ToFrame:   int(to),
			Direction: dir,
			Repeat:    int(repeat),
			HasColor:  true,
			Color:     rgba8(rgb[0], rgb[1], rgb[2]),
		}
	}

	return tags, nil
}
