package asefile

import "image"

const (
	sliceFlag9Patch = 1 << 0
	sliceFlagPivot  = 1 << 1
)

// decodeSliceChunk parses a 0x2022 Slice chunk into a Slice with one key
// per entry in the chunk's key list. Keys are already sorted ascending by
// FromFrame on disk; Slice.KeyAt picks the key at or before a queried
// frame.
func decodeSliceChunk(c *cursor, offset int64) (Slice, error) {
	keyCount, err := c.u32()
	if err != nil {
		return Slice{}, errBadChunk(0x2022, offset, "key count: %v", err)
	}
	flags, err := c.u32()
	if err != nil {
		return Slice{}, errBadChunk(0x2022, offset, "flags: %v", err)
	}
	if _, err := c.u32(); err != nil { // reserved
		return Slice{}, errBadChunk(0x2022, offset, "reserved: %v", err)
	}
	name, err := c.str()
	if err != nil {
		return Slice{}, errBadChunk(0x2022, offset, "name: %v", err)
	}

	s := Slice{Name: name, Keys: make([]SliceKey, keyCount)}

	for i := range s.Keys {
		frame, err := c.u32()
		if err != nil {
			return Slice{}, errBadChunk(0x2022, offset, "key frame: %v", err)
		}
		x, err := c.i32()
		if err != nil {
			return Slice{}, errBadChunk(0x2022, offset, "key x: %v", err)
		}
		y, err := c.i32()
		if err != nil {
			return Slice{}, errBadChunk(0x2022, offset, "key y: %v", err)
		}
		w, err := c.u32()
		if err != nil {
			return Slice{}, errBadChunk(0x2022, offset, "key width: %v", err)
		}
		h, err := c.u32()
		if err != nil {
			return Slice{}, errBadChunk(0x2022, offset, "key height: %v", err)
		}

		key := SliceKey{
			FromFrame: int(frame),
			Bounds:    image.Rect(int(x), int(y), int(x)+int(w), int(y)+int(h)),
		}

		if flags&sliceFlag9Patch != 0 {
			cx, err := c.i32()
			if err != nil {
				return Slice{}, errBadChunk(0x2022, offset, "center x: %v", err)
			}
			cy, err := c.i32()
			if err != nil {
				return Slice{}, errBadChunk(0x2022, offset, "center y: %v", err)
			}
			cw, err := c.u32()
			if err != nil {
				return Slice{}, errBadChunk(0x2022, offset, "center width: %v", err)
			}
			ch, err := c.u32()
			if err != nil {
				return Slice{}, errBadChunk(0x2022, offset, "center height: %v", err)
			}
			key.HasCenter = true
			key.Center = image.Rect(int(cx), int(cy), int(cx)+int(cw), int(cy)+int(ch))
		}

		if flags&sliceFlagPivot != 0 {
			px, err := c.i32()
			if err != nil {
				return Slice{}, errBadChunk(0x2022, offset, "pivot x: %v", err)
			}
			py, err := c.i32()
			if err != nil {
				return Slice{}, errBadChunk(0x2022, offset, "pivot y: %v", err)
			}
			key.HasPivot = true
			key.Pivot = image.Pt(int(px), int(py))
		}

		s.Keys[i] = key
	}

	return s, nil
}
