package asefile

import "encoding/binary"

// cursor is a bounds-checked little-endian reader over a single chunk or
// header payload. Every chunk decoder gets its own cursor scoped to that
// chunk's payload, so a malformed chunk can never read past its own bounds
// into a sibling chunk's bytes.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) remaining() int { return len(c.buf) - c.pos }

func (c *cursor) need(n int) error {
	if n < 0 || c.remaining() < n {
		return errShortRead(c.pos, n, c.remaining())
	}
	return nil
}

func (c *cursor) u8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *cursor) i8() (int8, error) {
	v, err := c.u8()
	return int8(v), err
}

func (c *cursor) u16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *cursor) i16() (int16, error) {
	v, err := c.u16()
	return int16(v), err
}

func (c *cursor) u32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) i32() (int32, error) {
	v, err := c.u32()
	return int32(v), err
}

// fixed reads Aseprite's 16.16 fixed-point format as a float64.
func (c *cursor) fixed() (float64, error) {
	v, err := c.i32()
	if err != nil {
		return 0, err
	}
	return float64(v) / 65536.0, nil
}

func (c *cursor) skip(n int) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.pos += n
	return nil
}

// bytes returns a sub-slice of the cursor's own buffer (not a copy); callers
// that retain it past the lifetime of the source chunk payload must copy.
func (c *cursor) bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// rest returns every remaining byte in the cursor without advancing past it.
func (c *cursor) rest() []byte {
	return c.buf[c.pos:]
}

// str reads a u16-length-prefixed UTF-8 string with no terminator.
func (c *cursor) str() (string, error) {
	n, err := c.u16()
	if err != nil {
		return "", err
	}
	b, err := c.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
