package asefile

import (
	"bytes"
	"compress/zlib"
	"image/color"
	"io"
)

// rawDecode is the identity codec: the payload already is pixel bytes.
func rawDecode(raw []byte, wantLen int) ([]byte, error) {
	if len(raw) != wantLen {
		return nil, errBadCompression(-1, 0, "raw pixel payload is %d bytes, want %d", len(raw), wantLen)
	}
	return raw, nil
}

// rleDecode expands Aseprite's byte-oriented RLE: a sequence of
// (control, data) runs where control >= 128 repeats the next byte
// 257-control times, and control < 128 copies the next control+1 bytes
// literally. This codec is not reached by any chunk this format version
// emits (cel and tileset pixel data are always raw or zlib-compressed in
// the container this package parses) but is kept available, and tested
// directly, for the legacy byte-stream format it was historically paired
// with.
func rleDecode(raw []byte, wantLen int) ([]byte, error) {
	out := make([]byte, 0, wantLen)
	i := 0
	for i < len(raw) && len(out) < wantLen {
		control := raw[i]
		i++
		switch {
		case control >= 128:
			n := 257 - int(control)
			if i >= len(raw) {
				return nil, errBadCompression(-1, int64(i), "rle: truncated repeat run")
			}
			b := raw[i]
			i++
			for k := 0; k < n; k++ {
				out = append(out, b)
			}
		default:
			n := int(control) + 1
			if i+n > len(raw) {
				return nil, errBadCompression(-1, int64(i), "rle: truncated literal run of %d bytes", n)
			}
			out = append(out, raw[i:i+n]...)
			i += n
		}
	}
	if len(out) != wantLen {
		return nil, errBadCompression(-1, int64(i), "rle: decoded %d bytes, want %d", len(out), wantLen)
	}
	return out, nil
}

// rleEncode is the RLE codec's inverse, used only by tests to build
// synthetic fixtures and to round-trip rleDecode.
func rleEncode(data []byte) []byte {
	var out []byte
	i := 0
	for i < len(data) {
		runLen := 1
		for i+runLen < len(data) && runLen < 128 && data[i+runLen] == data[i] {
			runLen++
		}
		if runLen >= 2 {
			out = append(out, byte(257-runLen), data[i])
			i += runLen
			continue
		}
		lit := []byte{data[i]}
		i++
		for i < len(data) && len(lit) < 128 {
			if i+1 < len(data) && data[i] == data[i+1] {
				break
			}
			lit = append(lit, data[i])
			i++
		}
		out = append(out, byte(len(lit)-1))
		out = append(out, lit...)
	}
	return out
}

// zlibDecode inflates a zlib-wrapped deflate stream into exactly wantLen
// bytes; any checksum failure or length mismatch is BadCompression.
func zlibDecode(raw []byte, chunkType int, offset int64, wantLen int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, errBadCompression(chunkType, offset, "zlib: %v", err)
	}
	defer zr.Close()

	out := make([]byte, wantLen)
	n, err := io.ReadFull(zr, out)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, errBadCompression(chunkType, offset, "zlib: %v", err)
	}
	if n != wantLen {
		return nil, errBadCompression(chunkType, offset, "zlib: decompressed %d bytes, want %d", n, wantLen)
	}

	var extra [1]byte
	m, err := zr.Read(extra[:])
	if m > 0 {
		return nil, errBadCompression(chunkType, offset, "zlib: decompressed stream longer than declared %d bytes", wantLen)
	}
	if err != nil && err != io.EOF {
		return nil, errBadCompression(chunkType, offset, "zlib: %v", err)
	}

	return out, nil
}

// zlibEncode compresses data with a zlib wrapper; used only by tests to
// build synthetic fixtures.
func zlibEncode(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write(data)
	_ = zw.Close()
	return buf.Bytes()
}

// pixelToRGBA converts one pixel's raw bytes (in the document's pixel
// format) to a straight RGBA quad. palette is consulted only for
// FormatIndexed and may be nil otherwise.
func pixelToRGBA(format PixelFormat, px []byte, palette *Palette, transparentIndex int, backgroundOpaque bool) color.NRGBA {
	switch format {
	case FormatRGBA:
		c := color.NRGBA{R: px[0], G: px[1], B: px[2], A: px[3]}
		if backgroundOpaque {
			c.A = 255
		}
		return c
	case FormatGrayscale:
		v, a := px[0], px[1]
		if backgroundOpaque {
			a = 255
		}
		return color.NRGBA{R: v, G: v, B: v, A: a}
	case FormatIndexed:
		idx := int(px[0])
		if !backgroundOpaque && idx == transparentIndex {
			return color.NRGBA{}
		}
		c := palette.At(idx)
		if backgroundOpaque {
			c.A = 255
		}
		return c
	default:
		return color.NRGBA{}
	}
}
