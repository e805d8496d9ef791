// Package testase assembles well-formed .aseprite byte streams in-process,
// chunk by chunk, as the inverse of this module's parser. It exists so
// tests can exercise Decode and RenderFrame without shipping binary
// fixture files, and is never imported outside _test.go files.
package testase

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
)

const (
	FileMagic  = 0xA5E0
	FrameMagic = 0xF1FA
)

// Builder assembles one complete document's byte stream.
type Builder struct {
	Width, Height           int
	ColorDepth              uint16 // 32 RGBA, 16 grayscale, 8 indexed
	Flags                   uint32
	TransparentIndex        uint8
	ColorCount              uint16
	PixelWidth, PixelHeight uint8
	GridX, GridY            int16
	GridW, GridH            uint16
	Frames                  []*Frame
}

// New starts a builder for a document of the given canvas size and color
// depth (32, 16 or 8 bits per pixel).
func New(width, height int, colorDepth uint16) *Builder {
	return &Builder{
		Width: width, Height: height, ColorDepth: colorDepth,
		ColorCount: 256, PixelWidth: 1, PixelHeight: 1,
	}
}

// AddFrame appends a new, empty frame with the given duration and returns
// it so chunks can be appended to it.
func (b *Builder) AddFrame(durationMS uint16) *Frame {
	f := &Frame{durationMS: durationMS}
	b.Frames = append(b.Frames, f)
	return f
}

// Build assembles the full file-header-plus-frames byte stream.
func (b *Builder) Build() []byte {
	var body bytes.Buffer
	for _, f := range b.Frames {
		body.Write(f.encode())
	}

	hdr := make([]byte, 128)
	binary.LittleEndian.PutUint32(hdr[0:], uint32(128+body.Len()))
	binary.LittleEndian.PutUint16(hdr[4:], FileMagic)
	binary.LittleEndian.PutUint16(hdr[6:], uint16(len(b.Frames)))
	binary.LittleEndian.PutUint16(hdr[8:], uint16(b.Width))
	binary.LittleEndian.PutUint16(hdr[10:], uint16(b.Height))
	binary.LittleEndian.PutUint16(hdr[12:], b.ColorDepth)
	binary.LittleEndian.PutUint32(hdr[14:], b.Flags)
	hdr[28] = b.TransparentIndex
	binary.LittleEndian.PutUint16(hdr[32:], b.ColorCount)
	hdr[34] = b.PixelWidth
	hdr[35] = b.PixelHeight
	binary.LittleEndian.PutUint16(hdr[36:], uint16(b.GridX))
	binary.LittleEndian.PutUint16(hdr[38:], uint16(b.GridY))
	binary.LittleEndian.PutUint16(hdr[40:], b.GridW)
	binary.LittleEndian.PutUint16(hdr[42:], b.GridH)

	out := make([]byte, 0, 128+body.Len())
	out = append(out, hdr...)
	out = append(out, body.Bytes()...)
	return out
}

// Frame accumulates the chunks of a single frame.
type Frame struct {
	durationMS uint16
	chunks     [][]byte
}

func (f *Frame) encode() []byte {
	var body bytes.Buffer
	for _, c := range f.chunks {
		body.Write(c)
	}

	hdr := make([]byte, 16)
	binary.LittleEndian.PutUint32(hdr[0:], uint32(16+body.Len()))
	binary.LittleEndian.PutUint16(hdr[4:], FrameMagic)
	oldCount := len(f.chunks)
	if oldCount > 0xFFFF {
		oldCount = 0xFFFF
	}
	binary.LittleEndian.PutUint16(hdr[6:], uint16(oldCount))
	binary.LittleEndian.PutUint16(hdr[8:], f.durationMS)
	binary.LittleEndian.PutUint32(hdr[12:], uint32(len(f.chunks)))

	out := make([]byte, 0, 16+body.Len())
	out = append(out, hdr...)
	out = append(out, body.Bytes()...)
	return out
}

func (f *Frame) addChunk(typ uint16, payload []byte) {
	buf := make([]byte, 6+len(payload))
	binary.LittleEndian.PutUint32(buf[0:], uint32(6+len(payload)))
	binary.LittleEndian.PutUint16(buf[4:], typ)
	copy(buf[6:], payload)
	f.chunks = append(f.chunks, buf)
}

func putU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func putI16(buf *bytes.Buffer, v int16) { putU16(buf, uint16(v)) }

func putU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func putI32(buf *bytes.Buffer, v int32) { putU32(buf, uint32(v)) }

func putFixed(buf *bytes.Buffer, v float64) { putI32(buf, int32(v*65536)) }

func putString(buf *bytes.Buffer, s string) {
	putU16(buf, uint16(len(s)))
	buf.WriteString(s)
}

// Layer appends a 0x2004 Layer chunk. kind is 0=image, 1=group, 2=tilemap;
// tilesetID is only written (and only meaningful) when kind == 2.
func (f *Frame) Layer(flags uint16, kind uint16, childLevel uint16, blendMode uint16, opacity uint8, name string, tilesetID uint32) {
	var buf bytes.Buffer
	putU16(&buf, flags)
	putU16(&buf, kind)
	putU16(&buf, childLevel)
	buf.Write(make([]byte, 4))
	putU16(&buf, blendMode)
	buf.WriteByte(opacity)
	buf.Write(make([]byte, 3))
	putString(&buf, name)
	if kind == 2 {
		putU32(&buf, tilesetID)
	}
	f.addChunk(0x2004, buf.Bytes())
}

func celHeader(buf *bytes.Buffer, layerIndex uint16, x, y int16, opacity uint8, celType uint16, zIndex int16) {
	putU16(buf, layerIndex)
	putI16(buf, x)
	putI16(buf, y)
	buf.WriteByte(opacity)
	putU16(buf, celType)
	putI16(buf, zIndex)
	buf.Write(make([]byte, 5))
}

// CelRaw appends a 0x2005 Cel chunk carrying an uncompressed raster.
func (f *Frame) CelRaw(layerIndex uint16, x, y int16, opacity uint8, w, h uint16, pix []byte) {
	var buf bytes.Buffer
	celHeader(&buf, layerIndex, x, y, opacity, 0, 0)
	putU16(&buf, w)
	putU16(&buf, h)
	buf.Write(pix)
	f.addChunk(0x2005, buf.Bytes())
}

// CelLinked appends a 0x2005 Cel chunk that borrows its pixels from
// sourceFrame on the same layer.
func (f *Frame) CelLinked(layerIndex uint16, sourceFrame uint16) {
	var buf bytes.Buffer
	celHeader(&buf, layerIndex, 0, 0, 255, 1, 0)
	putU16(&buf, sourceFrame)
	f.addChunk(0x2005, buf.Bytes())
}

// CelCompressed appends a 0x2005 Cel chunk carrying a ZLIB-compressed
// raster.
func (f *Frame) CelCompressed(layerIndex uint16, x, y int16, opacity uint8, w, h uint16, pix []byte) {
	var buf bytes.Buffer
	celHeader(&buf, layerIndex, x, y, opacity, 2, 0)
	putU16(&buf, w)
	putU16(&buf, h)
	buf.Write(zlibCompress(pix))
	f.addChunk(0x2005, buf.Bytes())
}

// CelTilemap appends a 0x2005 Cel chunk carrying a compressed tile grid.
// tiles holds one raw (pre-mask) cell value per tile position, row-major.
func (f *Frame) CelTilemap(layerIndex uint16, x, y int16, opacity uint8, w, h uint16, bitsPerTile uint16, maskTileID, maskXFlip, maskYFlip, maskDiagonal uint32, tiles []uint32) {
	var buf bytes.Buffer
	celHeader(&buf, layerIndex, x, y, opacity, 3, 0)
	putU16(&buf, w)
	putU16(&buf, h)
	putU16(&buf, bitsPerTile)
	putU32(&buf, maskTileID)
	putU32(&buf, maskXFlip)
	putU32(&buf, maskYFlip)
	putU32(&buf, maskDiagonal)
	buf.Write(make([]byte, 10))

	raw := make([]byte, 0, len(tiles)*int(bitsPerTile)/8)
	for _, t := range tiles {
		switch bitsPerTile {
		case 8:
			raw = append(raw, byte(t))
		case 16:
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], uint16(t))
			raw = append(raw, b[:]...)
		case 32:
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], t)
			raw = append(raw, b[:]...)
		}
	}
	buf.Write(zlibCompress(raw))
	f.addChunk(0x2005, buf.Bytes())
}

// CelExtra appends a 0x2006 Cel-extra chunk refining the cel decoded by
// the immediately preceding Cel chunk.
func (f *Frame) CelExtra(x, y, w, h float64) {
	var buf bytes.Buffer
	putU32(&buf, 1)
	putFixed(&buf, x)
	putFixed(&buf, y)
	putFixed(&buf, w)
	putFixed(&buf, h)
	f.addChunk(0x2006, buf.Bytes())
}

// PaletteEntry is one (index-implicit) entry written by Palette.
type PaletteEntry struct {
	R, G, B, A byte
	Name       string
}

// Palette appends a 0x2019 (new) Palette chunk covering entries
// [first, first+len(entries)).
func (f *Frame) Palette(first uint32, entries []PaletteEntry) {
	var buf bytes.Buffer
	putU32(&buf, uint32(len(entries)))
	putU32(&buf, first)
	putU32(&buf, first+uint32(len(entries))-1)
	buf.Write(make([]byte, 8))
	for _, e := range entries {
		flags := uint16(0)
		if e.Name != "" {
			flags = 1
		}
		putU16(&buf, flags)
		buf.Write([]byte{e.R, e.G, e.B, e.A})
		if flags&1 != 0 {
			putString(&buf, e.Name)
		}
	}
	f.addChunk(0x2019, buf.Bytes())
}

// TagSpec describes one tag written by Tags.
type TagSpec struct {
	From, To  uint16
	Direction byte
	Repeat    uint16
	R, G, B   byte
	Name      string
}

// Tags appends a single 0x2018 Tags chunk.
func (f *Frame) Tags(tags []TagSpec) {
	var buf bytes.Buffer
	putU16(&buf, uint16(len(tags)))
	buf.Write(make([]byte, 8))
	for _, t := range tags {
		putU16(&buf, t.From)
		putU16(&buf, t.To)
		buf.WriteByte(t.Direction)
		putU16(&buf, t.Repeat)
		buf.Write(make([]byte, 6))
		buf.Write([]byte{t.R, t.G, t.B})
		buf.WriteByte(0)
		putString(&buf, t.Name)
	}
	f.addChunk(0x2018, buf.Bytes())
}

// SliceKeySpec describes one key written by Slice.
type SliceKeySpec struct {
	Frame     uint32
	X, Y      int32
	W, H      uint32
	HasCenter bool
	CX, CY    int32
	CW, CH    uint32
	HasPivot  bool
	PX, PY    int32
}

// Slice appends a 0x2022 Slice chunk. Every key must agree on HasCenter
// and HasPivot, since those live in the chunk-level flags field.
func (f *Frame) Slice(name string, keys []SliceKeySpec) {
	var flags uint32
	if len(keys) > 0 {
		if keys[0].HasCenter {
			flags |= 1
		}
		if keys[0].HasPivot {
			flags |= 2
		}
	}

	var buf bytes.Buffer
	putU32(&buf, uint32(len(keys)))
	putU32(&buf, flags)
	buf.Write(make([]byte, 4))
	putString(&buf, name)
	for _, k := range keys {
		putU32(&buf, k.Frame)
		putI32(&buf, k.X)
		putI32(&buf, k.Y)
		putU32(&buf, k.W)
		putU32(&buf, k.H)
		if flags&1 != 0 {
			putI32(&buf, k.CX)
			putI32(&buf, k.CY)
			putU32(&buf, k.CW)
			putU32(&buf, k.CH)
		}
		if flags&2 != 0 {
			putI32(&buf, k.PX)
			putI32(&buf, k.PY)
		}
	}
	f.addChunk(0x2022, buf.Bytes())
}

// Tileset appends a 0x2023 Tileset chunk with an embedded, ZLIB-compressed
// pixel buffer.
func (f *Frame) Tileset(id uint32, tileCount uint32, tileW, tileH uint16, name string, pix []byte) {
	var buf bytes.Buffer
	putU32(&buf, id)
	putU32(&buf, 2) // embedded flag
	putU32(&buf, tileCount)
	putU16(&buf, tileW)
	putU16(&buf, tileH)
	putI16(&buf, 0)
	buf.Write(make([]byte, 14))
	putString(&buf, name)
	compressed := zlibCompress(pix)
	putU32(&buf, uint32(len(compressed)))
	buf.Write(compressed)
	f.addChunk(0x2023, buf.Bytes())
}

// TilesetExternal appends a 0x2023 Tileset chunk whose pixels live in an
// external file instead of an embedded buffer: fileID names the file (see
// ExternalFiles) and tilesetIDInFile picks the tileset inside it.
func (f *Frame) TilesetExternal(id, tileCount uint32, tileW, tileH uint16, name string, fileID, tilesetIDInFile uint32) {
	var buf bytes.Buffer
	putU32(&buf, id)
	putU32(&buf, 1) // external-file flag
	putU32(&buf, tileCount)
	putU16(&buf, tileW)
	putU16(&buf, tileH)
	putI16(&buf, 0)
	buf.Write(make([]byte, 14))
	putString(&buf, name)
	putU32(&buf, fileID)
	putU32(&buf, tilesetIDInFile)
	f.addChunk(0x2023, buf.Bytes())
}

// ColorProfile appends a 0x2007 Color-profile chunk. kind is 0=none,
// 1=sRGB, 2=embedded ICC; icc is written (length-prefixed) only for
// kind 2.
func (f *Frame) ColorProfile(kind, flags uint16, gamma float64, icc []byte) {
	var buf bytes.Buffer
	putU16(&buf, kind)
	putU16(&buf, flags)
	putFixed(&buf, gamma)
	buf.Write(make([]byte, 8))
	if kind == 2 {
		putU32(&buf, uint32(len(icc)))
		buf.Write(icc)
	}
	f.addChunk(0x2007, buf.Bytes())
}

// UserData appends a 0x2020 User-data chunk attaching to whatever chunk
// immediately precedes it in this frame's stream.
func (f *Frame) UserData(text string, hasColor bool, r, g, b, a byte) {
	var flags uint32
	if text != "" {
		flags |= 1
	}
	if hasColor {
		flags |= 2
	}
	var buf bytes.Buffer
	putU32(&buf, flags)
	if flags&1 != 0 {
		putString(&buf, text)
	}
	if flags&2 != 0 {
		buf.Write([]byte{r, g, b, a})
	}
	f.addChunk(0x2020, buf.Bytes())
}

// OldPalette appends a single-packet 0x0004 or 0x0011 Old-palette chunk:
// skip entries, then each of colors as a 6-bit (0..63) RGB triple.
func (f *Frame) OldPalette(chunkType uint16, skip uint8, colors [][3]byte) {
	var buf bytes.Buffer
	putU16(&buf, 1)
	buf.WriteByte(skip)
	count := byte(len(colors))
	if len(colors) == 256 {
		count = 0
	}
	buf.WriteByte(count)
	for _, c := range colors {
		buf.Write(c[:])
	}
	f.addChunk(chunkType, buf.Bytes())
}

// ExternalFiles appends a 0x2008 External-files chunk.
func (f *Frame) ExternalFiles(entries map[uint32]string) {
	var buf bytes.Buffer
	putU32(&buf, uint32(len(entries)))
	buf.Write(make([]byte, 8))
	for id, name := range entries {
		putU32(&buf, id)
		buf.Write(make([]byte, 8))
		putString(&buf, name)
	}
	f.addChunk(0x2008, buf.Bytes())
}

func zlibCompress(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write(data)
	_ = zw.Close()
	return buf.Bytes()
}
