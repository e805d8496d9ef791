package asefile

import "encoding/binary"

const (
	fileMagic  = 0xA5E0
	frameMagic = 0xF1FA

	fileHeaderSize  = 128
	frameHeaderSize = 16
)

// fileHeader is the 128-byte header at the start of every .aseprite file.
type fileHeader struct {
	fileSize         uint32
	frameCount       int
	width, height    int
	colorDepth       uint16
	flags            uint32
	transparentIndex uint8
	colorCount       int
	pixelWidth       uint8
	pixelHeight      uint8
	gridX, gridY     int16
	gridW, gridH     uint16
}

const (
	fileFlagLayerOpacityValid = 1
)

func readFileHeader(raw []byte) (fileHeader, error) {
	if len(raw) < fileHeaderSize {
		return fileHeader{}, errInvalidFile(0, "file shorter than the %d-byte header", fileHeaderSize)
	}

	if magic := binary.LittleEndian.Uint16(raw[4:]); magic != fileMagic {
		return fileHeader{}, errInvalidFile(0, "bad magic number 0x%04x", magic)
	}

	h := fileHeader{
		fileSize:         binary.LittleEndian.Uint32(raw[0:]),
		frameCount:       int(binary.LittleEndian.Uint16(raw[6:])),
		width:            int(binary.LittleEndian.Uint16(raw[8:])),
		height:           int(binary.LittleEndian.Uint16(raw[10:])),
		colorDepth:       binary.LittleEndian.Uint16(raw[12:]),
		flags:            binary.LittleEndian.Uint32(raw[14:]),
		transparentIndex: raw[28],
		colorCount:       int(binary.LittleEndian.Uint16(raw[32:])),
		pixelWidth:       raw[34],
		pixelHeight:      raw[35],
		gridX:            int16(binary.LittleEndian.Uint16(raw[36:])),
		gridY:            int16(binary.LittleEndian.Uint16(raw[38:])),
		gridW:            binary.LittleEndian.Uint16(raw[40:]),
		gridH:            binary.LittleEndian.Uint16(raw[42:]),
	}

	if h.colorCount == 0 {
		h.colorCount = 256
	}

	switch h.colorDepth {
	case 8:
	case 16:
	case 32:
	default:
		return fileHeader{}, errInvalidFile(0, "unsupported color depth %d", h.colorDepth)
	}

	return h, nil
}

func (h fileHeader) pixelFormat() PixelFormat {
	switch h.colorDepth {
	case 32:
		return FormatRGBA
	case 16:
		return FormatGrayscale
	default:
		return FormatIndexed
	}
}

// rawFrame is one frame header plus its raw, un-decoded chunk payloads.
type rawFrame struct {
	durationMS uint16
	chunks     []rawChunk
}

type rawChunk struct {
	typ    int
	raw    []byte
	offset int64
}

// readRawFrame parses one frame header and slices out each chunk's payload,
// returning the remainder of buf after this frame. A chunk's declared size
// is always trusted for advancing, so an unrecognized future chunk type is
// skipped cleanly rather than desynchronizing the stream. baseOffset is
// buf's absolute position in the document, used only to make chunk offsets
// in error messages meaningful.
func readRawFrame(buf []byte, baseOffset int64, frameIndex int) (rawFrame, []byte, error) {
	if len(buf) < frameHeaderSize {
		return rawFrame{}, nil, errBadChunk(-1, baseOffset, "frame %d header truncated", frameIndex)
	}

	if magic := binary.LittleEndian.Uint16(buf[4:]); magic != frameMagic {
		return rawFrame{}, nil, errInvalidFile(baseOffset, "bad frame magic number 0x%04x in frame %d", magic, frameIndex)
	}

	oldChunks := binary.LittleEndian.Uint16(buf[6:])
	durationMS := binary.LittleEndian.Uint16(buf[8:])
	newChunks := binary.LittleEndian.Uint32(buf[12:])

	n := int(newChunks)
	if n == 0 {
		n = int(oldChunks)
	}

	rest := buf[frameHeaderSize:]
	pos := baseOffset + frameHeaderSize
	chunks := make([]rawChunk, 0, n)

	for i := 0; i < n; i++ {
		if len(rest) < 6 {
			return rawFrame{}, nil, errBadChunk(-1, pos, "truncated chunk header in frame %d", frameIndex)
		}
		size := int(binary.LittleEndian.Uint32(rest))
		if size < 6 || size > len(rest) {
			return rawFrame{}, nil, errBadChunk(-1, pos, "chunk size %d out of bounds in frame %d", size, frameIndex)
		}
		typ := int(binary.LittleEndian.Uint16(rest[4:]))
		chunks = append(chunks, rawChunk{typ: typ, raw: rest[6:size], offset: pos})
		rest = rest[size:]
		pos += int64(size)
	}

	return rawFrame{durationMS: durationMS, chunks: chunks}, rest, nil
}
