package asefile

import (
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRLERoundTrip checks the codec round-trip property: decoding
// rleEncode(data) reproduces the original bytes exactly.
func TestRLERoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 7, 64, 1000} {
		data := make([]byte, n)
		for i := range data {
			// biased toward repeats, to exercise both RLE branches
			if i > 0 && rng.Intn(3) == 0 {
				data[i] = data[i-1]
			} else {
				data[i] = byte(rng.Intn(256))
			}
		}
		encoded := rleEncode(data)
		decoded, err := rleDecode(encoded, len(data))
		require.NoError(t, err)
		require.Equal(t, data, decoded)
	}
}

func TestRLEDecodeTruncated(t *testing.T) {
	_, err := rleDecode([]byte{0x02, 'a', 'b'}, 10)
	require.Error(t, err)
}

// TestZlibRoundTrip exercises the ZLIB codec with a random buffer.
func TestZlibRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	data := make([]byte, 500)
	rng.Read(data)

	compressed := zlibEncode(data)
	decoded, err := zlibDecode(compressed, 0x2005, 0, len(data))
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func TestZlibDecodeLengthMismatch(t *testing.T) {
	compressed := zlibEncode([]byte{1, 2, 3})
	_, err := zlibDecode(compressed, 0x2005, 0, 10)
	require.Error(t, err)
}

func TestRawDecodeLengthMismatch(t *testing.T) {
	_, err := rawDecode([]byte{1, 2, 3}, 4)
	require.Error(t, err)
}

func TestPixelToRGBAIndexedTransparency(t *testing.T) {
	pal := &Palette{Entries: []PaletteEntry{
		{Color: rgba8(10, 20, 30)},
		{Color: rgba8(40, 50, 60)},
	}}

	// Index 0 on a non-background layer with transparentIndex=0 is
	// fully transparent.
	got := pixelToRGBA(FormatIndexed, []byte{0}, pal, 0, false)
	require.Equal(t, uint8(0), got.A)

	// The same index on a background layer is opaque: a background
	// layer's cels carry no alpha transparency semantics.
	got = pixelToRGBA(FormatIndexed, []byte{0}, pal, 0, true)
	require.Equal(t, uint8(255), got.A)
}

func TestPixelToRGBAGrayscale(t *testing.T) {
	got := pixelToRGBA(FormatGrayscale, []byte{128, 64}, nil, 0, false)
	require.Equal(t, color.NRGBA{R: 128, G: 128, B: 128, A: 64}, got)
}
