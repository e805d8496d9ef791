package asefile

import (
	"bytes"
	"testing"
	"time"

	"github.com/alpine-alpaca/asefile/internal/blend"
	"github.com/alpine-alpaca/asefile/internal/testase"
	"github.com/stretchr/testify/require"
)

// Aseprite's tilemap cel bitmasks as the editor writes them.
const (
	tileIDMask   = 0x1fffffff
	tileXFlipBit = 0x80000000
	tileYFlipBit = 0x40000000
	tileDiagBit  = 0x20000000
)

func decodeBuilt(t *testing.T, b *testase.Builder) *Document {
	t.Helper()
	doc, err := Decode(bytes.NewReader(b.Build()))
	require.NoError(t, err)
	return doc
}

// TestRenderSingleLayerBitIdentical: a one-layer, one-frame document at
// full opacity renders a buffer bit-identical to the cel's own raster
// after decompression.
func TestRenderSingleLayerBitIdentical(t *testing.T) {
	pix := []byte{
		1, 2, 3, 255, 4, 5, 6, 255,
		7, 8, 9, 128, 10, 11, 12, 0,
	}
	b := testase.New(2, 2, 32)
	f := b.AddFrame(100)
	f.Layer(uint16(LayerVisible), 0, 0, 0, 255, "only", 0)
	f.CelCompressed(0, 0, 0, 255, 2, 2, pix)

	doc := decodeBuilt(t, b)
	img, err := doc.RenderFrame(0)
	require.NoError(t, err)
	require.Equal(t, 2, img.Width)
	require.Equal(t, 2, img.Height)
	require.Equal(t, pix, img.Pix)
}

// TestRenderTwoLayerNormalOpacity checks the compositing arithmetic for a
// half-opacity layer over an opaque background: every channel must equal
// Bc + (Sc-Bc)*Sa'/Ra with Sa' = mulUn8(Sa, opacity).
func TestRenderTwoLayerNormalOpacity(t *testing.T) {
	bg := []byte{0, 205, 249, 255}
	top := []byte{237, 118, 20, 255}

	b := testase.New(1, 1, 32)
	b.Flags = fileFlagLayerOpacityValid
	f := b.AddFrame(0)
	f.Layer(uint16(LayerVisible|LayerBackground), 0, 0, 0, 255, "bg", 0)
	f.Layer(uint16(LayerVisible), 0, 0, 0, 128, "top", 0)
	f.CelRaw(0, 0, 0, 255, 1, 1, bg)
	f.CelRaw(1, 0, 0, 255, 1, 1, top)

	doc := decodeBuilt(t, b)
	img, err := doc.RenderFrame(0)
	require.NoError(t, err)

	sa := blend.MulUn8(255, 128)
	ra := uint8(255) // opaque backdrop stays opaque
	ch := func(bc, sc byte) byte {
		return byte(int(bc) + (int(sc)-int(bc))*int(sa)/int(ra))
	}
	want := []byte{ch(bg[0], top[0]), ch(bg[1], top[1]), ch(bg[2], top[2]), 255}
	require.Equal(t, want, img.Pix)
}

// TestRenderOpacityMultiplicative: layer opacity and cel opacity combine
// through the rounded 8-bit multiply before reaching the blender.
func TestRenderOpacityMultiplicative(t *testing.T) {
	b := testase.New(1, 1, 32)
	b.Flags = fileFlagLayerOpacityValid
	f := b.AddFrame(0)
	f.Layer(uint16(LayerVisible), 0, 0, 0, 128, "half", 0)
	f.CelRaw(0, 0, 0, 128, 1, 1, []byte{50, 60, 70, 255})

	doc := decodeBuilt(t, b)
	img, err := doc.RenderFrame(0)
	require.NoError(t, err)

	wantA := blend.MulUn8(255, blend.MulUn8(128, 128))
	require.Equal(t, []byte{50, 60, 70, wantA}, img.Pix)
}

// TestRenderLayerOpacityIgnoredWithoutHeaderFlag: when the header's
// valid-opacity flag is unset, a layer's opacity byte is treated as 255.
func TestRenderLayerOpacityIgnoredWithoutHeaderFlag(t *testing.T) {
	b := testase.New(1, 1, 32)
	f := b.AddFrame(0)
	f.Layer(uint16(LayerVisible), 0, 0, 0, 10, "dim", 0)
	f.CelRaw(0, 0, 0, 255, 1, 1, []byte{50, 60, 70, 255})

	doc := decodeBuilt(t, b)
	img, err := doc.RenderFrame(0)
	require.NoError(t, err)
	require.Equal(t, []byte{50, 60, 70, 255}, img.Pix)
}

func TestRenderSkipsHiddenGroupAndReferenceLayers(t *testing.T) {
	red := []byte{255, 0, 0, 255}
	b := testase.New(1, 1, 32)
	f := b.AddFrame(0)
	f.Layer(0, 0, 0, 0, 255, "hidden", 0)
	f.Layer(uint16(LayerVisible), 1, 0, 0, 255, "group", 0)
	f.Layer(uint16(LayerVisible|LayerReference), 0, 0, 0, 255, "ref", 0)
	f.CelRaw(0, 0, 0, 255, 1, 1, red)
	f.CelRaw(2, 0, 0, 255, 1, 1, red)

	doc := decodeBuilt(t, b)
	img, err := doc.RenderFrame(0)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 0}, img.Pix)
}

// TestRenderCelClippedToCanvas: a cel positioned partly off-canvas
// contributes only the intersection of its bounds with the canvas.
func TestRenderCelClippedToCanvas(t *testing.T) {
	pix := []byte{
		1, 1, 1, 255, 2, 2, 2, 255,
		3, 3, 3, 255, 4, 4, 4, 255,
	}
	b := testase.New(2, 2, 32)
	f := b.AddFrame(0)
	f.Layer(uint16(LayerVisible), 0, 0, 0, 255, "offset", 0)
	f.CelRaw(0, -1, -1, 255, 2, 2, pix)

	doc := decodeBuilt(t, b)
	img, err := doc.RenderFrame(0)
	require.NoError(t, err)

	// Only the cel's bottom-right pixel lands on the canvas, at (0,0).
	want := []byte{
		4, 4, 4, 255, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	require.Equal(t, want, img.Pix)
}

// TestRenderTilemapExpansion: a 2x2 grid with tile ids [0,1,1,0] over an
// 8x8 tileset expands to a 16x16 raster with only the anti-diagonal tiles
// filled from tile 1.
func TestRenderTilemapExpansion(t *testing.T) {
	const tw, th = 8, 8
	tilePix := make([]byte, 2*tw*th*4)
	// tile 0 stays fully transparent; tile 1 is solid red
	for i := tw * th * 4; i < len(tilePix); i += 4 {
		tilePix[i], tilePix[i+3] = 255, 255
	}

	b := testase.New(16, 16, 32)
	f := b.AddFrame(0)
	f.Tileset(0, 2, tw, th, "terrain", tilePix)
	f.Layer(uint16(LayerVisible), 2, 0, 0, 255, "tiles", 0)
	f.CelTilemap(0, 0, 0, 255, 2, 2, 32,
		tileIDMask, tileXFlipBit, tileYFlipBit, tileDiagBit,
		[]uint32{0, 1, 1, 0})

	doc := decodeBuilt(t, b)
	img, err := doc.RenderFrame(0)
	require.NoError(t, err)

	filled := func(x, y int) bool {
		i := (y*16 + x) * 4
		return img.Pix[i+3] != 0
	}
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			inTopRight := x >= tw && y < th
			inBottomLeft := x < tw && y >= th
			require.Equal(t, inTopRight || inBottomLeft, filled(x, y),
				"pixel (%d,%d)", x, y)
		}
	}
}

// TestRenderTilemapEmptyTileIgnoresFlipBits: tile id 0 contributes nothing
// even with every flip bit set on its cell.
func TestRenderTilemapEmptyTileIgnoresFlipBits(t *testing.T) {
	const tw, th = 4, 4
	tilePix := make([]byte, 2*tw*th*4)
	for i := tw * th * 4; i < len(tilePix); i += 4 {
		tilePix[i+1], tilePix[i+3] = 255, 255
	}

	b := testase.New(4, 4, 32)
	f := b.AddFrame(0)
	f.Tileset(0, 2, tw, th, "ts", tilePix)
	f.Layer(uint16(LayerVisible), 2, 0, 0, 255, "tiles", 0)
	f.CelTilemap(0, 0, 0, 255, 1, 1, 32,
		tileIDMask, tileXFlipBit, tileYFlipBit, tileDiagBit,
		[]uint32{tileXFlipBit | tileYFlipBit | tileDiagBit})

	doc := decodeBuilt(t, b)
	img, err := doc.RenderFrame(0)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 4*4*4), img.Pix)
}

func TestRenderTilemapFlips(t *testing.T) {
	const tw, th = 2, 2
	// tile 1: only its top-left pixel is set
	tilePix := make([]byte, 2*tw*th*4)
	base := tw * th * 4
	tilePix[base], tilePix[base+3] = 255, 255

	render := func(cell uint32) *RGBAImage {
		b := testase.New(2, 2, 32)
		f := b.AddFrame(0)
		f.Tileset(0, 2, tw, th, "ts", tilePix)
		f.Layer(uint16(LayerVisible), 2, 0, 0, 255, "tiles", 0)
		f.CelTilemap(0, 0, 0, 255, 1, 1, 32,
			tileIDMask, tileXFlipBit, tileYFlipBit, tileDiagBit,
			[]uint32{cell})
		doc := decodeBuilt(t, b)
		img, err := doc.RenderFrame(0)
		require.NoError(t, err)
		return img
	}

	alphaAt := func(img *RGBAImage, x, y int) byte {
		return img.Pix[(y*2+x)*4+3]
	}

	require.Equal(t, byte(255), alphaAt(render(1), 0, 0))
	require.Equal(t, byte(255), alphaAt(render(1|tileXFlipBit), 1, 0))
	require.Equal(t, byte(255), alphaAt(render(1|tileYFlipBit), 0, 1))
	require.Equal(t, byte(255), alphaAt(render(1|tileXFlipBit|tileYFlipBit), 1, 1))
}

// TestRenderLinkedCelChain: a chain of linked cels three frames long
// renders the source cel's pixels at every frame.
func TestRenderLinkedCelChain(t *testing.T) {
	pix := []byte{9, 8, 7, 255}
	b := testase.New(1, 1, 32)
	f0 := b.AddFrame(0)
	f1 := b.AddFrame(0)
	f2 := b.AddFrame(0)
	f0.Layer(uint16(LayerVisible), 0, 0, 0, 255, "layer", 0)
	f0.CelRaw(0, 0, 0, 255, 1, 1, pix)
	f1.CelLinked(0, 0)
	f2.CelLinked(0, 1)

	doc := decodeBuilt(t, b)
	want, err := doc.RenderFrame(0)
	require.NoError(t, err)
	require.Equal(t, pix, want.Pix)

	for frame := 1; frame < 3; frame++ {
		got, err := doc.RenderFrame(frame)
		require.NoError(t, err)
		require.Equal(t, want.Pix, got.Pix, "frame %d", frame)
	}
}

func TestRenderIndexedDocument(t *testing.T) {
	b := testase.New(2, 1, 8)
	f := b.AddFrame(0)
	f.Palette(0, []testase.PaletteEntry{
		{R: 1, G: 2, B: 3, A: 255},
		{R: 200, G: 100, B: 50, A: 255},
	})
	f.Layer(uint16(LayerVisible), 0, 0, 0, 255, "sprite", 0)
	f.CelRaw(0, 0, 0, 255, 2, 1, []byte{1, 0})

	doc := decodeBuilt(t, b)
	img, err := doc.RenderFrame(0)
	require.NoError(t, err)
	require.Equal(t, []byte{200, 100, 50, 255, 0, 0, 0, 0}, img.Pix)
}

func TestRenderGrayscaleDocument(t *testing.T) {
	b := testase.New(2, 1, 16)
	f := b.AddFrame(0)
	f.Layer(uint16(LayerVisible), 0, 0, 0, 255, "gray", 0)
	f.CelRaw(0, 0, 0, 255, 2, 1, []byte{128, 255, 33, 0})

	doc := decodeBuilt(t, b)
	img, err := doc.RenderFrame(0)
	require.NoError(t, err)
	require.Equal(t, []byte{128, 128, 128, 255, 33, 33, 33, 0}, img.Pix)
}

// TestCelImageSkipsCompositing: CelImage hands back the cel's own raster
// without layer/cel opacity applied, resolving linked cels first.
func TestCelImageSkipsCompositing(t *testing.T) {
	pix := []byte{40, 50, 60, 200}
	b := testase.New(1, 1, 32)
	b.Flags = fileFlagLayerOpacityValid
	f0 := b.AddFrame(0)
	f1 := b.AddFrame(0)
	f0.Layer(uint16(LayerVisible), 0, 0, 0, 30, "faint", 0)
	f0.CelRaw(0, 0, 0, 40, 1, 1, pix)
	f1.CelLinked(0, 0)

	doc := decodeBuilt(t, b)
	for frame := 0; frame < 2; frame++ {
		img, ok, err := doc.CelImage(0, frame)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, pix, img.Pix, "frame %d", frame)
	}
}

func TestCelImageEmptyFrame(t *testing.T) {
	b := testase.New(1, 1, 32)
	f := b.AddFrame(0)
	b.AddFrame(0)
	f.Layer(uint16(LayerVisible), 0, 0, 0, 255, "layer", 0)
	f.CelRaw(0, 0, 0, 255, 1, 1, []byte{1, 2, 3, 4})

	doc := decodeBuilt(t, b)
	_, ok, err := doc.CelImage(0, 1)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestTagExposedVerbatim: tags are surfaced untouched; the library never
// iterates the animation itself.
func TestTagExposedVerbatim(t *testing.T) {
	b := testase.New(1, 1, 32)
	f := b.AddFrame(10)
	for i := 0; i < 4; i++ {
		b.AddFrame(20)
	}
	f.Tags([]testase.TagSpec{
		{From: 2, To: 4, Direction: 2, Repeat: 3, R: 255, Name: "walk"},
	})

	doc := decodeBuilt(t, b)
	tag, ok := doc.TagByName("walk")
	require.True(t, ok)
	require.Equal(t, 2, tag.FromFrame)
	require.Equal(t, 4, tag.ToFrame)
	require.Equal(t, TagPingPong, tag.Direction)
	require.Equal(t, 3, tag.Repeat)

	require.Equal(t, 10*time.Millisecond, doc.Frames[0].Duration)
	require.Equal(t, 20*time.Millisecond, doc.Frames[1].Duration)
}

func TestRenderFrameOutOfRange(t *testing.T) {
	b := testase.New(1, 1, 32)
	b.AddFrame(0)
	doc := decodeBuilt(t, b)
	_, err := doc.RenderFrame(1)
	require.Error(t, err)
}
