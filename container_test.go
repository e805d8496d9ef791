package asefile

import (
	"bytes"
	"testing"

	"github.com/alpine-alpaca/asefile/internal/testase"
	"github.com/stretchr/testify/require"
)

func TestDecodeBadMagic(t *testing.T) {
	raw := testase.New(4, 4, 32).Build()
	raw[4] = 0x00 // clobber file magic
	_, err := Decode(bytes.NewReader(raw))
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, InvalidFile, pe.Kind)
}

func TestDecodeTruncatedHeader(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{1, 2, 3}))
	require.Error(t, err)
}

func TestDecodeHeaderFields(t *testing.T) {
	b := testase.New(16, 8, 32)
	b.Flags = fileFlagLayerOpacityValid
	b.TransparentIndex = 3
	b.GridW, b.GridH = 8, 8
	b.AddFrame(100)

	doc, err := Decode(bytes.NewReader(b.Build()))
	require.NoError(t, err)
	require.Equal(t, 16, doc.Width)
	require.Equal(t, 8, doc.Height)
	require.Equal(t, FormatRGBA, doc.PixelFormat)
	require.True(t, doc.LayerOpacityValid)
	require.Equal(t, 3, doc.TransparentIndex)
	require.Equal(t, 8, doc.GridW)
	require.Equal(t, 1, doc.FrameCount())
}

func TestDecodeOldChunkCountSentinelPrefersNew(t *testing.T) {
	b := testase.New(2, 2, 32)
	f := b.AddFrame(0)
	f.Layer(uint16(LayerVisible), 0, 0, 0, 255, "bg", 0)
	raw := b.Build()

	// the layer chunk is the frame's only chunk; force old_chunk_count to
	// the documented 0xFFFF sentinel and verify new_chunk_count (1) wins.
	frameHdrOff := fileHeaderSize
	raw[frameHdrOff+6] = 0xFF
	raw[frameHdrOff+7] = 0xFF

	doc, err := Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, doc.Layers, 1)
}

func TestLayerTreeParentOf(t *testing.T) {
	b := testase.New(4, 4, 32)
	f := b.AddFrame(0)
	f.Layer(uint16(LayerVisible), 1, 0, 0, 255, "root group", 0)
	f.Layer(uint16(LayerVisible), 0, 1, 0, 255, "child", 0)
	f.Layer(uint16(LayerVisible), 1, 1, 0, 255, "nested group", 0)
	f.Layer(uint16(LayerVisible), 0, 2, 0, 255, "grandchild", 0)
	f.Layer(uint16(LayerVisible), 0, 0, 0, 255, "sibling root", 0)

	doc, err := Decode(bytes.NewReader(b.Build()))
	require.NoError(t, err)
	require.Len(t, doc.Layers, 5)

	p, ok := doc.ParentOf(0)
	require.False(t, ok)
	p, ok = doc.ParentOf(1)
	require.True(t, ok)
	require.Equal(t, 0, p)
	p, ok = doc.ParentOf(2)
	require.True(t, ok)
	require.Equal(t, 0, p)
	p, ok = doc.ParentOf(3)
	require.True(t, ok)
	require.Equal(t, 2, p)
	_, ok = doc.ParentOf(4)
	require.False(t, ok)
}

func TestUserDataAttachesToLayerThenCel(t *testing.T) {
	b := testase.New(2, 2, 32)
	f := b.AddFrame(0)
	f.Layer(uint16(LayerVisible), 0, 0, 0, 255, "layer", 0)
	f.UserData("layer data", true, 10, 20, 30, 255)
	pix := make([]byte, 2*2*4)
	f.CelRaw(0, 0, 0, 255, 2, 2, pix)
	f.UserData("cel data", false, 0, 0, 0, 0)

	doc, err := Decode(bytes.NewReader(b.Build()))
	require.NoError(t, err)
	require.True(t, doc.Layers[0].UserData.HasText)
	require.Equal(t, "layer data", doc.Layers[0].UserData.Text)
	require.True(t, doc.Layers[0].UserData.HasColor)

	cel := doc.Frames[0].Cels[0]
	require.NotNil(t, cel)
	require.True(t, cel.UserData.HasText)
	require.Equal(t, "cel data", cel.UserData.Text)
}

func TestTagsUserDataSequential(t *testing.T) {
	b := testase.New(2, 2, 32)
	b.AddFrame(0)
	b.AddFrame(0)
	b.AddFrame(0)
	f := b.Frames[0]
	f.Tags([]testase.TagSpec{
		{From: 0, To: 0, Direction: 0, Name: "a"},
		{From: 1, To: 1, Direction: 0, Name: "b"},
	})
	f.UserData("tag a data", true, 0, 0, 0, 0)
	f.UserData("tag b data", true, 0, 0, 0, 0)

	doc, err := Decode(bytes.NewReader(b.Build()))
	require.NoError(t, err)
	require.Len(t, doc.Tags, 2)
	require.Equal(t, "tag a data", doc.Tags[0].UserData.Text)
	require.Equal(t, "tag b data", doc.Tags[1].UserData.Text)
}

func TestOldPaletteFallback(t *testing.T) {
	b := testase.New(2, 2, 8)
	f := b.AddFrame(0)
	// 6-bit max (63) must widen to a full 255.
	f.OldPalette(0x0004, 0, [][3]byte{{63, 0, 0}, {0, 63, 0}})

	doc, err := Decode(bytes.NewReader(b.Build()))
	require.NoError(t, err)
	require.Len(t, doc.Palette.Entries, 2)
	require.Equal(t, uint8(255), doc.Palette.Entries[0].Color.R)
	require.Equal(t, uint8(255), doc.Palette.Entries[1].Color.G)
}

func TestSliceKeyAt(t *testing.T) {
	b := testase.New(4, 4, 32)
	f := b.AddFrame(0)
	b.AddFrame(0)
	b.AddFrame(0)
	f.Slice("hitbox", []testase.SliceKeySpec{
		{Frame: 0, X: 0, Y: 0, W: 2, H: 2},
		{Frame: 2, X: 1, Y: 1, W: 3, H: 3},
	})

	doc, err := Decode(bytes.NewReader(b.Build()))
	require.NoError(t, err)
	require.Len(t, doc.Slices, 1)

	k, ok := doc.SliceAt(0, 0)
	require.True(t, ok)
	require.Equal(t, 2, k.Bounds.Dx())

	k, ok = doc.SliceAt(0, 1)
	require.True(t, ok)
	require.Equal(t, 2, k.Bounds.Dx(), "frame 1 still uses the key from frame 0")

	k, ok = doc.SliceAt(0, 2)
	require.True(t, ok)
	require.Equal(t, 3, k.Bounds.Dx())
}

func TestLinkedCelCycleIsRejected(t *testing.T) {
	b := testase.New(2, 2, 32)
	f0 := b.AddFrame(0)
	f1 := b.AddFrame(0)
	f0.Layer(uint16(LayerVisible), 0, 0, 0, 255, "layer", 0)
	f0.CelLinked(0, 1)
	f1.CelLinked(0, 0)

	_, err := Decode(bytes.NewReader(b.Build()))
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, InconsistentModel, pe.Kind)
}

func TestTilemapOutOfRangeTileIDIsRejected(t *testing.T) {
	b := testase.New(2, 2, 32)
	f := b.AddFrame(0)
	f.Tileset(0, 1, 4, 4, "ts", make([]byte, 4*4*4))
	f.Layer(uint16(LayerVisible), 2, 0, 0, 255, "tiles", 0)
	f.CelTilemap(0, 0, 0, 255, 1, 1, 8, 0xFF, 0, 0, 0, []uint32{5})

	_, err := Decode(bytes.NewReader(b.Build()))
	require.Error(t, err)
}

// TestCelExtraRefinesPrecedingCel: a Cel-extra chunk lands on the cel
// decoded immediately before it, carrying the transform's fixed-point
// bounds.
func TestCelExtraRefinesPrecedingCel(t *testing.T) {
	b := testase.New(2, 2, 32)
	f := b.AddFrame(0)
	f.Layer(uint16(LayerVisible), 0, 0, 0, 255, "layer", 0)
	f.CelRaw(0, 0, 0, 255, 2, 2, make([]byte, 2*2*4))
	f.CelExtra(1.5, 2.25, 4, 4)

	doc, err := Decode(bytes.NewReader(b.Build()))
	require.NoError(t, err)

	cel := doc.Frames[0].Cels[0]
	require.NotNil(t, cel)
	require.NotNil(t, cel.Extra)
	require.Equal(t, 1.5, cel.Extra.PreciseX)
	require.Equal(t, 2.25, cel.Extra.PreciseY)
	require.Equal(t, 4.0, cel.Extra.PreciseW)
	require.Equal(t, 4.0, cel.Extra.PreciseH)
}

func TestExternalFilesChunk(t *testing.T) {
	b := testase.New(2, 2, 32)
	f := b.AddFrame(0)
	f.ExternalFiles(map[uint32]string{
		7: "palette.aseprite",
		9: "tiles.aseprite",
	})

	doc, err := Decode(bytes.NewReader(b.Build()))
	require.NoError(t, err)
	require.Len(t, doc.ExternalFiles, 2)
	require.Equal(t, "palette.aseprite", doc.ExternalFiles[7].Filename)
	require.Equal(t, 7, doc.ExternalFiles[7].ID)
	require.Equal(t, "tiles.aseprite", doc.ExternalFiles[9].Filename)
}

// TestColorProfileICCRetained: embedded ICC bytes survive the parse
// verbatim, un-interpreted, for a caller with its own color management.
func TestColorProfileICCRetained(t *testing.T) {
	icc := []byte{0xde, 0xad, 0xbe, 0xef, 1, 2, 3}
	b := testase.New(2, 2, 32)
	f := b.AddFrame(0)
	f.ColorProfile(2, 1, 2.2, icc)

	doc, err := Decode(bytes.NewReader(b.Build()))
	require.NoError(t, err)
	require.Equal(t, ColorProfileICC, doc.ColorProfile.Kind)
	require.Equal(t, icc, doc.ColorProfile.ICCData)
	require.Equal(t, uint16(1), doc.ColorProfile.Flags)
	require.InDelta(t, 2.2, doc.ColorProfile.Gamma, 1e-4)
}

func TestColorProfileSRGB(t *testing.T) {
	b := testase.New(2, 2, 32)
	f := b.AddFrame(0)
	f.ColorProfile(1, 0, 0, nil)

	doc, err := Decode(bytes.NewReader(b.Build()))
	require.NoError(t, err)
	require.Equal(t, ColorProfileSRGB, doc.ColorProfile.Kind)
	require.Nil(t, doc.ColorProfile.ICCData)
}

// TestTilesetExternalReference: an externally-stored tileset keeps both
// the external file id and the tileset's id inside that file, with no
// embedded pixels to decode.
func TestTilesetExternalReference(t *testing.T) {
	b := testase.New(2, 2, 32)
	f := b.AddFrame(0)
	f.ExternalFiles(map[uint32]string{3: "tiles.aseprite"})
	f.TilesetExternal(0, 8, 16, 16, "terrain", 3, 1)

	doc, err := Decode(bytes.NewReader(b.Build()))
	require.NoError(t, err)
	require.Len(t, doc.Tilesets, 1)

	ts := doc.Tilesets[0]
	require.Equal(t, "terrain", ts.Name)
	require.Equal(t, 8, ts.TileCount)
	require.Nil(t, ts.Pixels)
	require.NotNil(t, ts.External)
	require.Equal(t, 3, ts.External.FileID)
	require.Equal(t, 1, ts.External.TilesetID)
	require.Equal(t, "tiles.aseprite", doc.ExternalFiles[ts.External.FileID].Filename)
}
