package asefile

import (
	"image"
	"image/color"
	"time"

	"github.com/alpine-alpaca/asefile/internal/blend"
)

// PixelFormat is the document's color depth, fixed by the file header and
// shared by every cel, tileset and palette entry in the document.
type PixelFormat int

const (
	FormatRGBA PixelFormat = iota
	FormatGrayscale
	FormatIndexed
)

func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA:
		return "rgba"
	case FormatGrayscale:
		return "grayscale"
	case FormatIndexed:
		return "indexed"
	default:
		return "unknown"
	}
}

// BytesPerPixel is 4 for RGBA, 2 for grayscale (value+alpha), 1 for indexed.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatRGBA:
		return 4
	case FormatGrayscale:
		return 2
	case FormatIndexed:
		return 1
	default:
		return 0
	}
}

// BlendMode re-exports the blend engine's mode enumeration so callers never
// need to import the internal package directly.
type BlendMode = blend.Mode

const (
	BlendNormal     = blend.Normal
	BlendMultiply   = blend.Multiply
	BlendScreen     = blend.Screen
	BlendOverlay    = blend.Overlay
	BlendDarken     = blend.Darken
	BlendLighten    = blend.Lighten
	BlendColorDodge = blend.ColorDodge
	BlendColorBurn  = blend.ColorBurn
	BlendHardLight  = blend.HardLight
	BlendSoftLight  = blend.SoftLight
	BlendDifference = blend.Difference
	BlendExclusion  = blend.Exclusion
	BlendHue        = blend.Hue
	BlendSaturation = blend.Saturation
	BlendColor      = blend.Color
	BlendLuminosity = blend.Luminosity
	BlendAddition   = blend.Addition
	BlendSubtract   = blend.Subtract
	BlendDivide     = blend.Divide
)

// LayerKind distinguishes an image layer, a group (folder) layer, or a
// tilemap layer.
type LayerKind int

const (
	LayerImage LayerKind = iota
	LayerGroup
	LayerTilemap
)

// LayerFlags are the bitflags carried on a Layer chunk.
type LayerFlags uint16

const (
	LayerVisible LayerFlags = 1 << iota
	LayerEditable
	LayerLockMovement
	LayerBackground
	LayerPreferLinkedCels
	LayerCollapsed
	LayerReference
)

// Has reports whether every bit in mask is set.
func (f LayerFlags) Has(mask LayerFlags) bool { return f&mask == mask }

// Layer is one entry in the document's flattened layer tree. Layers are
// stored in on-disk (pre-order) traversal order; ChildLevel encodes nesting
// depth, and a layer's parent is the nearest preceding layer one level up
// (see Document.ParentOf).
type Layer struct {
	Name       string
	Kind       LayerKind
	ChildLevel int
	BlendMode  BlendMode
	// Opacity is meaningful only when Document.LayerOpacityValid is true;
	// otherwise treat it as 255.
	Opacity uint8
	Flags   LayerFlags
	// TilesetID indexes Document.Tilesets; valid only when Kind == LayerTilemap.
	TilesetID int
	UserData  UserData
}

// CelKind distinguishes a cel's storage variant.
type CelKind int

const (
	CelRaw CelKind = iota
	CelLinked
	CelTilemap
)

// Cel is a single (layer, frame) pixel contribution.
type Cel struct {
	Kind       CelKind
	LayerIndex int
	X, Y       int
	// Opacity is this cel's own opacity byte, not yet multiplied by the
	// layer's opacity; RenderFrame does that multiply when compositing.
	Opacity uint8
	ZIndex  int16

	// Populated when Kind == CelRaw: a Width x Height raster in the
	// document's pixel format, row-major, BytesPerPixel(format) per pixel.
	Width, Height int
	Pixels        []byte

	// Populated when Kind == CelLinked: the frame (same layer) this cel
	// borrows its pixels from.
	LinkedFrame int

	// Populated when Kind == CelTilemap.
	BitsPerTile                                    int
	MaskTileID, MaskXFlip, MaskYFlip, MaskDiagonal uint32
	// Tiles holds one raw (pre-mask-split) cell value per tile position,
	// row-major, length Width*Height.
	Tiles []uint32

	// Extra is set when a Cel-extra chunk refined this cel's bounds.
	Extra *CelExtraBounds

	UserData UserData
}

// TileAt decodes the tile id and flip bits packed into a raw tile cell per
// the bitmasks carried on the tilemap cel chunk.
func (c *Cel) TileAt(x, y int) (id uint32, xFlip, yFlip, diagonal bool) {
	v := c.Tiles[y*c.Width+x]
	return v & c.MaskTileID, v&c.MaskXFlip != 0, v&c.MaskYFlip != 0, v&c.MaskDiagonal != 0
}

// Frame is one animation frame. Cels is indexed by layer index and is the
// same length as Document.Layers for every frame; a nil entry means that
// layer contributes nothing this frame.
type Frame struct {
	Duration time.Duration
	Cels     []*Cel
}

// Tileset is a flat, vertically-stacked collection of tile rasters: tile i
// occupies rows i*TileHeight .. (i+1)*TileHeight of Pixels. Tile id 0 is
// always the empty (fully transparent) tile and has no corresponding
// pixel data requirement.
type Tileset struct {
	ID                    int
	Name                  string
	TileCount             int
	TileWidth, TileHeight int
	// External is set when the tileset's pixels live in another file;
	// Pixels is nil in that case (reading the referenced file is left to
	// the caller).
	External *TilesetExternalRef
	Pixels   []byte
	bpp      int
	UserData UserData
}

// TileBytes returns the byte range within Pixels holding tile id's raster.
func (t *Tileset) TileBytes(id int) []byte {
	stride := t.TileWidth * t.TileHeight * t.bpp
	off := id * stride
	if off < 0 || off+stride > len(t.Pixels) {
		return nil
	}
	return t.Pixels[off : off+stride]
}

// ExternalFileRef names a file referenced by id from a tileset or palette;
// resolving it is left to the caller.
type ExternalFileRef struct {
	ID       int
	Filename string
}

// TilesetExternalRef locates a tileset stored in another file: FileID
// resolves through Document.ExternalFiles to a filename, and TilesetID is
// the tileset's own id inside that file (one file can hold several).
type TilesetExternalRef struct {
	FileID    int
	TilesetID int
}

// PaletteEntry is one color slot plus its optional editor-assigned name.
type PaletteEntry struct {
	Color color.NRGBA
	Name  string
}

// Palette holds up to 256 color entries.
type Palette struct {
	Entries []PaletteEntry
}

// At returns entry i's color, or fully transparent black if i is out of
// range.
func (p *Palette) At(i int) color.NRGBA {
	if i < 0 || i >= len(p.Entries) {
		return color.NRGBA{}
	}
	return p.Entries[i].Color
}

// TagDirection is a tag's playback direction.
type TagDirection int

const (
	TagForward TagDirection = iota
	TagReverse
	TagPingPong
	TagPingPongReverse
)

// Tag names an inclusive frame range with a playback direction and repeat
// count. The library does not iterate animation itself; Tag is exposed
// verbatim for a caller's own player.
type Tag struct {
	Name               string
	FromFrame, ToFrame int
	Direction          TagDirection
	Repeat             int
	HasColor           bool
	Color              color.NRGBA
	UserData           UserData
}

// SliceKey is one keyframe of a Slice: the bounds (and optional 9-patch
// center / pivot) that apply from FromFrame onward, until the next key.
type SliceKey struct {
	FromFrame int
	Bounds    image.Rectangle
	HasCenter bool
	Center    image.Rectangle
	HasPivot  bool
	Pivot     image.Point
}

// Slice is a named, ordered set of keys. Keys are stored sorted ascending
// by FromFrame.
type Slice struct {
	Name     string
	Keys     []SliceKey
	HasColor bool
	Color    color.NRGBA
	UserData UserData
}

// KeyAt returns the key that applies at frame: the key with the greatest
// FromFrame <= frame.
func (s *Slice) KeyAt(frame int) (SliceKey, bool) {
	best := -1
	for i, k := range s.Keys {
		if k.FromFrame <= frame && (best < 0 || k.FromFrame > s.Keys[best].FromFrame) {
			best = i
		}
	}
	if best < 0 {
		return SliceKey{}, false
	}
	return s.Keys[best], true
}

// UserData is the optional {text, color, properties} record attachable to
// layers, cels, slices, tags and tilesets.
//
// Property maps (Aseprite 1.3's typed key/value extension to user data) are
// stored as their raw encoded bytes rather than deep-parsed: the binary
// format is a recursively-typed variant tree, and callers that need it
// structured can decode PropertiesRaw themselves, the same treatment given
// to ICC color profiles below.
type UserData struct {
	HasText       bool
	Text          string
	HasColor      bool
	Color         color.NRGBA
	HasProperties bool
	PropertiesRaw []byte
}

// ColorProfileKind distinguishes the three profile chunk shapes Aseprite
// can write.
type ColorProfileKind int

const (
	ColorProfileNone ColorProfileKind = iota
	ColorProfileSRGB
	ColorProfileICC
)

// ColorProfile is parsed but never interpreted: ICCData is retained
// verbatim for a caller with its own color-management stack.
type ColorProfile struct {
	Kind    ColorProfileKind
	Flags   uint16
	Gamma   float64
	ICCData []byte
}

// Document is the fully-populated result of Decode. It is immutable from
// the caller's perspective; frame images are synthesized on demand by
// RenderFrame, never cached by the core.
type Document struct {
	PixelFormat       PixelFormat
	Width, Height     int
	TransparentIndex  int
	LayerOpacityValid bool
	PixelRatioW       int
	PixelRatioH       int
	GridX, GridY      int
	GridW, GridH      int

	Layers        []Layer
	Frames        []Frame
	Palette       Palette
	Tilesets      []Tileset
	Tags          []Tag
	Slices        []Slice
	ExternalFiles map[int]ExternalFileRef
	ColorProfile  ColorProfile

	logger diagLogger
}

// FrameCount is the number of frames in the document.
func (d *Document) FrameCount() int { return len(d.Frames) }

// ParentOf returns the index of layerIndex's parent layer by scanning
// backward for the nearest preceding layer one ChildLevel shallower.
// ok is false for a root-level layer.
func (d *Document) ParentOf(layerIndex int) (parent int, ok bool) {
	level := d.Layers[layerIndex].ChildLevel
	if level == 0 {
		return 0, false
	}
	for i := layerIndex - 1; i >= 0; i-- {
		if d.Layers[i].ChildLevel == level-1 {
			return i, true
		}
	}
	return 0, false
}

// TagByName returns the first tag with the given name.
func (d *Document) TagByName(name string) (Tag, bool) {
	for _, t := range d.Tags {
		if t.Name == name {
			return t, true
		}
	}
	return Tag{}, false
}

// SliceAt returns the key of Slices[sliceIndex] that applies at frame.
func (d *Document) SliceAt(sliceIndex, frame int) (SliceKey, bool) {
	if sliceIndex < 0 || sliceIndex >= len(d.Slices) {
		return SliceKey{}, false
	}
	return d.Slices[sliceIndex].KeyAt(frame)
}
