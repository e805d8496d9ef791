package asefile

import (
	"io"
	"time"
)

// Decode parses a complete Aseprite document from r. Parsing is fail-fast:
// the first malformed chunk, decompression failure, or model inconsistency
// aborts the whole call and no partial Document is returned.
func Decode(r io.Reader, opts ...ParseOption) (*Document, error) {
	cfg := defaultParseConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var hdrBuf [fileHeaderSize]byte
	if _, err := io.ReadFull(r, hdrBuf[:]); err != nil {
		return nil, errInvalidFile(0, "reading file header: %v", err)
	}
	hdr, err := readFileHeader(hdrBuf[:])
	if err != nil {
		return nil, err
	}
	if int64(hdr.fileSize) > int64(cfg.maxFrameBytes) {
		return nil, errInvalidFile(0, "declared file size %d exceeds configured maximum %d", hdr.fileSize, cfg.maxFrameBytes)
	}

	rest, err := io.ReadAll(io.LimitReader(r, int64(cfg.maxFrameBytes)))
	if err != nil {
		return nil, errInvalidFile(fileHeaderSize, "reading frame data: %v", err)
	}

	doc := &Document{
		PixelFormat:       hdr.pixelFormat(),
		Width:             hdr.width,
		Height:            hdr.height,
		TransparentIndex:  int(hdr.transparentIndex),
		LayerOpacityValid: hdr.flags&fileFlagLayerOpacityValid != 0,
		PixelRatioW:       int(hdr.pixelWidth),
		PixelRatioH:       int(hdr.pixelHeight),
		GridX:             int(hdr.gridX),
		GridY:             int(hdr.gridY),
		GridW:             int(hdr.gridW),
		GridH:             int(hdr.gridH),
		ExternalFiles:     map[int]ExternalFileRef{},
		logger:            cfg.logger,
	}
	if doc.PixelRatioW == 0 {
		doc.PixelRatioW = 1
	}
	if doc.PixelRatioH == 0 {
		doc.PixelRatioH = 1
	}

	rawFrames := make([]rawFrame, hdr.frameCount)
	buf := rest
	offset := int64(fileHeaderSize)
	for i := 0; i < hdr.frameCount; i++ {
		rf, next, err := readRawFrame(buf, offset, i)
		if err != nil {
			return nil, err
		}
		rawFrames[i] = rf
		offset += int64(len(buf) - len(next))
		buf = next
	}

	if err := decodeFrames(doc, rawFrames); err != nil {
		return nil, err
	}

	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// attachKind identifies which decoded value a following User-data chunk
// writes onto: always the most recent layer, cel, slice, tileset or tag
// list seen in the chunk stream.
type attachKind int

const (
	attachNone attachKind = iota
	attachLayer
	attachCel
	attachSlice
	attachTileset
	attachTags
)

type attachState struct {
	kind       attachKind
	layerIdx   int
	cel        *Cel
	sliceIdx   int
	tilesetIdx int
	tagsCursor int
}

type frameBuild struct {
	duration time.Duration
	cels     map[int]*Cel
}

// decodeFrames walks every chunk of every frame, in on-disk order, building
// the document's layers/palette/tags/slices/tilesets/external-files/color
// profile and each frame's cels, threading the "last attachable" user-data
// target across the whole stream.
func decodeFrames(doc *Document, rawFrames []rawFrame) error {
	var layers []Layer
	var tilesets []Tileset
	var tags []Tag
	var slicesList []Slice
	var newPalette, oldPalette []PaletteEntry
	sawNewPalette := false

	builds := make([]frameBuild, len(rawFrames))
	var attach attachState
	var lastCel *Cel

	for fi, rf := range rawFrames {
		builds[fi] = frameBuild{
			duration: time.Duration(rf.durationMS) * time.Millisecond,
			cels:     map[int]*Cel{},
		}

		for _, ch := range rf.chunks {
			cur := newCursor(ch.raw)

			switch ch.typ {
			case 0x2004: // Layer
				l, err := decodeLayerChunk(cur, ch.offset)
				if err != nil {
					return err
				}
				layers = append(layers, l)
				attach = attachState{kind: attachLayer, layerIdx: len(layers) - 1}

			case 0x2005: // Cel
				cel, err := decodeCelChunk(cur, doc.PixelFormat, ch.offset)
				if err != nil {
					return err
				}
				builds[fi].cels[cel.LayerIndex] = cel
				lastCel = cel
				attach = attachState{kind: attachCel, cel: cel}

			case 0x2006: // Cel-extra
				extra, err := decodeCelExtraChunk(cur, ch.offset)
				if err != nil {
					return err
				}
				if lastCel != nil {
					e := extra
					lastCel.Extra = &e
				}

			case 0x2007: // Color-profile
				cp, err := decodeColorProfileChunk(cur, ch.offset)
				if err != nil {
					return err
				}
				doc.ColorProfile = cp

			case 0x2008: // External-files
				refs, err := decodeExternalFilesChunk(cur, ch.offset)
				if err != nil {
					return err
				}
				for id, ref := range refs {
					doc.ExternalFiles[id] = ref
				}

			case 0x2016, 0x2017: // Mask, Path: deprecated/unused, skip

			case 0x2018: // Tags
				newTags, err := decodeTagsChunk(cur, ch.offset)
				if err != nil {
					return err
				}
				start := len(tags)
				tags = append(tags, newTags...)
				attach = attachState{kind: attachTags, tagsCursor: start}

			case 0x2019: // Palette
				grown, err := decodePaletteChunk(cur, newPalette, ch.offset)
				if err != nil {
					return err
				}
				newPalette = grown
				sawNewPalette = true

			case 0x2020: // User-data
				ud, err := decodeUserDataChunk(cur, ch.offset)
				if err != nil {
					return err
				}
				switch attach.kind {
				case attachLayer:
					layers[attach.layerIdx].UserData = ud
				case attachCel:
					if attach.cel != nil {
						attach.cel.UserData = ud
					}
				case attachSlice:
					slicesList[attach.sliceIdx].UserData = ud
				case attachTileset:
					tilesets[attach.tilesetIdx].UserData = ud
				case attachTags:
					if attach.tagsCursor < len(tags) {
						tags[attach.tagsCursor].UserData = ud
						attach.tagsCursor++
					}
				}

			case 0x2022: // Slice
				s, err := decodeSliceChunk(cur, ch.offset)
				if err != nil {
					return err
				}
				slicesList = append(slicesList, s)
				attach = attachState{kind: attachSlice, sliceIdx: len(slicesList) - 1}

			case 0x2023: // Tileset
				ts, err := decodeTilesetChunk(cur, doc.PixelFormat, ch.offset)
				if err != nil {
					return err
				}
				tilesets = append(tilesets, ts)
				attach = attachState{kind: attachTileset, tilesetIdx: len(tilesets) - 1}

			case 0x0004, 0x0011: // Old-palette
				grown, err := decodeOldPaletteChunk(cur, oldPalette, ch.typ, ch.offset)
				if err != nil {
					return err
				}
				oldPalette = grown

			default:
				// unknown chunk type: skip silently
			}
		}
	}

	doc.Layers = layers
	doc.Tilesets = tilesets
	doc.Tags = tags
	doc.Slices = slicesList
	if sawNewPalette {
		doc.Palette.Entries = newPalette
	} else {
		doc.Palette.Entries = oldPalette
	}

	doc.Frames = make([]Frame, len(builds))
	for i, fb := range builds {
		cels := make([]*Cel, len(layers))
		for li, cel := range fb.cels {
			if li >= 0 && li < len(cels) {
				cels[li] = cel
			}
		}
		doc.Frames[i] = Frame{Duration: fb.duration, Cels: cels}
	}

	return nil
}

// validateDocument checks the cross-chunk invariants before a Document is
// handed back to the caller: linked-cel targets exist and terminate
// without cycling, tilemap cels sit on tilemap layers and their tile ids
// stay within their tileset, and tag
// and slice frame ranges stay within the document.
func validateDocument(doc *Document) error {
	for fi, fr := range doc.Frames {
		for li, cel := range fr.Cels {
			if cel == nil || cel.Kind != CelLinked {
				continue
			}
			if _, err := resolveLinkedCel(doc, li, fi, map[int]bool{}); err != nil {
				return err
			}
		}
	}

	for _, l := range doc.Layers {
		if l.Kind == LayerTilemap && l.TilesetID >= len(doc.Tilesets) {
			return errInconsistentModel("layer %q references tileset %d but document has %d", l.Name, l.TilesetID, len(doc.Tilesets))
		}
	}

	for _, fr := range doc.Frames {
		for _, cel := range fr.Cels {
			if cel == nil || cel.Kind != CelTilemap {
				continue
			}
			if cel.LayerIndex < 0 || cel.LayerIndex >= len(doc.Layers) {
				continue
			}
			layer := doc.Layers[cel.LayerIndex]
			if layer.Kind != LayerTilemap {
				return errInconsistentModel("tilemap cel on layer %q, which is not a tilemap layer", layer.Name)
			}
			if layer.TilesetID >= len(doc.Tilesets) {
				continue
			}
			ts := doc.Tilesets[layer.TilesetID]
			for _, raw := range cel.Tiles {
				id := raw & cel.MaskTileID
				if id != 0 && int(id) >= ts.TileCount {
					return errInconsistentModel("tilemap cel on layer %q references tile %d but tileset has %d tiles", layer.Name, id, ts.TileCount)
				}
			}
		}
	}

	for _, t := range doc.Tags {
		if t.FromFrame > t.ToFrame || t.ToFrame >= len(doc.Frames) {
			return errInconsistentModel("tag %q has out-of-range frame range [%d,%d] for %d frames", t.Name, t.FromFrame, t.ToFrame, len(doc.Frames))
		}
	}
	for _, s := range doc.Slices {
		for _, k := range s.Keys {
			if k.FromFrame >= len(doc.Frames) {
				return errInconsistentModel("slice %q has a key at out-of-range frame %d for %d frames", s.Name, k.FromFrame, len(doc.Frames))
			}
		}
	}

	return nil
}

// resolveLinkedCel follows a chain of linked cels to its raw/tilemap
// source, detecting cycles via visited, the same-layer frame set already
// walked in this chain.
func resolveLinkedCel(doc *Document, layerIndex, frameIndex int, visited map[int]bool) (*Cel, error) {
	if visited[frameIndex] {
		return nil, errInconsistentModel("linked-cel cycle on layer %d at frame %d", layerIndex, frameIndex)
	}
	visited[frameIndex] = true

	if frameIndex < 0 || frameIndex >= len(doc.Frames) {
		return nil, errInconsistentModel("linked cel on layer %d references out-of-range frame %d", layerIndex, frameIndex)
	}
	cel := doc.Frames[frameIndex].Cels[layerIndex]
	if cel == nil {
		return nil, errInconsistentModel("linked cel on layer %d references empty frame %d", layerIndex, frameIndex)
	}
	if cel.Kind != CelLinked {
		return cel, nil
	}
	return resolveLinkedCel(doc, layerIndex, cel.LinkedFrame, visited)
}
