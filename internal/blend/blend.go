// Package blend implements Aseprite's blend modes over fixed-point,
// premultiplied-by-opacity 8-bit RGBA samples. Every formula in this file
// reproduces the editor's own rounding behavior, not an idealized blend —
// see mulUn8 and mulSigned8 in color.go.
package blend

// Mode enumerates Aseprite's blend modes in on-disk layer-chunk order.
type Mode int

const (
	Normal Mode = iota
	Multiply
	Screen
	Overlay
	Darken
	Lighten
	ColorDodge
	ColorBurn
	HardLight
	SoftLight
	Difference
	Exclusion
	Hue
	Saturation
	Color
	Luminosity
	Addition
	Subtract
	Divide
	numModes
)

// Valid reports whether m is a blend mode this engine knows how to apply.
func (m Mode) Valid() bool {
	return m >= Normal && m < numModes
}

// MulUn8 is the package's rounded 8-bit multiply, exported for callers
// (the compositor's layer-opacity x cel-opacity multiply) that need the
// exact same rounding Aseprite's own blend math uses.
func MulUn8(a, b uint8) uint8 { return mulUn8(a, b) }

// RGBA is a straight (non-premultiplied) 8-bit-per-channel color.
type RGBA [4]uint8

func (c RGBA) r() uint8 { return c[0] }
func (c RGBA) g() uint8 { return c[1] }
func (c RGBA) b() uint8 { return c[2] }
func (c RGBA) a() uint8 { return c[3] }

// channelFunc blends one channel pair of the backdrop and source colors.
// It is composited into a full pixel by applying Normal with
// (f(Bc,Sc), Sa) as the source.
type channelFunc func(b, s uint8) uint8

var channelFuncs = [numModes]channelFunc{
	Multiply:   func(b, s uint8) uint8 { return mulUn8(b, s) },
	Screen:     screenChannel,
	Overlay:    func(b, s uint8) uint8 { return hardLightChannel(s, b) },
	Darken:     minU8,
	Lighten:    maxU8,
	ColorDodge: colorDodgeChannel,
	ColorBurn:  colorBurnChannel,
	HardLight:  hardLightChannel,
	SoftLight:  softLightChannel,
	Difference: func(b, s uint8) uint8 { return clampU8(absI32(int32(b) - int32(s))) },
	Exclusion:  func(b, s uint8) uint8 { return clampU8(int32(b) + int32(s) - 2*int32(mulUn8(b, s))) },
	Addition:   func(b, s uint8) uint8 { return clampU8(int32(b) + int32(s)) },
	Subtract:   func(b, s uint8) uint8 { return clampU8(int32(b) - int32(s)) },
	Divide:     divideChannel,
}

func screenChannel(b, s uint8) uint8 {
	return clampU8(int32(b) + int32(s) - int32(mulUn8(b, s)))
}

func hardLightChannel(b, s uint8) uint8 {
	if s < 128 {
		return mulUn8(b, clampU8(2*int32(s)))
	}
	return screenChannel(b, clampU8(2*int32(s)-255))
}

func colorDodgeChannel(b, s uint8) uint8 {
	if b == 0 {
		return 0
	}
	if s == 255 {
		return 255
	}
	return clampU8(int32(b) * 255 / (255 - int32(s)))
}

func colorBurnChannel(b, s uint8) uint8 {
	if b == 255 {
		return 255
	}
	if s == 0 {
		return 0
	}
	v := 255 - minI32((255-int32(b))*255/int32(s), 255)
	return clampU8(v)
}

func minI32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func divideChannel(b, s uint8) uint8 {
	if b == 0 {
		return 0
	}
	if int32(b) >= int32(s) {
		return 255
	}
	return clampU8(int32(b) * 255 / int32(s))
}

func softLightChannel(b, s uint8) uint8 {
	bf := float64(b) / 255
	sf := float64(s) / 255
	var d float64
	if sf <= 0.5 {
		d = bf - (1-2*sf)*bf*(1-bf)
	} else {
		var g float64
		if bf <= 0.25 {
			g = ((16*bf-12)*bf + 4) * bf
		} else {
			g = sqrtApprox(bf)
		}
		d = bf + (2*sf-1)*(g-bf)
	}
	return clampU8(int32(d*255 + 0.5))
}

func sqrtApprox(v float64) float64 {
	if v <= 0 {
		return 0
	}
	x := v
	for i := 0; i < 8; i++ {
		x = 0.5 * (x + v/x)
	}
	return x
}

func hslModeRGB(mode Mode, b, s RGBA) (uint8, uint8, uint8) {
	cb := toRGBf(b.r(), b.g(), b.b())
	cs := toRGBf(s.r(), s.g(), s.b())
	var out rgbf
	switch mode {
	case Hue:
		out = setLum(setSat(cs, sat(cb)), lum(cb))
	case Saturation:
		out = setLum(setSat(cb, sat(cs)), lum(cb))
	case Color:
		out = setLum(cs, lum(cb))
	case Luminosity:
		out = setLum(cb, lum(cs))
	}
	return out.toU8()
}

// blendChannels computes the raw f(Bc,Sc) triple for mode without
// compositing — the result that Normal then blends in using Sa as the
// source alpha.
func blendChannels(mode Mode, b, s RGBA) RGBA {
	switch mode {
	case Hue, Saturation, Color, Luminosity:
		r, g, bl := hslModeRGB(mode, b, s)
		return RGBA{r, g, bl, s.a()}
	default:
		f := channelFuncs[mode]
		return RGBA{f(b.r(), s.r()), f(b.g(), s.g()), f(b.b(), s.b()), s.a()}
	}
}

// Merge blends two premultiplied-alpha-agnostic colors by linear
// interpolation of both color and alpha, weighted by opacity.
func Merge(b, s RGBA, opacity uint8) RGBA {
	ra := clampU8(int32(b.a()) + mulSigned8(int32(s.a())-int32(b.a()), opacity))
	if ra == 0 {
		return RGBA{0, 0, 0, 0}
	}

	switch {
	case b.a() == 0:
		return RGBA{s.r(), s.g(), s.b(), ra}
	case s.a() == 0:
		return RGBA{b.r(), b.g(), b.b(), ra}
	default:
		mergeCh := func(bc, sc uint8) uint8 {
			return clampU8(int32(bc) + mulSigned8(int32(sc)-int32(bc), opacity))
		}
		return RGBA{mergeCh(b.r(), s.r()), mergeCh(b.g(), s.g()), mergeCh(b.b(), s.b()), ra}
	}
}

// Over is the plain Normal-mode composite: the standard Porter-Duff
// source-over operator in Aseprite's fixed-point arithmetic.
func Over(b, s RGBA, opacity uint8) RGBA {
	if b.a() == 0 {
		return RGBA{s.r(), s.g(), s.b(), mulUn8(s.a(), opacity)}
	}
	if int(s.a())*int(opacity) == 0 {
		return b
	}

	sa := mulUn8(s.a(), opacity)
	ra := clampU8(int32(sa) + int32(mulUn8(b.a(), 255-sa)))
	if ra == 0 {
		return RGBA{0, 0, 0, 0}
	}

	ch := func(bc, sc uint8) uint8 {
		return clampU8(int32(bc) + (int32(sc)-int32(bc))*int32(sa)/int32(ra))
	}
	return RGBA{ch(b.r(), s.r()), ch(b.g(), s.g()), ch(b.b(), s.b()), ra}
}

// Blend applies mode's plain composite, with no "N" adaptation: the mode's
// channel function feeds straight into the source-over operator.
func Blend(mode Mode, b, s RGBA, opacity uint8) RGBA {
	if mode == Normal {
		return Over(b, s, opacity)
	}
	blended := blendChannels(mode, b, s)
	return Over(b, blended, opacity)
}

// BlendN implements the "N" (new) variant: a weighted merge between the
// Normal composite and the blend-mode composite, proportional to the
// backdrop's own alpha. The compositor applies this to every non-Normal
// mode; Normal never needs it (it degenerates to Normal when the backdrop
// is fully transparent).
func BlendN(mode Mode, b, s RGBA, opacity uint8) RGBA {
	if mode == Normal || b.a() == 0 {
		return Over(b, s, opacity)
	}

	normal := Over(b, s, opacity)
	blendedSrc := blendChannels(mode, b, s)
	blended := Over(b, blendedSrc, opacity)

	mid := Merge(normal, blended, b.a())
	srcTotalA := mulUn8(s.a(), opacity)
	compA := mulUn8(b.a(), srcTotalA)
	return Merge(mid, blended, compA)
}
