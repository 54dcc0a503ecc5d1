// Package palette names the 2C02 PPU colour indices and maps them to RGB.
package palette

import (
	"fmt"
	"image/color"

	"github.com/pkg/errors"
)

// Color is a PPU palette index, $00-$3F.
type Color uint8

const (
	DarkGray     Color = 0x00
	DarkBlue     Color = 0x01
	DarkerBlue   Color = 0x02
	DarkViolet   Color = 0x03
	DarkMagenta  Color = 0x04
	DarkRed      Color = 0x05
	DarkOrange   Color = 0x06
	DarkBrown    Color = 0x07
	DarkOlive    Color = 0x08
	DarkGreen    Color = 0x09
	DarkTeal     Color = 0x0A
	DarkerTeal   Color = 0x0B
	VeryDarkBlue Color = 0x0C
	// AlmostBlack can upset the sync on some TVs; prefer Black.
	AlmostBlack Color = 0x0D
	Black       Color = 0x0F

	MediumGray Color = 0x10
	SkyBlue    Color = 0x11
	BrightBlue Color = 0x12
	BlueViolet Color = 0x13
	Purple     Color = 0x14
	MarioRed   Color = 0x16
	Orange     Color = 0x17
	Gold       Color = 0x18
	Olive      Color = 0x19
	Green      Color = 0x1A
	LimeGreen  Color = 0x1B
	Aqua       Color = 0x1C

	LightGray     Color = 0x20
	VeryLightBlue Color = 0x21
	LightBlue     Color = 0x22
	LightViolet   Color = 0x23
	LightMagenta  Color = 0x24
	HotPink       Color = 0x25
	BrightPink    Color = 0x26
	Salmon        Color = 0x27
	BrightOrange  Color = 0x28
	LuigiGreen    Color = 0x29
	MintGreen     Color = 0x2A
	Cyan          Color = 0x2B
	Turquoise     Color = 0x2C

	White         Color = 0x30
	PaleBlue      Color = 0x31
	PaleLightBlue Color = 0x32
	PaleViolet    Color = 0x33
	PaleMagenta   Color = 0x34
	PalePink      Color = 0x35
	PaleSalmon    Color = 0x36
	PaleOrange    Color = 0x37
	Yellow        Color = 0x38
	BrightYellow  Color = 0x39
	BrightLime    Color = 0x3A
	BrightGreen   Color = 0x3B
	BrightCyan    Color = 0x3C
)

// ErrInvalidColor reports an index above $3F.
var ErrInvalidColor = errors.New("palette index out of range")

var names = map[Color]string{
	DarkGray: "DarkGray", DarkBlue: "DarkBlue", DarkerBlue: "DarkerBlue", DarkViolet: "DarkViolet",
	DarkMagenta: "DarkMagenta", DarkRed: "DarkRed", DarkOrange: "DarkOrange", DarkBrown: "DarkBrown",
	DarkOlive: "DarkOlive", DarkGreen: "DarkGreen", DarkTeal: "DarkTeal", DarkerTeal: "DarkerTeal",
	VeryDarkBlue: "VeryDarkBlue", AlmostBlack: "AlmostBlack", Black: "Black",
	MediumGray: "MediumGray", SkyBlue: "SkyBlue", BrightBlue: "BrightBlue", BlueViolet: "BlueViolet",
	Purple: "Purple", MarioRed: "MarioRed", Orange: "Orange", Gold: "Gold", Olive: "Olive",
	Green: "Green", LimeGreen: "LimeGreen", Aqua: "Aqua",
	LightGray: "LightGray", VeryLightBlue: "VeryLightBlue", LightBlue: "LightBlue",
	LightViolet: "LightViolet", LightMagenta: "LightMagenta", HotPink: "HotPink",
	BrightPink: "BrightPink", Salmon: "Salmon", BrightOrange: "BrightOrange",
	LuigiGreen: "LuigiGreen", MintGreen: "MintGreen", Cyan: "Cyan", Turquoise: "Turquoise",
	White: "White", PaleBlue: "PaleBlue", PaleLightBlue: "PaleLightBlue", PaleViolet: "PaleViolet",
	PaleMagenta: "PaleMagenta", PalePink: "PalePink", PaleSalmon: "PaleSalmon",
	PaleOrange: "PaleOrange", Yellow: "Yellow", BrightYellow: "BrightYellow",
	BrightLime: "BrightLime", BrightGreen: "BrightGreen", BrightCyan: "BrightCyan",
}

func (c Color) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("$%02X", uint8(c))
}

func (c Color) Valid() bool { return c <= 0x3F }

// rgb is the usual NTSC rendering of the 64 indices.
var rgb = [64]uint32{
	0x7C7C7C, 0x0000FC, 0x0000BC, 0x4428BC, 0x940084, 0xA80020, 0xA81000, 0x881400,
	0x503000, 0x007800, 0x006800, 0x005800, 0x004058, 0x000000, 0x000000, 0x000000,
	0xBCBCBC, 0x0078F8, 0x0058F8, 0x6844FC, 0xD800CC, 0xE40058, 0xF83800, 0xE45C10,
	0xAC7C00, 0x00B800, 0x00A800, 0x00A844, 0x008888, 0x000000, 0x000000, 0x000000,
	0xF8F8F8, 0x3CBCFC, 0x6888FC, 0x9878F8, 0xF878F8, 0xF85898, 0xF87858, 0xFCA044,
	0xF8B800, 0xB8F818, 0x58D854, 0x58F898, 0x00E8D8, 0x787878, 0x000000, 0x000000,
	0xFCFCFC, 0xA4E4FC, 0xB8B8F8, 0xD8B8F8, 0xF8B8F8, 0xF8A4C0, 0xF0D0B0, 0xFCE0A8,
	0xF8D878, 0xD8F878, 0xB8F8B8, 0xB8F8D8, 0x00FCFC, 0xF8D8F8, 0x000000, 0x000000,
}

// RGBA returns the display colour of c. Out of range indices wrap.
func (c Color) RGBA() color.RGBA {
	v := rgb[c&0x3F]
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
}

// SubPalette is four colour indices; entry 0 is the shared backdrop.
type SubPalette [4]Color

// Model returns a colour.Palette for rendering 2-bit tile pixels with sp.
func (sp SubPalette) Model() color.Palette {
	out := make(color.Palette, len(sp))
	for i, c := range sp {
		out[i] = c.RGBA()
	}
	return out
}

// Set is the 32-byte palette RAM image: four background sub-palettes then
// four sprite sub-palettes.
type Set struct {
	Background [4]SubPalette
	Sprites    [4]SubPalette
}

// Bytes returns s in PPU $3F00 order.
func (s Set) Bytes() []byte {
	out := make([]byte, 0, 32)
	for _, group := range [][4]SubPalette{s.Background, s.Sprites} {
		for _, sp := range group {
			for _, c := range sp {
				out = append(out, byte(c))
			}
		}
	}
	return out
}

// FromBytes parses a 32-byte palette RAM image.
func FromBytes(b []byte) (Set, error) {
	var s Set
	if len(b) != 32 {
		return s, errors.Errorf("palette data is %d bytes, want 32", len(b))
	}
	for i, v := range b {
		c := Color(v)
		if !c.Valid() {
			return s, errors.Wrapf(ErrInvalidColor, "entry %d = $%02X", i, v)
		}
		group := &s.Background
		if i >= 16 {
			group = &s.Sprites
		}
		group[(i%16)/4][i%4] = c
	}
	return s, nil
}

// Grayscale is the sub-palette used when no colours are given.
var Grayscale = SubPalette{Black, DarkGray, MediumGray, White}
