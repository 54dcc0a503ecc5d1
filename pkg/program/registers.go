package program

import (
	"strings"

	"nesgen/pkg/isa"
)

// PPU and APU/IO registers. They are constant addresses, so the emitter
// declares them once and refers to them by name.
var (
	PPUCTRL   = isa.MustConstAbs(0x2000, "PPUCTRL")
	PPUMASK   = isa.MustConstAbs(0x2001, "PPUMASK")
	PPUSTATUS = isa.MustConstAbs(0x2002, "PPUSTATUS")
	OAMADDR   = isa.MustConstAbs(0x2003, "OAMADDR")
	OAMDATA   = isa.MustConstAbs(0x2004, "OAMDATA")
	PPUSCROLL = isa.MustConstAbs(0x2005, "PPUSCROLL")
	PPUADDR   = isa.MustConstAbs(0x2006, "PPUADDR")
	PPUDATA   = isa.MustConstAbs(0x2007, "PPUDATA")
	DMCFREQ   = isa.MustConstAbs(0x4010, "DMCFREQ")
	OAMDMA    = isa.MustConstAbs(0x4014, "OAMDMA")
	JOY1      = isa.MustConstAbs(0x4016, "JOY1")
	JOY2      = isa.MustConstAbs(0x4017, "JOY2")
	APUFRAME  = isa.MustConstAbs(0x4017, "APUFRAME")
)

// OAMBuffer is the shadow sprite table the emitter reserves in the OAM
// segment. Its name matches the label the emitter defines there.
var OAMBuffer = isa.MustAbs(0x0200, "OAMBuffer")

// Well-known PPU addresses.
const (
	PaletteAddr   uint16 = 0x3F00
	NametableAddr uint16 = 0x2000
	NametableSize        = 1024
	PaletteSize          = 32
	PageSize             = 256
)

// Button is a controller button bit as read by ReadController, which shifts
// A in first so it lands in bit 7.
type Button uint8

const (
	ButtonRight  Button = 0x01
	ButtonLeft   Button = 0x02
	ButtonDown   Button = 0x04
	ButtonUp     Button = 0x08
	ButtonStart  Button = 0x10
	ButtonSelect Button = 0x20
	ButtonB      Button = 0x40
	ButtonA      Button = 0x80
)

var buttonNames = []struct {
	b    Button
	name string
}{
	{ButtonA, "A"}, {ButtonB, "B"}, {ButtonSelect, "Select"}, {ButtonStart, "Start"},
	{ButtonUp, "Up"}, {ButtonDown, "Down"}, {ButtonLeft, "Left"}, {ButtonRight, "Right"},
}

func (b Button) String() string {
	var parts []string
	for _, bn := range buttonNames {
		if b&bn.b != 0 {
			parts = append(parts, bn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
