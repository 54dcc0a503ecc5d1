// Package demo builds the sample game: a title nametable, an eight-entry
// palette and a one-sprite player moved with the d-pad.
package demo

import (
	"fmt"

	"github.com/pkg/errors"

	"nesgen/pkg/isa"
	"nesgen/pkg/palette"
	"nesgen/pkg/program"
	"nesgen/pkg/resources"
	"nesgen/pkg/sim"
)

const (
	TitleLabel   = "TitleNam"
	PaletteLabel = "PaletteData"

	StartX     = 120
	StartY     = 100
	PlayerTile = 0x01

	// FrameSteps bounds one simulated NMI handler run.
	FrameSteps = 10000
)

// Palettes are the four background and four sprite palettes.
var Palettes = palette.Set{
	Background: [4]palette.SubPalette{
		{palette.Black, palette.Color(0x2D), palette.PaleBlue, palette.White},
		{palette.Black, palette.Color(0x0C), palette.Color(0x21), palette.Color(0x32)},
		{palette.Black, palette.Color(0x05), palette.Color(0x25), palette.Color(0x25)},
		{palette.Black, palette.Color(0x0B), palette.Color(0x1A), palette.Color(0x29)},
	},
	Sprites: [4]palette.SubPalette{
		palette.Grayscale,
		{palette.Black, palette.BrightYellow, palette.Aqua, palette.DarkRed},
		{palette.Black, palette.BrightGreen, palette.DarkerBlue, palette.DarkRed},
		{palette.Black, palette.BlueViolet, palette.BrightPink, palette.DarkRed},
	},
}

type Options struct {
	// Nametable is the 1024-byte title screen. Without one the nametable
	// is cleared at reset.
	Nametable string
	CHRFile   string
	// CHRImage is a PNG or BMP tile sheet, converted to inline CHR data.
	CHRImage  string
	InlineCHR bool
}

// Demo is the built program with the addresses of its game state.
type Demo struct {
	Program   *program.Program
	Resources *resources.Resources

	PlayerX, PlayerY isa.ZpAddress
	Buttons          isa.ZpAddress
	ButtonsPrev      isa.ZpAddress
	ButtonsPressed   isa.ZpAddress
	ButtonsReleased  isa.ZpAddress
	NamPtr           isa.ZpAddress
}

func Build(opts Options) (*Demo, error) {
	res := resources.New()
	switch {
	case opts.CHRImage != "":
		if err := res.LoadCHRImage(opts.CHRImage); err != nil {
			return nil, err
		}
	case opts.CHRFile != "":
		if err := res.LoadCHR(opts.CHRFile); err != nil {
			return nil, err
		}
		res.SetUseCHRFile(!opts.InlineCHR)
	}
	if opts.Nametable != "" {
		res.AddNametable(TitleLabel, opts.Nametable)
	}

	p := program.New(nil)
	d := &Demo{Program: p, Resources: res}
	if err := d.alloc(); err != nil {
		return nil, err
	}

	pal := p.AddDataBlock(isa.NewLabel(PaletteLabel))
	for i, sp := range Palettes.Background {
		pal.AddBytes(colors(sp), fmt.Sprintf("Background palette %d", i))
	}
	for i, sp := range Palettes.Sprites {
		pal.AddBytes(colors(sp), fmt.Sprintf("Foreground palette %d", i))
	}

	reset, err := p.InitStandardReset()
	if err != nil {
		return nil, err
	}
	reset.Blocks().ClearOAMBuffer(program.OAMBuffer).
		Blocks().LoadPalette(isa.NewLabel(PaletteLabel), 0)
	if opts.Nametable != "" {
		reset.Blocks().LoadNametable(isa.NewLabel(TitleLabel), d.NamPtr)
	} else {
		reset.Comment("clear nametable 0")
		reset.Blocks().SetPPUAddr(program.NametableAddr)
		for i := 0; i < program.NametableSize/program.PageSize; i++ {
			reset.Blocks().PPUFill(0, 0)
		}
	}
	reset.Blocks().EnableRendering(true).
		Blocks().SetZpByte(d.PlayerX, StartX).
		Blocks().SetZpByte(d.PlayerY, StartY).
		Blocks().EnableNMI().
		JMPTo("main")

	nmi, err := p.AddSubroutine("nmi_handler")
	if err != nil {
		return nil, err
	}
	nmi.JSRTo("readInput").
		JSRTo("updatePlayer1").
		JSRTo("drawPlayer").
		Blocks().UploadSprites(program.OAMBuffer).
		RTI()
	if err := p.SetNMIVector(nmi); err != nil {
		return nil, err
	}

	main, err := p.AddSubroutine("main")
	if err != nil {
		return nil, err
	}
	main.LabelName("forever").JMPTo("forever")

	read, err := p.AddSubroutine("readInput")
	if err != nil {
		return nil, err
	}
	read.Blocks().ReadController(d.Buttons, d.ButtonsPrev, d.ButtonsPressed, d.ButtonsReleased).RTS()

	update, err := p.AddSubroutine("updatePlayer1")
	if err != nil {
		return nil, err
	}
	update.Blocks().InitPadCallback(d.Buttons, func(s *program.Subroutine, b program.Button) {
		switch b {
		case program.ButtonUp:
			s.DEC(isa.Zp(d.PlayerY))
		case program.ButtonDown:
			s.INC(isa.Zp(d.PlayerY))
		case program.ButtonLeft:
			s.DEC(isa.Zp(d.PlayerX))
		case program.ButtonRight:
			s.INC(isa.Zp(d.PlayerX))
		}
	}).RTS()

	if err := d.drawPlayer(); err != nil {
		return nil, err
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Demo) alloc() error {
	p := d.Program
	var err error
	for _, a := range []struct {
		dst  *isa.ZpAddress
		name string
		size uint16
	}{
		{&d.PlayerX, "playerX", 1},
		{&d.PlayerY, "playerY", 1},
		{&d.Buttons, "buttons", 1},
		{&d.ButtonsPrev, "buttonsPrev", 1},
		{&d.ButtonsPressed, "buttonsPressed", 1},
		{&d.ButtonsReleased, "buttonsReleased", 1},
		{&d.NamPtr, "namPtr", 2},
	} {
		if *a.dst, err = p.AllocZpBlock(a.name, a.size, true); err != nil {
			return errors.Wrapf(err, "allocate %s", a.name)
		}
	}
	return nil
}

// drawPlayer writes sprite 0 of the OAM shadow buffer from the player
// position.
func (d *Demo) drawPlayer() error {
	s, err := d.Program.AddSubroutine("drawPlayer")
	if err != nil {
		return err
	}
	var oam [4]isa.AbsAddress
	for i := range oam {
		if oam[i], err = program.OAMBuffer.Offset(i); err != nil {
			return err
		}
	}
	s.LDA(isa.Zp(d.PlayerY)).STA(isa.Abs(oam[0])).
		LDA(isa.Imm(PlayerTile)).STA(isa.Abs(oam[1])).
		LDA(isa.Imm(0)).STA(isa.Abs(oam[2])).CommentPrev("palette 0, in front").
		LDA(isa.Zp(d.PlayerX)).STA(isa.Abs(oam[3])).
		RTS()
	return nil
}

func colors(sp palette.SubPalette) []byte {
	b := make([]byte, len(sp))
	for i, c := range sp {
		b[i] = byte(c)
	}
	return b
}

// Frame runs one NMI on cpu with the controller held at buttons.
func (d *Demo) Frame(cpu *sim.CPU, buttons byte) error {
	cpu.Pad.Buttons = buttons
	return cpu.Interrupt("nmi_handler", FrameSteps)
}

// Player reads the player position from cpu's memory.
func (d *Demo) Player(cpu *sim.CPU) (x, y byte) {
	return cpu.Memory[d.PlayerX.Value()], cpu.Memory[d.PlayerY.Value()]
}
