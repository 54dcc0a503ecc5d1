package program_test

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"nesgen/pkg/asm"
	"nesgen/pkg/emitter"
	"nesgen/pkg/isa"
	"nesgen/pkg/program"
	"nesgen/pkg/sim"
)

const stepLimit = 2000000

func newSub(t *testing.T) (*program.Program, *program.Subroutine) {
	t.Helper()
	p := program.New(nil)
	s, err := p.AddSubroutine("test")
	if err != nil {
		t.Fatal(err)
	}
	return p, s
}

// call runs the subroutine "test", which must end in RTS. setup may prepare
// memory and devices first.
func call(t *testing.T, p *program.Program, setup func(*sim.CPU)) *sim.CPU {
	t.Helper()
	img, err := sim.Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c := sim.New(img)
	if setup != nil {
		setup(c)
	}
	if err := c.Call("test", stepLimit); err != nil {
		t.Fatalf("Call: %v", err)
	}
	return c
}

func zpBlock(t *testing.T, p *program.Program, name string, size uint16) isa.ZpAddress {
	t.Helper()
	a, err := p.AllocZpBlock(name, size, false)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func fill(c *sim.CPU, from, to int, v byte) {
	for a := from; a < to; a++ {
		c.Memory[a] = v
	}
}

// checkRange verifies [from,to) holds want and the bytes just outside it
// still hold guard.
func checkRange(t *testing.T, c *sim.CPU, from, to int, want, guard byte) {
	t.Helper()
	for a := from; a < to; a++ {
		if c.Memory[a] != want {
			t.Fatalf("Memory[$%04X] = $%02X; want $%02X", a, c.Memory[a], want)
		}
	}
	if c.Memory[from-1] != guard {
		t.Errorf("Memory[$%04X] = $%02X; want untouched $%02X", from-1, c.Memory[from-1], guard)
	}
	if c.Memory[to] != guard {
		t.Errorf("Memory[$%04X] = $%02X; want untouched $%02X", to, c.Memory[to], guard)
	}
}

func TestClearMemory(t *testing.T) {
	for _, n := range []uint16{1, 10, 255, 256} {
		p, s := newSub(t)
		s.Blocks().ClearMemory(isa.MustAbs(0x0400, "buf"), n).RTS()
		c := call(t, p, func(c *sim.CPU) { fill(c, 0x0300, 0x0600, 0xAA) })
		checkRange(t, c, 0x0400, 0x0400+int(n), 0, 0xAA)
	}
}

func TestClearMemory16(t *testing.T) {
	for _, n := range []uint16{1, 255, 256, 600} {
		p, s := newSub(t)
		ptr := zpBlock(t, p, "ptr", 2)
		cnt := zpBlock(t, p, "cnt", 2)
		s.Blocks().ClearMemory16(isa.MustAbs(0x0400, "buf"), n, ptr, cnt).RTS()
		c := call(t, p, func(c *sim.CPU) { fill(c, 0x0300, 0x0800, 0xAA) })
		checkRange(t, c, 0x0400, 0x0400+int(n), 0, 0xAA)
	}
}

func TestClearPage(t *testing.T) {
	p, s := newSub(t)
	s.Blocks().ClearPage(isa.MustAbs(0x0400, "")).RTS()
	c := call(t, p, func(c *sim.CPU) { fill(c, 0x0300, 0x0600, 0xAA) })
	checkRange(t, c, 0x0400, 0x0500, 0, 0xAA)
}

func TestClearOAMBuffer(t *testing.T) {
	p, s := newSub(t)
	s.Blocks().ClearOAMBuffer(program.OAMBuffer).RTS()
	c := call(t, p, func(c *sim.CPU) { fill(c, 0x0100, 0x0400, 0x11) })
	checkRange(t, c, 0x0200, 0x0300, 0xFF, 0x11)
}

func TestMemset8(t *testing.T) {
	for _, n := range []uint16{1, 2, 255, 256, 257, 1000} {
		p, s := newSub(t)
		ptr := zpBlock(t, p, "ptr", 2)
		cnt := zpBlock(t, p, "cnt", 2)
		s.Blocks().Memset8(isa.MustAbs(0x0301, "buf"), 0x5A, n, ptr, cnt).RTS()
		c := call(t, p, nil)
		checkRange(t, c, 0x0301, 0x0301+int(n), 0x5A, 0)
	}
}

func TestMemset16(t *testing.T) {
	for _, n := range []uint16{1, 127, 128, 129, 300} {
		p, s := newSub(t)
		ptr := zpBlock(t, p, "ptr", 2)
		cnt := zpBlock(t, p, "cnt", 2)
		val := zpBlock(t, p, "val", 2)
		s.Blocks().Memset16(isa.MustAbs(0x0300, "buf"), 0xBEEF, n, ptr, cnt, val).RTS()
		c := call(t, p, func(c *sim.CPU) { fill(c, 0x02F0, 0x0600, 0x77) })
		for i := 0; i < int(n); i++ {
			a := 0x0300 + 2*i
			if c.Memory[a] != 0xEF || c.Memory[a+1] != 0xBE {
				t.Fatalf("n=%d: word %d = $%02X%02X; want $BEEF", n, i, c.Memory[a+1], c.Memory[a])
			}
		}
		if end := 0x0300 + 2*int(n); c.Memory[end] != 0x77 {
			t.Errorf("n=%d: Memory[$%04X] = $%02X; want untouched", n, end, c.Memory[end])
		}
	}
}

func TestMemcpy(t *testing.T) {
	for _, n := range []uint16{1, 200, 256, 300} {
		p, s := newSub(t)
		src := zpBlock(t, p, "src", 2)
		dst := zpBlock(t, p, "dst", 2)
		cnt := zpBlock(t, p, "cnt", 2)
		srcHi, _ := src.Offset(1)
		dstHi, _ := dst.Offset(1)
		b := s.Blocks()
		b.SetZpByte(src, 0x00)
		b.SetZpByte(srcHi, 0x03)
		b.SetZpByte(dst, 0x00)
		b.SetZpByte(dstHi, 0x05)
		b.Memcpy(src, dst, n, cnt).RTS()

		c := call(t, p, func(c *sim.CPU) {
			for i := 0; i < 0x200; i++ {
				c.Memory[0x0300+i] = byte(i*7 + 1)
			}
		})
		for i := 0; i < int(n); i++ {
			if c.Memory[0x0500+i] != byte(i*7+1) {
				t.Fatalf("n=%d: dst[%d] = $%02X; want $%02X", n, i, c.Memory[0x0500+i], byte(i*7+1))
			}
		}
		if c.Memory[0x0500+int(n)] != 0 {
			t.Errorf("n=%d: copied past the end", n)
		}
	}
}

func TestWaitVBlankAndPPUAddr(t *testing.T) {
	p, s := newSub(t)
	s.Blocks().WaitVBlank().
		Blocks().SetPPUAddr(0x23C0).
		RTS()
	c := call(t, p, nil)
	if c.PPU.Addr() != 0x23C0 {
		t.Errorf("PPU address = $%04X; want $23C0", c.PPU.Addr())
	}
}

func TestSetAddrWord(t *testing.T) {
	p, s := newSub(t)
	s.Blocks().SetAddrWord(isa.MustAbs(0x0310, "vec"), 0xC0DE).RTS()
	c := call(t, p, nil)
	if c.Memory[0x0310] != 0xDE || c.Memory[0x0311] != 0xC0 {
		t.Errorf("word = $%02X%02X; want $C0DE", c.Memory[0x0311], c.Memory[0x0310])
	}
}

func TestCopyZpByte(t *testing.T) {
	p, s := newSub(t)
	a := zpBlock(t, p, "a", 1)
	b := zpBlock(t, p, "b", 1)
	s.Blocks().SetZpByte(a, 42).Blocks().CopyZpByte(b, a).RTS()
	c := call(t, p, nil)
	if c.Memory[b.Value()] != 42 {
		t.Errorf("b = %d; want 42", c.Memory[b.Value()])
	}
}

func TestLoadPalette(t *testing.T) {
	p, s := newSub(t)
	pal := isa.NewLabel("palette")
	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(0x0F + i)
	}
	p.AddDataBlock(pal).AddBytes(data, "")
	s.Blocks().LoadPalette(pal, 0x1E).RTS()
	c := call(t, p, nil)
	for i, want := range data {
		if got := c.PPU.VRAM[0x3F00+i]; got != want {
			t.Fatalf("palette[%d] = $%02X; want $%02X", i, got, want)
		}
	}
	if c.PPU.Mask != 0x1E {
		t.Errorf("PPUMASK = $%02X; want $1E", c.PPU.Mask)
	}
}

func TestLoadNametable(t *testing.T) {
	p, s := newSub(t)
	nt := isa.NewLabel("level")
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i) ^ byte(i>>8)
	}
	p.AddDataBlock(nt).AddBytes(data, "")
	ptr := zpBlock(t, p, "ptr", 2)
	s.Blocks().LoadNametable(nt, ptr).RTS()
	c := call(t, p, nil)
	for i, want := range data {
		if got := c.PPU.VRAM[0x2000+i]; got != want {
			t.Fatalf("nametable[%d] = $%02X; want $%02X", i, got, want)
		}
	}
	if c.PPU.DataWrites != 1024 {
		t.Errorf("PPUDATA writes = %d; want 1024", c.PPU.DataWrites)
	}
}

func TestPPUWrites(t *testing.T) {
	tests := []struct {
		name  string
		build func(*program.Program, *program.Subroutine)
		want  int
	}{
		{"fill 0 means 256", func(p *program.Program, s *program.Subroutine) {
			s.Blocks().SetPPUAddr(0x2000).Blocks().PPUFill(0x24, 0)
		}, 256},
		{"fill 3", func(p *program.Program, s *program.Subroutine) {
			s.Blocks().SetPPUAddr(0x2000).Blocks().PPUFill(0x24, 3)
		}, 3},
		{"bytes 5", func(p *program.Program, s *program.Subroutine) {
			p.AddDataBlock(isa.NewLabel("msg")).AddBytes([]byte{0x24, 0x24, 0x24, 0x24, 0x24, 0x99}, "")
			s.Blocks().SetPPUAddr(0x2000).Blocks().PPUWriteBytes(isa.NewLabel("msg"), 5)
		}, 5},
		{"zp pointer 4", func(p *program.Program, s *program.Subroutine) {
			ptr, _ := p.AllocZpBlock("ptr", 2, false)
			hi, _ := ptr.Offset(1)
			for i := 0; i < 4; i++ {
				s.Blocks().SetAbsByte(isa.MustAbs(uint32(0x0300+i), ""), 0x24)
			}
			s.Blocks().SetZpByte(ptr, 0x00).Blocks().SetZpByte(hi, 0x03).
				Blocks().SetPPUAddr(0x2000).
				Blocks().PPUWriteBytesZpPtr(ptr, 4)
		}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, s := newSub(t)
			tt.build(p, s)
			s.RTS()
			c := call(t, p, nil)
			if c.PPU.DataWrites != tt.want {
				t.Errorf("PPUDATA writes = %d; want %d", c.PPU.DataWrites, tt.want)
			}
			for i := 0; i < tt.want; i++ {
				if c.PPU.VRAM[0x2000+i] != 0x24 {
					t.Fatalf("VRAM[$%04X] = $%02X; want $24", 0x2000+i, c.PPU.VRAM[0x2000+i])
				}
			}
		})
	}
}

func TestUploadSprites(t *testing.T) {
	p, s := newSub(t)
	s.Blocks().UploadSprites(program.OAMBuffer).RTS()
	c := call(t, p, func(c *sim.CPU) {
		for i := 0; i < 256; i++ {
			c.Memory[0x0200+i] = byte(255 - i)
		}
	})
	for i := 0; i < 256; i++ {
		if c.PPU.OAM[i] != byte(255-i) {
			t.Fatalf("OAM[%d] = %d; want %d", i, c.PPU.OAM[i], 255-i)
		}
	}
}

func TestReadController(t *testing.T) {
	tests := []struct {
		name     string
		before   program.Button
		held     program.Button
		pressed  program.Button
		released program.Button
	}{
		{"press A and Up", program.ButtonStart, program.ButtonA | program.ButtonUp | program.ButtonStart, program.ButtonA | program.ButtonUp, 0},
		{"release Start", program.ButtonStart | program.ButtonB, program.ButtonB, 0, program.ButtonStart},
		{"held", program.ButtonStart, program.ButtonStart, 0, 0},
		{"nothing", 0, 0, 0, 0},
		{"all", 0, 0xFF, 0xFF, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, s := newSub(t)
			buttons := zpBlock(t, p, "buttons", 1)
			prev := zpBlock(t, p, "prev", 1)
			pressed := zpBlock(t, p, "pressed", 1)
			released := zpBlock(t, p, "released", 1)
			s.Blocks().ReadController(buttons, prev, pressed, released).RTS()
			c := call(t, p, func(c *sim.CPU) {
				c.Memory[buttons.Value()] = byte(tt.before)
				c.Pad.Buttons = byte(tt.held)
			})
			check := func(name string, a isa.ZpAddress, want program.Button) {
				if got := program.Button(c.Memory[a.Value()]); got != want {
					t.Errorf("%s = %s; want %s", name, got, want)
				}
			}
			check("buttons", buttons, tt.held)
			check("prev", prev, tt.before)
			check("pressed", pressed, tt.pressed)
			check("released", released, tt.released)
		})
	}
}

func TestInitPadCallback(t *testing.T) {
	p, s := newSub(t)
	buttons := zpBlock(t, p, "buttons", 1)
	hits := map[program.Button]isa.ZpAddress{}
	s.Blocks().InitPadCallback(buttons, func(s *program.Subroutine, b program.Button) {
		if b == program.ButtonSelect {
			return
		}
		a, err := p.AllocZp("hit_"+b.String(), false)
		if err != nil {
			t.Fatal(err)
		}
		hits[b] = a
		s.INC(isa.Zp(a))
	}).RTS()

	c := call(t, p, func(c *sim.CPU) {
		c.Memory[buttons.Value()] = byte(program.ButtonUp | program.ButtonA | program.ButtonSelect)
	})
	for b, a := range hits {
		want := byte(0)
		if b == program.ButtonUp || b == program.ButtonA {
			want = 1
		}
		if got := c.Memory[a.Value()]; got != want {
			t.Errorf("%s handler ran %d times; want %d", b, got, want)
		}
	}
	if len(hits) != 7 {
		t.Errorf("callback produced code for %d buttons; want 7", len(hits))
	}
}

// Caller code between generated labels may define labels of its own; the
// emitted text must still resolve every branch.
func TestCallbackLabelsAssemble(t *testing.T) {
	p := program.New(nil)
	reset, err := p.InitStandardReset()
	if err != nil {
		t.Fatal(err)
	}
	reset.LabelName("forever").JMPTo("forever")
	buttons := zpBlock(t, p, "buttons", 1)
	n := zpBlock(t, p, "n", 1)
	nmi, _ := p.AddSubroutine("nmi")
	nmi.Blocks().InitPadCallback(buttons, func(s *program.Subroutine, b program.Button) {
		if b == program.ButtonUp {
			s.LabelName("inner").NOP()
		}
	}).
		Blocks().LoopX(3, func(s *program.Subroutine) {
		s.LabelName("body").INC(isa.Zp(n))
	}).
		RTI()
	if err := p.SetNMIVector(nmi); err != nil {
		t.Fatal(err)
	}

	logger, _ := test.NewNullLogger()
	opts := emitter.DefaultOptions()
	opts.Logger = logger
	var out bytes.Buffer
	if _, err := emitter.New(opts).EmitPrg(&out, p); err != nil {
		t.Fatalf("EmitPrg: %v", err)
	}
	if err := asm.Check(out.String()); err != nil {
		t.Errorf("Check: %v\n%s", err, out.String())
	}
}

func TestLoopX(t *testing.T) {
	tests := []struct {
		count uint8
		want  byte
	}{{0, 0}, {1, 1}, {5, 5}, {255, 255}}
	for _, tt := range tests {
		p, s := newSub(t)
		n := zpBlock(t, p, "n", 1)
		s.Blocks().LoopX(tt.count, func(s *program.Subroutine) { s.INC(isa.Zp(n)) }).RTS()
		c := call(t, p, nil)
		if got := c.Memory[n.Value()]; got != tt.want {
			t.Errorf("LoopX(%d) body ran %d times; want %d", tt.count, got, tt.want)
		}
	}
}

func TestRenderingControl(t *testing.T) {
	p, s := newSub(t)
	s.Blocks().EnableRendering(true).
		Blocks().SetPPUMaskBits(0x01, program.MaskShowSpritesLeft).
		Blocks().EnableNMI().
		RTS()
	c := call(t, p, nil)
	if c.PPU.Mask != 0x1B {
		t.Errorf("PPUMASK = $%02X; want $1B", c.PPU.Mask)
	}
	if c.PPU.Ctrl != 0x80 {
		t.Errorf("PPUCTRL = $%02X; want $80", c.PPU.Ctrl)
	}

	p, s = newSub(t)
	s.Blocks().EnableRendering(true).Blocks().EnableRendering(false).RTS()
	if c := call(t, p, nil); c.PPU.Mask != 0 {
		t.Errorf("PPUMASK after disable = $%02X; want 0", c.PPU.Mask)
	}
}

func TestStandardResetRuns(t *testing.T) {
	p := program.New(nil)
	reset, err := p.InitStandardReset()
	if err != nil {
		t.Fatal(err)
	}
	reset.JMPTo("main")
	main, _ := p.AddSubroutine("main")
	main.BRK()

	img, err := sim.Load(p)
	if err != nil {
		t.Fatal(err)
	}
	c := sim.New(img)
	c.PPU.Ctrl, c.PPU.Mask = 0xFF, 0xFF
	if err := c.Start(program.ResetHandlerName); err != nil {
		t.Fatal(err)
	}
	if err := c.Run(1000); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.SP != 0xFF || !c.I || c.D {
		t.Errorf("after reset %s I=%v D=%v; want SP=FF I=true D=false", c, c.I, c.D)
	}
	if c.PPU.Ctrl != 0 || c.PPU.Mask != 0 {
		t.Errorf("PPUCTRL=$%02X PPUMASK=$%02X; want both 0", c.PPU.Ctrl, c.PPU.Mask)
	}
	if c.Memory[0x4017] != 0x40 || c.Memory[0x4010] != 0 {
		t.Errorf("APU frame=$%02X DMC=$%02X; want $40 and $00", c.Memory[0x4017], c.Memory[0x4010])
	}
}
