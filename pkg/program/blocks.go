package program

import (
	"github.com/pkg/errors"

	"nesgen/pkg/isa"
	"nesgen/pkg/memmap"
)

// Blocks appends multi-instruction NES idioms to a subroutine. Each method
// returns the subroutine so calls chain with the plain instruction methods.
// Internal branch targets are local (@-prefixed) labels made unique through
// the program's per-tag counters.
//
// Invalid arguments do not panic; they set the subroutine's sticky error and
// append nothing.
type Blocks struct {
	sub *Subroutine
}

func (b Blocks) label(tag string) isa.Label { return b.sub.uniqueLabel(tag) }

func (b Blocks) fail(err error) *Subroutine { return b.sub.fail(err) }

func (b Blocks) zpOffset(a isa.ZpAddress, n int) isa.ZpAddress {
	o, err := a.Offset(n)
	if err != nil {
		b.sub.fail(err)
		return a
	}
	return o
}

// loopCount splits a 16-bit iteration count into the two bytes a
// DEC lo / BNE / DEC hi / BNE loop consumes. The high byte is bumped when
// the low byte is non-zero, so the loop body runs exactly count times.
func loopCount(count uint16) (lo, hi uint8) {
	lo = uint8(count)
	hi = uint8(count >> 8)
	if lo != 0 {
		hi++
	}
	return lo, hi
}

func pageAligned(a isa.AbsAddress) bool { return a.Lo() == 0 }

// inRange records an error unless n bytes from start stay below $10000.
func (b Blocks) inRange(start isa.AbsAddress, n int) bool {
	if _, err := start.Offset(n - 1); err != nil {
		b.sub.fail(err)
		return false
	}
	return true
}

// SetZpByte stores an immediate byte at a zero-page address. Clobbers A.
func (b Blocks) SetZpByte(addr isa.ZpAddress, v uint8) *Subroutine {
	return b.sub.LDA(isa.Imm(v)).STA(isa.Zp(addr))
}

// SetAbsByte stores an immediate byte at an absolute address. Clobbers A.
func (b Blocks) SetAbsByte(addr isa.AbsAddress, v uint8) *Subroutine {
	return b.sub.LDA(isa.Imm(v)).STA(isa.Abs(addr))
}

// CopyZpByte copies one zero-page byte to another. Clobbers A.
func (b Blocks) CopyZpByte(dst, src isa.ZpAddress) *Subroutine {
	return b.sub.LDA(isa.Zp(src)).STA(isa.Zp(dst))
}

// SetAddrWord writes a 16-bit value to addr. PPUADDR is a write-twice
// register taking the high byte first; any other address gets a little
// endian store to addr and addr+1.
func (b Blocks) SetAddrWord(addr isa.AbsAddress, v uint16) *Subroutine {
	if addr.Equal(PPUADDR) {
		return b.SetAbsByte(addr, uint8(v>>8)).
			LDA(isa.Imm(uint8(v))).STA(isa.Abs(addr))
	}
	next, err := addr.Offset(1)
	if err != nil {
		return b.fail(err)
	}
	return b.SetAbsByte(addr, uint8(v)).
		LDA(isa.Imm(uint8(v >> 8))).STA(isa.Abs(next))
}

// SetPPUAddr resets the PPU address latch and loads addr into PPUADDR.
// Clobbers A.
func (b Blocks) SetPPUAddr(addr uint16) *Subroutine {
	b.sub.LDA(isa.Abs(PPUSTATUS))
	return b.SetAddrWord(PPUADDR, addr)
}

// WaitVBlank spins until the PPU reports vertical blank. Registers are
// preserved; the flags are not.
func (b Blocks) WaitVBlank() *Subroutine {
	l := b.label("@vblank")
	return b.sub.Label(l).
		BIT(isa.Abs(PPUSTATUS)).
		BPL(l)
}

// ClearMemory zeroes length bytes from start using X as the index, so
// length must be 1 to 256. Clobbers A and X.
func (b Blocks) ClearMemory(start isa.AbsAddress, length uint16) *Subroutine {
	if length == 0 || length > 256 {
		return b.fail(errors.Wrapf(memmap.ErrInvalidBlockSize, "clear memory: length %d must be 1..256", length))
	}
	if _, err := start.Offset(int(length) - 1); err != nil {
		return b.fail(err)
	}
	loop := b.label("@clearLoop")
	return b.sub.LDA(isa.Imm(0)).
		TAX().
		Label(loop).
		STA(isa.AbsX(start)).
		INX().
		CPX(isa.Imm(uint8(length))).
		BNE(loop)
}

// ClearMemory16 zeroes length bytes from start through a zero-page pointer.
// ptr and count each need two bytes of scratch zero page. Clobbers A and Y.
func (b Blocks) ClearMemory16(start isa.AbsAddress, length uint16, ptr, count isa.ZpAddress) *Subroutine {
	if length == 0 {
		return b.fail(errors.Wrapf(memmap.ErrInvalidBlockSize, "clear memory: length must be at least 1"))
	}
	if !b.inRange(start, int(length)) {
		return b.sub
	}
	ptrHi := b.zpOffset(ptr, 1)
	countHi := b.zpOffset(count, 1)
	loop := b.label("@clearLoop16_")
	skip := isa.NewLabel(loop.Name() + "_skip")
	decLo := isa.NewLabel(loop.Name() + "_dec_lo")

	b.SetZpByte(ptr, start.Lo())
	b.SetZpByte(ptrHi, start.Hi())
	b.SetZpByte(count, uint8(length))
	b.SetZpByte(countHi, uint8(length>>8))
	return b.sub.LDY(isa.Imm(0)).
		Label(loop).
		LDA(isa.Imm(0)).
		STA(isa.IndY(ptr)).
		INC(isa.Zp(ptr)).
		BNE(skip).
		INC(isa.Zp(ptrHi)).
		Label(skip).
		LDA(isa.Zp(count)).
		BNE(decLo).
		DEC(isa.Zp(countHi)).
		Label(decLo).
		DEC(isa.Zp(count)).
		LDA(isa.Zp(count)).
		ORA(isa.Zp(countHi)).
		BNE(loop)
}

// ClearPage zeroes the 256-byte page starting at start. Clobbers A and X.
func (b Blocks) ClearPage(start isa.AbsAddress) *Subroutine {
	if !pageAligned(start) {
		return b.fail(errors.Wrapf(ErrAlignment, "clear page at $%04X", start.Value()))
	}
	loop := b.label("@clearPage")
	return b.sub.LDA(isa.Imm(0)).
		LDX(isa.Imm(0)).
		Label(loop).
		STA(isa.AbsX(start)).
		INX().
		BNE(loop)
}

// ClearOAMBuffer hides all 64 sprites by writing $FF across the shadow OAM
// page. Clobbers A and X.
func (b Blocks) ClearOAMBuffer(buffer isa.AbsAddress) *Subroutine {
	if !pageAligned(buffer) {
		return b.fail(errors.Wrapf(ErrAlignment, "OAM buffer at $%04X", buffer.Value()))
	}
	loop := b.label("@clearOAM_")
	return b.sub.LDA(isa.Imm(0xFF)).
		LDX(isa.Imm(0)).
		Label(loop).
		STA(isa.AbsX(buffer)).
		INX().
		BNE(loop)
}

// Memset8 fills count bytes from start with value. ptr and counter each
// need two bytes of scratch zero page. Clobbers A and Y.
func (b Blocks) Memset8(start isa.AbsAddress, value uint8, count uint16, ptr, counter isa.ZpAddress) *Subroutine {
	if count == 0 {
		return b.fail(errors.Wrap(memmap.ErrInvalidBlockSize, "memset8: count must be at least 1"))
	}
	if !b.inRange(start, int(count)) {
		return b.sub
	}
	ptrHi := b.zpOffset(ptr, 1)
	counterHi := b.zpOffset(counter, 1)
	lo, hi := loopCount(count)
	loop := b.label("@memset8_")
	next := isa.NewLabel(loop.Name() + "_next")

	b.sub.Comment("memset8")
	b.SetZpByte(ptr, start.Lo())
	b.SetZpByte(ptrHi, start.Hi())
	b.SetZpByte(counter, lo)
	b.SetZpByte(counterHi, hi)
	return b.sub.LDA(isa.Imm(value)).
		LDY(isa.Imm(0)).
		Label(loop).
		STA(isa.IndY(ptr)).
		INC(isa.Zp(ptr)).
		BNE(next).
		INC(isa.Zp(ptrHi)).
		Label(next).
		DEC(isa.Zp(counter)).
		BNE(loop).
		DEC(isa.Zp(counterHi)).
		BNE(loop)
}

// Memset16 fills count little-endian words from start with value. ptr,
// counter and val each need two bytes of scratch zero page. Clobbers A
// and Y.
func (b Blocks) Memset16(start isa.AbsAddress, value uint16, count uint16, ptr, counter, val isa.ZpAddress) *Subroutine {
	if count == 0 {
		return b.fail(errors.Wrap(memmap.ErrInvalidBlockSize, "memset16: count must be at least 1"))
	}
	if !b.inRange(start, 2*int(count)) {
		return b.sub
	}
	ptrHi := b.zpOffset(ptr, 1)
	counterHi := b.zpOffset(counter, 1)
	valHi := b.zpOffset(val, 1)
	lo, hi := loopCount(count)
	loop := b.label("@memset16_")
	loDone := isa.NewLabel(loop.Name() + "_lo")
	hiDone := isa.NewLabel(loop.Name() + "_hi")

	b.sub.Comment("memset16")
	b.SetZpByte(ptr, start.Lo())
	b.SetZpByte(ptrHi, start.Hi())
	b.SetZpByte(counter, lo)
	b.SetZpByte(counterHi, hi)
	b.SetZpByte(val, uint8(value))
	b.SetZpByte(valHi, uint8(value>>8))
	return b.sub.LDY(isa.Imm(0)).
		Label(loop).
		LDA(isa.Zp(val)).
		STA(isa.IndY(ptr)).
		INY().
		BNE(loDone).
		INC(isa.Zp(ptrHi)).
		Label(loDone).
		LDA(isa.Zp(valHi)).
		STA(isa.IndY(ptr)).
		INY().
		BNE(hiDone).
		INC(isa.Zp(ptrHi)).
		Label(hiDone).
		DEC(isa.Zp(counter)).
		BNE(loop).
		DEC(isa.Zp(counterHi)).
		BNE(loop)
}

// Memcpy copies count bytes between the buffers addressed by the src and
// dst zero-page pointers, which the caller must have loaded. Both pointers
// are advanced past the copied pages. counter needs two bytes of scratch
// zero page. Clobbers A and Y.
func (b Blocks) Memcpy(src, dst isa.ZpAddress, count uint16, counter isa.ZpAddress) *Subroutine {
	if count == 0 {
		return b.fail(errors.Wrap(memmap.ErrInvalidBlockSize, "memcpy: count must be at least 1"))
	}
	srcHi := b.zpOffset(src, 1)
	dstHi := b.zpOffset(dst, 1)
	counterHi := b.zpOffset(counter, 1)
	lo, hi := loopCount(count)
	loop := b.label("@memcpy_")
	next := isa.NewLabel(loop.Name() + "_next")

	b.sub.Comment("memcpy")
	b.SetZpByte(counter, lo)
	b.SetZpByte(counterHi, hi)
	return b.sub.LDY(isa.Imm(0)).
		Label(loop).
		LDA(isa.IndY(src)).
		STA(isa.IndY(dst)).
		INY().
		BNE(next).
		INC(isa.Zp(srcHi)).
		INC(isa.Zp(dstHi)).
		Label(next).
		DEC(isa.Zp(counter)).
		BNE(loop).
		DEC(isa.Zp(counterHi)).
		BNE(loop)
}

// LoadPalette copies 32 palette bytes from data to PPU $3F00 and then
// writes mask to PPUMASK. Clobbers A and X.
func (b Blocks) LoadPalette(data isa.Label, mask uint8) *Subroutine {
	loop := b.label("@loadPalLoop")
	b.SetPPUAddr(PaletteAddr)
	return b.sub.LDX(isa.Imm(0)).
		Label(loop).
		LDA(isa.AbsX(data)).
		STA(isa.Abs(PPUDATA)).
		INX().
		CPX(isa.Imm(PaletteSize)).
		BNE(loop).
		LDA(isa.Imm(mask)).
		STA(isa.Abs(PPUMASK))
}

// LoopX runs body count times with X counting down from count to 1.
// A count of 0 emits nothing. body must preserve X. The loop label is a
// normal label so body may define labels of its own; it closes any cheap
// local scope open before the loop.
func (b Blocks) LoopX(count uint8, body func(*Subroutine)) *Subroutine {
	if count == 0 {
		return b.sub
	}
	loop := b.label("loop")
	b.sub.LDX(isa.Imm(count)).Label(loop)
	body(b.sub)
	return b.sub.DEX().BNE(loop)
}

// UploadSprites starts an OAM DMA transfer from the page at oam.
// Clobbers A.
func (b Blocks) UploadSprites(oam isa.AbsAddress) *Subroutine {
	if !pageAligned(oam) {
		return b.fail(errors.Wrapf(ErrAlignment, "OAM DMA source $%04X", oam.Value()))
	}
	b.SetAbsByte(OAMADDR, 0)
	return b.SetAbsByte(OAMDMA, oam.Hi())
}

// ReadController strobes controller 1 and shifts its eight buttons into
// buttons (A in bit 7). prev receives the previous state, pressed the
// buttons that went down and released the buttons that came up since the
// previous read. Clobbers A and X.
func (b Blocks) ReadController(buttons, prev, pressed, released isa.ZpAddress) *Subroutine {
	loop := b.label("@readButtonStates")
	b.sub.Comment("save previous button state")
	b.CopyZpByte(prev, buttons)
	b.sub.Comment("strobe controller")
	b.SetAbsByte(JOY1, 1)
	b.SetAbsByte(JOY1, 0)
	b.sub.Comment("read 8 buttons")
	b.sub.LDX(isa.Imm(8)).
		Label(loop).
		LDA(isa.Abs(JOY1)).
		LSR(isa.Acc()).
		ROL(isa.Zp(buttons)).
		DEX().
		BNE(loop)
	b.sub.Comment("pressed = buttons & ~prev")
	b.sub.LDA(isa.Zp(prev)).
		EOR(isa.Imm(0xFF)).
		AND(isa.Zp(buttons)).
		STA(isa.Zp(pressed))
	b.sub.Comment("released = prev & ~buttons")
	return b.sub.LDA(isa.Zp(buttons)).
		EOR(isa.Imm(0xFF)).
		AND(isa.Zp(prev)).
		STA(isa.Zp(released))
}

// padOrder is the order InitPadCallback tests buttons in.
var padOrder = []struct {
	b   Button
	tag string
}{
	{ButtonUp, "not_up"},
	{ButtonDown, "not_down"},
	{ButtonLeft, "not_left"},
	{ButtonRight, "not_right"},
	{ButtonA, "not_a"},
	{ButtonB, "not_b"},
	{ButtonSelect, "not_select"},
	{ButtonStart, "not_start"},
}

// InitPadCallback emits one test per button against the state byte at
// buttons. For each button, cb appends the code to run while it is held;
// a cb that appends nothing leaves only the test. Clobbers A. The skip
// labels are normal labels, so cb may define labels of its own.
func (b Blocks) InitPadCallback(buttons isa.ZpAddress, cb func(*Subroutine, Button)) *Subroutine {
	for _, p := range padOrder {
		skip := b.label(p.tag)
		b.sub.LDA(isa.Zp(buttons)).
			AND(isa.Imm(uint8(p.b))).
			BEQ(skip)
		cb(b.sub, p.b)
		b.sub.Label(skip)
	}
	return b.sub
}

// PPUWriteBytes copies count bytes from the data at src to PPUDATA. A count
// of 0 copies 256 bytes. Clobbers A and X.
func (b Blocks) PPUWriteBytes(src isa.Label, count uint8) *Subroutine {
	loop := b.label("@ppuWriteBytes_")
	return b.sub.LDX(isa.Imm(0)).
		Label(loop).
		LDA(isa.AbsX(src)).
		STA(isa.Abs(PPUDATA)).
		INX().
		CPX(isa.Imm(count)).
		BNE(loop)
}

// PPUWriteBytesZpPtr copies count bytes from the buffer addressed by ptr to
// PPUDATA. A count of 0 copies 256 bytes. Clobbers A and Y.
func (b Blocks) PPUWriteBytesZpPtr(ptr isa.ZpAddress, count uint8) *Subroutine {
	loop := b.label("@ppuWriteBytesZpPtr_")
	return b.sub.LDY(isa.Imm(0)).
		Label(loop).
		LDA(isa.IndY(ptr)).
		STA(isa.Abs(PPUDATA)).
		INY().
		CPY(isa.Imm(count)).
		BNE(loop)
}

// PPUFill writes value to PPUDATA count times. A count of 0 writes 256
// times. Clobbers A and X.
func (b Blocks) PPUFill(value, count uint8) *Subroutine {
	loop := b.label("@ppuFill_")
	return b.sub.LDA(isa.Imm(value)).
		LDX(isa.Imm(count)).
		Label(loop).
		STA(isa.Abs(PPUDATA)).
		DEX().
		BNE(loop)
}

// LoadNametable copies 1024 bytes (nametable 0 plus its attribute table)
// from the data at src to PPU $2000 through the zero-page pointer ptr.
// Clobbers A, X and Y.
func (b Blocks) LoadNametable(src isa.Label, ptr isa.ZpAddress) *Subroutine {
	ptrHi := b.zpOffset(ptr, 1)
	loop := b.label("@loadNametable_")
	b.SetPPUAddr(NametableAddr)
	return b.sub.LDA(isa.Lo(src)).
		STA(isa.Zp(ptr)).
		LDA(isa.Hi(src)).
		STA(isa.Zp(ptrHi)).
		LDX(isa.Imm(NametableSize / PageSize)).
		LDY(isa.Imm(0)).
		Label(loop).
		LDA(isa.IndY(ptr)).
		STA(isa.Abs(PPUDATA)).
		INY().
		BNE(loop).
		INC(isa.Zp(ptrHi)).
		DEX().
		BNE(loop)
}

// PPUMASK bits used by EnableRendering.
const (
	MaskShowBackgroundLeft = 0x02
	MaskShowSpritesLeft    = 0x04
	MaskShowBackground     = 0x08
	MaskShowSprites        = 0x10
	maskRendering          = MaskShowBackgroundLeft | MaskShowSpritesLeft | MaskShowBackground | MaskShowSprites
)

// EnableRendering turns background and sprite rendering on or off.
// Clobbers A.
func (b Blocks) EnableRendering(enable bool) *Subroutine {
	if enable {
		b.sub.Comment("enable rendering")
		return b.SetAbsByte(PPUMASK, maskRendering)
	}
	b.sub.Comment("disable rendering")
	return b.SetAbsByte(PPUMASK, 0)
}

// SetPPUMaskBits reads PPUMASK, clears the bits in clear, sets the bits in
// set and writes it back. Clobbers A.
func (b Blocks) SetPPUMaskBits(set, clear uint8) *Subroutine {
	return b.sub.LDA(isa.Abs(PPUMASK)).
		AND(isa.Imm(^clear)).
		ORA(isa.Imm(set)).
		STA(isa.Abs(PPUMASK))
}

// EnableNMI turns on the vblank NMI. Clobbers A.
func (b Blocks) EnableNMI() *Subroutine {
	return b.SetAbsByte(PPUCTRL, 0x80)
}
