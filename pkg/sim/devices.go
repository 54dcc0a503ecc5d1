package sim

// Device is a memory-mapped register block. Addresses passed in are
// absolute.
type Device interface {
	Read(addr uint16) byte
	Write(addr uint16, v byte)
}

// PPU models the CPU-visible side of the picture unit: the eight registers
// at $2000-$2007 (mirrored up to $3FFF), its 16 KiB address space and OAM.
// Vertical blank is always reported so wait loops terminate.
type PPU struct {
	Ctrl    byte
	Mask    byte
	OAMAddr byte
	VRAM    [0x4000]byte
	OAM     [256]byte

	addr  uint16
	latch bool
	// DataWrites counts writes to PPUDATA.
	DataWrites int
}

// Addr is the current VRAM address.
func (p *PPU) Addr() uint16 { return p.addr }

func (p *PPU) Read(addr uint16) byte {
	switch addr & 7 {
	case 1:
		return p.Mask
	case 2:
		p.latch = false
		return 0x80
	case 4:
		return p.OAM[p.OAMAddr]
	case 7:
		v := p.VRAM[p.addr&0x3FFF]
		p.step()
		return v
	}
	return 0
}

func (p *PPU) Write(addr uint16, v byte) {
	switch addr & 7 {
	case 0:
		p.Ctrl = v
	case 1:
		p.Mask = v
	case 3:
		p.OAMAddr = v
	case 4:
		p.OAM[p.OAMAddr] = v
		p.OAMAddr++
	case 5:
		p.latch = !p.latch
	case 6:
		if !p.latch {
			p.addr = uint16(v&0x3F)<<8 | p.addr&0x00FF
		} else {
			p.addr = p.addr&0xFF00 | uint16(v)
		}
		p.latch = !p.latch
	case 7:
		p.VRAM[p.addr&0x3FFF] = v
		p.DataWrites++
		p.step()
	}
}

func (p *PPU) step() {
	if p.Ctrl&0x04 != 0 {
		p.addr += 32
	} else {
		p.addr++
	}
	p.addr &= 0x3FFF
}

// Controller is a standard pad on $4016. Buttons uses the same bit layout
// as program.Button; the A button is shifted out first.
type Controller struct {
	Buttons byte

	shift  byte
	strobe bool
}

func (c *Controller) Read(uint16) byte {
	if c.strobe {
		return 0x40 | c.Buttons>>7
	}
	bit := c.shift >> 7
	c.shift = c.shift<<1 | 1
	return 0x40 | bit
}

func (c *Controller) Write(_ uint16, v byte) {
	c.strobe = v&1 != 0
	if c.strobe {
		c.shift = c.Buttons
	}
}
