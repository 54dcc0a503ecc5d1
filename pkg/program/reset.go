package program

import "nesgen/pkg/isa"

// InitStandardReset adds the conventional NES power-on sequence as a
// subroutine named reset_handler and makes it the reset vector: interrupts
// off, decimal mode off, APU frame IRQ and DMC IRQ off, stack at $01FF, PPU
// off, then two vblank waits while the PPU warms up.
//
// The handler does not return. Append the jump into the game's main loop to
// the returned subroutine.
func (p *Program) InitStandardReset() (*Subroutine, error) {
	s, err := p.AddSubroutine(ResetHandlerName)
	if err != nil {
		return nil, err
	}
	s.SEI().
		CLD().
		LDX(isa.Imm(0x40)).
		STX(isa.Abs(APUFRAME)).
		LDX(isa.Imm(0xFF)).
		TXS().
		INX().
		STX(isa.Abs(PPUCTRL)).
		STX(isa.Abs(PPUMASK)).
		STX(isa.Abs(DMCFREQ))
	s.Blocks().WaitVBlank()
	s.Blocks().WaitVBlank()
	if err := p.SetResetVector(s); err != nil {
		return nil, err
	}
	return s, nil
}
