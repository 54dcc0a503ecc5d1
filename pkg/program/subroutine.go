package program

import (
	"nesgen/pkg/isa"
)

// Subroutine is an ordered list of entries emitted as one .proc. Every
// builder method appends in call order and returns the receiver.
//
// Builder methods never return errors. The first failure raised while
// building (a bad macro-block argument, an address offset overflow) is kept
// and reported by Err; a Program with a failed subroutine cannot be emitted.
type Subroutine struct {
	name    string
	entries []Entry
	prg     *Program
	err     error
}

func (s *Subroutine) Name() string { return s.name }

// Entries returns the entries in emission order. The slice must not be
// modified.
func (s *Subroutine) Entries() []Entry { return s.entries }

func (s *Subroutine) Err() error { return s.err }

// Program returns the owning program.
func (s *Subroutine) Program() *Program { return s.prg }

func (s *Subroutine) fail(err error) *Subroutine {
	if s.err == nil && err != nil {
		s.err = err
	}
	return s
}

func (s *Subroutine) emit(op isa.Opcode, operand isa.Operand) *Subroutine {
	s.entries = append(s.entries, Instruction{isa.Instruction{Op: op, Operand: operand}})
	return s
}

func (s *Subroutine) implied(op isa.Opcode) *Subroutine {
	return s.emit(op, isa.Implied{})
}

// uniqueLabel returns tag followed by the program's next counter for tag.
func (s *Subroutine) uniqueLabel(tag string) isa.Label {
	return s.prg.nextLabel(tag)
}

// Label places l at the current position.
func (s *Subroutine) Label(l isa.Label) *Subroutine {
	s.entries = append(s.entries, LabelDef{Label: l})
	return s
}

// LabelName is Label(isa.NewLabel(name)).
func (s *Subroutine) LabelName(name string) *Subroutine {
	return s.Label(isa.NewLabel(name))
}

func (s *Subroutine) Comment(text string) *Subroutine {
	s.entries = append(s.entries, LineComment{Text: text})
	return s
}

// CommentPrev attaches text to the previous line.
func (s *Subroutine) CommentPrev(text string) *Subroutine {
	s.entries = append(s.entries, InlineComment{Text: text})
	return s
}

// Blocks gives access to the macro-block library for this subroutine.
func (s *Subroutine) Blocks() Blocks {
	return Blocks{sub: s}
}

// Loads and stores

func (s *Subroutine) LDA(o isa.ReadOperand) *Subroutine   { return s.emit(isa.LDA, o) }
func (s *Subroutine) STA(o isa.StoreOperand) *Subroutine  { return s.emit(isa.STA, o) }
func (s *Subroutine) LDX(o isa.LoadXOperand) *Subroutine  { return s.emit(isa.LDX, o) }
func (s *Subroutine) STX(o isa.StoreXOperand) *Subroutine { return s.emit(isa.STX, o) }
func (s *Subroutine) LDY(o isa.LoadYOperand) *Subroutine  { return s.emit(isa.LDY, o) }
func (s *Subroutine) STY(o isa.StoreYOperand) *Subroutine { return s.emit(isa.STY, o) }

// Arithmetic and logic

func (s *Subroutine) ADC(o isa.ReadOperand) *Subroutine { return s.emit(isa.ADC, o) }
func (s *Subroutine) SBC(o isa.ReadOperand) *Subroutine { return s.emit(isa.SBC, o) }
func (s *Subroutine) AND(o isa.ReadOperand) *Subroutine { return s.emit(isa.AND, o) }
func (s *Subroutine) ORA(o isa.ReadOperand) *Subroutine { return s.emit(isa.ORA, o) }
func (s *Subroutine) EOR(o isa.ReadOperand) *Subroutine { return s.emit(isa.EOR, o) }
func (s *Subroutine) BIT(o isa.BitOperand) *Subroutine  { return s.emit(isa.BIT, o) }

// Compare

func (s *Subroutine) CMP(o isa.ReadOperand) *Subroutine         { return s.emit(isa.CMP, o) }
func (s *Subroutine) CPX(o isa.CompareIndexOperand) *Subroutine { return s.emit(isa.CPX, o) }
func (s *Subroutine) CPY(o isa.CompareIndexOperand) *Subroutine { return s.emit(isa.CPY, o) }

// Increment and decrement

func (s *Subroutine) INC(o isa.IncDecOperand) *Subroutine { return s.emit(isa.INC, o) }
func (s *Subroutine) DEC(o isa.IncDecOperand) *Subroutine { return s.emit(isa.DEC, o) }
func (s *Subroutine) INX() *Subroutine                    { return s.implied(isa.INX) }
func (s *Subroutine) INY() *Subroutine                    { return s.implied(isa.INY) }
func (s *Subroutine) DEX() *Subroutine                    { return s.implied(isa.DEX) }
func (s *Subroutine) DEY() *Subroutine                    { return s.implied(isa.DEY) }

// Shifts and rotates. Pass isa.Acc() for the accumulator form.

func (s *Subroutine) ASL(o isa.ShiftOperand) *Subroutine { return s.emit(isa.ASL, o) }
func (s *Subroutine) LSR(o isa.ShiftOperand) *Subroutine { return s.emit(isa.LSR, o) }
func (s *Subroutine) ROL(o isa.ShiftOperand) *Subroutine { return s.emit(isa.ROL, o) }
func (s *Subroutine) ROR(o isa.ShiftOperand) *Subroutine { return s.emit(isa.ROR, o) }

// Transfers

func (s *Subroutine) TAX() *Subroutine { return s.implied(isa.TAX) }
func (s *Subroutine) TAY() *Subroutine { return s.implied(isa.TAY) }
func (s *Subroutine) TXA() *Subroutine { return s.implied(isa.TXA) }
func (s *Subroutine) TYA() *Subroutine { return s.implied(isa.TYA) }
func (s *Subroutine) TSX() *Subroutine { return s.implied(isa.TSX) }
func (s *Subroutine) TXS() *Subroutine { return s.implied(isa.TXS) }

// Stack

func (s *Subroutine) PHA() *Subroutine { return s.implied(isa.PHA) }
func (s *Subroutine) PLA() *Subroutine { return s.implied(isa.PLA) }
func (s *Subroutine) PHP() *Subroutine { return s.implied(isa.PHP) }
func (s *Subroutine) PLP() *Subroutine { return s.implied(isa.PLP) }

// Flags

func (s *Subroutine) SEI() *Subroutine { return s.implied(isa.SEI) }
func (s *Subroutine) CLI() *Subroutine { return s.implied(isa.CLI) }
func (s *Subroutine) CLC() *Subroutine { return s.implied(isa.CLC) }
func (s *Subroutine) SEC() *Subroutine { return s.implied(isa.SEC) }
func (s *Subroutine) CLV() *Subroutine { return s.implied(isa.CLV) }
func (s *Subroutine) SED() *Subroutine { return s.implied(isa.SED) }
func (s *Subroutine) CLD() *Subroutine { return s.implied(isa.CLD) }

// Branches only take a label.

func (s *Subroutine) BNE(l isa.Label) *Subroutine { return s.emit(isa.BNE, l) }
func (s *Subroutine) BEQ(l isa.Label) *Subroutine { return s.emit(isa.BEQ, l) }
func (s *Subroutine) BCC(l isa.Label) *Subroutine { return s.emit(isa.BCC, l) }
func (s *Subroutine) BCS(l isa.Label) *Subroutine { return s.emit(isa.BCS, l) }
func (s *Subroutine) BMI(l isa.Label) *Subroutine { return s.emit(isa.BMI, l) }
func (s *Subroutine) BPL(l isa.Label) *Subroutine { return s.emit(isa.BPL, l) }
func (s *Subroutine) BVC(l isa.Label) *Subroutine { return s.emit(isa.BVC, l) }
func (s *Subroutine) BVS(l isa.Label) *Subroutine { return s.emit(isa.BVS, l) }

// Jumps and calls

func (s *Subroutine) JMP(o isa.JumpOperand) *Subroutine { return s.emit(isa.JMP, o) }
func (s *Subroutine) JSR(o isa.CallOperand) *Subroutine { return s.emit(isa.JSR, o) }

// JMPTo jumps to the label called name.
func (s *Subroutine) JMPTo(name string) *Subroutine { return s.JMP(isa.NewLabel(name)) }

// JSRTo calls the subroutine or label called name.
func (s *Subroutine) JSRTo(name string) *Subroutine { return s.JSR(isa.NewLabel(name)) }

func (s *Subroutine) RTS() *Subroutine { return s.implied(isa.RTS) }
func (s *Subroutine) RTI() *Subroutine { return s.implied(isa.RTI) }

// BRK raises a software IRQ.
func (s *Subroutine) BRK() *Subroutine { return s.implied(isa.BRK) }
func (s *Subroutine) NOP() *Subroutine { return s.implied(isa.NOP) }
