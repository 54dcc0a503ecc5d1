package program

import "nesgen/pkg/isa"

// Entry is one line of a subroutine: an Instruction, a LabelDef, a
// LineComment or an InlineComment.
type Entry interface {
	isEntry()
}

type Instruction struct {
	isa.Instruction
}

type LabelDef struct {
	Label isa.Label
}

// LineComment occupies its own line.
type LineComment struct {
	Text string
}

// InlineComment is appended to the previously rendered line.
type InlineComment struct {
	Text string
}

func (Instruction) isEntry()   {}
func (LabelDef) isEntry()      {}
func (LineComment) isEntry()   {}
func (InlineComment) isEntry() {}
