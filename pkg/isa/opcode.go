package isa

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnknownOperation is returned when an opcode has no text form.
var ErrUnknownOperation = errors.New("unknown operation")

// Opcode is one of the 56 documented 6502 operations.
type Opcode uint8

const (
	LDA Opcode = iota
	STA
	LDX
	STX
	LDY
	STY
	ADC
	SBC
	ASL
	LSR
	ROL
	ROR
	BIT
	AND
	ORA
	EOR
	CMP
	CPX
	CPY
	JMP
	JSR
	RTS
	BCC
	BCS
	INX
	INY
	DEX
	DEY
	INC
	DEC
	BEQ
	BMI
	BNE
	BPL
	BVC
	BVS
	BRK
	PHP
	PLP
	PHA
	PLA
	CLC
	SEC
	CLI
	SEI
	CLV
	CLD
	SED
	RTI
	TAX
	TXA
	TAY
	TYA
	TSX
	TXS
	NOP

	opcodeCount
)

var mnemonics = [opcodeCount]string{
	LDA: "LDA", STA: "STA", LDX: "LDX", STX: "STX", LDY: "LDY", STY: "STY",
	ADC: "ADC", SBC: "SBC", ASL: "ASL", LSR: "LSR", ROL: "ROL", ROR: "ROR",
	BIT: "BIT", AND: "AND", ORA: "ORA", EOR: "EOR", CMP: "CMP", CPX: "CPX",
	CPY: "CPY", JMP: "JMP", JSR: "JSR", RTS: "RTS", BCC: "BCC", BCS: "BCS",
	INX: "INX", INY: "INY", DEX: "DEX", DEY: "DEY", INC: "INC", DEC: "DEC",
	BEQ: "BEQ", BMI: "BMI", BNE: "BNE", BPL: "BPL", BVC: "BVC", BVS: "BVS",
	BRK: "BRK", PHP: "PHP", PLP: "PLP", PHA: "PHA", PLA: "PLA", CLC: "CLC",
	SEC: "SEC", CLI: "CLI", SEI: "SEI", CLV: "CLV", CLD: "CLD", SED: "SED",
	RTI: "RTI", TAX: "TAX", TXA: "TXA", TAY: "TAY", TYA: "TYA", TSX: "TSX",
	TXS: "TXS", NOP: "NOP",
}

var branchOps = map[Opcode]bool{
	BCC: true, BCS: true, BEQ: true, BMI: true,
	BNE: true, BPL: true, BVC: true, BVS: true,
}

// Mnemonic returns the assembler text of op.
func (op Opcode) Mnemonic() (string, error) {
	if op >= opcodeCount || mnemonics[op] == "" {
		return "", errors.Wrapf(ErrUnknownOperation, "opcode %d", uint8(op))
	}
	return mnemonics[op], nil
}

func (op Opcode) String() string {
	if m, err := op.Mnemonic(); err == nil {
		return m
	}
	return fmt.Sprintf("Opcode(%d)", uint8(op))
}

func (op Opcode) IsBranch() bool { return branchOps[op] }

// Opcodes lists every defined opcode in declaration order.
func Opcodes() []Opcode {
	ops := make([]Opcode, 0, opcodeCount)
	for op := Opcode(0); op < opcodeCount; op++ {
		ops = append(ops, op)
	}
	return ops
}

// Instruction pairs an operation with its operand. Implied operations carry
// Implied{}.
type Instruction struct {
	Op      Opcode
	Operand Operand
}
