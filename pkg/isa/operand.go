package isa

// Mode is a 6502 addressing mode.
type Mode uint8

const (
	ModeImplied Mode = iota
	ModeAccumulator
	ModeImmediate
	ModeZeroPage
	ModeZeroPageX
	ModeZeroPageY
	ModeAbsolute
	ModeAbsoluteX
	ModeAbsoluteY
	ModeIndirect
	ModeIndexedIndirectX
	ModeIndirectIndexedY
	ModeLabel
)

var modeNames = [...]string{
	ModeImplied:          "implied",
	ModeAccumulator:      "accumulator",
	ModeImmediate:        "immediate",
	ModeZeroPage:         "zeropage",
	ModeZeroPageX:        "zeropage,X",
	ModeZeroPageY:        "zeropage,Y",
	ModeAbsolute:         "absolute",
	ModeAbsoluteX:        "absolute,X",
	ModeAbsoluteY:        "absolute,Y",
	ModeIndirect:         "(indirect)",
	ModeIndexedIndirectX: "(zeropage,X)",
	ModeIndirectIndexedY: "(zeropage),Y",
	ModeLabel:            "label",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// Operand is one of the addressing-mode values below. The set is closed:
// the group interfaces carry unexported methods, so an operation's builder
// only accepts the modes listed for it.
type Operand interface {
	Mode() Mode
}

// Operand groups, one per family of operations sharing legal modes.
type (
	// LDA ADC SBC AND ORA EOR CMP
	ReadOperand interface {
		Operand
		readOperand()
	}
	// STA
	StoreOperand interface {
		Operand
		storeOperand()
	}
	// LDX
	LoadXOperand interface {
		Operand
		loadXOperand()
	}
	// STX
	StoreXOperand interface {
		Operand
		storeXOperand()
	}
	// LDY
	LoadYOperand interface {
		Operand
		loadYOperand()
	}
	// STY
	StoreYOperand interface {
		Operand
		storeYOperand()
	}
	// CPX CPY
	CompareIndexOperand interface {
		Operand
		compareIndexOperand()
	}
	// INC DEC
	IncDecOperand interface {
		Operand
		incDecOperand()
	}
	// ASL LSR ROL ROR
	ShiftOperand interface {
		Operand
		shiftOperand()
	}
	// BIT
	BitOperand interface {
		Operand
		bitOperand()
	}
	// JMP
	JumpOperand interface {
		Operand
		jumpOperand()
	}
	// JSR
	CallOperand interface {
		Operand
		callOperand()
	}
)

// ZpBase is the base of a zero-page indexed operand: a ZpAddress or a Label.
type ZpBase interface {
	zpBase()
}

// AbsBase is the base of an absolute indexed operand: an AbsAddress or a Label.
type AbsBase interface {
	absBase()
}

func (ZpAddress) zpBase()   {}
func (Label) zpBase()       {}
func (AbsAddress) absBase() {}
func (Label) absBase()      {}

type Implied struct{}

type Accumulator struct{}

type Immediate struct {
	Value uint8
}

// ImmediateLabel is the low (#<label) or high (#>label) byte of a label.
type ImmediateLabel struct {
	Label Label
	High  bool
}

type ZeroPage struct {
	Addr ZpAddress
}

type ZeroPageX struct {
	Base ZpBase
}

type ZeroPageY struct {
	Base ZpBase
}

type Absolute struct {
	Addr AbsAddress
}

type AbsoluteX struct {
	Base AbsBase
}

type AbsoluteY struct {
	Base AbsBase
}

// Indirect is only legal for JMP.
type Indirect struct {
	Addr AbsAddress
}

// IndexedIndirectX is (zp,X).
type IndexedIndirectX struct {
	Addr ZpAddress
}

// IndirectIndexedY is (zp),Y.
type IndirectIndexedY struct {
	Addr ZpAddress
}

func (Implied) Mode() Mode          { return ModeImplied }
func (Accumulator) Mode() Mode      { return ModeAccumulator }
func (Immediate) Mode() Mode        { return ModeImmediate }
func (ImmediateLabel) Mode() Mode   { return ModeImmediate }
func (ZeroPage) Mode() Mode         { return ModeZeroPage }
func (ZeroPageX) Mode() Mode        { return ModeZeroPageX }
func (ZeroPageY) Mode() Mode        { return ModeZeroPageY }
func (Absolute) Mode() Mode         { return ModeAbsolute }
func (AbsoluteX) Mode() Mode        { return ModeAbsoluteX }
func (AbsoluteY) Mode() Mode        { return ModeAbsoluteY }
func (Indirect) Mode() Mode         { return ModeIndirect }
func (IndexedIndirectX) Mode() Mode { return ModeIndexedIndirectX }
func (IndirectIndexedY) Mode() Mode { return ModeIndirectIndexedY }
func (Label) Mode() Mode            { return ModeLabel }

// Legal-mode table.

func (Immediate) readOperand()         {}
func (Immediate) loadXOperand()        {}
func (Immediate) loadYOperand()        {}
func (Immediate) compareIndexOperand() {}

func (ImmediateLabel) readOperand()         {}
func (ImmediateLabel) loadXOperand()        {}
func (ImmediateLabel) loadYOperand()        {}
func (ImmediateLabel) compareIndexOperand() {}

func (ZeroPage) readOperand()         {}
func (ZeroPage) storeOperand()        {}
func (ZeroPage) loadXOperand()        {}
func (ZeroPage) storeXOperand()       {}
func (ZeroPage) loadYOperand()        {}
func (ZeroPage) storeYOperand()       {}
func (ZeroPage) compareIndexOperand() {}
func (ZeroPage) incDecOperand()       {}
func (ZeroPage) shiftOperand()        {}
func (ZeroPage) bitOperand()          {}

func (ZeroPageX) readOperand()   {}
func (ZeroPageX) storeOperand()  {}
func (ZeroPageX) loadYOperand()  {}
func (ZeroPageX) storeYOperand() {}
func (ZeroPageX) incDecOperand() {}
func (ZeroPageX) shiftOperand()  {}

func (ZeroPageY) loadXOperand()  {}
func (ZeroPageY) storeXOperand() {}

func (Absolute) readOperand()         {}
func (Absolute) storeOperand()        {}
func (Absolute) loadXOperand()        {}
func (Absolute) storeXOperand()       {}
func (Absolute) loadYOperand()        {}
func (Absolute) storeYOperand()       {}
func (Absolute) compareIndexOperand() {}
func (Absolute) incDecOperand()       {}
func (Absolute) shiftOperand()        {}
func (Absolute) bitOperand()          {}
func (Absolute) jumpOperand()         {}
func (Absolute) callOperand()         {}

func (AbsoluteX) readOperand()   {}
func (AbsoluteX) storeOperand()  {}
func (AbsoluteX) loadYOperand()  {}
func (AbsoluteX) incDecOperand() {}
func (AbsoluteX) shiftOperand()  {}

func (AbsoluteY) readOperand()  {}
func (AbsoluteY) storeOperand() {}
func (AbsoluteY) loadXOperand() {}

func (Indirect) jumpOperand() {}

func (IndexedIndirectX) readOperand()  {}
func (IndexedIndirectX) storeOperand() {}

func (IndirectIndexedY) readOperand()  {}
func (IndirectIndexedY) storeOperand() {}

func (Accumulator) shiftOperand() {}

func (Label) jumpOperand() {}
func (Label) callOperand() {}

// Constructors, mirroring assembler operand syntax.

func Imm(v uint8) Immediate             { return Immediate{Value: v} }
func Lo(l Label) ImmediateLabel         { return ImmediateLabel{Label: l} }
func Hi(l Label) ImmediateLabel         { return ImmediateLabel{Label: l, High: true} }
func Acc() Accumulator                  { return Accumulator{} }
func Zp(a ZpAddress) ZeroPage           { return ZeroPage{Addr: a} }
func ZpX(b ZpBase) ZeroPageX            { return ZeroPageX{Base: b} }
func ZpY(b ZpBase) ZeroPageY            { return ZeroPageY{Base: b} }
func Abs(a AbsAddress) Absolute         { return Absolute{Addr: a} }
func AbsX(b AbsBase) AbsoluteX          { return AbsoluteX{Base: b} }
func AbsY(b AbsBase) AbsoluteY          { return AbsoluteY{Base: b} }
func Ind(a AbsAddress) Indirect         { return Indirect{Addr: a} }
func IndX(a ZpAddress) IndexedIndirectX { return IndexedIndirectX{Addr: a} }
func IndY(a ZpAddress) IndirectIndexedY { return IndirectIndexedY{Addr: a} }
