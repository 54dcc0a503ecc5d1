package emitter

import (
	"fmt"

	"nesgen/pkg/isa"
)

// symbol is one promoted constant.
type symbol struct {
	zeroPage bool
	value    uint16
}

// symbolTable collects constants while one program is rendered.
type symbolTable struct {
	opts     Options
	syms     map[string]symbol
	reserved map[string]bool
	diags    []Diagnostic
	warn     func(Diagnostic)
}

func newSymbolTable(opts Options, reserved map[string]bool, warn func(Diagnostic)) *symbolTable {
	return &symbolTable{opts: opts, syms: map[string]symbol{}, reserved: reserved, warn: warn}
}

// address renders a zero-page or absolute address, promoting it to its
// name when it is a named constant. The second result is a trailing hint
// for the line's comment column.
func (st *symbolTable) address(zeroPage bool, value uint16, name string, constant bool) (string, string) {
	literal := fmt.Sprintf("$%04X", value)
	if zeroPage {
		literal = fmt.Sprintf("$%02X", value)
	}
	if !st.opts.AutoCreateConstants || !constant {
		if st.opts.EmitComments && name != "" {
			return literal, name
		}
		return literal, ""
	}

	want := symbol{zeroPage: zeroPage, value: value}
	prev, seen := st.syms[name]
	if st.reserved[name] || (seen && prev != want) {
		d := Diagnostic{Err: ErrDuplicateSymbol, Name: name, Value: value, Previous: prev.value, ZeroPage: zeroPage}
		if st.reserved[name] {
			d.Message = fmt.Sprintf("constant %q already names a program constant; keeping %s", name, literal)
		} else {
			d.Message = fmt.Sprintf("duplicate constant name %q for %s (previously %s); keeping the literal",
				name, literal, prev.literal())
		}
		st.diags = append(st.diags, d)
		st.warn(d)
		if st.opts.EmitComments {
			return literal, name
		}
		return literal, ""
	}
	st.syms[name] = want
	if st.opts.EmitAddressHints {
		return name, literal
	}
	return name, ""
}

func (s symbol) literal() string {
	if s.zeroPage {
		return fmt.Sprintf("$%02X", s.value)
	}
	return fmt.Sprintf("$%04X", s.value)
}

func (st *symbolTable) zp(a isa.ZpAddress) (string, string) {
	return st.address(true, uint16(a.Value()), a.Name(), a.IsConstant())
}

func (st *symbolTable) abs(a isa.AbsAddress) (string, string) {
	return st.address(false, a.Value(), a.Name(), a.IsConstant())
}

func (st *symbolTable) base(b interface{}) (string, string) {
	switch b := b.(type) {
	case isa.ZpAddress:
		return st.zp(b)
	case isa.AbsAddress:
		return st.abs(b)
	case isa.Label:
		return b.Name(), ""
	}
	return fmt.Sprintf("%v", b), ""
}

// operand renders o in ca65 syntax plus an optional hint.
func (st *symbolTable) operand(o isa.Operand) (string, string) {
	switch o := o.(type) {
	case nil, isa.Implied:
		return "", ""
	case isa.Accumulator:
		return "A", ""
	case isa.Immediate:
		return fmt.Sprintf("#$%02X", o.Value), ""
	case isa.ImmediateLabel:
		if o.High {
			return "#>" + o.Label.Name(), ""
		}
		return "#<" + o.Label.Name(), ""
	case isa.ZeroPage:
		return st.zp(o.Addr)
	case isa.Absolute:
		return st.abs(o.Addr)
	case isa.ZeroPageX:
		s, h := st.base(o.Base)
		return s + ",X", h
	case isa.ZeroPageY:
		s, h := st.base(o.Base)
		return s + ",Y", h
	case isa.AbsoluteX:
		s, h := st.base(o.Base)
		return s + ",X", h
	case isa.AbsoluteY:
		s, h := st.base(o.Base)
		return s + ",Y", h
	case isa.Indirect:
		s, h := st.abs(o.Addr)
		return "(" + s + ")", h
	case isa.IndexedIndirectX:
		s, h := st.zp(o.Addr)
		return "(" + s + ",X)", h
	case isa.IndirectIndexedY:
		s, h := st.zp(o.Addr)
		return "(" + s + "),Y", h
	case isa.Label:
		return o.Name(), ""
	}
	return fmt.Sprintf("%v", o), ""
}

// FormatInstruction renders in without constant promotion or hints, the
// way a disassembly listing would show it.
func FormatInstruction(in isa.Instruction) string {
	st := newSymbolTable(Options{}, nil, func(Diagnostic) {})
	s, _ := st.operand(in.Operand)
	m, err := in.Op.Mnemonic()
	if err != nil {
		m = in.Op.String()
	}
	if s == "" {
		return m
	}
	return m + " " + s
}
