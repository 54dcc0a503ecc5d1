package isa

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	ZpMax  = 0xFF
	AbsMax = 0xFFFF
)

var (
	// ErrAddressRange reports an address (or address plus offset) that does
	// not fit the bit width of its kind.
	ErrAddressRange = errors.New("address out of range")
	// ErrUnnamedConstant reports an attempt to promote an address without a
	// name to a symbolic constant.
	ErrUnnamedConstant = errors.New("constant address has no name")
)

// Label is a symbolic name resolved by the assembler.
type Label struct {
	name string
}

func NewLabel(name string) Label {
	return Label{name: name}
}

func (l Label) Name() string   { return l.name }
func (l Label) String() string { return l.name }

// ZpAddress is a zero-page address. A constant address is rendered by its
// name instead of its numeric value.
type ZpAddress struct {
	value    uint8
	name     string
	constant bool
}

func NewZp(value uint32, name string) (ZpAddress, error) {
	if value > ZpMax {
		return ZpAddress{}, errors.Wrapf(ErrAddressRange, "zero page address $%X must be between $00 and $FF", value)
	}
	return ZpAddress{value: uint8(value), name: name}, nil
}

// ConstZp is NewZp followed by AsConstant.
func ConstZp(value uint32, name string) (ZpAddress, error) {
	a, err := NewZp(value, name)
	if err != nil {
		return ZpAddress{}, err
	}
	return a.AsConstant()
}

// MustZp is like NewZp but panics on error. It is meant for fixed,
// package-level addresses.
func MustZp(value uint32, name string) ZpAddress {
	a, err := NewZp(value, name)
	if err != nil {
		panic(err)
	}
	return a
}

func (a ZpAddress) Value() uint8     { return a.value }
func (a ZpAddress) Name() string     { return a.name }
func (a ZpAddress) IsConstant() bool { return a.constant }

func (a ZpAddress) AsConstant() (ZpAddress, error) {
	if a.name == "" {
		return ZpAddress{}, errors.Wrapf(ErrUnnamedConstant, "zero page address $%02X", a.value)
	}
	a.constant = true
	return a, nil
}

// Offset returns the address n bytes away. The result is never a constant.
func (a ZpAddress) Offset(n int) (ZpAddress, error) {
	v := int(a.value) + n
	if v < 0 || v > ZpMax {
		return ZpAddress{}, errors.Wrapf(ErrAddressRange, "zero page address $%02X%+d", a.value, n)
	}
	return ZpAddress{value: uint8(v), name: offsetName(a.name, n)}, nil
}

func (a ZpAddress) String() string {
	if a.name != "" {
		return fmt.Sprintf("$%02X(%s)", a.value, a.name)
	}
	return fmt.Sprintf("$%02X", a.value)
}

// AbsAddress is a 16-bit address anywhere in CPU address space.
type AbsAddress struct {
	value    uint16
	name     string
	constant bool
}

func NewAbs(value uint32, name string) (AbsAddress, error) {
	if value > AbsMax {
		return AbsAddress{}, errors.Wrapf(ErrAddressRange, "absolute address $%X must be between $0000 and $FFFF", value)
	}
	return AbsAddress{value: uint16(value), name: name}, nil
}

func ConstAbs(value uint32, name string) (AbsAddress, error) {
	a, err := NewAbs(value, name)
	if err != nil {
		return AbsAddress{}, err
	}
	return a.AsConstant()
}

func MustAbs(value uint32, name string) AbsAddress {
	a, err := NewAbs(value, name)
	if err != nil {
		panic(err)
	}
	return a
}

// MustConstAbs is used for the fixed hardware register set.
func MustConstAbs(value uint32, name string) AbsAddress {
	a, err := ConstAbs(value, name)
	if err != nil {
		panic(err)
	}
	return a
}

func (a AbsAddress) Value() uint16    { return a.value }
func (a AbsAddress) Name() string     { return a.name }
func (a AbsAddress) IsConstant() bool { return a.constant }
func (a AbsAddress) Lo() uint8        { return uint8(a.value) }
func (a AbsAddress) Hi() uint8        { return uint8(a.value >> 8) }

func (a AbsAddress) AsConstant() (AbsAddress, error) {
	if a.name == "" {
		return AbsAddress{}, errors.Wrapf(ErrUnnamedConstant, "absolute address $%04X", a.value)
	}
	a.constant = true
	return a, nil
}

func (a AbsAddress) Offset(n int) (AbsAddress, error) {
	v := int(a.value) + n
	if v < 0 || v > AbsMax {
		return AbsAddress{}, errors.Wrapf(ErrAddressRange, "absolute address $%04X%+d", a.value, n)
	}
	return AbsAddress{value: uint16(v), name: offsetName(a.name, n)}, nil
}

// Equal compares values only; names are display hints.
func (a AbsAddress) Equal(b AbsAddress) bool { return a.value == b.value }

func (a AbsAddress) String() string {
	if a.name != "" {
		return fmt.Sprintf("$%04X(%s)", a.value, a.name)
	}
	return fmt.Sprintf("$%04X", a.value)
}

func offsetName(name string, n int) string {
	if name == "" || n == 0 {
		return name
	}
	return fmt.Sprintf("%s%+d", name, n)
}
