package memmap

import (
	"testing"

	"github.com/pkg/errors"

	"nesgen/pkg/isa"
)

func TestZeroPageSequential(t *testing.T) {
	z := NewZeroPageAllocator()
	prev := -1
	for i := 0; i <= ZeroPageMax; i++ {
		a, err := z.Alloc("v", false)
		if err != nil {
			t.Fatalf("Alloc #%d error = %v", i, err)
		}
		if int(a.Value()) <= prev {
			t.Fatalf("Alloc #%d = $%02X; not above $%02X", i, a.Value(), prev)
		}
		prev = int(a.Value())
	}

	if _, err := z.Alloc("overflow", false); !errors.Is(err, isa.ErrAddressRange) {
		t.Fatalf("Alloc past $FF error = %v; want ErrAddressRange", err)
	}
	if z.Next() != 0x100 || z.Free() != 0 {
		t.Errorf("after failure Next() = $%X Free() = %d", z.Next(), z.Free())
	}
}

func TestFailedRequestLeavesCursor(t *testing.T) {
	r := NewRAMAllocator()
	if _, err := r.AllocBlock("big", 0x400, 0, false); err != nil {
		t.Fatal(err)
	}
	before := r.Next()
	if _, err := r.AllocBlock("too-big", 0x200, 0, false); !errors.Is(err, isa.ErrAddressRange) {
		t.Fatalf("AllocBlock error = %v; want ErrAddressRange", err)
	}
	if r.Next() != before {
		t.Errorf("Next() = $%04X after failed request; want $%04X", r.Next(), before)
	}
	a, err := r.AllocBlock("fits", uint16(r.Free()), 0, false)
	if err != nil {
		t.Fatalf("AllocBlock(remaining) error = %v", err)
	}
	if a.Value() != before {
		t.Errorf("AllocBlock(remaining) = $%04X; want $%04X", a.Value(), before)
	}
}

func TestRAMBlocks(t *testing.T) {
	r := NewRAMAllocator()
	tests := []struct {
		name string
		size uint16
		want uint16
	}{
		{"a", 1, 0x0300},
		{"b", 16, 0x0301},
		{"c", 2, 0x0311},
		{"d", 0x100, 0x0313},
	}
	for _, tc := range tests {
		a, err := r.AllocBlock(tc.name, tc.size, 0, false)
		if err != nil {
			t.Fatalf("AllocBlock(%q, %d) error = %v", tc.name, tc.size, err)
		}
		if a.Value() != tc.want {
			t.Errorf("AllocBlock(%q, %d) = $%04X; want $%04X", tc.name, tc.size, a.Value(), tc.want)
		}
		if a.Name() != tc.name {
			t.Errorf("AllocBlock(%q).Name() = %q", tc.name, a.Name())
		}
	}
}

func TestZeroSizeBlock(t *testing.T) {
	r := NewRAMAllocator()
	if _, err := r.AllocBlock("buf", 0, 0, false); !errors.Is(err, ErrInvalidBlockSize) {
		t.Errorf("RAM AllocBlock(size 0) error = %v; want ErrInvalidBlockSize", err)
	}
	if r.Next() != RAMMin {
		t.Errorf("Next() = $%04X after zero-size request; want $%04X", r.Next(), RAMMin)
	}

	z := NewZeroPageAllocator()
	if _, err := z.AllocBlock("buf", 0, 0x40, false); !errors.Is(err, ErrInvalidBlockSize) {
		t.Errorf("zero page AllocBlock(size 0) error = %v; want ErrInvalidBlockSize", err)
	}
}

func TestExplicitBase(t *testing.T) {
	r := NewRAMAllocator()
	a, err := r.AllocBlock("fixed", 0x10, 0x0400, false)
	if err != nil {
		t.Fatal(err)
	}
	if a.Value() != 0x0400 {
		t.Errorf("explicit block = $%04X; want $0400", a.Value())
	}
	if r.Next() != RAMMin {
		t.Errorf("explicit block moved cursor to $%04X", r.Next())
	}

	tests := []struct {
		size, base uint16
	}{
		{1, 0x0200},
		{1, 0x0800},
		{0x10, 0x07F8},
	}
	for _, tc := range tests {
		if _, err := r.AllocBlock("bad", tc.size, tc.base, false); !errors.Is(err, isa.ErrAddressRange) {
			t.Errorf("AllocBlock(size %d, base $%04X) error = %v; want ErrAddressRange", tc.size, tc.base, err)
		}
	}
}

// Automatic allocation does not know about explicit blocks, so the two may
// overlap. This is a documented limitation.
func TestExplicitBlockMayOverlap(t *testing.T) {
	z := NewZeroPageAllocator()
	fixed, err := z.AllocBlock("fixed", 4, 0x01, false)
	if err != nil {
		t.Fatal(err)
	}
	auto, err := z.AllocBlock("auto", 2, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	auto2, err := z.Alloc("auto2", false)
	if err != nil {
		t.Fatal(err)
	}
	if auto.Value() != 0x00 || auto2.Value() != fixed.Value()+1 {
		t.Errorf("auto = $%02X auto2 = $%02X fixed = $%02X", auto.Value(), auto2.Value(), fixed.Value())
	}
}

func TestConstantAllocation(t *testing.T) {
	m := New()
	a, err := m.ZeroPage.Alloc("buttons", true)
	if err != nil {
		t.Fatal(err)
	}
	if !a.IsConstant() {
		t.Errorf("Alloc(constant) not flagged")
	}
	if _, err := m.ZeroPage.Alloc("", true); !errors.Is(err, isa.ErrUnnamedConstant) {
		t.Errorf("unnamed constant error = %v", err)
	}
	if m.ZeroPage.Next() != 1 {
		t.Errorf("rejected constant advanced the cursor to %d", m.ZeroPage.Next())
	}
	r, err := m.RAM.AllocBlock("tiles", 32, 0, true)
	if err != nil || !r.IsConstant() || r.Value() != RAMMin {
		t.Errorf("RAM AllocBlock(constant) = %v, %v", r, err)
	}
}
