// Package memmap hands out zero-page and general RAM addresses for a build.
//
// Both allocators are bump allocators: addresses are never freed, and a
// request that does not fit fails without touching allocator state.
package memmap

import (
	"github.com/pkg/errors"

	"nesgen/pkg/isa"
)

// ErrInvalidBlockSize reports a block allocation of size zero.
var ErrInvalidBlockSize = errors.New("block size must be at least 1")

const (
	ZeroPageMin = 0x0000
	ZeroPageMax = 0x00FF

	// Page $02 is the OAM shadow buffer, so general RAM starts at $0300.
	RAMMin = 0x0300
	RAMMax = 0x07FF
)

// bump is the cursor shared by both allocator kinds.
type bump struct {
	kind     string
	min, max uint32
	next     uint32
}

func (b *bump) take(name string, size, base uint32) (uint32, error) {
	if size == 0 {
		return 0, errors.Wrapf(ErrInvalidBlockSize, "%s block %q", b.kind, name)
	}

	if base != 0 {
		// Explicit placement never moves the cursor and is not checked for
		// overlap with automatic allocations.
		if base < b.min || base > b.max {
			return 0, errors.Wrapf(isa.ErrAddressRange, "%s block %q: base $%04X outside $%04X-$%04X", b.kind, name, base, b.min, b.max)
		}
		if base+size-1 > b.max {
			return 0, errors.Wrapf(isa.ErrAddressRange, "%s block %q: $%04X+%d exceeds $%04X", b.kind, name, base, size, b.max)
		}
		return base, nil
	}

	if b.next+size-1 > b.max {
		return 0, errors.Wrapf(isa.ErrAddressRange, "%s exhausted allocating %q (%d bytes at $%04X)", b.kind, name, size, b.next)
	}
	addr := b.next
	b.next += size
	return addr, nil
}

// ZeroPageAllocator allocates from $00-$FF.
type ZeroPageAllocator struct {
	b bump
}

func NewZeroPageAllocator() *ZeroPageAllocator {
	return &ZeroPageAllocator{b: bump{kind: "zero page", min: ZeroPageMin, max: ZeroPageMax, next: ZeroPageMin}}
}

// Alloc returns the next free byte.
func (z *ZeroPageAllocator) Alloc(name string, constant bool) (isa.ZpAddress, error) {
	return z.AllocBlock(name, 1, 0, constant)
}

// AllocBlock reserves size bytes. A nonzero base places the block
// explicitly without advancing the automatic cursor.
func (z *ZeroPageAllocator) AllocBlock(name string, size uint16, base uint8, constant bool) (isa.ZpAddress, error) {
	if constant && name == "" {
		return isa.ZpAddress{}, errors.Wrap(isa.ErrUnnamedConstant, "zero page allocation")
	}
	v, err := z.b.take(name, uint32(size), uint32(base))
	if err != nil {
		return isa.ZpAddress{}, err
	}
	a, err := isa.NewZp(v, name)
	if err != nil {
		return isa.ZpAddress{}, err
	}
	if constant {
		return a.AsConstant()
	}
	return a, nil
}

// Next is the address the next automatic allocation would return.
func (z *ZeroPageAllocator) Next() uint16 { return uint16(z.b.next) }

// Free is the number of bytes left for automatic allocation.
func (z *ZeroPageAllocator) Free() int { return int(z.b.max+1) - int(z.b.next) }

// RAMAllocator allocates from general work RAM.
type RAMAllocator struct {
	b bump
}

func NewRAMAllocator() *RAMAllocator {
	return &RAMAllocator{b: bump{kind: "RAM", min: RAMMin, max: RAMMax, next: RAMMin}}
}

func (r *RAMAllocator) Alloc(name string, constant bool) (isa.AbsAddress, error) {
	return r.AllocBlock(name, 1, 0, constant)
}

func (r *RAMAllocator) AllocBlock(name string, size, base uint16, constant bool) (isa.AbsAddress, error) {
	if constant && name == "" {
		return isa.AbsAddress{}, errors.Wrap(isa.ErrUnnamedConstant, "RAM allocation")
	}
	v, err := r.b.take(name, uint32(size), uint32(base))
	if err != nil {
		return isa.AbsAddress{}, err
	}
	a, err := isa.NewAbs(v, name)
	if err != nil {
		return isa.AbsAddress{}, err
	}
	if constant {
		return a.AsConstant()
	}
	return a, nil
}

func (r *RAMAllocator) Next() uint16 { return uint16(r.b.next) }
func (r *RAMAllocator) Free() int    { return int(r.b.max+1) - int(r.b.next) }

// MemoryMap owns the allocators for one build.
type MemoryMap struct {
	ZeroPage *ZeroPageAllocator
	RAM      *RAMAllocator
}

func New() *MemoryMap {
	return &MemoryMap{
		ZeroPage: NewZeroPageAllocator(),
		RAM:      NewRAMAllocator(),
	}
}
