// Package program holds the in-memory model of an NES program: subroutines
// built from typed instructions, labelled data blocks, named constants and
// the interrupt vectors. It also carries the macro-block library used to
// compose common NES idioms.
package program

import (
	stderrors "errors"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"nesgen/pkg/isa"
	"nesgen/pkg/memmap"
)

var (
	// ErrAlignment reports an address that must start a 256-byte page but
	// does not.
	ErrAlignment = errors.New("address is not page aligned")
	// ErrSymbolNotFound reports a lookup of an unknown subroutine, data
	// block or constant.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrDuplicateSymbol reports a second subroutine with the same name.
	ErrDuplicateSymbol = errors.New("duplicate symbol")
	// ErrForeignSubroutine reports a vector pointed at a subroutine that
	// belongs to another program.
	ErrForeignSubroutine = errors.New("subroutine belongs to another program")
)

// Vector identifies one of the three 6502 interrupt vectors.
type Vector int

const (
	NMI Vector = iota
	Reset
	IRQ
)

func (v Vector) String() string {
	switch v {
	case NMI:
		return "NMI"
	case Reset:
		return "RESET"
	case IRQ:
		return "IRQ"
	}
	return fmt.Sprintf("Vector(%d)", int(v))
}

// ResetHandlerName is the name of the subroutine created by
// InitStandardReset.
const ResetHandlerName = "reset_handler"

// Program owns its subroutines, data blocks and constants. Vectors refer to
// subroutines by position, so a Program can be copied or inspected without
// dangling pointers.
type Program struct {
	mem         *memmap.MemoryMap
	subroutines []*Subroutine
	byName      map[string]int
	dataBlocks  map[string]*DataBlock
	constants   map[string]int32
	vectors     [3]int // index+1 into subroutines, 0 when unset
	labelCounts map[string]int
}

// New creates an empty program. A nil mem gets a fresh memory map.
func New(mem *memmap.MemoryMap) *Program {
	if mem == nil {
		mem = memmap.New()
	}
	return &Program{
		mem:         mem,
		byName:      map[string]int{},
		dataBlocks:  map[string]*DataBlock{},
		constants:   map[string]int32{},
		labelCounts: map[string]int{},
	}
}

func (p *Program) MemoryMap() *memmap.MemoryMap { return p.mem }

// AddSubroutine appends a new, empty subroutine. Subroutine names are
// global ca65 symbols, so a name may be used once.
func (p *Program) AddSubroutine(name string) (*Subroutine, error) {
	if name == "" {
		return nil, errors.New("subroutine name must not be empty")
	}
	if _, ok := p.byName[name]; ok {
		return nil, errors.Wrapf(ErrDuplicateSymbol, "subroutine %q", name)
	}
	s := &Subroutine{name: name, prg: p}
	p.byName[name] = len(p.subroutines)
	p.subroutines = append(p.subroutines, s)
	return s, nil
}

func (p *Program) Subroutine(name string) (*Subroutine, error) {
	i, ok := p.byName[name]
	if !ok {
		return nil, errors.Wrapf(ErrSymbolNotFound, "subroutine %q", name)
	}
	return p.subroutines[i], nil
}

// Subroutines returns the subroutines in insertion order.
func (p *Program) Subroutines() []*Subroutine { return p.subroutines }

// AddDataBlock returns the data block for l, creating it if needed.
func (p *Program) AddDataBlock(l isa.Label) *DataBlock {
	if d, ok := p.dataBlocks[l.Name()]; ok {
		return d
	}
	d := &DataBlock{label: l}
	p.dataBlocks[l.Name()] = d
	return d
}

func (p *Program) DataBlock(l isa.Label) (*DataBlock, error) {
	d, ok := p.dataBlocks[l.Name()]
	if !ok {
		return nil, errors.Wrapf(ErrSymbolNotFound, "data block %q", l.Name())
	}
	return d, nil
}

// DataBlocks returns all data blocks sorted by label name.
func (p *Program) DataBlocks() []*DataBlock {
	out := make([]*DataBlock, 0, len(p.dataBlocks))
	for _, d := range p.dataBlocks {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].label.Name() < out[j].label.Name() })
	return out
}

// AddConstant defines or redefines a program-level constant.
func (p *Program) AddConstant(name string, value int32) {
	p.constants[name] = value
}

func (p *Program) Constant(name string) (int32, error) {
	v, ok := p.constants[name]
	if !ok {
		return 0, errors.Wrapf(ErrSymbolNotFound, "constant %q", name)
	}
	return v, nil
}

func (p *Program) HasConstant(name string) bool {
	_, ok := p.constants[name]
	return ok
}

// ConstantNames returns the constant names in sorted order.
func (p *Program) ConstantNames() []string {
	names := make([]string, 0, len(p.constants))
	for n := range p.constants {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SetVector points v at s, which must have been created by this program.
func (p *Program) SetVector(v Vector, s *Subroutine) error {
	if v < NMI || v > IRQ {
		return errors.Errorf("unknown vector %d", int(v))
	}
	if s == nil {
		return errors.Errorf("%s vector: nil subroutine", v)
	}
	i, ok := p.byName[s.name]
	if !ok || p.subroutines[i] != s {
		return errors.Wrapf(ErrForeignSubroutine, "%s vector %q", v, s.name)
	}
	p.vectors[v] = i + 1
	return nil
}

func (p *Program) SetResetVector(s *Subroutine) error { return p.SetVector(Reset, s) }
func (p *Program) SetNMIVector(s *Subroutine) error   { return p.SetVector(NMI, s) }
func (p *Program) SetIRQVector(s *Subroutine) error   { return p.SetVector(IRQ, s) }

// Vector returns the subroutine assigned to v, or nil.
func (p *Program) Vector(v Vector) *Subroutine {
	if v < NMI || v > IRQ || p.vectors[v] == 0 {
		return nil
	}
	return p.subroutines[p.vectors[v]-1]
}

func (p *Program) ResetVector() *Subroutine { return p.Vector(Reset) }
func (p *Program) NMIVector() *Subroutine   { return p.Vector(NMI) }
func (p *Program) IRQVector() *Subroutine   { return p.Vector(IRQ) }

// AllocZp allocates one zero-page byte from the program's memory map.
func (p *Program) AllocZp(name string, constant bool) (isa.ZpAddress, error) {
	return p.mem.ZeroPage.Alloc(name, constant)
}

func (p *Program) AllocZpBlock(name string, size uint16, constant bool) (isa.ZpAddress, error) {
	return p.mem.ZeroPage.AllocBlock(name, size, 0, constant)
}

// AllocRAM allocates one byte of general-purpose RAM.
func (p *Program) AllocRAM(name string, constant bool) (isa.AbsAddress, error) {
	return p.mem.RAM.Alloc(name, constant)
}

func (p *Program) AllocRAMBlock(name string, size uint16, constant bool) (isa.AbsAddress, error) {
	return p.mem.RAM.AllocBlock(name, size, 0, constant)
}

// Err reports the construction errors recorded by every subroutine.
func (p *Program) Err() error {
	var errs []error
	for _, s := range p.subroutines {
		if s.err != nil {
			errs = append(errs, errors.Wrapf(s.err, "subroutine %s", s.name))
		}
	}
	// pkg/errors has no Join; the stdlib one keeps errors.Is working per cause.
	return stderrors.Join(errs...)
}

func (p *Program) nextLabel(tag string) isa.Label {
	n := p.labelCounts[tag]
	p.labelCounts[tag] = n + 1
	return isa.NewLabel(fmt.Sprintf("%s%d", tag, n))
}
