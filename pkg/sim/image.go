// Package sim executes programs built with package program on a 6502 model
// with just enough NES hardware (PPU registers, OAM DMA, controller 1) to
// check what macro blocks and handlers do. It runs the instruction entries
// directly, without assembling them.
package sim

import (
	"github.com/pkg/errors"

	"nesgen/pkg/isa"
	"nesgen/pkg/program"
)

// DataBase is where data blocks are placed in the simulated address space,
// in label order.
const DataBase uint16 = 0xC000

// ErrUnresolved reports a label that names no code position or data block.
var ErrUnresolved = errors.New("unresolved label")

// Image is a program flattened for execution. Subroutines are laid out back
// to back in insertion order, so falling off the end of one continues into
// the next, as it does in the assembled CODE segment.
type Image struct {
	code   []isa.Instruction
	owner  []int
	procs  []string
	start  []int
	procAt map[string]int
	local  []map[string]int
	data   map[string]uint16
	rom    map[uint16][]byte
}

// Load flattens p. It fails if p carries construction errors.
func Load(p *program.Program) (*Image, error) {
	if err := p.Err(); err != nil {
		return nil, errors.Wrap(err, "load program")
	}
	img := &Image{
		procAt: map[string]int{},
		data:   map[string]uint16{},
		rom:    map[uint16][]byte{},
	}
	for i, s := range p.Subroutines() {
		img.procs = append(img.procs, s.Name())
		img.start = append(img.start, len(img.code))
		img.procAt[s.Name()] = len(img.code)
		labels := map[string]int{}
		for _, e := range s.Entries() {
			switch e := e.(type) {
			case program.Instruction:
				img.code = append(img.code, e.Instruction)
				img.owner = append(img.owner, i)
			case program.LabelDef:
				labels[e.Label.Name()] = len(img.code)
			}
		}
		img.local = append(img.local, labels)
	}

	addr := uint32(DataBase)
	for _, d := range p.DataBlocks() {
		var buf []byte
		for _, e := range d.Entries() {
			switch e := e.(type) {
			case program.ByteEntry:
				buf = append(buf, e.Data...)
			case program.WordEntry:
				for _, w := range e.Data {
					buf = append(buf, byte(w), byte(w>>8))
				}
			}
		}
		if addr+uint32(len(buf)) > 0xFFFA {
			return nil, errors.Errorf("data block %s does not fit below the vectors", d.Label().Name())
		}
		img.data[d.Label().Name()] = uint16(addr)
		img.rom[uint16(addr)] = buf
		addr += uint32(len(buf))
	}
	return img, nil
}

// Len is the number of instructions in the image.
func (img *Image) Len() int { return len(img.code) }

// Instruction returns the instruction at pc and the subroutine it belongs to.
func (img *Image) Instruction(pc int) (isa.Instruction, string) {
	return img.code[pc], img.procs[img.owner[pc]]
}

// Entry returns the position of the first instruction of the named
// subroutine.
func (img *Image) Entry(name string) (int, error) {
	pc, ok := img.procAt[name]
	if !ok {
		return 0, errors.Wrapf(ErrUnresolved, "subroutine %q", name)
	}
	return pc, nil
}

// DataAddr returns the address a data block was placed at.
func (img *Image) DataAddr(name string) (uint16, bool) {
	a, ok := img.data[name]
	return a, ok
}

// target resolves a branch or jump label seen at pc. Labels local to the
// current subroutine win over subroutine names.
func (img *Image) target(pc int, l isa.Label) (int, error) {
	if pc < len(img.owner) {
		if t, ok := img.local[img.owner[pc]][l.Name()]; ok {
			return t, nil
		}
	}
	if t, ok := img.procAt[l.Name()]; ok {
		return t, nil
	}
	return 0, errors.Wrapf(ErrUnresolved, "jump target %q", l.Name())
}

func (img *Image) dataAddr(l isa.Label) (uint16, error) {
	a, ok := img.data[l.Name()]
	if !ok {
		return 0, errors.Wrapf(ErrUnresolved, "data label %q", l.Name())
	}
	return a, nil
}
