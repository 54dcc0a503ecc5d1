package program

import "nesgen/pkg/isa"

// DataEntry is a ByteEntry or a WordEntry.
type DataEntry interface {
	Size() int
	isDataEntry()
}

// ByteEntry renders as one .byte line.
type ByteEntry struct {
	Data    []byte
	Comment string
}

// WordEntry renders as one .word line, little endian.
type WordEntry struct {
	Data    []uint16
	Comment string
}

func (e ByteEntry) Size() int { return len(e.Data) }
func (e WordEntry) Size() int { return 2 * len(e.Data) }

func (ByteEntry) isDataEntry() {}
func (WordEntry) isDataEntry() {}

// DataBlock is a labelled run of constant data placed in ROM.
type DataBlock struct {
	label   isa.Label
	entries []DataEntry
}

func (d *DataBlock) Label() isa.Label     { return d.label }
func (d *DataBlock) Entries() []DataEntry { return d.entries }

// AddBytes appends a .byte line. Empty data is ignored.
func (d *DataBlock) AddBytes(data []byte, comment string) *DataBlock {
	if len(data) == 0 {
		return d
	}
	d.entries = append(d.entries, ByteEntry{Data: append([]byte(nil), data...), Comment: comment})
	return d
}

// AddWords appends a .word line. Empty data is ignored.
func (d *DataBlock) AddWords(data []uint16, comment string) *DataBlock {
	if len(data) == 0 {
		return d
	}
	d.entries = append(d.entries, WordEntry{Data: append([]uint16(nil), data...), Comment: comment})
	return d
}

// Size is the number of bytes the block occupies.
func (d *DataBlock) Size() int {
	n := 0
	for _, e := range d.entries {
		n += e.Size()
	}
	return n
}
