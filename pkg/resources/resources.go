// Package resources holds the graphics a ROM is built with: CHR tile data
// (inline bytes or a file the assembler includes), nametable files and the
// palette RAM image.
package resources

import (
	"os"
	"sort"

	"github.com/pkg/errors"

	"nesgen/pkg/chr"
	"nesgen/pkg/palette"
)

// ErrCHRSize reports CHR data that is empty or larger than one 8 KiB bank.
var ErrCHRSize = errors.New("CHR data must be 1 to 8192 bytes")

// PaletteLabel is the RODATA label palettes set with SetPalettes are
// emitted under.
const PaletteLabel = "palettes"

// Nametable is a label bound to a binary file included in RODATA.
type Nametable struct {
	Label string
	File  string
}

type Resources struct {
	chrData    []byte
	chrPath    string
	useFile    bool
	nametables map[string]string
	palettes   *palette.Set
}

func New() *Resources {
	return &Resources{nametables: map[string]string{}}
}

// LoadCHR reads a raw CHR file. The path is kept so the data can be
// emitted as an .incbin instead of inline bytes.
func (r *Resources) LoadCHR(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "load CHR")
	}
	if err := r.SetCHR(data); err != nil {
		return errors.Wrap(err, path)
	}
	r.chrPath = path
	return nil
}

// LoadCHRImage converts a PNG or BMP tile sheet into CHR data. The result
// has no backing file, so it is always emitted inline.
func (r *Resources) LoadCHRImage(path string) error {
	data, err := chr.EncodeFile(path)
	if err != nil {
		return err
	}
	if err := r.SetCHR(data); err != nil {
		return errors.Wrap(err, path)
	}
	r.useFile = false
	return nil
}

// SetCHR replaces the CHR data and forgets any file path.
func (r *Resources) SetCHR(data []byte) error {
	if len(data) == 0 || len(data) > chr.BankSize {
		return errors.Wrapf(ErrCHRSize, "got %d bytes", len(data))
	}
	r.chrData = append([]byte(nil), data...)
	r.chrPath = ""
	return nil
}

func (r *Resources) CHR() []byte     { return r.chrData }
func (r *Resources) CHRPath() string { return r.chrPath }

// SetUseCHRFile selects .incbin emission. It only takes effect when the
// data came from LoadCHR.
func (r *Resources) SetUseCHRFile(v bool) { r.useFile = v }

// UseCHRFile reports whether the emitter should reference the CHR file
// rather than inline its bytes.
func (r *Resources) UseCHRFile() bool { return r.useFile && r.chrPath != "" }

// AddNametable binds label to a binary file. Adding a label again
// replaces its file.
func (r *Resources) AddNametable(label, file string) {
	r.nametables[label] = file
}

// Nametables returns the bindings sorted by label.
func (r *Resources) Nametables() []Nametable {
	out := make([]Nametable, 0, len(r.nametables))
	for l, f := range r.nametables {
		out = append(out, Nametable{Label: l, File: f})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

func (r *Resources) SetPalettes(s palette.Set) {
	r.palettes = &s
}

// LoadPalettes reads a 32-byte palette RAM image.
func (r *Resources) LoadPalettes(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "load palettes")
	}
	s, err := palette.FromBytes(data)
	if err != nil {
		return errors.Wrap(err, path)
	}
	r.palettes = &s
	return nil
}

// Palettes returns the palette set, if one was given.
func (r *Resources) Palettes() (palette.Set, bool) {
	if r.palettes == nil {
		return palette.Set{}, false
	}
	return *r.palettes, true
}
