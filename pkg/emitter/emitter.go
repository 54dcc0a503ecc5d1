// Package emitter renders a program and its resources as ca65 assembly and
// the matching ld65 linker configuration.
package emitter

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"nesgen/pkg/program"
	"nesgen/pkg/resources"
)

var (
	// ErrMissingVector reports a program without a reset or NMI handler.
	ErrMissingVector = errors.New("mandatory vector not set")
	// ErrDuplicateSymbol marks diagnostics for a constant name that was
	// promoted with two different addresses. Emission continues.
	ErrDuplicateSymbol = errors.New("duplicate constant name")
)

// Options controls the text the emitter produces.
type Options struct {
	// EmitComments appends address names after numeric operands and
	// annotates inline CHR data with tile numbers.
	EmitComments bool
	// EmitAddressHints appends the numeric value after a promoted constant.
	EmitAddressHints bool
	// AutoCreateConstants replaces constant addresses by their names and
	// declares them at the top of the code segment.
	AutoCreateConstants bool
	Logger              logrus.FieldLogger
}

func DefaultOptions() Options {
	return Options{EmitComments: true, EmitAddressHints: true, AutoCreateConstants: true}
}

// Diagnostic describes a recovered constant conflict.
type Diagnostic struct {
	Err      error
	Name     string
	Value    uint16
	Previous uint16
	ZeroPage bool
	Message  string
}

func (d Diagnostic) String() string { return d.Message }

// Result reports what an EmitPrg call recovered from.
type Result struct {
	Diagnostics []Diagnostic
	// Constants lists the promoted constant names in declaration order.
	Constants []string
}

// Emitter is stateless between calls; every EmitPrg starts with an empty
// symbol table.
type Emitter struct {
	opts Options
	log  logrus.FieldLogger
}

func New(opts Options) *Emitter {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Emitter{opts: opts, log: log}
}

func (e *Emitter) Options() Options { return e.opts }

// text accumulates output lines.
type text struct {
	strings.Builder
}

func (t *text) line(format string, args ...any) {
	fmt.Fprintf(t, format+"\n", args...)
}

func write(w io.Writer, s string, what string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return errors.Wrapf(err, "write %s", what)
	}
	return nil
}

// EmitPrg writes the CODE segment (constants, subroutines, data blocks),
// the OAM buffer reservation and the vector table. Nothing is written
// unless the whole program renders.
func (e *Emitter) EmitPrg(w io.Writer, p *program.Program) (*Result, error) {
	if err := p.Err(); err != nil {
		return nil, errors.Wrap(err, "program has construction errors")
	}
	nmi, reset := p.NMIVector(), p.ResetVector()
	if nmi == nil {
		return nil, errors.Wrap(ErrMissingVector, "NMI")
	}
	if reset == nil {
		return nil, errors.Wrap(ErrMissingVector, "RESET")
	}

	reserved := map[string]bool{}
	for _, n := range p.ConstantNames() {
		reserved[n] = true
	}
	st := newSymbolTable(e.opts, reserved, func(d Diagnostic) {
		e.log.WithFields(logrus.Fields{
			"name":     d.Name,
			"value":    d.Value,
			"previous": d.Previous,
		}).Warn(d.Message)
	})

	var body text
	for _, s := range p.Subroutines() {
		if err := e.subroutine(&body, st, s); err != nil {
			return nil, err
		}
	}
	for _, d := range p.DataBlocks() {
		dataBlock(&body, d)
	}
	body.line(".segment \"OAM\"")
	body.line("%s:", program.OAMBuffer.Name())
	body.line(".res 256")
	body.line("")
	body.line(".segment \"VECTORS\"")
	body.line("  .word %s ; NMI", nmi.Name())
	body.line("  .word %s ; RESET", reset.Name())
	irq := "0"
	if s := p.IRQVector(); s != nil {
		irq = s.Name()
	}
	body.line("  .word %s ; IRQ", irq)
	body.line("")

	var out text
	out.line(".segment \"CODE\"")
	out.line("")
	if names := p.ConstantNames(); len(names) > 0 {
		out.line("; Program constants")
		for _, n := range names {
			v, _ := p.Constant(n)
			out.line("%s = %d", n, v)
		}
		out.line("")
	}
	res := &Result{Diagnostics: st.diags}
	if len(st.syms) > 0 {
		out.line("; Auto-collected constants")
		for _, n := range sortedSymbols(st.syms) {
			out.line("%s = %s", n, st.syms[n].literal())
			res.Constants = append(res.Constants, n)
		}
		out.line("")
	}
	out.WriteString(body.String())
	if err := write(w, out.String(), "program"); err != nil {
		return nil, err
	}
	return res, nil
}

// sortedSymbols orders zero-page constants before absolute ones, each by
// value and then by name.
func sortedSymbols(syms map[string]symbol) []string {
	names := make([]string, 0, len(syms))
	for n := range syms {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := syms[names[i]], syms[names[j]]
		if a.zeroPage != b.zeroPage {
			return a.zeroPage
		}
		if a.value != b.value {
			return a.value < b.value
		}
		return names[i] < names[j]
	})
	return names
}

func (e *Emitter) subroutine(t *text, st *symbolTable, s *program.Subroutine) error {
	t.line(".proc %s", s.Name())
	var last string
	var attachable bool
	flush := func() {
		if last != "" {
			t.line("%s", last)
		}
	}
	for _, entry := range s.Entries() {
		switch en := entry.(type) {
		case program.Instruction:
			m, err := en.Op.Mnemonic()
			if err != nil {
				return errors.Wrapf(err, "subroutine %s", s.Name())
			}
			flush()
			operand, hint := st.operand(en.Operand)
			last = "  " + m
			if operand != "" {
				last += " " + operand
			}
			if hint != "" {
				last += " ; " + hint
			}
			attachable = true
		case program.LabelDef:
			flush()
			last = en.Label.Name() + ":"
			attachable = true
		case program.LineComment:
			flush()
			last = "; " + en.Text
			attachable = false
		case program.InlineComment:
			if attachable {
				last += " ; " + en.Text
				continue
			}
			flush()
			last = "; " + en.Text
		}
	}
	flush()
	t.line(".endproc ;%s", s.Name())
	t.line("")
	return nil
}

func dataBlock(t *text, d *program.DataBlock) {
	t.line("%s:", d.Label().Name())
	for _, entry := range d.Entries() {
		var items []string
		var directive, comment string
		switch en := entry.(type) {
		case program.ByteEntry:
			directive, comment = ".byte", en.Comment
			for _, b := range en.Data {
				items = append(items, fmt.Sprintf("$%02X", b))
			}
		case program.WordEntry:
			directive, comment = ".word", en.Comment
			for _, w := range en.Data {
				items = append(items, fmt.Sprintf("$%04X", w))
			}
		}
		l := "  " + directive + " " + strings.Join(items, ",")
		if comment != "" {
			l += " ; " + comment
		}
		t.line("%s", l)
	}
	t.line("")
}

// LinkerConfig is the ld65 memory map: 32 KiB PRG at $8000, one 8 KiB CHR
// bank, the OAM shadow page at $0200 and general RAM from $0300.
const LinkerConfig = `MEMORY {
  HEADER:   start = $0000,  size = $0010, fill = yes;
  PRG:      start = $8000,  size = $8000, fill = yes, fillval = $FF;
  CHR:      start = $0000,  size = $2000, fill = yes, fillval = $00;
  RAM:      start = $0300,  size = $0500, type = rw;
  OAMBUF:   start = $0200,  size = $0100, type = rw;
}

SEGMENTS {
  HEADER:   load = HEADER,  type = ro;
  CODE:     load = PRG,     type = ro,    start = $8000;
  RODATA:   load = PRG,     type = ro;
  VECTORS:  load = PRG,     type = ro,    start = $FFFA;
  CHARS:    load = CHR,     type = ro;
  OAM:      load = OAMBUF,  type = bss;
  BSS:      load = RAM,     type = bss;
}
`

func (e *Emitter) EmitLinkerConfig(w io.Writer) error {
	return write(w, LinkerConfig, "linker config")
}

// Header holds the variable bytes of the 16-byte iNES header.
type Header struct {
	PRGBanks uint8 // 16 KiB units
	CHRBanks uint8 // 8 KiB units
	Flags6   uint8 // mapper low nibble, mirroring
	Flags7   uint8 // mapper high nibble
}

// EmitHeader writes the iNES header as the HEADER segment, preceded by the
// file banner.
func (e *Emitter) EmitHeader(w io.Writer, h Header) error {
	var t text
	t.line("; Generated by nesgen")
	t.line("; --------------------------")
	t.line("")
	t.line(".segment \"HEADER\"")
	t.line("  .byte $4E, $45, $53, $1A  ; 'NES' + MS-DOS EOF")
	t.line("  .byte $%02X                  ; PRG-ROM size (%d x 16KB)", h.PRGBanks, h.PRGBanks)
	t.line("  .byte $%02X                  ; CHR-ROM size (%d x 8KB)", h.CHRBanks, h.CHRBanks)
	t.line("  .byte $%02X                  ; Mapper low / mirroring", h.Flags6)
	t.line("  .byte $%02X                  ; Mapper high", h.Flags7)
	t.line("  .byte $00, $00, $00, $00, $00, $00, $00, $00  ; padding")
	t.line("; Header is total 16 bytes.")
	t.line("")
	return write(w, t.String(), "header")
}

const chrBytesPerLine = 16

// EmitChars writes the CHARS segment and, when r has nametables or
// palettes, the RODATA entries for them. Missing CHR data reserves a blank
// bank so the build can go ahead without final art.
func (e *Emitter) EmitChars(w io.Writer, r *resources.Resources) error {
	var t text
	t.line(".segment \"CHARS\"")
	data := r.CHR()
	switch {
	case len(data) == 0:
		e.log.Warn("no CHR data loaded; reserving a blank bank")
		t.line("; WARNING: No CHR data loaded")
		t.line(".res 8192 ; Reserving 8192 bytes of blank space")
	case r.UseCHRFile():
		t.line("; CHR data loaded from file: %s", r.CHRPath())
		t.line(".incbin \"%s\"", r.CHRPath())
	default:
		for i := 0; i < len(data); i += chrBytesPerLine {
			end := i + chrBytesPerLine
			if end > len(data) {
				end = len(data)
			}
			items := make([]string, 0, chrBytesPerLine)
			for _, b := range data[i:end] {
				items = append(items, fmt.Sprintf("$%02X", b))
			}
			l := "  .byte " + strings.Join(items, ", ")
			if e.opts.EmitComments {
				l += fmt.Sprintf("  ; tile %03d offset $%04X", i/16, i)
			}
			t.line("%s", l)
		}
	}
	t.line("")

	nts := r.Nametables()
	pal, hasPal := r.Palettes()
	if len(nts) > 0 || hasPal {
		t.line(".segment \"RODATA\"")
		if hasPal {
			b := pal.Bytes()
			t.line("%s:", resources.PaletteLabel)
			t.line("  .byte %s ; background", byteList(b[:16]))
			t.line("  .byte %s ; sprites", byteList(b[16:]))
		}
		for _, nt := range nts {
			t.line("%s:", nt.Label)
			t.line("  .incbin \"%s\"", nt.File)
		}
		t.line("")
	}
	return write(w, t.String(), "CHR data")
}

func byteList(b []byte) string {
	items := make([]string, len(b))
	for i, v := range b {
		items[i] = fmt.Sprintf("$%02X", v)
	}
	return strings.Join(items, ",")
}

// EmitStartup writes the STARTUP segment marker the nes target expects.
func (e *Emitter) EmitStartup(w io.Writer) error {
	return write(w, ".segment \"STARTUP\"\n", "startup")
}
