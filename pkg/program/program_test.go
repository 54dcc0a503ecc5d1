package program

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"nesgen/pkg/isa"
	"nesgen/pkg/memmap"
)

func TestAddSubroutine(t *testing.T) {
	p := New(nil)
	main, err := p.AddSubroutine("main")
	if err != nil {
		t.Fatalf("AddSubroutine(main): %v", err)
	}
	if _, err := p.AddSubroutine("main"); !errors.Is(err, ErrDuplicateSymbol) {
		t.Errorf("AddSubroutine(main) again: err = %v; want ErrDuplicateSymbol", err)
	}
	if _, err := p.AddSubroutine(""); err == nil {
		t.Errorf("AddSubroutine(\"\"): expected error")
	}
	got, err := p.Subroutine("main")
	if err != nil || got != main {
		t.Errorf("Subroutine(main) = %p, %v; want %p", got, err, main)
	}
	if _, err := p.Subroutine("nope"); !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("Subroutine(nope): err = %v; want ErrSymbolNotFound", err)
	}
}

func TestSubroutineOrder(t *testing.T) {
	p := New(nil)
	for _, n := range []string{"c", "a", "b"} {
		if _, err := p.AddSubroutine(n); err != nil {
			t.Fatal(err)
		}
	}
	var names []string
	for _, s := range p.Subroutines() {
		names = append(names, s.Name())
	}
	if spew.Sdump(names) != spew.Sdump([]string{"c", "a", "b"}) {
		t.Errorf("Subroutines() order = %v; want insertion order", names)
	}
}

func TestEntriesInCallOrder(t *testing.T) {
	p := New(nil)
	s, _ := p.AddSubroutine("s")
	loop := isa.NewLabel("loop")
	s.Label(loop).LDA(isa.Imm(1)).CommentPrev("one").Comment("line").BNE(loop).RTS()

	want := []Entry{
		LabelDef{Label: loop},
		Instruction{isa.Instruction{Op: isa.LDA, Operand: isa.Imm(1)}},
		InlineComment{Text: "one"},
		LineComment{Text: "line"},
		Instruction{isa.Instruction{Op: isa.BNE, Operand: loop}},
		Instruction{isa.Instruction{Op: isa.RTS, Operand: isa.Implied{}}},
	}
	if spew.Sdump(s.Entries()) != spew.Sdump(want) {
		t.Errorf("entries mismatch:\n got %s\nwant %s", spew.Sdump(s.Entries()), spew.Sdump(want))
	}
}

func TestVectors(t *testing.T) {
	p := New(nil)
	nmi, _ := p.AddSubroutine("nmi")
	if p.NMIVector() != nil {
		t.Errorf("NMIVector() before set = %v; want nil", p.NMIVector())
	}
	if err := p.SetNMIVector(nmi); err != nil {
		t.Fatalf("SetNMIVector: %v", err)
	}
	if p.NMIVector() != nmi {
		t.Errorf("NMIVector() = %v; want nmi", p.NMIVector())
	}

	other := New(nil)
	foreign, _ := other.AddSubroutine("nmi")
	if err := p.SetIRQVector(foreign); !errors.Is(err, ErrForeignSubroutine) {
		t.Errorf("SetIRQVector(foreign): err = %v; want ErrForeignSubroutine", err)
	}
	if err := p.SetResetVector(nil); err == nil {
		t.Errorf("SetResetVector(nil): expected error")
	}
}

func TestConstants(t *testing.T) {
	p := New(nil)
	p.AddConstant("SPEED", 3)
	p.AddConstant("GRAVITY", -1)
	p.AddConstant("SPEED", 4)

	if v, err := p.Constant("SPEED"); err != nil || v != 4 {
		t.Errorf("Constant(SPEED) = %d, %v; want 4", v, err)
	}
	if _, err := p.Constant("MISSING"); !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("Constant(MISSING): err = %v; want ErrSymbolNotFound", err)
	}
	names := p.ConstantNames()
	if len(names) != 2 || names[0] != "GRAVITY" || names[1] != "SPEED" {
		t.Errorf("ConstantNames() = %v; want [GRAVITY SPEED]", names)
	}
}

func TestDataBlocks(t *testing.T) {
	p := New(nil)
	pal := p.AddDataBlock(isa.NewLabel("palette"))
	pal.AddBytes([]byte{1, 2, 3}, "bg").AddWords([]uint16{0x1234}, "").AddBytes(nil, "ignored")
	if again := p.AddDataBlock(isa.NewLabel("palette")); again != pal {
		t.Errorf("AddDataBlock twice returned a different block")
	}
	p.AddDataBlock(isa.NewLabel("attrs"))

	if pal.Size() != 5 {
		t.Errorf("Size() = %d; want 5", pal.Size())
	}
	if n := len(pal.Entries()); n != 2 {
		t.Errorf("len(Entries()) = %d; want 2", n)
	}
	blocks := p.DataBlocks()
	if blocks[0].Label().Name() != "attrs" || blocks[1].Label().Name() != "palette" {
		t.Errorf("DataBlocks() not sorted by label")
	}
	if _, err := p.DataBlock(isa.NewLabel("missing")); !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("DataBlock(missing): err = %v; want ErrSymbolNotFound", err)
	}
}

func TestUniqueLabels(t *testing.T) {
	p := New(nil)
	a, _ := p.AddSubroutine("a")
	b, _ := p.AddSubroutine("b")
	a.Blocks().WaitVBlank()
	b.Blocks().WaitVBlank()
	a.Blocks().WaitVBlank()

	var got []string
	for _, s := range []*Subroutine{a, b} {
		for _, e := range s.Entries() {
			if l, ok := e.(LabelDef); ok {
				got = append(got, l.Label.Name())
			}
		}
	}
	want := []string{"@vblank0", "@vblank2", "@vblank1"}
	if spew.Sdump(got) != spew.Sdump(want) {
		t.Errorf("labels = %v; want %v", got, want)
	}
}

func TestStickyError(t *testing.T) {
	p := New(nil)
	s, _ := p.AddSubroutine("s")
	s.Blocks().ClearMemory(isa.MustAbs(0x0300, ""), 0).
		Blocks().ClearPage(isa.MustAbs(0x0301, "")).
		RTS()

	if !errors.Is(s.Err(), memmap.ErrInvalidBlockSize) {
		t.Errorf("Err() = %v; want first error ErrInvalidBlockSize", s.Err())
	}
	if err := p.Err(); !errors.Is(err, memmap.ErrInvalidBlockSize) {
		t.Errorf("Program.Err() = %v; want ErrInvalidBlockSize", err)
	}
	// Failed blocks append nothing, later instructions still do.
	if n := len(s.Entries()); n != 1 {
		t.Errorf("len(Entries()) = %d; want 1", n)
	}

	clean := New(nil)
	clean.AddSubroutine("ok")
	if err := clean.Err(); err != nil {
		t.Errorf("Err() on clean program = %v", err)
	}
}

func TestBlockArguments(t *testing.T) {
	zp := isa.MustZp(0x10, "p")
	top := isa.MustZp(0xFF, "top")
	tests := []struct {
		name  string
		build func(Blocks)
		want  error
	}{
		{"clear 257", func(b Blocks) { b.ClearMemory(isa.MustAbs(0x0300, ""), 257) }, memmap.ErrInvalidBlockSize},
		{"clear past end", func(b Blocks) { b.ClearMemory(isa.MustAbs(0xFFF0, ""), 100) }, isa.ErrAddressRange},
		{"clear16 zero", func(b Blocks) { b.ClearMemory16(isa.MustAbs(0x0300, ""), 0, zp, zp) }, memmap.ErrInvalidBlockSize},
		{"page misaligned", func(b Blocks) { b.ClearPage(isa.MustAbs(0x0280, "")) }, ErrAlignment},
		{"oam misaligned", func(b Blocks) { b.ClearOAMBuffer(isa.MustAbs(0x0201, "")) }, ErrAlignment},
		{"dma misaligned", func(b Blocks) { b.UploadSprites(isa.MustAbs(0x0210, "")) }, ErrAlignment},
		{"memset8 zero", func(b Blocks) { b.Memset8(isa.MustAbs(0x0300, ""), 1, 0, zp, zp) }, memmap.ErrInvalidBlockSize},
		{"memset16 zero", func(b Blocks) { b.Memset16(isa.MustAbs(0x0300, ""), 1, 0, zp, zp, zp) }, memmap.ErrInvalidBlockSize},
		{"memcpy zero", func(b Blocks) { b.Memcpy(zp, zp, 0, zp) }, memmap.ErrInvalidBlockSize},
		{"clear16 past end", func(b Blocks) { b.ClearMemory16(isa.MustAbs(0xFFF0, ""), 0x100, zp, zp) }, isa.ErrAddressRange},
		{"memset8 past end", func(b Blocks) { b.Memset8(isa.MustAbs(0xFFF0, ""), 1, 0x100, zp, zp) }, isa.ErrAddressRange},
		{"memset16 past end", func(b Blocks) { b.Memset16(isa.MustAbs(0xFFF0, ""), 1, 9, zp, zp, zp) }, isa.ErrAddressRange},
		{"memset16 to last byte", func(b Blocks) { b.Memset16(isa.MustAbs(0xFFF0, ""), 1, 8, zp, zp, zp) }, nil},
		{"clear16 to last byte", func(b Blocks) { b.ClearMemory16(isa.MustAbs(0xFF00, ""), 0x100, zp, zp) }, nil},
		{"pointer at $FF", func(b Blocks) { b.LoadNametable(isa.NewLabel("nt"), top) }, isa.ErrAddressRange},
		{"word past end", func(b Blocks) { b.SetAddrWord(isa.MustAbs(0xFFFF, ""), 1) }, isa.ErrAddressRange},
		{"page ok", func(b Blocks) { b.ClearPage(isa.MustAbs(0x0300, "")) }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(nil)
			s, _ := p.AddSubroutine("s")
			tt.build(s.Blocks())
			if tt.want == nil {
				if s.Err() != nil {
					t.Errorf("Err() = %v; want nil", s.Err())
				}
				return
			}
			if !errors.Is(s.Err(), tt.want) {
				t.Errorf("Err() = %v; want %v", s.Err(), tt.want)
			}
		})
	}
}

func TestLoopCount(t *testing.T) {
	tests := []struct {
		count  uint16
		lo, hi uint8
	}{
		{1, 1, 1},
		{255, 255, 1},
		{256, 0, 1},
		{257, 1, 2},
		{512, 0, 2},
		{0xFFFF, 0xFF, 0},
	}
	for _, tt := range tests {
		lo, hi := loopCount(tt.count)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("loopCount(%d) = %d, %d; want %d, %d", tt.count, lo, hi, tt.lo, tt.hi)
		}
	}
}

func TestInitStandardReset(t *testing.T) {
	p := New(nil)
	s, err := p.InitStandardReset()
	if err != nil {
		t.Fatalf("InitStandardReset: %v", err)
	}
	if s.Name() != ResetHandlerName || p.ResetVector() != s {
		t.Errorf("reset vector = %v; want %s", p.ResetVector(), ResetHandlerName)
	}
	if _, err := p.InitStandardReset(); !errors.Is(err, ErrDuplicateSymbol) {
		t.Errorf("second InitStandardReset: err = %v; want ErrDuplicateSymbol", err)
	}
}

func TestButtonString(t *testing.T) {
	tests := []struct {
		b    Button
		want string
	}{
		{0, "none"},
		{ButtonA, "A"},
		{ButtonUp | ButtonA, "A|Up"},
		{ButtonRight | ButtonStart, "Start|Right"},
	}
	for _, tt := range tests {
		if got := tt.b.String(); got != tt.want {
			t.Errorf("Button(%#x).String() = %q; want %q", uint8(tt.b), got, tt.want)
		}
	}
}
