package resources

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"

	"nesgen/pkg/chr"
	"nesgen/pkg/palette"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadCHR(t *testing.T) {
	tests := []struct {
		name string
		size int
		want error
	}{
		{"empty", 0, ErrCHRSize},
		{"one tile", 16, nil},
		{"full bank", 8192, nil},
		{"too big", 8193, ErrCHRSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			path := writeFile(t, "tiles.chr", bytes.Repeat([]byte{0xA5}, tt.size))
			err := r.LoadCHR(path)
			if !errors.Is(err, tt.want) && !(tt.want == nil && err == nil) {
				t.Fatalf("LoadCHR: err = %v; want %v", err, tt.want)
			}
			if tt.want != nil {
				if r.CHR() != nil {
					t.Errorf("failed load kept %d bytes", len(r.CHR()))
				}
				return
			}
			if len(r.CHR()) != tt.size || r.CHRPath() != path {
				t.Errorf("CHR() has %d bytes, path %q", len(r.CHR()), r.CHRPath())
			}
		})
	}
}

func TestLoadCHRMissing(t *testing.T) {
	if err := New().LoadCHR(filepath.Join(t.TempDir(), "nope.chr")); err == nil {
		t.Errorf("LoadCHR of a missing file: expected error")
	}
}

func TestUseCHRFile(t *testing.T) {
	r := New()
	r.SetUseCHRFile(true)
	if err := r.SetCHR(make([]byte, 32)); err != nil {
		t.Fatal(err)
	}
	if r.UseCHRFile() {
		t.Errorf("UseCHRFile() with in-memory data = true; want false")
	}
	if err := r.LoadCHR(writeFile(t, "a.chr", make([]byte, 32))); err != nil {
		t.Fatal(err)
	}
	if !r.UseCHRFile() {
		t.Errorf("UseCHRFile() after LoadCHR = false; want true")
	}
}

func TestLoadCHRImage(t *testing.T) {
	tile := []byte{0xFF, 0, 0, 0, 0, 0, 0, 0x81, 0, 0, 0, 0, 0, 0, 0, 0xFF}
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, chr.Decode(tile, 1, palette.Grayscale)); err != nil {
		t.Fatal(err)
	}
	r := New()
	r.SetUseCHRFile(true)
	if err := r.LoadCHRImage(writeFile(t, "tile.bmp", buf.Bytes())); err != nil {
		t.Fatalf("LoadCHRImage: %v", err)
	}
	if !bytes.Equal(r.CHR(), tile) {
		t.Errorf("CHR() = % X; want % X", r.CHR(), tile)
	}
	if r.UseCHRFile() {
		t.Errorf("image-derived CHR must be emitted inline")
	}
}

func TestNametablesSorted(t *testing.T) {
	r := New()
	r.AddNametable("title", "title.nam")
	r.AddNametable("level1", "l1.nam")
	r.AddNametable("title", "title2.nam")
	got := r.Nametables()
	want := []Nametable{{"level1", "l1.nam"}, {"title", "title2.nam"}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Nametables() = %v; want %v", got, want)
	}
}

func TestPalettes(t *testing.T) {
	r := New()
	if _, ok := r.Palettes(); ok {
		t.Errorf("Palettes() on new resources reported a set")
	}
	set := palette.Set{Background: [4]palette.SubPalette{{palette.Black, palette.White}}}
	path := writeFile(t, "game.pal", set.Bytes())
	if err := r.LoadPalettes(path); err != nil {
		t.Fatal(err)
	}
	got, ok := r.Palettes()
	if !ok || got != set {
		t.Errorf("Palettes() = %v, %v; want %v", got, ok, set)
	}
	if err := r.LoadPalettes(writeFile(t, "bad.pal", []byte{1, 2, 3})); err == nil {
		t.Errorf("LoadPalettes(3 bytes): expected error")
	}
}
