// Command chrview shows the tiles of a CHR bank or tile sheet image.
//
//	chrview tiles.chr [--palette palettes.bin] [--scale 3]
//
// Keys: Left/Right change page, P cycles the palette, G toggles the grid.
package main

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"nesgen/pkg/chr"
	"nesgen/pkg/grid"
	"nesgen/pkg/palette"
	"nesgen/pkg/resources"
	"nesgen/pkg/utils"
)

const (
	// one pattern table: 16x16 tiles
	pageTiles = chr.SheetTiles * chr.SheetTiles
	pageBytes = pageTiles * chr.TileBytes
	sheetSize = chr.SheetTiles * chr.TileSize
	statusH   = 16
)

type viewer struct {
	data     []byte
	palettes []palette.SubPalette
	pal      int
	page     int
	scale    int
	grid     bool

	sheet *ebiten.Image
	dirty bool
}

func newViewer(data []byte, set *palette.Set, scale int) *viewer {
	v := &viewer{data: data, palettes: []palette.SubPalette{palette.Grayscale}, scale: scale, dirty: true}
	if set != nil {
		v.palettes = append(v.palettes, set.Background[:]...)
		v.palettes = append(v.palettes, set.Sprites[:]...)
	}
	if v.scale < 1 {
		v.scale = 1
	}
	return v
}

func (v *viewer) pages() int {
	n := (len(v.data) + pageBytes - 1) / pageBytes
	if n == 0 {
		return 1
	}
	return n
}

func (v *viewer) setPage(p int) {
	n := v.pages()
	p = (p%n + n) % n
	if p != v.page {
		v.page = p
		v.dirty = true
	}
}

func (v *viewer) nextPalette() {
	v.pal = (v.pal + 1) % len(v.palettes)
	v.dirty = true
}

// image renders the current page at 1:1.
func (v *viewer) image() *image.Paletted {
	start := v.page * pageBytes
	end := start + pageBytes
	if start > len(v.data) {
		start = len(v.data)
	}
	if end > len(v.data) {
		end = len(v.data)
	}
	page := make([]byte, pageBytes)
	copy(page, v.data[start:end])
	return chr.Decode(page, chr.SheetTiles, v.palettes[v.pal])
}

// tileAt maps a screen position to a tile number in the whole bank.
func (v *viewer) tileAt(mx, my int) (int, bool) {
	cell := chr.TileSize * v.scale
	if mx < 0 || my < 0 {
		return 0, false
	}
	x, y := mx/cell, my/cell
	if x >= chr.SheetTiles || y >= chr.SheetTiles {
		return 0, false
	}
	n := v.page*pageTiles + grid.GetIndex(x, y, chr.SheetTiles)
	if n*chr.TileBytes >= len(v.data) {
		return 0, false
	}
	return n, true
}

func (v *viewer) status(mx, my int) string {
	s := fmt.Sprintf("page %d/%d  palette %d", v.page+1, v.pages(), v.pal)
	if n, ok := v.tileAt(mx, my); ok {
		s += fmt.Sprintf("  tile $%02X offset $%04X", n%pageTiles, n*chr.TileBytes)
	}
	return s
}

func (v *viewer) Update() error {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyRight), inpututil.IsKeyJustPressed(ebiten.KeyPageDown):
		v.setPage(v.page + 1)
	case inpututil.IsKeyJustPressed(ebiten.KeyLeft), inpututil.IsKeyJustPressed(ebiten.KeyPageUp):
		v.setPage(v.page - 1)
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		v.nextPalette()
	case inpututil.IsKeyJustPressed(ebiten.KeyG):
		v.grid = !v.grid
	}
	return nil
}

var gridColor = color.RGBA{0x40, 0x40, 0xFF, 0xFF}

func (v *viewer) Draw(screen *ebiten.Image) {
	if v.dirty || v.sheet == nil {
		v.sheet = ebiten.NewImageFromImage(chr.Scale(v.image(), v.scale))
		v.dirty = false
	}
	screen.DrawImage(v.sheet, nil)

	if v.grid {
		size := float32(sheetSize * v.scale)
		for i := 1; i < chr.SheetTiles; i++ {
			p := float32(i * chr.TileSize * v.scale)
			vector.StrokeLine(screen, p, 0, p, size, 1, gridColor, false)
			vector.StrokeLine(screen, 0, p, size, p, 1, gridColor, false)
		}
	}

	mx, my := ebiten.CursorPosition()
	ebitenutil.DebugPrintAt(screen, v.status(mx, my), 2, sheetSize*v.scale)
}

func (v *viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return sheetSize * v.scale, sheetSize*v.scale + statusH
}

// loadTiles reads raw CHR data, converting PNG and BMP sheets first.
func loadTiles(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".bmp":
		return chr.EncodeFile(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read CHR data")
	}
	return data, nil
}

func main() {
	var palPath string
	var scale int
	cmd := &cobra.Command{
		Use:   "chrview <tiles.chr|sheet.png|sheet.bmp>",
		Short: "View CHR tiles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := utils.GetPathInfo(args[0])
			if err != nil {
				return err
			}
			if !info.Exists || info.IsDir {
				return errors.Errorf("%s is not a file", args[0])
			}
			fullPath := info.Full
			data, err := loadTiles(fullPath)
			if err != nil {
				return err
			}
			var set *palette.Set
			if palPath != "" {
				r := resources.New()
				if err := r.LoadPalettes(palPath); err != nil {
					return err
				}
				s, _ := r.Palettes()
				set = &s
			}
			logrus.WithFields(logrus.Fields{"file": fullPath, "bytes": len(data)}).Info("loaded tiles")

			v := newViewer(data, set, scale)
			w, h := v.Layout(0, 0)
			ebiten.SetWindowSize(w, h)
			ebiten.SetWindowTitle("chrview - " + filepath.Base(fullPath))
			return ebiten.RunGame(v)
		},
	}
	cmd.Flags().StringVar(&palPath, "palette", "", "32-byte palette RAM image")
	cmd.Flags().IntVar(&scale, "scale", 3, "zoom factor")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
