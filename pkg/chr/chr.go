// Package chr converts between images and NES pattern-table data: 8x8
// tiles of 2-bit pixels stored as two bitplanes of eight bytes each.
package chr

import (
	"image"
	"image/color"
	_ "image/png"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"nesgen/pkg/grid"
	"nesgen/pkg/palette"
)

const (
	TileSize  = 8
	TileBytes = 16
	// SheetTiles is the width of a pattern table viewed as a sheet.
	SheetTiles = 16
	// BankSize is one 8 KiB CHR-ROM bank, two pattern tables.
	BankSize = 8192
)

// ErrGeometry reports an image whose size is not a whole number of tiles.
var ErrGeometry = errors.New("image size is not a multiple of 8 pixels")

// Encode converts img into CHR bytes, tiles read left to right, top to
// bottom. Paletted images use the low two bits of each pixel's index;
// anything else is quantised to four levels of luminance, darkest first.
func Encode(img image.Image) ([]byte, error) {
	b := img.Bounds()
	if b.Dx()%TileSize != 0 || b.Dy()%TileSize != 0 || b.Empty() {
		return nil, errors.Wrapf(ErrGeometry, "%dx%d", b.Dx(), b.Dy())
	}
	cols := b.Dx() / TileSize
	tiles := cols * (b.Dy() / TileSize)
	out := make([]byte, tiles*TileBytes)
	pix := pixelFunc(img)
	for t := 0; t < tiles; t++ {
		tx, ty := grid.GetGridCoords(t, cols)
		tile := out[t*TileBytes : (t+1)*TileBytes]
		for y := 0; y < TileSize; y++ {
			for x := 0; x < TileSize; x++ {
				v := pix(b.Min.X+tx*TileSize+x, b.Min.Y+ty*TileSize+y)
				bit := byte(0x80) >> x
				if v&1 != 0 {
					tile[y] |= bit
				}
				if v&2 != 0 {
					tile[y+8] |= bit
				}
			}
		}
	}
	return out, nil
}

func pixelFunc(img image.Image) func(x, y int) byte {
	if p, ok := img.(*image.Paletted); ok {
		return func(x, y int) byte { return p.ColorIndexAt(x, y) & 3 }
	}
	return func(x, y int) byte {
		g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
		return g.Y >> 6
	}
}

// Decode renders CHR data as a paletted sheet tilesPerRow tiles wide,
// coloured with sp. A trailing partial tile is ignored.
func Decode(data []byte, tilesPerRow int, sp palette.SubPalette) *image.Paletted {
	if tilesPerRow <= 0 {
		tilesPerRow = SheetTiles
	}
	tiles := len(data) / TileBytes
	rows := (tiles + tilesPerRow - 1) / tilesPerRow
	img := image.NewPaletted(image.Rect(0, 0, tilesPerRow*TileSize, rows*TileSize), sp.Model())
	for t := 0; t < tiles; t++ {
		tx, ty := grid.GetGridCoords(t, tilesPerRow)
		tile := data[t*TileBytes : (t+1)*TileBytes]
		for y := 0; y < TileSize; y++ {
			lo, hi := tile[y], tile[y+8]
			for x := 0; x < TileSize; x++ {
				shift := 7 - x
				v := (lo>>shift)&1 | ((hi>>shift)&1)<<1
				img.SetColorIndex(tx*TileSize+x, ty*TileSize+y, v)
			}
		}
	}
	return img
}

// TileAt returns the 2-bit pixel at (x, y) of tile n.
func TileAt(data []byte, n, x, y int) byte {
	off := n * TileBytes
	if off+TileBytes > len(data) || x < 0 || x >= TileSize || y < 0 || y >= TileSize {
		return 0
	}
	shift := 7 - x
	return (data[off+y]>>shift)&1 | ((data[off+y+8]>>shift)&1)<<1
}

// Scale enlarges src by an integer factor with nearest-neighbour sampling,
// keeping tile edges sharp.
func Scale(src image.Image, factor int) *image.RGBA {
	if factor < 1 {
		factor = 1
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// LoadImage decodes a PNG or BMP file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open tile sheet")
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode tile sheet %s", path)
	}
	return img, nil
}

// EncodeFile is LoadImage followed by Encode.
func EncodeFile(path string) ([]byte, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	data, err := Encode(img)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return data, nil
}
