// Package render turns arbitrary images into packed bitmaps the panel can
// display: scale to the panel width, convert to monochrome, dither, then
// pack each row into word-aligned load-row bytes.
package render

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/makeworld-the-better-one/dither/v2"
	"golang.org/x/image/draw"

	"glimmer/bitmap"
)

// ForPanel takes an image, monochrome-ifies it using dithering, and returns
// a two-colour paletted image no wider than maxWidth.
func ForPanel(i image.Image, maxWidth int) *image.Paletted {
	// determine width of the output, ready to scale
	newWidth := i.Bounds().Dx()
	if newWidth > maxWidth {
		newWidth = maxWidth
	}
	scaledBounds := image.Rect(0, 0, newWidth, i.Bounds().Dy()*newWidth/i.Bounds().Dx())
	scaledImage := image.NewRGBA(scaledBounds)
	// resize image using Catmull Rom scaling
	draw.CatmullRom.Scale(scaledImage, scaledBounds, i, i.Bounds(), draw.Over, nil)

	// turn full colour image into monochrome pixel by pixel
	monochromeImage := image.NewGray16(scaledBounds)
	for y := scaledBounds.Min.Y; y < scaledBounds.Max.Y; y++ {
		for x := scaledBounds.Min.X; x < scaledBounds.Max.X; x++ {
			originalColor := scaledImage.At(x, y)
			grayColor := color.Gray16Model.Convert(originalColor).(color.Gray16)
			grayValue := float64(grayColor.Y) / float64(0xFFFF)

			// gamma correction of 0.5, otherwise the dithered output comes
			// out darker on the panel than on a screen
			scaledGrayValue := math.Pow(grayValue, 0.5)
			scaledGrayColor := color.Gray16{Y: uint16(scaledGrayValue * float64(0xFFFF))}
			monochromeImage.Set(x, y, scaledGrayColor)
		}
	}

	// dither monochrome image to black and white
	palette := []color.Color{color.Black, color.White}
	ditherer := dither.NewDitherer(palette)
	ditherer.Matrix = dither.FloydSteinberg
	ditherer.Serpentine = true

	return ditherer.DitherPaletted(monochromeImage)
}

// colorMapFor maps each palette index to a bit value: 1 for the lit colour.
// The colour closest to white is treated as unlit.
func colorMapFor(p color.Palette) ([2]byte, error) {
	if len(p) != 2 {
		return [2]byte{}, fmt.Errorf("Image must have exactly 2 colours in its palette, got %d", len(p))
	}
	if p.Index(color.White) == 0 {
		return [2]byte{0, 1}, nil
	}
	return [2]byte{1, 0}, nil
}

// ToPackedBitmap packs a two-colour paletted image into a 1-bpp word-packed
// bitmap, loading one row at a time.
func ToPackedBitmap(p *image.Paletted) (*bitmap.PackedBitmap, error) {
	colorMap, err := colorMapFor(p.Palette)
	if err != nil {
		return nil, err
	}

	width, height := p.Bounds().Dx(), p.Bounds().Dy()
	b, err := bitmap.NewPackedBitmap(width, height, 1)
	if err != nil {
		return nil, err
	}

	row := make([]byte, b.Stride()*4)
	for y := 0; y < height; y++ {
		packRow(p, y, colorMap, row)
		if err := b.LoadRow(y, row); err != nil {
			return nil, fmt.Errorf("Couldn't load row %d:\n%w", y, err)
		}
	}
	return b, nil
}

// packRow fills dst with one row of pixel bits in load-row wire order. The
// packed words put pixel 0 in the most significant bit; the wire bytes of
// each word are reversed, mirroring the byte swap the bitmap applies below
// 16 bits per value.
func packRow(p *image.Paletted, y int, colorMap [2]byte, dst []byte) {
	min := p.Bounds().Min
	width := p.Bounds().Dx()

	for w := 0; w < len(dst)/4; w++ {
		var word uint32
		for i := 0; i < 32; i++ {
			x := w*32 + i
			if x >= width {
				break
			}
			bit := colorMap[p.ColorIndexAt(min.X+x, min.Y+y)]
			word |= uint32(bit&1) << (31 - uint(i))
		}
		binary.LittleEndian.PutUint32(dst[w*4:], word)
	}
}
