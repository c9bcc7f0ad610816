package render

import (
	"image"
	"image/color"
	"math/rand/v2"
	"testing"
)

func aRandomPaletted(width, height int) *image.Paletted {
	p := image.NewPaletted(image.Rect(0, 0, width, height), color.Palette{color.Black, color.White})
	for i := range p.Pix {
		p.Pix[i] = byte(rand.IntN(2))
	}
	return p
}

func TestToPackedBitmapRoundTrip(t *testing.T) {
	const testCaseCount = 20

	for i := 0; i < testCaseCount; i++ {
		width, height := 1+rand.IntN(200), 1+rand.IntN(100)
		p := aRandomPaletted(width, height)

		b, err := ToPackedBitmap(p)
		if err != nil {
			t.Fatal(err)
		}
		if b.Width() != width || b.Height() != height {
			t.Fatalf("Bitmap is %s, want %dx%d", b, width, height)
		}

		// black is index 0 and maps to the lit bit
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				want := uint32(1 - p.ColorIndexAt(x, y))
				if got := b.GetPixel(x, y); got != want {
					t.Fatalf("Pixel (%d,%d) = %d, want %d (case %dx%d)", x, y, got, want, width, height)
				}
			}
		}
	}
}

func TestToPackedBitmapRejectsWidePalettes(t *testing.T) {
	p := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.White, color.Gray{0x80}})
	if _, err := ToPackedBitmap(p); err == nil {
		t.Errorf("Expected error for 3-colour palette")
	}
}

func TestForPanelClampsWidth(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1024, 256))
	out := ForPanel(src, 512)

	if got := out.Bounds().Dx(); got != 512 {
		t.Errorf("Output width %d, want 512", got)
	}
	if got := out.Bounds().Dy(); got != 128 {
		t.Errorf("Output height %d, want 128 (aspect preserved)", got)
	}
	if len(out.Palette) != 2 {
		t.Errorf("Output palette has %d colours, want 2", len(out.Palette))
	}
}

func TestForPanelKeepsNarrowImages(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 40))
	out := ForPanel(src, 512)

	if got := out.Bounds().Dx(); got != 100 {
		t.Errorf("Output width %d, want 100", got)
	}
}
