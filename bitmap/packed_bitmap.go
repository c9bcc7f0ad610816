// This package implements the word-packed bitmap structure used as the frame
// store for the panel. Pixels of 1, 2, 4, 8, 16 or 32 bits are packed into
// 32-bit words, with every row padded out to a whole number of words so that
// no pixel ever straddles a row boundary. Rows are loaded in bulk from the
// wire format produced by the render package.
package bitmap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
)

const wordBits = 32

// ErrRowSize is returned by LoadRow when the supplied buffer isn't exactly
// one stride of whole words.
var ErrRowSize = errors.New("row must be packed and word aligned")

// ErrOutOfRange is returned by PixelAt for coordinates outside the bitmap.
var ErrOutOfRange = errors.New("pixel coordinate out of range")

// A bitmap packed into 32-bit words. Pixel 0 of each word occupies the most
// significant bits, so a 1-bpp row reads left to right from the high bit down.
type PackedBitmap struct {
	data          []uint32
	width, height int
	bitsPerValue  int
	stride        int // words per row

	// precomputed at construction so the pixel path never divides
	xShift  uint
	xMask   int
	bitmask uint32
}

// NewPackedBitmap allocates a zeroed bitmap. bitsPerValue must divide a
// 32-bit word evenly; anything else would let pixels straddle words.
func NewPackedBitmap(width, height, bitsPerValue int) (*PackedBitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("Bitmap dimensions must be positive, got %dx%d", width, height)
	}
	switch bitsPerValue {
	case 1, 2, 4, 8, 16, 32:
	default:
		return nil, fmt.Errorf("Bits per value must evenly divide a %d-bit word, got %d", wordBits, bitsPerValue)
	}

	rowBits := width * bitsPerValue
	stride := rowBits / wordBits
	if rowBits%wordBits != 0 {
		stride++
	}

	// xShift = log2(pixels per word), found by doubling; exact because
	// 32/bitsPerValue is always a power of two for the allowed depths.
	xShift := uint(0)
	for powerOfTwo := 1; powerOfTwo < wordBits/bitsPerValue; powerOfTwo <<= 1 {
		xShift++
	}

	return &PackedBitmap{
		data:         make([]uint32, stride*height),
		width:        width,
		height:       height,
		bitsPerValue: bitsPerValue,
		stride:       stride,
		xShift:       xShift,
		xMask:        (1 << xShift) - 1,
		bitmask:      uint32(1)<<bitsPerValue - 1,
	}, nil
}

func (b *PackedBitmap) Width() int {
	return b.width
}

func (b *PackedBitmap) Height() int {
	return b.height
}

// Stride returns the number of 32-bit words occupied by one row.
func (b *PackedBitmap) Stride() int {
	return b.stride
}

func (b *PackedBitmap) BitsPerValue() int {
	return b.bitsPerValue
}

// Data exposes the backing words. The slice is owned by the bitmap; callers
// must not mutate it.
func (b *PackedBitmap) Data() []uint32 {
	return b.data
}

func (b *PackedBitmap) String() string {
	return fmt.Sprintf("PackedBitmap(%d,%d,%dbpp)", b.width, b.height, b.bitsPerValue)
}

// LoadRow overwrites row y with stride whole words taken from row. The
// buffer length must be exactly stride*4 bytes, otherwise ErrRowSize is
// returned and nothing is written. Words arrive most significant byte first;
// below 16 bits per value each word is byte-reversed as it is copied,
// because small-depth row producers emit bytes in the opposite order to the
// packing the pixel path expects. The boundary is strictly <16.
//
// y is not bounds-checked; the caller must keep 0 <= y < Height().
func (b *PackedBitmap) LoadRow(y int, row []byte) error {
	if len(row) != b.stride*4 {
		return ErrRowSize
	}

	base := y * b.stride
	for i := 0; i < b.stride; i++ {
		value := binary.BigEndian.Uint32(row[i*4:])
		if b.bitsPerValue < 16 {
			value = bits.ReverseBytes32(value)
		}
		b.data[base+i] = value
	}
	return nil
}

// GetPixel returns the packed value at (x, y) without bounds checking; the
// caller must pre-validate coordinates. Use PixelAt for a checked read.
//
// Below 8 bits per value the word holding x is located with the precomputed
// shift and the value is extracted most-significant-first. At 8 bits and
// above the pixel is addressed as data[y*stride + x*bytesPerValue] and a raw
// word is returned. That formula only lines up with the packing for
// whole-word pixels; it is kept as-is because existing row producers depend
// on it (see DESIGN.md).
func (b *PackedBitmap) GetPixel(x, y int) uint32 {
	rowStart := y * b.stride
	if b.bitsPerValue < 8 {
		word := b.data[rowStart+(x>>b.xShift)]
		return (word >> (wordBits - uint((x&b.xMask)+1)*uint(b.bitsPerValue))) & b.bitmask
	}
	bytesPerValue := b.bitsPerValue / 8
	return b.data[rowStart+x*bytesPerValue]
}

// PixelAt is the bounds-checked variant of GetPixel.
func (b *PackedBitmap) PixelAt(x, y int) (uint32, error) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return 0, ErrOutOfRange
	}
	return b.GetPixel(x, y), nil
}

// ChunkRows takes a horizontal slice of the bitmap with the given start row
// and height, sharing the backing words with the source bitmap.
func (b *PackedBitmap) ChunkRows(start int, height int) *PackedBitmap {
	return &PackedBitmap{
		data:         b.data[b.stride*start : b.stride*(start+height)],
		width:        b.width,
		height:       height,
		bitsPerValue: b.bitsPerValue,
		stride:       b.stride,
		xShift:       b.xShift,
		xMask:        b.xMask,
		bitmask:      b.bitmask,
	}
}

// RowBytes serialises row y back into the wire byte order LoadRow accepts,
// appending stride*4 bytes to dst. This is the inverse of LoadRow's copy.
func (b *PackedBitmap) RowBytes(dst []byte, y int) []byte {
	base := y * b.stride
	var word [4]byte
	for i := 0; i < b.stride; i++ {
		value := b.data[base+i]
		if b.bitsPerValue < 16 {
			value = bits.ReverseBytes32(value)
		}
		binary.BigEndian.PutUint32(word[:], value)
		dst = append(dst, word[:]...)
	}
	return dst
}
