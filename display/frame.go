package display

import (
	"fmt"

	"glimmer/bitmap"
)

// Device limits for the current panel hardware.
const (
	maxFrameStride = 0x10 // words per row
	maxFrameRows   = 256  // rows per frame command
)

// appendFrameCommands writes the bitmap into the provided buffer as frame
// commands, splitting it into several batches if it is taller than the
// largest frame the panel accepts in one command. Each row is emitted in
// load-row wire order, stride*4 bytes per row.
func appendFrameCommands(b *bitmap.PackedBitmap, d *[]byte) error {
	if b.Stride() > maxFrameStride {
		return fmt.Errorf("Bitmap too wide for panel: %s", b)
	}
	strideU8 := byte(b.Stride())

	for batchStart := 0; batchStart < b.Height(); batchStart += maxFrameRows {
		batchEnd := batchStart + maxFrameRows
		if batchEnd >= b.Height() {
			batchEnd = b.Height()
		}

		batch := b.ChunkRows(batchStart, batchEnd-batchStart)
		*d = append(*d, frameHeader(strideU8, uint16(batch.Height()))...)
		for y := 0; y < batch.Height(); y++ {
			*d = batch.RowBytes(*d, y)
		}
	}

	return nil
}
