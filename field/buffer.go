package field

import (
	"gonum.org/v1/gonum/blas/blas32"
)

// Buffer is one grid of interleaved float32 channels.
// Row 0 is the bottom of the domain; index = (y*W + x)*C + channel.
type Buffer struct {
	W, H, C int
	Data    []float32
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(w, h int, f Format) *Buffer {
	c := f.Channels()
	return &Buffer{W: w, H: h, C: c, Data: make([]float32, w*h*c)}
}

// Index returns the offset of channel 0 of cell (x, y).
func (b *Buffer) Index(x, y int) int {
	return (y*b.W + x) * b.C
}

// At returns channel c of cell (x, y).
func (b *Buffer) At(x, y, c int) float32 {
	return b.Data[(y*b.W+x)*b.C+c]
}

// Set writes channel c of cell (x, y).
func (b *Buffer) Set(x, y, c int, v float32) {
	b.Data[(y*b.W+x)*b.C+c] = v
}

// Cells returns W*H.
func (b *Buffer) Cells() int {
	return b.W * b.H
}

func (b *Buffer) vec() blas32.Vector {
	return blas32.Vector{N: len(b.Data), Inc: 1, Data: b.Data}
}

// Clear zeroes every element.
func (b *Buffer) Clear() {
	clear(b.Data)
}

// CopyFrom copies src into b. Both must have the same shape.
func (b *Buffer) CopyFrom(src *Buffer) {
	if len(src.Data) != len(b.Data) {
		panic("field: CopyFrom shape mismatch")
	}
	blas32.Copy(src.vec(), b.vec())
}

// Scale multiplies every element by k.
func (b *Buffer) Scale(k float32) {
	if k == 1 {
		return
	}
	if k == 0 {
		b.Clear()
		return
	}
	blas32.Scal(k, b.vec())
}

// ScaleChannel multiplies one channel of every cell by k.
func (b *Buffer) ScaleChannel(c int, k float32) {
	if k == 1 || c < 0 || c >= b.C {
		return
	}
	n := b.Cells()
	if n == 0 {
		return
	}
	blas32.Scal(k, blas32.Vector{N: n, Inc: b.C, Data: b.Data[c:]})
}

// AddScaled computes b += k*src.
func (b *Buffer) AddScaled(k float32, src *Buffer) {
	if len(src.Data) != len(b.Data) {
		panic("field: AddScaled shape mismatch")
	}
	blas32.Axpy(k, src.vec(), b.vec())
}

// Mass returns the sum of absolute values over all channels.
// For non-negative fields such as dye this is the total amount.
func (b *Buffer) Mass() float32 {
	if len(b.Data) == 0 {
		return 0
	}
	return blas32.Asum(b.vec())
}

// ChannelMass returns the absolute sum of one channel.
func (b *Buffer) ChannelMass(c int) float32 {
	n := b.Cells()
	if n == 0 || c < 0 || c >= b.C {
		return 0
	}
	return blas32.Asum(blas32.Vector{N: n, Inc: b.C, Data: b.Data[c:]})
}
