package liquid

// BufferPair tracks which of two slots is the front (read) slot.
// It holds no buffers itself, only the index, so whoever owns the
// buffers decides what a slot is.
type BufferPair struct {
	front int
	swaps uint64
}

// Front is the slot holding the latest field. Only this one may be read.
func (b *BufferPair) Front() int {
	return b.front
}

// Back is the slot the next step writes into.
func (b *BufferPair) Back() int {
	return 1 - b.front
}

func (b *BufferPair) Swap() {
	b.front = 1 - b.front
	b.swaps++
}

func (b *BufferPair) Swaps() uint64 {
	return b.swaps
}
