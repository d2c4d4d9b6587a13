package hwio

import (
	"fmt"
	"iter"
	"math/bits"
)

const (
	NumBits  = 0x10000 // 16-bit address space
	wordSize = 64
	numWords = NumBits / wordSize
)

// Bitset is a set of 16-bit addresses. Zero value is an empty set.
type Bitset struct {
	words [numWords]uint64
}

func (b *Bitset) Set(i uint) {
	b.words[i/wordSize] |= 1 << (i % wordSize)
}

func (b *Bitset) Clear(i uint) {
	b.words[i/wordSize] &^= 1 << (i % wordSize)
}

func (b *Bitset) Test(i uint) bool {
	return b.words[i/wordSize]&(1<<(i%wordSize)) != 0
}

// SetRange sets all bits in the half-open interval [start, end).
// It panics if start >= end or end > NumBits.
func (b *Bitset) SetRange(start, end uint) {
	b.applyRange(start, end, func(w *uint64, mask uint64) { *w |= mask })
}

// ClearRange clears all bits in the half-open interval [start, end).
// It panics if start >= end or end > NumBits.
func (b *Bitset) ClearRange(start, end uint) {
	b.applyRange(start, end, func(w *uint64, mask uint64) { *w &^= mask })
}

func (b *Bitset) applyRange(start, end uint, op func(*uint64, uint64)) {
	if start >= end || end > NumBits {
		panic(fmt.Sprintf("invalid range [%d, %d)", start, end))
	}
	first, last := start/wordSize, (end-1)/wordSize
	for w := first; w <= last; w++ {
		mask := ^uint64(0)
		if w == first {
			mask &= ^uint64(0) << (start % wordSize)
		}
		if w == last {
			mask &= ^uint64(0) >> (wordSize - 1 - (end-1)%wordSize)
		}
		op(&b.words[w], mask)
	}
}

func (b *Bitset) Reset() {
	clear(b.words[:])
}

func (b *Bitset) SetAll() {
	for i := range b.words {
		b.words[i] = ^uint64(0)
	}
}

// Count returns the number of set bits.
func (b *Bitset) Count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// All iterates over the set addresses, in increasing order.
func (b *Bitset) All() iter.Seq[uint16] {
	return func(yield func(uint16) bool) {
		for wi, w := range b.words {
			for w != 0 {
				tz := bits.TrailingZeros64(w)
				if !yield(uint16(wi*wordSize + tz)) {
					return
				}
				w &= w - 1
			}
		}
	}
}
