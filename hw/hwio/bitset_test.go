package hwio

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBitset(t *testing.T) {
	var b Bitset
	b.SetAll()
	if got := b.Count(); got != NumBits {
		t.Fatalf("Count() after SetAll = %d, want %d", got, NumBits)
	}

	b.Reset()
	for i := range NumBits {
		b.Set(uint(i))
		if !b.Test(uint(i)) {
			t.Fatalf("Bit %d is not set", i)
		}
		b.Clear(uint(i))
		if b.Test(uint(i)) {
			t.Fatalf("Bit %d is set", i)
		}
	}
}

func TestBitsetRanges(t *testing.T) {
	var b Bitset
	rng := rand.New(rand.NewPCG(1, 2))

	for range 2000 {
		start := rng.UintN(NumBits)
		end := rng.UintN(NumBits)
		if start > end {
			start, end = end, start
		}
		if start == end {
			end++
		}

		b.Reset()
		b.SetRange(start, end)
		if got, want := b.Count(), int(end-start); got != want {
			t.Fatalf("SetRange(%d, %d): Count() = %d, want %d", start, end, got, want)
		}
		for _, i := range []uint{start, end - 1} {
			if !b.Test(i) {
				t.Fatalf("SetRange(%d, %d) but bit %d is not set", start, end, i)
			}
		}
		if start > 0 && b.Test(start-1) {
			t.Fatalf("SetRange(%d, %d) but bit %d is set", start, end, start-1)
		}

		b.SetAll()
		b.ClearRange(start, end)
		if got, want := b.Count(), NumBits-int(end-start); got != want {
			t.Fatalf("ClearRange(%d, %d): Count() = %d, want %d", start, end, got, want)
		}
	}
}

func TestBitsetAll(t *testing.T) {
	var b Bitset
	want := []uint16{0x0000, 0x003F, 0x0040, 0x4000, 0x9010, 0xFFFF}
	for _, a := range want {
		b.Set(uint(a))
	}
	if diff := cmp.Diff(want, slices.Collect(b.All())); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}
}
