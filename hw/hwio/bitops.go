package hwio

type unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

func GetBit[T unsigned](v T, n uint) bool {
	return v>>n&1 != 0
}

func GetBiti[T unsigned](v T, n uint) T {
	return v >> n & 1
}

func SetBit[T unsigned](v *T, n uint) {
	*v |= 1 << n
}

func ClearBit[T unsigned](v *T, n uint) {
	*v &^= 1 << n
}

func FlipBit[T unsigned](v *T, n uint) {
	*v ^= 1 << n
}

// SetBitTo sets or clears bit n.
func SetBitTo[T unsigned](v *T, n uint, set bool) {
	if set {
		SetBit(v, n)
	} else {
		ClearBit(v, n)
	}
}

// Bits extracts the field of width w starting at bit lo.
func Bits[T unsigned](v T, lo, w uint) T {
	return v >> lo & (1<<w - 1)
}
