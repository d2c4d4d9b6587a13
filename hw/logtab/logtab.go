// Package logtab provides the fixed-point logarithmic volume tables used to
// scale amplitudes without divisions.
//
// A log value l encodes sign in bit 0 and an attenuation in the upper bits,
// with 1<<(LogBits+1) units per halving of the amplitude.
package logtab

import "math"

const (
	LogBits    = 12
	LinBits    = 7
	LogLinBits = 30

	// RoundTripShift is the shift under which LogToLinear inverts LinearToLog.
	RoundTripShift = LogLinBits - LinBits
)

var (
	logtbl    [1 << LogBits]uint32
	lineartbl [1<<LinBits + 1]uint32
)

func init() {
	for i := range logtbl {
		a := float64(1<<LogLinBits) / math.Pow(2, float64(i)/(1<<LogBits))
		logtbl[i] = uint32(a)
	}
	lineartbl[0] = LogLinBits << LogBits
	for i := 1; i < len(lineartbl); i++ {
		a := float64(i << (LogLinBits - LinBits))
		ua := uint32((LogLinBits - math.Log2(a)) * (1 << LogBits))
		lineartbl[i] = ua << 1
	}
}

// LinearToLog converts an amplitude in [-128, 128] to the log domain.
func LinearToLog(l int32) uint32 {
	if l < 0 {
		return lineartbl[-l] + 1
	}
	return lineartbl[l]
}

// LogToLinear converts back to a linear amplitude, shifted right by sft
// halvings. Attenuations past LogLinBits halvings yield 0.
func LogToLinear(l uint32, sft uint32) int32 {
	l += sft << (LogBits + 1)
	sft = l >> (LogBits + 1)
	if sft >= LogLinBits {
		return 0
	}
	ofs := (l >> 1) & (1<<LogBits - 1)
	ret := int32(logtbl[ofs] >> sft)
	if l&1 != 0 {
		return -ret
	}
	return ret
}

// Mul multiplies two linear amplitudes in the log domain. The result is
// a*b scaled by 2^(16-sft), so Mul(a, b, RoundTripShift) is a*b/128.
func Mul(a, b int32, sft uint32) int32 {
	la, lb := LinearToLog(a), LinearToLog(b)
	sign := (la ^ lb) & 1
	return LogToLinear((la&^1)+(lb&^1)|sign, sft)
}
