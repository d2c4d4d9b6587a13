package vrc7

import "math"

// Attenuations are 10-bit values in 0.09375 dB units.
const maxAtten = 0x3FF

// Quarter-sine table in the log domain (-log2 in 4.8 fixed point) and the
// matching 2^-x table used to go back to linear.
var (
	logSin [256]uint16
	exp2   [256]uint16
)

// Key scale levels by F-number high nibble, in 0.75 dB units at block 7.
var kslTable = [16]int32{0, 24, 32, 37, 40, 43, 45, 47, 48, 50, 51, 52, 53, 54, 55, 56}

func init() {
	for i := range logSin {
		s := math.Sin(float64(2*i+1) / 512 * math.Pi / 2)
		logSin[i] = uint16(math.Round(-math.Log2(s) * 256))
	}
	for i := range exp2 {
		exp2[i] = uint16(math.Round(math.Pow(2, 1-float64(i+1)/256) * 1024))
	}
}

// sinOut converts a 10-bit phase index and an attenuation into a signed
// 13-bit sample.
func sinOut(idx uint32, atten uint32, rectify bool) int16 {
	idx &= 0x3FF
	neg := idx&0x200 != 0
	if neg && rectify {
		return 0
	}
	i := idx & 0xFF
	if idx&0x100 != 0 {
		i = 0xFF - i
	}

	total := uint32(logSin[i]) + atten<<2
	lin := int16((uint32(exp2[total&0xFF]) << 2) >> (total >> 8))
	if neg {
		return -lin
	}
	return lin
}

type egState uint8

const (
	egAttack egState = iota
	egDecay
	egSustain
	egRelease
)

var egPatterns = [4][8]uint8{
	{0, 1, 0, 1, 0, 1, 0, 1},
	{0, 1, 0, 1, 1, 1, 0, 1},
	{0, 1, 1, 1, 0, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 1},
}

var egHighRates = [16][8]uint8{
	{1, 1, 1, 1, 1, 1, 1, 1},
	{1, 1, 1, 2, 1, 1, 1, 2},
	{1, 2, 1, 2, 1, 2, 1, 2},
	{1, 2, 2, 2, 1, 2, 2, 2},
	{2, 2, 2, 2, 2, 2, 2, 2},
	{2, 2, 2, 4, 2, 2, 2, 4},
	{2, 4, 2, 4, 2, 4, 2, 4},
	{2, 4, 4, 4, 2, 4, 4, 4},
	{4, 4, 4, 4, 4, 4, 4, 4},
	{4, 4, 4, 8, 4, 4, 4, 8},
	{4, 8, 4, 8, 4, 8, 4, 8},
	{4, 8, 8, 8, 4, 8, 8, 8},
	{8, 8, 8, 8, 8, 8, 8, 8},
	{8, 8, 8, 8, 8, 8, 8, 8},
	{8, 8, 8, 8, 8, 8, 8, 8},
	{8, 8, 8, 8, 8, 8, 8, 8},
}

// egIncrement returns the envelope step for a 6-bit rate at a given tick of
// the envelope counter.
func egIncrement(rate uint8, counter uint32) uint8 {
	switch {
	case rate < 4:
		return 0
	case rate >= 48:
		return egHighRates[rate-48][counter&7]
	}
	shift := 13 - uint32(rate>>2)
	if counter&(1<<shift-1) != 0 {
		return 0
	}
	return egPatterns[rate&3][(counter>>shift)&7]
}

type operator struct {
	phase uint32 // 19 bits
	eg    uint32
	state egState
	prev  [2]int16
}

func (o *operator) reset() {
	*o = operator{eg: maxAtten, state: egRelease}
}

func (o *operator) keyOn() {
	o.phase = 0
	o.state = egAttack
}

func (o *operator) keyOff() {
	o.state = egRelease
}

// rate computes the effective envelope rate for a 4-bit rate setting.
func rate(r uint8, rks uint8) uint8 {
	if r == 0 {
		return 0
	}
	return min(63, r*4+rks)
}

func (o *operator) stepEnvelope(p *opParams, rks uint8, sus bool, counter uint32) {
	if o.state == egDecay && o.eg >= uint32(p.sl)<<5 {
		o.state = egSustain
	}

	var r uint8
	switch o.state {
	case egAttack:
		r = rate(p.ar, rks)
	case egDecay:
		r = rate(p.dr, rks)
	case egSustain:
		if p.sustained {
			return
		}
		r = rate(p.rr, rks)
	case egRelease:
		switch {
		case sus:
			r = rate(5, rks)
		case p.sustained:
			r = rate(p.rr, rks)
		default:
			r = rate(7, rks)
		}
	}

	if o.state == egAttack && r >= 60 {
		o.eg = 0
		o.state = egDecay
		return
	}
	inc := uint32(egIncrement(r, counter))
	if inc == 0 {
		return
	}

	if o.state == egAttack {
		step := (^int32(o.eg) * int32(inc)) >> 4
		if eg := int32(o.eg) + step; eg > 0 {
			o.eg = uint32(eg)
		} else {
			o.eg = 0
		}
		if o.eg == 0 {
			o.state = egDecay
		}
		return
	}
	o.eg = min(maxAtten, o.eg+inc)
}

func (o *operator) output(idx uint32, atten uint32, rectify bool) int16 {
	out := sinOut(idx, min(atten, maxAtten), rectify)
	o.prev[1] = o.prev[0]
	o.prev[0] = out
	return out
}
