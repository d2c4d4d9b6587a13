package vrc7

// Built-in instrument ROM. Instrument 0 is the user patch held in registers
// $00-$07.
var romPatches = [16][8]uint8{
	{},
	{0x03, 0x21, 0x05, 0x06, 0xE8, 0x81, 0x42, 0x27}, // bell
	{0x13, 0x41, 0x14, 0x0D, 0xD8, 0xF6, 0x23, 0x12}, // guitar
	{0x11, 0x11, 0x08, 0x08, 0xFA, 0xB2, 0x20, 0x12}, // piano
	{0x31, 0x61, 0x0C, 0x07, 0xA8, 0x64, 0x61, 0x27}, // flute
	{0x32, 0x21, 0x1E, 0x06, 0xE1, 0x76, 0x01, 0x28}, // clarinet
	{0x02, 0x01, 0x06, 0x00, 0xA3, 0xE2, 0xF4, 0xF4}, // rattling bell
	{0x21, 0x61, 0x1D, 0x07, 0x82, 0x81, 0x11, 0x07}, // trumpet
	{0x23, 0x21, 0x22, 0x17, 0xA2, 0x72, 0x01, 0x17}, // reed organ
	{0x35, 0x11, 0x25, 0x00, 0x40, 0x73, 0x72, 0x01}, // soft bell
	{0xB5, 0x01, 0x0F, 0x0F, 0xA8, 0xA5, 0x51, 0x02}, // xylophone
	{0x17, 0xC1, 0x24, 0x07, 0xF8, 0xF8, 0x22, 0x12}, // vibraphone
	{0x71, 0x23, 0x11, 0x06, 0x65, 0x74, 0x18, 0x16}, // brass
	{0x01, 0x02, 0xD3, 0x05, 0xC9, 0x95, 0x03, 0x02}, // bass guitar
	{0x61, 0x63, 0x0C, 0x00, 0x94, 0xC0, 0x33, 0xF6}, // synthesizer
	{0x21, 0x72, 0x0D, 0x00, 0xC1, 0xD5, 0x56, 0x06}, // chorus
}

// Frequency multipliers, doubled.
var mulTable = [16]uint32{1, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 20, 24, 24, 30, 30}

// opParams holds the decoded settings of one operator.
type opParams struct {
	am        bool
	vib       bool
	sustained bool
	ksr       bool
	mul       uint32
	ksl       uint8
	rectify   bool
	ar, dr    uint8
	sl, rr    uint8
}

// patch is a decoded instrument: modulator, carrier and modulator feedback.
type patch struct {
	op [2]opParams
	tl uint8 // modulator total level
	fb uint8
}

func decodePatch(b [8]uint8) patch {
	var p patch
	for i := range p.op {
		op := &p.op[i]
		op.am = b[i]&0x80 != 0
		op.vib = b[i]&0x40 != 0
		op.sustained = b[i]&0x20 != 0
		op.ksr = b[i]&0x10 != 0
		op.mul = mulTable[b[i]&0x0F]
		op.ksl = b[2+i] >> 6
		op.ar = b[4+i] >> 4
		op.dr = b[4+i] & 0x0F
		op.sl = b[6+i] >> 4
		op.rr = b[6+i] & 0x0F
	}
	p.tl = b[2] & 0x3F
	p.op[0].rectify = b[3]&0x08 != 0
	p.op[1].rectify = b[3]&0x10 != 0
	p.fb = b[3] & 0x07
	return p
}
