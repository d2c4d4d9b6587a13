// Package vrc7 emulates the Konami VRC7 audio: six two-operator FM channels
// programmed through an address port at $9010 and a data port at $9030.
//
// The core runs one FM sample every 36 CPU cycles, close to the chip's
// 49716 Hz rate, and outputs each channel to the mixer as it's generated.
package vrc7

import (
	"famitone/emu/log"
	"famitone/hw/hwdefs"
	"famitone/hw/hwio"
	"famitone/hw/snapshot"
)

type mixer interface {
	AddDelta(ch hwdefs.ChannelID, time uint32, delta int16)
}

const (
	NumChannels = 6

	// SampleRate is the FM sample rate, in Hz.
	SampleRate = 49716

	sampleCycles = 36
)

// LFO periods, in samples.
const (
	amPeriod  = SampleRate * 10 / 37 // 3.7 Hz
	vibPeriod = SampleRate * 10 / 64 // 6.4 Hz
	amDepth   = 13 * 4               // 4.8 dB
)

var vibTable = [8]int32{0, 1, 2, 1, 0, -1, -2, -1}

type channel struct {
	id   hwdefs.ChannelID
	last int16

	fnum  uint32
	block uint32
	key   bool
	sus   bool
	inst  uint8
	vol   uint8

	op [2]operator
}

func (c *channel) rks(ksr bool) uint8 {
	r := uint8(c.block<<1 | c.fnum>>8)
	if !ksr {
		r >>= 2
	}
	return r
}

// kslAtten returns the key scale attenuation for a KSL setting.
func (c *channel) kslAtten(ksl uint8) uint32 {
	if ksl == 0 {
		return 0
	}
	v := kslTable[c.fnum>>5] - 8*int32(7-c.block)
	if v <= 0 {
		return 0
	}
	return uint32(v) * 8 >> (3 - ksl)
}

type VRC7 struct {
	mixer mixer
	chans [NumChannels]channel
	regs  [0x40]uint8

	patches [16]patch

	time      uint32
	clock     uint32
	egCounter uint32
	amPhase   uint32
	vibPhase  uint32

	ADDR hwio.Reg8 `hwio:"bank=0,offset=0x0,writeonly"`
	DATA hwio.Reg8 `hwio:"bank=1,offset=0x0,writeonly,wcb"`
}

func New(mixer mixer) *VRC7 {
	v := &VRC7{mixer: mixer}
	for i := range v.chans {
		v.chans[i].id = hwdefs.VRC7Ch1 + hwdefs.ChannelID(i)
	}
	for i := 1; i < len(romPatches); i++ {
		v.patches[i] = decodePatch(romPatches[i])
	}
	hwio.MustInitRegs(v)
	v.Reset()
	return v
}

// Map maps the address port at $9010 and the data port at $9030.
func (v *VRC7) Map(t *hwio.Table) {
	t.MapBank(0x9010, v, 0)
	t.MapBank(0x9030, v, 1)
}

func (v *VRC7) Reset() {
	clear(v.regs[:])
	v.patches[0] = patch{}
	v.time = 0
	v.clock = 0
	v.egCounter = 0
	v.amPhase = 0
	v.vibPhase = 0
	for i := range v.chans {
		c := &v.chans[i]
		*c = channel{id: c.id}
		c.op[0].reset()
		c.op[1].reset()
	}
}

func (v *VRC7) WriteDATA(_, val uint8) {
	v.WriteReg(v.ADDR.Value, val)
}

// WriteReg writes an internal register. Writes outside the register map are
// ignored.
func (v *VRC7) WriteReg(reg, val uint8) {
	if reg >= 0x40 {
		return
	}
	v.regs[reg] = val

	switch {
	case reg < 0x08:
		v.patches[0] = decodePatch([8]uint8(v.regs[:8]))
	case reg >= 0x10 && reg <= 0x15:
		c := &v.chans[reg&0x0F]
		c.fnum = c.fnum&0x100 | uint32(val)
	case reg >= 0x20 && reg <= 0x25:
		c := &v.chans[reg&0x0F]
		c.fnum = c.fnum&0xFF | uint32(val&0x01)<<8
		c.block = uint32(val>>1) & 0x07
		c.sus = val&0x20 != 0
		key := val&0x10 != 0
		switch {
		case key && !c.key:
			c.op[0].keyOn()
			c.op[1].keyOn()
		case !key && c.key:
			c.op[0].keyOff()
			c.op[1].keyOff()
		}
		c.key = key
	case reg >= 0x30 && reg <= 0x35:
		c := &v.chans[reg&0x0F]
		c.inst = val >> 4
		c.vol = val & 0x0F
	}

	log.ModVRC7.DebugZ("write reg").Hex8("reg", reg).Hex8("val", val).End()
}

// Reg returns the last value written to an internal register.
func (v *VRC7) Reg(reg uint8) uint8 {
	return v.regs[reg&0x3F]
}

func (v *VRC7) Process(cycles uint32) {
	for cycles > 0 {
		run := min(cycles, sampleCycles-v.clock)
		v.clock += run
		v.time += run
		cycles -= run
		if v.clock == sampleCycles {
			v.clock = 0
			v.step()
		}
	}
}

func (v *VRC7) EndFrame() {
	v.time = 0
}

func (v *VRC7) step() {
	v.egCounter++
	v.amPhase = (v.amPhase + 1) % amPeriod
	v.vibPhase = (v.vibPhase + 1) % vibPeriod

	pos := v.amPhase * 2 * amDepth / amPeriod
	am := pos
	if pos > amDepth {
		am = 2*amDepth - pos
	}
	vib := vibTable[v.vibPhase*8/vibPeriod]

	for i := range v.chans {
		c := &v.chans[i]
		out := v.stepChannel(c, am, vib) >> 1
		if out != c.last {
			v.mixer.AddDelta(c.id, v.time, out-c.last)
			c.last = out
		}
	}
}

func (v *VRC7) stepChannel(c *channel, am uint32, vib int32) int16 {
	p := &v.patches[c.inst]

	var idx [2]uint32
	for i := range c.op {
		op, par := &c.op[i], &p.op[i]
		op.stepEnvelope(par, c.rks(par.ksr), c.sus, v.egCounter)

		fnum := c.fnum
		if par.vib {
			fnum = uint32(int32(fnum) + vib*int32(fnum>>7))
		}
		op.phase = (op.phase + ((fnum<<c.block)*par.mul)>>1) & 0x7FFFF
		idx[i] = op.phase >> 9
	}

	mod, car := &c.op[0], &c.op[1]
	mp, cp := &p.op[0], &p.op[1]

	atten := mod.eg + uint32(p.tl)<<3 + c.kslAtten(mp.ksl)
	if mp.am {
		atten += am
	}
	var fb uint32
	if p.fb != 0 {
		fb = uint32((int32(mod.prev[0]) + int32(mod.prev[1])) >> (9 - p.fb))
	}
	m := mod.output(idx[0]+fb, atten, mp.rectify)

	atten = car.eg + uint32(c.vol)<<5 + c.kslAtten(cp.ksl)
	if cp.am {
		atten += am
	}
	return car.output(idx[1]+uint32(int32(m)>>1), atten, cp.rectify)
}

// Frequency returns the frequency in Hz of a channel.
func (v *VRC7) Frequency(ch int) float64 {
	if ch < 0 || ch >= NumChannels {
		return 0
	}
	c := &v.chans[ch]
	return SampleRate * float64(c.fnum) / float64(uint32(1)<<(19-c.block))
}

func (v *VRC7) State() *snapshot.VRC7 {
	var state snapshot.VRC7
	state.Address = v.ADDR.Value
	state.Regs = v.regs
	for i, c := range v.chans {
		state.Channels[i] = snapshot.VRC7Channel{
			Patch:  c.inst,
			Volume: c.vol,
			Key:    c.key,
			Output: c.last,
		}
	}
	return &state
}
