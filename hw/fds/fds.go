// Package fds emulates the Famicom Disk System sound channel: a 64-step
// wavetable carrier, frequency modulated by a second unit that accumulates a
// signed bias from a 64-entry table of 3-bit deltas.
//
// The chip is rendered once per CPU cycle.
package fds

import (
	"famitone/emu/log"
	"famitone/hw/hwdefs"
	"famitone/hw/hwio"
	"famitone/hw/logtab"
	"famitone/hw/snapshot"
)

const (
	pgcpsBits = 32 - 16 - 6 // phase accumulator fractional bits
	egcpsBits = 12          // envelope clock fractional bits
	volBits   = 12

	// Render output is scaled down by this before reaching the mixer.
	outputShift = 12

	entryWidth = 1 << (pgcpsBits + 16)
)

type mixer interface {
	AddDelta(ch hwdefs.ChannelID, time uint32, delta int16)
}

type envelope struct {
	speed  uint8
	count  uint8
	mode   uint8 // bit 7: fixed volume, bit 6: increase
	volume uint8
}

func (eg *envelope) write(val uint8) {
	eg.mode = val & 0xC0
	if eg.mode&0x80 != 0 {
		eg.volume = val & 0x3F
	} else {
		eg.speed = val & 0x3F
	}
}

func (eg *envelope) step() {
	if eg.mode&0x80 != 0 {
		return
	}
	eg.count++
	if eg.count <= eg.speed {
		return
	}
	eg.count = 0
	if eg.mode&0x40 != 0 {
		if eg.volume < 0x1F {
			eg.volume++
		}
	} else if eg.volume > 0 {
		eg.volume--
	}
}

// unit is either the carrier or the modulator.
type unit struct {
	env envelope

	freq     uint32
	spdbase  uint32
	spd      uint32
	phase    uint32
	wave     [0x40]int8
	output   int8
	disabled bool
}

func (u *unit) setFreq(freq, phasecps uint32) {
	u.freq = freq
	u.spdbase = freq * phasecps
}

// index of the current wave entry.
func (u *unit) index() uint32 {
	return (u.phase >> (pgcpsBits + 16)) & 0x3F
}

// chip is the state cleared on reset.
type chip struct {
	carrier   unit
	modulator unit
	bias      int32
	hold      bool // carrier output is held while the wave RAM is writable

	phasecps   uint32
	envcnt     uint32
	envspd     uint32
	envcps     uint32
	envdisable bool

	lvl          uint8
	masterlevels [4]int32

	cycle      uint32
	lastOutput int32
}

type FDS struct {
	mixer mixer
	chip

	WAVE hwio.Device `hwio:"offset=0x00,size=0x40,rcb,pcb,wcb"`

	VOLENV    hwio.Reg8 `hwio:"offset=0x40,writeonly,wcb"`
	FREQLO    hwio.Reg8 `hwio:"offset=0x42,writeonly,wcb"`
	FREQHI    hwio.Reg8 `hwio:"offset=0x43,writeonly,wcb"`
	MODENV    hwio.Reg8 `hwio:"offset=0x44,writeonly,wcb"`
	MODBIAS   hwio.Reg8 `hwio:"offset=0x45,writeonly,wcb"`
	MODFREQLO hwio.Reg8 `hwio:"offset=0x46,writeonly,wcb"`
	MODFREQHI hwio.Reg8 `hwio:"offset=0x47,writeonly,wcb"`
	MODTABLE  hwio.Reg8 `hwio:"offset=0x48,writeonly,wcb"`
	MASTER    hwio.Reg8 `hwio:"offset=0x49,writeonly,wcb"`
	ENVSPEED  hwio.Reg8 `hwio:"offset=0x4A,writeonly,wcb"`

	VOLGAIN hwio.Reg8 `hwio:"offset=0x50,readonly,rcb,pcb=ReadVOLGAIN"`
	MODGAIN hwio.Reg8 `hwio:"offset=0x52,readonly,rcb,pcb=ReadMODGAIN"`
}

func New(mixer mixer) *FDS {
	f := &FDS{mixer: mixer}
	hwio.MustInitRegs(f)
	f.Reset()
	return f
}

// Map maps the FDS registers at $4040-$4092.
func (f *FDS) Map(t *hwio.Table) {
	t.MapBank(0x4040, f, 0)
}

// divFix returns p1/p2 with fix extra fractional bits, using integer
// arithmetic only.
func divFix(p1, p2, fix uint32) uint32 {
	ret := p1 / p2
	p1 %= p2
	for range fix {
		p1 += p1
		ret += ret
		if p1 >= p2 {
			p1 -= p2
			ret++
		}
	}
	return ret
}

func (f *FDS) Reset() {
	f.chip = chip{}

	// The chip is clocked at the CPU rate, 1/12th of the master clock.
	const rate = hwdefs.CPUClockNTSC
	f.envcps = divFix(hwdefs.MasterClockNTSC, 12*rate, egcpsBits+5-9+1)
	f.envspd = 0xE8 << egcpsBits
	f.envdisable = true
	f.phasecps = divFix(hwdefs.MasterClockNTSC, 12*rate, pgcpsBits)

	for i := range f.carrier.wave {
		if i < 0x20 {
			f.carrier.wave[i] = 0x1F
		} else {
			f.carrier.wave[i] = -0x20
		}
		f.modulator.wave[i] = 64
	}
	f.SetVolume(0)
}

// MasterLevel returns the gain of one of the 4 master volume levels, for a
// master volume offset vol.
func MasterLevel(vol uint32, lvl uint8) int32 {
	mv := ((vol + 196) << (logtab.LogBits - 8)) << 1
	l := logtab.LogToLinear(mv, logtab.LogLinBits-logtab.LinBits-volBits)
	switch lvl & 3 {
	case 0:
		return l * 2
	case 1:
		return l * 4 / 3
	case 2:
		return l * 2 / 2
	default:
		return l * 8 / 10
	}
}

// SetVolume sets the master volume offset, 0 being nominal.
func (f *FDS) SetVolume(vol uint32) {
	for lvl := range f.masterlevels {
		f.masterlevels[lvl] = MasterLevel(vol, uint8(lvl))
	}
}

func (f *FDS) ReadWAVE(addr uint16) uint8 {
	return uint8(f.carrier.wave[addr&0x3F] + 0x20)
}

func (f *FDS) PeekWAVE(addr uint16) uint8 {
	return f.ReadWAVE(addr)
}

func (f *FDS) WriteWAVE(addr uint16, val uint8) {
	f.carrier.wave[addr&0x3F] = int8(val&0x3F) - 0x20
}

// $4080
func (f *FDS) WriteVOLENV(_, val uint8) {
	f.carrier.env.write(val)
}

// $4082
func (f *FDS) WriteFREQLO(_, val uint8) {
	f.carrier.setFreq(f.carrier.freq&0xF00|uint32(val), f.phasecps)
}

// $4083
func (f *FDS) WriteFREQHI(_, val uint8) {
	f.envdisable = val&0x40 != 0
	f.writeFreqHi(&f.carrier, val)
}

func (f *FDS) writeFreqHi(u *unit, val uint8) {
	u.setFreq(u.freq&0xFF|uint32(val&0x0F)<<8, f.phasecps)
	u.disabled = val&0x80 != 0
	if u.disabled {
		u.phase = 0
	}

	log.ModFDS.DebugZ("write freq").
		Bool("modulator", u == &f.modulator).
		Uint("freq", uint64(u.freq)).
		Bool("disabled", u.disabled).
		End()
}

// $4084
func (f *FDS) WriteMODENV(_, val uint8) {
	f.modulator.env.write(val)
}

// $4085
func (f *FDS) WriteMODBIAS(_, val uint8) {
	f.bias = int32(val & 0x3F)
	if val&0x40 != 0 {
		f.bias -= 0x40
	}
	f.modulator.phase = 0
}

// $4086
func (f *FDS) WriteMODFREQLO(_, val uint8) {
	f.modulator.setFreq(f.modulator.freq&0xF00|uint32(val), f.phasecps)
}

// $4087
func (f *FDS) WriteMODFREQHI(_, val uint8) {
	f.writeFreqHi(&f.modulator, val)
}

// $4088: the modulation table is a 32 entries FIFO, each entry being written
// twice. It can only be written while the modulator is disabled.
func (f *FDS) WriteMODTABLE(_, val uint8) {
	if !f.modulator.disabled {
		return
	}
	w := &f.modulator.wave
	copy(w[:0x3E], w[2:])
	w[0x3E] = int8(val & 0x07)
	w[0x3F] = int8(val & 0x07)
}

// $4089
func (f *FDS) WriteMASTER(_, val uint8) {
	f.lvl = val & 3
	f.hold = val&0x80 != 0
}

// $408A
func (f *FDS) WriteENVSPEED(_, val uint8) {
	f.envspd = uint32(val) << egcpsBits
}

// $4090
func (f *FDS) ReadVOLGAIN(uint8) uint8 {
	return f.carrier.env.volume | 0x40
}

// $4092
func (f *FDS) ReadMODGAIN(uint8) uint8 {
	return f.modulator.env.volume | 0x40
}

var modAdjust = [8]int32{0, 1, 2, 4, 0, -4, -2, -1}

// adjustBias applies a modulation table entry to the bias, wrapping the
// result into [-64, 63].
func adjustBias(bias int32, entry int8) int32 {
	val := entry & 7
	if val == 4 {
		bias = 0
	} else {
		bias += modAdjust[val]
	}
	for bias > 63 {
		bias -= 128
	}
	for bias < -64 {
		bias += 128
	}
	return bias
}

// modulation returns the frequency offset applied to a carrier of frequency
// freq, for a given bias and modulator gain.
func modulation(bias int32, gain uint8, freq uint32) int32 {
	mod := bias * int32(gain)
	mod >>= 4
	if mod&0x0F != 0 {
		if bias < 0 {
			mod -= 1
		} else {
			mod += 2
		}
	}
	if mod > 193 {
		mod -= 258
	}
	if mod < -64 {
		mod += 256
	}
	return (mod * int32(freq)) >> 6
}

func (f *FDS) stepModulator() {
	m := &f.modulator
	m.spd = m.spdbase

	// Advance through the modulation table, one entry boundary at a time.
	for spd := m.spd; spd != 0; {
		left := entryWidth - (m.phase & (entryWidth - 1))
		if spd < left {
			m.phase += spd
			break
		}
		m.phase += left
		spd -= left
		m.output = m.wave[m.index()]
		f.bias = adjustBias(f.bias, m.output)
	}

	freq := int32(f.carrier.freq) + modulation(f.bias, m.env.volume, f.carrier.freq)
	f.carrier.spd = uint32(max(freq, 0)) * f.phasecps
}

// render runs the chip for one cycle and returns its output.
func (f *FDS) render() int32 {
	c := &f.carrier

	if !c.disabled && !f.hold {
		c.output = c.wave[c.index()]
	}

	if f.modulator.disabled {
		f.modulator.spd = f.modulator.spdbase
		c.spd = c.spdbase
	} else {
		f.stepModulator()
	}

	vol := min(int32(c.env.volume), 0x20)
	out := (int32(c.output) * vol * f.masterlevels[f.lvl]) >> (volBits - 4)

	if !f.envdisable && f.envspd != 0 {
		f.envcnt += f.envcps
		for f.envcnt >= f.envspd {
			f.envcnt -= f.envspd
			f.modulator.env.step()
			c.env.step()
		}
	}

	c.phase += c.spd

	if c.freq == 0 {
		return 0
	}
	return out
}

// Process runs the chip for the given number of CPU cycles.
func (f *FDS) Process(cycles uint32) {
	for range cycles {
		out := f.render() >> outputShift
		if out != f.lastOutput {
			f.mixer.AddDelta(hwdefs.FDSWave, f.cycle, int16(out-f.lastOutput))
			f.lastOutput = out
		}
		f.cycle++
	}
}

func (f *FDS) EndFrame() {
	f.cycle = 0
}

// Frequency returns the carrier frequency in Hz, or 0 if it's disabled.
func (f *FDS) Frequency() float64 {
	if f.carrier.disabled {
		return 0
	}
	return hwdefs.CPUClockNTSC * float64(f.carrier.freq) / 4194304
}

func (f *FDS) State() *snapshot.FDS {
	var state snapshot.FDS
	for i := range f.carrier.wave {
		state.Wave[i] = uint8(f.carrier.wave[i] + 0x20)
		state.ModTable[i] = f.modulator.wave[i]
	}
	state.EnvDisable = f.envdisable
	state.Bias = f.bias
	state.WaveFreq = f.carrier.freq
	state.ModFreq = f.modulator.freq
	state.WaveDisabled = f.carrier.disabled
	state.ModDisabled = f.modulator.disabled
	state.Volume = f.carrier.env.volume
	state.ModGain = f.modulator.env.volume
	state.MasterLevel = f.lvl
	state.Output = f.lastOutput
	return &state
}
