// Package vrc6 emulates the Konami VRC6 sound: two pulse channels with 8
// duty settings and a sawtooth channel.
package vrc6

import (
	"famitone/emu/log"
	"famitone/hw/hwdefs"
	"famitone/hw/hwio"
	"famitone/hw/snapshot"
)

type mixer interface {
	AddDelta(ch hwdefs.ChannelID, time uint32, delta int16)
}

// output reports level changes of a channel to the mixer.
type output struct {
	channel hwdefs.ChannelID
	mixer   mixer
	time    uint32
	last    int16
}

func (o *output) mix(val int16) {
	if val != o.last {
		o.mixer.AddDelta(o.channel, o.time, val-o.last)
		o.last = val
	}
}

func (o *output) endFrame() {
	o.time = 0
}

type Pulse struct {
	out output

	gate     bool
	enabled  bool
	duty     uint8
	volume   uint8
	period   uint16
	counter  int32
	dutyStep uint8

	CTRL   hwio.Reg8 `hwio:"offset=0x00,writeonly,wcb"`
	FREQLO hwio.Reg8 `hwio:"offset=0x01,writeonly,wcb"`
	FREQHI hwio.Reg8 `hwio:"offset=0x02,writeonly,wcb"`
}

func (p *Pulse) reset() {
	p.gate, p.enabled = false, false
	p.duty, p.volume = 0, 0
	p.period = 0
	p.counter = 0
	p.dutyStep = 0
	p.out.mix(0)
	p.out.endFrame()
}

func (p *Pulse) WriteCTRL(_, val uint8) {
	p.gate = val&0x80 != 0
	p.duty = (val&0x70)>>4 + 1
	p.volume = val & 0x0F
	if p.gate {
		p.out.mix(-int16(p.volume))
	}
}

func (p *Pulse) WriteFREQLO(_, val uint8) {
	p.period = p.period&0xF00 | uint16(val)
}

func (p *Pulse) WriteFREQHI(_, val uint8) {
	// The phase is continuously reset while the channel is disabled. The fine
	// counter is left as is.
	if !p.enabled {
		p.dutyStep = 0
	}
	p.enabled = val&0x80 != 0
	p.period = p.period&0xFF | uint16(val&0x0F)<<8
}

func (p *Pulse) process(cycles uint32) {
	if !p.enabled || p.period == 0 {
		p.out.time += cycles
		return
	}

	time := int32(cycles)
	for time >= p.counter {
		time -= p.counter
		p.out.time += uint32(p.counter)
		p.counter = int32(p.period) + 1

		p.dutyStep = (p.dutyStep + 1) & 0x0F
		var vol int16
		if p.gate || p.dutyStep >= p.duty {
			vol = int16(p.volume)
		}
		p.out.mix(-vol)
	}
	p.counter -= time
	p.out.time += uint32(time)
}

// Frequency returns the pulse frequency in Hz, 0 if silent.
func (p *Pulse) Frequency() float64 {
	if p.gate || !p.enabled || p.period == 0 {
		return 0
	}
	return hwdefs.CPUClockNTSC / 16.0 / (float64(p.period) + 1)
}

func (p *Pulse) saveState(state *snapshot.VRC6Pulse) {
	state.Enabled = p.enabled
	state.Gate = p.gate
	state.Duty = p.duty
	state.Volume = p.volume
	state.Period = p.period
	state.Step = p.dutyStep
}

type Sawtooth struct {
	out output

	enabled bool
	rate    uint8
	period  uint16
	counter int32
	step    uint8 // 0-13, the accumulator is reset every 7 periods
	acc     uint8

	RATE   hwio.Reg8 `hwio:"offset=0x00,writeonly,wcb"`
	FREQLO hwio.Reg8 `hwio:"offset=0x01,writeonly,wcb"`
	FREQHI hwio.Reg8 `hwio:"offset=0x02,writeonly,wcb"`
}

func (s *Sawtooth) reset() {
	s.enabled = false
	s.rate = 0
	s.period = 0
	s.counter = 0
	s.step = 0
	s.acc = 0
	s.out.mix(0)
	s.out.endFrame()
}

func (s *Sawtooth) WriteRATE(_, val uint8) {
	s.rate = val & 0x3F
}

func (s *Sawtooth) WriteFREQLO(_, val uint8) {
	s.period = s.period&0xF00 | uint16(val)
}

func (s *Sawtooth) WriteFREQHI(_, val uint8) {
	if !s.enabled {
		s.step = 0
		s.acc = 0
	}
	s.enabled = val&0x80 != 0
	s.period = s.period&0xFF | uint16(val&0x0F)<<8
}

func (s *Sawtooth) process(cycles uint32) {
	if !s.enabled || s.period == 0 {
		s.out.time += cycles
		return
	}

	time := int32(cycles)
	for time >= s.counter {
		time -= s.counter
		s.out.time += uint32(s.counter)
		s.counter = int32(s.period) + 1

		if s.step&1 != 0 {
			s.acc += s.rate
		}
		s.step++
		if s.step == 14 {
			s.acc = 0
			s.step = 0
		}

		// The 5 highest bits of the accumulator are output.
		s.out.mix(-int16(s.acc >> 3))
	}
	s.counter -= time
	s.out.time += uint32(time)
}

// Frequency returns the sawtooth frequency in Hz, 0 if silent.
func (s *Sawtooth) Frequency() float64 {
	if !s.enabled || s.period == 0 {
		return 0
	}
	return hwdefs.CPUClockNTSC / 14.0 / (float64(s.period) + 1)
}

func (s *Sawtooth) saveState(state *snapshot.VRC6Sawtooth) {
	state.Enabled = s.enabled
	state.Rate = s.rate
	state.Period = s.period
	state.Step = s.step
	state.Acc = s.acc
}

type VRC6 struct {
	Pulse1   Pulse
	Pulse2   Pulse
	Sawtooth Sawtooth

	// $9003 selects the frequency scaling on the real chip, it has no effect
	// here but is kept for read-back.
	FREQCTRL hwio.Reg8 `hwio:"offset=0x03,writeonly,wcb"`
}

func New(mixer mixer) *VRC6 {
	v := &VRC6{}
	v.Pulse1.out = output{channel: hwdefs.VRC6Pulse1, mixer: mixer}
	v.Pulse2.out = output{channel: hwdefs.VRC6Pulse2, mixer: mixer}
	v.Sawtooth.out = output{channel: hwdefs.VRC6Sawtooth, mixer: mixer}

	hwio.MustInitRegs(v)
	hwio.MustInitRegs(&v.Pulse1)
	hwio.MustInitRegs(&v.Pulse2)
	hwio.MustInitRegs(&v.Sawtooth)
	v.Reset()
	return v
}

// Map maps the VRC6 registers at $9000-$9003, $A000-$A002 and $B000-$B002.
func (v *VRC6) Map(t *hwio.Table) {
	t.MapBank(0x9000, &v.Pulse1, 0)
	t.MapBank(0x9000, v, 0)
	t.MapBank(0xA000, &v.Pulse2, 0)
	t.MapBank(0xB000, &v.Sawtooth, 0)
}

func (v *VRC6) WriteFREQCTRL(_, val uint8) {
	log.ModVRC6.DebugZ("write freq control").Hex8("val", val).End()
}

func (v *VRC6) Reset() {
	v.Pulse1.reset()
	v.Pulse2.reset()
	v.Sawtooth.reset()
}

// Process runs all channels for the given number of CPU cycles.
func (v *VRC6) Process(cycles uint32) {
	v.Pulse1.process(cycles)
	v.Pulse2.process(cycles)
	v.Sawtooth.process(cycles)
}

func (v *VRC6) EndFrame() {
	v.Pulse1.out.endFrame()
	v.Pulse2.out.endFrame()
	v.Sawtooth.out.endFrame()
}

func (v *VRC6) State() *snapshot.VRC6 {
	var state snapshot.VRC6
	v.Pulse1.saveState(&state.Pulse[0])
	v.Pulse2.saveState(&state.Pulse[1])
	v.Sawtooth.saveState(&state.Sawtooth)
	state.FreqCtrl = v.FREQCTRL.Value
	return &state
}
