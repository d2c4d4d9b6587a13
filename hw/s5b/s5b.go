// Package s5b emulates the Sunsoft 5B: three square channels sharing a noise
// generator and an envelope generator, programmed through an address port at
// $C000 and a data port at $E000.
package s5b

import (
	"famitone/emu/log"
	"famitone/hw/hwdefs"
	"famitone/hw/hwio"
	"famitone/hw/snapshot"
)

type mixer interface {
	AddDelta(ch hwdefs.ChannelID, time uint32, delta int16)
}

// Logarithmic volume levels, indexed by 5-bit level.
var expVolume = [32]int16{
	0, 1, 1, 2, 2, 3, 3, 4,
	5, 6, 7, 9, 11, 13, 15, 18,
	22, 26, 31, 37, 45, 53, 63, 76,
	90, 106, 127, 151, 180, 212, 255, 255,
}

const idle = 0xFFFFF

type channel struct {
	id    hwdefs.ChannelID
	mixer mixer
	time  uint32
	last  int16

	volume        uint32 // bit 5: use envelope
	period        uint32 // in CPU cycles, 16 per register unit
	periodClock   uint32
	high          bool
	squareDisable bool
	noiseDisable  bool
}

func (c *channel) reset() {
	c.time = 0
	c.last = 0
	c.volume = 0
	c.period = 0
	c.periodClock = 0
	c.high = false
	c.squareDisable = true
	c.noiseDisable = true
}

// timeToToggle returns the cycles left before the square toggles.
func (c *channel) timeToToggle() uint32 {
	if c.period < 2 || c.volume == 0 {
		return idle
	}
	return c.period - c.periodClock
}

func (c *channel) process(cycles uint32) {
	c.periodClock += cycles
	if c.periodClock >= c.period {
		c.periodClock = 0
		c.high = !c.high
	}
	c.time += cycles
}

func (c *channel) output(noise bool, envelope uint32) {
	level := c.volume
	if c.volume&0x20 != 0 {
		level = envelope
	}
	out := expVolume[level&0x1F]
	if !c.squareDisable && !c.high && c.period >= 2 {
		out = 0
	}
	if !c.noiseDisable && !noise {
		out = 0
	}
	if out != c.last {
		c.mixer.AddDelta(c.id, c.time, out-c.last)
		c.last = out
	}
}

// frequency returns the square frequency in Hz, 0 if silent.
func (c *channel) frequency() float64 {
	if c.squareDisable || c.period == 0 {
		return 0
	}
	return hwdefs.CPUClockNTSC / 2.0 / float64(c.period)
}

type S5B struct {
	chans [3]channel
	regs  [16]uint8

	noiseState  uint32
	noisePeriod uint32
	noiseClock  uint32

	envPeriod uint32
	envClock  uint32
	envLevel  uint32
	envShape  uint8
	envHold   bool

	ADDR hwio.Reg8 `hwio:"bank=0,offset=0x0,writeonly,rwmask=0x0F"`
	DATA hwio.Reg8 `hwio:"bank=1,offset=0x0,writeonly,wcb"`
}

func New(mixer mixer) *S5B {
	s := &S5B{}
	for i := range s.chans {
		s.chans[i].id = hwdefs.S5BCh1 + hwdefs.ChannelID(i)
		s.chans[i].mixer = mixer
	}
	hwio.MustInitRegs(s)
	s.Reset()
	return s
}

// Map maps the address port at $C000 and the data port at $E000.
func (s *S5B) Map(t *hwio.Table) {
	t.MapBank(0xC000, s, 0)
	t.MapBank(0xE000, s, 1)
}

func (s *S5B) Reset() {
	s.noiseState = 0xFFFF
	s.noisePeriod = 0x1F << 5
	s.noiseClock = 0
	s.envPeriod = 0
	s.envClock = 0
	s.envLevel = 0
	s.envShape = 0
	s.envHold = true
	clear(s.regs[:])

	for i := range s.chans {
		s.chans[i].reset()
	}
}

func (s *S5B) WriteDATA(_, val uint8) {
	s.WriteReg(s.ADDR.Value, val)
}

// WriteReg writes one of the 16 internal registers.
func (s *S5B) WriteReg(port, val uint8) {
	port &= 0x0F
	s.regs[port] = val

	switch port {
	case 0x00, 0x02, 0x04:
		c := &s.chans[port>>1]
		c.period = c.period&0xF000 | uint32(val)<<4
	case 0x01, 0x03, 0x05:
		c := &s.chans[port>>1]
		c.period = c.period&0x0FF0 | uint32(val&0x0F)<<12
	case 0x06:
		s.noisePeriod = 0x10
		if val != 0 {
			s.noisePeriod = uint32(val&0x1F) << 5
		}
	case 0x07:
		for i := range s.chans {
			s.chans[i].squareDisable = val&(1<<i) != 0
			s.chans[i].noiseDisable = val&(1<<(i+3)) != 0
		}
	case 0x08, 0x09, 0x0A:
		s.chans[port-0x08].volume = uint32(val) * 2
	case 0x0B:
		s.envPeriod = s.envPeriod&0xFF000 | uint32(val)<<4
	case 0x0C:
		s.envPeriod = s.envPeriod&0x00FF0 | uint32(val)<<12
	case 0x0D:
		s.envClock = 0
		s.envShape = val
		s.envHold = false
		s.envLevel = 0x1F
		if val&0x04 != 0 {
			s.envLevel = 0
		}
	}

	log.ModS5B.DebugZ("write reg").Hex8("port", port).Hex8("val", val).End()
}

// Reg returns the last value written to an internal register.
func (s *S5B) Reg(port uint8) uint8 {
	return s.regs[port&0x0F]
}

// Process runs the chip for the given number of CPU cycles, stopping at each
// square, noise and envelope event.
func (s *S5B) Process(cycles uint32) {
	for cycles > 0 {
		run := cycles
		if s.envClock < s.envPeriod {
			run = min(run, s.envPeriod-s.envClock)
		}
		if s.noiseClock < s.noisePeriod {
			run = min(run, s.noisePeriod-s.noiseClock)
		}
		for i := range s.chans {
			run = min(run, s.chans[i].timeToToggle())
		}

		cycles -= run
		s.runEnvelope(run)
		s.runNoise(run)
		for i := range s.chans {
			s.chans[i].process(run)
		}
		for i := range s.chans {
			s.chans[i].output(s.noiseState&0x01 != 0, s.envLevel)
		}
	}
}

func (s *S5B) EndFrame() {
	for i := range s.chans {
		s.chans[i].time = 0
	}
}

func (s *S5B) runEnvelope(cycles uint32) {
	s.envClock += cycles
	if s.envClock < s.envPeriod || s.envPeriod == 0 {
		return
	}

	s.envClock = 0
	if !s.envHold {
		if s.envShape&0x04 != 0 {
			s.envLevel++
		} else {
			s.envLevel--
		}
		s.envLevel &= 0x3F
	}
	if s.envLevel&0x20 == 0 {
		return
	}

	if s.envShape&0x08 == 0 {
		// One shot: decay or attack, then silence.
		s.envHold = true
		s.envLevel = 0
		return
	}

	// Alternate, for shapes with just one of alternate/hold set.
	if alt := s.envShape & 0x03; alt == 0x01 || alt == 0x02 {
		s.envShape ^= 0x04
	}
	if s.envShape&0x01 != 0 {
		s.envHold = true
	}
	s.envLevel = 0x1F
	if s.envShape&0x04 != 0 {
		s.envLevel = 0
	}
}

func (s *S5B) runNoise(cycles uint32) {
	s.noiseClock += cycles
	if s.noiseClock >= s.noisePeriod {
		s.noiseClock = 0
		if s.noiseState&0x01 != 0 {
			s.noiseState ^= 0x24000
		}
		s.noiseState >>= 1
	}
}

// Frequency returns the frequency in Hz of a square channel (0-2) or of the
// envelope (3) when it's repeating. 0 means silent.
func (s *S5B) Frequency(ch int) float64 {
	switch ch {
	case 0, 1, 2:
		return s.chans[ch].frequency()
	case 3:
		if s.envPeriod == 0 || s.envShape&0x08 == 0 || s.envShape&0x01 != 0 {
			return 0
		}
		div := 32.0
		if s.envShape&0x02 != 0 {
			div = 64
		}
		return hwdefs.CPUClockNTSC / div / float64(s.envPeriod)
	}
	return 0
}

func (s *S5B) State() *snapshot.S5B {
	var state snapshot.S5B
	state.Address = s.ADDR.Value
	state.Regs = s.regs
	for i, c := range s.chans {
		state.Periods[i] = c.period
		state.Outputs[i] = c.last
	}
	state.EnvelopeLevel = uint8(s.envLevel)
	state.EnvelopeHold = s.envHold
	return &state
}
