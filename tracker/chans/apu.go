package chans

import (
	"fmt"

	"famitone/emu/log"
	"famitone/hw/hwdefs"
	"famitone/tracker/ft"
	"famitone/tracker/inst"
)

var (
	dutyFromVRC6 = [8]int{0, 0, 1, 1, 1, 1, 2, 2}
	dutyToVRC6   = [4]int{1, 3, 7, 3}
)

const noLastPeriod = 0xFFFF

// chan2A03 is the part common to the square, triangle and noise channels:
// the hardware envelope and length counter driven by Exx.
type chan2A03 struct {
	Base

	hwEnvelope    bool
	envelopeLoop  bool
	resetEnvelope bool
	lengthCounter int
}

func (c *chan2A03) init(self chip, env *Env, id hwdefs.ChannelID) {
	c.Base.init(self, env, id, 0x7FF, 0x0F)
	c.envelopeLoop = true
	c.lengthCounter = 1
}

func (c *chan2A03) ResetChannel() {
	c.Base.ResetChannel()
	c.envelopeLoop = true
	c.hwEnvelope = false
	c.lengthCounter = 1
}

func (c *chan2A03) handleNoteData(nd *ft.NoteData) {
	c.Base.handleNoteData(nd)
	if nd.Note != ft.NoneNote && nd.Note != ft.HaltNote && nd.Note != ft.ReleaseNote {
		if !c.envelopeLoop || c.hwEnvelope {
			c.resetEnvelope = true
		}
	}
}

func (c *chan2A03) handleEffect(eff ft.Effect, param uint8) bool {
	switch eff {
	case ft.EffVolume:
		switch {
		case param < 0x20:
			c.lengthCounter = int(param)
			c.envelopeLoop = false
			c.resetEnvelope = true
		case param >= 0xE0 && param < 0xE4:
			if !c.envelopeLoop || !c.hwEnvelope {
				c.resetEnvelope = true
			}
			c.hwEnvelope = param&0x01 != 0
			c.envelopeLoop = param&0x02 == 0
		}
	case ft.EffDutyCycle:
		c.defaultDuty = int(param)
		c.dutyPeriod = int(param)
	default:
		return c.Base.handleEffect(eff, param)
	}
	return true
}

func (c *chan2A03) createInstHandler(t ft.InstType) bool {
	return c.switchSeqHandler(t, func(duty int) inst.Handler {
		return inst.NewSeqHandler(c.self, 0xF, duty)
	})
}

// envelopeBits returns the loop and constant volume bits of $4000/$400C.
func (c *chan2A03) envelopeBits() uint8 {
	var v uint8
	if c.envelopeLoop {
		v |= 0x20
	}
	if !c.hwEnvelope {
		v |= 0x10
	}
	return v
}

func (c *chan2A03) envelopeString() string {
	var s string
	if !c.envelopeLoop {
		s += fmt.Sprintf(" E%02X", c.lengthCounter)
	}
	if !c.envelopeLoop || c.hwEnvelope {
		mode := 0
		if !c.envelopeLoop {
			mode += 2
		}
		if c.hwEnvelope {
			mode++
		}
		s += fmt.Sprintf(" EE%X", mode)
	}
	return s
}

func (c *chan2A03) customString() string { return c.envelopeString() }

type square struct {
	chan2A03

	base       uint16
	sweep      uint8 // pending sweep register write, bit 7 set until written
	sweepParam uint8
	sweeping   bool
	lastPeriod int
}

func newSquare(env *Env, id hwdefs.ChannelID) *square {
	c := &square{base: 0x4000 + uint16(id-hwdefs.Square1)*4}
	c.init(c, env, id)
	c.lastPeriod = noLastPeriod
	return c
}

func (c *square) RefreshChannel() {
	period := c.self.calculatePeriod(true)
	volume := c.self.calculateVolume()
	duty := uint8(c.dutyPeriod & 0x03)

	lo := uint8(period & 0xFF)
	hi := uint8(period >> 8)

	if !c.gate {
		c.write(c.base, 0x30)
		c.lastPeriod = noLastPeriod
		return
	}
	c.write(c.base, duty<<6|c.envelopeBits()|uint8(volume))

	if c.sweep != 0 {
		if c.sweep&0x80 != 0 {
			c.write(c.base+1, c.sweep)
			c.sweep &= 0x7F
			// Reset the sweep unit.
			c.write(0x4017, 0x80)
			c.write(0x4017, 0x00)
			c.write(c.base+2, lo)
			c.write(c.base+3, hi+uint8(c.lengthCounter<<3))
			c.lastPeriod = noLastPeriod
		}
	} else {
		c.write(c.base+1, 0x08)
		c.write(c.base+2, lo)
		if int(hi) != c.lastPeriod>>8 || c.resetEnvelope {
			c.write(c.base+3, hi+uint8(c.lengthCounter<<3))
		}
	}

	c.lastPeriod = period
	c.resetEnvelope = false
}

func (c *square) convertDuty(d int) int {
	switch c.instType {
	case ft.InstVRC6:
		return dutyFromVRC6[d&0x07]
	case ft.InstS5B:
		return 0x02
	}
	return d
}

func (c *square) clearRegisters() {
	c.write(c.base+0, 0x30)
	c.write(c.base+1, 0x08)
	c.write(c.base+2, 0x00)
	c.write(c.base+3, 0x00)
	c.lastPeriod = noLastPeriod
}

func (c *square) handleNoteData(nd *ft.NoteData) {
	c.sweepParam = 0
	c.sweeping = false
	c.chan2A03.handleNoteData(nd)
}

func (c *square) handleEffect(eff ft.Effect, param uint8) bool {
	switch eff {
	case ft.EffSweepUp:
		c.sweepParam = 0x88 | param&0x77
		c.lastPeriod = noLastPeriod
		c.sweeping = true
	case ft.EffSweepDown:
		c.sweepParam = 0x80 | param&0x77
		c.lastPeriod = noLastPeriod
		c.sweeping = true
	case ft.EffPhaseReset:
		if param == 0 {
			hi := c.self.calculatePeriod(true) >> 8
			c.write(c.base+3, uint8(hi+c.lengthCounter<<3))
		}
	default:
		return c.chan2A03.handleEffect(eff, param)
	}
	return true
}

func (c *square) handleEmptyNote() {
	if c.sweeping {
		c.sweep = c.sweepParam
	}
}

func (c *square) handleNote(note ft.Note, octave int) {
	c.chan2A03.handleNote(note, octave)
	switch {
	case !c.sweeping && (c.sweep != 0 || c.sweepParam != 0):
		c.sweepParam = 0
		c.sweep = 0
		c.lastPeriod = noLastPeriod
	case c.sweeping:
		c.sweep = c.sweepParam
		c.lastPeriod = noLastPeriod
	}
}

type triangle struct {
	chan2A03
	linearCounter int
}

func newTriangle(env *Env) *triangle {
	c := &triangle{linearCounter: -1}
	c.init(c, env, hwdefs.Triangle)
	return c
}

func (c *triangle) RefreshChannel() {
	freq := c.self.calculatePeriod(true)

	if c.instVolume > 0 && c.volume > 0 && c.gate {
		var ctrl uint8
		if c.envelopeLoop {
			ctrl = 0x80
		}
		c.write(0x4008, ctrl|uint8(c.linearCounter&0x7F))
		c.write(0x400A, uint8(freq))
		if c.envelopeLoop || c.resetEnvelope {
			c.write(0x400B, uint8(freq>>8)+uint8(c.lengthCounter<<3))
		}
	} else {
		c.write(0x4008, 0)
	}
	c.resetEnvelope = false
}

func (c *triangle) ResetChannel() {
	c.chan2A03.ResetChannel()
	c.linearCounter = -1
}

// ChannelVolume is all or nothing, the triangle has no volume control.
func (c *triangle) ChannelVolume() int {
	if c.volume != 0 {
		return volColumnMax
	}
	return 0
}

func (c *triangle) handleEffect(eff ft.Effect, param uint8) bool {
	switch eff {
	case ft.EffVolume:
		switch {
		case param < 0x20:
			c.lengthCounter = int(param)
			c.envelopeLoop = false
			c.resetEnvelope = true
			if c.linearCounter == -1 {
				c.linearCounter = 0x7F
			}
		case param >= 0xE0 && param < 0xE4:
			if !c.envelopeLoop {
				c.resetEnvelope = true
			}
			c.envelopeLoop = param&0x01 == 0
		}
	case ft.EffNoteCut:
		if param < 0x80 {
			c.envelopeLoop = true
			return c.chan2A03.handleEffect(eff, param)
		}
		// S80-SFF load the linear counter.
		c.linearCounter = int(param) - 0x80
		c.envelopeLoop = false
		c.resetEnvelope = true
	default:
		return c.chan2A03.handleEffect(eff, param)
	}
	return true
}

func (c *triangle) clearRegisters() {
	c.write(0x4008, 0)
	c.write(0x400A, 0)
	c.write(0x400B, 0)
}

func (c *triangle) customString() string {
	var s string
	if c.linearCounter > -1 {
		s += fmt.Sprintf(" S%02X", c.linearCounter|0x80)
	}
	if !c.envelopeLoop {
		s += fmt.Sprintf(" E%02X EE1", c.lengthCounter)
	}
	return s
}

// noise periods are the 4-bit noise rate index, note values wrap around.
type noise struct {
	chan2A03
}

func newNoise(env *Env) *noise {
	c := &noise{}
	c.init(c, env, hwdefs.Noise)
	return c
}

func (c *noise) TriggerNote(note int) int {
	c.key = note
	return note | 0x100
}

func (c *noise) handleNote(note ft.Note, octave int) {
	c.chan2A03.handleNote(note, octave)

	n := ft.MidiNote(octave, note)&0x0F | 0x100
	freq := c.self.TriggerNote(n)
	if c.portaSpeed > 0 && c.effect == ft.EffPortamento {
		if c.period == 0 {
			c.period = freq
		}
		c.portaTo = freq
	} else {
		c.period = freq
	}
	c.gate = true
	c.note = n
}

func (c *noise) setupSlide() {
	switch c.effect {
	case ft.EffPortamento:
		c.portaSpeed = int(c.effectParam)
	case ft.EffSlideUp:
		c.note += int(c.effectParam & 0x0F)
		c.portaSpeed = slideSpeed(c.effectParam)
	case ft.EffSlideDown:
		c.note -= int(c.effectParam & 0x0F)
		c.portaSpeed = slideSpeed(c.effectParam)
	}
	c.key = c.note
	c.portaTo = c.note
}

func (c *noise) limitPeriod(p int) int    { return p }
func (c *noise) limitRawPeriod(p int) int { return p }

func (c *noise) RefreshChannel() {
	period := c.self.calculatePeriod(true)
	volume := c.self.calculateVolume()
	mode := uint8(c.dutyPeriod&0x01) << 7

	if !c.gate {
		c.write(0x400C, 0x30)
		return
	}
	c.write(0x400C, c.envelopeBits()|uint8(volume))
	c.write(0x400E, mode|uint8(period&0x0F^0x0F))
	if c.envelopeLoop || c.resetEnvelope {
		c.write(0x400F, uint8(c.lengthCounter<<3))
	}
	c.resetEnvelope = false
}

func (c *noise) clearRegisters() {
	c.write(0x400C, 0x30)
	c.write(0x400E, 0)
	c.write(0x400F, 0)
}

const noDAC = 0xFF

// dpcm plays the samples mapped by 2A03 instruments. Its period is the
// DPCM rate index.
type dpcm struct {
	Base

	enabled       bool
	triggerSample bool
	dac           int

	retriggerPeriod int // Xxx, 0 when not retriggering
	retriggerCtr    int

	customPitch  int
	offset       int
	sampleLength int
	loopOffset   int
	loopLength   int
	loop         uint8
}

func newDPCM(env *Env) *dpcm {
	c := &dpcm{dac: noDAC, customPitch: -1}
	c.init(c, env, hwdefs.DPCM, 0xF, 0x3F)
	return c
}

func (c *dpcm) handleNoteData(nd *ft.NoteData) {
	c.customPitch = -1
	c.retriggerPeriod = 0
	if nd.Note != ft.NoneNote {
		c.noteCut = 0
		c.noteRelease = 0
	}
	c.Base.handleNoteData(nd)
}

func (c *dpcm) handleEffect(eff ft.Effect, param uint8) bool {
	switch eff {
	case ft.EffDAC:
		c.dac = int(param & 0x7F)
	case ft.EffSampleOffset:
		c.offset = int(param & 0x3F)
	case ft.EffDPCMPitch:
		c.customPitch = int(param & 0x0F)
	case ft.EffRetrigger:
		c.retriggerPeriod = max(int(param), 1)
		// The last note had no Xxx.
		if c.retriggerCtr == 0 {
			c.queueSample()
		}
	case ft.EffPhaseReset:
		if param == 0 {
			c.startSample()
		}
	case ft.EffNoteCut, ft.EffNoteRelease:
		return c.Base.handleEffect(eff, param)
	default:
		return false
	}
	return true
}

func (c *dpcm) createInstHandler(t ft.InstType) bool {
	if t != ft.Inst2A03 || c.instType == ft.Inst2A03 {
		return false
	}
	c.instHandler = inst.NewDPCM(c)
	return true
}

func (c *dpcm) handleRelease() {
	c.release = true
}

func (c *dpcm) handleNote(note ft.Note, octave int) {
	c.Base.handleNote(note, octave)
	c.note = ft.MidiNote(octave, note)
	c.self.TriggerNote(c.note)
	c.gate = true
}

func (c *dpcm) startSample() {
	c.enabled = true
	c.triggerSample = true
	c.queueSample()
}

func (c *dpcm) queueSample() {
	if c.retriggerPeriod == 0 {
		c.retriggerCtr = 0
	} else {
		// Decremented by RefreshChannel on this same tick.
		c.retriggerCtr = c.retriggerPeriod + 1
	}
}

// PlaySample uploads s and starts it on the next refresh. pitch is the
// rate index with the loop flag in bit 7.
func (c *dpcm) PlaySample(s *ft.Sample, pitch uint8) {
	size := s.Size()
	c.env.Regs.LoadSamples(s.Data)
	if c.customPitch != -1 {
		c.period = c.customPitch
	} else {
		c.period = int(pitch)
	}
	c.sampleLength = size>>4 - c.offset<<2
	c.loopLength = size - c.loopOffset
	c.loop = (pitch & 0x80) >> 1
	log.ModChan.DebugZ("sample").
		String("name", s.Name).
		Int("size", size).
		Int("offset", c.offset).
		End()
	c.startSample()
}

// WriteDCOffset sets the initial DAC value, unless Zxx already did.
func (c *dpcm) WriteDCOffset(delta uint8) {
	if delta != noDAC && c.dac == noDAC {
		c.dac = int(delta)
	}
}

func (c *dpcm) SetLoopOffset(offset uint8) {
	c.loopOffset = int(offset)
}

func (c *dpcm) RefreshChannel() {
	if c.dac != noDAC {
		c.write(0x4011, uint8(c.dac))
		c.dac = noDAC
	}

	if c.retriggerPeriod != 0 {
		c.retriggerCtr--
		if c.retriggerCtr == 0 {
			c.retriggerCtr = c.retriggerPeriod
			c.enabled = true
			c.triggerSample = true
		}
	}

	if c.release {
		c.write(0x4015, 0x0F)
		c.enabled = false
		c.release = false
	}

	if !c.enabled {
		return
	}

	switch {
	case !c.gate:
		c.write(0x4015, 0x0F)
		c.write(0x4011, 0)
		c.enabled = false
	case c.triggerSample:
		c.write(0x4010, uint8(c.period&0x0F)|c.loop)
		c.write(0x4012, uint8(c.offset))
		c.write(0x4013, uint8(c.sampleLength))
		c.write(0x4015, 0x0F)
		c.write(0x4015, 0x1F)
		if c.loopOffset > 0 {
			c.write(0x4012, uint8(c.loopOffset))
			c.write(0x4013, uint8(c.loopLength))
		}
		c.triggerSample = false
	}
}

func (c *dpcm) ChannelVolume() int { return volColumnMax }

func (c *dpcm) clearRegisters() {
	c.write(0x4015, 0x0F)
	c.write(0x4010, 0)
	c.write(0x4011, 0)
	c.write(0x4012, 0)
	c.write(0x4013, 0)
	c.offset = 0
	c.dac = noDAC
}

func (c *dpcm) customString() string {
	if c.offset != 0 {
		return fmt.Sprintf(" Y%02X", c.offset)
	}
	return ""
}
