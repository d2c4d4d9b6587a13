package chans

import (
	"fmt"

	"famitone/hw/hwdefs"
	"famitone/tracker/ft"
	"famitone/tracker/inst"
)

// S5BGroup is the state shared by the 3 Sunsoft 5B channels: the mixer,
// noise and envelope registers. The last channel writes it once per tick.
type S5BGroup struct {
	modes        uint8
	noiseFreq    int
	noisePrev    int
	defaultNoise int
	envLo, envHi uint8
	envTrigger   bool
	envType      uint8
}

func (g *S5BGroup) reset() {
	g.defaultNoise = 0
	g.noiseFreq = 0
	g.noisePrev = -1
	g.envLo = 0
	g.envHi = 0
	g.envType = 0
	g.envTrigger = false
}

// setMode updates the tone and noise disable bits of a channel in the
// mixer register.
func (g *S5BGroup) setMode(ch int, toneOff, noiseOff bool) {
	g.modes &^= 0x09 << ch
	if toneOff {
		g.modes |= 1 << ch
	}
	if noiseOff {
		g.modes |= 1 << (3 + ch)
	}
}

type s5b struct {
	Base
	group *S5BGroup
	index int

	envEnabled bool
	envShift   int // auto envelope period shift, 0 for manual
	update     bool
}

func newS5B(env *Env, group *S5BGroup, id hwdefs.ChannelID) *s5b {
	c := &s5b{group: group, index: int(id - hwdefs.S5BCh1)}
	c.init(c, env, id, 0xFFF, 0x0F)
	c.defaultDuty = ft.S5BModeSquare
	group.noisePrev = -1
	return c
}

func (c *s5b) writeReg(reg, val uint8) {
	c.write(0xC000, reg)
	c.write(0xE000, val)
}

func (c *s5b) SetNoiseFreq(freq int) { c.group.noiseFreq = freq }

func (c *s5b) handleEffect(eff ft.Effect, param uint8) bool {
	g := c.group
	switch eff {
	case ft.EffSunsoftNoise:
		g.noiseFreq = int(param & 0x1F)
		g.defaultNoise = g.noiseFreq
	case ft.EffSunsoftEnvHi:
		g.envHi = param
	case ft.EffSunsoftEnvLo:
		g.envLo = param
	case ft.EffSunsoftEnvType:
		g.envTrigger = true
		g.envType = param & 0x0F
		c.update = true
		c.envEnabled = param != 0
		c.envShift = int(param >> 4)
	case ft.EffDutyCycle:
		// V01 tone, V02 noise, V04 envelope.
		duty := 0
		if param&0x01 != 0 {
			duty |= ft.S5BModeSquare
		}
		if param&0x02 != 0 {
			duty |= ft.S5BModeNoise
		}
		if param&0x04 != 0 {
			duty |= ft.S5BModeEnvelope
		}
		c.defaultDuty = duty
		c.dutyPeriod = duty
	default:
		return c.Base.handleEffect(eff, param)
	}
	return true
}

func (c *s5b) createInstHandler(t ft.InstType) bool {
	return c.switchSeqHandler(t, func(duty int) inst.Handler {
		return inst.NewS5B(c, 0xF, duty)
	})
}

func (c *s5b) handleNote(note ft.Note, octave int) {
	c.Base.handleNote(note, octave)
	if c.defaultDuty&ft.S5BModeNoise != 0 {
		c.group.noiseFreq = c.group.defaultNoise
	}
}

func (c *s5b) handleCut() {
	c.cutNote()
	c.dutyPeriod = ft.S5BModeSquare
	c.note = 0
}

func (c *s5b) ResetChannel() {
	c.Base.ResetChannel()
	c.defaultDuty = ft.S5BModeSquare
	c.dutyPeriod = ft.S5BModeSquare
	c.envEnabled = false
	c.envShift = 0
	c.group.reset()
}

func (c *s5b) calculateVolume() int {
	return c.limitVolume(c.volume>>volColumnShift + c.instVolume - 15 - c.tremolo())
}

func (c *s5b) convertDuty(d int) int {
	switch c.instType {
	case ft.Inst2A03, ft.InstVRC6, ft.InstN163:
		return ft.S5BModeSquare
	}
	return d
}

func (c *s5b) clearRegisters() {
	c.writeReg(uint8(8+c.index), 0)
}

// updateAutoEnvelope makes the envelope period follow the tone period,
// shifted by envShift-8 octaves.
func (c *s5b) updateAutoEnvelope(period int) {
	if !c.envEnabled || c.envShift == 0 {
		return
	}
	switch {
	case c.envShift > 8:
		period >>= c.envShift - 9
		if period&0x01 != 0 {
			period++
		}
		period >>= 1
	case c.envShift < 8:
		period <<= 8 - c.envShift
	}
	c.group.envLo = uint8(period)
	c.group.envHi = uint8(period >> 8)
}

// updateRegs writes the registers shared by all channels.
func (c *s5b) updateRegs() {
	g := c.group
	if g.noiseFreq != g.noisePrev {
		g.noisePrev = g.noiseFreq
		c.writeReg(0x06, uint8(g.noiseFreq^0x1F))
	}
	c.writeReg(0x07, g.modes)
	c.writeReg(0x0B, g.envLo)
	c.writeReg(0x0C, g.envHi)
	if g.envTrigger {
		c.writeReg(0x0D, g.envType)
	}
	g.envTrigger = false
}

func (c *s5b) RefreshChannel() {
	period := c.self.calculatePeriod(true)
	volume := uint8(c.self.calculateVolume())

	noiseOff := !c.gate || c.dutyPeriod&ft.S5BModeNoise == 0
	toneOff := !c.gate || c.dutyPeriod&ft.S5BModeSquare == 0
	var envelope uint8
	if c.gate && c.dutyPeriod&ft.S5BModeEnvelope != 0 {
		envelope = 0x10
	}

	c.updateAutoEnvelope(period)
	c.group.setMode(c.index, toneOff, noiseOff)

	c.writeReg(uint8(c.index*2), uint8(period))
	c.writeReg(uint8(c.index*2+1), uint8(period>>8))
	c.writeReg(uint8(c.index+8), volume|envelope)

	if envelope != 0 && (c.trigger || c.update) {
		c.group.envTrigger = true
	}
	c.update = false

	if c.id == hwdefs.S5BCh3 {
		c.updateRegs()
	}
}

func (c *s5b) customString() string {
	g := c.group
	var s string
	if g.envType != 0 {
		s += fmt.Sprintf(" H%02X", g.envType)
	}
	if g.envHi != 0 {
		s += fmt.Sprintf(" I%02X", g.envHi)
	}
	if g.envLo != 0 {
		s += fmt.Sprintf(" J%02X", g.envLo)
	}
	if g.defaultNoise != 0 {
		s += fmt.Sprintf(" W%02X", g.defaultNoise)
	}
	return s
}
