package chans

import (
	"famitone/hw/hwdefs"
	"famitone/tracker/ft"
	"famitone/tracker/inst"
)

type vrc6Chan struct {
	Base
	base uint16
}

func (c *vrc6Chan) init(self chip, env *Env, id hwdefs.ChannelID, maxVolume int) {
	c.Base.init(self, env, id, 0xFFF, maxVolume)
	c.base = 0x9000 + uint16(id-hwdefs.VRC6Pulse1)<<12
}

func (c *vrc6Chan) handleEffect(eff ft.Effect, param uint8) bool {
	switch eff {
	case ft.EffDutyCycle:
		c.defaultDuty = int(param)
		c.dutyPeriod = int(param)
	case ft.EffPhaseReset:
		// The channel is refreshed later in the same tick.
		if param == 0 {
			c.write(c.base+2, 0)
		}
	default:
		return c.Base.handleEffect(eff, param)
	}
	return true
}

func (c *vrc6Chan) createInstHandler(t ft.InstType) bool {
	return c.switchSeqHandler(t, func(duty int) inst.Handler {
		return inst.NewSeqHandler(c.self, 0xF, duty)
	})
}

func (c *vrc6Chan) clearRegisters() {
	c.write(c.base, 0)
	c.write(c.base+1, 0)
	c.write(c.base+2, 0)
}

type vrc6Pulse struct {
	vrc6Chan
}

func newVRC6Pulse(env *Env, id hwdefs.ChannelID) *vrc6Pulse {
	c := &vrc6Pulse{}
	c.init(c, env, id, 0x0F)
	return c
}

func (c *vrc6Pulse) RefreshChannel() {
	period := c.self.calculatePeriod(true)
	volume := c.self.calculateVolume()
	duty := uint8(c.dutyPeriod << 4)

	if !c.gate {
		c.write(c.base, duty)
		return
	}
	c.write(c.base, duty|uint8(volume))
	c.write(c.base+1, uint8(period))
	c.write(c.base+2, 0x80|uint8(period>>8))
}

func (c *vrc6Pulse) convertDuty(d int) int {
	switch c.instType {
	case ft.Inst2A03:
		return dutyToVRC6[d&0x03]
	case ft.InstS5B:
		return 0x07
	}
	return d
}

type sawtooth struct {
	vrc6Chan
}

func newSawtooth(env *Env) *sawtooth {
	c := &sawtooth{}
	c.init(c, env, hwdefs.VRC6Sawtooth, 0x3F)
	return c
}

func (c *sawtooth) RefreshChannel() {
	if !c.gate {
		c.write(0xB000, 0)
		return
	}
	period := c.self.calculatePeriod(true)
	volume := c.self.calculateVolume()

	c.write(0xB000, uint8(volume))
	c.write(0xB001, uint8(period))
	c.write(0xB002, 0x80|uint8(period>>8))
}

func (c *sawtooth) createInstHandler(t ft.InstType) bool {
	return c.switchSeqHandler(t, func(duty int) inst.Handler {
		return inst.NewSawtooth(c.self, 0xF, duty)
	})
}

// calculateVolume returns the accumulator rate. 64-step volume sequences
// set it directly, 16-step ones are doubled and get bit 5 from the duty.
func (c *sawtooth) calculateVolume() int {
	if h, ok := c.instHandler.(*inst.Sawtooth); ok && h.DutyIgnored() {
		if !c.env.FDSOldVolume {
			return c.limitVolume(((c.instVolume+1)*(c.volume>>volColumnShift+1)-1)/16 - c.tremolo())
		}
		return c.Base.calculateVolume()
	}
	return c.Base.calculateVolume()<<1 | (c.dutyPeriod&0x01)<<5
}
