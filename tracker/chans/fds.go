package chans

import (
	"bytes"
	"fmt"

	"famitone/hw/hwdefs"
	"famitone/tracker/ft"
	"famitone/tracker/inst"
)

// Cycles taken by the table upload loops of the NSF driver.
const (
	waveUploadCycles = 960
	modUploadCycles  = 319
	modRewriteCycles = 543
)

const (
	fdsModSpeedLimit  = 0xFFF
	fdsModDepthLimit  = 0x3F
	fdsModDelayLimit  = 0xFF
	fdsVolModDisabled = 0
)

type fds struct {
	freqChan

	modSpeed int
	modDepth int
	modDelay int

	modTable  [ft.FDSModSize]uint8
	waveTable [ft.FDSWaveSize]uint8

	volModMode    int // 0 disabled, 1 increase, 2 decrease
	volModRate    int
	volModTrigger bool

	// With automatic modulation, the modulator frequency follows the
	// carrier frequency times effSpeedHi/effSpeedLo.
	autoMod    bool
	modBias    int
	effDepth   int
	effSpeedHi int
	effSpeedLo int
}

func newFDS(env *Env) *fds {
	c := &fds{effDepth: -1, effSpeedHi: -1, effSpeedLo: -1}
	c.init(c, env, hwdefs.FDSWave, 0xFFF, 32)
	return c
}

func (c *fds) handleNoteData(nd *ft.NoteData) {
	c.effDepth = -1
	if !c.autoMod {
		c.effSpeedHi = -1
		c.effSpeedLo = -1
	}
	c.volModTrigger = false

	c.Base.handleNoteData(nd)

	if nd.Note != ft.NoneNote && nd.Note != ft.HaltNote && nd.Note != ft.ReleaseNote {
		c.volModTrigger = true
	}
	if c.effDepth != -1 {
		c.modDepth = c.effDepth
	}
	if c.effSpeedHi != -1 {
		c.modSpeed = c.modSpeed&0xFF | c.effSpeedHi<<8
	}
	if c.effSpeedLo != -1 {
		c.modSpeed = c.modSpeed&0xF00 | c.effSpeedLo
	}
}

func (c *fds) handleEffect(eff ft.Effect, param uint8) bool {
	switch eff {
	case ft.EffFDSModDepth:
		switch {
		case param < 0x40:
			c.effDepth = int(param)
		case param >= 0x80 && c.autoMod:
			c.effSpeedHi = int(param) - 0x80
		}
	case ft.EffFDSModSpeedHi:
		if param >= 0x10 {
			c.effSpeedHi = int(param >> 4)
			c.effSpeedLo = int(param&0x0F) + 1
			c.autoMod = true
		} else {
			c.effSpeedHi = int(param)
			if c.autoMod {
				c.effSpeedLo = 0
			}
			c.autoMod = false
		}
	case ft.EffFDSModSpeedLo:
		c.effSpeedLo = int(param)
		if c.autoMod {
			c.effSpeedHi = 0
		}
		c.autoMod = false
	case ft.EffFDSVolume:
		switch {
		case param < 0x80:
			c.volModRate = int(param & 0x3F)
			c.volModMode = int(param>>6) + 1
		case param == 0xE0:
			c.volModMode = fdsVolModDisabled
		}
	case ft.EffFDSModBias:
		c.modBias = int(param) - 0x80
	case ft.EffPhaseReset:
		if param == 0 {
			c.write(0x4083, 0x80)
		}
	default:
		return c.freqChan.handleEffect(eff, param)
	}
	return true
}

func (c *fds) createInstHandler(t ft.InstType) bool {
	if t == ft.InstFDS {
		if c.instType == ft.InstFDS {
			return false
		}
		c.instHandler = inst.NewFDS(c, 0x1F, 0)
		return true
	}
	if !t.IsSequence() || c.instType.IsSequence() {
		return false
	}
	duty := 0
	if t == ft.InstS5B {
		duty = ft.S5BModeSquare
	}
	c.instHandler = inst.NewSeqHandler(c, 0xF, duty)
	return true
}

func (c *fds) calculateVolume() int {
	if c.env.FDSOldVolume {
		return c.Base.calculateVolume()
	}
	return c.limitVolume(((c.instVolume+1)*(c.volume>>volColumnShift+1)-1)/16 - c.tremolo())
}

func (c *fds) RefreshChannel() {
	volume := uint8(c.self.calculateVolume())

	if !c.gate {
		c.write(0x4080, 0x80|volume)
		return
	}

	carrier := c.self.calculatePeriod(true)

	modFreq := c.modSpeed
	if c.autoMod {
		fund := c.self.calculatePeriod(false)
		modFreq = 0
		if c.effSpeedLo != 0 {
			modFreq = fund * c.effSpeedHi / c.effSpeedLo
		}
		modFreq = clamp(modFreq+c.modBias, 0, fdsModSpeedLimit)
	}

	if c.volModMode != fdsVolModDisabled {
		if c.volModTrigger {
			c.volModTrigger = false
			c.write(0x4080, 0x80|volume)
		}
		c.write(0x4080, uint8(2-c.volModMode)<<6|uint8(c.volModRate))
	} else {
		c.write(0x4080, 0x80|volume)
	}

	c.write(0x4082, uint8(carrier))
	c.write(0x4083, uint8(carrier>>8)&0x0F)

	// A new note restarts the modulator.
	if c.trigger {
		c.writeModTable()
	}

	if c.modDelay == 0 {
		c.write(0x4086, uint8(modFreq))
		c.write(0x4087, uint8(modFreq>>8)&0x0F)
		c.write(0x4084, 0x80|uint8(c.modDepth))
	} else {
		c.write(0x4087, 0x80)
		c.modDelay--
	}
}

func (c *fds) clearRegisters() {
	c.write(0x4080, 0x80)
	c.write(0x4082, 0x00)
	c.write(0x4083, 0x80)
	c.write(0x408A, 0xFF)
	c.write(0x4086, 0x00)
	c.write(0x4087, 0x00)
	c.write(0x4084, 0x00)

	c.autoMod = false
	c.modBias = 0
	c.volModMode = fdsVolModDisabled
	c.volModRate = 0
	c.volModTrigger = false
	c.modSpeed = 0
	c.modDepth = 0
	c.modDelay = 0
	c.effDepth = -1
	c.effSpeedHi = -1
	c.effSpeedLo = -1

	c.modTable = [ft.FDSModSize]uint8{}
	c.waveTable = [ft.FDSWaveSize]uint8{}
}

func (c *fds) customString() string {
	var s string
	if c.volModMode != fdsVolModDisabled {
		s += fmt.Sprintf(" E%02X", (c.volModMode-1)<<6|c.volModRate)
	}
	if c.effDepth != -1 {
		s += fmt.Sprintf(" H%02X", c.effDepth)
	}
	if c.autoMod {
		hi := c.effSpeedHi
		if hi > 0xF {
			hi = 1
		}
		s += fmt.Sprintf(" I%X%X", hi, c.effSpeedLo-1)
		if c.effSpeedHi > 0xF {
			s += fmt.Sprintf(" H%02X", 0x80+c.effSpeedHi)
		}
		if c.modBias != 0 {
			s += fmt.Sprintf(" Z%02X", c.modBias+0x80)
		}
	} else {
		if c.modSpeed>>8 != 0 {
			s += fmt.Sprintf(" I%02X", c.modSpeed>>8)
		}
		if c.modSpeed&0xFF != 0 {
			s += fmt.Sprintf(" J%02X", c.modSpeed&0xFF)
		}
	}
	return s
}

func (c *fds) writeModTable() {
	c.write(0x4087, 0x80)
	c.env.Regs.AddCycles(modRewriteCycles)
	for _, v := range c.modTable {
		c.write(0x4088, v)
	}
	// Reset the modulator position and bias.
	c.write(0x4085, 0x00)
}

func (c *fds) SetFMSpeed(speed int) { c.modSpeed = clamp(speed, 0, fdsModSpeedLimit) }
func (c *fds) SetFMDepth(depth int) { c.modDepth = clamp(depth, 0, fdsModDepthLimit) }
func (c *fds) SetFMDelay(delay int) { c.modDelay = clamp(delay, 0, fdsModDelayLimit) }

// FillWaveRAM uploads a new wave, if it differs from the current one.
func (c *fds) FillWaveRAM(wave []uint8) {
	if bytes.Equal(c.waveTable[:], wave) {
		return
	}
	copy(c.waveTable[:], wave)

	c.write(0x4089, 0x80)
	c.env.Regs.AddCycles(waveUploadCycles)
	for i, v := range c.waveTable {
		c.write(0x4040+uint16(i), v)
	}
	c.write(0x4089, 0x00)
}

// FillModTable uploads a new modulation table, if it differs from the
// current one.
func (c *fds) FillModTable(mod []uint8) {
	if bytes.Equal(c.modTable[:], mod) {
		return
	}
	copy(c.modTable[:], mod)
	c.env.Regs.AddCycles(modUploadCycles)
	c.writeModTable()
}
