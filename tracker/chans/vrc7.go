package chans

import (
	"fmt"

	"famitone/emu/log"
	"famitone/hw/hwdefs"
	"famitone/tracker/ft"
	"famitone/tracker/inst"
)

type vrc7Command uint8

const (
	vrc7None vrc7Command = iota
	vrc7On
	vrc7Trigger
	vrc7Halt
	vrc7Release
)

const (
	oplNoteOn    = 0x10
	oplSustainOn = 0x20

	vrc7MaxFnum = 0x1FF
)

// VRC7Group is the state shared by the 6 FM channels: the registers of the
// custom patch.
type VRC7Group struct {
	regs  [ft.VRC7Regs]uint8
	dirty bool
	port  int // custom register selected by Hxx
}

type vrc7 struct {
	freqChan
	group *VRC7Group
	index uint8

	patch         uint8
	command       vrc7Command
	hold          bool
	triggeredNote int
	octave        int
}

func newVRC7(env *Env, group *VRC7Group, id hwdefs.ChannelID) *vrc7 {
	c := &vrc7{group: group, index: uint8(id - hwdefs.VRC7Ch1)}
	c.init(c, env, id, 2047, 15)
	return c
}

func (c *vrc7) regWrite(reg, val uint8) {
	c.write(0x9010, reg)
	c.write(0x9030, val)
}

func (c *vrc7) SetPatch(patch uint8) { c.patch = patch & 0x0F }

func (c *vrc7) SetCustomReg(index int, val uint8) {
	g := c.group
	if index < 0 || index >= len(g.regs) || g.regs[index] == val {
		return
	}
	g.regs[index] = val
	g.dirty = true
}

// SetLinearPitch is a no-op: FM channels always work on note table fnums.
func (c *vrc7) SetLinearPitch(bool) {}

func (c *vrc7) ResetChannel() {
	c.freqChan.ResetChannel()
	c.instVolume = 0x0F
	c.hold = false
	c.triggeredNote = 0
}

func (c *vrc7) TriggerNote(note int) int {
	note = clamp(note, 0, ft.NoteCount-1)
	c.triggeredNote = note
	c.key = note
	if c.command != vrc7Trigger && c.command != vrc7Halt {
		c.command = vrc7On
	}
	c.octave = note / ft.NoteRange
	if len(c.noteTable) < ft.NoteRange {
		return note
	}
	return c.noteTable[note%ft.NoteRange] << 2
}

func (c *vrc7) handleEffect(eff ft.Effect, param uint8) bool {
	switch eff {
	case ft.EffVRC7Port:
		c.group.port = int(param & 0x07)
	case ft.EffVRC7Write:
		c.SetCustomReg(c.group.port, param)
	default:
		return c.freqChan.handleEffect(eff, param)
	}
	return true
}

func (c *vrc7) createInstHandler(t ft.InstType) bool {
	if t != ft.InstVRC7 || c.instType == ft.InstVRC7 {
		return false
	}
	c.instHandler = inst.NewVRC7(c)
	return true
}

// correctOctave keeps a portamento on a single block: the slide happens
// on the highest of the old and new octaves.
func (c *vrc7) correctOctave(old int) {
	switch {
	case c.octave > old:
		c.period >>= c.octave - old
	case c.octave < old:
		c.portaTo >>= old - c.octave
		c.octave = old
	}
}

func (c *vrc7) runNote(octave int, note ft.Note) int {
	old := c.octave
	halted := c.command == vrc7Halt
	if halted {
		c.period = 0
	}
	midi := c.Base.runNote(octave, note)
	if c.portaSpeed > 0 && c.effect == ft.EffPortamento && !halted {
		c.correctOctave(old)
	}
	return midi
}

func (c *vrc7) handleNote(note ft.Note, octave int) {
	c.freqChan.handleNote(note, octave)
	c.hold = true
	if c.effect != ft.EffPortamento || c.portaSpeed == 0 ||
		c.command == vrc7Halt || c.command == vrc7Release {
		c.command = vrc7Trigger
	}
}

func (c *vrc7) setupSlide() {
	old := c.octave
	c.freqChan.setupSlide()
	c.correctOctave(old)
}

func (c *vrc7) handleCut() {
	c.command = vrc7Halt
	c.cutNote()
}

func (c *vrc7) handleRelease() {
	if !c.release {
		c.command = vrc7Release
		c.releaseNote()
	}
}

func (c *vrc7) updateNoteRelease() {
	if c.noteRelease > 0 {
		c.noteRelease--
		if c.noteRelease == 0 {
			c.self.handleRelease()
		}
	}
}

func (c *vrc7) calculatePeriod(harmonic bool) int {
	fnum := c.period>>2 + c.vibrato() - c.fineOffset()
	if harmonic {
		fnum *= c.harmonic
	}
	return clamp(fnum, 0, vrc7MaxFnum)
}

// calculateVolume returns the attenuation written to the volume register.
func (c *vrc7) calculateVolume() int {
	v := (c.volume>>volColumnShift)*c.instVolume/15 - c.tremolo()
	return 15 - clamp(v, 0, 15)
}

func (c *vrc7) RefreshChannel() {
	fnum := c.self.calculatePeriod(true)
	volume := uint8(c.self.calculateVolume())

	if c.patch == 0 && (c.command == vrc7Trigger || c.group.dirty) {
		log.ModChan.DebugZ("custom patch").Stringer("chan", c.id).Blob("regs", c.group.regs[:]).End()
		for i, v := range c.group.regs {
			c.regWrite(uint8(i), v)
		}
		c.group.dirty = false
	}

	if !c.gate {
		c.command = vrc7Halt
	}

	var cmd uint8
	switch c.command {
	case vrc7Trigger:
		c.regWrite(0x20+c.index, 0)
		c.command = vrc7On
		cmd = oplNoteOn | oplSustainOn
	case vrc7On:
		if c.hold {
			cmd = oplNoteOn
		} else {
			cmd = oplSustainOn
		}
	case vrc7Release:
		cmd = oplSustainOn
	}

	c.regWrite(0x10+c.index, uint8(fnum))
	if c.command != vrc7Halt {
		c.regWrite(0x30+c.index, c.patch<<4|volume)
	}
	c.regWrite(0x20+c.index, uint8(fnum>>8)&0x01|uint8(c.octave)<<1|cmd)
}

func (c *vrc7) clearRegisters() {
	c.regWrite(0x10+c.index, 0)
	c.regWrite(0x20+c.index, 0)
	c.regWrite(0x30+c.index, 0x0F)
	c.note = 0
	c.effect = ft.EffNone
	c.command = vrc7Halt
}

func (c *vrc7) customString() string {
	if c.patch != 0 || c.group.port == 0 {
		return ""
	}
	return fmt.Sprintf(" H%02X", c.group.port)
}
