package chans

import (
	"fmt"

	"famitone/tracker/ft"
)

// freqChan is a channel whose pitch register holds a frequency instead of
// a period, so that higher values mean higher notes.
type freqChan struct {
	Base
}

func (c *freqChan) handleEffect(eff ft.Effect, param uint8) bool {
	if !c.linearPitch {
		switch eff {
		case ft.EffPortaUp:
			eff = ft.EffPortaDown
		case ft.EffPortaDown:
			eff = ft.EffPortaUp
		}
	}
	return c.Base.handleEffect(eff, param)
}

func (c *freqChan) calculatePeriod(harmonic bool) int {
	f := c.period + c.vibrato() - c.fineOffset() - c.pitchOffset()
	if c.linearPitch && c.noteTable != nil {
		f = c.self.limitPeriod(f)
		note, sub := f>>ft.LinearPitchShift, f%(1<<ft.LinearPitchShift)
		offset := 0
		if note < ft.NoteCount-1 {
			offset = c.noteTable[note+1] - c.noteTable[note]
		}
		offset = offset * sub >> ft.LinearPitchShift
		if sub != 0 && offset == 0 {
			offset = 1
		}
		f = c.noteTable[note] + offset
	}
	if harmonic {
		f *= c.harmonic
	}
	return c.self.limitRawPeriod(f)
}

// slideString shows the effect as typed: slides were swapped when parsed.
func (c *freqChan) slideString() string {
	eff := c.effect
	switch eff {
	case ft.EffPortaUp:
		eff = ft.EffPortaDown
	case ft.EffPortaDown:
		eff = ft.EffPortaUp
	case ft.EffPortamento:
	default:
		return c.Base.slideString()
	}
	if c.portaSpeed == 0 {
		return ""
	}
	return fmt.Sprintf(" %c%02X", eff.Char(), c.portaSpeed)
}
