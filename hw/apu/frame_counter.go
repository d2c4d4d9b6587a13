package apu

import (
	"famitone/emu/log"
	"famitone/hw/hwio"
)

var stepCycles = [2][2][6]int32{
	{ // NTSC
		{7457, 14913, 22371, 29828, 29829, 29830},
		{7457, 14913, 22371, 29829, 37281, 37282},
	},
	{ // PAL
		{8313, 16627, 24939, 33252, 33253, 33254},
		{8313, 16627, 24939, 33253, 41565, 41566},
	},
}

var frameType = [2][6]FrameType{
	{QuarterFrame, HalfFrame, QuarterFrame, NoFrame, HalfFrame, NoFrame},
	{QuarterFrame, HalfFrame, QuarterFrame, NoFrame, HalfFrame, NoFrame},
}

// frameCounter sequences quarter and half frame clocks, roughly at 240Hz. A
// write to $4017 takes effect immediately and no interrupt is ever raised.
type frameCounter struct {
	tick func(FrameType)

	region    int
	prevCycle int32
	curStep   int
	stepMode  int // 0: 4-step mode, 1: 5-step mode

	FRAMECOUNTER hwio.Reg8 `hwio:"offset=0x17,writeonly,wcb"`
}

func (fc *frameCounter) reset() {
	fc.prevCycle = 0
	fc.curStep = 0
	fc.stepMode = 0
}

func (fc *frameCounter) WriteFRAMECOUNTER(_, val uint8) {
	fc.stepMode = 0
	if val&0x80 != 0 {
		fc.stepMode = 1
	}
	fc.curStep = 0
	fc.prevCycle = 0

	log.ModSound.DebugZ("write frame counter").Int("mode", fc.stepMode).End()

	if fc.stepMode == 1 {
		// Writing with bit 7 set immediately clocks both the quarter and the
		// half frame units.
		fc.tick(HalfFrame)
	}
}

// run advances the sequencer by at most *cyclesToRun cycles, stopping at the
// next step. It returns the number of cycles consumed.
func (fc *frameCounter) run(cyclesToRun *int32) uint32 {
	var ran int32

	next := stepCycles[fc.region][fc.stepMode][fc.curStep]
	if fc.prevCycle+*cyclesToRun >= next {
		if ftyp := frameType[fc.stepMode][fc.curStep]; ftyp != NoFrame {
			fc.tick(ftyp)
		}

		ran = max(0, next-fc.prevCycle)
		*cyclesToRun -= ran

		fc.curStep++
		if fc.curStep == 6 {
			fc.curStep = 0
			fc.prevCycle = 0
		} else {
			fc.prevCycle += ran
		}
	} else {
		ran = *cyclesToRun
		*cyclesToRun = 0
		fc.prevCycle += ran
	}

	return uint32(ran)
}
