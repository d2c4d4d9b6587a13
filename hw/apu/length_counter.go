package apu

import "famitone/hw/snapshot"

var lengthLUT = [32]uint8{
	10, 254, 20, 2, 40, 4, 80, 6, 160, 8, 60, 10, 14, 12, 26, 14,
	12, 16, 24, 18, 48, 20, 96, 22, 192, 24, 72, 26, 16, 28, 32, 30,
}

type lengthCounter struct {
	enabled bool
	halt    bool
	newHalt bool
	counter uint8

	reloadValue uint8
	prevValue   uint8
}

func (lc *lengthCounter) init(halt bool) {
	lc.newHalt = halt
}

func (lc *lengthCounter) load(val uint8) {
	if lc.enabled {
		lc.reloadValue = lengthLUT[val&0x1F]
		lc.prevValue = lc.counter
	}
}

func (lc *lengthCounter) reset() {
	*lc = lengthCounter{}
}

func (lc *lengthCounter) status() bool {
	return lc.counter > 0
}

// reload applies a pending length load and halt flag change.
func (lc *lengthCounter) reload() {
	if lc.reloadValue != 0 {
		if lc.counter == lc.prevValue {
			lc.counter = lc.reloadValue
		}
		lc.reloadValue = 0
	}
	lc.halt = lc.newHalt
}

func (lc *lengthCounter) tick() {
	if lc.counter > 0 && !lc.halt {
		lc.counter--
	}
}

func (lc *lengthCounter) setEnabled(enabled bool) {
	if !enabled {
		lc.counter = 0
	}
	lc.enabled = enabled
}

func (lc *lengthCounter) saveState(state *snapshot.APULengthCounter) {
	state.Enabled = lc.enabled
	state.Halt = lc.halt
	state.Counter = lc.counter
}
