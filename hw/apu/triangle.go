package apu

import (
	"famitone/hw/hwdefs"
	"famitone/hw/hwio"
	"famitone/hw/snapshot"
)

// triangleChannel contains a timer, a 32-step sequencer, a length counter, a
// linear counter and a 4-bit DAC.
//
//	+---------+    +---------+
//	|LinearCtr|    | Length  |
//	+---------+    +---------+
//	     |              |
//	     v              v
//	+---------+        |\             |\         +---------+    +---------+
//	|  Timer  |------->| >----------->| >------->|Sequencer|--->|   DAC   |
//	+---------+        |/             |/         +---------+    +---------+
type triangleChannel struct {
	lenCounter lengthCounter
	timer      timer

	linearCounter       uint8
	linearCounterReload uint8
	linearReload        bool
	linearCtrl          bool

	pos uint8 // current position in triangleSequence.

	Linear hwio.Reg8 `hwio:"offset=0x08,writeonly,wcb"`
	Unused hwio.Reg8 `hwio:"offset=0x09,writeonly"`
	Timer  hwio.Reg8 `hwio:"offset=0x0A,writeonly,wcb"`
	Length hwio.Reg8 `hwio:"offset=0x0B,writeonly,wcb"`
}

func newTriangleChannel(mixer mixer) triangleChannel {
	return triangleChannel{
		timer: timer{
			channel: hwdefs.Triangle,
			mixer:   mixer,
		},
	}
}

var triangleSequence = [32]int8{
	15, 14, 13, 12, 11, 10, 9, 8,
	7, 6, 5, 4, 3, 2, 1, 0,
	0, 1, 2, 3, 4, 5, 6, 7,
	8, 9, 10, 11, 12, 13, 14, 15,
}

func (tc *triangleChannel) run(targetCycle uint32) {
	for tc.timer.run(targetCycle) {
		// The sequencer is clocked by the timer as long as both the linear
		// counter and the length counter are nonzero.
		if tc.lenCounter.status() && tc.linearCounter > 0 {
			tc.pos = (tc.pos + 1) & 0x1F

			// Ultrasonic periods are not output, they would only pop.
			if tc.timer.period >= 2 {
				tc.timer.addOutput(triangleSequence[tc.pos])
			}
		}
	}
}

func (tc *triangleChannel) reset() {
	tc.timer.reset()
	tc.lenCounter.reset()

	tc.linearCounter = 0
	tc.linearCounterReload = 0
	tc.linearReload = false
	tc.linearCtrl = false
	tc.pos = 0
}

func (tc *triangleChannel) WriteLINEAR(_, val uint8) {
	tc.linearCtrl = val&0x80 != 0
	tc.linearCounterReload = val & 0x7F
	tc.lenCounter.init(tc.linearCtrl)
}

func (tc *triangleChannel) WriteTIMER(_, val uint8) {
	tc.timer.period = (tc.timer.period & 0xFF00) | uint16(val)
}

func (tc *triangleChannel) WriteLENGTH(_, val uint8) {
	tc.lenCounter.load(val >> 3)
	tc.timer.period = (tc.timer.period & 0xFF) | uint16(val&0x07)<<8

	// Sets the linear counter reload flag (side effect).
	tc.linearReload = true
}

func (tc *triangleChannel) tickLinearCounter() {
	if tc.linearReload {
		tc.linearCounter = tc.linearCounterReload
	} else if tc.linearCounter > 0 {
		tc.linearCounter--
	}

	if !tc.linearCtrl {
		tc.linearReload = false
	}
}

func (tc *triangleChannel) output() uint8 {
	return uint8(tc.timer.lastOutput)
}

func (tc *triangleChannel) saveState(state *snapshot.APUTriangle) {
	tc.lenCounter.saveState(&state.LengthCounter)
	tc.timer.saveState(&state.Timer)
	state.LinearCounter = tc.linearCounter
	state.LinearCounterReload = tc.linearCounterReload
	state.LinearCtrl = tc.linearCtrl
	state.Pos = tc.pos
}

func (tc *triangleChannel) status() bool            { return tc.lenCounter.status() }
func (tc *triangleChannel) setEnabled(enabled bool) { tc.lenCounter.setEnabled(enabled) }
func (tc *triangleChannel) tickLengthCounter()      { tc.lenCounter.tick() }
func (tc *triangleChannel) reloadLengthCounter()    { tc.lenCounter.reload() }
func (tc *triangleChannel) endFrame()               { tc.timer.endFrame() }
