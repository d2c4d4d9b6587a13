package apu

import (
	"famitone/emu/log"
	"famitone/hw/hwdefs"
	"famitone/hw/hwio"
	"famitone/hw/snapshot"
)

// squareChannel is one of the two pulse channels, at $4000 and $4004. Each
// contains an envelope generator, a sweep unit, a timer with divide-by-two on
// the output, an 8-step sequencer and a length counter.
//
//	               +---------+    +---------+
//	               |  Sweep  |--->|Timer / 2|
//	               +---------+    +---------+
//	                    |              |
//	                    |              v
//	                    |         +---------+    +---------+
//	                    |         |Sequencer|    | Length  |
//	                    |         +---------+    +---------+
//	                    |              |              |
//	                    v              v              v
//	+---------+        |\             |\             |\          +---------+
//	|Envelope |------->| >----------->| >----------->| >-------->|   DAC   |
//	+---------+        |/             |/             |/          +---------+
type squareChannel struct {
	envelope envelope
	timer    timer

	isChannel1 bool

	duty    uint8
	dutyPos uint8

	sweepEnabled      bool
	sweepPeriod       uint8
	sweepNegate       bool
	sweepShift        uint8
	reloadSweep       bool
	sweepDivider      uint8
	sweepTargetPeriod uint32
	realPeriod        uint16

	Duty   hwio.Reg8 `hwio:"offset=0x00,writeonly,wcb"`
	Sweep  hwio.Reg8 `hwio:"offset=0x01,writeonly,wcb"`
	Timer  hwio.Reg8 `hwio:"offset=0x02,writeonly,wcb"`
	Length hwio.Reg8 `hwio:"offset=0x03,writeonly,wcb"`
}

func newSquareChannel(mixer mixer, channel hwdefs.ChannelID) squareChannel {
	return squareChannel{
		isChannel1: channel == hwdefs.Square1,
		timer: timer{
			channel: channel,
			mixer:   mixer,
		},
	}
}

func (sc *squareChannel) WriteDUTY(_, val uint8) {
	sc.envelope.init(val)
	sc.duty = (val & 0xC0) >> 6

	log.ModSound.DebugZ("write pulse duty").
		Stringer("chan", sc.timer.channel).
		Uint8("duty", sc.duty).
		End()
}

func (sc *squareChannel) WriteSWEEP(_, val uint8) {
	sc.initSweep(val)
}

func (sc *squareChannel) WriteTIMER(_, val uint8) {
	sc.setPeriod((sc.realPeriod & 0x0700) | uint16(val))
}

func (sc *squareChannel) WriteLENGTH(_, val uint8) {
	sc.envelope.lenCounter.load(val >> 3)
	sc.setPeriod((sc.realPeriod & 0xFF) | uint16(val&0x07)<<8)

	// sequencer and envelope are restarted.
	sc.dutyPos = 0
	sc.envelope.restart()

	log.ModSound.DebugZ("write pulse length").
		Stringer("chan", sc.timer.channel).
		Uint16("period", sc.realPeriod).
		End()
}

func (sc *squareChannel) isMuted() bool {
	// A period of t < 8, either set explicitly or via a sweep period update,
	// silences the corresponding pulse channel.
	return sc.realPeriod < 8 || (!sc.sweepNegate && sc.sweepTargetPeriod > 0x7FF)
}

func (sc *squareChannel) initSweep(val uint8) {
	sc.sweepEnabled = val&0x80 != 0
	sc.sweepNegate = val&0x08 != 0

	// The divider's period is set to P + 1
	sc.sweepPeriod = ((val & 0x70) >> 4) + 1
	sc.sweepShift = val & 0x07

	sc.updateTargetPeriod()
	sc.reloadSweep = true
}

func (sc *squareChannel) updateTargetPeriod() {
	shift := sc.realPeriod >> sc.sweepShift
	if sc.sweepNegate {
		sc.sweepTargetPeriod = uint32(sc.realPeriod - shift)
		if sc.isChannel1 {
			// Pulse 1 adds the ones' complement.
			sc.sweepTargetPeriod--
		}
	} else {
		sc.sweepTargetPeriod = uint32(sc.realPeriod + shift)
	}
}

func (sc *squareChannel) setPeriod(period uint16) {
	sc.realPeriod = period
	sc.timer.period = sc.realPeriod*2 + 1
	sc.updateTargetPeriod()
}

// duty cycle sequences for the square channels.
var squareDuty = [4][8]uint8{
	{0, 0, 0, 0, 0, 0, 0, 1},
	{0, 0, 0, 0, 0, 0, 1, 1},
	{0, 0, 0, 0, 1, 1, 1, 1},
	{1, 1, 1, 1, 1, 1, 0, 0},
}

func (sc *squareChannel) updateOutput() {
	if sc.isMuted() {
		sc.timer.addOutput(0)
		return
	}
	out := squareDuty[sc.duty][sc.dutyPos] * sc.envelope.output()
	sc.timer.addOutput(int8(out))
}

func (sc *squareChannel) run(targetCycle uint32) {
	for sc.timer.run(targetCycle) {
		sc.dutyPos = (sc.dutyPos - 1) & 0x07
		sc.updateOutput()
	}
}

func (sc *squareChannel) reset() {
	sc.envelope.reset()
	sc.timer.reset()

	sc.duty = 0
	sc.dutyPos = 0
	sc.realPeriod = 0

	sc.sweepEnabled = false
	sc.sweepPeriod = 0
	sc.sweepNegate = false
	sc.sweepShift = 0
	sc.reloadSweep = false
	sc.sweepDivider = 0
	sc.sweepTargetPeriod = 0
	sc.updateTargetPeriod()
}

func (sc *squareChannel) tickSweep() {
	sc.sweepDivider--
	if sc.sweepDivider == 0 {
		if sc.sweepShift > 0 && sc.sweepEnabled && sc.realPeriod >= 8 && sc.sweepTargetPeriod <= 0x7FF {
			sc.setPeriod(uint16(sc.sweepTargetPeriod))
		}
		sc.sweepDivider = sc.sweepPeriod
	}

	if sc.reloadSweep {
		sc.sweepDivider = sc.sweepPeriod
		sc.reloadSweep = false
	}
}

func (sc *squareChannel) output() uint8 {
	return uint8(sc.timer.lastOutput)
}

func (sc *squareChannel) saveState(state *snapshot.APUSquare) {
	sc.timer.saveState(&state.Timer)
	sc.envelope.saveState(&state.Envelope)
	state.RealPeriod = sc.realPeriod
	state.SweepEnabled = sc.sweepEnabled
	state.SweepNegate = sc.sweepNegate
	state.SweepShift = sc.sweepShift
	state.Duty = sc.duty
	state.DutyPos = sc.dutyPos
}

func (sc *squareChannel) status() bool            { return sc.envelope.lenCounter.status() }
func (sc *squareChannel) setEnabled(enabled bool) { sc.envelope.lenCounter.setEnabled(enabled) }
func (sc *squareChannel) tickEnvelope()           { sc.envelope.tick() }
func (sc *squareChannel) tickLengthCounter()      { sc.envelope.lenCounter.tick() }
func (sc *squareChannel) reloadLengthCounter()    { sc.envelope.lenCounter.reload() }
func (sc *squareChannel) endFrame()               { sc.timer.endFrame() }
