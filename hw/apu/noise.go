package apu

import (
	"famitone/hw/hwdefs"
	"famitone/hw/hwio"
	"famitone/hw/snapshot"
)

// noiseChannel generates pseudo-random 1-bit noise at 16 different
// frequencies.
//
//	      Timer --> Shift Register   Length Counter
//	                    |                |
//	                    v                v
//	Envelope -------> Gate ----------> Gate --> (to mixer)
type noiseChannel struct {
	Volume hwio.Reg8 `hwio:"offset=0x0C,writeonly,wcb"`
	Unused hwio.Reg8 `hwio:"offset=0x0D,writeonly"`
	Period hwio.Reg8 `hwio:"offset=0x0E,writeonly,wcb"`
	Length hwio.Reg8 `hwio:"offset=0x0F,writeonly,wcb"`

	shiftReg uint16
	mode     bool
	timer    timer
	envelope envelope
}

func newNoiseChannel(mixer mixer) noiseChannel {
	return noiseChannel{
		timer: timer{
			channel: hwdefs.Noise,
			mixer:   mixer,
		},
	}
}

func (nc *noiseChannel) WriteVOLUME(_, val uint8) {
	nc.envelope.init(val)
}

var noisePeriodLUT = [2][16]uint16{
	{4, 8, 16, 32, 64, 96, 128, 160, 202, 254, 380, 508, 762, 1016, 2034, 4068},
	{4, 8, 14, 30, 60, 88, 118, 148, 188, 236, 354, 472, 708, 944, 1890, 3778},
}

func (nc *noiseChannel) WritePERIOD(_, val uint8) {
	nc.timer.period = noisePeriodLUT[0][val&0x0F] - 1
	nc.mode = val&0x80 != 0
}

func (nc *noiseChannel) setPAL(pal bool) {
	idx := 0
	if pal {
		idx = 1
	}
	nc.timer.period = noisePeriodLUT[idx][nc.Period.Value&0x0F] - 1
}

func (nc *noiseChannel) WriteLENGTH(_, val uint8) {
	nc.envelope.lenCounter.load(val >> 3)
	nc.envelope.restart()
}

func (nc *noiseChannel) run(targetCycle uint32) {
	for nc.timer.run(targetCycle) {
		// Feedback is calculated as the exclusive-OR of bit 0 and one other
		// bit: bit 6 if Mode flag is set, otherwise bit 1.
		modebit := 1
		if nc.mode {
			modebit = 6
		}

		feedback := (nc.shiftReg & 0x01) ^ ((nc.shiftReg >> modebit) & 0x01)
		nc.shiftReg >>= 1
		nc.shiftReg |= feedback << 14

		if nc.isMuted() {
			nc.timer.addOutput(0)
		} else {
			nc.timer.addOutput(int8(nc.envelope.output()))
		}
	}
}

func (nc *noiseChannel) output() uint8 {
	return uint8(nc.timer.lastOutput)
}

// The mixer receives the current envelope volume except when bit 0 of the
// shift register is set.
func (nc *noiseChannel) isMuted() bool {
	return nc.shiftReg&0x01 == 0x01
}

func (nc *noiseChannel) reset() {
	nc.envelope.reset()
	nc.timer.reset()

	nc.timer.period = noisePeriodLUT[0][0] - 1
	nc.shiftReg = 1
	nc.mode = false
}

func (nc *noiseChannel) saveState(state *snapshot.APUNoise) {
	nc.timer.saveState(&state.Timer)
	nc.envelope.saveState(&state.Envelope)
	state.ShiftReg = nc.shiftReg
	state.Mode = nc.mode
}

func (nc *noiseChannel) status() bool            { return nc.envelope.lenCounter.status() }
func (nc *noiseChannel) setEnabled(enabled bool) { nc.envelope.lenCounter.setEnabled(enabled) }
func (nc *noiseChannel) tickEnvelope()           { nc.envelope.tick() }
func (nc *noiseChannel) tickLengthCounter()      { nc.envelope.lenCounter.tick() }
func (nc *noiseChannel) reloadLengthCounter()    { nc.envelope.lenCounter.reload() }
func (nc *noiseChannel) endFrame()               { nc.timer.endFrame() }
