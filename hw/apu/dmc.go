package apu

import (
	"famitone/emu/log"
	"famitone/hw/hwdefs"
	"famitone/hw/hwio"
	"famitone/hw/snapshot"
)

// The DMC (Delta Modulation Channel) outputs samples composed of 1-bit
// deltas and its DAC can be directly changed. There is no CPU here to steal
// cycles from, sample bytes are fetched from memory as soon as the buffer is
// empty.
//
//	+----------+    +---------+
//	|  Reader  |    |  Timer  |
//	+----------+    +---------+
//	     |               |
//	     |               v
//	+----------+    +---------+     +---------+     +---------+
//	|  Buffer  |----| Output  |---->| Counter |---->|   DAC   |
//	+----------+    +---------+     +---------+     +---------+
type DMC struct {
	mem   SampleMemory
	timer timer

	sampleAddr uint16
	sampleLen  uint16
	outlvl     uint8
	irqEnabled bool
	irq        bool
	loop       bool

	curaddr   uint16
	remaining uint16
	readbuf   uint8
	bufEmpty  bool

	shiftReg uint8
	bitsLeft uint8
	silence  bool

	FLAGS      hwio.Reg8 `hwio:"offset=0x10,writeonly,wcb"`
	LOAD       hwio.Reg8 `hwio:"offset=0x11,writeonly,wcb"`
	SAMPLEADDR hwio.Reg8 `hwio:"offset=0x12,writeonly,wcb"`
	SAMPLELEN  hwio.Reg8 `hwio:"offset=0x13,writeonly,wcb"`
}

func newDMC(mem SampleMemory, mixer mixer) DMC {
	return DMC{
		mem:     mem,
		silence: true,
		timer: timer{
			channel: hwdefs.DPCM,
			mixer:   mixer,
		},
	}
}

func (dc *DMC) initSample() {
	dc.curaddr = dc.sampleAddr
	dc.remaining = dc.sampleLen
}

func (dc *DMC) reset() {
	dc.timer.reset()

	dc.sampleAddr = 0xC000
	dc.sampleLen = 1
	dc.outlvl = 0
	dc.irqEnabled = false
	dc.irq = false
	dc.loop = false

	dc.curaddr = 0
	dc.remaining = 0
	dc.readbuf = 0
	dc.bufEmpty = true

	dc.shiftReg = 0
	dc.bitsLeft = 8
	dc.silence = true

	dc.timer.period = dmcPeriodLUT[0][0] - 1
	dc.timer.timer = dc.timer.period
}

var dmcPeriodLUT = [2][16]uint16{
	{428, 380, 340, 320, 286, 254, 226, 214, 190, 160, 142, 128, 106, 84, 72, 54},
	{398, 354, 316, 298, 276, 236, 210, 198, 176, 148, 132, 118, 98, 78, 66, 50},
}

// $4010
func (dc *DMC) WriteFLAGS(_, val uint8) {
	dc.irqEnabled = val&0x80 != 0
	dc.loop = val&0x40 != 0
	dc.timer.period = dmcPeriodLUT[0][val&0x0F] - 1
	if !dc.irqEnabled {
		dc.irq = false
	}

	log.ModSound.DebugZ("write dmc flags").
		Hex8("val", val).
		Bool("loop", dc.loop).
		Uint16("period", dc.timer.period).
		End()
}

func (dc *DMC) setPAL(pal bool) {
	idx := 0
	if pal {
		idx = 1
	}
	dc.timer.period = dmcPeriodLUT[idx][dc.FLAGS.Value&0x0F] - 1
}

// $4011
func (dc *DMC) WriteLOAD(_, val uint8) {
	dc.outlvl = val & 0x7F

	// $4011 applies the new output right away, not on the timer's reload.
	dc.timer.addOutput(int8(dc.outlvl))

	log.ModSound.DebugZ("write dmc load").
		Uint8("out lvl", dc.outlvl).
		End()
}

// $4012: start of sample is at address $C000 + $40*$xx
func (dc *DMC) WriteSAMPLEADDR(_, val uint8) {
	dc.sampleAddr = 0xC000 | uint16(val)<<6
}

// $4013: length of sample is $10*$xx + 1 bytes (128*$xx + 8 samples)
func (dc *DMC) WriteSAMPLELEN(_, val uint8) {
	dc.sampleLen = uint16(val)<<4 | 0x1
}

// fetch fills the sample buffer if it's empty and bytes remain.
func (dc *DMC) fetch() {
	if !dc.bufEmpty || dc.remaining == 0 {
		return
	}

	dc.readbuf = dc.mem.Read8(dc.curaddr)
	dc.bufEmpty = false

	// Address wraps around to $8000, not $0000.
	dc.curaddr++
	if dc.curaddr == 0 {
		dc.curaddr = 0x8000
	}

	dc.remaining--
	if dc.remaining == 0 {
		if dc.loop {
			dc.initSample()
		} else if dc.irqEnabled {
			dc.irq = true
		}
	}
}

func (dc *DMC) run(targetCycle uint32) {
	for dc.timer.run(targetCycle) {
		if !dc.silence {
			if dc.shiftReg&0x01 != 0 {
				if dc.outlvl <= 125 {
					dc.outlvl += 2
				}
			} else if dc.outlvl >= 2 {
				dc.outlvl -= 2
			}
			dc.shiftReg >>= 1
		}

		dc.bitsLeft--
		if dc.bitsLeft == 0 {
			dc.bitsLeft = 8
			if dc.bufEmpty {
				dc.silence = true
			} else {
				dc.silence = false
				dc.shiftReg = dc.readbuf
				dc.bufEmpty = true
				dc.fetch()
			}
		}

		dc.timer.addOutput(int8(dc.outlvl))
	}
}

func (dc *DMC) status() bool {
	return dc.remaining > 0
}

func (dc *DMC) endFrame() {
	dc.timer.endFrame()
}

func (dc *DMC) setEnabled(enabled bool) {
	dc.irq = false
	if !enabled {
		dc.remaining = 0
		return
	}
	if dc.remaining == 0 {
		dc.initSample()
		dc.fetch()
	}
}

func (dc *DMC) output() uint8 {
	return uint8(dc.timer.lastOutput)
}

// CurrentAddr returns the address of the next sample byte to fetch.
func (dc *DMC) CurrentAddr() uint16 {
	return dc.curaddr
}

func (dc *DMC) saveState(state *snapshot.APUDMC) {
	dc.timer.saveState(&state.Timer)
	state.SampleAddr = dc.sampleAddr
	state.SampleLen = dc.sampleLen
	state.CurrentAddr = dc.curaddr
	state.Remaining = dc.remaining
	state.OutputLevel = dc.outlvl
	state.BitsLeft = dc.bitsLeft
	state.IRQEnabled = dc.irqEnabled
	state.Loop = dc.loop
	state.Silence = dc.silence
}
