// Package apu emulates the sound channels of the 2A03: two pulse channels, a
// triangle, a noise generator and the delta modulation channel (DPCM).
//
// The APU has no notion of a CPU. Time is pushed into it with Process, in CPU
// cycles relative to the start of the current audio frame, and EndFrame closes
// the frame.
package apu

import (
	"famitone/emu/log"
	"famitone/hw/hwdefs"
	"famitone/hw/hwio"
	"famitone/hw/snapshot"
)

type APU struct {
	mixer mixer

	Square1  squareChannel
	Square2  squareChannel
	Triangle triangleChannel
	Noise    noiseChannel
	DMC      DMC

	frameCounter frameCounter

	prevCycle uint32
	curCycle  uint32

	STATUS hwio.Reg8 `hwio:"offset=0x15,pcb,rcb,wcb"`
	DAC0   hwio.Reg8 `hwio:"offset=0x18,readonly,pcb"` // instant DAC value of pulse 2 (high) and pulse 1 (low)
	DAC1   hwio.Reg8 `hwio:"offset=0x19,readonly,pcb"` // instant DAC value of noise (high) and triangle (low)
	DAC2   hwio.Reg8 `hwio:"offset=0x1A,readonly,pcb"` // instant DAC value of DPCM
}

func New(mem SampleMemory, mixer mixer) *APU {
	a := &APU{mixer: mixer}
	a.Square1 = newSquareChannel(mixer, hwdefs.Square1)
	a.Square2 = newSquareChannel(mixer, hwdefs.Square2)
	a.Triangle = newTriangleChannel(mixer)
	a.Noise = newNoiseChannel(mixer)
	a.DMC = newDMC(mem, mixer)
	a.frameCounter.tick = a.frameCounterTick

	hwio.MustInitRegs(a)
	hwio.MustInitRegs(&a.Square1)
	hwio.MustInitRegs(&a.Square2)
	hwio.MustInitRegs(&a.Triangle)
	hwio.MustInitRegs(&a.Noise)
	hwio.MustInitRegs(&a.DMC)
	hwio.MustInitRegs(&a.frameCounter)

	a.Reset()
	return a
}

// Map maps all APU registers on the table, at $4000-$401A.
func (a *APU) Map(t *hwio.Table) {
	t.MapBank(0x4000, &a.Square1, 0)
	t.MapBank(0x4004, &a.Square2, 0)
	t.MapBank(0x4000, &a.Triangle, 0)
	t.MapBank(0x4000, &a.Noise, 0)
	t.MapBank(0x4000, &a.DMC, 0)
	t.MapBank(0x4000, &a.frameCounter, 0)
	t.MapBank(0x4000, a, 0)
}

func (a *APU) Status() uint8 {
	var status uint8
	if a.Square1.status() {
		status |= 0x01
	}
	if a.Square2.status() {
		status |= 0x02
	}
	if a.Triangle.status() {
		status |= 0x04
	}
	if a.Noise.status() {
		status |= 0x08
	}
	if a.DMC.status() {
		status |= 0x10
	}
	if a.DMC.irq {
		status |= 0x80
	}
	return status
}

// STATUS: $4015
func (a *APU) PeekSTATUS(val uint8) uint8 {
	return a.Status()
}

func (a *APU) ReadSTATUS(val uint8) uint8 {
	a.run()
	return a.Status()
}

func (a *APU) WriteSTATUS(old, val uint8) {
	log.ModSound.DebugZ("write status").Hex8("val", val).End()

	a.run()
	a.Square1.setEnabled(val&0x01 != 0)
	a.Square2.setEnabled(val&0x02 != 0)
	a.Triangle.setEnabled(val&0x04 != 0)
	a.Noise.setEnabled(val&0x08 != 0)
	a.DMC.setEnabled(val&0x10 != 0)
}

func (a *APU) PeekDAC0(uint8) uint8 { return a.Square1.output() | a.Square2.output()<<4 }
func (a *APU) PeekDAC1(uint8) uint8 { return a.Triangle.output() | a.Noise.output()<<4 }
func (a *APU) PeekDAC2(uint8) uint8 { return a.DMC.output() }

func (a *APU) frameCounterTick(ftyp FrameType) {
	// Quarter & half frames clock envelopes & linear counter.
	a.Square1.tickEnvelope()
	a.Square2.tickEnvelope()
	a.Triangle.tickLinearCounter()
	a.Noise.tickEnvelope()

	if ftyp == HalfFrame {
		// Half frames clock length counters & sweep units.
		a.Square1.tickLengthCounter()
		a.Square2.tickLengthCounter()
		a.Triangle.tickLengthCounter()
		a.Noise.tickLengthCounter()

		a.Square1.tickSweep()
		a.Square2.tickSweep()
	}
}

// SetMachine selects NTSC or PAL noise, DMC and frame sequencer timings.
func (a *APU) SetMachine(m hwdefs.Machine) {
	pal := m == hwdefs.PAL
	a.Noise.setPAL(pal)
	a.DMC.setPAL(pal)
	a.frameCounter.region = 0
	if pal {
		a.frameCounter.region = 1
	}
}

func (a *APU) Reset() {
	a.curCycle = 0
	a.prevCycle = 0

	a.Square1.reset()
	a.Square2.reset()
	a.Triangle.reset()
	a.Noise.reset()
	a.DMC.reset()
	a.frameCounter.reset()
}

// Process runs the channels for the given number of CPU cycles.
func (a *APU) Process(cycles uint32) {
	a.curCycle += cycles
	a.run()
}

// EndFrame flushes pending output and restarts cycle counting at 0. The mixer
// must be told about the frame length separately.
func (a *APU) EndFrame() {
	a.run()
	a.Square1.endFrame()
	a.Square2.endFrame()
	a.Triangle.endFrame()
	a.Noise.endFrame()
	a.DMC.endFrame()

	a.curCycle = 0
	a.prevCycle = 0
}

// run updates the frame counter and all channels up to the current cycle.
func (a *APU) run() {
	cyclesToRun := int32(a.curCycle - a.prevCycle)

	for cyclesToRun > 0 {
		a.prevCycle += a.frameCounter.run(&cyclesToRun)

		// Reload length counters after running the frame counter so that the
		// length counter gets clocked first.
		a.Square1.reloadLengthCounter()
		a.Square2.reloadLengthCounter()
		a.Noise.reloadLengthCounter()
		a.Triangle.reloadLengthCounter()

		a.Square1.run(a.prevCycle)
		a.Square2.run(a.prevCycle)
		a.Noise.run(a.prevCycle)
		a.Triangle.run(a.prevCycle)
		a.DMC.run(a.prevCycle)
	}
}

func (a *APU) State() *snapshot.APU {
	var state snapshot.APU
	a.Square1.saveState(&state.Square1)
	a.Square2.saveState(&state.Square2)
	a.Triangle.saveState(&state.Triangle)
	a.Noise.saveState(&state.Noise)
	a.DMC.saveState(&state.DMC)
	state.FrameStep = uint8(a.frameCounter.curStep)
	state.FiveStep = a.frameCounter.stepMode == 1
	return &state
}
