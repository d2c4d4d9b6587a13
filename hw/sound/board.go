// Package sound assembles the 2A03 and the expansion sound chips behind a
// single register bus, as seen by the sound driver.
package sound

import (
	"slices"

	"famitone/emu/log"
	"famitone/hw/apu"
	"famitone/hw/fds"
	"famitone/hw/hwdefs"
	"famitone/hw/hwio"
	"famitone/hw/mixer"
	"famitone/hw/s5b"
	"famitone/hw/snapshot"
	"famitone/hw/vrc6"
	"famitone/hw/vrc7"
)

// DPCM samples live in $C000-$FFFF.
const (
	SampleBase    = 0xC000
	SampleMemSize = 0x4000
)

// Unmapped reads return the high byte of the address.
type openBus struct{}

func (openBus) Read8(addr uint16) uint8   { return uint8(addr >> 8) }
func (openBus) Peek8(addr uint16) uint8   { return uint8(addr >> 8) }
func (openBus) Write8(addr uint16, _ uint8) {}

type Board struct {
	Bus   *hwio.Table
	Mixer *mixer.Mixer

	APU  *apu.APU
	VRC6 *vrc6.VRC6
	VRC7 *vrc7.VRC7
	FDS  *fds.FDS
	S5B  *s5b.S5B

	dpcm hwio.Mem

	machine hwdefs.Machine
	chips   hwdefs.Chip

	frameCycles uint32 // audio frame length, in CPU cycles
	frameClock  uint32 // cycles run in the current frame
	pending     uint32 // cycles added but not yet run

	samples []int16
}

func New(sampleRate int) *Board {
	b := &Board{
		Bus:   hwio.NewTable("sound"),
		Mixer: mixer.New(sampleRate),
		dpcm: hwio.Mem{
			Name:  "dpcm",
			Data:  make([]byte, SampleMemSize),
			Flags: hwio.ReadOnlyFlag,
		},
	}
	b.APU = apu.New(&b.dpcm, b.Mixer)
	b.VRC6 = vrc6.New(b.Mixer)
	b.VRC7 = vrc7.New(b.Mixer)
	b.FDS = fds.New(b.Mixer)
	b.S5B = s5b.New(b.Mixer)

	b.SetMachine(hwdefs.NTSC)
	b.SetExternalSound(0)
	return b
}

// SetMachine selects the region, which sets the CPU clock and the audio frame
// length.
func (b *Board) SetMachine(m hwdefs.Machine) {
	b.machine = m
	b.frameCycles = uint32(m.CPUClock() / m.FrameRate())
	b.APU.SetMachine(m)
	b.Mixer.SetClockRate(m.CPUClock())
	log.ModSound.DebugZ("machine").Stringer("machine", m).Uint("frame", uint64(b.frameCycles)).End()
}

func (b *Board) Machine() hwdefs.Machine { return b.machine }

// SetExternalSound enables a set of expansion chips, remapping the register
// bus accordingly. All chips are reset.
func (b *Board) SetExternalSound(chips hwdefs.Chip) {
	b.chips = chips

	b.Bus.Reset()
	b.Bus.Unmapped = openBus{}
	b.APU.Map(b.Bus)
	if chips&hwdefs.ChipVRC6 != 0 {
		b.VRC6.Map(b.Bus)
	}
	if chips&hwdefs.ChipVRC7 != 0 {
		b.VRC7.Map(b.Bus)
	}
	if chips&hwdefs.ChipFDS != 0 {
		b.FDS.Map(b.Bus)
	}
	if chips&hwdefs.ChipS5B != 0 {
		b.S5B.Map(b.Bus)
	}

	b.Mixer.ExternalSound(chips)
	b.Reset()
	log.ModSound.InfoZ("external sound").Stringer("chips", chips).End()
}

func (b *Board) Chips() hwdefs.Chip { return b.chips }

// Reset resets all chips and drops any pending or buffered audio.
func (b *Board) Reset() {
	b.frameClock = 0
	b.pending = 0
	b.samples = b.samples[:0]
	b.Bus.Written.Reset()

	b.APU.Reset()
	b.VRC6.Reset()
	b.VRC7.Reset()
	b.FDS.Reset()
	b.S5B.Reset()
	b.Mixer.Reset()
}

// LoadSamples copies DPCM sample data at the given address within the sample
// area. Data past the end of the area is dropped.
func (b *Board) LoadSamples(addr uint16, data []byte) {
	if addr < SampleBase {
		return
	}
	copy(b.dpcm.Data[addr-SampleBase:], data)
}

// AddTime schedules CPU cycles to run before the next register access or
// Process call.
func (b *Board) AddTime(cycles uint32) {
	b.pending += cycles
}

// Process runs all pending cycles. Every time an audio frame completes, the
// chips are flushed into the mixer and the produced samples are buffered.
func (b *Board) Process() {
	for b.pending > 0 {
		run := min(b.pending, b.frameCycles-b.frameClock)

		b.APU.Process(run)
		if b.chips&hwdefs.ChipVRC6 != 0 {
			b.VRC6.Process(run)
		}
		if b.chips&hwdefs.ChipVRC7 != 0 {
			b.VRC7.Process(run)
		}
		if b.chips&hwdefs.ChipFDS != 0 {
			b.FDS.Process(run)
		}
		if b.chips&hwdefs.ChipS5B != 0 {
			b.S5B.Process(run)
		}

		b.pending -= run
		b.frameClock += run
		if b.frameClock == b.frameCycles {
			b.endFrame()
		}
	}
}

func (b *Board) endFrame() {
	b.APU.EndFrame()
	b.VRC6.EndFrame()
	b.VRC7.EndFrame()
	b.FDS.EndFrame()
	b.S5B.EndFrame()

	b.Mixer.FinishBuffer(b.frameCycles)
	b.samples = append(b.samples, b.Mixer.Samples()...)
	b.frameClock = 0
}

// Samples returns the audio produced since the last call. The returned slice
// is only valid until the next call to Process.
func (b *Board) Samples() []int16 {
	s := b.samples
	b.samples = b.samples[:0]
	return s
}

// Write runs pending cycles, then writes a chip register.
func (b *Board) Write(addr uint16, val uint8) {
	b.Process()
	b.Bus.Write8(addr, val)
}

// Read runs pending cycles, then reads a chip register.
func (b *Board) Read(addr uint16) uint8 {
	b.Process()
	return b.Bus.Read8(addr)
}

// Peek returns the value of a register without side effects.
func (b *Board) Peek(addr uint16) uint8 {
	return b.Bus.Peek8(addr)
}

// Frequency returns the current frequency of a channel in Hz, 0 if unknown
// or silent.
func (b *Board) Frequency(ch hwdefs.ChannelID) float64 {
	switch {
	case ch >= hwdefs.VRC6Pulse1 && ch <= hwdefs.VRC6Sawtooth:
		switch ch {
		case hwdefs.VRC6Pulse1:
			return b.VRC6.Pulse1.Frequency()
		case hwdefs.VRC6Pulse2:
			return b.VRC6.Pulse2.Frequency()
		}
		return b.VRC6.Sawtooth.Frequency()
	case ch >= hwdefs.VRC7Ch1 && ch <= hwdefs.VRC7Ch6:
		return b.VRC7.Frequency(int(ch - hwdefs.VRC7Ch1))
	case ch == hwdefs.FDSWave:
		return b.FDS.Frequency()
	case ch >= hwdefs.S5BCh1 && ch <= hwdefs.S5BCh3:
		return b.S5B.Frequency(int(ch - hwdefs.S5BCh1))
	}
	return 0
}

// ChannelLevel returns the VU level of a channel.
func (b *Board) ChannelLevel(ch hwdefs.ChannelID) int {
	return b.Mixer.Level(ch)
}

// Registers returns the last values written to every mapped register
// address, sorted by address.
func (b *Board) Registers() []snapshot.Register {
	var regs []snapshot.Register
	for addr := range b.Bus.Written.All() {
		regs = append(regs, snapshot.Register{Addr: addr, Value: b.Bus.Peek8(addr)})
	}
	slices.SortFunc(regs, func(a, b snapshot.Register) int { return int(a.Addr) - int(b.Addr) })
	return regs
}

// State returns a copy of the hardware state. Chips that aren't enabled are
// left nil.
func (b *Board) State() *snapshot.Board {
	state := &snapshot.Board{
		Machine:   b.machine.String(),
		Chips:     b.chips.String(),
		Registers: b.Registers(),
		Mixer:     b.Mixer.State(),
		APU:       b.APU.State(),
	}
	if b.chips&hwdefs.ChipVRC6 != 0 {
		state.VRC6 = b.VRC6.State()
	}
	if b.chips&hwdefs.ChipVRC7 != 0 {
		state.VRC7 = b.VRC7.State()
	}
	if b.chips&hwdefs.ChipFDS != 0 {
		state.FDS = b.FDS.State()
	}
	if b.chips&hwdefs.ChipS5B != 0 {
		state.S5B = b.S5B.State()
	}
	return state
}
