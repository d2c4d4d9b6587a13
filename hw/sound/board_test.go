package sound

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"famitone/hw/hwdefs"
	"famitone/hw/snapshot"
)

func TestOpenBus(t *testing.T) {
	b := New(44100)

	for _, addr := range []uint16{0x5000, 0x9000, 0xC000, 0x4040} {
		if got, want := b.Read(addr), uint8(addr>>8); got != want {
			t.Errorf("Read(%04X) = %02X, want %02X", addr, got, want)
		}
	}
}

func TestExternalSoundMapping(t *testing.T) {
	tests := []struct {
		chips hwdefs.Chip
		addr  uint16
	}{
		{hwdefs.ChipVRC6, 0xB002},
		{hwdefs.ChipVRC7, 0x9030},
		{hwdefs.ChipFDS, 0x4089},
		{hwdefs.ChipS5B, 0xE000},
	}
	for _, tt := range tests {
		b := New(44100)
		if b.Bus.Mapped(tt.addr) {
			t.Errorf("%v: %04X mapped with no expansion chip", tt.chips, tt.addr)
		}
		b.SetExternalSound(tt.chips)
		if !b.Bus.Mapped(tt.addr) {
			t.Errorf("%v: %04X not mapped", tt.chips, tt.addr)
		}
		if !b.Bus.Mapped(0x4015) {
			t.Errorf("%v: 2A03 not mapped", tt.chips)
		}
	}
}

func TestFrameSamples(t *testing.T) {
	b := New(44100)
	if b.frameCycles != hwdefs.CPUClockNTSC/60 {
		t.Fatalf("frame length = %d cycles, want %d", b.frameCycles, hwdefs.CPUClockNTSC/60)
	}

	b.AddTime(b.frameCycles / 2)
	b.Process()
	if n := len(b.Samples()); n != 0 {
		t.Errorf("got %d samples before the end of the frame, want 0", n)
	}

	b.AddTime(b.frameCycles/2 + b.frameCycles*2 + 100)
	b.Process()
	wantClock := (b.frameCycles/2*2 + b.frameCycles*2 + 100) % b.frameCycles
	if n := len(b.Samples()); n < 3*734 || n > 3*736 {
		t.Errorf("got %d samples for 3 frames, want about %d", n, 3*735)
	}
	if b.frameClock != wantClock {
		t.Errorf("frame clock = %d, want %d", b.frameClock, wantClock)
	}
}

func TestPALFrame(t *testing.T) {
	b := New(48000)
	b.SetMachine(hwdefs.PAL)
	b.AddTime(hwdefs.CPUClockPAL / 50)
	b.Process()
	if n := len(b.Samples()); n < 959 || n > 961 {
		t.Errorf("got %d samples for a PAL frame, want about 960", n)
	}
}

func TestWriteRunsPendingCycles(t *testing.T) {
	b := New(44100)
	b.AddTime(100)
	b.Write(0x4015, 0x01)
	if b.pending != 0 || b.frameClock != 100 {
		t.Errorf("pending=%d clock=%d, want 0 and 100", b.pending, b.frameClock)
	}
	if got := b.Read(0x4015) & 0x01; got != 0 {
		t.Errorf("square 1 active with no length loaded")
	}
}

func TestRegisters(t *testing.T) {
	b := New(44100)
	b.SetExternalSound(hwdefs.ChipVRC6)
	b.Write(0x9000, 0x3F)
	b.Write(0x4002, 0x10)
	b.Write(0x5000, 0x01) // unmapped

	want := []snapshot.Register{
		{Addr: 0x4002, Value: 0x10},
		{Addr: 0x9000, Value: 0x3F},
	}
	if diff := cmp.Diff(want, b.Registers()); diff != "" {
		t.Errorf("registers mismatch (-want +got):\n%s", diff)
	}

	b.Reset()
	if regs := b.Registers(); len(regs) != 0 {
		t.Errorf("registers not cleared by reset: %v", regs)
	}
}

func TestLoadSamples(t *testing.T) {
	b := New(44100)
	b.SetExternalSound(hwdefs.ChipS5B)

	b.LoadSamples(0xC040, []byte{0xAA, 0x55})
	b.LoadSamples(0xFFFF, []byte{0x12, 0x34}) // truncated

	for _, tt := range []struct {
		addr uint16
		want uint8
	}{
		{0xC040, 0xAA},
		{0xC041, 0x55},
		{0xFFFF, 0x12},
	} {
		if got := b.dpcm.Read8(tt.addr); got != tt.want {
			t.Errorf("sample byte at %04X = %02X, want %02X", tt.addr, got, tt.want)
		}
	}

	// Sample memory is not visible on the register bus.
	b.Write(0xC000, 0x07)
	if got := b.S5B.State().Address; got != 0x07 {
		t.Errorf("S5B address = %02X, want 07", got)
	}
}

func TestExpansionOutput(t *testing.T) {
	b := New(44100)
	b.SetExternalSound(hwdefs.ChipVRC6)
	b.Write(0x9000, 0x7F)
	b.Write(0x9001, 0xFF)
	b.Write(0x9002, 0x80)
	b.AddTime(b.frameCycles)
	b.Process()

	nonzero := 0
	for _, s := range b.Samples() {
		if s != 0 {
			nonzero++
		}
	}
	if nonzero == 0 {
		t.Errorf("VRC6 pulse produced no audio")
	}
	if b.ChannelLevel(hwdefs.VRC6Pulse1) == 0 {
		t.Errorf("VRC6 pulse 1 level is 0")
	}
	if f := b.Frequency(hwdefs.VRC6Pulse1); f == 0 {
		t.Errorf("VRC6 pulse 1 frequency is 0")
	}
}

func TestState(t *testing.T) {
	b := New(44100)
	b.SetExternalSound(hwdefs.ChipVRC6 | hwdefs.ChipS5B)

	st := b.State()
	if st.Chips != "2a03|vrc6|s5b" || st.Machine != "NTSC" {
		t.Errorf("Chips=%q Machine=%q", st.Chips, st.Machine)
	}
	if st.VRC6 == nil || st.S5B == nil {
		t.Errorf("enabled chips missing from state")
	}
	if st.VRC7 != nil || st.FDS != nil {
		t.Errorf("disabled chips present in state")
	}
	if st.APU == nil || st.Mixer == nil {
		t.Errorf("2A03 or mixer missing from state")
	}
}
