package apu

import (
	"testing"

	"famitone/hw/hwdefs"
	"famitone/hw/hwio"
)

type delta struct {
	time uint32
	val  int16
}

type recorder struct {
	deltas [hwdefs.NumChannels][]delta
}

func (r *recorder) AddDelta(ch hwdefs.ChannelID, time uint32, d int16) {
	r.deltas[ch] = append(r.deltas[ch], delta{time, d})
}

func (r *recorder) sum(ch hwdefs.ChannelID) int {
	s := 0
	for _, d := range r.deltas[ch] {
		s += int(d.val)
	}
	return s
}

type sampleMem struct {
	val   uint8
	reads []uint16
}

func (m *sampleMem) Read8(addr uint16) uint8 {
	m.reads = append(m.reads, addr)
	return m.val
}

type testAPU struct {
	*APU
	rec *recorder
	mem *sampleMem
	bus *hwio.Table
}

func newTestAPU(t *testing.T) *testAPU {
	t.Helper()
	rec := &recorder{}
	mem := &sampleMem{val: 0xFF}
	a := New(mem, rec)
	bus := hwio.NewTable("apu")
	a.Map(bus)
	return &testAPU{APU: a, rec: rec, mem: mem, bus: bus}
}

func (ta *testAPU) write(regs ...uint16) {
	for _, r := range regs {
		ta.bus.Write8(0x4000|r>>8, uint8(r))
	}
}

func TestSquare(t *testing.T) {
	a := newTestAPU(t)

	// enable, duty 12.5%, constant volume 15, period $0FD
	a.write(0x1501, 0x003F, 0x02FD, 0x0300)
	a.Process(2000)

	if a.Status()&0x01 == 0 {
		t.Fatalf("pulse 1 length counter not loaded")
	}
	got := a.rec.deltas[hwdefs.Square1]
	if len(got) < 2 || got[0].val != 15 || got[1].val != -15 {
		t.Fatalf("pulse 1 deltas = %v, want a 15 high pulse", got)
	}
	if period := got[1].time - got[0].time; period != 508 {
		t.Errorf("pulse width = %d cycles, want 508", period)
	}
	if len(a.rec.deltas[hwdefs.Square2]) != 0 {
		t.Errorf("pulse 2 should be silent")
	}
	if dac := a.bus.Peek8(0x4018) & 0x0F; int(dac) != a.rec.sum(hwdefs.Square1) {
		t.Errorf("DAC0 = %d, want %d", dac, a.rec.sum(hwdefs.Square1))
	}
}

func TestSquareDisabled(t *testing.T) {
	a := newTestAPU(t)

	a.write(0x003F, 0x02FD, 0x0300)
	a.Process(5000)

	if a.Status()&0x01 != 0 {
		t.Errorf("length loaded while channel disabled")
	}
	if n := len(a.rec.deltas[hwdefs.Square1]); n != 0 {
		t.Errorf("got %d deltas from a disabled channel", n)
	}
}

func TestSquareLengthCounter(t *testing.T) {
	a := newTestAPU(t)

	// no halt, length index 0 (10 half frames)
	a.write(0x1501, 0x001F, 0x02FD, 0x0300)

	const seqLen = 29830 // 2 half frames each
	for range 4 {
		a.Process(seqLen)
		a.EndFrame()
	}
	if a.Status()&0x01 == 0 {
		t.Fatalf("pulse 1 silenced after 8 half frames")
	}
	for range 2 {
		a.Process(seqLen)
		a.EndFrame()
	}
	if a.Status()&0x01 != 0 {
		t.Errorf("pulse 1 still playing after 12 half frames")
	}
}

func TestTriangleLinearCounter(t *testing.T) {
	a := newTestAPU(t)

	a.write(0x1504, 0x0881, 0x0A40, 0x0B00)
	a.Process(7000)
	if n := len(a.rec.deltas[hwdefs.Triangle]); n != 0 {
		t.Fatalf("triangle ran before linear counter reload (%d deltas)", n)
	}

	// The first quarter frame, at 7457, reloads the linear counter.
	a.Process(3000)
	if n := len(a.rec.deltas[hwdefs.Triangle]); n == 0 {
		t.Fatalf("triangle did not run after linear counter reload")
	}
	for _, d := range a.rec.deltas[hwdefs.Triangle] {
		if d.time < 7000 {
			t.Errorf("triangle delta at cycle %d, before the counter was reloaded", d.time)
		}
	}
}

func TestDMC(t *testing.T) {
	tests := []struct {
		name    string
		flags   uint16
		wantIRQ bool
	}{
		{"no irq", 0x100F, false},
		{"irq", 0x108F, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPU(t)

			// 17 bytes at $C040, all ones.
			a.write(tt.flags, 0x1100, 0x1201, 0x1301, 0x1510)
			if a.Status()&0x10 == 0 {
				t.Fatalf("DMC not active after enable")
			}
			a.Process(10000)

			if len(a.mem.reads) != 17 {
				t.Fatalf("got %d sample reads, want 17", len(a.mem.reads))
			}
			if a.mem.reads[0] != 0xC040 || a.mem.reads[16] != 0xC050 {
				t.Errorf("sample read addresses = %04X..%04X, want C040..C050", a.mem.reads[0], a.mem.reads[16])
			}
			if got := a.bus.Peek8(0x401A); got != 126 {
				t.Errorf("DMC output = %d, want 126", got)
			}
			status := a.Status()
			if status&0x10 != 0 {
				t.Errorf("DMC still active after the sample ended")
			}
			if irq := status&0x80 != 0; irq != tt.wantIRQ {
				t.Errorf("irq flag = %t, want %t", irq, tt.wantIRQ)
			}
		})
	}
}

func TestDMCDirectLoad(t *testing.T) {
	a := newTestAPU(t)

	a.Process(100)
	a.write(0x1150)
	got := a.rec.deltas[hwdefs.DPCM]
	if len(got) != 1 || got[0] != (delta{time: 100, val: 0x50}) {
		t.Errorf("DPCM deltas = %v, want [{100 80}]", got)
	}
}
