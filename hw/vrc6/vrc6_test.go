package vrc6

import (
	"math"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"famitone/hw/hwdefs"
	"famitone/hw/hwio"
)

type delta struct {
	time uint32
	val  int16
}

type recorder map[hwdefs.ChannelID][]delta

func (r recorder) AddDelta(ch hwdefs.ChannelID, time uint32, d int16) {
	r[ch] = append(r[ch], delta{time, d})
}

// wave rebuilds the per-cycle output of a channel over n cycles.
func (r recorder) wave(ch hwdefs.ChannelID, n int) []int16 {
	out := make([]int16, n)
	var cur int16
	i := 0
	for t := range n {
		for i < len(r[ch]) && int(r[ch][i].time) <= t {
			cur += r[ch][i].val
			i++
		}
		out[t] = cur
	}
	return out
}

// levels returns the distinct output levels reached, sorted.
func (r recorder) levels(ch hwdefs.ChannelID) []int16 {
	var lvls []int16
	var cur int16
	for _, d := range r[ch] {
		cur += d.val
		if !slices.Contains(lvls, cur) {
			lvls = append(lvls, cur)
		}
	}
	slices.Sort(lvls)
	return lvls
}

func newTestVRC6() (*VRC6, recorder, *hwio.Table) {
	rec := recorder{}
	v := New(rec)
	bus := hwio.NewTable("vrc6")
	v.Map(bus)
	return v, rec, bus
}

func TestPulseGate(t *testing.T) {
	v, rec, bus := newTestVRC6()

	v.Process(100)
	bus.Write8(0xA000, 0x8C)

	want := []delta{{100, -12}}
	if diff := cmp.Diff(want, rec[hwdefs.VRC6Pulse2], cmp.AllowUnexported(delta{})); diff != "" {
		t.Errorf("pulse 2 deltas mismatch (-want +got):\n%s", diff)
	}
	if len(rec[hwdefs.VRC6Pulse1]) != 0 {
		t.Errorf("pulse 1 should be silent")
	}
}

func TestPulseDuty(t *testing.T) {
	for dutyReg := range uint8(8) {
		v, rec, bus := newTestVRC6()

		bus.Write8(0x9000, dutyReg<<4|0x0F)
		bus.Write8(0x9001, 0x0F)
		bus.Write8(0x9002, 0x80)
		v.Process(256)

		high := 0
		for _, s := range rec.wave(hwdefs.VRC6Pulse1, 256) {
			if s == -15 {
				high++
			}
		}
		duty := int(dutyReg) + 1
		if want := 16 * (16 - duty); high != want {
			t.Errorf("duty %d: %d cycles at full volume, want %d", dutyReg, high, want)
		}
	}
}

func TestPulseDisabled(t *testing.T) {
	v, rec, bus := newTestVRC6()

	bus.Write8(0x9000, 0x7F)
	bus.Write8(0x9001, 0x0F)
	bus.Write8(0x9002, 0x00)
	v.Process(1000)

	if len(rec[hwdefs.VRC6Pulse1]) != 0 {
		t.Errorf("disabled pulse produced output")
	}
	if f := v.Pulse1.Frequency(); f != 0 {
		t.Errorf("Frequency() = %f for a disabled pulse", f)
	}
}

func TestSawtooth(t *testing.T) {
	v, rec, bus := newTestVRC6()

	bus.Write8(0xB000, 0x20)
	bus.Write8(0xB001, 0x07)
	bus.Write8(0xB002, 0x80)
	v.Process(8 * 14 * 3)

	want := []int16{-24, -20, -16, -12, -8, -4, 0}
	if diff := cmp.Diff(want, rec.levels(hwdefs.VRC6Sawtooth)); diff != "" {
		t.Errorf("sawtooth levels mismatch (-want +got):\n%s", diff)
	}

	// The accumulator resets every 14 steps of 8 cycles.
	w := rec.wave(hwdefs.VRC6Sawtooth, 8*14*3)
	for i := range 8 * 14 {
		if w[i] != w[i+8*14] {
			t.Fatalf("sawtooth not periodic at cycle %d: %d != %d", i, w[i], w[i+8*14])
		}
	}
}

func TestFrequency(t *testing.T) {
	v, _, bus := newTestVRC6()

	bus.Write8(0x9001, 0xFF)
	bus.Write8(0x9002, 0x80)
	bus.Write8(0xB001, 0xFF)
	bus.Write8(0xB002, 0x80)

	if got, want := v.Pulse1.Frequency(), 1789773.0/16/256; math.Abs(got-want) > 1e-9 {
		t.Errorf("pulse frequency = %f, want %f", got, want)
	}
	if got, want := v.Sawtooth.Frequency(), 1789773.0/14/256; math.Abs(got-want) > 1e-9 {
		t.Errorf("sawtooth frequency = %f, want %f", got, want)
	}
}

func TestEndFrame(t *testing.T) {
	v, rec, bus := newTestVRC6()

	v.Process(500)
	v.EndFrame()
	v.Process(20)
	bus.Write8(0x9000, 0x85)

	if got := rec[hwdefs.VRC6Pulse1]; len(got) != 1 || got[0].time != 20 {
		t.Errorf("pulse 1 deltas = %v, want one at cycle 20", got)
	}
	if st := v.State(); st.Pulse[0].Volume != 5 || !st.Pulse[0].Gate {
		t.Errorf("state = %+v, want gated volume 5", st.Pulse[0])
	}
}
