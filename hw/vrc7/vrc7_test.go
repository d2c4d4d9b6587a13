package vrc7

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"famitone/hw/hwdefs"
	"famitone/hw/hwio"
	"famitone/hw/snapshot"
)

type delta struct {
	time uint32
	val  int16
}

type recorder map[hwdefs.ChannelID][]delta

func (r recorder) AddDelta(ch hwdefs.ChannelID, time uint32, d int16) {
	r[ch] = append(r[ch], delta{time, d})
}

// samples rebuilds n FM samples of a channel output.
func (r recorder) samples(ch hwdefs.ChannelID, n int) []int16 {
	out := make([]int16, n)
	var cur int16
	i := 0
	for s := range n {
		t := uint32(s+1) * sampleCycles
		for i < len(r[ch]) && r[ch][i].time <= t {
			cur += r[ch][i].val
			i++
		}
		out[s] = cur
	}
	return out
}

// A pure sine on the carrier: the modulator never leaves full attenuation.
var sinePatch = []uint8{0x01, 0x21, 0x3F, 0x00, 0x00, 0xF0, 0x0F, 0x0F}

type testVRC7 struct {
	*VRC7
	rec recorder
	bus *hwio.Table
}

func newTestVRC7() *testVRC7 {
	rec := recorder{}
	v := New(rec)
	bus := hwio.NewTable("vrc7")
	v.Map(bus)
	return &testVRC7{v, rec, bus}
}

func (tv *testVRC7) set(pairs ...uint8) {
	for i := 0; i+1 < len(pairs); i += 2 {
		tv.bus.Write8(0x9010, pairs[i])
		tv.bus.Write8(0x9030, pairs[i+1])
	}
}

func (tv *testVRC7) loadSine() {
	for i, b := range sinePatch {
		tv.set(uint8(i), b)
	}
}

func peak(s []int16) int16 {
	var p int16
	for _, v := range s {
		p = max(p, v, -v)
	}
	return p
}

func TestSilentAtReset(t *testing.T) {
	v := newTestVRC7()
	v.Process(sampleCycles * 1000)
	for ch, d := range v.rec {
		if len(d) != 0 {
			t.Errorf("%v: got %d deltas, want none", ch, len(d))
		}
	}
}

func TestSine(t *testing.T) {
	v := newTestVRC7()
	v.loadSine()
	v.set(
		0x30, 0x00, // custom patch, full volume
		0x10, 0x00,
		0x20, 0x19, // key on, block 4, fnum 0x100
	)

	const n = SampleRate / 10
	v.Process(sampleCycles * n)
	wave := v.rec.samples(hwdefs.VRC7Ch1, n)

	if p := peak(wave); p < 4000 || p > 4096 {
		t.Errorf("peak = %d, want about 4084", p)
	}

	// 49716 * 256 / 2^15 = 388.4 Hz
	rising := 0
	for i := 1; i < len(wave); i++ {
		if wave[i-1] < 0 && wave[i] >= 0 {
			rising++
		}
	}
	if rising < 38 || rising > 40 {
		t.Errorf("got %d periods in 0.1s, want about 38.8", rising)
	}

	for _, d := range v.rec[hwdefs.VRC7Ch1] {
		if d.time%sampleCycles != 0 {
			t.Fatalf("delta at cycle %d, not on a sample boundary", d.time)
		}
	}
	for ch := hwdefs.VRC7Ch2; ch <= hwdefs.VRC7Ch6; ch++ {
		if len(v.rec[ch]) != 0 {
			t.Errorf("%v should be silent", ch)
		}
	}
}

func TestVolume(t *testing.T) {
	peakAt := func(vol uint8) int16 {
		v := newTestVRC7()
		v.loadSine()
		v.set(0x30, vol, 0x10, 0x00, 0x20, 0x19)
		v.Process(sampleCycles * 2000)
		return peak(v.rec.samples(hwdefs.VRC7Ch1, 2000))
	}

	full := peakAt(0)
	for _, tt := range []struct {
		vol  uint8
		want float64
	}{
		{2, 0.5},    // 6 dB
		{4, 0.25},   // 12 dB
		{8, 0.0625}, // 24 dB
	} {
		ratio := float64(peakAt(tt.vol)) / float64(full)
		if ratio < tt.want*0.95 || ratio > tt.want*1.05 {
			t.Errorf("volume %d: ratio = %.3f, want %.3f", tt.vol, ratio, tt.want)
		}
	}
}

func TestRelease(t *testing.T) {
	v := newTestVRC7()
	v.loadSine()
	v.set(0x30, 0x00, 0x10, 0x00, 0x20, 0x19)
	v.Process(sampleCycles * 500)
	if v.chans[0].last == 0 && peak(v.rec.samples(hwdefs.VRC7Ch1, 500)) == 0 {
		t.Fatalf("no output after key on")
	}

	v.set(0x20, 0x09) // key off
	v.EndFrame()
	clear(v.rec)
	v.Process(sampleCycles * 1000)

	for _, d := range v.rec[hwdefs.VRC7Ch1] {
		if d.time > sampleCycles*200 {
			t.Fatalf("output still changing at cycle %d after key off", d.time)
		}
	}
	if last := v.chans[0].last; last != 0 {
		t.Errorf("output = %d after release, want 0", last)
	}
	if st := v.State(); st.Channels[0].Key {
		t.Errorf("channel still keyed on")
	}
}

func TestROMPatch(t *testing.T) {
	for inst := uint8(1); inst < 16; inst++ {
		v := newTestVRC7()
		v.set(0x33, inst<<4, 0x13, 0x80, 0x23, 0x18)
		v.Process(sampleCycles * 10000)
		if len(v.rec[hwdefs.VRC7Ch4]) == 0 {
			t.Errorf("patch %d: channel 4 silent after key on", inst)
		}
	}
}

func TestRegisters(t *testing.T) {
	v := newTestVRC7()
	v.set(
		0x15, 0xAB,
		0x25, 0x3B,
		0x35, 0x47,
		0x40, 0x99, // out of range
	)

	if got := v.bus.Read8(0x9030); got != 0 {
		t.Errorf("data port read = %02X, want 0", got)
	}
	if got := v.bus.Peek8(0x9010); got != 0x40 {
		t.Errorf("address port peek = %02X, want 40", got)
	}

	want := snapshot.VRC7Channel{Patch: 4, Volume: 7, Key: true}
	if diff := cmp.Diff(want, v.State().Channels[5]); diff != "" {
		t.Errorf("channel 6 state mismatch (-want +got):\n%s", diff)
	}
	if v.Reg(0x15) != 0xAB || v.Reg(0x25) != 0x3B {
		t.Errorf("register read-back failed")
	}
	if v.chans[5].fnum != 0x1AB || v.chans[5].block != 5 || !v.chans[5].sus {
		t.Errorf("fnum=%03X block=%d sus=%v, want 1AB 5 true", v.chans[5].fnum, v.chans[5].block, v.chans[5].sus)
	}
}

func TestFrequency(t *testing.T) {
	v := newTestVRC7()
	v.set(0x10, 0x00, 0x20, 0x09)
	want := SampleRate * 256.0 / (1 << 15)
	if f := v.Frequency(0); f != want {
		t.Errorf("Frequency(0) = %v, want %v", f, want)
	}
	if f := v.Frequency(6); f != 0 {
		t.Errorf("Frequency(6) = %v, want 0", f)
	}
}
