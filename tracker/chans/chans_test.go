package chans

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"

	"famitone/hw/hwdefs"
	"famitone/tracker/ft"
)

type regWrite struct {
	Addr uint16
	Val  uint8
}

type recorder struct {
	writes  []regWrite
	cycles  int
	samples []byte
}

func (r *recorder) Write(addr uint16, val uint8) { r.writes = append(r.writes, regWrite{addr, val}) }
func (r *recorder) AddCycles(n int)              { r.cycles += n }
func (r *recorder) LoadSamples(data []byte)      { r.samples = data }

func (r *recorder) reset() {
	r.writes = nil
	r.cycles = 0
}

// at returns the values written to addr.
func (r *recorder) at(addr uint16) []uint8 {
	var vals []uint8
	for _, w := range r.writes {
		if w.Addr == addr {
			vals = append(vals, w.Val)
		}
	}
	return vals
}

// indexed decodes writes through an address/data register pair.
func (r *recorder) indexed(addrPort, dataPort uint16) []regWrite {
	var regs []regWrite
	var reg uint8
	for _, w := range r.writes {
		switch w.Addr {
		case addrPort:
			reg = w.Val
		case dataPort:
			regs = append(regs, regWrite{uint16(reg), w.Val})
		}
	}
	return regs
}

type instTable map[int]*ft.Instrument

func (t instTable) Instrument(i int) *ft.Instrument { return t[i] }

type fx struct {
	eff   ft.Effect
	param uint8
}

func cell(n ft.Note, octave int, instrument, vol uint8, effects ...fx) ft.NoteData {
	nd := ft.EmptyNote()
	nd.Note = n
	nd.Octave = octave
	nd.Instrument = instrument
	nd.Vol = vol
	for i, e := range effects {
		nd.EffNumber[i] = e.eff
		nd.EffParam[i] = e.param
	}
	return nd
}

const (
	noInst = ft.MaxInstruments
	noVol  = ft.MaxVolume
)

func periodTable() []int {
	tbl := make([]int, ft.NoteCount)
	for i := range tbl {
		tbl[i] = 0x7F0 - i*0x10
	}
	return tbl
}

func newChannels(t *testing.T, insts instTable, settings Settings) ([hwdefs.NumChannels]Handler, *recorder) {
	t.Helper()
	rec := &recorder{}
	hs := New(&Env{Regs: rec, Insts: insts, Settings: settings})
	for _, h := range hs {
		h.ResetChannel()
	}
	rec.reset()
	return hs, rec
}

func TestNew(t *testing.T) {
	hs, _ := newChannels(t, nil, Settings{})
	for id, h := range hs {
		if h == nil {
			t.Fatalf("no handler for channel %v", hwdefs.ChannelID(id))
		}
		if h.ID() != hwdefs.ChannelID(id) {
			t.Errorf("handler %d has ID %v", id, h.ID())
		}
	}
}

func TestSquareRegisters(t *testing.T) {
	insts := instTable{0: {Type: ft.Inst2A03}}
	hs, rec := newChannels(t, insts, Settings{})
	tbl := periodTable()
	sq := hs[hwdefs.Square2]
	sq.SetNoteTable(tbl)

	sq.PlayNote(cell(ft.NoteC, 4, 0, 0x0F))
	sq.ProcessChannel()
	sq.RefreshChannel()
	sq.FinishTick()

	freq := tbl[48]
	want := []regWrite{
		{0x4004, 0x3F},
		{0x4005, 0x08},
		{0x4006, uint8(freq)},
		{0x4007, uint8(freq>>8) + 0x08},
	}
	if diff := cmp.Diff(want, rec.writes); diff != "" {
		t.Errorf("first refresh mismatch (-want +got):\n%s", diff)
	}

	// The high period byte is only written when it changes.
	rec.reset()
	sq.ProcessChannel()
	sq.RefreshChannel()
	if diff := cmp.Diff(want[:3], rec.writes); diff != "" {
		t.Errorf("second refresh mismatch (-want +got):\n%s", diff)
	}

	rec.reset()
	sq.PlayNote(cell(ft.HaltNote, 0, noInst, noVol))
	sq.ProcessChannel()
	sq.RefreshChannel()
	if diff := cmp.Diff([]regWrite{{0x4004, 0x30}}, rec.writes); diff != "" {
		t.Errorf("halt mismatch (-want +got):\n%s", diff)
	}
}

func TestDutyConversion(t *testing.T) {
	insts := instTable{
		0: {Type: ft.InstVRC6, Seqs: [ft.SeqCount]*ft.Sequence{ft.SeqDuty: ft.NewSequence([]int8{7}, ft.NoPoint, ft.NoPoint, 0)}},
		1: {Type: ft.Inst2A03, Seqs: [ft.SeqCount]*ft.Sequence{ft.SeqDuty: ft.NewSequence([]int8{1}, ft.NoPoint, ft.NoPoint, 0)}},
	}
	hs, _ := newChannels(t, insts, Settings{})

	sq := hs[hwdefs.Square1]
	sq.PlayNote(cell(ft.NoteC, 3, 0, noVol))
	sq.ProcessChannel()
	if got := sq.DutyPeriod(); got != 2 {
		t.Errorf("VRC6 duty 7 on 2A03 pulse = %d, want 2", got)
	}

	pulse := hs[hwdefs.VRC6Pulse1]
	pulse.PlayNote(cell(ft.NoteC, 3, 1, noVol))
	pulse.ProcessChannel()
	if got := pulse.DutyPeriod(); got != 3 {
		t.Errorf("2A03 duty 1 on VRC6 pulse = %d, want 3", got)
	}
}

func TestVolumeNeverRoundsToSilence(t *testing.T) {
	tests := []struct {
		cut  bool
		want uint8
	}{
		{cut: false, want: 0x31},
		{cut: true, want: 0x30},
	}
	for _, tt := range tests {
		hs, rec := newChannels(t, nil, Settings{CutVolume: tt.cut})
		sq := hs[hwdefs.Square1]
		sq.PlayNote(cell(ft.NoteA, 3, noInst, 0x01))
		sq.SetVolume(1)
		sq.RefreshChannel()
		if got := rec.at(0x4000); len(got) == 0 || got[0] != tt.want {
			t.Errorf("cut=%t: $4000 writes = %#v, want first %#x", tt.cut, got, tt.want)
		}
	}
}

func TestPortamento(t *testing.T) {
	hs, _ := newChannels(t, nil, Settings{})
	tbl := periodTable()
	sq := hs[hwdefs.Square1]
	sq.SetNoteTable(tbl)

	sq.PlayNote(cell(ft.NoteC, 4, noInst, noVol))
	sq.ProcessChannel()
	sq.PlayNote(cell(ft.NoteE, 4, noInst, noVol, fx{ft.EffPortamento, 0x10}))

	var got []int
	for range 6 {
		sq.ProcessChannel()
		got = append(got, sq.Period())
	}
	want := []int{tbl[48] - 0x10, tbl[48] - 0x20, tbl[48] - 0x30, tbl[52], tbl[52], tbl[52]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("periods mismatch (-want +got):\n%s", diff)
	}
}

func TestPortamentoSpeedZero(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	hs, _ := newChannels(t, nil, Settings{})
	tbl := periodTable()
	sq := hs[hwdefs.Square1]
	sq.SetNoteTable(tbl)
	sq.PlayNote(cell(ft.NoteC, 4, noInst, noVol))

	// With 300, notes are played right away.
	for range 200 {
		n := ft.Note(rnd.IntN(12) + 1)
		oct := rnd.IntN(ft.OctaveRange)
		sq.PlayNote(cell(n, oct, noInst, noVol, fx{ft.EffPortamento, 0}))
		for range rnd.IntN(4) + 1 {
			sq.ProcessChannel()
			if want := tbl[ft.MidiNote(oct, n)]; sq.Period() != want {
				t.Fatalf("%v%d: period = %#x, want %#x", n, oct, sq.Period(), want)
			}
		}
	}
}

func TestArpeggio(t *testing.T) {
	hs, _ := newChannels(t, nil, Settings{})
	tbl := periodTable()
	sq := hs[hwdefs.Square1]
	sq.SetNoteTable(tbl)

	sq.PlayNote(cell(ft.NoteC, 3, noInst, noVol, fx{ft.EffArpeggio, 0x47}))
	var got []int
	for range 6 {
		sq.ProcessChannel()
		got = append(got, sq.Period())
	}
	want := []int{tbl[36], tbl[40], tbl[43], tbl[36], tbl[40], tbl[43]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("arpeggio mismatch (-want +got):\n%s", diff)
	}
	if got := sq.ArpParam(); got != 0x47 {
		t.Errorf("ArpParam() = %#x, want 0x47", got)
	}
}

func TestEchoBuffer(t *testing.T) {
	hs, _ := newChannels(t, nil, Settings{})
	sq := hs[hwdefs.Square1]

	sq.PlayNote(cell(ft.NoteC, 4, noInst, noVol))
	// Slides are stored with their target note.
	sq.PlayNote(cell(ft.NoteD, 4, noInst, noVol, fx{ft.EffSlideUp, 0x12}))
	sq.PlayNote(cell(ft.NoteF, 4, noInst, noVol))

	// Echo notes are pushed to the buffer too.
	tests := []struct {
		echo int
		want int
	}{
		{echo: 2, want: 48},
		{echo: 1, want: 53},
		{echo: 3, want: 52},
		{echo: 0, want: 52},
	}
	for _, tt := range tests {
		sq.PlayNote(cell(ft.EchoNote, tt.echo, noInst, noVol))
		if got := sq.Note(); got != tt.want {
			t.Errorf("echo %d: note = %d, want %d", tt.echo, got, tt.want)
		}
	}
}

func TestNoteCut(t *testing.T) {
	hs, _ := newChannels(t, nil, Settings{})
	sq := hs[hwdefs.Square1]

	sq.PlayNote(cell(ft.NoteC, 4, noInst, noVol, fx{ft.EffNoteCut, 0x02}))
	var got []bool
	for range 4 {
		sq.ProcessChannel()
		got = append(got, sq.IsActive())
	}
	if diff := cmp.Diff([]bool{true, true, false, false}, got); diff != "" {
		t.Errorf("active mismatch (-want +got):\n%s", diff)
	}
}

func TestDelay(t *testing.T) {
	hs, _ := newChannels(t, nil, Settings{})
	sq := hs[hwdefs.Square1]

	sq.PlayNote(cell(ft.NoteC, 4, noInst, noVol, fx{ft.EffDelay, 0x02}))
	if sq.IsActive() {
		t.Fatal("delayed note played on its row")
	}
	var got []int
	for range 3 {
		sq.ProcessChannel()
		got = append(got, sq.Key())
	}
	if diff := cmp.Diff([]int{-1, -1, 48}, got); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestStateString(t *testing.T) {
	hs, _ := newChannels(t, nil, Settings{})
	sq := hs[hwdefs.Square1]

	const idle = "Inst.: None        Vol.: F        Active effects: None"
	if got := sq.StateString(); got != idle {
		t.Errorf("idle state = %q, want %q", got, idle)
	}

	sq.PlayNote(cell(ft.NoteC, 4, 1, 0x0A, fx{ft.EffVibrato, 0x37}, fx{ft.EffVolume, 0x05}))
	const want = "Inst.: 01        Vol.: A        Active effects: 437 E05 EE2"
	if got := sq.StateString(); got != want {
		t.Errorf("state = %q, want %q", got, want)
	}
}

func TestNoise(t *testing.T) {
	hs, rec := newChannels(t, nil, Settings{})
	n := hs[hwdefs.Noise]

	n.PlayNote(cell(ft.NoteDs, 4, noInst, noVol, fx{ft.EffDutyCycle, 1}))
	n.SetVolume(15)
	n.ProcessChannel()
	n.RefreshChannel()

	want := []regWrite{
		{0x400C, 0x3F},
		{0x400E, 0x80 | (51&0x0F ^ 0x0F)},
		{0x400F, 0x08},
	}
	if diff := cmp.Diff(want, rec.writes); diff != "" {
		t.Errorf("noise registers mismatch (-want +got):\n%s", diff)
	}
}

func TestTriangleLinearCounter(t *testing.T) {
	hs, rec := newChannels(t, nil, Settings{})
	tbl := periodTable()
	tri := hs[hwdefs.Triangle]
	tri.SetNoteTable(tbl)

	tri.PlayNote(cell(ft.NoteC, 3, noInst, noVol, fx{ft.EffNoteCut, 0x85}))
	tri.SetVolume(15)
	tri.RefreshChannel()

	want := []regWrite{
		{0x4008, 0x05},
		{0x400A, uint8(tbl[36])},
		{0x400B, uint8(tbl[36]>>8) + 0x08},
	}
	if diff := cmp.Diff(want, rec.writes); diff != "" {
		t.Errorf("triangle registers mismatch (-want +got):\n%s", diff)
	}
	if !tri.IsActive() {
		t.Error("S85 cut the triangle")
	}
}

func TestDPCM(t *testing.T) {
	sample := &ft.Sample{Name: "kick", Data: make([]byte, 0x41)}
	in := &ft.Instrument{Type: ft.Inst2A03}
	in.Samples[3][0] = ft.SampleMap{Sample: sample, Pitch: 0x0F, Delta: 0x40}
	hs, rec := newChannels(t, instTable{0: in}, Settings{})
	d := hs[hwdefs.DPCM]

	d.PlayNote(cell(ft.NoteC, 3, 0, noVol))
	d.ProcessChannel()
	d.RefreshChannel()

	want := []regWrite{
		{0x4011, 0x40},
		{0x4010, 0x0F},
		{0x4012, 0x00},
		{0x4013, 0x04},
		{0x4015, 0x0F},
		{0x4015, 0x1F},
	}
	if diff := cmp.Diff(want, rec.writes); diff != "" {
		t.Errorf("sample start mismatch (-want +got):\n%s", diff)
	}
	if len(rec.samples) != len(sample.Data) {
		t.Errorf("loaded %d sample bytes, want %d", len(rec.samples), len(sample.Data))
	}

	rec.reset()
	d.PlayNote(cell(ft.ReleaseNote, 0, noInst, noVol))
	d.ProcessChannel()
	d.RefreshChannel()
	if diff := cmp.Diff([]regWrite{{0x4015, 0x0F}}, rec.writes); diff != "" {
		t.Errorf("release mismatch (-want +got):\n%s", diff)
	}
}

func TestVRC7(t *testing.T) {
	fnums := []int{0xAC, 0xB7, 0xC2, 0xCD, 0xD9, 0xE6, 0xF4, 0x102, 0x112, 0x122, 0x133, 0x146}
	custom := &ft.Instrument{Type: ft.InstVRC7, CustomRegs: [ft.VRC7Regs]uint8{1, 2, 3, 4, 5, 6, 7, 8}}
	insts := instTable{
		0: {Type: ft.InstVRC7, Patch: 3},
		1: custom,
	}
	hs, rec := newChannels(t, insts, Settings{})
	fm := hs[hwdefs.VRC7Ch1]
	fm.SetNoteTable(fnums)

	fm.PlayNote(cell(ft.NoteC, 4, 0, noVol))
	fm.ProcessChannel()
	fm.RefreshChannel()
	want := []regWrite{{0x20, 0x00}, {0x10, 0xAC}, {0x30, 0x30}, {0x20, 0x38}}
	if diff := cmp.Diff(want, rec.indexed(0x9010, 0x9030)); diff != "" {
		t.Errorf("trigger mismatch (-want +got):\n%s", diff)
	}

	rec.reset()
	fm.ProcessChannel()
	fm.RefreshChannel()
	want = []regWrite{{0x10, 0xAC}, {0x30, 0x30}, {0x20, 0x18}}
	if diff := cmp.Diff(want, rec.indexed(0x9010, 0x9030)); diff != "" {
		t.Errorf("sustain mismatch (-want +got):\n%s", diff)
	}

	rec.reset()
	fm.PlayNote(cell(ft.HaltNote, 0, noInst, noVol))
	fm.ProcessChannel()
	fm.RefreshChannel()
	want = []regWrite{{0x10, 0x00}, {0x20, 0x08}}
	if diff := cmp.Diff(want, rec.indexed(0x9010, 0x9030)); diff != "" {
		t.Errorf("halt mismatch (-want +got):\n%s", diff)
	}

	// The custom patch is uploaded before the note starts.
	rec.reset()
	fm2 := hs[hwdefs.VRC7Ch2]
	fm2.SetNoteTable(fnums)
	fm2.PlayNote(cell(ft.NoteA, 2, 1, noVol))
	fm2.ProcessChannel()
	fm2.RefreshChannel()
	regs := rec.indexed(0x9010, 0x9030)
	if len(regs) < 8 {
		t.Fatalf("only %d register writes", len(regs))
	}
	var patch []regWrite
	for i, v := range custom.CustomRegs {
		patch = append(patch, regWrite{uint16(i), v})
	}
	if diff := cmp.Diff(patch, regs[:8]); diff != "" {
		t.Errorf("custom patch mismatch (-want +got):\n%s", diff)
	}
}

func TestS5BSharedRegisters(t *testing.T) {
	hs, rec := newChannels(t, nil, Settings{})
	ch1, ch2, ch3 := hs[hwdefs.S5BCh1], hs[hwdefs.S5BCh2], hs[hwdefs.S5BCh3]

	ch1.PlayNote(cell(ft.NoteC, 4, noInst, noVol, fx{ft.EffDutyCycle, 0x02}, fx{ft.EffSunsoftNoise, 0x05}))
	ch1.RefreshChannel()
	ch2.RefreshChannel()
	for _, w := range rec.indexed(0xC000, 0xE000) {
		if w.Addr == 0x07 || w.Addr == 0x06 {
			t.Fatalf("shared register %#x written before the last channel", w.Addr)
		}
	}

	rec.reset()
	ch3.RefreshChannel()
	shared := map[uint16]uint8{}
	for _, w := range rec.indexed(0xC000, 0xE000) {
		shared[w.Addr] = w.Val
	}
	if got := shared[0x06]; got != 0x05^0x1F {
		t.Errorf("noise register = %#x, want %#x", got, 0x05^0x1F)
	}
	if got := shared[0x07]; got != 0x37 {
		t.Errorf("mixer register = %#x, want 0x37", got)
	}
	if got := ch1.StateString(); got != "Inst.: None        Vol.: F        Active effects: V80 W05" {
		t.Errorf("state = %q", got)
	}
}

func TestFDSWaveUploadedOnce(t *testing.T) {
	in := &ft.Instrument{Type: ft.InstFDS}
	for i := range in.Wave {
		in.Wave[i] = uint8(i)
	}
	hs, rec := newChannels(t, instTable{0: in}, Settings{})
	f := hs[hwdefs.FDSWave]

	waveWrites := func() int {
		n := 0
		for _, w := range rec.writes {
			if w.Addr >= 0x4040 && w.Addr < 0x4080 {
				n++
			}
		}
		return n
	}

	f.PlayNote(cell(ft.NoteA, 3, 0, noVol))
	for range 3 {
		f.ProcessChannel()
		f.RefreshChannel()
		f.FinishTick()
	}
	if got := waveWrites(); got != ft.FDSWaveSize {
		t.Errorf("%d wave RAM writes, want %d", got, ft.FDSWaveSize)
	}
	if rec.cycles < waveUploadCycles {
		t.Errorf("upload took %d cycles, want at least %d", rec.cycles, waveUploadCycles)
	}
}
