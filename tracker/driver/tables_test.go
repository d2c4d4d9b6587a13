package driver

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"famitone/hw/hwdefs"
	"famitone/tracker/ft"
)

func TestPeriodTables(t *testing.T) {
	tbl := NewPeriodTables(0, 0)

	const a3 = 45
	tests := []struct {
		name string
		got  int
		want int
	}{
		{"NTSC A-3", tbl.NTSC[a3], 253},
		{"PAL A-3", tbl.PAL[a3], 235},
		{"Saw A-3", tbl.Saw[a3], 290},
		{"FDS A-3", tbl.FDS[a3], 1031},
		{"S5B A-3", tbl.S5B[a3], 254},
		{"NTSC C-0", tbl.NTSC[0], 3419},
		{"NTSC C-4", tbl.NTSC[48], 213},
		{"NTSC B-7", tbl.NTSC[95], 13},
		{"FDS C-0", tbl.FDS[0], 77},
		{"FDS B-7", tbl.FDS[95], 18519},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}

	wantVRC7 := [ft.NoteRange]int{172, 183, 194, 205, 217, 230, 244, 258, 274, 290, 307, 326}
	if diff := cmp.Diff(wantVRC7, tbl.VRC7); diff != "" {
		t.Errorf("VRC7 fnums mismatch (-want +got):\n%s", diff)
	}
}

func TestPeriodTablesTuning(t *testing.T) {
	base := NewPeriodTables(0, 0)

	// One semitone up shifts the table by one note.
	up := NewPeriodTables(1, 0)
	for i := 1; i < ft.NoteCount; i++ {
		if up.NTSC[i-1] != base.NTSC[i] {
			t.Fatalf("NTSC[%d] tuned up = %d, want %d", i-1, up.NTSC[i-1], base.NTSC[i])
		}
	}

	// 100 cents is a semitone too.
	cents := NewPeriodTables(0, 100)
	if diff := cmp.Diff(up.NTSC, cents.NTSC); diff != "" {
		t.Errorf("+100 cents mismatch (-semitone +cents):\n%s", diff)
	}
}

func TestTableSelection(t *testing.T) {
	tbl := NewPeriodTables(0, 0)

	tests := []struct {
		id      hwdefs.ChannelID
		machine hwdefs.Machine
		want    []int
	}{
		{hwdefs.Square1, hwdefs.NTSC, tbl.NTSC[:]},
		{hwdefs.Triangle, hwdefs.PAL, tbl.PAL[:]},
		{hwdefs.VRC6Pulse2, hwdefs.PAL, tbl.NTSC[:]},
		{hwdefs.VRC6Sawtooth, hwdefs.NTSC, tbl.Saw[:]},
		{hwdefs.VRC7Ch4, hwdefs.NTSC, tbl.VRC7[:]},
		{hwdefs.FDSWave, hwdefs.NTSC, tbl.FDS[:]},
		{hwdefs.S5BCh2, hwdefs.NTSC, tbl.S5B[:]},
		{hwdefs.Noise, hwdefs.NTSC, nil},
		{hwdefs.DPCM, hwdefs.PAL, nil},
	}
	for _, tt := range tests {
		got := tbl.Table(tt.id, tt.machine)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Table(%v, %v) mismatch (-want +got):\n%s", tt.id, tt.machine, diff)
		}
	}
}

func TestVibratoTable(t *testing.T) {
	tests := []struct {
		style        ft.VibratoStyle
		depth, phase int
		want         int
	}{
		{ft.VibratoNew, 15, 15, 127},
		{ft.VibratoNew, 4, 8, 3},
		{ft.VibratoNew, 0, 0, 0},
		{ft.VibratoOld, 15, 15, 240},
		{ft.VibratoOld, 4, 3, 1},
		{ft.VibratoOld, 0, 0, 1},
	}
	for _, tt := range tests {
		tbl := VibratoTable(tt.style)
		if len(tbl) != VibratoLength {
			t.Fatalf("len = %d, want %d", len(tbl), VibratoLength)
		}
		if got := tbl[tt.depth*16+tt.phase]; got != tt.want {
			t.Errorf("style %d depth %d phase %d = %d, want %d", tt.style, tt.depth, tt.phase, got, tt.want)
		}
	}
}
