package driver

import (
	"math"

	"famitone/hw/hwdefs"
	"famitone/tracker/ft"
)

// VibratoLength is the size of a vibrato table: 16 depths of 16 phases.
const VibratoLength = 256

var (
	newVibratoDepth = [16]float64{
		1.0, 1.5, 2.5, 4.0, 5.0, 7.0, 10.0, 12.0, 14.0, 17.0, 22.0, 30.0, 44.0, 64.0, 96.0, 128.0,
	}
	oldVibratoDepth = [16]float64{
		1.0, 1.0, 2.0, 3.0, 4.0, 7.0, 8.0, 15.0, 16.0, 31.0, 32.0, 63.0, 64.0, 127.0, 128.0, 255.0,
	}
)

// VibratoTable returns the quarter sine wave of every 4xy depth, 16 entries
// per depth.
func VibratoTable(style ft.VibratoStyle) []int {
	table := make([]int, VibratoLength)
	for depth := range 16 {
		for phase := range 16 {
			var v int
			if style == ft.VibratoNew {
				// 3.1415 rather than math.Pi: the values must match the NSF driver.
				angle := float64(phase) / 16 * (3.1415 / 2)
				v = int(math.Sin(angle) * newVibratoDepth[depth])
			} else {
				v = int(float64(phase)*oldVibratoDepth[depth]/16 + 1)
			}
			table[depth*16+phase] = v
		}
	}
	return table
}

// PeriodTables holds the note to period (or frequency) tables of every
// chip.
type PeriodTables struct {
	NTSC [ft.NoteCount]int // 2A03 and VRC6 pulses
	PAL  [ft.NoteCount]int // 2A07
	Saw  [ft.NoteCount]int
	FDS  [ft.NoteCount]int
	S5B  [ft.NoteCount]int
	VRC7 [ft.NoteRange]int // fnums of the first octave, the octave goes to the block
}

// NewPeriodTables computes the tables, with A-3 at 440Hz shifted by the
// given tuning.
func NewPeriodTables(semitones, cents int) *PeriodTables {
	var t PeriodTables

	a440 := 45 - float64(semitones) - float64(cents)/100
	clockNTSC := float64(hwdefs.CPUClockNTSC) / 16
	clockPAL := float64(hwdefs.CPUClockPAL) / 16

	for i := range ft.NoteCount {
		freq := 440 * math.Pow(2, (float64(i)-a440)/12)

		t.PAL[i] = int(clockPAL/freq - 0.5)
		t.NTSC[i] = int(clockNTSC/freq - 0.5)
		t.S5B[i] = t.NTSC[i] + 1
		t.Saw[i] = int(clockNTSC*16/(freq*14) - 0.5)
		t.FDS[i] = int(freq*65536/(clockNTSC/4) + 0.5)
		if i < ft.NoteRange {
			t.VRC7[i] = int(freq*262144/49716 + 0.5)
		}
	}
	return &t
}

// Table returns the note table used by a channel, nil for channels not
// driven by a table.
func (t *PeriodTables) Table(id hwdefs.ChannelID, m hwdefs.Machine) []int {
	switch {
	case id == hwdefs.Square1 || id == hwdefs.Square2 || id == hwdefs.Triangle:
		if m == hwdefs.PAL {
			return t.PAL[:]
		}
		return t.NTSC[:]
	case id == hwdefs.VRC6Pulse1 || id == hwdefs.VRC6Pulse2:
		return t.NTSC[:]
	case id == hwdefs.VRC6Sawtooth:
		return t.Saw[:]
	case id >= hwdefs.VRC7Ch1 && id <= hwdefs.VRC7Ch6:
		return t.VRC7[:]
	case id == hwdefs.FDSWave:
		return t.FDS[:]
	case id >= hwdefs.S5BCh1 && id <= hwdefs.S5BCh3:
		return t.S5B[:]
	}
	return nil
}
