package tempo

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"famitone/tracker/ft"
)

type grooveMap map[int]*ft.Groove

func (m grooveMap) Groove(i int) *ft.Groove { return m[i] }

// rowTicks runs the counter like the player does and returns the ticks at
// which a new row was read.
func rowTicks(c *Counter, ticks int) []int {
	var rows []int
	for i := range ticks {
		if c.CanStepRow() {
			c.StepRow()
			rows = append(rows, i)
		}
		c.Tick()
	}
	return rows
}

func TestSpeedOnly(t *testing.T) {
	c := New(60, nil)
	c.Load(0, 4, false)

	got := rowTicks(c, 17)
	if diff := cmp.Diff([]int{0, 4, 8, 12, 16}, got); diff != "" {
		t.Errorf("row ticks mismatch (-want +got):\n%s", diff)
	}
}

func TestGroove(t *testing.T) {
	c := New(60, grooveMap{2: ft.NewGroove(3, 3, 4)})
	c.Load(0, 2, true)
	if !c.Grooving() {
		t.Fatalf("groove not loaded")
	}

	got := rowTicks(c, 21)
	if diff := cmp.Diff([]int{0, 3, 6, 10, 13, 16, 20}, got); diff != "" {
		t.Errorf("row ticks mismatch (-want +got):\n%s", diff)
	}
}

func TestMissingGroove(t *testing.T) {
	c := New(60, grooveMap{})
	c.Load(0, 5, true)
	if c.Grooving() || c.Speed() != ft.DefaultSpeed {
		t.Errorf("missing groove: grooving=%t speed=%d", c.Grooving(), c.Speed())
	}

	c.DoOxx(3)
	if c.Grooving() {
		t.Errorf("Oxx with a missing groove should be ignored")
	}
}

func TestTempoConvergence(t *testing.T) {
	tests := []struct {
		fps, tempo, speed int
	}{
		{60, 150, 6},
		{60, 125, 6},
		{50, 125, 6},
		{60, 150, 7},
		{60, 150, 2},
		{50, 150, 4},
	}
	const rows = 1000
	for _, tt := range tests {
		c := New(tt.fps, nil)
		c.Load(tt.tempo, tt.speed, false)

		n, ticks := 0, 0
		for n < rows {
			if c.CanStepRow() {
				c.StepRow()
				n++
			}
			c.Tick()
			ticks++
		}

		want := float64(60*tt.fps*tt.speed) / float64(24*tt.tempo) * rows
		per := float64(60*tt.fps*tt.speed)/float64(24*tt.tempo) + 1
		if diff := float64(ticks) - want; diff > per || diff < -per {
			t.Errorf("fps=%d tempo=%d speed=%d: %d ticks for %d rows, want about %.0f",
				tt.fps, tt.tempo, tt.speed, ticks, rows, want)
		}
	}
}

func TestDoFxx(t *testing.T) {
	c := New(60, grooveMap{0: ft.NewGroove(2, 4)})
	c.Load(150, 0, true)

	c.DoFxx(0x20)
	if c.Tempo() != 0x20 || !c.Grooving() {
		t.Errorf("F20: tempo=%d grooving=%t", c.Tempo(), c.Grooving())
	}

	c.DoFxx(0x05)
	if c.Speed() != 5 || c.Grooving() {
		t.Errorf("F05: speed=%d grooving=%t", c.Speed(), c.Grooving())
	}

	c.DoFxx(0)
	if c.Speed() != 1 {
		t.Errorf("F00: speed=%d, want 1", c.Speed())
	}

	c.Load(0, 6, false)
	c.DoFxx(0x40)
	if c.Speed() != 0x40 || c.Tempo() != 0 {
		t.Errorf("F40 without tempo: speed=%d tempo=%d", c.Speed(), c.Tempo())
	}

	c.SetSplitPoint(0x10)
	c.Load(150, 6, false)
	c.DoFxx(0x18)
	if c.Tempo() != 0x18 || c.Speed() != 6 {
		t.Errorf("F18 with split 0x10: tempo=%d speed=%d", c.Tempo(), c.Speed())
	}
}

func TestDoOxx(t *testing.T) {
	c := New(60, grooveMap{1: ft.NewGroove(5, 7)})
	c.Load(0, 3, false)

	// O21 wraps to groove 1.
	c.DoOxx(0x21)
	if !c.Grooving() || c.Speed() != 5 || c.GroovePos() != 1 {
		t.Errorf("O21: grooving=%t speed=%d pos=%d", c.Grooving(), c.Speed(), c.GroovePos())
	}
	c.StepRow()
	if c.Speed() != 7 || c.GroovePos() != 0 {
		t.Errorf("step: speed=%d pos=%d", c.Speed(), c.GroovePos())
	}
}

func TestBPM(t *testing.T) {
	tests := []struct {
		fps, tempo, speed int
		groove            bool
		want              float64
	}{
		{60, 150, 6, false, 150},
		{60, 150, 3, false, 300},
		{60, 0, 6, false, 150},
		{50, 0, 6, false, 125},
		{60, 150, 0, true, 180},
	}
	for _, tt := range tests {
		c := New(tt.fps, grooveMap{0: ft.NewGroove(4, 6)})
		c.Load(tt.tempo, tt.speed, tt.groove)
		if got := c.BPM(); got != tt.want {
			t.Errorf("fps=%d tempo=%d speed=%d: BPM() = %f, want %f", tt.fps, tt.tempo, tt.speed, got, tt.want)
		}
	}
}
