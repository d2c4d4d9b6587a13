package driver

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type layout struct{ frames, rows int }

func (l layout) FrameCount(int) int    { return l.frames }
func (l layout) PatternLength(int) int { return l.rows }

type pos struct{ Frame, Row int }

func at(c *Cursor) pos { return pos{c.Frame(), c.Row()} }

func TestCursorStepRow(t *testing.T) {
	c := NewCursor(layout{frames: 2, rows: 3}, 0, 0, 1)

	var got []pos
	for range 6 {
		c.StepRow()
		got = append(got, at(c))
	}
	want := []pos{{0, 2}, {1, 0}, {1, 1}, {1, 2}, {0, 0}, {0, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}
	if c.TotalRows() != 6 || c.TotalFrames() != 2 {
		t.Errorf("totals = %d rows %d frames, want 6 rows 2 frames", c.TotalRows(), c.TotalFrames())
	}
}

func TestCursorTick(t *testing.T) {
	c := NewCursor(layout{frames: 1, rows: 4}, 0, 0, 0)
	c.Tick()
	c.Tick()
	if c.CurrentTick() != 2 || c.TotalTicks() != 2 {
		t.Fatalf("tick = %d/%d, want 2/2", c.CurrentTick(), c.TotalTicks())
	}
	c.StepRow()
	if c.CurrentTick() != 0 || c.TotalTicks() != 2 {
		t.Errorf("after row step tick = %d/%d, want 0/2", c.CurrentTick(), c.TotalTicks())
	}
}

func TestCursorQueueAndLoop(t *testing.T) {
	c := NewCursor(layout{frames: 4, rows: 1}, 0, 0, 0)

	c.QueueFrame(3)
	if c.QueuedFrame() != 3 {
		t.Fatalf("QueuedFrame = %d, want 3", c.QueuedFrame())
	}
	c.StepRow()
	if got := at(c); got != (pos{3, 0}) {
		t.Errorf("after queued frame at %v, want {3 0}", got)
	}
	if c.QueuedFrame() != -1 {
		t.Errorf("QueuedFrame = %d after use, want -1", c.QueuedFrame())
	}

	c.EnableFrameLoop()
	c.StepRow()
	c.StepRow()
	if got := at(c); got != (pos{3, 0}) {
		t.Errorf("looping frame at %v, want {3 0}", got)
	}
}

func TestCursorEffects(t *testing.T) {
	tests := []struct {
		name  string
		start pos
		do    func(c *Cursor)
		want  pos
	}{
		{"Bxx", pos{1, 5}, func(c *Cursor) { c.DoBxx(2) }, pos{2, 0}},
		{"Bxx past end", pos{1, 5}, func(c *Cursor) { c.DoBxx(0x40) }, pos{3, 0}},
		{"Dxx", pos{1, 5}, func(c *Cursor) { c.DoDxx(4) }, pos{2, 4}},
		{"Dxx past pattern", pos{1, 5}, func(c *Cursor) { c.DoDxx(0x40) }, pos{2, 7}},
		{"Dxx on last frame", pos{3, 0}, func(c *Cursor) { c.DoDxx(2) }, pos{0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCursor(layout{frames: 4, rows: 8}, 0, tt.start.Frame, tt.start.Row)
			tt.do(c)
			if got := at(c); got != tt.want {
				t.Errorf("at %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCursorSetPosition(t *testing.T) {
	c := NewCursor(layout{frames: 4, rows: 8}, 0, 0, 0)
	c.Tick()
	c.SetPosition(2, 6)
	if got := at(c); got != (pos{2, 6}) {
		t.Errorf("at %v, want {2 6}", got)
	}
	if c.CurrentTick() != 0 {
		t.Errorf("tick = %d, want 0", c.CurrentTick())
	}
}
