package driver

// Layout gives the size of the tracks of a song.
type Layout interface {
	FrameCount(track int) int
	PatternLength(track int) int
}

// Cursor is the position of the player in a track.
type Cursor struct {
	layout Layout
	track  int

	frame int
	row   int
	tick  int

	totalTicks  int
	totalRows   int
	totalFrames int

	queued int // -1 if no frame is queued
	loop   bool
}

func NewCursor(layout Layout, track, frame, row int) *Cursor {
	return &Cursor{
		layout: layout,
		track:  track,
		frame:  frame,
		row:    row,
		queued: -1,
	}
}

// QueueFrame sets the frame played after the current one.
func (c *Cursor) QueueFrame(frame int) { c.queued = frame }

// EnableFrameLoop repeats the current frame.
func (c *Cursor) EnableFrameLoop() { c.loop = true }

func (c *Cursor) Tick() {
	c.tick++
	c.totalTicks++
}

// StepRow moves to the next row, and to the next frame past the end of the
// pattern.
func (c *Cursor) StepRow() {
	c.row++
	if c.row >= c.layout.PatternLength(c.track) {
		c.row = 0
		c.moveToCheckedFrame(c.frame + 1)
	}
	c.totalRows++
	c.tick = 0
}

func (c *Cursor) SetPosition(frame, row int) {
	c.frame = frame
	c.row = row
	c.tick = 0
}

func (c *Cursor) moveToRow(row int) {
	c.row = row
	c.totalRows++
	c.tick = 0
}

func (c *Cursor) moveToFrame(frame int) {
	if n := c.layout.FrameCount(c.track); n > 0 {
		frame %= n
	}
	c.frame = frame
	c.totalFrames++
}

func (c *Cursor) moveToCheckedFrame(frame int) {
	switch {
	case c.queued >= 0:
		frame = c.queued
		c.queued = -1
	case c.loop:
		frame = c.frame
	}
	c.moveToFrame(frame)
}

// DoBxx jumps to the start of a frame.
func (c *Cursor) DoBxx(frame int) {
	c.moveToFrame(min(frame, c.layout.FrameCount(c.track)-1))
	c.moveToRow(0)
}

// DoCxx counts the frame ended by a halt.
func (c *Cursor) DoCxx() {
	c.totalFrames++
}

// DoDxx skips to a row of the next frame.
func (c *Cursor) DoDxx(row int) {
	c.moveToCheckedFrame(c.frame + 1)
	c.moveToRow(min(row, c.layout.PatternLength(c.track)-1))
}

func (c *Cursor) Track() int       { return c.track }
func (c *Cursor) Frame() int       { return c.frame }
func (c *Cursor) Row() int         { return c.row }
func (c *Cursor) CurrentTick() int { return c.tick }
func (c *Cursor) TotalTicks() int  { return c.totalTicks }
func (c *Cursor) TotalRows() int   { return c.totalRows }
func (c *Cursor) TotalFrames() int { return c.totalFrames }
func (c *Cursor) QueuedFrame() int { return c.queued }
