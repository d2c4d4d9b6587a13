// Package tempo decides, once per tick, whether the player moves to the next
// pattern row. Timing is either speed driven (a fixed number of ticks per
// row), tempo driven (rows per minute derived from tempo and speed), or
// follows a groove, a repeating list of speeds.
package tempo

import (
	"famitone/emu/log"
	"famitone/tracker/ft"
)

// GrooveTable gives access to the grooves of a song document.
type GrooveTable interface {
	// Groove returns the groove at index i, or nil.
	Groove(i int) *ft.Groove
}

type Counter struct {
	grooves    GrooveTable
	frameRate  int
	splitPoint int

	tempo int
	speed int

	groove    *ft.Groove
	groovePos int

	accum     int // ticks left before the next row, scaled by decrement
	decrement int
	remainder int
}

func New(frameRate int, grooves GrooveTable) *Counter {
	c := &Counter{
		grooves:    grooves,
		frameRate:  frameRate,
		splitPoint: ft.DefaultSpeedSplit,
		tempo:      ft.DefaultTempoNTSC,
		speed:      ft.DefaultSpeed,
	}
	c.setupSpeed()
	return c
}

// SetFrameRate sets the tick rate, in Hz.
func (c *Counter) SetFrameRate(hz int) { c.frameRate = hz }

// SetSplitPoint sets the Fxx value from which Fxx changes the tempo rather
// than the speed.
func (c *Counter) SetSplitPoint(v int) { c.splitPoint = v }

// Load resets the counter to the initial timing of a track. With groove set,
// speed is the index of the groove to play, and the default speed is used if
// that groove does not exist.
func (c *Counter) Load(tempo, speed int, groove bool) {
	c.tempo = tempo
	c.speed = speed
	c.accum = 0
	c.groove = nil

	if groove {
		if g := c.lookup(speed); g != nil {
			c.loadGroove(g)
			c.updateGrooveSpeed()
			return
		}
		c.speed = ft.DefaultSpeed
	}
	c.setupSpeed()
}

// Tick consumes one tick. Call CanStepRow before.
func (c *Counter) Tick() {
	if c.accum <= 0 {
		refill := c.speed
		if c.tempo != 0 {
			refill = 60 * c.frameRate
		}
		c.accum += refill - c.remainder
	}
	c.accum -= c.decrement
}

// CanStepRow reports whether the player should read a new row on this tick.
func (c *Counter) CanStepRow() bool {
	return c.accum <= 0
}

// StepRow advances the groove, if one is playing. Call it on every row
// change.
func (c *Counter) StepRow() {
	if c.groove != nil {
		c.stepGroove()
	}
}

// DoFxx applies a speed effect. Values at or above the split point set the
// tempo when the track is tempo driven.
func (c *Counter) DoFxx(param uint8) {
	if param == 0 {
		param = 1
	}
	if c.tempo != 0 && int(param) >= c.splitPoint {
		c.tempo = int(param)
	} else {
		c.speed = int(param)
		c.groove = nil
	}
	log.ModTempo.DebugZ("Fxx").Int("tempo", c.tempo).Int("speed", c.speed).End()
	c.setupSpeed()
}

// DoOxx switches to the groove at the given index. Missing grooves are
// ignored.
func (c *Counter) DoOxx(param uint8) {
	g := c.lookup(int(param) % ft.MaxGroove)
	if g == nil {
		return
	}
	c.loadGroove(g)
	c.stepGroove()
	log.ModTempo.DebugZ("Oxx").Uint8("groove", param).Int("speed", c.speed).End()
}

// BPM returns the tempo as shown to the user. Grooves use their average
// speed.
func (c *Counter) BPM() float64 {
	if c.speed == 0 {
		return 0
	}
	tempo := float64(c.tempo)
	if c.tempo == 0 {
		tempo = 2.5 * float64(c.frameRate)
	}
	speed := float64(c.speed)
	if c.groove != nil {
		speed = c.groove.Average()
	}
	return tempo * 6 / speed
}

func (c *Counter) Tempo() int     { return c.tempo }
func (c *Counter) Speed() int     { return c.speed }
func (c *Counter) Grooving() bool { return c.groove != nil }
func (c *Counter) GroovePos() int { return c.groovePos }

func (c *Counter) lookup(i int) *ft.Groove {
	if c.grooves == nil {
		return nil
	}
	return c.grooves.Groove(i)
}

func (c *Counter) setupSpeed() {
	if c.tempo != 0 && c.speed != 0 {
		c.decrement = c.tempo * 24 / c.speed
		c.remainder = c.tempo * 24 % c.speed
	} else {
		c.decrement = 1
		c.remainder = 0
	}
}

func (c *Counter) loadGroove(g *ft.Groove) {
	c.groove = g
	c.groovePos = 0
}

func (c *Counter) updateGrooveSpeed() {
	c.speed = int(c.groove.Entry(c.groovePos))
	c.setupSpeed()
}

func (c *Counter) stepGroove() {
	c.updateGrooveSpeed()
	if n := c.groove.Len(); n > 0 {
		c.groovePos = (c.groovePos + 1) % n
	}
}
