// Package driver implements the sound driver: once per tick it reads pattern
// rows from the song document, hands them to the channel handlers and
// writes the resulting registers to the sound board, spreading the writes
// over the tick like the NSF driver does.
package driver

import (
	"fmt"
	"sync/atomic"

	"famitone/emu/log"
	"famitone/hw/hwdefs"
	"famitone/hw/snapshot"
	"famitone/hw/sound"
	"famitone/tracker/chans"
	"famitone/tracker/ft"
	"famitone/tracker/tempo"
)

// CPU cycles between the register updates of two consecutive channels.
const (
	sameChipDelay = 150
	newChipDelay  = 250
)

// Document is the song being played.
type Document interface {
	chans.Instruments
	tempo.GrooveTable
	Layout

	Machine() hwdefs.Machine
	ExpansionChips() hwdefs.Chip
	// EngineSpeed returns the tick rate in Hz, 0 for the machine default.
	EngineSpeed() int
	VibratoStyle() ft.VibratoStyle
	LinearPitch() bool
	SpeedSplit() int
	Tuning() (semitones, cents int)

	TrackCount() int
	// Timing returns the initial tempo and speed of a track. With groove
	// set, speed is a groove index.
	Timing(track int) (tempo, speed int, groove bool)
	NoteData(track, frame, row int, ch hwdefs.ChannelID) ft.NoteData
}

// Board is the sound hardware the driver writes to.
type Board interface {
	SetMachine(m hwdefs.Machine)
	SetExternalSound(chips hwdefs.Chip)
	Write(addr uint16, val uint8)
	AddTime(cycles uint32)
	Process()
	LoadSamples(addr uint16, data []byte)
	ChannelLevel(ch hwdefs.ChannelID) int
}

// Settings are the player options that aren't stored in the document.
type Settings = chans.Settings

// chipBus is the register bus of the channel handlers. It accounts for the
// cycles spent during the current tick, which can't exceed the tick length.
type chipBus struct {
	board    Board
	consumed int
	budget   int
}

func (b *chipBus) Write(addr uint16, val uint8) { b.board.Write(addr, val) }

func (b *chipBus) AddCycles(n int) {
	n = min(n, b.budget-b.consumed)
	if n <= 0 {
		return
	}
	b.consumed += n
	b.board.AddTime(uint32(n))
}

func (b *chipBus) LoadSamples(data []byte) {
	b.board.LoadSamples(sound.SampleBase, data)
}

type Driver struct {
	doc   Document
	board Board
	bus   chipBus
	env   chans.Env

	chans    [hwdefs.NumChannels]chans.Handler
	channels []hwdefs.ChannelID // enabled channels, in update order

	tables    *PeriodTables
	vibrato   []int
	frameRate int

	tempo  *tempo.Counter
	cursor *Cursor

	playing     bool
	haltRequest bool
	doHalt      bool // Cxx seen, halt on the next row
	jumpTo      int
	skipTo      int

	notes  [hwdefs.NumChannels]ft.NoteData
	queued [hwdefs.NumChannels]bool
	pitch  [hwdefs.NumChannels]int
	muted  [hwdefs.NumChannels]bool
	levels [hwdefs.NumChannels]int

	// Position published for log contexts.
	logFrame, logRow atomic.Int32
}

func New(board Board, settings Settings) *Driver {
	d := &Driver{
		board:  board,
		jumpTo: -1,
		skipTo: -1,
	}
	d.bus.board = board
	d.env = chans.Env{Regs: &d.bus, Settings: settings}
	d.chans = chans.New(&d.env)
	return d
}

// Load prepares the driver and the board for a document, and resets all
// channels. The player is stopped.
func (d *Driver) Load(doc Document) {
	d.doc = doc
	d.env.Insts = doc
	d.playing = false
	d.haltRequest = false
	d.doHalt = false
	d.cursor = nil

	machine := doc.Machine()
	chips := doc.ExpansionChips()
	d.board.SetMachine(machine)
	d.board.SetExternalSound(chips)
	d.channels = hwdefs.Channels(chips)

	d.frameRate = doc.EngineSpeed()
	if d.frameRate <= 0 {
		d.frameRate = machine.FrameRate()
	}
	d.bus.budget = machine.CPUClock() / d.frameRate
	d.bus.consumed = 0

	d.tempo = tempo.New(d.frameRate, doc)
	if split := doc.SpeedSplit(); split > 0 {
		d.tempo.SetSplitPoint(split)
	}

	d.tables = NewPeriodTables(doc.Tuning())
	d.vibrato = VibratoTable(doc.VibratoStyle())
	for id, ch := range d.chans {
		ch.SetNoteTable(d.tables.Table(hwdefs.ChannelID(id), machine))
		ch.SetVibratoTable(d.vibrato)
		ch.SetVibratoStyle(doc.VibratoStyle())
		ch.SetLinearPitch(doc.LinearPitch())
	}
	d.resetChannels()

	log.ModDriver.InfoZ("document loaded").
		Stringer("machine", machine).
		Stringer("chips", chips).
		Int("rate", d.frameRate).
		Int("cycles", d.bus.budget).
		End()
}

func (d *Driver) resetChannels() {
	clear(d.queued[:])
	clear(d.pitch[:])
	for _, ch := range d.chans {
		ch.ResetChannel()
	}
	d.bus.consumed = 0
}

// Play starts playing a track from the given position.
func (d *Driver) Play(track, frame, row int) error {
	if d.doc == nil {
		return fmt.Errorf("no document loaded")
	}
	if track < 0 || track >= d.doc.TrackCount() {
		return fmt.Errorf("track %d out of range [0, %d)", track, d.doc.TrackCount())
	}
	if n := d.doc.FrameCount(track); frame < 0 || frame >= n {
		return fmt.Errorf("frame %d out of range [0, %d)", frame, n)
	}
	if n := d.doc.PatternLength(track); row < 0 || row >= n {
		return fmt.Errorf("row %d out of range [0, %d)", row, n)
	}

	d.resetChannels()
	d.tempo.Load(d.doc.Timing(track))
	d.cursor = NewCursor(d.doc, track, frame, row)
	d.playing = true
	d.haltRequest = false
	d.doHalt = false
	d.jumpTo = -1
	d.skipTo = -1
	d.publishPosition()

	log.ModDriver.DebugZ("play").Int("track", track).Int("frame", frame).Int("row", row).End()
	return nil
}

// Stop silences all channels on the next tick and stops the player.
func (d *Driver) Stop() {
	d.haltRequest = true
}

// Seek moves the player to another position of the current track.
func (d *Driver) Seek(frame, row int) {
	if d.cursor == nil {
		return
	}
	frame = max(0, min(frame, d.doc.FrameCount(d.cursor.Track())-1))
	row = max(0, min(row, d.doc.PatternLength(d.cursor.Track())-1))
	d.cursor.SetPosition(frame, row)
	d.publishPosition()
}

// QueueFrame sets the frame to play once the current one ends.
func (d *Driver) QueueFrame(frame int) {
	if d.cursor != nil {
		d.cursor.QueueFrame(frame)
	}
}

// QueueNote plays a note on a channel on the next tick, as if it was read
// from a pattern.
func (d *Driver) QueueNote(id hwdefs.ChannelID, nd ft.NoteData) {
	if id >= hwdefs.NumChannels {
		return
	}
	d.notes[id] = nd
	d.queued[id] = true
}

// SetPitch sets the pitch wheel of a channel, from -511 to 511.
func (d *Driver) SetPitch(id hwdefs.ChannelID, pitch int) {
	if id < hwdefs.NumChannels {
		d.pitch[id] = pitch
	}
}

// SetMuted stops playing rows on a channel. Queued notes still play.
func (d *Driver) SetMuted(id hwdefs.ChannelID, muted bool) {
	if id < hwdefs.NumChannels {
		d.muted[id] = muted
	}
}

// ForceReloadInstrument reloads the instrument of a channel on its next
// note, after the instrument was edited.
func (d *Driver) ForceReloadInstrument(id hwdefs.ChannelID) {
	if id < hwdefs.NumChannels {
		d.chans[id].ForceReloadInstrument()
	}
}

// Tick runs the player and all channels for one tick, then lets the sound
// board run until the end of the tick.
func (d *Driver) Tick() {
	if d.doc == nil {
		return
	}
	if d.playing {
		d.playerTick()
	}
	d.updateChannels()
	d.updateAPU()

	if d.haltRequest {
		d.haltPlayer()
	}
}

func (d *Driver) playerTick() {
	d.cursor.Tick()

	stepped := false
	if d.tempo.CanStepRow() {
		if d.doHalt {
			d.haltRequest = true
		} else {
			stepped = true
		}
		d.tempo.StepRow()

		track, frame, row := d.cursor.Track(), d.cursor.Frame(), d.cursor.Row()
		for _, id := range d.channels {
			nd := d.doc.NoteData(track, frame, row, id)
			d.handleGlobalEffects(&nd)
			if !d.muted[id] {
				d.QueueNote(id, nd)
			}
		}
	}
	d.tempo.Tick()

	if stepped && !d.doHalt && !d.haltRequest {
		switch {
		case d.jumpTo >= 0:
			d.cursor.DoBxx(d.jumpTo)
		case d.skipTo >= 0:
			d.cursor.DoDxx(d.skipTo)
		default:
			d.cursor.StepRow()
		}
		d.jumpTo = -1
		d.skipTo = -1
		d.publishPosition()
	}
}

// handleGlobalEffects applies the effects acting on the player and removes
// them from the row.
func (d *Driver) handleGlobalEffects(nd *ft.NoteData) {
	for i, eff := range nd.EffNumber {
		param := nd.EffParam[i]
		switch eff {
		case ft.EffSpeed:
			d.tempo.DoFxx(param)
		case ft.EffGroove:
			d.tempo.DoOxx(param % ft.MaxGroove)
		case ft.EffJump:
			d.jumpTo = int(param)
		case ft.EffSkip:
			d.skipTo = int(param)
		case ft.EffHalt:
			d.doHalt = true
			d.cursor.DoCxx()
		default:
			continue
		}
		nd.EffNumber[i] = ft.EffNone
		nd.EffParam[i] = 0
	}
}

func (d *Driver) updateChannels() {
	for _, id := range d.channels {
		ch := d.chans[id]
		if d.queued[id] {
			d.queued[id] = false
			ch.PlayNote(d.notes[id])
		}
		ch.SetPitch(d.pitch[id])

		if d.haltRequest {
			ch.ResetChannel()
		} else {
			ch.ProcessChannel()
		}
	}
}

// updateAPU writes the channel registers, letting the chips run a few
// cycles after each channel, then runs the board until the end of the
// tick.
func (d *Driver) updateAPU() {
	prev := hwdefs.Chip2A03
	for _, id := range d.channels {
		ch := d.chans[id]
		ch.RefreshChannel()
		ch.FinishTick()

		chip := id.Chip()
		delay := newChipDelay
		if chip == prev {
			delay = sameChipDelay
		}
		d.bus.AddCycles(delay)
		d.board.Process()
		prev = chip
	}

	d.board.AddTime(uint32(d.bus.budget - d.bus.consumed))
	d.board.Process()
	d.bus.consumed = 0

	for _, id := range d.channels {
		d.levels[id] = d.board.ChannelLevel(id)
	}
}

func (d *Driver) haltPlayer() {
	d.playing = false
	d.haltRequest = false
	d.doHalt = false
	if d.cursor != nil {
		log.ModDriver.DebugZ("halt").
			Int("frame", d.cursor.Frame()).
			Int("row", d.cursor.Row()).
			Int("ticks", d.cursor.TotalTicks()).
			End()
	}
}

func (d *Driver) publishPosition() {
	d.logFrame.Store(int32(d.cursor.Frame()))
	d.logRow.Store(int32(d.cursor.Row()))
}

// AddLogContext stamps log entries with the player position.
func (d *Driver) AddLogContext(z *log.EntryZ) {
	z.Int("frame", int(d.logFrame.Load())).Int("row", int(d.logRow.Load()))
}

func (d *Driver) IsPlaying() bool { return d.playing }

// Cursor returns the player position, nil before the first Play.
func (d *Driver) Cursor() *Cursor { return d.cursor }

func (d *Driver) Tempo() *tempo.Counter { return d.tempo }

// Tables returns the period tables of the loaded document.
func (d *Driver) Tables() *PeriodTables { return d.tables }

// Channels returns the channels enabled by the loaded document.
func (d *Driver) Channels() []hwdefs.ChannelID { return d.channels }

// TickLength returns the length of a tick in CPU cycles.
func (d *Driver) TickLength() int { return d.bus.budget }

func (d *Driver) FrameRate() int { return d.frameRate }

func (d *Driver) Channel(id hwdefs.ChannelID) chans.Handler {
	if id >= hwdefs.NumChannels {
		return nil
	}
	return d.chans[id]
}

func (d *Driver) ChannelVolume(id hwdefs.ChannelID) int {
	if ch := d.Channel(id); ch != nil {
		return ch.ChannelVolume()
	}
	return 0
}

func (d *Driver) ChannelState(id hwdefs.ChannelID) string {
	if ch := d.Channel(id); ch != nil {
		return ch.StateString()
	}
	return ""
}

// Level returns the VU level of a channel at the end of the last tick.
func (d *Driver) Level(id hwdefs.ChannelID) int {
	if id >= hwdefs.NumChannels {
		return 0
	}
	return d.levels[id]
}

// Status returns a copy of the player and channels state.
func (d *Driver) Status() *snapshot.Player {
	st := &snapshot.Player{
		Playing:     d.playing,
		QueuedFrame: -1,
	}
	if c := d.cursor; c != nil {
		st.Track = c.Track()
		st.Frame = c.Frame()
		st.Row = c.Row()
		st.Tick = c.CurrentTick()
		st.TotalTicks = c.TotalTicks()
		st.QueuedFrame = c.QueuedFrame()
	}
	if t := d.tempo; t != nil {
		st.Tempo = t.Tempo()
		st.Speed = t.Speed()
		st.Grooving = t.Grooving()
		st.BPM = t.BPM()
	}
	for _, id := range d.channels {
		ch := d.chans[id]
		st.Channels = append(st.Channels, snapshot.Channel{
			Name:   id.String(),
			Key:    ch.Key(),
			Volume: ch.ChannelVolume(),
			Level:  d.levels[id],
			State:  ch.StateString(),
		})
	}
	return st
}
