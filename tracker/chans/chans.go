// Package chans implements channel handlers, the per-channel state machines
// that turn pattern rows into chip register writes. Every tick the sound
// driver hands new rows to PlayNote, then calls ProcessChannel to run
// effects and instrument sequences, and RefreshChannel to write the result
// to the chip.
package chans

import (
	"famitone/hw/hwdefs"
	"famitone/tracker/ft"
	"famitone/tracker/inst"
)

// Writer is the register bus channels write to.
type Writer interface {
	Write(addr uint16, val uint8)
	// AddCycles lets the chips run for some CPU cycles before the next
	// write.
	AddCycles(n int)
	// LoadSamples copies DPCM sample data to the start of the sample area.
	LoadSamples(data []byte)
}

// Instruments gives access to the instruments of the playing song.
type Instruments interface {
	// Instrument returns the instrument at index i, or nil.
	Instrument(i int) *ft.Instrument
}

// Settings are the player options channels depend on.
type Settings struct {
	// CutVolume lets a low instrument or column volume round down to
	// silence.
	CutVolume bool
	// FDSOldVolume uses the plain volume formula on FDS and VRC6 sawtooth
	// with 64-step volume sequences.
	FDSOldVolume bool
}

// Env is the environment shared by all channels of a driver.
type Env struct {
	Regs  Writer
	Insts Instruments
	Settings
}

// Handler is a channel handler.
type Handler interface {
	inst.Channel

	ID() hwdefs.ChannelID

	// PlayNote processes a new row. Global effects must have been removed.
	PlayNote(nd ft.NoteData)
	// ProcessChannel runs effects and the instrument for one tick.
	ProcessChannel()
	// RefreshChannel writes the channel state to the chip.
	RefreshChannel()
	// ResetChannel goes back to power-on state and silences the channel.
	ResetChannel()
	// FinishTick ends the tick.
	FinishTick()

	// SetPitch sets the pitch wheel, from -511 to 511.
	SetPitch(pitch int)
	// Arpeggiate plays a note index without retriggering.
	Arpeggiate(note int)
	ForceReloadInstrument()

	SetNoteTable(table []int)
	SetVibratoTable(table []int)
	SetLinearPitch(enable bool)
	SetVibratoStyle(style ft.VibratoStyle)

	// ChannelVolume returns the channel volume column, 0 to 0x7F.
	ChannelVolume() int
	// Key returns the note index being played, -1 if none.
	Key() int
	// StateString describes the instrument, volume and running effects.
	StateString() string
}

// New returns a handler for every channel, indexed by channel ID. Channels
// sharing chip state are created together.
func New(env *Env) [hwdefs.NumChannels]Handler {
	var hs [hwdefs.NumChannels]Handler

	hs[hwdefs.Square1] = newSquare(env, hwdefs.Square1)
	hs[hwdefs.Square2] = newSquare(env, hwdefs.Square2)
	hs[hwdefs.Triangle] = newTriangle(env)
	hs[hwdefs.Noise] = newNoise(env)
	hs[hwdefs.DPCM] = newDPCM(env)

	hs[hwdefs.VRC6Pulse1] = newVRC6Pulse(env, hwdefs.VRC6Pulse1)
	hs[hwdefs.VRC6Pulse2] = newVRC6Pulse(env, hwdefs.VRC6Pulse2)
	hs[hwdefs.VRC6Sawtooth] = newSawtooth(env)

	vrc7 := &VRC7Group{}
	for id := hwdefs.VRC7Ch1; id <= hwdefs.VRC7Ch6; id++ {
		hs[id] = newVRC7(env, vrc7, id)
	}

	hs[hwdefs.FDSWave] = newFDS(env)

	s5b := &S5BGroup{}
	for id := hwdefs.S5BCh1; id <= hwdefs.S5BCh3; id++ {
		hs[id] = newS5B(env, s5b, id)
	}
	return hs
}
