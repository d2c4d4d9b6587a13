// Package inst implements instrument handlers. An instrument handler is owned
// by a channel handler and drives its volume, pitch, duty and arpeggio once
// per tick, through the Channel capability interface. Handlers never write
// chip registers.
package inst

import "famitone/tracker/ft"

// Channel is what an instrument handler can see and change of the channel
// playing it.
type Channel interface {
	// TriggerNote returns the period of a note index.
	TriggerNote(note int) int

	SetVolume(v int)
	Volume() int
	SetPeriod(p int)
	Period() int
	SetNote(n int)
	Note() int
	SetDutyPeriod(d int)
	DutyPeriod() int

	// ArpParam returns the 0xy effect parameter, or 0 when no arpeggio
	// effect is playing.
	ArpParam() uint8

	IsActive() bool
	IsReleasing() bool
}

// DPCMChannel is a channel able to play DPCM samples.
type DPCMChannel interface {
	Channel
	WriteDCOffset(delta uint8)
	SetLoopOffset(offset uint8)
	PlaySample(s *ft.Sample, pitch uint8)
}

// VRC7Channel is a VRC7 FM channel.
type VRC7Channel interface {
	Channel
	SetPatch(patch uint8)
	SetCustomReg(index int, val uint8)
}

// FDSChannel is the FDS wavetable channel.
type FDSChannel interface {
	Channel
	FillWaveRAM(wave []uint8)
	FillModTable(mod []uint8)
	SetFMSpeed(speed int)
	SetFMDepth(depth int)
	SetFMDelay(delay int)
}

// S5BChannel is a Sunsoft 5B channel.
type S5BChannel interface {
	Channel
	SetNoiseFreq(freq int)
}

// Handler plays an instrument on a channel.
type Handler interface {
	// Load switches to another instrument of the same type.
	Load(inst *ft.Instrument)
	// Trigger restarts the instrument at note-on.
	Trigger()
	// Release moves the instrument to its release phase at note-off.
	Release()
	// Update runs one tick.
	Update()
}
