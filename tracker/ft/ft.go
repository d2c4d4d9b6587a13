// Package ft holds the tracker data consumed by the sound driver: notes and
// effects of a pattern row, instruments and their sequences, DPCM samples and
// grooves.
package ft

const (
	OctaveRange = 8
	NoteRange   = 12
	NoteCount   = OctaveRange * NoteRange

	MaxInstruments   = 64
	HoldInstrument   = 0xFF // keep the current instrument without retriggering it
	MaxVolume        = 0x10 // volume column value meaning "no volume"
	MaxEffectColumns = 4

	MaxSequenceItems = 252
	MaxGroove        = 32 // number of groove slots
	MaxGrooveSize    = 128

	MaxTempo     = 255
	MinSpeed     = 1
	DefaultSpeed = 6

	DefaultTempoNTSC = 150
	DefaultTempoPAL  = 125

	// Fxx values at or above the split point set the tempo, below it the speed.
	DefaultSpeedSplit = 32

	EchoBufferLength = 3 // highest echo buffer index

	// Linear pitch periods are note << LinearPitchShift.
	LinearPitchShift = 5
)

// VibratoStyle selects the shape of the 4xy vibrato table.
type VibratoStyle uint8

const (
	VibratoNew VibratoStyle = iota
	VibratoOld
)

func (s VibratoStyle) String() string {
	if s == VibratoOld {
		return "old"
	}
	return "new"
}
