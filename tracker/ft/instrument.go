package ft

import (
	"fmt"
	"strings"
)

// InstType is the chip family an instrument was made for.
type InstType uint8

const (
	InstNone InstType = iota
	Inst2A03
	InstVRC6
	InstVRC7
	InstFDS
	InstN163
	InstS5B
)

var instTypeNames = [...]string{"none", "2a03", "vrc6", "vrc7", "fds", "n163", "s5b"}

func (t InstType) String() string {
	if int(t) < len(instTypeNames) {
		return instTypeNames[t]
	}
	return fmt.Sprintf("inst(%d)", t)
}

// InstTypeByName parses an instrument type name as returned by String.
func InstTypeByName(name string) (InstType, bool) {
	for i, n := range instTypeNames {
		if strings.EqualFold(n, name) {
			return InstType(i), true
		}
	}
	return InstNone, false
}

// IsSequence reports whether instruments of this type are driven by the
// generic sequence handler.
func (t InstType) IsSequence() bool {
	switch t {
	case Inst2A03, InstVRC6, InstN163, InstS5B:
		return true
	}
	return false
}

const (
	FDSWaveSize = 64
	FDSModSize  = 32
	VRC7Regs    = 8
)

// Instrument is a tracker instrument. Only the fields of its type are
// meaningful: every type has sequences, 2A03 instruments also map notes to
// DPCM samples, VRC7 ones select a patch and FDS ones carry wave and
// modulation tables.
type Instrument struct {
	Name string
	Type InstType

	// Seqs holds the enabled sequences, nil for disabled ones. FDS
	// instruments only use volume, arpeggio and pitch.
	Seqs [SeqCount]*Sequence

	// 2A03
	Samples [OctaveRange][NoteRange]SampleMap

	// VRC7
	Patch      uint8 // 0 selects the custom patch in Regs
	CustomRegs [VRC7Regs]uint8

	// FDS
	Wave     [FDSWaveSize]uint8
	Mod      [FDSModSize]uint8
	ModSpeed int
	ModDepth int
	ModDelay int
}

// Seq returns the sequence of the given type, or nil.
func (inst *Instrument) Seq(t SeqType) *Sequence {
	if inst == nil || t >= SeqCount {
		return nil
	}
	return inst.Seqs[t]
}

// SampleMap assigns a DPCM sample to a note of a 2A03 instrument.
type SampleMap struct {
	Sample     *Sample // nil when the note plays nothing
	Pitch      uint8   // rate index, bit 7 enables looping
	LoopOffset uint8
	Delta      uint8 // initial DAC value, 0xFF to keep the current one
}

// DPCMSample returns the sample mapping of a note index.
func (inst *Instrument) DPCMSample(midi int) (SampleMap, bool) {
	if inst == nil || midi < 0 || midi >= NoteCount {
		return SampleMap{}, false
	}
	m := inst.Samples[OctaveOf(midi)][NoteOf(midi)-1]
	return m, m.Sample != nil
}

// MaxSampleSize is the largest DPCM sample the 2A03 can play, in bytes.
const MaxSampleSize = 0xFF1

// Sample is a DPCM sample.
type Sample struct {
	Name string
	Data []byte
}

// Size returns the sample length in bytes, capped to what a single sample
// playback can cover.
func (s *Sample) Size() int {
	return min(len(s.Data), MaxSampleSize)
}
