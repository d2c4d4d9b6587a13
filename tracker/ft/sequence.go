package ft

import "fmt"

// SeqType is the parameter an instrument sequence drives.
type SeqType uint8

const (
	SeqVolume SeqType = iota
	SeqArpeggio
	SeqPitch
	SeqHiPitch
	SeqDuty

	SeqCount = 5
)

var seqNames = [SeqCount]string{"volume", "arpeggio", "pitch", "hipitch", "duty"}

func (t SeqType) String() string {
	if t < SeqCount {
		return seqNames[t]
	}
	return fmt.Sprintf("seq(%d)", t)
}

// SeqTypeByName parses a sequence type name as returned by String.
func SeqTypeByName(name string) (SeqType, bool) {
	for i, n := range seqNames {
		if n == name {
			return SeqType(i), true
		}
	}
	return 0, false
}

// Sequence settings. Their meaning depends on the sequence type.
const (
	// SeqVolume
	SettingVol16 = 0
	SettingVol64 = 1 // VRC6 sawtooth only

	// SeqArpeggio
	SettingArpAbsolute = 0
	SettingArpFixed    = 1
	SettingArpRelative = 2
	SettingArpScheme   = 3

	// SeqPitch
	SettingPitchRelative = 0
	SettingPitchAbsolute = 1
)

// Arpeggio scheme values: the low 6 bits are a signed note offset, the top
// two bits add the x, y or -y nibble of the 0xy effect.
const (
	ArpSchemeModeX    = 0x40
	ArpSchemeModeY    = 0x80
	ArpSchemeModeNegY = 0xC0
	ArpSchemeMax      = 36
	ArpSchemeMin      = ArpSchemeMax - 0x3F
)

// Sunsoft 5B duty sequence values.
const (
	S5BModeEnvelope = 0x20
	S5BModeSquare   = 0x40
	S5BModeNoise    = 0x80
)

// NoPoint marks a sequence without loop or release point.
const NoPoint = -1

// Sequence is a list of values stepped once per tick by an instrument
// handler.
type Sequence struct {
	Items   []int8
	Loop    int
	Release int
	Setting uint8
}

// NewSequence returns a sequence holding at most MaxSequenceItems items.
// Loop and release points past the end are clamped to the last item, negative
// ones mean none.
func NewSequence(items []int8, loop, release int, setting uint8) *Sequence {
	if len(items) > MaxSequenceItems {
		items = items[:MaxSequenceItems]
	}
	s := &Sequence{
		Items:   append([]int8(nil), items...),
		Setting: setting,
	}
	s.Loop = s.clampPoint(loop)
	s.Release = s.clampPoint(release)
	return s
}

func (s *Sequence) clampPoint(p int) int {
	switch {
	case p < 0 || len(s.Items) == 0:
		return NoPoint
	case p >= len(s.Items):
		return len(s.Items) - 1
	}
	return p
}

// Len returns the number of items.
func (s *Sequence) Len() int { return len(s.Items) }

// Item returns the item at index i, or 0 outside of the sequence.
func (s *Sequence) Item(i int) int {
	if i < 0 || i >= len(s.Items) {
		return 0
	}
	return int(s.Items[i])
}
