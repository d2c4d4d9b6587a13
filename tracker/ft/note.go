package ft

import (
	"fmt"
	"strconv"
	"strings"

	"famitone/hw/hwdefs"
)

// Note is the note field of a pattern cell.
type Note uint8

const (
	NoneNote Note = iota
	NoteC
	NoteCs
	NoteD
	NoteDs
	NoteE
	NoteF
	NoteFs
	NoteG
	NoteGs
	NoteA
	NoteAs
	NoteB
	ReleaseNote // start the release part of the instrument sequences
	HaltNote    // cut the note
	EchoNote    // replay from the echo buffer, the octave selects the entry
)

var noteNames = [...]string{"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-"}

// IsPitched reports whether n is one of the 12 notes of the octave.
func (n Note) IsPitched() bool { return n >= NoteC && n <= NoteB }

// MidiNote converts an octave and a pitched note to a note index, where 0
// is C-0.
func MidiNote(octave int, n Note) int {
	return octave*NoteRange + int(n) - 1
}

// NoteOf returns the pitched note of a note index, in 1..12.
func NoteOf(midi int) Note {
	n := midi % NoteRange
	if n < 0 {
		n += NoteRange
	}
	return Note(n + 1)
}

// OctaveOf returns the octave of a note index, rounding toward minus
// infinity.
func OctaveOf(midi int) int {
	if midi < 0 {
		return (midi - NoteRange + 1) / NoteRange
	}
	return midi / NoteRange
}

// KeyName formats a note index like the pattern editor, "..." for negative
// indices.
func KeyName(midi int) string {
	if midi < 0 {
		return "..."
	}
	return noteNames[NoteOf(midi)-1] + strconv.Itoa(OctaveOf(midi))
}

// NoteData is one cell of a pattern: the note, instrument, volume and effect
// columns of a channel on a row.
type NoteData struct {
	Note       Note
	Octave     int
	Vol        uint8 // 0x10 (MaxVolume) for none
	Instrument uint8 // MaxInstruments for none, HoldInstrument for hold
	EffNumber  [MaxEffectColumns]Effect
	EffParam   [MaxEffectColumns]uint8
}

// EmptyNote returns a cell with nothing in it.
func EmptyNote() NoteData {
	return NoteData{Vol: MaxVolume, Instrument: MaxInstruments}
}

// IsEmpty reports whether the cell carries neither note, instrument, volume
// nor effect.
func (nd *NoteData) IsEmpty() bool {
	if nd.Note != NoneNote || nd.Vol != MaxVolume || nd.Instrument != MaxInstruments {
		return false
	}
	for _, e := range nd.EffNumber {
		if e != EffNone {
			return false
		}
	}
	return true
}

// String formats the cell the way the tracker pattern editor shows it, with
// as many effect columns as needed:
//
//	C#4 01 F 4A3
func (nd NoteData) String() string {
	var sb strings.Builder
	switch nd.Note {
	case NoneNote:
		sb.WriteString("...")
	case ReleaseNote:
		sb.WriteString("===")
	case HaltNote:
		sb.WriteString("---")
	case EchoNote:
		fmt.Fprintf(&sb, "^-%d", nd.Octave)
	default:
		fmt.Fprintf(&sb, "%s%d", noteNames[nd.Note-1], nd.Octave)
	}

	switch nd.Instrument {
	case MaxInstruments:
		sb.WriteString(" ..")
	case HoldInstrument:
		sb.WriteString(" &&")
	default:
		fmt.Fprintf(&sb, " %02X", nd.Instrument)
	}

	if nd.Vol < MaxVolume {
		fmt.Fprintf(&sb, " %X", nd.Vol)
	} else {
		sb.WriteString(" .")
	}

	cols := 1
	for i := range nd.EffNumber {
		if nd.EffNumber[i] != EffNone {
			cols = i + 1
		}
	}
	for i := range cols {
		if nd.EffNumber[i] == EffNone {
			sb.WriteString(" ...")
			continue
		}
		fmt.Fprintf(&sb, " %c%02X", nd.EffNumber[i].Char(), nd.EffParam[i])
	}
	return sb.String()
}

// ParseNoteData parses a cell in the format produced by NoteData.String.
// Trailing fields may be omitted. Effect letters are resolved for the given
// chip, since several expansion effects share a letter.
func ParseNoteData(s string, chip hwdefs.Chip) (NoteData, error) {
	nd := EmptyNote()
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nd, nil
	}
	if len(fields) > 3+MaxEffectColumns {
		return nd, fmt.Errorf("too many fields in %q", s)
	}

	if err := nd.parseNote(fields[0]); err != nil {
		return nd, err
	}

	if len(fields) > 1 {
		switch f := fields[1]; f {
		case "..":
		case "&&":
			nd.Instrument = HoldInstrument
		default:
			v, err := strconv.ParseUint(f, 16, 8)
			if err != nil || v >= MaxInstruments {
				return nd, fmt.Errorf("bad instrument %q", f)
			}
			nd.Instrument = uint8(v)
		}
	}

	if len(fields) > 2 {
		if f := fields[2]; f != "." {
			v, err := strconv.ParseUint(f, 16, 8)
			if err != nil || v >= MaxVolume {
				return nd, fmt.Errorf("bad volume %q", f)
			}
			nd.Vol = uint8(v)
		}
	}

	for i, f := range fields[min(3, len(fields)):] {
		if f == "..." {
			continue
		}
		if len(f) != 3 {
			return nd, fmt.Errorf("bad effect %q", f)
		}
		eff, ok := EffectFromChar(f[0], chip)
		if !ok {
			return nd, fmt.Errorf("unknown effect %q", f)
		}
		v, err := strconv.ParseUint(f[1:], 16, 8)
		if err != nil {
			return nd, fmt.Errorf("bad effect parameter %q", f)
		}
		nd.EffNumber[i] = eff
		nd.EffParam[i] = uint8(v)
	}
	return nd, nil
}

func (nd *NoteData) parseNote(f string) error {
	switch {
	case f == "...":
		return nil
	case f == "===":
		nd.Note = ReleaseNote
		return nil
	case f == "---":
		nd.Note = HaltNote
		return nil
	case len(f) == 3 && strings.HasPrefix(f, "^-"):
		oct := int(f[2] - '0')
		if oct < 0 || oct > EchoBufferLength {
			return fmt.Errorf("bad echo note %q", f)
		}
		nd.Note, nd.Octave = EchoNote, oct
		return nil
	}

	if len(f) == 3 {
		for i, name := range noteNames {
			if strings.EqualFold(f[:2], name) {
				oct := int(f[2] - '0')
				if oct < 0 || oct >= OctaveRange {
					break
				}
				nd.Note, nd.Octave = Note(i+1), oct
				return nil
			}
		}
	}
	return fmt.Errorf("bad note %q", f)
}
