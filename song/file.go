package song

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"famitone/hw/hwdefs"
	"famitone/tracker/ft"
)

const defaultRows = 64

// songFile is the on-disk layout of a song, shared by the TOML and JSON
// formats.
type songFile struct {
	Title       string       `toml:"title"`
	Author      string       `toml:"author"`
	Copyright   string       `toml:"copyright"`
	Machine     string       `toml:"machine"`
	Chips       []string     `toml:"chips"`
	EngineSpeed int          `toml:"engine_speed"`
	Vibrato     string       `toml:"vibrato"`
	LinearPitch bool         `toml:"linear_pitch"`
	SpeedSplit  int          `toml:"speed_split"`
	Tuning      tuningFile   `toml:"tuning"`
	Instruments []instFile   `toml:"instrument"`
	Samples     []sampleFile `toml:"sample"`
	Grooves     []grooveFile `toml:"groove"`
	Tracks      []trackFile  `toml:"track"`
}

type tuningFile struct {
	Semitones int `toml:"semitones"`
	Cents     int `toml:"cents"`
}

type instFile struct {
	Index int    `toml:"index"`
	Name  string `toml:"name"`
	Type  string `toml:"type"`

	// Sequences in text form, by sequence type name.
	Seqs map[string]string `toml:"seq"`

	DPCM []dpcmFile `toml:"dpcm"`

	Patch int   `toml:"patch"`
	Regs  []int `toml:"regs"`

	Wave     []int `toml:"wave"`
	Mod      []int `toml:"mod"`
	ModSpeed int   `toml:"mod_speed"`
	ModDepth int   `toml:"mod_depth"`
	ModDelay int   `toml:"mod_delay"`
}

type dpcmFile struct {
	Note       string `toml:"note"`
	Sample     int    `toml:"sample"`
	Pitch      int    `toml:"pitch"`
	Loop       bool   `toml:"loop"`
	LoopOffset int    `toml:"loop_offset"`
	Delta      *int   `toml:"delta"`
}

type sampleFile struct {
	Name string `toml:"name"`
	Data string `toml:"data"` // base64
}

type grooveFile struct {
	Index   int   `toml:"index"`
	Entries []int `toml:"entries"`
}

type trackFile struct {
	Name     string        `toml:"name"`
	Tempo    *int          `toml:"tempo"`
	Speed    int           `toml:"speed"`
	Groove   bool          `toml:"groove"`
	Rows     int           `toml:"rows"`
	Frames   [][]int       `toml:"frames"`
	Patterns []patternFile `toml:"pattern"`
}

type patternFile struct {
	Channel string   `toml:"channel"`
	Index   int      `toml:"index"`
	Rows    []string `toml:"rows"`
}

// build checks the file contents and turns them into a song.
func (f *songFile) build() (*Song, error) {
	machine, ok := hwdefs.MachineByName(f.Machine)
	if !ok {
		return nil, fmt.Errorf("unknown machine %q", f.Machine)
	}
	var chips hwdefs.Chip
	for _, name := range f.Chips {
		if strings.EqualFold(name, "2a03") {
			continue
		}
		c, ok := hwdefs.ChipByName(name)
		if !ok {
			return nil, fmt.Errorf("unsupported chip %q", name)
		}
		chips |= c
	}

	s := New(machine, chips)
	s.Title = f.Title
	s.Author = f.Author
	s.Copyright = f.Copyright

	if f.EngineSpeed < 0 || f.EngineSpeed > 800 {
		return nil, fmt.Errorf("engine speed %d out of range", f.EngineSpeed)
	}
	s.SetEngineSpeed(f.EngineSpeed)

	switch strings.ToLower(f.Vibrato) {
	case "", "new":
		s.SetVibratoStyle(ft.VibratoNew)
	case "old":
		s.SetVibratoStyle(ft.VibratoOld)
	default:
		return nil, fmt.Errorf("unknown vibrato style %q", f.Vibrato)
	}
	s.SetLinearPitch(f.LinearPitch)
	if f.SpeedSplit > 0 {
		s.SetSpeedSplit(f.SpeedSplit)
	}
	s.SetTuning(f.Tuning.Semitones, f.Tuning.Cents)

	for _, sf := range f.Samples {
		data, err := base64.StdEncoding.DecodeString(sf.Data)
		if err != nil {
			return nil, fmt.Errorf("sample %q: %w", sf.Name, err)
		}
		s.AddSample(sf.Name, data)
	}

	for _, gf := range f.Grooves {
		entries := make([]uint8, len(gf.Entries))
		for i, e := range gf.Entries {
			if e < ft.MinSpeed || e > 0xFF {
				return nil, fmt.Errorf("groove %d: bad speed %d", gf.Index, e)
			}
			entries[i] = uint8(e)
		}
		if err := s.SetGroove(gf.Index, ft.NewGroove(entries...)); err != nil {
			return nil, err
		}
	}

	for _, inf := range f.Instruments {
		inst, err := inf.build(s)
		if err != nil {
			return nil, fmt.Errorf("instrument %d: %w", inf.Index, err)
		}
		if err := s.SetInstrument(inf.Index, inst); err != nil {
			return nil, err
		}
	}

	if len(f.Tracks) == 0 {
		return nil, fmt.Errorf("song has no track: %w", ErrNoTrack)
	}
	for i, tf := range f.Tracks {
		t, err := tf.build(s)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
		if _, err := s.AddTrack(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (f *instFile) build(s *Song) (*ft.Instrument, error) {
	typ, ok := ft.InstTypeByName(f.Type)
	if !ok || typ == ft.InstNone || typ == ft.InstN163 {
		return nil, fmt.Errorf("unsupported instrument type %q", f.Type)
	}
	inst := &ft.Instrument{Name: f.Name, Type: typ}

	for name, text := range f.Seqs {
		t, ok := ft.SeqTypeByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown sequence %q", name)
		}
		seq, err := ParseSequence(t, text)
		if err != nil {
			return nil, fmt.Errorf("%s sequence: %w", name, err)
		}
		inst.Seqs[t] = seq
	}

	for _, df := range f.DPCM {
		if err := df.apply(s, inst); err != nil {
			return nil, err
		}
	}

	switch typ {
	case ft.InstVRC7:
		if f.Patch < 0 || f.Patch > 15 {
			return nil, fmt.Errorf("bad patch %d", f.Patch)
		}
		inst.Patch = uint8(f.Patch)
		if err := copyBytes(inst.CustomRegs[:], f.Regs, "regs"); err != nil {
			return nil, err
		}
	case ft.InstFDS:
		if err := copyBytes(inst.Wave[:], f.Wave, "wave"); err != nil {
			return nil, err
		}
		if err := copyBytes(inst.Mod[:], f.Mod, "mod"); err != nil {
			return nil, err
		}
		inst.ModSpeed = f.ModSpeed
		inst.ModDepth = f.ModDepth
		inst.ModDelay = f.ModDelay
	}
	return inst, nil
}

func copyBytes(dst []uint8, src []int, what string) error {
	if len(src) > len(dst) {
		return fmt.Errorf("%s: %d values, max %d", what, len(src), len(dst))
	}
	for i, v := range src {
		if v < 0 || v > 0xFF {
			return fmt.Errorf("%s[%d]: bad value %d", what, i, v)
		}
		dst[i] = uint8(v)
	}
	return nil
}

func (f *dpcmFile) apply(s *Song, inst *ft.Instrument) error {
	nd, err := ft.ParseNoteData(f.Note, hwdefs.Chip2A03)
	if err != nil || !nd.Note.IsPitched() {
		return fmt.Errorf("dpcm: bad note %q", f.Note)
	}
	if f.Sample < 0 || f.Sample >= len(s.samples) {
		return fmt.Errorf("dpcm %s: no sample %d", f.Note, f.Sample)
	}
	if f.Pitch < 0 || f.Pitch > 0xF {
		return fmt.Errorf("dpcm %s: bad pitch %d", f.Note, f.Pitch)
	}

	m := ft.SampleMap{
		Sample:     s.samples[f.Sample],
		Pitch:      uint8(f.Pitch),
		LoopOffset: uint8(f.LoopOffset),
		Delta:      0xFF,
	}
	if f.Loop {
		m.Pitch |= 0x80
	}
	if f.Delta != nil && *f.Delta >= 0 {
		m.Delta = uint8(min(*f.Delta, 0x7F))
	}
	inst.Samples[nd.Octave][nd.Note-1] = m
	return nil
}

func (f *trackFile) build(s *Song) (*Track, error) {
	t := &Track{
		Name:   f.Name,
		Tempo:  s.defaultTempo(),
		Speed:  f.Speed,
		Groove: f.Groove,
		Rows:   f.Rows,
	}
	if f.Tempo != nil {
		t.Tempo = *f.Tempo
	}
	if t.Tempo < 0 || t.Tempo > ft.MaxTempo {
		return nil, fmt.Errorf("tempo %d out of range", t.Tempo)
	}
	switch {
	case t.Groove && (t.Speed < 0 || t.Speed >= ft.MaxGroove):
		return nil, fmt.Errorf("groove index %d out of range", t.Speed)
	case !t.Groove && t.Speed == 0:
		t.Speed = ft.DefaultSpeed
	case !t.Groove && t.Speed < ft.MinSpeed:
		return nil, fmt.Errorf("speed %d out of range", t.Speed)
	}
	if t.Rows == 0 {
		t.Rows = defaultRows
	}
	if t.Rows < 1 || t.Rows > MaxPatternLength {
		return nil, fmt.Errorf("pattern length %d out of range", t.Rows)
	}

	if len(f.Frames) == 0 || len(f.Frames) > MaxFrames {
		return nil, fmt.Errorf("%d frames, want 1 to %d", len(f.Frames), MaxFrames)
	}
	nchans := len(s.channels)
	for i, fr := range f.Frames {
		if len(fr) > nchans {
			return nil, fmt.Errorf("frame %d: %d patterns for %d channels", i, len(fr), nchans)
		}
		row := make([]int, nchans)
		for col, p := range fr {
			if p < 0 || p >= MaxPatterns {
				return nil, fmt.Errorf("frame %d: bad pattern index %d", i, p)
			}
			row[col] = p
		}
		t.Frames = append(t.Frames, row)
	}

	for _, pf := range f.Patterns {
		ch, err := s.Channel(pf.Channel)
		if err != nil {
			return nil, err
		}
		rows := make([]ft.NoteData, len(pf.Rows))
		for r, text := range pf.Rows {
			nd, err := ft.ParseNoteData(text, ch.Chip())
			if err != nil {
				return nil, fmt.Errorf("%v pattern %d row %d: %w", ch, pf.Index, r, err)
			}
			rows[r] = nd
		}
		if err := t.SetPattern(ch, pf.Index, rows); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Sequence setting names, by sequence type.
var seqSettings = map[ft.SeqType]map[string]uint8{
	ft.SeqVolume: {
		"16": ft.SettingVol16,
		"64": ft.SettingVol64,
	},
	ft.SeqArpeggio: {
		"absolute": ft.SettingArpAbsolute,
		"fixed":    ft.SettingArpFixed,
		"relative": ft.SettingArpRelative,
		"scheme":   ft.SettingArpScheme,
	},
	ft.SeqPitch: {
		"relative": ft.SettingPitchRelative,
		"absolute": ft.SettingPitchAbsolute,
	},
}

// ParseSequence parses a sequence written the way the tracker sequence
// editor shows it: space separated values, "|" before the first looped
// value and "/" before the release value. An optional "setting:" prefix
// selects the sequence setting, such as "fixed:" for arpeggios.
//
//	fixed: 0 4 | 7 12 / 0
func ParseSequence(t ft.SeqType, text string) (*ft.Sequence, error) {
	var setting uint8
	if name, rest, ok := strings.Cut(text, ":"); ok {
		v, ok := seqSettings[t][strings.TrimSpace(strings.ToLower(name))]
		if !ok {
			return nil, fmt.Errorf("unknown %v setting %q", t, name)
		}
		setting = v
		text = rest
	}

	var (
		items         []int8
		loop, release = ft.NoPoint, ft.NoPoint
	)
	for _, f := range strings.Fields(text) {
		switch f {
		case "|":
			loop = len(items)
			continue
		case "/":
			release = len(items)
			continue
		}
		v, err := strconv.ParseInt(f, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("bad value %q", f)
		}
		items = append(items, int8(v))
	}
	if len(items) > ft.MaxSequenceItems {
		return nil, fmt.Errorf("%d values, max %d", len(items), ft.MaxSequenceItems)
	}
	return ft.NewSequence(items, loop, release, setting), nil
}

// FormatSequence returns the text form of a sequence, without setting.
func FormatSequence(seq *ft.Sequence) string {
	var sb strings.Builder
	for i, v := range seq.Items {
		if i == seq.Loop {
			sb.WriteString("| ")
		}
		if i == seq.Release {
			sb.WriteString("/ ")
		}
		sb.WriteString(strconv.Itoa(int(v)))
		if i < len(seq.Items)-1 {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}
