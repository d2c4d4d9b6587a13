// Package song holds the song documents played by the sound driver, and
// loads them from TOML or JSON files.
package song

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"famitone/emu/log"
	"famitone/hw/hwdefs"
	"famitone/tracker/ft"
)

const (
	MaxTracks        = 64
	MaxFrames        = 128
	MaxPatterns      = 128
	MaxPatternLength = 256
)

var (
	// ErrNoTrack is returned when a track index does not exist.
	ErrNoTrack = errors.New("no such track")

	// ErrBadChannel is returned for unknown channels, or channels of a chip
	// the song does not use.
	ErrBadChannel = errors.New("bad channel")
)

// Song is a tracker module.
type Song struct {
	Title     string
	Author    string
	Copyright string

	machine     hwdefs.Machine
	chips       hwdefs.Chip
	channels    []hwdefs.ChannelID
	column      [hwdefs.NumChannels]int // index in channels, -1 if disabled
	engineSpeed int
	vibrato     ft.VibratoStyle
	linearPitch bool
	speedSplit  int
	semitones   int
	cents       int

	instruments [ft.MaxInstruments]*ft.Instrument
	grooves     [ft.MaxGroove]*ft.Groove
	samples     []*ft.Sample
	tracks      []*Track
}

// Track is a sub-song: an order list of frames, each frame selecting one
// pattern per channel.
type Track struct {
	Name  string
	Tempo int
	// Speed is the initial speed, or the groove index if Groove is set.
	Speed  int
	Groove bool
	Rows   int

	// Frames holds the pattern index of every channel, in song channel
	// order.
	Frames [][]int
	// Patterns are indexed by channel ID then pattern index. Rows past the
	// end of a pattern are empty.
	Patterns [hwdefs.NumChannels][][]ft.NoteData
}

// New returns an empty song for the given machine and expansion chips.
func New(machine hwdefs.Machine, chips hwdefs.Chip) *Song {
	s := &Song{
		machine:    machine,
		chips:      chips,
		channels:   hwdefs.Channels(chips),
		speedSplit: ft.DefaultSpeedSplit,
	}
	for i := range s.column {
		s.column[i] = -1
	}
	for i, id := range s.channels {
		s.column[id] = i
	}
	return s
}

// Load reads a song file, in TOML or JSON depending on its extension.
func Load(path string) (*Song, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s *Song
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		s, err = DecodeTOML(buf)
	case ".json":
		s, err = DecodeJSON(buf)
	default:
		return nil, fmt.Errorf("%s: unsupported song format %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.ModSong.InfoZ("song loaded").
		String("path", path).
		String("title", s.Title).
		Int("tracks", len(s.tracks)).
		Stringer("chips", s.chips).
		End()
	return s, nil
}

// AddTrack appends a track and returns its index.
func (s *Song) AddTrack(t *Track) (int, error) {
	if len(s.tracks) >= MaxTracks {
		return 0, fmt.Errorf("too many tracks (max %d)", MaxTracks)
	}
	s.tracks = append(s.tracks, t)
	return len(s.tracks) - 1, nil
}

// Track returns the track at index i.
func (s *Song) Track(i int) (*Track, error) {
	t := s.track(i)
	if t == nil {
		return nil, fmt.Errorf("track %d: %w", i, ErrNoTrack)
	}
	return t, nil
}

func (s *Song) track(i int) *Track {
	if i < 0 || i >= len(s.tracks) {
		return nil
	}
	return s.tracks[i]
}

// SetInstrument stores an instrument at index i, nil to remove it.
func (s *Song) SetInstrument(i int, inst *ft.Instrument) error {
	if i < 0 || i >= ft.MaxInstruments {
		return fmt.Errorf("instrument index %d out of range", i)
	}
	s.instruments[i] = inst
	return nil
}

// SetGroove stores a groove at index i, nil to remove it.
func (s *Song) SetGroove(i int, g *ft.Groove) error {
	if i < 0 || i >= ft.MaxGroove {
		return fmt.Errorf("groove index %d out of range", i)
	}
	s.grooves[i] = g
	return nil
}

// AddSample appends a DPCM sample and returns it.
func (s *Song) AddSample(name string, data []byte) *ft.Sample {
	smp := &ft.Sample{Name: name, Data: data}
	s.samples = append(s.samples, smp)
	return smp
}

func (s *Song) SetEngineSpeed(hz int)                 { s.engineSpeed = hz }
func (s *Song) SetVibratoStyle(style ft.VibratoStyle) { s.vibrato = style }
func (s *Song) SetLinearPitch(enable bool)            { s.linearPitch = enable }
func (s *Song) SetSpeedSplit(v int)                   { s.speedSplit = v }
func (s *Song) SetTuning(semitones, cents int)        { s.semitones, s.cents = semitones, cents }

// Samples returns the DPCM samples of the song.
func (s *Song) Samples() []*ft.Sample { return s.samples }

// ChannelIndex returns the column of a channel in the frame lists.
func (s *Song) ChannelIndex(id hwdefs.ChannelID) (int, error) {
	if id >= hwdefs.NumChannels || s.column[id] < 0 {
		return 0, fmt.Errorf("%v: %w", id, ErrBadChannel)
	}
	return s.column[id], nil
}

// Channel parses a channel name, which must be enabled in the song.
func (s *Song) Channel(name string) (hwdefs.ChannelID, error) {
	id, ok := hwdefs.ChannelByName(name)
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, ErrBadChannel)
	}
	if _, err := s.ChannelIndex(id); err != nil {
		return 0, err
	}
	return id, nil
}

// driver.Document

func (s *Song) Instrument(i int) *ft.Instrument {
	if i < 0 || i >= ft.MaxInstruments {
		return nil
	}
	return s.instruments[i]
}

func (s *Song) Groove(i int) *ft.Groove {
	if i < 0 || i >= ft.MaxGroove {
		return nil
	}
	return s.grooves[i]
}

func (s *Song) Machine() hwdefs.Machine        { return s.machine }
func (s *Song) ExpansionChips() hwdefs.Chip    { return s.chips }
func (s *Song) EngineSpeed() int               { return s.engineSpeed }
func (s *Song) VibratoStyle() ft.VibratoStyle  { return s.vibrato }
func (s *Song) LinearPitch() bool              { return s.linearPitch }
func (s *Song) SpeedSplit() int                { return s.speedSplit }
func (s *Song) Tuning() (semitones, cents int) { return s.semitones, s.cents }
func (s *Song) TrackCount() int                { return len(s.tracks) }
func (s *Song) Channels() []hwdefs.ChannelID   { return s.channels }

func (s *Song) FrameCount(track int) int {
	if t := s.track(track); t != nil {
		return len(t.Frames)
	}
	return 0
}

func (s *Song) PatternLength(track int) int {
	if t := s.track(track); t != nil {
		return t.Rows
	}
	return 0
}

func (s *Song) Timing(track int) (tempo, speed int, groove bool) {
	t := s.track(track)
	if t == nil {
		return s.defaultTempo(), ft.DefaultSpeed, false
	}
	return t.Tempo, t.Speed, t.Groove
}

func (s *Song) defaultTempo() int {
	if s.machine == hwdefs.PAL {
		return ft.DefaultTempoPAL
	}
	return ft.DefaultTempoNTSC
}

// NoteData returns a pattern cell. Anything out of range reads as an empty
// cell.
func (s *Song) NoteData(track, frame, row int, ch hwdefs.ChannelID) ft.NoteData {
	t := s.track(track)
	if t == nil || frame < 0 || frame >= len(t.Frames) || ch >= hwdefs.NumChannels {
		return ft.EmptyNote()
	}
	col := s.column[ch]
	if col < 0 || col >= len(t.Frames[frame]) {
		return ft.EmptyNote()
	}

	patterns := t.Patterns[ch]
	p := t.Frames[frame][col]
	if p < 0 || p >= len(patterns) || row < 0 || row >= len(patterns[p]) {
		return ft.EmptyNote()
	}
	return patterns[p][row]
}

// SetPattern stores a pattern of a channel.
func (t *Track) SetPattern(ch hwdefs.ChannelID, index int, rows []ft.NoteData) error {
	if ch >= hwdefs.NumChannels {
		return fmt.Errorf("%v: %w", ch, ErrBadChannel)
	}
	if index < 0 || index >= MaxPatterns {
		return fmt.Errorf("pattern index %d out of range", index)
	}
	if len(rows) > t.Rows {
		return fmt.Errorf("pattern %d of %v has %d rows, track has %d", index, ch, len(rows), t.Rows)
	}
	if n := index + 1; n > len(t.Patterns[ch]) {
		t.Patterns[ch] = append(t.Patterns[ch], make([][]ft.NoteData, n-len(t.Patterns[ch]))...)
	}
	t.Patterns[ch][index] = rows
	return nil
}
