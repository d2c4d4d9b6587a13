package song

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"famitone/hw/hwdefs"
	"famitone/hw/sound"
	"famitone/tracker/driver"
	"famitone/tracker/ft"
)

var _ driver.Document = (*Song)(nil)

func loadDemo(t *testing.T, ext string) *Song {
	t.Helper()
	s, err := Load(filepath.Join("testdata", "demo"+ext))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFormatsAgree(t *testing.T) {
	fromTOML := loadDemo(t, ".toml")
	fromJSON := loadDemo(t, ".json")
	if diff := cmp.Diff(fromTOML, fromJSON, cmp.AllowUnexported(Song{})); diff != "" {
		t.Errorf("TOML and JSON songs differ (-toml +json):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	s := loadDemo(t, ".toml")

	if s.Title != "Demo" || s.Author != "famitone" {
		t.Errorf("title/author = %q/%q", s.Title, s.Author)
	}
	if s.Machine() != hwdefs.NTSC || s.ExpansionChips() != hwdefs.ChipVRC6 {
		t.Errorf("machine %v chips %v, want NTSC vrc6", s.Machine(), s.ExpansionChips())
	}
	if n := len(s.Channels()); n != 8 {
		t.Errorf("%d channels, want 8", n)
	}
	if s.TrackCount() != 2 || s.FrameCount(0) != 2 || s.PatternLength(0) != 4 || s.PatternLength(1) != defaultRows {
		t.Errorf("tracks %d, frames %d, rows %d/%d", s.TrackCount(), s.FrameCount(0), s.PatternLength(0), s.PatternLength(1))
	}

	lead := s.Instrument(0)
	if lead == nil || lead.Name != "Lead" || lead.Type != ft.Inst2A03 {
		t.Fatalf("instrument 0 = %+v", lead)
	}
	wantVol := ft.NewSequence([]int8{15, 12, 10, 8, 4, 0}, 2, 4, ft.SettingVol16)
	if diff := cmp.Diff(wantVol, lead.Seq(ft.SeqVolume)); diff != "" {
		t.Errorf("volume sequence mismatch (-want +got):\n%s", diff)
	}
	if lead.Seq(ft.SeqPitch) != nil {
		t.Error("pitch sequence enabled")
	}

	m, ok := lead.DPCMSample(ft.MidiNote(3, ft.NoteC))
	if !ok {
		t.Fatal("no sample on C-3")
	}
	if m.Pitch != 15 || m.Delta != 64 || m.Sample.Name != "kick" || len(m.Sample.Data) != 6 {
		t.Errorf("C-3 sample = %+v", m)
	}

	saw := s.Instrument(1)
	if saw.Seq(ft.SeqVolume).Setting != ft.SettingVol64 || saw.Seq(ft.SeqArpeggio).Setting != ft.SettingArpFixed {
		t.Errorf("saw settings = %d %d", saw.Seq(ft.SeqVolume).Setting, saw.Seq(ft.SeqArpeggio).Setting)
	}

	if g := s.Groove(1); g == nil || g.Len() != 2 {
		t.Errorf("groove 1 = %v", g)
	}

	tempo, speed, groove := s.Timing(1)
	if tempo != 0 || speed != 1 || !groove {
		t.Errorf("Timing(1) = %d %d %t, want 0 1 true", tempo, speed, groove)
	}
}

func TestNoteData(t *testing.T) {
	s := loadDemo(t, ".toml")

	tests := []struct {
		track, frame, row int
		ch                hwdefs.ChannelID
		want              string
	}{
		{0, 0, 0, hwdefs.Square1, "C-4 00 F"},
		{0, 0, 1, hwdefs.Square1, "... .. . 437"},
		{0, 0, 2, hwdefs.Square1, "==="},
		{0, 1, 3, hwdefs.Square1, "... .. . C00"},
		{0, 0, 0, hwdefs.VRC6Sawtooth, "A-2 01 F"},
		{0, 1, 0, hwdefs.VRC6Sawtooth, "A-2 01 F"},

		// Rows past the end of a pattern, missing patterns and anything
		// out of range are empty.
		{0, 0, 1, hwdefs.VRC6Sawtooth, ""},
		{0, 0, 0, hwdefs.Square2, ""},
		{0, 0, 0, hwdefs.FDSWave, ""},
		{0, 2, 0, hwdefs.Square1, ""},
		{0, 0, 9, hwdefs.Square1, ""},
		{3, 0, 0, hwdefs.Square1, ""},
		{1, 0, 0, hwdefs.Square1, ""},
	}
	for _, tt := range tests {
		want, err := ft.ParseNoteData(tt.want, tt.ch.Chip())
		if err != nil {
			t.Fatal(err)
		}
		got := s.NoteData(tt.track, tt.frame, tt.row, tt.ch)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("NoteData(%d, %d, %d, %v) mismatch (-want +got):\n%s", tt.track, tt.frame, tt.row, tt.ch, diff)
		}
	}
}

func TestTrack(t *testing.T) {
	s := loadDemo(t, ".json")
	if tr, err := s.Track(0); err != nil || tr.Name != "Main" {
		t.Errorf("Track(0) = %v, %v", tr, err)
	}
	for _, i := range []int{-1, 2} {
		if _, err := s.Track(i); !errors.Is(err, ErrNoTrack) {
			t.Errorf("Track(%d) error = %v, want ErrNoTrack", i, err)
		}
	}
}

func TestChannel(t *testing.T) {
	s := New(hwdefs.NTSC, hwdefs.ChipFDS)

	if id, err := s.Channel("fds"); err != nil || id != hwdefs.FDSWave {
		t.Errorf(`Channel("fds") = %v, %v`, id, err)
	}
	for _, name := range []string{"Sawtooth", "Pulse 9", ""} {
		if _, err := s.Channel(name); !errors.Is(err, ErrBadChannel) {
			t.Errorf("Channel(%q) error = %v, want ErrBadChannel", name, err)
		}
	}
}

const minimalTrack = `
[[track]]
frames = [[0]]
`

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		is   error  // if set, the error must wrap it
		msg  string // otherwise, a part of the error message
	}{
		{"no track", `title = "x"`, ErrNoTrack, ""},
		{"machine", `machine = "secam"` + minimalTrack, nil, "unknown machine"},
		{"chip", `chips = ["n163"]` + minimalTrack, nil, "unsupported chip"},
		{"vibrato", `vibrato = "wobbly"` + minimalTrack, nil, "vibrato style"},
		{"instrument type", "[[instrument]]\ntype = \"n163\"\n" + minimalTrack, nil, "unsupported instrument type"},
		{"instrument index", "[[instrument]]\nindex = 64\ntype = \"2a03\"\n" + minimalTrack, nil, "out of range"},
		{"sequence", "[[instrument]]\ntype = \"2a03\"\nseq = { volume = \"1 x\" }\n" + minimalTrack, nil, "bad value"},
		{"dpcm sample", "[[instrument]]\ntype = \"2a03\"\ndpcm = [{ note = \"C-3\", sample = 2 }]\n" + minimalTrack, nil, "no sample"},
		{"groove", "[[groove]]\nindex = 40\nentries = [6]\n" + minimalTrack, nil, "out of range"},
		{"no frames", "[[track]]\nrows = 4\n", nil, "0 frames"},
		{"rows", "[[track]]\nrows = 300\nframes = [[0]]\n", nil, "pattern length"},
		{"frame width", "[[track]]\nframes = [[0, 0, 0, 0, 0, 0]]\n", nil, "6 patterns for 5 channels"},
		{"tempo", "[[track]]\ntempo = 300\nframes = [[0]]\n", nil, "tempo"},
		{"disabled channel", minimalTrack + "[[track.pattern]]\nchannel = \"FDS\"\n", ErrBadChannel, ""},
		{"unknown channel", minimalTrack + "[[track.pattern]]\nchannel = \"Pulse 3\"\n", ErrBadChannel, ""},
		{"note", minimalTrack + "[[track.pattern]]\nchannel = \"Noise\"\nrows = [\"H-4\"]\n", nil, "row 0"},
		{"long pattern", "[[track]]\nrows = 1\nframes = [[0]]\n[[track.pattern]]\nchannel = \"DPCM\"\nrows = [\"\", \"\"]\n", nil, "has 2 rows"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTOML([]byte(tt.toml))
			switch {
			case err == nil:
				t.Fatal("no error")
			case tt.is != nil && !errors.Is(err, tt.is):
				t.Errorf("error = %v, want %v", err, tt.is)
			case tt.is == nil && !strings.Contains(err.Error(), tt.msg):
				t.Errorf("error = %v, want %q", err, tt.msg)
			}
		})
	}
}

func TestDecodeJSONErrors(t *testing.T) {
	tests := []string{
		`{"track": [{"frames": [[0]], "pattern": [{"channel": "VRC6 Pulse 1"}]}]}`,
		`{"track": [{"frames": [[0]]}]`,
		`{"tuning": {"cents": "ten"}, "track": [{"frames": [[0]]}]}`,
	}
	for _, js := range tests {
		if _, err := DecodeJSON([]byte(js)); err == nil {
			t.Errorf("DecodeJSON(%s) succeeded", js)
		}
	}
}

func TestLoadUnsupported(t *testing.T) {
	if _, err := Load(filepath.Join("testdata", "missing.toml")); err == nil {
		t.Error("missing file loaded")
	}
	if _, err := Load(filepath.Join("testdata", "demo.yaml")); err == nil {
		t.Error("yaml file loaded")
	}
}

func TestParseSequence(t *testing.T) {
	tests := []struct {
		typ  ft.SeqType
		text string
		want *ft.Sequence
	}{
		{ft.SeqVolume, "15 12 | 10 8 / 4 0", ft.NewSequence([]int8{15, 12, 10, 8, 4, 0}, 2, 4, 0)},
		{ft.SeqVolume, "64: 63 0", ft.NewSequence([]int8{63, 0}, -1, -1, ft.SettingVol64)},
		{ft.SeqArpeggio, "Fixed: 0 | 12", ft.NewSequence([]int8{0, 12}, 1, -1, ft.SettingArpFixed)},
		{ft.SeqPitch, "absolute: -3 3 /", ft.NewSequence([]int8{-3, 3}, -1, 1, ft.SettingPitchAbsolute)},
		{ft.SeqDuty, "", ft.NewSequence(nil, -1, -1, 0)},
	}
	for _, tt := range tests {
		got, err := ParseSequence(tt.typ, tt.text)
		if err != nil {
			t.Errorf("ParseSequence(%v, %q): %v", tt.typ, tt.text, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseSequence(%v, %q) mismatch (-want +got):\n%s", tt.typ, tt.text, diff)
		}
	}

	for _, bad := range []string{"1 2 300", "fixed: 1", "1 two"} {
		if _, err := ParseSequence(ft.SeqVolume, bad); err == nil {
			t.Errorf("ParseSequence(volume, %q) succeeded", bad)
		}
	}
}

func TestFormatSequence(t *testing.T) {
	const text = "15 12 | 10 8 / 4 0"
	seq, err := ParseSequence(ft.SeqVolume, text)
	if err != nil {
		t.Fatal(err)
	}
	if got := FormatSequence(seq); got != text {
		t.Errorf("FormatSequence = %q, want %q", got, text)
	}
}

func TestPlayUntilHalt(t *testing.T) {
	s := loadDemo(t, ".toml")
	d := driver.New(sound.New(48000), driver.Settings{})
	d.Load(s)
	if err := d.Play(0, 0, 0); err != nil {
		t.Fatal(err)
	}

	// 6 ticks per row at tempo 150 speed 6. The C00 on the 8th row (tick
	// 43) stops the player when the next row is due.
	ticks := 0
	for d.IsPlaying() && ticks < 200 {
		d.Tick()
		ticks++
	}
	if ticks != 49 {
		t.Errorf("player stopped after %d ticks, want 49", ticks)
	}
}
