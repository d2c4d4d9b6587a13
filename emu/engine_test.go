package emu

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/go-faster/jx"

	"famitone/hw/hwdefs"
	"famitone/song"
	"famitone/tracker/ft"
)

// testSong returns a 2A03 song playing one note per row on 4-row frames. The
// last row of the last frame halts the song if halt is set.
func testSong(t *testing.T, frames int, halt bool) *song.Song {
	t.Helper()
	s := song.New(hwdefs.NTSC, 0)
	if err := s.SetInstrument(0, &ft.Instrument{Type: ft.Inst2A03}); err != nil {
		t.Fatal(err)
	}

	tr := &song.Track{Tempo: 150, Speed: 6, Rows: 4}
	for i := range frames {
		tr.Frames = append(tr.Frames, []int{i, 0, 0, 0, 0})
		rows := make([]ft.NoteData, 4)
		for r := range rows {
			nd, err := ft.ParseNoteData("C-4 00 F", hwdefs.Chip2A03)
			if err != nil {
				t.Fatal(err)
			}
			nd.Octave = 2 + r
			rows[r] = nd
		}
		if halt && i == frames-1 {
			rows[3].EffNumber[0] = ft.EffHalt
		}
		if err := tr.SetPattern(hwdefs.Square1, i, rows); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.AddTrack(tr); err != nil {
		t.Fatal(err)
	}
	return s
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Engine.StartDelayTicks = 2
	cfg.Engine.StopDelayTicks = 5
	return cfg
}

func TestRenderUntilHalt(t *testing.T) {
	sink := &DiscardSink{}
	st, err := Render(context.Background(), testSong(t, 2, true), testConfig(), sink, RenderOptions{MaxTicks: 1000})
	if err != nil {
		t.Fatal(err)
	}

	// 8 rows of 6 ticks; the halt happens on the tick the 9th row is due.
	const want = 2 + 49 + 5
	if st.Ticks != want || !st.Halted {
		t.Errorf("rendered %d ticks, halted %t, want %d ticks, halted", st.Ticks, st.Halted, want)
	}
	if uint64(st.Samples) != sink.Written() {
		t.Errorf("stats say %d samples, sink got %d", st.Samples, sink.Written())
	}
	// 800 samples per tick at 48kHz.
	if lo, hi := want*799, want*801; st.Samples < lo || st.Samples > hi {
		t.Errorf("%d samples, want %d to %d", st.Samples, lo, hi)
	}
}

func TestRenderMaxTicks(t *testing.T) {
	st, err := Render(context.Background(), testSong(t, 1, false), testConfig(), &DiscardSink{}, RenderOptions{MaxTicks: 10})
	if err != nil {
		t.Fatal(err)
	}
	// The stop request takes one more tick.
	const want = 2 + 11 + 5
	if st.Ticks != want || st.Halted {
		t.Errorf("rendered %d ticks, halted %t, want %d ticks, not halted", st.Ticks, st.Halted, want)
	}
}

func TestRenderMaxTime(t *testing.T) {
	opts := RenderOptions{MaxTicks: 50, MaxTime: 100 * time.Millisecond}
	st, err := Render(context.Background(), testSong(t, 1, false), testConfig(), &DiscardSink{}, opts)
	if err != nil {
		t.Fatal(err)
	}
	// 6 ticks of 1/60s.
	const want = 2 + 7 + 5
	if st.Ticks != want || st.Halted {
		t.Errorf("rendered %d ticks, halted %t, want %d ticks, not halted", st.Ticks, st.Halted, want)
	}
}

func TestRenderBadTrack(t *testing.T) {
	_, err := Render(context.Background(), testSong(t, 1, true), testConfig(), &DiscardSink{}, RenderOptions{Track: 3})
	if err == nil {
		t.Error("no error for a missing track")
	}
}

func TestRenderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Render(ctx, testSong(t, 1, false), testConfig(), &DiscardSink{}, RenderOptions{})
	if err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRenderWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	sink := NewWavSink(f, 44100)

	cfg := testConfig()
	cfg.Audio.SampleRate = 44100
	st, err := Render(context.Background(), testSong(t, 1, true), cfg, sink, RenderOptions{MaxTicks: 100})
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	dec := wav.NewDecoder(bytes.NewReader(buf))
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if dec.SampleRate != 44100 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Errorf("format = %dHz %d channels %d bits", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	if len(pcm.Data) != st.Samples || sink.Samples() != st.Samples {
		t.Errorf("file has %d samples, sink wrote %d, want %d", len(pcm.Data), sink.Samples(), st.Samples)
	}

	loud := false
	for _, v := range pcm.Data {
		if v > 1000 || v < -1000 {
			loud = true
			break
		}
	}
	if !loud {
		t.Error("rendered file is silent")
	}
}

func runEngine(t *testing.T, e *Engine) (wait func() error) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	return func() error {
		e.Quit()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("engine did not quit")
			return nil
		}
	}
}

// waitStatus polls the engine status until cond is true.
func waitStatus(t *testing.T, e *Engine, cond func(Status) bool) Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if st := e.Status(); cond(st) {
			return st
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("status never reached, last: %+v", e.Status())
	return Status{}
}

func TestEnginePlaysUntilHalt(t *testing.T) {
	e := NewEngine(testSong(t, 2, true), testConfig(), &DiscardSink{})
	if err := e.Play(0, 0, 0); err != nil {
		t.Fatal(err)
	}
	wait := runEngine(t, e)

	st := waitStatus(t, e, func(st Status) bool {
		return !st.Player.Playing && st.Player.TotalTicks > 0
	})
	if st.Player.TotalTicks != 49 {
		t.Errorf("played %d ticks, want 49", st.Player.TotalTicks)
	}
	if len(st.Registers) == 0 {
		t.Error("no register written")
	}
	if err := wait(); err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestEngineCommands(t *testing.T) {
	e := NewEngine(testSong(t, 4, false), testConfig(), &DiscardSink{})
	if err := e.Play(5, 0, 0); err == nil {
		t.Error("Play(5) succeeded on a single track song")
	}

	wait := runEngine(t, e)

	e.PreviewNote(hwdefs.Triangle, func() ft.NoteData {
		nd, _ := ft.ParseNoteData("A-3 00", hwdefs.Chip2A03)
		return nd
	}())
	waitStatus(t, e, func(st Status) bool {
		return st.Player.Channels[hwdefs.Triangle].Key == 45
	})

	if err := e.Play(0, 2, 0); err != nil {
		t.Fatal(err)
	}
	waitStatus(t, e, func(st Status) bool {
		return st.Player.Playing && st.Player.Frame >= 2
	})

	e.Seek(0, 1)
	e.Stop()
	st := waitStatus(t, e, func(st Status) bool { return !st.Player.Playing })
	if st.Player.Channels[hwdefs.Square1].Key != -1 {
		t.Errorf("square key after stop = %d, want -1", st.Player.Channels[hwdefs.Square1].Key)
	}

	if err := wait(); err != nil {
		t.Errorf("Run: %v", err)
	}
}

// slowSink times out on its first writes.
type slowSink struct {
	DiscardSink
	stalls atomic.Int32
}

func (s *slowSink) Write(ctx context.Context, samples []int16) error {
	if s.stalls.Add(-1) >= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.DiscardSink.Write(ctx, samples)
}

func TestEngineDeviceTimeout(t *testing.T) {
	sink := &slowSink{}
	sink.stalls.Store(3)
	cfg := testConfig()
	cfg.Audio.DeviceTimeout = time.Millisecond

	e := NewEngine(testSong(t, 1, false), cfg, sink)
	wait := runEngine(t, e)

	st := waitStatus(t, e, func(st Status) bool { return st.Ticks > 20 })
	if st.Timeouts != 3 {
		t.Errorf("%d timeouts, want 3", st.Timeouts)
	}
	if err := wait(); err != nil {
		t.Errorf("Run: %v", err)
	}
	if sink.Written() == 0 {
		t.Error("no sample reached the sink after the timeouts")
	}
}

func TestOverrides(t *testing.T) {
	s := testSong(t, 1, true)

	if doc := withOverrides(s, EngineConfig{}); doc != any(s) {
		t.Error("document wrapped without overrides")
	}

	doc := withOverrides(s, EngineConfig{Machine: "pal", VibratoStyle: "old", LinearPitch: true})
	if doc.Machine() != hwdefs.PAL || doc.VibratoStyle() != ft.VibratoOld || !doc.LinearPitch() {
		t.Errorf("overrides not applied: %v %v %t", doc.Machine(), doc.VibratoStyle(), doc.LinearPitch())
	}
	if doc.TrackCount() != 1 {
		t.Errorf("TrackCount = %d, want 1", doc.TrackCount())
	}

	e := NewEngine(s, Config{Engine: EngineConfig{Machine: "pal"}}, &DiscardSink{})
	if got := e.TickDuration(); got != 20*time.Millisecond {
		t.Errorf("PAL tick = %v, want 20ms", got)
	}
}

func TestWriteStatusJSON(t *testing.T) {
	e := NewEngine(testSong(t, 1, true), testConfig(), &DiscardSink{})
	if err := e.Driver().Play(0, 0, 0); err != nil {
		t.Fatal(err)
	}
	if n := e.RunTicks(1); n == 0 {
		t.Error("no sample produced")
	}

	var buf bytes.Buffer
	if err := WriteStatusJSON(&buf, e.Status()); err != nil {
		t.Fatal(err)
	}

	var (
		ticks    int
		playing  bool
		channels int
		regs     int
	)
	err := jx.DecodeBytes(buf.Bytes()).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "ticks":
			v, err := d.Int()
			ticks = v
			return err
		case "player":
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "playing":
					v, err := d.Bool()
					playing = v
					return err
				case "channels":
					return d.Arr(func(d *jx.Decoder) error {
						channels++
						return d.Skip()
					})
				}
				return d.Skip()
			})
		case "registers":
			return d.Obj(func(d *jx.Decoder, key string) error {
				regs++
				return d.Skip()
			})
		}
		return d.Skip()
	})
	if err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if ticks != 1 || !playing || channels != hwdefs.NumAPUChannels || regs == 0 {
		t.Errorf("ticks %d playing %t channels %d registers %d", ticks, playing, channels, regs)
	}
}
