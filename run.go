package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"famitone/emu"
	"famitone/emu/rpc"
	"famitone/hw/hwdefs"
	"famitone/song"
	"famitone/tracker/driver"
)

// renderMain renders every song to a WAV file in the output directory,
// several at a time.
func renderMain(args Render, cfg emu.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, args.Jobs))
	for _, path := range args.Songs {
		g.Go(func() error {
			return renderSong(ctx, path, args, cfg)
		})
	}
	checkf(g.Wait(), "render failed")
}

func renderSong(ctx context.Context, path string, args Render, cfg emu.Config) error {
	s, err := song.Load(path)
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".wav"
	out := filepath.Join(args.Out, name)
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	sink := emu.NewWavSink(f, cfg.Audio.SampleRate)
	st, err := emu.Render(ctx, s, cfg, sink, emu.RenderOptions{
		Track:   args.Track,
		MaxTime: time.Duration(args.Seconds) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := sink.Close(); err != nil {
		return fmt.Errorf("%s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Println(formatRender(out, st, cfg.Audio.SampleRate))
	return nil
}

// playMain plays a song on the audio device until it halts or the time
// limit is reached. With --listen, it also serves remote commands.
func playMain(args Play, cfg emu.Config) {
	s, err := song.Load(args.Song)
	checkf(err, "failed to load song")
	if args.Track < 0 || args.Track >= s.TrackCount() {
		fatalf("track %d out of range [0, %d)", args.Track, s.TrackCount())
	}
	if n := s.FrameCount(args.Track); args.Frame < 0 || args.Frame >= n {
		fatalf("frame %d out of range [0, %d)", args.Frame, n)
	}

	sink := emu.OpenSink(cfg.Audio)
	defer sink.Close()

	e := emu.NewEngine(s, cfg, sink)
	checkf(e.Play(args.Track, args.Frame, 0), "can't play track %d", args.Track)

	if args.Listen != "" {
		srv, err := rpc.NewServer(args.Listen, e)
		checkf(err, "failed to start rpc server")
		defer srv.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.Run(ctx) })
	g.Go(func() error {
		return watchPlayer(ctx, e, time.Duration(args.Seconds)*time.Second, args.Listen == "")
	})
	checkf(g.Wait(), "playback failed")
	fmt.Fprintln(os.Stderr)
}

// watchPlayer prints the player position. If quitOnHalt is set, it quits the
// engine once the song stops.
func watchPlayer(ctx context.Context, e *emu.Engine, limit time.Duration, quitOnHalt bool) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	start := time.Now()
	started := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		st := e.Status()
		fmt.Fprintf(os.Stderr, "\r%s", formatPosition(st.Player))
		if st.Player.Playing {
			started = true
			if limit > 0 && time.Since(start) >= limit {
				e.Stop()
			}
			continue
		}
		if started && quitOnHalt {
			e.Quit()
			return nil
		}
	}
}

// stateMain runs a song for some ticks, as fast as possible, and prints the
// resulting state.
func stateMain(args State, cfg emu.Config) {
	s, err := song.Load(args.Song)
	checkf(err, "failed to load song")

	e := emu.NewEngine(s, cfg, &emu.DiscardSink{})
	checkf(e.Driver().Play(args.Track, 0, 0), "can't play track %d", args.Track)
	e.RunTicks(args.Ticks)

	st := e.Status()
	if args.JSON {
		checkf(emu.WriteStatusJSON(os.Stdout, st), "failed to write state")
		return
	}
	fmt.Println(formatStatus(st))
}

// remoteMain sends a command to a player started with --listen.
func remoteMain(args Remote, command string) {
	c, err := rpc.Dial(args.Addr)
	checkf(err, "can't connect to %s", args.Addr)
	defer c.Close()

	switch command {
	case "play":
		err = c.Play(args.Play.Track, args.Play.Frame, args.Play.Row)
	case "stop":
		err = c.Stop()
	case "seek":
		err = c.Seek(args.Seek.Frame, args.Seek.Row)
	case "preview":
		ch, ok := hwdefs.ChannelByName(args.Preview.Channel)
		if !ok {
			fatalf("unknown channel %q", args.Preview.Channel)
		}
		err = c.Preview(ch, args.Preview.Note)
	case "status":
		var st emu.Status
		if st, err = c.Status(); err == nil {
			if args.Status.JSON {
				err = emu.WriteStatusJSON(os.Stdout, st)
			} else {
				fmt.Println(formatStatus(st))
			}
		}
	}
	checkf(err, "remote %s failed", command)
}

func tablesMain(args Tables) {
	fmt.Println(formatTables(driver.NewPeriodTables(args.Semitones, args.Cents)))
}
