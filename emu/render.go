package emu

import (
	"context"
	"fmt"
	"time"

	"famitone/emu/log"
	"famitone/tracker/driver"
)

type RenderOptions struct {
	Track int
	// MaxTicks and MaxTime stop songs that don't halt by themselves. 0
	// means no limit; the shortest limit wins.
	MaxTicks int
	MaxTime  time.Duration
}

type RenderStats struct {
	Ticks   int  // total ticks, delays included
	Samples int  // samples written to the sink
	Halted  bool // the song stopped by itself
}

// Render plays a track offline as fast as possible into sink, preceded and
// followed by the silent ticks of the engine config. Rendering ends when the
// song halts or after MaxTicks ticks.
func Render(ctx context.Context, doc driver.Document, cfg Config, sink Sink, opts RenderOptions) (RenderStats, error) {
	e := NewEngine(doc, cfg, sink)
	var st RenderStats

	maxTicks := opts.MaxTicks
	if opts.MaxTime > 0 {
		if n := int(opts.MaxTime / e.TickDuration()); maxTicks == 0 || n < maxTicks {
			maxTicks = n
		}
	}

	write := func() error {
		samples := e.tick()
		st.Ticks++
		st.Samples += len(samples)
		return sink.Write(ctx, samples)
	}
	delay := func(n int) error {
		for range n {
			if err := write(); err != nil {
				return err
			}
		}
		return ctx.Err()
	}

	if err := delay(e.cfg.Engine.StartDelayTicks); err != nil {
		return st, err
	}

	if err := e.drv.Play(opts.Track, 0, 0); err != nil {
		return st, fmt.Errorf("render: %w", err)
	}
	for played := 0; e.drv.IsPlaying(); played++ {
		if maxTicks > 0 && played >= maxTicks {
			e.drv.Stop()
		}
		if err := write(); err != nil {
			return st, err
		}
		if played%64 == 0 {
			if err := ctx.Err(); err != nil {
				return st, err
			}
		}
		st.Halted = maxTicks == 0 || played < maxTicks
	}

	if err := delay(e.cfg.Engine.StopDelayTicks); err != nil {
		return st, err
	}

	log.ModEmu.InfoZ("render done").
		Int("track", opts.Track).
		Int("ticks", st.Ticks).
		Int("samples", st.Samples).
		Bool("halted", st.Halted).
		End()
	return st, nil
}
