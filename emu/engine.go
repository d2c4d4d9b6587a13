// Package emu runs the sound driver and the sound board, either in real time
// on an audio thread feeding a device, or offline into a file.
package emu

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"famitone/emu/log"
	"famitone/hw/hwdefs"
	"famitone/hw/snapshot"
	"famitone/hw/sound"
	"famitone/tracker/driver"
	"famitone/tracker/ft"
)

// Status is a copy of the engine state, published after every tick.
type Status struct {
	Player    *snapshot.Player
	Registers []snapshot.Register
	Ticks     uint64
	Timeouts  uint64
	Underruns uint64
}

type cmdKind uint8

const (
	cmdPlay cmdKind = iota
	cmdStop
	cmdSeek
	cmdPreview
	cmdQuit
)

type command struct {
	kind              cmdKind
	track, frame, row int
	channel           hwdefs.ChannelID
	note              ft.NoteData
}

// Engine owns a driver and its sound board. Run executes them on their own
// goroutine; the other methods may be called from any goroutine.
type Engine struct {
	doc   driver.Document
	cfg   Config
	board *sound.Board
	drv   *driver.Driver
	sink  Sink

	cmds   chan command
	blocks chan []int16

	mu     sync.Mutex
	status Status

	ticks    uint64
	timeouts uint64 // saturating, guarded by mu
}

// NewEngine prepares an engine playing doc into sink.
func NewEngine(doc driver.Document, cfg Config, sink Sink) *Engine {
	cfg.Check()
	board := sound.New(cfg.Audio.SampleRate)
	drv := driver.New(board, driver.Settings{
		CutVolume:    cfg.Engine.CutVolume,
		FDSOldVolume: cfg.Engine.FDSOldVolume,
	})
	doc = withOverrides(doc, cfg.Engine)
	drv.Load(doc)

	e := &Engine{
		doc:    doc,
		cfg:    cfg,
		board:  board,
		drv:    drv,
		sink:   sink,
		cmds:   make(chan command, 16),
		blocks: make(chan []int16, 4),
	}
	e.publish()
	return e
}

// Play starts a track at the given position.
func (e *Engine) Play(track, frame, row int) error {
	if track < 0 || track >= e.doc.TrackCount() {
		return fmt.Errorf("track %d out of range [0, %d)", track, e.doc.TrackCount())
	}
	e.send(command{kind: cmdPlay, track: track, frame: frame, row: row})
	return nil
}

func (e *Engine) Stop()               { e.send(command{kind: cmdStop}) }
func (e *Engine) Seek(frame, row int) { e.send(command{kind: cmdSeek, frame: frame, row: row}) }
func (e *Engine) Quit()               { e.send(command{kind: cmdQuit}) }

// PreviewNote plays a note on a channel, whether the player runs or not.
func (e *Engine) PreviewNote(ch hwdefs.ChannelID, nd ft.NoteData) {
	e.send(command{kind: cmdPreview, channel: ch, note: nd})
}

func (e *Engine) send(c command) {
	select {
	case e.cmds <- c:
	default:
		log.ModEmu.WarnZ("command queue full, command dropped").Int("kind", int(c.kind)).End()
	}
}

// Status returns the state published after the last tick.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.status
	st.Registers = append([]snapshot.Register(nil), st.Registers...)
	return st
}

var errQuit = errors.New("quit")

// Run runs the engine until ctx ends or Quit is called.
func (e *Engine) Run(ctx context.Context) error {
	log.AddContext(e.drv)
	defer log.RemoveContext(e.drv)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(e.blocks)
		return e.playerLoop(ctx)
	})
	g.Go(func() error {
		return e.sinkLoop(ctx)
	})

	err := g.Wait()
	log.ModEmu.InfoZ("Engine loop exited").Uint("ticks", e.ticks).End()
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (e *Engine) playerLoop(ctx context.Context) error {
	for {
		if err := e.handleCommands(); err != nil {
			return err
		}
		samples := e.tick()

		// Samples are only valid until the next tick.
		block := append([]int16(nil), samples...)
		select {
		case e.blocks <- block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleCommands drains the command queue without blocking.
func (e *Engine) handleCommands() error {
	for {
		select {
		case c := <-e.cmds:
			if c.kind == cmdQuit {
				return errQuit
			}
			e.apply(c)
		default:
			return nil
		}
	}
}

func (e *Engine) apply(c command) {
	switch c.kind {
	case cmdPlay:
		if err := e.drv.Play(c.track, c.frame, c.row); err != nil {
			log.ModEmu.WarnZ("can't play").Error("err", err).End()
		}
	case cmdStop:
		e.drv.Stop()
	case cmdSeek:
		e.drv.Seek(c.frame, c.row)
	case cmdPreview:
		e.drv.QueueNote(c.channel, c.note)
	}
}

// RunTicks runs n ticks synchronously, discarding the audio, and returns the
// number of samples produced. It must not be used while Run is running.
func (e *Engine) RunTicks(n int) int {
	samples := 0
	for range n {
		samples += len(e.tick())
	}
	return samples
}

// tick runs the driver for one tick and returns the produced samples.
func (e *Engine) tick() []int16 {
	e.drv.Tick()
	e.ticks++
	e.publish()
	return e.board.Samples()
}

func (e *Engine) publish() {
	st := Status{
		Player:    e.drv.Status(),
		Registers: e.board.Registers(),
		Ticks:     e.ticks,
		Underruns: e.sink.Underruns(),
	}
	e.mu.Lock()
	st.Timeouts = e.timeouts
	e.status = st
	e.mu.Unlock()
}

// sinkLoop writes blocks to the sink. A write taking longer than the device
// timeout is counted and retried.
func (e *Engine) sinkLoop(ctx context.Context) error {
	for block := range e.blocks {
		for {
			err := e.writeBlock(ctx, block)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("audio sink: %w", err)
			}
			e.countTimeout()
		}
	}
	return nil
}

func (e *Engine) writeBlock(ctx context.Context, block []int16) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Audio.DeviceTimeout)
	defer cancel()
	return e.sink.Write(ctx, block)
}

func (e *Engine) countTimeout() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timeouts < math.MaxUint64 {
		e.timeouts++
	}
	if e.timeouts == 1 {
		log.ModAudio.WarnZ("audio device timeout").Duration("timeout", e.cfg.Audio.DeviceTimeout).End()
	}
}

// Driver gives access to the driver. It must not be used while Run is
// running.
func (e *Engine) Driver() *driver.Driver { return e.drv }

// Board gives access to the sound board. It must not be used while Run is
// running.
func (e *Engine) Board() *sound.Board { return e.board }

// TickDuration returns the real time length of a tick.
func (e *Engine) TickDuration() time.Duration {
	return time.Second / time.Duration(e.drv.FrameRate())
}
