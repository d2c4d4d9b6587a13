package emu

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"famitone/emu/log"
)

// ErrDeviceUnavailable is returned when the audio device can't be opened.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// A Sink consumes mono 16-bit audio.
type Sink interface {
	// Write queues samples. It returns ctx.Err() if ctx ends before the
	// samples could be queued.
	Write(ctx context.Context, samples []int16) error
	// Underruns returns how many times the output ran out of samples.
	Underruns() uint64
	Close() error
}

// DiscardSink drops everything.
type DiscardSink struct{ written atomic.Uint64 }

func (s *DiscardSink) Write(_ context.Context, samples []int16) error {
	s.written.Add(uint64(len(samples)))
	return nil
}

func (s *DiscardSink) Underruns() uint64 { return 0 }
func (s *DiscardSink) Close() error      { return nil }

// Written returns the number of samples dropped so far.
func (s *DiscardSink) Written() uint64 { return s.written.Load() }

// ClockSink drops samples at the pace an audio device would play them.
type ClockSink struct {
	rate  int
	start time.Time
	n     uint64
}

func NewClockSink(sampleRate int) *ClockSink {
	return &ClockSink{rate: sampleRate}
}

func (s *ClockSink) Write(ctx context.Context, samples []int16) error {
	if s.start.IsZero() {
		s.start = time.Now()
	}
	n := s.n + uint64(len(samples))
	due := s.start.Add(time.Duration(n) * time.Second / time.Duration(s.rate))

	t := time.NewTimer(time.Until(due))
	defer t.Stop()
	select {
	case <-t.C:
		s.n = n
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ClockSink) Underruns() uint64 { return 0 }
func (s *ClockSink) Close() error      { return nil }

// WavSink writes a 16-bit mono WAV file.
type WavSink struct {
	enc *wav.Encoder
	buf *audio.IntBuffer
	n   int
}

// NewWavSink starts a WAV file on w. Close must be called to finish the file
// headers; it doesn't close w.
func NewWavSink(w io.WriteSeeker, sampleRate int) *WavSink {
	return &WavSink{
		enc: wav.NewEncoder(w, sampleRate, 16, 1, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}
}

func (s *WavSink) Write(_ context.Context, samples []int16) error {
	s.buf.Data = s.buf.Data[:0]
	for _, v := range samples {
		s.buf.Data = append(s.buf.Data, int(v))
	}
	s.n += len(samples)
	return s.enc.Write(s.buf)
}

func (s *WavSink) Underruns() uint64 { return 0 }
func (s *WavSink) Close() error      { return s.enc.Close() }

// Samples returns the number of samples written so far.
func (s *WavSink) Samples() int { return s.n }

// otoContext is process wide: oto only allows one context.
var otoContext = struct {
	sync.Mutex
	ctx  *oto.Context
	rate int
}{}

func openOtoContext(sampleRate int) (*oto.Context, error) {
	otoContext.Lock()
	defer otoContext.Unlock()

	if otoContext.ctx != nil {
		if otoContext.rate != sampleRate {
			return nil, fmt.Errorf("audio context already open at %dHz", otoContext.rate)
		}
		return otoContext.ctx, nil
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready
	otoContext.ctx = ctx
	otoContext.rate = sampleRate
	return ctx, nil
}

// OtoSink plays audio on the default output device. Written samples are
// queued in a bounded buffer the device pulls from.
type OtoSink struct {
	player *oto.Player
	queue  chan []byte

	cur       []byte // chunk being read by the device
	started   atomic.Bool
	underruns atomic.Uint64
}

// NewOtoSink opens the audio device. Errors wrap ErrDeviceUnavailable.
func NewOtoSink(cfg AudioConfig) (*OtoSink, error) {
	ctx, err := openOtoContext(cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	// Sink writes are one tick long (at least 1/60th of a second at the
	// default engine speed).
	chunks := max(2, cfg.BufferMs*60/1000)
	s := &OtoSink{queue: make(chan []byte, chunks)}
	s.player = ctx.NewPlayer(s)
	return s, nil
}

func (s *OtoSink) Write(ctx context.Context, samples []int16) error {
	chunk := make([]byte, 2*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint16(chunk[2*i:], uint16(v))
	}

	select {
	case s.queue <- chunk:
	case <-ctx.Done():
		return ctx.Err()
	}
	if s.started.CompareAndSwap(false, true) {
		s.player.Play()
	}
	return nil
}

// Read is called by the device.
func (s *OtoSink) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.cur) == 0 {
			select {
			case s.cur = <-s.queue:
				continue
			default:
			}
			// Nothing queued: pad with silence.
			clear(p[n:])
			if s.started.Load() {
				s.underruns.Add(1)
				log.ModAudio.DebugZ("underrun").Int("missing", len(p)-n).End()
			}
			return len(p), nil
		}
		c := copy(p[n:], s.cur)
		s.cur = s.cur[c:]
		n += c
	}
	return n, nil
}

func (s *OtoSink) Underruns() uint64 { return s.underruns.Load() }

func (s *OtoSink) Close() error {
	return s.player.Close()
}

// OpenSink opens the audio device, falling back to a silent ClockSink if
// audio is disabled or the device can't be opened.
func OpenSink(cfg AudioConfig) Sink {
	if cfg.DisableAudio {
		log.ModAudio.InfoZ("Audio disabled").End()
		return NewClockSink(cfg.SampleRate)
	}
	s, err := NewOtoSink(cfg)
	if err != nil {
		log.ModAudio.WarnZ("Audio output disabled").Error("err", err).End()
		return NewClockSink(cfg.SampleRate)
	}
	log.ModAudio.InfoZ("Audio enabled").Int("rate", cfg.SampleRate).End()
	return s
}
