// Package mixer combines the output of all sound chips into a single mono
// stream, band-limited through a blip buffer.
//
// Chips report amplitude changes (deltas) per channel, at CPU-cycle
// timestamps relative to the start of the current audio frame. At the end of
// the frame, channel outputs are combined in timestamp order: the 2A03
// channels through the non-linear DAC approximation, expansion chips linearly
// with their own gain.
package mixer

import (
	"math"
	"slices"

	"github.com/arl/blip"

	"famitone/emu/log"
	"famitone/hw/hwdefs"
	"famitone/hw/snapshot"
)

const (
	MaxSampleRate = 96000

	// CycleLength is the maximum length of an audio frame, in CPU cycles.
	CycleLength = 40000

	maxSamplesPerFrame = MaxSampleRate / 16
)

// Full scale output, for a gain of 1.0 over a chip's range.
const fullScale = 40000.0

// Per-chip gain: output units per unit of channel amplitude.
var chipGain = map[hwdefs.Chip]float64{
	hwdefs.ChipVRC6: 3.98333 * fullScale / 500,
	hwdefs.ChipFDS:  1.00 * fullScale / 3500,
	hwdefs.ChipS5B:  1.00 * fullScale / 1600,
	hwdefs.ChipVRC7: 1.00,
}

// Headroom multipliers applied when an expansion chip is enabled.
var chipAttenuation = map[hwdefs.Chip]float64{
	hwdefs.ChipVRC6: 0.80,
	hwdefs.ChipVRC7: 0.64,
	hwdefs.ChipFDS:  0.90,
	hwdefs.ChipS5B:  0.50,
}

const (
	levelFallOffRate  = 0.6
	levelFallOffDelay = 3
)

type Mixer struct {
	buf    *blip.Buffer
	outbuf []int16

	prevOut int32

	timestamps []uint32
	chanoutput [hwdefs.NumChannels][CycleLength]int16
	curOutput  [hwdefs.NumChannels]int16

	chips   hwdefs.Chip
	gain    [hwdefs.NumChannels]float64
	volume  float64
	levels  [hwdefs.NumChannels]float64
	falloff [hwdefs.NumChannels]int

	clockRate  int
	sampleRate int
}

func New(sampleRate int) *Mixer {
	m := &Mixer{
		buf:        blip.NewBuffer(maxSamplesPerFrame),
		outbuf:     make([]int16, maxSamplesPerFrame),
		sampleRate: min(sampleRate, MaxSampleRate),
		clockRate:  hwdefs.CPUClockNTSC,
		volume:     1.0,
	}
	m.Reset()
	return m
}

func (m *Mixer) Reset() {
	m.prevOut = 0
	m.buf.Clear()
	m.timestamps = m.timestamps[:0]
	for i := range m.chanoutput {
		clear(m.chanoutput[i][:])
	}
	clear(m.curOutput[:])
	clear(m.levels[:])
	clear(m.falloff[:])
	m.updateRates()
}

// SetClockRate sets the rate of the cycle timestamps, that is the CPU clock.
func (m *Mixer) SetClockRate(rate int) {
	m.clockRate = rate
	m.updateRates()
}

// SetVolume sets the master volume, 1.0 being the nominal level.
func (m *Mixer) SetVolume(vol float64) {
	m.volume = vol
	m.updateGains()
}

// ExternalSound sets the enabled expansion chips.
func (m *Mixer) ExternalSound(chips hwdefs.Chip) {
	m.chips = chips
	m.updateGains()
}

func (m *Mixer) SampleRate() int { return m.sampleRate }

func (m *Mixer) updateRates() {
	m.buf.SetRates(float64(m.clockRate), float64(m.sampleRate))
	m.updateGains()
}

func (m *Mixer) updateGains() {
	atten := m.volume
	for chip, a := range chipAttenuation {
		if m.chips&chip != 0 {
			atten *= a
		}
	}
	for id := range hwdefs.NumChannels {
		chip := id.Chip()
		if chip == hwdefs.Chip2A03 {
			m.gain[id] = atten
		} else {
			m.gain[id] = atten * chipGain[chip]
		}
	}

	log.ModMixer.DebugZ("gains updated").
		Stringer("chips", m.chips).
		Float("attenuation", atten).
		End()
}

// AddDelta records an amplitude change on a channel, at the given cycle
// within the current frame.
func (m *Mixer) AddDelta(ch hwdefs.ChannelID, time uint32, delta int16) {
	if delta == 0 {
		return
	}
	if time >= CycleLength {
		log.ModMixer.WarnZ("delta past end of frame").
			Stringer("chan", ch).
			Uint("time", uint64(time)).
			End()
		time = CycleLength - 1
	}
	m.timestamps = append(m.timestamps, time)
	m.chanoutput[ch][time] += delta
}

// 2A03 non-linear DAC approximation, on a 0-5000 scale.
func (m *Mixer) apuOutput() float64 {
	out := func(ch hwdefs.ChannelID) float64 { return float64(m.curOutput[ch]) }

	var sq, tnd float64
	if s := out(hwdefs.Square1) + out(hwdefs.Square2); s > 0 {
		sq = (95.88 * 5000.0) / (8128.0/s + 100.0)
	}
	t := out(hwdefs.DPCM) + 2.7516713261*out(hwdefs.Triangle) + 1.8493587125*out(hwdefs.Noise)
	if t > 0 {
		tnd = (159.79 * 5000.0) / (22638.0/t + 100.0)
	}
	return (sq + tnd) * 4 * m.gain[hwdefs.Square1]
}

func (m *Mixer) outputVolume() int32 {
	total := m.apuOutput()
	for id := hwdefs.VRC6Pulse1; id < hwdefs.NumChannels; id++ {
		if m.chips&id.Chip() != 0 {
			total += float64(m.curOutput[id]) * m.gain[id]
		}
	}
	return int32(math.Round(total))
}

// FinishBuffer ends the current audio frame, which lasted the given number of
// cycles. Samples become available for ReadSamples.
func (m *Mixer) FinishBuffer(time uint32) {
	slices.Sort(m.timestamps)
	m.timestamps = slices.Compact(m.timestamps)

	for _, stamp := range m.timestamps {
		for ch := range m.chanoutput {
			m.curOutput[ch] += m.chanoutput[ch][stamp]
		}
		out := m.outputVolume()
		m.buf.AddDelta(uint64(stamp), out-m.prevOut)
		m.prevOut = out
		m.storeLevels()
	}
	m.buf.EndFrame(int(time))

	m.timestamps = m.timestamps[:0]
	for i := range m.chanoutput {
		clear(m.chanoutput[i][:])
	}
	m.decayLevels()
}

// ReadSamples moves up to len(out) mono samples into out and returns how many
// were read.
func (m *Mixer) ReadSamples(out []int16) int {
	return m.buf.ReadSamples(out, len(out), blip.Mono)
}

// Samples returns all available samples. The returned slice is only valid
// until the next call.
func (m *Mixer) Samples() []int16 {
	n := m.buf.ReadSamples(m.outbuf, len(m.outbuf), blip.Mono)
	return m.outbuf[:n]
}

func (m *Mixer) SamplesAvailable() int {
	return m.buf.SamplesAvailable()
}

// ChannelOutput returns the current raw output of a channel.
func (m *Mixer) ChannelOutput(ch hwdefs.ChannelID) int16 {
	return m.curOutput[ch]
}

// Level returns the meter level of a channel, for VU display.
func (m *Mixer) Level(ch hwdefs.ChannelID) int {
	return int(m.levels[ch])
}

func (m *Mixer) storeLevels() {
	for id := range hwdefs.NumChannels {
		m.storeLevel(id, int(m.curOutput[id]))
	}
}

func (m *Mixer) storeLevel(ch hwdefs.ChannelID, val int) {
	abs := float64(val)
	if abs < 0 {
		abs = -abs
	}

	switch {
	case ch == hwdefs.VRC6Sawtooth:
		abs = float64(int(abs) * 3 / 4)
	case ch == hwdefs.DPCM:
		abs = float64(int(abs) / 8)
	case ch == hwdefs.FDSWave:
		abs = float64(int(abs) / 38)
	case ch >= hwdefs.VRC7Ch1 && ch <= hwdefs.VRC7Ch6 && abs > 0:
		abs = float64(int(math.Log(abs) * 3.0))
	case ch >= hwdefs.S5BCh1 && ch <= hwdefs.S5BCh3 && abs > 0:
		abs = float64(int(math.Log(abs) * 2.8))
	}

	if abs >= m.levels[ch] {
		m.levels[ch] = abs
		m.falloff[ch] = levelFallOffDelay
	}
}

func (m *Mixer) decayLevels() {
	for i := range m.levels {
		if m.falloff[i] > 0 {
			m.falloff[i]--
		} else if m.levels[i] > 0 {
			m.levels[i] = max(0, m.levels[i]-levelFallOffRate)
		}
	}
}

func (m *Mixer) State() *snapshot.Mixer {
	var state snapshot.Mixer
	state.ClockRate = m.clockRate
	state.SampleRate = m.sampleRate
	state.Chips = uint8(m.chips)
	state.PreviousOutput = m.prevOut
	for i := range hwdefs.NumChannels {
		state.CurrentOutput[i] = m.curOutput[i]
		state.Levels[i] = int(m.levels[i])
	}
	return &state
}
