package chans

import (
	"fmt"
	"strings"

	"famitone/emu/log"
	"famitone/hw/hwdefs"
	"famitone/tracker/ft"
	"famitone/tracker/inst"
)

const (
	volColumnShift  = 3
	volColumnMax    = 0x7F
	pitchWheelRange = 6

	echoNone = 0xFF
	echoHalt = 0x7F
	echoEcho = 0x80
)

// chip is implemented by every channel type. Base provides defaults for all
// methods, channel types override some of them.
type chip interface {
	Handler

	handleNoteData(nd *ft.NoteData)
	handleEffect(eff ft.Effect, param uint8) bool
	handleEmptyNote()
	handleCut()
	handleRelease()
	handleNote(note ft.Note, octave int)
	runNote(octave int, note ft.Note) int
	setupSlide()
	createInstHandler(t ft.InstType) bool
	updateNoteRelease()

	calculatePeriod(harmonic bool) int
	calculateVolume() int
	limitPeriod(p int) int
	limitRawPeriod(p int) int
	convertDuty(d int) int

	clearRegisters()
	slideString() string
	customString() string
}

// Base holds the state and behaviour common to all channels.
type Base struct {
	self chip
	env  *Env
	id   hwdefs.ChannelID

	maxPeriod int
	maxVolume int

	noteTable   []int
	vibTable    []int
	linearPitch bool
	vibStyle    ft.VibratoStyle

	instHandler inst.Handler
	instrument  int
	instType    ft.InstType
	forceReload bool

	note   int
	period int
	key    int

	gate    bool
	release bool
	trigger bool

	volume        int // volume column, scaled to 0-0x7F
	defaultVolume int
	instVolume    int

	dutyPeriod  int
	defaultDuty int

	effect      ft.Effect
	effectParam uint8
	portaSpeed  int
	portaTo     int
	arpState    int

	vibDepth, vibSpeed, vibPhase    int
	tremDepth, tremSpeed, tremPhase int

	finePitch int
	pitch     int
	harmonic  int

	volSlide       int
	volSlideTarget int

	noteCut     int
	noteRelease int
	noteVolume  int
	newVolume   int

	transpose       int
	transposeTarget int
	transposeDown   bool

	delayEnabled bool
	delayCounter int
	delayed      ft.NoteData

	echo [ft.EchoBufferLength + 1]int
}

func (b *Base) init(self chip, env *Env, id hwdefs.ChannelID, maxPeriod, maxVolume int) {
	b.self = self
	b.env = env
	b.id = id
	b.maxPeriod = maxPeriod
	b.maxVolume = maxVolume
	b.vibStyle = ft.VibratoNew
	b.instrument = ft.MaxInstruments
	b.harmonic = 1
	b.finePitch = 0x80
	b.volSlideTarget = -1
	b.noteVolume = -1
	b.key = -1
}

func (b *Base) ID() hwdefs.ChannelID { return b.id }

func (b *Base) write(addr uint16, val uint8) {
	b.env.Regs.Write(addr, val)
}

func (b *Base) SetNoteTable(table []int)    { b.noteTable = table }
func (b *Base) SetVibratoTable(table []int) { b.vibTable = table }
func (b *Base) SetLinearPitch(enable bool)  { b.linearPitch = enable }

func (b *Base) SetVibratoStyle(style ft.VibratoStyle) { b.vibStyle = style }

func (b *Base) ForceReloadInstrument() { b.forceReload = true }

func (b *Base) SetPitch(pitch int) {
	b.pitch = min(pitch, 511)
}

// pitchOffset interpolates the pitch wheel between the notes 6 semitones
// around the current one.
func (b *Base) pitchOffset() int {
	if b.pitch == 0 || b.note == 0 || len(b.noteTable) < ft.NoteCount {
		return 0
	}
	note := clamp(b.note, 0, ft.NoteCount-1)
	lo := max(note-pitchWheelRange, 0)
	hi := min(note+pitchWheelRange, ft.NoteCount-1)
	freq := b.noteTable[note]
	var span int
	if b.pitch < 0 {
		span = freq - b.noteTable[lo]
	} else {
		span = b.noteTable[hi] - freq
	}
	return span * b.pitch / 511
}

func (b *Base) Arpeggiate(note int) {
	b.SetPeriod(b.self.TriggerNote(note))
}

func (b *Base) restingVibratoPhase() int {
	if b.vibStyle == ft.VibratoOld {
		return 48
	}
	return 0
}

func (b *Base) ResetChannel() {
	b.instrument = ft.MaxInstruments
	b.instType = ft.InstNone
	b.instHandler = nil

	b.volume = volColumnMax
	b.defaultVolume = volColumnMax >> volColumnShift << volColumnShift
	b.defaultDuty = 0
	b.dutyPeriod = 0
	b.instVolume = 0

	b.note = 0
	b.period = 0

	b.effect = ft.EffNone
	b.effectParam = 0
	b.portaSpeed = 0
	b.portaTo = 0
	b.arpState = 0
	b.vibSpeed = 0
	b.vibPhase = b.restingVibratoPhase()
	b.tremSpeed = 0
	b.tremPhase = 0
	b.finePitch = 0x80
	b.volSlide = 0
	b.volSlideTarget = -1
	b.delayEnabled = false
	b.noteCut = 0
	b.noteRelease = 0
	b.noteVolume = -1
	b.newVolume = b.defaultVolume
	b.transpose = 0
	b.transposeDown = false
	b.transposeTarget = 0
	b.harmonic = 1
	b.vibDepth = 0
	b.tremDepth = 0

	for i := range b.echo {
		b.echo[i] = echoNone
	}

	b.trigger = false
	b.release = false
	b.gate = false
	b.key = -1

	b.self.clearRegisters()
}

func (b *Base) FinishTick() {
	b.trigger = false
}

func (b *Base) PlayNote(nd ft.NoteData) {
	if b.handleDelay(&nd) {
		return
	}
	b.self.handleNoteData(&nd)
}

// handleDelay plays a previously delayed row, then delays nd if it has a
// Gxx effect.
func (b *Base) handleDelay(nd *ft.NoteData) bool {
	if b.delayEnabled {
		b.delayEnabled = false
		delayed := b.delayed
		b.self.handleNoteData(&delayed)
	}

	for i, eff := range nd.EffNumber {
		if eff != ft.EffDelay || nd.EffParam[i] == 0 {
			continue
		}
		b.delayEnabled = true
		b.delayCounter = int(nd.EffParam[i])

		// Only one delay per row.
		for j := range nd.EffNumber {
			if nd.EffNumber[j] == ft.EffDelay {
				nd.EffNumber[j] = ft.EffNone
				nd.EffParam[j] = 0
			}
		}
		b.delayed = *nd
		log.ModChan.DebugZ("delay").Stringer("chan", b.id).Int("ticks", b.delayCounter).End()
		return true
	}
	return false
}

func (b *Base) writeEchoBuffer(nd *ft.NoteData, pos int) {
	var v int
	switch nd.Note {
	case ft.NoneNote:
		v = echoNone
	case ft.HaltNote:
		v = echoHalt
	case ft.EchoNote:
		v = echoEcho + nd.Octave
	default:
		v = ft.MidiNote(nd.Octave, nd.Note)
	scan:
		for i := len(nd.EffNumber) - 1; i >= 0; i-- {
			param := int(nd.EffParam[i] & 0x0F)
			switch nd.EffNumber[i] {
			case ft.EffSlideUp:
				v += param
				break scan
			case ft.EffSlideDown:
				v -= param
				break scan
			case ft.EffTranspose:
				if nd.EffParam[i]&0x80 != 0 {
					v -= param
				} else {
					v += param
				}
				break scan
			}
		}
		v = clamp(v, 0, ft.NoteCount-1)
	}
	b.echo[pos] = v
}

func (b *Base) handleNoteData(nd *ft.NoteData) {
	lastInst := b.instrument
	instrument := int(nd.Instrument)
	trigger := nd.Note != ft.NoneNote && nd.Note != ft.HaltNote && nd.Note != ft.ReleaseNote &&
		nd.Instrument != ft.HoldInstrument
	pushNone := false
	targetSlide := false

	if nd.Note == ft.EchoNote && nd.Octave <= ft.EchoBufferLength {
		switch v := b.echo[nd.Octave]; v {
		case echoNone:
			nd.Note = ft.NoneNote
			pushNone = true
		case echoHalt:
			nd.Note = ft.HaltNote
		default:
			nd.Note = ft.NoteOf(v)
			nd.Octave = ft.OctaveOf(v)
		}
	}
	if (nd.Note != ft.ReleaseNote && nd.Note != ft.NoneNote) || pushNone {
		copy(b.echo[1:], b.echo[:len(b.echo)-1])
		b.writeEchoBuffer(nd, 0)
	}

	if nd.Note != ft.NoneNote {
		b.noteCut = 0
		b.noteRelease = 0
		if trigger && b.noteVolume == 0 && b.volSlide == 0 {
			b.volume = b.defaultVolume
			b.noteVolume = -1
		}
		b.transpose = 0
	}

	if trigger && (b.effect == ft.EffSlideUp || b.effect == ft.EffSlideDown) {
		b.effect = ft.EffNone
	}

	for i, eff := range nd.EffNumber {
		param := nd.EffParam[i]
		b.self.handleEffect(eff, param)

		switch {
		case eff == ft.EffVolumeSlide && param == 0 && trigger && b.noteVolume == 0:
			b.volume = b.defaultVolume
			b.noteVolume = -1
		case eff == ft.EffTargetVolumeSlide:
			targetSlide = true
		}
	}

	if nd.Vol < ft.MaxVolume {
		b.volume = int(nd.Vol) << volColumnShift
		b.defaultVolume = b.volume
		// A new volume cancels a target volume slide.
		if !targetSlide && b.volSlideTarget >= 0 {
			b.volSlide = 0
			b.volSlideTarget = -1
		}
	}

	if nd.Note == ft.HaltNote || nd.Note == ft.ReleaseNote {
		instrument = ft.MaxInstruments
	}
	if instrument != ft.MaxInstruments && instrument != ft.HoldInstrument {
		b.instrument = instrument
	}
	newInst := (b.instrument != lastInst && b.instrument != ft.HoldInstrument) ||
		b.instrument == ft.MaxInstruments || b.forceReload

	if nd.Note.IsPitched() {
		b.note = b.self.runNote(nd.Octave, nd.Note)
	}

	switch {
	case nd.Note == ft.NoneNote:
		b.self.handleEmptyNote()
	case nd.Note == ft.HaltNote:
		b.release = false
		b.self.handleCut()
	case nd.Note == ft.ReleaseNote:
		b.self.handleRelease()
	case nd.Note.IsPitched():
		b.self.handleNote(nd.Note, nd.Octave)
	}

	if trigger && (b.effect == ft.EffSlideDown || b.effect == ft.EffSlideUp) {
		b.self.setupSlide()
	}

	if (newInst || trigger) && b.instrument != ft.MaxInstruments {
		b.handleInstrument(trigger, newInst)
	}
	b.forceReload = false
}

// handleInstrument loads the current instrument, switching the instrument
// handler when the instrument type changes.
func (b *Base) handleInstrument(trigger, newInst bool) bool {
	if b.env.Insts == nil {
		return false
	}
	in := b.env.Insts.Instrument(b.instrument)
	if in == nil {
		return false
	}

	if newInst && b.self.createInstHandler(in.Type) {
		log.ModChan.DebugZ("new instrument handler").
			Stringer("chan", b.id).
			Stringer("type", in.Type).
			End()
	}
	b.instType = in.Type

	if b.instHandler == nil {
		return false
	}
	if newInst {
		b.instHandler.Load(in)
	}
	if trigger || b.forceReload {
		b.instHandler.Trigger()
	}
	return true
}

func (b *Base) createInstHandler(t ft.InstType) bool { return false }

// playsSequences reports whether instruments of type t run on a sequence
// handler on channels outside their own chip.
func playsSequences(t ft.InstType) bool {
	return t.IsSequence() || t == ft.InstFDS
}

// switchSeqHandler installs a new sequence handler for t, unless the
// current instrument already runs on one.
func (b *Base) switchSeqHandler(t ft.InstType, create func(duty int) inst.Handler) bool {
	if !playsSequences(t) || playsSequences(b.instType) {
		return false
	}
	duty := 0
	if t == ft.InstS5B {
		duty = ft.S5BModeSquare
	}
	b.instHandler = create(duty)
	return true
}

func (b *Base) TriggerNote(note int) int {
	note = clamp(note, 0, ft.NoteCount-1)
	b.key = note
	if b.linearPitch {
		return note << ft.LinearPitchShift
	}
	if b.noteTable == nil {
		return note
	}
	return b.noteTable[note]
}

func (b *Base) Key() int { return b.key }

func (b *Base) cutNote() {
	b.key = -1
	b.gate = false
	b.period = 0
	b.portaTo = 0
}

func (b *Base) releaseNote() {
	b.key = -1
	if b.instHandler != nil {
		b.instHandler.Release()
	}
	b.release = true
}

func (b *Base) runNote(octave int, note ft.Note) int {
	midi := ft.MidiNote(octave, note)
	freq := b.self.TriggerNote(midi)

	if b.portaSpeed > 0 && b.effect == ft.EffPortamento && b.gate {
		if b.period == 0 {
			b.period = freq
		}
		b.portaTo = freq
	} else {
		b.period = freq
	}
	b.gate = true
	return midi
}

func (b *Base) handleNote(note ft.Note, octave int) {
	b.dutyPeriod = b.defaultDuty
	b.trigger = true
	b.release = false
}

func (b *Base) handleEmptyNote() {}

func (b *Base) handleCut() {
	b.cutNote()
}

func (b *Base) handleRelease() {
	if !b.release {
		b.releaseNote()
	}
}

func slideSpeed(param uint8) int {
	return int(param&0xF0)>>3 + 1
}

func (b *Base) setupSlide() {
	switch b.effect {
	case ft.EffPortamento:
		b.portaSpeed = int(b.effectParam)
		if b.gate {
			b.portaTo = b.self.TriggerNote(b.note)
		}
	case ft.EffSlideUp:
		b.note += int(b.effectParam & 0x0F)
		b.portaSpeed = slideSpeed(b.effectParam)
		b.portaTo = b.self.TriggerNote(b.note)
	case ft.EffSlideDown:
		b.note -= int(b.effectParam & 0x0F)
		b.portaSpeed = slideSpeed(b.effectParam)
		b.portaTo = b.self.TriggerNote(b.note)
	}
}

// handleEffect applies the effects common to all channels.
func (b *Base) handleEffect(eff ft.Effect, param uint8) bool {
	switch eff {
	case ft.EffPortamento:
		b.effectParam = param
		b.effect = ft.EffPortamento
		b.self.setupSlide()
		if param == 0 {
			b.portaTo = 0
		}
	case ft.EffVibrato:
		b.vibDepth = int(param&0x0F) << 4
		b.vibSpeed = int(param >> 4)
		if param == 0 {
			b.vibPhase = b.restingVibratoPhase()
		}
	case ft.EffTremolo:
		b.tremDepth = int(param&0x0F) << 4
		b.tremSpeed = int(param >> 4)
		if param == 0 {
			b.tremPhase = 0
		}
	case ft.EffArpeggio:
		b.effectParam = param
		b.effect = ft.EffArpeggio
	case ft.EffPitch:
		b.finePitch = int(param)
	case ft.EffPortaDown, ft.EffPortaUp:
		b.portaSpeed = int(param)
		b.effectParam = param
		b.effect = eff
	case ft.EffSlideUp, ft.EffSlideDown:
		b.effectParam = param
		b.effect = eff
		b.self.setupSlide()
	case ft.EffVolumeSlide:
		b.volSlide = int(param)
		b.volSlideTarget = -1
		if param == 0 {
			b.defaultVolume = b.volume
		}
	case ft.EffNoteCut:
		if param >= 0x80 {
			return false
		}
		b.noteCut = int(param) + 1
	case ft.EffNoteRelease:
		if param >= 0x80 {
			return false
		}
		b.noteRelease = int(param) + 1
	case ft.EffDelayedVolume:
		if param>>4 == 0 || param&0x0F == 0 {
			break
		}
		b.noteVolume = int(param>>4) + 1
		b.newVolume = int(param&0x0F) << volColumnShift
	case ft.EffTranspose:
		b.transpose = int(param&0x70)>>4 + 1
		b.transposeTarget = int(param & 0x0F)
		b.transposeDown = param&0x80 != 0
	case ft.EffHarmonic:
		b.harmonic = int(param)
	case ft.EffTargetVolumeSlide:
		if param != 0 {
			b.volSlide = int(param&0xF0) >> 4
			b.volSlideTarget = int(param&0x0F) << volColumnShift
		} else {
			b.volSlide = 0
			b.volSlideTarget = -1
			b.defaultVolume = b.volume
		}
	default:
		return false
	}
	return true
}

func (b *Base) ProcessChannel() {
	b.updateDelay()
	b.updateNoteCut()
	b.self.updateNoteRelease()
	b.updateNoteVolume()
	b.updateTranspose()
	if b.volSlideTarget < 0 {
		b.updateVolumeSlide()
	} else {
		b.updateTargetVolumeSlide()
	}
	b.updateVibratoTremolo()
	b.updateEffects()

	// Instruments run after effects and before the registers are written.
	if b.instHandler != nil {
		b.instHandler.Update()
	}
}

func (b *Base) updateDelay() {
	if !b.delayEnabled {
		return
	}
	if b.delayCounter == 0 {
		b.delayEnabled = false
		b.PlayNote(b.delayed)
	} else {
		b.delayCounter--
	}
}

func (b *Base) updateNoteCut() {
	if b.noteCut > 0 {
		b.noteCut--
		if b.noteCut == 0 {
			b.self.handleCut()
		}
	}
}

func (b *Base) updateNoteRelease() {
	if b.noteRelease > 0 {
		b.noteRelease--
		if b.noteRelease == 0 {
			b.self.handleRelease()
			b.releaseNote()
		}
	}
}

func (b *Base) updateNoteVolume() {
	if b.noteVolume > 0 {
		b.noteVolume--
		if b.noteVolume == 0 {
			b.volume = b.newVolume
			if b.volSlideTarget >= 0 {
				b.volSlideTarget = -1
				b.volSlide = 0
			}
		}
	}
}

func (b *Base) updateTranspose() {
	if b.transpose > 0 {
		b.transpose--
		if b.transpose == 0 {
			if b.transposeDown {
				b.SetNote(b.note - b.transposeTarget)
			} else {
				b.SetNote(b.note + b.transposeTarget)
			}
			b.SetPeriod(b.self.TriggerNote(b.note))
		}
	}
}

func (b *Base) updateVolumeSlide() {
	b.volume = max(b.volume-b.volSlide&0x0F, 0)
	b.volume = min(b.volume+b.volSlide>>4, volColumnMax)
}

func (b *Base) updateTargetVolumeSlide() {
	step := b.volSlide & 0x0F
	if b.volume > b.volSlideTarget {
		b.volume -= step
		if b.volume <= b.volSlideTarget {
			b.volume = b.volSlideTarget
			b.volSlide = 0
			b.volSlideTarget = -1
		}
	} else {
		b.volume += step
		if b.volume >= b.volSlideTarget {
			b.volume = b.volSlideTarget
			b.volSlide = 0
			b.volSlideTarget = -1
		}
	}
}

func (b *Base) updateVibratoTremolo() {
	b.vibPhase = (b.vibPhase + b.vibSpeed) & 63
	b.tremPhase = (b.tremPhase + b.tremSpeed) & 63
}

func (b *Base) periodAdd(step int)    { b.SetPeriod(b.period + step) }
func (b *Base) periodRemove(step int) { b.SetPeriod(b.period - step) }

// endSlide stops a note slide once the target is reached. Portamento stays
// active for the next notes.
func (b *Base) endSlide() {
	b.SetPeriod(b.portaTo)
	if b.effect != ft.EffPortamento {
		b.portaTo = 0
		b.portaSpeed = 0
		b.effect = ft.EffNone
	}
}

func (b *Base) updateEffects() {
	switch b.effect {
	case ft.EffArpeggio:
		if b.effectParam == 0 {
			break
		}
		switch b.arpState {
		case 0:
			b.SetPeriod(b.self.TriggerNote(b.note))
		case 1:
			b.SetPeriod(b.self.TriggerNote(b.note + int(b.effectParam>>4)))
			if b.effectParam&0x0F == 0 {
				b.arpState++
			}
		case 2:
			b.SetPeriod(b.self.TriggerNote(b.note + int(b.effectParam&0x0F)))
		}
		b.arpState = (b.arpState + 1) % 3

	case ft.EffPortamento, ft.EffSlideUp, ft.EffSlideDown:
		if b.portaSpeed <= 0 || b.portaTo == 0 {
			break
		}
		switch {
		case b.period > b.portaTo:
			b.periodRemove(b.portaSpeed)
			if b.period <= b.portaTo {
				b.endSlide()
			}
		case b.period < b.portaTo:
			b.periodAdd(b.portaSpeed)
			if b.period >= b.portaTo {
				b.endSlide()
			}
		}

	case ft.EffPortaDown:
		if b.linearPitch {
			b.periodRemove(b.portaSpeed)
		} else {
			b.periodAdd(b.portaSpeed)
		}
	case ft.EffPortaUp:
		if b.linearPitch {
			b.periodAdd(b.portaSpeed)
		} else {
			b.periodRemove(b.portaSpeed)
		}
	}
}

func (b *Base) vibrato() int {
	if b.vibTable == nil {
		return 0
	}
	var v int
	phase := b.vibPhase
	switch phase & 0xF0 {
	case 0x00:
		v = b.vibTable[b.vibDepth+phase]
	case 0x10:
		v = b.vibTable[b.vibDepth+15-(phase-16)]
	case 0x20:
		v = -b.vibTable[b.vibDepth+(phase-32)]
	case 0x30:
		v = -b.vibTable[b.vibDepth+15-(phase-48)]
	}
	if b.vibStyle == ft.VibratoOld {
		v = (v + b.vibTable[b.vibDepth+15] + 1) >> 1
	}
	return v
}

func (b *Base) tremolo() int {
	if b.vibTable == nil {
		return 0
	}
	var v int
	phase := b.tremPhase >> 1
	switch phase & 0xF0 {
	case 0x00:
		v = b.vibTable[b.tremDepth+phase]
	case 0x10:
		v = b.vibTable[b.tremDepth+15-(phase-16)]
	}
	return v >> 1
}

func (b *Base) fineOffset() int {
	return 0x80 - b.finePitch
}

func (b *Base) calculatePeriod(harmonic bool) int {
	detune := b.vibrato() - b.fineOffset() - b.pitchOffset()

	var p int
	if b.linearPitch && b.noteTable != nil {
		p = b.self.limitPeriod(b.period + detune)
		note, sub := p>>ft.LinearPitchShift, p%(1<<ft.LinearPitchShift)
		offset := 0
		if note < ft.NoteCount-1 {
			offset = b.noteTable[note] - b.noteTable[note+1]
		}
		offset = offset * sub >> ft.LinearPitchShift
		if sub != 0 && offset == 0 {
			offset = 1
		}
		p = b.noteTable[note] - offset
	} else {
		p = b.period - detune
	}

	if harmonic {
		if b.harmonic > 0 {
			p /= b.harmonic
		} else {
			p = b.maxPeriod
		}
	}
	return b.self.limitRawPeriod(p)
}

func (b *Base) calculateVolume() int {
	return b.limitVolume(b.instVolume*(b.volume>>volColumnShift)/15 - b.tremolo())
}

func (b *Base) limitPeriod(p int) int {
	if !b.linearPitch {
		return b.self.limitRawPeriod(p)
	}
	return clamp(p, 0, (ft.NoteCount-1)<<ft.LinearPitchShift)
}

func (b *Base) limitRawPeriod(p int) int {
	return clamp(p, 0, b.maxPeriod)
}

// limitVolume clamps v to the channel range. A playing note with non-zero
// instrument and column volumes is never fully silent, unless CutVolume is
// set.
func (b *Base) limitVolume(v int) int {
	if !b.gate {
		return 0
	}
	v = clamp(v, 0, b.maxVolume)
	if v == 0 && !b.env.CutVolume && b.instVolume > 0 && b.volume > 0 {
		return 1
	}
	return v
}

func (b *Base) convertDuty(d int) int { return d }

func (b *Base) SetVolume(v int) { b.instVolume = v }
func (b *Base) Volume() int     { return b.instVolume }
func (b *Base) SetPeriod(p int) { b.period = b.self.limitPeriod(p) }
func (b *Base) Period() int     { return b.period }
func (b *Base) SetNote(n int)   { b.note = n }
func (b *Base) Note() int       { return b.note }

func (b *Base) SetDutyPeriod(d int) { b.dutyPeriod = b.self.convertDuty(d) }
func (b *Base) DutyPeriod() int     { return b.dutyPeriod }

func (b *Base) ArpParam() uint8 {
	if b.effect == ft.EffArpeggio {
		return b.effectParam
	}
	return 0
}

func (b *Base) IsActive() bool    { return b.gate }
func (b *Base) IsReleasing() bool { return b.release }

func (b *Base) ChannelVolume() int { return b.volume }

func (b *Base) StateString() string {
	var sb strings.Builder
	sb.WriteString("Inst.: ")
	if b.instrument == ft.MaxInstruments {
		sb.WriteString("None")
	} else {
		fmt.Fprintf(&sb, "%02X", b.instrument)
	}
	fmt.Fprintf(&sb, "        Vol.: %X        Active effects:", b.defaultVolume>>volColumnShift)
	sb.WriteString(b.effectString())
	return sb.String()
}

func (b *Base) effectString() string {
	var sb strings.Builder
	sb.WriteString(b.self.slideString())

	if b.vibSpeed != 0 {
		fmt.Fprintf(&sb, " 4%X%X", b.vibSpeed, b.vibDepth>>4)
	}
	if b.tremSpeed != 0 {
		fmt.Fprintf(&sb, " 7%X%X", b.tremSpeed, b.tremDepth>>4)
	}
	if b.volSlide != 0 {
		fmt.Fprintf(&sb, " A%02X", b.volSlide)
	}
	if b.finePitch != 0x80 {
		fmt.Fprintf(&sb, " P%02X", b.finePitch)
	}
	if b.id.Chip() == hwdefs.ChipS5B {
		if b.defaultDuty != ft.S5BModeSquare {
			fmt.Fprintf(&sb, " V%02X", b.defaultDuty)
		}
	} else if b.defaultDuty != 0 {
		fmt.Fprintf(&sb, " V%02X", b.defaultDuty)
	}

	if b.delayEnabled && b.delayCounter >= 0 {
		fmt.Fprintf(&sb, " G%02X", b.delayCounter+1)
	}
	if b.noteRelease != 0 {
		fmt.Fprintf(&sb, " L%02X", b.noteRelease)
	}
	if b.noteVolume > 0 {
		fmt.Fprintf(&sb, " M%X%X", b.noteVolume, b.newVolume>>volColumnShift)
	}
	if b.noteCut != 0 {
		fmt.Fprintf(&sb, " S%02X", b.noteCut)
	}
	if b.transpose != 0 {
		t := b.transpose
		if b.transposeDown {
			t += 8
		}
		fmt.Fprintf(&sb, " T%X%X", t, b.transposeTarget)
	}
	if b.harmonic != 1 {
		fmt.Fprintf(&sb, " K%02X", b.harmonic)
	}

	sb.WriteString(b.self.customString())
	if sb.Len() == 0 {
		return " None"
	}
	return sb.String()
}

func (b *Base) slideString() string {
	switch b.effect {
	case ft.EffArpeggio:
		if b.effectParam != 0 {
			return fmt.Sprintf(" %c%02X", b.effect.Char(), b.effectParam)
		}
	case ft.EffPortaUp, ft.EffPortaDown, ft.EffPortamento:
		if b.portaSpeed != 0 {
			return fmt.Sprintf(" %c%02X", b.effect.Char(), b.portaSpeed)
		}
	}
	return ""
}

func (b *Base) customString() string { return "" }

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
