package inst

import (
	"famitone/emu/log"
	"famitone/tracker/ft"
)

// SeqStatus is the playback status of one sequence.
type SeqStatus uint8

const (
	SeqDisabled SeqStatus = iota
	SeqRunning
	SeqEnd
	SeqHalt
)

var seqStatusNames = [...]string{"disabled", "running", "end", "halt"}

func (s SeqStatus) String() string {
	if int(s) < len(seqStatusNames) {
		return seqStatusNames[s]
	}
	return "unknown"
}

type seqPlayer struct {
	seq    *ft.Sequence
	status SeqStatus
	ptr    int
}

func (p *seqPlayer) setup(seq *ft.Sequence) {
	p.seq = seq
	p.status = SeqRunning
	p.ptr = 0
}

func (p *seqPlayer) clear() {
	p.seq = nil
	p.status = SeqDisabled
	p.ptr = 0
}

// SeqHandler plays the volume, arpeggio, pitch, hi-pitch and duty sequences
// of an instrument.
type SeqHandler struct {
	ch   Channel
	inst *ft.Instrument

	defaultVolume int
	defaultDuty   int

	seqs [ft.SeqCount]seqPlayer

	// process applies a sequence value to the channel. Handlers embedding
	// SeqHandler replace it to change how some sequences are interpreted.
	process func(t ft.SeqType, setting uint8, v int) bool
}

// NewSeqHandler returns a handler for sequence instruments. vol is the
// channel volume set at note-on, duty is the default duty.
func NewSeqHandler(ch Channel, vol, duty int) *SeqHandler {
	h := &SeqHandler{}
	h.init(ch, vol, duty)
	return h
}

func (h *SeqHandler) init(ch Channel, vol, duty int) {
	h.ch = ch
	h.defaultVolume = vol
	h.defaultDuty = duty
	h.process = h.processSequence
	for i := range h.seqs {
		h.seqs[i].clear()
	}
}

// Instrument returns the loaded instrument.
func (h *SeqHandler) Instrument() *ft.Instrument { return h.inst }

// Status returns the status and position of a sequence.
func (h *SeqHandler) Status(t ft.SeqType) (SeqStatus, int) {
	p := &h.seqs[t]
	return p.status, p.ptr
}

func (h *SeqHandler) Load(inst *ft.Instrument) {
	h.inst = inst
	if inst == nil {
		return
	}
	log.ModInst.DebugZ("load").String("name", inst.Name).Stringer("type", inst.Type).End()

	for i := range h.seqs {
		p := &h.seqs[i]
		seq := inst.Seqs[i]
		switch {
		case seq == nil:
			p.clear()
		case seq != p.seq || p.status == SeqDisabled:
			p.setup(seq)
		}
	}
}

func (h *SeqHandler) Trigger() {
	for i := range h.seqs {
		p := &h.seqs[i]
		if p.seq != nil {
			p.status = SeqRunning
			p.ptr = 0
		}
	}
	if h.ch.IsActive() {
		h.ch.SetVolume(h.defaultVolume)
	}
}

func (h *SeqHandler) Release() {
	if h.ch.IsReleasing() {
		return
	}
	for i := range h.seqs {
		p := &h.seqs[i]
		if p.seq == nil || (p.status != SeqRunning && p.status != SeqEnd) {
			continue
		}
		if p.seq.Release != ft.NoPoint {
			p.ptr = p.seq.Release
			p.status = SeqRunning
		}
	}
}

func (h *SeqHandler) Update() {
	if !h.ch.IsActive() {
		return
	}
	for i := range h.seqs {
		p := &h.seqs[i]
		if p.seq == nil || p.seq.Len() == 0 {
			continue
		}
		switch p.status {
		case SeqRunning:
			h.process(ft.SeqType(i), p.seq.Setting, p.seq.Item(p.ptr))
			p.ptr++
			h.advance(p)
		case SeqEnd:
			if ft.SeqType(i) == ft.SeqArpeggio && p.seq.Setting == ft.SettingArpFixed {
				h.ch.SetPeriod(h.ch.TriggerNote(h.ch.Note()))
			}
			p.status = SeqHalt
		}
	}
}

// advance handles the loop and release points once the pointer moved.
func (h *SeqHandler) advance(p *seqPlayer) {
	rel, loop, n := p.seq.Release, p.seq.Loop, p.seq.Len()
	if p.ptr != rel+1 && p.ptr < n {
		return
	}

	releasing := h.ch.IsReleasing()
	switch {
	case loop != ft.NoPoint && !(releasing && rel != ft.NoPoint) && loop < rel:
		p.ptr = loop
	case p.ptr >= n:
		if loop >= rel && loop != ft.NoPoint {
			p.ptr = loop
		} else {
			p.status = SeqEnd
		}
	case !releasing:
		// Hold on the release point.
		p.ptr--
	}
}

func (h *SeqHandler) processSequence(t ft.SeqType, setting uint8, v int) bool {
	ch := h.ch
	switch t {
	case ft.SeqVolume:
		ch.SetVolume(v)
		return true

	case ft.SeqArpeggio:
		switch setting {
		case ft.SettingArpAbsolute:
			ch.SetPeriod(ch.TriggerNote(ch.Note() + v))
		case ft.SettingArpFixed:
			ch.SetPeriod(ch.TriggerNote(v))
		case ft.SettingArpRelative:
			ch.SetNote(ch.Note() + v)
			ch.SetPeriod(ch.TriggerNote(ch.Note()))
		case ft.SettingArpScheme:
			ch.SetPeriod(ch.TriggerNote(ch.Note() + arpScheme(v, ch.ArpParam())))
		default:
			return false
		}
		return true

	case ft.SeqPitch:
		switch setting {
		case ft.SettingPitchRelative:
			ch.SetPeriod(ch.Period() + v)
		case ft.SettingPitchAbsolute:
			ch.SetPeriod(ch.TriggerNote(ch.Note()) + v)
		default:
			return false
		}
		return true

	case ft.SeqHiPitch:
		ch.SetPeriod(ch.Period() + v<<4)
		return true

	case ft.SeqDuty:
		ch.SetDutyPeriod(v)
		return true
	}
	return false
}

// arpScheme decodes an arpeggio scheme value into a note offset.
func arpScheme(v int, param uint8) int {
	if v < 0 {
		v += 256
	}
	offset, mode := v%0x40, v/0x40
	if offset > ft.ArpSchemeMax {
		offset -= 64
	}
	switch mode {
	case 1:
		offset += int(param >> 4)
	case 2:
		offset += int(param & 0x0F)
	case 3:
		offset -= int(param & 0x0F)
	}
	return offset
}
