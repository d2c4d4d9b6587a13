package inst

import (
	"famitone/emu/log"
	"famitone/tracker/ft"
)

// Sawtooth plays sequence instruments on the VRC6 sawtooth, whose volume is
// 6 bits wide. With 16-step volume sequences the duty sequence sets the
// top volume bit.
type Sawtooth struct {
	SeqHandler
	ignoreDuty bool
}

func NewSawtooth(ch Channel, vol, duty int) *Sawtooth {
	h := &Sawtooth{}
	h.init(ch, vol, duty)
	h.process = h.processSequence
	return h
}

// DutyIgnored reports whether the instrument has a 64-step volume sequence.
func (h *Sawtooth) DutyIgnored() bool { return h.ignoreDuty }

func (h *Sawtooth) Trigger() {
	h.SeqHandler.Trigger()
	vol := h.seqs[ft.SeqVolume].seq
	h.ignoreDuty = vol != nil && vol.Setting == ft.SettingVol64
}

func (h *Sawtooth) processSequence(t ft.SeqType, setting uint8, v int) bool {
	switch t {
	case ft.SeqVolume:
		switch setting {
		case ft.SettingVol16:
			h.ch.SetVolume((v&0x0F)<<1 | (h.ch.DutyPeriod()&1)<<5)
		case ft.SettingVol64:
			h.ch.SetVolume(v)
		default:
			return false
		}
		return true
	case ft.SeqDuty:
		if !h.ignoreDuty {
			h.ch.SetVolume(h.ch.Volume()&0x1F | (v&1)<<5)
		}
		return true
	}
	return h.SeqHandler.processSequence(t, setting, v)
}

// S5B plays sequence instruments on a Sunsoft 5B channel. Its duty sequence
// selects tone, noise and envelope, and carries the noise frequency.
type S5B struct {
	SeqHandler
}

func NewS5B(ch Channel, vol, duty int) *S5B {
	h := &S5B{}
	h.init(ch, vol, duty)
	h.process = h.processSequence
	return h
}

func (h *S5B) processSequence(t ft.SeqType, setting uint8, v int) bool {
	if t == ft.SeqDuty {
		if ch, ok := h.ch.(S5BChannel); ok {
			ch.SetDutyPeriod(v & 0xE0)
			if v&ft.S5BModeNoise != 0 {
				ch.SetNoiseFreq(v & 0x1F)
			}
			return true
		}
	}
	return h.SeqHandler.processSequence(t, setting, v)
}

// FDS plays FDS instruments: sequences plus the wave and modulation tables,
// and the modulator settings applied at note-on.
type FDS struct {
	SeqHandler
}

func NewFDS(ch Channel, vol, duty int) *FDS {
	h := &FDS{}
	h.init(ch, vol, duty)
	return h
}

func (h *FDS) Load(inst *ft.Instrument) {
	h.SeqHandler.Load(inst)
	h.updateTables()
}

func (h *FDS) Trigger() {
	h.SeqHandler.Trigger()
	ch, ok := h.ch.(FDSChannel)
	if !ok || h.inst == nil {
		return
	}
	ch.SetFMSpeed(h.inst.ModSpeed)
	ch.SetFMDepth(h.inst.ModDepth)
	ch.SetFMDelay(h.inst.ModDelay)
	h.updateTables()
}

func (h *FDS) Update() {
	h.SeqHandler.Update()
	h.updateTables()
}

// updateTables hands the tables to the channel, which only uploads them
// when they changed.
func (h *FDS) updateTables() {
	ch, ok := h.ch.(FDSChannel)
	if !ok || h.inst == nil {
		return
	}
	ch.FillWaveRAM(h.inst.Wave[:])
	ch.FillModTable(h.inst.Mod[:])
}

// VRC7 plays VRC7 instruments: sequences, plus the patch selection and the
// custom patch registers when the patch is 0.
type VRC7 struct {
	SeqHandler
	update bool
}

func NewVRC7(ch Channel) *VRC7 {
	h := &VRC7{}
	h.init(ch, 0xF, 0)
	return h
}

func (h *VRC7) Load(inst *ft.Instrument) {
	h.SeqHandler.Load(inst)
	h.update = true
}

func (h *VRC7) Trigger() {
	h.SeqHandler.Trigger()
	h.update = true
}

func (h *VRC7) Update() {
	h.SeqHandler.Update()
	if !h.update {
		return
	}
	ch, ok := h.ch.(VRC7Channel)
	if !ok || h.inst == nil {
		return
	}
	ch.SetPatch(h.inst.Patch)
	if h.inst.Patch == 0 {
		for i, v := range h.inst.CustomRegs {
			ch.SetCustomReg(i, v)
		}
	}
	h.update = false
}

// DPCM starts the sample mapped to the played note of a 2A03 instrument.
type DPCM struct {
	ch   Channel
	inst *ft.Instrument
}

func NewDPCM(ch Channel) *DPCM {
	return &DPCM{ch: ch}
}

func (h *DPCM) Load(inst *ft.Instrument) { h.inst = inst }

func (h *DPCM) Trigger() {
	ch, ok := h.ch.(DPCMChannel)
	if !ok || h.inst == nil {
		return
	}
	m, ok := h.inst.DPCMSample(ch.Note())
	if !ok {
		return
	}
	log.ModInst.DebugZ("play sample").String("name", m.Sample.Name).Hex8("pitch", m.Pitch).End()
	ch.WriteDCOffset(m.Delta)
	ch.SetLoopOffset(m.LoopOffset)
	ch.PlaySample(m.Sample, m.Pitch)
}

func (h *DPCM) Release() {}
func (h *DPCM) Update()  {}
