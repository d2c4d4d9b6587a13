package emu

import (
	"famitone/hw/hwdefs"
	"famitone/tracker/driver"
	"famitone/tracker/ft"
)

// overrides replaces some settings of a document with engine settings.
type overrides struct {
	driver.Document

	machine     *hwdefs.Machine
	vibrato     *ft.VibratoStyle
	linearPitch bool
}

func withOverrides(doc driver.Document, cfg EngineConfig) driver.Document {
	o := &overrides{Document: doc, linearPitch: cfg.LinearPitch}
	if cfg.Machine != "" {
		if m, ok := hwdefs.MachineByName(cfg.Machine); ok {
			o.machine = &m
		}
	}
	if cfg.VibratoStyle != "" {
		if v, ok := vibratoStyle(cfg.VibratoStyle); ok {
			o.vibrato = &v
		}
	}
	if o.machine == nil && o.vibrato == nil && !o.linearPitch {
		return doc
	}
	return o
}

func (o *overrides) Machine() hwdefs.Machine {
	if o.machine != nil {
		return *o.machine
	}
	return o.Document.Machine()
}

func (o *overrides) VibratoStyle() ft.VibratoStyle {
	if o.vibrato != nil {
		return *o.vibrato
	}
	return o.Document.VibratoStyle()
}

func (o *overrides) LinearPitch() bool {
	return o.linearPitch || o.Document.LinearPitch()
}
