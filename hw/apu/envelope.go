package apu

import "famitone/hw/snapshot"

// envelope generates a decaying volume, or a constant one. It also gates the
// output with the length counter.
type envelope struct {
	constantVolume bool
	volume         uint8

	start   bool
	divider int8
	counter uint8

	lenCounter lengthCounter
}

func (env *envelope) init(val uint8) {
	env.lenCounter.init(val&0x20 != 0)
	env.constantVolume = val&0x10 != 0
	env.volume = val & 0x0F
}

func (env *envelope) restart() {
	env.start = true
}

func (env *envelope) output() uint8 {
	if !env.lenCounter.status() {
		return 0
	}
	if env.constantVolume {
		return env.volume
	}
	return env.counter
}

func (env *envelope) reset() {
	env.lenCounter.reset()
	env.constantVolume = false
	env.volume = 0
	env.start = false
	env.divider = 0
	env.counter = 0
}

func (env *envelope) tick() {
	if env.start {
		env.start = false
		env.counter = 15
		env.divider = int8(env.volume)
		return
	}

	env.divider--
	if env.divider < 0 {
		env.divider = int8(env.volume)
		if env.counter > 0 {
			env.counter--
		} else if env.lenCounter.halt {
			env.counter = 15
		}
	}
}

func (env *envelope) saveState(state *snapshot.APUEnvelope) {
	state.ConstantVolume = env.constantVolume
	state.Volume = env.volume
	state.Counter = env.counter
	env.lenCounter.saveState(&state.LengthCounter)
}
