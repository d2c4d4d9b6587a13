package ft

import "famitone/hw/hwdefs"

//go:generate go tool stringer -type=Effect -trimprefix=Eff

// Effect is the command of an effect column.
type Effect uint8

const (
	EffNone Effect = iota
	EffSpeed
	EffJump
	EffSkip
	EffHalt
	EffVolume
	EffPortamento
	EffPortaOff
	EffSweepUp
	EffSweepDown
	EffArpeggio
	EffVibrato
	EffTremolo
	EffPitch
	EffDelay
	EffDAC
	EffPortaUp
	EffPortaDown
	EffDutyCycle
	EffSampleOffset
	EffSlideUp
	EffSlideDown
	EffVolumeSlide
	EffNoteCut
	EffRetrigger
	EffDelayedVolume
	EffFDSModDepth
	EffFDSModSpeedHi
	EffFDSModSpeedLo
	EffDPCMPitch
	EffSunsoftEnvType
	EffSunsoftEnvHi
	EffSunsoftEnvLo
	EffSunsoftNoise
	EffVRC7Port
	EffVRC7Write
	EffNoteRelease
	EffGroove
	EffTranspose
	EffN163WaveBuffer
	EffFDSVolume
	EffFDSModBias
	EffPhaseReset
	EffHarmonic
	EffTargetVolumeSlide
)

const NumEffects = int(EffTargetVolumeSlide) + 1

// Global/2A03 effects come first: a letter shared with an expansion effect
// resolves to the global one unless the channel belongs to that expansion.
var effChars = [NumEffects]byte{
	0xFF, 'F', 'B', 'D', 'C', 'E', '3', 0xFF, 'H', 'I', '0', '4', '7', 'P', 'G',
	'Z', '1', '2', 'V', 'Y', 'Q', 'R', 'A', 'S', 'X', 'M', 'H', 'I', 'J', 'W',
	'H', 'I', 'J', 'W', 'H', 'I', 'L', 'O', 'T', 'Z', 'E', 'Z', '=', 'K', 'N',
}

var chipEffects = map[hwdefs.Chip][]Effect{
	hwdefs.ChipVRC7: {EffVRC7Port, EffVRC7Write},
	hwdefs.ChipFDS:  {EffFDSModDepth, EffFDSModSpeedHi, EffFDSModSpeedLo, EffFDSVolume, EffFDSModBias},
	hwdefs.ChipS5B:  {EffSunsoftEnvType, EffSunsoftEnvHi, EffSunsoftEnvLo, EffSunsoftNoise},
}

// Char returns the letter of the effect in the pattern editor, or 0xFF for
// effects without one.
func (e Effect) Char() byte {
	if int(e) < NumEffects {
		return effChars[e]
	}
	return 0xFF
}

// EffectFromChar returns the effect shown as ch on a channel of the given
// chip.
func EffectFromChar(ch byte, chip hwdefs.Chip) (Effect, bool) {
	for _, e := range chipEffects[chip] {
		if effChars[e] == ch {
			return e, true
		}
	}
	for e := EffNone + 1; int(e) < NumEffects; e++ {
		if effChars[e] == ch && !isChipEffect(e) {
			return e, true
		}
	}
	return EffNone, false
}

func isChipEffect(e Effect) bool {
	switch e {
	case EffN163WaveBuffer:
		return true
	}
	for _, effs := range chipEffects {
		for _, ce := range effs {
			if ce == e {
				return true
			}
		}
	}
	return false
}

// IsGlobal reports whether the effect acts on the player rather than on the
// channel it is placed on.
func (e Effect) IsGlobal() bool {
	switch e {
	case EffSpeed, EffJump, EffSkip, EffHalt, EffGroove:
		return true
	}
	return false
}
