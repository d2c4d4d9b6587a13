package hwdefs

import "strings"

// Clocks, in Hz.
const (
	MasterClockNTSC = 21477270
	MasterClockPAL  = 26601712
	CPUClockNTSC    = 1789773
	CPUClockPAL     = 1662607

	FrameRateNTSC = 60
	FrameRatePAL  = 50
)

type Machine uint8

const (
	NTSC Machine = iota
	PAL
)

func (m Machine) String() string {
	if m == PAL {
		return "PAL"
	}
	return "NTSC"
}

// MachineByName parses "ntsc" or "pal", in any case.
func MachineByName(name string) (Machine, bool) {
	switch strings.ToLower(name) {
	case "ntsc", "":
		return NTSC, true
	case "pal":
		return PAL, true
	}
	return NTSC, false
}

func (m Machine) CPUClock() int {
	if m == PAL {
		return CPUClockPAL
	}
	return CPUClockNTSC
}

func (m Machine) FrameRate() int {
	if m == PAL {
		return FrameRatePAL
	}
	return FrameRateNTSC
}

// Chip is a set of sound chips, one bit per chip.
type Chip uint8

const (
	ChipVRC6 Chip = 1 << iota
	ChipVRC7
	ChipFDS
	ChipS5B

	Chip2A03 Chip = 0
	numChips      = 4
)

var chipNames = [numChips]string{
	"vrc6",
	"vrc7",
	"fds",
	"s5b",
}

func (c Chip) String() string {
	names := []string{"2a03"}
	for i := range numChips {
		if c&(1<<i) != 0 {
			names = append(names, chipNames[i])
		}
	}
	return strings.Join(names, "|")
}

// ChipByName parses a single chip name.
func ChipByName(name string) (Chip, bool) {
	for i, n := range chipNames {
		if strings.EqualFold(n, name) {
			return Chip(1 << i), true
		}
	}
	return 0, false
}

// ChannelID identifies a logical channel across all supported chips.
type ChannelID uint8

const (
	Square1 ChannelID = iota
	Square2
	Triangle
	Noise
	DPCM

	VRC6Pulse1
	VRC6Pulse2
	VRC6Sawtooth

	VRC7Ch1
	VRC7Ch2
	VRC7Ch3
	VRC7Ch4
	VRC7Ch5
	VRC7Ch6

	FDSWave

	S5BCh1
	S5BCh2
	S5BCh3

	NumChannels
)

var chanNames = [NumChannels]string{
	"Pulse 1", "Pulse 2", "Triangle", "Noise", "DPCM",
	"VRC6 Pulse 1", "VRC6 Pulse 2", "Sawtooth",
	"FM 1", "FM 2", "FM 3", "FM 4", "FM 5", "FM 6",
	"FDS",
	"5B 1", "5B 2", "5B 3",
}

func (id ChannelID) String() string {
	if id < NumChannels {
		return chanNames[id]
	}
	return "<invalid>"
}

// ChannelByName returns the channel with the given display name, ignoring
// case and spaces.
func ChannelByName(name string) (ChannelID, bool) {
	key := strings.ReplaceAll(strings.ToLower(name), " ", "")
	for id, n := range chanNames {
		if strings.ReplaceAll(strings.ToLower(n), " ", "") == key {
			return ChannelID(id), true
		}
	}
	return NumChannels, false
}

// Chip returns the chip the channel belongs to.
func (id ChannelID) Chip() Chip {
	switch {
	case id <= DPCM:
		return Chip2A03
	case id <= VRC6Sawtooth:
		return ChipVRC6
	case id <= VRC7Ch6:
		return ChipVRC7
	case id == FDSWave:
		return ChipFDS
	default:
		return ChipS5B
	}
}

// Channels returns the channels available with the given expansion chips, in
// processing order.
func Channels(chips Chip) []ChannelID {
	ids := make([]ChannelID, 0, NumChannels)
	for id := range NumChannels {
		if c := id.Chip(); c == Chip2A03 || chips&c != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

const NumAPUChannels = 5 // Square1, Square2, Triangle, Noise, DPCM
