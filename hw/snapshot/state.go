// Package snapshot holds plain copies of the sound hardware state, for
// register read-back, status display and JSON dumps.
package snapshot

type Board struct {
	Machine   string
	Chips     string
	Registers []Register
	Mixer     *Mixer
	APU       *APU
	VRC6      *VRC6
	VRC7      *VRC7
	FDS       *FDS
	S5B       *S5B
}

// Register is the last value written at a chip register address.
type Register struct {
	Addr  uint16
	Value uint8
}

type Mixer struct {
	ClockRate      int
	SampleRate     int
	Chips          uint8
	PreviousOutput int32
	CurrentOutput  [18]int16
	Levels         [18]int
}

type APU struct {
	Square1  APUSquare
	Square2  APUSquare
	Triangle APUTriangle
	Noise    APUNoise
	DMC      APUDMC

	FrameStep uint8
	FiveStep  bool
}

type APUTimer struct {
	Timer      uint16
	Period     uint16
	LastOutput int8
}

type APULengthCounter struct {
	Enabled bool
	Halt    bool
	Counter uint8
}

type APUEnvelope struct {
	ConstantVolume bool
	Volume         uint8
	Counter        uint8

	LengthCounter APULengthCounter
}

type APUSquare struct {
	Timer    APUTimer
	Envelope APUEnvelope

	RealPeriod   uint16
	SweepEnabled bool
	SweepNegate  bool
	SweepShift   uint8
	Duty         uint8
	DutyPos      uint8
}

type APUTriangle struct {
	Timer         APUTimer
	LengthCounter APULengthCounter

	LinearCounter       uint8
	LinearCounterReload uint8
	LinearCtrl          bool
	Pos                 uint8
}

type APUNoise struct {
	Timer    APUTimer
	Envelope APUEnvelope

	ShiftReg uint16
	Mode     bool
}

type APUDMC struct {
	Timer APUTimer

	SampleAddr  uint16
	SampleLen   uint16
	CurrentAddr uint16
	Remaining   uint16
	OutputLevel uint8
	BitsLeft    uint8
	IRQEnabled  bool
	Loop        bool
	Silence     bool
}

type VRC6 struct {
	Pulse    [2]VRC6Pulse
	Sawtooth VRC6Sawtooth
	FreqCtrl uint8
}

type VRC6Pulse struct {
	Enabled bool
	Gate    bool
	Duty    uint8
	Volume  uint8
	Period  uint16
	Step    uint8
}

type VRC6Sawtooth struct {
	Enabled bool
	Rate    uint8
	Period  uint16
	Step    uint8
	Acc     uint8
}

type VRC7 struct {
	Address  uint8
	Regs     [0x40]uint8
	Channels [6]VRC7Channel
}

type VRC7Channel struct {
	Patch  uint8
	Volume uint8
	Key    bool
	Output int16
}

type FDS struct {
	Wave         [64]uint8
	ModTable     [64]int8
	EnvDisable   bool
	Bias         int32
	WaveFreq     uint32
	ModFreq      uint32
	WaveDisabled bool
	ModDisabled  bool
	Volume       uint8
	ModGain      uint8
	MasterLevel  uint8
	Output       int32
}

type S5B struct {
	Address       uint8
	Regs          [16]uint8
	Periods       [3]uint32
	Outputs       [3]int16
	EnvelopeLevel uint8
	EnvelopeHold  bool
}
