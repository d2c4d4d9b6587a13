package apu

import "famitone/hw/hwdefs"

type mixer interface {
	AddDelta(ch hwdefs.ChannelID, time uint32, delta int16)
}

// SampleMemory is where the DMC fetches its sample bytes from, the
// $C000-$FFFF range of the sound board.
type SampleMemory interface {
	Read8(addr uint16) uint8
}

type FrameType uint8

const (
	NoFrame FrameType = iota
	QuarterFrame
	HalfFrame
)
