// Package rpc exposes the engine controls over net/rpc, so that a running
// player can be driven from another process.
package rpc

import (
	"famitone/emu/log"
	"famitone/hw/hwdefs"
)

var modRPC = log.NewModule("rpc")

// DefaultAddr is the address the server listens on by default.
const DefaultAddr = "localhost:7770"

// Service name the engine is registered under.
const serviceName = "engine"

type PlayArgs struct {
	Track, Frame, Row int
}

type SeekArgs struct {
	Frame, Row int
}

// PreviewArgs holds a note in pattern editor notation, like "C#4 01 F".
type PreviewArgs struct {
	Channel hwdefs.ChannelID
	Note    string
}
