package snapshot

// Player is the sound driver status.
type Player struct {
	Playing bool
	Track   int
	Frame   int
	Row     int
	Tick    int

	TotalTicks  int
	QueuedFrame int // -1 if none

	Tempo    int
	Speed    int
	Grooving bool
	BPM      float64

	Channels []Channel
}

// Channel is the status of a channel handler.
type Channel struct {
	Name   string
	Key    int // note index, -1 if none
	Volume int // volume column, 0-0x7F
	Level  int // VU meter
	State  string
}
