package ft

// Groove is a repeating list of row speeds.
type Groove struct {
	Entries []uint8
}

// NewGroove returns a groove with at most MaxGrooveSize entries.
func NewGroove(entries ...uint8) *Groove {
	if len(entries) > MaxGrooveSize {
		entries = entries[:MaxGrooveSize]
	}
	return &Groove{Entries: append([]uint8(nil), entries...)}
}

func (g *Groove) Len() int { return len(g.Entries) }

// Entry returns the speed at position i, wrapping around the groove. An empty
// groove plays at the default speed.
func (g *Groove) Entry(i int) uint8 {
	if len(g.Entries) == 0 {
		return DefaultSpeed
	}
	return g.Entries[i%len(g.Entries)]
}

// Average returns the mean speed of the groove.
func (g *Groove) Average() float64 {
	if len(g.Entries) == 0 {
		return DefaultSpeed
	}
	total := 0
	for _, e := range g.Entries {
		total += int(e)
	}
	return float64(total) / float64(len(g.Entries))
}
