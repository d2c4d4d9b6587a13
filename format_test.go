package main

import (
	"strings"
	"testing"

	"famitone/emu"
	"famitone/hw/snapshot"
	"famitone/tracker/driver"
)

func TestFormatStatus(t *testing.T) {
	st := emu.Status{
		Player: &snapshot.Player{
			Playing:    true,
			Frame:      2,
			Row:        0x1F,
			TotalTicks: 300,
			Tempo:      150,
			Speed:      6,
			BPM:        150,
			Channels: []snapshot.Channel{
				{Name: "Pulse 1", Key: 48, Volume: 15, State: "duty 2"},
				{Name: "Triangle", Key: -1},
			},
		},
		Registers: []snapshot.Register{{Addr: 0x4000, Value: 0x3F}, {Addr: 0x4015, Value: 0x0F}},
	}

	out := formatStatus(st)
	for _, want := range []string{"playing", "frame 02", "row 1F", "ticks 300", "Pulse 1", "C-4", "duty 2", "Triangle", "...", "4000=3F", "4015=0F"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output misses %q:\n%s", want, out)
		}
	}
}

func TestFormatTables(t *testing.T) {
	out := formatTables(driver.NewPeriodTables(0, 0))
	for _, want := range []string{"C-0", "3419", "A-3", "253", "235", "290", "1031", "B-7"} {
		if !strings.Contains(out, want) {
			t.Errorf("tables output misses %q", want)
		}
	}
}

func TestFormatRender(t *testing.T) {
	out := formatRender("song.wav", emu.RenderStats{Ticks: 60, Samples: 48000, Halted: true}, 48000)
	for _, want := range []string{"song.wav", "1s", "60 ticks", "halted"} {
		if !strings.Contains(out, want) {
			t.Errorf("render output %q misses %q", out, want)
		}
	}
}
