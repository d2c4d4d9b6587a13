package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"famitone/emu"
	"famitone/hw/snapshot"
	"famitone/tracker/driver"
	"famitone/tracker/ft"
)

type styles struct {
	title   lipgloss.Style
	playing lipgloss.Style
	stopped lipgloss.Style
	label   lipgloss.Style
	addr    lipgloss.Style
	border  lipgloss.Style
}

// ANSI Color reference
// 1	Red
// 2	Green
// 3	Yellow
// 4	Blue
// 6	Cyan
// 8	Bright Black (Gray)
var style = styles{
	title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(6)),
	playing: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(2)),
	stopped: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(1)),
	label:   lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(3)),
	addr:    lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(4)),
	border:  lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(8)),
}

func formatRender(path string, st emu.RenderStats, sampleRate int) string {
	length := time.Duration(st.Samples) * time.Second / time.Duration(sampleRate)
	end := "time limit"
	if st.Halted {
		end = "halted"
	}
	return fmt.Sprintf("%s %s (%d ticks, %s)",
		style.title.Render(path), length.Round(time.Millisecond), st.Ticks, end)
}

// formatPosition formats the player position on a single line.
func formatPosition(p *snapshot.Player) string {
	state := style.stopped.Render("stopped")
	if p.Playing {
		state = style.playing.Render("playing")
	}
	return fmt.Sprintf("%s %s %02X %s %02X %s %.1f (tempo %d speed %d)",
		state,
		style.label.Render("frame"), p.Frame,
		style.label.Render("row"), p.Row,
		style.label.Render("bpm"), p.BPM, p.Tempo, p.Speed)
}

func formatStatus(st emu.Status) string {
	var sb strings.Builder
	sb.WriteString(formatPosition(st.Player))
	fmt.Fprintf(&sb, " %s %d\n", style.label.Render("ticks"), st.Player.TotalTicks)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(style.border).
		Headers("Channel", "Note", "Volume", "Level", "State")
	for _, ch := range st.Player.Channels {
		t.Row(ch.Name, ft.KeyName(ch.Key), strconv.Itoa(ch.Volume), strconv.Itoa(ch.Level), ch.State)
	}
	sb.WriteString(t.Render())
	sb.WriteByte('\n')

	sb.WriteString(style.title.Render("Registers"))
	for i, r := range st.Registers {
		if i%8 == 0 {
			sb.WriteByte('\n')
		} else {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%02X", style.addr.Render(fmt.Sprintf("%04X", r.Addr)), r.Value)
	}
	return sb.String()
}

// formatTables formats the period tables, one row per note. The VRC7 column
// shows the fnum and the block.
func formatTables(pt *driver.PeriodTables) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(style.border).
		Headers("Note", "NTSC", "PAL", "Saw", "FDS", "5B", "VRC7")
	for i := range ft.NoteCount {
		vrc7 := fmt.Sprintf("%d/%d", pt.VRC7[i%ft.NoteRange], ft.OctaveOf(i))
		t.Row(ft.KeyName(i),
			strconv.Itoa(pt.NTSC[i]),
			strconv.Itoa(pt.PAL[i]),
			strconv.Itoa(pt.Saw[i]),
			strconv.Itoa(pt.FDS[i]),
			strconv.Itoa(pt.S5B[i]),
			vrc7)
	}
	return t.Render()
}
