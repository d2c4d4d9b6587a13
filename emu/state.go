package emu

import (
	"io"

	"github.com/go-faster/jx"

	"famitone/hw/snapshot"
)

// EncodeStatus writes the engine status as a JSON object.
func EncodeStatus(e *jx.Encoder, st Status) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("ticks", func(e *jx.Encoder) { e.UInt64(st.Ticks) })
		e.Field("timeouts", func(e *jx.Encoder) { e.UInt64(st.Timeouts) })
		e.Field("underruns", func(e *jx.Encoder) { e.UInt64(st.Underruns) })
		if st.Player != nil {
			e.Field("player", func(e *jx.Encoder) { encodePlayer(e, st.Player) })
		}
		e.Field("registers", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, r := range st.Registers {
					e.Field(hex16(r.Addr), func(e *jx.Encoder) { e.UInt8(r.Value) })
				}
			})
		})
	})
}

func encodePlayer(e *jx.Encoder, p *snapshot.Player) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("playing", func(e *jx.Encoder) { e.Bool(p.Playing) })
		e.Field("track", func(e *jx.Encoder) { e.Int(p.Track) })
		e.Field("frame", func(e *jx.Encoder) { e.Int(p.Frame) })
		e.Field("row", func(e *jx.Encoder) { e.Int(p.Row) })
		e.Field("tick", func(e *jx.Encoder) { e.Int(p.Tick) })
		e.Field("total_ticks", func(e *jx.Encoder) { e.Int(p.TotalTicks) })
		if p.QueuedFrame >= 0 {
			e.Field("queued_frame", func(e *jx.Encoder) { e.Int(p.QueuedFrame) })
		}
		e.Field("tempo", func(e *jx.Encoder) { e.Int(p.Tempo) })
		e.Field("speed", func(e *jx.Encoder) { e.Int(p.Speed) })
		e.Field("grooving", func(e *jx.Encoder) { e.Bool(p.Grooving) })
		e.Field("bpm", func(e *jx.Encoder) { e.Float64(p.BPM) })
		e.Field("channels", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, ch := range p.Channels {
					e.Obj(func(e *jx.Encoder) {
						e.Field("name", func(e *jx.Encoder) { e.Str(ch.Name) })
						e.Field("key", func(e *jx.Encoder) { e.Int(ch.Key) })
						e.Field("volume", func(e *jx.Encoder) { e.Int(ch.Volume) })
						e.Field("level", func(e *jx.Encoder) { e.Int(ch.Level) })
						e.Field("state", func(e *jx.Encoder) { e.Str(ch.State) })
					})
				}
			})
		})
	})
}

func hex16(v uint16) string {
	const digits = "0123456789ABCDEF"
	return string([]byte{digits[v>>12], digits[v>>8&0xF], digits[v>>4&0xF], digits[v&0xF]})
}

// WriteStatusJSON writes the engine status to w, indented.
func WriteStatusJSON(w io.Writer, st Status) error {
	var e jx.Encoder
	e.SetIdent(2)
	EncodeStatus(&e, st)
	if _, err := w.Write(e.Bytes()); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
