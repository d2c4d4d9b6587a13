package song

import (
	"fmt"

	"github.com/go-faster/jx"

	"famitone/emu/log"
)

// DecodeJSON parses a song in JSON format. Keys are the same as in the TOML
// format, "instrument", "sample", "groove", "track" and "pattern" being
// arrays of objects.
func DecodeJSON(buf []byte) (*Song, error) {
	var f songFile
	if err := f.decode(jx.DecodeBytes(buf)); err != nil {
		return nil, err
	}
	return f.build()
}

func skipUnknown(d *jx.Decoder, obj, key string) error {
	log.ModSong.WarnZ("unknown key").String("object", obj).String("key", key).End()
	return d.Skip()
}

func (f *songFile) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "title":
			f.Title, err = d.Str()
		case "author":
			f.Author, err = d.Str()
		case "copyright":
			f.Copyright, err = d.Str()
		case "machine":
			f.Machine, err = d.Str()
		case "chips":
			f.Chips, err = decodeStrings(d)
		case "engine_speed":
			f.EngineSpeed, err = d.Int()
		case "vibrato":
			f.Vibrato, err = d.Str()
		case "linear_pitch":
			f.LinearPitch, err = d.Bool()
		case "speed_split":
			f.SpeedSplit, err = d.Int()
		case "tuning":
			err = d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "semitones":
					f.Tuning.Semitones, err = d.Int()
				case "cents":
					f.Tuning.Cents, err = d.Int()
				default:
					return skipUnknown(d, "tuning", key)
				}
				return err
			})
		case "instrument":
			err = d.Arr(func(d *jx.Decoder) error {
				var inf instFile
				if err := inf.decode(d); err != nil {
					return err
				}
				f.Instruments = append(f.Instruments, inf)
				return nil
			})
		case "sample":
			err = d.Arr(func(d *jx.Decoder) error {
				var sf sampleFile
				err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "name":
						sf.Name, err = d.Str()
					case "data":
						sf.Data, err = d.Str()
					default:
						return skipUnknown(d, "sample", key)
					}
					return err
				})
				f.Samples = append(f.Samples, sf)
				return err
			})
		case "groove":
			err = d.Arr(func(d *jx.Decoder) error {
				var gf grooveFile
				err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "index":
						gf.Index, err = d.Int()
					case "entries":
						gf.Entries, err = decodeInts(d)
					default:
						return skipUnknown(d, "groove", key)
					}
					return err
				})
				f.Grooves = append(f.Grooves, gf)
				return err
			})
		case "track":
			err = d.Arr(func(d *jx.Decoder) error {
				var tf trackFile
				if err := tf.decode(d); err != nil {
					return err
				}
				f.Tracks = append(f.Tracks, tf)
				return nil
			})
		default:
			return skipUnknown(d, "song", key)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	})
}

func (f *instFile) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "index":
			f.Index, err = d.Int()
		case "name":
			f.Name, err = d.Str()
		case "type":
			f.Type, err = d.Str()
		case "seq":
			f.Seqs = make(map[string]string)
			err = d.Obj(func(d *jx.Decoder, key string) error {
				v, err := d.Str()
				f.Seqs[key] = v
				return err
			})
		case "dpcm":
			err = d.Arr(func(d *jx.Decoder) error {
				var df dpcmFile
				if err := df.decode(d); err != nil {
					return err
				}
				f.DPCM = append(f.DPCM, df)
				return nil
			})
		case "patch":
			f.Patch, err = d.Int()
		case "regs":
			f.Regs, err = decodeInts(d)
		case "wave":
			f.Wave, err = decodeInts(d)
		case "mod":
			f.Mod, err = decodeInts(d)
		case "mod_speed":
			f.ModSpeed, err = d.Int()
		case "mod_depth":
			f.ModDepth, err = d.Int()
		case "mod_delay":
			f.ModDelay, err = d.Int()
		default:
			return skipUnknown(d, "instrument", key)
		}
		return err
	})
}

func (f *dpcmFile) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "note":
			f.Note, err = d.Str()
		case "sample":
			f.Sample, err = d.Int()
		case "pitch":
			f.Pitch, err = d.Int()
		case "loop":
			f.Loop, err = d.Bool()
		case "loop_offset":
			f.LoopOffset, err = d.Int()
		case "delta":
			f.Delta, err = decodeOptInt(d)
		default:
			return skipUnknown(d, "dpcm", key)
		}
		return err
	})
}

func (f *trackFile) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			f.Name, err = d.Str()
		case "tempo":
			f.Tempo, err = decodeOptInt(d)
		case "speed":
			f.Speed, err = d.Int()
		case "groove":
			f.Groove, err = d.Bool()
		case "rows":
			f.Rows, err = d.Int()
		case "frames":
			err = d.Arr(func(d *jx.Decoder) error {
				fr, err := decodeInts(d)
				f.Frames = append(f.Frames, fr)
				return err
			})
		case "pattern":
			err = d.Arr(func(d *jx.Decoder) error {
				var pf patternFile
				err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "channel":
						pf.Channel, err = d.Str()
					case "index":
						pf.Index, err = d.Int()
					case "rows":
						pf.Rows, err = decodeStrings(d)
					default:
						return skipUnknown(d, "pattern", key)
					}
					return err
				})
				f.Patterns = append(f.Patterns, pf)
				return err
			})
		default:
			return skipUnknown(d, "track", key)
		}
		return err
	})
}

func decodeInts(d *jx.Decoder) ([]int, error) {
	vals := []int{}
	err := d.Arr(func(d *jx.Decoder) error {
		v, err := d.Int()
		vals = append(vals, v)
		return err
	})
	return vals, err
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	var vals []string
	err := d.Arr(func(d *jx.Decoder) error {
		v, err := d.Str()
		vals = append(vals, v)
		return err
	})
	return vals, err
}

// decodeOptInt decodes an integer, or null.
func decodeOptInt(d *jx.Decoder) (*int, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := d.Int()
	if err != nil {
		return nil, err
	}
	return &v, nil
}
