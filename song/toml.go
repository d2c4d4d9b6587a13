package song

import (
	"github.com/BurntSushi/toml"

	"famitone/emu/log"
)

// DecodeTOML parses a song in TOML format.
func DecodeTOML(buf []byte) (*Song, error) {
	var f songFile
	md, err := toml.Decode(string(buf), &f)
	if err != nil {
		return nil, err
	}
	for _, key := range md.Undecoded() {
		log.ModSong.WarnZ("unknown key").String("key", key.String()).End()
	}
	return f.build()
}
