package emu

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"famitone/emu/log"
	"famitone/hw/hwdefs"
	"famitone/tracker/ft"
)

type Config struct {
	Audio  AudioConfig  `toml:"audio"`
	Engine EngineConfig `toml:"engine"`
}

type AudioConfig struct {
	SampleRate int `toml:"sample_rate"`
	// BufferMs is the amount of audio queued ahead of the device.
	BufferMs      int           `toml:"buffer_ms"`
	DeviceTimeout time.Duration `toml:"device_timeout"`
	DisableAudio  bool          `toml:"disable_audio"`
}

type EngineConfig struct {
	// Machine, VibratoStyle and LinearPitch override the song settings when
	// set.
	Machine      string `toml:"machine"`
	VibratoStyle string `toml:"vibrato_style"`
	LinearPitch  bool   `toml:"linear_pitch"`

	CutVolume    bool `toml:"cut_volume"`
	FDSOldVolume bool `toml:"fds_old_volume"`

	// Silent ticks rendered before the song starts and after it stops.
	StartDelayTicks int `toml:"start_delay_ticks"`
	StopDelayTicks  int `toml:"stop_delay_ticks"`
}

const (
	DefaultSampleRate    = 48000
	DefaultBufferMs      = 100
	DefaultDeviceTimeout = 2 * time.Second
)

func DefaultConfig() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate:    DefaultSampleRate,
			BufferMs:      DefaultBufferMs,
			DeviceTimeout: DefaultDeviceTimeout,
		},
		Engine: EngineConfig{
			StopDelayTicks: 30,
		},
	}
}

// Check replaces invalid values with their defaults.
func (cfg *Config) Check() {
	if cfg.Audio.SampleRate < 8000 || cfg.Audio.SampleRate > 192000 {
		log.ModEmu.Warnf("Invalid sample rate %d, fallback to %d", cfg.Audio.SampleRate, DefaultSampleRate)
		cfg.Audio.SampleRate = DefaultSampleRate
	}
	if cfg.Audio.BufferMs <= 0 {
		cfg.Audio.BufferMs = DefaultBufferMs
	}
	if cfg.Audio.DeviceTimeout <= 0 {
		cfg.Audio.DeviceTimeout = DefaultDeviceTimeout
	}
	if _, ok := hwdefs.MachineByName(cfg.Engine.Machine); !ok {
		log.ModEmu.Warnf("Invalid machine %q, using the song machine", cfg.Engine.Machine)
		cfg.Engine.Machine = ""
	}
	if _, ok := vibratoStyle(cfg.Engine.VibratoStyle); !ok {
		log.ModEmu.Warnf("Invalid vibrato style %q, using the song style", cfg.Engine.VibratoStyle)
		cfg.Engine.VibratoStyle = ""
	}
	cfg.Engine.StartDelayTicks = max(0, cfg.Engine.StartDelayTicks)
	cfg.Engine.StopDelayTicks = max(0, cfg.Engine.StopDelayTicks)
}

func vibratoStyle(name string) (ft.VibratoStyle, bool) {
	switch name {
	case "", "new":
		return ft.VibratoNew, true
	case "old":
		return ft.VibratoOld, true
	}
	return ft.VibratoNew, false
}

var ConfigDir = sync.OnceValue(func() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "famitone")
})

const cfgFilename = "config.toml"

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), cfgFilename)
}

// LoadConfigOrDefault loads the configuration at path, or from the famitone
// config directory if path is empty. A missing file gives the default
// configuration.
func LoadConfigOrDefault(path string) (Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.ModEmu.DebugZ("no config file").String("path", path).End()
		return DefaultConfig(), nil
	case err != nil:
		return DefaultConfig(), err
	}
	for _, key := range md.Undecoded() {
		log.ModEmu.WarnZ("unknown config key").String("key", key.String()).End()
	}
	cfg.Check()
	return cfg, nil
}

// SaveConfig writes cfg at path, or into the famitone config directory if
// path is empty.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		if err := os.MkdirAll(ConfigDir(), 0755); err != nil {
			return err
		}
		path = ConfigPath()
	}

	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}
