package emu

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadConfigMissing(t *testing.T) {
	cfg, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	want := DefaultConfig()
	want.Audio.SampleRate = 44100
	want.Audio.DeviceTimeout = 500 * time.Millisecond
	want.Engine.Machine = "pal"
	want.Engine.CutVolume = true
	want.Engine.StartDelayTicks = 3

	if err := SaveConfig(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := LoadConfigOrDefault(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	const text = `
[audio]
sample_rate = 22050
device_timeout = "250ms"

[engine]
vibrato_style = "sideways"
stop_delay_ticks = -4
`
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigOrDefault(path)
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultConfig()
	want.Audio.SampleRate = 22050
	want.Audio.DeviceTimeout = 250 * time.Millisecond
	want.Engine.StopDelayTicks = 0
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[audio\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfigOrDefault(path)
	if err == nil {
		t.Error("no error for a malformed file")
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigCheck(t *testing.T) {
	cfg := Config{
		Audio:  AudioConfig{SampleRate: 10},
		Engine: EngineConfig{Machine: "secam", StartDelayTicks: -1},
	}
	cfg.Check()

	want := Config{
		Audio: AudioConfig{
			SampleRate:    DefaultSampleRate,
			BufferMs:      DefaultBufferMs,
			DeviceTimeout: DefaultDeviceTimeout,
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}
