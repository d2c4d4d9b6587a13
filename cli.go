package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"famitone/emu/log"
	"famitone/emu/rpc"
)

type mode byte

const (
	renderMode  mode = iota // Render songs to WAV files
	playMode                // Play a song on the audio device
	stateMode               // Print the player state after some ticks
	tablesMode              // Print the note period tables
	remoteMode              // Control a playing engine
	versionMode             // Show famitone version
)

type (
	CLI struct {
		Render  Render  `cmd:"" help:"Render songs to WAV files."`
		Play    Play    `cmd:"" help:"Play a song on the audio device."`
		State   State   `cmd:"" help:"Run a song for some ticks and print the player state."`
		Tables  Tables  `cmd:"" help:"Print the note period tables."`
		Remote  Remote  `cmd:"" help:"Control a song played with play --listen."`
		Version Version `cmd:"" help:"Show famitone version."`

		Log    logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`
		LogOut *outfile   `name:"log-out" help:"Write logs to file." placeholder:"FILE|stdout|stderr"`
		Config string     `name:"config" help:"${config_help}" type:"path"`

		mode    mode
		command string
	}

	Render struct {
		Songs   []string `arg:"" name:"song" help:"Song files (.toml or .json)." type:"existingfile"`
		Out     string   `name:"out" short:"o" help:"Output directory." type:"existingdir" default:"."`
		Track   int      `name:"track" short:"t" help:"Track to render." default:"0"`
		Seconds int      `name:"seconds" help:"${seconds_help}" default:"300"`
		Jobs    int      `name:"jobs" short:"j" help:"Number of songs rendered in parallel." default:"4"`
	}

	Play struct {
		Song    string `arg:"" name:"song" help:"Song file (.toml or .json)." type:"existingfile"`
		Track   int    `name:"track" short:"t" help:"Track to play." default:"0"`
		Frame   int    `name:"frame" help:"Start frame." default:"0"`
		Seconds int    `name:"seconds" help:"Stop after that many seconds, 0 to play until the song halts." default:"0"`
		Listen  string `name:"listen" help:"Accept remote commands on that address." placeholder:"ADDR"`
	}

	State struct {
		Song  string `arg:"" name:"song" help:"Song file (.toml or .json)." type:"existingfile"`
		Track int    `name:"track" short:"t" help:"Track to play." default:"0"`
		Ticks int    `name:"ticks" help:"Number of ticks to run." default:"60"`
		JSON  bool   `name:"json" help:"Print the state as JSON."`
	}

	Tables struct {
		Semitones int `name:"semitones" help:"Tuning offset in semitones." default:"0"`
		Cents     int `name:"cents" help:"Tuning offset in cents." default:"0"`
	}

	Remote struct {
		Addr string `name:"addr" help:"Address of the player." default:"${remote_addr}"`

		Play    RemotePlay    `cmd:"" help:"Play a track from a position."`
		Stop    struct{}      `cmd:"" help:"Stop the player."`
		Seek    RemoteSeek    `cmd:"" help:"Move to a position."`
		Preview RemotePreview `cmd:"" help:"Play a note on a channel."`
		Status  RemoteStatus  `cmd:"" help:"Print the player state."`
	}

	RemotePlay struct {
		Track int `name:"track" short:"t" default:"0"`
		Frame int `name:"frame" default:"0"`
		Row   int `name:"row" default:"0"`
	}

	RemoteSeek struct {
		Frame int `arg:""`
		Row   int `arg:"" optional:"" default:"0"`
	}

	RemotePreview struct {
		Channel string `arg:"" help:"Channel name, like pulse1 or fm3."`
		Note    string `arg:"" help:"Note in pattern notation, like C#4 or A-3 00 F."`
	}

	RemoteStatus struct {
		JSON bool `name:"json" help:"Print the state as JSON."`
	}

	Version struct{}
)

var vars = kong.Vars{
	"log_help":     "Enable logging for specified modules.",
	"config_help":  "Configuration file. (default: famitone/config.toml in the user config directory)",
	"seconds_help": "Maximum length of songs that don't halt by themselves.",
	"remote_addr":  rpc.DefaultAddr,
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("famitone"),
		kong.Description("Chiptune music engine for the NES sound chips and their expansions."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	switch cmd := ctx.Command(); {
	case strings.HasPrefix(cmd, "render"):
		cfg.mode = renderMode
	case strings.HasPrefix(cmd, "play"):
		cfg.mode = playMode
	case strings.HasPrefix(cmd, "state"):
		cfg.mode = stateMode
	case cmd == "tables":
		cfg.mode = tablesMode
	case strings.HasPrefix(cmd, "remote"):
		cfg.mode = remoteMode
		cfg.command = strings.Fields(cmd)[1]
	case cmd == "version":
		cfg.mode = versionMode
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s

  As a special case, the following values are accepted:
    - no                     Disable all logging.
    - all                    Enable all logs.
`
	var strs []string
	for _, m := range log.ModuleNames() {
		strs = append(strs, "    - "+m)
	}

	fmt.Fprintf(os.Stderr, loggingHelp, strings.Join(strs, "\n"))
	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	nolog := false
	allLogs := false

	tok := ctx.Scan.Pop()
	for _, v := range strings.Split(tok.Value.(string), ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return fmt.Errorf("unknown log module %s", v)
			}
			lm |= logModMask(mod.Mask())
		}
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if lm != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		lm = logModMask(log.ModuleMaskAll)
	}

	log.EnableDebugModules(log.ModuleMask(lm))
	return nil
}

type outfile struct {
	w     io.Writer
	name  string
	close func() error
}

// Decode decodes FILE|stdout|stderr into an io.WriteCloser
// that writes to that file.
//
// Implements kong.MapperValue interface.
func (f *outfile) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	f.name = tok.Value.(string)
	f.close = func() error { return nil }

	switch f.name {
	case "stdout":
		f.w = os.Stdout
	case "stderr":
		f.w = os.Stderr
	default:
		fd, err := os.Create(f.name)
		if err != nil {
			return err
		}
		f.w = fd
		f.close = fd.Close
	}
	return nil
}

func (f *outfile) String() string              { return f.name }
func (f *outfile) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *outfile) Close() error                { return f.close() }

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fatalf(format+".\n"+err.Error(), args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
