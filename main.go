package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"famitone/emu"
	"famitone/emu/log"
)

func main() {
	cli := parseArgs(os.Args[1:])
	if cli.LogOut != nil {
		log.SetOutput(cli.LogOut)
		defer cli.LogOut.Close()
	}

	switch cli.mode {
	case versionMode:
		printVersion()
		return
	case tablesMode:
		tablesMain(cli.Tables)
		return
	case remoteMode:
		remoteMain(cli.Remote, cli.command)
		return
	}

	cfg, err := emu.LoadConfigOrDefault(cli.Config)
	if err != nil {
		log.ModEmu.WarnZ("Invalid config file, using defaults").Error("err", err).End()
	}

	switch cli.mode {
	case renderMode:
		renderMain(cli.Render, cfg)
	case playMode:
		playMain(cli.Play, cfg)
	case stateMode:
		stateMain(cli.State, cfg)
	}
}

func printVersion() {
	version := "(devel)"
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		version = bi.Main.Version
	}
	fmt.Println("famitone", version)
}
