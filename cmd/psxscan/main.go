// psxscan recovers 3D models, textures and animations from raw PlayStation
// memory and disc dumps.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Faultbox/psxscan/internal/config"
	"github.com/Faultbox/psxscan/pkg/formats"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "scan", "s":
		os.Exit(cmdScan(args))
	case "formats":
		cmdFormats()
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`psxscan - PlayStation dump asset scanner

Usage:
  psxscan <command> [options]

Commands:
  scan [options] <file>...    Probe every offset of each file for known formats
  formats                     List supported formats
  config [options]            Print the effective configuration

Scan options:
  -formats tmd,hmd   Formats to scan for (default all)
  -start, -stop      Scan window, 0x prefix for hex
  -align N           Probe only multiples of N
  -next              Skip past the bytes of each match
  -raw               Input is a raw 2352-byte sector image
  -workers N         Files scanned concurrently
  -export dir        Write recovered textures as images
  -image tga         Export format: tga, png or bmp
  -dump              Print full details of every match
  -config path       Config file (default ./psxscan.yaml)

Examples:
  psxscan scan -formats tmd -align 4 SLUS_000.01
  psxscan scan -raw -next game.bin
  psxscan config -save`)
}

func cmdFormats() {
	for _, info := range formats.All() {
		fmt.Printf("  %-6s %s\n", info.Name, info.Description)
	}
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	save := fs.Bool("save", false, "Write the effective config to the user config directory")
	out := fs.String("o", "", "Write the effective config to this path")
	flags := config.BindFlags(fs)
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *out != "":
		err = cfg.SaveTo(*out)
	case *save:
		err = cfg.Save()
	default:
		err = cfg.Encode(os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
