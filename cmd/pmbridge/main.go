// pmbridge CLI - calls driver natives on a simulated board
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/pmnative/board"
	"github.com/chazu/pmnative/bridge"
	"github.com/chazu/pmnative/config"
	"github.com/chazu/pmnative/trace"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one command line and returns the process exit status: the
// SystemExit code of the call, 1 for any other failure, 2 for bad usage.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pmbridge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	boardFile := fs.String("board", "", "Board file (default: board.toml or board.yaml in this or a parent directory)")
	verbosity := fs.Int("v", -1, "Log verbosity (overrides the board file)")
	logPath := fs.String("log", "", "Log file (default: stderr)")
	tracePath := fs.String("trace", "", "Record calls to a CBOR trace file")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: pmbridge [options] <command> [args...]\n\n")
		fmt.Fprintf(stderr, "Calls driver natives on a simulated board.\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		fmt.Fprintf(stderr, "  call NAME [ARG...]   Call a native; arguments are YAML literals\n")
		fmt.Fprintf(stderr, "  list                 List the natives the board exposes\n")
		fmt.Fprintf(stderr, "  dump FILE            Print the records of a trace file\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  pmbridge call eeprom.read eeprom 0x60 2\n")
		fmt.Fprintf(stderr, "  pmbridge call eeprom.write eeprom 0x60 '[222, 173]' 2\n")
		fmt.Fprintf(stderr, "  pmbridge call sram.write_string sram 0x100 hello 5\n")
		fmt.Fprintf(stderr, "  pmbridge -trace calls.cbor call tmp36.read 0\n")
		fmt.Fprintf(stderr, "  pmbridge dump calls.cbor\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if cmd == "dump" {
		if len(rest) != 1 {
			fmt.Fprintf(stderr, "Usage: pmbridge dump FILE\n")
			return 2
		}
		return dump(rest[0], stdout, stderr)
	}

	cfg, err := loadConfig(*boardFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	configureLogging(cfg, *verbosity, *logPath)

	if *tracePath != "" {
		abs, err := filepath.Abs(*tracePath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		cfg.Trace.Path = abs
	}

	b, err := board.New(cfg, board.Options{Stdin: stdin, Stdout: stdout})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		if err := b.Close(); err != nil {
			fmt.Fprintf(stderr, "Warning: %v\n", err)
		}
	}()

	switch cmd {
	case "call":
		if len(rest) == 0 {
			fmt.Fprintf(stderr, "Usage: pmbridge call NAME [ARG...]\n")
			return 2
		}
		return call(b, rest[0], rest[1:], stdout, stderr)
	case "list":
		list(b.Bridge.Registry(), stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command %q\n\n", cmd)
		fs.Usage()
		return 2
	}
}

// loadConfig reads the named board file, or looks for one from the
// working directory up. With no board file the default board is used.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.FindAndLoad(wd)
	if errors.Is(err, config.ErrNotFound) {
		return config.Default(), nil
	}
	return cfg, err
}

func configureLogging(cfg *config.Config, verbosity int, path string) {
	if verbosity < 0 {
		verbosity = cfg.Log.Verbosity
	}
	if path == "" {
		path = cfg.Resolve(cfg.Log.Path)
	}
	if path == "" {
		commonlog.Configure(verbosity, nil)
	} else {
		commonlog.Configure(verbosity, &path)
	}
}

func call(b *board.Board, name string, rawArgs []string, stdout, stderr io.Writer) int {
	args, err := parseArgs(rawArgs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	result, err := b.Call(context.Background(), name, args...)
	if code, ok := bridge.ExitCode(err); ok {
		return int(code)
	}
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	if isTerminal(stdout) {
		fmt.Fprintf(stdout, "%s -> %s\n", name, result)
	} else {
		fmt.Fprintln(stdout, result)
	}
	return 0
}

func list(reg *bridge.Registry, stdout io.Writer) {
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	if isTerminal(stdout) {
		fmt.Fprintln(tw, "NATIVE\tSIGNATURE\tDESCRIPTION")
	}
	for _, name := range reg.Names() {
		n := reg.Lookup(name)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", n.Name, n.Sig, n.Doc)
	}
	tw.Flush()
}

func dump(path string, stdout, stderr io.Writer) int {
	recs, err := trace.ReadFile(path)
	for _, r := range recs {
		fmt.Fprintln(stdout, r)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
