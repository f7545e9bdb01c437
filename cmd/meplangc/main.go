// Command meplangc is the Meplang compiler's command-line entry
// point, built on github.com/urfave/cli/v2 in the shape of the
// teacher's cmd/n42/main.go (a cli.App with subcommands, errors
// printed to stderr and a nonzero exit code on failure).
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v2"

	"github.com/meplang/meplangc/internal/compiler"
	"github.com/meplang/meplangc/internal/compiler/artifacts"
	"github.com/meplang/meplangc/internal/compiler/metrics"
	"github.com/meplang/meplangc/internal/compiler/opcode"
	"github.com/meplang/meplangc/internal/compiler/settings"
	"github.com/meplang/meplangc/log"
	"github.com/meplang/meplangc/params"
	"github.com/meplang/meplangc/pkg/errors"
)

func main() {
	app := &cli.App{
		Name:      "meplangc",
		Usage:     "Meplang to EVM bytecode compiler",
		Version:   params.VersionWithCommit(params.GitCommit),
		Commands:  []*cli.Command{versionCommand, compileCommand, disasmCommand},
		Copyright: "Copyright 2022-2026 The N42 Authors",
	}

	if err := app.Run(os.Args); err != nil {
		reportError(err)
		os.Exit(1)
	}
}

// reportError prints err to stderr, including the source span when
// err carries one (spec §6: "human-readable error with source span").
func reportError(err error) {
	var ce *errors.CompileError
	if errors.As(err, &ce) {
		fmt.Fprintf(os.Stderr, "error: %s at %s: %s\n", ce.Kind, ce.Span, ce.Msg)
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "print the compiler version",
	Action: func(c *cli.Context) error {
		fmt.Println(params.VersionWithCommit(params.GitCommit))
		return nil
	},
}

var compileCommand = &cli.Command{
	Name:  "compile",
	Usage: "compile a .mep source file",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "contract", Aliases: []string{"c"}, Required: true, Usage: "entry contract name"},
		&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "path to the .mep source file"},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write JSON artifacts here instead of printing main bytecode"},
		&cli.StringFlag{Name: "settings", Aliases: []string{"s"}, Usage: "compiler settings, as a JSON literal or @path-to-file"},
		&cli.BoolFlag{Name: "watch", Usage: "re-compile whenever the input file changes"},
		&cli.BoolFlag{Name: "stats", Usage: "dump compiler metrics to stderr after a successful compile"},
	},
	Action: runCompile,
}

func runCompile(c *cli.Context) error {
	st, err := loadSettings(c.String("settings"))
	if err != nil {
		return err
	}

	run := func() error {
		art, err := compiler.CompileFile(c.String("input"), c.String("contract"), st)
		if err != nil {
			return err
		}
		if err := writeResult(c, art); err != nil {
			return err
		}
		if c.Bool("stats") {
			if err := metrics.Dump(os.Stderr); err != nil {
				return errors.Wrap(err, "dumping metrics")
			}
		}
		return nil
	}

	if !c.Bool("watch") {
		return run()
	}
	return watchAndCompile(c.String("input"), run)
}

func writeResult(c *cli.Context, art *artifacts.Artifacts) error {
	outPath := c.String("output")
	if outPath == "" {
		bc := art.MainBytecode()
		if bc == nil {
			return errors.Errorf("entry contract %q has no recorded bytecode", art.Main)
		}
		fmt.Printf("0x%x\n", bc)
		return nil
	}
	data, err := json.Marshal(art)
	if err != nil {
		return errors.Wrap(err, "marshaling artifacts")
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return errors.Wrapf(err, "writing %s", outPath)
	}
	return nil
}

// watchAndCompile runs compile once, then again after every write to
// input, until the process is interrupted. Grounded in the teacher's
// fsnotify dependency; this is the only place in the CLI that blocks,
// and it re-invokes the pipeline synchronously between events so the
// single-threaded core is never touched concurrently.
func watchAndCompile(input string, compile func() error) error {
	if err := compile(); err != nil {
		reportError(err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "starting file watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(input); err != nil {
		return errors.Wrapf(err, "watching %s", input)
	}

	log.Infof("watching %s for changes", input)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Infof("%s changed, recompiling", input)
			if err := compile(); err != nil {
				reportError(err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorf("watcher error: %v", err)
		}
	}
}

func loadSettings(raw string) (settings.Settings, error) {
	if raw == "" {
		return settings.Default(), nil
	}
	data := []byte(raw)
	if raw[0] == '@' {
		b, err := os.ReadFile(raw[1:])
		if err != nil {
			return settings.Settings{}, errors.Wrapf(err, "reading settings file %s", raw[1:])
		}
		data = b
	}
	return settings.Parse(data)
}

var disasmCommand = &cli.Command{
	Name:  "disasm",
	Usage: "print an annotated opcode listing from a previously written artifacts JSON file (supplemented; does not evaluate bytecode)",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "path to an artifacts JSON file"},
		&cli.StringFlag{Name: "contract", Aliases: []string{"c"}, Usage: "contract to disassemble (default: main)"},
	},
	Action: runDisasm,
}

func runDisasm(c *cli.Context) error {
	data, err := os.ReadFile(c.String("input"))
	if err != nil {
		return errors.Wrapf(err, "reading %s", c.String("input"))
	}
	var art artifacts.Artifacts
	if err := json.Unmarshal(data, &art); err != nil {
		return err
	}

	name := c.String("contract")
	if name == "" {
		name = art.Main
	}
	contract, ok := art.Contracts[name]
	if !ok {
		return errors.Errorf("no contract named %q in artifacts", name)
	}

	pcToName := make(map[uint64]string, len(contract.Blocks))
	for blockName, b := range contract.Blocks {
		pcToName[b.PC] = blockName
	}

	bc := contract.Bytecode
	for pc := 0; pc < len(bc); {
		if name, ok := pcToName[uint64(pc)]; ok {
			fmt.Printf("%s:\n", name)
		}
		op := bc[pc]
		mnemonic, known := opcode.OpToMnemonic(op)
		if !known {
			fmt.Printf("  %04x: 0x%02x (unknown)\n", pc, op)
			pc++
			continue
		}
		if n, isPush := opcode.PushDataLength(op); isPush {
			end := pc + 1 + n
			if end > len(bc) {
				end = len(bc)
			}
			fmt.Printf("  %04x: %s 0x%x\n", pc, mnemonic, bc[pc+1:end])
			pc = end
			continue
		}
		fmt.Printf("  %04x: %s\n", pc, mnemonic)
		pc++
	}
	return nil
}
