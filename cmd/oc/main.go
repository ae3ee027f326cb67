// oc - the O compiler: validates a program, generates a bytecode unit and
// optionally runs it.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/tliron/commonlog"

	"github.com/niotu/CompilerConstrction-sub000/driver"
	"github.com/niotu/CompilerConstrction-sub000/manifest"
	"github.com/niotu/CompilerConstrction-sub000/server"
	"github.com/niotu/CompilerConstrction-sub000/vm"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// config is the merged view of flags and oc.toml.
type config struct {
	source   string
	output   string
	entry    string
	run      bool
	disasm   bool
	dumpAST  bool
	report   string
	strict   bool
	verbose  int
	lspMode  bool
	moduleID string
}

func parseFlags(args []string, stderr io.Writer) (*config, error) {
	fs := flag.NewFlagSet("oc", flag.ContinueOnError)
	fs.SetOutput(stderr)

	output := fs.String("o", "", "Write the compiled unit to this path")
	runEntry := fs.Bool("run", false, "Run the program after compiling it")
	entry := fs.String("entry", "", "Class constructed by -run (default Main)")
	disasm := fs.Bool("disasm", false, "Print the disassembled unit")
	dumpAST := fs.Bool("dump-ast", false, "Dump the parsed program")
	report := fs.String("report", "text", "Report format: text or yaml")
	strict := fs.Bool("Werror", false, "Treat warnings as errors")
	verbose := fs.Int("v", 0, "Log verbosity (0 quiet, 1 info, 2 debug)")
	lspMode := fs.Bool("lsp", false, "Start the language server on stdio")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: oc [options] [file.o]\n\n")
		fmt.Fprintf(stderr, "Compiles an O program. Without a file, the nearest %s names the source.\n\n", manifest.FileName)
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  oc main.o                 # Check and compile main.o to main.obc\n")
		fmt.Fprintf(stderr, "  oc -run main.o            # Compile, then construct Main\n")
		fmt.Fprintf(stderr, "  oc -report yaml main.o    # Machine-readable diagnostics\n")
		fmt.Fprintf(stderr, "  oc -lsp                   # Language server for editors\n")
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := &config{
		output:  *output,
		entry:   *entry,
		run:     *runEntry,
		disasm:  *disasm,
		dumpAST: *dumpAST,
		report:  *report,
		strict:  *strict,
		verbose: *verbose,
		lspMode: *lspMode,
	}
	if cfg.report != "text" && cfg.report != "yaml" {
		return nil, fmt.Errorf("unknown report format %q", cfg.report)
	}
	if cfg.lspMode {
		return cfg, nil
	}

	switch fs.NArg() {
	case 0:
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		m, err := manifest.FindAndLoad(wd)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, fmt.Errorf("no source file given and no %s found", manifest.FileName)
		}
		cfg.source = m.SourcePath()
		cfg.moduleID = m.Project.Name
		if !set["o"] {
			cfg.output = m.OutputPath()
		}
		if !set["entry"] {
			cfg.entry = m.Project.Entry
		}
		if !set["disasm"] {
			cfg.disasm = m.Build.Disasm
		}
		if !set["Werror"] {
			cfg.strict = m.Build.WarningsAsErrors
		}
		if !set["v"] {
			cfg.verbose = m.Log.Verbosity
		}
	case 1:
		cfg.source = fs.Arg(0)
	default:
		return nil, fmt.Errorf("expected one source file, got %d", fs.NArg())
	}

	if cfg.output == "" {
		cfg.output = strings.TrimSuffix(cfg.source, filepath.Ext(cfg.source)) + ".obc"
	}
	if cfg.entry == "" {
		cfg.entry = "Main"
	}
	return cfg, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if err == flag.ErrHelp {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	commonlog.Configure(cfg.verbose, nil)
	log := commonlog.GetLogger("oc")

	if cfg.lspMode {
		if err := server.NewLSP().Run(); err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return 1
		}
		return 0
	}

	opts := driver.Options{ModuleName: cfg.moduleID, WarningsAsErrors: cfg.strict}
	if cfg.verbose > 0 {
		opts.Tracer = log
	}
	res, err := driver.CompileFile(cfg.source, opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if cfg.dumpAST && res.Program != nil {
		dumper := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true}
		dumper.Fdump(stdout, res.Program)
	}

	rep := newReport(cfg.source, res)
	if res.Failed() {
		rep.write(stdout, cfg.report)
		return 1
	}

	if err := driver.WriteModule(res.Module, cfg.output); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	log.Infof("wrote %s", cfg.output)
	rep.Output = cfg.output

	if cfg.disasm {
		fmt.Fprint(stdout, res.Module.Disassemble())
	}
	rep.write(stdout, cfg.report)

	if cfg.run {
		machine, err := vm.New(res.Module, vm.WithOutput(stdout), vm.WithLogger(log))
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if err := machine.Run(cfg.entry); err != nil {
			fmt.Fprintf(stderr, "Runtime error: %v\n", err)
			return 1
		}
	}
	return 0
}
