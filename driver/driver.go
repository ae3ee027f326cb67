// Package driver runs the compiler pipeline: parse, validate, and, when the
// program has no errors, generate the executable unit.
package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/niotu/CompilerConstrction-sub000/codegen"
	"github.com/niotu/CompilerConstrction-sub000/compiler"
	"github.com/niotu/CompilerConstrction-sub000/pkg/bytecode"
	"github.com/tliron/commonlog"
)

// Stage names a pipeline step.
type Stage string

const (
	StageParse    Stage = "parse"
	StageValidate Stage = "validate"
	StageGenerate Stage = "generate"
)

// Options configures one compilation.
type Options struct {
	// ModuleName names the produced unit; defaults to "main".
	ModuleName string

	// WarningsAsErrors blocks code generation on warnings too.
	WarningsAsErrors bool

	// Tracer receives pass-level tracing from the Validator and the
	// generator. Nil keeps them silent.
	Tracer commonlog.Logger
}

// Result is the outcome of one compilation. Module is nil unless every
// stage succeeded.
type Result struct {
	Program      *compiler.Program
	SyntaxErrors []*compiler.SyntaxError
	Diagnostics  compiler.Diagnostics
	Module       *bytecode.Module

	// Registry holds the program's classes once validation ran.
	Registry *compiler.Registry

	// Stage is the last stage that ran.
	Stage Stage
}

// Failed reports whether the program was rejected.
func (r *Result) Failed() bool {
	return r.Module == nil
}

// Messages renders the syntax errors and diagnostics in report order.
func (r *Result) Messages() []string {
	var out []string
	for _, e := range r.SyntaxErrors {
		out = append(out, e.Error())
	}
	return append(out, r.Diagnostics.Strings()...)
}

// Analyze parses and validates source without generating code.
func Analyze(source string, opts Options) *Result {
	return analyze(source, opts, compiler.NewRegistry())
}

func analyze(source string, opts Options, reg *compiler.Registry) *Result {
	res := &Result{Stage: StageParse}
	prog, err := compiler.ParseProgramFromString(source)
	res.Program = prog
	if err != nil {
		var pe *compiler.ParseErrors
		if errors.As(err, &pe) {
			res.SyntaxErrors = pe.List
		} else {
			res.SyntaxErrors = []*compiler.SyntaxError{{Msg: err.Error()}}
		}
		return res
	}

	res.Stage = StageValidate
	res.Registry = reg
	var vopts []compiler.ValidatorOption
	if opts.Tracer != nil {
		vopts = append(vopts, compiler.WithTracer(opts.Tracer))
	}
	res.Diagnostics = compiler.NewValidator(reg, vopts...).Validate(prog)
	return res
}

// blocked reports whether res must not reach code generation.
func blocked(res *Result, opts Options) bool {
	if len(res.SyntaxErrors) > 0 || res.Diagnostics.HasErrors() {
		return true
	}
	return opts.WarningsAsErrors && len(res.Diagnostics) > 0
}

// Compile runs the whole pipeline over source. Rejected programs come back
// as a Result with a nil Module; the error is reserved for failures of the
// generator or the target.
func Compile(source string, opts Options) (*Result, error) {
	reg := compiler.NewRegistry()
	res := analyze(source, opts, reg)
	if blocked(res, opts) {
		return res, nil
	}

	res.Stage = StageGenerate
	name := opts.ModuleName
	if name == "" {
		name = "main"
	}
	var gopts []codegen.Option
	if opts.Tracer != nil {
		gopts = append(gopts, codegen.WithTracer(opts.Tracer))
	}
	mod, err := codegen.Compile(reg, res.Program, name, gopts...)
	if err != nil {
		return res, err
	}
	res.Module = mod
	return res, nil
}

// CompileFile reads and compiles path. The module is named after the file
// unless opts names it.
func CompileFile(path string, opts Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if opts.ModuleName == "" {
		opts.ModuleName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return Compile(string(data), opts)
}

// WriteModule serializes mod to path.
func WriteModule(mod *bytecode.Module, path string) error {
	data, err := mod.MarshalBinary()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}
