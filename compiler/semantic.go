package compiler

import (
	"fmt"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Validator: semantic checks run before code generation
// ---------------------------------------------------------------------------

// Validator accepts or rejects a program. It runs a fixed battery of checks,
// each as its own pass over the whole program, and accumulates every
// diagnostic instead of stopping at the first one.
type Validator struct {
	reg    *Registry
	tracer commonlog.Logger

	diags Diagnostics

	// Field symbols are inferred lazily from initializers and memoized for
	// the duration of one run.
	fields    map[*FieldDecl]Symbol
	inferring map[*FieldDecl]bool
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithTracer sends pass-level tracing to log.
func WithTracer(log commonlog.Logger) ValidatorOption {
	return func(v *Validator) {
		if log != nil {
			v.tracer = log
		}
	}
}

// NewValidator creates a validator that registers user classes in reg.
func NewValidator(reg *Registry, opts ...ValidatorOption) *Validator {
	v := &Validator{
		reg:    reg,
		tracer: commonlog.MockLogger{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// pass is one named check over the whole program.
type pass struct {
	name string
	run  func(prog *Program)
}

func (v *Validator) passes() []pass {
	return []pass{
		{"keyword context", v.checkKeywordContext},
		{"declaration before use", v.checkDeclarationBeforeUse},
		{"class hierarchy", v.checkHierarchy},
		{"override compatibility", v.checkOverrides},
		{"type compatibility", v.checkTypes},
		{"constructor calls", v.checkConstructorCalls},
		{"forward declarations", v.checkForwardDeclarations},
		{"self reference", v.checkThisUsage},
		{"return discipline", v.checkReturns},
		{"index and size", v.checkIndexAndSize},
		{"member uniqueness", v.checkUniqueness},
	}
}

// Validate runs every check over prog and returns the diagnostics in check
// order. User classes of any earlier run are dropped first, so validating
// the same program twice gives the same result.
func (v *Validator) Validate(prog *Program) Diagnostics {
	v.diags = nil
	v.fields = make(map[*FieldDecl]Symbol)
	v.inferring = make(map[*FieldDecl]bool)
	v.reg.ResetClasses()
	if prog == nil {
		return nil
	}

	for _, class := range prog.Classes {
		if !v.reg.AddClass(class) {
			v.tracer.Debugf("class %s declared again; keeping the first declaration", class.Name)
		}
	}

	for i, p := range v.passes() {
		before := len(v.diags)
		p.run(prog)
		v.tracer.Debugf("check %d (%s): %d diagnostics", i+1, p.name, len(v.diags)-before)
	}
	return v.diags
}

// errorAt records an error-severity diagnostic at node.
func (v *Validator) errorAt(kind Kind, node Node, format string, args ...interface{}) {
	v.diags = append(v.diags, Diagnostic{
		Kind:     kind,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Pos:      positionOf(node),
	})
}

// warnAt records a warning at node.
func (v *Validator) warnAt(kind Kind, node Node, format string, args ...interface{}) {
	v.diags = append(v.diags, Diagnostic{
		Kind:     kind,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
		Pos:      positionOf(node),
	})
}

func positionOf(node Node) Position {
	if node == nil {
		return Position{}
	}
	return node.Span().Start
}

// Validate is a convenience wrapper that validates prog against a fresh
// registry.
func Validate(prog *Program) (Diagnostics, *Registry) {
	reg := NewRegistry()
	return NewValidator(reg).Validate(prog), reg
}
