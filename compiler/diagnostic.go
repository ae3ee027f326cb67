package compiler

import (
	"fmt"
	"strings"
)

// Kind classifies a semantic diagnostic.
type Kind int

const (
	UnknownClass Kind = iota
	CyclicInheritance
	InvalidBaseClass
	InvalidOverride
	TypeMismatch
	UndeclaredIdentifier
	ConstructorOrMethodNotFound
	UnimplementedForwardDeclaration
	InvalidThisUsage
	MissingOrInvalidReturn
	InvalidArrayIndexOrSize
	DuplicateMemberName
	AmbiguousCall
)

var kindNames = map[Kind]string{
	UnknownClass:                    "UnknownClass",
	CyclicInheritance:               "CyclicInheritance",
	InvalidBaseClass:                "InvalidBaseClass",
	InvalidOverride:                 "InvalidOverride",
	TypeMismatch:                    "TypeMismatch",
	UndeclaredIdentifier:            "UndeclaredIdentifier",
	ConstructorOrMethodNotFound:     "ConstructorOrMethodNotFound",
	UnimplementedForwardDeclaration: "UnimplementedForwardDeclaration",
	InvalidThisUsage:                "InvalidThisUsage",
	MissingOrInvalidReturn:          "MissingOrInvalidReturn",
	InvalidArrayIndexOrSize:         "InvalidArrayIndexOrSize",
	DuplicateMemberName:             "DuplicateMemberName",
	AmbiguousCall:                   "AmbiguousCall",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Severity separates blocking errors from warnings.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one finding of the Validator.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Message  string
	Pos      Position
}

func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Severity == SeverityWarning {
		b.WriteString("warning: ")
	}
	if d.Pos.Line > 0 {
		fmt.Fprintf(&b, "line %d, column %d: ", d.Pos.Line, d.Pos.Column)
	}
	fmt.Fprintf(&b, "%s: %s", d.Kind, d.Message)
	return b.String()
}

// Diagnostics is the ordered result of a Validator run.
type Diagnostics []Diagnostic

// HasErrors reports whether any diagnostic blocks code generation.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity diagnostics.
func (ds Diagnostics) Errors() Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Count returns how many diagnostics have the given kind.
func (ds Diagnostics) Count(kind Kind) int {
	n := 0
	for _, d := range ds {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Strings renders every diagnostic.
func (ds Diagnostics) Strings() []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}
