package compiler

import (
	"testing"
)

// ---------------------------------------------------------------------------
// FuzzLexer: ensure the lexer never panics on arbitrary input.
// ---------------------------------------------------------------------------

func FuzzLexer(f *testing.F) {
	seeds := []string{
		`( ) [ ] , . : := =>`,
		`42`, `-7`, `3.14`, `-0.5`, `5.Plus(1)`,
		`class A extends B is end`,
		`// comment only`,
		`var x : Array[Integer](3)`,
		"\x00", "é", "-", ".",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		tokens := Tokenize(input)
		if len(tokens) == 0 || tokens[len(tokens)-1].Type != TokenEOF {
			t.Fatalf("Tokenize(%q) did not end with EOF", input)
		}
	})
}

// ---------------------------------------------------------------------------
// FuzzValidate: parsing and validating arbitrary input never panics.
// ---------------------------------------------------------------------------

func FuzzValidate(f *testing.F) {
	seeds := []string{
		scenarioA,
		scenarioB,
		`class A extends A is end`,
		`class A is method m() : Integer end`,
		`class A is this() is var a : Array[Integer](3) a.get(-1) end end`,
		`class A is var x : this.x end`,
		`class A is method f(x: Integer) : Integer => f(x) end`,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		prog := NewParser(input).ParseProgram()
		Validate(prog)
	})
}
