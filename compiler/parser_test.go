package compiler

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, source string) *Program {
	t.Helper()
	p := NewParser(source)
	prog := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	return prog
}

func TestParseClassHeader(t *testing.T) {
	prog := mustParse(t, `
class Box[T] extends Base is
end
class Base is
end`)

	if len(prog.Classes) != 2 {
		t.Fatalf("got %d classes, want 2", len(prog.Classes))
	}
	box := prog.Classes[0]
	if box.Name != "Box" || box.GenericParam != "T" || box.BaseName != "Base" {
		t.Errorf("header = %s[%s] extends %s", box.Name, box.GenericParam, box.BaseName)
	}
	if box.Span().Start.Line != 2 {
		t.Errorf("class starts on line %d, want 2", box.Span().Start.Line)
	}
}

func TestParseMembers(t *testing.T) {
	prog := mustParse(t, `
class Counter is
  var count : Integer(0)
  var items := Array[Real](4)
  this(start: Integer) is
    count := start
  end
  method inc(by: Integer) : Integer is
    count := count.Plus(by)
    return count
  end
  method get() : Integer => count
  method reset()
  method reset() is count := 0 end
end`)

	c := prog.Classes[0]
	if got := len(c.Fields()); got != 2 {
		t.Errorf("fields = %d, want 2", got)
	}
	if got := len(c.Constructors()); got != 1 {
		t.Errorf("constructors = %d, want 1", got)
	}
	methods := c.Methods()
	if len(methods) != 4 {
		t.Fatalf("methods = %d, want 4", len(methods))
	}

	inc := methods[0]
	if inc.Name != "inc" || len(inc.Params) != 1 || !inc.Params[0].Type.Equal(IntegerType) || !inc.ReturnType.Equal(IntegerType) {
		t.Errorf("inc = %s(%v) : %s", inc.Name, inc.Params, inc.ReturnType)
	}
	if len(inc.Body) != 2 {
		t.Errorf("inc body has %d statements, want 2", len(inc.Body))
	}

	get := methods[1]
	if ret, ok := get.Body[0].(*Return); !ok || ret.Value == nil {
		t.Errorf("expression-bodied method body = %#v, want a return with value", get.Body)
	}

	if !methods[2].Forward || methods[3].Forward {
		t.Errorf("forward flags = %v %v, want true false", methods[2].Forward, methods[3].Forward)
	}
	if !methods[2].ReturnType.IsVoid() {
		t.Errorf("reset return type = %s, want void", methods[2].ReturnType)
	}

	items := c.Fields()[1]
	cc, ok := items.Init.(*ConstructorCall)
	if !ok || cc.Type.String() != "Array[Real]" {
		t.Errorf("items init = %#v, want Array[Real] constructor call", items.Init)
	}
}

func TestParseConstructorVersusMethodCall(t *testing.T) {
	prog := mustParse(t, `
class A is
  method make() : A => A()
  method twice(x: Integer) : Integer => double(x)
  method double(x: Integer) : Integer => x.Mult(2)
  method dog() : Dog => Dog
end
class Dog is end`)

	methods := prog.Classes[0].Methods()
	if _, ok := methods[0].Body[0].(*Return).Value.(*ConstructorCall); !ok {
		t.Errorf("A() should parse as a constructor call")
	}
	call, ok := methods[1].Body[0].(*Return).Value.(*Call)
	if !ok {
		t.Fatalf("double(x) should parse as a call")
	}
	if id, ok := call.Callee.(*Identifier); !ok || id.Name != "double" {
		t.Errorf("callee = %#v, want identifier double", call.Callee)
	}
	cc, ok := methods[3].Body[0].(*Return).Value.(*ConstructorCall)
	if !ok || cc.Type.Name != "Dog" || len(cc.Args) != 0 {
		t.Errorf("bare class name = %#v, want zero-argument constructor call", methods[3].Body[0])
	}
}

func TestParseStatements(t *testing.T) {
	prog := mustParse(t, `
class A is
  var f : 0
  this() is
    var i : Integer(0)
    while i.Less(10) loop
      if i.Equal(5) then
        this.f := i
      else
        i.Print()
      end
      i := i.Plus(1)
    end
    return
  end
end`)

	body := prog.Classes[0].Constructors()[0].Body
	if len(body) != 3 {
		t.Fatalf("body has %d statements, want 3", len(body))
	}
	loop, ok := body[1].(*While)
	if !ok {
		t.Fatalf("body[1] = %T, want *While", body[1])
	}
	ifStmt, ok := loop.Body[0].(*If)
	if !ok {
		t.Fatalf("loop body[0] = %T, want *If", loop.Body[0])
	}
	assign, ok := ifStmt.Then[0].(*Assignment)
	if !ok {
		t.Fatalf("then[0] = %T, want *Assignment", ifStmt.Then[0])
	}
	if m, ok := assign.Target.(*MemberAccess); !ok || m.Member != "f" {
		t.Errorf("assignment target = %#v, want this.f", assign.Target)
	}
	if len(ifStmt.Else) != 1 {
		t.Errorf("else has %d statements, want 1", len(ifStmt.Else))
	}
	if ret, ok := body[2].(*Return); !ok || ret.Value != nil {
		t.Errorf("body[2] = %#v, want bare return", body[2])
	}
}

func TestParseReturnValueOnSameLineOnly(t *testing.T) {
	prog := mustParse(t, `
class A is
  method m() is
    return
    x()
  end
  method x() is end
end`)

	body := prog.Classes[0].Methods()[0].Body
	if len(body) != 2 {
		t.Fatalf("body has %d statements, want 2", len(body))
	}
	if ret := body[0].(*Return); ret.Value != nil {
		t.Errorf("return picked up the next line's expression")
	}
}

func TestParseChainedCalls(t *testing.T) {
	prog := mustParse(t, `
class A is
  this() is
    List[Integer]().append(1).append(2).Length.Print()
  end
end`)

	stmt := prog.Classes[0].Constructors()[0].Body[0].(*ExprStmt)
	call, ok := stmt.Expr.(*Call)
	if !ok {
		t.Fatalf("expr = %T, want *Call", stmt.Expr)
	}
	m := call.Callee.(*MemberAccess)
	if m.Member != "Print" {
		t.Errorf("outer member = %s, want Print", m.Member)
	}
	if length, ok := m.Target.(*MemberAccess); !ok || length.Member != "Length" {
		t.Errorf("Print target = %#v, want .Length", m.Target)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"missing is", `class A end`, "expected is"},
		{"bad member", `class A is 42 end`, "expected member declaration"},
		{"bad assignment target", `class A is this() is 1 := 2 end end`, "invalid assignment target"},
		{"unterminated params", `class A is method m(x: Integer is end end`, "expected ',' or ')'"},
		{"stray token", `42`, "expected class declaration"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := NewParser(tc.source)
			p.ParseProgram()
			errs := p.Errors()
			if len(errs) == 0 {
				t.Fatalf("expected parse errors")
			}
			if !strings.Contains(errs[0].Error(), tc.want) {
				t.Errorf("error = %q, want it to contain %q", errs[0].Error(), tc.want)
			}
		})
	}
}

func TestParseRecoversAtNextClass(t *testing.T) {
	p := NewParser(`
class Broken is
  method m( is end
end
class Fine is
end`)
	prog := p.ParseProgram()
	if len(p.Errors()) == 0 {
		t.Fatalf("expected parse errors")
	}
	found := false
	for _, c := range prog.Classes {
		if c.Name == "Fine" {
			found = true
		}
	}
	if !found {
		t.Errorf("parser did not recover at the next class")
	}
}

func TestParseProgramFromString(t *testing.T) {
	if _, err := ParseProgramFromString(`class A is end`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := ParseProgramFromString(`class is`)
	if err == nil || !strings.Contains(err.Error(), "parse error") {
		t.Errorf("err = %v, want parse error", err)
	}
}
