package compiler

import (
	"reflect"
	"strings"
	"testing"
)

const scenarioA = `
class Main is
  this() is
    var x := Integer(5)
    x.Print()
  end
end`

const scenarioB = `
class Animal is
  method speak() : Integer is
    return 1
  end
end
class Dog extends Animal is
  method speak() : Integer is
    return 2
  end
end
class Main is
  this() is
    var a : Animal
    a := Dog()
    a.speak().Print()
  end
end`

func validate(t *testing.T, source string) Diagnostics {
	t.Helper()
	diags, _ := Validate(mustParse(t, source))
	return diags
}

// expectKind fails unless diags holds exactly want diagnostics of kind.
func expectKind(t *testing.T, diags Diagnostics, kind Kind, want int) {
	t.Helper()
	if got := diags.Count(kind); got != want {
		t.Errorf("%s diagnostics = %d, want %d; all: %v", kind, got, want, diags.Strings())
	}
}

func expectClean(t *testing.T, diags Diagnostics) {
	t.Helper()
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags.Strings())
	}
}

func TestValidateScenarioA(t *testing.T) {
	expectClean(t, validate(t, scenarioA))
}

func TestValidateScenarioB(t *testing.T) {
	expectClean(t, validate(t, scenarioB))
}

func TestValidateScenarioCNegativeIndex(t *testing.T) {
	diags := validate(t, `
class Main is
  this() is
    var a : Array[Integer](3)
    a.get(-1)
  end
end`)
	expectKind(t, diags, InvalidArrayIndexOrSize, 1)
	if !diags.HasErrors() {
		t.Errorf("negative index must block code generation")
	}
}

func TestValidateScenarioDDuplicateMethod(t *testing.T) {
	diags := validate(t, `
class Calc is
  method combine(a: Integer, b: Integer) : Integer => a.Plus(b)
  method combine(a: Integer, b: Integer) : Integer => a.Mult(b)
end`)
	expectKind(t, diags, DuplicateMemberName, 1)
}

func TestValidateScenarioEUnimplementedForward(t *testing.T) {
	diags := validate(t, `
class Animal is
  method speak() : Integer
end`)
	expectKind(t, diags, UnimplementedForwardDeclaration, 1)
	expectKind(t, diags, MissingOrInvalidReturn, 0)
}

func TestValidateForwardDeclarationImplemented(t *testing.T) {
	expectClean(t, validate(t, `
class Animal is
  method speak() : Integer
  method talk() : Integer => speak()
  method speak() : Integer => 3
end`))
}

func TestValidateCyclicInheritanceReportedOncePerClass(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   int
	}{
		{"self", `class C extends C is end`, 1},
		{"pair", `class A extends B is end
class B extends A is end`, 2},
		{"chain into cycle", `class A extends B is end
class B extends A is end
class D extends A is end`, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			diags := validate(t, tc.source)
			expectKind(t, diags, CyclicInheritance, tc.want)
			for _, d := range diags {
				if d.Kind == CyclicInheritance && strings.Contains(d.Message, "class D") {
					t.Errorf("D is not on the cycle: %s", d)
				}
			}
		})
	}
}

func TestValidateHierarchy(t *testing.T) {
	diags := validate(t, `
class A extends Missing is end
class B extends Integer is end
class C extends List is end`)
	expectKind(t, diags, UnknownClass, 1)
	expectKind(t, diags, InvalidBaseClass, 2)
}

func TestValidateMissingReturn(t *testing.T) {
	diags := validate(t, `
class A is
  method f() : Integer is
    var x : 1
  end
  method g() is
    return 1
  end
  method h() : Integer is
    return
  end
  method k() : Integer is
    return true
  end
end`)
	expectKind(t, diags, MissingOrInvalidReturn, 4)
}

func TestValidateReturnInsideBranchCounts(t *testing.T) {
	expectClean(t, validate(t, `
class A is
  method f(b: Boolean) : Integer is
    if b then
      return 1
    end
    return 2
  end
end`))
}

func TestValidateUndeclaredIdentifier(t *testing.T) {
	diags := validate(t, `
class A is
  var early : later
  var later : 1
  this() is
    y.Print()
    var z : z
    missing()
  end
end`)
	expectKind(t, diags, UndeclaredIdentifier, 4)
}

func TestValidateFieldsVisibleInMethodsAndSubclasses(t *testing.T) {
	expectClean(t, validate(t, `
class Base is
  var count : 0
end
class A extends Base is
  var total : count.Plus(1)
  method get() : Integer => total.Plus(count)
  method set(v: Integer) is
    count := v
    this.total := v
  end
end`))
}

func TestValidateTypeMismatch(t *testing.T) {
	diags := validate(t, `
class A is
  this() is
    var i : 1
    i := 2.5
    var r : 1.5
    r := 3
    if i then
    end
    while r.Less(2) loop
    end
  end
end`)
	expectKind(t, diags, TypeMismatch, 2)
}

func TestValidateMethodCalls(t *testing.T) {
	diags := validate(t, `
class A is
  method f(x: Integer) : Integer => x
  this() is
    f(1, 2)
    f(true)
    5.Plus(1, 2)
    5.Plus(true)
    5.Frobnicate()
    this.nothing()
  end
end`)
	expectKind(t, diags, ConstructorOrMethodNotFound, 3)
	expectKind(t, diags, TypeMismatch, 2)
	expectKind(t, diags, InvalidThisUsage, 1)
}

func TestValidateAmbiguousCall(t *testing.T) {
	diags := validate(t, `
class A is
  method f(x: Real, y: Integer) is end
  method f(x: Integer, y: Real) is end
  this() is
    f(1, 2)
    f(1, 2.0)
  end
end`)
	expectKind(t, diags, AmbiguousCall, 1)
}

func TestValidateConstructorCalls(t *testing.T) {
	diags := validate(t, `
class P is
  this(x: Integer) is end
end
class A is
  this() is
    var p : P(1)
    var q : P()
    var r : P(true)
    var b : Boolean(1)
    var l : List[Integer](1, 2, 3)
  end
end`)
	expectKind(t, diags, ConstructorOrMethodNotFound, 2)
	expectKind(t, diags, TypeMismatch, 2)
}

func TestValidateImplicitBaseConstructor(t *testing.T) {
	diags := validate(t, `
class P is
  this(x: Integer) is end
end
class C extends P is end`)
	expectKind(t, diags, ConstructorOrMethodNotFound, 1)
}

func TestValidateOverride(t *testing.T) {
	diags := validate(t, `
class Animal is
  method speak() : Integer => 1
  method name(x: Integer) : Integer => x
end
class Dog extends Animal is
  method speak() : Boolean => true
  method name(x: Real) : Real => x
end`)
	expectKind(t, diags, InvalidOverride, 1)
}

func TestValidateThisUsage(t *testing.T) {
	diags := validate(t, `
class A is
  var f : 1
  this() is
    this := A()
    this.f := 2
    this.g := 3
  end
end`)
	expectKind(t, diags, InvalidThisUsage, 2)
}

func TestValidateArrayIndexAndSize(t *testing.T) {
	diags := validate(t, `
class A is
  var items : Array[Integer](4)
  this() is
    var a : Array[Integer](3)
    a.get(3)
    a.get(2)
    a.set(1.5, 1)
    this.items.get(7)
    var neg : Array[Integer](-2)
    var empty : Array[Integer](0)
  end
end`)
	expectKind(t, diags, InvalidArrayIndexOrSize, 5)
	warnings := 0
	for _, d := range diags {
		if d.Severity == SeverityWarning {
			warnings++
		}
	}
	if warnings != 1 {
		t.Errorf("warnings = %d, want 1", warnings)
	}
	expectKind(t, diags, TypeMismatch, 0)
}

func TestValidateZeroSizeIsOnlyWarning(t *testing.T) {
	diags := validate(t, `
class A is
  this() is
    var empty : Array[Integer](0)
  end
end`)
	if len(diags) != 1 || diags.HasErrors() {
		t.Errorf("want a single warning, got %v", diags.Strings())
	}
}

func TestValidateDuplicates(t *testing.T) {
	diags := validate(t, `
class A is
  var x : 1
  var x : 2
  method x() is end
  method f(a: Integer) is end
  method f(a: Real) is end
  this() is end
  this() is end
end
class A is end`)
	expectKind(t, diags, DuplicateMemberName, 4)
}

func TestValidateUnknownTypes(t *testing.T) {
	diags := validate(t, `
class Box[T] is
  method put(x: T) : Box[T] => this
  method bad(x: Nope) is end
end`)
	expectKind(t, diags, UnknownClass, 1)
}

func TestValidateArrayFieldRoundTrip(t *testing.T) {
	prog := mustParse(t, `
class Holder is
  var data : Array[Integer](5)
  method first(i: Integer) : Integer => data.get(i)
end`)
	reg := NewRegistry()
	v := NewValidator(reg)
	expectClean(t, v.Validate(prog))

	holder := prog.Classes[0]
	sym := v.fieldSymbol(holder, holder.Fields()[0])
	if got := sym.Type.String(); got != "Array[Integer]" {
		t.Errorf("data type = %s, want Array[Integer]", got)
	}
	if sym.Len != 5 {
		t.Errorf("data length = %d, want 5", sym.Len)
	}
}

func TestValidateContainers(t *testing.T) {
	expectClean(t, validate(t, `
class A is
  this() is
    var l : List[Integer](7, 3)
    l := l.append(8)
    var n : l.Length.Plus(l.head())
    var a : Array[Real](2)
    a.set(0, 1)
    a.set(1, a.get(0).Plus(0.5))
    var back : a.toList()
    back.isEmpty().Not().Print()
  end
end`))
}

func TestValidateIdempotent(t *testing.T) {
	prog := mustParse(t, `
class A extends A is
  method f() : Integer
  this() is
    y.Print()
  end
end`)
	v := NewValidator(NewRegistry())
	first := v.Validate(prog)
	second := v.Validate(prog)
	if len(first) == 0 {
		t.Fatalf("expected diagnostics")
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("runs differ:\n%v\n%v", first.Strings(), second.Strings())
	}
}

func TestValidateDiagnosticsCarryPositions(t *testing.T) {
	diags := validate(t, `class A is
  this() is
    missing.Print()
  end
end`)
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %v", diags.Strings())
	}
	if diags[0].Pos.Line != 3 || diags[0].Pos.Column != 5 {
		t.Errorf("position = %d:%d, want 3:5", diags[0].Pos.Line, diags[0].Pos.Column)
	}
	if !strings.Contains(diags[0].String(), "line 3, column 5: UndeclaredIdentifier") {
		t.Errorf("String() = %q", diags[0].String())
	}
}

func TestValidateBranchAssignmentForgetsArrayLength(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   int
	}{
		{"if", `
class Main is
  this() is
    var a := Array[Integer](10)
    if false then
      a := Array[Integer](3)
    end
    a.get(5).Print()
  end
end`, 0},
		{"while", `
class Main is
  this() is
    var a := Array[Integer](10)
    while false loop
      a := Array[Integer](3)
    end
    a.get(5).Print()
  end
end`, 0},
		{"same block", `
class Main is
  this() is
    var a := Array[Integer](10)
    a := Array[Integer](3)
    a.get(5).Print()
  end
end`, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expectKind(t, validate(t, tc.source), InvalidArrayIndexOrSize, tc.want)
		})
	}
}

func TestValidateForwardImplementedBySubclass(t *testing.T) {
	expectClean(t, validate(t, `
class Animal is
  method speak() : Integer
  method twice() : Integer => speak().Mult(2)
end
class Dog extends Animal is
  method speak() : Integer is
    return 1
  end
end`))

	diags := validate(t, `
class Animal is
  method speak() : Integer
end
class Dog extends Animal is
  method speak() : Integer => 1
end
class Cat extends Animal is
  method speak() : Integer => 2
end
class Robot is
  method speak() : Integer => 3
end`)
	expectKind(t, diags, UnimplementedForwardDeclaration, 1)
	if len(diags) > 0 && !strings.Contains(diags[0].Message, "2 implementations") {
		t.Errorf("message = %q", diags[0].Message)
	}
}

func TestValidateMethodNameIsNotAValue(t *testing.T) {
	diags := validate(t, `
class A is
  method f() : Integer => 1
  this() is
    var g := f
  end
end
class B extends A is
  this() is
    var h := f
  end
end`)
	expectKind(t, diags, UndeclaredIdentifier, 0)
	expectKind(t, diags, TypeMismatch, 2)
	for _, d := range diags {
		if !strings.Contains(d.Message, "method f is not a value") {
			t.Errorf("unexpected diagnostic %s", d)
		}
	}
}
