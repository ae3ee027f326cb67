package vm

import (
	"fmt"
	"math"

	"fortio.org/safecast"
)

// NativeFunc implements one runtime support operation. typeArg is the
// concrete element type of a container operation and "" otherwise. For
// method operations args[0] is the receiver.
type NativeFunc func(vm *VM, typeArg string, args []Value) (Value, error)

// natives is the runtime support table keyed by catalogue signature.
var natives = map[string]NativeFunc{}

func registerNative(key string, fn NativeFunc) {
	if _, dup := natives[key]; dup {
		panic("vm: native registered twice: " + key)
	}
	natives[key] = fn
}

// LookupNative returns the runtime support operation for key.
func LookupNative(key string) (NativeFunc, bool) {
	fn, ok := natives[key]
	return fn, ok
}

// NativeCount returns the number of registered operations.
func NativeCount() int {
	return len(natives)
}

func init() {
	registerNumericNatives()
	registerBooleanNatives()
	registerContainerNatives()
}

// ---------------------------------------------------------------------------
// Integer and Real
// ---------------------------------------------------------------------------

func registerNumericNatives() {
	registerNative("Integer.new()", func(_ *VM, _ string, _ []Value) (Value, error) {
		return FromInt(0), nil
	})
	registerNative("Integer.new(Integer)", func(_ *VM, _ string, args []Value) (Value, error) {
		return FromInt(args[0].Int()), nil
	})
	registerNative("Integer.new(Real)", func(_ *VM, _ string, args []Value) (Value, error) {
		return truncate(args[0].Real())
	})
	registerNative("Real.new()", func(_ *VM, _ string, _ []Value) (Value, error) {
		return FromReal(0), nil
	})
	registerNative("Real.new(Real)", func(_ *VM, _ string, args []Value) (Value, error) {
		return FromReal(args[0].Real()), nil
	})
	registerNative("Real.new(Integer)", func(_ *VM, _ string, args []Value) (Value, error) {
		return FromReal(args[0].Real()), nil
	})

	for _, owner := range []string{"Integer", "Real"} {
		for _, param := range []string{"Integer", "Real"} {
			intResult := owner == "Integer" && param == "Integer"
			for name, op := range arithmetic {
				registerNative(fmt.Sprintf("%s.%s(%s)", owner, name, param), arithmeticNative(op, intResult))
			}
			for name, cmp := range comparisons {
				cmp := cmp
				registerNative(fmt.Sprintf("%s.%s(%s)", owner, name, param), func(_ *VM, _ string, args []Value) (Value, error) {
					if args[0].Kind() == KindInt && args[1].Kind() == KindInt {
						return FromBool(cmp(compareInts(args[0].Int(), args[1].Int()))), nil
					}
					return FromBool(cmp(compareReals(args[0].Real(), args[1].Real()))), nil
				})
			}
		}
		registerNative(owner+".Print()", printNative)
	}

	registerNative("Integer.Rem(Integer)", func(_ *VM, _ string, args []Value) (Value, error) {
		if args[1].Int() == 0 {
			return Nil, runtimeErrorf("Integer.Rem: division by zero")
		}
		return FromInt(args[0].Int() % args[1].Int()), nil
	})
	registerNative("Real.Rem(Integer)", func(_ *VM, _ string, args []Value) (Value, error) {
		return FromReal(math.Mod(args[0].Real(), args[1].Real())), nil
	})
	registerNative("Integer.UnaryMinus()", func(_ *VM, _ string, args []Value) (Value, error) {
		return FromInt(-args[0].Int()), nil
	})
	registerNative("Real.UnaryMinus()", func(_ *VM, _ string, args []Value) (Value, error) {
		return FromReal(-args[0].Real()), nil
	})
	registerNative("Integer.toReal()", func(_ *VM, _ string, args []Value) (Value, error) {
		return FromReal(args[0].Real()), nil
	})
	registerNative("Integer.toBoolean()", func(_ *VM, _ string, args []Value) (Value, error) {
		return FromBool(args[0].Int() != 0), nil
	})
	registerNative("Real.toInteger()", func(_ *VM, _ string, args []Value) (Value, error) {
		return truncate(args[0].Real())
	})
}

var arithmetic = map[string]func(a, b Value, intResult bool) (Value, error){
	"Plus": func(a, b Value, intResult bool) (Value, error) {
		if intResult {
			return FromInt(a.Int() + b.Int()), nil
		}
		return FromReal(a.Real() + b.Real()), nil
	},
	"Minus": func(a, b Value, intResult bool) (Value, error) {
		if intResult {
			return FromInt(a.Int() - b.Int()), nil
		}
		return FromReal(a.Real() - b.Real()), nil
	},
	"Mult": func(a, b Value, intResult bool) (Value, error) {
		if intResult {
			return FromInt(a.Int() * b.Int()), nil
		}
		return FromReal(a.Real() * b.Real()), nil
	},
	"Div": func(a, b Value, intResult bool) (Value, error) {
		if intResult {
			if b.Int() == 0 {
				return Nil, runtimeErrorf("Integer.Div: division by zero")
			}
			return FromInt(a.Int() / b.Int()), nil
		}
		return FromReal(a.Real() / b.Real()), nil
	},
}

func arithmeticNative(op func(a, b Value, intResult bool) (Value, error), intResult bool) NativeFunc {
	return func(_ *VM, _ string, args []Value) (Value, error) {
		return op(args[0], args[1], intResult)
	}
}

var comparisons = map[string]func(c int) bool{
	"Less":         func(c int) bool { return c < 0 },
	"LessEqual":    func(c int) bool { return c <= 0 },
	"Greater":      func(c int) bool { return c > 0 },
	"GreaterEqual": func(c int) bool { return c >= 0 },
	"Equal":        func(c int) bool { return c == 0 },
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareReals(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	case a == b:
		return 0
	}
	return 2 // NaN compares unequal and unordered
}

// truncate narrows a Real to an Integer, failing when it does not fit.
func truncate(f float64) (Value, error) {
	n, err := safecast.Truncate[int64](f)
	if err != nil {
		return Nil, runtimeErrorf("cannot convert %g to Integer: %v", f, err)
	}
	return FromInt(n), nil
}

func printNative(vm *VM, _ string, args []Value) (Value, error) {
	if _, err := fmt.Fprintln(vm.Out, args[0].String()); err != nil {
		return Nil, fmt.Errorf("vm: print: %w", err)
	}
	return Nil, nil
}

// ---------------------------------------------------------------------------
// Boolean
// ---------------------------------------------------------------------------

func registerBooleanNatives() {
	registerNative("Boolean.new()", func(_ *VM, _ string, _ []Value) (Value, error) {
		return False, nil
	})
	registerNative("Boolean.new(Boolean)", func(_ *VM, _ string, args []Value) (Value, error) {
		return FromBool(args[0].Bool()), nil
	})
	registerNative("Boolean.And(Boolean)", func(_ *VM, _ string, args []Value) (Value, error) {
		return FromBool(args[0].Bool() && args[1].Bool()), nil
	})
	registerNative("Boolean.Or(Boolean)", func(_ *VM, _ string, args []Value) (Value, error) {
		return FromBool(args[0].Bool() || args[1].Bool()), nil
	})
	registerNative("Boolean.Xor(Boolean)", func(_ *VM, _ string, args []Value) (Value, error) {
		return FromBool(args[0].Bool() != args[1].Bool()), nil
	})
	registerNative("Boolean.Not()", func(_ *VM, _ string, args []Value) (Value, error) {
		return FromBool(!args[0].Bool()), nil
	})
	registerNative("Boolean.toInteger()", func(_ *VM, _ string, args []Value) (Value, error) {
		if args[0].Bool() {
			return FromInt(1), nil
		}
		return FromInt(0), nil
	})
	registerNative("Boolean.Print()", printNative)
}

// ---------------------------------------------------------------------------
// Array and List
// ---------------------------------------------------------------------------

func registerContainerNatives() {
	registerNative("Array.new(Integer)", func(_ *VM, typeArg string, args []Value) (Value, error) {
		n := args[0].Int()
		if n < 0 {
			return Nil, runtimeErrorf("Array size %d is negative", n)
		}
		return FromArray(NewArray(typeArg, int(n))), nil
	})
	registerNative("Array.get(Integer)", func(_ *VM, _ string, args []Value) (Value, error) {
		a, i, err := arrayIndex(args)
		if err != nil {
			return Nil, err
		}
		return a.Items[i], nil
	})
	registerNative("Array.set(Integer,T)", func(_ *VM, _ string, args []Value) (Value, error) {
		a, i, err := arrayIndex(args)
		if err != nil {
			return Nil, err
		}
		a.Items[i] = args[2]
		return Nil, nil
	})
	registerNative("Array.Length()", func(_ *VM, _ string, args []Value) (Value, error) {
		a := args[0].Array()
		if a == nil {
			return Nil, runtimeErrorf("Array.Length on %s", args[0].Kind())
		}
		return FromInt(int64(len(a.Items))), nil
	})
	registerNative("Array.toList()", func(_ *VM, _ string, args []Value) (Value, error) {
		a := args[0].Array()
		if a == nil {
			return Nil, runtimeErrorf("Array.toList on %s", args[0].Kind())
		}
		l := NewList(a.Elem)
		l.Items = append(l.Items, a.Items...)
		return FromList(l), nil
	})

	registerNative("List.new()", func(_ *VM, typeArg string, _ []Value) (Value, error) {
		return FromList(NewList(typeArg)), nil
	})
	registerNative("List.new(T)", func(_ *VM, typeArg string, args []Value) (Value, error) {
		l := NewList(typeArg)
		l.Items = append(l.Items, args[0])
		return FromList(l), nil
	})
	registerNative("List.new(T,Integer)", func(_ *VM, typeArg string, args []Value) (Value, error) {
		l := NewList(typeArg)
		for n := args[1].Int(); n > 0; n-- {
			l.Items = append(l.Items, args[0])
		}
		return FromList(l), nil
	})
	registerNative("List.append(T)", func(_ *VM, _ string, args []Value) (Value, error) {
		l, err := listOf(args[0], "append")
		if err != nil {
			return Nil, err
		}
		l.Items = append(l.Items, args[1])
		return args[0], nil
	})
	registerNative("List.head()", func(_ *VM, _ string, args []Value) (Value, error) {
		l, err := listOf(args[0], "head")
		if err != nil {
			return Nil, err
		}
		if len(l.Items) == 0 {
			return Nil, runtimeErrorf("List.head of an empty list")
		}
		return l.Items[0], nil
	})
	registerNative("List.tail()", func(_ *VM, _ string, args []Value) (Value, error) {
		l, err := listOf(args[0], "tail")
		if err != nil {
			return Nil, err
		}
		tail := NewList(l.Elem)
		if len(l.Items) > 1 {
			tail.Items = append(tail.Items, l.Items[1:]...)
		}
		return FromList(tail), nil
	})
	registerNative("List.isEmpty()", func(_ *VM, _ string, args []Value) (Value, error) {
		l, err := listOf(args[0], "isEmpty")
		if err != nil {
			return Nil, err
		}
		return FromBool(len(l.Items) == 0), nil
	})
	registerNative("List.Length()", func(_ *VM, _ string, args []Value) (Value, error) {
		l, err := listOf(args[0], "Length")
		if err != nil {
			return Nil, err
		}
		return FromInt(int64(len(l.Items))), nil
	})
}

func arrayIndex(args []Value) (*Array, int, error) {
	a := args[0].Array()
	if a == nil {
		return nil, 0, runtimeErrorf("array operation on %s", args[0].Kind())
	}
	i := args[1].Int()
	if i < 0 || i >= int64(len(a.Items)) {
		return nil, 0, runtimeErrorf("index %d out of range for Array of length %d", i, len(a.Items))
	}
	return a, int(i), nil
}

func listOf(v Value, op string) (*List, error) {
	l := v.List()
	if l == nil {
		return nil, runtimeErrorf("List.%s on %s", op, v.Kind())
	}
	return l, nil
}
