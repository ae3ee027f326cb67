package vm

import (
	"errors"
	"fmt"
)

// RuntimeError is a failure while executing a module: a bad index, a
// division by zero, a call on nil and so on. Method and Line locate the
// innermost frame that raised it.
type RuntimeError struct {
	Msg    string
	Method string
	Line   uint32
	Column uint16
}

func (e *RuntimeError) Error() string {
	switch {
	case e.Method == "":
		return "runtime error: " + e.Msg
	case e.Line > 0:
		return fmt.Sprintf("runtime error in %s (line %d, column %d): %s", e.Method, e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("runtime error in %s: %s", e.Method, e.Msg)
}

func runtimeErrorf(format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...)}
}

// locate fills in the frame position of a runtime error that has none yet.
func locate(err error, method string, line uint32, column uint16) error {
	var rt *RuntimeError
	if errors.As(err, &rt) && rt.Method == "" {
		rt.Method = method
		rt.Line = line
		rt.Column = column
	}
	return err
}
