package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/niotu/CompilerConstrction-sub000/driver"
)

const (
	okMarker  = "OK — completed successfully"
	errMarker = "ERR"

	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

// report is the outcome of one oc run.
type report struct {
	File        string  `yaml:"file"`
	Status      string  `yaml:"status"`
	Output      string  `yaml:"output,omitempty"`
	Diagnostics []entry `yaml:"diagnostics,omitempty"`

	messages []string
}

type entry struct {
	Kind     string `yaml:"kind"`
	Severity string `yaml:"severity"`
	Line     int    `yaml:"line,omitempty"`
	Column   int    `yaml:"column,omitempty"`
	Message  string `yaml:"message"`
}

func newReport(file string, res *driver.Result) *report {
	rep := &report{File: file, Status: "ok", messages: res.Messages()}
	if res.Failed() {
		rep.Status = "error"
	}
	for _, e := range res.SyntaxErrors {
		rep.Diagnostics = append(rep.Diagnostics, entry{
			Kind:     "SyntaxError",
			Severity: "error",
			Line:     e.Pos.Line,
			Column:   e.Pos.Column,
			Message:  e.Msg,
		})
	}
	for _, d := range res.Diagnostics {
		rep.Diagnostics = append(rep.Diagnostics, entry{
			Kind:     d.Kind.String(),
			Severity: d.Severity.String(),
			Line:     d.Pos.Line,
			Column:   d.Pos.Column,
			Message:  d.Message,
		})
	}
	return rep
}

func (r *report) write(w io.Writer, format string) {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			fmt.Fprintf(w, "# cannot encode report: %v\n", err)
		}
		enc.Close()
		return
	}

	for _, msg := range r.messages {
		fmt.Fprintln(w, msg)
	}
	if r.Status == "ok" {
		fmt.Fprintln(w, paint(w, colorGreen, okMarker))
	} else {
		fmt.Fprintln(w, paint(w, colorRed, errMarker))
	}
}

// paint colours s when w is a terminal.
func paint(w io.Writer, color, s string) string {
	f, ok := w.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return s
	}
	return color + s + colorReset
}
