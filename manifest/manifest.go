// Package manifest handles oc.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project file.
const FileName = "oc.toml"

// Manifest represents an oc.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Build   Build   `toml:"build"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the oc.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name   string `toml:"name"`
	Source string `toml:"source"`
	Entry  string `toml:"entry"` // class constructed by -run
}

// Build configures the compiler output.
type Build struct {
	Output           string `toml:"output"`
	Disasm           bool   `toml:"disasm"`
	WarningsAsErrors bool   `toml:"warnings-as-errors"`
}

// Log configures tracing.
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Load parses an oc.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Project.Name == "" {
		m.Project.Name = filepath.Base(m.Dir)
	}
	if m.Project.Source == "" {
		m.Project.Source = "main.o"
	}
	if m.Project.Entry == "" {
		m.Project.Entry = "Main"
	}
	if m.Build.Output == "" {
		m.Build.Output = m.Project.Name + ".obc"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find an oc.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// SourcePath returns the absolute path of the program source.
func (m *Manifest) SourcePath() string {
	return m.resolve(m.Project.Source)
}

// OutputPath returns the absolute path the compiled unit is written to.
func (m *Manifest) OutputPath() string {
	return m.resolve(m.Build.Output)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
