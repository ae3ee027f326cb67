package driver

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/niotu/CompilerConstrction-sub000/pkg/bytecode"
	"github.com/niotu/CompilerConstrction-sub000/vm"
)

const hello = `
class Main is
  this() is
    var x := Integer(5)
    x.Print()
  end
end`

func TestCompile(t *testing.T) {
	res, err := Compile(hello, Options{ModuleName: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed() || res.Stage != StageGenerate {
		t.Fatalf("result = %+v, messages %v", res, res.Messages())
	}
	if res.Module.Name != "hello" || res.Module.TypeByName("Main") == nil {
		t.Errorf("module %s lacks Main", res.Module.Name)
	}
}

func TestCompileRejects(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		opts  Options
		stage Stage
		want  string
	}{
		{"syntax", "class Main is\n  this( is end\nend", Options{}, StageParse, "line 2"},
		{"semantic", "class Main is\n  this() is\n    y.Print()\n  end\nend", Options{}, StageValidate, "UndeclaredIdentifier"},
		{"warning as error", "class Main is\n  this() is\n    var a := Array[Integer](0)\n  end\nend", Options{WarningsAsErrors: true}, StageValidate, "warning"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compile(tt.src, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if !res.Failed() || res.Stage != tt.stage {
				t.Fatalf("failed=%v stage=%s, want a failure at %s", res.Failed(), res.Stage, tt.stage)
			}
			if msgs := strings.Join(res.Messages(), "\n"); !strings.Contains(msgs, tt.want) {
				t.Errorf("messages %q, want %q", msgs, tt.want)
			}
		})
	}
}

func TestWarningsDoNotBlockByDefault(t *testing.T) {
	res, err := Compile("class Main is\n  this() is\n    var a := Array[Integer](0)\n  end\nend", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed() || len(res.Diagnostics) != 1 {
		t.Errorf("failed=%v diagnostics=%v", res.Failed(), res.Messages())
	}
}

func TestCompileFileAndWrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "hello.o")
	if err := os.WriteFile(src, []byte(hello), 0644); err != nil {
		t.Fatal(err)
	}
	res, err := CompileFile(src, Options{})
	if err != nil || res.Failed() {
		t.Fatalf("err=%v messages=%v", err, res.Messages())
	}
	if res.Module.Name != "hello" {
		t.Errorf("module name = %q, want hello", res.Module.Name)
	}

	out := filepath.Join(dir, "build", "hello.obc")
	if err := WriteModule(res.Module, out); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	back, err := bytecode.ReadModule(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.MVID != res.Module.MVID {
		t.Errorf("MVID changed on the round trip")
	}
}

func TestExamples(t *testing.T) {
	want := map[string]string{
		"animals.o": "1\n4\n2\n2\n",
		"sums.o":    "14\n16\n",
	}
	for file, output := range want {
		t.Run(file, func(t *testing.T) {
			res, err := CompileFile(filepath.Join("..", "examples", file), Options{})
			if err != nil {
				t.Fatal(err)
			}
			if res.Failed() {
				t.Fatalf("rejected: %v", res.Messages())
			}
			var out bytes.Buffer
			machine, err := vm.New(res.Module, vm.WithOutput(&out))
			if err != nil {
				t.Fatal(err)
			}
			if err := machine.Run("Main"); err != nil {
				t.Fatal(err)
			}
			if out.String() != output {
				t.Errorf("output = %q, want %q", out.String(), output)
			}
		})
	}
}
