package sqlinline

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLintFileOwnQueries(t *testing.T) {
	for _, name := range []string{"predictions.go", "integration_tokens.go"} {
		vs, err := LintFile(name)
		if err != nil {
			t.Fatalf("LintFile(%s): %v", name, err)
		}
		if len(vs) != 0 {
			t.Fatalf("LintFile(%s) = %+v, want none", name, vs)
		}
	}
}

func TestLintFileFlagsUnmarkedQuery(t *testing.T) {
	src := "package x\n\nconst QBad = `\nselect 1;\n`\n\nconst Greeting = \"hello\"\n"
	path := filepath.Join(t.TempDir(), "bad.go")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	vs, err := LintFile(path)
	if err != nil {
		t.Fatalf("LintFile: %v", err)
	}
	if len(vs) != 1 || vs[0].Name != "QBad" || vs[0].Line != 3 {
		t.Fatalf("LintFile() = %+v, want one violation for QBad on line 3", vs)
	}
}
