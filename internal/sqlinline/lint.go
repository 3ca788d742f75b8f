package sqlinline

import (
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strconv"
	"strings"

	"github.com/nawabsahab16/ancestral-ai/internal/infra"
)

var statementPattern = regexp.MustCompile(`(?i)\b(select|insert|update|delete|with|create|alter)\b`)

// Violation is a string constant that looks like SQL but lacks a marker.
type Violation struct {
	File string
	Name string
	Line int
}

// LintFile reports SQL-looking string constants in a Go file that do not
// begin with a valid "--sql <uuid>" marker line.
func LintFile(path string) ([]Violation, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, 0)
	if err != nil {
		return nil, err
	}
	var out []Violation
	ast.Inspect(file, func(n ast.Node) bool {
		spec, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for i, value := range spec.Values {
			lit, ok := value.(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				continue
			}
			raw, err := unquote(lit.Value)
			if err != nil || !statementPattern.MatchString(raw) {
				continue
			}
			if _, _, err := infra.ExtractMarker(raw); err == nil {
				continue
			}
			name := ""
			if i < len(spec.Names) {
				name = spec.Names[i].Name
			}
			out = append(out, Violation{File: path, Name: name, Line: fset.Position(lit.Pos()).Line})
		}
		return true
	})
	return out, nil
}

func unquote(v string) (string, error) {
	if strings.HasPrefix(v, "`") {
		return strings.Trim(v, "`"), nil
	}
	return strconv.Unquote(v)
}
