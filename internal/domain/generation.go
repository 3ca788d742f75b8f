package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Generation identifies one of the three family-photo roles.
type Generation string

const (
	GenerationGrandfather Generation = "grandfather"
	GenerationFather      Generation = "father"
	GenerationSon         Generation = "son"
)

// Generations lists every role from oldest to youngest. The order is
// significant: it drives the blend stack and the upstream reference image.
var Generations = []Generation{GenerationGrandfather, GenerationFather, GenerationSon}

var titleCaser = cases.Title(language.English)

// ParseGeneration normalizes free-form input into a Generation.
func ParseGeneration(s string) (Generation, error) {
	g := Generation(strings.ToLower(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("%w: unknown generation %q", ErrValidation, s)
	}
	return g, nil
}

// Valid reports whether g is one of the fixed roles.
func (g Generation) Valid() bool {
	switch g {
	case GenerationGrandfather, GenerationFather, GenerationSon:
		return true
	default:
		return false
	}
}

// Title returns the display label, e.g. "Grandfather".
func (g Generation) Title() string {
	return titleCaser.String(string(g))
}

// Opacity is the blend weight used by the local compositor. Older
// generations dominate the composite.
func (g Generation) Opacity() float64 {
	switch g {
	case GenerationGrandfather:
		return 0.6
	case GenerationFather:
		return 0.3
	case GenerationSon:
		return 0.1
	default:
		return 0
	}
}

func (g Generation) String() string { return string(g) }
