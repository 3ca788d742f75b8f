package domain

import (
	"errors"
	"testing"
)

func TestParseGeneration(t *testing.T) {
	tests := []struct {
		in      string
		want    Generation
		wantErr bool
	}{
		{in: "grandfather", want: GenerationGrandfather},
		{in: " Father ", want: GenerationFather},
		{in: "SON", want: GenerationSon},
		{in: "mother", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseGeneration(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseGeneration(%q) error = %v, want ErrValidation", tc.in, err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("ParseGeneration(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
			}
		})
	}
}

func TestGenerationTitleAndOpacity(t *testing.T) {
	if got := GenerationGrandfather.Title(); got != "Grandfather" {
		t.Fatalf("Title() = %q", got)
	}
	var sum float64
	prev := 1.0
	for _, g := range Generations {
		o := g.Opacity()
		if o >= prev {
			t.Fatalf("%s opacity %v should be below %v", g, o, prev)
		}
		prev = o
		sum += o
	}
	if sum < 0.99 || sum > 1.01 {
		t.Fatalf("opacities sum to %v, want 1", sum)
	}
}
