package upload

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
)

// MaxPhotoBytes is the per-photo ceiling enforced before any network call.
const MaxPhotoBytes = 5 * 1024 * 1024

// ContentType returns the declared type when it is set, otherwise a sniffed one.
func ContentType(p domain.Photo) string {
	if ct := strings.TrimSpace(strings.ToLower(p.ContentType)); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return http.DetectContentType(p.Data)
}

// Validate checks type and size. Errors wrap domain.ErrValidation.
func Validate(p domain.Photo, g domain.Generation) error {
	if !g.Valid() {
		return fmt.Errorf("%w: unknown generation %q", domain.ErrValidation, g)
	}
	if len(p.Data) == 0 {
		return fmt.Errorf("%w: %s photo is empty", domain.ErrValidation, g)
	}
	if !strings.HasPrefix(ContentType(p), "image/") {
		return fmt.Errorf("%w: %s photo must be an image file", domain.ErrValidation, g)
	}
	if p.Size() > MaxPhotoBytes {
		return fmt.Errorf("%w: %s photo exceeds the 5MB size limit", domain.ErrValidation, g)
	}
	return nil
}

// ValidateSet checks every generation in canonical order.
func ValidateSet(set domain.PhotoSet) error {
	if missing, ok := set.Missing(); ok {
		return fmt.Errorf("%w: missing %s photo", domain.ErrValidation, missing)
	}
	for _, g := range domain.Generations {
		if err := Validate(set[g], g); err != nil {
			return err
		}
	}
	return nil
}
