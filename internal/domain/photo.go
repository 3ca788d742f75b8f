package domain

import (
	"fmt"
	"strings"
	"time"
)

// Photo is an owned, in-memory image blob submitted by the user.
type Photo struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the blob length in bytes.
func (p Photo) Size() int64 { return int64(len(p.Data)) }

// PhotoSet maps each generation to its photo.
type PhotoSet map[Generation]Photo

// Complete reports whether all three generations are populated.
func (s PhotoSet) Complete() bool {
	for _, g := range Generations {
		if p, ok := s[g]; !ok || len(p.Data) == 0 {
			return false
		}
	}
	return true
}

// Missing returns the first generation without a photo, in canonical order.
func (s PhotoSet) Missing() (Generation, bool) {
	for _, g := range Generations {
		if p, ok := s[g]; !ok || len(p.Data) == 0 {
			return g, true
		}
	}
	return "", false
}

// Clone deep-copies the set so a submitted set cannot be mutated by the caller.
func (s PhotoSet) Clone() PhotoSet {
	out := make(PhotoSet, len(s))
	for g, p := range s {
		p.Data = append([]byte(nil), p.Data...)
		out[g] = p
	}
	return out
}

// PreviewSet maps each generation to a transient display URL.
type PreviewSet map[Generation]string

// Ready reports whether a preview exists for every generation.
func (s PreviewSet) Ready() bool {
	for _, g := range Generations {
		if strings.TrimSpace(s[g]) == "" {
			return false
		}
	}
	return true
}

// UploadedPhoto is the outcome of uploading a single photo.
type UploadedPhoto struct {
	URL      string
	Fallback bool
}

// UploadedSet maps each generation to its durable or inline URL.
type UploadedSet map[Generation]UploadedPhoto

// UsingFallbackMode is true when any entry was stored as an inline URL.
func (s UploadedSet) UsingFallbackMode() bool {
	for _, u := range s {
		if u.Fallback {
			return true
		}
	}
	return false
}

// URLs returns the wire representation keyed by generation label.
func (s UploadedSet) URLs() map[string]string {
	out := make(map[string]string, len(s))
	for g, u := range s {
		out[string(g)] = u.URL
	}
	return out
}

// PredictionResult is the generated ancestor image. URL is empty while pending.
type PredictionResult struct {
	URL      string
	Fallback bool
}

// PredictionRecord is the audit entry written after a successful prediction.
type PredictionRecord struct {
	ID             string
	UserID         string
	InputPhotoURLs map[string]string
	ResultURL      string
	CreatedAt      time.Time
}

// PhotoURLs is the request shape accepted by the inference function.
type PhotoURLs struct {
	Grandfather string `json:"grandfather" validate:"required"`
	Father      string `json:"father" validate:"required"`
	Son         string `json:"son" validate:"required"`
}

// Get returns the URL for a generation.
func (p PhotoURLs) Get(g Generation) string {
	switch g {
	case GenerationGrandfather:
		return p.Grandfather
	case GenerationFather:
		return p.Father
	case GenerationSon:
		return p.Son
	default:
		return ""
	}
}

// Map returns the URLs keyed by generation label.
func (p PhotoURLs) Map() map[string]string {
	return map[string]string{
		string(GenerationGrandfather): p.Grandfather,
		string(GenerationFather):      p.Father,
		string(GenerationSon):         p.Son,
	}
}

// PhotoURLsFrom builds the request shape from an uploaded set.
func PhotoURLsFrom(s UploadedSet) PhotoURLs {
	return PhotoURLs{
		Grandfather: s[GenerationGrandfather].URL,
		Father:      s[GenerationFather].URL,
		Son:         s[GenerationSon].URL,
	}
}

// Owner is the authenticated user a pipeline run acts for.
type Owner struct {
	UserID string
	Email  string
	Token  string
}

// Authenticated reports whether the owner carries a user identifier.
func (o Owner) Authenticated() bool { return strings.TrimSpace(o.UserID) != "" }

func (o Owner) String() string {
	if o.Email != "" {
		return fmt.Sprintf("%s <%s>", o.UserID, o.Email)
	}
	return o.UserID
}
