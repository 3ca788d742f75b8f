package present

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
	"github.com/nawabsahab16/ancestral-ai/internal/imaging"
	"github.com/nawabsahab16/ancestral-ai/internal/pipeline"
)

type stubNative struct {
	err  error
	got  Payload
	hits int
}

func (s *stubNative) Share(ctx context.Context, p Payload) error {
	s.hits++
	s.got = p
	return s.err
}

type stubClipboard struct {
	err  error
	text string
}

func (c *stubClipboard) WriteAll(text string) error {
	c.text = text
	return c.err
}

func TestShare(t *testing.T) {
	tests := []struct {
		name     string
		native   *stubNative
		clipErr  error
		want     ShareMethod
		wantErr  bool
		wantClip string
	}{
		{name: "native succeeds", native: &stubNative{}, want: SharedNative},
		{name: "native fails", native: &stubNative{err: errors.New("aborted")}, want: SharedClipboard, wantClip: "https://x/r.png"},
		{name: "no native", want: SharedClipboard, wantClip: "https://x/r.png"},
		{name: "clipboard fails", clipErr: errors.New("no display"), wantErr: true, wantClip: "https://x/r.png"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clip := &stubClipboard{err: tc.clipErr}
			s := &Sharer{Clipboard: clip}
			if tc.native != nil {
				s.Native = tc.native
			}
			got, err := s.Share(context.Background(), "https://x/r.png")
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Share error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Share() = %s, want %s", got, tc.want)
			}
			if clip.text != tc.wantClip {
				t.Fatalf("clipboard = %q, want %q", clip.text, tc.wantClip)
			}
			if tc.native != nil && tc.native.got != NewPayload("https://x/r.png") {
				t.Fatalf("unexpected payload %+v", tc.native.got)
			}
		})
	}
}

func TestSharePayloadText(t *testing.T) {
	p := NewPayload("u")
	if p.Title != "My Ancestor Prediction" || p.Text != "Check out this prediction of my ancestor!" {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestDownloadDataURL(t *testing.T) {
	url := imaging.EncodeDataURL("image/jpeg", []byte("jpeg-bytes"))
	var buf bytes.Buffer
	ct, err := Download(context.Background(), imaging.NewLoader(nil), url, &buf)
	if err != nil {
		t.Fatalf("Download error: %v", err)
	}
	if ct != "image/jpeg" || buf.String() != "jpeg-bytes" {
		t.Fatalf("Download() = %q, %q", ct, buf.String())
	}
}

func TestDownloadWithoutResult(t *testing.T) {
	if _, err := Download(context.Background(), imaging.NewLoader(nil), "", &bytes.Buffer{}); !errors.Is(err, ErrNoResult) {
		t.Fatalf("expected ErrNoResult, got %v", err)
	}
}

func TestNewView(t *testing.T) {
	if _, err := NewView(pipeline.Snapshot{Stage: domain.StagePredicting}); !errors.Is(err, ErrNoResult) {
		t.Fatalf("expected ErrNoResult for unfinished session, got %v", err)
	}
	v, err := NewView(pipeline.Snapshot{
		Stage:     domain.StageSucceeded,
		ResultURL: "data:image/jpeg;base64,AA==",
		Previews:  map[string]string{"son": "/v1/previews/t"},
	})
	if err != nil {
		t.Fatalf("NewView error: %v", err)
	}
	if v.Filename != Filename || !strings.HasPrefix(v.ResultURL, "data:") || v.Previews["son"] == "" {
		t.Fatalf("unexpected view %+v", v)
	}
}
