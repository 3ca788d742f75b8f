// Package present renders a finished session and hands its result to the
// user as a download or a share.
package present

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/atotto/clipboard"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
	"github.com/nawabsahab16/ancestral-ai/internal/imaging"
	"github.com/nawabsahab16/ancestral-ai/internal/pipeline"
)

// Filename is the suggested name for downloaded results.
const Filename = "ancestor-prediction.jpg"

const (
	ShareTitle = "My Ancestor Prediction"
	ShareText  = "Check out this prediction of my ancestor!"
)

// ErrNoResult is returned when a session has nothing to present yet.
var ErrNoResult = errors.New("no prediction result available")

// View is what the result screen shows.
type View struct {
	Previews          map[string]string `json:"previews"`
	ResultURL         string            `json:"resultUrl"`
	UsingFallbackMode bool              `json:"usingFallbackMode"`
	Filename          string            `json:"filename"`
}

// NewView builds the result view for a succeeded session.
func NewView(snap pipeline.Snapshot) (View, error) {
	if snap.Stage != domain.StageSucceeded || snap.ResultURL == "" {
		return View{}, ErrNoResult
	}
	return View{
		Previews:          snap.Previews,
		ResultURL:         snap.ResultURL,
		UsingFallbackMode: snap.UsingFallbackMode,
		Filename:          Filename,
	}, nil
}

// Fetcher resolves a result URL to bytes. *imaging.Loader satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, src string) ([]byte, string, error)
}

var _ Fetcher = (*imaging.Loader)(nil)

// Download writes the result image to w and returns its content type.
// Data URLs are decoded in-process; remote URLs are fetched.
func Download(ctx context.Context, f Fetcher, resultURL string, w io.Writer) (string, error) {
	if resultURL == "" {
		return "", ErrNoResult
	}
	data, contentType, err := f.Fetch(ctx, resultURL)
	if err != nil {
		return "", fmt.Errorf("fetch result: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return contentType, nil
}

// Payload is what gets shared.
type Payload struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

// NewPayload wraps a result URL in the standard share text.
func NewPayload(url string) Payload {
	return Payload{Title: ShareTitle, Text: ShareText, URL: url}
}

// NativeSharer is a platform share sheet.
type NativeSharer interface {
	Share(ctx context.Context, p Payload) error
}

// Clipboard receives the URL when no native sharer can take it.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// ShareMethod reports how a share was delivered.
type ShareMethod string

const (
	SharedNative    ShareMethod = "native"
	SharedClipboard ShareMethod = "clipboard"
)

// Sharer prefers the native sharer and falls back to the clipboard.
type Sharer struct {
	Native    NativeSharer
	Clipboard Clipboard
}

// NewSharer uses the system clipboard; native may be nil.
func NewSharer(native NativeSharer) *Sharer {
	return &Sharer{Native: native, Clipboard: SystemClipboard{}}
}

// Share delivers url. A failing native share is not an error; only a
// failing clipboard write is.
func (s *Sharer) Share(ctx context.Context, url string) (ShareMethod, error) {
	if url == "" {
		return "", ErrNoResult
	}
	if s.Native != nil {
		if err := s.Native.Share(ctx, NewPayload(url)); err == nil {
			return SharedNative, nil
		}
	}
	if s.Clipboard == nil {
		return "", errors.New("no clipboard available")
	}
	if err := s.Clipboard.WriteAll(url); err != nil {
		return "", fmt.Errorf("copy to clipboard: %w", err)
	}
	return SharedClipboard, nil
}

// Notice is the confirmation shown after a share.
func (m ShareMethod) Notice() domain.Notice {
	if m == SharedNative {
		return domain.Notice{Level: domain.NoticeSuccess, Title: "Shared successfully!"}
	}
	return domain.Notice{Level: domain.NoticeSuccess, Title: "Sharing link copied to clipboard!"}
}
