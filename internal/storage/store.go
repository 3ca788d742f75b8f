package storage

import (
	"context"
	"errors"
	"mime"
	"path"
	"regexp"
	"strings"
)

// PutOptions controls how an object is written.
type PutOptions struct {
	ContentType  string
	CacheControl string
	Upsert       bool
}

// ObjectStore persists photo objects and exposes them under a public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, opts PutOptions) error
	PublicURL(key string) string
}

// ErrObjectExists is returned by Put when Upsert is false and the key is taken.
var ErrObjectExists = errors.New("storage: object already exists")

var extensionPattern = regexp.MustCompile(`^[a-z0-9]{1,5}$`)

// ExtensionFor picks a file extension from the filename, falling back to the
// MIME type and finally to "jpg". Only short alphanumeric extensions are taken
// from the filename so a client cannot smuggle separators into object keys.
func ExtensionFor(filename, contentType string) string {
	if ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), "."); extensionPattern.MatchString(ext) {
		return ext
	}
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		if ext := strings.TrimPrefix(exts[0], "."); extensionPattern.MatchString(ext) {
			return ext
		}
	}
	return "jpg"
}
