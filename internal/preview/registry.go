// Package preview hands out revocable URLs for photos held in memory.
package preview

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
)

type entry struct {
	owner string
	photo domain.Photo
}

// Registry maps tokens to photos. Every URL it issues stays valid until it
// is released, either explicitly or by rebuilding the same owner key.
type Registry struct {
	baseURL string

	mu      sync.RWMutex
	entries map[string]entry
	byOwner map[string][]string
	newID   func() string
}

// NewRegistry issues URLs of the form {baseURL}/{token}.
func NewRegistry(baseURL string) *Registry {
	return &Registry{
		baseURL: strings.TrimRight(baseURL, "/"),
		entries: make(map[string]entry),
		byOwner: make(map[string][]string),
		newID:   uuid.NewString,
	}
}

// Build releases everything previously issued for key and returns one fresh
// URL per photo.
func (r *Registry) Build(key string, set domain.PhotoSet) domain.PreviewSet {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.releaseLocked(key)
	out := make(domain.PreviewSet, len(set))
	tokens := make([]string, 0, len(set))
	for _, g := range domain.Generations {
		p, ok := set[g]
		if !ok {
			continue
		}
		token := r.newID()
		r.entries[token] = entry{owner: key, photo: p}
		tokens = append(tokens, token)
		out[g] = r.baseURL + "/" + token
	}
	r.byOwner[key] = tokens
	return out
}

// Release revokes every URL issued for key.
func (r *Registry) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked(key)
}

// ReleaseAll revokes everything.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]entry)
	r.byOwner = make(map[string][]string)
}

// Open resolves a live token.
func (r *Registry) Open(token string) (domain.Photo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[token]
	if !ok {
		return domain.Photo{}, domain.ErrNotFound
	}
	return e.photo, nil
}

// Len reports the number of live URLs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) releaseLocked(key string) {
	for _, token := range r.byOwner[key] {
		delete(r.entries, token)
	}
	delete(r.byOwner, key)
}
