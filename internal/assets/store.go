// Package assets keeps finalized recordings in memory behind blob-style
// references and serves them to playback surfaces.
package assets

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"camclip/internal/domain"
)

const (
	RefScheme = "blob:"
	// RoutePrefix is where the webview fetches recordings from.
	RoutePrefix = "/recordings/"
)

var ErrEmptyAsset = errors.New("asset has no mime type")

type entry struct {
	asset     domain.Asset
	published time.Time
}

// Store is an in-memory asset store. References stay valid until revoked.
type Store struct {
	mu      sync.RWMutex
	entries map[domain.AssetRef]entry
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{entries: map[domain.AssetRef]entry{}, now: time.Now}
}

// Publish allocates a fresh reference for asset.
func (s *Store) Publish(asset domain.Asset) (domain.AssetRef, error) {
	if strings.TrimSpace(asset.MIMEType) == "" {
		return "", ErrEmptyAsset
	}
	ref := domain.AssetRef(RefScheme + uuid.NewString())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[ref] = entry{asset: asset, published: s.now()}
	return ref, nil
}

// Revoke invalidates ref. Unknown references are ignored.
func (s *Store) Revoke(ref domain.AssetRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, ref)
}

// Lookup returns the asset behind ref.
func (s *Store) Lookup(ref domain.AssetRef) (domain.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[ref]
	return e.asset, ok
}

// Len reports how many references are live.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// URL maps a reference to the path ServeHTTP answers on.
func URL(ref domain.AssetRef) string {
	id := strings.TrimPrefix(string(ref), RefScheme)
	if id == "" {
		return ""
	}
	return RoutePrefix + id
}

// ServeHTTP serves recordings under RoutePrefix with range support so
// playback surfaces can scrub.
func (s *Store) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, RoutePrefix)
	if id == r.URL.Path || id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	s.mu.RLock()
	e, ok := s.entries[domain.AssetRef(RefScheme+id)]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", e.asset.MIMEType)
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, "", e.published, bytes.NewReader(e.asset.Data))
}
