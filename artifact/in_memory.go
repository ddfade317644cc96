package artifact

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hupe1980/sentinel/core"
)

// Scheme prefixes every URL issued by InMemoryStore.
const Scheme = "mem"

// DefaultMaxSize bounds a single upload.
const DefaultMaxSize = 20 << 20

// File is a stored upload.
type File struct {
	Ref  core.FileRef
	Data []byte
}

// Options configures InMemoryStore.
type Options struct {
	MaxSize int
	NewID   func() string
}

// InMemoryStore is an in-process core.FileStore useful for tests, the CLI and
// single-process deployments. Data is copied on upload and retrieval so
// callers cannot mutate stored buffers.
//
// URLs have the form mem://files/<id>/<escaped name>.
type InMemoryStore struct {
	opts Options

	mu    sync.RWMutex
	files map[string]File // url -> file
}

// NewInMemoryStore returns an empty in-memory file store.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{MaxSize: DefaultMaxSize, NewID: uuid.NewString}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryStore{opts: opts, files: make(map[string]File)}
}

// Upload stores data and returns its reference. Every failure wraps
// core.ErrUpload.
func (s *InMemoryStore) Upload(ctx context.Context, name, contentType string, data []byte) (core.FileRef, error) {
	if err := ctx.Err(); err != nil {
		return core.FileRef{}, fmt.Errorf("%w: %w", core.ErrUpload, err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return core.FileRef{}, fmt.Errorf("%w: file name is required", core.ErrUpload)
	}
	if len(data) == 0 {
		return core.FileRef{}, fmt.Errorf("%w: file %q is empty", core.ErrUpload, name)
	}
	if s.opts.MaxSize > 0 && len(data) > s.opts.MaxSize {
		return core.FileRef{}, fmt.Errorf("%w: %w: %d bytes", core.ErrUpload, ErrTooLarge, len(data))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ref := core.FileRef{
		URL:         fmt.Sprintf("%s://files/%s/%s", Scheme, s.opts.NewID(), url.PathEscape(name)),
		Name:        name,
		ContentType: contentType,
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[ref.URL] = File{Ref: ref, Data: cp}
	return ref, nil
}

// Get returns a copy of the stored file or ErrNotFound.
func (s *InMemoryStore) Get(rawURL string) (File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[rawURL]
	if !ok {
		return File{}, ErrNotFound
	}
	cp := make([]byte, len(f.Data))
	copy(cp, f.Data)
	return File{Ref: f.Ref, Data: cp}, nil
}

// List returns the stored references sorted by URL.
func (s *InMemoryStore) List() []core.FileRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := make([]core.FileRef, 0, len(s.files))
	for _, f := range s.files {
		refs = append(refs, f.Ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].URL < refs[j].URL })
	return refs
}

// Delete removes the file if present or returns ErrNotFound.
func (s *InMemoryStore) Delete(rawURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[rawURL]; !ok {
		return ErrNotFound
	}
	delete(s.files, rawURL)
	return nil
}
