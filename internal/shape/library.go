package shape

import (
	"fmt"
	"sync"

	"github.com/piwi3910/SlabNest/internal/geometry"
	"github.com/piwi3910/SlabNest/internal/model"
)

type libraryKey struct {
	partID    string
	inflation float64
}

type orientKey struct {
	libraryKey
	rotation float64
}

type libraryEntry struct {
	geom *PartGeometry
	err  error
}

// Library caches PartGeometry per (part, inflation) and oriented instances
// per rotation. Failures are cached too so a bad part is diagnosed once.
// It is safe for concurrent use.
type Library struct {
	opts Options

	mu       sync.Mutex
	entries  map[libraryKey]libraryEntry
	oriented map[orientKey]*Oriented
}

// NewLibrary creates a cache that normalizes parts with opts.
func NewLibrary(opts Options) *Library {
	return &Library{
		opts:     opts,
		entries:  make(map[libraryKey]libraryEntry),
		oriented: make(map[orientKey]*Oriented),
	}
}

// Options returns the normalization options of the library.
func (l *Library) Options() Options { return l.opts }

// Get returns the geometry of a part, normalizing it on first use.
func (l *Library) Get(part model.ImportedPart) (*PartGeometry, error) {
	key := libraryKey{part.ID, l.opts.Inflation}
	l.mu.Lock()
	e, ok := l.entries[key]
	l.mu.Unlock()
	if ok {
		return e.geom, e.err
	}

	g, err := Normalize(part, l.opts)
	if err != nil {
		err = fmt.Errorf("part %s: %w", part.ID, err)
	}
	l.mu.Lock()
	l.entries[key] = libraryEntry{geom: g, err: err}
	l.mu.Unlock()
	return g, err
}

// Oriented returns the cached rotation of a part's geometry.
func (l *Library) Oriented(part model.ImportedPart, rotation float64) (*Oriented, error) {
	g, err := l.Get(part)
	if err != nil {
		return nil, err
	}
	rotation = geometry.NormalizeDegrees(rotation)
	key := orientKey{libraryKey{part.ID, l.opts.Inflation}, rotation}

	l.mu.Lock()
	defer l.mu.Unlock()
	if o, ok := l.oriented[key]; ok {
		return o, nil
	}
	o := g.Orient(rotation)
	l.oriented[key] = o
	return o, nil
}

// Len returns the number of cached parts.
func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
