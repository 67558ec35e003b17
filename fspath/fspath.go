// Package fspath resolves client-supplied, possibly wrongly-cased paths
// against a case-sensitive filesystem. It exists for servers that speak
// case-insensitive protocols while storing files on a case-sensitive
// backend: given "report.txt" it finds the on-disk "Report.TXT".
//
// Resolution is best effort and never fails: a path that cannot be matched
// comes back as the plain concatenation of base and input, which simply may
// not exist. Two documented limitations: names that are not valid UTF-8 are
// opaque to case folding and only match their exact bytes, and when two
// on-disk names differ only by case the match is whichever one directory
// enumeration lists first.
package fspath

import (
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
)

// Resolver performs case-insensitive path resolution, amortizing directory
// scans through a shared validating Cache. It is safe for concurrent use.
type Resolver struct {
	fs    afero.Fs
	cache *Cache
}

// NewResolver creates a Resolver using the given filesystem and cache. The
// caller owns the cache and may share it between resolvers over the same
// filesystem.
func NewResolver(fsys afero.Fs, cache *Cache) *Resolver {
	return &Resolver{fs: fsys, cache: cache}
}

// New creates a Resolver with its own cache of DefaultCacheSize entries.
func New(fsys afero.Fs) *Resolver {
	cache, _ := NewCache(fsys, DefaultCacheSize)
	return NewResolver(fsys, cache)
}

// Cache returns the resolver's cache.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Resolve maps rawPath, interpreted relative to base, to the path whose
// case matches an existing entry where possible. Leading path separators in
// rawPath are stripped, so absolute-looking input stays under base.
//
// When caseInsensitive is false the result is the plain join of base and
// the stripped input, with no filesystem access. Otherwise each segment is
// resolved against the live filesystem, consulting the cache first; once a
// segment cannot be matched (unreadable directory, undecodable name, no
// fold match) the remaining segments are appended verbatim so the caller
// always receives a complete path.
func (r *Resolver) Resolve(base string, rawPath []byte, caseInsensitive bool) string {
	rel := strings.TrimLeft(string(rawPath), "/")

	if !caseInsensitive {
		return filepath.Join(base, rel)
	}

	if rel != "" {
		rel = filepath.Clean(rel)
	}
	fullpath := filepath.Join(base, rel)

	// Case matching is only attempted on rooted, decodable paths.
	if !filepath.IsAbs(fullpath) || !utf8.ValidString(fullpath) {
		return fullpath
	}

	// The filesystem root has no parent to scan.
	parent := filepath.Dir(fullpath)
	if parent == fullpath {
		return fullpath
	}

	if exact, _, ok := r.cache.Get(fullpath); ok {
		if logEnabled(slog.LevelDebug) {
			sub("resolver").Debug("cache fast path", "path", exact)
		}
		return exact
	}

	// Exact case already on disk, the common case for well-behaved clients.
	if _, err := r.fs.Stat(fullpath); err == nil {
		return fullpath
	}

	segs := splitSegments(rel)
	if len(segs) == 0 {
		return fullpath
	}

	// If the parent directory is already known, resolve just the final
	// segment there instead of re-walking from the root. Every successful
	// walk below seeds the cache with the paths that make this shortcut
	// work for siblings.
	parentResolved, parentExists := parent, true
	if len(segs) > 1 {
		if exact, _, ok := r.cache.Get(parent); ok {
			parentResolved = exact
		} else {
			parentExists = r.exists(parent)
			if parentExists {
				r.cache.Insert(parent)
			}
		}
	}
	if parentExists {
		newpath, stop := r.lookup(parentResolved, segs[len(segs)-1], false)
		if !stop {
			r.cache.Insert(newpath)
		}
		return newpath
	}

	// Walk from the base, correcting one segment at a time.
	stop := false
	newpath := base
	last := len(segs) - 1
	for i, seg := range segs {
		if stop {
			newpath = filepath.Join(newpath, seg)
			continue
		}
		if i == last {
			// Save the verified path leading up to the final entry; it is
			// the parent-prefix shortcut for the next sibling lookup.
			r.cache.Insert(newpath)
		}
		newpath, stop = r.lookup(newpath, seg, true)
	}
	if stop {
		if logEnabled(slog.LevelDebug) {
			sub("resolver").Debug("walk went terminal", "path", newpath)
		}
		return newpath
	}
	r.cache.Insert(newpath)
	return newpath
}

func (r *Resolver) exists(path string) bool {
	_, err := r.fs.Stat(path)
	return err == nil
}

// splitSegments breaks a cleaned relative path into its components.
func splitSegments(rel string) []string {
	if rel == "" || rel == "." {
		return nil
	}
	parts := strings.Split(rel, "/")
	segs := parts[:0]
	for _, p := range parts {
		if p != "" && p != "." {
			segs = append(segs, p)
		}
	}
	return segs
}
