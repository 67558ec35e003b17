package fspath

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// lookup resolves one path segment inside dir, which is already known to
// have correct case. It returns the resolved candidate and a terminal flag;
// terminal means no further case-insensitive matching should be attempted
// and the caller appends any remaining segments verbatim.
//
// Unless skipInitial is set, the segment is first tried as-is: a plain stat
// is much cheaper than enumerating the directory and wins whenever the
// client already sent correct case. Stat failures other than "not exist"
// (permission, I/O) are terminal.
func (r *Resolver) lookup(dir, seg string, skipInitial bool) (string, bool) {
	candidate := filepath.Join(dir, seg)

	if !skipInitial {
		_, err := r.fs.Stat(candidate)
		if err == nil {
			return candidate, false
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return candidate, true
		}
	}

	// Folding needs text. A segment that isn't valid UTF-8 cannot be
	// matched case-insensitively at all.
	if !utf8.ValidString(seg) {
		return candidate, true
	}
	want := strings.ToLower(seg)

	f, err := r.fs.Open(dir)
	if err != nil {
		return candidate, true
	}
	names, err := f.Readdirnames(-1)
	f.Close()
	if err != nil {
		return candidate, true
	}

	// First fold match in enumeration order wins. Two on-disk names that
	// differ only by case resolve to whichever the filesystem lists first.
	for _, name := range names {
		if !utf8.ValidString(name) {
			continue
		}
		if strings.ToLower(name) == want {
			return filepath.Join(dir, name), false
		}
	}
	return candidate, true
}
