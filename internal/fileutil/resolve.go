package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// PathExists reports whether path currently names a filesystem entry.
// Errors other than "does not exist" are not treated as existence so a
// permission problem surfaces from the move instead of stalling resolution.
func PathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// CandidateName returns the file name for stem and ext with the given
// disambiguator. Zero means no suffix.
func CandidateName(stem, ext string, n int) string {
	if n <= 0 {
		return stem + ext
	}
	return fmt.Sprintf("%s_%d%s", stem, n, ext)
}

// Resolver picks rename targets that do not collide with existing files.
type Resolver struct {
	exists func(string) bool
}

// NewResolver returns a Resolver backed by the real filesystem.
func NewResolver() *Resolver {
	return &Resolver{exists: PathExists}
}

// NewResolverWithProbe returns a Resolver using a custom existence check.
func NewResolverWithProbe(exists func(string) bool) *Resolver {
	if exists == nil {
		exists = PathExists
	}
	return &Resolver{exists: exists}
}

// Resolve returns dir/{stem}{ext}, or the first dir/{stem}_N{ext} that does
// not exist. The counter is unbounded.
func (r *Resolver) Resolve(dir, stem, ext string) string {
	path, _ := r.resolveFrom(dir, stem, ext, 0)
	return path
}

func (r *Resolver) resolveFrom(dir, stem, ext string, start int) (string, int) {
	for n := start; ; n++ {
		candidate := filepath.Join(dir, CandidateName(stem, ext, n))
		if !r.exists(candidate) {
			return candidate, n
		}
	}
}

// Claim moves src into dir under the first free {stem}[_N]{ext} name. The move
// itself refuses to replace an existing file, so a name taken between the
// existence check and the move advances the counter instead of clobbering it.
func (r *Resolver) Claim(src, dir, stem, ext string) (string, error) {
	next := 0
	for {
		target, n := r.resolveFrom(dir, stem, ext, next)
		err := MoveNoReplace(src, target)
		if err == nil {
			return target, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
		next = n + 1
	}
}

// ResolveTarget is Resolve on the real filesystem.
func ResolveTarget(dir, stem, ext string) string {
	return NewResolver().Resolve(dir, stem, ext)
}
