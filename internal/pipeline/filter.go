package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"shotnamer/internal/services"
)

// Candidate is a file that passed the inclusion filter.
type Candidate struct {
	Path string
	// Ext keeps the original case; the renamed file carries it unchanged.
	Ext  string
	Base string
}

// NewCandidate derives a Candidate from path without filtering.
func NewCandidate(path string) Candidate {
	base := filepath.Base(path)
	return Candidate{Path: path, Ext: filepath.Ext(base), Base: base}
}

// Dir returns the directory holding the file.
func (c Candidate) Dir() string {
	return filepath.Dir(c.Path)
}

// Filter decides whether path is a screenshot this pipeline handles. The
// extension is compared case-insensitively; the prefix match is literal and
// case-sensitive. Rejections carry services.ErrFilteredOut.
func (p *Pipeline) Filter(path string) (Candidate, error) {
	cand := NewCandidate(path)
	if _, ok := p.extensions[strings.ToLower(cand.Ext)]; !ok {
		return Candidate{}, services.Wrap(services.ErrFilteredOut, "filter", "", fmt.Sprintf("extension %q not allowed", cand.Ext), nil)
	}
	for _, prefix := range p.opts.Prefixes {
		if strings.HasPrefix(cand.Base, prefix) {
			return cand, nil
		}
	}
	return Candidate{}, services.Wrap(services.ErrFilteredOut, "filter", "", fmt.Sprintf("%q has no screenshot prefix", cand.Base), nil)
}
