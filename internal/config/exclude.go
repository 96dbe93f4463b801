package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher decides whether a project-relative path is excluded from indexing.
type Matcher struct {
	globs []glob.Glob
}

// NewMatcher compiles patterns. Patterns use "/" as separator.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("failed to compile exclude pattern %q: %w", pattern, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether rel, or any directory containing it, is excluded. A
// pattern matches when it matches the path, a leading part of the path or a
// single path segment.
func (m *Matcher) Match(rel string) bool {
	if m == nil || len(m.globs) == 0 {
		return false
	}

	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")
	if rel == "" || rel == "." {
		return false
	}

	segments := strings.Split(rel, "/")
	for i, segment := range segments {
		prefix := strings.Join(segments[:i+1], "/")
		for _, g := range m.globs {
			if g.Match(segment) || g.Match(prefix) {
				return true
			}
		}
	}

	return false
}
