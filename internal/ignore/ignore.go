// Package ignore matches relative paths against glob exclusion patterns.
package ignore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// ErrInvalidPattern indicates a pattern could not be compiled
var ErrInvalidPattern = errors.New("invalid ignore pattern")

// Matcher holds compiled patterns. A nil Matcher matches nothing.
type Matcher struct {
	patterns []string
	globs    []glob.Glob
}

// Compile compiles patterns using '/' as the separator. Empty patterns are
// skipped.
func Compile(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, p, err)
		}
		m.patterns = append(m.patterns, p)
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Patterns returns the source patterns
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return m.patterns
}

// Match reports whether the path given as components relative to the
// watched root is ignored. Every suffix of the path is tried, so "node_modules"
// matches at any depth and "build/*.o" matches below any build directory.
func (m *Matcher) Match(rel []string) bool {
	if m == nil || len(m.globs) == 0 || len(rel) == 0 {
		return false
	}
	for i := range rel {
		suffix := strings.Join(rel[i:], "/")
		for _, g := range m.globs {
			if g.Match(suffix) {
				return true
			}
		}
	}
	return false
}

// MatchAncestor reports whether rel or any of its ancestors is ignored
func (m *Matcher) MatchAncestor(rel []string) bool {
	for i := 1; i <= len(rel); i++ {
		if m.Match(rel[:i]) {
			return true
		}
	}
	return false
}
