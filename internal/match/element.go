package match

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/release-tools/refwalk/internal/model"
)

// ElementMatcher matches when the path's LAST reference targets a
// module whose path satisfies a doublestar glob, optionally pinned to
// a version spec. Selector syntax:
//
//	glob               any version
//	glob@value         exact version value
//	glob@semver:spec   Masterminds constraint, e.g. ">= 1.2, < 2"
//
// Paths ending in an unrecognized reference (nil target) never match.
type ElementMatcher struct {
	selector   string
	glob       string
	version    string
	constraint *semver.Constraints
}

// ByElement compiles a path-element selector. The glob is validated
// eagerly so a bad persisted pattern fails at load, not mid-traversal.
func ByElement(selector string) (*ElementMatcher, error) {
	m := &ElementMatcher{selector: selector, glob: selector}
	if i := strings.IndexByte(selector, '@'); i >= 0 {
		m.glob = selector[:i]
		spec := selector[i+1:]
		if rest, ok := strings.CutPrefix(spec, "semver:"); ok {
			c, err := semver.NewConstraint(rest)
			if err != nil {
				return nil, fmt.Errorf("selector %q: bad version constraint: %w", selector, err)
			}
			m.constraint = c
		} else {
			m.version = spec
		}
	}
	if _, err := doublestar.Match(m.glob, ""); err != nil {
		return nil, fmt.Errorf("selector %q: bad glob: %w", selector, err)
	}
	return m, nil
}

// Selector returns the textual form the matcher was compiled from.
// The global matcher persists exactly this string.
func (m *ElementMatcher) Selector() string { return m.selector }

// Matches implements Matcher.
func (m *ElementMatcher) Matches(p model.RefPath) (bool, error) {
	mv, ok := p.Leaf()
	if !ok {
		return false, nil
	}
	ok, err := doublestar.Match(m.glob, string(mv.Path))
	if err != nil || !ok {
		return false, err
	}
	switch {
	case m.constraint != nil:
		v, err := semver.NewVersion(mv.Version.Value)
		if err != nil {
			return false, nil // non-semver version cannot satisfy a constraint
		}
		return m.constraint.Check(v), nil
	case m.version != "":
		return mv.Version.Value == m.version, nil
	default:
		return true, nil
	}
}
