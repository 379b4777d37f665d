package roots

import (
	"fmt"

	"github.com/release-tools/refwalk/internal/match"
	"github.com/release-tools/refwalk/internal/props"
)

const matcherPrefix = "matcher."

func matcherKey(i int) string {
	return fmt.Sprintf("%s%05d.pattern", matcherPrefix, i)
}

// globalMatcher is the lazily rehydrated, cached persisted matcher.
type globalMatcher struct {
	or *match.OrMatcher
}

// GlobalMatcher returns the persisted OR-matcher, rehydrating it from
// the ordered pattern list on first access. An empty persisted list
// yields OR() — which matches nothing — so callers that want "no
// restriction" must not install a global matcher at all.
func (m *Manager) GlobalMatcher() (*match.OrMatcher, error) {
	if m.gm != nil {
		return m.gm.or, nil
	}
	or := match.Or()
	for i := 0; ; i++ {
		pattern, ok, err := m.Store.Get(matcherKey(i))
		if err != nil {
			return nil, fmt.Errorf("load matcher pattern %d: %w", i, err)
		}
		if !ok {
			break
		}
		em, err := match.ByElement(pattern)
		if err != nil {
			return nil, fmt.Errorf("persisted matcher pattern %d: %w", i, err)
		}
		or.Add(em)
	}
	m.gm = &globalMatcher{or: or}
	return or, nil
}

// GlobalPatterns returns the selectors of the global matcher's
// entries, in order.
func (m *Manager) GlobalPatterns() ([]string, error) {
	or, err := m.GlobalMatcher()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, c := range or.Children() {
		em, ok := c.(*match.ElementMatcher)
		if !ok {
			return nil, fmt.Errorf("global matcher holds a %T; only element matchers are supported", c)
		}
		out = append(out, em.Selector())
	}
	return out, nil
}

// SaveGlobalMatcher rewrites the persisted representation from the
// in-memory combinator. Only element-matcher children can be
// persisted; any other kind present at save time is a programming
// error, not a user error.
func (m *Manager) SaveGlobalMatcher() error {
	patterns, err := m.GlobalPatterns()
	if err != nil {
		return err
	}
	var entries []props.KV
	for i, p := range patterns {
		entries = append(entries, props.KV{Key: matcherKey(i), Value: p})
	}
	if err := m.Store.Replace(matcherPrefix, entries); err != nil {
		return fmt.Errorf("persist global matcher: %w", err)
	}
	return nil
}

// AddGlobalPattern compiles a selector, appends it to the global
// matcher, and saves.
func (m *Manager) AddGlobalPattern(selector string) error {
	em, err := match.ByElement(selector)
	if err != nil {
		return err
	}
	or, err := m.GlobalMatcher()
	if err != nil {
		return err
	}
	or.Add(em)
	return m.SaveGlobalMatcher()
}

// ClearGlobalMatcher drops every persisted pattern and resets the
// cache.
func (m *Manager) ClearGlobalMatcher() error {
	if err := m.Store.Replace(matcherPrefix, nil); err != nil {
		return fmt.Errorf("clear global matcher: %w", err)
	}
	m.gm = &globalMatcher{or: match.Or()}
	return nil
}
