// Package match implements composable predicates over reference paths.
// Matchers decide which graph paths a traversal job acts on.
package match

import "github.com/release-tools/refwalk/internal/model"

// Matcher is a side-effect-free predicate over a reference path. The
// error return exists for matchers that consult the model provider
// (attribute lookups); pure matchers never error. Matchers must be
// safe to evaluate repeatedly with identical results.
type Matcher interface {
	Matches(p model.RefPath) (bool, error)
}

type all struct{}

func (all) Matches(model.RefPath) (bool, error) { return true, nil }

// All matches every path. It is the contract's default: an absent
// matcher never silently matches nothing.
func All() Matcher { return all{} }

// AndMatcher matches iff all children match. No children matches
// everything.
type AndMatcher struct {
	children []Matcher
}

func And(children ...Matcher) *AndMatcher { return &AndMatcher{children: children} }

func (m *AndMatcher) Matches(p model.RefPath) (bool, error) {
	for _, c := range m.children {
		ok, err := c.Matches(p)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// OrMatcher matches iff any child matches. No children matches
// nothing.
type OrMatcher struct {
	children []Matcher
}

func Or(children ...Matcher) *OrMatcher { return &OrMatcher{children: children} }

func (m *OrMatcher) Matches(p model.RefPath) (bool, error) {
	for _, c := range m.children {
		ok, err := c.Matches(p)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Add appends a child matcher. Used when rebuilding the persisted
// global matcher entry by entry.
func (m *OrMatcher) Add(c Matcher) { m.children = append(m.children, c) }

// Children returns the child matchers in order.
func (m *OrMatcher) Children() []Matcher { return m.children }

// Combine AND-combines the non-nil matchers, treating nil as "no
// restriction". With no non-nil inputs it returns All.
func Combine(matchers ...Matcher) Matcher {
	var kept []Matcher
	for _, m := range matchers {
		if m != nil {
			kept = append(kept, m)
		}
	}
	switch len(kept) {
	case 0:
		return All()
	case 1:
		return kept[0]
	default:
		return And(kept...)
	}
}
