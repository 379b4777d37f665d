package match

import (
	"fmt"

	"github.com/release-tools/refwalk/internal/model"
)

// AttributeMatcher matches when the module version at the path's last
// element carries a named attribute with a given value. The lookup
// goes through the model provider, so this is the one matcher that
// can fail.
type AttributeMatcher struct {
	provider model.Provider
	name     string
	value    string
}

// ByVersionAttribute builds an attribute matcher.
func ByVersionAttribute(provider model.Provider, name, value string) *AttributeMatcher {
	return &AttributeMatcher{provider: provider, name: name, value: value}
}

// Matches implements Matcher.
func (m *AttributeMatcher) Matches(p model.RefPath) (bool, error) {
	mv, ok := p.Leaf()
	if !ok {
		return false, nil
	}
	got, ok, err := m.provider.VersionAttribute(mv, m.name)
	if err != nil {
		return false, fmt.Errorf("attribute %q on %s: %w", m.name, mv, err)
	}
	return ok && got == m.value, nil
}

// ForProjectCode returns the AND-composition of a caller-supplied
// matcher with a project-code attribute restriction. Built once per
// job and reused for its lifetime; callers pass nil for "no caller
// matcher".
func ForProjectCode(provider model.Provider, attrName, projectCode string, caller Matcher) Matcher {
	return Combine(caller, ByVersionAttribute(provider, attrName, projectCode))
}
