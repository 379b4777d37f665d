// Package roots manages the persisted traversal root set and the
// persisted global matcher. All state lives in a props.Store; the
// Manager is the sole mutation gateway and fully re-persists the
// affected structure after every change.
package roots

import (
	"context"
	"fmt"

	"github.com/release-tools/refwalk/internal/model"
	"github.com/release-tools/refwalk/internal/props"
)

const rootPrefix = "roots."

// VersionChecker answers whether a version exists in source control.
// Callers pass nil to Validate to skip the (potentially expensive)
// source-control lookup.
type VersionChecker interface {
	VersionExists(ctx context.Context, mv model.ModuleVersion) (bool, error)
}

// Manager owns the persisted, ordered root set. There is no hidden
// singleton: construct one Manager per execution context. The set is
// loaded lazily on first access and cached for the run.
type Manager struct {
	Store props.Store
	Model model.Provider

	loaded bool
	cached []model.ModuleVersion

	gm *globalMatcher
}

func NewManager(store props.Store, provider model.Provider) *Manager {
	return &Manager{Store: store, Model: provider}
}

// Root entry keys carry a zero-padded positional suffix; the load
// loop stops at the first missing index.
func rootKey(i int, field string) string {
	return fmt.Sprintf("%s%05d.%s", rootPrefix, i, field)
}

func (m *Manager) load() error {
	if m.loaded {
		return nil
	}
	var list []model.ModuleVersion
	for i := 0; ; i++ {
		path, ok, err := m.Store.Get(rootKey(i, "path"))
		if err != nil {
			return fmt.Errorf("load root %d: %w", i, err)
		}
		if !ok {
			break
		}
		mv := model.ModuleVersion{Path: model.ParsePath(path)}
		if value, ok, err := m.Store.Get(rootKey(i, "version")); err != nil {
			return fmt.Errorf("load root %d version: %w", i, err)
		} else if ok {
			kindStr, _, err := m.Store.Get(rootKey(i, "kind"))
			if err != nil {
				return fmt.Errorf("load root %d kind: %w", i, err)
			}
			kind, err := model.ParseVersionKind(kindStr)
			if err != nil {
				return fmt.Errorf("root %d: %w", i, err)
			}
			mv.Version = model.Version{Kind: kind, Value: value}
		}
		list = append(list, mv)
	}
	m.cached = list
	m.loaded = true
	return nil
}

// persist rewrites the whole root set in one atomic replace and
// refreshes the cache.
func (m *Manager) persist(list []model.ModuleVersion) error {
	var entries []props.KV
	for i, mv := range list {
		entries = append(entries, props.KV{Key: rootKey(i, "path"), Value: string(mv.Path)})
		if !mv.Version.IsZero() {
			entries = append(entries,
				props.KV{Key: rootKey(i, "version"), Value: mv.Version.Value},
				props.KV{Key: rootKey(i, "kind"), Value: mv.Version.Kind.String()},
			)
		}
	}
	if err := m.Store.Replace(rootPrefix, entries); err != nil {
		return fmt.Errorf("persist root set: %w", err)
	}
	m.cached = list
	m.loaded = true
	return nil
}

// List returns the ordered root set. The returned slice is a copy.
func (m *Manager) List() ([]model.ModuleVersion, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	out := make([]model.ModuleVersion, len(m.cached))
	copy(out, m.cached)
	return out, nil
}

// Contains reports whether an equal ModuleVersion is present.
func (m *Manager) Contains(mv model.ModuleVersion) (bool, error) {
	if err := m.load(); err != nil {
		return false, err
	}
	return m.indexOf(mv) >= 0, nil
}

// Find returns every root entry for the given module path, in set
// order.
func (m *Manager) Find(path model.NodePath) ([]model.ModuleVersion, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	var out []model.ModuleVersion
	for _, e := range m.cached {
		if e.Path == path {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Manager) indexOf(mv model.ModuleVersion) int {
	for i, e := range m.cached {
		if e == mv {
			return i
		}
	}
	return -1
}

// Add appends mv to the set. It refuses (false, nil) when an equal
// entry exists, or — unless allowDuplicateModule — when another entry
// shares the module path at a different version.
func (m *Manager) Add(mv model.ModuleVersion, allowDuplicateModule bool) (bool, error) {
	if err := m.load(); err != nil {
		return false, err
	}
	for _, e := range m.cached {
		if e == mv {
			return false, nil
		}
		if !allowDuplicateModule && e.Path == mv.Path {
			return false, nil
		}
	}
	next := append(append([]model.ModuleVersion{}, m.cached...), mv)
	return true, m.persist(next)
}

// Remove deletes the equal entry, reporting whether one was present.
func (m *Manager) Remove(mv model.ModuleVersion) (bool, error) {
	if err := m.load(); err != nil {
		return false, err
	}
	i := m.indexOf(mv)
	if i < 0 {
		return false, nil
	}
	next := append(append([]model.ModuleVersion{}, m.cached[:i]...), m.cached[i+1:]...)
	return true, m.persist(next)
}

// RemoveAll clears the set.
func (m *Manager) RemoveAll() error {
	return m.persist(nil)
}

// Replace swaps old for new in place, reporting whether old was
// present.
func (m *Manager) Replace(old, new model.ModuleVersion) (bool, error) {
	if err := m.load(); err != nil {
		return false, err
	}
	i := m.indexOf(old)
	if i < 0 {
		return false, nil
	}
	next := append([]model.ModuleVersion{}, m.cached...)
	next[i] = new
	return true, m.persist(next)
}

// MoveFirst relocates mv to index 0, preserving the relative order of
// the others.
func (m *Manager) MoveFirst(mv model.ModuleVersion) (bool, error) {
	return m.move(mv, true)
}

// MoveLast relocates mv to the last index.
func (m *Manager) MoveLast(mv model.ModuleVersion) (bool, error) {
	return m.move(mv, false)
}

func (m *Manager) move(mv model.ModuleVersion, first bool) (bool, error) {
	if err := m.load(); err != nil {
		return false, err
	}
	i := m.indexOf(mv)
	if i < 0 {
		return false, nil
	}
	rest := append(append([]model.ModuleVersion{}, m.cached[:i]...), m.cached[i+1:]...)
	var next []model.ModuleVersion
	if first {
		next = append([]model.ModuleVersion{mv}, rest...)
	} else {
		next = append(rest, mv)
	}
	return true, m.persist(next)
}

// Validate checks that mv names a module in the model and, when a
// non-default version is given and versions is non-nil, that the
// version exists in source control. Errors are user-facing.
func (m *Manager) Validate(ctx context.Context, mv model.ModuleVersion, versions VersionChecker) error {
	n, err := m.Model.NodeAt(mv.Path)
	if err != nil {
		return fmt.Errorf("no such module %s", mv.Path)
	}
	if n.Kind != model.Module {
		return fmt.Errorf("%s is a classification node, not a module", mv.Path)
	}
	if mv.Version.IsZero() || versions == nil {
		return nil
	}
	ok, err := versions.VersionExists(ctx, mv)
	if err != nil {
		return fmt.Errorf("checking version %s of %s: %w", mv.Version, mv.Path, err)
	}
	if !ok {
		return fmt.Errorf("module %s has no version %s", mv.Path, mv.Version)
	}
	return nil
}
