package model

import (
	"fmt"
	"sort"
	"strings"
)

// NodeKind declares what a hierarchy node is. Classification nodes are
// interior grouping nodes; module nodes are leaves.
type NodeKind int

const (
	Classification NodeKind = iota
	Module
)

func (k NodeKind) String() string {
	switch k {
	case Classification:
		return "classification"
	case Module:
		return "module"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is a vertex of the static hierarchy. Module nodes never have
// children.
type Node struct {
	Kind     NodeKind
	Path     NodePath
	Children []NodePath // classification nodes only, in declaration order
}

// Provider resolves the static model: hierarchy nodes and the
// version attributes configured on module versions.
type Provider interface {
	// NodeAt resolves a path to its node, or ErrNotFound.
	NodeAt(path NodePath) (*Node, error)
	// VersionAttribute looks up a named attribute configured on a
	// module version. ok is false when the attribute is not set.
	VersionAttribute(mv ModuleVersion, name string) (value string, ok bool, err error)
}

// MapProvider is an in-memory Provider. Used by tests and by the CLI
// after loading a model description file.
type MapProvider struct {
	nodes map[NodePath]*Node
	attrs map[string]string // mv.String()+"\x00"+name → value
}

func NewMapProvider() *MapProvider {
	root := &Node{Kind: Classification, Path: ""}
	return &MapProvider{
		nodes: map[NodePath]*Node{"": root},
		attrs: map[string]string{},
	}
}

// AddModule registers a module leaf, creating missing classification
// ancestors on the way down.
func (m *MapProvider) AddModule(path NodePath) *Node {
	return m.add(path, Module)
}

// AddClassification registers an interior node, creating missing
// ancestors.
func (m *MapProvider) AddClassification(path NodePath) *Node {
	return m.add(path, Classification)
}

func (m *MapProvider) add(path NodePath, kind NodeKind) *Node {
	if n, ok := m.nodes[path]; ok {
		return n
	}
	parent := m.add(path.Parent(), Classification)
	n := &Node{Kind: kind, Path: path}
	m.nodes[path] = n
	parent.Children = append(parent.Children, path)
	return n
}

// SetVersionAttribute configures a named attribute on a module version.
func (m *MapProvider) SetVersionAttribute(mv ModuleVersion, name, value string) {
	m.attrs[attrKey(mv, name)] = value
}

func attrKey(mv ModuleVersion, name string) string {
	return mv.String() + "\x00" + name
}

// NodeAt implements Provider.
func (m *MapProvider) NodeAt(path NodePath) (*Node, error) {
	n, ok := m.nodes[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return n, nil
}

// VersionAttribute implements Provider.
func (m *MapProvider) VersionAttribute(mv ModuleVersion, name string) (string, bool, error) {
	v, ok := m.attrs[attrKey(mv, name)]
	return v, ok, nil
}

// Modules returns every module path in the model, sorted. Handy for
// CLI listings.
func (m *MapProvider) Modules() []NodePath {
	var out []NodePath
	for p, n := range m.nodes {
		if n.Kind == Module {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(string(out[i]), string(out[j])) < 0 })
	return out
}
