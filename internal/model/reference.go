package model

import "strings"

// Reference is a discovered dependency edge: the Source module version
// declares a dependency on Target. Target is nil for declarations the
// system cannot map to a known module ("unrecognized"); Raw preserves
// the textual declaration for reporting.
type Reference struct {
	Source ModuleVersion
	Target *ModuleVersion
	Raw    string
}

// RootReference wraps a traversal root as a synthetic top-level
// reference: no source, target = the root itself.
func RootReference(mv ModuleVersion) Reference {
	return Reference{Target: &mv, Raw: mv.String()}
}

// IsRoot reports whether r is a synthetic root wrapper.
func (r Reference) IsRoot() bool { return r.Source == (ModuleVersion{}) }

func (r Reference) String() string {
	if r.Target == nil {
		return r.Source.String() + " -> ?" + r.Raw
	}
	if r.IsRoot() {
		return r.Target.String()
	}
	return r.Source.String() + " -> " + r.Target.String()
}

// RefPath is the ordered sequence of references from a traversal root
// to the current node. It is immutable: Append returns a new value and
// never aliases the receiver's backing array, so a path held by one
// recursion level is unaffected by deeper levels.
type RefPath struct {
	refs []Reference
}

// NewRefPath starts a path at a root module version.
func NewRefPath(root ModuleVersion) RefPath {
	return RefPath{refs: []Reference{RootReference(root)}}
}

// Append returns p extended by one reference.
func (p RefPath) Append(r Reference) RefPath {
	refs := make([]Reference, len(p.refs)+1)
	copy(refs, p.refs)
	refs[len(p.refs)] = r
	return RefPath{refs: refs}
}

// Len returns the number of references, counting the synthetic root.
func (p RefPath) Len() int { return len(p.refs) }

// At returns the i-th reference from the root.
func (p RefPath) At(i int) Reference { return p.refs[i] }

// Last returns the most recently appended reference. ok is false for
// the zero path.
func (p RefPath) Last() (Reference, bool) {
	if len(p.refs) == 0 {
		return Reference{}, false
	}
	return p.refs[len(p.refs)-1], true
}

// Leaf returns the module version the path currently points at: the
// target of the last reference.
func (p RefPath) Leaf() (ModuleVersion, bool) {
	last, ok := p.Last()
	if !ok || last.Target == nil {
		return ModuleVersion{}, false
	}
	return *last.Target, true
}

func (p RefPath) String() string {
	parts := make([]string, 0, len(p.refs))
	for _, r := range p.refs {
		if r.Target != nil {
			parts = append(parts, r.Target.String())
		} else {
			parts = append(parts, "?"+r.Raw)
		}
	}
	return strings.Join(parts, " -> ")
}
