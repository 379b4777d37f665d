// Package discover finds dependency declarations ("references")
// inside a module's checked-out sources and can rewrite their target
// versions. Discovery is an optional per-module capability: modules
// without one simply declare no references.
//
// Backends read workspaces through a billy.Filesystem, so tests run
// against memfs without touching disk.
package discover

import (
	"context"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/release-tools/refwalk/internal/model"
)

// UpdateOptions controls reference rewrites.
type UpdateOptions struct {
	// DryRun parses and locates the reference but writes nothing.
	DryRun bool
}

// Discoverer is the per-module reference-discovery capability.
type Discoverer interface {
	// ListReferences returns the references declared by the
	// workspace, in declaration order.
	ListReferences(ctx context.Context, source model.ModuleVersion, fsys billy.Filesystem) ([]model.Reference, error)
	// UpdateReferenceVersion retargets ref to newVersion in the
	// workspace sources. It returns false when no artifact-level
	// change was needed — the reference already was at the desired
	// effective version.
	UpdateReferenceVersion(ctx context.Context, source model.ModuleVersion, fsys billy.Filesystem, ref model.Reference, newVersion model.Version, opts UpdateOptions) (bool, error)
}

// Resolver maps a raw dependency declaration to a known module. ok is
// false for unrecognized declarations; those become references with a
// nil target and are skipped by traversal.
type Resolver interface {
	Resolve(raw string) (model.NodePath, bool)
}

// ModelResolver recognizes declarations whose text is exactly a
// module path present in the model.
type ModelResolver struct {
	Model model.Provider
}

func (r *ModelResolver) Resolve(raw string) (model.NodePath, bool) {
	p := model.ParsePath(raw)
	n, err := r.Model.NodeAt(p)
	if err != nil || n.Kind != model.Module {
		return "", false
	}
	return p, true
}

// Registry assigns discoverers to modules.
type Registry struct {
	caps map[model.NodePath]Discoverer
}

func NewRegistry() *Registry {
	return &Registry{caps: make(map[model.NodePath]Discoverer)}
}

// Register declares that module path has the given discovery
// capability.
func (r *Registry) Register(path model.NodePath, d Discoverer) {
	r.caps[path] = d
}

// For returns the module's discoverer, if any.
func (r *Registry) For(path model.NodePath) (Discoverer, bool) {
	d, ok := r.caps[path]
	return d, ok
}

// Source bridges a Registry to the graph walker's Discovery contract,
// mounting each workspace directory as an OS-backed billy filesystem.
type Source struct {
	Registry *Registry
}

func (s *Source) ListReferences(ctx context.Context, mv model.ModuleVersion, dir string) ([]model.Reference, error) {
	d, ok := s.Registry.For(mv.Path)
	if !ok {
		return nil, nil
	}
	return d.ListReferences(ctx, mv, osfs.New(dir))
}

// Update rewrites ref in the workspace at dir. Modules without a
// discovery capability report no change.
func (s *Source) Update(ctx context.Context, mv model.ModuleVersion, dir string, ref model.Reference, newVersion model.Version, opts UpdateOptions) (bool, error) {
	d, ok := s.Registry.For(mv.Path)
	if !ok {
		return false, nil
	}
	return d.UpdateReferenceVersion(ctx, mv, osfs.New(dir), ref, newVersion, opts)
}
