// Package scm abstracts the source-control operations the traversal
// core needs: workspace checkout, synchronization checks, commits,
// and version existence lookups.
package scm

import (
	"context"

	"github.com/release-tools/refwalk/internal/model"
)

// System is the per-module source-control contract. Implementations
// block on the underlying tool; all methods take a context.
type System interface {
	// Checkout obtains a workspace copy of mv and returns its
	// directory. Checking out the same module version twice in one
	// run returns the same directory.
	Checkout(ctx context.Context, mv model.ModuleVersion) (string, error)
	// IsSynchronized reports whether the workspace at dir is fully
	// in sync with its source-control origin: no local
	// modifications, and for dynamic versions no divergence from
	// the remote branch head.
	IsSynchronized(ctx context.Context, mv model.ModuleVersion, dir string) (bool, error)
	// Commit records all workspace changes. Attributes are
	// appended to the message as trailer lines.
	Commit(ctx context.Context, mv model.ModuleVersion, dir, message string, attributes map[string]string) error
	// VersionExists reports whether mv.Version exists for the
	// module. The default version always exists.
	VersionExists(ctx context.Context, mv model.ModuleVersion) (bool, error)
}
