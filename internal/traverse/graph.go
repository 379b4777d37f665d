package traverse

import (
	"context"
	"fmt"

	"github.com/release-tools/refwalk/internal/match"
	"github.com/release-tools/refwalk/internal/model"
)

// Workspaces resolves module versions to local workspace copies.
// Implemented by the scm package.
type Workspaces interface {
	// Checkout obtains a workspace copy of mv and returns its
	// directory.
	Checkout(ctx context.Context, mv model.ModuleVersion) (string, error)
	// IsSynchronized reports whether the workspace copy at dir is
	// fully in sync with its source-control origin.
	IsSynchronized(ctx context.Context, mv model.ModuleVersion, dir string) (bool, error)
}

// Discovery lists the outgoing references declared by a module's
// workspace copy. Implementations return an empty list for modules
// without a recognized dependency-manager capability.
type Discovery interface {
	ListReferences(ctx context.Context, mv model.ModuleVersion, dir string) ([]model.Reference, error)
}

// GraphVisitor inspects (and may mutate) one matched reference path.
// ref is the path's last reference; dir is the workspace copy of its
// target.
type GraphVisitor func(ctx context.Context, p model.RefPath, ref model.Reference, dir string) (Signal, error)

// GraphWalker expands the dynamic reference graph depth-first from a
// set of root module versions. Single-threaded; visitation order is
// fully determined by root order, discovered-reference order, and the
// Order flag. A walker runs once.
type GraphWalker struct {
	Workspaces Workspaces
	Discovery  Discovery

	// Matcher gates visits; nil means match everything.
	Matcher match.Matcher
	// Guard is the per-run reentry guard; nil defaults to
	// by-module granularity.
	Guard *Guard

	Order  Order
	Policy *Policy
	Report Reporter

	// Version-kind handling. A node whose kind is not handled is
	// never visited; DescendUnhandled decides whether traversal
	// still continues through it.
	HandleStatic     bool
	HandleDynamic    bool
	DescendUnhandled bool

	// SkipDescend is a job-level hook evaluated before anything
	// else at a node, ahead of the reentry guard. The retarget job
	// uses it to skip subtrees of explicitly remapped targets.
	SkipDescend func(mv model.ModuleVersion) bool

	Visit GraphVisitor

	state walkerState
}

// Run expands the graph from each root in order. A fatal failure or
// an Abort signal stops the run; remaining roots are reported as
// skipped so already-performed actions can still be summarized.
func (w *GraphWalker) Run(ctx context.Context, roots []model.ModuleVersion) (Outcome, error) {
	if w.state != stateReady {
		return Aborted, fmt.Errorf("graph walker already ran (state %d)", w.state)
	}
	w.state = stateRunning
	if w.Guard == nil {
		w.Guard = NewGuard(ByModule)
	}
	if w.Matcher == nil {
		w.Matcher = match.All()
	}
	if w.Report == nil {
		w.Report = logReporter{}
	}

	for i, root := range roots {
		if err := ctx.Err(); err != nil {
			w.state = stateAborted
			return Aborted, err
		}
		res := w.walkRef(ctx, model.NewRefPath(root))
		switch res.act {
		case actSkipBase:
			continue
		case actAbort, actFatal:
			w.state = stateAborted
			w.reportSkipped(roots[i+1:])
			if res.act == actAbort {
				return Aborted, nil
			}
			return Aborted, res.err
		}
	}
	w.state = stateCompleted
	return Completed, nil
}

func (w *GraphWalker) reportSkipped(rest []model.ModuleVersion) {
	for _, mv := range rest {
		w.Report.Warnf("root %s skipped (traversal aborted)", mv)
	}
}

// walkRef processes the node at the tip of p and recurses into its
// discovered references. p already ends in a resolved target.
func (w *GraphWalker) walkRef(ctx context.Context, p model.RefPath) stepResult {
	if err := ctx.Err(); err != nil {
		return fatal(err)
	}
	mv, _ := p.Leaf()

	if w.SkipDescend != nil && w.SkipDescend(mv) {
		w.Report.Infof("skipping %s: subtree excluded by job", mv)
		return proceed()
	}

	dir, err := w.Workspaces.Checkout(ctx, mv)
	if err != nil {
		return w.resolve(CondCheckoutFailure, mv, err)
	}
	// Stale local state could make the job act on outdated
	// dependency declarations, so this is never policy-resolved.
	sync, err := w.Workspaces.IsSynchronized(ctx, mv, dir)
	if err != nil {
		return fatal(fmt.Errorf("synchronization check for %s: %w", mv, err))
	}
	if !sync {
		return fatal(fmt.Errorf("workspace for %s is not synchronized with its origin", mv))
	}

	handled := w.handles(mv.Version.Kind)
	if !handled && !w.DescendUnhandled {
		return proceed()
	}

	if !w.Guard.ShouldProcess(mv) {
		// Subtree was fully handled the first time it was reached.
		return proceed()
	}

	ref, _ := p.Last()
	if w.Order == ParentFirst && handled {
		if res := w.visit(ctx, p, ref, dir); res.act != actProceed {
			return res
		}
	}

	if res := w.descend(ctx, p, mv, dir); res.act != actProceed {
		return res
	}

	if w.Order == ChildrenFirst && handled {
		return w.visit(ctx, p, ref, dir)
	}
	return proceed()
}

func (w *GraphWalker) descend(ctx context.Context, p model.RefPath, mv model.ModuleVersion, dir string) stepResult {
	refs, err := w.Discovery.ListReferences(ctx, mv, dir)
	if err != nil {
		return w.resolve(CondDiscoveryFailure, mv, err)
	}
	for _, ref := range refs {
		if ref.Target == nil {
			w.Report.Infof("skipping unrecognized reference %q in %s", ref.Raw, mv)
			continue
		}
		if res := w.walkRef(ctx, p.Append(ref)); res.act != actProceed {
			return res
		}
	}
	return proceed()
}

func (w *GraphWalker) visit(ctx context.Context, p model.RefPath, ref model.Reference, dir string) stepResult {
	matched, err := w.Matcher.Matches(p)
	if err != nil {
		mv, _ := p.Leaf()
		return w.resolve(CondMatchFailure, mv, err)
	}
	if !matched {
		return proceed()
	}
	sig, err := w.Visit(ctx, p, ref, dir)
	if err != nil {
		mv, _ := p.Leaf()
		return w.resolve(CondVisitFailure, mv, err)
	}
	if sig == Abort {
		return abort()
	}
	return proceed()
}

func (w *GraphWalker) handles(k model.VersionKind) bool {
	if k == model.Static {
		return w.HandleStatic
	}
	return w.HandleDynamic
}

// resolve applies the failure policy: Continue logs and unwinds to the
// next root path, Fatal aborts the run.
func (w *GraphWalker) resolve(condition string, mv model.ModuleVersion, err error) stepResult {
	if w.Policy.Resolve(condition) == ResolveContinue {
		w.Report.Warnf("%s at %s: %v (continuing with next root)", condition, mv, err)
		return skipBase()
	}
	return fatal(fmt.Errorf("%s at %s: %w", condition, mv, err))
}
