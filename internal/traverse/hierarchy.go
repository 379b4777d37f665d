package traverse

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/release-tools/refwalk/internal/model"
)

// KindFilter restricts which node kinds trigger a visit callback.
// Filtered-out nodes are still descended through for their children.
type KindFilter int

const (
	AllKinds KindFilter = iota
	ClassificationsOnly
	ModulesOnly
)

func (f KindFilter) admits(k model.NodeKind) bool {
	switch f {
	case ClassificationsOnly:
		return k == model.Classification
	case ModulesOnly:
		return k == model.Module
	default:
		return true
	}
}

// NodeVisitor inspects one hierarchy node.
type NodeVisitor func(n *model.Node) (Signal, error)

type walkerState int

const (
	stateReady walkerState = iota
	stateRunning
	stateCompleted
	stateAborted
)

// HierarchyWalker walks the static classification tree from a set of
// base paths. A walker runs once; construct a new one per job.
type HierarchyWalker struct {
	Model  model.Provider
	Order  Order
	Filter KindFilter
	Policy *Policy

	// Per-kind callback slots. A nil slot means nodes of that kind
	// are descended through but not visited.
	OnClassification NodeVisitor
	OnModule         NodeVisitor

	Report Reporter

	state walkerState
}

// Run walks each base path in order. An empty bases slice walks the
// whole tree from the root. Returns Aborted with a nil error for a
// callback Abort signal, and Aborted with the cause for a fatal
// failure.
func (w *HierarchyWalker) Run(ctx context.Context, bases []model.NodePath) (Outcome, error) {
	if w.state != stateReady {
		return Aborted, fmt.Errorf("hierarchy walker already ran (state %d)", w.state)
	}
	w.state = stateRunning
	if w.Report == nil {
		w.Report = logReporter{}
	}
	if len(bases) == 0 {
		bases = []model.NodePath{""}
	}

	for _, base := range bases {
		if err := ctx.Err(); err != nil {
			w.state = stateAborted
			return Aborted, err
		}
		res := w.runBase(ctx, base)
		switch res.act {
		case actSkipBase:
			continue
		case actAbort:
			w.state = stateAborted
			return Aborted, nil
		case actFatal:
			w.state = stateAborted
			return Aborted, res.err
		}
	}
	w.state = stateCompleted
	return Completed, nil
}

func (w *HierarchyWalker) runBase(ctx context.Context, base model.NodePath) stepResult {
	n, err := w.Model.NodeAt(base)
	if err != nil {
		return w.resolve(CondNodeMissing, base, err)
	}
	// A complete path names a module: visit it directly, no descent.
	if n.Kind == model.Module {
		return w.visit(n)
	}
	return w.walkNode(ctx, n)
}

func (w *HierarchyWalker) walkNode(ctx context.Context, n *model.Node) stepResult {
	if err := ctx.Err(); err != nil {
		return fatal(err)
	}

	if w.Order == ParentFirst {
		if res := w.visit(n); res.act != actProceed {
			return res
		}
	}

	for _, childPath := range n.Children {
		child, err := w.Model.NodeAt(childPath)
		if err != nil {
			// Continue-resolution moves to the next base path, not
			// the next sibling.
			return w.resolve(CondNodeMissing, childPath, err)
		}
		var res stepResult
		if child.Kind == model.Classification {
			res = w.walkNode(ctx, child)
		} else {
			res = w.visit(child)
		}
		if res.act != actProceed {
			return res
		}
	}

	if w.Order == ChildrenFirst {
		return w.visit(n)
	}
	return proceed()
}

func (w *HierarchyWalker) visit(n *model.Node) stepResult {
	if !w.Filter.admits(n.Kind) {
		return proceed()
	}
	var cb NodeVisitor
	if n.Kind == model.Classification {
		cb = w.OnClassification
	} else {
		cb = w.OnModule
	}
	if cb == nil {
		return proceed()
	}
	sig, err := cb(n)
	if err != nil {
		return w.resolve(CondVisitFailure, n.Path, err)
	}
	if sig == Abort {
		return abort()
	}
	return proceed()
}

// resolve applies the failure policy: Continue logs and unwinds to the
// next base path, Fatal aborts the run.
func (w *HierarchyWalker) resolve(condition string, path model.NodePath, err error) stepResult {
	if w.Policy.Resolve(condition) == ResolveContinue {
		logrus.WithError(err).WithField("node", path.String()).
			Warnf("%s: continuing with next base path", condition)
		return skipBase()
	}
	return fatal(fmt.Errorf("%s at %s: %w", condition, path, err))
}
