// Package traverse implements the two traversal engines: the static
// classification-hierarchy walk and the dynamic reference-graph walk.
// Abort and failure propagation use explicit result values, not
// panics, so continue/abort policy stays visible in ordinary control
// flow.
package traverse

import (
	"github.com/sirupsen/logrus"
)

// Signal is a visit callback's verdict.
type Signal int

const (
	// Continue proceeds with the traversal.
	Continue Signal = iota
	// Abort stops the entire multi-root traversal immediately.
	// Remaining roots are reported as skipped, never silently
	// processed.
	Abort
)

// Outcome is a completed walker run's terminal state.
type Outcome int

const (
	Completed Outcome = iota
	Aborted
)

func (o Outcome) String() string {
	if o == Completed {
		return "completed"
	}
	return "aborted"
}

// Traversal order for both walkers.
type Order int

const (
	// ParentFirst visits a node before its children / descendants.
	ParentFirst Order = iota
	// ChildrenFirst descends first and visits the node afterward.
	ChildrenFirst
)

// Resolution is a failure policy's verdict on a named condition.
type Resolution int

const (
	// ResolveFatal aborts the whole job.
	ResolveFatal Resolution = iota
	// ResolveContinue logs the failure and moves on to the next
	// base path (hierarchy walk) or root path (graph walk).
	ResolveContinue
)

// Named conditions resolved through the failure policy.
const (
	CondNodeMissing      = "node-missing"
	CondVisitFailure     = "visit-failure"
	CondMatchFailure     = "match-failure"
	CondCheckoutFailure  = "checkout-failure"
	CondDiscoveryFailure = "discovery-failure"
)

// Policy maps condition names to resolutions. Unnamed conditions get
// Default. The zero Policy resolves everything fatally.
type Policy struct {
	Rules   map[string]Resolution
	Default Resolution
}

// Resolve looks up the resolution for a named condition.
func (p *Policy) Resolve(condition string) Resolution {
	if p == nil {
		return ResolveFatal
	}
	if r, ok := p.Rules[condition]; ok {
		return r
	}
	return p.Default
}

// Reporter receives user-facing traversal messages. The ui package's
// Interactor satisfies it.
type Reporter interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// logReporter routes messages to logrus when no sink is configured.
type logReporter struct{}

func (logReporter) Infof(format string, args ...any) { logrus.Infof(format, args...) }
func (logReporter) Warnf(format string, args ...any) { logrus.Warnf(format, args...) }

// stepResult threads continue/skip/abort/fatal decisions up through
// the recursive descent.
type stepResult struct {
	act action
	err error // set for actFatal
}

type action int

const (
	actProceed action = iota
	actSkipBase       // unwind to the base/root loop, then continue
	actAbort
	actFatal
)

func proceed() stepResult        { return stepResult{act: actProceed} }
func skipBase() stepResult       { return stepResult{act: actSkipBase} }
func abort() stepResult          { return stepResult{act: actAbort} }
func fatal(err error) stepResult { return stepResult{act: actFatal, err: err} }
