package traverse

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/release-tools/refwalk/internal/match"
	"github.com/release-tools/refwalk/internal/model"
)

func mv(path string, version string) model.ModuleVersion {
	out := model.ModuleVersion{Path: model.ParsePath(path)}
	if version != "" {
		out.Version = model.DynamicVersion(version)
	}
	return out
}

// fakeWS admits every module as checked out and synchronized unless
// listed in unsynced.
type fakeWS struct {
	unsynced map[model.ModuleVersion]bool
}

func (f *fakeWS) Checkout(ctx context.Context, m model.ModuleVersion) (string, error) {
	return "/ws/" + string(m.Path), nil
}

func (f *fakeWS) IsSynchronized(ctx context.Context, m model.ModuleVersion, dir string) (bool, error) {
	return !f.unsynced[m], nil
}

// fakeDisc serves a static edge list.
type fakeDisc struct {
	edges map[model.ModuleVersion][]model.Reference
}

func (f *fakeDisc) ListReferences(ctx context.Context, m model.ModuleVersion, dir string) ([]model.Reference, error) {
	return f.edges[m], nil
}

func edge(src, dst model.ModuleVersion) model.Reference {
	return model.Reference{Source: src, Target: &dst, Raw: string(dst.Path)}
}

type testReporter struct {
	infos []string
	warns []string
}

func (r *testReporter) Infof(format string, args ...any) {
	r.infos = append(r.infos, fmt.Sprintf(format, args...))
}

func (r *testReporter) Warnf(format string, args ...any) {
	r.warns = append(r.warns, fmt.Sprintf(format, args...))
}

func visitRecorder(visited *[]string) GraphVisitor {
	return func(ctx context.Context, p model.RefPath, ref model.Reference, dir string) (Signal, error) {
		leaf, _ := p.Leaf()
		*visited = append(*visited, leaf.String())
		return Continue, nil
	}
}

func TestGraphCycleTerminatesWithTwoVisits(t *testing.T) {
	a, b := mv("a", "trunk"), mv("b", "trunk")
	disc := &fakeDisc{edges: map[model.ModuleVersion][]model.Reference{
		a: {edge(a, b)},
		b: {edge(b, a)}, // cycle
	}}

	var visited []string
	w := &GraphWalker{
		Workspaces:    &fakeWS{},
		Discovery:     disc,
		HandleDynamic: true,
		Visit:         visitRecorder(&visited),
	}
	outcome, err := w.Run(context.Background(), []model.ModuleVersion{a})
	require.NoError(t, err)
	assert.Equal(t, Completed, outcome)
	assert.Equal(t, []string{"/a@trunk", "/b@trunk"}, visited, "exactly two callback invocations, no third")
}

func TestGraphDiamondVisitsSharedDependencyOnce(t *testing.T) {
	a, b, c, d := mv("a", "trunk"), mv("b", "trunk"), mv("c", "trunk"), mv("d", "trunk")
	disc := &fakeDisc{edges: map[model.ModuleVersion][]model.Reference{
		a: {edge(a, b), edge(a, c)},
		b: {edge(b, d)},
		c: {edge(c, d)},
	}}

	var visited []string
	w := &GraphWalker{
		Workspaces:    &fakeWS{},
		Discovery:     disc,
		HandleDynamic: true,
		Visit:         visitRecorder(&visited),
	}
	_, err := w.Run(context.Background(), []model.ModuleVersion{a})
	require.NoError(t, err)
	assert.Equal(t, []string{"/a@trunk", "/b@trunk", "/d@trunk", "/c@trunk"}, visited,
		"d reached via b only; the c->d edge hits the reentry guard")
}

func TestGraphByModuleVersionGranularity(t *testing.T) {
	a, b1, b2 := mv("a", "trunk"), mv("b", "v1"), mv("b", "v2")
	disc := &fakeDisc{edges: map[model.ModuleVersion][]model.Reference{
		a: {edge(a, b1), edge(a, b2)},
	}}

	var visited []string
	w := &GraphWalker{
		Workspaces:    &fakeWS{},
		Discovery:     disc,
		Guard:         NewGuard(ByModuleVersion),
		HandleDynamic: true,
		Visit:         visitRecorder(&visited),
	}
	_, err := w.Run(context.Background(), []model.ModuleVersion{a})
	require.NoError(t, err)
	assert.Equal(t, []string{"/a@trunk", "/b@v1", "/b@v2"}, visited)
}

func TestGraphMatcherGatesVisitsNotDescent(t *testing.T) {
	a, b, c := mv("a", "trunk"), mv("b", "trunk"), mv("c", "trunk")
	disc := &fakeDisc{edges: map[model.ModuleVersion][]model.Reference{
		a: {edge(a, c)},
		c: {edge(c, b)},
	}}
	em, err := match.ByElement("b")
	require.NoError(t, err)

	var visited []string
	w := &GraphWalker{
		Workspaces:    &fakeWS{},
		Discovery:     disc,
		Matcher:       em,
		HandleDynamic: true,
		Visit:         visitRecorder(&visited),
	}
	_, err = w.Run(context.Background(), []model.ModuleVersion{a})
	require.NoError(t, err)
	assert.Equal(t, []string{"/b@trunk"}, visited, "unmatched nodes are traversed through, not visited")
}

func TestGraphUnsynchronizedWorkspaceIsFatal(t *testing.T) {
	a := mv("a", "trunk")
	w := &GraphWalker{
		Workspaces:    &fakeWS{unsynced: map[model.ModuleVersion]bool{a: true}},
		Discovery:     &fakeDisc{},
		HandleDynamic: true,
		// Even a continue-everything policy must not soften it.
		Policy: &Policy{Default: ResolveContinue},
		Visit: func(ctx context.Context, p model.RefPath, ref model.Reference, dir string) (Signal, error) {
			t.Fatal("callback must not run for an unsynchronized workspace")
			return Continue, nil
		},
	}
	outcome, err := w.Run(context.Background(), []model.ModuleVersion{a})
	assert.Equal(t, Aborted, outcome)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not synchronized")
}

func TestGraphStaticVersionHandling(t *testing.T) {
	a := mv("a", "trunk")
	b := model.ModuleVersion{Path: "b", Version: model.StaticVersion("1.0")}
	d := mv("d", "trunk")
	disc := &fakeDisc{edges: map[model.ModuleVersion][]model.Reference{
		a: {edge(a, b)},
		b: {edge(b, d)},
	}}

	var visited []string
	w := &GraphWalker{
		Workspaces:       &fakeWS{},
		Discovery:        disc,
		HandleDynamic:    true,
		HandleStatic:     false,
		DescendUnhandled: true,
		Visit:            visitRecorder(&visited),
	}
	_, err := w.Run(context.Background(), []model.ModuleVersion{a})
	require.NoError(t, err)
	assert.Equal(t, []string{"/a@trunk", "/d@trunk"}, visited,
		"static node is not visited but its subtree still is")

	visited = nil
	w2 := &GraphWalker{
		Workspaces:       &fakeWS{},
		Discovery:        disc,
		HandleDynamic:    true,
		HandleStatic:     false,
		DescendUnhandled: false,
		Visit:            visitRecorder(&visited),
	}
	_, err = w2.Run(context.Background(), []model.ModuleVersion{a})
	require.NoError(t, err)
	assert.Equal(t, []string{"/a@trunk"}, visited, "descent stops at an unhandled version kind")
}

func TestGraphSkipDescendRunsBeforeGuard(t *testing.T) {
	a, b := mv("a", "trunk"), mv("b", "trunk")
	disc := &fakeDisc{edges: map[model.ModuleVersion][]model.Reference{
		a: {edge(a, b)},
	}}

	guard := NewGuard(ByModule)
	var visited []string
	w := &GraphWalker{
		Workspaces:    &fakeWS{},
		Discovery:     disc,
		Guard:         guard,
		HandleDynamic: true,
		SkipDescend:   func(m model.ModuleVersion) bool { return m.Path == "b" },
		Visit:         visitRecorder(&visited),
	}
	_, err := w.Run(context.Background(), []model.ModuleVersion{a})
	require.NoError(t, err)
	assert.Equal(t, []string{"/a@trunk"}, visited)
	assert.False(t, guard.Seen(b), "skip-descend must fire before the reentry guard records the node")
}

func TestGraphAbortSkipsRemainingRoots(t *testing.T) {
	a, b := mv("a", "trunk"), mv("b", "trunk")
	rep := &testReporter{}
	w := &GraphWalker{
		Workspaces:    &fakeWS{},
		Discovery:     &fakeDisc{},
		HandleDynamic: true,
		Report:        rep,
		Visit: func(ctx context.Context, p model.RefPath, ref model.Reference, dir string) (Signal, error) {
			return Abort, nil
		},
	}
	outcome, err := w.Run(context.Background(), []model.ModuleVersion{a, b})
	require.NoError(t, err)
	assert.Equal(t, Aborted, outcome)
	require.Len(t, rep.warns, 1)
	assert.Contains(t, rep.warns[0], "/b@trunk")
	assert.Contains(t, rep.warns[0], "skipped")
}

func TestGraphUnrecognizedReferenceIsReportedAndSkipped(t *testing.T) {
	a := mv("a", "trunk")
	disc := &fakeDisc{edges: map[model.ModuleVersion][]model.Reference{
		a: {{Source: a, Raw: "vendor/mystery"}},
	}}
	rep := &testReporter{}

	var visited []string
	w := &GraphWalker{
		Workspaces:    &fakeWS{},
		Discovery:     disc,
		HandleDynamic: true,
		Report:        rep,
		Visit:         visitRecorder(&visited),
	}
	outcome, err := w.Run(context.Background(), []model.ModuleVersion{a})
	require.NoError(t, err)
	assert.Equal(t, Completed, outcome)
	assert.Equal(t, []string{"/a@trunk"}, visited)
	found := false
	for _, msg := range rep.infos {
		if strings.Contains(msg, "vendor/mystery") {
			found = true
		}
	}
	assert.True(t, found, "unrecognized reference must be reported")
}

func TestGraphChildrenFirstOrder(t *testing.T) {
	a, b := mv("a", "trunk"), mv("b", "trunk")
	disc := &fakeDisc{edges: map[model.ModuleVersion][]model.Reference{
		a: {edge(a, b)},
	}}

	var visited []string
	w := &GraphWalker{
		Workspaces:    &fakeWS{},
		Discovery:     disc,
		Order:         ChildrenFirst,
		HandleDynamic: true,
		Visit:         visitRecorder(&visited),
	}
	_, err := w.Run(context.Background(), []model.ModuleVersion{a})
	require.NoError(t, err)
	assert.Equal(t, []string{"/b@trunk", "/a@trunk"}, visited)
}

func TestGraphVisitFailureContinuePolicyMovesToNextRoot(t *testing.T) {
	a, b := mv("a", "trunk"), mv("b", "trunk")
	var visited []string
	w := &GraphWalker{
		Workspaces:    &fakeWS{},
		Discovery:     &fakeDisc{},
		HandleDynamic: true,
		Policy:        &Policy{Rules: map[string]Resolution{CondVisitFailure: ResolveContinue}},
		Visit: func(ctx context.Context, p model.RefPath, ref model.Reference, dir string) (Signal, error) {
			leaf, _ := p.Leaf()
			visited = append(visited, leaf.String())
			if leaf == a {
				return Continue, fmt.Errorf("synthetic visit failure")
			}
			return Continue, nil
		},
	}
	outcome, err := w.Run(context.Background(), []model.ModuleVersion{a, b})
	require.NoError(t, err)
	assert.Equal(t, Completed, outcome)
	assert.Equal(t, []string{"/a@trunk", "/b@trunk"}, visited)
}
