package traverse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/release-tools/refwalk/internal/model"
)

// treeFixture builds:
//
//	/ ─ releng ─ libfoo, libbar
//	  └ apps   ─ web
func treeFixture() *model.MapProvider {
	m := model.NewMapProvider()
	m.AddModule("releng/libfoo")
	m.AddModule("releng/libbar")
	m.AddModule("apps/web")
	return m
}

func collector(visited *[]string) NodeVisitor {
	return func(n *model.Node) (Signal, error) {
		*visited = append(*visited, n.Path.String())
		return Continue, nil
	}
}

func TestHierarchyParentFirstOrder(t *testing.T) {
	var visited []string
	w := &HierarchyWalker{
		Model:            treeFixture(),
		Order:            ParentFirst,
		OnClassification: collector(&visited),
		OnModule:         collector(&visited),
	}
	outcome, err := w.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Completed, outcome)
	assert.Equal(t, []string{"/", "/releng", "/releng/libfoo", "/releng/libbar", "/apps", "/apps/web"}, visited)
}

func TestHierarchyChildrenFirstOrder(t *testing.T) {
	var visited []string
	w := &HierarchyWalker{
		Model:            treeFixture(),
		Order:            ChildrenFirst,
		OnClassification: collector(&visited),
		OnModule:         collector(&visited),
	}
	_, err := w.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/releng/libfoo", "/releng/libbar", "/releng", "/apps/web", "/apps", "/"}, visited)
}

func TestHierarchyKindFilterStillDescends(t *testing.T) {
	var visited []string
	w := &HierarchyWalker{
		Model:            treeFixture(),
		Filter:           ModulesOnly,
		OnClassification: collector(&visited),
		OnModule:         collector(&visited),
	}
	_, err := w.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/releng/libfoo", "/releng/libbar", "/apps/web"}, visited,
		"classification nodes are traversed through but not visited")
}

func TestHierarchyCompleteBasePathVisitsModuleDirectly(t *testing.T) {
	var visited []string
	w := &HierarchyWalker{
		Model:    treeFixture(),
		OnModule: collector(&visited),
	}
	_, err := w.Run(context.Background(), []model.NodePath{"releng/libbar"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/releng/libbar"}, visited)
}

func TestHierarchyAbortStopsAllBases(t *testing.T) {
	var visited []string
	w := &HierarchyWalker{
		Model: treeFixture(),
		OnModule: func(n *model.Node) (Signal, error) {
			visited = append(visited, n.Path.String())
			if n.Path == "releng/libfoo" {
				return Abort, nil
			}
			return Continue, nil
		},
	}
	outcome, err := w.Run(context.Background(), []model.NodePath{"releng", "apps"})
	require.NoError(t, err)
	assert.Equal(t, Aborted, outcome)
	assert.Equal(t, []string{"/releng/libfoo"}, visited, "abort must stop the remaining bases too")
}

func TestHierarchyMissingBasePolicy(t *testing.T) {
	var visited []string
	continuing := &HierarchyWalker{
		Model:    treeFixture(),
		Policy:   &Policy{Rules: map[string]Resolution{CondNodeMissing: ResolveContinue}},
		OnModule: collector(&visited),
	}
	outcome, err := continuing.Run(context.Background(), []model.NodePath{"missing", "apps"})
	require.NoError(t, err)
	assert.Equal(t, Completed, outcome)
	assert.Equal(t, []string{"/apps/web"}, visited, "continue policy moves to the next base path")

	fatalW := &HierarchyWalker{Model: treeFixture(), OnModule: collector(&visited)}
	outcome, err = fatalW.Run(context.Background(), []model.NodePath{"missing", "apps"})
	assert.Equal(t, Aborted, outcome)
	assert.Error(t, err)
}

// brokenChildModel hides one path from an otherwise intact provider,
// simulating a classification node with a dangling child entry.
type brokenChildModel struct {
	model.Provider
	missing model.NodePath
}

func (m brokenChildModel) NodeAt(p model.NodePath) (*model.Node, error) {
	if p == m.missing {
		return nil, model.ErrNotFound
	}
	return m.Provider.NodeAt(p)
}

func TestHierarchyMissingChildPolicy(t *testing.T) {
	broken := brokenChildModel{Provider: treeFixture(), missing: "releng/libbar"}

	var visited []string
	continuing := &HierarchyWalker{
		Model:    broken,
		Policy:   &Policy{Rules: map[string]Resolution{CondNodeMissing: ResolveContinue}},
		OnModule: collector(&visited),
	}
	outcome, err := continuing.Run(context.Background(), []model.NodePath{"releng", "apps"})
	require.NoError(t, err)
	assert.Equal(t, Completed, outcome)
	assert.Equal(t, []string{"/releng/libfoo", "/apps/web"}, visited,
		"a dangling child abandons its base path and moves to the next one")

	visited = nil
	fatalW := &HierarchyWalker{Model: broken, OnModule: collector(&visited)}
	outcome, err = fatalW.Run(context.Background(), []model.NodePath{"releng", "apps"})
	assert.Equal(t, Aborted, outcome)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, []string{"/releng/libfoo"}, visited)
}

func TestHierarchyVisitFailurePolicy(t *testing.T) {
	boom := errors.New("boom")
	failing := func(n *model.Node) (Signal, error) { return Continue, boom }

	w := &HierarchyWalker{
		Model:    treeFixture(),
		Policy:   &Policy{Rules: map[string]Resolution{CondVisitFailure: ResolveContinue}},
		OnModule: failing,
	}
	outcome, err := w.Run(context.Background(), []model.NodePath{"releng", "apps"})
	require.NoError(t, err)
	assert.Equal(t, Completed, outcome)

	w2 := &HierarchyWalker{Model: treeFixture(), OnModule: failing}
	outcome, err = w2.Run(context.Background(), nil)
	assert.Equal(t, Aborted, outcome)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestHierarchyWalkerIsSingleUse(t *testing.T) {
	w := &HierarchyWalker{Model: treeFixture()}
	_, err := w.Run(context.Background(), nil)
	require.NoError(t, err)
	_, err = w.Run(context.Background(), nil)
	assert.Error(t, err)
}
