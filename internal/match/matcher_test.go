package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/release-tools/refwalk/internal/model"
)

func pathTo(mod string, version model.Version) model.RefPath {
	root := model.ModuleVersion{Path: "root", Version: model.DynamicVersion("trunk")}
	target := model.ModuleVersion{Path: model.ParsePath(mod), Version: version}
	return model.NewRefPath(root).Append(model.Reference{Source: root, Target: &target})
}

func mustMatch(t *testing.T, m Matcher, p model.RefPath) bool {
	t.Helper()
	ok, err := m.Matches(p)
	require.NoError(t, err)
	return ok
}

func TestCombinatorIdentities(t *testing.T) {
	p := pathTo("releng/libfoo", model.DynamicVersion("trunk"))

	assert.True(t, mustMatch(t, All(), p))
	assert.True(t, mustMatch(t, And(), p), "AND of nothing matches everything")
	assert.False(t, mustMatch(t, Or(), p), "OR of nothing matches nothing")
	assert.True(t, mustMatch(t, And(All(), All()), p), "AND(ALL, ALL) behaves as ALL")
	assert.True(t, mustMatch(t, Or(Or(), All()), p))
	assert.False(t, mustMatch(t, And(All(), Or()), p))
}

func TestMatcherEvaluationIsIdempotent(t *testing.T) {
	p := pathTo("releng/libfoo", model.DynamicVersion("trunk"))
	em, err := ByElement("releng/*")
	require.NoError(t, err)
	m := And(em, Or(All()))
	first := mustMatch(t, m, p)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, mustMatch(t, m, p))
	}
}

func TestByElementGlob(t *testing.T) {
	em, err := ByElement("releng/**")
	require.NoError(t, err)

	assert.True(t, mustMatch(t, em, pathTo("releng/libfoo", model.DynamicVersion("trunk"))))
	assert.True(t, mustMatch(t, em, pathTo("releng/tools/builder", model.Version{})))
	assert.False(t, mustMatch(t, em, pathTo("apps/web", model.DynamicVersion("trunk"))))
}

func TestByElementExactVersion(t *testing.T) {
	em, err := ByElement("releng/*@trunk")
	require.NoError(t, err)

	assert.True(t, mustMatch(t, em, pathTo("releng/libfoo", model.DynamicVersion("trunk"))))
	assert.False(t, mustMatch(t, em, pathTo("releng/libfoo", model.DynamicVersion("release-1"))))
	assert.False(t, mustMatch(t, em, pathTo("releng/libfoo", model.Version{})))
}

func TestByElementSemverConstraint(t *testing.T) {
	em, err := ByElement("releng/*@semver:>= 1.2, < 2")
	require.NoError(t, err)

	assert.True(t, mustMatch(t, em, pathTo("releng/libfoo", model.StaticVersion("1.4.0"))))
	assert.False(t, mustMatch(t, em, pathTo("releng/libfoo", model.StaticVersion("2.0.0"))))
	assert.False(t, mustMatch(t, em, pathTo("releng/libfoo", model.DynamicVersion("trunk"))),
		"non-semver version cannot satisfy a constraint")
}

func TestByElementRejectsBadSelector(t *testing.T) {
	_, err := ByElement("releng/*@semver:not-a-constraint")
	assert.Error(t, err)
}

func TestByElementIgnoresUnrecognizedLeaf(t *testing.T) {
	em, err := ByElement("**")
	require.NoError(t, err)
	root := model.ModuleVersion{Path: "root", Version: model.DynamicVersion("trunk")}
	p := model.NewRefPath(root).Append(model.Reference{Source: root, Raw: "vendor/mystery"})
	assert.False(t, mustMatch(t, em, p))
}

func TestByVersionAttribute(t *testing.T) {
	provider := model.NewMapProvider()
	provider.AddModule("releng/libfoo")
	mv := model.ModuleVersion{Path: "releng/libfoo", Version: model.DynamicVersion("trunk")}
	provider.SetVersionAttribute(mv, "project", "alpha")

	m := ByVersionAttribute(provider, "project", "alpha")
	assert.True(t, mustMatch(t, m, pathTo("releng/libfoo", model.DynamicVersion("trunk"))))
	assert.False(t, mustMatch(t, m, pathTo("releng/libfoo", model.DynamicVersion("other"))))

	other := ByVersionAttribute(provider, "project", "beta")
	assert.False(t, mustMatch(t, other, pathTo("releng/libfoo", model.DynamicVersion("trunk"))))
}

func TestForProjectCodeComposition(t *testing.T) {
	provider := model.NewMapProvider()
	provider.AddModule("releng/libfoo")
	provider.AddModule("apps/web")
	for _, path := range []string{"releng/libfoo", "apps/web"} {
		provider.SetVersionAttribute(
			model.ModuleVersion{Path: model.ParsePath(path), Version: model.DynamicVersion("trunk")},
			"project", "alpha")
	}

	em, err := ByElement("releng/**")
	require.NoError(t, err)
	m := ForProjectCode(provider, "project", "alpha", em)

	assert.True(t, mustMatch(t, m, pathTo("releng/libfoo", model.DynamicVersion("trunk"))))
	assert.False(t, mustMatch(t, m, pathTo("apps/web", model.DynamicVersion("trunk"))), "caller matcher must still apply")

	// No caller matcher: only the attribute restricts.
	m = ForProjectCode(provider, "project", "alpha", nil)
	assert.True(t, mustMatch(t, m, pathTo("apps/web", model.DynamicVersion("trunk"))))
}

func TestCombineDefaultsToAll(t *testing.T) {
	p := pathTo("anything", model.Version{})
	assert.True(t, mustMatch(t, Combine(), p))
	assert.True(t, mustMatch(t, Combine(nil, nil), p))
}
