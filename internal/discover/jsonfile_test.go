package discover

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/release-tools/refwalk/internal/model"
)

const jsonManifestSrc = `{
  "references": [
    {"module": "releng/libfoo", "version": "trunk", "kind": "dynamic"},
    {"module": "releng/libbar", "version": "1.4.0", "kind": "static"},
    {"module": "vendor/mystery"}
  ]
}
`

func TestJSONListReferences(t *testing.T) {
	fsys := writeFS(t, map[string]string{"deps.json": jsonManifestSrc})
	d := &JSONFile{Resolver: testResolver()}

	refs, err := d.ListReferences(context.Background(), src("apps/web"), fsys)
	require.NoError(t, err)
	require.Len(t, refs, 3)

	require.NotNil(t, refs[0].Target)
	assert.Equal(t, model.DynamicVersion("trunk"), refs[0].Target.Version)
	require.NotNil(t, refs[1].Target)
	assert.Equal(t, model.StaticVersion("1.4.0"), refs[1].Target.Version)
	assert.Nil(t, refs[2].Target)
}

func TestJSONMissingManifestMeansNoReferences(t *testing.T) {
	d := &JSONFile{Resolver: testResolver()}
	refs, err := d.ListReferences(context.Background(), src("apps/web"), memfs.New())
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestJSONUpdateRewritesEntry(t *testing.T) {
	fsys := writeFS(t, map[string]string{"deps.json": jsonManifestSrc})
	d := &JSONFile{Resolver: testResolver()}
	ctx := context.Background()

	refs, err := d.ListReferences(ctx, src("apps/web"), fsys)
	require.NoError(t, err)

	changed, err := d.UpdateReferenceVersion(ctx, src("apps/web"), fsys, refs[0],
		model.StaticVersion("2.0.0"), UpdateOptions{})
	require.NoError(t, err)
	assert.True(t, changed)

	refs, err = d.ListReferences(ctx, src("apps/web"), fsys)
	require.NoError(t, err)
	assert.Equal(t, model.StaticVersion("2.0.0"), refs[0].Target.Version)
	assert.Equal(t, model.StaticVersion("1.4.0"), refs[1].Target.Version, "other entries untouched")
}

func TestJSONUpdateNoChangeAndDryRun(t *testing.T) {
	fsys := writeFS(t, map[string]string{"deps.json": jsonManifestSrc})
	d := &JSONFile{Resolver: testResolver()}
	ctx := context.Background()

	refs, err := d.ListReferences(ctx, src("apps/web"), fsys)
	require.NoError(t, err)

	changed, err := d.UpdateReferenceVersion(ctx, src("apps/web"), fsys, refs[0],
		model.DynamicVersion("trunk"), UpdateOptions{})
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = d.UpdateReferenceVersion(ctx, src("apps/web"), fsys, refs[0],
		model.DynamicVersion("release-2"), UpdateOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, changed)
	out, err := util.ReadFile(fsys, "deps.json")
	require.NoError(t, err)
	assert.Equal(t, jsonManifestSrc, string(out))
}

func TestJSONUpdateUnknownEntry(t *testing.T) {
	fsys := writeFS(t, map[string]string{"deps.json": jsonManifestSrc})
	d := &JSONFile{Resolver: testResolver()}

	_, err := d.UpdateReferenceVersion(context.Background(), src("apps/web"), fsys,
		model.Reference{Source: src("apps/web"), Raw: "releng/nope"},
		model.DynamicVersion("trunk"), UpdateOptions{})
	require.Error(t, err)
}
