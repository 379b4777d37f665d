package discover

import (
	"context"
	"fmt"
	"os"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/release-tools/refwalk/internal/model"
)

// DefaultJSONManifest is the manifest file JSONFile reads when no
// override is configured.
const DefaultJSONManifest = "deps.json"

// JSONFile discovers references declared in a JSON manifest:
//
//	{"references": [{"module": "releng/libfoo", "version": "trunk", "kind": "dynamic"}]}
//
// Array order is declaration order.
type JSONFile struct {
	Manifest string
	Resolver Resolver
}

func (d *JSONFile) manifest() string {
	if d.Manifest != "" {
		return d.Manifest
	}
	return DefaultJSONManifest
}

var refsPath = jp.MustParseString("references[*]")

func (d *JSONFile) parse(fsys billy.Filesystem) (doc any, entries []map[string]any, err error) {
	src, err := util.ReadFile(fsys, d.manifest())
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read manifest %s: %w", d.manifest(), err)
	}
	doc, err = oj.Parse(src)
	if err != nil {
		return nil, nil, fmt.Errorf("parse manifest %s: %w", d.manifest(), err)
	}
	for _, raw := range refsPath.Get(doc) {
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, nil, fmt.Errorf("manifest %s: reference entries must be objects, got %T", d.manifest(), raw)
		}
		entries = append(entries, entry)
	}
	return doc, entries, nil
}

func stringField(entry map[string]any, key string) string {
	s, _ := entry[key].(string)
	return s
}

// ListReferences implements Discoverer.
func (d *JSONFile) ListReferences(ctx context.Context, source model.ModuleVersion, fsys billy.Filesystem) ([]model.Reference, error) {
	_, entries, err := d.parse(fsys)
	if err != nil {
		return nil, err
	}
	var out []model.Reference
	for _, entry := range entries {
		name := stringField(entry, "module")
		ref := model.Reference{Source: source, Raw: name}
		if path, ok := d.Resolver.Resolve(name); ok {
			version, err := referenceVersion(stringField(entry, "version"), stringField(entry, "kind"))
			if err != nil {
				return nil, fmt.Errorf("reference %q: %w", name, err)
			}
			ref.Target = &model.ModuleVersion{Path: path, Version: version}
		}
		out = append(out, ref)
	}
	return out, nil
}

// UpdateReferenceVersion implements Discoverer by rewriting the
// matching entry and re-serializing the whole manifest.
func (d *JSONFile) UpdateReferenceVersion(ctx context.Context, source model.ModuleVersion, fsys billy.Filesystem, ref model.Reference, newVersion model.Version, opts UpdateOptions) (bool, error) {
	if ref.Target != nil && ref.Target.Version == newVersion {
		return false, nil
	}
	doc, entries, err := d.parse(fsys)
	if err != nil {
		return false, err
	}
	var entry map[string]any
	for _, e := range entries {
		if stringField(e, "module") == ref.Raw {
			entry = e
			break
		}
	}
	if entry == nil {
		return false, fmt.Errorf("manifest %s has no reference entry %q", d.manifest(), ref.Raw)
	}
	entry["version"] = newVersion.Value
	entry["kind"] = newVersion.Kind.String()
	if opts.DryRun {
		return true, nil
	}
	if err := writeAtomic(fsys, d.manifest(), []byte(oj.JSON(doc, 2)+"\n")); err != nil {
		return false, err
	}
	return true, nil
}

var _ Discoverer = (*JSONFile)(nil)
