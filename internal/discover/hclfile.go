package discover

import (
	"context"
	"fmt"
	"os"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/release-tools/refwalk/internal/model"
)

// DefaultHCLManifest is the manifest file HCLFile reads when no
// override is configured.
const DefaultHCLManifest = "deps.hcl"

// HCLFile discovers references declared in an HCL manifest:
//
//	reference "releng/libfoo" {
//	  version = "trunk"
//	  kind    = "dynamic"
//	}
//
// Block order is declaration order. A missing manifest means the
// module declares no references.
type HCLFile struct {
	// Manifest is the workspace-relative manifest path.
	Manifest string
	Resolver Resolver
}

func (d *HCLFile) manifest() string {
	if d.Manifest != "" {
		return d.Manifest
	}
	return DefaultHCLManifest
}

type hclReference struct {
	Name    string `hcl:"name,label"`
	Version string `hcl:"version,optional"`
	Kind    string `hcl:"kind,optional"`
}

type hclManifest struct {
	References []hclReference `hcl:"reference,block"`
}

func (d *HCLFile) parse(fsys billy.Filesystem) (*hclManifest, []byte, error) {
	src, err := util.ReadFile(fsys, d.manifest())
	if os.IsNotExist(err) {
		return &hclManifest{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read manifest %s: %w", d.manifest(), err)
	}
	file, diags := hclparse.NewParser().ParseHCL(src, d.manifest())
	if diags.HasErrors() {
		return nil, nil, fmt.Errorf("parse manifest %s: %w", d.manifest(), diags)
	}
	var m hclManifest
	if diags := gohcl.DecodeBody(file.Body, nil, &m); diags.HasErrors() {
		return nil, nil, fmt.Errorf("decode manifest %s: %w", d.manifest(), diags)
	}
	return &m, src, nil
}

func referenceVersion(value, kind string) (model.Version, error) {
	if value == "" {
		return model.Version{}, nil
	}
	k := model.Dynamic
	if kind != "" {
		var err error
		k, err = model.ParseVersionKind(kind)
		if err != nil {
			return model.Version{}, err
		}
	}
	return model.Version{Kind: k, Value: value}, nil
}

// ListReferences implements Discoverer.
func (d *HCLFile) ListReferences(ctx context.Context, source model.ModuleVersion, fsys billy.Filesystem) ([]model.Reference, error) {
	m, _, err := d.parse(fsys)
	if err != nil {
		return nil, err
	}
	var out []model.Reference
	for _, r := range m.References {
		ref := model.Reference{Source: source, Raw: r.Name}
		if path, ok := d.Resolver.Resolve(r.Name); ok {
			version, err := referenceVersion(r.Version, r.Kind)
			if err != nil {
				return nil, fmt.Errorf("reference %q: %w", r.Name, err)
			}
			ref.Target = &model.ModuleVersion{Path: path, Version: version}
		}
		out = append(out, ref)
	}
	return out, nil
}

// UpdateReferenceVersion implements Discoverer via an hclwrite
// surgical edit, preserving comments and unrelated blocks.
func (d *HCLFile) UpdateReferenceVersion(ctx context.Context, source model.ModuleVersion, fsys billy.Filesystem, ref model.Reference, newVersion model.Version, opts UpdateOptions) (bool, error) {
	if ref.Target != nil && ref.Target.Version == newVersion {
		return false, nil
	}
	src, err := util.ReadFile(fsys, d.manifest())
	if err != nil {
		return false, fmt.Errorf("read manifest %s: %w", d.manifest(), err)
	}
	file, diags := hclwrite.ParseConfig(src, d.manifest(), hcl.InitialPos)
	if diags.HasErrors() {
		return false, fmt.Errorf("parse manifest %s: %w", d.manifest(), diags)
	}
	var block *hclwrite.Block
	for _, b := range file.Body().Blocks() {
		if b.Type() == "reference" && len(b.Labels()) == 1 && b.Labels()[0] == ref.Raw {
			block = b
			break
		}
	}
	if block == nil {
		return false, fmt.Errorf("manifest %s has no reference block %q", d.manifest(), ref.Raw)
	}
	block.Body().SetAttributeValue("version", cty.StringVal(newVersion.Value))
	block.Body().SetAttributeValue("kind", cty.StringVal(newVersion.Kind.String()))
	if opts.DryRun {
		return true, nil
	}
	if err := writeAtomic(fsys, d.manifest(), file.Bytes()); err != nil {
		return false, err
	}
	return true, nil
}

var _ Discoverer = (*HCLFile)(nil)
