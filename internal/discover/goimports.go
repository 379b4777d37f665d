package discover

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/release-tools/refwalk/internal/model"
)

// GoImports discovers references embedded in Go sources: import
// paths under configured prefixes, where a major-version suffix
// ("/v2") is the referenced version. Retargeting rewrites the suffix
// in every import spec and reformats the touched files with gofumpt.
type GoImports struct {
	// Prefixes maps import path prefixes to model module paths,
	// e.g. "example.com/libfoo" → "releng/libfoo".
	Prefixes map[string]model.NodePath
}

const importQuery = `(import_spec path: (interpreted_string_literal) @path)`

var majorSegment = regexp.MustCompile(`^v[0-9]+$`)

// importSite is one import spec occurrence: which file, and where the
// quoted path literal sits.
type importSite struct {
	file       string
	start, end uint32 // byte range of the literal, quotes included
	path       string // unquoted import path
}

// hiddenSegment reports whether any element of path is a hidden or
// underscore-prefixed directory entry, which the Go toolchain ignores.
func hiddenSegment(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg != "." && (strings.HasPrefix(seg, ".") || strings.HasPrefix(seg, "_")) {
			return true
		}
	}
	return false
}

func (d *GoImports) scan(ctx context.Context, fsys billy.Filesystem) ([]importSite, error) {
	var files []string
	err := util.Walk(fsys, ".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != "." && hiddenSegment(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(info.Name(), ".go") && !hiddenSegment(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk workspace: %w", err)
	}
	sort.Strings(files)

	lang := golang.GetLanguage()
	query, err := sitter.NewQuery([]byte(importQuery), lang)
	if err != nil {
		return nil, fmt.Errorf("compile import query: %w", err)
	}
	defer query.Close()

	var sites []importSite
	for _, file := range files {
		src, err := util.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		parser := sitter.NewParser()
		parser.SetLanguage(lang)
		tree, err := parser.ParseCtx(ctx, nil, src)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		qc := sitter.NewQueryCursor()
		qc.Exec(query, tree.RootNode())
		for {
			m, ok := qc.NextMatch()
			if !ok {
				break
			}
			for _, c := range m.Captures {
				start, end := c.Node.StartByte(), c.Node.EndByte()
				if int(end) > len(src) || end-start < 2 {
					continue
				}
				lit := string(src[start:end])
				sites = append(sites, importSite{
					file:  file,
					start: start,
					end:   end,
					path:  strings.Trim(lit, `"`),
				})
			}
		}
		qc.Close()
		tree.Close()
	}
	return sites, nil
}

// match splits an import path into its configured prefix and major
// version segment. ok is false for paths under no configured prefix.
func (d *GoImports) match(importPath string) (prefix string, modPath model.NodePath, major string, ok bool) {
	for p, m := range d.Prefixes {
		if importPath != p && !strings.HasPrefix(importPath, p+"/") {
			continue
		}
		// Longest prefix wins.
		if len(p) <= len(prefix) {
			continue
		}
		prefix, modPath, ok = p, m, true
		major = ""
		rest := strings.TrimPrefix(importPath, p)
		rest = strings.TrimPrefix(rest, "/")
		if seg, _, _ := strings.Cut(rest, "/"); majorSegment.MatchString(seg) {
			major = seg
		}
	}
	return prefix, modPath, major, ok
}

// ListReferences implements Discoverer. Each distinct import path
// yields one reference, ordered by first occurrence over the sorted
// file walk; two paths under the same prefix stay separate so each
// can be retargeted on its own.
func (d *GoImports) ListReferences(ctx context.Context, source model.ModuleVersion, fsys billy.Filesystem) ([]model.Reference, error) {
	sites, err := d.scan(ctx, fsys)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []model.Reference
	for _, s := range sites {
		_, modPath, major, ok := d.match(s.path)
		if !ok || seen[s.path] {
			continue
		}
		seen[s.path] = true
		target := model.ModuleVersion{Path: modPath}
		if major != "" {
			target.Version = model.DynamicVersion(major)
		}
		out = append(out, model.Reference{Source: source, Target: &target, Raw: s.path})
	}
	return out, nil
}

// retargetImportPath swaps (or inserts) the major-version segment.
func retargetImportPath(importPath, prefix, newMajor string) string {
	rest := strings.TrimPrefix(strings.TrimPrefix(importPath, prefix), "/")
	if seg, tail, found := strings.Cut(rest, "/"); majorSegment.MatchString(seg) {
		if !found {
			rest = newMajor
		} else {
			rest = newMajor + "/" + tail
		}
	} else if rest == "" {
		rest = newMajor
	} else {
		rest = newMajor + "/" + rest
	}
	return prefix + "/" + rest
}

// UpdateReferenceVersion implements Discoverer: every import spec for
// ref.Raw is spliced to the new major version and the touched files
// are reformatted with gofumpt.
func (d *GoImports) UpdateReferenceVersion(ctx context.Context, source model.ModuleVersion, fsys billy.Filesystem, ref model.Reference, newVersion model.Version, opts UpdateOptions) (bool, error) {
	prefix, _, major, ok := d.match(ref.Raw)
	if !ok {
		return false, fmt.Errorf("import path %q matches no configured prefix", ref.Raw)
	}
	if major == newVersion.Value {
		return false, nil
	}
	newPath := retargetImportPath(ref.Raw, prefix, newVersion.Value)

	sites, err := d.scan(ctx, fsys)
	if err != nil {
		return false, err
	}
	// Splice per file, back to front so earlier offsets stay valid.
	byFile := make(map[string][]importSite)
	for _, s := range sites {
		if s.path == ref.Raw {
			byFile[s.file] = append(byFile[s.file], s)
		}
	}
	if len(byFile) == 0 {
		return false, fmt.Errorf("no import of %q found in workspace", ref.Raw)
	}
	if opts.DryRun {
		return true, nil
	}
	quoted := []byte(`"` + newPath + `"`)
	for file, fileSites := range byFile {
		sort.Slice(fileSites, func(i, j int) bool { return fileSites[i].start > fileSites[j].start })
		for _, s := range fileSites {
			if err := splice(fsys, file, s.start, s.end, quoted); err != nil {
				return false, err
			}
		}
		src, err := util.ReadFile(fsys, file)
		if err != nil {
			return false, fmt.Errorf("read %s: %w", file, err)
		}
		if err := writeAtomic(fsys, file, formatGoBuffer(src, file)); err != nil {
			return false, err
		}
	}
	return true, nil
}

var _ Discoverer = (*GoImports)(nil)
