package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ohler55/ojg/oj"

	"github.com/release-tools/refwalk/internal/discover"
	"github.com/release-tools/refwalk/internal/model"
	"github.com/release-tools/refwalk/internal/scm"
)

// modelFile is the CLI's model description:
//
//	{
//	  "default_branch": "main",
//	  "workdir": "/tmp/refwalk-ws",
//	  "modules": [
//	    {
//	      "path": "releng/libfoo",
//	      "remote": "https://git.example.com/libfoo.git",
//	      "discovery": "hcl",
//	      "attributes": {"trunk": {"project": "alpha"}}
//	    }
//	  ]
//	}
//
// discovery ∈ {"hcl", "json", "go-imports", ""}; empty means the
// module declares no references.
type modelFile struct {
	DefaultBranch string `json:"default_branch"`
	WorkDir       string `json:"workdir"`
	// ProjectAttribute names the version attribute consulted by the
	// --project matcher restriction. Empty means "project".
	ProjectAttribute string        `json:"project_attribute"`
	Modules          []moduleEntry `json:"modules"`
}

type moduleEntry struct {
	Path       string                       `json:"path"`
	Remote     string                       `json:"remote"`
	Discovery  string                       `json:"discovery"`
	GoPrefixes map[string]string            `json:"go_prefixes"`
	Attributes map[string]map[string]string `json:"attributes"`
}

// environment bundles the collaborators built from the model file.
type environment struct {
	Model       *model.MapProvider
	SCM         *scm.Git
	Extract     *discover.Source
	ProjectAttr string
}

func loadEnvironment() (*environment, error) {
	path := modelPath
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "model.json")
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file %s: %w", path, err)
	}
	var mf modelFile
	if err := oj.Unmarshal(src, &mf); err != nil {
		return nil, fmt.Errorf("parse model file %s: %w", path, err)
	}
	return buildEnvironment(&mf)
}

func buildEnvironment(mf *modelFile) (*environment, error) {
	provider := model.NewMapProvider()
	remotes := make(map[model.NodePath]string)
	registry := discover.NewRegistry()
	resolver := &discover.ModelResolver{Model: provider}

	workDir := mf.WorkDir
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "refwalk-ws")
	}
	projectAttr := mf.ProjectAttribute
	if projectAttr == "" {
		projectAttr = "project"
	}

	for _, m := range mf.Modules {
		p := model.ParsePath(m.Path)
		provider.AddModule(p)
		if m.Remote != "" {
			remotes[p] = m.Remote
		}
		for version, attrs := range m.Attributes {
			mv := model.ModuleVersion{Path: p}
			if version != "" {
				mv.Version = model.DynamicVersion(version)
			}
			for name, value := range attrs {
				provider.SetVersionAttribute(mv, name, value)
			}
		}
		switch m.Discovery {
		case "hcl":
			registry.Register(p, &discover.HCLFile{Resolver: resolver})
		case "json":
			registry.Register(p, &discover.JSONFile{Resolver: resolver})
		case "go-imports":
			prefixes := make(map[string]model.NodePath, len(m.GoPrefixes))
			for prefix, target := range m.GoPrefixes {
				prefixes[prefix] = model.ParsePath(target)
			}
			registry.Register(p, &discover.GoImports{Prefixes: prefixes})
		case "":
		default:
			return nil, fmt.Errorf("module %s: unknown discovery capability %q", m.Path, m.Discovery)
		}
	}

	return &environment{
		Model: provider,
		SCM: &scm.Git{
			WorkDir:       workDir,
			Remotes:       remotes,
			DefaultBranch: mf.DefaultBranch,
			AuthorName:    "refwalk",
			AuthorEmail:   "refwalk@localhost",
		},
		Extract:     &discover.Source{Registry: registry},
		ProjectAttr: projectAttr,
	}, nil
}
