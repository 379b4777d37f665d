package scm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/sirupsen/logrus"

	"github.com/release-tools/refwalk/internal/model"
)

// Git implements System on go-git. Workspaces are cloned under
// WorkDir, one directory per module version, and reused across calls
// within a run.
type Git struct {
	// WorkDir is the root under which workspace copies live.
	WorkDir string
	// Remotes maps module paths to their clone URLs.
	Remotes map[model.NodePath]string
	// DefaultBranch is checked out for the default (zero) version.
	// Empty means "master", go-git's init default.
	DefaultBranch string

	// Author identity for commits.
	AuthorName  string
	AuthorEmail string
}

func (g *Git) remote(path model.NodePath) (string, error) {
	url, ok := g.Remotes[path]
	if !ok {
		return "", fmt.Errorf("no remote configured for module %s", path)
	}
	return url, nil
}

// workspaceDir derives a stable per-module-version directory.
func (g *Git) workspaceDir(mv model.ModuleVersion) string {
	label := mv.Version.Value
	if label == "" {
		label = "_default"
	}
	return filepath.Join(g.WorkDir, filepath.FromSlash(string(mv.Path)), label)
}

func (g *Git) refName(mv model.ModuleVersion) plumbing.ReferenceName {
	if mv.Version.IsZero() {
		branch := g.DefaultBranch
		if branch == "" {
			branch = "master"
		}
		return plumbing.NewBranchReferenceName(branch)
	}
	if mv.Version.Kind == model.Static {
		return plumbing.NewTagReferenceName(mv.Version.Value)
	}
	return plumbing.NewBranchReferenceName(mv.Version.Value)
}

// Checkout implements System. An existing workspace is reused as-is;
// IsSynchronized catches any staleness.
func (g *Git) Checkout(ctx context.Context, mv model.ModuleVersion) (string, error) {
	dir := g.workspaceDir(mv)
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return dir, nil
	}
	url, err := g.remote(mv.Path)
	if err != nil {
		return "", err
	}
	logrus.WithField("module", mv.String()).Debug("cloning workspace")
	_, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           url,
		ReferenceName: g.refName(mv),
		SingleBranch:  true,
	})
	if err != nil {
		return "", fmt.Errorf("clone %s into %s: %w", mv, dir, err)
	}
	return dir, nil
}

// IsSynchronized implements System: the worktree must be clean, and
// dynamic versions must not have diverged from the remote branch
// head (when a remote-tracking ref is available).
func (g *Git) IsSynchronized(ctx context.Context, mv model.ModuleVersion, dir string) (bool, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return false, fmt.Errorf("open workspace %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("worktree %s: %w", dir, err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("status %s: %w", dir, err)
	}
	if !status.IsClean() {
		return false, nil
	}
	if mv.Version.Kind == model.Static && !mv.Version.IsZero() {
		return true, nil
	}
	branch := mv.Version.Value
	if branch == "" {
		branch = g.DefaultBranch
		if branch == "" {
			branch = "master"
		}
	}
	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		// No remote-tracking ref (e.g. local-only fixture): the
		// clean worktree is all we can check.
		return true, nil //nolint:nilerr
	}
	head, err := repo.Head()
	if err != nil {
		return false, fmt.Errorf("head %s: %w", dir, err)
	}
	return head.Hash() == remoteRef.Hash(), nil
}

// Commit implements System.
func (g *Git) Commit(ctx context.Context, mv model.ModuleVersion, dir, message string, attributes map[string]string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("open workspace %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree %s: %w", dir, err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("stage changes in %s: %w", dir, err)
	}
	name := g.AuthorName
	if name == "" {
		name = "refwalk"
	}
	_, err = wt.Commit(formatMessage(message, attributes), &git.CommitOptions{
		Author: &object.Signature{Name: name, Email: g.AuthorEmail, When: time.Now()},
	})
	if err != nil {
		return fmt.Errorf("commit in %s: %w", dir, err)
	}
	return nil
}

func formatMessage(message string, attributes map[string]string) string {
	if len(attributes) == 0 {
		return message
	}
	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(message)
	b.WriteString("\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %s", k, attributes[k])
	}
	return b.String()
}

// VersionExists implements System by listing the remote's refs, so
// branches never fetched into a local workspace are still seen.
func (g *Git) VersionExists(ctx context.Context, mv model.ModuleVersion) (bool, error) {
	if mv.Version.IsZero() {
		return true, nil
	}
	url, err := g.remote(mv.Path)
	if err != nil {
		return false, err
	}
	rem := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})
	refs, err := rem.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return false, fmt.Errorf("list refs of %s: %w", url, err)
	}
	want := g.refName(mv)
	for _, ref := range refs {
		if ref.Name() == want {
			return true, nil
		}
	}
	return false, nil
}
