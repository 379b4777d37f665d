// Package job contains traversal consumers: jobs built on the graph
// walker contract.
package job

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/release-tools/refwalk/internal/discover"
	"github.com/release-tools/refwalk/internal/match"
	"github.com/release-tools/refwalk/internal/model"
	"github.com/release-tools/refwalk/internal/scm"
	"github.com/release-tools/refwalk/internal/traverse"
	"github.com/release-tools/refwalk/internal/ui"
)

// Retarget remaps reference versions across the graph: wherever a
// matched reference targets a module version listed in Remap, the
// declaration is rewritten to the new version and committed.
//
// Subtrees of remapped targets are not re-visited: supplying the new
// version is taken as vouching for it. That check runs before the
// generic reentry guard.
type Retarget struct {
	Remap map[model.ModuleVersion]model.Version

	SCM     scm.System
	Extract *discover.Source
	UI      ui.Interactor

	// Matcher combines the caller's restriction with the persisted
	// global matcher; nil matches everything.
	Matcher match.Matcher
	Policy  *traverse.Policy

	// HandleStatic lets the job visit static-version nodes. Off by
	// default: static versions are immutable.
	HandleStatic bool
	DryRun       bool
	// CommitMessage overrides the generated message.
	CommitMessage string

	// Actions and Notes accumulate the run summary: performed
	// retargets and informational skips ("no change needed").
	Actions []string
	Notes   []string

	warnings *multierror.Error
}

// Warnings returns the non-fatal problems accumulated during the run.
func (j *Retarget) Warnings() error {
	return j.warnings.ErrorOrNil()
}

// Run traverses from roots and applies the remap table. The returned
// outcome distinguishes a clean completion from an abort; accumulated
// actions stay readable either way.
func (j *Retarget) Run(ctx context.Context, roots []model.ModuleVersion) (traverse.Outcome, error) {
	w := &traverse.GraphWalker{
		Workspaces:       j.SCM,
		Discovery:        j.Extract,
		Matcher:          j.Matcher,
		Guard:            traverse.NewGuard(traverse.ByModule),
		Policy:           j.Policy,
		Report:           j.UI,
		HandleStatic:     j.HandleStatic,
		HandleDynamic:    true,
		DescendUnhandled: true,
		SkipDescend:      j.isRemappedTarget,
		Visit:            j.visit,
	}
	return w.Run(ctx, roots)
}

// isRemappedTarget reports whether mv is the NEW target of some remap
// entry. Evaluated by the walker before its reentry guard.
func (j *Retarget) isRemappedTarget(mv model.ModuleVersion) bool {
	for old, newVersion := range j.Remap {
		if mv.Path == old.Path && mv.Version == newVersion {
			return true
		}
	}
	return false
}

func (j *Retarget) visit(ctx context.Context, p model.RefPath, ref model.Reference, dir string) (traverse.Signal, error) {
	if ref.IsRoot() || ref.Target == nil {
		return traverse.Continue, nil
	}
	newVersion, ok := j.Remap[*ref.Target]
	if !ok {
		return traverse.Continue, nil
	}
	// The declaration lives in the source module's workspace; a
	// static source must never be mutated.
	if ref.Source.Version.Kind == model.Static && !ref.Source.Version.IsZero() {
		j.warnings = multierror.Append(j.warnings,
			fmt.Errorf("cannot retarget %s: declaring module %s is at a static version", ref, ref.Source))
		return traverse.Continue, nil
	}

	yes, err := j.UI.Confirm(fmt.Sprintf("Retarget %s -> %s in %s?", ref.Target, newVersion, ref.Source))
	if err != nil {
		return traverse.Continue, err
	}
	if !yes {
		j.UI.Infof("retarget declined, aborting")
		return traverse.Abort, nil
	}

	srcDir, err := j.SCM.Checkout(ctx, ref.Source)
	if err != nil {
		return traverse.Continue, fmt.Errorf("checkout %s: %w", ref.Source, err)
	}
	changed, err := j.Extract.Update(ctx, ref.Source, srcDir, ref, newVersion,
		discover.UpdateOptions{DryRun: j.DryRun})
	if err != nil {
		return traverse.Continue, fmt.Errorf("update reference %s: %w", ref, err)
	}
	if !changed {
		note := fmt.Sprintf("%s: reference to %s already at effective version %s, no change needed",
			ref.Source, ref.Target.Path, newVersion)
		j.Notes = append(j.Notes, note)
		j.UI.Infof("%s", note)
		return traverse.Continue, nil
	}
	if !j.DryRun {
		msg := j.CommitMessage
		if msg == "" {
			msg = fmt.Sprintf("Retarget reference %s to version %s", ref.Target.Path, newVersion)
		}
		attrs := map[string]string{"Refwalk-Retarget": fmt.Sprintf("%s=%s", ref.Target.Path, newVersion.Value)}
		if err := j.SCM.Commit(ctx, ref.Source, srcDir, msg, attrs); err != nil {
			return traverse.Continue, fmt.Errorf("commit %s: %w", ref.Source, err)
		}
	}
	action := fmt.Sprintf("%s: retargeted %s to %s", ref.Source, ref.Target.Path, newVersion)
	j.Actions = append(j.Actions, action)
	j.UI.Infof("%s", action)
	return traverse.Continue, nil
}
