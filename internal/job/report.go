package job

import (
	"context"

	"github.com/release-tools/refwalk/internal/discover"
	"github.com/release-tools/refwalk/internal/match"
	"github.com/release-tools/refwalk/internal/model"
	"github.com/release-tools/refwalk/internal/scm"
	"github.com/release-tools/refwalk/internal/traverse"
	"github.com/release-tools/refwalk/internal/ui"
)

// Report is a read-only walk: it prints every matched reference path.
// Backs the `refwalk walk` command.
type Report struct {
	SCM     scm.System
	Extract *discover.Source
	UI      ui.Interactor
	Matcher match.Matcher
	Policy  *traverse.Policy
	Order   traverse.Order

	// Paths collects the matched paths in visit order.
	Paths []string
}

// Run walks from roots, reporting each matched path.
func (j *Report) Run(ctx context.Context, roots []model.ModuleVersion) (traverse.Outcome, error) {
	w := &traverse.GraphWalker{
		Workspaces:    j.SCM,
		Discovery:     j.Extract,
		Matcher:       j.Matcher,
		Guard:         traverse.NewGuard(traverse.ByModule),
		Policy:        j.Policy,
		Report:        j.UI,
		Order:         j.Order,
		HandleStatic:  true,
		HandleDynamic: true,
		Visit: func(ctx context.Context, p model.RefPath, ref model.Reference, dir string) (traverse.Signal, error) {
			j.Paths = append(j.Paths, p.String())
			j.UI.Infof("%s", p)
			return traverse.Continue, nil
		},
	}
	return w.Run(ctx, roots)
}
