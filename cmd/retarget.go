package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/release-tools/refwalk/internal/job"
	"github.com/release-tools/refwalk/internal/model"
	"github.com/release-tools/refwalk/internal/ui"
)

var (
	retargetMatch   string
	retargetProject string
	retargetDryRun  bool
	retargetStatic  bool
	retargetOnError string
	retargetMessage string
)

func init() {
	retargetCmd.Flags().StringVar(&retargetMatch, "match", "", "Path-element selector restricting visited paths")
	retargetCmd.Flags().StringVar(&retargetProject, "project", "", "Visit only module versions whose project attribute has this value")
	retargetCmd.Flags().BoolVar(&retargetDryRun, "dry-run", false, "Locate references but write and commit nothing")
	retargetCmd.Flags().BoolVar(&retargetStatic, "static", false, "Treat new versions as static (tag-like)")
	retargetCmd.Flags().StringVar(&retargetOnError, "on-error", "fatal", "Failure policy: fatal or continue")
	retargetCmd.Flags().StringVar(&retargetMessage, "message", "", "Commit message override")
	rootCmd.AddCommand(retargetCmd)
}

// parseRemap understands "module@old=new" mapping arguments.
func parseRemap(args []string, static bool) (map[model.ModuleVersion]model.Version, error) {
	remap := make(map[model.ModuleVersion]model.Version, len(args))
	for _, a := range args {
		lhs, rhs, found := strings.Cut(a, "=")
		if !found || rhs == "" {
			return nil, fmt.Errorf("bad remap %q (want module@old=new)", a)
		}
		old := parseModuleVersion(lhs, false)
		if static {
			remap[old] = model.StaticVersion(rhs)
		} else {
			remap[old] = model.DynamicVersion(rhs)
		}
	}
	return remap, nil
}

var retargetCmd = &cobra.Command{
	Use:   "retarget <module@old=new>...",
	Short: "Rewrite matched references from one target version to another",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSetup()
		if err != nil {
			return err
		}
		defer s.close()

		remap, err := parseRemap(args, retargetStatic)
		if err != nil {
			return err
		}
		runRoots, err := resolveRoots(s, nil)
		if err != nil {
			return err
		}
		matcher, err := combinedMatcher(s, retargetMatch, retargetProject)
		if err != nil {
			return err
		}
		policy, err := failurePolicy(retargetOnError)
		if err != nil {
			return err
		}

		term := ui.NewTerminal()
		term.AssumeYes = assumeYes
		j := &job.Retarget{
			Remap:         remap,
			SCM:           s.env.SCM,
			Extract:       s.env.Extract,
			UI:            term,
			Matcher:       matcher,
			Policy:        policy,
			DryRun:        retargetDryRun,
			CommitMessage: retargetMessage,
		}
		outcome, runErr := j.Run(cmd.Context(), runRoots)

		// The summary is reported even after an abort: performed
		// actions are never silent.
		fmt.Printf("retarget %s: %d action(s), %d note(s)\n", outcome, len(j.Actions), len(j.Notes))
		for _, a := range j.Actions {
			fmt.Printf("  %s\n", a)
		}
		for _, n := range j.Notes {
			fmt.Printf("  %s\n", n)
		}
		if warn := j.Warnings(); warn != nil {
			fmt.Printf("warnings:\n%v\n", warn)
		}
		return runErr
	},
}
