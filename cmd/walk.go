package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/release-tools/refwalk/internal/job"
	"github.com/release-tools/refwalk/internal/match"
	"github.com/release-tools/refwalk/internal/model"
	"github.com/release-tools/refwalk/internal/traverse"
	"github.com/release-tools/refwalk/internal/ui"
)

var (
	walkMatch      string
	walkProject    string
	walkDepthFirst bool
	walkOnError    string
)

func init() {
	walkCmd.Flags().StringVar(&walkMatch, "match", "", "Path-element selector restricting visited paths")
	walkCmd.Flags().StringVar(&walkProject, "project", "", "Visit only module versions whose project attribute has this value")
	walkCmd.Flags().BoolVar(&walkDepthFirst, "depth-first", false, "Visit children before the node itself")
	walkCmd.Flags().StringVar(&walkOnError, "on-error", "fatal", "Failure policy: fatal or continue")
	rootCmd.AddCommand(walkCmd)
}

// resolveRoots uses explicit arguments when given, the persisted root
// set otherwise.
func resolveRoots(s *setup, args []string) ([]model.ModuleVersion, error) {
	if len(args) > 0 {
		out := make([]model.ModuleVersion, 0, len(args))
		for _, a := range args {
			out = append(out, parseModuleVersion(a, false))
		}
		return out, nil
	}
	list, err := s.manager.List()
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no roots configured; add some with `refwalk roots add` or pass them explicitly")
	}
	return list, nil
}

// combinedMatcher builds AND(caller, project, global), where any leg
// may be absent. Built once per job invocation.
func combinedMatcher(s *setup, selector, project string) (match.Matcher, error) {
	global, err := s.manager.GlobalMatcher()
	if err != nil {
		return nil, err
	}
	return buildMatcher(s.env.Model, s.env.ProjectAttr, selector, project, global)
}

// buildMatcher composes the caller's selector, the project-code
// restriction, and the persisted global matcher. An empty persisted
// global matcher imposes no restriction, as does an empty selector or
// project code.
func buildMatcher(provider model.Provider, attrName, selector, project string, global *match.OrMatcher) (match.Matcher, error) {
	var caller match.Matcher
	if selector != "" {
		em, err := match.ByElement(selector)
		if err != nil {
			return nil, err
		}
		caller = em
	}
	var m match.Matcher
	if global != nil && len(global.Children()) > 0 {
		m = match.Combine(caller, global)
	} else {
		m = match.Combine(caller)
	}
	if project != "" {
		m = match.ForProjectCode(provider, attrName, project, m)
	}
	return m, nil
}

func failurePolicy(onError string) (*traverse.Policy, error) {
	switch onError {
	case "fatal":
		return &traverse.Policy{Default: traverse.ResolveFatal}, nil
	case "continue":
		return &traverse.Policy{Default: traverse.ResolveContinue}, nil
	default:
		return nil, fmt.Errorf("unknown --on-error value %q (want fatal or continue)", onError)
	}
}

var walkCmd = &cobra.Command{
	Use:   "walk [module[@version]...]",
	Short: "Walk the reference graph and print every matched path",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSetup()
		if err != nil {
			return err
		}
		defer s.close()

		walkRoots, err := resolveRoots(s, args)
		if err != nil {
			return err
		}
		matcher, err := combinedMatcher(s, walkMatch, walkProject)
		if err != nil {
			return err
		}
		policy, err := failurePolicy(walkOnError)
		if err != nil {
			return err
		}
		order := traverse.ParentFirst
		if walkDepthFirst {
			order = traverse.ChildrenFirst
		}

		j := &job.Report{
			SCM:     s.env.SCM,
			Extract: s.env.Extract,
			UI:      ui.NewTerminal(),
			Matcher: matcher,
			Policy:  policy,
			Order:   order,
		}
		outcome, err := j.Run(cmd.Context(), walkRoots)
		if err != nil {
			return err
		}
		fmt.Printf("walk %s: %d path(s) matched\n", outcome, len(j.Paths))
		return nil
	},
}
