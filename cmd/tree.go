package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/release-tools/refwalk/internal/model"
	"github.com/release-tools/refwalk/internal/traverse"
)

var (
	treeModulesOnly bool
	treeDepthFirst  bool
)

func init() {
	treeCmd.Flags().BoolVar(&treeModulesOnly, "modules-only", false, "Visit only module leaves")
	treeCmd.Flags().BoolVar(&treeDepthFirst, "depth-first", false, "Visit children before their classification node")
	rootCmd.AddCommand(treeCmd)
}

var treeCmd = &cobra.Command{
	Use:   "tree [base-path...]",
	Short: "Walk the static classification hierarchy and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSetup()
		if err != nil {
			return err
		}
		defer s.close()

		bases := make([]model.NodePath, 0, len(args))
		for _, a := range args {
			bases = append(bases, model.ParsePath(a))
		}
		filter := traverse.AllKinds
		if treeModulesOnly {
			filter = traverse.ModulesOnly
		}
		order := traverse.ParentFirst
		if treeDepthFirst {
			order = traverse.ChildrenFirst
		}

		print := func(n *model.Node) (traverse.Signal, error) {
			indent := strings.Repeat("  ", len(n.Path.Segments()))
			fmt.Printf("%s%s (%s)\n", indent, n.Path, n.Kind)
			return traverse.Continue, nil
		}
		w := &traverse.HierarchyWalker{
			Model:            s.env.Model,
			Order:            order,
			Filter:           filter,
			Policy:           &traverse.Policy{Default: traverse.ResolveFatal},
			OnClassification: print,
			OnModule:         print,
		}
		outcome, err := w.Run(cmd.Context(), bases)
		if err != nil {
			return err
		}
		if outcome == traverse.Aborted {
			return fmt.Errorf("tree walk aborted")
		}
		return nil
	},
}
