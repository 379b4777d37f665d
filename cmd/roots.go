package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/release-tools/refwalk/internal/model"
)

var (
	rootsStatic    bool
	rootsAllowDup  bool
	rootsSkipCheck bool
)

func init() {
	rootsAddCmd.Flags().BoolVar(&rootsStatic, "static", false, "Treat the version as static (tag-like)")
	rootsAddCmd.Flags().BoolVar(&rootsAllowDup, "allow-duplicate-module", false, "Allow a second root for a module already present at another version")
	rootsAddCmd.Flags().BoolVar(&rootsSkipCheck, "skip-validation", false, "Skip the model and source-control existence checks")

	rootsCmd.AddCommand(rootsListCmd, rootsAddCmd, rootsRemoveCmd, rootsClearCmd,
		rootsReplaceCmd, rootsMoveFirstCmd, rootsMoveLastCmd)
	rootCmd.AddCommand(rootsCmd)
}

// parseModuleVersion understands "path" and "path@version".
func parseModuleVersion(arg string, static bool) model.ModuleVersion {
	path, version, found := strings.Cut(arg, "@")
	mv := model.ModuleVersion{Path: model.ParsePath(path)}
	if found && version != "" {
		if static {
			mv.Version = model.StaticVersion(version)
		} else {
			mv.Version = model.DynamicVersion(version)
		}
	}
	return mv
}

var rootsCmd = &cobra.Command{
	Use:   "roots",
	Short: "Manage the persisted traversal root set",
}

var rootsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured root module versions in order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSetup()
		if err != nil {
			return err
		}
		defer s.close()
		list, err := s.manager.List()
		if err != nil {
			return err
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"#", "Module", "Version", "Kind"})
		for i, mv := range list {
			version, kind := "<default>", ""
			if !mv.Version.IsZero() {
				version, kind = mv.Version.Value, mv.Version.Kind.String()
			}
			table.Append([]string{fmt.Sprintf("%d", i), mv.Path.String(), version, kind})
		}
		table.Render()
		return nil
	},
}

var rootsAddCmd = &cobra.Command{
	Use:   "add <module[@version]>",
	Short: "Add a root module version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSetup()
		if err != nil {
			return err
		}
		defer s.close()
		mv := parseModuleVersion(args[0], rootsStatic)
		if !rootsSkipCheck {
			if err := s.manager.Validate(cmd.Context(), mv, s.env.SCM); err != nil {
				return err
			}
		}
		added, err := s.manager.Add(mv, rootsAllowDup)
		if err != nil {
			return err
		}
		if !added {
			return fmt.Errorf("%s not added: already present (use --allow-duplicate-module for a second version)", mv)
		}
		fmt.Printf("added root %s\n", mv)
		return nil
	},
}

var rootsRemoveCmd = &cobra.Command{
	Use:   "remove <module[@version]>",
	Short: "Remove a root module version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateRoots(args[0], "removed", func(s *setup, mv model.ModuleVersion) (bool, error) {
			return s.manager.Remove(mv)
		})
	},
}

var rootsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSetup()
		if err != nil {
			return err
		}
		defer s.close()
		if err := s.manager.RemoveAll(); err != nil {
			return err
		}
		fmt.Println("root set cleared")
		return nil
	},
}

var rootsReplaceCmd = &cobra.Command{
	Use:   "replace <old[@version]> <new[@version]>",
	Short: "Replace one root with another, keeping its position",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSetup()
		if err != nil {
			return err
		}
		defer s.close()
		old := parseModuleVersion(args[0], false)
		new := parseModuleVersion(args[1], rootsStatic)
		changed, err := s.manager.Replace(old, new)
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("%s is not a root", old)
		}
		fmt.Printf("replaced %s with %s\n", old, new)
		return nil
	},
}

var rootsMoveFirstCmd = &cobra.Command{
	Use:   "move-first <module[@version]>",
	Short: "Move a root to the front of the set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateRoots(args[0], "moved first", func(s *setup, mv model.ModuleVersion) (bool, error) {
			return s.manager.MoveFirst(mv)
		})
	},
}

var rootsMoveLastCmd = &cobra.Command{
	Use:   "move-last <module[@version]>",
	Short: "Move a root to the end of the set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateRoots(args[0], "moved last", func(s *setup, mv model.ModuleVersion) (bool, error) {
			return s.manager.MoveLast(mv)
		})
	},
}

func mutateRoots(arg, verb string, op func(*setup, model.ModuleVersion) (bool, error)) error {
	s, err := newSetup()
	if err != nil {
		return err
	}
	defer s.close()
	mv := parseModuleVersion(arg, false)
	changed, err := op(s, mv)
	if err != nil {
		return err
	}
	if !changed && !mv.Version.IsZero() {
		// The stored entry may carry the static kind.
		changed, err = op(s, parseModuleVersion(arg, true))
		if err != nil {
			return err
		}
	}
	if !changed {
		return fmt.Errorf("%s is not a root", mv)
	}
	fmt.Printf("%s %s\n", verb, mv)
	return nil
}
