package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	matcherCmd.AddCommand(matcherListCmd, matcherAddCmd, matcherClearCmd)
	rootCmd.AddCommand(matcherCmd)
}

var matcherCmd = &cobra.Command{
	Use:   "matcher",
	Short: "Manage the persisted global path matcher",
}

var matcherListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the global matcher's patterns in order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSetup()
		if err != nil {
			return err
		}
		defer s.close()
		patterns, err := s.manager.GlobalPatterns()
		if err != nil {
			return err
		}
		if len(patterns) == 0 {
			fmt.Println("no global matcher configured (all paths match)")
			return nil
		}
		for i, p := range patterns {
			fmt.Printf("%d\t%s\n", i, p)
		}
		return nil
	},
}

var matcherAddCmd = &cobra.Command{
	Use:   "add <glob[@version]>",
	Short: "Append a path-element pattern to the global matcher",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSetup()
		if err != nil {
			return err
		}
		defer s.close()
		if err := s.manager.AddGlobalPattern(args[0]); err != nil {
			return err
		}
		fmt.Printf("added pattern %q\n", args[0])
		return nil
	},
}

var matcherClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every global matcher pattern",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSetup()
		if err != nil {
			return err
		}
		defer s.close()
		if err := s.manager.ClearGlobalMatcher(); err != nil {
			return err
		}
		fmt.Println("global matcher cleared")
		return nil
	},
}
