// Package cmd wires the traversal core into a thin CLI.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/release-tools/refwalk/internal/props"
	"github.com/release-tools/refwalk/internal/roots"
)

var (
	storePath string
	modelPath string
	verbose   bool
	assumeYes bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Path to the properties database (default ~/.refwalk/refwalk.db)")
	rootCmd.PersistentFlags().StringVar(&modelPath, "model", "", "Path to the model description file (default ~/.refwalk/model.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to all confirmation prompts")
}

var rootCmd = &cobra.Command{
	Use:   "refwalk",
	Short: "Refwalk: reference-graph traversal for multi-module release management",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.WarnLevel)
		}
	},
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".refwalk"), nil
}

func openStore() (*props.SQLite, error) {
	path := storePath
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create config dir: %w", err)
		}
		path = filepath.Join(dir, "refwalk.db")
	}
	return props.OpenSQLite(path)
}

// setup is the per-invocation execution context: one properties
// store, one loaded model, one root manager.
type setup struct {
	store   *props.SQLite
	env     *environment
	manager *roots.Manager
}

func newSetup() (*setup, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	env, err := loadEnvironment()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &setup{
		store:   store,
		env:     env,
		manager: roots.NewManager(store, env.Model),
	}, nil
}

func (s *setup) close() {
	_ = s.store.Close()
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
