package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matsen/litscout/internal/config"
)

var initName string

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "Project name (default: directory name)")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a litscout project",
	Long: `Create the project layout, a default litscout.toml and an empty
papers.jsonl. Existing files are left untouched.

Examples:
  litscout init
  litscout init ~/projects/aml-review --name "AML review"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := startingDirectory()
	if len(args) == 1 {
		dir = config.ExpandPath(args[0])
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		exitWithError(ExitError, "resolving path: %v", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		exitWithError(ExitError, "creating %s: %v", abs, err)
	}

	name := initName
	if name == "" {
		name = filepath.Base(abs)
	}
	res, err := config.Init(abs, name)
	if err != nil {
		exitWithError(ExitError, "initializing project: %v", err)
	}

	return output(res, func() {
		outputHuman("Initialized litscout project in %s\n", res.Dir)
		if !res.ConfigCreated {
			outputHuman("  kept existing %s\n", config.ConfigFile)
		}
		if !res.PapersCreated {
			outputHuman("  kept existing %s\n", config.PapersFile)
		}
	})
}
