// Copyright 2025 Emin Salih Açıkgöz
// SPDX-License-Identifier: gpl3-or-later

// Package cmd implements the command-line front-end for pup: parsing
// flags and dispatching to the internal/frontend operations. -t alone
// runs the task for real, -d modifies that run to a dry run, -p shows
// the resolved plan instead of running anything, and no task at all
// lists every task the process manifest exposes.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pup/internal/frontend"
	"pup/internal/logging"
)

const (
	exitSuccess = 0
	exitError   = 1
)

var (
	taskFlag     string
	showPlan     bool
	dryRun       bool
	verbose      bool
	listAll      bool
	printVersion bool
	version      = "v0.1.0-dev"
)

var rootCmd = &cobra.Command{
	Use:   "pup FILE",
	Short: "A task-graph orchestrator for developer/build pipelines",
	Long: `pup loads a process manifest, resolves a requested task's
dependency graph into an execution plan, and runs it by spawning an
external worker per node.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if printVersion {
			fmt.Println(version)
			return nil
		}

		logger := logging.New(os.Stderr, verbose)

		if len(args) == 0 {
			return fmt.Errorf("missing required argument: FILE")
		}

		manifestPath := args[0]

		switch {
		case taskFlag != "" && showPlan:
			op, err := frontend.NewShowPlan(manifestPath, taskFlag)
			if err != nil {
				return err
			}
			return op.Run(logger)
		case taskFlag != "":
			op, err := frontend.NewRunTask(manifestPath, taskFlag, dryRun, extraArgs(cmd))
			if err != nil {
				return err
			}
			return op.Run(logger)
		default:
			op, err := frontend.NewListTasks(manifestPath, listAll)
			if err != nil {
				return err
			}
			return op.Run(logger)
		}
	},
}

func extraArgs(cmd *cobra.Command) []string {
	extra, _ := cmd.Flags().GetStringArray("arg")
	return extra
}

// Execute is the single entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
	os.Exit(exitSuccess)
}

func init() {
	rootCmd.Flags().StringVarP(&taskFlag, "task", "t", "", "target task id (dotted path, optional #version)")
	rootCmd.Flags().BoolVarP(&showPlan, "plan", "p", false, "show the resolved execution plan instead of running it")
	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "run the task without spawning any worker")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.Flags().BoolVarP(&listAll, "all", "a", false, "when listing tasks, list every version of every task")
	rootCmd.Flags().StringArray("arg", nil, "extra argument passed through to the worker (repeatable)")
	rootCmd.Flags().BoolVar(&printVersion, "version", false, "print the pup version and exit")
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}
