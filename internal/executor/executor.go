// Copyright 2025 Emin Salih Açıkgöz
// SPDX-License-Identifier: gpl3-or-later

// Package executor walks a built Action tree depth-first (children
// before their parent), managing the process working directory,
// spawning each node's worker, and propagating the first failure.
package executor

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	puperrors "pup/internal/errors"
	"pup/internal/logging"
	"pup/internal/pathutil"
	"pup/internal/types"
)

// Result is a tree that mirrors the shape of the Action tree it was
// built from but carries the run's outcome separately; the Action tree
// itself stays immutable once built.
type Result struct {
	Task     string
	Version  string
	Success  bool
	Duration time.Duration
	Children []*Result
}

var (
	colorOK   = color.New(color.FgGreen)
	colorFail = color.New(color.FgRed)
)

// spawn is the boundary to the OS subprocess layer, a variable so tests
// can substitute a double and observe (or suppress) worker invocations.
var spawn = run

// Execute walks root depth-first. A failing node halts all subsequent
// siblings at every level above it: the first error returned from a
// child's own worker short-circuits the whole walk.
func Execute(ctx context.Context, root *types.Action, opts types.Options, logger logging.Logger) (*Result, error) {
	return runNode(ctx, root, opts, logger, 1)
}

func runNode(ctx context.Context, node *types.Action, opts types.Options, logger logging.Logger, depth int) (*Result, error) {
	if node.External == nil {
		// Container root: just run children in order.
		logInfo(logger, depth, "Running tasks")
		children := make([]*Result, 0, len(node.Children))
		for _, child := range node.Children {
			cr, err := runNode(ctx, child, opts, logger, depth)
			if err != nil {
				return nil, err
			}
			children = append(children, cr)
		}
		return &Result{Success: true, Children: children}, nil
	}

	ext := node.External
	label := fmt.Sprintf("%s #%s", ext.Task.Path, ext.Version.Version)
	logInfo(logger, depth, "Entering task: "+label)

	start := time.Now()

	children := make([]*Result, 0, len(node.Children))
	for _, child := range node.Children {
		cr, err := runNode(ctx, child, opts, logger, depth+1)
		if err != nil {
			return nil, err
		}
		children = append(children, cr)
	}

	workDir := pathutil.StripUNCPrefix(ext.Version.Path)
	logInfo(logger, depth+1, "Using: "+workDir)
	if err := os.Chdir(workDir); err != nil {
		return nil, puperrors.Wrap(puperrors.MissingVersionFolder, ext.Version.Path, err)
	}

	if opts.DryRun {
		logInfo(logger, depth+1, fmt.Sprintf("Exec: (skipped) %s %s", ext.Worker.Path, strings.Join(opts.Args, " ")))
		for _, key := range sortedEnvKeys(ext.Env) {
			logInfo(logger, depth+1, fmt.Sprintf("env %s=%s", key, ext.Env[key]))
		}
		duration := time.Since(start)
		logFinished(logger, depth, label, true, duration)
		return &Result{Task: ext.Task.Path, Version: ext.Version.Version, Success: true, Duration: duration, Children: children}, nil
	}

	logInfo(logger, depth+1, fmt.Sprintf("Exec: %s %s", ext.Worker.Path, strings.Join(opts.Args, " ")))
	_, runErr := spawn(ctx, ExecRequest{
		BinaryPath: ext.Worker.Path,
		Args:       opts.Args,
		Env:        ext.Env,
		Dir:        workDir,
	})
	duration := time.Since(start)

	if runErr != nil {
		logFinished(logger, depth, label, false, duration)
		return nil, runErr
	}

	logFinished(logger, depth, label, true, duration)
	return &Result{Task: ext.Task.Path, Version: ext.Version.Version, Success: true, Duration: duration, Children: children}, nil
}

func logFinished(logger logging.Logger, depth int, label string, success bool, duration time.Duration) {
	if success {
		logInfo(logger, depth, colorOK.Sprint("Finished task: ")+label+" "+formatDuration(duration))
	} else {
		logInfo(logger, depth, colorFail.Sprint("FAILED task: ")+label+" "+formatDuration(duration))
	}
}

func logInfo(logger logging.Logger, depth int, message string) {
	prefix := ""
	for i := 0; i < depth; i++ {
		prefix += "--"
	}
	logger.Infof("%s %s", prefix, message)
}

// formatDuration renders elapsed time as "S.MMMMs" under a minute, or
// "Mmin S.MMMMs" otherwise.
func formatDuration(d time.Duration) string {
	total := d.Seconds()
	if total < 60 {
		return fmt.Sprintf("%.4fs", total)
	}
	minutes := int(total) / 60
	seconds := total - float64(minutes*60)
	return fmt.Sprintf("%dmin %.4fs", minutes, seconds)
}

func sortedEnvKeys(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
