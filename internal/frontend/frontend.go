// Copyright 2025 Emin Salih Açıkgöz
// SPDX-License-Identifier: gpl3-or-later

// Package frontend implements the three entry points a CLI front-end
// drives: listing available tasks, showing a resolved execution plan,
// and running one. Each operation is a typed input struct plus a single
// fallible constructor (New*) that validates and resolves everything up
// front, and a Run(logger) method. "Ready to run" becomes an invariant
// of having successfully constructed the object: there is no exported
// way to obtain one of these types without having already validated.
package frontend

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"pup/internal/envres"
	puperrors "pup/internal/errors"
	"pup/internal/executor"
	"pup/internal/logging"
	"pup/internal/manifest"
	"pup/internal/pathutil"
	"pup/internal/plan"
	"pup/internal/pupcontext"
	"pup/internal/types"
)

// buildContext is shared setup every operation needs: load the process
// manifest, render its environment against the ambient scope, and
// construct the Context.
func buildContext(manifestPath string, overrides map[string]string, logger logging.Logger) (*types.Context, *types.ProcessManifest, error) {
	pm, err := manifest.LoadProcessManifest(manifestPath)
	if err != nil {
		return nil, nil, err
	}

	root := filepath.Dir(manifestPath)
	tasksDir := joinIfRelative(root, pm.TasksPath)
	workersDir := joinIfRelative(root, pm.WorkersPath)

	// MANIFEST_HOME isn't known until the Context exists, so render the
	// process manifest's own environment against ambient OS env plus
	// overrides first, then re-render once MANIFEST_HOME is available.
	ambient := envres.AmbientState(map[string]string{})
	for k, v := range overrides {
		ambient[k] = v
	}

	rendered, err := envres.RenderExistingKeys(pm.Environment, ambient)
	if err != nil {
		return nil, nil, err
	}

	ctx, err := pupcontext.New(tasksDir, workersDir, root, rendered)
	if err != nil {
		return nil, nil, err
	}
	// MANIFEST_HOME is now known; re-render so templates referencing it resolve.
	withHome := envres.AmbientState(ctx.GlobalEnv)
	for k, v := range overrides {
		withHome[k] = v
	}
	rendered2, err := envres.RenderExistingKeys(pm.Environment, withHome)
	if err != nil {
		return nil, nil, err
	}
	ctx.Env = rendered2

	return ctx, pm, nil
}

func joinIfRelative(root, rel string) string {
	if rel == "" {
		return root
	}
	if filepath.IsAbs(rel) {
		return rel
	}
	return pathutil.Join(root, rel)
}

// ListTasks is the typed input for the ListAvailableTasks operation.
type ListTasks struct {
	ProcessManifestPath string
	ListAllVersions     bool
}

// NewListTasks validates its input and returns a ready-to-run operation.
func NewListTasks(processManifestPath string, listAllVersions bool) (*ListTasks, error) {
	if processManifestPath == "" {
		return nil, puperrors.New(puperrors.MissingArgument, "ProcessManifestPath")
	}
	return &ListTasks{ProcessManifestPath: processManifestPath, ListAllVersions: listAllVersions}, nil
}

// Run reads the process manifest and logs every exposed task. With
// ListAllVersions set, every version of every task is logged, with the
// last one marked "(default)".
func (l *ListTasks) Run(logger logging.Logger) error {
	pm, err := manifest.LoadProcessManifest(l.ProcessManifestPath)
	if err != nil {
		return err
	}

	if !l.ListAllVersions {
		for _, task := range pm.Tasks {
			logger.Info(task)
		}
		return nil
	}

	ctx, _, err := buildContext(l.ProcessManifestPath, nil, logger)
	if err != nil {
		return err
	}
	for _, taskName := range pm.Tasks {
		_, tm, _, err := pupcontext.LoadTask(ctx, taskName, logger)
		if err != nil {
			return err
		}
		for i, v := range tm.Versions {
			suffix := ""
			if i == len(tm.Versions)-1 {
				suffix = " (default)"
			}
			logger.Info(fmt.Sprintf("%s#%s%s", taskName, v.Version, suffix))
		}
	}
	return nil
}

// ShowPlan is the typed input for the ShowExecutionPlan operation.
type ShowPlan struct {
	ProcessManifestPath string
	TaskID              string
}

// NewShowPlan validates its input and returns a ready-to-run operation.
func NewShowPlan(processManifestPath, taskID string) (*ShowPlan, error) {
	if processManifestPath == "" {
		return nil, puperrors.New(puperrors.MissingArgument, "ProcessManifestPath")
	}
	if taskID == "" {
		return nil, puperrors.New(puperrors.MissingArgument, "TaskId")
	}
	return &ShowPlan{ProcessManifestPath: processManifestPath, TaskID: taskID}, nil
}

// Run builds the plan for TaskID and logs a depth-indented tree
// rendering of it at Info: "name #version (worker -> worker path)" per node.
func (s *ShowPlan) Run(logger logging.Logger) error {
	logger.Debugf("Reading: %s", s.ProcessManifestPath)
	ctx, _, err := buildContext(s.ProcessManifestPath, nil, logger)
	if err != nil {
		return err
	}

	logger.Debugf("Opening: %s", s.TaskID)
	root, err := plan.Build(ctx, s.TaskID, ctx.Env, logger)
	if err != nil {
		logger.Debugf("Failed: %v", err)
		return err
	}

	var sb strings.Builder
	renderTree(&sb, root, 1)
	logger.Info(sb.String())
	return nil
}

func renderTree(sb *strings.Builder, action *types.Action, depth int) {
	if action.External != nil {
		ext := action.External
		fmt.Fprintf(sb, " %s %s #%s (%s -> %s)\n",
			strings.Repeat("-", depth), ext.Task.Path, ext.Version.Version, ext.Worker.Name, ext.Worker.Path)
	}
	last := len(action.Children) - 1
	for i, child := range action.Children {
		renderTree(sb, child, depth+1)
		if i == last {
			sb.WriteString("\n")
		}
	}
}

// RunTask is the typed input for the RunTask operation.
type RunTask struct {
	ProcessManifestPath string
	TaskID              string
	DryRun              bool
	Args                []string
}

// NewRunTask validates its input and returns a ready-to-run operation.
func NewRunTask(processManifestPath, taskID string, dryRun bool, args []string) (*RunTask, error) {
	if processManifestPath == "" {
		return nil, puperrors.New(puperrors.MissingArgument, "ProcessManifestPath")
	}
	if taskID == "" {
		return nil, puperrors.New(puperrors.MissingArgument, "TaskId")
	}
	return &RunTask{ProcessManifestPath: processManifestPath, TaskID: taskID, DryRun: dryRun, Args: args}, nil
}

// Run builds and executes the plan for TaskID.
func (r *RunTask) Run(logger logging.Logger) error {
	logger.Debugf("Reading: %s", r.ProcessManifestPath)
	ctx, _, err := buildContext(r.ProcessManifestPath, nil, logger)
	if err != nil {
		return err
	}

	logger.Debugf("Opening: %s", r.TaskID)
	root, err := plan.Build(ctx, r.TaskID, ctx.Env, logger)
	if err != nil {
		logger.Debugf("Failed: %v", err)
		return err
	}

	if r.DryRun {
		logger.Info(color.YellowString("Dryrun. No tasks will be executed"))
	}

	_, err = executor.Execute(context.Background(), root, types.Options{DryRun: r.DryRun, Args: r.Args}, logger)
	if err != nil {
		logger.Debugf("Failed: %v", err)
	}
	return err
}
