// Copyright 2025 Emin Salih Açıkgöz
// SPDX-License-Identifier: gpl3-or-later

// Package pupcontext holds the resolved run context: the canonical
// tasks and workers directories a process manifest points at, the
// global_env scope (MANIFEST_HOME), and the process-level environment
// every task inherits from. Task and worker lookups
// are both resolved against it.
package pupcontext

import (
	"path/filepath"

	puperrors "pup/internal/errors"
	"pup/internal/logging"
	"pup/internal/manifest"
	"pup/internal/pathutil"
	"pup/internal/types"
)

// New canonicalizes tasksDir and workersDir and builds the global_env
// scope (always containing MANIFEST_HOME = canonical root). env is the
// process-level environment computed by the caller (already rendered
// against the ambient scope).
func New(tasksDir, workersDir, root string, env map[string]string) (*types.Context, error) {
	absTasks, err := pathutil.Canonical(tasksDir)
	if err != nil || !pathutil.IsDir(absTasks) {
		return nil, puperrors.Wrap(puperrors.MissingTasksFolder, tasksDir, err)
	}
	absWorkers, err := pathutil.Canonical(workersDir)
	if err != nil || !pathutil.IsDir(absWorkers) {
		return nil, puperrors.Wrap(puperrors.MissingWorkerFolder, workersDir, err)
	}
	absRoot, err := pathutil.Canonical(root)
	if err != nil {
		return nil, puperrors.Inner("failed to canonicalize manifest root", err)
	}

	globalEnv := map[string]string{"MANIFEST_HOME": absRoot}

	return &types.Context{
		GlobalEnv:  globalEnv,
		Env:        env,
		TasksDir:   absTasks,
		WorkersDir: absWorkers,
	}, nil
}

// LoadTask splits ident on "#", loads <tasks>/<dotted-path>/manifest.yml,
// and resolves the requested version: an exact match if a version
// suffix was given (MissingVersion on miss), otherwise the last entry
// in the versions sequence ("latest").
func LoadTask(ctx *types.Context, raw string, logger logging.Logger) (types.TaskIdent, *types.TaskManifest, types.VersionRecord, error) {
	ident := types.ParseTaskIdent(raw)
	taskDir := filepath.Join(ctx.TasksDir, pathutil.DottedToDir(ident.Path))

	logger.Debugf("Loading task: %s", ident.String())

	tm, err := manifest.LoadTaskManifest(taskDir, logger)
	if err != nil {
		return ident, nil, types.VersionRecord{}, err
	}

	if ident.Version != "" {
		for _, v := range tm.Versions {
			if v.Version == ident.Version {
				return ident, tm, v, nil
			}
		}
		return ident, nil, types.VersionRecord{}, puperrors.New(puperrors.MissingVersion, ident.String())
	}

	// No version requested: "latest" is the last entry in the sequence.
	latest := tm.Versions[len(tm.Versions)-1]
	ident.Version = latest.Version
	return ident, tm, latest, nil
}

// LoadWorker probes workers/<name> then workers/<name>.exe, unconditionally
// on every platform. The worker's initial env is seeded from the
// Context's process-level env.
func LoadWorker(ctx *types.Context, name string) (types.Worker, error) {
	candidate := filepath.Join(ctx.WorkersDir, name)
	if pathutil.Exists(candidate) {
		return newWorker(candidate, name, ctx.Env), nil
	}

	withExt := candidate + ".exe"
	if pathutil.Exists(withExt) {
		return newWorker(withExt, name, ctx.Env), nil
	}

	return types.Worker{}, puperrors.New(puperrors.MissingWorker, name)
}

func newWorker(path, name string, parentEnv map[string]string) types.Worker {
	env := make(map[string]string, len(parentEnv))
	for k, v := range parentEnv {
		env[k] = v
	}
	return types.Worker{Path: path, Name: name, Env: env}
}
