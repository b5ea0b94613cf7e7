// Copyright 2025 Emin Salih Açıkgöz
// SPDX-License-Identifier: gpl3-or-later

// Package plan recursively loads a requested task into an Action tree,
// honoring per-step skip/if predicates, composing environments along
// the way, and rejecting a task graph that revisits itself.
package plan

import (
	"fmt"

	"pup/internal/envres"
	puperrors "pup/internal/errors"
	"pup/internal/logging"
	"pup/internal/pupcontext"
	"pup/internal/types"
)

// visitKey identifies a (ident, version) pair on the current recursion
// stack for cycle detection.
type visitKey struct {
	path    string
	version string
}

// Build recursively loads rootIdent (and everything it depends on)
// against ctx, producing the root Action. parentEnv is the scope new
// steps are rendered against — typically the Context's own Env for a
// top-level build.
func Build(ctx *types.Context, rootIdent string, parentEnv map[string]string, logger logging.Logger) (*types.Action, error) {
	stack := map[visitKey]bool{}
	return load(ctx, rootIdent, parentEnv, stack, logger)
}

func load(ctx *types.Context, rawIdent string, parentEnv map[string]string, stack map[visitKey]bool, logger logging.Logger) (*types.Action, error) {
	logger.Infof("Loading task: %s", rawIdent)

	ident, taskManifest, version, err := pupcontext.LoadTask(ctx, rawIdent, logger)
	if err != nil {
		return nil, err
	}

	key := visitKey{path: ident.Path, version: version.Version}
	if stack[key] {
		return nil, puperrors.New(puperrors.InvalidRequest, fmt.Sprintf("cycle detected at %s", ident.String()))
	}
	stack[key] = true
	defer delete(stack, key)

	worker, err := pupcontext.LoadWorker(ctx, taskManifest.Action)
	if err != nil {
		return nil, err
	}

	children := make([]*types.Action, 0, len(version.Steps))
	for _, step := range version.Steps {
		stepEnv, err := envres.ExtendWithParent(step.Environment, parentEnv)
		if err != nil {
			return nil, err
		}

		if step.Skip != "" {
			rendered, err := envres.Render(step.Skip, stepEnv)
			if err != nil {
				return nil, err
			}
			if envres.Truish(rendered) {
				continue
			}
		} else if step.If != "" {
			rendered, err := envres.Render(step.If, stepEnv)
			if err != nil {
				return nil, err
			}
			if !envres.Truish(rendered) {
				continue
			}
		}

		logger.Infof("Loading child task: %s", step.Step)
		child, err := load(ctx, step.Step, stepEnv, stack, logger)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	return &types.Action{
		External: &types.ExternalAction{
			Task:    ident,
			Version: version,
			Worker:  worker,
			Env:     parentEnv,
		},
		Children: children,
	}, nil
}
