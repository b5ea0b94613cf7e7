// Copyright 2025 Emin Salih Açıkgöz
// SPDX-License-Identifier: gpl3-or-later

// Package types holds the in-memory data model shared across the
// orchestrator core: manifests decoded straight from YAML (with
// validator tags enforcing required fields) and the plan types built
// from them.
package types

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"pup/internal/envres"
)

// TaskIdent is a dotted task path with an optional "#version" suffix,
// e.g. "tests.actions.setVersion#0.0.2". The dotted path maps to a
// filesystem subdirectory under the tasks root by replacing "." with
// the OS path separator.
type TaskIdent struct {
	Path    string
	Version string // empty means "latest": the last entry in Versions
}

// ParseTaskIdent splits a raw identifier on "#" into path and version.
func ParseTaskIdent(raw string) TaskIdent {
	if idx := strings.IndexByte(raw, '#'); idx >= 0 {
		return TaskIdent{Path: raw[:idx], Version: raw[idx+1:]}
	}
	return TaskIdent{Path: raw}
}

func (t TaskIdent) String() string {
	if t.Version == "" {
		return t.Path
	}
	return t.Path + "#" + t.Version
}

// OrderedEnv is a step's environment block with its YAML declaration
// order preserved. Order matters: a later entry's template may
// reference a key declared earlier in the same block.
type OrderedEnv []envres.EnvEntry

// UnmarshalYAML decodes the mapping through a yaml.MapSlice so the
// document's key order survives into the slice.
func (e *OrderedEnv) UnmarshalYAML(data []byte) error {
	var ms yaml.MapSlice
	if err := yaml.Unmarshal(data, &ms); err != nil {
		return err
	}
	entries := make(OrderedEnv, 0, len(ms))
	for _, item := range ms {
		entries = append(entries, envres.EnvEntry{
			Key:   fmt.Sprint(item.Key),
			Value: fmt.Sprint(item.Value),
		})
	}
	*e = entries
	return nil
}

// StepRef is one entry in a VersionRecord's ordered steps sequence.
type StepRef struct {
	Step        string     `yaml:"step" validate:"required"`
	Environment OrderedEnv `yaml:"environment"`
	Skip        string     `yaml:"skip"`
	If          string     `yaml:"if"`
}

// VersionRecordDoc is the on-disk shape of one entry in a task
// manifest's versions sequence, before Path has been resolved against
// the filesystem.
type VersionRecordDoc struct {
	Version string    `yaml:"version" validate:"required"`
	Steps   []StepRef `yaml:"steps"`
}

// VersionRecord is a VersionRecordDoc after directory resolution: Path
// is <task_dir>/versions/<version> if that directory exists, otherwise
// <task_dir> itself.
type VersionRecord struct {
	Version string
	Steps   []StepRef
	Path    string
}

// TaskManifestDoc is the on-disk shape of a task's manifest.yml.
type TaskManifestDoc struct {
	Action   string             `yaml:"action" validate:"required"`
	Versions []VersionRecordDoc `yaml:"versions" validate:"required,min=1,dive"`
}

// TaskManifest is a TaskManifestDoc with every version's Path resolved.
type TaskManifest struct {
	Action   string
	Versions []VersionRecord
}

// ProcessManifest is the top-level document named by the CLI's FILE
// argument.
type ProcessManifest struct {
	Tasks       []string          `yaml:"tasks" validate:"required"`
	WorkersPath string            `yaml:"workers_path" validate:"required"`
	TasksPath   string            `yaml:"tasks_path" validate:"required"`
	Environment map[string]string `yaml:"environment"`
}

// Worker is a resolved executable: a path on disk, its base name, and
// the environment it is seeded with (a copy of the Context's
// process-level env). Per-step overrides are not layered on here; the
// executor passes ExternalAction.Env to the worker process.
type Worker struct {
	Path string
	Name string
	Env  map[string]string
}

// ExternalAction is the resolved, frozen payload of one task Action
// node: which task/version/worker it runs and the final environment it
// runs with.
type ExternalAction struct {
	Task    TaskIdent
	Version VersionRecord
	Worker  Worker
	Env     map[string]string
}

// Action is one node of the built plan tree. A container Action has
// External == nil and exists only to hold Children; every Action that
// plan.Build produces, including the one it returns for the requested
// task, has External populated at load time and frozen thereafter.
type Action struct {
	External *ExternalAction
	Children []*Action
}

// Options controls a single Executor run.
type Options struct {
	DryRun bool
	Args   []string
}

// Context is the resolved root every task/worker lookup is made
// against: absolute, existing tasks/workers directories, plus the
// process-level environment after template rendering.
type Context struct {
	GlobalEnv  map[string]string
	Env        map[string]string
	TasksDir   string
	WorkersDir string
}
