// Copyright 2025 Emin Salih Açıkgöz
// SPDX-License-Identifier: gpl3-or-later

package plan

import (
	"os"
	"path/filepath"
	"testing"

	"pup/internal/envres"
	"pup/internal/logging"
	"pup/internal/pupcontext"
	"pup/internal/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func newFixtureContext(t *testing.T) *types.Context {
	t.Helper()
	root := t.TempDir()
	tasksDir := filepath.Join(root, "tasks")
	workersDir := filepath.Join(root, "workers")

	writeFile(t, filepath.Join(tasksDir, "root", "manifest.yml"), `
action: worker
versions:
  - version: "1.0.0"
    steps:
      - step: child.a
        environment:
          bar: "foo{{foo}}"
          PREP_FOLDER_PATH: "{{foo}}/{{bar}}/nested"
          PREP_FOLDER_RULE: "clean"
      - step: child.b
        skip: "1"
      - step: child.b
        skip: "0"
`)
	writeFile(t, filepath.Join(tasksDir, "child", "a", "manifest.yml"), `
action: worker
versions:
  - version: "1.0.0"
    steps: []
`)
	writeFile(t, filepath.Join(tasksDir, "child", "b", "manifest.yml"), `
action: worker
versions:
  - version: "1.0.0"
    steps: []
`)
	if err := os.MkdirAll(workersDir, 0o755); err != nil {
		t.Fatalf("mkdir workers: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workersDir, "worker"), []byte(""), 0o755); err != nil {
		t.Fatalf("write worker: %v", err)
	}

	ctx, err := pupcontext.New(tasksDir, workersDir, root, map[string]string{"foo": "bar"})
	if err != nil {
		t.Fatalf("pupcontext.New: %v", err)
	}
	return ctx
}

// Step env composition and skip predicate.
func TestBuild_EnvCompositionAndSkip(t *testing.T) {
	ctx := newFixtureContext(t)
	root, err := Build(ctx, "root", ctx.Env, logging.Discard())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// skip:"1" prunes one child.b, skip:"0" keeps the other, so we expect
	// exactly two children: child.a and the surviving child.b.
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(root.Children))
	}

	childA := root.Children[0]
	env := childA.External.Env
	if env["foo"] != "bar" {
		t.Errorf("foo = %q, want bar", env["foo"])
	}
	if env["bar"] != "foobar" {
		t.Errorf("bar = %q, want foobar", env["bar"])
	}
	if env["PREP_FOLDER_PATH"] != "bar/foobar/nested" {
		t.Errorf("PREP_FOLDER_PATH = %q, want bar/foobar/nested", env["PREP_FOLDER_PATH"])
	}
	if env["PREP_FOLDER_RULE"] != "clean" {
		t.Errorf("PREP_FOLDER_RULE = %q, want clean", env["PREP_FOLDER_RULE"])
	}
}

// An "if" predicate retains the step when truish and prunes it
// otherwise; the step's own environment is visible to the predicate.
func TestBuild_IfPredicate(t *testing.T) {
	root := t.TempDir()
	tasksDir := filepath.Join(root, "tasks")
	workersDir := filepath.Join(root, "workers")

	writeFile(t, filepath.Join(tasksDir, "top", "manifest.yml"), `
action: worker
versions:
  - version: "1.0.0"
    steps:
      - step: leaf
        if: "1"
      - step: leaf
        if: "0"
      - step: leaf
        if: "{{WANT_LEAF}}"
        environment:
          WANT_LEAF: "yes"
      - step: leaf
        if: "{{NEVER_SET}}"
`)
	writeFile(t, filepath.Join(tasksDir, "leaf", "manifest.yml"), `
action: worker
versions:
  - version: "1.0.0"
    steps: []
`)
	if err := os.MkdirAll(workersDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workersDir, "worker"), []byte(""), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx, err := pupcontext.New(tasksDir, workersDir, root, map[string]string{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tree, err := Build(ctx, "top", ctx.Env, logging.Discard())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// if:"1" kept, if:"0" pruned, if rendered from the step's own env
	// kept, if rendering to empty pruned.
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(tree.Children))
	}
}

func TestBuild_CycleDetected(t *testing.T) {
	root := t.TempDir()
	tasksDir := filepath.Join(root, "tasks")
	workersDir := filepath.Join(root, "workers")
	writeFile(t, filepath.Join(tasksDir, "a", "manifest.yml"), `
action: worker
versions:
  - version: "1.0.0"
    steps:
      - step: b
`)
	writeFile(t, filepath.Join(tasksDir, "b", "manifest.yml"), `
action: worker
versions:
  - version: "1.0.0"
    steps:
      - step: a
`)
	if err := os.MkdirAll(workersDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workersDir, "worker"), []byte(""), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx, err := pupcontext.New(tasksDir, workersDir, root, map[string]string{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = Build(ctx, "a", ctx.Env, logging.Discard())
	if err == nil {
		t.Fatal("expected cycle detection error")
	}
}

// Parent keys survive in descendant envs.
func TestBuild_EnvInheritanceKeysSurvive(t *testing.T) {
	ctx := newFixtureContext(t)
	parentEnv := map[string]string{"foo": "bar", "extra": "keep-me"}
	root, err := Build(ctx, "root", parentEnv, logging.Discard())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, child := range root.Children {
		if child.External.Env["extra"] != "keep-me" {
			t.Errorf("expected parent key 'extra' to survive into child env")
		}
	}
}

// Sanity check that envres.Truish agrees with the skip semantics used above.
func TestTruishUsedForSkip(t *testing.T) {
	if !envres.Truish("1") {
		t.Fatal("expected 1 to be truish")
	}
	if envres.Truish("0") {
		t.Fatal("expected 0 to not be truish")
	}
}
