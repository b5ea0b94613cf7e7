// Copyright 2025 Emin Salih Açıkgöz
// SPDX-License-Identifier: gpl3-or-later

package manifest

import (
	"os"
	"path/filepath"
	"testing"

	puperrors "pup/internal/errors"
	"pup/internal/logging"
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

func TestLoadProcessManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dev.yml")
	writeFile(t, path, `
tasks:
  - tests.actions.setVersion
workers_path: workers
tasks_path: tasks
environment:
  foo: bar
  userthing: "{{EXT_USERNAME}} -> {{EXT_PASSWORD}}"
`)

	pm, err := LoadProcessManifest(path)
	if err != nil {
		t.Fatalf("LoadProcessManifest: %v", err)
	}
	if len(pm.Tasks) != 1 || pm.Tasks[0] != "tests.actions.setVersion" {
		t.Errorf("unexpected tasks: %+v", pm.Tasks)
	}
	if pm.Environment["foo"] != "bar" {
		t.Errorf("unexpected env foo: %q", pm.Environment["foo"])
	}
}

func TestLoadProcessManifest_Missing(t *testing.T) {
	_, err := LoadProcessManifest(filepath.Join(t.TempDir(), "nope.yml"))
	if err == nil {
		t.Fatal("expected error")
	}
	var perr *puperrors.Error
	if !asError(err, &perr) {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	if perr.Kind != puperrors.MissingProcessManifest {
		t.Errorf("got kind %v, want MissingProcessManifest", perr.Kind)
	}
}

func TestLoadTaskManifest_LatestVersionAndFallbackPath(t *testing.T) {
	taskDir := filepath.Join(t.TempDir(), "tests", "actions", "setVersion")
	writeFile(t, filepath.Join(taskDir, ManifestFileName), `
action: setVersion
versions:
  - version: "0.0.1"
    steps: []
  - version: "0.0.2"
    steps: []
`)

	tm, err := LoadTaskManifest(taskDir, logging.Discard())
	if err != nil {
		t.Fatalf("LoadTaskManifest: %v", err)
	}
	if len(tm.Versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(tm.Versions))
	}
	// Document order is kept, so the latest version is the last entry.
	if latest := tm.Versions[len(tm.Versions)-1].Version; latest != "0.0.2" {
		t.Errorf("latest (last) version = %s, want 0.0.2", latest)
	}
	// Neither version has a versions/<v> subfolder, so both fall back to taskDir.
	for _, v := range tm.Versions {
		if v.Path != taskDir {
			t.Errorf("version %s: expected fallback path %s, got %s", v.Version, taskDir, v.Path)
		}
	}
}

func TestLoadTaskManifest_PreferVersionFolder(t *testing.T) {
	taskDir := filepath.Join(t.TempDir(), "tests", "actions", "withFolder")
	writeFile(t, filepath.Join(taskDir, ManifestFileName), `
action: doThing
versions:
  - version: "1.0.0"
    steps: []
`)
	versionDir := filepath.Join(taskDir, "versions", "1.0.0")
	if err := os.MkdirAll(versionDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	tm, err := LoadTaskManifest(taskDir, logging.Discard())
	if err != nil {
		t.Fatalf("LoadTaskManifest: %v", err)
	}
	if tm.Versions[0].Path != versionDir {
		t.Errorf("expected %s, got %s", versionDir, tm.Versions[0].Path)
	}
}

func TestLoadTaskManifest_ZeroVersionsRejected(t *testing.T) {
	taskDir := filepath.Join(t.TempDir(), "tests", "actions", "empty")
	writeFile(t, filepath.Join(taskDir, ManifestFileName), `
action: doThing
versions: []
`)
	if _, err := LoadTaskManifest(taskDir, logging.Discard()); err == nil {
		t.Fatal("expected validation error for zero-version task manifest")
	}
}

func asError(err error, target **puperrors.Error) bool {
	e, ok := err.(*puperrors.Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
