// Copyright 2025 Emin Salih Açıkgöz
// SPDX-License-Identifier: gpl3-or-later

// Package manifest reads process manifests and task manifests from YAML
// documents into the types in internal/types. Decoding and struct-tag
// validation happen in one step: a goccy/go-yaml decoder built with
// yaml.Strict() and yaml.Validator(validator.New()).
package manifest

import (
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	puperrors "pup/internal/errors"
	"pup/internal/logging"
	"pup/internal/pathutil"
	"pup/internal/types"
)

// ManifestFileName is the fixed file name every task directory's
// manifest must use.
const ManifestFileName = "manifest.yml"

// newYAMLDecoder builds a decoder where strict mode rejects unknown
// fields and a validator.v10 instance enforces the `validate` struct
// tags in one decode pass.
func newYAMLDecoder(r io.Reader) *yaml.Decoder {
	validate := validator.New()
	return yaml.NewDecoder(r, yaml.Strict(), yaml.Validator(validate))
}

// LoadProcessManifest reads a process manifest file (the CLI's FILE
// argument) into a ProcessManifest.
func LoadProcessManifest(path string) (*types.ProcessManifest, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, puperrors.New(puperrors.MissingProcessManifest, path)
		}
		return nil, puperrors.Inner("failed to open process manifest", err)
	}
	defer f.Close()

	var pm types.ProcessManifest
	if err := newYAMLDecoder(f).Decode(&pm); err != nil {
		return nil, puperrors.Inner("failed to decode process manifest", err)
	}
	return &pm, nil
}

// LoadTaskManifest reads <taskDir>/manifest.yml into a TaskManifest,
// resolving every version's on-disk Path: prefer
// <taskDir>/versions/<version>, falling back to taskDir itself, logged
// at Debug when the fallback is used.
func LoadTaskManifest(taskDir string, logger logging.Logger) (*types.TaskManifest, error) {
	manifestPath := filepath.Join(taskDir, ManifestFileName)

	f, err := os.Open(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, puperrors.New(puperrors.MissingManifest, manifestPath)
		}
		return nil, puperrors.Inner("failed to open task manifest", err)
	}
	defer f.Close()

	var doc types.TaskManifestDoc
	if err := newYAMLDecoder(f).Decode(&doc); err != nil {
		return nil, puperrors.Inner("failed to decode task manifest "+manifestPath, err)
	}

	versions := make([]types.VersionRecord, 0, len(doc.Versions))
	for _, v := range doc.Versions {
		versionDir := filepath.Join(taskDir, "versions", v.Version)
		resolved := versionDir
		if !pathutil.IsDir(versionDir) {
			logger.Debugf("No versions folder for: %s, using root: %s", v.Version, taskDir)
			resolved = taskDir
		}
		versions = append(versions, types.VersionRecord{
			Version: v.Version,
			Steps:   v.Steps,
			Path:    resolved,
		})
	}

	return &types.TaskManifest{Action: doc.Action, Versions: versions}, nil
}
