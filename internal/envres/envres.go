// Copyright 2025 Emin Salih Açıkgöz
// SPDX-License-Identifier: gpl3-or-later

// Package envres renders {{KEY}} templates against a key/value scope and
// merges parent/child environment maps: a single-pass, no-partials,
// no-conditionals substitution engine plus two map-merging strategies:
// one for the process manifest's environment (front-end setup) and one
// for each step's environment (plan builder).
package envres

import (
	"os"
	"regexp"
	"sort"
	"strings"

	puperrors "pup/internal/errors"
)

// templateKey matches {{KEY}} references. KEY is taken verbatim, trimmed
// of surrounding whitespace, with no further parsing: no dotted paths, no
// helpers, no partials.
var templateKey = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)

// Render substitutes every {{KEY}} occurrence in template with scope[KEY].
// A missing key renders as the empty string; this never errors. The only
// failure mode is a malformed template (the counts of "{{" and "}}"
// differ), surfaced as InnerError.
func Render(template string, scope map[string]string) (string, error) {
	if strings.Count(template, "{{") != strings.Count(template, "}}") {
		return "", puperrors.Inner("malformed template: unbalanced braces", nil)
	}
	out := templateKey.ReplaceAllStringFunc(template, func(match string) string {
		key := templateKey.FindStringSubmatch(match)[1]
		return scope[key]
	})
	return out, nil
}

// EnvEntry is one key/value pair of a step's environment block. Step
// environments are ordered: an entry may reference the keys declared
// before it.
type EnvEntry struct {
	Key   string
	Value string
}

// ExtendWithParent starts from parentScope, then overlays each entry in
// declaration order after rendering its value against the scope built
// so far, so earlier entries are visible to later ones. Child keys
// always win on conflict. The input scope is never mutated.
func ExtendWithParent(entries []EnvEntry, parentScope map[string]string) (map[string]string, error) {
	result := make(map[string]string, len(parentScope)+len(entries))
	for k, v := range parentScope {
		result[k] = v
	}
	for _, entry := range entries {
		rendered, err := Render(entry.Value, result)
		if err != nil {
			return nil, err
		}
		result[entry.Key] = rendered
	}
	return result, nil
}

// RenderExistingKeys starts from sourceMap's own keys and re-renders each
// value against parentScope, leaving the key set unchanged. This is used
// to resolve a process manifest's own environment block against the
// ambient scope: the manifest's keys stay present, only their values
// change.
func RenderExistingKeys(sourceMap, parentScope map[string]string) (map[string]string, error) {
	result := make(map[string]string, len(sourceMap))
	for k, v := range sourceMap {
		result[k] = v
	}
	for _, key := range sortedKeys(sourceMap) {
		rendered, err := Render(sourceMap[key], parentScope)
		if err != nil {
			return nil, err
		}
		result[key] = rendered
	}
	return result, nil
}

// AmbientState builds globalEnv ∪ OS environment, with OS environment
// values winning on conflict. Callers should build this once per
// invocation; there is no cross-call cache.
func AmbientState(globalEnv map[string]string) map[string]string {
	result := make(map[string]string, len(globalEnv))
	for k, v := range globalEnv {
		result[k] = v
	}
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		result[parts[0]] = parts[1]
	}
	return result
}

// Truish reports whether a string should be treated as true: it is
// truish unless it is empty, "0", or "false" in any case. Centralized
// here instead of scattering ad-hoc truthy checks across call sites.
func Truish(s string) bool {
	if s == "" {
		return false
	}
	if s == "0" {
		return false
	}
	if strings.EqualFold(s, "false") {
		return false
	}
	return true
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
