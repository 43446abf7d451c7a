// Package filetype provides external-collaborator predicates for the core's
// "path -> bool" filetype allowlist parameter. The core never imports this
// package directly; only cmd/codeage wires a predicate in, preserving the
// contract that the core is parameterized by, not coupled to, a filetype
// policy.
package filetype

import (
	"path/filepath"

	"github.com/src-d/enry/v2"
)

// Glob returns a predicate matching the path's file name against any of
// the given shell globs (as used for vendor/node_modules-style exclusion
// lists).
func Glob(patterns ...string) func(path string) bool {
	return func(path string) bool {
		name := filepath.Base(path)
		for _, pattern := range patterns {
			if ok, _ := filepath.Match(pattern, name); ok {
				return true
			}
		}
		return false
	}
}

// LanguageAllowlist returns a predicate accepting only paths enry detects
// as one of the named programming languages. Detection is name-based
// (enry.GetLanguagesByExtension / enry.GetLanguagesByFilename) since the
// allowlist is consulted before blob content is necessarily loaded.
func LanguageAllowlist(languages ...string) func(path string) bool {
	allowed := make(map[string]bool, len(languages))
	for _, l := range languages {
		allowed[l] = true
	}
	return func(path string) bool {
		name := filepath.Base(path)
		for _, lang := range enry.GetLanguagesByExtension(name, nil, nil) {
			if allowed[lang] {
				return true
			}
		}
		for _, lang := range enry.GetLanguagesByFilename(name, nil, nil) {
			if allowed[lang] {
				return true
			}
		}
		return false
	}
}

// DefaultExcludes rejects the usual generated/vendored trees and a
// top-level package-lock.json, expressed as a path-prefix predicate rather
// than a glob: every entry is matched against the start of the full path.
func DefaultExcludes(path string) bool {
	for _, prefix := range []string{"vendor/", "vendors/", "node_modules/", "package-lock.json"} {
		if len(path) >= len(prefix) && path[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
