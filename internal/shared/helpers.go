// Package shared provides path and name helpers used across the flatbuild
// packages.
package shared

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mattn/go-shellwords"
)

// PathPlaceholder stands for a root directory inside portable paths. The
// root is the build root for project files and the package root for
// package libraries.
const PathPlaceholder = "|"

// NormalizePackageName lowercases a package id the way store directories
// are named.
func NormalizePackageName(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// ToPortable re-expresses abs relative to root behind the placeholder.
// An empty root leaves the path untouched.
func ToPortable(abs string, root string) string {
	if root == "" || IsPortable(abs) {
		return abs
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return abs
	}
	return PathPlaceholder + string(filepath.Separator) + rel
}

// ExpandPortable turns a placeholder path back into an absolute one.
func ExpandPortable(value string, root string) string {
	if !IsPortable(value) {
		return filepath.Clean(value)
	}
	rest := strings.TrimLeft(strings.TrimPrefix(value, PathPlaceholder), `/\`)
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(filepath.Join(root, rest))
	if err != nil {
		return filepath.Join(root, rest)
	}
	return abs
}

func IsPortable(value string) bool {
	return strings.HasPrefix(value, PathPlaceholder)
}

// SplitPath splits on both separator styles and drops empty segments.
func SplitPath(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == '/' || r == '\\'
	})
}

// ToSysPath converts backslash separators found in descriptors to the host
// separator.
func ToSysPath(value string) string {
	if filepath.Separator == '/' {
		return strings.ReplaceAll(value, `\`, "/")
	}
	return strings.ReplaceAll(value, "/", `\`)
}

// PathKey folds a path for identity comparison. Paths are case sensitive
// only on Linux.
func PathKey(value string) string {
	if runtime.GOOS == "linux" {
		return value
	}
	return strings.ToLower(value)
}

// UniqueStrings keeps the first occurrence of every value.
func UniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

// CommandError wraps a command execution error with its trimmed output
// for cleaner error messages.
func CommandError(output []byte, err error) error {
	return fmt.Errorf("%s: %w", strings.TrimSpace(string(output)), err)
}

// SplitArgs splits a command line into words with shell quoting rules.
// Backslashes are kept literally since descriptors use them as path
// separators. Shell operators become words of their own. Input with
// unbalanced quotes falls back to whitespace splitting.
func SplitArgs(value string) []string {
	parser := shellwords.NewParser()
	rest := []rune(strings.ReplaceAll(value, `\`, `\\`))
	var words []string
	for {
		args, err := parser.Parse(string(rest))
		if err != nil {
			return strings.Fields(value)
		}
		words = append(words, args...)
		if parser.Position < 0 || parser.Position >= len(rest) {
			return words
		}
		words = append(words, string(rest[parser.Position]))
		rest = rest[parser.Position+1:]
	}
}
