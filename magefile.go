//go:build mage

package main

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target executed when none is specified.
var Default = CI

// CI runs the standard pipeline: format, lint, test, build.
func CI() {
	mg.SerialDeps(Format, Lint, Test, Build)
}

// Format updates Go sources using gofmt.
func Format() error {
	return sh.RunV("go", "fmt", "./...")
}

// Lint executes go vet to perform static analysis.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// Test runs the full Go test suite.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Build compiles the patchreview binary with the git version stamped in.
func Build() error {
	ldflags := fmt.Sprintf("-X main.version=%s", version())
	return sh.RunV("go", "build", "-ldflags", ldflags, "-o", "patchreview", "./cmd/patchreview")
}

// version derives the build version from git describe. Commits past a tag
// and dirty worktrees get describe's suffixes; a repo without tags falls
// back to the abbreviated commit, and no repo at all to "dev".
func version() string {
	out, err := sh.Output("git", "describe", "--tags", "--dirty", "--always")
	if err != nil {
		return "dev"
	}
	return strings.TrimSpace(out)
}
