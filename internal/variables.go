package internal

import (
	"fmt"
	"runtime"
	"strings"
)

const (

	// Canonical daemon name, used for the CLI, the socket directory, and the
	// containerd namespace.
	Name = "slipwayd"

	// String reported for variables that were never set.
	defaultUndefined = "(undefined)"

	// String reported for local (non-pipeline) builds.
	defaultLocalBuild = "(local)"

	// Branch name omitted from version strings.
	mainBranch = "main"
)

var (
	version   = "" // Release version (e.g., "0.3.1")
	stage     = "" // Development stage or git branch (e.g., "staging")
	gitCommit = "" // Git commit hash (e.g., "f00dcafe")

	rawQuiet   = "false" // Whether quiet mode starts enabled
	rawDebug   = "false" // Whether debug mode starts enabled
	rawVerbose = "false" // Whether verbose logging starts enabled
)

// Returns the release version with any "v" prefix stripped, or "(undefined)"
// if the build did not set one.
func Version() string {
	v := strings.TrimSpace(version)
	if v == "" {
		return defaultUndefined
	}

	v = strings.ToLower(v)
	v = strings.TrimPrefix(v, "v")

	return v
}

// Returns the development stage the binary was built from.
//
// The stage corresponds to the git branch name used during the build. If it
// is not set, returns "(undefined)".
func Stage() string {
	s := strings.TrimSpace(stage)
	if s == "" {
		return defaultUndefined
	}
	return strings.ToLower(s)
}

// Returns the git commit hash, or "(undefined)" if unset.
func GitCommit() string {
	c := strings.TrimSpace(gitCommit)
	if c == "" {
		return defaultUndefined
	}
	return c
}

// Returns the build architecture.
func Arch() string {
	return runtime.GOARCH
}

// Returns true if this is a local (non-pipeline) build.
//
// Pipeline builds set the version, stage, and commit variables via linker
// flags; a build missing any of them is treated as local.
func IsLocal() bool {
	return strings.TrimSpace(version) == "" ||
		strings.TrimSpace(gitCommit) == "" ||
		strings.TrimSpace(stage) == ""
}

// Returns a detailed version string.
//
// Local builds report "(local)". Pipeline builds report
// "<version>+<stage> <git-commit> [<arch>]", with the stage suffix omitted
// on the main branch.
func VersionString() string {
	if IsLocal() {
		return defaultLocalBuild
	}

	s := Stage()
	if s == mainBranch {
		s = ""
	} else {
		s = "+" + s
	}

	return fmt.Sprintf("%s%s %s [%s]", Version(), s, GitCommit(), Arch())
}
