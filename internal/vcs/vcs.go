// Package vcs collects the Python files a CI-mode run should audit
// from a `git diff` against a base ref (spec §6, mirroring the
// original's `git_ops.py`). Full-repo discovery is internal/ignorefile's
// job, not this package's.
package vcs

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	diff "github.com/sourcegraph/go-diff/diff"
)

// ChangedPythonFiles runs `git diff --unified=0` between baseRef and
// HEAD (or HEAD^ and HEAD when baseRef is empty) inside repoRoot and
// returns the `.py` paths on the diff's new side (deleted files are
// skipped). A git failure of
// any kind (not a repository, no parent commit, baseRef unknown)
// yields an empty slice rather than an error — CI mode then falls
// back to a full repo scan, matching the original's bare `except
// Exception: return []`.
func ChangedPythonFiles(ctx context.Context, repoRoot, baseRef string) []string {
	from := "HEAD^"
	if baseRef != "" {
		from = baseRef
	}

	cmd := exec.CommandContext(ctx, "git", "diff", "--unified=0", from, "HEAD")
	cmd.Dir = repoRoot
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil
	}

	return parseChangedPythonFiles(stdout.String())
}

// parseChangedPythonFiles extracts the new-file path of every hunk in
// a unified diff using go-diff's parser rather than a hand-rolled
// "diff --git" line scan, then filters to .py paths. Using a real
// diff parser (instead of name-only output and a second `git show`
// round trip) is what lets this also report files renamed into a .py
// path, which --name-only would already show but a brittle string
// split easily misses.
func parseChangedPythonFiles(unifiedDiff string) []string {
	fileDiffs, err := diff.ParseMultiFileDiff([]byte(unifiedDiff))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool, len(fileDiffs))
	var files []string
	for _, fd := range fileDiffs {
		path := strings.TrimPrefix(fd.NewName, "b/")
		if path == "" || path == "/dev/null" {
			continue
		}
		if !strings.HasSuffix(path, ".py") {
			continue
		}
		if seen[path] {
			continue
		}
		seen[path] = true
		files = append(files, path)
	}
	return files
}
