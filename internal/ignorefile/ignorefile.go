// Package ignorefile discovers the Python files a repo-wide audit
// should cover: every `.py` file under the repo root except those
// under a handful of always-excluded directory names and those
// matched by a `.argusignore` file, gitignore-style (spec §6,
// mirroring the original's `file_router.py`). This stays a small glue
// package rather than a general ignore-file engine, matching
// SPEC_FULL's explicit scope line for it — a hand-rolled gitwildmatch
// subset (`*` within one path segment, trailing-`/` directory markers,
// `#` comments; `**` does not span directories) is
// all a handful of repo-root ignore lines ever need, and pulling in a
// general pattern-matching dependency for it isn't grounded in
// anything the donor repo or the rest of the pack actually wires.
package ignorefile

import (
	"os"
	"path/filepath"
	"strings"
)

// alwaysExcludedParts are path components that are never audited
// regardless of .argusignore content, matching the original's
// hard-coded set.
var alwaysExcludedParts = map[string]bool{
	"venv":        true,
	"__pycache__": true,
	".git":        true,
	"legacy":      true,
}

// Spec is a parsed .argusignore file: a list of gitwildmatch-style
// patterns tested against a path relative to the repo root.
type Spec struct {
	patterns []pattern
}

type pattern struct {
	raw       string
	dirOnly   bool
	anchored  bool
	segments  []string
}

// Load reads repoRoot/.argusignore, if present, into a Spec. A
// missing file yields an empty Spec that matches nothing, matching
// `load_argusignore`'s PathSpec.from_lines("gitwildmatch", []).
func Load(repoRoot string) (Spec, error) {
	data, err := os.ReadFile(filepath.Join(repoRoot, ".argusignore"))
	if os.IsNotExist(err) {
		return Spec{}, nil
	}
	if err != nil {
		return Spec{}, err
	}

	var patterns []pattern
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		patterns = append(patterns, parsePattern(trimmed))
	}
	return Spec{patterns: patterns}, nil
}

func parsePattern(raw string) pattern {
	p := pattern{raw: raw}
	if strings.HasSuffix(raw, "/") {
		p.dirOnly = true
		raw = strings.TrimSuffix(raw, "/")
	}
	if strings.Contains(raw, "/") {
		p.anchored = true
		raw = strings.TrimPrefix(raw, "/")
	}
	p.segments = strings.Split(raw, "/")
	return p
}

// MatchFile reports whether relPath (always `/`-separated, relative
// to the repo root) matches any pattern in the spec.
func (s Spec) MatchFile(relPath string) bool {
	segments := strings.Split(relPath, "/")
	base := segments[len(segments)-1]
	for _, p := range s.patterns {
		if p.anchored {
			if matchSegments(p.segments, segments) {
				return true
			}
			continue
		}
		// Unanchored single-segment patterns match any path component,
		// mirroring gitwildmatch's "bare name matches anywhere" rule.
		for _, seg := range segments {
			if ok, _ := filepath.Match(p.segments[len(p.segments)-1], seg); ok {
				return true
			}
		}
		if ok, _ := filepath.Match(p.segments[0], base); ok {
			return true
		}
	}
	return false
}

func matchSegments(patternSegs, pathSegs []string) bool {
	if len(patternSegs) > len(pathSegs) {
		return false
	}
	start := len(pathSegs) - len(patternSegs)
	for i, seg := range patternSegs {
		ok, _ := filepath.Match(seg, pathSegs[start+i])
		if !ok {
			return false
		}
	}
	return true
}

// Discover walks repoRoot and returns every `.py` file's path relative
// to repoRoot, skipping always-excluded directories, any path listed
// in extraExcludes, and anything the .argusignore spec matches.
func Discover(repoRoot string, extraExcludes map[string]bool) ([]string, error) {
	spec, err := Load(repoRoot)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(repoRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if alwaysExcludedParts[d.Name()] && path != repoRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".py" {
			return nil
		}
		rel, err := filepath.Rel(repoRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, part := range strings.Split(rel, "/") {
			if alwaysExcludedParts[part] {
				return nil
			}
		}
		if extraExcludes[rel] || spec.MatchFile(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
