// Package report renders a completed pipeline run into the output
// formats spec.md's CLI surface writes to disk: a machine-readable
// JSON summary, a human-readable Markdown report, a SARIF log for
// code-scanning integration, a GitLab SAST report, and a compact
// Markdown MR-comment body the forge adapter posts.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/argusverify/argus/internal/model"
)

// toolName is the identifier every rendered report's "tool" field
// carries, matching the original's "ArgusV2".
const toolName = "ArgusV2"

// FileReport is one file's complete pipeline result, the unit every
// renderer in this package consumes. The pipeline orchestrator
// constructs one per file it runs.
type FileReport struct {
	Filename    string                    `json:"filename"`
	Verdict     model.Verdict             `json:"verdict"`
	Reason      string                    `json:"reason"`
	Engine      model.Engine              `json:"engine"`
	Message     string                    `json:"message"`
	Obligations []model.ObligationResult  `json:"obligations"`
	Assumptions []model.AssumedInput      `json:"assumptions"`
	Repaired    bool                      `json:"repaired"`
	RawOutput   string                    `json:"raw_output,omitempty"`
}

// summary tallies how many files landed on each verdict, the shape
// render_json_report's "summary" object carries.
type summary struct {
	Total      int `json:"total"`
	Verified   int `json:"verified"`
	Fixed      int `json:"fixed"`
	Vulnerable int `json:"vulnerable"`
	Unverified int `json:"unverified"`
	Error      int `json:"error"`
}

func summarize(files []FileReport) summary {
	s := summary{Total: len(files)}
	for _, f := range files {
		switch f.Verdict {
		case model.VerdictVerified:
			s.Verified++
		case model.VerdictFixed:
			s.Fixed++
		case model.VerdictVulnerable:
			s.Vulnerable++
		case model.VerdictUnverified:
			s.Unverified++
		case model.VerdictError:
			s.Error++
		}
	}
	return s
}

// JSONReport is the root object RenderJSON produces.
type JSONReport struct {
	Tool      string       `json:"tool"`
	Timestamp string       `json:"timestamp"`
	Summary   summary      `json:"summary"`
	Files     []FileReport `json:"files"`
}

// RenderJSON builds the machine-readable report (spec §4.11), matching
// the original's render_json_report shape: a tool identifier, an RFC
// 3339 UTC timestamp, a per-verdict summary, and the full per-file
// detail. now is passed in rather than read from time.Now, since
// nothing in this package is allowed to call the clock directly.
func RenderJSON(files []FileReport, nowRFC3339 string) JSONReport {
	return JSONReport{
		Tool:      toolName,
		Timestamp: nowRFC3339,
		Summary:   summarize(files),
		Files:     files,
	}
}

// RenderMarkdown builds the human-readable report (spec §4.11):
// a summary table followed by one section per file, matching the
// original's render_markdown_report line-by-line structure.
func RenderMarkdown(files []FileReport) string {
	lines := []string{
		"# " + toolName + " Verification Report",
		"",
		"| File | Verdict | Engine |",
		"|:---|:---|:---|",
	}
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("| `%s` | %s | %s |", f.Filename, f.Verdict, f.Engine))
	}

	lines = append(lines, "")
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("## %s", f.Filename))
		lines = append(lines, fmt.Sprintf("- Verdict: **%s**", f.Verdict))
		lines = append(lines, fmt.Sprintf("- Engine: `%s`", f.Engine))
		message := f.Message
		if message == "" {
			message = "n/a"
		}
		lines = append(lines, fmt.Sprintf("- Message: %s", message))
		lines = append(lines, "- Obligations:")
		for _, o := range f.Obligations {
			lines = append(lines, fmt.Sprintf("  - `%s`: %s", o.Obligation.ID, o.Obligation.Property))
		}
		lines = append(lines, "- Assumptions:")
		for _, a := range f.Assumptions {
			lines = append(lines, fmt.Sprintf("  - `%s` (%s:%s)", a.Property, a.SourceType, a.SourceRef))
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

// RenderMRComment builds the compact emoji-decorated comment body the
// forge adapter posts to a merge request (spec §4's supplemented
// forge-publishing feature), matching the original's render_mr_comment
// (itself built from the same summary render_json_report computes).
func RenderMRComment(files []FileReport) string {
	s := summarize(files)
	lines := []string{
		"## 🛡️ Argus Formal Verification Report",
		"",
		fmt.Sprintf(
			"**Files Audited**: %d | ✅ Verified: %d | 🔧 Fixed: %d | ❌ Vulnerable: %d | ⛔ Unverified/Error: %d",
			s.Total, s.Verified, s.Fixed, s.Vulnerable, s.Unverified+s.Error,
		),
		"",
		"| File | Verdict | Finding |",
		"|:---|:---|:---|",
	}
	for _, f := range files {
		finding := f.Message
		if finding == "" {
			finding = "n/a"
		}
		lines = append(lines, fmt.Sprintf("| `%s` | %s | %s |", f.Filename, f.Verdict, finding))
	}
	return strings.Join(lines, "\n")
}

// DumpJSON marshals v as indented JSON and writes it to path,
// matching the original's dump_json helper used for every --output-*
// flag.
func DumpJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}
