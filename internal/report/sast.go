package report

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/argusverify/argus/internal/model"
)

// gitlabSeverityFor maps a verdict to the GitLab SAST severity scale,
// per spec §4.11: VULNERABLE/ERROR are treated as Critical (a prover
// either disproved safety or the toolchain itself failed), UNVERIFIED
// is High (the file's safety is simply unknown), everything else is
// informational.
func gitlabSeverityFor(v model.Verdict) string {
	switch v {
	case model.VerdictVulnerable, model.VerdictError:
		return "Critical"
	case model.VerdictUnverified:
		return "High"
	default:
		return "Info"
	}
}

type gitlabSASTScanner struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

type gitlabSASTAnalyzer struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Vendor  gitlabSASTVendor  `json:"vendor"`
}

type gitlabSASTVendor struct {
	Name string `json:"name"`
}

type gitlabSASTScan struct {
	Scanner   gitlabSASTScanner  `json:"scanner"`
	Analyzer  gitlabSASTAnalyzer `json:"analyzer"`
	Type      string             `json:"type"`
	StartTime string             `json:"start_time"`
	EndTime   string             `json:"end_time"`
	Status    string             `json:"status"`
}

type gitlabSASTLocationFile struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
}

type gitlabSASTIdentifier struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type gitlabSASTVulnerability struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Severity    string                  `json:"severity"`
	Scanner     gitlabSASTScanner       `json:"scanner"`
	Location    gitlabSASTLocationFile  `json:"location"`
	Identifiers []gitlabSASTIdentifier  `json:"identifiers"`
}

// GitLabSASTReport is the root object RenderGitLabSAST produces,
// following the GitLab SAST report schema (version 15.0.x family).
type GitLabSASTReport struct {
	Schema          string                    `json:"$schema"`
	Version         string                    `json:"version"`
	Scan            gitlabSASTScan            `json:"scan"`
	Vulnerabilities []gitlabSASTVulnerability `json:"vulnerabilities"`
}

// RenderGitLabSAST builds a GitLab SAST report (spec §4.11), filtered
// to non-passing verdicts the same way RenderSARIF is, with each
// finding's id a SHA-256 fingerprint over "file:verdict:message" so
// GitLab can deduplicate a finding across pipeline runs as long as the
// file, verdict, and message don't change, adapted from the original
// sarif_generator.py's fingerprinting idea (there applied to SARIF
// result identity instead).
func RenderGitLabSAST(files []FileReport, startRFC3339, endRFC3339 string) GitLabSASTReport {
	scanner := gitlabSASTScanner{ID: "argus", Name: "Argus", Version: "2.0.0"}

	var vulns []gitlabSASTVulnerability
	for _, f := range files {
		if f.Verdict.Passing() {
			continue
		}
		message := f.Message
		if message == "" {
			message = f.Reason
		}
		fingerprint := sastFingerprint(f.Filename, string(f.Verdict), message)
		vulns = append(vulns, gitlabSASTVulnerability{
			ID:          fingerprint,
			Name:        fmt.Sprintf("Argus verdict %s", f.Verdict),
			Description: message,
			Severity:    gitlabSeverityFor(f.Verdict),
			Scanner:     scanner,
			Location:    gitlabSASTLocationFile{File: f.Filename, StartLine: 1},
			Identifiers: []gitlabSASTIdentifier{{
				Type:  "argus_verdict",
				Name:  fmt.Sprintf("Argus %s", f.Verdict),
				Value: fingerprint,
			}},
		})
	}

	return GitLabSASTReport{
		Schema:  "https://gitlab.com/gitlab-org/security-products/security-report-schemas/-/raw/master/dist/sast-report-format.json",
		Version: "15.0.7",
		Scan: gitlabSASTScan{
			Scanner: scanner,
			Analyzer: gitlabSASTAnalyzer{
				ID: "argus", Name: "Argus", Version: "2.0.0",
				Vendor: gitlabSASTVendor{Name: "Argus"},
			},
			Type:      "sast",
			StartTime: startRFC3339,
			EndTime:   endRFC3339,
			Status:    "success",
		},
		Vulnerabilities: vulns,
	}
}

func sastFingerprint(filename, verdict, message string) string {
	sum := sha256.Sum256([]byte(filename + ":" + verdict + ":" + message))
	return hex.EncodeToString(sum[:])
}
