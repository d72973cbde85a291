// Package forge publishes a completed run's MR-comment report to a
// GitLab merge request, a thin REST adapter grounded on the original's
// `gitlab_adapter.py`. It deliberately stops at "post a comment and
// relabel the MR" — no retry/backoff policy, no rate-limit handling,
// no webhook listener. Those are forge-client concerns spec.md places
// out of scope, not ones this package re-specifies.
package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/argusverify/argus/internal/credential"
	"github.com/argusverify/argus/internal/model"
	"github.com/argusverify/argus/internal/report"
)

// Result is the outcome of one publish attempt — always returned,
// never an error, since a misconfigured or unreachable forge must
// never fail the pipeline run itself (spec §6: forge publishing is
// additive to the verdict pipeline, not a gate in it).
type Result struct {
	Posted        bool     `json:"posted"`
	LabelsApplied []string `json:"labels_applied"`
	Reason        string   `json:"reason"`
	Comment       string   `json:"comment"`
}

// Adapter holds the GitLab coordinates a single publish call needs.
type Adapter struct {
	ServerURL   string
	Token       *credential.Secret
	ProjectID   string
	MRIID       string
	CommitSHA   string
	httpClient  *http.Client
}

// New builds an Adapter. token may be nil when no GITLAB_TOKEN is
// configured — Configured() then reports false and Publish short
// circuits without attempting a network call.
func New(serverURL, projectID, mrIID, commitSHA string, token *credential.Secret) *Adapter {
	return &Adapter{
		ServerURL:  strings.TrimRight(serverURL, "/"),
		Token:      token,
		ProjectID:  projectID,
		MRIID:      mrIID,
		CommitSHA:  commitSHA,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether every coordinate a real publish needs is
// present.
func (a *Adapter) Configured() bool {
	return a != nil && a.ServerURL != "" && a.Token != nil && a.ProjectID != "" && a.MRIID != ""
}

// Publish posts render_mr_comment's rendering as a new MR note and
// relabels the MR with this run's `argus:*` status label, preserving
// any label that doesn't start with `argus:`. dryRun skips the actual
// network calls while still returning the comment body and labels
// that would have been applied, for `--skip-gitlab-publish`-adjacent
// dry runs.
func (a *Adapter) Publish(ctx context.Context, files []report.FileReport, dryRun bool) Result {
	comment := a.buildComment(files)
	labels := deriveLabels(files)

	if !a.Configured() {
		return Result{Reason: "GitLab adapter not configured; skipping MR publish", Comment: comment}
	}
	if dryRun {
		return Result{LabelsApplied: labels, Reason: "Dry run enabled; no MR publish performed", Comment: comment}
	}

	if err := a.Token.Use(func(token string) error {
		if err := a.postNote(ctx, token, comment); err != nil {
			return err
		}
		return a.applyLabels(ctx, token, labels)
	}); err != nil {
		return Result{Reason: fmt.Sprintf("GitLab publish failed: %v", err), Comment: comment}
	}

	return Result{Posted: true, LabelsApplied: labels, Reason: "Posted MR comment and applied labels", Comment: comment}
}

func (a *Adapter) buildComment(files []report.FileReport) string {
	commit := a.CommitSHA
	if commit == "" {
		commit = "local"
	}
	if len(commit) > 8 {
		commit = commit[:8]
	}
	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05Z")
	body := report.RenderMRComment(files)
	return fmt.Sprintf("**Commit**: `%s` | **Generated**: %s\n\n%s", commit, timestamp, body)
}

// deriveLabels maps a batch's verdicts down to the single worst-case
// `argus:*` label the original assigns: any VULNERABLE/UNVERIFIED/
// ERROR outranks FIXED, which outranks an all-VERIFIED batch.
func deriveLabels(files []report.FileReport) []string {
	seen := make(map[model.Verdict]bool, len(files))
	for _, f := range files {
		seen[f.Verdict] = true
	}
	if seen[model.VerdictVulnerable] || seen[model.VerdictUnverified] || seen[model.VerdictError] {
		return []string{"argus:vulnerable"}
	}
	if seen[model.VerdictFixed] {
		return []string{"argus:fixed"}
	}
	return []string{"argus:verified"}
}

func (a *Adapter) projectPath() string {
	return fmt.Sprintf("%s/api/v4/projects/%s", a.ServerURL, url.PathEscape(a.ProjectID))
}

func (a *Adapter) postNote(ctx context.Context, token, comment string) error {
	body, err := json.Marshal(map[string]string{"body": comment})
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/merge_requests/%s/notes", a.projectPath(), url.PathEscape(a.MRIID))
	return a.do(ctx, http.MethodPost, endpoint, token, body)
}

type mergeRequestLabels struct {
	Labels []string `json:"labels"`
}

// applyLabels fetches the MR's current labels, drops any existing
// `argus:*` label, and replaces them with labels via a single PUT —
// matching the original's read-modify-write over `mr.labels`.
func (a *Adapter) applyLabels(ctx context.Context, token string, labels []string) error {
	endpoint := fmt.Sprintf("%s/merge_requests/%s", a.projectPath(), url.PathEscape(a.MRIID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("PRIVATE-TOKEN", token)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("forge: fetch merge request: status %d", resp.StatusCode)
	}
	var current mergeRequestLabels
	if err := json.NewDecoder(resp.Body).Decode(&current); err != nil {
		return err
	}

	preserved := current.Labels[:0]
	for _, l := range current.Labels {
		if !strings.HasPrefix(l, "argus:") {
			preserved = append(preserved, l)
		}
	}

	body, err := json.Marshal(mergeRequestLabels{Labels: append(preserved, labels...)})
	if err != nil {
		return err
	}
	return a.do(ctx, http.MethodPut, endpoint, token, body)
}

func (a *Adapter) do(ctx context.Context, method, endpoint, token string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("PRIVATE-TOKEN", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("forge: %s %s: status %d", method, endpoint, resp.StatusCode)
	}
	return nil
}
