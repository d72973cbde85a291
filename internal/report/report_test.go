package report

import (
	"testing"

	"github.com/argusverify/argus/internal/model"
	"github.com/stretchr/testify/require"
)

func sampleFiles() []FileReport {
	return []FileReport{
		{
			Filename: "accounts.py",
			Verdict:  model.VerdictVerified,
			Engine:   model.EngineLean,
			Message:  "All obligations passed",
			Obligations: []model.ObligationResult{
				{Obligation: model.NewObligation("f:non_negative_result", "f(...) >= 0", model.CategoryNonNegativity, "d", model.SeverityCritical), Verified: true},
			},
		},
		{
			Filename:  "withdraw.py",
			Verdict:   model.VerdictVulnerable,
			Engine:    model.EngineLean,
			Message:   "obligation withdraw:non_negative_result failed",
			RawOutput: "argus_abc-123.lean:4:2: error: unsolved goals\n-- balance can go negative here",
			Obligations: []model.ObligationResult{
				{Obligation: model.NewObligation("withdraw:non_negative_result", "withdraw(...) >= 0", model.CategoryNonNegativity, "d", model.SeverityCritical), Verified: false},
			},
		},
		{
			Filename: "loop.py",
			Verdict:  model.VerdictUnverified,
			Engine:   model.EngineDafny,
			Message:  "Unsupported constructs encountered: async_function",
		},
	}
}

func TestRenderJSONSummaryCounts(t *testing.T) {
	out := RenderJSON(sampleFiles(), "2026-07-31T00:00:00Z")
	require.Equal(t, "ArgusV2", out.Tool)
	require.Equal(t, 3, out.Summary.Total)
	require.Equal(t, 1, out.Summary.Verified)
	require.Equal(t, 1, out.Summary.Vulnerable)
	require.Equal(t, 1, out.Summary.Unverified)
	require.Len(t, out.Files, 3)
}

func TestRenderMarkdownIncludesPerFileSections(t *testing.T) {
	md := RenderMarkdown(sampleFiles())
	require.Contains(t, md, "# ArgusV2 Verification Report")
	require.Contains(t, md, "## accounts.py")
	require.Contains(t, md, "## withdraw.py")
	require.Contains(t, md, "- Verdict: **VULNERABLE**")
	require.Contains(t, md, "`withdraw:non_negative_result`: withdraw(...) >= 0")
}

func TestRenderMRCommentCountsAndTable(t *testing.T) {
	comment := RenderMRComment(sampleFiles())
	require.Contains(t, comment, "## 🛡️ Argus Formal Verification Report")
	require.Contains(t, comment, "**Files Audited**: 3")
	require.Contains(t, comment, "✅ Verified: 1")
	require.Contains(t, comment, "⛔ Unverified/Error: 1")
	require.Contains(t, comment, "| `withdraw.py` | VULNERABLE | obligation withdraw:non_negative_result failed |")
}

func TestRenderSARIFSkipsPassingVerdicts(t *testing.T) {
	sarif := RenderSARIF(sampleFiles())
	require.Equal(t, "2.1.0", sarif.Version)
	require.Len(t, sarif.Runs, 1)
	require.Len(t, sarif.Runs[0].Results, 2)
	for _, r := range sarif.Runs[0].Results {
		require.NotEqual(t, "accounts.py", r.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	}
}

func TestRenderSARIFCleansTempFilenameAndCommentsFromOutput(t *testing.T) {
	sarif := RenderSARIF(sampleFiles())
	var vulnResult *sarifResult
	for i, r := range sarif.Runs[0].Results {
		if r.Locations[0].PhysicalLocation.ArtifactLocation.URI == "withdraw.py" {
			vulnResult = &sarif.Runs[0].Results[i]
		}
	}
	require.NotNil(t, vulnResult)
	require.NotContains(t, vulnResult.Message.Text, "argus_abc-123.lean")
	require.NotContains(t, vulnResult.Message.Text, "balance can go negative here")
	require.Contains(t, vulnResult.Message.Text, "Proof failed: could not verify safety invariant")
}

func TestRenderGitLabSASTFingerprintsAndSeverity(t *testing.T) {
	sast := RenderGitLabSAST(sampleFiles(), "2026-07-31T00:00:00Z", "2026-07-31T00:00:05Z")
	require.Equal(t, "sast", sast.Scan.Type)
	require.Len(t, sast.Vulnerabilities, 2)
	for _, v := range sast.Vulnerabilities {
		require.Len(t, v.ID, 64)
		if v.Location.File == "withdraw.py" {
			require.Equal(t, "Critical", v.Severity)
		}
		if v.Location.File == "loop.py" {
			require.Equal(t, "High", v.Severity)
		}
	}
}

func TestDumpJSONWritesIndentedFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/report.json"
	require.NoError(t, DumpJSON(path, RenderJSON(sampleFiles(), "2026-07-31T00:00:00Z")))
}
