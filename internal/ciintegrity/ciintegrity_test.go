package ciintegrity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/argusverify/argus/internal/model"
	"github.com/argusverify/argus/internal/report"
)

const withdrawSrc = "def withdraw(balance, amount):\n    if amount > balance:\n        return balance\n    return balance - amount\n"

func withdrawReport() report.FileReport {
	return report.FileReport{
		Filename: "withdraw.py",
		Verdict:  model.VerdictVerified,
	}
}

func TestRunSuiteAllDeterministicGatesPassOnCleanFile(t *testing.T) {
	files := []FileInput{{Filename: "withdraw.py", Code: withdrawSrc}}
	reports := []report.FileReport{withdrawReport()}

	rep := RunSuite(context.Background(), files, reports, Options{})

	byName := make(map[string]GateResult, len(rep.Gates))
	for _, g := range rep.Gates {
		byName[g.Name] = g
	}
	require.True(t, byName["unsupported-construct-gate"].Passed)
	require.True(t, byName["obligation-policy-gate"].Passed, byName["obligation-policy-gate"].Details)
	require.True(t, byName["assumption-evidence-gate"].Passed)
	require.True(t, byName["semantic-guard-gate"].Passed, byName["semantic-guard-gate"].Details)
	require.True(t, byName["proof-gate"].Passed)
	require.True(t, byName["verdict-contract-gate"].Passed)
	require.True(t, byName["reproducibility-gate"].Passed, byName["reproducibility-gate"].Details)
}

func TestRunSuiteMissingPipelineReportFailsProofAndVerdictGates(t *testing.T) {
	files := []FileInput{{Filename: "orphan.py", Code: withdrawSrc}}

	rep := RunSuite(context.Background(), files, nil, Options{})

	require.False(t, rep.Passed)
	byName := make(map[string]GateResult, len(rep.Gates))
	for _, g := range rep.Gates {
		byName[g.Name] = g
	}
	require.False(t, byName["proof-gate"].Passed)
	require.False(t, byName["verdict-contract-gate"].Passed)
}

func TestRunSuiteUnsupportedFileMustCarryUnverifiedVerdict(t *testing.T) {
	files := []FileInput{{Filename: "worker.py", Code: "async def worker():\n    return 1\n"}}
	reports := []report.FileReport{{Filename: "worker.py", Verdict: model.VerdictVerified}}

	rep := RunSuite(context.Background(), files, reports, Options{})

	byName := make(map[string]GateResult, len(rep.Gates))
	for _, g := range rep.Gates {
		byName[g.Name] = g
	}
	require.False(t, byName["unsupported-construct-gate"].Passed)
	require.False(t, byName["verdict-contract-gate"].Passed, "a claimed VERIFIED verdict on an unsupported-construct file must be flagged")
}

func TestRunSuiteInvalidAssumptionFailsEvidenceGate(t *testing.T) {
	files := []FileInput{{Filename: "withdraw.py", Code: withdrawSrc}}
	reports := []report.FileReport{{
		Filename: "withdraw.py",
		Verdict:  model.VerdictVerified,
		Assumptions: []model.AssumedInput{
			{Property: "", SourceType: model.SourceTypePolicy, Justification: "ok"},
		},
	}}

	rep := RunSuite(context.Background(), files, reports, Options{})

	byName := make(map[string]GateResult, len(rep.Gates))
	for _, g := range rep.Gates {
		byName[g.Name] = g
	}
	require.False(t, byName["assumption-evidence-gate"].Passed)
	require.False(t, byName["verdict-contract-gate"].Passed)
}

func TestTraceabilityGateFailsWithoutRunID(t *testing.T) {
	files := []FileInput{{Filename: "withdraw.py", Code: withdrawSrc}}
	gate := traceabilityGate(files, t.TempDir(), "")
	require.False(t, gate.Passed)
}

func TestTraceabilityGatePassesWithCompleteRun(t *testing.T) {
	traceRoot := t.TempDir()
	runID := "2026-07-31T00-00-00Z"
	runDir := filepath.Join(traceRoot, runID)
	fileDir := filepath.Join(runDir, "files", "withdraw.py")
	require.NoError(t, os.MkdirAll(fileDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(runDir, "manifest.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "summary.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(fileDir, "01_discovery.json"), []byte(`{"unsupported_constructs":[]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(fileDir, "02_translation.lean"), []byte("def f := 1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(fileDir, "03_verify_stdout.txt"), []byte("ok"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(fileDir, "result.json"), []byte("{}"), 0o644))

	gate := traceabilityGate([]FileInput{{Filename: "withdraw.py", Code: withdrawSrc}}, traceRoot, runID)
	require.True(t, gate.Passed, gate.Details)
}

func TestMutationGateKillsMutantsOfWithdraw(t *testing.T) {
	gate := mutationKillRateGate(context.Background(), withdrawSrc)
	require.True(t, gate.Passed, gate.Details)
}

func TestSeededBenchmarkGateFailsWithoutRoot(t *testing.T) {
	gate := seededBenchmarkGate(context.Background(), "")
	require.False(t, gate.Passed)
}

func TestSeededBenchmarkGatePassesAgainstManifest(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "withdraw.py"), []byte(withdrawSrc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pure.py"), []byte("def add(a, b):\n    return a + b\n"), 0o644))

	manifest := "cases:\n" +
		"  - path: withdraw.py\n" +
		"    expected: blocking\n" +
		"  - path: pure.py\n" +
		"    expected: supported\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "manifest.yaml"), []byte(manifest), 0o644))

	gate := seededBenchmarkGate(context.Background(), root)
	require.True(t, gate.Passed, gate.Details)
}

func TestContainsLoop(t *testing.T) {
	require.True(t, containsLoop("for i in range(10):\n    pass\n"))
	require.True(t, containsLoop("while True:\n    pass\n"))
	require.False(t, containsLoop(withdrawSrc))
}
