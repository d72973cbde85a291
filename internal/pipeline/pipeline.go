// Package pipeline implements the Pipeline Orchestrator (spec §5):
// the stage sequence every file runs through — Obligation Policy,
// Invariant Discovery, Translator Router, Semantic Guard, Verifier
// Router, Verdict Contract, and (on a VULNERABLE verdict, when
// repair is allowed) the Repair Engine rerun — writing a trace file
// after every stage and reducing to exactly one terminal Verdict.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/argusverify/argus/internal/config"
	"github.com/argusverify/argus/internal/discovery"
	"github.com/argusverify/argus/internal/engineselect"
	"github.com/argusverify/argus/internal/guard"
	"github.com/argusverify/argus/internal/llmclient"
	"github.com/argusverify/argus/internal/model"
	"github.com/argusverify/argus/internal/obslog"
	"github.com/argusverify/argus/internal/repair"
	"github.com/argusverify/argus/internal/report"
	"github.com/argusverify/argus/internal/telemetry"
	"github.com/argusverify/argus/internal/tracestore"
	"github.com/argusverify/argus/internal/translate"
	"github.com/argusverify/argus/internal/verdict"
)

// Verifier is the subset of *verify.Router (or *verify.CachedRouter)
// the Orchestrator needs, kept as an interface here so the
// Orchestrator never has to know whether verification results are
// being served from the badger cache.
type Verifier interface {
	Verify(ctx context.Context, engine model.Engine, artifact string, obligations []model.Obligation) model.VerificationOutcome
}

// Result is one file's complete run through every stage, the
// Orchestrator's internal return value before RunMany narrows it down
// to the report package's FileReport shape.
type Result struct {
	Filename          string
	Verdict           model.Verdict
	Obligations       []model.Obligation
	ObligationResults []model.ObligationResult
	Assumptions       []model.AssumedInput
	Engine            model.Engine
	Message           string
	RawOutput         string
	RepairedCode      string
	Repaired          bool
}

// Orchestrator wires every pipeline stage together. Construct one per
// run (or reuse across a batch via RunMany); it holds no per-file
// state between calls.
type Orchestrator struct {
	config       config.Config
	llmClient    llmclient.Client
	translator   *translate.Router
	verifier     Verifier
	repairEngine *repair.Engine
	logger       *obslog.Logger
	metrics      *telemetry.Metrics
	trace        *tracestore.Writer

	mu        sync.Mutex
	lastRunID string
}

// New builds an Orchestrator. logger and metrics may be nil; a nil
// logger falls back to obslog.Default(), a nil metrics simply records
// nothing (the Orchestrator skips every Metrics call when metrics is
// nil; otel's own no-op tracer is safe to call even when unconfigured).
func New(cfg config.Config, llmClient llmclient.Client, translator *translate.Router, verifier Verifier, repairEngine *repair.Engine, logger *obslog.Logger, metrics *telemetry.Metrics) *Orchestrator {
	if logger == nil {
		logger = obslog.Default()
	}
	return &Orchestrator{
		config:       cfg,
		llmClient:    llmClient,
		translator:   translator,
		verifier:     verifier,
		repairEngine: repairEngine,
		logger:       logger,
		metrics:      metrics,
		trace:        tracestore.New(cfg.TraceRoot, cfg.TraceGCSBucket),
	}
}

// RunFile runs filename/code through every stage as a standalone run
// (its own fresh run id), honoring the Orchestrator's configured
// AllowRepair policy. Use RunMany instead when auditing a batch so
// every file in the batch shares one run id (spec §3: "a run id is a
// single monotonic UTC timestamp string").
func (o *Orchestrator) RunFile(ctx context.Context, filename, code string) Result {
	runID := o.newRunID()
	o.setLastRunID(runID)
	result := o.runFileTraced(ctx, runID, filename, code, o.config.AllowRepair)
	o.finalizeRun(ctx, runID, []Result{result})
	return result
}

// LastRunID returns the run id of the most recently completed
// RunFile/RunMany call, matching spec §4.10's "the pipeline exposes
// last_run_id after each batch". It is empty until the first run
// completes.
func (o *Orchestrator) LastRunID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastRunID
}

func (o *Orchestrator) setLastRunID(runID string) {
	o.mu.Lock()
	o.lastRunID = runID
	o.mu.Unlock()
}

// newRunID mints a monotonic UTC timestamp string (spec §3's run id
// shape). Called exactly once per top-level RunFile/RunMany
// invocation; a repair rerun reuses its parent's run id rather than
// minting its own (spec §5: "recursion inherits the parent's run_id
// but writes to a distinct sub-path").
func (o *Orchestrator) newRunID() string {
	return time.Now().UTC().Format("2006-01-02T15-04-05.000000000")
}

// runFileTraced runs one file through every stage under the given
// run id, recording the file's own wall-clock duration and verdict to
// telemetry the way RunFile always did.
func (o *Orchestrator) runFileTraced(ctx context.Context, runID, filename, code string, allowRepair bool) Result {
	ctx, span := telemetry.StartFileSpan(ctx, filename)
	defer span.End()

	start := time.Now()
	result := o.runFile(ctx, runID, filename, code, allowRepair)
	if o.metrics != nil {
		o.metrics.RecordRun(result.Verdict, string(result.Engine), time.Since(start))
	}
	telemetry.EndWithVerdict(span, result.Verdict)
	return result
}

// runFile is the recursive worker: allowRepair is forced false on the
// repair rerun so a repaired file can never itself trigger a second
// repair attempt (spec §4.8's single-rerun bound). runID is threaded
// through rather than re-derived so every file — and every repair
// rerun — in one batch lands under the same run directory.
func (o *Orchestrator) runFile(ctx context.Context, runID, filename, code string, allowRepair bool) Result {
	traceDir := o.trace.FileDir(runID, filename)

	policyResult, discoveryResult := o.discover(ctx, code)

	_ = o.trace.WriteJSON(traceDir, "01_discovery.json", map[string]any{
		"obligations":            policyResult.Obligations,
		"assumed_inputs":         discoveryResult.AssumedInputs,
		"assumptions_valid":      discoveryResult.AssumptionsValid,
		"assumption_issues":      discoveryResult.AssumptionIssues,
		"unsupported_constructs": policyResult.UnsupportedConstructs,
	})

	if len(policyResult.UnsupportedConstructs) > 0 {
		summary := model.VerificationSummary{
			AssumptionsValid:      discoveryResult.AssumptionsValid,
			UnsupportedConstructs: policyResult.UnsupportedConstructs,
			SemanticGuardPassed:   false,
		}
		decision := verdict.Compute(summary)
		result := Result{
			Filename:    filename,
			Verdict:     decision.Verdict,
			Obligations: policyResult.Obligations,
			Assumptions: discoveryResult.AssumedInputs,
			Engine:      "n/a",
			Message:     decision.Reason,
		}
		o.writeResultFile(traceDir, result)
		return result
	}

	selection := engineselect.Select(ctx, []byte(code))
	translation := o.translator.Translate(ctx, selection.Engine, []byte(code), policyResult.Obligations, discoveryResult.AssumedInputs)

	translationFileName := "02_translation.lean"
	if selection.Engine == model.EngineDafny {
		translationFileName = "02_translation.dfy"
	}
	translationContent := translation.Error
	if translation.Success {
		translationContent = translation.Code
	}
	_ = o.trace.WriteText(traceDir, translationFileName, translationContent)

	if !translation.Success {
		summary := model.VerificationSummary{
			AssumptionsValid:    discoveryResult.AssumptionsValid,
			SemanticGuardPassed: false,
			VerificationError:   true,
		}
		decision := verdict.Compute(summary)
		result := Result{
			Filename:    filename,
			Verdict:     decision.Verdict,
			Obligations: policyResult.Obligations,
			Assumptions: discoveryResult.AssumedInputs,
			Engine:      selection.Engine,
			Message:     translation.Error,
		}
		_ = o.trace.WriteText(traceDir, "03_verify_stdout.txt", translation.Error)
		o.writeResultFile(traceDir, result)
		return result
	}

	guardCtx, guardSpan := telemetry.StartStageSpan(ctx, "guard")
	guardResult := guard.Run(guardCtx, []byte(code), translation.Code, policyResult.Obligations)
	guardSpan.End()

	verifyCtx, verifySpan := telemetry.StartStageSpan(ctx, "verify")
	verification := o.verifier.Verify(verifyCtx, selection.Engine, translation.Code, policyResult.Obligations)
	verifySpan.End()

	_ = o.trace.WriteText(traceDir, "03_verify_stdout.txt", firstNonEmpty(verification.RawOutput, verification.ErrorMessage))

	summary := model.VerificationSummary{
		ObligationResults:     verification.ObligationResults,
		AssumptionsValid:      discoveryResult.AssumptionsValid,
		UnsupportedConstructs: nil,
		SemanticGuardPassed:   guardResult.Passed,
		VerificationError:     verification.VerificationError,
		Repaired:              false,
	}
	decision := verdict.Compute(summary)

	var repairedCode string
	if decision.Verdict == model.VerdictVulnerable && allowRepair && !verification.VerificationError && o.repairEngine != nil {
		repairResult := o.repairEngine.Repair(ctx, code, firstNonEmpty(verification.ErrorMessage, verification.RawOutput), policyResult.Obligations)
		if o.metrics != nil {
			for range repairResult.Attempts {
				o.metrics.RecordRepairAttempt()
			}
		}
		if repairResult.Success && repairResult.FixedCode != "" {
			repairedCode = repairResult.FixedCode
			_ = o.trace.WriteText(traceDir, "04_repair_0.py", repairedCode)
			summary.Repaired = true

			rerun := o.runFile(ctx, runID, filename+"_repaired", repairedCode, false)
			if rerun.Verdict == model.VerdictVerified || rerun.Verdict == model.VerdictFixed {
				result := Result{
					Filename:          filename,
					Verdict:           model.VerdictFixed,
					Obligations:       policyResult.Obligations,
					ObligationResults: rerun.ObligationResults,
					Assumptions:       discoveryResult.AssumedInputs,
					Engine:            rerun.Engine,
					Message:           "Repaired and verified",
					RepairedCode:      repairedCode,
					Repaired:          true,
				}
				o.writeResultFile(traceDir, result)
				return result
			}
		}
	}

	message := decision.Reason
	if message == "" {
		message = verification.ErrorMessage
	}

	result := Result{
		Filename:          filename,
		Verdict:           decision.Verdict,
		Obligations:       policyResult.Obligations,
		ObligationResults: verification.ObligationResults,
		Assumptions:       discoveryResult.AssumedInputs,
		Engine:            selection.Engine,
		Message:           message,
		RawOutput:         firstNonEmpty(verification.RawOutput, verification.ErrorMessage),
		RepairedCode:      repairedCode,
	}
	o.writeResultFile(traceDir, result)
	return result
}

// writeResultFile writes result.json, the one trace artifact the
// traceability gate (spec §4.12) requires unconditionally — even for
// a file that short-circuited on unsupported constructs (spec §9's
// "Open Question" decision, resolved to the stricter universal
// reading; see DESIGN.md).
func (o *Orchestrator) writeResultFile(traceDir string, result Result) {
	_ = o.trace.WriteJSON(traceDir, "result.json", map[string]any{
		"filename":      result.Filename,
		"verdict":       result.Verdict,
		"engine":        result.Engine,
		"message":       result.Message,
		"obligations":   obligationResultsFor(result),
		"assumptions":   result.Assumptions,
		"repaired":      result.Repaired,
		"repaired_code": result.RepairedCode,
	})
}

// policyOutput is the Obligation Policy's half of discovery.Result,
// broken out by name only so the trace write and short-circuit checks
// below read cleanly; discovery.Discover already runs the policy
// internally and returns both halves together.
type policyOutput struct {
	Obligations           []model.Obligation
	UnsupportedConstructs []string
}

func (o *Orchestrator) discover(ctx context.Context, code string) (policyOutput, discovery.Result) {
	result, err := discovery.Discover(ctx, o.llmClient, true, []byte(code))
	if err != nil {
		o.logger.Warn("discovery failed", "error", err)
		return policyOutput{UnsupportedConstructs: []string{"discovery_error"}}, discovery.Result{}
	}
	return policyOutput{
		Obligations:           result.Obligations,
		UnsupportedConstructs: result.UnsupportedConstructs,
	}, result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// RunMany runs every file in order under one shared run id and
// returns each as a report.FileReport, matching the original
// run_many's shape — the Orchestrator's richer internal Result
// (the repaired source) is narrowed down to what
// a report renderer needs. Processing order follows files' input
// order (spec §5); files are not run concurrently, since the
// obligation-policy determinism and reproducibility CI gates (spec
// §4.12) depend on one file's derivation never racing another's.
func (o *Orchestrator) RunMany(ctx context.Context, files []FileInput) []report.FileReport {
	runID := o.newRunID()
	o.setLastRunID(runID)

	results := make([]Result, 0, len(files))
	reports := make([]report.FileReport, 0, len(files))
	for _, f := range files {
		result := o.runFileTraced(ctx, runID, f.Filename, f.Code, o.config.AllowRepair)
		results = append(results, result)
		reports = append(reports, report.FileReport{
			Filename:    result.Filename,
			Verdict:     result.Verdict,
			Engine:      result.Engine,
			Message:     result.Message,
			RawOutput:   result.RawOutput,
			Obligations: obligationResultsFor(result),
			Assumptions: result.Assumptions,
			Repaired:    result.Repaired,
		})
	}

	o.finalizeRun(ctx, runID, results)
	return reports
}

// finalizeRun writes manifest.json and summary.json at the run's root
// directory (spec §4.10: "Per-run files: manifest.json ... and
// summary.json"), then mirrors the completed run to GCS if archival
// is configured.
func (o *Orchestrator) finalizeRun(ctx context.Context, runID string, results []Result) {
	runDir := o.trace.RunDir(runID)

	filenames := make([]string, 0, len(results))
	counts := map[model.Verdict]int{}
	fileSummaries := make([]map[string]any, 0, len(results))
	for _, r := range results {
		filenames = append(filenames, r.Filename)
		counts[r.Verdict]++
		fileSummaries = append(fileSummaries, map[string]any{
			"filename": r.Filename,
			"verdict":  r.Verdict,
		})
	}

	_ = o.trace.WriteJSON(runDir, "manifest.json", map[string]any{
		"run_id":     runID,
		"mode":       "batch",
		"files":      filenames,
		"config": map[string]any{
			"model":                 o.config.Model,
			"max_repair_attempts":   o.config.MaxRepairAttempts,
			"allow_repair":          o.config.AllowRepair,
			"require_docker_verify": o.config.RequireDockerVerify,
			"trace_root":            o.config.TraceRoot,
		},
	})
	_ = o.trace.WriteJSON(runDir, "summary.json", map[string]any{
		"counts": counts,
		"files":  fileSummaries,
	})

	if err := o.trace.ArchiveRun(ctx, runID); err != nil {
		o.logger.Warn("trace archival failed", "run_id", runID, "error", err)
	}
}

// FileInput is one (filename, source) pair RunMany processes.
type FileInput struct {
	Filename string
	Code     string
}

// obligationResultsFor returns the real per-obligation verification
// results when verification ran, or synthesizes an unverified entry
// per policy obligation when a run short-circuited before
// verification produced any (the unsupported-constructs and
// translation-failure paths) — those paths never reach VERIFIED or
// FIXED, so "unverified" is always the correct synthesized value.
func obligationResultsFor(result Result) []model.ObligationResult {
	if len(result.ObligationResults) > 0 {
		return result.ObligationResults
	}
	results := make([]model.ObligationResult, 0, len(result.Obligations))
	for _, ob := range result.Obligations {
		results = append(results, model.ObligationResult{
			Obligation: ob,
			Verified:   false,
			Engine:     string(result.Engine),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Obligation.ID < results[j].Obligation.ID })
	return results
}
