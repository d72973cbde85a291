// Command argus is the CLI entrypoint: audits one file or a whole
// repository's Python sources through the verification pipeline, then
// (in --mode ci) runs the CI Integrity Suite and optionally publishes
// a GitLab MR comment. Mirrors the original's adapters/cli.py flag
// surface and exit-code semantics (spec §6).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/argusverify/argus/internal/ciintegrity"
	"github.com/argusverify/argus/internal/config"
	"github.com/argusverify/argus/internal/credential"
	"github.com/argusverify/argus/internal/forge"
	"github.com/argusverify/argus/internal/ignorefile"
	"github.com/argusverify/argus/internal/llmclient"
	"github.com/argusverify/argus/internal/obslog"
	"github.com/argusverify/argus/internal/pipeline"
	"github.com/argusverify/argus/internal/repair"
	"github.com/argusverify/argus/internal/report"
	"github.com/argusverify/argus/internal/telemetry"
	"github.com/argusverify/argus/internal/translate"
	"github.com/argusverify/argus/internal/vcs"
	"github.com/argusverify/argus/internal/verify"
)

type cliFlags struct {
	file              string
	repoPath          string
	mode              string
	baseRef           string
	outputJSON        string
	outputMD          string
	outputSARIF       string
	outputGLSAST      string
	outputCIGates     string
	allowLocalVerify  bool
	skipGitLabPublish bool
	metricsAddr       string
}

func main() {
	flags := &cliFlags{}
	root := &cobra.Command{
		Use:   "argus",
		Short: "Neuro-symbolic verification gate for Python code changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), flags)
		},
	}

	root.Flags().StringVar(&flags.file, "file", "", "single Python file to audit")
	root.Flags().StringVar(&flags.repoPath, "repo-path", ".", "repository path")
	root.Flags().StringVar(&flags.mode, "mode", "single", "run mode: single or ci")
	root.Flags().StringVar(&flags.baseRef, "base-ref", "", "base ref for changed-file detection in ci mode")
	root.Flags().StringVar(&flags.outputJSON, "output-json", "argus_report.json", "")
	root.Flags().StringVar(&flags.outputMD, "output-md", "Argus_Audit_Report.md", "")
	root.Flags().StringVar(&flags.outputSARIF, "output-sarif", "argus-sarif-report.json", "")
	root.Flags().StringVar(&flags.outputGLSAST, "output-gl-sast", "gl-sast-report.json", "")
	root.Flags().StringVar(&flags.outputCIGates, "output-ci-gates", "argus-ci-gates.json", "")
	root.Flags().BoolVar(&flags.allowLocalVerify, "allow-local-verify", false, "permit running verifiers outside a container")
	root.Flags().BoolVar(&flags.skipGitLabPublish, "skip-gitlab-publish", false, "never publish a GitLab MR comment, even if configured")
	root.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090) for the duration of the run")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, flags *cliFlags) error {
	repoRoot, err := filepath.Abs(flags.repoPath)
	if err != nil {
		return err
	}

	files, err := collectTargetFiles(ctx, flags, repoRoot)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println(`{"status": "no-python-files-found"}`)
		return nil
	}

	cfg := config.Load(
		config.WithRequireDockerVerify(!flags.allowLocalVerify),
		config.WithSkipGitLabPublish(flags.skipGitLabPublish),
	)

	shutdownTracing, err := telemetry.ConfigureTracing(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	orch, cache, metrics, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	if flags.metricsAddr != "" {
		stopMetrics := serveMetrics(flags.metricsAddr, metrics)
		defer stopMetrics()
	}

	reports := orch.RunMany(ctx, toFileInputs(files))

	now := time.Now().UTC().Format(time.RFC3339)
	jsonReport := report.RenderJSON(reports, now)
	if err := report.DumpJSON(flags.outputJSON, jsonReport); err != nil {
		return err
	}
	if err := os.WriteFile(flags.outputMD, []byte(report.RenderMarkdown(reports)), 0o644); err != nil {
		return err
	}
	if err := report.DumpJSON(flags.outputSARIF, report.RenderSARIF(reports)); err != nil {
		return err
	}
	if err := report.DumpJSON(flags.outputGLSAST, report.RenderGitLabSAST(reports, now, now)); err != nil {
		return err
	}

	var gatesPassed = true
	if flags.mode == "ci" {
		gatesPassed, err = runCIMode(ctx, flags, cfg, repoRoot, files, reports, orch.LastRunID())
		if err != nil {
			return err
		}
	}

	printSummary(jsonReport)

	hasBlockingVerdicts := jsonReport.Summary.Vulnerable > 0 || jsonReport.Summary.Unverified+jsonReport.Summary.Error > 0
	if hasBlockingVerdicts || !gatesPassed {
		os.Exit(1)
	}
	return nil
}

// runCIMode runs the CI Integrity Suite and, unless suppressed,
// publishes an MR comment. It returns whether every gate passed.
func runCIMode(ctx context.Context, flags *cliFlags, cfg config.Config, repoRoot string, files []fileEntry, reports []report.FileReport, runID string) (bool, error) {
	ciFiles := make([]ciintegrity.FileInput, len(files))
	for i, f := range files {
		ciFiles[i] = ciintegrity.FileInput{Filename: f.relPath, Code: f.code}
	}

	benchmarkRoot := cfg.BenchmarkRoot
	if benchmarkRoot == "" {
		benchmarkRoot = filepath.Join(repoRoot, "benchmarks", "seeded")
	}
	gateReport := ciintegrity.RunSuite(ctx, ciFiles, reports, ciintegrity.Options{
		TraceRoot:     cfg.TraceRoot,
		RunID:         runID,
		BenchmarkRoot: benchmarkRoot,
	})
	if err := report.DumpJSON(flags.outputCIGates, gateReport); err != nil {
		return false, err
	}

	if cfg.CanPublishToGitLab() {
		tokenSecret, err := credential.Guard(cfg.GitLabToken)
		if err != nil {
			return false, err
		}
		adapter := forge.New(cfg.GitLabServerURL, cfg.GitLabProjectID, cfg.GitLabMRIID, cfg.GitLabCommitSHA, tokenSecret)
		result := adapter.Publish(ctx, reports, false)
		fmt.Printf("{\"gitlab_publish\": %q}\n", result.Reason)
	} else {
		fmt.Printf("{\"gitlab_publish\": %q}\n", "GitLab adapter not configured; skipping MR publish")
	}

	fmt.Printf("{\"ci_integrity\": {\"passed\": %t, \"gates\": %d}}\n", gateReport.Passed, len(gateReport.Gates))
	return gateReport.Passed, nil
}

func printSummary(jsonReport report.JSONReport) {
	colorize := isatty.IsTerminal(os.Stdout.Fd())
	s := jsonReport.Summary
	line := fmt.Sprintf("total=%d verified=%d fixed=%d vulnerable=%d unverified=%d error=%d",
		s.Total, s.Verified, s.Fixed, s.Vulnerable, s.Unverified, s.Error)
	if colorize {
		line = summaryStyle(jsonReport).Render(line)
	}
	fmt.Println(line)
}

type fileEntry struct {
	relPath string
	code    string
}

func collectTargetFiles(ctx context.Context, flags *cliFlags, repoRoot string) ([]fileEntry, error) {
	if flags.file != "" {
		abs, err := filepath.Abs(flags.file)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(repoRoot, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			rel = filepath.Base(abs)
		}
		return []fileEntry{{relPath: filepath.ToSlash(rel), code: string(data)}}, nil
	}

	if flags.mode == "ci" {
		if changed := vcs.ChangedPythonFiles(ctx, repoRoot, flags.baseRef); len(changed) > 0 {
			var entries []fileEntry
			for _, rel := range changed {
				if strings.Contains(rel, "legacy") {
					continue
				}
				data, err := os.ReadFile(filepath.Join(repoRoot, rel))
				if err != nil {
					continue
				}
				entries = append(entries, fileEntry{relPath: rel, code: string(data)})
			}
			return entries, nil
		}
	}

	discovered, err := ignorefile.Discover(repoRoot, nil)
	if err != nil {
		return nil, err
	}
	entries := make([]fileEntry, 0, len(discovered))
	for _, rel := range discovered {
		data, err := os.ReadFile(filepath.Join(repoRoot, rel))
		if err != nil {
			continue
		}
		entries = append(entries, fileEntry{relPath: rel, code: string(data)})
	}
	return entries, nil
}

func toFileInputs(files []fileEntry) []pipeline.FileInput {
	inputs := make([]pipeline.FileInput, len(files))
	for i, f := range files {
		inputs[i] = pipeline.FileInput{Filename: f.relPath, Code: f.code}
	}
	return inputs
}

// buildOrchestrator wires every pipeline stage from the process
// environment, matching spec §6's configuration surface. The returned
// cache (possibly nil) is the caller's responsibility to close.
func buildOrchestrator(ctx context.Context, cfg config.Config) (*pipeline.Orchestrator, *verify.Cache, *telemetry.Metrics, error) {
	logger := obslog.New(obslog.Config{Service: "argus"})

	var geminiSecret *credential.Secret
	if cfg.GeminiAPIKey != "" {
		var err error
		geminiSecret, err = credential.Guard(cfg.GeminiAPIKey)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	llmClient, err := llmclient.New(ctx, geminiSecret, llmclient.WithModelID(cfg.Model))
	if err != nil {
		return nil, nil, nil, err
	}

	astTranslator := translate.NewASTTranslator()
	dafnyTranslator := translate.NewDafnyTranslator()
	llmTranslator := translate.NewLLMTranslator(llmClient, "")
	router := translate.NewRouter(astTranslator, dafnyTranslator, llmTranslator)

	leanDriver := verify.NewLeanDriver("", cfg.RequireDockerVerify)
	dafnyDriver := verify.NewDafnyDriver(cfg.RequireDockerVerify)
	verifyRouter := verify.NewRouter(leanDriver, dafnyDriver)

	var verifier pipeline.Verifier = verifyRouter
	cache, err := verify.OpenCache(filepath.Join(cfg.TraceRoot, "verify-cache"))
	if err == nil && cache != nil {
		verifier = verify.NewCachedRouter(verifyRouter, cache)
	}

	repairEngine := repair.New(llmClient, cfg.Model, cfg.MaxRepairAttempts, "")
	metrics := telemetry.NewMetrics()

	orch := pipeline.New(cfg, llmClient, router, verifier, repairEngine, logger, metrics)
	return orch, cache, metrics, nil
}

// serveMetrics exposes metrics.Registry on addr for the lifetime of the
// run. Intended for CI jobs that want to scrape a single invocation
// rather than run a long-lived service. The returned func shuts the
// listener down.
func serveMetrics(addr string, metrics *telemetry.Metrics) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "metrics listener: %v\n", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
