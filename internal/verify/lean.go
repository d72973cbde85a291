package verify

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/argusverify/argus/internal/model"
)

// LeanDriver runs a Lean 4 artifact through `lake env lean` (spec
// §4.7). Each call writes the artifact to a fresh, randomly named file
// inside ProjectDir, always removes it before returning, and honors a
// 60-second default timeout matching the original's `LeanVerifier`.
type LeanDriver struct {
	// ProjectDir is the Lake project the scratch file is written into.
	// Defaults to os.TempDir() when empty.
	ProjectDir string
	// Timeout bounds the `lake env lean` subprocess. Defaults to 60s.
	Timeout time.Duration
	// RequireDocker gates verification on being inside a container
	// unless ARGUS_ALLOW_LOCAL_VERIFY=true overrides it (spec §4.7
	// point 1).
	RequireDocker bool
}

// NewLeanDriver builds a LeanDriver with the spec's defaults.
func NewLeanDriver(projectDir string, requireDocker bool) *LeanDriver {
	return &LeanDriver{ProjectDir: projectDir, Timeout: 60 * time.Second, RequireDocker: requireDocker}
}

// Verify implements the Driver interface.
func (d *LeanDriver) Verify(ctx context.Context, artifact string, obligations []model.Obligation) model.VerificationOutcome {
	if d.RequireDocker && !runningInContainer() && !allowLocalVerify() {
		const msg = "Docker-only verification is enabled (set ARGUS_ALLOW_LOCAL_VERIFY=true to override)"
		return model.VerificationOutcome{
			Engine:            model.EngineLean,
			ObligationResults: allFailed(obligations, model.EngineLean, msg),
			VerificationError: true,
			ErrorMessage:      msg,
		}
	}

	dir := d.ProjectDir
	if dir == "" {
		dir = os.TempDir()
	}
	timeout := d.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	path, err := writeScratchFile(dir, ".lean", artifact)
	if err != nil {
		return model.VerificationOutcome{
			Engine:            model.EngineLean,
			ObligationResults: allFailed(obligations, model.EngineLean, err.Error()),
			VerificationError: true,
			ErrorMessage:      err.Error(),
		}
	}
	defer os.Remove(path)

	output, exitCode, timedOut, err := runSubprocess(ctx, dir, timeout, "lake", "env", "lean", filenameOf(path))
	if timedOut {
		return model.VerificationOutcome{
			Engine:            model.EngineLean,
			ObligationResults: allFailed(obligations, model.EngineLean, ErrVerifierTimeout.Error()),
			VerificationError: true,
			ErrorMessage:      ErrVerifierTimeout.Error(),
		}
	}
	if err != nil {
		return model.VerificationOutcome{
			Engine:            model.EngineLean,
			ObligationResults: allFailed(obligations, model.EngineLean, err.Error()),
			VerificationError: true,
			ErrorMessage:      err.Error(),
		}
	}

	verified := exitCode == 0 && !strings.Contains(artifact, "sorry")
	message := ""
	if !verified {
		message = truncate(output, 400)
	}

	results := make([]model.ObligationResult, len(obligations))
	for i, o := range obligations {
		results[i] = model.ObligationResult{Obligation: o, Verified: verified, Engine: string(model.EngineLean), Message: message}
	}

	return model.VerificationOutcome{
		Engine:            model.EngineLean,
		ObligationResults: results,
		RawOutput:         output,
		VerificationError: false,
		ErrorMessage:      message,
	}
}

func allFailed(obligations []model.Obligation, engine model.Engine, message string) []model.ObligationResult {
	results := make([]model.ObligationResult, len(obligations))
	for i, o := range obligations {
		results[i] = model.ObligationResult{Obligation: o, Verified: false, Engine: string(engine), Message: message}
	}
	return results
}

func filenameOf(path string) string {
	idx := strings.LastIndexByte(path, os.PathSeparator)
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}
