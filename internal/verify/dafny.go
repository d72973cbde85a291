package verify

import (
	"context"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/argusverify/argus/internal/model"
)

var positiveErrorCount = regexp.MustCompile(`\b([1-9][0-9]*)\s+errors?\b`)

// DafnyDriver runs a Dafny artifact through `dafny verify` (spec
// §4.7). Scratch files are written to the system temp directory, as
// the original does, rather than a configurable project directory —
// Dafny has no equivalent to Lake's project-relative `env` wrapper.
type DafnyDriver struct {
	// Timeout bounds the `dafny verify` subprocess. Defaults to 120s.
	Timeout time.Duration
	// RequireDocker gates verification on being inside a container
	// unless ARGUS_ALLOW_LOCAL_VERIFY=true overrides it.
	RequireDocker bool
}

// NewDafnyDriver builds a DafnyDriver with the spec's defaults.
func NewDafnyDriver(requireDocker bool) *DafnyDriver {
	return &DafnyDriver{Timeout: 120 * time.Second, RequireDocker: requireDocker}
}

// Verify implements the Driver interface.
func (d *DafnyDriver) Verify(ctx context.Context, artifact string, obligations []model.Obligation) model.VerificationOutcome {
	if d.RequireDocker && !runningInContainer() && !allowLocalVerify() {
		const msg = "Docker-only verification is enabled (set ARGUS_ALLOW_LOCAL_VERIFY=true to override)"
		return model.VerificationOutcome{
			Engine:            model.EngineDafny,
			ObligationResults: allFailed(obligations, model.EngineDafny, msg),
			VerificationError: true,
			ErrorMessage:      msg,
		}
	}

	timeout := d.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	dir := os.TempDir()
	path, err := writeScratchFile(dir, ".dfy", artifact)
	if err != nil {
		return model.VerificationOutcome{
			Engine:            model.EngineDafny,
			ObligationResults: allFailed(obligations, model.EngineDafny, err.Error()),
			VerificationError: true,
			ErrorMessage:      err.Error(),
		}
	}
	defer os.Remove(path)

	output, exitCode, timedOut, err := runSubprocess(ctx, dir, timeout, "dafny", "verify", path)
	if timedOut {
		return model.VerificationOutcome{
			Engine:            model.EngineDafny,
			ObligationResults: allFailed(obligations, model.EngineDafny, ErrVerifierTimeout.Error()),
			VerificationError: true,
			ErrorMessage:      ErrVerifierTimeout.Error(),
		}
	}
	if err != nil {
		return model.VerificationOutcome{
			Engine:            model.EngineDafny,
			ObligationResults: allFailed(obligations, model.EngineDafny, err.Error()),
			VerificationError: true,
			ErrorMessage:      err.Error(),
		}
	}

	hasPositiveErrorCount := positiveErrorCount.MatchString(strings.ToLower(output))
	verified := exitCode == 0 && !hasPositiveErrorCount
	message := ""
	if !verified {
		message = truncate(output, 400)
	}

	results := make([]model.ObligationResult, len(obligations))
	for i, o := range obligations {
		results[i] = model.ObligationResult{Obligation: o, Verified: verified, Engine: string(model.EngineDafny), Message: message}
	}

	return model.VerificationOutcome{
		Engine:            model.EngineDafny,
		ObligationResults: results,
		RawOutput:         output,
		VerificationError: false,
		ErrorMessage:      message,
	}
}
