// Package verify implements the Verifier Router and its two
// subprocess-backed drivers (spec §4.6-4.7): Lean (via `lake env
// lean`) and Dafny (via `dafny verify`). Both drivers refuse to run
// outside a container unless explicitly overridden, write the
// artifact to a scratch file with a random name, and always remove
// that file before returning, even on timeout or panic recovery paths.
package verify

import (
	"context"
	"errors"

	"github.com/argusverify/argus/internal/model"
)

// ErrContainerRequired names the container-check failure (spec §4.7
// point 1: verification fails closed outside a container by default).
// The drivers do not return it: they report that case as a
// VerificationOutcome with VerificationError set and a "Docker-only
// verification is enabled" message.
var ErrContainerRequired = errors.New("verify: verifier must run inside a container unless ARGUS_ALLOW_LOCAL_VERIFY is set")

// ErrVerifierNotInstalled is returned when the configured verifier
// binary cannot be found.
var ErrVerifierNotInstalled = errors.New("verify: verifier binary not found")

// ErrVerifierTimeout is returned when a verifier subprocess exceeds
// its deadline.
var ErrVerifierTimeout = errors.New("verify: verifier exceeded its timeout")

// Driver runs one proof artifact through a single engine and reports
// whether every obligation it covers discharged.
type Driver interface {
	Verify(ctx context.Context, artifact string, obligations []model.Obligation) model.VerificationOutcome
}

// Router dispatches to the driver for an already-selected engine. It
// does not itself choose an engine — that decision was already made
// once by internal/engineselect and is threaded through the pipeline,
// never recomputed here even if verification fails.
type Router struct {
	lean  Driver
	dafny Driver
}

// NewRouter wires the two drivers.
func NewRouter(lean, dafny Driver) *Router {
	return &Router{lean: lean, dafny: dafny}
}

// Verify runs the artifact through the driver for engine.
func (r *Router) Verify(ctx context.Context, engine model.Engine, artifact string, obligations []model.Obligation) model.VerificationOutcome {
	if engine == model.EngineDafny {
		return r.dafny.Verify(ctx, artifact, obligations)
	}
	return r.lean.Verify(ctx, artifact, obligations)
}

// runningInContainer reports whether the process appears to be inside
// a container, mirroring the original's `/.dockerenv` presence check.
func runningInContainer() bool {
	return dockerenvExists()
}
