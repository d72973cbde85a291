package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
)

// dockerenvExists mirrors the original's `Path("/.dockerenv").exists()`
// container check.
func dockerenvExists() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}

// allowLocalVerify mirrors `_allow_local`: ARGUS_ALLOW_LOCAL_VERIFY
// must be exactly "true" (case-insensitive), same as the original's
// `os.getenv(...).lower() == "true"`.
func allowLocalVerify() bool {
	return strings.EqualFold(os.Getenv("ARGUS_ALLOW_LOCAL_VERIFY"), "true")
}

// writeScratchFile writes content to dir/argus_<uuid><ext> and
// returns the full path. The caller must remove it.
func writeScratchFile(dir, ext, content string) (string, error) {
	name := fmt.Sprintf("argus_%s%s", uuid.New().String(), ext)
	path := dir + string(os.PathSeparator) + name
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("verify: write scratch file: %w", err)
	}
	return path, nil
}

// runSubprocess runs command/args with a timeout, capturing combined
// stdout+stderr the way the donor's lint runner captures a linter's
// output, and reports the exit code and whether the process timed
// out. A non-zero exit is not itself a Go error — the caller decides
// what a failing exit code means for the engine in question.
func runSubprocess(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) (output string, exitCode int, timedOut bool, err error) {
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	combined := strings.TrimSpace(stdout.String() + "\n" + stderr.String())

	if cmdCtx.Err() == context.DeadlineExceeded {
		return combined, -1, true, nil
	}
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return combined, exitErr.ExitCode(), false, nil
		}
		if errors.Is(runErr, exec.ErrNotFound) {
			return "", -1, false, ErrVerifierNotInstalled
		}
		return "", -1, false, fmt.Errorf("verify: run %s: %w", name, runErr)
	}
	return combined, 0, false, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
