// Package repair implements the Repair Engine (spec §4.8): an LLM
// loop that proposes a fixed Python source when verification reports
// VULNERABLE, tried a bounded number of times with each failed
// attempt's error folded into the next prompt's context.
package repair

import (
	"context"
	"fmt"
	"strings"

	"github.com/argusverify/argus/internal/llmclient"
	"github.com/argusverify/argus/internal/model"
)

const fallbackPrompt = "Fix the Python code so all obligations are satisfied. Return code only."

// Attempt records the outcome of one repair try.
type Attempt struct {
	Attempt   int    `json:"attempt"`
	FixedCode string `json:"fixed_code"`
	Success   bool   `json:"success"`
	Error     string `json:"error"`
}

// Result is the Repair Engine's final answer for one repair loop.
type Result struct {
	Attempts  []Attempt `json:"attempts"`
	FixedCode string    `json:"fixed_code"`
	Success   bool      `json:"success"`
}

// Engine proposes fixes via an llmclient.Client, trying up to
// MaxAttempts times before giving up (spec §4.8, default 3).
type Engine struct {
	client      llmclient.Client
	model       string
	maxAttempts int
	prompt      string
}

// New builds a repair Engine. An empty promptTemplate falls back to
// fallbackPrompt, matching the original's behavior when its prompt
// file is missing.
func New(client llmclient.Client, model string, maxAttempts int, promptTemplate string) *Engine {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if promptTemplate == "" {
		promptTemplate = fallbackPrompt
	}
	return &Engine{client: client, model: model, maxAttempts: maxAttempts, prompt: promptTemplate}
}

// Repair runs the bounded retry loop. Each failed attempt's error is
// appended to the next attempt's error context, exactly as the
// original accumulates "Previous attempt failed: {err}" onto the
// running context string — later attempts see every prior failure,
// not just the first.
func (e *Engine) Repair(ctx context.Context, pythonSrc string, errorMessage string, obligations []model.Obligation) Result {
	var attempts []Attempt
	currentContext := errorMessage

	for n := 1; n <= e.maxAttempts; n++ {
		fixed, err := e.generateFix(ctx, pythonSrc, currentContext, obligations)
		ok := fixed != "" && err == ""
		attempts = append(attempts, Attempt{Attempt: n, FixedCode: fixed, Success: ok, Error: err})
		if ok {
			return Result{Attempts: attempts, FixedCode: fixed, Success: true}
		}
		currentContext = fmt.Sprintf("%s\nPrevious attempt failed: %s", currentContext, err)
	}

	return Result{Attempts: attempts, Success: false}
}

func (e *Engine) generateFix(ctx context.Context, pythonSrc, errorMessage string, obligations []model.Obligation) (fixed string, errMsg string) {
	if e.client == nil {
		return "", "no LLM client configured"
	}

	contents := fmt.Sprintf(
		"%s\n\nObligations:\n%s\n\nVerification error:\n%s\n\nPython code:\n%s",
		e.prompt, obligationsList(obligations), errorMessage, pythonSrc,
	)

	response, err := e.client.Generate(ctx, contents)
	if err != nil {
		return "", err.Error()
	}
	fixedCode := strings.TrimSpace(response)
	if fixedCode == "" {
		return "", "Gemini returned empty fix"
	}
	return fixedCode, ""
}

func obligationsList(obligations []model.Obligation) string {
	if len(obligations) == 0 {
		return "- none"
	}
	var lines []string
	for _, o := range obligations {
		lines = append(lines, "- "+o.Property)
	}
	return strings.Join(lines, "\n")
}
