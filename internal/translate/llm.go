package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/argusverify/argus/internal/llmclient"
	"github.com/argusverify/argus/internal/model"
)

// fallbackPrompt is used verbatim when no prompt template file is
// configured, matching the donor's own fallback text for an unreadable
// PROMPT_PATH.
const fallbackPrompt = `Translate the following Python function into a Lean 4 theorem file.
Preserve every obligation listed below as a commented OBLIGATION line
attached to a theorem stub, and record every assumed input as an
ASSUMED INPUT comment. Do not invent obligations that are not listed.

Python source:
%s

Obligations:
%s

Assumed inputs:
%s
`

// LLMTranslator is the last-resort translator for the Lean engine,
// reached only once the deterministic AST translator has already
// failed (spec §4.4). It always reports UsedLLM=true, regardless of
// whether the call succeeds.
type LLMTranslator struct {
	client llmclient.Client
	prompt string
}

// NewLLMTranslator builds an LLMTranslator. An empty promptTemplate
// falls back to fallbackPrompt.
func NewLLMTranslator(client llmclient.Client, promptTemplate string) *LLMTranslator {
	if promptTemplate == "" {
		promptTemplate = fallbackPrompt
	}
	return &LLMTranslator{client: client, prompt: promptTemplate}
}

// Translate implements the translate.Translator interface.
func (t *LLMTranslator) Translate(ctx context.Context, src []byte, obligations []model.Obligation, assumptions []model.AssumedInput) model.TranslationOutcome {
	fail := func(err string) model.TranslationOutcome {
		return model.TranslationOutcome{Success: false, Language: model.LanguageLean, Translator: model.TranslatorLLM, UsedLLM: true, Error: err}
	}

	if t.client == nil {
		return fail("no LLM client configured")
	}

	prompt := fmt.Sprintf(t.prompt, string(src), describeObligations(obligations), describeAssumptions(assumptions))
	text, err := t.client.Generate(ctx, prompt)
	if err != nil {
		return fail(fmt.Sprintf("llm generation failed: %v", err))
	}
	if strings.TrimSpace(text) == "" {
		return fail("llm returned an empty translation")
	}

	return model.TranslationOutcome{
		Success:    true,
		Language:   model.LanguageLean,
		Code:       text,
		Translator: model.TranslatorLLM,
		UsedLLM:    true,
	}
}

func describeObligations(obligations []model.Obligation) string {
	if len(obligations) == 0 {
		return "(none)"
	}
	var lines []string
	for _, o := range obligations {
		lines = append(lines, fmt.Sprintf("- %s: %s", o.ID, o.Property))
	}
	return strings.Join(lines, "\n")
}

func describeAssumptions(assumptions []model.AssumedInput) string {
	if len(assumptions) == 0 {
		return "(none)"
	}
	var lines []string
	for _, a := range assumptions {
		lines = append(lines, fmt.Sprintf("- %s", a.Property))
	}
	return strings.Join(lines, "\n")
}
