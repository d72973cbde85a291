// Package discovery implements Invariant Discovery (spec §4.2): the
// deterministic Obligation Policy plus an optional LLM proposer that
// surfaces AssumedInput candidates for properties the policy can't see
// from syntax alone (an upstream validator, a DB constraint). The LLM
// proposer is best-effort — a malformed or absent response degrades to
// zero assumptions, never an error, since assumptions only ever narrow
// what must be proven, and the Assumption Evidence Validator is the
// real gatekeeper on whether any of them count.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/argusverify/argus/internal/evidence"
	"github.com/argusverify/argus/internal/llmclient"
	"github.com/argusverify/argus/internal/model"
	"github.com/argusverify/argus/internal/policy"
)

// Result is everything Invariant Discovery produces for one file: the
// policy's obligations and unsupported constructs, the LLM's proposed
// assumptions, and whether those assumptions passed evidence
// validation.
type Result struct {
	Obligations           []model.Obligation
	UnsupportedConstructs []string
	CanonicalHash         string
	AssumedInputs         []model.AssumedInput
	AssumptionsValid      bool
	AssumptionIssues      []evidence.Issue
}

const proposerPrompt = `You are reviewing a Python function for implicit preconditions a
deterministic static check cannot see: constraints enforced by an API
schema, a database constraint, a validator, or a runtime guard
elsewhere in the system.

Respond with a JSON array. Each element must have these string fields:
property, description, justification, source_type (one of
api_schema, db_constraint, validator, policy, runtime_guard),
source_ref, evidence_id. If you find no such preconditions, respond
with an empty array: []

Source code:
%s
`

// Discover runs the Obligation Policy over src and, when client is
// available, asks it to propose AssumedInputs. useLLM lets callers
// that must stay fully deterministic force the proposer off even when
// a credential is configured.
func Discover(ctx context.Context, client llmclient.Client, useLLM bool, src []byte) (Result, error) {
	policyResult, err := policy.Derive(ctx, src)
	if err != nil {
		return Result{}, fmt.Errorf("discovery: %w", err)
	}

	result := Result{
		Obligations:           policyResult.Obligations,
		UnsupportedConstructs: policyResult.UnsupportedConstructs,
		CanonicalHash:         policyResult.CanonicalHash,
	}

	if useLLM && client != nil {
		assumptions, err := proposeAssumptions(ctx, client, src)
		if err == nil {
			result.AssumedInputs = assumptions
		}
	}

	valid, issues := evidence.Validate(result.AssumedInputs)
	result.AssumptionsValid = valid
	result.AssumptionIssues = issues

	return result, nil
}

func proposeAssumptions(ctx context.Context, client llmclient.Client, src []byte) ([]model.AssumedInput, error) {
	prompt := fmt.Sprintf(proposerPrompt, string(src))
	response, err := client.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseAssumptions(response), nil
}

// rawAssumption mirrors the JSON shape the proposer prompt asks for.
// Fields are read loosely (missing fields simply stay zero) rather
// than rejecting the whole response, since a partially-malformed
// proposal shouldn't cost every other candidate in it.
type rawAssumption struct {
	Property      string `json:"property"`
	Description   string `json:"description"`
	Justification string `json:"justification"`
	SourceType    string `json:"source_type"`
	SourceRef     string `json:"source_ref"`
	EvidenceID    string `json:"evidence_id"`
	Severity      string `json:"severity"`
}

// parseAssumptions extracts a JSON array from an LLM response that may
// be wrapped in a markdown code fence or preceded/followed by prose,
// coercing each element into an AssumedInput with the same field
// defaults the original proposer applies (source_type defaults to
// "policy", severity defaults to "medium"). Any parse failure yields
// no assumptions rather than an error, keeping the proposer purely
// additive.
func parseAssumptions(response string) []model.AssumedInput {
	jsonText := extractJSONArray(response)
	if jsonText == "" {
		return nil
	}

	var raw []rawAssumption
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return nil
	}

	assumptions := make([]model.AssumedInput, 0, len(raw))
	for _, r := range raw {
		sourceType := model.AssumedInputSourceType(r.SourceType)
		if sourceType == "" {
			sourceType = model.SourceTypePolicy
		}
		assumptions = append(assumptions, model.AssumedInput{
			Property:      r.Property,
			Description:   r.Description,
			Justification: r.Justification,
			SourceType:    sourceType,
			SourceRef:     r.SourceRef,
			EvidenceID:    r.EvidenceID,
			Severity:      model.ParseSeverity(r.Severity),
		})
	}
	return assumptions
}

// extractJSONArray strips a leading/trailing ```json or ``` fence and,
// failing that, falls back to the substring between the first '[' and
// the last ']' — mirroring the original proposer's tolerant
// extraction of a JSON array from free-form model output.
func extractJSONArray(response string) string {
	text := strings.TrimSpace(response)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		return text
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}
