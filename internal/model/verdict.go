package model

// Verdict is the single terminal classification assigned to a file.
// These five values are the only legal outcomes; no stage may leak an
// "in-progress" state out of the pipeline.
type Verdict string

const (
	VerdictVerified   Verdict = "VERIFIED"
	VerdictFixed      Verdict = "FIXED"
	VerdictVulnerable Verdict = "VULNERABLE"
	VerdictUnverified Verdict = "UNVERIFIED"
	VerdictError      Verdict = "ERROR"
)

// Passing reports whether v represents a file that cleared the gate
// (VERIFIED or FIXED). Exit-code computation (spec §6) and the CI
// integrity proof gate (spec §4.12) both reduce to this check.
func (v Verdict) Passing() bool {
	return v == VerdictVerified || v == VerdictFixed
}
