package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// CanonicalHash computes the cryptographic digest over the deterministic
// serialization of an obligation set (spec §4.1, GLOSSARY "Canonical
// hash"). Obligations are sorted by id, then serialized to a minimal
// JSON form with alphabetically sorted object keys and no incidental
// whitespace, mirroring the donor's policy of round-tripping through a
// plain map so encoding/json's key-sorting for map[string]interface{}
// does the canonicalization for us. The result is byte-identical across
// process invocations for the same input obligation set — this is a
// required testable property (spec §8).
func CanonicalHash(obligations []Obligation) (string, error) {
	sorted := make([]Obligation, len(obligations))
	copy(sorted, obligations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	payload := make([]map[string]interface{}, len(sorted))
	for i, o := range sorted {
		raw, err := json.Marshal(o)
		if err != nil {
			return "", err
		}
		var asMap map[string]interface{}
		if err := json.Unmarshal(raw, &asMap); err != nil {
			return "", err
		}
		payload[i] = asMap
	}

	canonical, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
