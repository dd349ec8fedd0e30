package store

import (
	"encoding/json"
	"fmt"

	"github.com/finsight/fairsplit/internal/canonical"
	"github.com/finsight/fairsplit/internal/ledger"
)

// marshalShares serializes a share map to canonical JSON so that identical
// maps always produce identical stored bytes. Contributions (no shares)
// serialize to the empty string.
func marshalShares(shares map[ledger.ParticipantID]int64) (string, error) {
	if len(shares) == 0 {
		return "", nil
	}
	m := make(map[string]int64, len(shares))
	for id, s := range shares {
		m[string(id)] = s
	}
	b, err := canonical.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal shares: %w", err)
	}
	return string(b), nil
}

// unmarshalShares parses a stored share column back into a share map.
func unmarshalShares(raw string) (map[ledger.ParticipantID]int64, error) {
	if raw == "" {
		return nil, nil
	}
	var m map[string]int64
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("unmarshal shares: %w", err)
	}
	shares := make(map[ledger.ParticipantID]int64, len(m))
	for id, s := range m {
		shares[ledger.ParticipantID(id)] = s
	}
	return shares, nil
}
