package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/finsight/fairsplit/internal/canonical"
)

// Domain prefixes for content hashing. The version suffix leaves room for
// algorithm migration without ambiguity between old and new digests.
const (
	domainEvent = "fairsplit/event/v1"
	domainLog   = "fairsplit/log/v1"
)

// hashWithDomain computes SHA-256 over domain || 0x00 || data. The null
// separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// eventObject is the canonical encoding of an event for hashing. Shares
// map to string keys and the timestamp to RFC 3339 UTC, so the same event
// always yields the same bytes regardless of in-memory representation.
func eventObject(ev Event) map[string]any {
	shares := make(map[string]int64, len(ev.Shares))
	for id, s := range ev.Shares {
		shares[string(id)] = s
	}
	return map[string]any{
		"room_id": ev.RoomID,
		"seq":     ev.Seq,
		"kind":    string(ev.Kind),
		"actor":   string(ev.Actor),
		"amount":  ev.Amount,
		"policy":  string(ev.Policy),
		"shares":  shares,
		"note":    ev.Note,
		"at":      ev.At.UTC().Format(time.RFC3339Nano),
	}
}

// EventHash returns the content hash of a single event.
func EventHash(ev Event) (string, error) {
	data, err := canonical.Marshal(eventObject(ev))
	if err != nil {
		return "", fmt.Errorf("hash event seq %d: %w", ev.Seq, err)
	}
	return hashWithDomain(domainEvent, data), nil
}

// LogDigest returns the content hash of a whole event log.
//
// Two logs share a digest exactly when they contain the same events in the
// same order, so replay verification can compare digests instead of full
// logs. The empty log has a well-defined digest.
func LogDigest(events []Event) (string, error) {
	objs := make([]any, len(events))
	for i, ev := range events {
		objs[i] = eventObject(ev)
	}
	data, err := canonical.Marshal(objs)
	if err != nil {
		return "", fmt.Errorf("digest log: %w", err)
	}
	return hashWithDomain(domainLog, data), nil
}
