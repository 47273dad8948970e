package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/ShawnOwen/threadcal/internal/thread"
)

// fingerprintFields are the display-relevant attributes of a record. The raw
// deadline field is used rather than the resolved date, so calendar drift
// inside the resolver does not itself churn fingerprints.
type fingerprintFields struct {
	Name     string          `json:"name"`
	Priority thread.Priority `json:"priority"`
	Status   string          `json:"status"`
	Deadline string          `json:"deadline"`
	Labels   []string        `json:"labels"`
}

// Fingerprint reduces a record to a stable content hash. Two records that
// would render identical calendar content produce identical fingerprints,
// regardless of differences in unrelated fields.
func Fingerprint(rec *thread.Record) string {
	payload := fingerprintFields{
		Name:     rec.Name,
		Priority: rec.NormalizedPriority(),
		Status:   rec.Status,
		Deadline: rec.Deadline,
		Labels:   rec.SortedLabels(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		// Plain strings and slices always marshal; this is unreachable.
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
