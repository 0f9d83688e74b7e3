package violations

import (
	"fmt"
	"time"

	"github.com/JaimeStill/sentinel/internal/detection"
)

// Build maps an active detection set to an unsaved record. Labels keep the
// order of active; an empty set is refused with ErrNothingToRecord.
func Build(active []detection.Candidate, now time.Time, site Site) (Record, error) {
	if len(active) == 0 {
		return Record{}, ErrNothingToRecord
	}

	types := make([]string, len(active))
	for i, c := range active {
		types[i] = c.Label
	}

	return Record{
		ViolationTypes:   types,
		CaptureTimeLocal: now,
		Location:         site.Location,
		GPS:              site.GPS,
		EvidenceURL:      EvidenceURL(len(types)),
	}, nil
}

// EvidenceURL returns the placeholder media reference for a record with
// count violations.
func EvidenceURL(count int) string {
	return fmt.Sprintf("https://placehold.co/640x360/1e293b/f8fafc?text=Evidence+%d+Violations", count)
}
