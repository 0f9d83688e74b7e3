package violations

import (
	"net/url"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JaimeStill/sentinel/pkg/query"
	"github.com/JaimeStill/sentinel/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "violations", "v").
	Project("id", "ID").
	Project("app_id", "AppID").
	Project("violation_types", "ViolationTypes").
	Project("capture_time_local", "CaptureTimeLocal").
	Project("timestamp", "Timestamp").
	Project("location", "Location").
	Project("gps_lat", "Lat").
	Project("gps_lon", "Lon").
	Project("evidence_url", "EvidenceURL").
	Project("recorded_by_user_id", "RecordedByUserID").
	Project("status", "Status").
	Project("reviewed_by", "ReviewedBy").
	Project("reviewed_at", "ReviewedAt")

// ID breaks ties between records that share a server timestamp.
var defaultSort = []query.SortField{
	{Field: "Timestamp", Descending: true},
	{Field: "ID", Descending: true},
}

// pgtype.Map memoizes scan plans and is not safe for concurrent use.
var typeMaps = sync.Pool{
	New: func() any { return pgtype.NewMap() },
}

// Filters contains optional criteria for violation queries. Nil fields are
// ignored. Type matches records containing that violation label. From and To
// bound the server timestamp as [From, To).
type Filters struct {
	Status     *string    `json:"status,omitempty"`
	Type       *string    `json:"type,omitempty"`
	Location   *string    `json:"location,omitempty"`
	RecordedBy *string    `json:"recorded_by,omitempty"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereAny("ViolationTypes", f.Type).
		WhereContains("Location", f.Location).
		WhereEquals("RecordedByUserID", f.RecordedBy).
		WhereRange("Timestamp", f.From, f.To)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Malformed from/to values are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if t := values.Get("type"); t != "" {
		f.Type = &t
	}

	if l := values.Get("location"); l != "" {
		f.Location = &l
	}

	if rb := values.Get("recorded_by"); rb != "" {
		f.RecordedBy = &rb
	}

	if v := values.Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.From = &t
		}
	}

	if v := values.Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.To = &t
		}
	}

	return f
}

func scanRecord(s repository.Scanner) (Record, error) {
	m := typeMaps.Get().(*pgtype.Map)
	defer typeMaps.Put(m)

	var r Record
	err := s.Scan(
		&r.ID,
		&r.AppID,
		m.SQLScanner(&r.ViolationTypes),
		&r.CaptureTimeLocal,
		&r.Timestamp,
		&r.Location,
		&r.GPS.Lat,
		&r.GPS.Lon,
		&r.EvidenceURL,
		&r.RecordedByUserID,
		&r.Status,
		&r.ReviewedBy,
		&r.ReviewedAt,
	)
	return r, err
}
