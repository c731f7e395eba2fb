// Package eligibility decides which check-ins count toward the badge.
//
// A record counts when it was made strictly inside the time range, at a
// venue inside the geofence (bounds included), for a subject that has not
// already counted for the same user. Records without venue coordinates and
// malformed records are skipped and logged; they never abort an evaluation.
package eligibility

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tbourn/checkin-badges/internal/domain"
)

// ErrMalformedRecord marks a record that is missing a field the filter needs.
var ErrMalformedRecord = errors.New("malformed checkin record")

// Validate reports whether rec carries a timestamp and a subject.
func Validate(rec domain.CheckinRecord) error {
	switch {
	case rec.CreatedAt.IsZero():
		return fmt.Errorf("%w: checkin %s has no timestamp", ErrMalformedRecord, rec.ID)
	case strings.TrimSpace(rec.SubjectID) == "":
		return fmt.Errorf("%w: checkin %s has no subject", ErrMalformedRecord, rec.ID)
	}
	return nil
}

// Evaluate returns the distinct subject IDs of the qualifying records in
// first-seen order. The caller compares the count against
// window.RequiredCount via window.Satisfied.
func Evaluate(ctx context.Context, records []domain.CheckinRecord, window domain.EligibilityWindow) []string {
	lg := zerolog.Ctx(ctx)

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, rec := range records {
		if rec.Venue == nil {
			lg.Info().Str("checkin", rec.ID).Str("subject", rec.SubjectName).Msg("checkin had no location")
			continue
		}
		if err := Validate(rec); err != nil {
			lg.Warn().Err(err).Msg("skipping checkin")
			continue
		}
		if !window.InTime(rec.CreatedAt) {
			continue
		}
		if !window.Contains(*rec.Venue) {
			continue
		}
		if _, dup := seen[rec.SubjectID]; dup {
			continue
		}
		seen[rec.SubjectID] = struct{}{}
		out = append(out, rec.SubjectID)
		lg.Debug().
			Str("checkin", rec.ID).
			Str("subject", rec.SubjectID).
			Time("created_at", rec.CreatedAt).
			Float64("lat", rec.Venue.Latitude).
			Float64("lng", rec.Venue.Longitude).
			Msg("matching checkin")
	}
	return out
}

// Qualifies evaluates records and reports whether the user reaches the
// required count, together with the qualifying subjects.
func Qualifies(ctx context.Context, records []domain.CheckinRecord, window domain.EligibilityWindow) (bool, []string) {
	subjects := Evaluate(ctx, records, window)
	return window.Satisfied(len(subjects)), subjects
}
