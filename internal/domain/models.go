// Package domain defines the records that flow through an award run
// (check-ins, the eligibility window, award outcomes) together with the
// persistence models mapped by GORM for linked accounts and the award
// audit log.
package domain

import (
	"time"
)

// Coordinates is a venue position in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// CheckinRecord is a single check-in as decoded from the check-in service.
// Records are never mutated once fetched.
//
// Fields:
//   - ID: check-in identifier as reported upstream.
//   - CreatedAt: check-in time (zero when the upstream value was unparsable).
//   - Venue: venue position; nil when the check-in carries no location.
//   - VenueName: display name of the venue, when present.
//   - SubjectID: identifier of the checked-in item (the beer id).
//   - SubjectName: display name of the item, used only for logging.
type CheckinRecord struct {
	ID          string       `json:"id"`
	CreatedAt   time.Time    `json:"created_at"`
	Venue       *Coordinates `json:"venue,omitempty"`
	VenueName   string       `json:"venue_name,omitempty"`
	SubjectID   string       `json:"subject_id"`
	SubjectName string       `json:"subject_name,omitempty"`
}

// EligibilityWindow combines the time range, the geofence and the number of
// distinct subjects a user needs to qualify for the badge. It is constant
// for a single run.
//
// The time range is exclusive at both ends; the geofence is inclusive.
type EligibilityWindow struct {
	Start         time.Time `json:"start"         yaml:"start"`
	End           time.Time `json:"end"           yaml:"end"`
	MinLatitude   float64   `json:"min_latitude"  yaml:"min_latitude"`
	MaxLatitude   float64   `json:"max_latitude"  yaml:"max_latitude"`
	MinLongitude  float64   `json:"min_longitude" yaml:"min_longitude"`
	MaxLongitude  float64   `json:"max_longitude" yaml:"max_longitude"`
	RequiredCount int       `json:"required_count" yaml:"required_count"`
}

// InTime reports whether t lies strictly between Start and End.
func (w EligibilityWindow) InTime(t time.Time) bool {
	return w.Start.Before(t) && t.Before(w.End)
}

// Contains reports whether c lies inside the geofence, bounds included.
func (w EligibilityWindow) Contains(c Coordinates) bool {
	return w.MinLatitude <= c.Latitude && c.Latitude <= w.MaxLatitude &&
		w.MinLongitude <= c.Longitude && c.Longitude <= w.MaxLongitude
}

// Satisfied reports whether n distinct subjects reach the required count.
func (w EligibilityWindow) Satisfied(n int) bool {
	return n >= w.RequiredCount
}

// Outcome classifies the result of a single award request.
type Outcome string

const (
	OutcomeAwarded        Outcome = "awarded"
	OutcomeAlreadyAwarded Outcome = "already_awarded"
	OutcomeFailed         Outcome = "failed"
)

// AwardResult is the outcome of awarding the badge to one recipient.
// Reason is only set for OutcomeFailed.
type AwardResult struct {
	Identity string  `json:"identity"`
	Outcome  Outcome `json:"outcome"`
	Reason   string  `json:"reason,omitempty"`
}
