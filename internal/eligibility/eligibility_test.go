package eligibility

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/checkin-badges/internal/domain"
)

var window = domain.EligibilityWindow{
	Start:         time.Date(2015, 12, 7, 0, 0, 0, 0, time.UTC),
	End:           time.Date(2015, 12, 11, 23, 59, 59, 999999000, time.UTC),
	MinLatitude:   28.367444,
	MaxLatitude:   28.375647,
	MinLongitude:  -81.553245,
	MaxLongitude:  -81.545134,
	RequiredCount: 12,
}

var inside = &domain.Coordinates{Latitude: 28.37, Longitude: -81.55}

func rec(id, subject string, at time.Time, venue *domain.Coordinates) domain.CheckinRecord {
	return domain.CheckinRecord{ID: id, SubjectID: subject, CreatedAt: at, Venue: venue}
}

func midWindow() time.Time { return time.Date(2015, 12, 9, 12, 0, 0, 0, time.UTC) }

func TestEvaluate_NoVenueExcluded(t *testing.T) {
	var buf bytes.Buffer
	lg := zerolog.New(&buf).Level(zerolog.InfoLevel)
	ctx := lg.WithContext(context.Background())

	recs := []domain.CheckinRecord{
		rec("1", "a", midWindow(), nil),
		rec("2", "b", midWindow(), nil),
	}
	if got := Evaluate(ctx, recs, window); len(got) != 0 {
		t.Fatalf("records without coordinates must be excluded, got %v", got)
	}
	if n := strings.Count(buf.String(), "checkin had no location"); n != 2 {
		t.Fatalf("expected 2 no-location lines at info, got %d:\n%s", n, buf.String())
	}
}

func TestEvaluate_DedupBySubject(t *testing.T) {
	recs := []domain.CheckinRecord{
		rec("1", "a", midWindow(), inside),
		rec("2", "a", midWindow().Add(time.Hour), inside),
		rec("3", "b", midWindow(), inside),
		rec("4", "a", midWindow().Add(2*time.Hour), inside),
	}
	got := Evaluate(context.Background(), recs, window)
	if fmt.Sprint(got) != "[a b]" {
		t.Fatalf("Evaluate = %v; want [a b]", got)
	}
}

func TestEvaluate_TimeBoundsExclusive(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want int
	}{
		{"at start", window.Start, 0},
		{"at end", window.End, 0},
		{"just after start", window.Start.Add(time.Nanosecond), 1},
		{"just before end", window.End.Add(-time.Nanosecond), 1},
		{"before", window.Start.Add(-time.Hour), 0},
		{"after", window.End.Add(time.Hour), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(context.Background(), []domain.CheckinRecord{rec("1", "a", tc.at, inside)}, window)
			if len(got) != tc.want {
				t.Fatalf("got %d qualifying; want %d", len(got), tc.want)
			}
		})
	}
}

func TestEvaluate_GeofenceInclusive(t *testing.T) {
	cases := []struct {
		name string
		c    domain.Coordinates
		want int
	}{
		{"min corner", domain.Coordinates{Latitude: window.MinLatitude, Longitude: window.MinLongitude}, 1},
		{"max corner", domain.Coordinates{Latitude: window.MaxLatitude, Longitude: window.MaxLongitude}, 1},
		{"lat below", domain.Coordinates{Latitude: window.MinLatitude - 0.0001, Longitude: -81.55}, 0},
		{"lat above", domain.Coordinates{Latitude: window.MaxLatitude + 0.0001, Longitude: -81.55}, 0},
		{"lng west", domain.Coordinates{Latitude: 28.37, Longitude: window.MinLongitude - 0.0001}, 0},
		{"lng east", domain.Coordinates{Latitude: 28.37, Longitude: window.MaxLongitude + 0.0001}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.c
			got := Evaluate(context.Background(), []domain.CheckinRecord{rec("1", "a", midWindow(), &c)}, window)
			if len(got) != tc.want {
				t.Fatalf("got %d qualifying; want %d", len(got), tc.want)
			}
		})
	}
}

func TestEvaluate_MalformedSkippedAndLogged(t *testing.T) {
	var buf bytes.Buffer
	lg := zerolog.New(&buf)
	ctx := lg.WithContext(context.Background())

	recs := []domain.CheckinRecord{
		rec("1", "", midWindow(), inside),
		rec("2", "a", time.Time{}, inside),
		rec("3", "b", midWindow(), inside),
	}
	got := Evaluate(ctx, recs, window)
	if fmt.Sprint(got) != "[b]" {
		t.Fatalf("Evaluate = %v; want [b]", got)
	}
	if n := strings.Count(buf.String(), "skipping checkin"); n != 2 {
		t.Fatalf("expected 2 skip log lines, got %d:\n%s", n, buf.String())
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(rec("1", "a", midWindow(), nil)); err != nil {
		t.Fatalf("valid record: %v", err)
	}
	if err := Validate(rec("1", " ", midWindow(), nil)); !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("blank subject: %v", err)
	}
	if err := Validate(rec("1", "a", time.Time{}, nil)); !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("zero time: %v", err)
	}
}

func distinct(n int) []domain.CheckinRecord {
	out := make([]domain.CheckinRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, rec(fmt.Sprint(i), fmt.Sprintf("beer-%d", i), midWindow(), inside))
	}
	return out
}

func TestQualifies_Threshold(t *testing.T) {
	ok, subjects := Qualifies(context.Background(), distinct(12), window)
	if !ok || len(subjects) != 12 {
		t.Fatalf("12 distinct subjects should qualify: ok=%v n=%d", ok, len(subjects))
	}
	ok, subjects = Qualifies(context.Background(), distinct(11), window)
	if ok || len(subjects) != 11 {
		t.Fatalf("11 distinct subjects should not qualify: ok=%v n=%d", ok, len(subjects))
	}

	// Twelve check-ins of the same beer count once.
	same := distinct(12)
	for i := range same {
		same[i].SubjectID = "beer-0"
	}
	if ok, _ := Qualifies(context.Background(), same, window); ok {
		t.Fatalf("duplicates must not reach the threshold")
	}
}
