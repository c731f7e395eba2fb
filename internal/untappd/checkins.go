package untappd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/checkin-badges/internal/domain"
)

// NamespaceActivity is the cache namespace of user activity feeds.
const NamespaceActivity = "activity"

type checkinsEnvelope struct {
	Response struct {
		Checkins *struct {
			Items []json.RawMessage `json:"items"`
		} `json:"checkins"`
	} `json:"response"`
}

type rawCheckin struct {
	CheckinID json.Number     `json:"checkin_id"`
	CreatedAt string          `json:"created_at"`
	Venue     json.RawMessage `json:"venue"`
	Beer      struct {
		BID      json.Number `json:"bid"`
		BeerName string      `json:"beer_name"`
	} `json:"beer"`
}

type rawVenue struct {
	VenueName string `json:"venue_name"`
	Location  *struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	} `json:"location"`
}

// UserCheckins returns the most recent check-ins of username, served from
// the activity cache when younger than maxAge. A response without a
// checkins section means the user has none and yields an empty slice.
func (c *Client) UserCheckins(ctx context.Context, username string, limit int, maxAge time.Duration) ([]domain.CheckinRecord, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.Fetch(ctx, "user/checkins/"+url.PathEscape(username), params, NamespaceActivity, maxAge)
	if err != nil {
		return nil, err
	}
	return DecodeCheckins(ctx, body)
}

// DecodeCheckins decodes a user/checkins response. Items that are not
// objects are skipped with a warning; fields that are missing or
// unparsable are left at their zero value for the eligibility filter to
// reject.
func DecodeCheckins(ctx context.Context, body []byte) ([]domain.CheckinRecord, error) {
	lg := zerolog.Ctx(ctx)

	var env checkinsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode checkins: %v", ErrFetch, err)
	}
	if env.Response.Checkins == nil {
		lg.Info().Msg("user has no checkins")
		return []domain.CheckinRecord{}, nil
	}

	out := make([]domain.CheckinRecord, 0, len(env.Response.Checkins.Items))
	for i, item := range env.Response.Checkins.Items {
		var rc rawCheckin
		if err := json.Unmarshal(item, &rc); err != nil {
			lg.Warn().Err(err).Int("index", i).Msg("skipping undecodable checkin")
			continue
		}
		rec := domain.CheckinRecord{
			ID:          rc.CheckinID.String(),
			SubjectID:   rc.Beer.BID.String(),
			SubjectName: rc.Beer.BeerName,
			CreatedAt:   parseCreatedAt(rc.CreatedAt),
		}
		rec.Venue, rec.VenueName = decodeVenue(rc.Venue)
		out = append(out, rec)
	}
	return out, nil
}

// decodeVenue accepts a venue object, an empty array (no venue) or null.
func decodeVenue(raw json.RawMessage) (*domain.Coordinates, string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, ""
	}
	var v rawVenue
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, ""
	}
	if v.Location == nil || v.Location.Lat == nil || v.Location.Lng == nil {
		return nil, v.VenueName
	}
	return &domain.Coordinates{Latitude: *v.Location.Lat, Longitude: *v.Location.Lng}, v.VenueName
}

// parseCreatedAt parses the RFC 1123 timestamps used by the API. An
// unparsable value yields the zero time.
func parseCreatedAt(s string) time.Time {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
