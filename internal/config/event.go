package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EventProfile describes one badge campaign: the venue geofence, the time
// range, the number of distinct beers, the badge to award and the users to
// check. Profiles let the same binary run against a test venue before the
// real event.
//
//	name: mozlando
//	badge_id: 61615
//	description: Beers and Ears
//	window:
//	  start: 2015-12-07T00:00:00Z
//	  end: 2015-12-11T23:59:59.999999Z
//	  min_latitude: 28.367444
//	  max_latitude: 28.375647
//	  min_longitude: -81.553245
//	  max_longitude: -81.545134
//	  required_count: 12
//	users:
//	  - username: groovecoder
//	    email: groovecoder@example.com
type EventProfile struct {
	Name        string      `yaml:"name"`
	BadgeID     int         `yaml:"badge_id"`
	Description string      `yaml:"description"`
	Window      eventWindow `yaml:"window"`
	Users       []UserEntry `yaml:"users"`
}

// eventWindow mirrors domain.EligibilityWindow with string timestamps so
// that quoted and unquoted YAML values parse the same way.
type eventWindow struct {
	Start         string   `yaml:"start"`
	End           string   `yaml:"end"`
	MinLatitude   *float64 `yaml:"min_latitude"`
	MaxLatitude   *float64 `yaml:"max_latitude"`
	MinLongitude  *float64 `yaml:"min_longitude"`
	MaxLongitude  *float64 `yaml:"max_longitude"`
	RequiredCount int      `yaml:"required_count"`

	start, end time.Time
}

// LoadEvent reads and parses a YAML event profile.
func LoadEvent(path string) (EventProfile, error) {
	var ev EventProfile
	raw, err := os.ReadFile(path)
	if err != nil {
		return ev, fmt.Errorf("read event profile: %w", err)
	}
	if err := yaml.Unmarshal(raw, &ev); err != nil {
		return ev, fmt.Errorf("parse event profile %s: %w", path, err)
	}
	if ev.Window.start, err = parseEventTime(ev.Window.Start); err != nil {
		return ev, fmt.Errorf("event profile %s: window.start: %w", path, err)
	}
	if ev.Window.end, err = parseEventTime(ev.Window.End); err != nil {
		return ev, fmt.Errorf("event profile %s: window.end: %w", path, err)
	}
	return ev, nil
}

func parseEventTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// ApplyEvent overrides the run settings with every field the profile sets.
// Users from the profile are appended to the configured users.
func (cfg *Config) ApplyEvent(ev EventProfile) {
	if ev.BadgeID > 0 {
		cfg.Credly.BadgeID = ev.BadgeID
	}
	if ev.Description != "" {
		cfg.Credly.Description = ev.Description
	}
	w := ev.Window
	if !w.start.IsZero() {
		cfg.Window.Start = w.start
	}
	if !w.end.IsZero() {
		cfg.Window.End = w.end
	}
	if w.MinLatitude != nil {
		cfg.Window.MinLatitude = *w.MinLatitude
	}
	if w.MaxLatitude != nil {
		cfg.Window.MaxLatitude = *w.MaxLatitude
	}
	if w.MinLongitude != nil {
		cfg.Window.MinLongitude = *w.MinLongitude
	}
	if w.MaxLongitude != nil {
		cfg.Window.MaxLongitude = *w.MaxLongitude
	}
	if w.RequiredCount > 0 {
		cfg.Window.RequiredCount = w.RequiredCount
	}
	for _, u := range ev.Users {
		if strings.TrimSpace(u.Username) == "" {
			continue
		}
		cfg.Users = append(cfg.Users, UserEntry{
			Username: strings.TrimSpace(u.Username),
			Email:    strings.TrimSpace(u.Email),
		})
	}
}
