// Package services – AwardService
//
// This file implements the award run: a single linear pass that reads the
// check-ins of every target user, keeps the users that reach the required
// number of distinct qualifying subjects, authenticates once against the
// badge API and awards the badge to each qualifying email.
//
// Failure handling follows the run's error kinds:
//   - missing credentials abort before any network call (ErrConfigMissing)
//   - a failed check-in read skips that user only (ErrFetchFailure)
//   - a failed badge API login aborts the award phase (ErrAwardAuthFailure)
//   - a failed award request is recorded and the run continues
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/tbourn/checkin-badges/internal/config"
	"github.com/tbourn/checkin-badges/internal/credly"
	"github.com/tbourn/checkin-badges/internal/domain"
	"github.com/tbourn/checkin-badges/internal/eligibility"
	"github.com/tbourn/checkin-badges/internal/repo"
)

// CheckinSource reads a user's recent check-ins.
type CheckinSource interface {
	UserCheckins(ctx context.Context, username string, limit int, maxAge time.Duration) ([]domain.CheckinRecord, error)
}

// BadgeAwarder issues badges.
type BadgeAwarder interface {
	Authenticate(ctx context.Context, creds credly.Credentials) (string, error)
	Award(ctx context.Context, token, identity string, badge credly.Badge) domain.AwardResult
}

// AwardService runs the award pipeline.
type AwardService struct {
	// Config is the run configuration; it is not modified.
	Config *config.Config
	// Checkins reads check-ins, normally an *untappd.Client.
	Checkins CheckinSource
	// Awarder issues badges, normally a *credly.Client.
	Awarder BadgeAwarder
	// DB is optional. When set, linked accounts are evaluated (if enabled)
	// and every award outcome is written to the audit log.
	DB *gorm.DB
}

// NewAwardService wires an AwardService.
func NewAwardService(cfg *config.Config, src CheckinSource, aw BadgeAwarder, db *gorm.DB) *AwardService {
	return &AwardService{Config: cfg, Checkins: src, Awarder: aw, DB: db}
}

// RunOptions tunes a single run.
type RunOptions struct {
	// DryRun evaluates users but never contacts the badge API.
	DryRun bool
}

// Target is a user to evaluate.
type Target struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Source   string `json:"source"` // "config" or "account"
}

// UserReport is the evaluation of one target.
type UserReport struct {
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Checkins  int    `json:"checkins"`
	Subjects  int    `json:"subjects"`
	Qualified bool   `json:"qualified"`
	Error     string `json:"error,omitempty"`
}

// Report summarizes a run.
type Report struct {
	RunID      string                 `json:"run_id"`
	DryRun     bool                   `json:"dry_run"`
	Users      []UserReport           `json:"users"`
	Qualifying []string               `json:"qualifying"`
	Results    []domain.AwardResult   `json:"results"`
	Counts     map[domain.Outcome]int `json:"counts"`
}

// CheckCredentials reports ErrConfigMissing when the check-in API
// credentials are unset, or the badge API credentials are unset and dryRun
// is false.
func CheckCredentials(cfg *config.Config, dryRun bool) error {
	if !cfg.Untappd.Complete() {
		return fmt.Errorf("%w: UNTAPPD_CLIENT_ID and UNTAPPD_CLIENT_SECRET must be set", ErrConfigMissing)
	}
	if !dryRun && !cfg.Credly.Complete() {
		return fmt.Errorf("%w: CREDLY_API_KEY, CREDLY_API_SECRET, CREDLY_USERNAME and CREDLY_PASSWORD must be set for awarding badges", ErrConfigMissing)
	}
	return nil
}

// Run executes one award run. The returned Report is non-nil whenever the
// run got far enough to evaluate users, including when an error is
// returned.
func (s *AwardService) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	cfg := s.Config
	rep := &Report{
		RunID:      uuid.NewString(),
		DryRun:     opts.DryRun,
		Users:      []UserReport{},
		Qualifying: []string{},
		Results:    []domain.AwardResult{},
		Counts:     map[domain.Outcome]int{},
	}

	tr := otel.Tracer("services/AwardService")
	ctx, span := tr.Start(ctx, "Run",
		trace.WithAttributes(
			attribute.String("run.id", rep.RunID),
			attribute.Bool("run.dry_run", opts.DryRun),
		),
	)
	defer span.End()

	lg := zerolog.Ctx(ctx).With().Str("run_id", rep.RunID).Logger()
	ctx = lg.WithContext(ctx)

	if err := CheckCredentials(cfg, opts.DryRun); err != nil {
		return nil, err
	}

	targets, err := s.Targets(ctx)
	if err != nil {
		return nil, err
	}
	lg.Info().Int("users", len(targets)).Msg("evaluating users")

	fold := cases.Fold()
	seen := make(map[string]struct{})
	for _, t := range targets {
		ur := s.evaluate(ctx, t)
		rep.Users = append(rep.Users, ur)
		if !ur.Qualified {
			continue
		}
		if strings.TrimSpace(t.Email) == "" {
			lg.Warn().Str("username", t.Username).Msg("user qualifies but has no email; skipping")
			continue
		}
		k := fold.String(strings.TrimSpace(t.Email))
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		rep.Qualifying = append(rep.Qualifying, strings.TrimSpace(t.Email))
	}
	span.SetAttributes(attribute.Int("run.qualifying", len(rep.Qualifying)))
	lg.Info().Int("qualifying", len(rep.Qualifying)).Msg("evaluation complete")

	if opts.DryRun {
		lg.Info().Msg("dry run; not awarding badges")
		return rep, nil
	}
	if len(rep.Qualifying) == 0 {
		lg.Info().Msg("no qualifying users; nothing to award")
		return rep, nil
	}

	token, err := s.Awarder.Authenticate(ctx, credly.CredentialsFrom(cfg.Credly))
	if err != nil {
		return rep, fmt.Errorf("%w: %v", ErrAwardAuthFailure, err)
	}
	lg.Info().Msg("authenticated with badge API")

	badge := credly.BadgeFrom(cfg.Credly)
	for _, identity := range rep.Qualifying {
		res := s.Awarder.Award(ctx, token, identity, badge)
		rep.Results = append(rep.Results, res)
		rep.Counts[res.Outcome]++
		if s.DB != nil {
			if _, err := repo.CreateAwardRecord(ctx, s.DB, rep.RunID, badge.ID, res); err != nil {
				lg.Error().Err(err).Str("email", identity).Msg("failed to record award outcome")
			}
		}
	}
	lg.Info().
		Int("awarded", rep.Counts[domain.OutcomeAwarded]).
		Int("already_awarded", rep.Counts[domain.OutcomeAlreadyAwarded]).
		Int("failed", rep.Counts[domain.OutcomeFailed]).
		Msg("award phase complete")
	return rep, nil
}

// evaluate fetches and filters the check-ins of one target.
func (s *AwardService) evaluate(ctx context.Context, t Target) UserReport {
	lg := zerolog.Ctx(ctx).With().Str("username", t.Username).Logger()
	ctx = lg.WithContext(ctx)
	ur := UserReport{Username: t.Username, Email: t.Email}

	lg.Info().Msg("fetching checkins")
	recs, err := s.Checkins.UserCheckins(ctx, t.Username, s.Config.Untappd.CheckinLimit, s.Config.Cache.MaxAge)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrFetchFailure, err)
		lg.Error().Err(err).Msg("skipping user")
		ur.Error = err.Error()
		return ur
	}
	ur.Checkins = len(recs)

	ok, subjects := eligibility.Qualifies(ctx, recs, s.Config.Window)
	ur.Subjects = len(subjects)
	ur.Qualified = ok
	lg.Info().
		Int("subjects", ur.Subjects).
		Int("required", s.Config.Window.RequiredCount).
		Bool("qualified", ok).
		Msg("evaluated checkins")
	return ur
}

// Targets merges the configured users with the linked accounts (when
// enabled and a database is available). Usernames are matched without
// regard to case; a configured email wins over the account's.
func (s *AwardService) Targets(ctx context.Context) ([]Target, error) {
	fold := cases.Fold()
	idx := make(map[string]int)
	var out []Target

	add := func(t Target) {
		t.Username = strings.TrimSpace(t.Username)
		if t.Username == "" {
			return
		}
		k := fold.String(t.Username)
		if i, ok := idx[k]; ok {
			if out[i].Email == "" {
				out[i].Email = t.Email
			}
			return
		}
		idx[k] = len(out)
		out = append(out, t)
	}

	for _, u := range s.Config.Users {
		add(Target{Username: u.Username, Email: u.Email, Source: "config"})
	}
	if s.Config.UseAccounts && s.DB != nil {
		accts, err := repo.ListAccounts(ctx, s.DB, domain.ProviderUntappd)
		if err != nil {
			return nil, fmt.Errorf("list linked accounts: %w", err)
		}
		for _, a := range accts {
			add(Target{Username: a.Username, Email: a.Email, Source: "account"})
		}
	}
	return out, nil
}

// ListRecordsPage returns a page of the award audit log, newest first.
func (s *AwardService) ListRecordsPage(ctx context.Context, page, pageSize int) ([]domain.AwardRecord, int64, error) {
	if s.DB == nil {
		return nil, 0, errors.New("award log requires a database")
	}
	offset, limit := pageBounds(page, pageSize)
	total, err := repo.CountAwardRecords(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.AwardRecord{}, 0, nil
	}
	items, err := repo.ListAwardRecordsPage(ctx, s.DB, offset, limit)
	return items, total, err
}

// pageBounds applies the default page and page size.
func pageBounds(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}
