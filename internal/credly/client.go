// Package credly is the write side of the award pipeline: it exchanges the
// issuer credentials for a session token and posts one badge award per
// recipient.
//
// Authentication failures are fatal for a run and are returned as ErrAuth.
// Award failures are per recipient: Award never returns an error, it
// classifies the response into a domain.AwardResult so the caller can carry
// on with the remaining recipients.
package credly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/checkin-badges/internal/config"
	"github.com/tbourn/checkin-badges/internal/domain"
)

var (
	// ErrAuth is returned when the token exchange fails for any reason.
	ErrAuth = errors.New("credly authentication failed")

	// errAwardRequest prefixes AwardResult.Reason for transport failures.
	errAwardRequest = errors.New("award request failed")
)

// CodeAlreadyAwarded is the error code the API reports for a recipient that
// already holds the badge.
const CodeAlreadyAwarded = "ALREADYAWARDED"

const maxBody = 1 << 20

var awardsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "badge_awards_total",
		Help: "Badge award requests by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(awardsTotal)
}

// Credentials is the issuer login.
type Credentials struct {
	Username string
	Password string
}

// Badge describes what is awarded.
type Badge struct {
	ID          int
	Description string
}

// Client talks to the badge API.
type Client struct {
	BaseURL   string
	APIKey    string
	APISecret string
	HTTP      *http.Client
}

// New builds a Client from cfg.
func New(cfg config.CredlyConfig) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
	}
}

// CredentialsFrom returns the login part of cfg.
func CredentialsFrom(cfg config.CredlyConfig) Credentials {
	return Credentials{Username: cfg.Username, Password: cfg.Password}
}

// BadgeFrom returns the badge part of cfg.
func BadgeFrom(cfg config.CredlyConfig) Badge {
	return Badge{ID: cfg.BadgeID, Description: cfg.Description}
}

type authResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Authenticate exchanges creds for a session token.
func (c *Client) Authenticate(ctx context.Context, creds Credentials) (string, error) {
	tr := otel.Tracer("credly/Client")
	ctx, span := tr.Start(ctx, "Authenticate")
	defer span.End()

	req, err := c.newRequest(ctx, "/authenticate", nil, nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	req.SetBasicAuth(creds.Username, creds.Password)

	status, body, err := c.do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", status))
	if status != http.StatusOK {
		span.SetStatus(codes.Error, "unexpected status")
		return "", fmt.Errorf("%w: status %d", ErrAuth, status)
	}

	var ar authResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrAuth, err)
	}
	if ar.Data.Token == "" {
		return "", fmt.Errorf("%w: response carries no token", ErrAuth)
	}
	return ar.Data.Token, nil
}

type awardRequest struct {
	Email       string  `json:"email"`
	BadgeID     int     `json:"badge_id"`
	Description string  `json:"description,omitempty"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
}

type awardResponse struct {
	Successes map[string]json.RawMessage `json:"successes"`
	Errors    map[string]json.RawMessage `json:"errors"`
}

// Award posts badge for identity. The result is never an error; request
// and API failures become OutcomeFailed with a reason.
func (c *Client) Award(ctx context.Context, token, identity string, badge Badge) domain.AwardResult {
	tr := otel.Tracer("credly/Client")
	ctx, span := tr.Start(ctx, "Award",
		trace.WithAttributes(attribute.Int("badge.id", badge.ID)),
	)
	defer span.End()

	res := c.award(ctx, token, identity, badge)
	awardsTotal.WithLabelValues(string(res.Outcome)).Inc()
	span.SetAttributes(attribute.String("award.outcome", string(res.Outcome)))
	if res.Outcome == domain.OutcomeFailed {
		span.SetStatus(codes.Error, res.Reason)
	}
	return res
}

func (c *Client) award(ctx context.Context, token, identity string, badge Badge) domain.AwardResult {
	lg := zerolog.Ctx(ctx)
	failed := func(reason string) domain.AwardResult {
		lg.Warn().Str("email", identity).Str("reason", reason).Msg("error awarding badge")
		return domain.AwardResult{Identity: identity, Outcome: domain.OutcomeFailed, Reason: reason}
	}

	payload, err := json.Marshal(awardRequest{
		Email:       identity,
		BadgeID:     badge.ID,
		Description: badge.Description,
	})
	if err != nil {
		return failed(err.Error())
	}
	req, err := c.newRequest(ctx, "/member_badges", url.Values{"access_token": {token}}, payload)
	if err != nil {
		return failed(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, err := c.do(req)
	if err != nil {
		return failed(fmt.Errorf("%w: %v", errAwardRequest, err).Error())
	}
	if status != http.StatusOK {
		lg.Warn().Int("status", status).Bytes("body", truncate(body, 512)).Msg("something went wrong awarding badge")
		return failed("status " + strconv.Itoa(status))
	}

	var ar awardResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return failed("unparsable response")
	}
	if code, ok := lookup(ar.Errors, identity); ok {
		if code == CodeAlreadyAwarded {
			lg.Info().Str("email", identity).Msg("badge had already been awarded")
			return domain.AwardResult{Identity: identity, Outcome: domain.OutcomeAlreadyAwarded}
		}
		return failed(code)
	}
	lg.Info().Str("email", identity).Msg("badge awarded")
	return domain.AwardResult{Identity: identity, Outcome: domain.OutcomeAwarded}
}

// lookup finds identity in m ignoring case and returns its value as text.
func lookup(m map[string]json.RawMessage, identity string) (string, bool) {
	for k, raw := range m {
		if !strings.EqualFold(k, identity) {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, true
		}
		return string(raw), true
	}
	return "", false
}

func (c *Client) newRequest(ctx context.Context, path string, q url.Values, body []byte) (*http.Request, error) {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.APIKey)
	req.Header.Set("X-Api-Secret", c.APISecret)
	return req, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
