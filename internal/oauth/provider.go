// Package oauth adapts the Untappd login flow to golang.org/x/oauth2.
//
// Untappd deviates from RFC 6749 in two places: the redirect parameter is
// called redirect_url instead of redirect_uri, and the code exchange is a
// GET whose token sits under response.access_token. Provider translates
// both and hands out a regular *oauth2.Token.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/tbourn/checkin-badges/internal/config"
)

// ErrExchange wraps every failure of the code exchange.
var ErrExchange = errors.New("oauth code exchange failed")

// Provider builds login URLs and exchanges authorization codes.
type Provider struct {
	Config      oauth2.Config
	RedirectURL string
	HTTP        *http.Client
}

// New builds a Provider from cfg.
func New(cfg config.UntappdConfig) *Provider {
	base := strings.TrimRight(cfg.OAuthBaseURL, "/")
	return &Provider{
		Config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/authenticate/",
				TokenURL:  base + "/authorize/",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		RedirectURL: cfg.RedirectURL,
		HTTP:        &http.Client{Timeout: 30 * time.Second},
	}
}

// AuthCodeURL returns the URL the user is redirected to for login.
func (p *Provider) AuthCodeURL(state string) string {
	return p.Config.AuthCodeURL(state, oauth2.SetAuthURLParam("redirect_url", p.RedirectURL))
}

type tokenResponse struct {
	Response struct {
		AccessToken string `json:"access_token"`
	} `json:"response"`
}

// Exchange trades an authorization code for an access token. An
// *http.Client stored in ctx under oauth2.HTTPClient takes precedence over
// p.HTTP, as with oauth2.Config.Exchange.
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	q := url.Values{
		"client_id":     {p.Config.ClientID},
		"client_secret": {p.Config.ClientSecret},
		"response_type": {"code"},
		"redirect_url":  {p.RedirectURL},
		"code":          {code},
	}
	u := p.Config.Endpoint.TokenURL
	if strings.Contains(u, "?") {
		u += "&" + q.Encode()
	} else {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client(ctx).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrExchange, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrExchange, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrExchange, err)
	}
	tok := &oauth2.Token{AccessToken: tr.Response.AccessToken, TokenType: "Bearer"}
	if !tok.Valid() {
		return nil, fmt.Errorf("%w: response carries no access token", ErrExchange)
	}
	return tok, nil
}

func (p *Provider) client(ctx context.Context) *http.Client {
	if hc, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && hc != nil {
		return hc
	}
	if p.HTTP != nil {
		return p.HTTP
	}
	return http.DefaultClient
}
