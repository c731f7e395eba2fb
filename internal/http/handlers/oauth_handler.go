// Login HTTP handlers.
//
// This file exposes the two legs of the social login:
//   - GET /accounts/untappd/login            (redirect to the provider)
//   - GET /accounts/untappd/login/callback   (link the account)
//
// The login leg stores a random state in a short-lived HttpOnly cookie; the
// callback leg requires the provider to echo it back before the code is
// exchanged.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/checkin-badges/internal/domain"
	"github.com/tbourn/checkin-badges/internal/http/middleware"
	"github.com/tbourn/checkin-badges/internal/services"
)

const (
	// stateCookie holds the login state between the two legs.
	stateCookie = "badges_oauth_state"
	// stateTTL is the cookie lifetime in seconds.
	stateTTL = 600
)

// Login godoc
// @ID          login
// @Summary     Start the Untappd login
// @Description Sets a state cookie and redirects to the Untappd authorization page.
// @Tags        Accounts
// @Success     302  {string}  string  "Redirect to the provider"
// @Router      /accounts/untappd/login [get]
func (h *Handlers) Login(c *gin.Context) {
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, stateTTL, "/accounts/untappd", "", h.SecureCookies, true)
	c.Redirect(http.StatusFound, h.acctSvc.LoginURL(state))
}

// Callback godoc
// @ID          loginCallback
// @Summary     Complete the Untappd login
// @Description Verifies the state, exchanges the code and links the account.
// @Tags        Accounts
// @Produce     json
//
// @Param       code   query  string  true   "Authorization code"
// @Param       state  query  string  true   "State echoed by the provider"
// @Param       error  query  string  false  "Set by the provider when the user denies access"
//
// @Success     200  {object}  domain.Account
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Login denied"
// @Failure     502  {object}  handlers.ErrorResponse  "Provider error"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /accounts/untappd/login/callback [get]
func (h *Handlers) Callback(c *gin.Context) {
	var linked string
	defer func() { middleware.TagLogin(c, domain.ProviderUntappd, linked) }()

	if e := c.Query("error"); e != "" {
		fail(c, http.StatusForbidden, ErrCodeLoginDenied, "login denied: "+e)
		return
	}

	want, err := c.Cookie(stateCookie)
	if err != nil || want == "" || c.Query("state") != want {
		fail(c, http.StatusBadRequest, ErrCodeInvalidState, "login state mismatch")
		return
	}
	// One-shot: the state cannot be replayed.
	c.SetCookie(stateCookie, "", -1, "/accounts/untappd", "", h.SecureCookies, true)

	acct, err := h.acctSvc.CompleteLogin(c.Request.Context(), c.Query("code"))
	switch {
	case errors.Is(err, services.ErrInvalidCode):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	case errors.Is(err, services.ErrLoginFailed):
		fail(c, http.StatusBadGateway, ErrCodeLoginFailed, err.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	linked = acct.ID
	middleware.LoggerFrom(c).Info().Str("account_id", acct.ID).Str("username", acct.Username).Msg("account linked")
	ok(c, http.StatusOK, acct)
}
