package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// loginKey is the Gin context key holding the LoginTag of a callback.
const loginKey = "login"

// Login results used as the "result" label of http_logins_total.
const (
	LoginLinked = "linked"
	LoginFailed = "failed"
)

var loginsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_logins_total",
		Help: "Completed login callbacks by provider and result.",
	},
	[]string{"provider", "result"},
)

func init() {
	prometheus.MustRegister(loginsTotal)
}

// LoginTag describes the outcome of one login callback.
type LoginTag struct {
	Provider  string
	AccountID string // empty when the login failed
}

// Result is LoginLinked when an account was linked, LoginFailed otherwise.
func (t LoginTag) Result() string {
	if t.AccountID == "" {
		return LoginFailed
	}
	return LoginLinked
}

// TagLogin records the outcome of a login callback on c. Logger and
// RedactingLogger add it to the access log line; Metrics counts it.
func TagLogin(c *gin.Context, provider, accountID string) {
	c.Set(loginKey, LoginTag{Provider: provider, AccountID: accountID})
}

func loginFrom(c *gin.Context) (LoginTag, bool) {
	v, ok := c.Get(loginKey)
	if !ok {
		return LoginTag{}, false
	}
	t, ok := v.(LoginTag)
	return t, ok
}

// withLogin adds the login fields of c, if any, to a log event.
func withLogin(c *gin.Context, ev *zerolog.Event) *zerolog.Event {
	if t, ok := loginFrom(c); ok {
		ev = ev.Str("provider", t.Provider).Str("login", t.Result())
		if t.AccountID != "" {
			ev = ev.Str("account_id", t.AccountID)
		}
	}
	return ev
}
