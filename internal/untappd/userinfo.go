package untappd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/tbourn/checkin-badges/internal/sysutil"
)

// UserInfo is the profile of the user owning an access token.
type UserInfo struct {
	UID        string
	Username   string
	FirstName  string
	LastName   string
	Email      string
	ProfileURL string
	AvatarURL  string
}

// Name joins the first and last name.
func (u UserInfo) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type userInfoEnvelope struct {
	Response struct {
		User *struct {
			ID         json.Number `json:"id"`
			UID        json.Number `json:"uid"`
			UserName   string      `json:"user_name"`
			FirstName  string      `json:"first_name"`
			LastName   string      `json:"last_name"`
			UserAvatar string      `json:"user_avatar"`
			UntappdURL string      `json:"untappd_url"`
			Settings   struct {
				EmailAddress string `json:"email_address"`
			} `json:"settings"`
		} `json:"user"`
	} `json:"response"`
}

// UserInfo returns the profile of the token owner. The call is never cached.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	params := url.Values{}
	params.Set("access_token", accessToken)
	body, err := c.Fetch(ctx, "user/info", params, "", 0)
	if err != nil {
		return nil, err
	}

	var env userInfoEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode user info: %v", ErrFetch, err)
	}
	u := env.Response.User
	if u == nil {
		return nil, fmt.Errorf("%w: user info without user", ErrFetch)
	}
	uid := sysutil.FirstNonEmpty(u.ID.String(), u.UID.String())
	if uid == "" {
		return nil, fmt.Errorf("%w: user info without id", ErrFetch)
	}
	return &UserInfo{
		UID:        uid,
		Username:   u.UserName,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Settings.EmailAddress,
		ProfileURL: u.UntappdURL,
		AvatarURL:  u.UserAvatar,
	}, nil
}
