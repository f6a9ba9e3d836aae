package model

import "time"

// AuthToken is the OAuth2 credential pair owned by an auth session. It is
// handed to a secrets store for persistence and must never be logged.
type AuthToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// ValidAt reports whether the access token is still usable at now, leaving
// the given safety margin before expiry.
func (t AuthToken) ValidAt(now time.Time, margin time.Duration) bool {
	return t.AccessToken != "" && now.Add(margin).Before(t.Expiry)
}
