package model

import "time"

// A Session holds the XNAT credentials of a logged-in browser session.
// Only the token travels in the cookie, the record stays server-side.
type Session struct {
	Base `json:",inline" storm:"inline"`

	Token     string    `json:"token" storm:"unique"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	ExpiresAt time.Time `json:"expires_at" storm:"index"`

	// Flash messages and XNAT reload URLs pending for the next page render.
	Flashes    []string `json:"flashes"`
	ReloadURLs []string `json:"reload_urls"`
}

// Expired returns true if the session is past its lifetime.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}
