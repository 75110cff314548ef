package middleware

import (
	"net/http"
	"time"

	"github.com/brownbnc/mrsuploader/internal/database"
	"github.com/brownbnc/mrsuploader/internal/model"
	"github.com/labstack/echo/v4"
)

// CookieName is the name of the session cookie. Only the random token is
// stored browser-side.
const CookieName = "mrsup_session"

// SessionKey is the context key holding the authenticated session record.
const SessionKey = "session"

// Session is a middleware that authenticates requests against the
// server-side session store. Unauthenticated browsers are redirected to
// the login page. The session lifetime slides on each hit.
func Session(db database.Client, lifetime time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				return c.Redirect(http.StatusFound, "/login")
			}

			session, err := db.FindSessionByToken(cookie.Value)
			if err != nil {
				if db.IsNotFound(err) {
					return c.Redirect(http.StatusFound, "/login")
				}
				return err
			}

			if session.Expired() {
				if err := db.DeleteSession(session.ID); err != nil && !db.IsNotFound(err) {
					return err
				}
				return c.Redirect(http.StatusFound, "/login")
			}

			session.ExpiresAt = time.Now().UTC().Add(lifetime)
			if err := db.Save(session); err != nil {
				return err
			}

			c.Set(SessionKey, session)
			return next(c)
		}
	}
}

// CurrentSession returns the session record set by the Session middleware.
func CurrentSession(c echo.Context) *model.Session {
	session, _ := c.Get(SessionKey).(*model.Session)
	return session
}
