package webserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/brownbnc/mrsuploader/internal/database"
	"github.com/brownbnc/mrsuploader/internal/model"
	"github.com/brownbnc/mrsuploader/internal/webserver/middleware"
	"github.com/brownbnc/mrsuploader/internal/webserver/weberror"
	"github.com/brownbnc/mrsuploader/internal/xnat"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/logger"
	"github.com/pkg/errors"
)

type session struct {
	logger   logger.Logger
	db       database.Client
	xnat     *xnat.Client
	lifetime time.Duration
	secure   bool
}

func (h *session) New(c echo.Context) error {
	c.Set("handler_method", "session.New")

	return c.Render(http.StatusOK, "login", echo.Map{
		"Flashes": []string{},
	})
}

// Create verifies the credentials against XNAT and opens a server-side
// session behind a cookie token.
func (h *session) Create(c echo.Context) error {
	c.Set("handler_method", "session.Create")

	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")

	err := h.xnat.Verify(c.Request().Context(), xnat.Credentials{Username: username, Password: password})
	if errors.Cause(err) == xnat.ErrUnauthorized {
		return c.Render(http.StatusUnauthorized, "login", echo.Map{
			"Flashes": []string{"Invalid username or password"},
		})
	}
	if err != nil {
		h.logger.Error(err)
		return c.Render(http.StatusOK, "login", echo.Map{
			"Flashes": []string{"Could not reach the XNAT server"},
		})
	}

	record := &model.Session{
		Token:     uuid.Must(uuid.NewV4()).String(),
		Username:  username,
		Password:  password,
		ExpiresAt: time.Now().UTC().Add(h.lifetime),
	}
	if err := h.db.Save(record); err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    record.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Infof("%s logged in", username)
	return c.Redirect(http.StatusFound, "/")
}

func (h *session) Destroy(c echo.Context) error {
	c.Set("handler_method", "session.Destroy")

	if cookie, err := c.Cookie(middleware.CookieName); err == nil && cookie.Value != "" {
		record, err := h.db.FindSessionByToken(cookie.Value)
		if err == nil {
			if err := h.db.DeleteSession(record.ID); err != nil && !h.db.IsNotFound(err) {
				return weberror.New(http.StatusInternalServerError, err.Error())
			}
		}
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
	})
	return c.Redirect(http.StatusFound, "/login")
}
