package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/brownbnc/mrsuploader/internal/webserver/weberror"
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/logger"
)

// NewHTTPErrorHandler is a middleware that formats rendered errors.
// Browser navigations get an HTML error page, other consumers get JSON.
func NewHTTPErrorHandler(log logger.Logger) func(err error, c echo.Context) {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var werr *weberror.Error
		switch err := err.(type) {
		case *weberror.Error:
			werr = err
		case *echo.HTTPError:
			werr = weberror.New(err.Code, fmt.Sprintf("%v", err.Message))
		default:
			werr = weberror.New(http.StatusInternalServerError, err.Error())
		}

		var err2 error
		if strings.Contains(c.Request().Header.Get("Accept"), "text/html") {
			err2 = c.Render(werr.Code, "error", werr)
		} else {
			err2 = c.JSON(werr.Code, werr)
		}

		log.Error(err)
		if err2 != nil {
			log.Errorf("HTTPErrorHandler: %s", err2)
		}
	}
}
