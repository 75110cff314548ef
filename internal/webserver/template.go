package webserver

import (
	"embed"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

//go:embed templates/*.html
var templates embed.FS

type renderer struct {
	templates *template.Template
}

// NewRenderer returns the echo renderer for the embedded HTML pages.
func NewRenderer() echo.Renderer {
	return &renderer{
		templates: template.Must(template.ParseFS(templates, "templates/*.html")),
	}
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return errors.Wrapf(r.templates.ExecuteTemplate(w, name, data), "could not render %s", name)
}
