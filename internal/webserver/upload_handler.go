package webserver

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/brownbnc/mrsuploader/internal/database"
	"github.com/brownbnc/mrsuploader/internal/model"
	"github.com/brownbnc/mrsuploader/internal/rda"
	"github.com/brownbnc/mrsuploader/internal/webserver/middleware"
	"github.com/brownbnc/mrsuploader/internal/webserver/serializer"
	"github.com/brownbnc/mrsuploader/internal/webserver/service"
	"github.com/brownbnc/mrsuploader/internal/webserver/weberror"
	"github.com/brownbnc/mrsuploader/internal/xnat"
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/logger"
)

const defaultResourceLabel = "MRS"

type upload struct {
	logger      logger.Logger
	db          database.Client
	uploader    *service.BatchUploader
	xnatBaseURL string
	history     int
}

// Index renders the upload form, popping pending flashes and reload URLs.
func (h *upload) Index(c echo.Context) error {
	c.Set("handler_method", "upload.Index")

	record := middleware.CurrentSession(c)

	flashes := record.Flashes
	reloads := record.ReloadURLs
	if len(flashes) > 0 || len(reloads) > 0 {
		record.Flashes = nil
		record.ReloadURLs = nil
		if err := h.db.Save(record); err != nil {
			return weberror.New(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Render(http.StatusOK, "upload", echo.Map{
		"Flashes":     flashes,
		"ReloadURLs":  reloads,
		"XNATBaseURL": h.xnatBaseURL,
	})
}

// Create relays the posted batch to XNAT and flashes per-file outcomes.
func (h *upload) Create(c echo.Context) error {
	c.Set("handler_method", "upload.Create")

	record := middleware.CurrentSession(c)

	form, err := c.MultipartForm()
	if err != nil {
		return weberror.New(http.StatusBadRequest, "could not parse upload form")
	}

	files := make([]service.File, 0, len(form.File["files"]))
	for _, fh := range form.File["files"] {
		fh := fh
		if fh.Filename == "" {
			continue
		}
		files = append(files, service.File{
			Name: filepath.Base(fh.Filename),
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}

	if len(files) == 0 {
		return h.flashAndRedirect(c, record, "No files selected.")
	}

	resource := strings.TrimSpace(c.FormValue("resource_label"))
	if resource == "" {
		resource = defaultResourceLabel
	}

	defaults := rda.Identity{
		Project:    rda.Sanitize(c.FormValue("project_id")),
		Subject:    rda.Sanitize(c.FormValue("subject_label")),
		Experiment: rda.Sanitize(c.FormValue("experiment_label")),
		ScanID:     strings.TrimSpace(c.FormValue("scan_id")),
		StudyDate:  strings.TrimSpace(c.FormValue("study_date")),
	}

	report, err := h.uploader.Upload(
		c.Request().Context(),
		xnat.Credentials{Username: record.Username, Password: record.Password},
		record.ID,
		files,
		defaults,
		h.overrides(form.Value),
		resource,
	)
	if err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	flashes := report.Notes
	uploaded := 0
	for _, result := range report.Results {
		flashes = append(flashes, result.Message)
		if result.Status == model.UploadStatusUploaded {
			uploaded++
		}
	}
	if uploaded > 0 {
		flashes = append(flashes, "Upload complete.")
	}

	record.Flashes = append(record.Flashes, flashes...)
	record.ReloadURLs = report.ReloadURLs
	if err := h.db.Save(record); err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}
	return c.Redirect(http.StatusFound, "/")
}

// History lists the recent journal entries.
func (h *upload) History(c echo.Context) error {
	c.Set("handler_method", "upload.History")

	uploads, err := h.db.RecentUploads(h.history)
	if err != nil && !h.db.IsNotFound(err) {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}

	if c.Request().Header.Get("Accept") == "text/plain" {
		return c.String(http.StatusOK, serializer.TextUploads(uploads))
	}
	// "application/json"
	return c.JSON(http.StatusOK, serializer.Uploads(uploads))
}

// overrides aligns the per-row arrays of the file table by index, keyed by
// filename.
func (h *upload) overrides(form map[string][]string) map[string]rda.Identity {
	names := form["file_names"]
	scans := form["scan_ids"]
	descs := form["series_descs"]
	projects := form["project_ids"]
	subjects := form["subject_labels"]
	experiments := form["experiment_labels"]

	at := func(sl []string, i int) string {
		if i < len(sl) {
			return strings.TrimSpace(sl[i])
		}
		return ""
	}

	overrides := make(map[string]rda.Identity, len(names))
	for i, name := range names {
		overrides[name] = rda.Identity{
			Project:           rda.Sanitize(at(projects, i)),
			Subject:           rda.Sanitize(at(subjects, i)),
			Experiment:        rda.Sanitize(at(experiments, i)),
			ScanID:            at(scans, i),
			SeriesDescription: at(descs, i),
		}
	}
	return overrides
}

func (h *upload) flashAndRedirect(c echo.Context, record *model.Session, message string) error {
	record.Flashes = append(record.Flashes, message)
	if err := h.db.Save(record); err != nil {
		return weberror.New(http.StatusInternalServerError, err.Error())
	}
	return c.Redirect(http.StatusFound, "/")
}
