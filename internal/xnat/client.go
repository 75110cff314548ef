// Package xnat is a minimal client for the XNAT REST API, covering the
// calls the uploader relays: credential check, resource creation, file
// upload and dicomdump field lookup.
package xnat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Credentials are the XNAT basic-auth credentials of the logged-in user.
type Credentials struct {
	Username string
	Password string
}

// A Target identifies the XNAT destination of an upload.
type Target struct {
	Project    string
	Subject    string
	Experiment string
	ScanID     string
}

// ExperimentPath returns the REST path of the target session.
func (t Target) ExperimentPath() string {
	return fmt.Sprintf("/data/projects/%s/subjects/%s/experiments/%s",
		url.PathEscape(t.Project), url.PathEscape(t.Subject), url.PathEscape(t.Experiment))
}

// Path returns the REST path of the target, scan included when set.
func (t Target) Path() string {
	p := t.ExperimentPath()
	if t.ScanID != "" {
		p += "/scans/" + url.PathEscape(t.ScanID)
	}
	return p
}

// ArchivePath returns the archive path of the target scan, the form the
// dicomdump service expects as src.
func (t Target) ArchivePath() string {
	return fmt.Sprintf("/archive/projects/%s/subjects/%s/experiments/%s/scans/%s",
		t.Project, t.Subject, t.Experiment, t.ScanID)
}

// ErrUnauthorized is returned when XNAT rejects the credentials.
var ErrUnauthorized = errors.New("xnat: unauthorized")

// A StatusError is a non-2xx answer from XNAT.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("xnat: unexpected status %d", e.Code)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// A Client talks to one XNAT server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Retries int
}

// New returns a Client for the given server.
func New(baseURL string, timeout time.Duration, retries int) *Client {
	if retries < 1 {
		retries = 1
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		Retries: retries,
	}
}

// Verify checks the credentials against the server.
func (c *Client) Verify(ctx context.Context, creds Credentials) error {
	status, _, err := c.do(ctx, creds, http.MethodGet, "/data/projects?limit=1", nil)
	if err != nil {
		return err
	}
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	default:
		return &StatusError{Code: status}
	}
}

// EnsureResource creates the resource collection under the target when it
// does not exist yet. XNAT answers conflict when it is already there.
func (c *Client) EnsureResource(ctx context.Context, creds Credentials, target Target, label string) error {
	path := target.Path() + "/resources/" + url.PathEscape(label)
	status, _, err := c.do(ctx, creds, http.MethodPut, path, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("")), nil
	})
	if err != nil {
		return errors.Wrap(err, "ensure resource")
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return ErrUnauthorized
	}
	if (status < 200 || status >= 300) && status != http.StatusConflict {
		return &StatusError{Code: status}
	}
	return nil
}

// UploadFile stores one file under the target's resource collection. The
// body factory is called once per attempt so network retries replay the
// full content.
func (c *Client) UploadFile(ctx context.Context, creds Credentials, target Target, label, filename string, body func() (io.ReadCloser, error)) error {
	path := fmt.Sprintf("%s/resources/%s/files/%s?inbody=true",
		target.Path(), url.PathEscape(label), url.PathEscape(filename))

	status, _, err := c.do(ctx, creds, http.MethodPut, path, body)
	if err != nil {
		return errors.Wrap(err, "upload file")
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return ErrUnauthorized
	}
	if status < 200 || status >= 300 {
		return &StatusError{Code: status}
	}
	return nil
}

// DicomField returns the value of a DICOM tag for the target scan, through
// the dicomdump service.
func (c *Client) DicomField(ctx context.Context, creds Credentials, target Target, field string) (string, error) {
	query := url.Values{}
	query.Set("src", target.ArchivePath())
	query.Set("field", field)

	status, payload, err := c.do(ctx, creds, http.MethodGet, "/data/services/dicomdump?"+query.Encode(), nil)
	if err != nil {
		return "", errors.Wrap(err, "dicomdump")
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return "", ErrUnauthorized
	}
	if status < 200 || status >= 300 {
		return "", &StatusError{Code: status}
	}

	var result struct {
		ResultSet struct {
			Result []struct {
				Value string `json:"value"`
			} `json:"Result"`
		} `json:"ResultSet"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return "", errors.Wrap(err, "dicomdump: decode")
	}
	if len(result.ResultSet.Result) == 0 {
		return "", errors.Errorf("dicomdump: no value for %s", field)
	}
	return result.ResultSet.Result[0].Value, nil
}

// SessionURL returns the browser URL of the target's session page.
func (c *Client) SessionURL(target Target) string {
	return c.BaseURL + target.ExperimentPath()
}

// do performs one call, retrying network-level failures with exponential
// backoff. HTTP error statuses are answers and are returned as-is.
func (c *Client) do(ctx context.Context, creds Credentials, method, path string, body func() (io.ReadCloser, error)) (int, []byte, error) {
	var lasterr error

	for attempt := 0; attempt < c.Retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(math.Pow(1.5, float64(attempt-1)) * float64(time.Second))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return 0, nil, ctx.Err()
			}
		}

		var rc io.ReadCloser
		if body != nil {
			var err error
			rc, err = body()
			if err != nil {
				return 0, nil, errors.Wrap(err, "could not read request body")
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rc)
		if err != nil {
			return 0, nil, errors.Wrap(err, "could not build request")
		}
		req.SetBasicAuth(creds.Username, creds.Password)
		req.Header.Set("Accept", "application/json")

		resp, err := c.HTTP.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return 0, nil, ctx.Err()
			}
			lasterr = err
			continue
		}

		payload, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lasterr = err
			continue
		}
		return resp.StatusCode, payload, nil
	}

	return 0, nil, errors.Wrapf(lasterr, "could not reach XNAT after %d attempts", c.Retries)
}
