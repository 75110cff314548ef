package webserver_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brownbnc/mrsuploader/internal/database"
	"github.com/brownbnc/mrsuploader/internal/storage"
	"github.com/brownbnc/mrsuploader/internal/webserver"
	"github.com/brownbnc/mrsuploader/internal/xnat"
	"github.com/mdouchement/logger"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const rdaSample = ">>> Begin of header <<<\r\n" +
	"PatientName: DOE_JOHN\r\n" +
	"PatientID: sub01_sess01\r\n" +
	"StudyDescription: BNC Study-1\r\n" +
	"StudyDate: 20240131\r\n" +
	"SeriesNumber: 7\r\n" +
	"SeriesDescription: mrs_press_ACC\r\n" +
	">>> End of header <<<\x00binary"

const rdaSampleOCC = ">>> Begin of header <<<\r\n" +
	"PatientName: DOE_JOHN\r\n" +
	"PatientID: sub01_sess01\r\n" +
	"StudyDescription: BNC Study-1\r\n" +
	"StudyDate: 20240131\r\n" +
	"SeriesNumber: 9\r\n" +
	"SeriesDescription: svs_se_occ\r\n" +
	">>> End of header <<<\x00binary"

// fakeXNAT is a minimal stand-in for the collaborator server.
type fakeXNAT struct {
	mu       sync.Mutex
	requests []string

	username string
	password string

	// dicomdump answers by field
	dicom map[string]string
	// upload status by filename, defaults to 201
	fileStatus map[string]int
}

func newFakeXNAT() *fakeXNAT {
	return &fakeXNAT{
		username: "tester",
		password: "testing",
		dicom: map[string]string{
			"ImageType":         `ORIGINAL\PRIMARY\SPECTROSCOPY`,
			"StudyDate":         "20240131",
			"SeriesDescription": "mrs_press_ACC",
		},
		fileStatus: map[string]int{},
	}
}

func (f *fakeXNAT) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.requests...)
}

func (f *fakeXNAT) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, req.Method+" "+req.URL.RequestURI())
	f.mu.Unlock()

	user, pass, ok := req.BasicAuth()
	if !ok || user != f.username || pass != f.password {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch {
	case req.URL.Path == "/data/projects":
		fmt.Fprint(w, `{"ResultSet":{"Result":[]}}`)

	case req.URL.Path == "/data/services/dicomdump":
		value := f.dicom[req.URL.Query().Get("field")]
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ResultSet": map[string]interface{}{
				"Result": []map[string]string{{"value": value}},
			},
		})

	case req.Method == http.MethodPut && strings.Contains(req.URL.Path, "/files/"):
		status := f.fileStatus[path.Base(req.URL.Path)]
		if status == 0 {
			status = http.StatusCreated
		}
		w.WriteHeader(status)

	case req.Method == http.MethodPut && strings.Contains(req.URL.Path, "/resources/"):
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type env struct {
	base   string
	client *http.Client
	xnat   *fakeXNAT
	db     database.Client
	spool  storage.Backend
}

func setup(t *testing.T, validate bool) *env {
	t.Helper()

	log := logrus.New()
	log.SetFormatter(&logger.LogrusTextFormatter{
		DisableColors:   false,
		ForceColors:     true,
		ForceFormatting: true,
		PrefixRE:        regexp.MustCompile(`^(\[.*?\])\s`),
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	//

	fake := newFakeXNAT()
	collaborator := httptest.NewServer(fake)
	t.Cleanup(collaborator.Close)

	//

	db, err := database.StormOpen(filepath.Join(t.TempDir(), "mrsup.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	spool := storage.NewFileSystem(t.TempDir())

	//

	ctrl := webserver.Controller{
		Logger:   logger.WrapLogrus(log),
		Database: db,
		Spool:    spool,
		XNAT:     xnat.New(collaborator.URL, 5*time.Second, 1),

		SessionLifetime: 5 * time.Minute,
		ValidateScan:    validate,
	}
	engine := webserver.EchoEngine(ctrl)

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &env{
		base:   server.URL,
		client: &http.Client{Jar: jar},
		xnat:   fake,
		db:     db,
		spool:  spool,
	}
}

func (e *env) login(t *testing.T, username, password string) *http.Response {
	t.Helper()

	resp, err := e.client.PostForm(e.base+"/login", url.Values{
		"username": {username},
		"password": {password},
	})
	require.NoError(t, err)
	return resp
}

// upload posts a multipart batch and returns the page following the redirect.
func (e *env) upload(t *testing.T, fields map[string]string, files map[string]string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}
	for name, content := range files {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	resp, err := e.client.Post(e.base+"/upload", w.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}
