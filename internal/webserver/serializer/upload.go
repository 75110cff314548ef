package serializer

import (
	"fmt"
	"strings"

	"github.com/brownbnc/mrsuploader/internal/model"
)

// TextUploads returns the text serialized form of the given models.
func TextUploads(uploads []*model.Upload) string {
	sl := make([]string, 0, len(uploads))

	for _, upload := range uploads {
		sl = append(sl, fmt.Sprintf("%s %s %s/%s/%s scan=%s %s",
			upload.CreatedAt.Format("2006-01-02 15:04:05"),
			upload.Status,
			upload.Project, upload.Subject, upload.Experiment,
			upload.ScanID,
			upload.Filename,
		))
	}

	return strings.Join(sl, "\n")
}

// Uploads returns the serialized form of the given models.
func Uploads(uploads []*model.Upload) []map[string]interface{} {
	sl := make([]map[string]interface{}, 0, len(uploads))

	for _, upload := range uploads {
		sl = append(sl, Upload(upload))
	}

	return sl
}

// Upload returns the serialized form of the given model.
func Upload(upload *model.Upload) map[string]interface{} {
	return map[string]interface{}{
		"filename":   upload.Filename,
		"kind":       upload.Kind,
		"project":    upload.Project,
		"subject":    upload.Subject,
		"experiment": upload.Experiment,
		"scan_id":    upload.ScanID,
		"resource":   upload.Resource,
		"bytes":      upload.Size,
		"hash":       upload.Checksum,
		"status":     upload.Status,
		"message":    upload.Message,
		"uploaded":   upload.CreatedAt,
	}
}
