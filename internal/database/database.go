package database

import (
	"time"

	"github.com/brownbnc/mrsuploader/internal/model"
)

type (
	// A Client can interacts with the database.
	Client interface {
		// Save inserts or updates the entry in database with the given model.
		Save(m model.Model) error
		// Delete deletes the entry in database with the given model.
		Delete(m model.Model) error
		// Close the database.
		Close() error
		// IsNotFound returns true if err is nil or a not found error.
		IsNotFound(err error) bool

		SessionInteraction
		UploadInteraction
	}

	// A SessionInteraction defines all the methods used to interact with a session record.
	SessionInteraction interface {
		FindSessionByToken(token string) (*model.Session, error)
		ExpiredSessions(t time.Time) ([]*model.Session, error)
		DeleteSession(id string) error
	}

	// An UploadInteraction defines all the methods used to interact with an upload record.
	UploadInteraction interface {
		RecentUploads(limit int) ([]*model.Upload, error)
		UploadsOlderThan(t time.Time) ([]*model.Upload, error)
		FindUploadsBySpoolBatch(batch string) ([]*model.Upload, error)
		DeleteUpload(id string) error
	}
)
