package database

import (
	"time"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/codec/json"
	"github.com/asdine/storm/v3/q"
	"github.com/brownbnc/mrsuploader/internal/model"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
)

type strm struct {
	db *storm.DB
}

// StormCodec is the format used to store data in the database.
var StormCodec = storm.Codec(json.Codec)

// StormInit initializes Storm database.
func StormInit(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	if err := db.Init(&model.Session{}); err != nil {
		return errors.Wrap(err, "could not init session index")
	}

	err = db.Init(&model.Upload{})
	return errors.Wrap(err, "could not init upload index")
}

// StormReIndex reindexes Storm database.
func StormReIndex(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	if err := db.ReIndex(&model.Session{}); err != nil {
		return errors.Wrap(err, "could not ReIndex sessions")
	}

	err = db.ReIndex(&model.Upload{})
	return errors.Wrap(err, "could not ReIndex uploads")
}

// StormOpen opens the Storm database and returns a Client.
func StormOpen(database string) (Client, error) {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return nil, errors.Wrap(err, "could not get database connection")
	}

	return &strm{
		db: db,
	}, nil
}

func (c *strm) Save(m model.Model) error {
	t := time.Now().UTC()
	m.SetUpdatedAt(t)

	if m.GetID() == "" {
		m.SetID(uuid.Must(uuid.NewV4()).String())
		m.SetCreatedAt(t)
	}

	return errors.Wrap(c.db.Save(m), "could not save the model")
}

func (c *strm) Delete(m model.Model) error {
	return errors.Wrap(c.db.DeleteStruct(m), "could not delete the model")
}

func (c *strm) Close() error {
	return c.db.Close()
}

func (c *strm) IsNotFound(err error) bool {
	return errors.Cause(err) == storm.ErrNotFound
}

//
// Session
//

func (c *strm) FindSessionByToken(token string) (*model.Session, error) {
	var session model.Session
	err := c.db.One("Token", token, &session)
	return &session, errors.Wrap(err, "could not find session")
}

func (c *strm) ExpiredSessions(t time.Time) ([]*model.Session, error) {
	sessions := make([]*model.Session, 0)
	err := c.db.Select(q.Lt("ExpiresAt", t)).Find(&sessions)
	return sessions, errors.Wrap(err, "could not get expired sessions")
}

func (c *strm) DeleteSession(id string) error {
	err := c.db.Select(q.Eq("ID", id)).Delete(&model.Session{})
	return errors.Wrap(err, "could not delete session")
}

//
// Upload
//

func (c *strm) RecentUploads(limit int) ([]*model.Upload, error) {
	uploads := make([]*model.Upload, 0)
	err := c.db.Select().OrderBy("CreatedAt").Reverse().Limit(limit).Find(&uploads)
	return uploads, errors.Wrap(err, "could not get recent uploads")
}

func (c *strm) UploadsOlderThan(t time.Time) ([]*model.Upload, error) {
	uploads := make([]*model.Upload, 0)
	err := c.db.Select(q.Lt("CreatedAt", t)).Find(&uploads)
	return uploads, errors.Wrap(err, "could not get uploads by age")
}

func (c *strm) FindUploadsBySpoolBatch(batch string) ([]*model.Upload, error) {
	uploads := make([]*model.Upload, 0)
	err := c.db.Select(q.Eq("SpoolBatch", batch)).Find(&uploads)
	return uploads, errors.Wrap(err, "could not get uploads by spool_batch")
}

func (c *strm) DeleteUpload(id string) error {
	err := c.db.Select(q.Eq("ID", id)).Delete(&model.Upload{})
	return errors.Wrap(err, "could not delete upload")
}
