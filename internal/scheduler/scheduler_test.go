package scheduler

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brownbnc/mrsuploader/internal/database"
	"github.com/brownbnc/mrsuploader/internal/model"
	"github.com/brownbnc/mrsuploader/internal/storage"
	"github.com/mdouchement/logger"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (Controller, string) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	db, err := database.StormOpen(filepath.Join(t.TempDir(), "mrsup.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	workspace := t.TempDir()

	return Controller{
		Logger:           logger.WrapLogrus(log),
		Database:         db,
		Spool:            storage.NewFileSystem(workspace),
		JournalRetention: 30 * 24 * time.Hour,
		SpoolRetention:   7 * 24 * time.Hour,
	}, workspace
}

func stage(t *testing.T, spool storage.Backend, batch, filename string) {
	t.Helper()

	wc, err := spool.Writer(batch, filename)
	require.NoError(t, err)
	_, err = io.WriteString(wc, "content")
	require.NoError(t, err)
	require.NoError(t, wc.Close())
}

// backdate makes a stored record look older than it is.
func backdate(t *testing.T, c Controller, m model.Model, at time.Time) {
	t.Helper()

	m.SetCreatedAt(at)
	require.NoError(t, c.Database.Save(m))
}

func TestPurgeSpoolKeepsBatchesWithoutJournalRows(t *testing.T) {
	c, _ := setup(t)

	// Staged but not journaled yet: an upload in flight.
	stage(t, c.Spool, "batch-inflight", "spect.rda")

	purgeSpool(c)

	batches, err := c.Spool.Batches()
	require.NoError(t, err)
	assert.Equal(t, []string{"batch-inflight"}, batches)
}

func TestPurgeSpoolRemovesAbandonedBatches(t *testing.T) {
	c, workspace := setup(t)

	stage(t, c.Spool, "batch-crashed", "spect.rda")

	old := time.Now().Add(-8 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(workspace, "batch-crashed"), old, old))

	purgeSpool(c)

	batches, err := c.Spool.Batches()
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestPurgeSpoolHonorsRetention(t *testing.T) {
	c, _ := setup(t)

	stage(t, c.Spool, "batch-failed", "spect.rda")
	upload := &model.Upload{
		Filename:   "spect.rda",
		Status:     model.UploadStatusFailed,
		SpoolBatch: "batch-failed",
	}
	require.NoError(t, c.Database.Save(upload))

	// Fresh failure: retained for recovery.
	purgeSpool(c)
	batches, err := c.Spool.Batches()
	require.NoError(t, err)
	assert.Equal(t, []string{"batch-failed"}, batches)

	// Past the retention window: purged.
	backdate(t, c, upload, time.Now().UTC().Add(-8*24*time.Hour))
	purgeSpool(c)
	batches, err = c.Spool.Batches()
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestExpireSessions(t *testing.T) {
	c, _ := setup(t)

	expired := &model.Session{Token: "tk-old", Username: "tester", ExpiresAt: time.Now().UTC().Add(-time.Minute)}
	require.NoError(t, c.Database.Save(expired))
	live := &model.Session{Token: "tk-live", Username: "tester", ExpiresAt: time.Now().UTC().Add(time.Minute)}
	require.NoError(t, c.Database.Save(live))

	expireSessions(c)

	_, err := c.Database.FindSessionByToken("tk-old")
	assert.True(t, c.Database.IsNotFound(err))
	_, err = c.Database.FindSessionByToken("tk-live")
	assert.NoError(t, err)
}

func TestPruneJournal(t *testing.T) {
	c, _ := setup(t)

	stale := &model.Upload{Filename: "old.rda", Status: model.UploadStatusUploaded}
	require.NoError(t, c.Database.Save(stale))
	backdate(t, c, stale, time.Now().UTC().Add(-31*24*time.Hour))

	fresh := &model.Upload{Filename: "new.rda", Status: model.UploadStatusUploaded}
	require.NoError(t, c.Database.Save(fresh))

	pruneJournal(c)

	uploads, err := c.Database.RecentUploads(10)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, "new.rda", uploads[0].Filename)
}
