package scheduler

import (
	"time"

	"github.com/brownbnc/mrsuploader/internal/database"
	"github.com/brownbnc/mrsuploader/internal/storage"
	"github.com/mdouchement/logger"
	"github.com/robfig/cron/v3"
)

// A Controller is an Inversion Of Control pattern used to init the scheduler package.
type Controller struct {
	Logger           logger.Logger
	Database         database.Client
	Spool            storage.Backend
	Specification    string
	JournalRetention time.Duration
	SpoolRetention   time.Duration
}

// Start lauches the scheduler asynchronously.
func Start(c Controller) {
	cron := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))

	log := c.Logger.WithPrefix("[scheduler]")

	_, err := cron.AddFunc(c.Specification, func() {
		expireSessions(c)
		pruneJournal(c)
		purgeSpool(c)
	})
	if err != nil {
		panic(err)
	}
	log.Info("Maintenance task registred")

	cron.Start()
	log.Info("Scheduler is running")
}

func expireSessions(c Controller) {
	log := c.Logger.WithPrefix("[sessions]")

	sessions, err := c.Database.ExpiredSessions(time.Now().UTC())
	if err != nil && !c.Database.IsNotFound(err) {
		log.Error(err)
		return
	}

	for _, session := range sessions {
		if err := c.Database.DeleteSession(session.ID); err != nil {
			log.Error(err)
			return
		}
		log.Infof("Expired session of %s", session.Username)
	}
}

func pruneJournal(c Controller) {
	log := c.Logger.WithPrefix("[journal]")

	uploads, err := c.Database.UploadsOlderThan(time.Now().UTC().Add(-c.JournalRetention))
	if err != nil && !c.Database.IsNotFound(err) {
		log.Error(err)
		return
	}

	for _, upload := range uploads {
		if err := c.Database.DeleteUpload(upload.ID); err != nil {
			log.Error(err)
			return
		}
	}

	if len(uploads) > 0 {
		log.Infof("Pruned %d journal entries", len(uploads))
	}
}

func purgeSpool(c Controller) {
	log := c.Logger.WithPrefix("[spool]")

	batches, err := c.Spool.Batches()
	if err != nil {
		log.Error(err)
		return
	}

	deadline := time.Now().UTC().Add(-c.SpoolRetention)
	for _, batch := range batches {
		uploads, err := c.Database.FindUploadsBySpoolBatch(batch)
		if err != nil && !c.Database.IsNotFound(err) {
			log.Error(err)
			return
		}

		// No journal rows yet means the batch is still being staged or
		// relayed. Only a crash leftover older than the retention goes.
		if len(uploads) == 0 {
			mtime, err := c.Spool.ModTime(batch)
			if err != nil {
				log.Error(err)
				continue
			}
			if mtime.After(deadline) {
				continue
			}
		}

		stale := true
		for _, upload := range uploads {
			if upload.CreatedAt.After(deadline) {
				stale = false
				break
			}
		}
		if !stale {
			continue
		}

		if err := c.Spool.RemoveBatch(batch); err != nil {
			log.Error(err)
			return
		}
		log.Infof("Removed stale batch %s", batch)
	}

	if err := c.Spool.Cleanup(); err != nil {
		log.Error(err)
	}
}
