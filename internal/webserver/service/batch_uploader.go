package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/brownbnc/mrsuploader/internal/database"
	"github.com/brownbnc/mrsuploader/internal/metrics"
	"github.com/brownbnc/mrsuploader/internal/model"
	"github.com/brownbnc/mrsuploader/internal/rda"
	"github.com/brownbnc/mrsuploader/internal/storage"
	"github.com/brownbnc/mrsuploader/internal/xnat"
	"github.com/gofrs/uuid"
	"github.com/mdouchement/logger"
	"github.com/pkg/errors"
)

type (
	// A BatchUploader relays one batch of spectroscopy files to XNAT. Each
	// file has an independent outcome: one failure never aborts the others.
	BatchUploader struct {
		logger   logger.Logger
		db       database.Client
		spool    storage.Backend
		client   *xnat.Client
		validate bool
	}

	// A File is one uploaded blob of the batch.
	File struct {
		Name string
		Open func() (io.ReadCloser, error)
	}

	// A Result is the outcome for one file.
	Result struct {
		Filename string
		Status   string
		Message  string
		Target   xnat.Target
	}

	// A Report aggregates the outcomes of a batch.
	Report struct {
		Batch      string
		Results    []Result
		Notes      []string
		ReloadURLs []string
	}

	staged struct {
		file     File
		kind     string
		resource string
		size     int64
		checksum string
		identity rda.Identity
	}
)

// NewBatchUploader returns a new BatchUploader.
func NewBatchUploader(l logger.Logger, db database.Client, spool storage.Backend, client *xnat.Client, validate bool) *BatchUploader {
	return &BatchUploader{
		logger:   l,
		db:       db,
		spool:    spool,
		client:   client,
		validate: validate,
	}
}

// Upload relays the batch. Destination identity comes from the RDA headers,
// preempted by the batch defaults and the per-file overrides. TWIX files
// inherit the identity of their matching RDA.
func (s *BatchUploader) Upload(ctx context.Context, creds xnat.Credentials, sessionID string,
	files []File, defaults rda.Identity, overrides map[string]rda.Identity, resource string) (*Report, error) {

	metrics.ActiveBatches.Inc()
	defer metrics.ActiveBatches.Dec()

	report := &Report{
		Batch: uuid.Must(uuid.NewV4()).String(),
	}

	// Partition and stage. Unsupported extensions are rejected before any
	// XNAT interaction.
	stageds := make([]*staged, 0, len(files))
	for _, file := range files {
		ext := strings.ToLower(path.Ext(file.Name))
		if ext != ".rda" && ext != ".dat" {
			report.Results = append(report.Results, s.journal(sessionID, report.Batch,
				&staged{file: file, resource: resource},
				model.UploadStatusRejected, fmt.Sprintf("%s: unsupported extension", file.Name)))
			continue
		}

		st := &staged{file: file, kind: ext[1:], resource: resource}
		if err := s.stage(st, report.Batch); err != nil {
			s.logger.Error(err)
			report.Results = append(report.Results, s.journal(sessionID, report.Batch, st,
				model.UploadStatusFailed, fmt.Sprintf("%s: could not stage file", file.Name)))
			continue
		}
		stageds = append(stageds, st)
	}

	// Derive the RDA identities first, they drive the TWIX files too.
	var candidates []rda.Identity
	for _, st := range stageds {
		if st.kind != "rda" {
			continue
		}

		hdr, err := s.header(report.Batch, st.file.Name)
		if err != nil {
			s.logger.Error(err)
			hdr = rda.Header{}
		}

		identity, notes := rda.Derive(st.file.Name, hdr, defaults)
		if override, ok := overrides[st.file.Name]; ok {
			identity = override.Merge(identity)
		}

		st.identity = identity
		report.Notes = append(report.Notes, notes...)
		candidates = append(candidates, identity)
	}

	for _, st := range stageds {
		if st.kind != "dat" {
			continue
		}

		match, ok := rda.BestMatch(st.file.Name, candidates)
		if !ok {
			if _, overridden := overrides[st.file.Name]; !overridden {
				st.identity = rda.Identity{} // reported below
				continue
			}
			match = rda.Identity{}
		}

		identity := match
		if override, overridden := overrides[st.file.Name]; overridden {
			identity = override.Merge(match)
		}
		st.identity = identity
	}

	// Relay.
	sessions := map[xnat.Target]bool{}
	for _, st := range stageds {
		result := s.relay(ctx, creds, sessionID, report.Batch, st, resource)
		report.Results = append(report.Results, result)

		if result.Status == model.UploadStatusUploaded {
			sessions[xnat.Target{
				Project:    result.Target.Project,
				Subject:    result.Target.Subject,
				Experiment: result.Target.Experiment,
			}] = true

			if err := s.spool.Remove(report.Batch, st.file.Name); err != nil {
				s.logger.Error(err)
			}
		}
	}

	for target := range sessions {
		report.ReloadURLs = append(report.ReloadURLs, s.client.SessionURL(target))
	}
	sort.Strings(report.ReloadURLs)

	if err := s.spool.Cleanup(); err != nil {
		s.logger.Error(err)
	}

	return report, nil
}

// relay uploads one staged file; every failure is a per-file outcome.
func (s *BatchUploader) relay(ctx context.Context, creds xnat.Credentials, sessionID, batch string, st *staged, resource string) Result {
	name := st.file.Name

	if st.kind == "dat" && !st.identity.Complete() && st.identity.SeriesDescription == "" {
		return s.journal(sessionID, batch, st, model.UploadStatusFailed,
			fmt.Sprintf("%s: no matching RDA found", name))
	}
	if !st.identity.Complete() {
		return s.journal(sessionID, batch, st, model.UploadStatusFailed,
			fmt.Sprintf("%s: incomplete destination (project/subject/session required)", name))
	}

	target := xnat.Target{
		Project:    st.identity.Project,
		Subject:    st.identity.Subject,
		Experiment: st.identity.Experiment,
		ScanID:     st.identity.ScanID,
	}

	if s.validate && target.ScanID != "" {
		if msg := s.validateScan(ctx, creds, target, st); msg != "" {
			return s.journal(sessionID, batch, st, model.UploadStatusFailed, msg)
		}
	}

	start := time.Now()

	if err := s.client.EnsureResource(ctx, creds, target, resource); err != nil {
		return s.journal(sessionID, batch, st, model.UploadStatusFailed,
			fmt.Sprintf("%s: could not prepare resource %s (%s)", name, resource, reason(err)))
	}

	err := s.client.UploadFile(ctx, creds, target, resource, name, func() (io.ReadCloser, error) {
		return s.spool.Reader(batch, name)
	})
	if err != nil {
		return s.journal(sessionID, batch, st, model.UploadStatusFailed,
			fmt.Sprintf("%s: upload failed (%s)", name, reason(err)))
	}

	metrics.UploadDuration.Observe(time.Since(start).Seconds())
	metrics.UploadBytes.Add(float64(st.size))

	result := s.journal(sessionID, batch, st, model.UploadStatusUploaded,
		fmt.Sprintf("%s: uploaded successfully (Scan %s)", name, target.ScanID))
	result.Target = target
	return result
}

// validateScan confirms the destination scan is a spectroscopy series with
// a matching study date. It returns a failure message, or "".
func (s *BatchUploader) validateScan(ctx context.Context, creds xnat.Credentials, target xnat.Target, st *staged) string {
	imageType, err := s.client.DicomField(ctx, creds, target, "ImageType")
	if err != nil {
		return fmt.Sprintf("%s: failed to read DICOM metadata (%s)", st.file.Name, reason(err))
	}

	if !strings.Contains(strings.ToUpper(imageType), "SPECTROSCOPY") {
		desc, _ := s.client.DicomField(ctx, creds, target, "SeriesDescription")
		return fmt.Sprintf("%s: target DICOM %q is not spectroscopy (ImageType=%q)", st.file.Name, desc, imageType)
	}

	if st.identity.StudyDate != "" {
		studyDate, err := s.client.DicomField(ctx, creds, target, "StudyDate")
		if err != nil {
			return fmt.Sprintf("%s: failed to read DICOM metadata (%s)", st.file.Name, reason(err))
		}
		if studyDate != st.identity.StudyDate {
			return fmt.Sprintf("%s: StudyDate mismatch - DICOM=%s, RDA=%s", st.file.Name, studyDate, st.identity.StudyDate)
		}
	}

	return ""
}

// stage copies the file into the spool, accounting size and checksum.
func (s *BatchUploader) stage(st *staged, batch string) error {
	rc, err := st.file.Open()
	if err != nil {
		return errors.Wrap(err, "could not open uploaded file")
	}
	defer rc.Close()

	wc, err := s.spool.Writer(batch, st.file.Name)
	if err != nil {
		return err
	}
	defer wc.Close()

	h := md5.New()
	w := io.MultiWriter(h, wc)

	n, err := io.Copy(w, rc)
	if err != nil {
		return errors.Wrap(err, "could not spool uploaded file")
	}

	st.size = n
	st.checksum = hex.EncodeToString(h.Sum(nil))
	return nil
}

func (s *BatchUploader) header(batch, filename string) (rda.Header, error) {
	rc, err := s.spool.Reader(batch, filename)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrap(err, "could not read spooled file")
	}
	return rda.ParseHeader(raw), nil
}

// journal records the outcome and returns it as a Result.
func (s *BatchUploader) journal(sessionID, batch string, st *staged, status, message string) Result {
	metrics.UploadCount.WithLabelValues(status).Inc()

	upload := &model.Upload{
		SessionID:  sessionID,
		Filename:   st.file.Name,
		Kind:       st.kind,
		Project:    st.identity.Project,
		Subject:    st.identity.Subject,
		Experiment: st.identity.Experiment,
		ScanID:     st.identity.ScanID,
		Resource:   st.resource,
		Size:       st.size,
		Checksum:   st.checksum,
		Status:     status,
		Message:    message,
		SpoolBatch: batch,
	}
	if err := s.db.Save(upload); err != nil {
		s.logger.Error(err)
	}

	return Result{
		Filename: st.file.Name,
		Status:   status,
		Message:  message,
		Target: xnat.Target{
			Project:    st.identity.Project,
			Subject:    st.identity.Subject,
			Experiment: st.identity.Experiment,
			ScanID:     st.identity.ScanID,
		},
	}
}

func reason(err error) string {
	if errors.Cause(err) == xnat.ErrUnauthorized {
		return "authentication failed"
	}
	if code := xnat.StatusCode(err); code != 0 {
		return fmt.Sprintf("HTTP %d", code)
	}
	return err.Error()
}
