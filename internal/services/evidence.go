package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"saasan/internal/events"
	"saasan/internal/models"
	"saasan/internal/storage"

	"github.com/gabriel-vasile/mimetype"
	"gorm.io/gorm"
)

type EvidenceService struct {
	*core
	store         storage.BlobStore
	uploadTimeout time.Duration
	maxBytes      int64
	maxFiles      int
}

// UploadFile is one file of an upload request, fully read into memory.
type UploadFile struct {
	Name string
	Data []byte
}

var documentTypes = []string{
	"application/pdf",
	"text/plain",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.oasis.opendocument.text",
	"application/rtf",
	"text/rtf",
}

// Classify sniffs the content and maps it to an evidence file type. Only
// the detected type counts, never the client's file name or header.
func Classify(data []byte) (models.FileType, string, error) {
	mt := mimetype.Detect(data)
	switch {
	case mt.Is("image/png"), mt.Is("image/jpeg"), mt.Is("image/gif"), mt.Is("image/webp"), mt.Is("image/heic"):
		return models.FileTypeImage, mt.String(), nil
	case mt.Is("audio/mpeg"), mt.Is("audio/wav"), mt.Is("audio/ogg"), mt.Is("audio/mp4"), mt.Is("audio/aac"), mt.Is("audio/amr"), mt.Is("audio/flac"):
		return models.FileTypeAudio, mt.String(), nil
	}
	for _, doc := range documentTypes {
		if mt.Is(doc) {
			return models.FileTypeDocument, mt.String(), nil
		}
	}
	return "", mt.String(), validationf("unsupported file type %s", mt.String())
}

// checkEvidenceAccess admits only the reporter of a non-terminal report.
func checkEvidenceAccess(report *models.Report, actor Actor) error {
	if !report.OwnedBy(actor.ID) {
		return fmt.Errorf("%w: only the reporter may manage evidence", ErrForbidden)
	}
	if report.Status.Terminal() {
		return fmt.Errorf("%w: report is %s", ErrInvalidState, report.Status)
	}
	return nil
}

type classifiedFile struct {
	UploadFile
	fileType    models.FileType
	contentType string
}

// Upload stores every file externally, then commits all metadata at once.
// On any failure the already stored objects are released and no evidence
// row is written.
func (s *EvidenceService) Upload(ctx context.Context, reportID string, files []UploadFile, actor Actor) ([]models.Evidence, error) {
	unlock := s.lockReport(reportID)
	defer unlock()

	report, err := findReport(s.db.WithContext(ctx), reportID)
	if err != nil {
		return nil, err
	}
	if err := checkEvidenceAccess(report, actor); err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, validationf("at least one file is required")
	}
	if len(files) > s.maxFiles {
		return nil, validationf("at most %d files per upload", s.maxFiles)
	}
	classified := make([]classifiedFile, 0, len(files))
	for _, f := range files {
		if len(f.Data) == 0 {
			return nil, validationf("file %q is empty", f.Name)
		}
		if int64(len(f.Data)) > s.maxBytes {
			return nil, validationf("file %q exceeds %d bytes", f.Name, s.maxBytes)
		}
		ft, ct, err := Classify(f.Data)
		if err != nil {
			return nil, fmt.Errorf("file %q: %w", f.Name, err)
		}
		if !storage.Accepts(s.store, ct) {
			return nil, validationf("file %q: %s evidence is not accepted by the configured storage", f.Name, ft)
		}
		classified = append(classified, classifiedFile{UploadFile: f, fileType: ft, contentType: ct})
	}

	refs := make([]string, 0, len(classified))
	for _, f := range classified {
		putCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
		ref, err := s.store.Put(putCtx, storage.Object{Name: f.Name, ContentType: f.contentType, Data: f.Data})
		cancel()
		if err != nil {
			s.metrics.EvidenceFiles.WithLabelValues("failed").Inc()
			s.metrics.StorageFailures.WithLabelValues("put").Inc()
			s.release(ctx, refs)
			if errors.Is(err, storage.ErrUnsupportedType) {
				return nil, validationf("file %q: %v", f.Name, err)
			}
			return nil, fmt.Errorf("%w: %s: %v", ErrUpload, f.Name, err)
		}
		refs = append(refs, ref)
	}

	evidence := make([]models.Evidence, len(classified))
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos int
		if err := tx.Model(&models.Evidence{}).
			Where("report_id = ?", reportID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPos).Error; err != nil {
			return fmt.Errorf("read evidence position: %w", err)
		}
		uploadedAt := s.now()
		for i, f := range classified {
			evidence[i] = models.Evidence{
				ReportID:     reportID,
				FileType:     f.fileType,
				OriginalName: f.Name,
				ContentType:  f.contentType,
				SizeBytes:    int64(len(f.Data)),
				StorageRef:   refs[i],
				Position:     maxPos + i + 1,
				UploadedAt:   uploadedAt,
			}
		}
		return tx.Create(&evidence).Error
	})
	if err != nil {
		s.release(ctx, refs)
		return nil, fmt.Errorf("save evidence: %w", err)
	}

	s.metrics.EvidenceFiles.WithLabelValues("stored").Add(float64(len(evidence)))
	s.stats.Invalidate(ctx)
	ids := make([]string, len(evidence))
	for i := range evidence {
		ids[i] = evidence[i].ID
	}
	s.publish(ctx, events.Event{
		Type:     events.EvidenceAdded,
		ReportID: reportID,
		ActorID:  actor.ID,
		Data:     map[string]any{"evidenceIds": ids},
	})
	return evidence, nil
}

// release best-effort deletes objects stored by a failed upload.
func (s *EvidenceService) release(ctx context.Context, refs []string) {
	for _, ref := range refs {
		delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.uploadTimeout)
		err := s.store.Delete(delCtx, ref)
		cancel()
		if err != nil {
			s.metrics.StorageFailures.WithLabelValues("compensate").Inc()
			s.logger.WarnContext(ctx, "failed to release orphaned evidence object", "ref", ref, "error", err)
		}
	}
}

// Delete removes one evidence file. The row is deleted inside a transaction
// that only commits once the external object is released, so a storage
// failure keeps the metadata.
func (s *EvidenceService) Delete(ctx context.Context, reportID, evidenceID string, actor Actor) error {
	unlock := s.lockReport(reportID)
	defer unlock()

	report, err := findReport(s.db.WithContext(ctx), reportID)
	if err != nil {
		return err
	}
	if !report.OwnedBy(actor.ID) {
		return fmt.Errorf("%w: only the reporter may manage evidence", ErrForbidden)
	}

	var ev models.Evidence
	err = s.db.WithContext(ctx).Where("id = ? AND report_id = ?", evidenceID, reportID).Take(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("evidence", evidenceID)
	}
	if err != nil {
		return fmt.Errorf("load evidence: %w", err)
	}
	if err := checkEvidenceAccess(report, actor); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ev).Error; err != nil {
			return fmt.Errorf("delete evidence: %w", err)
		}
		delCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
		if err := s.store.Delete(delCtx, ev.StorageRef); err != nil {
			s.metrics.StorageFailures.WithLabelValues("delete").Inc()
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.EvidenceFiles.WithLabelValues("deleted").Inc()
	s.stats.Invalidate(ctx)
	s.publish(ctx, events.Event{
		Type:     events.EvidenceDeleted,
		ReportID: reportID,
		ActorID:  actor.ID,
		Data:     map[string]any{"evidenceId": evidenceID},
	})
	return nil
}
