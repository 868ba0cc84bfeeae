package services

import (
	"bytes"
	"context"
	"path"
	"time"

	"carwash-backend/internal/apperr"
	"carwash-backend/internal/logging"
	"carwash-backend/internal/models"
	"carwash-backend/internal/timeutil"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// ObjectPutter is the part of *s3.Client the archive needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchiveService uploads daily summary PDFs to an S3-compatible bucket.
// With a nil client it is disabled and ArchiveDay does nothing.
type ArchiveService struct {
	Summaries *SummaryService
	Export    *ExportService
	Client    ObjectPutter
	Bucket    string
	Prefix    string
	Logger    *logrus.Logger
}

func NewArchiveService(summaries *SummaryService, export *ExportService, client ObjectPutter, bucket, prefix string, logger *logrus.Logger) *ArchiveService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ArchiveService{
		Summaries: summaries,
		Export:    export,
		Client:    client,
		Bucket:    bucket,
		Prefix:    prefix,
		Logger:    logger,
	}
}

func (s *ArchiveService) Enabled() bool {
	return s != nil && s.Client != nil && s.Bucket != ""
}

// ArchiveKey is <prefix>/<branch code>/<YYYY-MM-DD>.pdf
func (s *ArchiveService) ArchiveKey(branch *models.Branch, day time.Time) string {
	return path.Join(s.Prefix, branch.Code, timeutil.FormatDate(day)+".pdf")
}

// ArchiveDay renders the branch's summary for day and uploads it, returning
// the object key ("" when archiving is disabled).
func (s *ArchiveService) ArchiveDay(ctx context.Context, branch *models.Branch, day time.Time) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	summary, err := s.Summaries.DailySummary(ctx, branch, day, day)
	if err != nil {
		return "", err
	}
	doc, err := s.Export.DailyPDF(summary)
	if err != nil {
		logging.LogError(s.Logger, "ArchiveService", "ArchiveDay", "render pdf", branch.Code, err)
		return "", apperr.Store(err)
	}

	key := s.ArchiveKey(branch, day)
	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(doc),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		logging.LogError(s.Logger, "ArchiveService", "ArchiveDay", "upload", key, err)
		return "", apperr.Store(err)
	}
	s.Logger.WithFields(logrus.Fields{"key": key, "bytes": len(doc)}).Info("daily summary archived")
	return key, nil
}
