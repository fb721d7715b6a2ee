package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tumapply/internal/domain"
)

const defaultMaxConcurrentUploads = 5

// filesForCategory applies the per-category upload rules. CV keeps only the
// first file of a batch; transcripts and references keep all of them.
func filesForCategory(category domain.DocumentCategory, files []domain.UploadFile) ([]domain.UploadFile, int, error) {
	switch category {
	case domain.CategoryCV, domain.CategoryReference, domain.CategoryBachelorTranscript, domain.CategoryMasterTranscript:
		if category.SingleFile() && len(files) > 1 {
			return files[:1], len(files) - 1, nil
		}
		return files, 0, nil
	default:
		return nil, 0, fmt.Errorf("%w: uploads for category %q", domain.ErrUnsupported, category)
	}
}

// uploader pushes a batch of files to the document store, a few at a time.
type uploader struct {
	documents     domain.DocumentStore
	maxConcurrent int
	logger        *zap.Logger
}

func newUploader(documents domain.DocumentStore, maxConcurrent int, logger *zap.Logger) *uploader {
	if maxConcurrent < 1 {
		maxConcurrent = defaultMaxConcurrentUploads
	}
	return &uploader{documents: documents, maxConcurrent: maxConcurrent, logger: logger}
}

// upload returns one entry per file, in input order.
func (u *uploader) upload(ctx context.Context, files []domain.UploadFile, uploaderID uuid.UUID) ([]domain.DocumentEntry, error) {
	entries := make([]domain.DocumentEntry, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.maxConcurrent)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			doc, err := u.documents.Upload(gctx, f.Data, domain.UploadMeta{
				FileName:   f.Name,
				MIMEType:   f.MIMEType,
				UploaderID: uploaderID,
			})
			if err != nil {
				return fmt.Errorf("file %q: %w", f.Name, err)
			}
			entries[i] = domain.DocumentEntry{Document: *doc, Name: f.Name}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// prepare filters files for category and uploads them.
func (u *uploader) prepare(ctx context.Context, category domain.DocumentCategory, files []domain.UploadFile, uploaderID uuid.UUID) ([]domain.DocumentEntry, error) {
	selected, dropped, err := filesForCategory(category, files)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		u.logger.Warn("extra files ignored for single-file category",
			zap.String("category", string(category)),
			zap.Int("ignored", dropped),
		)
	}
	return u.upload(ctx, selected, uploaderID)
}
