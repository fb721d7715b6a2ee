package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tumapply/internal/domain"
	"tumapply/internal/metrics"
	"tumapply/internal/service/s3"
)

const defaultContentType = "application/octet-stream"

// BlobDocumentStore is a content-addressed document store: bytes go to the
// bucket under their SHA-256, metadata goes to the documents table.
type BlobDocumentStore struct {
	blobs       s3.Storage
	store       domain.Store
	maxFileSize int64
	logger      *zap.Logger
}

func NewBlobDocumentStore(blobs s3.Storage, store domain.Store, maxFileSize int64, logger *zap.Logger) *BlobDocumentStore {
	return &BlobDocumentStore{
		blobs:       blobs,
		store:       store,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

func objectKey(hash string) string {
	return fmt.Sprintf("documents/%s/%s", hash[:2], hash)
}

// Upload stores data once per distinct content and returns its Document.
func (s *BlobDocumentStore) Upload(ctx context.Context, data []byte, meta domain.UploadMeta) (*domain.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file %q is empty", domain.ErrInvalidParameter, meta.FileName)
	}
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: file %q exceeds %d bytes", domain.ErrInvalidParameter, meta.FileName, s.maxFileSize)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	documents := s.store.Repos().Documents

	existing, err := documents.GetByID(ctx, hash)
	if err == nil {
		metrics.DocumentsUploaded.WithLabelValues("deduplicated").Inc()
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	contentType := meta.MIMEType
	if contentType == "" {
		contentType = defaultContentType
	}

	key := objectKey(hash)
	// A blob without a row is left over from a failed insert.
	exists, err := s.blobs.ObjectExists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	if !exists {
		if err := s.blobs.UploadBytes(ctx, key, data, contentType); err != nil {
			s.logger.Error("document upload failed",
				zap.String("key", key),
				zap.String("uploader", meta.UploaderID.String()),
				zap.Error(err),
			)
			return nil, fmt.Errorf("%w: %v", domain.ErrUpload, err)
		}
	}

	doc := &domain.Document{
		ID:        hash,
		Path:      key,
		MIMEType:  contentType,
		SizeBytes: int64(len(data)),
	}
	if err := documents.CreateIfAbsent(ctx, doc); err != nil {
		return nil, err
	}

	metrics.DocumentsUploaded.WithLabelValues("stored").Inc()
	return doc, nil
}

// Download returns the bytes of doc.
func (s *BlobDocumentStore) Download(ctx context.Context, doc domain.Document) ([]byte, error) {
	data, err := s.blobs.DownloadBytes(ctx, doc.Path)
	if err != nil {
		if errors.Is(err, s3.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, doc.ID)
		}
		return nil, err
	}
	return data, nil
}
