// storage.go
package s3

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

// S3Object is a streamed object body with its metadata.
type S3Object interface {
	io.ReadCloser
	ContentLength() int64
	ContentType() string
}

type s3Object struct {
	io.ReadCloser
	contentLength int64
	contentType   string
}

func (o *s3Object) ContentLength() int64 {
	return o.contentLength
}

func (o *s3Object) ContentType() string {
	return o.contentType
}

// Storage is the subset of the bucket API the document store needs.
type Storage interface {
	UploadBytes(ctx context.Context, key string, data []byte, contentType string) error
	DownloadBytes(ctx context.Context, key string) ([]byte, error)
	ObjectExists(ctx context.Context, key string) (bool, error)
}
