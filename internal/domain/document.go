package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document is an immutable content record. ID is the hex SHA-256 of the content.
type Document struct {
	ID        string    `json:"id" db:"id"`
	Path      string    `json:"path" db:"path"`
	MIMEType  string    `json:"mime_type" db:"mime_type"`
	SizeBytes int64     `json:"size_bytes" db:"size_bytes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type DocumentCategory string

const (
	CategoryCV                 DocumentCategory = "CV"
	CategoryReference          DocumentCategory = "REFERENCE"
	CategoryBachelorTranscript DocumentCategory = "BACHELOR_TRANSCRIPT"
	CategoryMasterTranscript   DocumentCategory = "MASTER_TRANSCRIPT"
	CategoryCustom             DocumentCategory = "CUSTOM"
)

// ProfileCategories are the categories shared between a profile and its
// applications. CUSTOM documents belong to custom-field answers.
var ProfileCategories = []DocumentCategory{
	CategoryCV,
	CategoryReference,
	CategoryBachelorTranscript,
	CategoryMasterTranscript,
}

// ParseDocumentCategory accepts the category names case-insensitively.
func ParseDocumentCategory(raw string) (DocumentCategory, error) {
	c := DocumentCategory(strings.ToUpper(strings.TrimSpace(raw)))
	switch c {
	case CategoryCV, CategoryReference, CategoryBachelorTranscript, CategoryMasterTranscript, CategoryCustom:
		return c, nil
	default:
		return "", fmt.Errorf("%w: document category %q", ErrUnsupported, raw)
	}
}

// SingleFile reports whether an upload replaces the category with one file.
func (c DocumentCategory) SingleFile() bool {
	return c == CategoryCV
}

// DocumentAssociation links one Document to exactly one owner under a category.
// Only Name is ever changed in place.
type DocumentAssociation struct {
	ID        uuid.UUID
	Document  Document
	Name      string
	Category  DocumentCategory
	Owner     OwnerRef
	CreatedAt time.Time
}

// DocumentEntry is one element of the desired set passed to reconciliation.
type DocumentEntry struct {
	Document Document
	Name     string
}

// DocumentDescriptor is the lightweight view handed to callers.
type DocumentDescriptor struct {
	ID          uuid.UUID        `json:"id"`
	DisplayName string           `json:"displayName"`
	Category    DocumentCategory `json:"category"`
	MIMEType    string           `json:"mimeType"`
	SizeBytes   int64            `json:"sizeBytes"`
}

func (a DocumentAssociation) Descriptor() DocumentDescriptor {
	return DocumentDescriptor{
		ID:          a.ID,
		DisplayName: a.Name,
		Category:    a.Category,
		MIMEType:    a.Document.MIMEType,
		SizeBytes:   a.Document.SizeBytes,
	}
}

func Descriptors(associations []DocumentAssociation) []DocumentDescriptor {
	out := make([]DocumentDescriptor, 0, len(associations))
	for _, a := range associations {
		out = append(out, a.Descriptor())
	}
	return out
}

// UploadFile is a file received from a client before it reaches the store.
type UploadFile struct {
	Name     string
	MIMEType string
	Data     []byte
}

// UploadMeta describes the blob passed to a DocumentStore.
type UploadMeta struct {
	FileName   string
	MIMEType   string
	UploaderID uuid.UUID
}
