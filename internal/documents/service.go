package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"lexease-backend/internal/extract"
	"lexease-backend/internal/shared/metrics"
	"lexease-backend/internal/shared/storage/object"
	"lexease-backend/internal/shared/telemetry"
)

// TextExtractor turns a stored upload into plain text.
type TextExtractor interface {
	ExtractStored(ctx context.Context, store object.ObjectStore, key, mimeType, fileName string) (extract.Result, error)
}

// Presigner is implemented by stores that can hand out direct download URLs.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

const downloadURLTTL = 15 * time.Minute

// Service contains business logic for documents.
type Service struct {
	Store     object.ObjectStore
	Repo      DocumentsRepo
	Extractor TextExtractor
}

// Upload stores the file, extracts its text and records the document.
// Unsupported or unreadable files are removed from the store again.
func (s *Service) Upload(ctx context.Context, userID, fileName, declaredMime string, r io.Reader) (Document, error) {
	fileName = strings.TrimSpace(fileName)
	if userID == "" || fileName == "" {
		return Document{}, ErrInvalidInput
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}

	obj, err := s.Store.Save(ctx, userID, fileName, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("%w: save upload: %w", ErrPersistence, err)
	}

	mimeType := declaredMime
	if mimeType == "" {
		mimeType = obj.MimeType
	}
	res, err := s.Extractor.ExtractStored(ctx, s.Store, obj.Key, mimeType, fileName)
	if err != nil {
		s.discard(ctx, obj.Key)
		return Document{}, err
	}

	now := time.Now().UTC()
	doc := Document{
		ID:           uuid.NewString(),
		UserID:       userID,
		FileName:     fileName,
		MimeType:     res.MimeType,
		SizeBytes:    obj.Size,
		StorageKey:   obj.Key,
		DocumentText: res.Text,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		s.discard(ctx, obj.Key)
		return Document{}, err
	}

	metrics.IncDocumentsIngested()
	telemetry.Info("document.ingested", map[string]any{
		"document_id": doc.ID,
		"user_id":     userID,
		"mime_type":   doc.MimeType,
		"method":      res.Method,
		"size_bytes":  doc.SizeBytes,
		"text_chars":  len(doc.DocumentText),
	})
	return doc, nil
}

// Get returns a document owned by userID.
func (s *Service) Get(ctx context.Context, userID, documentID string) (Document, error) {
	if userID == "" || documentID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID, documentID)
}

// Current returns the latest document for a user.
func (s *Service) Current(ctx context.Context, userID string) (Document, error) {
	if userID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetCurrentByUser(ctx, userID)
}

// List returns a user's documents, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Delete removes the record and, best effort, the stored upload and its
// extracted text.
func (s *Service) Delete(ctx context.Context, userID, documentID string) error {
	doc, err := s.Get(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, userID, documentID); err != nil {
		return err
	}
	if doc.StorageKey != "" {
		s.discard(ctx, doc.StorageKey)
		s.discard(ctx, doc.StorageKey+".extracted.txt")
	}
	telemetry.Info("document.deleted", map[string]any{"document_id": documentID, "user_id": userID})
	return nil
}

// Download is either a presigned URL or an open reader over the stored bytes.
type Download struct {
	URL      string
	Body     io.ReadCloser
	FileName string
	MimeType string
}

// Download resolves how the original upload should be served.
func (s *Service) Download(ctx context.Context, userID, documentID string) (Download, error) {
	doc, err := s.Get(ctx, userID, documentID)
	if err != nil {
		return Download{}, err
	}
	out := Download{FileName: doc.FileName, MimeType: doc.MimeType}
	if p, ok := s.Store.(Presigner); ok {
		url, err := p.PresignGet(ctx, doc.StorageKey, downloadURLTTL)
		if err != nil {
			return Download{}, fmt.Errorf("presign %s: %w", documentID, err)
		}
		out.URL = url
		return out, nil
	}
	body, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Download{}, ErrNotFound
		}
		return Download{}, err
	}
	out.Body = body
	return out, nil
}

func (s *Service) discard(ctx context.Context, key string) {
	if err := s.Store.Delete(ctx, key); err != nil && !errors.Is(err, object.ErrNotFound) {
		telemetry.Warn("document.discard_failed", map[string]any{"storage_key": key, "error": err})
	}
}
