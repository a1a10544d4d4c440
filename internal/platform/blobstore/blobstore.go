// Package blobstore stores supporting documentation attached to
// prior-authorization requests. It defines the BlobStore interface, an
// in-memory implementation suitable for testing and development, and Echo
// HTTP handlers for multipart upload, download, metadata retrieval, listing
// by request, and deletion.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var (
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrMissingFileName    = errors.New("file name is required")
	ErrMissingRequestID   = errors.New("request_id is required")
	ErrInvalidCategory    = errors.New("category is not allowed")
)

// MaxFileSize is the maximum allowed attachment size in bytes (50 MB).
const MaxFileSize = 50 * 1024 * 1024

// AllowedCategories lists valid attachment category values. They mirror the
// documentation a payer typically asks for before authorizing a procedure.
var AllowedCategories = map[string]bool{
	"clinical-notes": true,
	"imaging":        true,
	"consult-note":   true,
	"lab-report":     true,
	"other":          true,
}

// AttachmentMetadata describes a stored attachment without its content.
type AttachmentMetadata struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	RequestID   string    `json:"request_id"`
	Category    string    `json:"category"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

// BlobStore defines the contract for attachment storage backends.
type BlobStore interface {
	Upload(ctx context.Context, meta AttachmentMetadata, content io.Reader) (*AttachmentMetadata, error)
	Download(ctx context.Context, id string) (io.ReadCloser, *AttachmentMetadata, error)
	GetMetadata(ctx context.Context, id string) (*AttachmentMetadata, error)
	ListByRequest(ctx context.Context, requestID string, limit, offset int) ([]*AttachmentMetadata, int, error)
	Delete(ctx context.Context, id string) error
}

type storedAttachment struct {
	metadata AttachmentMetadata
	content  []byte
}

// InMemoryBlobStore is a thread-safe, in-memory BlobStore for testing/dev.
type InMemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string]*storedAttachment
}

// NewInMemoryBlobStore returns a ready-to-use InMemoryBlobStore.
func NewInMemoryBlobStore() *InMemoryBlobStore {
	return &InMemoryBlobStore{
		blobs: make(map[string]*storedAttachment),
	}
}

// Upload validates inputs, reads the content, computes a SHA-256 hash, and
// stores the attachment in memory.
func (s *InMemoryBlobStore) Upload(_ context.Context, meta AttachmentMetadata, content io.Reader) (*AttachmentMetadata, error) {
	if meta.FileName == "" {
		return nil, ErrMissingFileName
	}
	if meta.RequestID == "" {
		return nil, ErrMissingRequestID
	}
	if meta.Category == "" {
		meta.Category = "other"
	}
	if !AllowedCategories[meta.Category] {
		return nil, ErrInvalidCategory
	}

	// Read content into memory so we can measure size and compute hash.
	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	h := sha256.Sum256(data)

	meta.ID = uuid.New().String()
	meta.Size = int64(len(data))
	meta.Hash = fmt.Sprintf("%x", h)
	meta.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	s.blobs[meta.ID] = &storedAttachment{
		metadata: meta,
		content:  data,
	}
	s.mu.Unlock()

	out := meta // copy
	return &out, nil
}

// Download returns an io.ReadCloser over the attachment content and its
// metadata.
func (s *InMemoryBlobStore) Download(_ context.Context, id string) (io.ReadCloser, *AttachmentMetadata, error) {
	s.mu.RLock()
	blob, ok := s.blobs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, ErrAttachmentNotFound
	}

	meta := blob.metadata // copy
	return io.NopCloser(bytes.NewReader(blob.content)), &meta, nil
}

// GetMetadata returns attachment metadata without content.
func (s *InMemoryBlobStore) GetMetadata(_ context.Context, id string) (*AttachmentMetadata, error) {
	s.mu.RLock()
	blob, ok := s.blobs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrAttachmentNotFound
	}

	meta := blob.metadata // copy
	return &meta, nil
}

// ListByRequest returns attachments for a prior-authorization request, newest
// first. It returns the matching page and the total count.
func (s *InMemoryBlobStore) ListByRequest(_ context.Context, requestID string, limit, offset int) ([]*AttachmentMetadata, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*AttachmentMetadata
	for _, b := range s.blobs {
		if b.metadata.RequestID != requestID {
			continue
		}
		m := b.metadata // copy
		matched = append(matched, &m)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if limit <= 0 {
		limit = 20
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	return matched[offset:end], total, nil
}

// Delete removes an attachment by ID.
func (s *InMemoryBlobStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[id]; !ok {
		return ErrAttachmentNotFound
	}
	delete(s.blobs, id)
	return nil
}

// listResponse is the JSON envelope returned by the list endpoint.
type listResponse struct {
	Items []*AttachmentMetadata `json:"items"`
	Total int                   `json:"total"`
}

// BlobHandler provides Echo HTTP handlers for attachment operations.
type BlobHandler struct {
	store BlobStore
}

// NewBlobHandler creates a new BlobHandler.
func NewBlobHandler(store BlobStore) *BlobHandler {
	return &BlobHandler{store: store}
}

// RegisterRoutes mounts attachment routes on the supplied Echo group.
func (h *BlobHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/attachments/upload", h.handleUpload)
	g.GET("/attachments/request/:requestId", h.handleListByRequest)
	g.GET("/attachments/:id/metadata", h.handleGetMetadata)
	g.GET("/attachments/:id", h.handleDownload)
	g.DELETE("/attachments/:id", h.handleDelete)
}

func (h *BlobHandler) handleUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to open uploaded file"})
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	meta := AttachmentMetadata{
		FileName:    file.Filename,
		ContentType: contentType,
		RequestID:   c.FormValue("request_id"),
		Category:    c.FormValue("category"),
		CreatedBy:   c.FormValue("created_by"),
	}

	result, err := h.store.Upload(c.Request().Context(), meta, src)
	if err != nil {
		switch {
		case errors.Is(err, ErrFileTooLarge):
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrMissingFileName), errors.Is(err, ErrMissingRequestID), errors.Is(err, ErrInvalidCategory):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}

	return c.JSON(http.StatusCreated, result)
}

func (h *BlobHandler) handleDownload(c echo.Context) error {
	id := c.Param("id")

	rc, meta, err := h.store.Download(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrAttachmentNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	defer rc.Close()

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, meta.FileName))
	return c.Stream(http.StatusOK, meta.ContentType, rc)
}

func (h *BlobHandler) handleGetMetadata(c echo.Context) error {
	id := c.Param("id")

	meta, err := h.store.GetMetadata(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrAttachmentNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, meta)
}

func (h *BlobHandler) handleListByRequest(c echo.Context) error {
	requestID := c.Param("requestId")
	limit := intParam(c, "limit", 20)
	offset := intParam(c, "offset", 0)

	items, total, err := h.store.ListByRequest(c.Request().Context(), requestID, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if items == nil {
		items = []*AttachmentMetadata{}
	}

	return c.JSON(http.StatusOK, listResponse{Items: items, Total: total})
}

func (h *BlobHandler) handleDelete(c echo.Context) error {
	id := c.Param("id")

	err := h.store.Delete(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrAttachmentNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.NoContent(http.StatusNoContent)
}

func intParam(c echo.Context, name string, defaultVal int) int {
	v := c.QueryParam(name)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
