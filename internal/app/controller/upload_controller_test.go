package controller

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPresigner struct {
	err         error
	contentType string
}

func (s *stubPresigner) PresignProductImage(_ context.Context, _, contentType string) (*storage.PresignedURLResponse, error) {
	s.contentType = contentType
	if s.err != nil {
		return nil, s.err
	}
	if _, err := storage.ValidateImageContentType(contentType); err != nil {
		return nil, err
	}
	return &storage.PresignedURLResponse{
		UploadURL: "https://bucket.example.com/products/abc.png?X-Amz-Signature=sig",
		FileURL:   "https://cdn.example.com/products/abc.png",
		Key:       "products/abc.png",
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

func TestUploadController_GeneratePresignedURL(t *testing.T) {
	srv := newTestServer(t)
	_, token := srv.createUser(t, "owner@example.com", model.RoleUser)

	t.Run("requires authentication", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/upload/presigned-url", GeneratePresignedURLRequest{Filename: "a.png", ContentType: "image/png"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("image", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/upload/presigned-url", GeneratePresignedURLRequest{Filename: "a.png", ContentType: "image/png"}, withToken(token))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decodeJSON(t, w)
		assert.Equal(t, "products/abc.png", body["key"])
		assert.NotEmpty(t, body["upload_url"])
		assert.Equal(t, "image/png", srv.presigner.contentType)
	})

	t.Run("non-image content type", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/upload/presigned-url", GeneratePresignedURLRequest{Filename: "a.pdf", ContentType: "application/pdf"}, withToken(token))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "UPLOAD_INVALID_FILE_TYPE", decodeJSON(t, w)["error"])
	})

	t.Run("missing fields", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/upload/presigned-url", map[string]interface{}{}, withToken(token))
		require.Equal(t, http.StatusBadRequest, w.Code)
		fields := decodeJSON(t, w)["fields"].(map[string]interface{})
		assert.Contains(t, fields, "filename")
		assert.Contains(t, fields, "content_type")
	})

	t.Run("storage failure", func(t *testing.T) {
		srv.presigner.err = errors.New("credentials expired")
		defer func() { srv.presigner.err = nil }()

		w := srv.do(t, http.MethodPost, "/upload/presigned-url", GeneratePresignedURLRequest{Filename: "a.png", ContentType: "image/png"}, withToken(token))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "UPLOAD_FAILED", decodeJSON(t, w)["error"])
	})
}
