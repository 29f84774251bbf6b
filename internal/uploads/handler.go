package uploads

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// FileStore defines the interface for file storage.
type FileStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
}

// Handler accepts file uploads and serves them back under /uploads/{name}.
// Object keys are freshly generated per upload, so concurrent uploads never
// collide.
type Handler struct {
	files FileStore
}

func NewHandler(files FileStore) *Handler {
	return &Handler{files: files}
}

// Upload stores the multipart "file" field and returns its serving URL,
// which callers attach to tasks as their file reference.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "no file uploaded"})
		return
	}
	defer file.Close()

	name := uuid.New().String() + filepath.Ext(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if err := h.files.Upload(r.Context(), name, file, header.Size, contentType); err != nil {
		log.Printf("file upload error: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "upload failed"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": "/uploads/" + name})
}

// Serve streams a stored object back to the client.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, contentType, err := h.files.Download(r.Context(), name)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "file not found"})
		return
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Write(data)
}
