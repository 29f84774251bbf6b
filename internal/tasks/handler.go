package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/endritk/taskboard/internal/auth"
	"github.com/endritk/taskboard/internal/models"
	"github.com/endritk/taskboard/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// TaskStore defines the interface for task persistence. Updates and deletes
// match on id and owner in one predicate, so "not owned" reads as "not found".
type TaskStore interface {
	Insert(ctx context.Context, task *models.Task) (*models.Task, error)
	ListByOwner(ctx context.Context, userID string) ([]models.Task, error)
	UpdateByOwner(ctx context.Context, userID, id string, fields bson.M) (*models.Task, error)
	DeleteByOwner(ctx context.Context, userID, id string) error
}

// Handler holds task HTTP handlers.
type Handler struct {
	store TaskStore
}

func NewHandler(store TaskStore) *Handler {
	return &Handler{store: store}
}

// List returns the current user's tasks, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	tasks, err := h.store.ListByOwner(r.Context(), userID)
	if err != nil {
		log.Printf("list tasks error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Create stores a new task owned by the current user. The owner comes from
// the token, never from the request body.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req models.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Priority == "" {
		req.Priority = models.PriorityLow
	}
	if req.Status == "" {
		req.Status = models.StatusTodo
	}
	if !models.ValidPriority(req.Priority) {
		writeError(w, http.StatusBadRequest, "invalid priority")
		return
	}
	if !models.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}

	task := &models.Task{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		Deadline:    req.Deadline,
		Tags:        req.Tags,
		FileURL:     req.FileURL,
	}
	saved, err := h.store.Insert(r.Context(), task)
	if err != nil {
		log.Printf("create task error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Update applies a partial update to one of the current user's tasks.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	id := chi.URLParam(r, "id")

	var req models.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := bson.M{}
	if req.Title != nil {
		if *req.Title == "" {
			writeError(w, http.StatusBadRequest, "title is required")
			return
		}
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Priority != nil {
		if !models.ValidPriority(*req.Priority) {
			writeError(w, http.StatusBadRequest, "invalid priority")
			return
		}
		fields["priority"] = *req.Priority
	}
	if req.Status != nil {
		if !models.ValidStatus(*req.Status) {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		fields["status"] = *req.Status
	}
	if req.Deadline != nil {
		fields["deadline"] = *req.Deadline
	}
	if req.Tags != nil {
		fields["tags"] = *req.Tags
	}
	if req.FileURL != nil {
		fields["file_url"] = *req.FileURL
	}

	task, err := h.store.UpdateByOwner(r.Context(), userID, id, fields)
	if errors.Is(err, store.ErrTaskNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		log.Printf("update task error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete removes one of the current user's tasks. Deleting an id that is
// already gone, or that belongs to someone else, is a 404 either way.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	id := chi.URLParam(r, "id")

	err := h.store.DeleteByOwner(r.Context(), userID, id)
	if errors.Is(err, store.ErrTaskNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		log.Printf("delete task error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "task removed"})
}
