package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/endritk/taskboard/internal/models"
	"github.com/endritk/taskboard/internal/store"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash, firstName, lastName string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, firstName, lastName, passwordHash *string) (*models.User, error)
	SetAvatar(ctx context.Context, id, avatarURL string) (*models.User, error)
}

// TaskSeeder inserts the sample tasks a fresh account starts with.
type TaskSeeder interface {
	Insert(ctx context.Context, task *models.Task) (*models.Task, error)
}

// FileStore defines the interface for avatar file storage.
type FileStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users   UserStore
	tasks   TaskSeeder
	files   FileStore
	tokens  *Tokens
	revoked *RevocationList
}

func NewHandler(users UserStore, tasks TaskSeeder, files FileStore, tokens *Tokens, revoked *RevocationList) *Handler {
	return &Handler{users: users, tasks: tasks, files: files, tokens: tokens, revoked: revoked}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// seedTasks are created for every new account so the dashboard is not empty
// on first login.
var seedTasks = []models.Task{
	{Title: "Email the team", Description: "Let the team know about the weekly plan."},
	{Title: "Finish the presentation", Description: "Slides for the upcoming meeting."},
	{Title: "Collect client feedback", Description: "Ask clients for new suggestions."},
}

// Register creates a new account, seeds its sample tasks and returns a token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.Username, string(hashed), req.FirstName, req.LastName)
	if errors.Is(err, store.ErrUsernameTaken) {
		writeError(w, http.StatusBadRequest, "user already exists")
		return
	}
	if err != nil {
		log.Printf("create user error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	for _, seed := range seedTasks {
		task := seed
		task.UserID = user.ID
		task.Priority = models.PriorityLow
		task.Status = models.StatusTodo
		task.Tags = []string{}
		if _, err := h.tasks.Insert(r.Context(), &task); err != nil {
			log.Printf("seed task error: %v", err)
		}
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, models.TokenResponse{Token: token})
}

// Login authenticates a user and returns a token. Unknown usernames and
// wrong passwords get the same response so accounts cannot be enumerated.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.users.GetUserByUsername(r.Context(), req.Username)
	if errors.Is(err, store.ErrUserNotFound) {
		writeError(w, http.StatusBadRequest, "invalid credentials")
		return
	}
	if err != nil {
		log.Printf("login lookup error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusBadRequest, "invalid credentials")
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, models.TokenResponse{Token: token})
}

// Logout revokes the presented token for the remainder of its lifetime.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	raw, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	claims, err := h.tokens.Verify(raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	if err := h.revoked.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		log.Printf("revoke token error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the current user's profile, password hash excluded.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	user, err := h.users.GetUserByID(r.Context(), userID)
	if errors.Is(err, store.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		log.Printf("get user error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe applies a partial profile update. A supplied password is re-hashed
// before it is stored; omitted fields keep their values.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var passwordHash *string
	if req.Password != nil && *req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		s := string(hashed)
		passwordHash = &s
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, req.FirstName, req.LastName, passwordHash)
	if errors.Is(err, store.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		log.Printf("update profile error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UploadAvatar stores the uploaded image and records its serving path.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	name := uuid.New().String() + filepath.Ext(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if err := h.files.Upload(r.Context(), name, file, header.Size, contentType); err != nil {
		log.Printf("avatar upload error: %v", err)
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	user, err := h.users.SetAvatar(r.Context(), userID, "/uploads/"+name)
	if errors.Is(err, store.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		log.Printf("set avatar error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
