package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/endritk/taskboard/internal/auth"
	"github.com/endritk/taskboard/internal/middleware"
	"github.com/endritk/taskboard/internal/models"
	"github.com/endritk/taskboard/internal/store"
)

// ---------------------------------------------------------------------------
// in-memory fakes
// ---------------------------------------------------------------------------

type fakeUserStore struct {
	byID map[string]*models.User
	seq  int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: map[string]*models.User{}}
}

func (f *fakeUserStore) CreateUser(_ context.Context, username, passwordHash, firstName, lastName string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Username == username {
			return nil, store.ErrUsernameTaken
		}
	}
	f.seq++
	u := &models.User{
		ID:           fmt.Sprintf("user-%d", f.seq),
		Username:     username,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    time.Now(),
	}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUserStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) UpdateProfile(_ context.Context, id string, firstName, lastName, passwordHash *string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	if firstName != nil {
		u.FirstName = *firstName
	}
	if lastName != nil {
		u.LastName = *lastName
	}
	if passwordHash != nil {
		u.PasswordHash = *passwordHash
	}
	return u, nil
}

func (f *fakeUserStore) SetAvatar(_ context.Context, id, avatarURL string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	u.AvatarURL = avatarURL
	return u, nil
}

type fakeTaskStore struct {
	tasks []models.Task
}

func (f *fakeTaskStore) Insert(_ context.Context, task *models.Task) (*models.Task, error) {
	task.ID = primitive.NewObjectID()
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	f.tasks = append(f.tasks, *task)
	return task, nil
}

type fakeFileStore struct {
	objects map[string][]byte
}

func (f *fakeFileStore) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = data
	return nil
}

// ---------------------------------------------------------------------------
// test harness
// ---------------------------------------------------------------------------

type env struct {
	router *chi.Mux
	users  *fakeUserStore
	tasks  *fakeTaskStore
	files  *fakeFileStore
	tokens *auth.Tokens
}

func newEnv(t *testing.T) *env {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	e := &env{
		users:  newFakeUserStore(),
		tasks:  &fakeTaskStore{},
		files:  &fakeFileStore{},
		tokens: auth.NewTokens("test-secret", time.Hour),
	}
	revoked := auth.NewRevocationList(rdb)
	h := auth.NewHandler(e.users, e.tasks, e.files, e.tokens, revoked)

	r := chi.NewRouter()
	r.Post("/api/auth/register", h.Register)
	r.Post("/api/auth/login", h.Login)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(e.tokens, revoked))
		r.Post("/api/auth/logout", h.Logout)
		r.Get("/api/auth/me", h.Me)
		r.Put("/api/auth/me", h.UpdateMe)
		r.Post("/api/auth/avatar", h.UploadAvatar)
	})
	e.router = r
	return e
}

func (e *env) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) register(t *testing.T, username, password string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Username: username, Password: password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

// ---------------------------------------------------------------------------
// tests
// ---------------------------------------------------------------------------

func TestRegisterIssuesTokenAndSeedsTasks(t *testing.T) {
	e := newEnv(t)

	token := e.register(t, "alice", "pw1")

	claims, err := e.tokens.Verify(token)
	require.NoError(t, err)

	_, err = e.users.GetUserByID(context.Background(), claims.UserID)
	require.NoError(t, err, "token resolves to the created account")

	require.Len(t, e.tasks.tasks, 3)
	for _, task := range e.tasks.tasks {
		assert.Equal(t, claims.UserID, task.UserID)
		assert.Equal(t, models.PriorityLow, task.Priority)
		assert.Equal(t, models.StatusTodo, task.Status)
		assert.NotEmpty(t, task.Title)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice", "pw1")

	w := e.do(t, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Username: "alice", Password: "other",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")
}

func TestRegisterMissingCredentials(t *testing.T) {
	e := newEnv(t)

	for _, req := range []models.RegisterRequest{
		{Username: "", Password: "pw"},
		{Username: "alice", Password: ""},
		{},
	} {
		w := e.do(t, http.MethodPost, "/api/auth/register", "", req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestRegisterNeverStoresPlaintextPassword(t *testing.T) {
	e := newEnv(t)
	token := e.register(t, "alice", "pw1")

	claims, err := e.tokens.Verify(token)
	require.NoError(t, err)
	u := e.users.byID[claims.UserID]
	assert.NotEqual(t, "pw1", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("pw1")))
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice", "pw1")

	w := e.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Username: "alice", Password: "pw1"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	_, err := e.tokens.Verify(resp.Token)
	assert.NoError(t, err)
}

func TestLoginUniformFailureMessage(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice", "pw1")

	wrongPassword := e.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Username: "alice", Password: "wrong"})
	unknownUser := e.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Username: "bob", Password: "pw1"})

	assert.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	assert.Equal(t, http.StatusBadRequest, unknownUser.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String(),
		"wrong password and unknown user must be indistinguishable")
}

func TestMe(t *testing.T) {
	e := newEnv(t)
	token := e.register(t, "alice", "pw1")

	w := e.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var profile map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "alice", profile["username"])
	assert.NotContains(t, profile, "password")
	assert.NotContains(t, profile, "passwordHash")
}

func TestMeAccountGone(t *testing.T) {
	e := newEnv(t)
	token := e.register(t, "alice", "pw1")

	e.users.byID = map[string]*models.User{}

	w := e.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateProfilePartial(t *testing.T) {
	e := newEnv(t)
	token := e.register(t, "alice", "pw1")

	first := "Alice"
	w := e.do(t, http.MethodPut, "/api/auth/me", token, models.UpdateProfileRequest{FirstName: &first})
	require.Equal(t, http.StatusOK, w.Code)

	var profile models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "Alice", profile.FirstName)
	assert.Equal(t, "", profile.LastName, "omitted fields stay untouched")
}

func TestUpdateProfileRehashesPassword(t *testing.T) {
	e := newEnv(t)
	token := e.register(t, "alice", "pw1")

	newPassword := "pw2"
	w := e.do(t, http.MethodPut, "/api/auth/me", token, models.UpdateProfileRequest{Password: &newPassword})
	require.Equal(t, http.StatusOK, w.Code)

	claims, err := e.tokens.Verify(token)
	require.NoError(t, err)
	u := e.users.byID[claims.UserID]
	assert.NotEqual(t, "pw2", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("pw2")))

	login := e.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Username: "alice", Password: "pw2"})
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestUploadAvatar(t *testing.T) {
	e := newEnv(t)
	token := e.register(t, "alice", "pw1")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/avatar", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var profile models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Contains(t, profile.AvatarURL, "/uploads/")
	require.Len(t, e.files.objects, 1)
	for _, data := range e.files.objects {
		assert.Equal(t, []byte("png-bytes"), data)
	}
}

func TestUploadAvatarMissingFile(t *testing.T) {
	e := newEnv(t)
	token := e.register(t, "alice", "pw1")

	w := e.do(t, http.MethodPost, "/api/auth/avatar", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	e := newEnv(t)
	token := e.register(t, "alice", "pw1")

	w := e.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	after := e.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, after.Code, "revoked token must be rejected")
}
