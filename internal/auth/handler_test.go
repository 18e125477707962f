package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"clariox/internal/auth/model"
	"clariox/internal/auth/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUsers struct {
	mu      sync.Mutex
	byEmail map[string]*model.User
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return model.ErrEmailTaken
	}
	cp := *u
	m.byEmail[u.Email] = &cp
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return u, nil
}

func newHandler() *AuthHandler {
	repo := &memUsers{byEmail: map[string]*model.User{}}
	return NewAuthHandler(service.NewAuthService(repo, "secret", time.Hour))
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestRegisterAndLogin(t *testing.T) {
	h := newHandler()

	rec := post(h.Register, `{"email":"a@example.com","password":"longenough"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var tok model.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	assert.NotEmpty(t, tok.AccessToken)
	assert.Equal(t, "bearer", tok.TokenType)

	rec = post(h.Login, `{"email":"a@example.com","password":"longenough"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterDuplicate(t *testing.T) {
	h := newHandler()
	require.Equal(t, http.StatusOK, post(h.Register, `{"email":"a@example.com","password":"longenough"}`).Code)

	rec := post(h.Register, `{"email":"a@example.com","password":"longenough"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email already registered")
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHandler()
	assert.Equal(t, http.StatusUnauthorized, post(h.Login, `{"email":"a@example.com","password":"whatever1"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h.Login, `{`).Code)
}
