package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clariox/internal/post/mocks"
	"clariox/internal/post/model"
	"clariox/internal/post/service"
	"clariox/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	updated []string
	deleted []string
}

func (n *recordingNotifier) PostUpdated(p *model.Post, _ string) { n.updated = append(n.updated, p.ID) }
func (n *recordingNotifier) PostDeleted(id string)              { n.deleted = append(n.deleted, id) }

func setup(t *testing.T) (*mocks.MockPostRepository, *recordingNotifier, http.Handler) {
	t.Helper()
	repo := &mocks.MockPostRepository{}
	notifier := &recordingNotifier{}
	h := NewPostHandler(service.NewPostService(repo), notifier)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/posts", h.ListPosts)
	mux.HandleFunc("POST /api/posts", h.CreatePost)
	mux.HandleFunc("GET /api/posts/{id}", h.GetPost)
	mux.HandleFunc("PATCH /api/posts/{id}", h.UpdatePost)
	mux.HandleFunc("DELETE /api/posts/{id}", h.DeletePost)

	withUser := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.UserIDKey, "user-1")
		mux.ServeHTTP(w, r.WithContext(ctx))
	})
	return repo, notifier, withUser
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListPosts(t *testing.T) {
	repo, _, h := setup(t)
	repo.On("ListByOwner", mock.Anything, "user-1").Return([]model.Post{
		{ID: "p1", Title: "One", Status: model.StatusDraft, Content: json.RawMessage(`{}`)},
	}, nil)

	rec := do(h, http.MethodGet, "/api/posts", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var posts []model.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "One", posts[0].Title)
	repo.AssertExpectations(t)
}

func TestCreatePost(t *testing.T) {
	repo, _, h := setup(t)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(p *model.Post) bool {
		return p.OwnerID == "user-1" && p.Title == "Draft" && p.Status == model.StatusDraft
	})).Return(nil)

	rec := do(h, http.MethodPost, "/api/posts", `{"title":"Draft","content":{"root":{"type":"root"}}}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var p model.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Draft", p.Title)
	repo.AssertExpectations(t)
}

func TestGetPostNotFound(t *testing.T) {
	repo, _, h := setup(t)
	repo.On("GetByID", mock.Anything, "missing", "user-1").Return(nil, model.ErrNotFound)

	rec := do(h, http.MethodGet, "/api/posts/missing", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePostAutoSavePayload(t *testing.T) {
	repo, notifier, h := setup(t)
	now := time.Now()
	repo.On("Update", mock.Anything, "p1", "user-1", mock.MatchedBy(func(req model.UpdatePostRequest) bool {
		return req.Title != nil && *req.Title == "B" && string(req.Content) == `{"root":{}}` && req.Status == nil
	})).Return(&model.Post{ID: "p1", Title: "B", Content: json.RawMessage(`{"root":{}}`), Status: model.StatusDraft, UpdatedAt: now}, nil)

	rec := do(h, http.MethodPatch, "/api/posts/p1", `{"title":"B","content":{"root":{}}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"p1"}, notifier.updated)
	repo.AssertExpectations(t)
}

func TestUpdatePostStatusOnly(t *testing.T) {
	repo, _, h := setup(t)
	repo.On("Update", mock.Anything, "p1", "user-1", mock.MatchedBy(func(req model.UpdatePostRequest) bool {
		return req.Title == nil && req.Content == nil && req.Status != nil && *req.Status == model.StatusPublished
	})).Return(&model.Post{ID: "p1", Status: model.StatusPublished}, nil)

	rec := do(h, http.MethodPatch, "/api/posts/p1", `{"status":"published"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"published"`)
}

func TestUpdatePostRejectsBadInput(t *testing.T) {
	repo, notifier, h := setup(t)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPatch, "/api/posts/p1", `{"status":"archived"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPatch, "/api/posts/p1", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPatch, "/api/posts/p1", `{"content":"text"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPatch, "/api/posts/p1", `not json`).Code)

	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, notifier.updated)
}

func TestDeletePost(t *testing.T) {
	repo, notifier, h := setup(t)
	repo.On("Delete", mock.Anything, "p1", "user-1").Return(nil)
	repo.On("Delete", mock.Anything, "p2", "user-1").Return(model.ErrNotFound)

	assert.Equal(t, http.StatusNoContent, do(h, http.MethodDelete, "/api/posts/p1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodDelete, "/api/posts/p2", "").Code)
	assert.Equal(t, []string{"p1"}, notifier.deleted)
}
