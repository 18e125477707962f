package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"clariox/internal/post/model"
	"clariox/internal/post/service"
	"clariox/middleware"
	"clariox/pkg/logger"
)

// Notifier is told about saved posts so live editor sessions can refresh.
type Notifier interface {
	PostUpdated(post *model.Post, userID string)
	PostDeleted(postID string)
}

type PostHandler struct {
	Service  *service.PostService
	Notifier Notifier
}

func NewPostHandler(service *service.PostService, notifier Notifier) *PostHandler {
	return &PostHandler{Service: service, Notifier: notifier}
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	posts, err := h.Service.ListPosts(r.Context(), userID)
	if err != nil {
		logger.Sugar.Errorf("Error fetching posts: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req model.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	post, err := h.Service.CreatePost(r.Context(), userID, req)
	if err != nil {
		h.fail(w, "create post", err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	post, err := h.Service.GetPost(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.fail(w, "get post", err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req model.UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	post, err := h.Service.UpdatePost(r.Context(), userID, r.PathValue("id"), req)
	if err != nil {
		h.fail(w, "update post", err)
		return
	}
	if h.Notifier != nil {
		h.Notifier.PostUpdated(post, userID)
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	postID := r.PathValue("id")

	if err := h.Service.DeletePost(r.Context(), userID, postID); err != nil {
		h.fail(w, "delete post", err)
		return
	}
	if h.Notifier != nil {
		h.Notifier.PostDeleted(postID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PostHandler) fail(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, "Post not found", http.StatusNotFound)
	case errors.Is(err, model.ErrInvalidStatus), errors.Is(err, model.ErrEmptyUpdate), errors.Is(err, model.ErrInvalidBody):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Sugar.Errorf("Handler: Failed to %s: %v", action, err)
		http.Error(w, "Database error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
