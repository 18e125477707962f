package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"clariox/internal/editor/content"
	"clariox/internal/post/model"

	"github.com/google/uuid"
)

// Repository is the persistence the service needs; *repository.PostRepository
// satisfies it.
type Repository interface {
	Create(ctx context.Context, p *model.Post) error
	GetByID(ctx context.Context, id, ownerID string) (*model.Post, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Post, error)
	Update(ctx context.Context, id, ownerID string, req model.UpdatePostRequest) (*model.Post, error)
	Delete(ctx context.Context, id, ownerID string) error
}

type PostService struct {
	Repo Repository
}

func NewPostService(repo Repository) *PostService {
	return &PostService{Repo: repo}
}

func (s *PostService) CreatePost(ctx context.Context, ownerID string, req model.CreatePostRequest) (*model.Post, error) {
	body, err := normalizeContent(req.Content)
	if err != nil {
		return nil, err
	}
	if body == nil {
		body = content.Empty()
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = model.DefaultTitle
	}

	p := &model.Post{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Title:   title,
		Content: body,
		Status:  model.StatusDraft,
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostService) GetPost(ctx context.Context, ownerID, id string) (*model.Post, error) {
	return s.Repo.GetByID(ctx, id, ownerID)
}

func (s *PostService) ListPosts(ctx context.Context, ownerID string) ([]model.Post, error) {
	return s.Repo.ListByOwner(ctx, ownerID)
}

func (s *PostService) UpdatePost(ctx context.Context, ownerID, id string, req model.UpdatePostRequest) (*model.Post, error) {
	body, err := normalizeContent(req.Content)
	if err != nil {
		return nil, err
	}
	req.Content = body
	if req.Status != nil && !req.Status.Valid() {
		return nil, model.ErrInvalidStatus
	}
	if req.Empty() {
		return nil, model.ErrEmptyUpdate
	}
	return s.Repo.Update(ctx, id, ownerID, req)
}

// SavePost writes title and content together, the way the editor auto-saves.
func (s *PostService) SavePost(ctx context.Context, ownerID, id, title string, body json.RawMessage) (*model.Post, error) {
	return s.UpdatePost(ctx, ownerID, id, model.UpdatePostRequest{Title: &title, Content: body})
}

func (s *PostService) SetStatus(ctx context.Context, ownerID, id string, status model.Status) (*model.Post, error) {
	return s.UpdatePost(ctx, ownerID, id, model.UpdatePostRequest{Status: &status})
}

func (s *PostService) DeletePost(ctx context.Context, ownerID, id string) error {
	return s.Repo.Delete(ctx, id, ownerID)
}

// normalizeContent treats a missing or null body as absent and rejects
// anything that is not a JSON object.
func normalizeContent(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, model.ErrInvalidBody
	}
	return json.RawMessage(trimmed), nil
}
