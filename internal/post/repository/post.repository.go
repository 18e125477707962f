package repository

import (
	"context"
	"database/sql"
	"errors"

	"clariox/internal/post/model"
	"clariox/pkg/logger"
)

const postColumns = `id, owner_id, title, content, status, created_at, updated_at`

type PostRepository struct {
	DB *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{DB: db}
}

func (r *PostRepository) Create(ctx context.Context, p *model.Post) error {
	// lib/pq wants a string for JSONB, not []byte
	err := r.DB.QueryRowContext(ctx, `INSERT INTO posts (id, owner_id, title, content, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at`,
		p.ID, p.OwnerID, p.Title, string(p.Content), string(p.Status),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		logger.Sugar.Errorf("Failed to create post: %v", err)
	}
	return err
}

func (r *PostRepository) GetByID(ctx context.Context, id, ownerID string) (*model.Post, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1 AND owner_id = $2`, id, ownerID)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get post %s: %v", id, err)
		return nil, err
	}
	return p, nil
}

func (r *PostRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Post, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+postColumns+` FROM posts WHERE owner_id = $1 ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list posts for user %s: %v", ownerID, err)
		return nil, err
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			logger.Sugar.Warnf("Skipping unreadable post row: %v", err)
			continue
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// Update applies the non-nil fields of req and returns the updated record.
func (r *PostRepository) Update(ctx context.Context, id, ownerID string, req model.UpdatePostRequest) (*model.Post, error) {
	var title, content, status sql.NullString
	if req.Title != nil {
		title = sql.NullString{String: *req.Title, Valid: true}
	}
	if len(req.Content) > 0 {
		content = sql.NullString{String: string(req.Content), Valid: true}
	}
	if req.Status != nil {
		status = sql.NullString{String: string(*req.Status), Valid: true}
	}

	row := r.DB.QueryRowContext(ctx, `UPDATE posts SET
			title = COALESCE($3, title),
			content = COALESCE($4::jsonb, content),
			status = COALESCE($5, status),
			updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+postColumns,
		id, ownerID, title, content, status)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to update post %s: %v", id, err)
		return nil, err
	}
	return p, nil
}

func (r *PostRepository) Delete(ctx context.Context, id, ownerID string) error {
	result, err := r.DB.ExecContext(ctx, "DELETE FROM posts WHERE id = $1 AND owner_id = $2", id, ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete post %s: %v", id, err)
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*model.Post, error) {
	var p model.Post
	var content []byte
	var status string
	if err := s.Scan(&p.ID, &p.OwnerID, &p.Title, &content, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Content = content
	p.Status = model.Status(status)
	return &p, nil
}
