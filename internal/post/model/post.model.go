package model

import (
	"encoding/json"
	"errors"
	"time"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Toggle returns the opposite publish state.
func (s Status) Toggle() Status {
	if s == StatusPublished {
		return StatusDraft
	}
	return StatusPublished
}

const DefaultTitle = "Untitled"

var (
	ErrNotFound      = errors.New("post not found")
	ErrInvalidStatus = errors.New("status must be draft or published")
	ErrEmptyUpdate   = errors.New("nothing to update")
	ErrInvalidBody   = errors.New("content must be a JSON object")
)

type Post struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"-"`
	Title     string          `json:"title"`
	Content   json.RawMessage `json:"content"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type CreatePostRequest struct {
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
}

// UpdatePostRequest is a partial update; nil fields are left untouched.
type UpdatePostRequest struct {
	Title   *string         `json:"title,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
	Status  *Status         `json:"status,omitempty"`
}

func (r UpdatePostRequest) Empty() bool {
	return r.Title == nil && len(r.Content) == 0 && r.Status == nil
}
