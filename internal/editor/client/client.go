// Package client talks to the Clariox posts API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clariox/internal/ai"
	authmodel "clariox/internal/auth/model"
	"clariox/internal/post/model"
)

var ErrUnauthorized = errors.New("unauthorized")

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Detail)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

const (
	defaultUserAgent = "clariox/0.1"
	requestTimeout   = 35 * time.Second
	maxErrorBody     = 4 << 10
)

type Client struct {
	baseURL   *url.URL
	http      *http.Client
	token     string
	userAgent string
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New builds a Client for the API at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("api url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("api url %q has no host", raw)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u, nil
}

// Token returns the bearer token in use.
func (c *Client) Token() string {
	return c.token
}

// SetToken is not safe to call while requests are running.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) List(ctx context.Context) ([]model.Post, error) {
	var posts []model.Post
	if err := c.do(ctx, http.MethodGet, "/api/posts", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) Get(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	if err := c.do(ctx, http.MethodGet, postPath(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Create(ctx context.Context, title string, content json.RawMessage) (*model.Post, error) {
	var p model.Post
	body := model.CreatePostRequest{Title: title, Content: content}
	if err := c.do(ctx, http.MethodPost, "/api/posts", body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Save sends title and content only; the publish status is left untouched.
func (c *Client) Save(ctx context.Context, id, title string, content json.RawMessage) (*model.Post, error) {
	return c.patch(ctx, id, model.UpdatePostRequest{Title: &title, Content: content})
}

func (c *Client) SetStatus(ctx context.Context, id string, status model.Status) (*model.Post, error) {
	return c.patch(ctx, id, model.UpdatePostRequest{Status: &status})
}

func (c *Client) patch(ctx context.Context, id string, req model.UpdatePostRequest) (*model.Post, error) {
	var p model.Post
	if err := c.do(ctx, http.MethodPatch, postPath(id), req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, postPath(id), nil, nil)
}

// Login stores the returned token on the client and returns it.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	return c.authenticate(ctx, "/api/auth/login", email, password)
}

func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	return c.authenticate(ctx, "/api/auth/register", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (string, error) {
	var tok authmodel.TokenResponse
	creds := authmodel.Credentials{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, path, creds, &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("empty access token in response")
	}
	c.token = tok.AccessToken
	return tok.AccessToken, nil
}

// Generate implements ai.Generator against the server's AI endpoint.
func (c *Client) Generate(ctx context.Context, text string, mode ai.Mode) (string, error) {
	var resp ai.GenerateResponse
	if err := c.do(ctx, http.MethodPost, "/api/ai/generate", ai.GenerateRequest{Text: text, Type: mode}, &resp); err != nil {
		return "", err
	}
	return resp.Result, nil
}

func postPath(id string) string {
	return "/api/posts/" + id
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	reqURL := *c.baseURL
	reqURL.Path = c.baseURL.Path + path
	reqURL.RawPath = ""

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(detail))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
