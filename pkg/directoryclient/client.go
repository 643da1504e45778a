// Package directoryclient is a Go client for the user directory REST API.
// Listings are read through an explicit Cache which successful mutations
// invalidate.
package directoryclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/crm-admin-api/internal/models"
	"github.com/noah-isme/crm-admin-api/internal/service"
	"github.com/noah-isme/crm-admin-api/internal/userquery"
	appErrors "github.com/noah-isme/crm-admin-api/pkg/errors"
)

const (
	defaultPrefix  = "/api"
	defaultTimeout = 10 * time.Second
)

// Client talks to the directory API. Requests are never retried.
type Client struct {
	baseURL string
	prefix  string
	http    *http.Client
	cache   Cache
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache sets the listing cache. Without it every ListUsers call hits the API.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithPrefix overrides the API prefix, "/api" by default.
func WithPrefix(prefix string) Option {
	return func(c *Client) { c.prefix = strings.TrimRight(prefix, "/") }
}

// New builds a Client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		prefix:  defaultPrefix,
		http:    &http.Client{Timeout: defaultTimeout},
		cache:   noCache{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = noCache{}
	}
	return c
}

// UsersKey is the cache key for the user listing.
func (c *Client) UsersKey() string {
	return c.prefix + "/users"
}

// ListUsers returns every user, served from the cache when present.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	key := c.UsersKey()
	if users, ok := c.cache.Get(key); ok {
		return users, nil
	}
	version := c.cache.Version(key)
	var users []models.User
	if err := c.do(ctx, http.MethodGet, key, nil, &users); err != nil {
		return nil, err
	}
	c.cache.SetIfVersion(key, users, version)
	return users, nil
}

// View fetches the listing and derives one page of it locally.
func (c *Client) View(ctx context.Context, controls userquery.Controls) (userquery.Result, error) {
	users, err := c.ListUsers(ctx)
	if err != nil {
		return userquery.Result{}, err
	}
	return userquery.Derive(users, controls), nil
}

// GetUser fetches a single user.
func (c *Client) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, c.userPath(id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser adds a user and drops the cached listing.
func (c *Client) CreateUser(ctx context.Context, req service.CreateUserRequest) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodPost, c.UsersKey(), req, &user); err != nil {
		return nil, err
	}
	c.cache.Invalidate(c.UsersKey())
	return &user, nil
}

// UpdateUser applies a partial update and drops the cached listing.
func (c *Client) UpdateUser(ctx context.Context, id int64, req service.UpdateUserRequest) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodPatch, c.userPath(id), req, &user); err != nil {
		return nil, err
	}
	c.cache.Invalidate(c.UsersKey())
	return &user, nil
}

// DeleteUser removes a user and drops the cached listing.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, c.userPath(id), nil, nil); err != nil {
		return err
	}
	c.cache.Invalidate(c.UsersKey())
	return nil
}

func (c *Client) userPath(id int64) string {
	return c.UsersKey() + "/" + strconv.FormatInt(id, 10)
}

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
}

// do sends one request. API failures come back as *appErrors.Error so callers
// can match them with errors.Is against ErrNotFound, ErrConflict and so on.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode >= http.StatusBadRequest {
			return statusError(resp.StatusCode)
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		if env.Error != nil {
			env.Error.Status = resp.StatusCode
			return env.Error
		}
		return statusError(resp.StatusCode)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// statusError maps a bare status code onto the matching predefined error.
func statusError(status int) error {
	var base *appErrors.Error
	switch status {
	case http.StatusBadRequest:
		base = appErrors.ErrValidation
	case http.StatusUnauthorized:
		base = appErrors.ErrUnauthorized
	case http.StatusForbidden:
		base = appErrors.ErrForbidden
	case http.StatusNotFound:
		base = appErrors.ErrNotFound
	case http.StatusConflict:
		base = appErrors.ErrConflict
	default:
		base = appErrors.ErrInternal
	}
	e := appErrors.Clone(base, http.StatusText(status))
	e.Status = status
	return e
}

type noCache struct{}

func (noCache) Get(string) ([]models.User, bool)                { return nil, false }
func (noCache) Version(string) uint64                           { return 0 }
func (noCache) SetIfVersion(string, []models.User, uint64) bool { return false }
func (noCache) Invalidate(string)                               {}
