// Package client is the Go client of the warranty API. Besides the typed
// calls it carries the session and connection state machines a front end
// needs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

const (
	apiPrefix         = "/api/v1"
	idempotencyHeader = "Idempotency-Key"
	defaultTimeout    = 10 * time.Second
)

// Client talks to one warranty service instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	language   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenStore sets where the session token is kept.
func WithTokenStore(s TokenStore) Option {
	return func(c *Client) { c.tokens = s }
}

// WithLanguage sets the Accept-Language sent with every request.
func WithLanguage(lang string) Option {
	return func(c *Client) { c.language = lang }
}

// New creates a Client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		tokens:     NewMemoryTokenStore(),
		language:   "ar",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tokens returns the token store of the client.
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Code   string          `json:"code"`
	Field  string          `json:"field"`
	Kind   string          `json:"kind"`
	Data   json.RawMessage `json:"data"`
}

type message[T any] struct {
	Message string `json:"message"`
	Result  T      `json:"result"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.language != "" {
		req.Header.Set("Accept-Language", c.language)
	}
	return req, nil
}

// do sends the request and decodes the data of the envelope into out.
// Failures are returned as *apperr.Error.
func (c *Client) do(req *http.Request, out any) error {
	op := "client." + req.Method + " " + req.URL.Path

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindNetwork, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindNetwork, op, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &apperr.Error{Kind: apperr.ClassifyStatus(resp.StatusCode), Op: op, Err: errors.New(resp.Status)}
		}
		return apperr.Wrap(apperr.KindUnknown, op, fmt.Errorf("decode response: %w", err))
	}
	if resp.StatusCode >= http.StatusBadRequest || env.Status != "OK" {
		msg := env.Error
		if msg == "" {
			msg = resp.Status
		}
		return &apperr.Error{
			Kind:  kindFor(resp.StatusCode, env.Kind, msg),
			Op:    op,
			Code:  env.Code,
			Field: env.Field,
			Err:   errors.New(msg),
		}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperr.Wrap(apperr.KindUnknown, op, fmt.Errorf("decode data: %w", err))
	}
	return nil
}

// kindFor restores the refined kind the status code implies; the envelope
// only carries the taxonomy category.
func kindFor(status int, category, msg string) apperr.Kind {
	switch status {
	case http.StatusNotFound:
		return apperr.KindNotFound
	case http.StatusConflict:
		return apperr.KindConflict
	case http.StatusForbidden:
		return apperr.KindForbidden
	case http.StatusTooManyRequests:
		return apperr.KindRateLimited
	}
	if category != "" {
		return apperr.Kind(category)
	}
	if k := apperr.ClassifyStatus(status); k != apperr.KindUnknown {
		return k
	}
	return apperr.ClassifyMessage(msg)
}

func (c *Client) authorized(ctx context.Context, method, path string, body any) (*http.Request, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if token := c.tokens.Load(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// Login exchanges credentials for a session. The token is not stored; that
// is up to Session.
func (c *Client) Login(ctx context.Context, email, password string) (models.Session, error) {
	req, err := c.newRequest(ctx, http.MethodPost, apiPrefix+"/auth/login", models.LoginRequest{Email: email, Password: password})
	if err != nil {
		return models.Session{}, err
	}
	var s models.Session
	if err := c.do(req, &s); err != nil {
		return models.Session{}, err
	}
	return s, nil
}

// Logout revokes the stored session on the server.
func (c *Client) Logout(ctx context.Context) error {
	req, err := c.authorized(ctx, http.MethodPost, apiPrefix+"/auth/logout", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Refresh exchanges the stored token for a new session.
func (c *Client) Refresh(ctx context.Context) (models.Session, error) {
	req, err := c.authorized(ctx, http.MethodPost, apiPrefix+"/auth/refresh", nil)
	if err != nil {
		return models.Session{}, err
	}
	var s models.Session
	if err := c.do(req, &s); err != nil {
		return models.Session{}, err
	}
	return s, nil
}

// SessionInfo describes the stored token.
func (c *Client) SessionInfo(ctx context.Context) (models.SessionInfo, error) {
	req, err := c.authorized(ctx, http.MethodGet, apiPrefix+"/auth/session", nil)
	if err != nil {
		return models.SessionInfo{}, err
	}
	var info models.SessionInfo
	if err := c.do(req, &info); err != nil {
		return models.SessionInfo{}, err
	}
	return info, nil
}

// Products lists the catalog.
func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	req, err := c.authorized(ctx, http.MethodGet, apiPrefix+"/products", nil)
	if err != nil {
		return nil, err
	}
	var products []models.Product
	if err := c.do(req, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// IssueCertificate submits the certificate form. in.RequestToken is sent as
// the idempotency key; callers that retry must set it themselves, since a
// fresh random key is generated for every call that leaves it empty.
func (c *Client) IssueCertificate(ctx context.Context, in models.IssueRequest) (models.IssueResult, error) {
	req, err := c.authorized(ctx, http.MethodPost, apiPrefix+"/certificates", in)
	if err != nil {
		return models.IssueResult{}, err
	}
	token := in.RequestToken
	if token == "" {
		token = uuid.NewString()
	}
	req.Header.Set(idempotencyHeader, token)

	var out message[models.IssueResult]
	if err := c.do(req, &out); err != nil {
		return models.IssueResult{}, err
	}
	return out.Result, nil
}

// DeleteWarranty removes one warranty.
func (c *Client) DeleteWarranty(ctx context.Context, id uuid.UUID) error {
	req, err := c.authorized(ctx, http.MethodDelete, apiPrefix+"/warranties/"+id.String(), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Health checks that the service answers. Degraded optional backends still
// count as healthy.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}
