package directus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/escuelalink/parent-gateway/internal/permission"
)

var (
	ErrUnauthorized = errors.New("directus: unauthorized")
	ErrUnavailable  = errors.New("directus: backend unavailable")
)

// Platform selects how asset URLs carry the auth token: web clients
// get a query-string token (avoids a CORS preflight on image loads),
// mobile clients send the bearer header themselves.
type Platform string

const (
	PlatformWeb    Platform = "web"
	PlatformMobile Platform = "mobile"
)

// Client talks to the Directus content/identity backend. All calls
// take a context and honor the configured timeout; responses use the
// backend's {"data": ...} envelope.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*Tokens, error) {
	body := map[string]string{"email": email, "password": password, "mode": "json"}
	var tokens Tokens
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &tokens); err != nil {
		return nil, err
	}
	tokens.ObtainedAt = time.Now().UTC()
	return &tokens, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	body := map[string]string{"refresh_token": refreshToken, "mode": "json"}
	var tokens Tokens
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", "", body, &tokens); err != nil {
		return nil, err
	}
	tokens.ObtainedAt = time.Now().UTC()
	return &tokens, nil
}

func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refresh_token": refreshToken}
	return c.do(ctx, http.MethodPost, "/auth/logout", "", body, nil)
}

func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	path := "/users/me?fields=id,email,first_name,last_name,avatar,role.id,role.name"
	if err := c.do(ctx, http.MethodGet, path, accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Permissions fetches the caller's effective permission rows and
// normalizes them into grants. A row whose rule references the
// current-user placeholder is an owner-only grant.
func (c *Client) Permissions(ctx context.Context, accessToken string) ([]permission.Grant, error) {
	var rows []permissionRow
	if err := c.do(ctx, http.MethodGet, "/permissions/me", accessToken, nil, &rows); err != nil {
		return nil, err
	}
	grants := make([]permission.Grant, 0, len(rows))
	for _, row := range rows {
		grants = append(grants, permission.Grant{
			Collection: row.Collection,
			Action:     permission.Action(row.Action),
			Fields:     row.Fields,
			OwnerOnly:  ruleIsOwnerOnly(row.Rule),
		})
	}
	return grants, nil
}

func (c *Client) Students(ctx context.Context, accessToken string) ([]Student, error) {
	var students []Student
	err := c.do(ctx, http.MethodGet, "/items/students?sort=name", accessToken, nil, &students)
	return students, err
}

func (c *Client) Announcements(ctx context.Context, accessToken string, opts ListOptions) ([]Announcement, error) {
	var items []Announcement
	err := c.do(ctx, http.MethodGet, listPath("announcements", "-published_at", opts), accessToken, nil, &items)
	return items, err
}

func (c *Client) Events(ctx context.Context, accessToken string, opts ListOptions) ([]Event, error) {
	var items []Event
	err := c.do(ctx, http.MethodGet, listPath("events", "starts_at", opts), accessToken, nil, &items)
	return items, err
}

func (c *Client) Conversations(ctx context.Context, accessToken string, opts ListOptions) ([]Conversation, error) {
	var items []Conversation
	err := c.do(ctx, http.MethodGet, listPath("conversations", "-last_message_at", opts), accessToken, nil, &items)
	return items, err
}

// AssetURL builds the URL for an asset id. Web gets the token inline,
// mobile callers attach the bearer header themselves.
func (c *Client) AssetURL(assetID, accessToken string, platform Platform) string {
	u := c.baseURL + "/assets/" + url.PathEscape(assetID)
	if platform == PlatformWeb && accessToken != "" {
		u += "?access_token=" + url.QueryEscape(accessToken)
	}
	return u
}

func listPath(collection, defaultSort string, opts ListOptions) string {
	q := url.Values{}
	sort := opts.Sort
	if sort == "" {
		sort = defaultSort
	}
	q.Set("sort", sort)
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.StudentID != "" {
		q.Set("filter[student][_eq]", opts.StudentID)
	}
	return "/items/" + collection + "?" + q.Encode()
}

// Ping hits the unauthenticated server ping endpoint. Used by health
// probes only.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/server/ping", "", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("directus: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("directus: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if res.StatusCode >= 400 {
		var env envelope
		if jsonErr := json.Unmarshal(raw, &env); jsonErr == nil && len(env.Errors) > 0 {
			return fmt.Errorf("directus: %s (status %d)", env.Errors[0].Message, res.StatusCode)
		}
		return fmt.Errorf("directus: unexpected status %d", res.StatusCode)
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("directus: decode envelope: %w", err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("directus: response missing data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("directus: decode data: %w", err)
	}
	return nil
}

// ruleIsOwnerOnly reports whether a permission rule restricts rows to
// the requesting user via the backend's current-user placeholder.
func ruleIsOwnerOnly(rule map[string]any) bool {
	if len(rule) == 0 {
		return false
	}
	raw, err := json.Marshal(rule)
	if err != nil {
		return false
	}
	return bytes.Contains(raw, []byte("$CURRENT_USER"))
}
