package cloudsync

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

	"github.com/mixel34p/Yo-kaidle-sub002/internal/models"
)

var ErrUnauthorized = errors.New("cloudsync unauthorized")

// APIError is a non-2xx answer from the Cloud Sync API.
type APIError struct {
	Status  int
	Message string
	Details string
	Code    string
	Hint    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("cloudsync %d: %s", e.Status, e.Message)
	if e.Code != "" {
		msg += " (code " + e.Code + ")"
	}
	return msg
}

// IsCallerError reports whether err is a 4xx rejection that retrying cannot fix.
func IsCallerError(err error) bool {
	if errors.Is(err, ErrUnauthorized) {
		return true
	}
	var ae *APIError
	return errors.As(err, &ae) && ae.Status >= 400 && ae.Status < 500
}

type PullResult struct {
	Data         json.RawMessage
	HasCloudData bool
	LastSynced   *time.Time
	CreatedAt    *time.Time
	SessionID    string
}

type PushResult struct {
	Message    string
	LastSynced time.Time
	SessionID  string
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewClient(httpClient *http.Client, baseURL, token string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
	}
}

// Pull fetches the user's CloudRow. A user without a row is not an error.
func (c *Client) Pull(ctx context.Context, userID string) (*PullResult, error) {
	var out models.SyncPullResponse
	if err := c.do(ctx, http.MethodGet, "/api/sync?userId="+url.QueryEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	res := &PullResult{HasCloudData: out.HasCloudData}
	if out.HasCloudData && len(out.Data) > 0 && string(out.Data) != "null" {
		res.Data = out.Data
	}
	res.LastSynced = parseTime(out.LastSynced)
	res.CreatedAt = parseTime(out.CreatedAt)
	if out.SessionID != nil {
		res.SessionID = *out.SessionID
	}
	return res, nil
}

// Push overwrites the user's CloudRow with snapshot.
func (c *Client) Push(ctx context.Context, userID string, snapshot any, sessionID string) (*PushResult, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	req := models.SyncPushRequest{UserID: userID, Data: data}
	if sessionID != "" {
		req.SessionID = &sessionID
	}
	var out models.SyncPushResponse
	if err := c.do(ctx, http.MethodPost, "/api/sync", req, &out); err != nil {
		return nil, err
	}
	res := &PushResult{Message: out.Message}
	if t := parseTime(&out.LastSynced); t != nil {
		res.LastSynced = *t
	}
	if out.SessionID != nil {
		res.SessionID = *out.SessionID
	}
	return res, nil
}

func parseTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil
	}
	return &t
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		token := c.token
		if !strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = "Bearer " + token
		}
		req.Header.Set("Authorization", token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cloudsync %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var eb models.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&eb)
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, eb.Error)
	}
	msg := strings.TrimSpace(eb.Error)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg, Details: eb.Details, Code: eb.Code, Hint: eb.Hint}
}
